package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Prize struct {
	HuntName           string
	CouponCode         string
	DiscountPercentage int
	QRCode             []byte
}

type PrizeNotifier interface {
	SendPrize(ctx context.Context, telegramID int64, prize Prize) error
}

type photoSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier delivers prize credentials to the participant's private chat.
type TelegramNotifier struct {
	bot photoSender
}

func NewTelegramNotifier(botToken string) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}
	return &TelegramNotifier{bot: bot}, nil
}

func (n *TelegramNotifier) SendPrize(ctx context.Context, telegramID int64, prize Prize) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	caption := fmt.Sprintf("You finished %q! Show this code to a partner merchant for %d%% off: %s",
		prize.HuntName, prize.DiscountPercentage, prize.CouponCode)

	if len(prize.QRCode) == 0 {
		if _, err := n.bot.Send(tgbotapi.NewMessage(telegramID, caption)); err != nil {
			return fmt.Errorf("failed to send prize message: %w", err)
		}
		return nil
	}

	photo := tgbotapi.NewPhoto(telegramID, tgbotapi.FileBytes{
		Name:  "prize-" + prize.CouponCode + ".png",
		Bytes: prize.QRCode,
	})
	photo.Caption = caption

	if _, err := n.bot.Send(photo); err != nil {
		return fmt.Errorf("failed to send prize photo: %w", err)
	}
	return nil
}

type Noop struct{}

func (Noop) SendPrize(context.Context, int64, Prize) error { return nil }
