package credential

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

// PayloadType tags payloads issued for completed hunts.
const PayloadType = "hunt_reward"

const couponBytes = 3

var (
	ErrMalformedPayload = errors.New("malformed credential payload")
	ErrUnknownPayload   = errors.New("credential is not a hunt reward")
)

type Payload struct {
	Type               string    `json:"type"`
	HuntID             uuid.UUID `json:"hunt_id"`
	UserID             int64     `json:"user_id"`
	CouponCode         string    `json:"coupon_code"`
	DiscountPercentage int       `json:"discount_percentage"`
	IssuedAt           time.Time `json:"issued_at"`
}

type Credential struct {
	CouponCode string
	Payload    string
	QRCode     []byte
}

// Renderer turns an arbitrary payload into a scannable image.
type Renderer interface {
	Render(payload string) ([]byte, error)
}

type QRRenderer struct {
	Size  int
	Level qrcode.RecoveryLevel
}

func NewQRRenderer() *QRRenderer {
	return &QRRenderer{
		Size:  256,
		Level: qrcode.Medium,
	}
}

func (r *QRRenderer) Render(payload string) ([]byte, error) {
	png, err := qrcode.Encode(payload, r.Level, r.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to render qr code: %w", err)
	}
	return png, nil
}

type Issuer struct {
	renderer Renderer
	now      func() time.Time
}

func NewIssuer(renderer Renderer) *Issuer {
	return &Issuer{
		renderer: renderer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Issue generates a fresh coupon code and the payload that carries it.
// Uniqueness is not checked here; redemption is always scoped to the
// hunt and user recovered from the payload.
func (i *Issuer) Issue(huntID uuid.UUID, userID int64, discount int) (*Credential, error) {
	code, err := NewCouponCode()
	if err != nil {
		return nil, err
	}

	payload, err := Encode(Payload{
		Type:               PayloadType,
		HuntID:             huntID,
		UserID:             userID,
		CouponCode:         code,
		DiscountPercentage: discount,
		IssuedAt:           i.now(),
	})
	if err != nil {
		return nil, err
	}

	cred := &Credential{
		CouponCode: code,
		Payload:    payload,
	}

	if i.renderer != nil {
		cred.QRCode, err = i.renderer.Render(payload)
		if err != nil {
			return nil, err
		}
	}

	return cred, nil
}

// Render produces the scannable image for a stored payload.
func (i *Issuer) Render(payload string) ([]byte, error) {
	if i.renderer == nil {
		return nil, errors.New("no credential renderer configured")
	}
	return i.renderer.Render(payload)
}

func NewCouponCode() (string, error) {
	b := make([]byte, couponBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate coupon code: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

func Encode(p Payload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode credential payload: %w", err)
	}
	return string(raw), nil
}

func Decode(scanned string) (*Payload, error) {
	scanned = strings.TrimSpace(scanned)
	if scanned == "" {
		return nil, ErrMalformedPayload
	}

	var p Payload
	if err := json.Unmarshal([]byte(scanned), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if p.Type != PayloadType {
		return nil, ErrUnknownPayload
	}
	if p.HuntID == uuid.Nil || p.UserID == 0 || p.CouponCode == "" {
		return nil, ErrMalformedPayload
	}

	return &p, nil
}
