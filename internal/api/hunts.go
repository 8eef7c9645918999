package api

import (
	"errors"
	"net/http"
	"time"

	"geohunt/internal/middleware"
	"geohunt/internal/model"
	"geohunt/internal/service"
	"geohunt/pkg/auth"
	"geohunt/pkg/credential"
	"geohunt/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type huntRoutes struct {
	cs service.CatalogServiceI
	hs service.HuntServiceI
}

func NewHuntRoutes(handler *gin.RouterGroup, cs service.CatalogServiceI, hs service.HuntServiceI, a *auth.TelegramAuth, authz *middleware.Authorization) {
	r := &huntRoutes{cs: cs, hs: hs}

	h := handler.Group("/hunts")
	h.Use(a.TelegramAuthMiddleware(), authz.DetectAdmin())
	{
		h.GET("", r.ListHunts)
		h.GET("/:hunt_id", r.GetHunt)
		h.POST("/:hunt_id/start", r.StartHunt)
		h.GET("/:hunt_id/clue", r.GetCurrentClue)
		h.POST("/:hunt_id/solve", r.SolveClue)
		h.GET("/:hunt_id/progress", r.GetProgress)
		h.DELETE("/:hunt_id/progress", r.StopHunt)
		h.GET("/:hunt_id/prize/qr", r.GetPrizeQR)
	}
}

type huntResponse struct {
	HuntID                  string         `json:"hunt_id"`
	Name                    string         `json:"name"`
	Description             string         `json:"description"`
	Icon                    string         `json:"icon"`
	IsActive                bool           `json:"is_active"`
	PrizeDiscountPercentage *int           `json:"prize_discount_percentage"`
	TotalClues              int            `json:"total_clues"`
	Clues                   []clueResponse `json:"clues,omitempty"`
}

type clueResponse struct {
	ClueID     string  `json:"clue_id"`
	HuntID     string  `json:"hunt_id"`
	ClueNumber int     `json:"clue_number"`
	Title      *string `json:"title"`
	ClueText   string  `json:"clue_text"`
	Answer     string  `json:"answer,omitempty"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Icon       *string `json:"icon"`
	Hint       *string `json:"hint"`
}

type progressResponse struct {
	ProgressID        string         `json:"progress_id"`
	HuntID            string         `json:"hunt_id"`
	UserTelegramID    int64          `json:"user_telegram_id"`
	CurrentClueNumber int            `json:"current_clue_number"`
	CompletedClueIDs  []string       `json:"completed_clue_ids"`
	TotalClues        int            `json:"total_clues,omitempty"`
	Completed         bool           `json:"completed"`
	StartedAt         int64          `json:"started_at"`
	LastActivityAt    *int64         `json:"last_activity_at"`
	CompletedAt       *int64         `json:"completed_at"`
	Prize             *prizeResponse `json:"prize,omitempty"`
}

type prizeResponse struct {
	CouponCode         string `json:"coupon_code"`
	DiscountPercentage *int   `json:"discount_percentage,omitempty"`
	QRPayload          string `json:"qr_payload"`
	QRCodeURL          string `json:"qr_code_url"`
}

type SolveRequest struct {
	Answer        string   `json:"answer" binding:"required"`
	UserLatitude  *float64 `json:"user_latitude" binding:"required"`
	UserLongitude *float64 `json:"user_longitude" binding:"required"`
}

type solveResponse struct {
	Correct   bool             `json:"correct"`
	Completed bool             `json:"completed"`
	Progress  progressResponse `json:"progress"`
	NextClue  *clueResponse    `json:"next_clue,omitempty"`
}

func (r *huntRoutes) ListHunts(c *gin.Context) {
	activeOnly := !(middleware.IsAdminRequest(c) && c.Query("all") == "true")

	hunts, err := r.cs.ListHunts(c.Request.Context(), activeOnly)
	if err != nil {
		writeError(c, err, "list hunts")
		return
	}

	response := make([]huntResponse, len(hunts))
	for i, h := range hunts {
		response[i] = newHuntResponse(h)
	}

	c.JSON(http.StatusOK, response)
}

func (r *huntRoutes) GetHunt(c *gin.Context) {
	huntID, ok := parseHuntID(c)
	if !ok {
		return
	}

	admin := middleware.IsAdminRequest(c)
	hunt, err := r.cs.GetHunt(c.Request.Context(), huntID, admin)
	if err != nil {
		writeError(c, err, "get hunt")
		return
	}
	if !hunt.IsActive && !admin {
		c.JSON(http.StatusNotFound, gin.H{"error": "hunt not found"})
		return
	}

	c.JSON(http.StatusOK, newHuntResponse(hunt))
}

func (r *huntRoutes) StartHunt(c *gin.Context) {
	user, huntID, ok := participantRequest(c)
	if !ok {
		return
	}

	progress, err := r.hs.Start(c.Request.Context(), user.ID, huntID)
	if err != nil {
		writeError(c, err, "start hunt")
		return
	}

	c.JSON(http.StatusOK, newProgressResponse(progress, 0))
}

func (r *huntRoutes) GetCurrentClue(c *gin.Context) {
	user, huntID, ok := participantRequest(c)
	if !ok {
		return
	}

	clue, status, err := r.hs.CurrentClue(c.Request.Context(), user.ID, huntID)
	if err != nil {
		// a finished hunt has no current clue
		if errors.Is(err, service.ErrAlreadyCompleted) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":             "hunt already completed",
				"already_completed": true,
			})
			return
		}
		writeError(c, err, "get current clue")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"clue":     newClueResponse(clue),
		"progress": newProgressResponse(status.Progress, status.TotalClues),
	})
}

func (r *huntRoutes) SolveClue(c *gin.Context) {
	user, huntID, ok := participantRequest(c)
	if !ok {
		return
	}

	var req SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "answer, user_latitude and user_longitude are required"})
		return
	}

	result, err := r.hs.Solve(c.Request.Context(), user.ID, huntID, service.Submission{
		Answer:    req.Answer,
		Latitude:  *req.UserLatitude,
		Longitude: *req.UserLongitude,
	})
	if err != nil {
		if !errors.Is(err, service.ErrIncorrectAnswer) {
			logger.Logger().Info("solve rejected",
				zap.Int64("telegram_id", user.ID),
				zap.String("hunt_id", huntID.String()),
				zap.Error(err))
		}
		writeError(c, err, "solve clue")
		return
	}

	response := solveResponse{
		Correct:   true,
		Completed: result.Completed,
		Progress:  newProgressResponse(result.Progress, result.TotalClues),
	}
	if result.NextClue != nil {
		next := newClueResponse(result.NextClue)
		response.NextClue = &next
	}

	c.JSON(http.StatusOK, response)
}

func (r *huntRoutes) GetProgress(c *gin.Context) {
	user, huntID, ok := participantRequest(c)
	if !ok {
		return
	}

	status, err := r.hs.GetProgress(c.Request.Context(), user.ID, huntID)
	if err != nil {
		writeError(c, err, "get progress")
		return
	}

	c.JSON(http.StatusOK, newProgressResponse(status.Progress, status.TotalClues))
}

func (r *huntRoutes) StopHunt(c *gin.Context) {
	user, huntID, ok := participantRequest(c)
	if !ok {
		return
	}

	if err := r.hs.Stop(c.Request.Context(), user.ID, huntID); err != nil {
		writeError(c, err, "stop hunt")
		return
	}

	c.Status(http.StatusNoContent)
}

func (r *huntRoutes) GetPrizeQR(c *gin.Context) {
	user, huntID, ok := participantRequest(c)
	if !ok {
		return
	}

	png, err := r.hs.PrizeImage(c.Request.Context(), user.ID, huntID)
	if err != nil {
		writeError(c, err, "render prize")
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

func participantRequest(c *gin.Context) (*auth.TelegramUserData, uuid.UUID, bool) {
	user, ok := auth.UserFromContext(c)
	if !ok {
		logger.Logger().Error("telegram user data not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return nil, uuid.Nil, false
	}

	huntID, ok := parseHuntID(c)
	if !ok {
		return nil, uuid.Nil, false
	}

	return user, huntID, true
}

func parseHuntID(c *gin.Context) (uuid.UUID, bool) {
	huntID, err := uuid.Parse(c.Param("hunt_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hunt_id"})
		return uuid.Nil, false
	}
	return huntID, true
}

func newHuntResponse(h *model.Hunt) huntResponse {
	resp := huntResponse{
		HuntID:                  h.HuntID.String(),
		Name:                    h.Name,
		Description:             h.Description,
		Icon:                    h.Icon,
		IsActive:                h.IsActive,
		PrizeDiscountPercentage: h.PrizeDiscountPercentage,
		TotalClues:              h.ClueCount,
	}
	if len(h.Clues) > 0 {
		resp.Clues = make([]clueResponse, len(h.Clues))
		for i, cl := range h.Clues {
			resp.Clues[i] = newClueResponse(cl)
		}
	}
	return resp
}

func newClueResponse(cl *model.Clue) clueResponse {
	return clueResponse{
		ClueID:     cl.ClueID.String(),
		HuntID:     cl.HuntID.String(),
		ClueNumber: cl.ClueNumber,
		Title:      cl.Title,
		ClueText:   cl.ClueText,
		Answer:     cl.Answer,
		Latitude:   cl.Latitude,
		Longitude:  cl.Longitude,
		Icon:       cl.Icon,
		Hint:       cl.Hint,
	}
}

func newProgressResponse(p *model.Progress, totalClues int) progressResponse {
	completed := make([]string, len(p.CompletedClueIDs))
	for i, id := range p.CompletedClueIDs {
		completed[i] = id.String()
	}

	resp := progressResponse{
		ProgressID:        p.ProgressID.String(),
		HuntID:            p.HuntID.String(),
		UserTelegramID:    p.UserTelegramID,
		CurrentClueNumber: p.CurrentClueNumber,
		CompletedClueIDs:  completed,
		TotalClues:        totalClues,
		Completed:         p.IsCompleted(),
		StartedAt:         p.StartedAt.Unix(),
		LastActivityAt:    unixPtr(p.LastActivityAt),
		CompletedAt:       unixPtr(p.CompletedAt),
	}

	if p.PrizeCouponCode != nil && p.PrizeQRPayload != nil {
		resp.Prize = &prizeResponse{
			CouponCode: *p.PrizeCouponCode,
			QRPayload:  *p.PrizeQRPayload,
			QRCodeURL:  "/api/v1/hunts/" + p.HuntID.String() + "/prize/qr",
		}
		if issued, err := credential.Decode(*p.PrizeQRPayload); err == nil {
			resp.Prize.DiscountPercentage = &issued.DiscountPercentage
		}
	}

	return resp
}

func unixPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	unix := t.Unix()
	return &unix
}
