package api

import (
	"net/http"

	"geohunt/internal/middleware"
	"geohunt/internal/model"
	"geohunt/internal/service"
	"geohunt/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type adminRoutes struct {
	cs service.CatalogServiceI
}

func NewAdminRoutes(handler *gin.RouterGroup, cs service.CatalogServiceI, a *auth.TelegramAuth, authz *middleware.Authorization) {
	r := &adminRoutes{cs: cs}

	admin := handler.Group("/admin")
	admin.Use(a.TelegramAuthMiddleware(), authz.AdminOnly())
	{
		admin.POST("/hunts", r.CreateHunt)
		admin.PUT("/hunts/:hunt_id", r.UpdateHunt)
		admin.DELETE("/hunts/:hunt_id", r.DeleteHunt)
		admin.POST("/hunts/:hunt_id/clues", r.AddClue)
		admin.PUT("/clues/:clue_id", r.UpdateClue)
		admin.DELETE("/clues/:clue_id", r.DeleteClue)
	}
}

type CreateHuntRequest struct {
	Name                    string `json:"name" binding:"required"`
	Description             string `json:"description"`
	Icon                    string `json:"icon"`
	IsActive                bool   `json:"is_active"`
	PrizeDiscountPercentage *int   `json:"prize_discount_percentage"`
}

type UpdateHuntRequest struct {
	Name                    *string `json:"name"`
	Description             *string `json:"description"`
	Icon                    *string `json:"icon"`
	IsActive                *bool   `json:"is_active"`
	PrizeDiscountPercentage *int    `json:"prize_discount_percentage"`
	RemovePrize             bool    `json:"remove_prize"`
}

type CreateClueRequest struct {
	Title     *string  `json:"title"`
	ClueText  string   `json:"clue_text" binding:"required"`
	Answer    string   `json:"answer" binding:"required"`
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	Icon      *string  `json:"icon"`
	Hint      *string  `json:"hint"`
}

type UpdateClueRequest struct {
	Title     *string  `json:"title"`
	ClueText  *string  `json:"clue_text"`
	Answer    *string  `json:"answer"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Icon      *string  `json:"icon"`
	Hint      *string  `json:"hint"`
}

func (r *adminRoutes) CreateHunt(c *gin.Context) {
	var req CreateHuntRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	hunt, err := r.cs.CreateHunt(c.Request.Context(), &model.Hunt{
		Name:                    req.Name,
		Description:             req.Description,
		Icon:                    req.Icon,
		IsActive:                req.IsActive,
		PrizeDiscountPercentage: req.PrizeDiscountPercentage,
	})
	if err != nil {
		writeError(c, err, "create hunt")
		return
	}

	c.JSON(http.StatusCreated, newHuntResponse(hunt))
}

func (r *adminRoutes) UpdateHunt(c *gin.Context) {
	huntID, ok := parseHuntID(c)
	if !ok {
		return
	}

	var req UpdateHuntRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	hunt, err := r.cs.UpdateHunt(c.Request.Context(), huntID, model.HuntUpdate{
		Name:                    req.Name,
		Description:             req.Description,
		Icon:                    req.Icon,
		IsActive:                req.IsActive,
		PrizeDiscountPercentage: req.PrizeDiscountPercentage,
		ClearPrize:              req.RemovePrize,
	})
	if err != nil {
		writeError(c, err, "update hunt")
		return
	}

	c.JSON(http.StatusOK, newHuntResponse(hunt))
}

func (r *adminRoutes) DeleteHunt(c *gin.Context) {
	huntID, ok := parseHuntID(c)
	if !ok {
		return
	}

	if err := r.cs.DeleteHunt(c.Request.Context(), huntID); err != nil {
		writeError(c, err, "delete hunt")
		return
	}

	c.Status(http.StatusNoContent)
}

func (r *adminRoutes) AddClue(c *gin.Context) {
	huntID, ok := parseHuntID(c)
	if !ok {
		return
	}

	var req CreateClueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	clue, err := r.cs.AddClue(c.Request.Context(), &model.Clue{
		HuntID:    huntID,
		Title:     req.Title,
		ClueText:  req.ClueText,
		Answer:    req.Answer,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Icon:      req.Icon,
		Hint:      req.Hint,
	})
	if err != nil {
		writeError(c, err, "add clue")
		return
	}

	c.JSON(http.StatusCreated, newClueResponse(clue))
}

func (r *adminRoutes) UpdateClue(c *gin.Context) {
	clueID, ok := parseClueID(c)
	if !ok {
		return
	}

	var req UpdateClueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	clue, err := r.cs.UpdateClue(c.Request.Context(), clueID, model.ClueUpdate{
		Title:     req.Title,
		ClueText:  req.ClueText,
		Answer:    req.Answer,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Icon:      req.Icon,
		Hint:      req.Hint,
	})
	if err != nil {
		writeError(c, err, "update clue")
		return
	}

	c.JSON(http.StatusOK, newClueResponse(clue))
}

func (r *adminRoutes) DeleteClue(c *gin.Context) {
	clueID, ok := parseClueID(c)
	if !ok {
		return
	}

	if err := r.cs.DeleteClue(c.Request.Context(), clueID); err != nil {
		writeError(c, err, "delete clue")
		return
	}

	c.Status(http.StatusNoContent)
}

func parseClueID(c *gin.Context) (uuid.UUID, bool) {
	clueID, err := uuid.Parse(c.Param("clue_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid clue_id"})
		return uuid.Nil, false
	}
	return clueID, true
}
