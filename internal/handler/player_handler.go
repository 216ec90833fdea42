package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yourusername/wikirace-api/internal/pkg/errors"
	"github.com/yourusername/wikirace-api/internal/middleware"
	"github.com/yourusername/wikirace-api/internal/service"
)

// PlayerHandler обрабатывает запросы, связанные с игроком
type PlayerHandler struct {
	playerService *service.PlayerService
}

// NewPlayerHandler создает новый обработчик игроков
func NewPlayerHandler(playerService *service.PlayerService) *PlayerHandler {
	return &PlayerHandler{playerService: playerService}
}

// GetCurrentPlayer возвращает текущего игрока из cookie
func (h *PlayerHandler) GetCurrentPlayer(c *gin.Context) {
	player := middleware.GetPlayer(c)

	c.JSON(http.StatusOK, gin.H{
		"id":       player.ID,
		"username": player.DisplayName(),
		"is_named": player.Username != nil,
	})
}

// SetUsernameRequest представляет запрос на смену имени
type SetUsernameRequest struct {
	Username string `json:"username" binding:"required"`
}

// SetUsername задает отображаемое имя текущего игрока
func (h *PlayerHandler) SetUsername(c *gin.Context) {
	player := middleware.GetPlayer(c)

	var req SetUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.playerService.SetUsername(player, req.Username); err != nil {
		h.handlePlayerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"username": *player.Username,
	})
}

// handlePlayerError преобразует ошибки сервиса в HTTP-ответы
func (h *PlayerHandler) handlePlayerError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in PlayerHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
