package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yourusername/wikirace-api/internal/pkg/errors"
	"github.com/yourusername/wikirace-api/internal/middleware"
	"github.com/yourusername/wikirace-api/internal/service"
)

// GameHandler обрабатывает запросы игровых сессий
type GameHandler struct {
	gameService       *service.GameService
	challengeService  *service.ChallengeService
	navigationService *service.NavigationService
}

// NewGameHandler создает новый обработчик игровых сессий
func NewGameHandler(
	gameService *service.GameService,
	challengeService *service.ChallengeService,
	navigationService *service.NavigationService,
) *GameHandler {
	return &GameHandler{
		gameService:       gameService,
		challengeService:  challengeService,
		navigationService: navigationService,
	}
}

// StartSoloGame возвращает соло-сессию игрока для челленджа,
// создавая новую при первом заходе
func (h *GameHandler) StartSoloGame(c *gin.Context) {
	player := middleware.GetPlayer(c)
	challengeID := c.MustGet("challengeID").(uint)

	challenge, err := h.challengeService.GetChallengeByID(challengeID)
	if err != nil {
		h.handleGameError(c, err)
		return
	}

	session, err := h.gameService.StartSoloGame(player, challenge)
	if err != nil {
		h.handleGameError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":   session,
		"challenge": challenge,
	})
}

// GetSession возвращает сессию игрока
func (h *GameHandler) GetSession(c *gin.Context) {
	player := middleware.GetPlayer(c)
	sessionID := c.MustGet("sessionID").(uint)

	session, err := h.gameService.GetSessionForPlayer(sessionID, player)
	if err != nil {
		h.handleGameError(c, err)
		return
	}

	response := gin.H{"session": session}
	if session.Completed {
		response["statistics"] = h.navigationService.CalculateStatistics(session)
	}
	c.JSON(http.StatusOK, response)
}

// LoadPage регистрирует переход на страницу и возвращает ее содержимое
func (h *GameHandler) LoadPage(c *gin.Context) {
	player := middleware.GetPlayer(c)
	sessionID := c.MustGet("sessionID").(uint)
	title := pageTitleParam(c)

	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page title is required"})
		return
	}

	session, err := h.gameService.GetSessionForPlayer(sessionID, player)
	if err != nil {
		h.handleGameError(c, err)
		return
	}

	view, err := h.gameService.LoadPage(session, title)
	if err != nil {
		h.handleGameError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetPageExtract возвращает предпросмотр страницы для всплывающей подсказки
func (h *GameHandler) GetPageExtract(c *gin.Context) {
	title := pageTitleParam(c)
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page title is required"})
		return
	}

	extract, err := h.gameService.GetPageExtract(title)
	if err != nil {
		// Предпросмотр некритичен, детали остаются в логах
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Unable to fetch page preview",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"title":     extract.Title,
		"extract":   extract.Extract,
		"thumbnail": extract.Thumbnail,
	})
}

// GetStatistics возвращает статистику завершенной сессии
func (h *GameHandler) GetStatistics(c *gin.Context) {
	player := middleware.GetPlayer(c)
	sessionID := c.MustGet("sessionID").(uint)

	session, err := h.gameService.GetSessionForPlayer(sessionID, player)
	if err != nil {
		h.handleGameError(c, err)
		return
	}

	statistics, err := h.gameService.GetStatistics(session)
	if err != nil {
		h.handleGameError(c, err)
		return
	}

	c.JSON(http.StatusOK, statistics)
}

// pageTitleParam извлекает название страницы из wildcard-параметра.
// Названия статей могут содержать "/", поэтому маршрут использует *title.
func pageTitleParam(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("title"), "/")
}

// handleGameError преобразует ошибки сервиса в HTTP-ответы
func (h *GameHandler) handleGameError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, service.ErrWikipediaUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in GameHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
