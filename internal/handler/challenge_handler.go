package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/wikirace-api/internal/domain/entity"
	apperrors "github.com/yourusername/wikirace-api/internal/pkg/errors"
	"github.com/yourusername/wikirace-api/internal/service"
)

// Максимальный размер файла массового импорта
const maxBulkUploadBytes = 5 << 20 // 5 MB

// ChallengeHandler обрабатывает запросы каталога челленджей
type ChallengeHandler struct {
	challengeService *service.ChallengeService
}

// NewChallengeHandler создает новый обработчик челленджей
func NewChallengeHandler(challengeService *service.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{challengeService: challengeService}
}

// ListChallenges возвращает челленджи, по умолчанию для соло-режима
func (h *ChallengeHandler) ListChallenges(c *gin.Context) {
	mode := c.DefaultQuery("mode", entity.ChallengeModeSolo)

	challenges, err := h.challengeService.GetChallengesByMode(mode)
	if err != nil {
		h.handleChallengeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"challenges": challenges})
}

// GetChallenge возвращает один челлендж
func (h *ChallengeHandler) GetChallenge(c *gin.Context) {
	challengeID := c.MustGet("challengeID").(uint) // Получаем из контекста

	challenge, err := h.challengeService.GetChallengeByID(challengeID)
	if err != nil {
		h.handleChallengeError(c, err)
		return
	}

	c.JSON(http.StatusOK, challenge)
}

// GetDailyChallenge возвращает челлендж дня
func (h *ChallengeHandler) GetDailyChallenge(c *gin.Context) {
	challenge, err := h.challengeService.GetDailyChallenge(time.Now())
	if err != nil {
		h.handleChallengeError(c, err)
		return
	}

	c.JSON(http.StatusOK, challenge)
}

// CreateChallengeRequest представляет запрос на создание челленджа
type CreateChallengeRequest struct {
	Name       string   `json:"name" binding:"required,min=1,max=255"`
	StartPage  string   `json:"start_page" binding:"required,max=255"`
	EndPage    string   `json:"end_page" binding:"required,max=255"`
	Difficulty string   `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	Modes      []string `json:"modes"`
}

// CreateChallenge создает новый челлендж
func (h *ChallengeHandler) CreateChallenge(c *gin.Context) {
	var req CreateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	challenge, err := h.challengeService.CreateChallenge(req.Name, req.StartPage, req.EndPage, req.Difficulty, req.Modes)
	if err != nil {
		h.handleChallengeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, challenge)
}

// BulkUpload импортирует челленджи из файла .xlsx или .csv
func (h *ChallengeHandler) BulkUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > maxBulkUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file is too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Printf("[ChallengeHandler] Не удалось открыть загруженный файл: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}
	defer file.Close()

	result, err := h.challengeService.BulkImport(file, fileHeader.Filename)
	if err != nil {
		h.handleChallengeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleChallengeError преобразует ошибки сервиса в HTTP-ответы
func (h *ChallengeHandler) handleChallengeError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, service.ErrInvalidChallenge) || errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in ChallengeHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
