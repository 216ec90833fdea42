package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/wikirace-api/internal/domain/entity"
	"github.com/yourusername/wikirace-api/internal/handler/dto"
	apperrors "github.com/yourusername/wikirace-api/internal/pkg/errors"
	"github.com/yourusername/wikirace-api/internal/middleware"
	"github.com/yourusername/wikirace-api/internal/service"
)

// Заголовок с отпечатком состояния комнаты для детекции изменений
const stateHashHeader = "X-State-Hash"

// MultiplayerHandler обрабатывает запросы мультиплеерных комнат
type MultiplayerHandler struct {
	multiplayerService *service.MultiplayerService
	challengeService   *service.ChallengeService
	syncService        *service.SyncService
}

// NewMultiplayerHandler создает новый обработчик мультиплеера
func NewMultiplayerHandler(
	multiplayerService *service.MultiplayerService,
	challengeService *service.ChallengeService,
	syncService *service.SyncService,
) *MultiplayerHandler {
	return &MultiplayerHandler{
		multiplayerService: multiplayerService,
		challengeService:   challengeService,
		syncService:        syncService,
	}
}

// CreateGameRequest представляет запрос на создание комнаты
type CreateGameRequest struct {
	IsPublic   bool `json:"is_public"`
	MaxPlayers int  `json:"max_players"`
}

// CreateGame создает комнату и присоединяет создателя
func (h *MultiplayerHandler) CreateGame(c *gin.Context) {
	player := middleware.GetPlayer(c)

	var req CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	game, err := h.multiplayerService.CreateGame(player, req.IsPublic, req.MaxPlayers)
	if err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewRoomResponse(game))
}

// ListPublicGames возвращает открытые комнаты для лобби
func (h *MultiplayerHandler) ListPublicGames(c *gin.Context) {
	games, err := h.multiplayerService.GetPublicGames()
	if err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"games": dto.NewRoomListResponse(games)})
}

// GetGameByCode возвращает комнату по коду присоединения
func (h *MultiplayerHandler) GetGameByCode(c *gin.Context) {
	game, err := h.multiplayerService.GetGameByCode(c.Param("code"))
	if err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewRoomResponse(game))
}

// GetGame возвращает комнату по идентификатору
func (h *MultiplayerHandler) GetGame(c *gin.Context) {
	game, err := h.loadGame(c)
	if err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewRoomResponse(game))
}

// JoinGame присоединяет текущего игрока к комнате
func (h *MultiplayerHandler) JoinGame(c *gin.Context) {
	player := middleware.GetPlayer(c)

	game, err := h.loadGame(c)
	if err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	if _, err := h.multiplayerService.JoinGame(game, player); err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewRoomResponse(game))
}

// LeaveGame убирает текущего игрока из комнаты
func (h *MultiplayerHandler) LeaveGame(c *gin.Context) {
	player := middleware.GetPlayer(c)

	game, err := h.loadGame(c)
	if err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	if err := h.multiplayerService.LeaveGame(game, player); err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SetReadyRequest представляет запрос на смену готовности
type SetReadyRequest struct {
	Ready *bool `json:"ready" binding:"required"`
}

// SetReady выставляет флаг готовности текущего игрока
func (h *MultiplayerHandler) SetReady(c *gin.Context) {
	player := middleware.GetPlayer(c)

	var req SetReadyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	game, err := h.loadGame(c)
	if err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	if err := h.multiplayerService.SetPlayerReady(game, player, *req.Ready); err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.syncService.GetGameState(game))
}

// SelectChallengeRequest представляет запрос на выбор челленджа
type SelectChallengeRequest struct {
	ChallengeID uint `json:"challenge_id" binding:"required"`
}

// SelectChallenge выбирает предопределенный челлендж для комнаты
func (h *MultiplayerHandler) SelectChallenge(c *gin.Context) {
	player := middleware.GetPlayer(c)

	var req SelectChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	game, err := h.loadGame(c)
	if err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	challenge, err := h.challengeService.GetChallengeByID(req.ChallengeID)
	if err != nil {
		h.handleMultiplayerError(c, err)
		return
	}
	if !challenge.HasMode(entity.ChallengeModeMultiplayer) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "challenge is not available in multiplayer mode"})
		return
	}

	if err := h.multiplayerService.SelectChallenge(game, player, challenge); err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.syncService.GetGameState(game))
}

// CustomChallengeRequest представляет запрос на кастомную пару страниц
type CustomChallengeRequest struct {
	StartPage string `json:"start_page" binding:"required"`
	EndPage   string `json:"end_page" binding:"required"`
}

// SelectCustomChallenge задает кастомную пару страниц для комнаты
func (h *MultiplayerHandler) SelectCustomChallenge(c *gin.Context) {
	player := middleware.GetPlayer(c)

	var req CustomChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	game, err := h.loadGame(c)
	if err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	if err := h.multiplayerService.SelectCustomChallenge(game, player, req.StartPage, req.EndPage); err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.syncService.GetGameState(game))
}

// StartCountdown запускает обратный отсчет перед стартом забега
func (h *MultiplayerHandler) StartCountdown(c *gin.Context) {
	player := middleware.GetPlayer(c)

	game, err := h.loadGame(c)
	if err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	if err := h.multiplayerService.StartCountdown(game, player); err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.syncService.GetGameState(game))
}

// DoStart переводит комнату из отсчета в забег.
// Клиентский триггер, дублирующий серверный таймер: повторный
// вызов после уже выполненного перехода безвреден.
func (h *MultiplayerHandler) DoStart(c *gin.Context) {
	player := middleware.GetPlayer(c)

	game, err := h.loadGame(c)
	if err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	if game.FindParticipant(player.ID) == nil {
		h.handleMultiplayerError(c, service.ErrNotInRoom)
		return
	}

	if err := h.multiplayerService.StartGame(game); err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.syncService.GetGameState(game))
}

// Finish фиксирует финиш текущего игрока
func (h *MultiplayerHandler) Finish(c *gin.Context) {
	player := middleware.GetPlayer(c)

	game, err := h.loadGame(c)
	if err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	participant, err := h.multiplayerService.PlayerFinished(game, player)
	if err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"finish_position": participant.FinishPosition,
		"state":           game.State,
	})
}

// AbandonGame принудительно закрывает комнату
func (h *MultiplayerHandler) AbandonGame(c *gin.Context) {
	player := middleware.GetPlayer(c)

	game, err := h.loadGame(c)
	if err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	if err := h.multiplayerService.AbandonGame(game, player); err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// KickParticipant исключает участника из комнаты
func (h *MultiplayerHandler) KickParticipant(c *gin.Context) {
	player := middleware.GetPlayer(c)
	participantID := c.MustGet("participantID").(uint)

	game, err := h.loadGame(c)
	if err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	if err := h.multiplayerService.KickParticipant(game, player, participantID); err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Sync возвращает снимок состояния комнаты для поллинга.
// Если переданный клиентом hash совпадает с текущим, тело не
// отправляется: 304 Not Modified.
func (h *MultiplayerHandler) Sync(c *gin.Context) {
	player := middleware.GetPlayer(c)

	game, err := h.loadGame(c)
	if err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	if game.FindParticipant(player.ID) == nil {
		h.handleMultiplayerError(c, service.ErrNotInRoom)
		return
	}

	hash := h.syncService.GetStateHash(game)
	c.Header(stateHashHeader, hash)

	if clientHash := c.Query("hash"); clientHash != "" && clientHash == hash {
		c.Status(http.StatusNotModified)
		return
	}

	c.JSON(http.StatusOK, h.syncService.GetGameState(game))
}

// Results возвращает таблицу результатов комнаты
func (h *MultiplayerHandler) Results(c *gin.Context) {
	player := middleware.GetPlayer(c)

	game, err := h.loadGame(c)
	if err != nil {
		h.handleMultiplayerError(c, err)
		return
	}

	if game.FindParticipant(player.ID) == nil {
		h.handleMultiplayerError(c, service.ErrNotInRoom)
		return
	}

	c.JSON(http.StatusOK, dto.NewGameResultsResponse(game))
}

// loadGame загружает комнату с полным составом по gameID из контекста
func (h *MultiplayerHandler) loadGame(c *gin.Context) (*entity.MultiplayerGame, error) {
	gameID := c.MustGet("gameID").(uint)
	return h.multiplayerService.GetGameByID(gameID)
}

// handleMultiplayerError преобразует ошибки сервиса в HTTP-ответы
func (h *MultiplayerHandler) handleMultiplayerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, service.ErrNotInRoom):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotCreator), errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidChallenge), errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyJoined),
		errors.Is(err, service.ErrRoomFull),
		errors.Is(err, service.ErrNotJoinable),
		errors.Is(err, service.ErrNoChallengeSelected),
		errors.Is(err, service.ErrNotAllReady),
		errors.Is(err, service.ErrNotInProgress),
		errors.Is(err, service.ErrAlreadyFinished),
		errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("ERROR: Internal server error in MultiplayerHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
