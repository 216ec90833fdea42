package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/wikirace-api/internal/domain/entity"
	"github.com/yourusername/wikirace-api/internal/service"
)

// Параметры cookie анонимной идентичности игрока
const (
	PlayerCookieName = "wiki_race_player"
	playerCookieAge  = 365 * 24 * 60 * 60 // 1 год в секундах

	// PlayerContextKey — ключ игрока в контексте Gin
	PlayerContextKey = "player"
)

// PlayerMiddleware привязывает анонимного игрока к запросу.
// Игрок опознается по UUID в cookie; отсутствующий или невалидный
// cookie означает нового игрока, которому выдается свежий UUID.
type PlayerMiddleware struct {
	playerService *service.PlayerService
	secureCookie  bool
}

// NewPlayerMiddleware создает middleware идентичности игроков
func NewPlayerMiddleware(playerService *service.PlayerService, secureCookie bool) *PlayerMiddleware {
	return &PlayerMiddleware{
		playerService: playerService,
		secureCookie:  secureCookie,
	}
}

// ResolvePlayer возвращает Gin middleware, кладущее игрока в контекст
func (m *PlayerMiddleware) ResolvePlayer() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookieUUID, _ := c.Cookie(PlayerCookieName)

		player, err := m.playerService.GetOrCreatePlayer(cookieUUID)
		if err != nil {
			log.Printf("[PlayerMiddleware] Не удалось определить игрока: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve player identity"})
			return
		}

		// Cookie продлевается на каждый запрос
		if cookieUUID != player.UUID {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(PlayerCookieName, player.UUID, playerCookieAge, "/", "", m.secureCookie, true)
		}

		c.Set(PlayerContextKey, player)
		c.Next()
	}
}

// GetPlayer извлекает игрока из контекста Gin.
// Паникует, если middleware ResolvePlayer не был подключен к маршруту.
func GetPlayer(c *gin.Context) *entity.Player {
	return c.MustGet(PlayerContextKey).(*entity.Player)
}
