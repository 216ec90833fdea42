package service

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/yourusername/wikirace-api/internal/domain/entity"
	"github.com/yourusername/wikirace-api/internal/domain/repository"
	apperrors "github.com/yourusername/wikirace-api/internal/pkg/errors"
)

// Границы длины имени игрока
const (
	MinUsernameLength = 2
	MaxUsernameLength = 50
)

// PlayerService управляет анонимной идентичностью игроков.
// Игрок опознается по UUID из cookie, без учетных данных.
type PlayerService struct {
	playerRepo repository.PlayerRepository
}

// NewPlayerService создает сервис игроков
func NewPlayerService(playerRepo repository.PlayerRepository) *PlayerService {
	return &PlayerService{playerRepo: playerRepo}
}

// GetOrCreatePlayer возвращает игрока по UUID из cookie.
// Пустой или невалидный UUID, как и неизвестный игрок, означают
// новый браузер: создается новый игрок с новым UUID.
func (s *PlayerService) GetOrCreatePlayer(cookieUUID string) (*entity.Player, error) {
	if cookieUUID != "" {
		if _, err := uuid.Parse(cookieUUID); err == nil {
			player, err := s.playerRepo.GetByUUID(cookieUUID)
			if err == nil {
				if touchErr := s.playerRepo.TouchLastSeen(player.ID); touchErr != nil {
					log.Printf("[PlayerService] Не удалось обновить last_seen игрока #%d: %v", player.ID, touchErr)
				}
				return player, nil
			}
			if !errors.Is(err, apperrors.ErrNotFound) {
				return nil, err
			}
		}
	}

	player := entity.NewPlayer()
	if err := s.playerRepo.Create(player); err != nil {
		return nil, err
	}

	log.Printf("[PlayerService] Создан новый игрок #%d (%s)", player.ID, player.UUID)
	return player, nil
}

// GetPlayerByID возвращает игрока по идентификатору
func (s *PlayerService) GetPlayerByID(id uint) (*entity.Player, error) {
	return s.playerRepo.GetByID(id)
}

// SetUsername задает отображаемое имя игрока
func (s *PlayerService) SetUsername(player *entity.Player, username string) error {
	username = strings.TrimSpace(username)

	length := utf8.RuneCountInString(username)
	if length < MinUsernameLength || length > MaxUsernameLength {
		return fmt.Errorf("%w: username must be between %d and %d characters",
			apperrors.ErrValidation, MinUsernameLength, MaxUsernameLength)
	}

	if err := s.playerRepo.UpdateUsername(player.ID, username); err != nil {
		return err
	}
	player.Username = &username
	return nil
}
