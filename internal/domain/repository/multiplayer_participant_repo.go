package repository

import (
	"github.com/yourusername/wikirace-api/internal/domain/entity"
)

// MultiplayerParticipantRepository определяет методы для работы с участниками комнат
type MultiplayerParticipantRepository interface {
	// Create создает участника. Дубликат пары (комната, игрок) ловится
	// уникальным индексом и возвращается как ErrCodeTaken-подобный конфликт.
	Create(participant *entity.MultiplayerParticipant) error
	GetByID(id uint) (*entity.MultiplayerParticipant, error)
	// GetByGameAndPlayer возвращает участника комнаты для игрока
	GetByGameAndPlayer(gameID, playerID uint) (*entity.MultiplayerParticipant, error)
	Update(participant *entity.MultiplayerParticipant) error
	// ResetReadyFlags сбрасывает готовность всех участников комнаты
	ResetReadyFlags(gameID uint) error
	CountByGame(gameID uint) (int64, error)
	Delete(id uint) error
}
