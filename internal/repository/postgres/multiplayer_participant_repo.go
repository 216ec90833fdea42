package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/wikirace-api/internal/domain/entity"
	apperrors "github.com/yourusername/wikirace-api/internal/pkg/errors"
)

// MultiplayerParticipantRepo реализует repository.MultiplayerParticipantRepository
type MultiplayerParticipantRepo struct {
	db *gorm.DB
}

// NewMultiplayerParticipantRepo создает новый репозиторий участников
func NewMultiplayerParticipantRepo(db *gorm.DB) *MultiplayerParticipantRepo {
	return &MultiplayerParticipantRepo{db: db}
}

// Create создает участника.
// Дубликат пары (комната, игрок) ловится уникальным индексом uniq_game_player.
func (r *MultiplayerParticipantRepo) Create(participant *entity.MultiplayerParticipant) error {
	if err := r.db.Create(participant).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: player #%d already in game #%d",
				apperrors.ErrConflict, participant.PlayerID, participant.MultiplayerGameID)
		}
		return err
	}
	return nil
}

// GetByID возвращает участника вместе с игроком и сессией
func (r *MultiplayerParticipantRepo) GetByID(id uint) (*entity.MultiplayerParticipant, error) {
	var participant entity.MultiplayerParticipant
	err := r.db.Preload("Player").Preload("GameSession").First(&participant, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &participant, nil
}

// GetByGameAndPlayer возвращает участника комнаты для игрока
func (r *MultiplayerParticipantRepo) GetByGameAndPlayer(gameID, playerID uint) (*entity.MultiplayerParticipant, error) {
	var participant entity.MultiplayerParticipant
	err := r.db.Preload("Player").Preload("GameSession").
		Where("multiplayer_game_id = ? AND player_id = ?", gameID, playerID).
		First(&participant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &participant, nil
}

// Update обновляет участника
func (r *MultiplayerParticipantRepo) Update(participant *entity.MultiplayerParticipant) error {
	return r.db.Save(participant).Error
}

// ResetReadyFlags сбрасывает готовность всех участников комнаты
func (r *MultiplayerParticipantRepo) ResetReadyFlags(gameID uint) error {
	return r.db.Model(&entity.MultiplayerParticipant{}).
		Where("multiplayer_game_id = ?", gameID).
		Update("is_ready", false).
		Error
}

// CountByGame возвращает число участников комнаты
func (r *MultiplayerParticipantRepo) CountByGame(gameID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entity.MultiplayerParticipant{}).
		Where("multiplayer_game_id = ?", gameID).
		Count(&count).Error
	return count, err
}

// Delete удаляет участника
func (r *MultiplayerParticipantRepo) Delete(id uint) error {
	return r.db.Delete(&entity.MultiplayerParticipant{}, id).Error
}
