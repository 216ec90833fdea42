package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/wikirace-api/internal/domain/entity"
	apperrors "github.com/yourusername/wikirace-api/internal/pkg/errors"
)

// GameSessionRepo реализует repository.GameSessionRepository
type GameSessionRepo struct {
	db *gorm.DB
}

// NewGameSessionRepo создает новый репозиторий игровых сессий
func NewGameSessionRepo(db *gorm.DB) *GameSessionRepo {
	return &GameSessionRepo{db: db}
}

// Create создает новую сессию
func (r *GameSessionRepo) Create(session *entity.GameSession) error {
	return r.db.Create(session).Error
}

// GetByID возвращает сессию вместе с челленджем
func (r *GameSessionRepo) GetByID(id uint) (*entity.GameSession, error) {
	var session entity.GameSession
	err := r.db.Preload("Challenge").Preload("Player").First(&session, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetByPlayerAndChallenge возвращает сессию игрока для челленджа (соло-режим).
// Мультиплеерные сессии исключаются: у них задан participant.
func (r *GameSessionRepo) GetByPlayerAndChallenge(playerID, challengeID uint) (*entity.GameSession, error) {
	var session entity.GameSession
	err := r.db.Preload("Challenge").
		Where("player_id = ? AND challenge_id = ? AND multiplayer_participant_id IS NULL", playerID, challengeID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetCompletedByPlayerAndChallenge возвращает завершенную сессию, если она есть
func (r *GameSessionRepo) GetCompletedByPlayerAndChallenge(playerID, challengeID uint) (*entity.GameSession, error) {
	var session entity.GameSession
	err := r.db.Where("player_id = ? AND challenge_id = ? AND completed = true", playerID, challengeID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// Update обновляет сессию (путь, журнал событий, флаг завершения)
func (r *GameSessionRepo) Update(session *entity.GameSession) error {
	return r.db.Save(session).Error
}

// Delete удаляет сессию
func (r *GameSessionRepo) Delete(id uint) error {
	return r.db.Delete(&entity.GameSession{}, id).Error
}
