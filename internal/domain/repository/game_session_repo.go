package repository

import (
	"github.com/yourusername/wikirace-api/internal/domain/entity"
)

// GameSessionRepository определяет методы для работы с игровыми сессиями
type GameSessionRepository interface {
	Create(session *entity.GameSession) error
	GetByID(id uint) (*entity.GameSession, error)
	// GetByPlayerAndChallenge возвращает сессию игрока для челленджа (соло-режим)
	GetByPlayerAndChallenge(playerID, challengeID uint) (*entity.GameSession, error)
	// GetCompletedByPlayerAndChallenge возвращает завершенную сессию, если она есть
	GetCompletedByPlayerAndChallenge(playerID, challengeID uint) (*entity.GameSession, error)
	Update(session *entity.GameSession) error
	Delete(id uint) error
}
