package repository

import (
	"github.com/yourusername/wikirace-api/internal/domain/entity"
)

// ChallengeRepository определяет методы для работы с челленджами
type ChallengeRepository interface {
	Create(challenge *entity.Challenge) error
	CreateBatch(challenges []entity.Challenge) error
	GetByID(id uint) (*entity.Challenge, error)
	// GetByMode возвращает челленджи, доступные в заданном режиме (JSONB containment)
	GetByMode(mode string) ([]entity.Challenge, error)
	List(limit, offset int) ([]entity.Challenge, error)
	Update(challenge *entity.Challenge) error
	Delete(id uint) error
}
