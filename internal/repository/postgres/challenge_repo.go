package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/wikirace-api/internal/domain/entity"
	apperrors "github.com/yourusername/wikirace-api/internal/pkg/errors"
)

// ChallengeRepo реализует repository.ChallengeRepository
type ChallengeRepo struct {
	db *gorm.DB
}

// NewChallengeRepo создает новый репозиторий челленджей
func NewChallengeRepo(db *gorm.DB) *ChallengeRepo {
	return &ChallengeRepo{db: db}
}

// Create создает новый челлендж
func (r *ChallengeRepo) Create(challenge *entity.Challenge) error {
	return r.db.Create(challenge).Error
}

// CreateBatch создает несколько челленджей одной вставкой (bulk import)
func (r *ChallengeRepo) CreateBatch(challenges []entity.Challenge) error {
	if len(challenges) == 0 {
		return nil
	}
	return r.db.Create(&challenges).Error
}

// GetByID возвращает челлендж по ID
func (r *ChallengeRepo) GetByID(id uint) (*entity.Challenge, error) {
	var challenge entity.Challenge
	err := r.db.First(&challenge, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &challenge, nil
}

// GetByMode возвращает челленджи, доступные в заданном режиме.
// Поиск по JSONB containment: modes @> '["solo"]'.
func (r *ChallengeRepo) GetByMode(mode string) ([]entity.Challenge, error) {
	var challenges []entity.Challenge
	err := r.db.Where("modes @> ?", `["`+mode+`"]`).
		Order("id").
		Find(&challenges).Error
	if err != nil {
		return nil, err
	}
	return challenges, nil
}

// List возвращает список челленджей с пагинацией
func (r *ChallengeRepo) List(limit, offset int) ([]entity.Challenge, error) {
	var challenges []entity.Challenge
	err := r.db.Limit(limit).Offset(offset).Order("id DESC").Find(&challenges).Error
	return challenges, err
}

// Update обновляет челлендж
func (r *ChallengeRepo) Update(challenge *entity.Challenge) error {
	return r.db.Save(challenge).Error
}

// Delete удаляет челлендж
func (r *ChallengeRepo) Delete(id uint) error {
	return r.db.Delete(&entity.Challenge{}, id).Error
}
