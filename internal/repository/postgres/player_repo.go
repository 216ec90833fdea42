package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/wikirace-api/internal/domain/entity"
	apperrors "github.com/yourusername/wikirace-api/internal/pkg/errors"
)

// PlayerRepo реализует repository.PlayerRepository
type PlayerRepo struct {
	db *gorm.DB
}

// NewPlayerRepo создает новый репозиторий игроков
func NewPlayerRepo(db *gorm.DB) *PlayerRepo {
	return &PlayerRepo{db: db}
}

// Create создает нового игрока
func (r *PlayerRepo) Create(player *entity.Player) error {
	return r.db.Create(player).Error
}

// GetByID возвращает игрока по ID
func (r *PlayerRepo) GetByID(id uint) (*entity.Player, error) {
	var player entity.Player
	err := r.db.First(&player, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &player, nil
}

// GetByUUID возвращает игрока по UUID из cookie
func (r *PlayerRepo) GetByUUID(uuid string) (*entity.Player, error) {
	var player entity.Player
	err := r.db.Where("uuid = ?", uuid).First(&player).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &player, nil
}

// Update обновляет информацию об игроке
func (r *PlayerRepo) Update(player *entity.Player) error {
	return r.db.Save(player).Error
}

// TouchLastSeen точечно обновляет last_seen_at без полного Save
func (r *PlayerRepo) TouchLastSeen(playerID uint) error {
	return r.db.Model(&entity.Player{}).
		Where("id = ?", playerID).
		Update("last_seen_at", time.Now()).
		Error
}

// UpdateUsername точечно обновляет отображаемое имя игрока
func (r *PlayerRepo) UpdateUsername(playerID uint, username string) error {
	return r.db.Model(&entity.Player{}).
		Where("id = ?", playerID).
		Update("username", username).
		Error
}
