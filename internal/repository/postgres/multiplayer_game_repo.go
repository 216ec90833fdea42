package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/yourusername/wikirace-api/internal/domain/entity"
	"github.com/yourusername/wikirace-api/internal/domain/repository"
	apperrors "github.com/yourusername/wikirace-api/internal/pkg/errors"
)

// MultiplayerGameRepo реализует repository.MultiplayerGameRepository
type MultiplayerGameRepo struct {
	db *gorm.DB
}

// NewMultiplayerGameRepo создает новый репозиторий мультиплеерных комнат
func NewMultiplayerGameRepo(db *gorm.DB) *MultiplayerGameRepo {
	return &MultiplayerGameRepo{db: db}
}

// Create создает новую комнату.
// Коллизия кода ловится уникальным индексом и возвращается как ErrCodeTaken.
func (r *MultiplayerGameRepo) Create(game *entity.MultiplayerGame) error {
	if err := r.db.Create(game).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", repository.ErrCodeTaken, game.Code)
		}
		return err
	}
	return nil
}

// GetByID возвращает комнату вместе с участниками, их игроками и сессиями.
// Участники упорядочены по времени присоединения.
func (r *MultiplayerGameRepo) GetByID(id uint) (*entity.MultiplayerGame, error) {
	var game entity.MultiplayerGame
	err := r.db.
		Preload("Challenge").
		Preload("Creator").
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("multiplayer_participants.joined_at ASC")
		}).
		Preload("Participants.Player").
		Preload("Participants.GameSession").
		First(&game, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &game, nil
}

// GetByCode возвращает комнату по коду присоединения
func (r *MultiplayerGameRepo) GetByCode(code string) (*entity.MultiplayerGame, error) {
	var game entity.MultiplayerGame
	err := r.db.
		Preload("Challenge").
		Preload("Creator").
		Preload("Participants").
		Preload("Participants.Player").
		Where("code = ?", code).
		First(&game).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &game, nil
}

// CodeExists проверяет занятость кода комнаты
func (r *MultiplayerGameRepo) CodeExists(code string) (bool, error) {
	var count int64
	err := r.db.Model(&entity.MultiplayerGame{}).
		Where("code = ?", code).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindPublicGames возвращает открытые комнаты в состояниях lobby/ready
func (r *MultiplayerGameRepo) FindPublicGames() ([]entity.MultiplayerGame, error) {
	var games []entity.MultiplayerGame
	err := r.db.
		Preload("Challenge").
		Preload("Participants").
		Where("is_public = true AND state IN ?", []string{entity.GameStateLobby, entity.GameStateReady}).
		Order("created_at DESC").
		Find(&games).Error
	if err != nil {
		return nil, err
	}
	return games, nil
}

// Update обновляет комнату
func (r *MultiplayerGameRepo) Update(game *entity.MultiplayerGame) error {
	return r.db.Save(game).Error
}

// UpdateState условно переводит комнату из fromState в toState.
// RowsAffected == 0 означает, что комната уже не в fromState —
// переход выполнил кто-то другой (или комната не существует).
func (r *MultiplayerGameRepo) UpdateState(gameID uint, fromState, toState string) error {
	result := r.db.Model(&entity.MultiplayerGame{}).
		Where("id = ? AND state = ?", gameID, fromState).
		Update("state", toState)

	if result.Error != nil {
		return fmt.Errorf("update state of game #%d failed: %w", gameID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: game #%d, expected %s", repository.ErrGameNotInState, gameID, fromState)
	}
	return nil
}

// IncrementFinishCounter атомарно выделяет следующую позицию финиша.
// Один UPDATE ... RETURNING, поэтому два одновременных финиша не могут
// получить одинаковую позицию.
func (r *MultiplayerGameRepo) IncrementFinishCounter(gameID uint) (int, error) {
	var position int
	err := r.db.Raw(
		"UPDATE multiplayer_games SET finish_counter = finish_counter + 1, updated_at = NOW() WHERE id = ? RETURNING finish_counter",
		gameID,
	).Scan(&position).Error
	if err != nil {
		return 0, err
	}
	if position == 0 {
		return 0, apperrors.ErrNotFound
	}
	return position, nil
}

// Delete удаляет комнату (участники удаляются каскадом на уровне БД)
func (r *MultiplayerGameRepo) Delete(id uint) error {
	return r.db.Delete(&entity.MultiplayerGame{}, id).Error
}

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}
