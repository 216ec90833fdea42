package repository

import (
	"errors"

	"github.com/yourusername/wikirace-api/internal/domain/entity"
)

var (
	// ErrCodeTaken означает, что код комнаты уже занят (unique violation при вставке).
	ErrCodeTaken = errors.New("room code is already taken")
	// ErrGameNotInState означает, что условный переход состояния не сработал:
	// комната уже не находится в ожидаемом состоянии.
	ErrGameNotInState = errors.New("game is not in the expected state")
)

// MultiplayerGameRepository определяет методы для работы с мультиплеерными комнатами
type MultiplayerGameRepository interface {
	Create(game *entity.MultiplayerGame) error
	// GetByID возвращает комнату вместе с участниками, их игроками и сессиями
	GetByID(id uint) (*entity.MultiplayerGame, error)
	GetByCode(code string) (*entity.MultiplayerGame, error)
	// CodeExists проверяет занятость кода комнаты
	CodeExists(code string) (bool, error)
	// FindPublicGames возвращает открытые комнаты в состояниях lobby/ready
	FindPublicGames() ([]entity.MultiplayerGame, error)
	Update(game *entity.MultiplayerGame) error
	// UpdateState условно переводит комнату из fromState в toState.
	// Возвращает ErrGameNotInState, если комната уже не в fromState.
	UpdateState(gameID uint, fromState, toState string) error
	// IncrementFinishCounter атомарно выделяет следующую позицию финиша
	// одним UPDATE ... RETURNING, без read-then-write гонки.
	IncrementFinishCounter(gameID uint) (int, error)
	Delete(id uint) error
}
