package repository

import (
	"github.com/yourusername/wikirace-api/internal/domain/entity"
)

// PlayerRepository определяет методы для работы с игроками
type PlayerRepository interface {
	Create(player *entity.Player) error
	GetByID(id uint) (*entity.Player, error)
	GetByUUID(uuid string) (*entity.Player, error)
	Update(player *entity.Player) error
	// TouchLastSeen точечно обновляет last_seen_at без полного Save
	TouchLastSeen(playerID uint) error
	UpdateUsername(playerID uint, username string) error
}
