package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Player представляет анонимного игрока, привязанного к cookie браузера
type Player struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UUID       string    `gorm:"size:36;not null;uniqueIndex" json:"uuid"`
	Username   *string   `gorm:"size:100" json:"username,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `gorm:"not null" json:"last_seen_at"`
}

// TableName определяет имя таблицы для GORM
func (Player) TableName() string {
	return "players"
}

// NewPlayer создает нового игрока со свежим UUID
func NewPlayer() *Player {
	now := time.Now()
	return &Player{
		UUID:       uuid.NewString(),
		CreatedAt:  now,
		LastSeenAt: now,
	}
}

// UpdateLastSeen отмечает активность игрока
func (p *Player) UpdateLastSeen() {
	p.LastSeenAt = time.Now()
}

// DisplayName возвращает имя игрока или анонимное имя на основе UUID
func (p *Player) DisplayName() string {
	if p.Username != nil && strings.TrimSpace(*p.Username) != "" {
		return *p.Username
	}
	short := p.UUID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("Joueur %s", short)
}
