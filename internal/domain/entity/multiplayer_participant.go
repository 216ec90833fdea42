package entity

import (
	"time"
)

// MultiplayerParticipant представляет членство игрока в комнате.
// Пара (комната, игрок) уникальна на уровне БД.
type MultiplayerParticipant struct {
	ID                uint         `gorm:"primaryKey" json:"id"`
	MultiplayerGameID uint         `gorm:"not null;uniqueIndex:uniq_game_player" json:"multiplayer_game_id"`
	PlayerID          uint         `gorm:"not null;uniqueIndex:uniq_game_player" json:"player_id"`
	Player            *Player      `gorm:"foreignKey:PlayerID" json:"-"`
	GameSession       *GameSession `gorm:"foreignKey:MultiplayerParticipantID" json:"-"`
	IsReady           bool         `gorm:"not null;default:false" json:"is_ready"`
	HasFinished       bool         `gorm:"not null;default:false" json:"has_finished"`
	FinishPosition    *int         `json:"finish_position,omitempty"`
	FinishedAt        *time.Time   `json:"finished_at,omitempty"`
	JoinedAt          time.Time    `gorm:"not null" json:"joined_at"`
}

// TableName определяет имя таблицы для GORM
func (MultiplayerParticipant) TableName() string {
	return "multiplayer_participants"
}

// MarkFinished фиксирует финиш участника с присвоенной позицией
func (p *MultiplayerParticipant) MarkFinished(position int) {
	now := time.Now()
	p.HasFinished = true
	p.FinishedAt = &now
	p.FinishPosition = &position
}
