package entity

import (
	"time"
)

// Константы состояний мультиплеерной комнаты
const (
	GameStateLobby      = "lobby"
	GameStateReady      = "ready"
	GameStateCountdown  = "countdown"
	GameStateInProgress = "in_progress"
	GameStateFinished   = "finished"
	GameStateAbandoned  = "abandoned"
)

// MultiplayerGame представляет мультиплеерную комнату
type MultiplayerGame struct {
	ID                 uint                     `gorm:"primaryKey" json:"id"`
	Code               string                   `gorm:"size:10;not null;uniqueIndex" json:"code"`
	IsPublic           bool                     `gorm:"not null;default:true" json:"is_public"`
	MaxPlayers         int                      `gorm:"not null;default:4" json:"max_players"`
	State              string                   `gorm:"size:20;not null;default:'lobby';index" json:"state"`
	ChallengeID        *uint                    `gorm:"index" json:"challenge_id,omitempty"`
	Challenge          *Challenge               `gorm:"foreignKey:ChallengeID" json:"-"`
	CustomStartPage    *string                  `gorm:"size:255" json:"custom_start_page,omitempty"`
	CustomEndPage      *string                  `gorm:"size:255" json:"custom_end_page,omitempty"`
	CreatorID          *uint                    `json:"creator_id,omitempty"`
	Creator            *Player                  `gorm:"foreignKey:CreatorID" json:"-"`
	FinishCounter      int                      `gorm:"not null;default:0" json:"-"`
	CountdownStartedAt *time.Time               `json:"countdown_started_at,omitempty"`
	GameStartedAt      *time.Time               `json:"game_started_at,omitempty"`
	GameEndedAt        *time.Time               `json:"game_ended_at,omitempty"`
	Participants       []MultiplayerParticipant `gorm:"foreignKey:MultiplayerGameID" json:"participants,omitempty"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (MultiplayerGame) TableName() string {
	return "multiplayer_games"
}

// IsActive проверяет, что комната не в терминальном состоянии
func (g *MultiplayerGame) IsActive() bool {
	return g.State != GameStateFinished && g.State != GameStateAbandoned
}

// IsJoinable проверяет, можно ли присоединиться к комнате
func (g *MultiplayerGame) IsJoinable() bool {
	return g.State == GameStateLobby || g.State == GameStateReady
}

// IsInProgress проверяет, идет ли сейчас забег
func (g *MultiplayerGame) IsInProgress() bool {
	return g.State == GameStateInProgress
}

// HasCustomChallenge проверяет, задана ли кастомная пара страниц
func (g *MultiplayerGame) HasCustomChallenge() bool {
	return g.CustomStartPage != nil && g.CustomEndPage != nil
}

// HasChallenge проверяет, выбран ли любой из вариантов челленджа
func (g *MultiplayerGame) HasChallenge() bool {
	return g.ChallengeID != nil || g.HasCustomChallenge()
}

// StartPage возвращает стартовую страницу комнаты
func (g *MultiplayerGame) StartPage() string {
	if g.CustomStartPage != nil {
		return *g.CustomStartPage
	}
	if g.Challenge != nil {
		return g.Challenge.StartPage
	}
	return ""
}

// EndPage возвращает целевую страницу комнаты
func (g *MultiplayerGame) EndPage() string {
	if g.CustomEndPage != nil {
		return *g.CustomEndPage
	}
	if g.Challenge != nil {
		return g.Challenge.EndPage
	}
	return ""
}

// IsCreator проверяет, является ли игрок создателем комнаты
func (g *MultiplayerGame) IsCreator(player *Player) bool {
	return player != nil && g.CreatorID != nil && *g.CreatorID == player.ID
}

// IsFull проверяет, достигнут ли лимит участников
func (g *MultiplayerGame) IsFull() bool {
	return len(g.Participants) >= g.MaxPlayers
}

// AllPlayersReady проверяет готовность всех участников.
// Пустой состав считается не готовым.
func (g *MultiplayerGame) AllPlayersReady() bool {
	if len(g.Participants) == 0 {
		return false
	}
	for i := range g.Participants {
		if !g.Participants[i].IsReady {
			return false
		}
	}
	return true
}

// AllPlayersFinished проверяет, финишировали ли все участники
func (g *MultiplayerGame) AllPlayersFinished() bool {
	if len(g.Participants) == 0 {
		return false
	}
	for i := range g.Participants {
		if !g.Participants[i].HasFinished {
			return false
		}
	}
	return true
}

// FindParticipant возвращает участника по игроку или nil
func (g *MultiplayerGame) FindParticipant(playerID uint) *MultiplayerParticipant {
	for i := range g.Participants {
		if g.Participants[i].PlayerID == playerID {
			return &g.Participants[i]
		}
	}
	return nil
}
