package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Типы событий навигации в рамках сессии
const (
	EventTypePageVisit      = "page_visit"
	EventTypeBackNavigation = "back_navigation"
)

// NavigationEvent представляет одно событие в журнале сессии
type NavigationEvent struct {
	Type      string    `json:"type"`
	Page      string    `json:"page,omitempty"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventList - пользовательский тип для хранения журнала событий в JSONB
type EventList []NavigationEvent

// Scan реализует интерфейс sql.Scanner для EventList
func (e *EventList) Scan(value interface{}) error {
	if value == nil {
		*e = EventList{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*e = EventList{}
		return nil
	}

	return json.Unmarshal(bytes, e)
}

// Value реализует интерфейс driver.Valuer для EventList
func (e EventList) Value() (driver.Value, error) {
	if len(e) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(e)
}

// GameSession представляет одну попытку игрока пройти челлендж
type GameSession struct {
	ID                       uint        `gorm:"primaryKey" json:"id"`
	PlayerID                 *uint       `gorm:"index" json:"player_id,omitempty"`
	Player                   *Player     `gorm:"foreignKey:PlayerID" json:"-"`
	ChallengeID              *uint       `gorm:"index" json:"challenge_id,omitempty"`
	Challenge                *Challenge  `gorm:"foreignKey:ChallengeID" json:"-"`
	MultiplayerParticipantID *uint       `gorm:"uniqueIndex" json:"multiplayer_participant_id,omitempty"`
	CustomStartPage          *string     `gorm:"size:255" json:"custom_start_page,omitempty"`
	CustomEndPage            *string     `gorm:"size:255" json:"custom_end_page,omitempty"`
	StartTime                time.Time   `gorm:"not null" json:"start_time"`
	EndTime                  *time.Time  `json:"end_time,omitempty"`
	DurationSeconds          *int        `json:"duration_seconds,omitempty"`
	Path                     StringArray `gorm:"type:jsonb;not null" json:"path"`
	Events                   EventList   `gorm:"type:jsonb;not null" json:"events"`
	Completed                bool        `gorm:"not null;default:false" json:"completed"`
	CreatedAt                time.Time   `json:"created_at"`
	UpdatedAt                time.Time   `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (GameSession) TableName() string {
	return "game_sessions"
}

// StartPage возвращает стартовую страницу: кастомная имеет приоритет над челленджем
func (s *GameSession) StartPage() string {
	if s.CustomStartPage != nil {
		return *s.CustomStartPage
	}
	if s.Challenge != nil {
		return s.Challenge.StartPage
	}
	return ""
}

// EndPage возвращает целевую страницу: кастомная имеет приоритет над челленджем
func (s *GameSession) EndPage() string {
	if s.CustomEndPage != nil {
		return *s.CustomEndPage
	}
	if s.Challenge != nil {
		return s.Challenge.EndPage
	}
	return ""
}

// CurrentPage возвращает последнюю страницу пути
func (s *GameSession) CurrentPage() string {
	if len(s.Path) == 0 {
		return ""
	}
	return s.Path[len(s.Path)-1]
}

// AddPageVisit добавляет событие посещения страницы в журнал
func (s *GameSession) AddPageVisit(pageTitle string) {
	s.Events = append(s.Events, NavigationEvent{
		Type:      EventTypePageVisit,
		Page:      pageTitle,
		Timestamp: time.Now(),
	})
}

// AddBackNavigation добавляет событие возврата назад в журнал
func (s *GameSession) AddBackNavigation(fromPage, toPage string) {
	s.Events = append(s.Events, NavigationEvent{
		Type:      EventTypeBackNavigation,
		From:      fromPage,
		To:        toPage,
		Timestamp: time.Now(),
	})
}

// Complete отмечает сессию завершенной и фиксирует длительность
func (s *GameSession) Complete() {
	now := time.Now()
	s.EndTime = &now
	s.Completed = true

	duration := int(now.Sub(s.StartTime).Seconds())
	s.DurationSeconds = &duration
}
