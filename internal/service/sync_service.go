package service

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yourusername/wikirace-api/internal/domain/entity"
	"github.com/yourusername/wikirace-api/internal/service/roomwatch"
)

// GameStateSnapshot — снимок состояния комнаты для поллинга клиентов
type GameStateSnapshot struct {
	State           string               `json:"state"`
	Challenge       *ChallengeSummary    `json:"challenge"`
	Participants    []ParticipantState   `json:"participants"`
	IsPublic        bool                 `json:"isPublic"`
	MaxPlayers      int                  `json:"maxPlayers"`
	Code            string               `json:"code"`
	CountdownEndsAt *int64               `json:"countdownEndsAt,omitempty"`
	GameStartedAt   *int64               `json:"gameStartedAt,omitempty"`
	GameEndedAt     *int64               `json:"gameEndedAt,omitempty"`
}

// ChallengeSummary — краткое описание челленджа в снимке
type ChallengeSummary struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	StartPage  string `json:"startPage"`
	EndPage    string `json:"endPage"`
	Difficulty string `json:"difficulty"`
}

// ParticipantState — состояние одного участника в снимке
type ParticipantState struct {
	ID              uint   `json:"id"`
	UserName        string `json:"userName"`
	PlayerID        uint   `json:"playerId"`
	IsReady         bool   `json:"isReady"`
	HasFinished     bool   `json:"hasFinished"`
	FinishPosition  *int   `json:"finishPosition"`
	DurationSeconds int    `json:"durationSeconds"`
	PageCount       int    `json:"pageCount"`
	CurrentPage     string `json:"currentPage"`
	LastActivity    int64  `json:"lastActivity"`
	GameSessionID   *uint  `json:"gameSessionId"`
	JoinedAt        int64  `json:"joinedAt"`
}

// SyncService строит снимки комнат для поллинга.
// Только чтение, никаких побочных эффектов.
type SyncService struct {
	countdown time.Duration
}

// NewSyncService создает сервис синхронизации
func NewSyncService(watchConfig *roomwatch.Config) *SyncService {
	if watchConfig == nil {
		watchConfig = roomwatch.DefaultConfig()
	}
	return &SyncService{countdown: watchConfig.CountdownWindow()}
}

// GetGameState проецирует комнату в снимок для клиента.
// Длительность бегущих сессий пересчитывается на каждый вызов.
func (s *SyncService) GetGameState(game *entity.MultiplayerGame) *GameStateSnapshot {
	now := time.Now()

	snapshot := &GameStateSnapshot{
		State:        game.State,
		Challenge:    challengeSummary(game),
		Participants: make([]ParticipantState, 0, len(game.Participants)),
		IsPublic:     game.IsPublic,
		MaxPlayers:   game.MaxPlayers,
		Code:         game.Code,
	}

	for i := range game.Participants {
		snapshot.Participants = append(snapshot.Participants, s.participantState(&game.Participants[i], now))
	}

	if game.CountdownStartedAt != nil {
		endsAt := game.CountdownStartedAt.Add(s.countdown).Unix()
		snapshot.CountdownEndsAt = &endsAt
	}
	if game.GameStartedAt != nil {
		startedAt := game.GameStartedAt.Unix()
		snapshot.GameStartedAt = &startedAt
	}
	if game.GameEndedAt != nil {
		endedAt := game.GameEndedAt.Unix()
		snapshot.GameEndedAt = &endedAt
	}

	return snapshot
}

func challengeSummary(game *entity.MultiplayerGame) *ChallengeSummary {
	if game.Challenge == nil {
		return nil
	}
	return &ChallengeSummary{
		ID:         game.Challenge.ID,
		Name:       game.Challenge.Name,
		StartPage:  game.Challenge.StartPage,
		EndPage:    game.Challenge.EndPage,
		Difficulty: game.Challenge.Difficulty,
	}
}

func (s *SyncService) participantState(participant *entity.MultiplayerParticipant, now time.Time) ParticipantState {
	state := ParticipantState{
		ID:             participant.ID,
		PlayerID:       participant.PlayerID,
		IsReady:        participant.IsReady,
		HasFinished:    participant.HasFinished,
		FinishPosition: participant.FinishPosition,
		LastActivity:   now.Unix(),
		JoinedAt:       participant.JoinedAt.Unix(),
	}

	if participant.Player != nil {
		state.UserName = participant.Player.DisplayName()
	}

	session := participant.GameSession
	if session == nil {
		return state
	}

	state.GameSessionID = &session.ID
	state.PageCount = len(session.Path)
	state.CurrentPage = session.CurrentPage()
	if !session.UpdatedAt.IsZero() {
		state.LastActivity = session.UpdatedAt.Unix()
	}

	if session.Completed {
		if session.DurationSeconds != nil {
			state.DurationSeconds = *session.DurationSeconds
		}
	} else {
		state.DurationSeconds = int(now.Sub(session.StartTime).Seconds())
	}

	return state
}

// stateDigest — детерминированный срез комнаты для вычисления отпечатка
type stateDigest struct {
	State            string              `json:"state"`
	ParticipantCount int                 `json:"participantCount"`
	ChallengeID      *uint               `json:"challengeId"`
	CustomStartPage  *string             `json:"customStartPage"`
	CustomEndPage    *string             `json:"customEndPage"`
	Participants     []participantDigest `json:"participants"`
}

type participantDigest struct {
	PlayerID    uint `json:"playerId"`
	IsReady     bool `json:"isReady"`
	HasFinished bool `json:"hasFinished"`
}

// GetStateHash возвращает короткий отпечаток состояния комнаты.
// Используется клиентами для детекции изменений, не для корректности.
func (s *SyncService) GetStateHash(game *entity.MultiplayerGame) string {
	digest := stateDigest{
		State:            game.State,
		ParticipantCount: len(game.Participants),
		ChallengeID:      game.ChallengeID,
		CustomStartPage:  game.CustomStartPage,
		CustomEndPage:    game.CustomEndPage,
		Participants:     make([]participantDigest, 0, len(game.Participants)),
	}

	for i := range game.Participants {
		p := &game.Participants[i]
		digest.Participants = append(digest.Participants, participantDigest{
			PlayerID:    p.PlayerID,
			IsReady:     p.IsReady,
			HasFinished: p.HasFinished,
		})
	}

	encoded, err := json.Marshal(digest)
	if err != nil {
		// Структура сериализуема всегда, ветка недостижима
		return ""
	}
	return fmt.Sprintf("%x", md5.Sum(encoded))
}
