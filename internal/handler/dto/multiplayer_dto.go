package dto

import (
	"sort"
	"time"

	"github.com/yourusername/wikirace-api/internal/domain/entity"
)

// RoomResponse представляет комнату в формате для ответа клиенту
type RoomResponse struct {
	ID               uint      `json:"id"`
	Code             string    `json:"code"`
	State            string    `json:"state"`
	IsPublic         bool      `json:"is_public"`
	MaxPlayers       int       `json:"max_players"`
	ParticipantCount int       `json:"participant_count"`
	CreatorID        *uint     `json:"creator_id"`
	ChallengeName    string    `json:"challenge_name,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewRoomResponse создает DTO комнаты
func NewRoomResponse(game *entity.MultiplayerGame) *RoomResponse {
	response := &RoomResponse{
		ID:               game.ID,
		Code:             game.Code,
		State:            game.State,
		IsPublic:         game.IsPublic,
		MaxPlayers:       game.MaxPlayers,
		ParticipantCount: len(game.Participants),
		CreatorID:        game.CreatorID,
		CreatedAt:        game.CreatedAt,
	}
	if game.Challenge != nil {
		response.ChallengeName = game.Challenge.Name
	}
	return response
}

// NewRoomListResponse создает список DTO комнат для лобби
func NewRoomListResponse(games []entity.MultiplayerGame) []*RoomResponse {
	responses := make([]*RoomResponse, 0, len(games))
	for i := range games {
		responses = append(responses, NewRoomResponse(&games[i]))
	}
	return responses
}

// ParticipantResultResponse представляет итог одного участника
type ParticipantResultResponse struct {
	ParticipantID   uint   `json:"participant_id"`
	PlayerID        uint   `json:"player_id"`
	UserName        string `json:"user_name"`
	FinishPosition  *int   `json:"finish_position"`
	DurationSeconds int    `json:"duration_seconds"`
	PageCount       int    `json:"page_count"`
	GameSessionID   *uint  `json:"game_session_id"`
}

// GameResultsResponse представляет таблицу результатов комнаты
type GameResultsResponse struct {
	GameID      uint                         `json:"game_id"`
	Code        string                       `json:"code"`
	State       string                       `json:"state"`
	GameEndedAt *time.Time                   `json:"game_ended_at"`
	Finished    []*ParticipantResultResponse `json:"finished"`
	Pending     []*ParticipantResultResponse `json:"pending"`
}

// NewGameResultsResponse создает таблицу результатов.
// Финишировавшие сортируются по позиции, остальные идут отдельным списком.
func NewGameResultsResponse(game *entity.MultiplayerGame) *GameResultsResponse {
	response := &GameResultsResponse{
		GameID:      game.ID,
		Code:        game.Code,
		State:       game.State,
		GameEndedAt: game.GameEndedAt,
		Finished:    []*ParticipantResultResponse{},
		Pending:     []*ParticipantResultResponse{},
	}

	for i := range game.Participants {
		entry := newParticipantResult(&game.Participants[i])
		if game.Participants[i].HasFinished {
			response.Finished = append(response.Finished, entry)
		} else {
			response.Pending = append(response.Pending, entry)
		}
	}

	sort.Slice(response.Finished, func(i, j int) bool {
		a, b := response.Finished[i].FinishPosition, response.Finished[j].FinishPosition
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return *a < *b
	})

	return response
}

func newParticipantResult(participant *entity.MultiplayerParticipant) *ParticipantResultResponse {
	entry := &ParticipantResultResponse{
		ParticipantID:  participant.ID,
		PlayerID:       participant.PlayerID,
		FinishPosition: participant.FinishPosition,
	}
	if participant.Player != nil {
		entry.UserName = participant.Player.DisplayName()
	}
	if session := participant.GameSession; session != nil {
		entry.GameSessionID = &session.ID
		entry.PageCount = len(session.Path)
		if session.DurationSeconds != nil {
			entry.DurationSeconds = *session.DurationSeconds
		}
	}
	return entry
}
