package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/wikirace-api/internal/domain/entity"
	"github.com/yourusername/wikirace-api/internal/domain/repository"
)

// ============================================================================
// Моки репозиториев мультиплеера
// ============================================================================

// helper для создания pointer
func uintPtr(v uint) *uint { return &v }

// MockMultiplayerGameRepository реализует repository.MultiplayerGameRepository
type MockMultiplayerGameRepository struct {
	mock.Mock
}

func (m *MockMultiplayerGameRepository) Create(game *entity.MultiplayerGame) error {
	args := m.Called(game)
	return args.Error(0)
}

func (m *MockMultiplayerGameRepository) GetByID(id uint) (*entity.MultiplayerGame, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.MultiplayerGame), args.Error(1)
}

func (m *MockMultiplayerGameRepository) GetByCode(code string) (*entity.MultiplayerGame, error) {
	args := m.Called(code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.MultiplayerGame), args.Error(1)
}

func (m *MockMultiplayerGameRepository) CodeExists(code string) (bool, error) {
	args := m.Called(code)
	return args.Bool(0), args.Error(1)
}

func (m *MockMultiplayerGameRepository) FindPublicGames() ([]entity.MultiplayerGame, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.MultiplayerGame), args.Error(1)
}

func (m *MockMultiplayerGameRepository) Update(game *entity.MultiplayerGame) error {
	args := m.Called(game)
	return args.Error(0)
}

func (m *MockMultiplayerGameRepository) UpdateState(gameID uint, fromState, toState string) error {
	args := m.Called(gameID, fromState, toState)
	return args.Error(0)
}

func (m *MockMultiplayerGameRepository) IncrementFinishCounter(gameID uint) (int, error) {
	args := m.Called(gameID)
	return args.Int(0), args.Error(1)
}

func (m *MockMultiplayerGameRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockMultiplayerParticipantRepository реализует repository.MultiplayerParticipantRepository
type MockMultiplayerParticipantRepository struct {
	mock.Mock
}

func (m *MockMultiplayerParticipantRepository) Create(participant *entity.MultiplayerParticipant) error {
	args := m.Called(participant)
	return args.Error(0)
}

func (m *MockMultiplayerParticipantRepository) GetByID(id uint) (*entity.MultiplayerParticipant, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.MultiplayerParticipant), args.Error(1)
}

func (m *MockMultiplayerParticipantRepository) GetByGameAndPlayer(gameID, playerID uint) (*entity.MultiplayerParticipant, error) {
	args := m.Called(gameID, playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.MultiplayerParticipant), args.Error(1)
}

func (m *MockMultiplayerParticipantRepository) Update(participant *entity.MultiplayerParticipant) error {
	args := m.Called(participant)
	return args.Error(0)
}

func (m *MockMultiplayerParticipantRepository) ResetReadyFlags(gameID uint) error {
	args := m.Called(gameID)
	return args.Error(0)
}

func (m *MockMultiplayerParticipantRepository) CountByGame(gameID uint) (int64, error) {
	args := m.Called(gameID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMultiplayerParticipantRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockGameSessionRepository реализует repository.GameSessionRepository
type MockGameSessionRepository struct {
	mock.Mock
}

func (m *MockGameSessionRepository) Create(session *entity.GameSession) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockGameSessionRepository) GetByID(id uint) (*entity.GameSession, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.GameSession), args.Error(1)
}

func (m *MockGameSessionRepository) GetByPlayerAndChallenge(playerID, challengeID uint) (*entity.GameSession, error) {
	args := m.Called(playerID, challengeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.GameSession), args.Error(1)
}

func (m *MockGameSessionRepository) GetCompletedByPlayerAndChallenge(playerID, challengeID uint) (*entity.GameSession, error) {
	args := m.Called(playerID, challengeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.GameSession), args.Error(1)
}

func (m *MockGameSessionRepository) Update(session *entity.GameSession) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockGameSessionRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

// ============================================================================
// Хелперы
// ============================================================================

func newTestMultiplayerService(gameRepo *MockMultiplayerGameRepository, participantRepo *MockMultiplayerParticipantRepository, sessionRepo *MockGameSessionRepository) *MultiplayerService {
	return NewMultiplayerService(gameRepo, participantRepo, sessionRepo, nil)
}

func testPlayer(id uint) *entity.Player {
	return &entity.Player{ID: id, UUID: "uuid-" + string(rune('0'+id))}
}

func testGameWithParticipants(state string, creatorID uint, playerIDs ...uint) *entity.MultiplayerGame {
	game := &entity.MultiplayerGame{
		ID:         1,
		Code:       "ABC123",
		MaxPlayers: 4,
		State:      state,
		CreatorID:  &creatorID,
	}
	for i, pid := range playerIDs {
		pidCopy := pid
		game.Participants = append(game.Participants, entity.MultiplayerParticipant{
			ID:                uint(i + 1),
			MultiplayerGameID: game.ID,
			PlayerID:          pidCopy,
			Player:            testPlayer(pidCopy),
			JoinedAt:          time.Now(),
		})
	}
	return game
}

// ============================================================================
// Создание комнаты и код присоединения
// ============================================================================

func TestMultiplayerService_CreateGame_Success(t *testing.T) {
	// Arrange
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	gameRepo.On("CodeExists", mock.AnythingOfType("string")).Return(false, nil)
	gameRepo.On("Create", mock.AnythingOfType("*entity.MultiplayerGame")).Run(func(args mock.Arguments) {
		args.Get(0).(*entity.MultiplayerGame).ID = 7
	}).Return(nil)
	participantRepo.On("Create", mock.AnythingOfType("*entity.MultiplayerParticipant")).Return(nil)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	creator := testPlayer(1)

	// Act
	game, err := svc.CreateGame(creator, true, 4)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, entity.GameStateLobby, game.State)
	assert.Len(t, game.Code, 6, "Код комнаты должен состоять из 6 символов")
	for _, ch := range game.Code {
		assert.Contains(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", string(ch))
	}
	// Создатель автоматически присоединен первым участником
	require.Len(t, game.Participants, 1)
	assert.Equal(t, creator.ID, game.Participants[0].PlayerID)
	assert.False(t, game.Participants[0].IsReady)
	gameRepo.AssertExpectations(t)
	participantRepo.AssertExpectations(t)
}

func TestMultiplayerService_CreateGame_CodeCollisionRetried(t *testing.T) {
	// Arrange
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	// Первый сгенерированный код занят, второй свободен
	gameRepo.On("CodeExists", mock.AnythingOfType("string")).Return(true, nil).Once()
	gameRepo.On("CodeExists", mock.AnythingOfType("string")).Return(false, nil).Once()
	gameRepo.On("Create", mock.AnythingOfType("*entity.MultiplayerGame")).Return(nil)
	participantRepo.On("Create", mock.AnythingOfType("*entity.MultiplayerParticipant")).Return(nil)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	// Act
	game, err := svc.CreateGame(testPlayer(1), false, 2)

	// Assert
	require.NoError(t, err)
	assert.Len(t, game.Code, 6)
	gameRepo.AssertNumberOfCalls(t, "CodeExists", 2)
}

func TestMultiplayerService_CreateGame_MaxPlayersOutOfRangeUsesDefault(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	gameRepo.On("CodeExists", mock.AnythingOfType("string")).Return(false, nil)
	gameRepo.On("Create", mock.AnythingOfType("*entity.MultiplayerGame")).Return(nil)
	participantRepo.On("Create", mock.AnythingOfType("*entity.MultiplayerParticipant")).Return(nil)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	game, err := svc.CreateGame(testPlayer(1), true, 99)

	require.NoError(t, err)
	assert.Equal(t, DefaultRoomPlayers, game.MaxPlayers)
}

// ============================================================================
// Присоединение и выход
// ============================================================================

func TestMultiplayerService_JoinGame_AlreadyJoined(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	game := testGameWithParticipants(entity.GameStateLobby, 1, 1)

	// Act: игрок #1 уже в комнате
	_, err := svc.JoinGame(game, testPlayer(1))

	// Assert
	assert.ErrorIs(t, err, ErrAlreadyJoined)
	participantRepo.AssertNotCalled(t, "Create")
}

func TestMultiplayerService_JoinGame_RoomFull(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	game := testGameWithParticipants(entity.GameStateLobby, 1, 1, 2, 3, 4)

	_, err := svc.JoinGame(game, testPlayer(5))

	assert.ErrorIs(t, err, ErrRoomFull)
	participantRepo.AssertNotCalled(t, "Create")
}

func TestMultiplayerService_JoinGame_AlreadyJoinedTakesPriorityOverFull(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	// Комната полная, но игрок #2 уже участник
	game := testGameWithParticipants(entity.GameStateLobby, 1, 1, 2, 3, 4)

	_, err := svc.JoinGame(game, testPlayer(2))

	assert.ErrorIs(t, err, ErrAlreadyJoined)
}

func TestMultiplayerService_JoinGame_NotJoinable(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	for _, state := range []string{entity.GameStateCountdown, entity.GameStateInProgress, entity.GameStateFinished, entity.GameStateAbandoned} {
		game := testGameWithParticipants(state, 1, 1)
		_, err := svc.JoinGame(game, testPlayer(9))
		assert.ErrorIs(t, err, ErrNotJoinable, "Состояние %s не допускает присоединения", state)
	}
}

func TestMultiplayerService_LeaveGame_BeforeStartDeletesParticipant(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	participantRepo.On("Delete", uint(2)).Return(nil)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	game := testGameWithParticipants(entity.GameStateLobby, 1, 1, 2)

	err := svc.LeaveGame(game, testPlayer(2))

	require.NoError(t, err)
	assert.Len(t, game.Participants, 1, "Участник должен быть удален из состава")
	participantRepo.AssertExpectations(t)
	gameRepo.AssertNotCalled(t, "Delete")
}

func TestMultiplayerService_LeaveGame_CreatorLastDeletesGame(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	participantRepo.On("Delete", uint(1)).Return(nil)
	gameRepo.On("Delete", uint(1)).Return(nil)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	game := testGameWithParticipants(entity.GameStateLobby, 1, 1)

	err := svc.LeaveGame(game, testPlayer(1))

	require.NoError(t, err)
	gameRepo.AssertExpectations(t)
}

func TestMultiplayerService_LeaveGame_AfterStartMarksFinished(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	participantRepo.On("Update", mock.AnythingOfType("*entity.MultiplayerParticipant")).Return(nil)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	game := testGameWithParticipants(entity.GameStateInProgress, 1, 1, 2)

	err := svc.LeaveGame(game, testPlayer(2))

	require.NoError(t, err)
	// abandonment-as-finish: участник остается в составе, но помечен финишировавшим
	assert.Len(t, game.Participants, 2)
	assert.True(t, game.Participants[1].HasFinished)
	assert.Nil(t, game.Participants[1].FinishPosition, "Позиция не присваивается при уходе")
	participantRepo.AssertNotCalled(t, "Delete")
}

func TestMultiplayerService_LeaveGame_NotInRoom(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	game := testGameWithParticipants(entity.GameStateLobby, 1, 1)

	err := svc.LeaveGame(game, testPlayer(9))

	assert.ErrorIs(t, err, ErrNotInRoom)
}

// ============================================================================
// Выбор челленджа
// ============================================================================

func TestMultiplayerService_SelectChallenge_OnlyCreator(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	game := testGameWithParticipants(entity.GameStateLobby, 1, 1, 2)
	challenge := &entity.Challenge{ID: 5, StartPage: "Paris", EndPage: "Tokyo"}

	err := svc.SelectChallenge(game, testPlayer(2), challenge)

	assert.ErrorIs(t, err, ErrNotCreator)
	gameRepo.AssertNotCalled(t, "Update")
}

func TestMultiplayerService_SelectChallenge_ResetsReadyAndClearsCustom(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	gameRepo.On("Update", mock.AnythingOfType("*entity.MultiplayerGame")).Return(nil)
	participantRepo.On("ResetReadyFlags", uint(1)).Return(nil)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	game := testGameWithParticipants(entity.GameStateLobby, 1, 1, 2)
	game.Participants[0].IsReady = true
	game.Participants[1].IsReady = true
	start, end := "Lune", "Fromage"
	game.CustomStartPage = &start
	game.CustomEndPage = &end

	challenge := &entity.Challenge{ID: 5, StartPage: "Paris", EndPage: "Tokyo"}

	err := svc.SelectChallenge(game, testPlayer(1), challenge)

	require.NoError(t, err)
	assert.Equal(t, entity.GameStateReady, game.State)
	assert.Equal(t, uintPtr(5), game.ChallengeID)
	// Ровно одно из представлений челленджа задано
	assert.Nil(t, game.CustomStartPage)
	assert.Nil(t, game.CustomEndPage)
	// Новый челлендж сбрасывает готовность
	assert.False(t, game.Participants[0].IsReady)
	assert.False(t, game.Participants[1].IsReady)
	participantRepo.AssertExpectations(t)
}

func TestMultiplayerService_SelectCustomChallenge_Validation(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	game := testGameWithParticipants(entity.GameStateLobby, 1, 1)
	creator := testPlayer(1)

	testCases := []struct {
		name  string
		start string
		end   string
	}{
		{"пустая стартовая страница", "  ", "Tokyo"},
		{"пустая целевая страница", "Paris", ""},
		{"совпадающие страницы", "Paris", "Paris"},
		{"совпадающие после обрезки пробелов", " Paris ", "Paris"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.SelectCustomChallenge(game, creator, tc.start, tc.end)
			assert.ErrorIs(t, err, ErrInvalidChallenge)
		})
	}
	gameRepo.AssertNotCalled(t, "Update")
}

func TestMultiplayerService_SelectCustomChallenge_ClearsPredefined(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	gameRepo.On("Update", mock.AnythingOfType("*entity.MultiplayerGame")).Return(nil)
	participantRepo.On("ResetReadyFlags", uint(1)).Return(nil)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	game := testGameWithParticipants(entity.GameStateLobby, 1, 1)
	game.ChallengeID = uintPtr(5)
	game.Challenge = &entity.Challenge{ID: 5}

	err := svc.SelectCustomChallenge(game, testPlayer(1), "Paris", "Tokyo")

	require.NoError(t, err)
	// Ровно одно из представлений челленджа задано
	assert.Nil(t, game.ChallengeID)
	assert.Nil(t, game.Challenge)
	require.NotNil(t, game.CustomStartPage)
	assert.Equal(t, "Paris", *game.CustomStartPage)
	assert.Equal(t, "Tokyo", *game.CustomEndPage)
	assert.Equal(t, entity.GameStateReady, game.State)
}

// ============================================================================
// Готовность и отсчет
// ============================================================================

func TestMultiplayerService_SetPlayerReady_AllReadyPromotesLobby(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	participantRepo.On("Update", mock.AnythingOfType("*entity.MultiplayerParticipant")).Return(nil)
	gameRepo.On("Update", mock.AnythingOfType("*entity.MultiplayerGame")).Return(nil)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	game := testGameWithParticipants(entity.GameStateLobby, 1, 1, 2)
	game.Participants[0].IsReady = true

	err := svc.SetPlayerReady(game, testPlayer(2), true)

	require.NoError(t, err)
	assert.Equal(t, entity.GameStateReady, game.State)
}

func TestMultiplayerService_SetPlayerReady_UnreadyKeepsReadyState(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	participantRepo.On("Update", mock.AnythingOfType("*entity.MultiplayerParticipant")).Return(nil)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	game := testGameWithParticipants(entity.GameStateReady, 1, 1, 2)
	game.Participants[0].IsReady = true
	game.Participants[1].IsReady = true

	// Снятие готовности не возвращает комнату в lobby
	err := svc.SetPlayerReady(game, testPlayer(2), false)

	require.NoError(t, err)
	assert.Equal(t, entity.GameStateReady, game.State)
	gameRepo.AssertNotCalled(t, "Update")
}

func TestMultiplayerService_StartCountdown_Guards(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	creator := testPlayer(1)

	// Не создатель
	game := testGameWithParticipants(entity.GameStateReady, 1, 1, 2)
	assert.ErrorIs(t, svc.StartCountdown(game, testPlayer(2)), ErrNotCreator)

	// Челлендж не выбран
	game = testGameWithParticipants(entity.GameStateReady, 1, 1, 2)
	game.Participants[0].IsReady = true
	game.Participants[1].IsReady = true
	assert.ErrorIs(t, svc.StartCountdown(game, creator), ErrNoChallengeSelected)

	// Не все готовы
	game = testGameWithParticipants(entity.GameStateReady, 1, 1, 2)
	game.ChallengeID = uintPtr(5)
	game.Participants[0].IsReady = true
	assert.ErrorIs(t, svc.StartCountdown(game, creator), ErrNotAllReady)

	// Снятие готовности после all-ready снова блокирует старт
	game = testGameWithParticipants(entity.GameStateReady, 1, 1, 2)
	game.ChallengeID = uintPtr(5)
	game.Participants[0].IsReady = true
	game.Participants[1].IsReady = true
	game.Participants[1].IsReady = false
	assert.ErrorIs(t, svc.StartCountdown(game, creator), ErrNotAllReady)

	gameRepo.AssertNotCalled(t, "Update")
}

func TestMultiplayerService_StartCountdown_Success(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	gameRepo.On("Update", mock.AnythingOfType("*entity.MultiplayerGame")).Return(nil)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	game := testGameWithParticipants(entity.GameStateReady, 1, 1, 2)
	game.ChallengeID = uintPtr(5)
	game.Participants[0].IsReady = true
	game.Participants[1].IsReady = true

	err := svc.StartCountdown(game, testPlayer(1))

	require.NoError(t, err)
	assert.Equal(t, entity.GameStateCountdown, game.State)
	require.NotNil(t, game.CountdownStartedAt)
	assert.WithinDuration(t, time.Now(), *game.CountdownStartedAt, time.Second)
}

// ============================================================================
// Старт забега
// ============================================================================

func TestMultiplayerService_StartGame_CreatesSeededSessions(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	gameRepo.On("UpdateState", uint(1), entity.GameStateCountdown, entity.GameStateInProgress).Return(nil)
	gameRepo.On("Update", mock.AnythingOfType("*entity.MultiplayerGame")).Return(nil)

	var createdSessions []*entity.GameSession
	sessionRepo.On("Create", mock.AnythingOfType("*entity.GameSession")).Run(func(args mock.Arguments) {
		createdSessions = append(createdSessions, args.Get(0).(*entity.GameSession))
	}).Return(nil)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	game := testGameWithParticipants(entity.GameStateCountdown, 1, 1, 2)
	game.ChallengeID = uintPtr(5)
	game.Challenge = &entity.Challenge{ID: 5, StartPage: "Paris", EndPage: "Tokyo"}

	err := svc.StartGame(game)

	require.NoError(t, err)
	assert.Equal(t, entity.GameStateInProgress, game.State)
	require.NotNil(t, game.GameStartedAt)

	// По одной сессии на участника, путь засеян стартовой страницей
	require.Len(t, createdSessions, 2)
	for _, session := range createdSessions {
		assert.Equal(t, entity.StringArray{"Paris"}, session.Path)
		require.Len(t, session.Events, 1)
		assert.Equal(t, entity.EventTypePageVisit, session.Events[0].Type)
		assert.Equal(t, "Paris", session.Events[0].Page)
		require.NotNil(t, session.MultiplayerParticipantID)
	}
}

func TestMultiplayerService_StartGame_IdempotentWhenAlreadyStarted(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	started := testGameWithParticipants(entity.GameStateInProgress, 1, 1, 2)
	started.ChallengeID = uintPtr(5)

	// Условный переход не сработал: комната уже in_progress
	gameRepo.On("UpdateState", uint(1), entity.GameStateCountdown, entity.GameStateInProgress).Return(repository.ErrGameNotInState)
	gameRepo.On("GetByID", uint(1)).Return(started, nil)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	game := testGameWithParticipants(entity.GameStateCountdown, 1, 1, 2)
	game.ChallengeID = uintPtr(5)

	// Act: второй триггер старта (гонка таймера и do-start)
	err := svc.StartGame(game)

	// Assert: no-op, без создания дублирующих сессий
	require.NoError(t, err)
	assert.Equal(t, entity.GameStateInProgress, game.State)
	sessionRepo.AssertNotCalled(t, "Create")
}

func TestMultiplayerService_StartGame_NoChallengeSelected(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	game := testGameWithParticipants(entity.GameStateCountdown, 1, 1)

	err := svc.StartGame(game)

	assert.ErrorIs(t, err, ErrNoChallengeSelected)
	gameRepo.AssertNotCalled(t, "UpdateState")
}

// ============================================================================
// Финиш
// ============================================================================

func TestMultiplayerService_PlayerFinished_ContiguousPositions(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	// Атомарный счетчик выдает позиции строго по порядку
	gameRepo.On("IncrementFinishCounter", uint(1)).Return(1, nil).Once()
	gameRepo.On("IncrementFinishCounter", uint(1)).Return(2, nil).Once()
	participantRepo.On("Update", mock.AnythingOfType("*entity.MultiplayerParticipant")).Return(nil)
	gameRepo.On("Update", mock.AnythingOfType("*entity.MultiplayerGame")).Return(nil)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	game := testGameWithParticipants(entity.GameStateInProgress, 1, 1, 2)

	// Act: финишируют по очереди
	first, err := svc.PlayerFinished(game, testPlayer(1))
	require.NoError(t, err)
	assert.Equal(t, entity.GameStateInProgress, game.State, "Комната открыта, пока не финишировали все")

	second, err := svc.PlayerFinished(game, testPlayer(2))
	require.NoError(t, err)

	// Assert: позиции 1..N без повторов, комната закрыта ровно на последнем
	require.NotNil(t, first.FinishPosition)
	require.NotNil(t, second.FinishPosition)
	assert.Equal(t, 1, *first.FinishPosition)
	assert.Equal(t, 2, *second.FinishPosition)
	assert.Equal(t, entity.GameStateFinished, game.State)
	require.NotNil(t, game.GameEndedAt)
}

func TestMultiplayerService_PlayerFinished_Guards(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	// Комната не в забеге
	game := testGameWithParticipants(entity.GameStateLobby, 1, 1)
	_, err := svc.PlayerFinished(game, testPlayer(1))
	assert.ErrorIs(t, err, ErrNotInProgress)

	// Игрок не участник
	game = testGameWithParticipants(entity.GameStateInProgress, 1, 1)
	_, err = svc.PlayerFinished(game, testPlayer(9))
	assert.ErrorIs(t, err, ErrNotInRoom)

	// Повторный финиш
	game = testGameWithParticipants(entity.GameStateInProgress, 1, 1, 2)
	game.Participants[0].HasFinished = true
	_, err = svc.PlayerFinished(game, testPlayer(1))
	assert.ErrorIs(t, err, ErrAlreadyFinished)

	gameRepo.AssertNotCalled(t, "IncrementFinishCounter")
}

// ============================================================================
// Abandon и kick
// ============================================================================

func TestMultiplayerService_AbandonGame_OnlyCreator(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	game := testGameWithParticipants(entity.GameStateInProgress, 1, 1, 2)

	err := svc.AbandonGame(game, testPlayer(2))

	assert.ErrorIs(t, err, ErrNotCreator)
	gameRepo.AssertNotCalled(t, "Update")
}

func TestMultiplayerService_AbandonGame_ForcesAbandonedFromAnyState(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	gameRepo.On("Update", mock.AnythingOfType("*entity.MultiplayerGame")).Return(nil)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	for _, state := range []string{entity.GameStateLobby, entity.GameStateCountdown, entity.GameStateInProgress} {
		game := testGameWithParticipants(state, 1, 1, 2)

		err := svc.AbandonGame(game, testPlayer(1))

		require.NoError(t, err)
		assert.Equal(t, entity.GameStateAbandoned, game.State)
		require.NotNil(t, game.GameEndedAt)
	}
}

func TestMultiplayerService_KickParticipant_OnlyCreator(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	game := testGameWithParticipants(entity.GameStateLobby, 1, 1, 2)

	err := svc.KickParticipant(game, testPlayer(2), 1)

	assert.ErrorIs(t, err, ErrNotCreator)
}

func TestMultiplayerService_KickParticipant_RemovesTarget(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	participantRepo.On("Delete", uint(2)).Return(nil)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	game := testGameWithParticipants(entity.GameStateLobby, 1, 1, 2)

	err := svc.KickParticipant(game, testPlayer(1), 2)

	require.NoError(t, err)
	assert.Len(t, game.Participants, 1)
	assert.Nil(t, game.FindParticipant(2))
}

// ============================================================================
// Полный сценарий забега
// ============================================================================

func TestMultiplayerService_FullRaceScenario(t *testing.T) {
	// Arrange: комната на двоих, забег Paris → Tokyo
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	gameRepo.On("CodeExists", mock.AnythingOfType("string")).Return(false, nil)
	gameRepo.On("Create", mock.AnythingOfType("*entity.MultiplayerGame")).Run(func(args mock.Arguments) {
		args.Get(0).(*entity.MultiplayerGame).ID = 1
	}).Return(nil)
	gameRepo.On("Update", mock.AnythingOfType("*entity.MultiplayerGame")).Return(nil)
	gameRepo.On("UpdateState", uint(1), entity.GameStateCountdown, entity.GameStateInProgress).Return(nil)
	gameRepo.On("IncrementFinishCounter", uint(1)).Return(1, nil).Once()
	gameRepo.On("IncrementFinishCounter", uint(1)).Return(2, nil).Once()

	nextParticipantID := uint(0)
	participantRepo.On("Create", mock.AnythingOfType("*entity.MultiplayerParticipant")).Run(func(args mock.Arguments) {
		nextParticipantID++
		args.Get(0).(*entity.MultiplayerParticipant).ID = nextParticipantID
	}).Return(nil)
	participantRepo.On("Update", mock.AnythingOfType("*entity.MultiplayerParticipant")).Return(nil)
	participantRepo.On("ResetReadyFlags", uint(1)).Return(nil)

	sessionRepo.On("Create", mock.AnythingOfType("*entity.GameSession")).Return(nil)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	creator := testPlayer(1)
	second := testPlayer(2)
	third := testPlayer(3)

	// Создание: создатель присоединен автоматически
	game, err := svc.CreateGame(creator, false, 2)
	require.NoError(t, err)
	require.Len(t, game.Participants, 1)

	// Второй игрок входит, для третьего места нет
	_, err = svc.JoinGame(game, second)
	require.NoError(t, err)
	_, err = svc.JoinGame(game, third)
	assert.ErrorIs(t, err, ErrRoomFull)

	// Выбор челленджа переводит комнату в ready и сбрасывает готовность
	challenge := &entity.Challenge{ID: 5, Name: "De Paris à Tokyo", StartPage: "Paris", EndPage: "Tokyo"}
	require.NoError(t, svc.SelectChallenge(game, creator, challenge))
	assert.Equal(t, entity.GameStateReady, game.State)
	assert.False(t, game.Participants[0].IsReady)
	assert.False(t, game.Participants[1].IsReady)

	// Оба подтверждают готовность
	require.NoError(t, svc.SetPlayerReady(game, creator, true))
	require.NoError(t, svc.SetPlayerReady(game, second, true))
	assert.True(t, game.AllPlayersReady())

	// Отсчет и старт
	require.NoError(t, svc.StartCountdown(game, creator))
	assert.Equal(t, entity.GameStateCountdown, game.State)
	require.NotNil(t, game.CountdownStartedAt)

	require.NoError(t, svc.StartGame(game))
	assert.Equal(t, entity.GameStateInProgress, game.State)
	for i := range game.Participants {
		session := game.Participants[i].GameSession
		require.NotNil(t, session)
		assert.Equal(t, entity.StringArray{"Paris"}, session.Path)
	}

	// Финиш: первый не закрывает комнату, второй закрывает
	first, err := svc.PlayerFinished(game, creator)
	require.NoError(t, err)
	assert.Equal(t, 1, *first.FinishPosition)
	assert.Equal(t, entity.GameStateInProgress, game.State)

	last, err := svc.PlayerFinished(game, second)
	require.NoError(t, err)
	assert.Equal(t, 2, *last.FinishPosition)
	assert.Equal(t, entity.GameStateFinished, game.State)
	require.NotNil(t, game.GameEndedAt)
}

func TestMultiplayerService_KickParticipant_CannotKickCreator(t *testing.T) {
	gameRepo := new(MockMultiplayerGameRepository)
	participantRepo := new(MockMultiplayerParticipantRepository)
	sessionRepo := new(MockGameSessionRepository)

	svc := newTestMultiplayerService(gameRepo, participantRepo, sessionRepo)
	defer svc.Shutdown()

	game := testGameWithParticipants(entity.GameStateLobby, 1, 1, 2)

	err := svc.KickParticipant(game, testPlayer(1), 1)

	assert.Error(t, err)
	participantRepo.AssertNotCalled(t, "Delete")
}
