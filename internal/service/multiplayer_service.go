package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/yourusername/wikirace-api/internal/domain/entity"
	"github.com/yourusername/wikirace-api/internal/domain/repository"
	apperrors "github.com/yourusername/wikirace-api/internal/pkg/errors"
	"github.com/yourusername/wikirace-api/internal/service/roomwatch"
)

// Параметры кода присоединения к комнате
const (
	codeCharacters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength     = 6

	// Коллизия кода астрономически маловероятна, но проверяется, а не предполагается
	maxCodeAttempts = 10
)

// Границы числа игроков в комнате
const (
	MinRoomPlayers     = 2
	MaxRoomPlayers     = 10
	DefaultRoomPlayers = 4
)

// MultiplayerService владеет всеми переходами состояний комнаты и ее участников.
// Каждая проверка предусловий выполняется до первой записи.
type MultiplayerService struct {
	gameRepo        repository.MultiplayerGameRepository
	participantRepo repository.MultiplayerParticipantRepository
	sessionRepo     repository.GameSessionRepository

	// Серверный таймер countdown → in_progress
	watchConfig *roomwatch.Config
	scheduler   *roomwatch.Scheduler

	// Контекст для управления жизненным циклом слушателя таймера
	ctx    context.Context
	cancel context.CancelFunc
}

// NewMultiplayerService создает сервис комнат и запускает слушателя таймера
func NewMultiplayerService(
	gameRepo repository.MultiplayerGameRepository,
	participantRepo repository.MultiplayerParticipantRepository,
	sessionRepo repository.GameSessionRepository,
	watchConfig *roomwatch.Config,
) *MultiplayerService {
	ctx, cancel := context.WithCancel(context.Background())

	if watchConfig == nil {
		watchConfig = roomwatch.DefaultConfig()
	}

	s := &MultiplayerService{
		gameRepo:        gameRepo,
		participantRepo: participantRepo,
		sessionRepo:     sessionRepo,
		watchConfig:     watchConfig,
		scheduler:       roomwatch.NewScheduler(watchConfig),
		ctx:             ctx,
		cancel:          cancel,
	}

	go s.handleCountdownEvents()

	log.Println("[MultiplayerService] Сервис мультиплеера инициализирован")
	return s
}

// CountdownSeconds возвращает окно отсчета, видимое клиентам
func (s *MultiplayerService) CountdownSeconds() int {
	return s.watchConfig.CountdownSeconds
}

// handleCountdownEvents обрабатывает сигналы серверного таймера.
// Старт идемпотентен: если клиентский триггер do-start успел раньше,
// повторный StartGame становится no-op.
func (s *MultiplayerService) handleCountdownEvents() {
	startCh := s.scheduler.StartChannel()

	for {
		select {
		case <-s.ctx.Done():
			log.Println("[MultiplayerService] Завершение работы слушателя таймера")
			return

		case gameID := <-startCh:
			game, err := s.gameRepo.GetByID(gameID)
			if err != nil {
				log.Printf("[MultiplayerService] Комната #%d не найдена при автостарте: %v", gameID, err)
				continue
			}
			if err := s.StartGame(game); err != nil {
				log.Printf("[MultiplayerService] Автостарт комнаты #%d не выполнен: %v", gameID, err)
			}
		}
	}
}

// CreateGame создает комнату в состоянии lobby и присоединяет создателя
func (s *MultiplayerService) CreateGame(creator *entity.Player, isPublic bool, maxPlayers int) (*entity.MultiplayerGame, error) {
	if maxPlayers < MinRoomPlayers || maxPlayers > MaxRoomPlayers {
		maxPlayers = DefaultRoomPlayers
	}

	game := &entity.MultiplayerGame{
		IsPublic:   isPublic,
		MaxPlayers: maxPlayers,
		State:      entity.GameStateLobby,
		CreatorID:  &creator.ID,
		Creator:    creator,
	}

	if err := s.createWithUniqueCode(game); err != nil {
		return nil, err
	}

	// Создатель автоматически становится первым участником
	if _, err := s.JoinGame(game, creator); err != nil {
		return nil, fmt.Errorf("failed to auto-join creator: %w", err)
	}

	log.Printf("[MultiplayerService] Комната #%d создана игроком #%d (код %s)", game.ID, creator.ID, game.Code)
	return game, nil
}

// createWithUniqueCode вставляет комнату, перегенерируя код при коллизии.
// Проверка репозитория отсекает занятые коды заранее, уникальный индекс
// закрывает гонку между проверкой и вставкой.
func (s *MultiplayerService) createWithUniqueCode(game *entity.MultiplayerGame) error {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateRoomCode()
		if err != nil {
			return fmt.Errorf("failed to generate room code: %w", err)
		}

		exists, err := s.gameRepo.CodeExists(code)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		game.Code = code
		err = s.gameRepo.Create(game)
		if err == nil {
			return nil
		}
		if errors.Is(err, repository.ErrCodeTaken) {
			log.Printf("[MultiplayerService] Коллизия кода %s, перегенерация", code)
			continue
		}
		return err
	}
	return fmt.Errorf("could not allocate a unique room code after %d attempts", maxCodeAttempts)
}

// generateRoomCode генерирует код фиксированной длины из A-Z0-9 через crypto/rand
func generateRoomCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharacters))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharacters[n.Int64()]
	}
	return string(code), nil
}

// JoinGame присоединяет игрока к комнате.
// Порядок проверок: дубликат, переполнение, состояние.
func (s *MultiplayerService) JoinGame(game *entity.MultiplayerGame, player *entity.Player) (*entity.MultiplayerParticipant, error) {
	if game.FindParticipant(player.ID) != nil {
		return nil, ErrAlreadyJoined
	}

	if game.IsFull() {
		return nil, ErrRoomFull
	}

	if !game.IsJoinable() {
		return nil, ErrNotJoinable
	}

	participant := &entity.MultiplayerParticipant{
		MultiplayerGameID: game.ID,
		PlayerID:          player.ID,
		Player:            player,
		IsReady:           false,
		JoinedAt:          time.Now(),
	}

	if err := s.participantRepo.Create(participant); err != nil {
		// Гонка двух одновременных join закрывается уникальным индексом
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, ErrAlreadyJoined
		}
		return nil, err
	}

	game.Participants = append(game.Participants, *participant)
	return participant, nil
}

// LeaveGame убирает игрока из комнаты.
// До старта участник удаляется; после старта он помечается финишировавшим,
// чтобы не ломать инвариант позиций и сохранить сессию для статистики.
func (s *MultiplayerService) LeaveGame(game *entity.MultiplayerGame, player *entity.Player) error {
	participant := game.FindParticipant(player.ID)
	if participant == nil {
		return ErrNotInRoom
	}

	if !game.IsActive() || game.State == entity.GameStateLobby || game.State == entity.GameStateReady {
		if err := s.participantRepo.Delete(participant.ID); err != nil {
			return err
		}
		s.removeParticipantLocally(game, participant.ID)

		// Создатель ушел последним до старта: комната больше никому не нужна
		if game.IsCreator(player) && len(game.Participants) == 0 {
			s.scheduler.Disarm(game.ID)
			if err := s.gameRepo.Delete(game.ID); err != nil {
				return err
			}
			log.Printf("[MultiplayerService] Комната #%d удалена вместе с ушедшим создателем", game.ID)
		}
		return nil
	}

	// Комната уже стартовала: abandonment-as-finish
	participant.HasFinished = true
	if err := s.participantRepo.Update(participant); err != nil {
		return err
	}

	// Уход последнего незавершившего закрывает комнату
	if game.AllPlayersFinished() && game.State == entity.GameStateInProgress {
		if err := s.finishGame(game); err != nil {
			return err
		}
	}
	return nil
}

// KickParticipant исключает участника из комнаты. Только для создателя.
func (s *MultiplayerService) KickParticipant(game *entity.MultiplayerGame, creator *entity.Player, participantID uint) error {
	if !game.IsCreator(creator) {
		return ErrNotCreator
	}

	for i := range game.Participants {
		p := &game.Participants[i]
		if p.ID != participantID {
			continue
		}
		if p.PlayerID == creator.ID {
			return fmt.Errorf("%w: cannot kick the creator", apperrors.ErrValidation)
		}
		if p.Player == nil {
			return apperrors.ErrNotFound
		}
		return s.LeaveGame(game, p.Player)
	}

	return apperrors.ErrNotFound
}

// SelectChallenge выбирает предопределенный челлендж. Только для создателя.
// Новый челлендж сбрасывает готовность всех участников.
func (s *MultiplayerService) SelectChallenge(game *entity.MultiplayerGame, player *entity.Player, challenge *entity.Challenge) error {
	if !game.IsCreator(player) {
		return ErrNotCreator
	}

	game.ChallengeID = &challenge.ID
	game.Challenge = challenge
	game.CustomStartPage = nil
	game.CustomEndPage = nil
	game.State = entity.GameStateReady

	return s.persistChallengeSelection(game)
}

// SelectCustomChallenge задает кастомную пару страниц. Только для создателя.
func (s *MultiplayerService) SelectCustomChallenge(game *entity.MultiplayerGame, player *entity.Player, startPage, endPage string) error {
	if !game.IsCreator(player) {
		return ErrNotCreator
	}

	startPage = strings.TrimSpace(startPage)
	endPage = strings.TrimSpace(endPage)

	if startPage == "" || endPage == "" {
		return fmt.Errorf("%w: start and end pages cannot be empty", ErrInvalidChallenge)
	}
	if startPage == endPage {
		return fmt.Errorf("%w: start and end pages must be different", ErrInvalidChallenge)
	}

	game.Challenge = nil
	game.ChallengeID = nil
	game.CustomStartPage = &startPage
	game.CustomEndPage = &endPage
	game.State = entity.GameStateReady

	return s.persistChallengeSelection(game)
}

// persistChallengeSelection сохраняет выбор челленджа и сбрасывает готовность
func (s *MultiplayerService) persistChallengeSelection(game *entity.MultiplayerGame) error {
	if err := s.gameRepo.Update(game); err != nil {
		return err
	}
	if err := s.participantRepo.ResetReadyFlags(game.ID); err != nil {
		return err
	}
	for i := range game.Participants {
		game.Participants[i].IsReady = false
	}
	return nil
}

// SetPlayerReady выставляет флаг готовности участника.
// Когда все готовы и комната еще в lobby, она переходит в ready.
func (s *MultiplayerService) SetPlayerReady(game *entity.MultiplayerGame, player *entity.Player, ready bool) error {
	participant := game.FindParticipant(player.ID)
	if participant == nil {
		return ErrNotInRoom
	}

	participant.IsReady = ready
	if err := s.participantRepo.Update(participant); err != nil {
		return err
	}

	if game.AllPlayersReady() && game.State == entity.GameStateLobby {
		game.State = entity.GameStateReady
		if err := s.gameRepo.Update(game); err != nil {
			return err
		}
	}
	return nil
}

// StartCountdown запускает обратный отсчет. Только для создателя.
// Требует выбранный челлендж и готовность всех участников.
func (s *MultiplayerService) StartCountdown(game *entity.MultiplayerGame, player *entity.Player) error {
	if !game.IsCreator(player) {
		return ErrNotCreator
	}

	if !game.HasChallenge() {
		return ErrNoChallengeSelected
	}

	if !game.AllPlayersReady() {
		return ErrNotAllReady
	}

	now := time.Now()
	game.State = entity.GameStateCountdown
	game.CountdownStartedAt = &now

	if err := s.gameRepo.Update(game); err != nil {
		return err
	}

	// Забег стартует по серверному таймеру даже без подключенных клиентов
	s.scheduler.Arm(s.ctx, game.ID)

	log.Printf("[MultiplayerService] Комната #%d: отсчет запущен", game.ID)
	return nil
}

// StartGame переводит комнату в in_progress и создает сессии участников.
// Переход выполняется условным UPDATE countdown → in_progress, поэтому
// гонка серверного таймера и клиентского do-start безопасна: второй
// вызов становится no-op.
func (s *MultiplayerService) StartGame(game *entity.MultiplayerGame) error {
	if !game.HasChallenge() {
		return ErrNoChallengeSelected
	}

	err := s.gameRepo.UpdateState(game.ID, entity.GameStateCountdown, entity.GameStateInProgress)
	if err != nil {
		if errors.Is(err, repository.ErrGameNotInState) {
			current, getErr := s.gameRepo.GetByID(game.ID)
			if getErr != nil {
				return getErr
			}
			if current.State == entity.GameStateInProgress {
				// Переход уже выполнен другим триггером
				*game = *current
				return nil
			}
			return fmt.Errorf("%w: game #%d is %s", apperrors.ErrConflict, game.ID, current.State)
		}
		return err
	}

	s.scheduler.Disarm(game.ID)

	now := time.Now()
	game.State = entity.GameStateInProgress
	game.GameStartedAt = &now
	if err := s.gameRepo.Update(game); err != nil {
		return err
	}

	startPage := game.StartPage()

	// Сессия на каждого участника, у которого ее еще нет
	for i := range game.Participants {
		participant := &game.Participants[i]
		if participant.GameSession != nil {
			continue
		}

		session := &entity.GameSession{
			PlayerID:                 &participant.PlayerID,
			ChallengeID:              game.ChallengeID,
			MultiplayerParticipantID: &participant.ID,
			StartTime:                now,
			Path:                     entity.StringArray{startPage},
			Completed:                false,
		}
		if game.HasCustomChallenge() {
			session.CustomStartPage = game.CustomStartPage
			session.CustomEndPage = game.CustomEndPage
		}
		session.AddPageVisit(startPage)

		if err := s.sessionRepo.Create(session); err != nil {
			return fmt.Errorf("failed to create session for participant #%d: %w", participant.ID, err)
		}
		participant.GameSession = session
	}

	log.Printf("[MultiplayerService] Комната #%d: забег стартовал, %d сессий", game.ID, len(game.Participants))
	return nil
}

// PlayerFinished фиксирует финиш участника.
// Позиция выделяется атомарным инкрементом счетчика комнаты: два
// одновременных финиша не могут получить одинаковую позицию.
func (s *MultiplayerService) PlayerFinished(game *entity.MultiplayerGame, player *entity.Player) (*entity.MultiplayerParticipant, error) {
	if game.State != entity.GameStateInProgress {
		return nil, ErrNotInProgress
	}

	participant := game.FindParticipant(player.ID)
	if participant == nil {
		return nil, ErrNotInRoom
	}
	if participant.HasFinished {
		return nil, ErrAlreadyFinished
	}

	position, err := s.gameRepo.IncrementFinishCounter(game.ID)
	if err != nil {
		return nil, err
	}

	participant.MarkFinished(position)
	if err := s.participantRepo.Update(participant); err != nil {
		return nil, err
	}

	log.Printf("[MultiplayerService] Комната #%d: игрок #%d финишировал на позиции %d", game.ID, player.ID, position)

	if game.AllPlayersFinished() {
		if err := s.finishGame(game); err != nil {
			return nil, err
		}
	}
	return participant, nil
}

// finishGame закрывает комнату после финиша последнего участника
func (s *MultiplayerService) finishGame(game *entity.MultiplayerGame) error {
	now := time.Now()
	game.State = entity.GameStateFinished
	game.GameEndedAt = &now
	if err := s.gameRepo.Update(game); err != nil {
		return err
	}
	log.Printf("[MultiplayerService] Комната #%d завершена", game.ID)
	return nil
}

// AbandonGame принудительно закрывает комнату. Только для создателя.
func (s *MultiplayerService) AbandonGame(game *entity.MultiplayerGame, player *entity.Player) error {
	if !game.IsCreator(player) {
		return ErrNotCreator
	}

	s.scheduler.Disarm(game.ID)

	now := time.Now()
	game.State = entity.GameStateAbandoned
	game.GameEndedAt = &now

	if err := s.gameRepo.Update(game); err != nil {
		return err
	}
	log.Printf("[MultiplayerService] Комната #%d прервана создателем", game.ID)
	return nil
}

// GetPublicGames возвращает открытые комнаты для лобби
func (s *MultiplayerService) GetPublicGames() ([]entity.MultiplayerGame, error) {
	return s.gameRepo.FindPublicGames()
}

// GetGameByID возвращает комнату с полным составом
func (s *MultiplayerService) GetGameByID(id uint) (*entity.MultiplayerGame, error) {
	return s.gameRepo.GetByID(id)
}

// GetGameByCode возвращает комнату по коду присоединения
func (s *MultiplayerService) GetGameByCode(code string) (*entity.MultiplayerGame, error) {
	return s.gameRepo.GetByCode(strings.ToUpper(strings.TrimSpace(code)))
}

// removeParticipantLocally убирает участника из загруженного состава
func (s *MultiplayerService) removeParticipantLocally(game *entity.MultiplayerGame, participantID uint) {
	for i := range game.Participants {
		if game.Participants[i].ID == participantID {
			game.Participants = append(game.Participants[:i], game.Participants[i+1:]...)
			return
		}
	}
}

// Shutdown корректно завершает работу сервиса
func (s *MultiplayerService) Shutdown() {
	log.Println("[MultiplayerService] Завершение работы сервиса мультиплеера...")
	s.cancel()
}
