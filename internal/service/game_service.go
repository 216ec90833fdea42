package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/wikirace-api/internal/domain/entity"
	"github.com/yourusername/wikirace-api/internal/domain/repository"
	apperrors "github.com/yourusername/wikirace-api/internal/pkg/errors"
)

// PageView - результат загрузки страницы внутри сессии
type PageView struct {
	Title        string             `json:"title"`
	DisplayTitle string             `json:"displayTitle"`
	Content      string             `json:"content"`
	CurrentPage  string             `json:"currentPage"`
	Completed    bool               `json:"completed"`
	Statistics   *SessionStatistics `json:"statistics,omitempty"`
}

// GameService управляет игровыми сессиями: соло-забегами и загрузкой
// страниц внутри любой сессии, включая мультиплеерные.
type GameService struct {
	sessionRepo     repository.GameSessionRepository
	participantRepo repository.MultiplayerParticipantRepository

	navigationService  *NavigationService
	wikipediaService   *WikipediaService
	htmlCleaner        *HtmlCleaner
	multiplayerService *MultiplayerService
}

// NewGameService создает игровой сервис
func NewGameService(
	sessionRepo repository.GameSessionRepository,
	participantRepo repository.MultiplayerParticipantRepository,
	navigationService *NavigationService,
	wikipediaService *WikipediaService,
	htmlCleaner *HtmlCleaner,
	multiplayerService *MultiplayerService,
) *GameService {
	return &GameService{
		sessionRepo:        sessionRepo,
		participantRepo:    participantRepo,
		navigationService:  navigationService,
		wikipediaService:   wikipediaService,
		htmlCleaner:        htmlCleaner,
		multiplayerService: multiplayerService,
	}
}

// StartSoloGame возвращает соло-сессию игрока для челленджа,
// создавая новую при первом заходе. Повторный заход возвращает
// существующую сессию, завершенную или нет.
func (s *GameService) StartSoloGame(player *entity.Player, challenge *entity.Challenge) (*entity.GameSession, error) {
	session, err := s.sessionRepo.GetByPlayerAndChallenge(player.ID, challenge.ID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	session = &entity.GameSession{
		PlayerID:    &player.ID,
		ChallengeID: &challenge.ID,
		Challenge:   challenge,
		StartTime:   time.Now(),
		Path:        entity.StringArray{challenge.StartPage},
		Completed:   false,
	}
	session.AddPageVisit(challenge.StartPage)

	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}

	log.Printf("[GameService] Создана соло-сессия #%d: игрок #%d, челлендж #%d", session.ID, player.ID, challenge.ID)
	return session, nil
}

// GetSessionByID возвращает сессию по идентификатору
func (s *GameService) GetSessionByID(id uint) (*entity.GameSession, error) {
	return s.sessionRepo.GetByID(id)
}

// GetSessionForPlayer возвращает сессию, проверяя ее принадлежность игроку
func (s *GameService) GetSessionForPlayer(sessionID uint, player *entity.Player) (*entity.GameSession, error) {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session.PlayerID == nil || *session.PlayerID != player.ID {
		return nil, fmt.Errorf("%w: session #%d does not belong to player #%d", apperrors.ErrForbidden, sessionID, player.ID)
	}
	return session, nil
}

// LoadPage регистрирует переход на страницу и возвращает ее содержимое.
// Для завершенной сессии навигация не выполняется, возвращается
// только статистика. Достижение целевой страницы завершает сессию;
// в мультиплеерной сессии дополнительно фиксируется финиш участника.
func (s *GameService) LoadPage(session *entity.GameSession, title string) (*PageView, error) {
	if session.Completed {
		return &PageView{
			CurrentPage: session.CurrentPage(),
			Completed:   true,
			Statistics:  s.navigationService.CalculateStatistics(session),
		}, nil
	}

	if _, err := s.navigationService.NavigateToPage(session, title); err != nil {
		return nil, err
	}

	pageData, err := s.wikipediaService.GetPage(title)
	if err != nil {
		return nil, err
	}

	content, err := s.htmlCleaner.Clean(pageData.Content, session.ID)
	if err != nil {
		return nil, err
	}

	view := &PageView{
		Title:        pageData.Title,
		DisplayTitle: pageData.DisplayTitle,
		Content:      content,
		CurrentPage:  title,
	}

	if s.navigationService.IsTargetReached(session, title) {
		session.Complete()
		if err := s.sessionRepo.Update(session); err != nil {
			return nil, err
		}

		view.Completed = true
		view.Statistics = s.navigationService.CalculateStatistics(session)

		log.Printf("[GameService] Сессия #%d завершена: цель %q достигнута", session.ID, title)

		if session.MultiplayerParticipantID != nil {
			s.notifyMultiplayerFinish(session)
		}
	}

	return view, nil
}

// notifyMultiplayerFinish фиксирует финиш участника мультиплеерной комнаты.
// Победа уже записана в сессию, поэтому отказ фиксации не срывает
// загрузку страницы: позицию можно расставить повторным запросом.
func (s *GameService) notifyMultiplayerFinish(session *entity.GameSession) {
	participant, err := s.participantRepo.GetByID(*session.MultiplayerParticipantID)
	if err != nil {
		log.Printf("[GameService] Участник #%d сессии #%d не найден: %v", *session.MultiplayerParticipantID, session.ID, err)
		return
	}

	game, err := s.multiplayerService.GetGameByID(participant.MultiplayerGameID)
	if err != nil {
		log.Printf("[GameService] Комната #%d не найдена при финише сессии #%d: %v", participant.MultiplayerGameID, session.ID, err)
		return
	}

	loaded := game.FindParticipant(participant.PlayerID)
	if loaded == nil || loaded.Player == nil {
		log.Printf("[GameService] Участник игрока #%d не найден в составе комнаты #%d", participant.PlayerID, game.ID)
		return
	}

	if _, err := s.multiplayerService.PlayerFinished(game, loaded.Player); err != nil && !errors.Is(err, ErrAlreadyFinished) {
		log.Printf("[GameService] Не удалось зафиксировать финиш игрока #%d в комнате #%d: %v", participant.PlayerID, game.ID, err)
	}
}

// GetPageExtract возвращает предпросмотр страницы для всплывающей подсказки
func (s *GameService) GetPageExtract(title string) (*PageExtract, error) {
	return s.wikipediaService.GetPageExtract(title)
}

// GetStatistics возвращает статистику завершенной сессии
func (s *GameService) GetStatistics(session *entity.GameSession) (*SessionStatistics, error) {
	if !session.Completed {
		return nil, fmt.Errorf("%w: session #%d is not completed", apperrors.ErrValidation, session.ID)
	}
	return s.navigationService.CalculateStatistics(session), nil
}
