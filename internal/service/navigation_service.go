package service

import (
	"math"

	"github.com/yourusername/wikirace-api/internal/domain/entity"
	"github.com/yourusername/wikirace-api/internal/domain/repository"
)

// SessionStatistics — итоговая статистика сессии
type SessionStatistics struct {
	Duration            *int               `json:"duration"`
	PathLength          int                `json:"pathLength"`
	Path                entity.StringArray `json:"path"`
	TotalEvents         int                `json:"totalEvents"`
	BackNavigationCount int                `json:"backNavigationCount"`
	DeadEndCount        int                `json:"deadEndCount"`
	DeadEnds            []string           `json:"deadEnds"`
	Efficiency          float64            `json:"efficiency"`
}

// NavigationService отслеживает перемещение игрока по страницам сессии
type NavigationService struct {
	sessionRepo repository.GameSessionRepository
}

// NewNavigationService создает сервис навигации
func NewNavigationService(sessionRepo repository.GameSessionRepository) *NavigationService {
	return &NavigationService{sessionRepo: sessionRepo}
}

// NavigateToPage регистрирует переход на страницу.
// Если страница уже встречалась в пути, это возврат назад: путь
// усекается до ее первого вхождения, в журнал добавляется одно
// событие back_navigation. Иначе страница добавляется в конец пути.
// Возвращает true для возврата назад.
func (s *NavigationService) NavigateToPage(session *entity.GameSession, pageTitle string) (bool, error) {
	isBackNavigation := false

	existingIndex := -1
	for i, page := range session.Path {
		if page == pageTitle {
			existingIndex = i
			break
		}
	}

	if existingIndex >= 0 {
		isBackNavigation = true

		fromPage := session.CurrentPage()
		session.Path = session.Path[:existingIndex+1]
		session.AddBackNavigation(fromPage, pageTitle)
	} else {
		session.Path = append(session.Path, pageTitle)
		session.AddPageVisit(pageTitle)
	}

	if err := s.sessionRepo.Update(session); err != nil {
		return false, err
	}
	return isBackNavigation, nil
}

// IsTargetReached проверяет достижение целевой страницы.
// Сравнение строгое, без нормализации регистра и пробелов.
func (s *NavigationService) IsTargetReached(session *entity.GameSession, currentPage string) bool {
	return currentPage == session.EndPage()
}

// CalculateStatistics вычисляет статистику сессии. Только чтение.
func (s *NavigationService) CalculateStatistics(session *entity.GameSession) *SessionStatistics {
	stats := &SessionStatistics{
		Duration:   session.DurationSeconds,
		PathLength: len(session.Path),
		Path:       session.Path,
		DeadEnds:   []string{},
	}

	inPath := make(map[string]bool, len(session.Path))
	for _, page := range session.Path {
		inPath[page] = true
	}

	// Тупики: посещенные страницы, не вошедшие в итоговый путь
	var visitedPages []string
	for _, event := range session.Events {
		stats.TotalEvents++
		switch event.Type {
		case entity.EventTypeBackNavigation:
			stats.BackNavigationCount++
		case entity.EventTypePageVisit:
			visitedPages = append(visitedPages, event.Page)
			if !inPath[event.Page] {
				stats.DeadEnds = append(stats.DeadEnds, event.Page)
			}
		}
	}
	stats.DeadEndCount = len(stats.DeadEnds)

	uniqueExplored := make(map[string]bool, len(visitedPages))
	for _, page := range visitedPages {
		uniqueExplored[page] = true
	}

	// Эффективность: доля итогового пути от всех исследованных страниц
	if len(uniqueExplored) > 0 {
		stats.Efficiency = math.Round(float64(stats.PathLength)/float64(len(uniqueExplored))*100*100) / 100
	} else {
		stats.Efficiency = 100
	}

	return stats
}
