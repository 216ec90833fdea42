package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/yourusername/wikirace-api/internal/domain/repository"
	apperrors "github.com/yourusername/wikirace-api/internal/pkg/errors"
)

// Параметры доступа к MediaWiki API
const (
	DefaultWikipediaEndpoint = "https://fr.wikipedia.org/w/api.php"
	wikipediaTimeout         = 10 * time.Second

	cacheTTLPage    = 24 * time.Hour
	cacheTTLExtract = 24 * time.Hour
	cacheTTLSearch  = time.Hour

	searchMinQueryLength = 2
	DefaultSearchLimit   = 10
)

// cacheKeyPattern - символы, допустимые в ключе кеша без замены
var cacheKeyPattern = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

// PageContent - полное содержимое статьи
type PageContent struct {
	Title        string `json:"title"`
	DisplayTitle string `json:"displaytitle"`
	Content      string `json:"content"`
}

// PageExtract - краткая выдержка статьи для предпросмотра
type PageExtract struct {
	Title     string  `json:"title"`
	Extract   string  `json:"extract"`
	Thumbnail *string `json:"thumbnail"`
}

// WikipediaService - шлюз к MediaWiki API с кешированием в Redis.
// Ошибки транспорта и API никогда не доходят до клиента как есть:
// они логируются и превращаются в ErrWikipediaUnavailable.
type WikipediaService struct {
	endpoint  string
	client    *http.Client
	cacheRepo repository.CacheRepository
}

// NewWikipediaService создает шлюз к Wikipedia
func NewWikipediaService(endpoint string, cacheRepo repository.CacheRepository) *WikipediaService {
	if endpoint == "" {
		endpoint = DefaultWikipediaEndpoint
	}
	return &WikipediaService{
		endpoint:  endpoint,
		client:    &http.Client{Timeout: wikipediaTimeout},
		cacheRepo: cacheRepo,
	}
}

// GetPage возвращает HTML-содержимое статьи. Результат кешируется на сутки.
func (s *WikipediaService) GetPage(title string) (*PageContent, error) {
	cacheKey := cacheKey("page", title)

	var cached PageContent
	if err := s.cacheRepo.GetJSON(cacheKey, &cached); err == nil {
		return &cached, nil
	}

	body, err := s.request(url.Values{
		"action":        {"parse"},
		"page":          {title},
		"prop":          {"text"},
		"format":        {"json"},
		"formatversion": {"2"},
	})
	if err != nil {
		return nil, err
	}

	var response struct {
		Error *struct {
			Code string `json:"code"`
			Info string `json:"info"`
		} `json:"error"`
		Parse *struct {
			Title        string `json:"title"`
			DisplayTitle string `json:"displaytitle"`
			Text         string `json:"text"`
		} `json:"parse"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		log.Printf("[WikipediaService] Некорректный ответ API для страницы %q: %v", title, err)
		return nil, ErrWikipediaUnavailable
	}

	if response.Error != nil {
		log.Printf("[WikipediaService] Ошибка API для страницы %q: %s (%s)", title, response.Error.Info, response.Error.Code)
		if response.Error.Code == "missingtitle" {
			return nil, apperrors.ErrNotFound
		}
		return nil, ErrWikipediaUnavailable
	}
	if response.Parse == nil || response.Parse.Text == "" {
		log.Printf("[WikipediaService] Пустое содержимое страницы %q", title)
		return nil, apperrors.ErrNotFound
	}

	page := &PageContent{
		Title:        valueOr(response.Parse.Title, title),
		DisplayTitle: valueOr(response.Parse.DisplayTitle, title),
		Content:      response.Parse.Text,
	}

	s.storeInCache(cacheKey, page, cacheTTLPage)
	return page, nil
}

// GetPageExtract возвращает краткую выдержку статьи с миниатюрой
func (s *WikipediaService) GetPageExtract(title string) (*PageExtract, error) {
	cacheKey := cacheKey("extract", title)

	var cached PageExtract
	if err := s.cacheRepo.GetJSON(cacheKey, &cached); err == nil {
		return &cached, nil
	}

	body, err := s.request(url.Values{
		"action":        {"query"},
		"format":        {"json"},
		"formatversion": {"2"},
		"prop":          {"extracts|pageimages"},
		"exintro":       {"1"},
		"explaintext":   {"1"},
		"exsentences":   {"3"},
		"piprop":        {"thumbnail"},
		"pithumbsize":   {"300"},
		"titles":        {title},
	})
	if err != nil {
		return nil, err
	}

	var response struct {
		Error *struct {
			Info string `json:"info"`
		} `json:"error"`
		Query *struct {
			Pages []struct {
				Title     string `json:"title"`
				Missing   bool   `json:"missing"`
				Extract   string `json:"extract"`
				Thumbnail *struct {
					Source string `json:"source"`
				} `json:"thumbnail"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		log.Printf("[WikipediaService] Некорректный ответ API для выдержки %q: %v", title, err)
		return nil, ErrWikipediaUnavailable
	}

	if response.Error != nil {
		log.Printf("[WikipediaService] Ошибка API для выдержки %q: %s", title, response.Error.Info)
		return nil, ErrWikipediaUnavailable
	}
	if response.Query == nil || len(response.Query.Pages) == 0 {
		return nil, apperrors.ErrNotFound
	}

	page := response.Query.Pages[0]
	if page.Missing {
		return nil, apperrors.ErrNotFound
	}

	extract := &PageExtract{
		Title:   valueOr(page.Title, title),
		Extract: page.Extract,
	}
	if page.Thumbnail != nil {
		extract.Thumbnail = &page.Thumbnail.Source
	}

	s.storeInCache(cacheKey, extract, cacheTTLExtract)
	return extract, nil
}

// SearchPages ищет статьи по префиксу названия.
// Запросы короче двух символов не отправляются в API.
func (s *WikipediaService) SearchPages(query string, limit int) ([]string, error) {
	if len(query) < searchMinQueryLength {
		return []string{}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	cacheKey := cacheKey("search", query+"_"+strconv.Itoa(limit))

	var cached []string
	if err := s.cacheRepo.GetJSON(cacheKey, &cached); err == nil {
		return cached, nil
	}

	body, err := s.request(url.Values{
		"action":    {"opensearch"},
		"search":    {query},
		"limit":     {strconv.Itoa(limit)},
		"namespace": {"0"},
		"format":    {"json"},
	})
	if err != nil {
		return nil, err
	}

	// Ответ opensearch: [query, [titles], [descriptions], [urls]]
	var response []json.RawMessage
	if err := json.Unmarshal(body, &response); err != nil || len(response) < 2 {
		log.Printf("[WikipediaService] Некорректный ответ поиска %q: %v", query, err)
		return nil, ErrWikipediaUnavailable
	}

	titles := []string{}
	if err := json.Unmarshal(response[1], &titles); err != nil {
		log.Printf("[WikipediaService] Некорректный список результатов поиска %q: %v", query, err)
		return nil, ErrWikipediaUnavailable
	}

	s.storeInCache(cacheKey, titles, cacheTTLSearch)
	return titles, nil
}

// request выполняет GET-запрос к MediaWiki API и возвращает тело ответа
func (s *WikipediaService) request(params url.Values) ([]byte, error) {
	requestURL := s.endpoint + "?" + params.Encode()

	resp, err := s.client.Get(requestURL)
	if err != nil {
		log.Printf("[WikipediaService] Ошибка транспорта: %v", err)
		return nil, ErrWikipediaUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[WikipediaService] Неожиданный статус ответа API: %d", resp.StatusCode)
		return nil, ErrWikipediaUnavailable
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[WikipediaService] Ошибка чтения ответа API: %v", err)
		return nil, ErrWikipediaUnavailable
	}
	return body, nil
}

// storeInCache сохраняет значение в кеш. Отказ кеша не считается ошибкой.
func (s *WikipediaService) storeInCache(key string, value interface{}, ttl time.Duration) {
	if err := s.cacheRepo.SetJSON(key, value, ttl); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		log.Printf("[WikipediaService] Не удалось закешировать %s: %v", key, err)
	}
}

// cacheKey нормализует название страницы в безопасный ключ кеша
func cacheKey(kind, title string) string {
	return fmt.Sprintf("wikipedia_%s_%s", kind, cacheKeyPattern.ReplaceAllString(title, "_"))
}

func valueOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
