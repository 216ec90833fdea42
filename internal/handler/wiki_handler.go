package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/wikirace-api/internal/service"
)

// WikiHandler обрабатывает прямые запросы к Wikipedia (поиск страниц)
type WikiHandler struct {
	wikipediaService *service.WikipediaService
}

// NewWikiHandler создает новый обработчик Wikipedia
func NewWikiHandler(wikipediaService *service.WikipediaService) *WikiHandler {
	return &WikiHandler{wikipediaService: wikipediaService}
}

// SearchPages ищет статьи по префиксу названия.
// Используется при составлении кастомных челленджей.
func (h *WikiHandler) SearchPages(c *gin.Context) {
	query := c.Query("q")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultSearchLimit)))
	if err != nil || limit < 1 || limit > 50 {
		limit = service.DefaultSearchLimit
	}

	titles, searchErr := h.wikipediaService.SearchPages(query, limit)
	if searchErr != nil {
		if errors.Is(searchErr, service.ErrWikipediaUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": searchErr.Error()})
			return
		}
		log.Printf("ERROR: Internal server error in WikiHandler: %v", searchErr)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"titles": titles})
}
