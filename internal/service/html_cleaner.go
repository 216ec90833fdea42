package service

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Секции статьи, обрезаемые вместе со всем последующим содержимым
var trailingSectionIDs = []string{
	"Références",
	"Notes_et_références",
	"Liens_externes",
	"Voir_aussi",
}

// Элементы, удаляемые из статьи целиком
var strippedSelectors = []string{
	".reference",
	".reflist",
	".navbox",
	"[role=navigation]",
	"sup.reference",
	".mw-editsection",
}

// namespacePattern распознает служебные страницы (Fichier:, Aide:, Special: и т.д.)
var namespacePattern = regexp.MustCompile(`(?i)^([A-Z][a-z]+:|Special:)`)

// HtmlCleaner подготавливает HTML статьи Wikipedia к показу в игре:
// вырезает служебные секции и переписывает внутренние ссылки на
// игровой маршрут загрузки страницы.
type HtmlCleaner struct{}

// NewHtmlCleaner создает очиститель HTML
func NewHtmlCleaner() *HtmlCleaner {
	return &HtmlCleaner{}
}

// Clean очищает HTML статьи и переписывает ссылки для сессии gameID
func (c *HtmlCleaner) Clean(html string, gameID uint) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse page html: %w", err)
	}

	c.removeUnwantedSections(doc)
	c.transformLinks(doc, gameID)

	cleaned, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("failed to render cleaned html: %w", err)
	}
	return cleaned, nil
}

// removeUnwantedSections вырезает справочные секции и навигационные блоки
func (c *HtmlCleaner) removeUnwantedSections(doc *goquery.Document) {
	for _, id := range trailingSectionIDs {
		anchor := doc.Find("#" + id)
		if anchor.Length() == 0 {
			continue
		}

		// Заголовок секции и все, что идет после него
		heading := anchor.Closest(".mw-heading")
		if heading.Length() > 0 {
			heading.NextAll().Remove()
			heading.Remove()
		} else {
			anchor.NextAll().Remove()
			anchor.Remove()
		}
	}

	for _, selector := range strippedSelectors {
		doc.Find(selector).Remove()
	}
}

// transformLinks переписывает внутренние ссылки /wiki/ на игровой маршрут.
// Ссылки на служебные страницы остаются как есть, внешние ссылки
// открываются в новой вкладке.
func (c *HtmlCleaner) transformLinks(doc *goquery.Document, gameID uint) {
	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")

		if !strings.HasPrefix(href, "/wiki/") {
			link.SetAttr("target", "_blank")
			link.SetAttr("rel", "noopener noreferrer")
			return
		}

		pageTitle, err := url.PathUnescape(strings.TrimPrefix(href, "/wiki/"))
		if err != nil {
			pageTitle = strings.TrimPrefix(href, "/wiki/")
		}

		if namespacePattern.MatchString(pageTitle) {
			return
		}

		// Якорь внутри страницы отбрасывается
		pageTitle = strings.SplitN(pageTitle, "#", 2)[0]

		link.SetAttr("href", fmt.Sprintf("/api/games/%d/page/%s", gameID, url.PathEscape(pageTitle)))
		link.SetAttr("data-wiki-page", pageTitle)
	})
}
