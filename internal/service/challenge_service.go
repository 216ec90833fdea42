package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/yourusername/wikirace-api/internal/domain/entity"
	"github.com/yourusername/wikirace-api/internal/domain/repository"
	apperrors "github.com/yourusername/wikirace-api/internal/pkg/errors"
)

// ChallengeService управляет каталогом челленджей
type ChallengeService struct {
	challengeRepo repository.ChallengeRepository
}

// NewChallengeService создает сервис челленджей
func NewChallengeService(challengeRepo repository.ChallengeRepository) *ChallengeService {
	return &ChallengeService{challengeRepo: challengeRepo}
}

// GetChallengeByID возвращает челлендж по идентификатору
func (s *ChallengeService) GetChallengeByID(id uint) (*entity.Challenge, error) {
	return s.challengeRepo.GetByID(id)
}

// GetChallengesByMode возвращает челленджи, доступные в заданном режиме
func (s *ChallengeService) GetChallengesByMode(mode string) ([]entity.Challenge, error) {
	switch mode {
	case entity.ChallengeModeSolo, entity.ChallengeModeDaily, entity.ChallengeModeMultiplayer:
	default:
		return nil, fmt.Errorf("%w: unknown challenge mode %q", apperrors.ErrValidation, mode)
	}
	return s.challengeRepo.GetByMode(mode)
}

// ListChallenges возвращает каталог постранично
func (s *ChallengeService) ListChallenges(limit, offset int) ([]entity.Challenge, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.challengeRepo.List(limit, offset)
}

// GetDailyChallenge возвращает челлендж дня.
// Ротация детерминирована: пул challenge_of_day индексируется
// номером дня в году, поэтому все игроки видят один и тот же челлендж.
func (s *ChallengeService) GetDailyChallenge(now time.Time) (*entity.Challenge, error) {
	pool, err := s.challengeRepo.GetByMode(entity.ChallengeModeDaily)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, apperrors.ErrNotFound
	}

	index := (now.YearDay() - 1) % len(pool)
	return &pool[index], nil
}

// CreateChallenge валидирует и сохраняет новый челлендж
func (s *ChallengeService) CreateChallenge(name, startPage, endPage, difficulty string, modes []string) (*entity.Challenge, error) {
	challenge := &entity.Challenge{
		Name:       strings.TrimSpace(name),
		StartPage:  strings.TrimSpace(startPage),
		EndPage:    strings.TrimSpace(endPage),
		Difficulty: strings.TrimSpace(difficulty),
		Modes:      entity.StringArray(modes),
	}

	if err := s.validateChallenge(challenge); err != nil {
		return nil, err
	}

	if err := s.challengeRepo.Create(challenge); err != nil {
		return nil, err
	}
	return challenge, nil
}

func (s *ChallengeService) validateChallenge(challenge *entity.Challenge) error {
	if challenge.Name == "" {
		return fmt.Errorf("%w: challenge name cannot be empty", apperrors.ErrValidation)
	}
	if challenge.StartPage == "" || challenge.EndPage == "" {
		return fmt.Errorf("%w: start and end pages cannot be empty", ErrInvalidChallenge)
	}
	if challenge.StartPage == challenge.EndPage {
		return fmt.Errorf("%w: start and end pages must be different", ErrInvalidChallenge)
	}

	switch challenge.Difficulty {
	case entity.DifficultyEasy, entity.DifficultyMedium, entity.DifficultyHard:
	case "":
		challenge.Difficulty = entity.DifficultyMedium
	default:
		return fmt.Errorf("%w: unknown difficulty %q", apperrors.ErrValidation, challenge.Difficulty)
	}

	if len(challenge.Modes) == 0 {
		challenge.Modes = entity.StringArray{entity.ChallengeModeSolo}
	}
	for _, mode := range challenge.Modes {
		switch mode {
		case entity.ChallengeModeSolo, entity.ChallengeModeDaily, entity.ChallengeModeMultiplayer:
		default:
			return fmt.Errorf("%w: unknown challenge mode %q", apperrors.ErrValidation, mode)
		}
	}
	return nil
}

// BulkImportResult - итог массового импорта челленджей
type BulkImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// BulkImport импортирует челленджи из файла .xlsx или .csv.
// Ожидаемые колонки: name, start_page, end_page, difficulty, modes
// (режимы через запятую). Первая строка считается заголовком.
// Строки с ошибками пропускаются и попадают в отчет, валидные
// сохраняются одной пачкой.
func (s *ChallengeService) BulkImport(reader io.Reader, filename string) (*BulkImportResult, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		rows, err = readXLSXRows(reader)
	case ".csv":
		rows, err = readCSVRows(reader)
	default:
		return nil, fmt.Errorf("%w: unsupported file format %q, expected .xlsx or .csv", apperrors.ErrValidation, filepath.Ext(filename))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: file contains no data rows", apperrors.ErrValidation)
	}

	result := &BulkImportResult{}
	var challenges []entity.Challenge

	// Первая строка - заголовок
	for i, row := range rows[1:] {
		rowNum := i + 2

		challenge, rowErr := parseChallengeRow(row)
		if rowErr == nil {
			rowErr = s.validateChallenge(challenge)
		}
		if rowErr != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, rowErr))
			continue
		}

		challenges = append(challenges, *challenge)
	}

	if len(challenges) > 0 {
		if err := s.challengeRepo.CreateBatch(challenges); err != nil {
			return nil, err
		}
		result.Imported = len(challenges)
	}

	log.Printf("[ChallengeService] Импорт завершен: %d загружено, %d пропущено", result.Imported, result.Skipped)
	return result, nil
}

func parseChallengeRow(row []string) (*entity.Challenge, error) {
	if len(row) < 3 {
		return nil, fmt.Errorf("expected at least 3 columns, got %d", len(row))
	}

	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	var modes entity.StringArray
	for _, mode := range strings.Split(cell(4), ",") {
		if mode = strings.TrimSpace(mode); mode != "" {
			modes = append(modes, mode)
		}
	}

	return &entity.Challenge{
		Name:       cell(0),
		StartPage:  cell(1),
		EndPage:    cell(2),
		Difficulty: cell(3),
		Modes:      modes,
	}, nil
}

func readXLSXRows(reader io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx file has no sheets")
	}

	return f.GetRows(sheets[0])
}

func readCSVRows(reader io.Reader) ([][]string, error) {
	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}
