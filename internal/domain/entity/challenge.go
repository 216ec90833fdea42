package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Режимы, в которых доступен челлендж
const (
	ChallengeModeSolo        = "solo"
	ChallengeModeDaily       = "challenge_of_day"
	ChallengeModeMultiplayer = "multiplayer"
)

// Уровни сложности челленджа
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// StringArray - пользовательский тип для работы с JSONB
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
// Используется GORM для чтения JSONB данных из базы
func (o *StringArray) Scan(value interface{}) error {
	if value == nil {
		*o = StringArray{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*o = StringArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для StringArray
// Используется GORM для записи StringArray в JSONB в базе
func (o StringArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil // Возвращаем пустой JSON массив вместо null
	}
	return json.Marshal(o)
}

// Challenge представляет пару страниц старт/финиш для забега
type Challenge struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	Name       string      `gorm:"size:255;not null" json:"name"`
	StartPage  string      `gorm:"size:255;not null" json:"start_page"`
	EndPage    string      `gorm:"size:255;not null" json:"end_page"`
	Difficulty string      `gorm:"size:50;not null" json:"difficulty"`
	Modes      StringArray `gorm:"type:jsonb;not null" json:"modes"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Challenge) TableName() string {
	return "challenges"
}

// HasMode проверяет, доступен ли челлендж в заданном режиме
func (c *Challenge) HasMode(mode string) bool {
	for _, m := range c.Modes {
		if m == mode {
			return true
		}
	}
	return false
}
