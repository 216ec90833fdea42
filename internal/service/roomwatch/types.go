package roomwatch

import (
	"time"
)

// DefaultCountdownSeconds - продолжительность обратного отсчета перед стартом забега
const DefaultCountdownSeconds = 5

// Config содержит настройки серверного таймера комнат
type Config struct {
	// CountdownSeconds - окно между подтверждением готовности и фактическим стартом
	CountdownSeconds int
	// StartBuffer - размер буфера канала сигналов старта
	StartBuffer int
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		CountdownSeconds: DefaultCountdownSeconds,
		StartBuffer:      16,
	}
}

// CountdownWindow возвращает окно отсчета как Duration
func (c *Config) CountdownWindow() time.Duration {
	return time.Duration(c.CountdownSeconds) * time.Second
}
