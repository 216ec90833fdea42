package roomwatch

import (
	"context"
	"log"
	"sync"
	"time"
)

// Scheduler - серверный таймер перехода countdown → in_progress.
// Клиентский триггер do-start остается рабочим, но забег стартует и при
// нуле подключенных клиентов: по истечении окна отсчета Scheduler
// сигнализирует в StartChannel, а владелец выполняет идемпотентный старт.
type Scheduler struct {
	config *Config

	// Функции отмены по id комнаты
	roomCancels sync.Map // map[uint]context.CancelFunc

	// Канал для сигнализации о завершении отсчета
	startCh chan uint
}

// NewScheduler создает новый таймер комнат
func NewScheduler(config *Config) *Scheduler {
	return &Scheduler{
		config:  config,
		startCh: make(chan uint, config.StartBuffer),
	}
}

// StartChannel возвращает канал сигналов о завершении отсчета
func (s *Scheduler) StartChannel() <-chan uint {
	return s.startCh
}

// Arm запускает отсчет для комнаты.
// Повторный Arm для той же комнаты отменяет предыдущий таймер.
func (s *Scheduler) Arm(ctx context.Context, gameID uint) {
	roomCtx, cancel := context.WithCancel(ctx)

	if prev, loaded := s.roomCancels.Swap(gameID, cancel); loaded {
		prev.(context.CancelFunc)()
	}

	window := s.config.CountdownWindow()
	log.Printf("[RoomWatch] Комната #%d: отсчет %v запущен", gameID, window)

	go s.runCountdown(roomCtx, gameID, window)
}

// Disarm отменяет отсчет для комнаты (выход создателя, abandon)
func (s *Scheduler) Disarm(gameID uint) {
	cancel, ok := s.roomCancels.LoadAndDelete(gameID)
	if !ok {
		return
	}
	cancel.(context.CancelFunc)()
	log.Printf("[RoomWatch] Комната #%d: отсчет отменен", gameID)
}

// runCountdown ждет окончания окна отсчета и сигнализирует владельцу
func (s *Scheduler) runCountdown(ctx context.Context, gameID uint, window time.Duration) {
	defer s.roomCancels.Delete(gameID)

	select {
	case <-time.After(window):
		// Неблокирующая отправка на случай переполнения канала
		select {
		case s.startCh <- gameID:
			log.Printf("[RoomWatch] Комната #%d: отсчет завершен, сигнал старта отправлен", gameID)
		default:
			log.Printf("[RoomWatch] Предупреждение: не удалось отправить сигнал старта комнаты #%d (канал переполнен?)", gameID)
		}
	case <-ctx.Done():
		return
	}
}
