package practice

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"masterpay/internal/models"
)

// SendFunc отправляет напоминание в чат. Без подтверждения доставки.
type SendFunc func(chatID int64, text string)

// Scheduler взводит по одному одноразовому таймеру на каждую будущую
// контрольную точку клиента. Таймеры клиента снимаются при его удалении
// и при повторной настройке; прошедшие точки не добираются задним числом.
type Scheduler struct {
	send   SendFunc
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	timers map[int64][]*time.Timer
}

// NewScheduler создает планировщик напоминаний.
func NewScheduler(send SendFunc, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		send:   send,
		logger: logger,
		now:    time.Now,
		timers: make(map[int64][]*time.Timer),
	}
}

// Arm взводит таймеры на все будущие контрольные точки клиента,
// предварительно сняв прежние для этого чата. Возвращает количество
// взведённых таймеров.
func (s *Scheduler) Arm(client models.Client) int {
	s.Stop(client.ChatID)

	now := s.now()
	var armed []*time.Timer
	for _, m := range Milestones(client) {
		delay := m.RemindAt.Sub(now)
		if delay <= 0 {
			continue
		}

		milestone := m
		timer := time.AfterFunc(delay, func() {
			s.logger.Info("срабатывает напоминание о практике",
				zap.Int64("chat_id", client.ChatID),
				zap.Int("practice", milestone.Index),
			)
			s.send(client.ChatID, ReminderText(client, milestone))
		})
		armed = append(armed, timer)
	}

	s.mu.Lock()
	s.timers[client.ChatID] = armed
	s.mu.Unlock()

	s.logger.Info("напоминания взведены",
		zap.Int64("chat_id", client.ChatID),
		zap.Int("count", len(armed)),
	)
	return len(armed)
}

// Stop снимает все таймеры чата (например, при удалении клиента).
func (s *Scheduler) Stop(chatID int64) {
	s.mu.Lock()
	timers := s.timers[chatID]
	delete(s.timers, chatID)
	s.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
}

// Rehydrate перевзводит напоминания по сохранённым клиентам после
// перезапуска процесса. Идемпотентна.
func (s *Scheduler) Rehydrate(clients []models.Client) int {
	total := 0
	for _, client := range clients {
		total += s.Arm(client)
	}
	s.logger.Info("напоминания восстановлены после запуска",
		zap.Int("clients", len(clients)),
		zap.Int("timers", total),
	)
	return total
}
