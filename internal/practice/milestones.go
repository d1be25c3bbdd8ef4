package practice

import (
	"fmt"
	"time"

	"masterpay/internal/models"
)

// Одна практика в неделю; напоминание уходит за 3 дня до дедлайна.
const (
	Interval     = 7 * 24 * time.Hour
	ReminderLead = 3 * 24 * time.Hour
)

const dateLayout = "02.01.2006"

// Milestone - одна контрольная точка программы сопровождения.
type Milestone struct {
	Index    int       // номер практики, с 1
	Deadline time.Time // дедлайн практики
	RemindAt time.Time // момент напоминания (за 3 дня)
	Final    bool      // последняя практика программы
}

// NewClient собирает клиента: дата завершения выводится из количества
// практик один раз при настройке.
func NewClient(chatID int64, name string, practiceCount int, start time.Time) models.Client {
	return models.Client{
		ChatID:        chatID,
		Name:          name,
		PracticeCount: practiceCount,
		StartDate:     start,
		EndDate:       start.AddDate(0, 0, 7*practiceCount),
	}
}

// Milestones вычисляет все контрольные точки клиента аналитически:
// дедлайн i-й практики = старт + i недель.
func Milestones(c models.Client) []Milestone {
	milestones := make([]Milestone, 0, c.PracticeCount)
	for i := 1; i <= c.PracticeCount; i++ {
		deadline := c.StartDate.AddDate(0, 0, 7*i)
		milestones = append(milestones, Milestone{
			Index:    i,
			Deadline: deadline,
			RemindAt: deadline.Add(-ReminderLead),
			Final:    i == c.PracticeCount,
		})
	}
	return milestones
}

// ReminderText строит текст напоминания о контрольной точке.
// Финальная практика - жёсткий дедлайн со штрафом за просрочку;
// чётные промежуточные дополнительно напоминают дату завершения
// всей программы; остальные - мягкая контрольная точка.
func ReminderText(c models.Client, m Milestone) string {
	switch {
	case m.Final:
		return fmt.Sprintf(`🚨 *Финальная практика через 3 дня!*

%s, дедлайн %s - жёсткий и не переносится.
За просрочку предусмотрен штраф. Завершите программу вовремя!`,
			c.Name, m.Deadline.Format(dateLayout))

	case m.Index%2 == 0:
		return fmt.Sprintf(`⏰ Через 3 дня практика №%d у %s (до %s).

Напоминаем: полное завершение программы - %s.`,
			m.Index, c.Name, m.Deadline.Format(dateLayout), c.EndDate.Format(dateLayout))

	default:
		return fmt.Sprintf("💡 Контрольная точка: через 3 дня практика №%d у %s (до %s). Держим темп!",
			m.Index, c.Name, m.Deadline.Format(dateLayout))
	}
}
