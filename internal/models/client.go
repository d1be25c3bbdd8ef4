package models

import "time"

// Client - клиент второго бота (сопровождение практик).
// Один клиент на чат; повторная настройка перезаписывает запись.
// Даты сериализуются в ISO-8601 стандартным маршалингом time.Time.
type Client struct {
	ChatID        int64     `json:"chat_id"`
	Name          string    `json:"name"`
	PracticeCount int       `json:"practice_count"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
}
