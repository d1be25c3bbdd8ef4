package models

// Message - входящее текстовое сообщение из Telegram.
type Message struct {
	ChatID          int64
	MessageThreadID int // ID темы в группе-форуме, 0 для обычного чата
	MessageID       int
	Text            string
	FullName        string // имя и фамилия отправителя, для журнала
}

// CallbackQuery - нажатие на инлайн-кнопку.
type CallbackQuery struct {
	ID              string // ID callback-запроса
	ChatID          int64
	MessageThreadID int
	MessageID       int    // ID сообщения, в котором была нажата кнопка
	Data            string // данные кнопки
}

// Button - инлайн-кнопка исходящего сообщения.
type Button struct {
	Text string
	Data string
}
