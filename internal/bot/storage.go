package bot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"masterpay/internal/models"
	"masterpay/internal/sale"
)

// TelegramClient - интерфейс для взаимодействия с Telegram API.
type TelegramClient interface {
	SendMessage(chatID int64, threadID int, text string) (int, error)
	SendMarkdownMessage(chatID int64, threadID int, text string) (int, error)
	SendMessageWithInlineKeyboard(chatID int64, threadID int, text string, markdown bool, buttons [][]models.Button) (int, error)
	EditMessageText(chatID int64, messageID int, text string, markdown bool) error
	DeleteMessage(chatID int64, messageID int)
	AnswerCallback(callbackID, text string) error
	StartBot(ctx context.Context) (<-chan models.Message, <-chan models.CallbackQuery, error)
}

// PaymentLedger - журнал записей о продажах.
type PaymentLedger interface {
	Append(record models.SaleRecord) error
	Upcoming(now time.Time) ([]models.UpcomingPayment, error)
}

// Service - основной сервис бота расчёта продаж.
type Service struct {
	telegram TelegramClient
	ledger   PaymentLedger
	flow     *sale.Flow
	logger   *zap.Logger
	now      func() time.Time
}
