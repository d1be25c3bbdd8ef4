package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"masterpay/internal/models"
	"masterpay/internal/sale"
	"masterpay/internal/utils"
)

const (
	welcomeText = `🎉 *Добро пожаловать в бот расчёта оплат!*

Этот бот поможет автоматически рассчитать комиссии для мастеров поддержки и сгенерировать красивое сообщение для команды.

🚀 *Для начала введите:*
/sale - начать новый расчёт

📚 *Другие команды:*
/pay - предстоящие платежи
/help - справка по командам
/cancel - отменить текущий расчёт`

	helpText = `🤖 *Бот расчёта оплат*

📝 *Команды:*
/sale - начать расчёт новой продажи
/pay - предстоящие платежи
/cancel - отменить текущий расчёт
/help - показать эту справку

💰 *Тарифы комиссий:*
• Стартовый набор - 7%
• Расширение - 8%
• Масштаб - 10%
• Абсолют - 12%

Просто введите /sale и следуйте инструкциям!`
)

// Сроки автоудаления служебных сообщений.
const (
	welcomeTTL  = 10 * time.Second
	helpTTL     = 15 * time.Second
	cancelTTL   = 3 * time.Second
	noticeTTL   = 5 * time.Second
	paymentsTTL = 30 * time.Second

	// Пауза перед кнопкой нового расчёта под итоговым сообщением.
	followUpDelay = 500 * time.Millisecond
)

// NewService создает основной сервис бота расчёта продаж.
func NewService(telegram TelegramClient, ledger PaymentLedger, flow *sale.Flow, logger *zap.Logger) *Service {
	return &Service{
		telegram: telegram,
		ledger:   ledger,
		flow:     flow,
		logger:   logger,
		now:      time.Now,
	}
}

// Start запускает обработку входящих событий. Сообщения и нажатия кнопок
// обрабатываются в одном цикле строго по одному: сессии изменяются только
// отсюда, и блокировки на уровне шагов не нужны.
func (s *Service) Start(ctx context.Context) error {
	messages, callbacks, err := s.telegram.StartBot(ctx)
	if err != nil {
		s.logger.Error("ошибка при запуске бота", zap.Error(err))
		return err
	}

	s.logger.Info("бот запущен, ожидаем команды")

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				s.logger.Info("поток обновлений закрыт, останавливаемся")
				return nil
			}
			s.handleMessage(msg)
		case cb, ok := <-callbacks:
			if !ok {
				callbacks = nil
				continue
			}
			s.handleCallback(cb)
		}
	}
}

func (s *Service) handleMessage(msg models.Message) {
	key := sale.ConversationKey{ChatID: msg.ChatID, MessageThreadID: msg.MessageThreadID}

	s.logger.Info("получено сообщение",
		zap.Int64("chat_id", msg.ChatID),
		zap.String("session_key", key.String()),
		zap.String("from", msg.FullName),
		zap.String("text", msg.Text),
	)

	// Сообщения пользователя не задерживаются в чате: и команды,
	// и ответы на шаги расчёта удаляются сразу после обработки.
	s.telegram.DeleteMessage(msg.ChatID, msg.MessageID)

	if strings.HasPrefix(msg.Text, "/") {
		s.handleCommand(key, command(msg.Text))
		return
	}

	reply := s.flow.HandleText(key, msg.Text)
	s.apply(key, reply)
}

func (s *Service) handleCommand(key sale.ConversationKey, cmd string) {
	switch cmd {
	case "/start":
		s.sendTransient(key, welcomeText, true, welcomeTTL)

	case "/help":
		s.sendTransient(key, helpText, true, helpTTL)

	case "/sale":
		reply, started := s.flow.Start(key)
		if !started {
			return
		}
		s.apply(key, reply)

	case "/cancel":
		reply, existed := s.flow.Cancel(key)
		s.apply(key, reply)
		if existed {
			s.sendTransient(key, "❌ Расчёт отменён.\n\nДля нового расчёта введите /sale", false, cancelTTL)
		} else {
			s.sendTransient(key, "Нет активного расчёта для отмены.\n\nДля начала расчёта введите /sale", false, cancelTTL)
		}

	case "/pay":
		s.handleUpcomingPayments(key)
	}
}

func (s *Service) handleCallback(cb models.CallbackQuery) {
	key := sale.ConversationKey{ChatID: cb.ChatID, MessageThreadID: cb.MessageThreadID}

	s.logger.Info("получен callback-запрос",
		zap.String("data", cb.Data),
		zap.String("session_key", key.String()),
	)

	reply := s.flow.HandleChoice(key, cb.Data, cb.MessageID)

	if err := s.telegram.AnswerCallback(cb.ID, reply.CallbackText); err != nil {
		s.logger.Error("ошибка ответа на callback", zap.Error(err))
	}

	s.apply(key, reply)
}

// apply выполняет Reply машины состояний: удаляет, сохраняет, отправляет.
func (s *Service) apply(key sale.ConversationKey, reply sale.Reply) {
	for _, id := range reply.DeleteMessageIDs {
		s.telegram.DeleteMessage(key.ChatID, id)
	}

	// Запись сохраняется до отправки итогового сообщения. Ошибка записи
	// не откатывает расчёт: итог всё равно уходит в чат, а сбой
	// сообщается оператору.
	if reply.Completed && reply.Record != nil {
		if err := s.ledger.Append(*reply.Record); err != nil {
			s.logger.Error("не удалось сохранить запись о платеже",
				zap.Error(err),
				zap.String("record_id", reply.Record.ID),
			)
			s.sendTransient(key, "⚠️ Не удалось сохранить запись о платеже. Сообщите администратору.", false, noticeTTL)
		}
	}

	for _, p := range reply.Prompts {
		s.sendPrompt(key, p)
	}

	if reply.FollowUp != nil {
		followUp := *reply.FollowUp
		time.AfterFunc(followUpDelay, func() {
			s.sendPrompt(key, followUp)
		})
	}
}

func (s *Service) sendPrompt(key sale.ConversationKey, p sale.Prompt) {
	if p.EditMessageID > 0 {
		if err := s.telegram.EditMessageText(key.ChatID, p.EditMessageID, p.Text, p.Markdown); err != nil {
			s.logger.Error("ошибка редактирования сообщения",
				zap.Error(err),
				zap.Int("message_id", p.EditMessageID),
			)
		}
		return
	}

	var (
		messageID int
		err       error
	)
	switch {
	case len(p.Buttons) > 0:
		messageID, err = s.telegram.SendMessageWithInlineKeyboard(key.ChatID, key.MessageThreadID, p.Text, p.Markdown, p.Buttons)
	case p.Markdown:
		messageID, err = s.telegram.SendMarkdownMessage(key.ChatID, key.MessageThreadID, p.Text)
	default:
		messageID, err = s.telegram.SendMessage(key.ChatID, key.MessageThreadID, p.Text)
	}
	if err != nil {
		s.logger.Error("ошибка отправки сообщения",
			zap.Error(err),
			zap.Int64("chat_id", key.ChatID),
		)
		return
	}

	if p.Track {
		s.flow.TrackMessage(key, messageID)
	}
}

// handleUpcomingPayments обрабатывает команду /pay: список будущих траншей.
func (s *Service) handleUpcomingPayments(key sale.ConversationKey) {
	upcoming, err := s.ledger.Upcoming(s.now())
	if err != nil {
		s.logger.Error("ошибка при получении платежей", zap.Error(err))
		s.sendTransient(key, "❌ Ошибка при загрузке данных о платежах", false, noticeTTL)
		return
	}

	if len(upcoming) == 0 {
		s.sendTransient(key, "📋 Нет предстоящих платежей", false, noticeTTL)
		return
	}

	s.sendTransient(key, renderUpcoming(upcoming), true, paymentsTTL)
}

func renderUpcoming(upcoming []models.UpcomingPayment) string {
	var b strings.Builder
	b.WriteString("📅 *Предстоящие платежи:*\n\n")

	for _, payment := range upcoming {
		urgencyIcon := "🟢"
		switch {
		case payment.DaysUntil <= 3:
			urgencyIcon = "🔴"
		case payment.DaysUntil <= 7:
			urgencyIcon = "🟡"
		}

		daysText := fmt.Sprintf("через %d дн.", payment.DaysUntil)
		switch payment.DaysUntil {
		case 0:
			daysText = "сегодня"
		case 1:
			daysText = "завтра"
		}

		fmt.Fprintf(&b, "%s *%s*\n", urgencyIcon, payment.ClientName)
		fmt.Fprintf(&b, "   Мастер: %s\n", payment.MasterName)
		fmt.Fprintf(&b, "   Пакет: %s\n", payment.PackageType)
		fmt.Fprintf(&b, "   Сумма: %s\n", utils.FormatAmount(payment.Amount))
		fmt.Fprintf(&b, "   До: %s (%s)\n\n", payment.DueDateText, daysText)
	}

	b.WriteString("\n🔴 Срочно (≤3 дней) | 🟡 Скоро (≤7 дней) | 🟢 Позже")
	return b.String()
}

// sendTransient отправляет сообщение и удаляет его через ttl.
func (s *Service) sendTransient(key sale.ConversationKey, text string, markdown bool, ttl time.Duration) {
	var (
		messageID int
		err       error
	)
	if markdown {
		messageID, err = s.telegram.SendMarkdownMessage(key.ChatID, key.MessageThreadID, text)
	} else {
		messageID, err = s.telegram.SendMessage(key.ChatID, key.MessageThreadID, text)
	}
	if err != nil {
		s.logger.Error("ошибка отправки сообщения",
			zap.Error(err),
			zap.Int64("chat_id", key.ChatID),
		)
		return
	}

	time.AfterFunc(ttl, func() {
		s.telegram.DeleteMessage(key.ChatID, messageID)
	})
}

// command выделяет имя команды: отбрасывает аргументы и @упоминание бота.
func command(text string) string {
	cmd := strings.Fields(text)[0]
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return cmd
}
