package practicebot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"masterpay/internal/models"
	"masterpay/internal/practice"
)

const (
	welcomeText = `👋 *Бот сопровождения практик*

Я слежу за программой клиента и напоминаю о каждой практике за 3 дня до дедлайна.

📝 *Команды:*
/setup - настроить сопровождение клиента
/status - текущая программа и ближайшие дедлайны
/stop - остановить сопровождение
/help - эта справка`

	dateLayout = "02.01.2006"
)

// TelegramClient - интерфейс для взаимодействия с Telegram API.
type TelegramClient interface {
	SendMessage(chatID int64, threadID int, text string) (int, error)
	SendMarkdownMessage(chatID int64, threadID int, text string) (int, error)
	StartBot(ctx context.Context) (<-chan models.Message, <-chan models.CallbackQuery, error)
}

type setupStep int

const (
	stepName setupStep = iota
	stepPracticeCount
)

// setupSession - состояние диалога настройки клиента (два шага).
type setupSession struct {
	step setupStep
	name string
}

// Service - сервис бота сопровождения практик.
type Service struct {
	telegram  TelegramClient
	store     *practice.Store
	scheduler *practice.Scheduler
	logger    *zap.Logger
	now       func() time.Time

	// Диалоги настройки. Доступ только из цикла Start,
	// блокировка не нужна.
	sessions map[int64]*setupSession
}

// NewService создает сервис бота сопровождения практик.
func NewService(telegram TelegramClient, store *practice.Store, scheduler *practice.Scheduler, logger *zap.Logger) *Service {
	return &Service{
		telegram:  telegram,
		store:     store,
		scheduler: scheduler,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[int64]*setupSession),
	}
}

// Start восстанавливает напоминания по сохранённым клиентам и запускает
// обработку входящих сообщений.
func (s *Service) Start(ctx context.Context) error {
	clients, err := s.store.All()
	if err != nil {
		s.logger.Error("не удалось загрузить клиентов при запуске", zap.Error(err))
		return err
	}
	s.scheduler.Rehydrate(clients)

	messages, callbacks, err := s.telegram.StartBot(ctx)
	if err != nil {
		s.logger.Error("ошибка при запуске бота", zap.Error(err))
		return err
	}

	s.logger.Info("бот сопровождения запущен", zap.Int("clients", len(clients)))

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				s.logger.Info("поток обновлений закрыт, останавливаемся")
				return nil
			}
			s.handleMessage(msg)
		case _, ok := <-callbacks:
			// Инлайн-кнопок у этого бота нет, канал только вычитывается.
			if !ok {
				callbacks = nil
			}
		}
	}
}

func (s *Service) handleMessage(msg models.Message) {
	s.logger.Info("получено сообщение",
		zap.Int64("chat_id", msg.ChatID),
		zap.String("text", msg.Text),
	)

	if strings.HasPrefix(msg.Text, "/") {
		s.handleCommand(msg.ChatID, command(msg.Text))
		return
	}

	session, ok := s.sessions[msg.ChatID]
	if !ok {
		// Свободный текст вне настройки - шум.
		return
	}

	switch session.step {
	case stepName:
		session.name = strings.TrimSpace(msg.Text)
		session.step = stepPracticeCount
		s.send(msg.ChatID, "🔢 Сколько практик в программе? Введите число:")

	case stepPracticeCount:
		count, err := strconv.Atoi(strings.TrimSpace(msg.Text))
		if err != nil || count < 1 {
			s.send(msg.ChatID, "❌ Введите корректное количество практик (число больше 0):")
			return
		}
		s.finishSetup(msg.ChatID, session.name, count)
	}
}

func (s *Service) handleCommand(chatID int64, cmd string) {
	switch cmd {
	case "/start", "/help":
		s.sendMarkdown(chatID, welcomeText)

	case "/setup":
		// Повторная настройка перезаписывает клиента.
		s.sessions[chatID] = &setupSession{step: stepName}
		s.sendMarkdown(chatID, "📋 *Настройка сопровождения*\n\nВведите имя клиента:")

	case "/status":
		s.handleStatus(chatID)

	case "/stop":
		s.handleStop(chatID)
	}
}

func (s *Service) finishSetup(chatID int64, name string, count int) {
	delete(s.sessions, chatID)

	client := practice.NewClient(chatID, name, count, s.now())

	// Ошибка записи не откатывает настройку: напоминания взводятся,
	// а сбой сообщается в чат.
	if err := s.store.Save(client); err != nil {
		s.logger.Error("не удалось сохранить клиента",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
		s.send(chatID, "⚠️ Не удалось сохранить клиента. Сообщите администратору.")
	}

	armed := s.scheduler.Arm(client)

	s.sendMarkdown(chatID, fmt.Sprintf(`✅ *Сопровождение настроено!*

Клиент: %s
Практик: %d
Старт: %s
Завершение: %s

Напоминаний запланировано: %d (за 3 дня до каждой практики).`,
		client.Name,
		client.PracticeCount,
		client.StartDate.Format(dateLayout),
		client.EndDate.Format(dateLayout),
		armed,
	))
}

func (s *Service) handleStatus(chatID int64) {
	client, found, err := s.store.Get(chatID)
	if err != nil {
		s.logger.Error("не удалось прочитать клиента", zap.Error(err), zap.Int64("chat_id", chatID))
		s.send(chatID, "❌ Ошибка при загрузке данных клиента")
		return
	}
	if !found {
		s.send(chatID, "Клиент не настроен. Введите /setup для настройки сопровождения.")
		return
	}

	now := s.now()
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Программа клиента %s*\n\n", client.Name)
	fmt.Fprintf(&b, "Практик: %d\nСтарт: %s\nЗавершение: %s\n\n",
		client.PracticeCount,
		client.StartDate.Format(dateLayout),
		client.EndDate.Format(dateLayout),
	)

	upcoming := 0
	for _, m := range practice.Milestones(client) {
		if m.Deadline.Before(now) {
			continue
		}
		upcoming++
		marker := "•"
		if m.Final {
			marker = "🚨"
		}
		fmt.Fprintf(&b, "%s практика №%d - до %s\n", marker, m.Index, m.Deadline.Format(dateLayout))
	}
	if upcoming == 0 {
		b.WriteString("Все дедлайны программы уже прошли.")
	}

	s.sendMarkdown(chatID, b.String())
}

func (s *Service) handleStop(chatID int64) {
	s.scheduler.Stop(chatID)

	existed, err := s.store.Delete(chatID)
	if err != nil {
		s.logger.Error("не удалось удалить клиента", zap.Error(err), zap.Int64("chat_id", chatID))
		s.send(chatID, "❌ Ошибка при удалении клиента")
		return
	}
	if !existed {
		s.send(chatID, "Нет настроенного клиента. Введите /setup для настройки.")
		return
	}

	s.send(chatID, "🛑 Сопровождение остановлено, напоминания сняты.")
}

func (s *Service) send(chatID int64, text string) {
	if _, err := s.telegram.SendMessage(chatID, 0, text); err != nil {
		s.logger.Error("ошибка отправки сообщения", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func (s *Service) sendMarkdown(chatID int64, text string) {
	if _, err := s.telegram.SendMarkdownMessage(chatID, 0, text); err != nil {
		s.logger.Error("ошибка отправки сообщения", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func command(text string) string {
	cmd := strings.Fields(text)[0]
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return cmd
}
