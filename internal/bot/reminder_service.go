package bot

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"masterpay/internal/models"
	"masterpay/internal/utils"
)

// ReminderSender - часть телеграм-клиента, нужная напоминаниям.
type ReminderSender interface {
	SendMarkdownMessage(chatID int64, threadID int, text string) (int, error)
}

// UpcomingSource - источник будущих траншей.
type UpcomingSource interface {
	Upcoming(now time.Time) ([]models.UpcomingPayment, error)
}

// ReminderService отвечает за напоминания о будущих траншах:
// за 3 дня до срока и в день платежа, в тот же чат и тему,
// где была создана продажа.
type ReminderService struct {
	ledger   UpcomingSource
	telegram ReminderSender
	logger   *zap.Logger

	checkPeriod  time.Duration // период проверок
	startupDelay time.Duration // первая проверка вскоре после запуска
	now          func() time.Time

	// Отметки уже отправленных напоминаний: транш не уведомляется
	// повторно той же отметкой, даже если проверки чаще раза в сутки.
	// Отметки живут в памяти процесса: после перезапуска напоминание
	// может уйти ещё раз - допустимое ограничение.
	mu   sync.Mutex
	sent map[string]struct{}

	stop chan struct{}
}

// NewReminderService создает сервис напоминаний о платежах.
func NewReminderService(ledger UpcomingSource, telegram ReminderSender, logger *zap.Logger, checkPeriod time.Duration) *ReminderService {
	if checkPeriod <= 0 {
		checkPeriod = 12 * time.Hour
	}
	return &ReminderService{
		ledger:       ledger,
		telegram:     telegram,
		logger:       logger,
		checkPeriod:  checkPeriod,
		startupDelay: 5 * time.Second,
		now:          time.Now,
		sent:         make(map[string]struct{}),
		stop:         make(chan struct{}),
	}
}

// Start запускает фоновый цикл проверки платежей.
func (s *ReminderService) Start() {
	s.logger.Info("запуск сервиса напоминаний",
		zap.Duration("check_period", s.checkPeriod),
	)
	go s.reminderLoop()
}

// Stop останавливает фоновый цикл.
func (s *ReminderService) Stop() {
	close(s.stop)
}

func (s *ReminderService) reminderLoop() {
	// Первая проверка вскоре после запуска, далее по расписанию.
	startup := time.NewTimer(s.startupDelay)
	defer startup.Stop()
	select {
	case <-startup.C:
		s.checkAndSendReminders()
	case <-s.stop:
		return
	}

	ticker := time.NewTicker(s.checkPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.checkAndSendReminders()
		case <-s.stop:
			return
		}
	}
}

// checkAndSendReminders проверяет будущие транши и рассылает напоминания.
func (s *ReminderService) checkAndSendReminders() {
	s.logger.Debug("проверка платежей для отправки напоминаний")

	upcoming, err := s.ledger.Upcoming(s.now())
	if err != nil {
		s.logger.Error("ошибка при получении платежей для напоминаний", zap.Error(err))
		return
	}

	for _, payment := range upcoming {
		if payment.DaysUntil != 3 && payment.DaysUntil != 0 {
			continue
		}
		if !s.markSent(payment) {
			continue
		}
		s.sendReminder(payment)
	}
}

// markSent отмечает напоминание отправленным. false - уже отправляли.
// Ключ включает номер транша: два транша одной записи с одинаковой
// датой напоминаются каждый по отдельности.
func (s *ReminderService) markSent(payment models.UpcomingPayment) bool {
	key := fmt.Sprintf("%s|%d|%d", payment.RecordID, payment.TrancheIndex, payment.DaysUntil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sent[key]; ok {
		return false
	}
	s.sent[key] = struct{}{}
	return true
}

func (s *ReminderService) sendReminder(payment models.UpcomingPayment) {
	var text string
	if payment.DaysUntil == 3 {
		text = fmt.Sprintf(`⏰ *Напоминание о платеже через 3 дня*

🙋‍♀️ Клиент: *%s*
👤 Мастер: %s
📦 Пакет: %s
💰 Сумма: %s
📅 Дата: %s

💡 Самое время напомнить клиенту об оплате!`,
			payment.ClientName, payment.MasterName, payment.PackageType,
			utils.FormatAmount(payment.Amount), payment.DueDateText)
	} else {
		text = fmt.Sprintf(`🔔 *Платёж сегодня!*

🙋‍♀️ Клиент: *%s*
👤 Мастер: %s
📦 Пакет: %s
💰 Сумма: %s
📅 Дата: %s

🚨 Срочно свяжитесь с клиентом!`,
			payment.ClientName, payment.MasterName, payment.PackageType,
			utils.FormatAmount(payment.Amount), payment.DueDateText)
	}

	if _, err := s.telegram.SendMarkdownMessage(payment.ChatID, payment.MessageThreadID, text); err != nil {
		s.logger.Error("ошибка при отправке напоминания",
			zap.Error(err),
			zap.Int64("chat_id", payment.ChatID),
			zap.String("record_id", payment.RecordID),
		)
		return
	}

	s.logger.Info("напоминание о платеже отправлено",
		zap.String("client_name", payment.ClientName),
		zap.Int("days_until", payment.DaysUntil),
	)
}
