package sale

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"masterpay/internal/models"
	"masterpay/internal/utils"
)

// Данные инлайн-кнопок.
const (
	CallbackAddTranches    = "add_tranches"
	CallbackSkipTranches   = "skip_tranches"
	CallbackNewCalculation = "new_calculation"
)

// Prompt - одно исходящее сообщение, которое транспорт должен отправить.
type Prompt struct {
	Text     string
	Markdown bool
	Buttons  [][]models.Button

	// EditMessageID > 0 - отредактировать это сообщение вместо отправки нового.
	EditMessageID int

	// Track - запомнить ID отправленного сообщения в сессии,
	// чтобы удалить его при завершении расчёта.
	Track bool
}

// Reply - результат одного шага диалога: что отправить, что удалить,
// завершился ли расчёт.
type Reply struct {
	Prompts          []Prompt
	DeleteMessageIDs []int

	// CallbackText - ответ на callback-запрос (всплывающая подсказка).
	CallbackText string

	// Completed выставляется вместе с Record, когда расчёт завершён
	// и запись готова к сохранению.
	Completed bool
	Record    *models.SaleRecord

	// FollowUp отправляется с небольшой паузой после основных сообщений
	// (кнопка нового расчёта под итоговым сообщением).
	FollowUp *Prompt
}

// Flow - машина состояний расчёта продажи. Один вызов на одно входящее
// событие; все переходы синхронные, транспорт снаружи.
type Flow struct {
	sessions *Store
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

func NewFlow(sessions *Store, logger *zap.Logger) *Flow {
	return &Flow{
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// TrackMessage запоминает отправленное промежуточное сообщение сессии.
func (f *Flow) TrackMessage(key ConversationKey, messageID int) {
	f.sessions.TrackMessage(key, messageID)
}

// Start начинает новый расчёт. Повторный /sale при активной сессии
// игнорируется: started=false и пустой Reply.
func (f *Flow) Start(key ConversationKey) (Reply, bool) {
	if f.sessions.Get(key) != nil {
		f.logger.Info("сессия уже активна, повторный запуск игнорируется",
			zap.String("session_key", key.String()),
		)
		return Reply{}, false
	}

	f.sessions.Create(key)
	f.logger.Info("создана сессия расчёта", zap.String("session_key", key.String()))

	return Reply{
		Prompts: []Prompt{{
			Text:     "🗝️ *Расчёт новой продажи*\n\nВведите имя клиента:",
			Markdown: true,
			Track:    true,
		}},
	}, true
}

// Cancel отменяет активный расчёт из любого шага. existed=false,
// если отменять было нечего.
func (f *Flow) Cancel(key ConversationKey) (Reply, bool) {
	session := f.sessions.Get(key)
	if session == nil {
		return Reply{}, false
	}

	deleteIDs := session.PendingMessageIDs
	f.sessions.Delete(key)
	f.logger.Info("сессия отменена", zap.String("session_key", key.String()))

	return Reply{DeleteMessageIDs: deleteIDs}, true
}

// HandleText обрабатывает свободный текст. Текст вне активной сессии -
// шум, возвращается пустой Reply.
func (f *Flow) HandleText(key ConversationKey, text string) Reply {
	session := f.sessions.Get(key)
	if session == nil {
		return Reply{}
	}

	f.logger.Debug("обрабатываем ввод",
		zap.String("session_key", key.String()),
		zap.Int("step", int(session.Step)),
	)

	switch session.Step {
	case StepClientName:
		session.Data.ClientName = strings.TrimSpace(text)
		session.Step = StepMasterName
		return prompt("👤 Теперь введите имя мастера поддержки, который вёл клиента:")

	case StepMasterName:
		session.Data.MasterName = strings.TrimSpace(text)
		session.Step = StepPackage
		return Reply{
			Prompts: []Prompt{{
				Text:    "📦 Выберите пакет:",
				Buttons: packageButtons(),
				Track:   true,
			}},
		}

	case StepPracticesCount:
		count, err := parseCount(text)
		if err != nil {
			return prompt("❌ Пожалуйста, введите корректное количество практик (число больше 0):")
		}
		session.Data.PracticesCount = count
		session.Step = StepTotalAmount
		return prompt("💰 Введите полную стоимость пакета (в рублях):")

	case StepTotalAmount:
		amount, err := parseAmount(text)
		if err != nil {
			return prompt("❌ Пожалуйста, введите корректную сумму:")
		}
		session.Data.TotalAmount = amount
		session.Step = StepPaidAmount
		return prompt("💳 Введите сумму, которую клиент оплатил:")

	case StepPaidAmount:
		amount, err := parseAmount(text)
		if err != nil {
			return prompt("❌ Пожалуйста, введите корректную сумму оплаты:")
		}
		if amount > session.Data.TotalAmount {
			return prompt("⚠️ Оплаченная сумма не может быть больше полной стоимости. Введите корректную сумму:")
		}
		session.Data.PaidAmount = amount

		remainder := session.Data.TotalAmount - amount
		if remainder <= 0 {
			// полная оплата - сразу завершаем
			return f.finalize(session)
		}

		session.Step = StepRemainderChoice
		session.Data.RemainderPayments = []models.RemainderPayment{}
		session.Data.RemainingAmount = remainder
		return Reply{
			Prompts: []Prompt{{
				Text: fmt.Sprintf("💰 Остаток к доплате: %s\n\nХотите указать даты будущих траншей?",
					utils.FormatAmount(remainder)),
				Buttons: [][]models.Button{
					{{Text: "✅ Да, указать даты траншей", Data: CallbackAddTranches}},
					{{Text: "⏩ Нет, просто указать общий остаток", Data: CallbackSkipTranches}},
				},
				Track: true,
			}},
		}

	case StepTranchesCount:
		count, err := parseCount(text)
		if err != nil {
			return prompt("❌ Введите корректное количество траншей (число больше 0):")
		}
		session.Data.TotalTranches = count
		session.Data.TrancheIndex = 1
		session.Step = StepTrancheAmount
		return prompt(fmt.Sprintf("💰 Транш 1 из %d\n\nВведите сумму первого транша:", count))

	case StepTrancheAmount:
		amount, err := parseAmount(text)
		if err != nil {
			return prompt("❌ Введите корректную сумму транша:")
		}
		if amount > session.Data.RemainingAmount {
			return prompt(fmt.Sprintf("⚠️ Сумма транша не может быть больше остатка (%s):",
				utils.FormatAmount(session.Data.RemainingAmount)))
		}
		session.Data.CurrentTrancheAmount = amount
		session.Step = StepTrancheDate
		return prompt(fmt.Sprintf("📅 Введите дату %d-го транша (например: 15.09.25 или 15 сентября):",
			session.Data.TrancheIndex))

	case StepTrancheDate:
		date := strings.TrimSpace(text)
		tranche := models.RemainderPayment{
			Amount: session.Data.CurrentTrancheAmount,
			Date:   date,
		}
		session.Data.RemainderPayments = append(session.Data.RemainderPayments, tranche)
		session.Data.RemainingAmount -= tranche.Amount
		session.Data.TrancheIndex++

		if session.Data.TrancheIndex <= session.Data.TotalTranches && session.Data.RemainingAmount > 0 {
			session.Step = StepTrancheAmount
			return prompt(fmt.Sprintf(
				"✅ Транш %d добавлен: %s до %s\n\n💰 Транш %d из %d\nОстаток: %s\n\nВведите сумму %d-го транша:",
				session.Data.TrancheIndex-1,
				utils.FormatAmount(tranche.Amount),
				date,
				session.Data.TrancheIndex,
				session.Data.TotalTranches,
				utils.FormatAmount(session.Data.RemainingAmount),
				session.Data.TrancheIndex,
			))
		}

		// Транши закончились. Неучтённый остаток не теряем:
		// добавляем последний транш без даты.
		if session.Data.RemainingAmount > 0 {
			session.Data.RemainderPayments = append(session.Data.RemainderPayments, models.RemainderPayment{
				Amount: session.Data.RemainingAmount,
				Date:   models.UnspecifiedDate,
			})
		}
		return f.finalize(session)

	default:
		// Шаги StepPackage и StepRemainderChoice ждут нажатия кнопки,
		// свободный текст на них не продвигает расчёт.
		return Reply{}
	}
}

// HandleChoice обрабатывает нажатие инлайн-кнопки.
func (f *Flow) HandleChoice(key ConversationKey, data string, messageID int) Reply {
	if data == CallbackNewCalculation {
		f.sessions.Create(key)
		f.logger.Info("создана сессия нового расчёта", zap.String("session_key", key.String()))
		return Reply{
			CallbackText:     "Начинаем новый расчёт!",
			DeleteMessageIDs: []int{messageID},
			Prompts: []Prompt{{
				Text:     "🗝️ *Новый расчёт продажи*\n\nВведите имя клиента:",
				Markdown: true,
				Track:    true,
			}},
		}
	}

	session := f.sessions.Get(key)
	if session == nil {
		return Reply{CallbackText: "Сессия истекла. Начните заново с /sale"}
	}

	switch session.Step {
	case StepPackage:
		pkg := models.PackageType(data)
		if !pkg.Valid() {
			return Reply{CallbackText: "Неизвестный пакет"}
		}
		session.Data.PackageType = pkg
		session.Step = StepPracticesCount
		f.logger.Info("выбран пакет",
			zap.String("session_key", key.String()),
			zap.String("package", data),
		)
		return Reply{
			CallbackText: fmt.Sprintf("Выбран %s", data),
			Prompts: []Prompt{{
				Text: fmt.Sprintf("✅ Выбран пакет: *%s* (%d%%)\n\nТеперь введите количество практик:",
					data, int(math.Round(pkg.Rate()*100))),
				Markdown:      true,
				EditMessageID: messageID,
			}},
		}

	case StepRemainderChoice:
		switch data {
		case CallbackAddTranches:
			session.Step = StepTranchesCount
			return Reply{
				CallbackText: "Указываем количество траншей",
				Prompts: []Prompt{{
					Text: fmt.Sprintf("💰 Остаток: %s\n\nСколько будет траншей? Введите число:",
						utils.FormatAmount(session.Data.RemainingAmount)),
					EditMessageID: messageID,
				}},
			}
		case CallbackSkipTranches:
			reply := f.finalize(session)
			reply.CallbackText = "Указываем общий остаток"
			return reply
		}
	}

	return Reply{}
}

// finalize собирает итоговую запись, формирует финальное сообщение
// и закрывает сессию.
func (f *Flow) finalize(session *Session) Reply {
	record := &models.SaleRecord{
		ID:                f.newID(),
		ClientName:        session.Data.ClientName,
		MasterName:        session.Data.MasterName,
		PackageType:       session.Data.PackageType,
		PracticesCount:    session.Data.PracticesCount,
		TotalAmount:       session.Data.TotalAmount,
		PaidAmount:        session.Data.PaidAmount,
		RemainingAmount:   session.Data.TotalAmount - session.Data.PaidAmount,
		RemainderPayments: session.Data.RemainderPayments,
		CreatedAt:         f.now(),
		ChatID:            session.Key.ChatID,
		MessageThreadID:   session.Key.MessageThreadID,
	}

	deleteIDs := session.PendingMessageIDs
	f.sessions.Delete(session.Key)

	f.logger.Info("расчёт завершён",
		zap.String("session_key", session.Key.String()),
		zap.String("record_id", record.ID),
		zap.String("client_name", record.ClientName),
	)

	return Reply{
		DeleteMessageIDs: deleteIDs,
		Completed:        true,
		Record:           record,
		Prompts: []Prompt{{
			Text: Generate(*record),
		}},
		FollowUp: &Prompt{
			Text: "⬆️",
			Buttons: [][]models.Button{
				{{Text: "➕ Новый расчёт", Data: CallbackNewCalculation}},
			},
		},
	}
}

func prompt(text string) Reply {
	return Reply{Prompts: []Prompt{{Text: text, Track: true}}}
}

func packageButtons() [][]models.Button {
	icons := map[models.PackageType]string{
		models.PackageStarter:   "🟢",
		models.PackageExpansion: "🔵",
		models.PackageScale:     "🟡",
		models.PackageAbsolute:  "🔴",
	}
	var rows [][]models.Button
	for _, pkg := range models.AllPackages() {
		rows = append(rows, []models.Button{{
			Text: fmt.Sprintf("%s %s (%d%%)", icons[pkg], pkg, int(math.Round(pkg.Rate()*100))),
			Data: string(pkg),
		}})
	}
	return rows
}

// parseCount разбирает положительное целое (количество практик, траншей).
func parseCount(text string) (int, error) {
	count, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, err
	}
	if count < 1 {
		return 0, fmt.Errorf("количество должно быть больше нуля: %d", count)
	}
	return count, nil
}

// parseAmount разбирает положительную сумму; пробелы-разделители допускаются.
func parseAmount(text string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(text), " ", "")
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, fmt.Errorf("сумма должна быть больше нуля: %v", amount)
	}
	return amount, nil
}
