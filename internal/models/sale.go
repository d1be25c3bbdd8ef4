package models

import "time"

// PackageType - пакет практик, который купил клиент. Каждому пакету
// соответствует фиксированная ставка комиссии мастера поддержки.
type PackageType string

const (
	PackageStarter   PackageType = "Стартовый набор"
	PackageExpansion PackageType = "Расширение"
	PackageScale     PackageType = "Масштаб"
	PackageAbsolute  PackageType = "Абсолют"
)

// AllPackages возвращает пакеты в порядке показа в клавиатуре выбора.
func AllPackages() []PackageType {
	return []PackageType{PackageStarter, PackageExpansion, PackageScale, PackageAbsolute}
}

// Rate возвращает ставку комиссии пакета.
func (p PackageType) Rate() float64 {
	switch p {
	case PackageStarter:
		return 0.07
	case PackageExpansion:
		return 0.08
	case PackageScale:
		return 0.10
	case PackageAbsolute:
		return 0.12
	}
	return 0
}

// LowerName возвращает название пакета со строчной буквы для подстановки
// внутрь предложения ("так как набор расширение").
func (p PackageType) LowerName() string {
	switch p {
	case PackageStarter:
		return "стартовый набор"
	case PackageExpansion:
		return "расширение"
	case PackageScale:
		return "масштаб"
	case PackageAbsolute:
		return "абсолют"
	}
	return string(p)
}

// Valid сообщает, известен ли такой пакет.
func (p PackageType) Valid() bool {
	return p.Rate() > 0
}

// UnspecifiedDate - дата транша, которую оператор не указал.
// Такой транш добавляется автоматически на неучтённый остаток.
const UnspecifiedDate = "не указана"

// RemainderPayment - один будущий транш доплаты.
// Date хранится в том виде, в каком её ввёл оператор ("15.09.25",
// "15 сентября"); разбор выполняется только при построении расписания.
type RemainderPayment struct {
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
}

// SaleRecord - завершённая запись о продаже. После создания не изменяется.
// JSON-теги повторяют формат файла payments_data.json.
type SaleRecord struct {
	ID                string             `json:"id"`
	ClientName        string             `json:"clientName"`
	MasterName        string             `json:"masterName"`
	PackageType       PackageType        `json:"packageType"`
	PracticesCount    int                `json:"practicesCount"`
	TotalAmount       float64            `json:"totalAmount"`
	PaidAmount        float64            `json:"paidAmount"`
	RemainingAmount   float64            `json:"remainingAmount"`
	RemainderPayments []RemainderPayment `json:"remainderPayments"`
	CreatedAt         time.Time          `json:"createdAt"`
	ChatID            int64              `json:"chatId"`
	MessageThreadID   int                `json:"messageThreadId"`
}

// UpcomingPayment - представление одного транша с вычисленной датой.
// Не хранится: строится по запросу из записей продаж.
type UpcomingPayment struct {
	ClientName      string
	MasterName      string
	PackageType     PackageType
	Amount          float64
	TrancheIndex    int // порядковый номер транша в записи, с 1
	DueDate         time.Time
	DueDateText     string
	DaysUntil       int
	RecordID        string
	ChatID          int64
	MessageThreadID int
}
