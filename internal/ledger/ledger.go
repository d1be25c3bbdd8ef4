package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"masterpay/internal/models"
)

// Repository хранит записи о продажах в JSON-файле (список SaleRecord).
// Формат файла - внешний контракт: его читают и другие инструменты команды.
// Записи только добавляются; конкурентные добавления сериализуются мьютексом.
type Repository struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewRepository создает репозиторий записей о продажах.
func NewRepository(path string, logger *zap.Logger) *Repository {
	return &Repository{
		path:   path,
		logger: logger,
	}
}

// List возвращает все записи о продажах. Отсутствующий файл - пустой список.
func (r *Repository) List() ([]models.SaleRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// Append добавляет запись в конец файла. Запись считается надёжно
// сохранённой только после успешного переименования временного файла.
func (r *Repository) Append(record models.SaleRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		r.logger.Error("не удалось прочитать файл платежей",
			zap.Error(err),
			zap.String("path", r.path),
		)
		return err
	}

	records = append(records, record)

	if err := r.save(records); err != nil {
		r.logger.Error("не удалось сохранить файл платежей",
			zap.Error(err),
			zap.String("path", r.path),
		)
		return err
	}

	r.logger.Info("добавлена запись о платеже",
		zap.String("record_id", record.ID),
		zap.String("client_name", record.ClientName),
	)
	return nil
}

// Upcoming строит плоский список будущих траншей по всем записям.
// В список попадают только транши, срок которых ещё не прошёл
// (0 дней = сегодня); результат отсортирован по возрастанию даты.
func (r *Repository) Upcoming(now time.Time) ([]models.UpcomingPayment, error) {
	records, err := r.List()
	if err != nil {
		return nil, err
	}

	var upcoming []models.UpcomingPayment
	for _, record := range records {
		for i, remainder := range record.RemainderPayments {
			due, _ := ParseDueDate(remainder.Date, now)
			daysUntil := DaysUntil(due, now)
			if daysUntil < 0 {
				continue
			}
			upcoming = append(upcoming, models.UpcomingPayment{
				ClientName:      record.ClientName,
				MasterName:      record.MasterName,
				PackageType:     record.PackageType,
				Amount:          remainder.Amount,
				TrancheIndex:    i + 1,
				DueDate:         due,
				DueDateText:     remainder.Date,
				DaysUntil:       daysUntil,
				RecordID:        record.ID,
				ChatID:          record.ChatID,
				MessageThreadID: record.MessageThreadID,
			})
		}
	}

	sort.Slice(upcoming, func(i, j int) bool {
		return upcoming[i].DueDate.Before(upcoming[j].DueDate)
	})

	return upcoming, nil
}

func (r *Repository) load() ([]models.SaleRecord, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return []models.SaleRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("чтение %s: %w", r.path, err)
	}

	var records []models.SaleRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("разбор %s: %w", r.path, err)
	}
	return records, nil
}

func (r *Repository) save(records []models.SaleRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("запись %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, filepath.Clean(r.path)); err != nil {
		return fmt.Errorf("переименование %s: %w", tmp, err)
	}
	return nil
}
