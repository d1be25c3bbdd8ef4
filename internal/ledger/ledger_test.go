package ledger

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"masterpay/internal/models"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(filepath.Join(t.TempDir(), "payments_data.json"), zap.NewNop())
}

func record(id string, tranches ...models.RemainderPayment) models.SaleRecord {
	return models.SaleRecord{
		ID:                id,
		ClientName:        "Анна",
		MasterName:        "Иван",
		PackageType:       models.PackageScale,
		PracticesCount:    3,
		TotalAmount:       90000,
		PaidAmount:        60000,
		RemainingAmount:   30000,
		RemainderPayments: tranches,
		CreatedAt:         time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC),
		ChatID:            100,
		MessageThreadID:   7,
	}
}

func TestAppendAndList(t *testing.T) {
	repo := newTestRepository(t)

	records, err := repo.List()
	require.NoError(t, err)
	require.Empty(t, records)

	require.NoError(t, repo.Append(record("a")))
	require.NoError(t, repo.Append(record("b")))

	records, err = repo.List()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "a", records[0].ID)
	require.Equal(t, "b", records[1].ID)
	require.Equal(t, models.PackageScale, records[0].PackageType)
}

func TestConcurrentAppendsAreNotLost(t *testing.T) {
	repo := newTestRepository(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			require.NoError(t, repo.Append(record(fmt.Sprintf("rec-%d", i))))
		}(i)
	}
	wg.Wait()

	records, err := repo.List()
	require.NoError(t, err)
	require.Len(t, records, 10)
}

func TestUpcomingSortedAndFiltered(t *testing.T) {
	repo := newTestRepository(t)
	testTime := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(record("a",
		models.RemainderPayment{Amount: 15000, Date: "20.09.25"},
		models.RemainderPayment{Amount: 10000, Date: "05.09.25"},
	)))
	// просроченный транш не попадает в расписание
	require.NoError(t, repo.Append(record("b",
		models.RemainderPayment{Amount: 5000, Date: "01.01.2020"},
	)))

	upcoming, err := repo.Upcoming(testTime)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	require.Equal(t, "05.09.25", upcoming[0].DueDateText)
	require.Equal(t, 4, upcoming[0].DaysUntil)
	require.Equal(t, "20.09.25", upcoming[1].DueDateText)
	require.Equal(t, 19, upcoming[1].DaysUntil)

	// привязка к исходному диалогу сохраняется
	require.Equal(t, int64(100), upcoming[0].ChatID)
	require.Equal(t, 7, upcoming[0].MessageThreadID)
	require.Equal(t, "a", upcoming[0].RecordID)

	// номер транша - позиция в записи, не позиция после сортировки
	require.Equal(t, 2, upcoming[0].TrancheIndex)
	require.Equal(t, 1, upcoming[1].TrancheIndex)
}

func TestUpcomingUnparseableDateFallsBack(t *testing.T) {
	repo := newTestRepository(t)
	testTime := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(record("a",
		models.RemainderPayment{Amount: 15000, Date: models.UnspecifiedDate},
	)))

	// запись не выпадает из расписания: дата через месяц
	upcoming, err := repo.Upcoming(testTime)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	require.Equal(t, testTime.AddDate(0, 1, 0), upcoming[0].DueDate)
	require.Equal(t, 30, upcoming[0].DaysUntil)
}

func TestUpcomingEmptyLedger(t *testing.T) {
	repo := newTestRepository(t)

	upcoming, err := repo.Upcoming(time.Now())
	require.NoError(t, err)
	require.Empty(t, upcoming)
}
