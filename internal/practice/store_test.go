package practice

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "clients_data.json"), zap.NewNop())
}

func TestStoreSaveAndGet(t *testing.T) {
	store := newTestStore(t)
	client := NewClient(100, "Анна", 3, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))

	_, found, err := store.Get(100)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Save(client))

	got, found, err := store.Get(100)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, client, got)
}

func TestStoreSaveOverwritesClient(t *testing.T) {
	store := newTestStore(t)
	startDate := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(NewClient(100, "Анна", 3, startDate)))
	// повторная настройка перезаписывает запись чата
	require.NoError(t, store.Save(NewClient(100, "Анна", 5, startDate)))

	got, found, err := store.Get(100)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 5, got.PracticeCount)

	all, err := store.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestStoreAllSortedByChatID(t *testing.T) {
	store := newTestStore(t)
	startDate := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(NewClient(300, "Ольга", 2, startDate)))
	require.NoError(t, store.Save(NewClient(100, "Анна", 3, startDate)))
	require.NoError(t, store.Save(NewClient(200, "Иван", 4, startDate)))

	all, err := store.All()
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, int64(100), all[0].ChatID)
	require.Equal(t, int64(200), all[1].ChatID)
	require.Equal(t, int64(300), all[2].ChatID)
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(NewClient(100, "Анна", 3, time.Now().UTC())))

	existed, err := store.Delete(100)
	require.NoError(t, err)
	require.True(t, existed)

	_, found, err := store.Get(100)
	require.NoError(t, err)
	require.False(t, found)

	existed, err = store.Delete(100)
	require.NoError(t, err)
	require.False(t, existed)
}
