package practice

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"masterpay/internal/models"
)

// Store хранит клиентов в JSON-файле: отображение "ID чата -> клиент".
// Один клиент на чат; повторная настройка перезаписывает запись.
type Store struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewStore создает хранилище клиентов.
func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger,
	}
}

// Get возвращает клиента чата; found=false, если клиента нет.
func (s *Store) Get(chatID int64) (models.Client, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients, err := s.load()
	if err != nil {
		return models.Client{}, false, err
	}
	client, ok := clients[key(chatID)]
	return client, ok, nil
}

// All возвращает всех клиентов в стабильном порядке по ID чата.
func (s *Store) All() ([]models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients, err := s.load()
	if err != nil {
		return nil, err
	}

	list := make([]models.Client, 0, len(clients))
	for _, client := range clients {
		list = append(list, client)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ChatID < list[j].ChatID })
	return list, nil
}

// Save записывает клиента, перезаписывая существующего для этого чата.
func (s *Store) Save(client models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients, err := s.load()
	if err != nil {
		return err
	}
	clients[key(client.ChatID)] = client

	if err := s.save(clients); err != nil {
		s.logger.Error("не удалось сохранить файл клиентов",
			zap.Error(err),
			zap.String("path", s.path),
		)
		return err
	}

	s.logger.Info("клиент сохранён",
		zap.Int64("chat_id", client.ChatID),
		zap.String("name", client.Name),
	)
	return nil
}

// Delete удаляет клиента чата. existed=false, если удалять было нечего.
func (s *Store) Delete(chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients, err := s.load()
	if err != nil {
		return false, err
	}
	if _, ok := clients[key(chatID)]; !ok {
		return false, nil
	}
	delete(clients, key(chatID))

	if err := s.save(clients); err != nil {
		return false, err
	}

	s.logger.Info("клиент удалён", zap.Int64("chat_id", chatID))
	return true, nil
}

func (s *Store) load() (map[string]models.Client, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]models.Client{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("чтение %s: %w", s.path, err)
	}

	var clients map[string]models.Client
	if err := json.Unmarshal(data, &clients); err != nil {
		return nil, fmt.Errorf("разбор %s: %w", s.path, err)
	}
	if clients == nil {
		clients = map[string]models.Client{}
	}
	return clients, nil
}

func (s *Store) save(clients map[string]models.Client) error {
	data, err := json.MarshalIndent(clients, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("запись %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("переименование %s: %w", tmp, err)
	}
	return nil
}

func key(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
