package sale

import (
	"fmt"
	"strconv"
	"sync"

	"masterpay/internal/models"
)

// ConversationKey однозначно определяет один параллельный расчёт:
// чат плюс тема форума (0 - обычный чат без тем).
type ConversationKey struct {
	ChatID          int64
	MessageThreadID int
}

func (k ConversationKey) String() string {
	thread := "main"
	if k.MessageThreadID != 0 {
		thread = strconv.Itoa(k.MessageThreadID)
	}
	return fmt.Sprintf("%d_%s", k.ChatID, thread)
}

// Step - текущий шаг машины состояний расчёта.
type Step int

const (
	StepClientName Step = iota
	StepMasterName
	StepPackage
	StepPracticesCount
	StepTotalAmount
	StepPaidAmount
	StepRemainderChoice
	StepTranchesCount
	StepTrancheAmount
	StepTrancheDate
)

// Draft - данные продажи, заполняемые по шагам.
type Draft struct {
	ClientName        string
	MasterName        string
	PackageType       models.PackageType
	PracticesCount    int
	TotalAmount       float64
	PaidAmount        float64
	RemainingAmount   float64
	RemainderPayments []models.RemainderPayment

	// состояние цикла по траншам
	TotalTranches        int
	TrancheIndex         int
	CurrentTrancheAmount float64
}

// Session - один активный расчёт. Живёт от /sale до завершения или отмены.
type Session struct {
	Key  ConversationKey
	Step Step
	Data Draft

	// ID промежуточных сообщений бота, которые удаляются при
	// завершении или отмене расчёта.
	PendingMessageIDs []int
}

// Store - хранилище активных сессий по ключу диалога.
// На один ключ допускается не более одной сессии.
type Store struct {
	mu       sync.Mutex
	sessions map[ConversationKey]*Session
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[ConversationKey]*Session),
	}
}

// Get возвращает активную сессию или nil.
func (s *Store) Get(key ConversationKey) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[key]
}

// Create создает новую сессию, перезаписывая существующую.
func (s *Store) Create(key ConversationKey) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := &Session{
		Key:  key,
		Step: StepClientName,
	}
	s.sessions[key] = session
	return session
}

// Delete удаляет сессию по ключу.
func (s *Store) Delete(key ConversationKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}

// TrackMessage запоминает ID отправленного промежуточного сообщения,
// чтобы удалить его при завершении расчёта.
func (s *Store) TrackMessage(key ConversationKey, messageID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[key]; ok {
		session.PendingMessageIDs = append(session.PendingMessageIDs, messageID)
	}
}

// Len возвращает количество активных сессий.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
