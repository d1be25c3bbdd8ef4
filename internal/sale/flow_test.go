package sale

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"masterpay/internal/models"
)

var testNow = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

func newTestFlow() *Flow {
	f := NewFlow(NewStore(), zap.NewNop())
	f.now = func() time.Time { return testNow }
	f.newID = func() string { return "rec-1" }
	return f
}

func testKey() ConversationKey {
	return ConversationKey{ChatID: 100, MessageThreadID: 7}
}

func TestConversationKeyString(t *testing.T) {
	require.Equal(t, "100_7", ConversationKey{ChatID: 100, MessageThreadID: 7}.String())
	require.Equal(t, "100_main", ConversationKey{ChatID: 100}.String())
}

func TestStartCreatesSession(t *testing.T) {
	f := newTestFlow()
	key := testKey()

	reply, started := f.Start(key)
	require.True(t, started)
	require.Len(t, reply.Prompts, 1)
	require.Contains(t, reply.Prompts[0].Text, "Введите имя клиента")
	require.NotNil(t, f.sessions.Get(key))
}

func TestDuplicateStartIsNoop(t *testing.T) {
	f := newTestFlow()
	key := testKey()

	_, started := f.Start(key)
	require.True(t, started)
	f.HandleText(key, "Анна")

	reply, started := f.Start(key)
	require.False(t, started)
	require.Empty(t, reply.Prompts)

	// сессия не пересоздана: шаг остался прежним
	require.Equal(t, StepMasterName, f.sessions.Get(key).Step)
}

func TestTextWithoutSessionIsNoise(t *testing.T) {
	f := newTestFlow()
	key := testKey()

	reply := f.HandleText(key, "привет")
	require.Empty(t, reply.Prompts)
	require.False(t, reply.Completed)
	require.Nil(t, f.sessions.Get(key))
}

func TestPracticesCountValidation(t *testing.T) {
	f := newTestFlow()
	key := testKey()
	f.Start(key)
	f.HandleText(key, "Анна")
	f.HandleText(key, "Иван")
	f.HandleChoice(key, string(models.PackageScale), 10)

	for _, bad := range []string{"ноль", "0", "-2", "1.5"} {
		reply := f.HandleText(key, bad)
		require.Contains(t, reply.Prompts[0].Text, "корректное количество практик", "input %q", bad)
		require.Equal(t, StepPracticesCount, f.sessions.Get(key).Step)
	}

	f.HandleText(key, "3")
	require.Equal(t, StepTotalAmount, f.sessions.Get(key).Step)
}

func TestAmountsMustBePositive(t *testing.T) {
	f := newTestFlow()
	key := testKey()
	f.Start(key)
	f.HandleText(key, "Анна")
	f.HandleText(key, "Иван")
	f.HandleChoice(key, string(models.PackageScale), 10)
	f.HandleText(key, "3")

	// полная стоимость
	for _, bad := range []string{"0", "-100", "abc"} {
		reply := f.HandleText(key, bad)
		require.Contains(t, reply.Prompts[0].Text, "корректную сумму", "input %q", bad)
		require.Equal(t, StepTotalAmount, f.sessions.Get(key).Step)
	}
	f.HandleText(key, "90000")

	// оплаченная сумма
	for _, bad := range []string{"0", "-500"} {
		reply := f.HandleText(key, bad)
		require.Contains(t, reply.Prompts[0].Text, "корректную сумму оплаты", "input %q", bad)
		require.Equal(t, StepPaidAmount, f.sessions.Get(key).Step)
	}
	f.HandleText(key, "60000")
	f.HandleChoice(key, CallbackAddTranches, 11)
	f.HandleText(key, "2")

	// сумма транша
	for _, bad := range []string{"0", "-1"} {
		reply := f.HandleText(key, bad)
		require.Contains(t, reply.Prompts[0].Text, "корректную сумму транша", "input %q", bad)
		require.Equal(t, StepTrancheAmount, f.sessions.Get(key).Step)
	}
}

func TestPaidAmountCannotExceedTotal(t *testing.T) {
	f := newTestFlow()
	key := testKey()
	f.Start(key)
	f.HandleText(key, "Анна")
	f.HandleText(key, "Иван")
	f.HandleChoice(key, string(models.PackageScale), 10)
	f.HandleText(key, "3")
	f.HandleText(key, "90000")

	reply := f.HandleText(key, "100000")
	require.Contains(t, reply.Prompts[0].Text, "не может быть больше полной стоимости")
	require.Equal(t, StepPaidAmount, f.sessions.Get(key).Step)
}

func TestFullPaymentSkipsInstallments(t *testing.T) {
	f := newTestFlow()
	key := testKey()
	f.Start(key)
	f.HandleText(key, "Анна")
	f.HandleText(key, "Иван")
	f.HandleChoice(key, string(models.PackageStarter), 10)
	f.HandleText(key, "2")
	f.HandleText(key, "50000")

	reply := f.HandleText(key, "50000")
	require.True(t, reply.Completed)
	require.NotNil(t, reply.Record)
	require.Zero(t, reply.Record.RemainingAmount)
	require.Empty(t, reply.Record.RemainderPayments)
	require.NotNil(t, reply.FollowUp)
	require.Nil(t, f.sessions.Get(key))
}

// Сценарий: Анна, Иван, Масштаб, 3 практики, 90000/60000,
// два транша по 15000 с разными датами.
func TestInstallmentScenario(t *testing.T) {
	f := newTestFlow()
	key := testKey()
	f.Start(key)
	f.HandleText(key, "Анна")
	f.HandleText(key, "Иван")

	reply := f.HandleChoice(key, string(models.PackageScale), 10)
	require.Equal(t, 10, reply.Prompts[0].EditMessageID)
	require.Contains(t, reply.Prompts[0].Text, "Масштаб")

	f.HandleText(key, "3")
	f.HandleText(key, "90000")

	reply = f.HandleText(key, "60000")
	require.Contains(t, reply.Prompts[0].Text, "Остаток к доплате: 30к")
	require.Len(t, reply.Prompts[0].Buttons, 2)
	require.Equal(t, float64(30000), f.sessions.Get(key).Data.RemainingAmount)

	reply = f.HandleChoice(key, CallbackAddTranches, 11)
	require.Contains(t, reply.Prompts[0].Text, "Сколько будет траншей")

	reply = f.HandleText(key, "2")
	require.Contains(t, reply.Prompts[0].Text, "Транш 1 из 2")

	// транш больше остатка отклоняется, шаг не продвигается
	reply = f.HandleText(key, "40000")
	require.Contains(t, reply.Prompts[0].Text, "не может быть больше остатка")
	require.Equal(t, StepTrancheAmount, f.sessions.Get(key).Step)

	f.HandleText(key, "15000")
	reply = f.HandleText(key, "15.09.25")
	require.Contains(t, reply.Prompts[0].Text, "Транш 2 из 2")
	require.Equal(t, float64(15000), f.sessions.Get(key).Data.RemainingAmount)

	f.HandleText(key, "15000")
	reply = f.HandleText(key, "15 октября")

	require.True(t, reply.Completed)
	record := reply.Record
	require.NotNil(t, record)
	require.Equal(t, "rec-1", record.ID)
	require.Equal(t, testNow, record.CreatedAt)
	require.Equal(t, int64(100), record.ChatID)
	require.Equal(t, 7, record.MessageThreadID)
	require.Equal(t, float64(30000), record.RemainingAmount)
	require.Len(t, record.RemainderPayments, 2)
	require.Equal(t, models.RemainderPayment{Amount: 15000, Date: "15.09.25"}, record.RemainderPayments[0])
	require.Equal(t, models.RemainderPayment{Amount: 15000, Date: "15 октября"}, record.RemainderPayments[1])
	require.Nil(t, f.sessions.Get(key))
}

func TestUnallocatedRemainderAppendsTranche(t *testing.T) {
	f := newTestFlow()
	key := testKey()
	f.Start(key)
	f.HandleText(key, "Анна")
	f.HandleText(key, "Иван")
	f.HandleChoice(key, string(models.PackageScale), 10)
	f.HandleText(key, "3")
	f.HandleText(key, "90000")
	f.HandleText(key, "60000")
	f.HandleChoice(key, CallbackAddTranches, 11)
	f.HandleText(key, "2")

	f.HandleText(key, "10000")
	f.HandleText(key, "15.09.25")
	f.HandleText(key, "15000")
	reply := f.HandleText(key, "20.09.25")

	// 5000 остались нераспределёнными - добавлен транш без даты
	require.True(t, reply.Completed)
	require.Len(t, reply.Record.RemainderPayments, 3)
	last := reply.Record.RemainderPayments[2]
	require.Equal(t, float64(5000), last.Amount)
	require.Equal(t, models.UnspecifiedDate, last.Date)
}

func TestTrancheLoopStopsWhenBalanceExhausted(t *testing.T) {
	f := newTestFlow()
	key := testKey()
	f.Start(key)
	f.HandleText(key, "Анна")
	f.HandleText(key, "Иван")
	f.HandleChoice(key, string(models.PackageScale), 10)
	f.HandleText(key, "3")
	f.HandleText(key, "90000")
	f.HandleText(key, "60000")
	f.HandleChoice(key, CallbackAddTranches, 11)
	f.HandleText(key, "5")

	// первый же транш закрывает остаток: цикл завершается досрочно
	f.HandleText(key, "30000")
	reply := f.HandleText(key, "15.09.25")
	require.True(t, reply.Completed)
	require.Len(t, reply.Record.RemainderPayments, 1)
}

func TestSkipTranchesFinalizesWithLumpRemainder(t *testing.T) {
	f := newTestFlow()
	key := testKey()
	f.Start(key)
	f.HandleText(key, "Анна")
	f.HandleText(key, "Иван")
	f.HandleChoice(key, string(models.PackageScale), 10)
	f.HandleText(key, "3")
	f.HandleText(key, "90000")
	f.HandleText(key, "60000")

	reply := f.HandleChoice(key, CallbackSkipTranches, 11)
	require.True(t, reply.Completed)
	require.Equal(t, "Указываем общий остаток", reply.CallbackText)
	require.Empty(t, reply.Record.RemainderPayments)
	require.Equal(t, float64(30000), reply.Record.RemainingAmount)
}

func TestCancelDiscardsSessionAndPrompts(t *testing.T) {
	f := newTestFlow()
	key := testKey()
	f.Start(key)
	f.TrackMessage(key, 21)
	f.TrackMessage(key, 22)

	reply, existed := f.Cancel(key)
	require.True(t, existed)
	require.Equal(t, []int{21, 22}, reply.DeleteMessageIDs)
	require.Nil(t, f.sessions.Get(key))

	_, existed = f.Cancel(key)
	require.False(t, existed)
}

func TestStaleCallbackReportsExpiredSession(t *testing.T) {
	f := newTestFlow()

	reply := f.HandleChoice(testKey(), CallbackAddTranches, 5)
	require.Equal(t, "Сессия истекла. Начните заново с /sale", reply.CallbackText)
	require.Empty(t, reply.Prompts)
}

func TestNewCalculationCallbackStartsSession(t *testing.T) {
	f := newTestFlow()
	key := testKey()

	reply := f.HandleChoice(key, CallbackNewCalculation, 33)
	require.Equal(t, []int{33}, reply.DeleteMessageIDs)
	require.Contains(t, reply.Prompts[0].Text, "Новый расчёт продажи")
	require.NotNil(t, f.sessions.Get(key))
}

func TestUnknownPackageRejected(t *testing.T) {
	f := newTestFlow()
	key := testKey()
	f.Start(key)
	f.HandleText(key, "Анна")
	f.HandleText(key, "Иван")

	reply := f.HandleChoice(key, "Несуществующий", 10)
	require.Equal(t, "Неизвестный пакет", reply.CallbackText)
	require.Equal(t, StepPackage, f.sessions.Get(key).Step)
}

func TestSessionsAreIndependentPerThread(t *testing.T) {
	f := newTestFlow()
	first := ConversationKey{ChatID: 100, MessageThreadID: 1}
	second := ConversationKey{ChatID: 100, MessageThreadID: 2}

	f.Start(first)
	f.Start(second)
	f.HandleText(first, "Анна")

	require.Equal(t, StepMasterName, f.sessions.Get(first).Step)
	require.Equal(t, StepClientName, f.sessions.Get(second).Step)
}
