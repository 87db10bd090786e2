package withdrawal

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/glebknyazev/vpn-miniapp/internal/backend"
	"github.com/glebknyazev/vpn-miniapp/internal/models"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Withdraw(ctx context.Context, req backend.WithdrawRequest) (*backend.WithdrawResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.WithdrawResponse), args.Error(1)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateWithdrawalTicket(ctx context.Context, ticket models.WithdrawalTicket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *MockStore) LastCardWithdraw(ctx context.Context, telegramID int64) (time.Time, bool, error) {
	args := m.Called(ctx, telegramID)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}

func (m *MockStore) StampCardWithdraw(ctx context.Context, telegramID int64, at time.Time) error {
	args := m.Called(ctx, telegramID, at)
	return args.Error(0)
}

func (m *MockStore) AppendLedgerEntry(ctx context.Context, entry models.LedgerEntry) (int64, error) {
	args := m.Called(ctx, entry)
	return args.Get(0).(int64), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ticket models.WithdrawalTicket) error {
	args := m.Called(ticket)
	return args.Error(0)
}

// fakeCache — кеш в памяти, сериализация как в боевом Redis-кеше.
type fakeCache struct {
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (f *fakeCache) Get(_ context.Context, key string, result any) (bool, error) {
	raw, ok := f.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, result)
}

func (f *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = raw
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func testAccount() *models.Account {
	return &models.Account{
		TelegramID:     777,
		Balance:        50,
		ReferralEarned: 300,
	}
}

func newTestService(backendMock *MockBackend, storeMock *MockStore, pubMock *MockPublisher) *Service {
	return New(newFakeCache(), backendMock, storeMock, pubMock, testLogger())
}

// advance проходит машину до нужного шага, падая на любой ошибке.
func advance(t *testing.T, svc *Service, account *models.Account, inputs ...Input) models.WithdrawState {
	t.Helper()
	var state models.WithdrawState
	var err error
	for _, in := range inputs {
		state, err = svc.Next(context.Background(), account, in)
		require.NoError(t, err)
	}
	return state
}

func TestState_ПоУмолчаниюПервыйШаг(t *testing.T) {
	svc := newTestService(new(MockBackend), new(MockStore), new(MockPublisher))

	state, err := svc.State(context.Background(), 777)

	require.NoError(t, err)
	assert.Equal(t, models.WithdrawStepAmount, state.Step)
	assert.Zero(t, state.Amount)
}

func TestNext_ШагСуммы_НулеваяСуммаОтклоняется(t *testing.T) {
	svc := newTestService(new(MockBackend), new(MockStore), new(MockPublisher))

	state, err := svc.Next(context.Background(), testAccount(), Input{Amount: 0})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Введите сумму", vErr.Msg)
	assert.Equal(t, models.WithdrawStepAmount, state.Step)
}

func TestNext_ШагСуммы_БольшеРеферальногоБалансаОтклоняется(t *testing.T) {
	svc := newTestService(new(MockBackend), new(MockStore), new(MockPublisher))

	state, err := svc.Next(context.Background(), testAccount(), Input{Amount: 301})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, models.WithdrawStepAmount, state.Step)
}

func TestNext_ШагСуммы_ВалиднаяСуммаПереходНаВыборМетода(t *testing.T) {
	svc := newTestService(new(MockBackend), new(MockStore), new(MockPublisher))

	state, err := svc.Next(context.Background(), testAccount(), Input{Amount: 150})

	require.NoError(t, err)
	assert.Equal(t, models.WithdrawStepMethod, state.Step)
	assert.Equal(t, 150.0, state.Amount)

	// Состояние переживает перезагрузку.
	reloaded, err := svc.State(context.Background(), 777)
	require.NoError(t, err)
	assert.Equal(t, state, reloaded)
}

func TestNext_ШагМетода_МетодНеВыбран(t *testing.T) {
	svc := newTestService(new(MockBackend), new(MockStore), new(MockPublisher))
	advance(t, svc, testAccount(), Input{Amount: 150})

	state, err := svc.Next(context.Background(), testAccount(), Input{})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, models.WithdrawStepMethod, state.Step)
}

func TestNext_ШагМетода_КартаМеньшеМинимума(t *testing.T) {
	svc := newTestService(new(MockBackend), new(MockStore), new(MockPublisher))
	advance(t, svc, testAccount(), Input{Amount: 0.5})

	state, err := svc.Next(context.Background(), testAccount(), Input{Method: models.WithdrawCard})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, models.WithdrawStepMethod, state.Step)
	assert.Empty(t, state.Method)
}

func TestNext_ШагМетода_БалансБезМинимума(t *testing.T) {
	svc := newTestService(new(MockBackend), new(MockStore), new(MockPublisher))
	advance(t, svc, testAccount(), Input{Amount: 0.5})

	state, err := svc.Next(context.Background(), testAccount(), Input{Method: models.WithdrawBalance})

	require.NoError(t, err)
	assert.Equal(t, models.WithdrawStepDetails, state.Step)
	assert.Equal(t, models.WithdrawBalance, state.Method)
}

func TestNext_ШагРеквизитов_КартаБезПолейОтклоняется(t *testing.T) {
	backendMock := new(MockBackend)
	svc := newTestService(backendMock, new(MockStore), new(MockPublisher))
	advance(t, svc, testAccount(),
		Input{Amount: 150}, Input{Method: models.WithdrawCard})

	state, err := svc.Next(context.Background(), testAccount(), Input{Phone: "+79990001122"})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, models.WithdrawStepDetails, state.Step)
	backendMock.AssertNotCalled(t, "Withdraw", mock.Anything, mock.Anything)
}

func TestNext_ШагРеквизитов_КартаУспешнаяЗаявка(t *testing.T) {
	backendMock := new(MockBackend)
	storeMock := new(MockStore)
	pubMock := new(MockPublisher)
	svc := newTestService(backendMock, storeMock, pubMock)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	storeMock.On("LastCardWithdraw", mock.Anything, int64(777)).
		Return(time.Time{}, false, nil)
	backendMock.On("Withdraw", mock.Anything, mock.MatchedBy(func(req backend.WithdrawRequest) bool {
		return req.TelegramID == 777 && req.Amount == 150 &&
			req.Method == "card" && req.Phone == "+79990001122" && req.Bank == "sber"
	})).Return(&backend.WithdrawResponse{Success: true}, nil)
	storeMock.On("CreateWithdrawalTicket", mock.Anything, mock.MatchedBy(func(tk models.WithdrawalTicket) bool {
		return tk.TelegramID == 777 && tk.Method == models.WithdrawCard &&
			tk.Amount == 150 && tk.ID != "" && tk.CreatedAt.Equal(now)
	})).Return(nil)
	pubMock.On("Publish", mock.AnythingOfType("models.WithdrawalTicket")).Return(nil)
	storeMock.On("AppendLedgerEntry", mock.Anything, mock.MatchedBy(func(e models.LedgerEntry) bool {
		return e.Kind == models.LedgerRefReq && e.Amount == 0
	})).Return(int64(1), nil)
	storeMock.On("StampCardWithdraw", mock.Anything, int64(777), now).Return(nil)

	state := advance(t, svc, testAccount(),
		Input{Amount: 150},
		Input{Method: models.WithdrawCard},
		Input{Phone: "+79990001122", Bank: "sber"})

	assert.Equal(t, models.WithdrawStepConfirmed, state.Step)
	backendMock.AssertExpectations(t)
	storeMock.AssertExpectations(t)
	pubMock.AssertExpectations(t)
}

func TestNext_ШагРеквизитов_КулдаунКартыБлокирует(t *testing.T) {
	backendMock := new(MockBackend)
	storeMock := new(MockStore)
	svc := newTestService(backendMock, storeMock, new(MockPublisher))

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	storeMock.On("LastCardWithdraw", mock.Anything, int64(777)).
		Return(now.Add(-2*time.Hour), true, nil)

	advance(t, svc, testAccount(),
		Input{Amount: 150}, Input{Method: models.WithdrawCard})

	state, err := svc.Next(context.Background(), testAccount(),
		Input{Phone: "+79990001122", Bank: "sber"})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Msg, "24 часа")
	assert.Equal(t, models.WithdrawStepDetails, state.Step)
	backendMock.AssertNotCalled(t, "Withdraw", mock.Anything, mock.Anything)
}

func TestNext_ШагРеквизитов_ПослеКулдаунаПроходит(t *testing.T) {
	backendMock := new(MockBackend)
	storeMock := new(MockStore)
	pubMock := new(MockPublisher)
	svc := newTestService(backendMock, storeMock, pubMock)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	storeMock.On("LastCardWithdraw", mock.Anything, int64(777)).
		Return(now.Add(-25*time.Hour), true, nil)
	backendMock.On("Withdraw", mock.Anything, mock.Anything).
		Return(&backend.WithdrawResponse{Success: true}, nil)
	storeMock.On("CreateWithdrawalTicket", mock.Anything, mock.Anything).Return(nil)
	pubMock.On("Publish", mock.Anything).Return(nil)
	storeMock.On("AppendLedgerEntry", mock.Anything, mock.Anything).Return(int64(1), nil)
	storeMock.On("StampCardWithdraw", mock.Anything, int64(777), now).Return(nil)

	state := advance(t, svc, testAccount(),
		Input{Amount: 150},
		Input{Method: models.WithdrawCard},
		Input{Phone: "+79990001122", Bank: "sber"})

	assert.Equal(t, models.WithdrawStepConfirmed, state.Step)
}

func TestNext_ШагРеквизитов_БалансМгновенноеЗачисление(t *testing.T) {
	backendMock := new(MockBackend)
	storeMock := new(MockStore)
	pubMock := new(MockPublisher)
	svc := newTestService(backendMock, storeMock, pubMock)

	backendMock.On("Withdraw", mock.Anything, mock.MatchedBy(func(req backend.WithdrawRequest) bool {
		return req.Method == "balance" && req.Amount == 200
	})).Return(&backend.WithdrawResponse{Success: true}, nil)
	storeMock.On("AppendLedgerEntry", mock.Anything, mock.MatchedBy(func(e models.LedgerEntry) bool {
		return e.Kind == models.LedgerRefOut && e.Amount == 200
	})).Return(int64(1), nil)

	state := advance(t, svc, testAccount(),
		Input{Amount: 200},
		Input{Method: models.WithdrawBalance},
		Input{})

	assert.Equal(t, models.WithdrawStepConfirmed, state.Step)
	storeMock.AssertNotCalled(t, "CreateWithdrawalTicket", mock.Anything, mock.Anything)
	storeMock.AssertNotCalled(t, "StampCardWithdraw", mock.Anything, mock.Anything, mock.Anything)
	pubMock.AssertNotCalled(t, "Publish", mock.Anything)
}

func TestNext_ШагРеквизитов_КриптоБезКулдауна(t *testing.T) {
	backendMock := new(MockBackend)
	storeMock := new(MockStore)
	pubMock := new(MockPublisher)
	svc := newTestService(backendMock, storeMock, pubMock)

	backendMock.On("Withdraw", mock.Anything, mock.MatchedBy(func(req backend.WithdrawRequest) bool {
		return req.Method == "crypto" && req.CryptoNet == "TON" && req.CryptoAddr == "UQabc"
	})).Return(&backend.WithdrawResponse{Success: true}, nil)
	storeMock.On("CreateWithdrawalTicket", mock.Anything, mock.MatchedBy(func(tk models.WithdrawalTicket) bool {
		return tk.Method == models.WithdrawCrypto && tk.CryptoNet == "TON"
	})).Return(nil)
	pubMock.On("Publish", mock.Anything).Return(nil)
	storeMock.On("AppendLedgerEntry", mock.Anything, mock.MatchedBy(func(e models.LedgerEntry) bool {
		return e.Kind == models.LedgerRefReq
	})).Return(int64(1), nil)

	state := advance(t, svc, testAccount(),
		Input{Amount: 150},
		Input{Method: models.WithdrawCrypto},
		Input{CryptoNet: "TON", CryptoAddr: "UQabc"})

	assert.Equal(t, models.WithdrawStepConfirmed, state.Step)
	storeMock.AssertNotCalled(t, "LastCardWithdraw", mock.Anything, mock.Anything)
	storeMock.AssertNotCalled(t, "StampCardWithdraw", mock.Anything, mock.Anything, mock.Anything)
}

func TestNext_ШагРеквизитов_ОтказБэкендаНеДвигаетМашину(t *testing.T) {
	backendMock := new(MockBackend)
	storeMock := new(MockStore)
	svc := newTestService(backendMock, storeMock, new(MockPublisher))

	backendMock.On("Withdraw", mock.Anything, mock.Anything).
		Return(&backend.WithdrawResponse{Success: false, Error: "insufficient referral balance"}, nil)

	advance(t, svc, testAccount(),
		Input{Amount: 200}, Input{Method: models.WithdrawBalance})

	state, err := svc.Next(context.Background(), testAccount(), Input{})

	require.Error(t, err)
	assert.Equal(t, models.WithdrawStepDetails, state.Step)
	storeMock.AssertNotCalled(t, "AppendLedgerEntry", mock.Anything, mock.Anything)

	reloaded, err := svc.State(context.Background(), 777)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawStepDetails, reloaded.Step)
}

func TestNext_ШагРеквизитов_СетеваяОшибка(t *testing.T) {
	backendMock := new(MockBackend)
	svc := newTestService(backendMock, new(MockStore), new(MockPublisher))

	backendMock.On("Withdraw", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	advance(t, svc, testAccount(),
		Input{Amount: 200}, Input{Method: models.WithdrawBalance})

	state, err := svc.Next(context.Background(), testAccount(), Input{})

	require.Error(t, err)
	assert.Equal(t, models.WithdrawStepDetails, state.Step)
}

func TestNext_ПодтверждённыйШагТерминален(t *testing.T) {
	backendMock := new(MockBackend)
	storeMock := new(MockStore)
	svc := newTestService(backendMock, storeMock, new(MockPublisher))

	backendMock.On("Withdraw", mock.Anything, mock.Anything).
		Return(&backend.WithdrawResponse{Success: true}, nil)
	storeMock.On("AppendLedgerEntry", mock.Anything, mock.Anything).Return(int64(1), nil)

	advance(t, svc, testAccount(),
		Input{Amount: 200}, Input{Method: models.WithdrawBalance}, Input{})

	state, err := svc.Next(context.Background(), testAccount(), Input{Amount: 999})

	require.NoError(t, err)
	assert.Equal(t, models.WithdrawStepConfirmed, state.Step)
	backendMock.AssertNumberOfCalls(t, "Withdraw", 1)
}

func TestBack_ВозвратНаПредыдущийШаг(t *testing.T) {
	svc := newTestService(new(MockBackend), new(MockStore), new(MockPublisher))
	advance(t, svc, testAccount(),
		Input{Amount: 150}, Input{Method: models.WithdrawCard})

	state, err := svc.Back(context.Background(), 777)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawStepMethod, state.Step)

	state, err = svc.Back(context.Background(), 777)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawStepAmount, state.Step)

	// Дальше первого шага назад не уходим.
	state, err = svc.Back(context.Background(), 777)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawStepAmount, state.Step)
}

func TestReset_СбрасываетМашину(t *testing.T) {
	svc := newTestService(new(MockBackend), new(MockStore), new(MockPublisher))
	advance(t, svc, testAccount(),
		Input{Amount: 150}, Input{Method: models.WithdrawCard})

	require.NoError(t, svc.Reset(context.Background(), 777))

	state, err := svc.State(context.Background(), 777)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawStepAmount, state.Step)
	assert.Zero(t, state.Amount)
	assert.Empty(t, state.Method)
}
