package purchase

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/glebknyazev/vpn-miniapp/internal/backend"
	"github.com/glebknyazev/vpn-miniapp/internal/models"
)

// MockBackend реализует интерфейс purchase.BackendClient
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) CreateSubscription(ctx context.Context, req backend.CreateSubscriptionRequest) (*backend.CreateSubscriptionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*backend.CreateSubscriptionResponse), args.Error(1)
}

func (m *MockBackend) GetUserInfo(ctx context.Context, telegramID int64) (*models.Account, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

// MockLedger реализует интерфейс purchase.Ledger
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) AppendLedgerEntry(ctx context.Context, entry models.LedgerEntry) (int64, error) {
	args := m.Called(ctx, entry)
	return int64(args.Int(0)), args.Error(1)
}

// fakePendingStore — хранилище отложенных покупок в памяти для тестов.
type fakePendingStore struct {
	actions map[int64]models.PendingAction
}

func newFakePendingStore() *fakePendingStore {
	return &fakePendingStore{actions: make(map[int64]models.PendingAction)}
}

func (f *fakePendingStore) Set(_ context.Context, telegramID int64, action models.PendingAction) error {
	f.actions[telegramID] = action
	return nil
}

func (f *fakePendingStore) Get(_ context.Context, telegramID int64) (*models.PendingAction, bool, error) {
	action, ok := f.actions[telegramID]
	if !ok {
		return nil, false, nil
	}
	return &action, true, nil
}

func (f *fakePendingStore) Clear(_ context.Context, telegramID int64) error {
	delete(f.actions, telegramID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var yearPlan = models.Plan{ID: "1y", Duration: "1 ГОД", Days: 365, Price: 799, Highlight: true}
var trialPlan = models.Plan{ID: "trial", Duration: "Пробный тариф", Days: 1, Price: 0, IsTrial: true}

func TestComputePrice(t *testing.T) {
	tests := []struct {
		name     string
		action   models.PendingAction
		expected int
	}{
		{"обычный план стоит цену плана", NewVPNIntent(yearPlan, false, ""), 799},
		{"пробный план бесплатный", NewVPNIntent(trialPlan, false, ""), 0},
		{"whitelist по тарифу", NewWhitelistIntent(10, false, ""), 250},
		{"whitelist клампуется сверху", NewWhitelistIntent(600, false, ""), 7600},
		{"whitelist клампуется снизу", NewWhitelistIntent(3, false, ""), 175},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ComputePrice(tt.action))
		})
	}
}

func TestAttemptPurchase_InsufficientFunds(t *testing.T) {
	backendMock := new(MockBackend)
	ledgerMock := new(MockLedger)
	pending := newFakePendingStore()
	svc := New(backendMock, pending, ledgerMock, testLogger())

	account := &models.Account{ID: 7, TelegramID: 100, Balance: 50}
	outcome, err := svc.AttemptPurchase(context.Background(), account, NewVPNIntent(yearPlan, false, ""))

	require.NoError(t, err)
	assert.Equal(t, StatusInsufficientFunds, outcome.Status)
	assert.Equal(t, 749, outcome.Deficit)

	stored, found, err := pending.Get(context.Background(), 100)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.ActionVPNPurchase, stored.Kind)
	assert.Equal(t, 799, stored.Price)

	// Никаких сетевых вызовов и записей леджера при нехватке средств.
	backendMock.AssertNotCalled(t, "CreateSubscription", mock.Anything, mock.Anything)
	ledgerMock.AssertNotCalled(t, "AppendLedgerEntry", mock.Anything, mock.Anything)
}

func TestAttemptPurchase_NewIntentOverwritesStale(t *testing.T) {
	backendMock := new(MockBackend)
	ledgerMock := new(MockLedger)
	pending := newFakePendingStore()
	svc := New(backendMock, pending, ledgerMock, testLogger())

	account := &models.Account{ID: 7, TelegramID: 100, Balance: 0}

	_, err := svc.AttemptPurchase(context.Background(), account, NewVPNIntent(yearPlan, false, ""))
	require.NoError(t, err)
	_, err = svc.AttemptPurchase(context.Background(), account, NewWhitelistIntent(10, false, ""))
	require.NoError(t, err)

	stored, found, err := pending.Get(context.Background(), 100)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.ActionWhitelistPurchase, stored.Kind)
}

func TestAttemptPurchase_Success(t *testing.T) {
	backendMock := new(MockBackend)
	ledgerMock := new(MockLedger)
	pending := newFakePendingStore()
	svc := New(backendMock, pending, ledgerMock, testLogger())

	account := &models.Account{ID: 7, TelegramID: 100, Balance: 1000}
	backendMock.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(req backend.CreateSubscriptionRequest) bool {
		return req.UserID == 7 && req.Type == "vpn" && req.Days == 365 && req.Price == 799
	})).Return(&backend.CreateSubscriptionResponse{Success: true}, nil)
	backendMock.On("GetUserInfo", mock.Anything, int64(100)).
		Return(&models.Account{ID: 7, TelegramID: 100, Balance: 201}, nil)
	ledgerMock.On("AppendLedgerEntry", mock.Anything, mock.MatchedBy(func(e models.LedgerEntry) bool {
		return e.Kind == models.LedgerPurchase && e.Amount == -799 && e.TelegramID == 100
	})).Return(1, nil)

	outcome, err := svc.AttemptPurchase(context.Background(), account, NewVPNIntent(yearPlan, false, ""))

	require.NoError(t, err)
	assert.Equal(t, StatusActivated, outcome.Status)
	require.NotNil(t, outcome.Account)
	assert.Equal(t, 201, outcome.Account.Balance)
	backendMock.AssertExpectations(t)
	ledgerMock.AssertExpectations(t)
}

func TestAttemptPurchase_TrialUsedRejectedBeforeNetwork(t *testing.T) {
	backendMock := new(MockBackend)
	ledgerMock := new(MockLedger)
	svc := New(backendMock, newFakePendingStore(), ledgerMock, testLogger())

	account := &models.Account{ID: 7, TelegramID: 100, Balance: 0, TrialUsed: true}
	outcome, err := svc.AttemptPurchase(context.Background(), account, NewVPNIntent(trialPlan, false, ""))

	require.NoError(t, err)
	assert.Equal(t, StatusFailed, outcome.Status)
	backendMock.AssertNotCalled(t, "CreateSubscription", mock.Anything, mock.Anything)
}

func TestAttemptPurchase_TrialBypassesBalance(t *testing.T) {
	backendMock := new(MockBackend)
	ledgerMock := new(MockLedger)
	pending := newFakePendingStore()
	svc := New(backendMock, pending, ledgerMock, testLogger())

	// Баланс нулевой, но пробный план не проходит через пополнение.
	account := &models.Account{ID: 7, TelegramID: 100, Balance: 0}
	backendMock.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(req backend.CreateSubscriptionRequest) bool {
		return req.IsTrial && req.Price == 0
	})).Return(&backend.CreateSubscriptionResponse{Success: true}, nil)
	backendMock.On("GetUserInfo", mock.Anything, int64(100)).
		Return(&models.Account{ID: 7, TelegramID: 100, Balance: 0, TrialUsed: true}, nil)
	ledgerMock.On("AppendLedgerEntry", mock.Anything, mock.MatchedBy(func(e models.LedgerEntry) bool {
		return e.Kind == models.LedgerTrial && e.Amount == 0
	})).Return(1, nil)

	outcome, err := svc.AttemptPurchase(context.Background(), account, NewVPNIntent(trialPlan, false, ""))

	require.NoError(t, err)
	assert.Equal(t, StatusActivated, outcome.Status)
	_, found, _ := pending.Get(context.Background(), 100)
	assert.False(t, found)
}

func TestAttemptPurchase_BackendRejection(t *testing.T) {
	backendMock := new(MockBackend)
	ledgerMock := new(MockLedger)
	svc := New(backendMock, newFakePendingStore(), ledgerMock, testLogger())

	account := &models.Account{ID: 7, TelegramID: 100, Balance: 1000}
	backendMock.On("CreateSubscription", mock.Anything, mock.Anything).
		Return(&backend.CreateSubscriptionResponse{Success: false, Error: "no free servers"}, nil)

	outcome, err := svc.AttemptPurchase(context.Background(), account, NewVPNIntent(yearPlan, false, ""))

	require.NoError(t, err)
	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, "no free servers", outcome.Reason)
	// Отказ бэкенда не трогает леджер: баланс не расходится с сервером.
	ledgerMock.AssertNotCalled(t, "AppendLedgerEntry", mock.Anything, mock.Anything)
}

func TestAttemptPurchase_NetworkFailure(t *testing.T) {
	backendMock := new(MockBackend)
	ledgerMock := new(MockLedger)
	svc := New(backendMock, newFakePendingStore(), ledgerMock, testLogger())

	account := &models.Account{ID: 7, TelegramID: 100, Balance: 1000}
	backendMock.On("CreateSubscription", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	_, err := svc.AttemptPurchase(context.Background(), account, NewVPNIntent(yearPlan, false, ""))

	require.Error(t, err)
	ledgerMock.AssertNotCalled(t, "AppendLedgerEntry", mock.Anything, mock.Anything)
}

func TestResumeAfterTopUp_EndToEnd(t *testing.T) {
	backendMock := new(MockBackend)
	ledgerMock := new(MockLedger)
	pending := newFakePendingStore()
	svc := New(backendMock, pending, ledgerMock, testLogger())
	ctx := context.Background()

	// Баланс 50, план за 799 -> дефицит 749.
	account := &models.Account{ID: 7, TelegramID: 100, Balance: 50}
	outcome, err := svc.AttemptPurchase(ctx, account, NewVPNIntent(yearPlan, false, ""))
	require.NoError(t, err)
	require.Equal(t, StatusInsufficientFunds, outcome.Status)
	require.Equal(t, 749, outcome.Deficit)

	// Пользователь пополнил на 749: баланс 799, повтор проходит, баланс 0.
	backendMock.On("GetUserInfo", mock.Anything, int64(100)).
		Return(&models.Account{ID: 7, TelegramID: 100, Balance: 799}, nil).Once()
	backendMock.On("CreateSubscription", mock.Anything, mock.Anything).
		Return(&backend.CreateSubscriptionResponse{Success: true}, nil).Once()
	backendMock.On("GetUserInfo", mock.Anything, int64(100)).
		Return(&models.Account{ID: 7, TelegramID: 100, Balance: 0}, nil).Once()
	ledgerMock.On("AppendLedgerEntry", mock.Anything, mock.Anything).Return(1, nil)

	outcome, err = svc.ResumeAfterTopUp(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, StatusActivated, outcome.Status)
	require.NotNil(t, outcome.Account)
	assert.Equal(t, 0, outcome.Account.Balance)
	assert.False(t, outcome.Account.TrialUsed)

	// Повторный resume без нового intent'а — идемпотентный no-op:
	// второй вызов CreateSubscription не делается.
	outcome, err = svc.ResumeAfterTopUp(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, outcome.Status)
	backendMock.AssertNumberOfCalls(t, "CreateSubscription", 1)
}

func TestResumeAfterTopUp_StillInsufficient(t *testing.T) {
	backendMock := new(MockBackend)
	ledgerMock := new(MockLedger)
	pending := newFakePendingStore()
	svc := New(backendMock, pending, ledgerMock, testLogger())
	ctx := context.Background()

	require.NoError(t, pending.Set(ctx, 100, NewVPNIntent(yearPlan, false, "")))
	backendMock.On("GetUserInfo", mock.Anything, int64(100)).
		Return(&models.Account{ID: 7, TelegramID: 100, Balance: 500}, nil)

	outcome, err := svc.ResumeAfterTopUp(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, StatusInsufficientFunds, outcome.Status)
	assert.Equal(t, 299, outcome.Deficit)

	// Intent не потерян: отмена только явная.
	_, found, _ := pending.Get(ctx, 100)
	assert.True(t, found)
}

func TestCancel(t *testing.T) {
	backendMock := new(MockBackend)
	pending := newFakePendingStore()
	svc := New(backendMock, pending, new(MockLedger), testLogger())
	ctx := context.Background()

	require.NoError(t, pending.Set(ctx, 100, NewVPNIntent(yearPlan, false, "")))
	require.NoError(t, svc.Cancel(ctx, 100))

	_, found, _ := pending.Get(ctx, 100)
	assert.False(t, found)

	outcome, err := svc.ResumeAfterTopUp(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, outcome.Status)
}
