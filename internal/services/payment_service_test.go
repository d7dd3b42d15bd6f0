package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/honeynil/AdaPayAcquirer/internal/config"
	"github.com/honeynil/AdaPayAcquirer/internal/conversion"
	"github.com/honeynil/AdaPayAcquirer/internal/gateway"
	"github.com/honeynil/AdaPayAcquirer/internal/models"
	pkgerrors "github.com/honeynil/AdaPayAcquirer/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testUUID = "3f1c2b9e-8d4a-4e43-9c52-0b7f3f6b1a11"

type memTransactions struct {
	mu      sync.Mutex
	nextID  int64
	byRef   map[string]*models.Transaction
	updates int
}

func newMemTransactions() *memTransactions {
	return &memTransactions{byRef: map[string]*models.Transaction{}}
}

func (m *memTransactions) Create(_ context.Context, tx *models.Transaction) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byRef[tx.Reference]; ok {
		return 0, pkgerrors.ErrTransactionExists
	}
	m.nextID++
	tx.ID = m.nextID
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	cp := *tx
	m.byRef[tx.Reference] = &cp
	return tx.ID, nil
}

func (m *memTransactions) GetByReference(_ context.Context, reference string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.byRef[reference]
	if !ok {
		return nil, pkgerrors.ErrTransactionNotFound
	}
	cp := *tx
	return &cp, nil
}

func (m *memTransactions) GetByUUID(_ context.Context, uuid string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found []*models.Transaction
	for _, tx := range m.byRef {
		if tx.UUID == uuid {
			found = append(found, tx)
		}
	}
	switch len(found) {
	case 0:
		return nil, pkgerrors.ErrTransactionNotFound
	case 1:
		cp := *found[0]
		return &cp, nil
	default:
		return nil, pkgerrors.ErrMultipleTransactions
	}
}

func (m *memTransactions) Update(_ context.Context, tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byRef[tx.Reference]; !ok {
		return pkgerrors.ErrTransactionNotFound
	}
	cp := *tx
	m.byRef[tx.Reference] = &cp
	m.updates++
	return nil
}

func (m *memTransactions) get(reference string) *models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byRef[reference]
}

type memSaleOrders struct {
	mu       sync.Mutex
	messages map[int64][]string
}

func (m *memSaleOrders) PostMessage(_ context.Context, saleOrderID int64, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.messages == nil {
		m.messages = map[int64][]string{}
	}
	m.messages[saleOrderID] = append(m.messages[saleOrderID], body)
	return nil
}

type memLocker struct {
	mu   sync.Mutex
	held map[string]string
	next int
}

func (l *memLocker) Acquire(_ context.Context, key string) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]string{}
	}
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	l.next++
	token := fmt.Sprintf("token-%d", l.next)
	l.held[key] = token
	return token, true, nil
}

func (l *memLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreatePayment(ctx context.Context, req gateway.CreatePaymentRequest) (*gateway.CreatePaymentResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*gateway.CreatePaymentResponse)
	return resp, args.Error(1)
}

func (m *mockGateway) GetPaymentByUUID(ctx context.Context, uuid string) (*models.PaymentRecord, error) {
	args := m.Called(ctx, uuid)
	record, _ := args.Get(0).(*models.PaymentRecord)
	return record, args.Error(1)
}

func (m *mockGateway) GetPayments(ctx context.Context) ([]models.PaymentRecord, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]models.PaymentRecord)
	return records, args.Error(1)
}

type mockConverter struct {
	mock.Mock
}

func (m *mockConverter) PriceConversion(ctx context.Context, amount decimal.Decimal, from, to string) (*conversion.Quote, error) {
	args := m.Called(ctx, amount, from, to)
	quote, _ := args.Get(0).(*conversion.Quote)
	return quote, args.Error(1)
}

type mockProducer struct {
	mock.Mock
}

func (m *mockProducer) Send(ctx context.Context, topic, key string, value []byte) error {
	return m.Called(ctx, topic, key, value).Error(0)
}

func (m *mockProducer) Close() error { return nil }

type fixture struct {
	svc        *paymentService
	txs        *memTransactions
	saleOrders *memSaleOrders
	locker     *memLocker
	gateway    *mockGateway
	converter  *mockConverter
	producer   *mockProducer
	now        time.Time
}

func newFixture(t *testing.T, cfg config.AcquirerConfig) *fixture {
	t.Helper()
	f := &fixture{
		txs:        newMemTransactions(),
		saleOrders: &memSaleOrders{},
		locker:     &memLocker{},
		gateway:    &mockGateway{},
		converter:  &mockConverter{},
		producer:   &mockProducer{},
		now:        time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	if cfg.ExpirationMinutes == 0 {
		cfg.ExpirationMinutes = 15
	}
	if cfg.ReturnURL == "" {
		cfg.ReturnURL = "/payment/status"
	}
	svc, err := NewPaymentService(f.txs, f.saleOrders, f.gateway, f.converter, f.locker, f.producer, "adapay.transactions", cfg)
	require.NoError(t, err)
	f.svc = svc.WithClock(func() time.Time { return f.now })
	return f
}

// seed stores a pending transaction created at f.now.
func (f *fixture) seed(t *testing.T, reference string) *models.Transaction {
	t.Helper()
	tx := models.NewTransaction(reference, 25, "USD")
	tx.State = models.StatePending
	tx.UUID = testUUID
	tx.Address = "addr_test1qz"
	tx.AdaAmount = 62.5
	tx.ExpirationMinutes = 15
	tx.SaleOrderIDs = []int64{101}
	tx.CreatedAt = f.now
	_, err := f.txs.Create(context.Background(), tx)
	require.NoError(t, err)
	return tx
}

func webhookEvent(t *testing.T, name string, data any) models.WebhookEvent {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return models.WebhookEvent{Event: name, Data: raw}
}

func TestNewPaymentService_InvalidPolicy(t *testing.T) {
	_, err := NewPaymentService(nil, nil, nil, nil, nil, nil, "", config.AcquirerConfig{UnrecognizedStatus: "explode"})
	assert.Error(t, err)
}

func TestPaymentService_CreatePayment(t *testing.T) {
	ctx := context.Background()
	input := CreatePaymentInput{
		Reference:    "SO001",
		Amount:       25,
		Currency:     "usd",
		PartnerEmail: "buyer@example.com",
		SaleOrderIDs: []int64{101},
	}

	t.Run("success", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{})
		f.converter.On("PriceConversion", mock.Anything, mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(25)) }), "USD", "ADA").
			Return(&conversion.Quote{Price: decimal.RequireFromString("62.4999991"), LastUpdated: "T0"}, nil)
		f.gateway.On("CreatePayment", mock.Anything, gateway.CreatePaymentRequest{
			Amount:            62500000,
			ExpirationMinutes: 15,
			ReceiptEmail:      "buyer@example.com",
			Description:       "SO001",
			Name:              "SO001",
			OrderID:           "SO001",
		}).Return(&gateway.CreatePaymentResponse{UUID: testUUID}, nil)
		f.gateway.On("GetPaymentByUUID", mock.Anything, testUUID).Return(&models.PaymentRecord{
			UUID:           testUUID,
			OrderID:        "SO001",
			Address:        "addr_test1qz",
			Amount:         62500000,
			Status:         models.StatusNew,
			PendingAmount:  62500000,
			ExpirationDate: "2024-05-01T10:15:00Z",
			UpdateTime:     "2024-05-01T10:00:00Z",
		}, nil)
		f.producer.On("Send", mock.Anything, "adapay.transactions", "SO001", mock.Anything).Return(nil).Once()

		created, err := f.svc.CreatePayment(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, FormActionURL, created.FormActionURL)

		stored := f.txs.get("SO001")
		require.NotNil(t, stored)
		assert.Equal(t, models.StatePending, stored.State)
		assert.Equal(t, models.StatusNew, stored.Status)
		assert.Equal(t, testUUID, stored.UUID)
		assert.Equal(t, 62.5, stored.AdaAmount)
		assert.Equal(t, 62.5, stored.TotalAmountLeft)
		assert.Equal(t, 15, stored.ExpirationMinutes)
		assert.Equal(t, "USD", stored.Currency)
		assert.Equal(t, models.EmptyHistory, stored.TransactionHistory)
		require.Len(t, f.saleOrders.messages[101], 1)
		assert.Contains(t, f.saleOrders.messages[101][0], "AdaPay payment request created with data:")
		assert.Empty(t, f.locker.held)
		f.gateway.AssertExpectations(t)
		f.producer.AssertExpectations(t)
	})

	t.Run("conversion failure stores nothing", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{})
		f.converter.On("PriceConversion", mock.Anything, mock.Anything, "USD", "ADA").
			Return(nil, errors.New("rate limited"))

		_, err := f.svc.CreatePayment(ctx, input)
		assert.ErrorIs(t, err, pkgerrors.ErrConversionUnavailable)
		assert.Equal(t, "We cannot get the ADA currency rate. Please try again.", err.Error())
		assert.Nil(t, f.txs.get("SO001"))
		f.gateway.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
	})

	t.Run("gateway create failure stores nothing", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{})
		f.converter.On("PriceConversion", mock.Anything, mock.Anything, "USD", "ADA").
			Return(&conversion.Quote{Price: decimal.NewFromInt(60)}, nil)
		f.gateway.On("CreatePayment", mock.Anything, mock.Anything).Return(nil, errors.New("502"))

		_, err := f.svc.CreatePayment(ctx, input)
		assert.ErrorIs(t, err, pkgerrors.ErrGatewayUnavailable)
		assert.Equal(t, "We cannot create the AdaPay payment request. Please try again.", err.Error())
		assert.Nil(t, f.txs.get("SO001"))
		assert.Empty(t, f.saleOrders.messages)
	})

	t.Run("gateway fetch failure stores nothing", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{})
		f.converter.On("PriceConversion", mock.Anything, mock.Anything, "USD", "ADA").
			Return(&conversion.Quote{Price: decimal.NewFromInt(60)}, nil)
		f.gateway.On("CreatePayment", mock.Anything, mock.Anything).Return(&gateway.CreatePaymentResponse{UUID: testUUID}, nil)
		f.gateway.On("GetPaymentByUUID", mock.Anything, testUUID).Return(nil, errors.New("timeout"))

		_, err := f.svc.CreatePayment(ctx, input)
		assert.ErrorIs(t, err, pkgerrors.ErrGatewayUnavailable)
		assert.Nil(t, f.txs.get("SO001"))
	})

	t.Run("duplicate reference", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{})
		f.seed(t, "SO001")

		_, err := f.svc.CreatePayment(ctx, input)
		assert.ErrorIs(t, err, pkgerrors.ErrTransactionExists)
		f.converter.AssertNotCalled(t, "PriceConversion", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("validation", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{})

		_, err := f.svc.CreatePayment(ctx, CreatePaymentInput{Reference: "SO002", Amount: 0, Currency: "USD"})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidAmount)

		_, err = f.svc.CreatePayment(ctx, CreatePaymentInput{Reference: " ", Amount: 5, Currency: "USD"})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidReference)

		_, err = f.svc.CreatePayment(ctx, CreatePaymentInput{Reference: "SO002", Amount: 5})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})

	t.Run("locked reference", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{})
		f.locker.held = map[string]string{lockKey("SO001"): "other-instance"}

		_, err := f.svc.CreatePayment(ctx, input)
		assert.ErrorIs(t, err, pkgerrors.ErrTransactionLocked)
		assert.Equal(t, "other-instance", f.locker.held[lockKey("SO001")])
		f.gateway.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
	})
}

func TestPaymentService_HandleWebhook_StatusUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed drives done once", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{UseWebhook: true})
		f.seed(t, "SO001")
		f.producer.On("Send", mock.Anything, "adapay.transactions", "SO001", mock.Anything).Return(nil).Once()

		event := webhookEvent(t, models.EventPaymentRequestUpdate, models.StatusUpdate{
			OrderID:         "SO001",
			Status:          models.StatusConfirmed,
			ConfirmedAmount: 62500000,
			UpdateTime:      "T1",
			SubStatus:       "",
		})
		assert.True(t, f.svc.HandleWebhook(ctx, event))
		assert.True(t, f.svc.HandleWebhook(ctx, event))

		stored := f.txs.get("SO001")
		assert.Equal(t, models.StateDone, stored.State)
		assert.Equal(t, models.StatusConfirmed, stored.Status)
		assert.Equal(t, 62.5, stored.TotalAmountSent)
		assert.Equal(t, "T1", stored.LastUpdated)
		assert.Len(t, f.saleOrders.messages[101], 2)
		f.producer.AssertExpectations(t)
	})

	t.Run("in progress keeps pending", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{UseWebhook: true})
		f.seed(t, "SO001")

		for _, status := range []models.PaymentStatus{models.StatusNew, models.StatusPaymentSent, models.StatusPending} {
			event := webhookEvent(t, models.EventPaymentRequestUpdate, models.StatusUpdate{OrderID: "SO001", Status: status, UpdateTime: string(status)})
			assert.True(t, f.svc.HandleWebhook(ctx, event))
			assert.Equal(t, models.StatePending, f.txs.get("SO001").State)
		}
		f.producer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unrecognized status cancels by default", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{UseWebhook: true})
		f.seed(t, "SO001")
		f.producer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		event := webhookEvent(t, models.EventPaymentRequestUpdate, models.StatusUpdate{OrderID: "SO001", Status: "refunded", UpdateTime: "T1"})
		assert.True(t, f.svc.HandleWebhook(ctx, event))
		assert.Equal(t, models.StateCancel, f.txs.get("SO001").State)
		assert.Equal(t, models.PaymentStatus("refunded"), f.txs.get("SO001").Status)
	})

	t.Run("unrecognized status ignored by policy", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{UseWebhook: true, UnrecognizedStatus: "ignore"})
		f.seed(t, "SO001")

		event := webhookEvent(t, models.EventPaymentRequestUpdate, models.StatusUpdate{OrderID: "SO001", Status: "refunded", UpdateTime: "T1"})
		assert.True(t, f.svc.HandleWebhook(ctx, event))
		assert.Equal(t, models.StatePending, f.txs.get("SO001").State)
		assert.Equal(t, models.PaymentStatus("refunded"), f.txs.get("SO001").Status)
	})

	t.Run("unknown reference is dropped", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{UseWebhook: true})

		event := webhookEvent(t, models.EventPaymentRequestUpdate, models.StatusUpdate{OrderID: "SO404", Status: models.StatusConfirmed, UpdateTime: "T1"})
		assert.False(t, f.svc.HandleWebhook(ctx, event))
		assert.Empty(t, f.locker.held)
	})

	t.Run("malformed payload", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{UseWebhook: true})

		event := models.WebhookEvent{Event: models.EventPaymentRequestUpdate, Data: json.RawMessage(`"nope"`)}
		assert.False(t, f.svc.HandleWebhook(ctx, event))
	})

	t.Run("missing status or update time changes nothing", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{UseWebhook: true})
		f.seed(t, "SO001")

		for _, data := range []string{
			`{"orderId":"SO001"}`,
			`{"orderId":"SO001","updateTime":"T1"}`,
			`{"orderId":"SO001","status":"confirmed"}`,
		} {
			event := models.WebhookEvent{Event: models.EventPaymentRequestUpdate, Data: json.RawMessage(data)}
			assert.False(t, f.svc.HandleWebhook(ctx, event), data)
		}

		stored := f.txs.get("SO001")
		assert.Equal(t, models.StatePending, stored.State)
		assert.Equal(t, models.StatusNew, stored.Status)
		assert.Equal(t, 0, f.txs.updates)
		assert.Empty(t, f.saleOrders.messages)
		f.producer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPaymentService_HandleWebhook_TransactionsUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("merge then replay", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{UseWebhook: true})
		f.seed(t, "SO001")

		event := webhookEvent(t, models.EventPaymentRequestTransactionsUpdate, models.TransactionUpdate{
			PaymentRequestUUID: testUUID,
			Hash:               "h1",
			Amount:             5000000,
			UpdateTime:         "T1",
		})
		assert.True(t, f.svc.HandleWebhook(ctx, event))
		assert.True(t, f.svc.HandleWebhook(ctx, event))

		history := models.ParseHistory(f.txs.get("SO001").TransactionHistory)
		require.Contains(t, history, "h1")
		assert.Equal(t, 5.0, history["h1"].Amount)
		assert.Equal(t, "T1", history["h1"].UpdateTime)
		assert.Len(t, f.saleOrders.messages[101], 1)
		assert.Contains(t, f.saleOrders.messages[101][0], "AdaPay transaction update with data:")
	})

	t.Run("unknown uuid is dropped", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{UseWebhook: true})

		event := webhookEvent(t, models.EventPaymentRequestTransactionsUpdate, models.TransactionUpdate{
			PaymentRequestUUID: testUUID, Hash: "h1", Amount: 1, UpdateTime: "T1",
		})
		assert.False(t, f.svc.HandleWebhook(ctx, event))
	})

	t.Run("unrecognised event is not a failure", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{UseWebhook: true})
		f.seed(t, "SO001")

		assert.True(t, f.svc.HandleWebhook(ctx, models.WebhookEvent{Event: "paymentRequestDeleted"}))
		assert.Equal(t, 0, f.txs.updates)
	})
}

func TestPaymentService_StatusInfo(t *testing.T) {
	ctx := context.Background()

	t.Run("polling refresh applies gateway record", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{})
		f.seed(t, "SO001")
		f.producer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		f.gateway.On("GetPaymentByUUID", mock.Anything, testUUID).Return(&models.PaymentRecord{
			UUID:            testUUID,
			OrderID:         "SO001",
			Status:          models.StatusConfirmed,
			ConfirmedAmount: 62500000,
			UpdateTime:      "T2",
			Transactions: []models.TransactionUpdate{
				{Hash: "h1", Amount: 62500000, UpdateTime: "T2"},
			},
		}, nil)

		data, err := f.svc.StatusInfo(ctx, "SO001")
		require.NoError(t, err)
		assert.Equal(t, models.StatusConfirmed, data.Status)
		assert.Equal(t, "The transaction is confirmed!", data.Title)
		assert.Equal(t, "/payment/status", data.ReturnURL)
		require.Len(t, data.TransactionHistory, 1)
		assert.Equal(t, testUUID, data.TransactionHistory[0].PaymentRequestUUID)
		assert.Equal(t, models.StateDone, f.txs.get("SO001").State)
	})

	t.Run("unchanged update time only merges ledger", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{})
		tx := f.seed(t, "SO001")
		tx.LastUpdated = "T1"
		require.NoError(t, f.txs.Update(ctx, tx))
		f.gateway.On("GetPaymentByUUID", mock.Anything, testUUID).Return(&models.PaymentRecord{
			UUID:            testUUID,
			OrderID:         "SO001",
			Status:          models.StatusConfirmed,
			ConfirmedAmount: 62500000,
			UpdateTime:      "T1",
			Transactions: []models.TransactionUpdate{
				{Hash: "h2", Amount: 62500000, UpdateTime: "T1"},
			},
		}, nil)

		data, err := f.svc.StatusInfo(ctx, "SO001")
		require.NoError(t, err)
		assert.Equal(t, models.StatusNew, data.Status)
		require.Len(t, data.TransactionHistory, 1)

		stored := f.txs.get("SO001")
		assert.Equal(t, models.StatePending, stored.State)
		assert.Equal(t, models.StatusNew, stored.Status)
		assert.Zero(t, stored.TotalAmountSent)
		assert.Contains(t, models.ParseHistory(stored.TransactionHistory), "h2")
		require.Len(t, f.saleOrders.messages[101], 1)
		assert.Contains(t, f.saleOrders.messages[101][0], "AdaPay transaction update with data:")
		f.producer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("refresh failure is swallowed", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{})
		f.seed(t, "SO001")
		f.gateway.On("GetPaymentByUUID", mock.Anything, testUUID).Return(nil, errors.New("timeout"))
		f.now = f.now.Add(5 * time.Minute)

		data, err := f.svc.StatusInfo(ctx, "SO001")
		require.NoError(t, err)
		assert.Equal(t, models.StatusNew, data.Status)
		assert.Equal(t, 600, data.ExpirationSeconds)
		assert.Empty(t, data.ReturnURL)
	})

	t.Run("expires after window in webhook mode", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{UseWebhook: true})
		f.seed(t, "SO001")
		f.now = f.now.Add(16 * time.Minute)

		data, err := f.svc.StatusInfo(ctx, "SO001")
		require.NoError(t, err)
		assert.Equal(t, models.StatusExpired, data.Status)
		assert.Equal(t, 0, data.ExpirationSeconds)
		assert.Equal(t, models.StatusExpired, f.txs.get("SO001").Status)
		assert.Equal(t, models.StatePending, f.txs.get("SO001").State)
		f.gateway.AssertNotCalled(t, "GetPaymentByUUID", mock.Anything, mock.Anything)
	})

	t.Run("unknown reference", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{UseWebhook: true})

		_, err := f.svc.StatusInfo(ctx, "SO404")
		assert.ErrorIs(t, err, pkgerrors.ErrTransactionNotFound)
	})
}

func TestPaymentService_SyncPayments(t *testing.T) {
	ctx := context.Background()

	t.Run("webhook mode", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{UseWebhook: true})

		_, err := f.svc.SyncPayments(ctx)
		assert.ErrorIs(t, err, pkgerrors.ErrWebhookModeEnabled)
	})

	t.Run("processes open transactions only", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{})
		f.seed(t, "SO001")
		done := f.seed(t, "SO002")
		done.UUID = "8a7d0c55-0d0e-4f7e-93a4-2b1a3c9d5e01"
		done.State = models.StateDone
		require.NoError(t, f.txs.Update(ctx, done))
		f.producer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		f.gateway.On("GetPayments", mock.Anything).Return([]models.PaymentRecord{
			{UUID: testUUID, OrderID: "SO001", Status: models.StatusPaymentSent, PendingAmount: 1000000, UpdateTime: "T1"},
			{UUID: done.UUID, OrderID: "SO002", Status: models.StatusConfirmed, UpdateTime: "T1"},
			{UUID: "d2b8e0c4-1b7a-4c3f-9e7e-5a4b3c2d1e0f", OrderID: "SO999", Status: models.StatusNew, UpdateTime: "T1"},
		}, nil)

		result, err := f.svc.SyncPayments(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, result.Listed)
		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, models.StatusPaymentSent, f.txs.get("SO001").Status)
		assert.Equal(t, 1.0, f.txs.get("SO001").TotalAmountLeft)
		assert.Equal(t, "T1", f.txs.get("SO001").LastUpdated)
	})

	t.Run("record without status only merges ledger", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{})
		f.seed(t, "SO001")
		f.gateway.On("GetPayments", mock.Anything).Return([]models.PaymentRecord{
			{UUID: testUUID, OrderID: "SO001", UpdateTime: "T1", Transactions: []models.TransactionUpdate{
				{Hash: "h1", Amount: 1000000, UpdateTime: "T1"},
			}},
		}, nil)

		result, err := f.svc.SyncPayments(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Processed)

		stored := f.txs.get("SO001")
		assert.Equal(t, models.StatePending, stored.State)
		assert.Equal(t, models.StatusNew, stored.Status)
		assert.Empty(t, stored.LastUpdated)
		assert.Contains(t, models.ParseHistory(stored.TransactionHistory), "h1")
		f.producer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("gateway failure", func(t *testing.T) {
		f := newFixture(t, config.AcquirerConfig{})
		f.gateway.On("GetPayments", mock.Anything).Return(nil, errors.New("boom"))

		_, err := f.svc.SyncPayments(ctx)
		assert.ErrorContains(t, err, "failed to list payments")
	})
}
