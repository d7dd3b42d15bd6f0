package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	stderrors "errors"

	"github.com/honeynil/AdaPayAcquirer/internal/config"
	"github.com/honeynil/AdaPayAcquirer/internal/conversion"
	"github.com/honeynil/AdaPayAcquirer/internal/gateway"
	"github.com/honeynil/AdaPayAcquirer/internal/infrastructure/kafka"
	"github.com/honeynil/AdaPayAcquirer/internal/infrastructure/observability"
	"github.com/honeynil/AdaPayAcquirer/internal/models"
	"github.com/honeynil/AdaPayAcquirer/internal/reconcile"
	"github.com/honeynil/AdaPayAcquirer/internal/repository"
	"github.com/honeynil/AdaPayAcquirer/pkg/ada"
	pkgerrors "github.com/honeynil/AdaPayAcquirer/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// FormActionURL is where the checkout form posts once a request exists.
const FormActionURL = "/payment/adapay/accept"

const tracerName = "adapay-service"

// Refresh triggers, used as metric labels.
const (
	triggerStatus = "status"
	triggerSync   = "sync"
)

type CreatePaymentInput struct {
	Reference    string  `json:"reference"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	PartnerEmail string  `json:"partner_email"`
	SaleOrderIDs []int64 `json:"sale_order_ids"`
}

type CreatedPayment struct {
	Transaction   *models.Transaction `json:"transaction"`
	FormActionURL string              `json:"form_action_url"`
}

type SyncResult struct {
	Listed    int `json:"listed"`
	Processed int `json:"processed"`
}

type PaymentService interface {
	CreatePayment(ctx context.Context, in CreatePaymentInput) (*CreatedPayment, error)
	StatusInfo(ctx context.Context, reference string) (*models.DisplayData, error)
	HandleWebhook(ctx context.Context, event models.WebhookEvent) bool
	SyncPayments(ctx context.Context) (*SyncResult, error)
}

// Locker serialises work on a single transaction across instances. Release
// only succeeds for the token returned by the matching Acquire.
type Locker interface {
	Acquire(ctx context.Context, key string) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

type paymentService struct {
	transactionRepo repository.TransactionRepository
	saleOrderRepo   repository.SaleOrderRepository
	gateway         gateway.Client
	converter       conversion.Provider
	locker          Locker
	producer        kafka.KafkaProducer
	stateTopic      string
	cfg             config.AcquirerConfig
	policy          reconcile.UnrecognizedStatusPolicy
	now             func() time.Time
}

func NewPaymentService(
	transactionRepo repository.TransactionRepository,
	saleOrderRepo repository.SaleOrderRepository,
	gw gateway.Client,
	converter conversion.Provider,
	locker Locker,
	producer kafka.KafkaProducer,
	stateTopic string,
	cfg config.AcquirerConfig,
) (*paymentService, error) {
	policy, err := reconcile.ParsePolicy(cfg.UnrecognizedStatus)
	if err != nil {
		return nil, err
	}
	return &paymentService{
		transactionRepo: transactionRepo,
		saleOrderRepo:   saleOrderRepo,
		gateway:         gw,
		converter:       converter,
		locker:          locker,
		producer:        producer,
		stateTopic:      stateTopic,
		cfg:             cfg,
		policy:          policy,
		now:             time.Now,
	}, nil
}

// WithClock replaces the wall clock, for tests.
func (s *paymentService) WithClock(now func() time.Time) *paymentService {
	s.now = now
	return s
}

func (s *paymentService) CreatePayment(ctx context.Context, in CreatePaymentInput) (*CreatedPayment, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "CreatePayment")
	defer span.End()
	span.SetAttributes(attribute.String("reference", in.Reference))

	in.Reference = strings.TrimSpace(in.Reference)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Reference == "" {
		span.SetStatus(codes.Error, "empty reference")
		return nil, pkgerrors.ErrInvalidReference
	}
	if in.Amount <= 0 {
		span.SetStatus(codes.Error, "non-positive amount")
		return nil, pkgerrors.ErrInvalidAmount
	}
	if in.Currency == "" {
		span.SetStatus(codes.Error, "empty currency")
		return nil, pkgerrors.ErrInvalidInput
	}

	var created *models.Transaction
	err := s.withLock(ctx, in.Reference, func(ctx context.Context) error {
		existing, err := s.transactionRepo.GetByReference(ctx, in.Reference)
		if existing != nil || stderrors.Is(err, pkgerrors.ErrMultipleTransactions) {
			slog.Warn("transaction already exists", "reference", in.Reference)
			return pkgerrors.ErrTransactionExists
		}
		if err != nil && !stderrors.Is(err, pkgerrors.ErrTransactionNotFound) {
			return fmt.Errorf("failed to check transaction existence: %w", err)
		}

		tx, err := s.requestPayment(ctx, in)
		if err != nil {
			return err
		}
		if _, err := s.transactionRepo.Create(ctx, tx); err != nil {
			return err
		}
		s.postAudit(ctx, tx, "AdaPay payment request created with data: "+toJSON(tx))
		s.publishTransition(ctx, tx, reconcile.Transition{From: models.StateDraft, To: tx.State, Changed: true})
		created = tx
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create payment failed")
		slog.Error("failed to create payment", "reference", in.Reference, "error", err)
		return nil, err
	}

	observability.TransactionLogger(created.Reference, created.UUID).Info("payment request created",
		"ada_amount", created.AdaAmount,
		"address", created.Address,
		"expiration_minutes", created.ExpirationMinutes)
	return &CreatedPayment{Transaction: created, FormActionURL: FormActionURL}, nil
}

// requestPayment converts the amount and opens the gateway request. Nothing is
// persisted here, so a failure leaves no partial transaction behind.
func (s *paymentService) requestPayment(ctx context.Context, in CreatePaymentInput) (*models.Transaction, error) {
	quote, err := s.converter.PriceConversion(ctx, decimal.NewFromFloat(in.Amount), in.Currency, ada.Currency)
	if err != nil {
		slog.Error("conversion error", "reference", in.Reference, "currency", in.Currency, "error", err)
		return nil, pkgerrors.ErrConversionUnavailable
	}
	lovelace := ada.ADAToLovelace(quote.Price)
	if lovelace <= 0 {
		slog.Error("conversion returned a non-positive price", "reference", in.Reference, "price", quote.Price.String())
		return nil, pkgerrors.ErrConversionUnavailable
	}
	slog.Info("amount converted",
		"reference", in.Reference,
		"amount", in.Amount,
		"currency", in.Currency,
		"ada", quote.Price.String(),
		"last_updated", quote.LastUpdated)

	resp, err := s.gateway.CreatePayment(ctx, gateway.CreatePaymentRequest{
		Amount:            lovelace,
		ExpirationMinutes: s.cfg.ExpirationMinutes,
		ReceiptEmail:      in.PartnerEmail,
		Description:       in.Reference,
		Name:              in.Reference,
		OrderID:           in.Reference,
	})
	if err != nil {
		slog.Error("failed to create AdaPay payment request", "reference", in.Reference, "error", err)
		return nil, pkgerrors.ErrGatewayUnavailable
	}
	record, err := s.gateway.GetPaymentByUUID(ctx, resp.UUID)
	if err != nil {
		slog.Error("failed to fetch AdaPay payment request", "reference", in.Reference, "uuid", resp.UUID, "error", err)
		return nil, pkgerrors.ErrGatewayUnavailable
	}

	tx := models.NewTransaction(in.Reference, in.Amount, in.Currency)
	tx.PartnerEmail = in.PartnerEmail
	tx.SaleOrderIDs = in.SaleOrderIDs
	tx.UUID = record.UUID
	tx.Address = record.Address
	tx.AdaAmount = ada.LovelaceToADA(record.Amount)
	tx.TotalAmountSent = ada.LovelaceToADA(record.ConfirmedAmount)
	tx.TotalAmountLeft = ada.LovelaceToADA(record.PendingAmount)
	tx.ExpirationMinutes = s.cfg.ExpirationMinutes
	tx.ExpirationDate = record.ExpirationDate
	tx.UpdateTime = record.UpdateTime
	tx.SubStatus = record.SubStatus
	if record.Status != "" {
		tx.Status = record.Status
	}
	tx.State = models.StatePending
	return tx, nil
}

func (s *paymentService) StatusInfo(ctx context.Context, reference string) (*models.DisplayData, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "StatusInfo")
	defer span.End()
	span.SetAttributes(attribute.String("reference", reference))

	if reference == "" {
		return nil, pkgerrors.ErrInvalidReference
	}

	var data models.DisplayData
	err := s.withLock(ctx, reference, func(ctx context.Context) error {
		tx, err := s.transactionRepo.GetByReference(ctx, reference)
		if err != nil {
			return err
		}
		s.refresh(ctx, tx, triggerStatus)

		now := s.now()
		if reconcile.CheckExpiration(tx, now) {
			observability.TransactionLogger(tx.Reference, tx.UUID).Info("payment request expired")
			if err := s.transactionRepo.Update(ctx, tx); err != nil {
				return err
			}
		}
		data = reconcile.BuildDisplayData(tx, now, s.cfg.ReturnURL)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status info failed")
		slog.Error("failed to get payment status", "reference", reference, "error", err)
		return nil, err
	}
	return &data, nil
}

func (s *paymentService) HandleWebhook(ctx context.Context, event models.WebhookEvent) bool {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "HandleWebhook")
	defer span.End()
	span.SetAttributes(attribute.String("event", event.Event))

	var (
		processed bool
		result    string
	)
	switch event.Event {
	case models.EventPaymentRequestUpdate:
		processed, result = s.handleStatusEvent(ctx, event.Data)
	case models.EventPaymentRequestTransactionsUpdate:
		processed, result = s.handleTransactionEvent(ctx, event.Data)
	default:
		slog.Info("ignoring webhook event", "event", event.Event)
		processed, result = true, "ignored"
	}

	observability.WebhookEvents.WithLabelValues(event.Event, result).Inc()
	if !processed {
		span.SetStatus(codes.Error, result)
	}
	return processed
}

func (s *paymentService) handleStatusEvent(ctx context.Context, raw json.RawMessage) (bool, string) {
	var upd models.StatusUpdate
	if err := json.Unmarshal(raw, &upd); err != nil || upd.OrderID == "" || upd.Status == "" || upd.UpdateTime == "" {
		slog.Error("malformed payment update", "reference", upd.OrderID, "error", err)
		return false, "malformed"
	}
	slog.Info("webhook: received a payment update", "reference", upd.OrderID, "status", upd.Status)

	err := s.withLock(ctx, upd.OrderID, func(ctx context.Context) error {
		tx, err := s.transactionRepo.GetByReference(ctx, upd.OrderID)
		if err != nil {
			return err
		}
		return s.applyStatusUpdate(ctx, tx, upd)
	})
	return webhookOutcome(err, "reference", upd.OrderID)
}

func (s *paymentService) handleTransactionEvent(ctx context.Context, raw json.RawMessage) (bool, string) {
	var upd models.TransactionUpdate
	if err := json.Unmarshal(raw, &upd); err != nil || upd.PaymentRequestUUID == "" || upd.Hash == "" {
		slog.Error("malformed transaction update", "error", err)
		return false, "malformed"
	}
	slog.Info("webhook: received a transaction update", "uuid", upd.PaymentRequestUUID, "hash", upd.Hash)

	tx, err := s.transactionRepo.GetByUUID(ctx, upd.PaymentRequestUUID)
	if err != nil {
		return webhookOutcome(err, "uuid", upd.PaymentRequestUUID)
	}
	err = s.withLock(ctx, tx.Reference, func(ctx context.Context) error {
		tx, err := s.transactionRepo.GetByReference(ctx, tx.Reference)
		if err != nil {
			return err
		}
		return s.applyTransactionUpdate(ctx, tx, upd)
	})
	return webhookOutcome(err, "uuid", upd.PaymentRequestUUID)
}

func webhookOutcome(err error, key, value string) (bool, string) {
	switch {
	case err == nil:
		return true, "processed"
	case stderrors.Is(err, pkgerrors.ErrTransactionNotFound), stderrors.Is(err, pkgerrors.ErrMultipleTransactions):
		slog.Error("received notification for unknown transaction", key, value, "error", err)
		return false, "lookup_failed"
	default:
		slog.Error("failed to process notification", key, value, "error", err)
		return false, "error"
	}
}

func (s *paymentService) SyncPayments(ctx context.Context) (*SyncResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "SyncPayments")
	defer span.End()

	if s.cfg.UseWebhook {
		span.SetStatus(codes.Error, "webhook mode enabled")
		return nil, pkgerrors.ErrWebhookModeEnabled
	}

	slog.Info("starting AdaPay payments synchronization")
	records, err := s.gateway.GetPayments(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list payments failed")
		slog.Error("failed to list AdaPay payments", "error", err)
		observability.Refreshes.WithLabelValues(triggerSync, "error").Inc()
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	result := &SyncResult{Listed: len(records)}
	for i := range records {
		record := &records[i]
		ok, err := s.syncRecord(ctx, record)
		if err != nil {
			slog.Error("failed to synchronize payment", "uuid", record.UUID, "error", err)
			observability.Refreshes.WithLabelValues(triggerSync, "error").Inc()
			continue
		}
		if ok {
			result.Processed++
			observability.Refreshes.WithLabelValues(triggerSync, "ok").Inc()
		}
	}

	span.SetAttributes(attribute.Int("listed", result.Listed), attribute.Int("processed", result.Processed))
	slog.Info("AdaPay payments synchronization finished", "listed", result.Listed, "processed", result.Processed)
	return result, nil
}

func (s *paymentService) syncRecord(ctx context.Context, record *models.PaymentRecord) (bool, error) {
	if record.UUID == "" {
		return false, nil
	}
	tx, err := s.transactionRepo.GetByUUID(ctx, record.UUID)
	if stderrors.Is(err, pkgerrors.ErrTransactionNotFound) || stderrors.Is(err, pkgerrors.ErrMultipleTransactions) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if tx.State == models.StateDone {
		return false, nil
	}

	processed := false
	err = s.withLock(ctx, tx.Reference, func(ctx context.Context) error {
		tx, err := s.transactionRepo.GetByReference(ctx, tx.Reference)
		if err != nil {
			return err
		}
		if tx.State == models.StateDone {
			return nil
		}
		observability.TransactionLogger(tx.Reference, tx.UUID).Info("processing payment synchronization update")
		processed = true
		return s.processPaymentData(ctx, tx, record)
	})
	return processed, err
}

// refresh pulls the latest gateway record in polling mode. Failures are
// logged and left for the next refresh.
func (s *paymentService) refresh(ctx context.Context, tx *models.Transaction, trigger string) {
	if s.cfg.UseWebhook || tx.UUID == "" {
		return
	}
	logger := observability.TransactionLogger(tx.Reference, tx.UUID)
	logger.Info("going to look for the update")

	record, err := s.gateway.GetPaymentByUUID(ctx, tx.UUID)
	if err == nil {
		err = s.processPaymentData(ctx, tx, record)
	}
	if err != nil {
		logger.Warn("could not update payment status", "error", err)
		observability.Refreshes.WithLabelValues(trigger, "error").Inc()
		return
	}
	observability.Refreshes.WithLabelValues(trigger, "ok").Inc()
}

// processPaymentData applies a full gateway record: the status part only when
// the record carries a status and changed since the last update, and every
// ledger entry always.
func (s *paymentService) processPaymentData(ctx context.Context, tx *models.Transaction, record *models.PaymentRecord) error {
	if record.Status == "" {
		observability.TransactionLogger(tx.Reference, tx.UUID).Warn("payment record without status", "update_time", record.UpdateTime)
	} else if record.UpdateTime != tx.LastUpdated {
		observability.TransactionLogger(tx.Reference, tx.UUID).Info("received payment update", "update_time", record.UpdateTime)
		if err := s.applyStatusUpdate(ctx, tx, record.StatusUpdate()); err != nil {
			return err
		}
	}
	for _, upd := range record.Transactions {
		if upd.PaymentRequestUUID == "" {
			upd.PaymentRequestUUID = record.UUID
		}
		if err := s.applyTransactionUpdate(ctx, tx, upd); err != nil {
			return err
		}
	}
	return nil
}

func (s *paymentService) applyStatusUpdate(ctx context.Context, tx *models.Transaction, upd models.StatusUpdate) error {
	tr := reconcile.ApplyStatus(tx, upd, s.policy)
	if err := s.transactionRepo.Update(ctx, tx); err != nil {
		return err
	}
	s.postAudit(ctx, tx, "AdaPay payment update with data: "+toJSON(upd))
	if tr.Changed {
		observability.TransactionLogger(tx.Reference, tx.UUID).Info("transaction state changed",
			"from", tr.From, "to", tr.To, "status", tx.Status)
		s.publishTransition(ctx, tx, tr)
	}
	return nil
}

func (s *paymentService) applyTransactionUpdate(ctx context.Context, tx *models.Transaction, upd models.TransactionUpdate) error {
	record, merged, err := reconcile.MergeHistory(tx, upd)
	if err != nil {
		return fmt.Errorf("failed to merge transaction history: %w", err)
	}
	if !merged {
		return nil
	}
	if err := s.transactionRepo.Update(ctx, tx); err != nil {
		return err
	}
	s.postAudit(ctx, tx, "AdaPay transaction update with data: "+toJSON(record))
	return nil
}

// postAudit notes the update on every linked sales order. The transaction is
// already persisted, so failures are only logged.
func (s *paymentService) postAudit(ctx context.Context, tx *models.Transaction, body string) {
	for _, id := range tx.SaleOrderIDs {
		if err := s.saleOrderRepo.PostMessage(ctx, id, body); err != nil {
			slog.Error("failed to post sale order message", "reference", tx.Reference, "sale_order_id", id, "error", err)
		}
	}
}

func (s *paymentService) publishTransition(ctx context.Context, tx *models.Transaction, tr reconcile.Transition) {
	if !tr.Changed {
		return
	}
	observability.StateTransitions.WithLabelValues(string(tr.From), string(tr.To)).Inc()
	if s.producer == nil || s.stateTopic == "" {
		return
	}
	event := models.StateChangeEvent{
		TransactionID: tx.ID,
		Reference:     tx.Reference,
		UUID:          tx.UUID,
		From:          tr.From,
		To:            tr.To,
		Status:        tx.Status,
		OccurredAt:    s.now().UTC(),
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal Kafka event", "reference", tx.Reference, "error", err)
		return
	}
	if err := s.producer.Send(ctx, s.stateTopic, tx.Reference, eventBytes); err != nil {
		slog.Error("failed to send state change event", "reference", tx.Reference, "error", err)
	}
}

func (s *paymentService) withLock(ctx context.Context, reference string, fn func(ctx context.Context) error) error {
	lockKey := lockKey(reference)
	token, ok, err := s.locker.Acquire(ctx, lockKey)
	if err != nil {
		slog.Error("failed to acquire lock", "reference", reference, "error", err)
		return fmt.Errorf("%w: %v", pkgerrors.ErrTransactionLocked, err)
	}
	if !ok {
		slog.Error("transaction is locked", "reference", reference)
		return pkgerrors.ErrTransactionLocked
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), lockKey, token); err != nil {
			slog.Error("failed to release lock", "reference", reference, "error", err)
		}
	}()
	return fn(ctx)
}

func lockKey(reference string) string {
	return fmt.Sprintf("adapay:tx:%s:lock", reference)
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}
