package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordicloop/nordicloop-backend/internal/accounts"
	"github.com/nordicloop/nordicloop-backend/internal/bids"
	"github.com/nordicloop/nordicloop-backend/internal/gateway"
	"github.com/nordicloop/nordicloop-backend/internal/notifications"
	"github.com/nordicloop/nordicloop-backend/internal/payouts"
	"github.com/nordicloop/nordicloop-backend/pkg/db/models"
	"github.com/nordicloop/nordicloop-backend/pkg/enums"
	pkgerrors "github.com/nordicloop/nordicloop-backend/pkg/errors"
	"github.com/nordicloop/nordicloop-backend/pkg/logger"
	"github.com/nordicloop/nordicloop-backend/pkg/outbox"
	"github.com/nordicloop/nordicloop-backend/pkg/pagination"
)

type fakeRepo struct {
	intents map[uuid.UUID]*models.PaymentIntent
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{intents: map[uuid.UUID]*models.PaymentIntent{}}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, intent *models.PaymentIntent) error {
	intent.ID = uuid.New()
	intent.CreatedAt = time.Now().UTC()
	f.intents[intent.ID] = intent
	return nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	if intent, ok := f.intents[id]; ok {
		return intent, nil
	}
	return nil, ErrNotFound
}

func (f *fakeRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeRepo) FindOpenByBidID(ctx context.Context, bidID uuid.UUID) (*models.PaymentIntent, error) {
	for _, intent := range f.intents {
		if intent.BidID == bidID && intent.IsOpen() {
			return intent, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRepo) FindByGatewayIntentIDForUpdate(ctx context.Context, gatewayIntentID string) (*models.PaymentIntent, error) {
	for _, intent := range f.intents {
		if intent.GatewayIntentID != nil && *intent.GatewayIntentID == gatewayIntentID {
			return intent, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRepo) ListByCompanyID(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.PaymentIntent, error) {
	var intents []models.PaymentIntent
	for _, intent := range f.intents {
		if intent.BuyerCompanyID == companyID || intent.SellerCompanyID == companyID {
			intents = append(intents, *intent)
		}
	}
	return intents, nil
}

func (f *fakeRepo) Save(ctx context.Context, intent *models.PaymentIntent) error {
	f.intents[intent.ID] = intent
	return nil
}

type fakeBidsRepo struct {
	bids map[uuid.UUID]*models.Bid
	paid []uuid.UUID
}

func (f *fakeBidsRepo) WithTx(tx *gorm.DB) bids.Repository { return f }

func (f *fakeBidsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	if bid, ok := f.bids[id]; ok {
		return bid, nil
	}
	return nil, bids.ErrNotFound
}

func (f *fakeBidsRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeBidsRepo) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error {
	f.paid = append(f.paid, id)
	if bid, ok := f.bids[id]; ok {
		bid.Status = enums.BidStatusPaid
		bid.PaidAt = &paidAt
	}
	return nil
}

type fakeAccountsRepo struct {
	byCompany map[uuid.UUID]*models.SellerAccount
}

func (f *fakeAccountsRepo) WithTx(tx *gorm.DB) accounts.Repository { return f }

func (f *fakeAccountsRepo) FindByCompanyID(ctx context.Context, companyID uuid.UUID) (*models.SellerAccount, error) {
	if account, ok := f.byCompany[companyID]; ok {
		return account, nil
	}
	return nil, accounts.ErrNotFound
}

func (f *fakeAccountsRepo) FindByGatewayAccountID(ctx context.Context, id string) (*models.SellerAccount, error) {
	return nil, accounts.ErrNotFound
}

func (f *fakeAccountsRepo) Save(ctx context.Context, account *models.SellerAccount) error {
	return nil
}

type fakePlans struct {
	plan enums.SubscriptionPlan
}

func (f *fakePlans) PlanFor(ctx context.Context, companyID uuid.UUID) (enums.SubscriptionPlan, error) {
	if f.plan == "" {
		return enums.SubscriptionPlanFree, nil
	}
	return f.plan, nil
}

type fakeGateway struct {
	createInput *gateway.CreateIntentInput
	createErr   error
	intent      *gateway.Intent
	canceled    []string
	getIntent   *gateway.Intent
}

func (f *fakeGateway) CreateIntent(ctx context.Context, input gateway.CreateIntentInput) (*gateway.Intent, error) {
	f.createInput = &input
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.intent != nil {
		return f.intent, nil
	}
	return &gateway.Intent{
		ID:           "pi_1",
		ClientSecret: "pi_1_secret",
		Status:       enums.PaymentIntentStatusRequiresPaymentMethod,
		AmountCents:  input.AmountCents,
		Currency:     input.Currency,
	}, nil
}

func (f *fakeGateway) GetIntent(ctx context.Context, id string) (*gateway.Intent, error) {
	return f.getIntent, nil
}

func (f *fakeGateway) CancelIntent(ctx context.Context, id string) (*gateway.Intent, error) {
	f.canceled = append(f.canceled, id)
	return &gateway.Intent{ID: id, Status: enums.PaymentIntentStatusCanceled}, nil
}

func (f *fakeGateway) CreatePayout(ctx context.Context, input gateway.CreatePayoutInput) (*gateway.Payout, error) {
	return nil, nil
}

func (f *fakeGateway) CreateAccount(ctx context.Context, input gateway.CreateAccountInput) (*gateway.Account, error) {
	return nil, nil
}

func (f *fakeGateway) GetAccount(ctx context.Context, id string) (*gateway.Account, error) {
	return nil, nil
}

type fakeLedger struct {
	materialized []*models.PaymentIntent
}

func (f *fakeLedger) Materialize(ctx context.Context, tx *gorm.DB, intent *models.PaymentIntent) ([]models.Transaction, error) {
	f.materialized = append(f.materialized, intent)
	return nil, nil
}

func (f *fakeLedger) ListByIntent(ctx context.Context, intentID uuid.UUID) ([]models.Transaction, error) {
	return nil, nil
}

func (f *fakeLedger) ListByCompany(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.Transaction, string, error) {
	return nil, "", nil
}

func (f *fakeLedger) MarkPayoutInTransit(ctx context.Context, tx *gorm.DB, intentID uuid.UUID, ref string) error {
	return nil
}

func (f *fakeLedger) MarkPayoutCompleted(ctx context.Context, tx *gorm.DB, intentID uuid.UUID, completedAt time.Time) error {
	return nil
}

func (f *fakeLedger) MarkPayoutFailed(ctx context.Context, tx *gorm.DB, intentID uuid.UUID) error {
	return nil
}

type fakePayouts struct {
	scheduled []*models.PaymentIntent
}

func (f *fakePayouts) ScheduleTx(ctx context.Context, tx *gorm.DB, intent *models.PaymentIntent) (*models.PayoutSchedule, error) {
	f.scheduled = append(f.scheduled, intent)
	return &models.PayoutSchedule{ID: uuid.New(), PaymentIntentID: intent.ID}, nil
}

func (f *fakePayouts) ExecuteDue(ctx context.Context, now time.Time) (payouts.RunStats, error) {
	return payouts.RunStats{}, nil
}

func (f *fakePayouts) MarkPaid(ctx context.Context, gatewayPayoutID string, paidAt time.Time) error {
	return nil
}

func (f *fakePayouts) MarkFailed(ctx context.Context, gatewayPayoutID string, failureMessage string) error {
	return nil
}

func (f *fakePayouts) GetByIntent(ctx context.Context, intentID uuid.UUID) (*models.PayoutSchedule, error) {
	return nil, nil
}

func (f *fakePayouts) ListBySeller(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.PayoutSchedule, string, error) {
	return nil, "", nil
}

type fakeNotifier struct {
	sent []notifications.NotifyInput
	err  error
}

func (f *fakeNotifier) NotifyTx(ctx context.Context, tx *gorm.DB, input notifications.NotifyInput) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, input)
	return nil
}

func (f *fakeNotifier) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return nil, nil
}

func (f *fakeNotifier) MarkRead(ctx context.Context, companyID, notificationID uuid.UUID) error {
	return nil
}

func (f *fakeNotifier) MarkAllRead(ctx context.Context, companyID uuid.UUID) (int64, error) {
	return 0, nil
}

type fakeEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeEmitter) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	for _, existing := range f.events {
		if existing.EventType == event.EventType && existing.AggregateID == event.AggregateID {
			return nil
		}
	}
	f.events = append(f.events, event)
	return nil
}

type fakeTxRunner struct{}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type testEnv struct {
	svc      Service
	repo     *fakeRepo
	bids     *fakeBidsRepo
	accounts *fakeAccountsRepo
	plans    *fakePlans
	gateway  *fakeGateway
	ledger   *fakeLedger
	payouts  *fakePayouts
	notifier *fakeNotifier
	emitter  *fakeEmitter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:     newFakeRepo(),
		bids:     &fakeBidsRepo{bids: map[uuid.UUID]*models.Bid{}},
		accounts: &fakeAccountsRepo{byCompany: map[uuid.UUID]*models.SellerAccount{}},
		plans:    &fakePlans{},
		gateway:  &fakeGateway{},
		ledger:   &fakeLedger{},
		payouts:  &fakePayouts{},
		notifier: &fakeNotifier{},
		emitter:  &fakeEmitter{},
	}
	svc, err := NewService(ServiceParams{
		Repo:              env.repo,
		BidsRepo:          env.bids,
		AccountsRepo:      env.accounts,
		Subscriptions:     env.plans,
		Gateway:           env.gateway,
		Ledger:            env.ledger,
		Payouts:           env.payouts,
		Notifications:     env.notifier,
		Outbox:            env.emitter,
		TransactionRunner: &fakeTxRunner{},
		Logger:            logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	env.svc = svc
	return env
}

func (e *testEnv) wonBid(t *testing.T) *models.Bid {
	t.Helper()
	bid := &models.Bid{
		ID:                uuid.New(),
		ListingID:         uuid.New(),
		BuyerCompanyID:    uuid.New(),
		SellerCompanyID:   uuid.New(),
		PricePerUnitCents: 22000,
		Volume:            50,
		Currency:          enums.CurrencySEK,
		Status:            enums.BidStatusWon,
	}
	e.bids.bids[bid.ID] = bid
	e.accounts.byCompany[bid.SellerCompanyID] = &models.SellerAccount{
		CompanyID:        bid.SellerCompanyID,
		GatewayAccountID: "acct_seller",
		Status:           enums.AccountStatusActive,
	}
	return bid
}

func TestCreateIntent_SplitsAndFreezesRate(t *testing.T) {
	env := newTestEnv(t)
	env.plans.plan = enums.SubscriptionPlanStandard
	bid := env.wonBid(t)

	intent, err := env.svc.CreateIntent(context.Background(), CreateIntentInput{
		BidID:          bid.ID,
		BuyerCompanyID: bid.BuyerCompanyID,
	})
	if err != nil {
		t.Fatalf("CreateIntent error: %v", err)
	}

	if intent.AmountCents != 1100000 {
		t.Fatalf("total = %d, want 22000 x 50 = 1100000", intent.AmountCents)
	}
	if intent.CommissionCents != 77000 || intent.SellerAmountCents != 1023000 {
		t.Fatalf("split = %d/%d, want 77000/1023000", intent.CommissionCents, intent.SellerAmountCents)
	}
	if intent.CommissionRate.StringFixed(2) != "7.00" {
		t.Fatalf("rate = %s, want 7.00", intent.CommissionRate.StringFixed(2))
	}
	if intent.CommissionCents+intent.SellerAmountCents != intent.AmountCents {
		t.Fatal("amounts do not balance")
	}
	if intent.GatewayIntentID == nil || *intent.GatewayIntentID != "pi_1" {
		t.Fatal("gateway intent id not persisted")
	}
	if intent.GatewayClientSecret == nil || *intent.GatewayClientSecret != "pi_1_secret" {
		t.Fatal("client secret not persisted")
	}

	gwInput := env.gateway.createInput
	if gwInput == nil {
		t.Fatal("gateway was not called")
	}
	if gwInput.CommissionCents != 77000 || gwInput.DestinationAccount != "acct_seller" {
		t.Fatalf("unexpected gateway input: %+v", gwInput)
	}
}

func TestCreateIntent_ReturnsExistingOpenIntent(t *testing.T) {
	env := newTestEnv(t)
	bid := env.wonBid(t)

	first, err := env.svc.CreateIntent(context.Background(), CreateIntentInput{
		BidID:          bid.ID,
		BuyerCompanyID: bid.BuyerCompanyID,
	})
	if err != nil {
		t.Fatalf("first CreateIntent error: %v", err)
	}

	env.gateway.createInput = nil
	second, err := env.svc.CreateIntent(context.Background(), CreateIntentInput{
		BidID:          bid.ID,
		BuyerCompanyID: bid.BuyerCompanyID,
	})
	if err != nil {
		t.Fatalf("second CreateIntent error: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same intent, got %s and %s", first.ID, second.ID)
	}
	if env.gateway.createInput != nil {
		t.Fatal("retry must not hit the gateway again")
	}
}

func TestCreateIntent_RejectsUnpayableBid(t *testing.T) {
	env := newTestEnv(t)
	bid := env.wonBid(t)
	bid.Status = enums.BidStatusActive

	if _, err := env.svc.CreateIntent(context.Background(), CreateIntentInput{
		BidID:          bid.ID,
		BuyerCompanyID: bid.BuyerCompanyID,
	}); err == nil {
		t.Fatal("expected state conflict for non-won bid")
	}
}

func TestCreateIntent_RejectsWrongBuyer(t *testing.T) {
	env := newTestEnv(t)
	bid := env.wonBid(t)

	if _, err := env.svc.CreateIntent(context.Background(), CreateIntentInput{
		BidID:          bid.ID,
		BuyerCompanyID: uuid.New(),
	}); err == nil {
		t.Fatal("expected forbidden for wrong buyer")
	}
}

func TestCreateIntent_RejectsIncapableSeller(t *testing.T) {
	env := newTestEnv(t)
	bid := env.wonBid(t)
	env.accounts.byCompany[bid.SellerCompanyID].Status = enums.AccountStatusRestricted

	if _, err := env.svc.CreateIntent(context.Background(), CreateIntentInput{
		BidID:          bid.ID,
		BuyerCompanyID: bid.BuyerCompanyID,
	}); err == nil {
		t.Fatal("expected state conflict for restricted seller")
	}
}

func TestCreateIntent_GatewayFailureAbandonsIntent(t *testing.T) {
	env := newTestEnv(t)
	bid := env.wonBid(t)
	env.gateway.createErr = &gateway.Error{Kind: gateway.FailurePermanent, Message: "nope"}

	if _, err := env.svc.CreateIntent(context.Background(), CreateIntentInput{
		BidID:          bid.ID,
		BuyerCompanyID: bid.BuyerCompanyID,
	}); err == nil {
		t.Fatal("expected gateway failure to surface")
	}

	for _, intent := range env.repo.intents {
		if intent.Status != enums.PaymentIntentStatusFailed {
			t.Fatalf("abandoned intent should be failed, got %s", intent.Status)
		}
	}
}

func (e *testEnv) openIntent(t *testing.T) *models.PaymentIntent {
	t.Helper()
	bid := e.wonBid(t)
	intent, err := e.svc.CreateIntent(context.Background(), CreateIntentInput{
		BidID:          bid.ID,
		BuyerCompanyID: bid.BuyerCompanyID,
	})
	if err != nil {
		t.Fatalf("CreateIntent error: %v", err)
	}
	return intent
}

func TestComplete_SettlesIntent(t *testing.T) {
	env := newTestEnv(t)
	intent := env.openIntent(t)

	snapshot := &gateway.Intent{
		ID:          *intent.GatewayIntentID,
		Status:      enums.PaymentIntentStatusSucceeded,
		AmountCents: intent.AmountCents,
		Currency:    intent.Currency,
	}
	if err := env.svc.Complete(context.Background(), snapshot); err != nil {
		t.Fatalf("Complete error: %v", err)
	}

	stored := env.repo.intents[intent.ID]
	if stored.Status != enums.PaymentIntentStatusSucceeded || stored.SucceededAt == nil {
		t.Fatalf("unexpected intent state: %+v", stored)
	}
	if len(env.bids.paid) != 1 || env.bids.paid[0] != intent.BidID {
		t.Fatalf("expected bid marked paid, got %v", env.bids.paid)
	}
	if len(env.ledger.materialized) != 1 {
		t.Fatalf("expected ledger materialization, got %d", len(env.ledger.materialized))
	}
	if len(env.payouts.scheduled) != 1 {
		t.Fatalf("expected payout scheduled, got %d", len(env.payouts.scheduled))
	}
	if len(env.notifier.sent) != 2 {
		t.Fatalf("expected buyer and seller notifications, got %d", len(env.notifier.sent))
	}
	if len(env.emitter.events) != 1 || env.emitter.events[0].EventType != enums.EventPaymentSucceeded {
		t.Fatalf("expected payment succeeded event, got %+v", env.emitter.events)
	}
}

func TestComplete_NotificationFailureDoesNotBlockSettlement(t *testing.T) {
	env := newTestEnv(t)
	intent := env.openIntent(t)
	env.notifier.err = context.DeadlineExceeded

	snapshot := &gateway.Intent{
		ID:          *intent.GatewayIntentID,
		Status:      enums.PaymentIntentStatusSucceeded,
		AmountCents: intent.AmountCents,
		Currency:    intent.Currency,
	}
	if err := env.svc.Complete(context.Background(), snapshot); err != nil {
		t.Fatalf("Complete error: %v", err)
	}

	stored := env.repo.intents[intent.ID]
	if stored.Status != enums.PaymentIntentStatusSucceeded {
		t.Fatalf("status = %s, want succeeded despite notification error", stored.Status)
	}
	if len(env.ledger.materialized) != 1 {
		t.Fatalf("expected ledger materialization, got %d", len(env.ledger.materialized))
	}
	if len(env.payouts.scheduled) != 1 {
		t.Fatalf("expected payout scheduled, got %d", len(env.payouts.scheduled))
	}
	if len(env.emitter.events) != 1 || env.emitter.events[0].EventType != enums.EventPaymentSucceeded {
		t.Fatalf("expected payment succeeded event, got %+v", env.emitter.events)
	}
}

func TestComplete_ReplayIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	intent := env.openIntent(t)
	snapshot := &gateway.Intent{
		ID:          *intent.GatewayIntentID,
		Status:      enums.PaymentIntentStatusSucceeded,
		AmountCents: intent.AmountCents,
	}

	if err := env.svc.Complete(context.Background(), snapshot); err != nil {
		t.Fatalf("first Complete error: %v", err)
	}
	if err := env.svc.Complete(context.Background(), snapshot); err != nil {
		t.Fatalf("replay error: %v", err)
	}

	if len(env.ledger.materialized) != 1 {
		t.Fatalf("replay must not materialize again, got %d", len(env.ledger.materialized))
	}
	if len(env.payouts.scheduled) != 1 {
		t.Fatalf("replay must not schedule again, got %d", len(env.payouts.scheduled))
	}
	if len(env.notifier.sent) != 2 {
		t.Fatalf("replay must not notify again, got %d", len(env.notifier.sent))
	}
}

func TestComplete_RejectsAmountMismatch(t *testing.T) {
	env := newTestEnv(t)
	intent := env.openIntent(t)

	snapshot := &gateway.Intent{
		ID:          *intent.GatewayIntentID,
		Status:      enums.PaymentIntentStatusSucceeded,
		AmountCents: intent.AmountCents + 1,
	}
	if err := env.svc.Complete(context.Background(), snapshot); err == nil {
		t.Fatal("expected amount mismatch to be rejected")
	}
}

func TestFail_AfterSuccessIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	intent := env.openIntent(t)

	if err := env.svc.Complete(context.Background(), &gateway.Intent{
		ID:          *intent.GatewayIntentID,
		Status:      enums.PaymentIntentStatusSucceeded,
		AmountCents: intent.AmountCents,
	}); err != nil {
		t.Fatalf("Complete error: %v", err)
	}

	if err := env.svc.Fail(context.Background(), *intent.GatewayIntentID, "card_declined", "declined"); err != nil {
		t.Fatalf("stale failure should be ignored, got %v", err)
	}
	if env.repo.intents[intent.ID].Status != enums.PaymentIntentStatusSucceeded {
		t.Fatal("settled intent must stay succeeded")
	}
}

func TestFail_RecordsFailureAndNotifiesBuyer(t *testing.T) {
	env := newTestEnv(t)
	intent := env.openIntent(t)

	if err := env.svc.Fail(context.Background(), *intent.GatewayIntentID, "insufficient_funds", "not enough"); err != nil {
		t.Fatalf("Fail error: %v", err)
	}

	stored := env.repo.intents[intent.ID]
	if stored.Status != enums.PaymentIntentStatusFailed {
		t.Fatalf("status = %s, want failed", stored.Status)
	}
	if stored.FailureCode == nil || *stored.FailureCode != "insufficient_funds" {
		t.Fatal("failure code not recorded")
	}
	if len(env.notifier.sent) != 1 || env.notifier.sent[0].Type != enums.NotificationTypePaymentFailed {
		t.Fatalf("expected payment failed notification, got %+v", env.notifier.sent)
	}
	if len(env.emitter.events) != 1 || env.emitter.events[0].EventType != enums.EventPaymentFailed {
		t.Fatalf("expected payment failed event, got %+v", env.emitter.events)
	}
}

func TestCancel_AbortsOpenIntent(t *testing.T) {
	env := newTestEnv(t)
	intent := env.openIntent(t)

	canceled, err := env.svc.Cancel(context.Background(), intent.ID, intent.BuyerCompanyID)
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if canceled.Status != enums.PaymentIntentStatusCanceled || canceled.CanceledAt == nil {
		t.Fatalf("unexpected intent state: %+v", canceled)
	}
	if len(env.gateway.canceled) != 1 || env.gateway.canceled[0] != *intent.GatewayIntentID {
		t.Fatalf("expected gateway cancel, got %v", env.gateway.canceled)
	}
}

func TestCancel_RejectsSettledIntent(t *testing.T) {
	env := newTestEnv(t)
	intent := env.openIntent(t)

	if err := env.svc.Complete(context.Background(), &gateway.Intent{
		ID:          *intent.GatewayIntentID,
		Status:      enums.PaymentIntentStatusSucceeded,
		AmountCents: intent.AmountCents,
	}); err != nil {
		t.Fatalf("Complete error: %v", err)
	}

	if _, err := env.svc.Cancel(context.Background(), intent.ID, intent.BuyerCompanyID); err == nil {
		t.Fatal("expected state conflict for settled intent")
	}
}

func TestConfirm_RoutesGatewaySuccess(t *testing.T) {
	env := newTestEnv(t)
	intent := env.openIntent(t)
	env.gateway.getIntent = &gateway.Intent{
		ID:          *intent.GatewayIntentID,
		Status:      enums.PaymentIntentStatusSucceeded,
		AmountCents: intent.AmountCents,
	}

	confirmed, err := env.svc.Confirm(context.Background(), intent.ID)
	if err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if confirmed.Status != enums.PaymentIntentStatusSucceeded {
		t.Fatalf("status = %s, want succeeded", confirmed.Status)
	}
	if len(env.payouts.scheduled) != 1 {
		t.Fatal("confirm should settle through the same path as the webhook")
	}
}

func TestConfirm_MovesToProcessing(t *testing.T) {
	env := newTestEnv(t)
	intent := env.openIntent(t)
	env.gateway.getIntent = &gateway.Intent{
		ID:     *intent.GatewayIntentID,
		Status: enums.PaymentIntentStatusProcessing,
	}

	confirmed, err := env.svc.Confirm(context.Background(), intent.ID)
	if err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if confirmed.Status != enums.PaymentIntentStatusProcessing {
		t.Fatalf("status = %s, want processing", confirmed.Status)
	}
}

func TestListByCompany_TrimsPageAndReturnsCursor(t *testing.T) {
	env := newTestEnv(t)
	companyID := uuid.New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		intent := &models.PaymentIntent{
			ID:             uuid.New(),
			BuyerCompanyID: companyID,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		env.repo.intents[intent.ID] = intent
	}
	// An unrelated intent must never leak into the page.
	stranger := &models.PaymentIntent{ID: uuid.New(), BuyerCompanyID: uuid.New()}
	env.repo.intents[stranger.ID] = stranger

	intents, cursor, err := env.svc.ListByCompany(context.Background(), companyID, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("ListByCompany error: %v", err)
	}
	if len(intents) != 2 {
		t.Fatalf("page size = %d, want 2", len(intents))
	}
	if cursor == "" {
		t.Fatal("expected a next-page cursor")
	}
	for _, intent := range intents {
		if intent.BuyerCompanyID != companyID && intent.SellerCompanyID != companyID {
			t.Fatalf("intent %s does not belong to the company", intent.ID)
		}
	}
}

func TestListByCompany_LastPageHasNoCursor(t *testing.T) {
	env := newTestEnv(t)
	companyID := uuid.New()
	intent := &models.PaymentIntent{ID: uuid.New(), SellerCompanyID: companyID}
	env.repo.intents[intent.ID] = intent

	intents, cursor, err := env.svc.ListByCompany(context.Background(), companyID, pagination.Params{Limit: 25})
	if err != nil {
		t.Fatalf("ListByCompany error: %v", err)
	}
	if len(intents) != 1 || cursor != "" {
		t.Fatalf("got %d intents, cursor %q, want 1 and empty", len(intents), cursor)
	}
}

func TestListByCompany_RequiresCompany(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.svc.ListByCompany(context.Background(), uuid.Nil, pagination.Params{})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
