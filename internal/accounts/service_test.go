package accounts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordicloop/nordicloop-backend/internal/gateway"
	"github.com/nordicloop/nordicloop-backend/internal/notifications"
	"github.com/nordicloop/nordicloop-backend/pkg/db/models"
	"github.com/nordicloop/nordicloop-backend/pkg/enums"
	pkgerrors "github.com/nordicloop/nordicloop-backend/pkg/errors"
	"github.com/nordicloop/nordicloop-backend/pkg/logger"
	"github.com/nordicloop/nordicloop-backend/pkg/outbox"
)

type fakeRepository struct {
	byGatewayID map[string]*models.SellerAccount
	byCompanyID map[uuid.UUID]*models.SellerAccount
	saved       []*models.SellerAccount
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) FindByCompanyID(ctx context.Context, companyID uuid.UUID) (*models.SellerAccount, error) {
	if account, ok := f.byCompanyID[companyID]; ok {
		return account, nil
	}
	return nil, ErrNotFound
}

func (f *fakeRepository) FindByGatewayAccountID(ctx context.Context, gatewayAccountID string) (*models.SellerAccount, error) {
	if account, ok := f.byGatewayID[gatewayAccountID]; ok {
		return account, nil
	}
	return nil, ErrNotFound
}

func (f *fakeRepository) Save(ctx context.Context, account *models.SellerAccount) error {
	f.saved = append(f.saved, account)
	return nil
}

type fakeGateway struct {
	account     *gateway.Account
	created     *gateway.Account
	createInput *gateway.CreateAccountInput
	createErr   error
}

func (f *fakeGateway) CreateIntent(ctx context.Context, input gateway.CreateIntentInput) (*gateway.Intent, error) {
	return nil, nil
}

func (f *fakeGateway) GetIntent(ctx context.Context, id string) (*gateway.Intent, error) {
	return nil, nil
}

func (f *fakeGateway) CancelIntent(ctx context.Context, id string) (*gateway.Intent, error) {
	return nil, nil
}

func (f *fakeGateway) CreatePayout(ctx context.Context, input gateway.CreatePayoutInput) (*gateway.Payout, error) {
	return nil, nil
}

func (f *fakeGateway) CreateAccount(ctx context.Context, input gateway.CreateAccountInput) (*gateway.Account, error) {
	f.createInput = &input
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.created != nil {
		return f.created, nil
	}
	return &gateway.Account{ID: "acct_new"}, nil
}

func (f *fakeGateway) GetAccount(ctx context.Context, id string) (*gateway.Account, error) {
	return f.account, nil
}

type fakeNotifier struct {
	sent []notifications.NotifyInput
}

func (f *fakeNotifier) NotifyTx(ctx context.Context, tx *gorm.DB, input notifications.NotifyInput) error {
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

func (f *fakeEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeTxRunner struct{}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

func newTestService(t *testing.T, repo *fakeRepository, gw *fakeGateway, notifier *fakeNotifier, emitter *fakeEmitter) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:              repo,
		Gateway:           gw,
		Notifications:     notifier,
		Outbox:            emitter,
		TransactionRunner: &fakeTxRunner{},
		Logger:            logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestOnboard_CreatesAccountAndEmitsEvent(t *testing.T) {
	companyID := uuid.New()
	repo := &fakeRepository{}
	gw := &fakeGateway{created: &gateway.Account{
		ID:              "acct_new",
		Country:         "NO",
		RequirementsDue: []string{"external_account"},
	}}
	emitter := &fakeEmitter{}
	svc := newTestService(t, repo, gw, &fakeNotifier{}, emitter)

	account, err := svc.Onboard(context.Background(), OnboardInput{
		CompanyID: companyID,
		Country:   "NO",
		Email:     "finance@example.no",
	})
	if err != nil {
		t.Fatalf("Onboard error: %v", err)
	}
	if account.GatewayAccountID != "acct_new" {
		t.Fatalf("gateway account id = %s", account.GatewayAccountID)
	}
	if account.Status != enums.AccountStatusPending {
		t.Fatalf("status = %s, want pending", account.Status)
	}
	if gw.createInput == nil || gw.createInput.ReferenceID != companyID.String() {
		t.Fatalf("gateway call should reference the company, got %+v", gw.createInput)
	}
	if gw.createInput.Country != "NO" || gw.createInput.Email != "finance@example.no" {
		t.Fatalf("unexpected gateway input %+v", gw.createInput)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("expected account saved once, got %d", len(repo.saved))
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventSellerAccountUpdated {
		t.Fatalf("expected seller account updated event, got %+v", emitter.events)
	}
}

func TestOnboard_DefaultsCountry(t *testing.T) {
	repo := &fakeRepository{}
	gw := &fakeGateway{}
	svc := newTestService(t, repo, gw, &fakeNotifier{}, &fakeEmitter{})

	if _, err := svc.Onboard(context.Background(), OnboardInput{CompanyID: uuid.New()}); err != nil {
		t.Fatalf("Onboard error: %v", err)
	}
	if gw.createInput.Country != "SE" {
		t.Fatalf("country = %s, want SE", gw.createInput.Country)
	}
}

func TestOnboard_RejectsExistingAccount(t *testing.T) {
	companyID := uuid.New()
	repo := &fakeRepository{byCompanyID: map[uuid.UUID]*models.SellerAccount{
		companyID: {ID: uuid.New(), CompanyID: companyID, GatewayAccountID: "acct_1"},
	}}
	gw := &fakeGateway{}
	svc := newTestService(t, repo, gw, &fakeNotifier{}, &fakeEmitter{})

	_, err := svc.Onboard(context.Background(), OnboardInput{CompanyID: companyID})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if gw.createInput != nil {
		t.Fatal("gateway must not be called for an existing account")
	}
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name     string
		snapshot gateway.Account
		want     enums.AccountStatus
	}{
		{
			name:     "fully capable",
			snapshot: gateway.Account{ChargesEnabled: true, PayoutsEnabled: true, DetailsSubmitted: true},
			want:     enums.AccountStatusActive,
		},
		{
			name:     "details submitted but payouts disabled",
			snapshot: gateway.Account{ChargesEnabled: true, DetailsSubmitted: true},
			want:     enums.AccountStatusRestricted,
		},
		{
			name:     "onboarding not started",
			snapshot: gateway.Account{},
			want:     enums.AccountStatusPending,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveStatus(&tc.snapshot); got != tc.want {
				t.Fatalf("DeriveStatus = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestSyncFromGateway_ActivatesAccount(t *testing.T) {
	companyID := uuid.New()
	stored := &models.SellerAccount{
		ID:               uuid.New(),
		CompanyID:        companyID,
		GatewayAccountID: "acct_1",
		Status:           enums.AccountStatusPending,
	}
	repo := &fakeRepository{byGatewayID: map[string]*models.SellerAccount{"acct_1": stored}}
	notifier := &fakeNotifier{}
	emitter := &fakeEmitter{}
	svc := newTestService(t, repo, &fakeGateway{}, notifier, emitter)

	account, err := svc.SyncFromGateway(context.Background(), &gateway.Account{
		ID:               "acct_1",
		ChargesEnabled:   true,
		PayoutsEnabled:   true,
		DetailsSubmitted: true,
		Country:          "SE",
		DefaultCurrency:  enums.CurrencySEK,
	})
	if err != nil {
		t.Fatalf("SyncFromGateway error: %v", err)
	}
	if account.Status != enums.AccountStatusActive {
		t.Fatalf("status = %s, want active", account.Status)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("expected account saved once, got %d", len(repo.saved))
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("activation should not notify, got %d notifications", len(notifier.sent))
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventSellerAccountUpdated {
		t.Fatalf("expected seller account updated event, got %+v", emitter.events)
	}
}

func TestSyncFromGateway_RestrictionNotifiesOnce(t *testing.T) {
	companyID := uuid.New()
	stored := &models.SellerAccount{
		ID:               uuid.New(),
		CompanyID:        companyID,
		GatewayAccountID: "acct_2",
		Status:           enums.AccountStatusActive,
	}
	repo := &fakeRepository{byGatewayID: map[string]*models.SellerAccount{"acct_2": stored}}
	notifier := &fakeNotifier{}
	emitter := &fakeEmitter{}
	svc := newTestService(t, repo, &fakeGateway{}, notifier, emitter)

	snapshot := &gateway.Account{
		ID:               "acct_2",
		ChargesEnabled:   true,
		PayoutsEnabled:   false,
		DetailsSubmitted: true,
		RequirementsDue:  []string{"external_account"},
	}

	account, err := svc.SyncFromGateway(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("SyncFromGateway error: %v", err)
	}
	if account.Status != enums.AccountStatusRestricted {
		t.Fatalf("status = %s, want restricted", account.Status)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Type != enums.NotificationTypeAccountAction {
		t.Fatalf("expected one action-required notification, got %+v", notifier.sent)
	}

	// Replaying the same snapshot must not notify again.
	if _, err := svc.SyncFromGateway(context.Background(), snapshot); err != nil {
		t.Fatalf("replay error: %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("replay should not notify again, got %d", len(notifier.sent))
	}
}

func TestSyncFromGateway_UnknownAccountIsSkipped(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(t, repo, &fakeGateway{}, &fakeNotifier{}, &fakeEmitter{})

	account, err := svc.SyncFromGateway(context.Background(), &gateway.Account{ID: "acct_missing"})
	if err != nil {
		t.Fatalf("SyncFromGateway error: %v", err)
	}
	if account != nil {
		t.Fatalf("expected nil account for unknown snapshot, got %+v", account)
	}
	if len(repo.saved) != 0 {
		t.Fatal("unknown account must not be saved")
	}
}

func TestRefresh_PullsFromGateway(t *testing.T) {
	companyID := uuid.New()
	stored := &models.SellerAccount{
		ID:               uuid.New(),
		CompanyID:        companyID,
		GatewayAccountID: "acct_3",
		Status:           enums.AccountStatusPending,
	}
	repo := &fakeRepository{
		byCompanyID: map[uuid.UUID]*models.SellerAccount{companyID: stored},
		byGatewayID: map[string]*models.SellerAccount{"acct_3": stored},
	}
	gw := &fakeGateway{account: &gateway.Account{
		ID:               "acct_3",
		ChargesEnabled:   true,
		PayoutsEnabled:   true,
		DetailsSubmitted: true,
	}}
	svc := newTestService(t, repo, gw, &fakeNotifier{}, &fakeEmitter{})

	account, err := svc.Refresh(context.Background(), companyID)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if account.Status != enums.AccountStatusActive {
		t.Fatalf("status = %s, want active", account.Status)
	}
}
