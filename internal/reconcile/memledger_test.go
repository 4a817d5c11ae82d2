package reconcile

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tuncanbit/recon/internal/domain"
	"github.com/tuncanbit/recon/pkg/config"
)

// memLedger is an in-memory Ledger with the same uniqueness and
// compare-and-set semantics as the Postgres implementation.
type memLedger struct {
	mu            sync.Mutex
	payments      map[string]*domain.PaymentRecord      // by intent id
	subscriptions map[string]*domain.SubscriptionRecord // by record id
	invoices      map[string]*domain.InvoiceRecord      // by number
	wallets       map[string]*domain.WalletAccount      // by wallet id
	withdrawals   map[string]*domain.WithdrawalRequest  // by withdrawal id
	walletTxs     map[string]*domain.WalletTransaction  // by reference
	disputes      map[string]*domain.DisputeCase        // by external id
	audit         map[string]*domain.EventAuditEntry    // by event id
	admins        []string
	failOps       map[string]error // injected failures by operation name
}

func newMemLedger() *memLedger {
	return &memLedger{
		payments:      make(map[string]*domain.PaymentRecord),
		subscriptions: make(map[string]*domain.SubscriptionRecord),
		invoices:      make(map[string]*domain.InvoiceRecord),
		wallets:       make(map[string]*domain.WalletAccount),
		withdrawals:   make(map[string]*domain.WithdrawalRequest),
		walletTxs:     make(map[string]*domain.WalletTransaction),
		disputes:      make(map[string]*domain.DisputeCase),
		audit:         make(map[string]*domain.EventAuditEntry),
		failOps:       make(map[string]error),
	}
}

func (m *memLedger) failOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failOps, op)
		return
	}
	m.failOps[op] = err
}

func (m *memLedger) injected(op string) error {
	if err, ok := m.failOps[op]; ok {
		return err
	}
	return nil
}

func (m *memLedger) GetPaymentByIntent(_ context.Context, intentID string) (*domain.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("GetPaymentByIntent"); err != nil {
		return nil, err
	}
	p, ok := m.payments[intentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *memLedger) CreatePayment(_ context.Context, payment *domain.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("CreatePayment"); err != nil {
		return err
	}
	if _, ok := m.payments[payment.IntentID]; ok {
		return domain.ErrAlreadyExists
	}
	clone := *payment
	m.payments[payment.IntentID] = &clone
	return nil
}

func (m *memLedger) UpdatePayment(_ context.Context, payment *domain.PaymentRecord, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("UpdatePayment"); err != nil {
		return err
	}
	stored, ok := m.payments[payment.IntentID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	clone := *payment
	clone.Version = expectedVersion + 1
	m.payments[payment.IntentID] = &clone
	return nil
}

func (m *memLedger) GetSubscriptionByExternalID(_ context.Context, externalID string) (*domain.SubscriptionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("GetSubscriptionByExternalID"); err != nil {
		return nil, err
	}
	for _, sub := range m.subscriptions {
		if sub.ExternalID == externalID && externalID != "" {
			clone := *sub
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memLedger) GetActiveSubscriptionByPlan(_ context.Context, userID, planType string) (*domain.SubscriptionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.subscriptions {
		if sub.UserID == userID && sub.PlanType == planType && sub.Status == domain.SubscriptionStatusActive {
			clone := *sub
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memLedger) CreateSubscription(_ context.Context, sub *domain.SubscriptionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("CreateSubscription"); err != nil {
		return err
	}
	for _, existing := range m.subscriptions {
		if sub.ExternalID != "" && existing.ExternalID == sub.ExternalID {
			return domain.ErrAlreadyExists
		}
		if sub.ExternalID == "" && existing.UserID == sub.UserID &&
			existing.PlanType == sub.PlanType && existing.Status == domain.SubscriptionStatusActive {
			return domain.ErrAlreadyExists
		}
	}
	clone := *sub
	m.subscriptions[sub.ID] = &clone
	return nil
}

func (m *memLedger) UpdateSubscription(_ context.Context, sub *domain.SubscriptionRecord, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("UpdateSubscription"); err != nil {
		return err
	}
	stored, ok := m.subscriptions[sub.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	clone := *sub
	clone.Version = expectedVersion + 1
	m.subscriptions[sub.ID] = &clone
	return nil
}

func (m *memLedger) CreateInvoice(_ context.Context, invoice *domain.InvoiceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("CreateInvoice"); err != nil {
		return err
	}
	if _, ok := m.invoices[invoice.Number]; ok {
		return domain.ErrAlreadyExists
	}
	clone := *invoice
	m.invoices[invoice.Number] = &clone
	return nil
}

func (m *memLedger) GetWalletByID(_ context.Context, id string) (*domain.WalletAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *w
	return &clone, nil
}

func (m *memLedger) GetWalletByExternalAccount(_ context.Context, accountID string) (*domain.WalletAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.wallets {
		if w.ExternalAccountID == accountID {
			clone := *w
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memLedger) UpdateWallet(_ context.Context, wallet *domain.WalletAccount, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.wallets[wallet.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	clone := *wallet
	clone.Version = expectedVersion + 1
	m.wallets[wallet.ID] = &clone
	return nil
}

func (m *memLedger) GetWithdrawalByID(_ context.Context, id string) (*domain.WithdrawalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.withdrawals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *w
	return &clone, nil
}

func (m *memLedger) GetPendingWithdrawalByWallet(_ context.Context, walletID string) (*domain.WithdrawalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.withdrawals {
		if w.WalletID == walletID &&
			(w.Status == domain.WithdrawalStatusPending || w.Status == domain.WithdrawalStatusProcessing) {
			clone := *w
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memLedger) UpdateWithdrawal(_ context.Context, withdrawal *domain.WithdrawalRequest, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.withdrawals[withdrawal.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	clone := *withdrawal
	clone.Version = expectedVersion + 1
	m.withdrawals[withdrawal.ID] = &clone
	return nil
}

func (m *memLedger) CreateWalletTransaction(_ context.Context, tx *domain.WalletTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.walletTxs[tx.Reference]; ok {
		return domain.ErrAlreadyExists
	}
	clone := *tx
	m.walletTxs[tx.Reference] = &clone
	return nil
}

func (m *memLedger) GetDisputeByExternalID(_ context.Context, externalID string) (*domain.DisputeCase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.disputes[externalID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *d
	return &clone, nil
}

func (m *memLedger) CreateDispute(_ context.Context, dispute *domain.DisputeCase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.disputes[dispute.ExternalID]; ok {
		return domain.ErrAlreadyExists
	}
	clone := *dispute
	m.disputes[dispute.ExternalID] = &clone
	return nil
}

func (m *memLedger) UpdateDispute(_ context.Context, dispute *domain.DisputeCase, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.disputes[dispute.ExternalID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	clone := *dispute
	clone.Version = expectedVersion + 1
	m.disputes[dispute.ExternalID] = &clone
	return nil
}

func (m *memLedger) ListAdminUserIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.admins...), nil
}

func (m *memLedger) InsertAuditEntry(_ context.Context, entry *domain.EventAuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("InsertAuditEntry"); err != nil {
		return err
	}
	if _, ok := m.audit[entry.EventID]; ok {
		return domain.ErrDuplicateEvent
	}
	clone := *entry
	m.audit[entry.EventID] = &clone
	return nil
}

func (m *memLedger) GetAuditEntry(_ context.Context, eventID string) (*domain.EventAuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.audit[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *e
	return &clone, nil
}

func (m *memLedger) MarkAuditOutcome(_ context.Context, eventID string, outcome domain.AuditOutcome, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.audit[eventID]
	if !ok {
		return domain.ErrNotFound
	}
	e.Outcome = outcome
	e.Message = message
	return nil
}

type sentNotification struct {
	UserID string
	Title  string
	Kind   string
}

// memNotifier records deliveries and can simulate a broken channel.
type memNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *memNotifier) Notify(_ context.Context, userID, title, _, kind, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotification{UserID: userID, Title: title, Kind: kind})
	return nil
}

func (n *memNotifier) sentTo(userID string) []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentNotification
	for _, s := range n.sent {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out
}

func (n *memNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func newTestService(ledger *memLedger, notifier *memNotifier) *Service {
	return NewService(ledger, notifier, nil, config.BillingConfig{
		TaxRate:      "0.20",
		FreePlanType: "FREE",
	}, zerolog.Nop())
}
