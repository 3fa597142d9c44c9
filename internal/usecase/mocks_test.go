package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"content-paygate/internal/domain"
	"content-paygate/internal/domain/model"
	"content-paygate/internal/domain/ports/adapter"
	"content-paygate/internal/domain/ports/repository"
)

// ---- payment intent repository ----

type mockIntentRepo struct {
	mu      sync.Mutex
	intents map[string]*model.PaymentIntent
	saveErr error

	// markConfirmedOverride forces MarkConfirmed to report a lost race.
	markConfirmedOverride *bool
}

func newMockIntentRepo() *mockIntentRepo {
	return &mockIntentRepo{intents: make(map[string]*model.PaymentIntent)}
}

func (m *mockIntentRepo) Save(_ context.Context, _ repository.Tx, intent *model.PaymentIntent) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *intent
	m.intents[intent.ID] = &cp
	return nil
}

func (m *mockIntentRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.intents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *intent
	return &cp, nil
}

func (m *mockIntentRepo) MarkConfirmed(_ context.Context, _ repository.Tx, id, signature, payerAddress string, confirmedAt time.Time) (bool, error) {
	if m.markConfirmedOverride != nil {
		return *m.markConfirmedOverride, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.intents[id]
	if !ok || intent.Status != model.PaymentIntentStatusPending {
		return false, nil
	}
	intent.Status = model.PaymentIntentStatusConfirmed
	intent.TransactionSignature = &signature
	intent.PayerAddress = &payerAddress
	intent.ConfirmedAt = &confirmedAt
	return true, nil
}

func (m *mockIntentRepo) UpdateStatusIfPending(_ context.Context, _ repository.Tx, id string, status model.PaymentIntentStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.intents[id]
	if !ok || intent.Status != model.PaymentIntentStatusPending {
		return false, nil
	}
	intent.Status = status
	return true, nil
}

func (m *mockIntentRepo) ListPendingExpired(_ context.Context, _ repository.Tx, asOf time.Time, limit int) ([]*model.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PaymentIntent
	for _, intent := range m.intents {
		if intent.Status == model.PaymentIntentStatusPending && intent.ExpiresAt.Before(asOf) {
			cp := *intent
			out = append(out, &cp)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// status reads the stored status, for assertions.
func (m *mockIntentRepo) status(id string) model.PaymentIntentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if intent, ok := m.intents[id]; ok {
		return intent.Status
	}
	return ""
}

// ---- purchase repository ----

type mockPurchaseRepo struct {
	mu          sync.Mutex
	bySignature map[string]*model.Purchase
	byID        map[string]*model.Purchase
	createErr   error

	// beforeCreate runs inside Create before the uniqueness check, letting
	// tests interleave a concurrent winner.
	beforeCreate func()
}

func newMockPurchaseRepo() *mockPurchaseRepo {
	return &mockPurchaseRepo{
		bySignature: make(map[string]*model.Purchase),
		byID:        make(map[string]*model.Purchase),
	}
}

func (m *mockPurchaseRepo) Create(_ context.Context, _ repository.Tx, purchase *model.Purchase) error {
	if m.beforeCreate != nil {
		m.beforeCreate()
		m.beforeCreate = nil
	}
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.bySignature[purchase.TransactionSignature]; exists {
		return domain.ErrAlreadyExists
	}
	cp := *purchase
	m.bySignature[purchase.TransactionSignature] = &cp
	m.byID[purchase.ID] = &cp
	return nil
}

func (m *mockPurchaseRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPurchaseRepo) FindByTransactionSignature(_ context.Context, _ repository.Tx, signature string) (*model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.bySignature[signature]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPurchaseRepo) ListByWallet(_ context.Context, _ repository.Tx, payerAddress string, offset, limit int) ([]*model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Purchase
	for _, p := range m.byID {
		if p.PayerAddress == payerAddress {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockPurchaseRepo) insert(p *model.Purchase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.bySignature[p.TransactionSignature] = &cp
	m.byID[p.ID] = &cp
}

// ---- catalog repository ----

type mockCatalogRepo struct {
	mu         sync.Mutex
	merchants  map[string]*model.Merchant
	contents   map[string]*model.Content
	increments map[string]int
	incrErr    error
}

func newMockCatalogRepo() *mockCatalogRepo {
	return &mockCatalogRepo{
		merchants:  make(map[string]*model.Merchant),
		contents:   make(map[string]*model.Content),
		increments: make(map[string]int),
	}
}

func (m *mockCatalogRepo) FindMerchantByID(_ context.Context, _ repository.Tx, id string) (*model.Merchant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	merchant, ok := m.merchants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *merchant
	return &cp, nil
}

func (m *mockCatalogRepo) FindContentByID(_ context.Context, _ repository.Tx, id string) (*model.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.contents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *content
	return &cp, nil
}

func (m *mockCatalogRepo) IncrementPurchaseCount(_ context.Context, _ repository.Tx, contentID string) error {
	if m.incrErr != nil {
		return m.incrErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.increments[contentID]++
	return nil
}

// ---- chain verifier + registry ----

type mockVerifier struct {
	chain  model.Chain
	result adapter.VerificationResult
	calls  int
}

func (v *mockVerifier) Chain() model.Chain { return v.chain }

func (v *mockVerifier) Verify(_ context.Context, _, _ string, _ int64, _ string) adapter.VerificationResult {
	v.calls++
	return v.result
}

type mockRegistry struct {
	verifiers map[model.Chain]adapter.ChainVerifier
}

func newMockRegistry(verifiers ...adapter.ChainVerifier) *mockRegistry {
	r := &mockRegistry{verifiers: make(map[model.Chain]adapter.ChainVerifier)}
	for _, v := range verifiers {
		r.verifiers[v.Chain()] = v
	}
	return r
}

func (r *mockRegistry) Get(chain model.Chain) (adapter.ChainVerifier, error) {
	v, ok := r.verifiers[chain]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedChain, chain)
	}
	return v, nil
}

// ---- access token issuer ----

type mockIssuer struct {
	issueErr error
	issued   int
}

func (i *mockIssuer) Issue(merchantID, contentID, walletAddress, purchaseID string, _ time.Duration) (string, error) {
	if i.issueErr != nil {
		return "", i.issueErr
	}
	i.issued++
	return fmt.Sprintf("token-%s-%s-%s", merchantID, contentID, purchaseID), nil
}

func (i *mockIssuer) Verify(_ string) (*adapter.AccessClaims, error) {
	return nil, domain.ErrInvalidArgument
}
