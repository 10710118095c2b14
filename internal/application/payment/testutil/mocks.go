// Package testutil provides in-memory fakes for testing the payment application layer.
package testutil

import (
	"context"
	"math/big"
	"sort"
	"sync"

	"github.com/orris-inc/usdtvote/internal/application/payment/blockchain"
	"github.com/orris-inc/usdtvote/internal/domain/payment"
	vo "github.com/orris-inc/usdtvote/internal/domain/payment/valueobjects"
)

// clonePayment copies p so that callers mutating a returned entity never touch stored state.
func clonePayment(p *payment.Payment) *payment.Payment {
	return payment.ReconstructPayment(payment.PaymentReconstructParams{
		ID:             p.ID(),
		TxHash:         p.TxHash(),
		Network:        p.Network(),
		ParticipantID:  p.ParticipantID(),
		IntentID:       p.IntentID(),
		ExpectedAmount: p.ExpectedAmount(),
		AmountUSD:      p.AmountUSD(),
		AmountMinor:    p.AmountMinor(),
		FromAddress:    p.FromAddress(),
		ToAddress:      p.ToAddress(),
		BlockNumber:    p.BlockNumber(),
		Confirmations:  p.Confirmations(),
		Status:         p.Status(),
		RejectReason:   p.RejectReason(),
		VoteCount:      p.VoteCount(),
		CreditStatus:   p.CreditStatus(),
		Metadata:       p.Metadata(),
		ConfirmedAt:    p.ConfirmedAt(),
		Version:        p.Version(),
		CreatedAt:      p.CreatedAt(),
		UpdatedAt:      p.UpdatedAt(),
	})
}

// MockPaymentRepository is an in-memory payment ledger with the same conditional-write
// semantics as the gorm repository.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*payment.Payment
	nextID   uint

	// Error injection for testing
	getError      error
	createError   error
	updateError   error
	finalizeError error
	listError     error

	finalizeCalls int
	listCalls     int
}

func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{payments: make(map[string]*payment.Payment)}
}

func (m *MockPaymentRepository) SetGetError(err error) { m.mu.Lock(); m.getError = err; m.mu.Unlock() }
func (m *MockPaymentRepository) SetCreateError(err error) {
	m.mu.Lock()
	m.createError = err
	m.mu.Unlock()
}
func (m *MockPaymentRepository) SetUpdateError(err error) {
	m.mu.Lock()
	m.updateError = err
	m.mu.Unlock()
}
func (m *MockPaymentRepository) SetFinalizeError(err error) {
	m.mu.Lock()
	m.finalizeError = err
	m.mu.Unlock()
}
func (m *MockPaymentRepository) SetListError(err error) {
	m.mu.Lock()
	m.listError = err
	m.mu.Unlock()
}

// Add stores p directly, bypassing the conditional insert.
func (m *MockPaymentRepository) Add(p *payment.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.SetID(m.nextID)
	m.payments[p.TxHash()] = clonePayment(p)
}

// Count returns the number of stored rows.
func (m *MockPaymentRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.payments)
}

// FinalizeCalls returns how many times FinalizeFromPending was called.
func (m *MockPaymentRepository) FinalizeCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.finalizeCalls
}

// ListCalls returns how many pages ListPending and ListCreditPending have served.
func (m *MockPaymentRepository) ListCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listCalls
}

func (m *MockPaymentRepository) GetByTxHash(ctx context.Context, txHash string) (*payment.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getError != nil {
		return nil, m.getError
	}
	p, ok := m.payments[txHash]
	if !ok {
		return nil, nil
	}
	return clonePayment(p), nil
}

func (m *MockPaymentRepository) CreateIfAbsent(ctx context.Context, p *payment.Payment) (*payment.Payment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createError != nil {
		return nil, false, m.createError
	}
	if existing, ok := m.payments[p.TxHash()]; ok {
		return clonePayment(existing), false, nil
	}
	m.nextID++
	p.SetID(m.nextID)
	m.payments[p.TxHash()] = clonePayment(p)
	return p, true, nil
}

func (m *MockPaymentRepository) UpdatePending(ctx context.Context, p *payment.Payment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateError != nil {
		return false, m.updateError
	}
	existing, ok := m.payments[p.TxHash()]
	if !ok || !existing.Status().IsPending() {
		return false, nil
	}
	m.payments[p.TxHash()] = clonePayment(p)
	return true, nil
}

func (m *MockPaymentRepository) FinalizeFromPending(ctx context.Context, p *payment.Payment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.finalizeCalls++
	if m.finalizeError != nil {
		return false, m.finalizeError
	}
	existing, ok := m.payments[p.TxHash()]
	if !ok || !existing.Status().IsPending() {
		return false, nil
	}
	m.payments[p.TxHash()] = clonePayment(p)
	return true, nil
}

func (m *MockPaymentRepository) ListPending(ctx context.Context, afterID uint, limit int) ([]*payment.Payment, error) {
	return m.list(afterID, limit, func(p *payment.Payment) bool { return p.Status().IsPending() })
}

func (m *MockPaymentRepository) ListCreditPending(ctx context.Context, afterID uint, limit int) ([]*payment.Payment, error) {
	return m.list(afterID, limit, func(p *payment.Payment) bool {
		return p.Status().IsConfirmed() && p.CreditStatus() == vo.CreditStatusPending
	})
}

func (m *MockPaymentRepository) list(afterID uint, limit int, keep func(*payment.Payment) bool) ([]*payment.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listCalls++
	if m.listError != nil {
		return nil, m.listError
	}
	var out []*payment.Payment
	for _, p := range m.payments {
		if p.ID() > afterID && keep(p) {
			out = append(out, clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockPaymentRepository) ClaimCredit(ctx context.Context, txHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payments[txHash]
	if !ok || !p.Status().IsConfirmed() || p.CreditStatus() != vo.CreditStatusPending {
		return false, nil
	}
	m.payments[txHash] = withCreditStatus(p, vo.CreditStatusCredited, nil)
	return true, nil
}

func (m *MockPaymentRepository) RecordCreditFailure(ctx context.Context, txHash string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payments[txHash]
	if !ok {
		return nil
	}
	md := p.Metadata()
	attempts, _ := md[payment.MetaCreditAttempts].(int)
	md[payment.MetaCreditError] = reason
	md[payment.MetaCreditAttempts] = attempts + 1
	m.payments[txHash] = withCreditStatus(p, p.CreditStatus(), md)
	return nil
}

// Snapshot captures the stored rows; the returned func restores them. Used to emulate rollback.
func (m *MockPaymentRepository) Snapshot() func() {
	m.mu.RLock()
	saved := make(map[string]*payment.Payment, len(m.payments))
	for k, v := range m.payments {
		saved[k] = clonePayment(v)
	}
	m.mu.RUnlock()

	return func() {
		m.mu.Lock()
		m.payments = saved
		m.mu.Unlock()
	}
}

func withCreditStatus(p *payment.Payment, status vo.CreditStatus, metadata map[string]any) *payment.Payment {
	if metadata == nil {
		metadata = p.Metadata()
	}
	return payment.ReconstructPayment(payment.PaymentReconstructParams{
		ID:             p.ID(),
		TxHash:         p.TxHash(),
		Network:        p.Network(),
		ParticipantID:  p.ParticipantID(),
		IntentID:       p.IntentID(),
		ExpectedAmount: p.ExpectedAmount(),
		AmountUSD:      p.AmountUSD(),
		AmountMinor:    p.AmountMinor(),
		FromAddress:    p.FromAddress(),
		ToAddress:      p.ToAddress(),
		BlockNumber:    p.BlockNumber(),
		Confirmations:  p.Confirmations(),
		Status:         p.Status(),
		RejectReason:   p.RejectReason(),
		VoteCount:      p.VoteCount(),
		CreditStatus:   status,
		Metadata:       metadata,
		ConfirmedAt:    p.ConfirmedAt(),
		Version:        p.Version(),
		CreatedAt:      p.CreatedAt(),
		UpdatedAt:      p.UpdatedAt(),
	})
}

// MockIntentRepository is an in-memory payment.IntentRepository.
type MockIntentRepository struct {
	mu      sync.RWMutex
	intents map[string]*payment.Intent

	createError error
}

func NewMockIntentRepository() *MockIntentRepository {
	return &MockIntentRepository{intents: make(map[string]*payment.Intent)}
}

func (m *MockIntentRepository) SetCreateError(err error) {
	m.mu.Lock()
	m.createError = err
	m.mu.Unlock()
}

func cloneIntent(i *payment.Intent) *payment.Intent {
	var txHash *string
	if i.TxHash() != nil {
		h := *i.TxHash()
		txHash = &h
	}
	return payment.ReconstructIntent(payment.IntentReconstructParams{
		ID:             i.ID(),
		ParticipantID:  i.ParticipantID(),
		Network:        i.Network(),
		VoteCount:      i.VoteCount(),
		ExpectedAmount: i.ExpectedAmount(),
		DepositAddress: i.DepositAddress(),
		Status:         i.Status(),
		TxHash:         txHash,
		CreatedAt:      i.CreatedAt(),
		UpdatedAt:      i.UpdatedAt(),
	})
}

func (m *MockIntentRepository) Create(ctx context.Context, intent *payment.Intent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createError != nil {
		return m.createError
	}
	m.intents[intent.ID()] = cloneIntent(intent)
	return nil
}

func (m *MockIntentRepository) GetByID(ctx context.Context, id string) (*payment.Intent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.intents[id]
	if !ok {
		return nil, nil
	}
	return cloneIntent(i), nil
}

func (m *MockIntentRepository) BindTransaction(ctx context.Context, id, txHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.intents[id]
	if !ok {
		return false, nil
	}
	if bound := i.TxHash(); bound != nil {
		return *bound == txHash, nil
	}
	cp := cloneIntent(i)
	if err := cp.BindTransaction(txHash); err != nil {
		return false, nil
	}
	m.intents[id] = cp
	return true, nil
}

func (m *MockIntentRepository) Update(ctx context.Context, intent *payment.Intent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents[intent.ID()] = cloneIntent(intent)
	return nil
}

// MockTransferFetcher serves scripted chain lookups keyed by tx hash.
type MockTransferFetcher struct {
	mu        sync.Mutex
	transfers map[string]*blockchain.VerifiedTransfer
	errors    map[string]error
	calls     map[string]int
	// block, when set, holds every call until it is closed or the context ends.
	block chan struct{}
}

func NewMockTransferFetcher() *MockTransferFetcher {
	return &MockTransferFetcher{
		transfers: make(map[string]*blockchain.VerifiedTransfer),
		errors:    make(map[string]error),
		calls:     make(map[string]int),
	}
}

// SetTransfer scripts a successful lookup.
func (m *MockTransferFetcher) SetTransfer(t *blockchain.VerifiedTransfer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers[t.TxHash] = t
	delete(m.errors, t.TxHash)
}

// SetError scripts a failing lookup.
func (m *MockTransferFetcher) SetError(txHash string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[txHash] = err
}

// SetConfirmations moves a scripted transfer deeper into the chain.
func (m *MockTransferFetcher) SetConfirmations(txHash string, confirmations uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.transfers[txHash]; ok {
		cp := *t
		cp.Confirmations = confirmations
		m.transfers[txHash] = &cp
	}
}

// Block makes every call wait for ctx cancellation or Release.
func (m *MockTransferFetcher) Block() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.block = make(chan struct{})
}

func (m *MockTransferFetcher) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.block != nil {
		close(m.block)
		m.block = nil
	}
}

func (m *MockTransferFetcher) Calls(txHash string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[txHash]
}

func (m *MockTransferFetcher) FetchTransfer(ctx context.Context, network vo.Network, txHash string) (*blockchain.VerifiedTransfer, error) {
	m.mu.Lock()
	m.calls[txHash]++
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errors[txHash]; ok {
		return nil, err
	}
	if t, ok := m.transfers[txHash]; ok {
		cp := *t
		cp.AmountMinorUnits = new(big.Int).Set(t.AmountMinorUnits)
		return &cp, nil
	}
	return nil, payment.ErrTxNotFound
}

// MockVoteCreditor records IncrementVotes calls.
type MockVoteCreditor struct {
	mu    sync.Mutex
	votes map[string]int64
	calls int
	err   error
	failN int
}

func NewMockVoteCreditor() *MockVoteCreditor {
	return &MockVoteCreditor{votes: make(map[string]int64)}
}

// SetError makes every call fail with err until cleared with nil.
func (m *MockVoteCreditor) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// FailNext makes the next n calls fail with err.
func (m *MockVoteCreditor) FailNext(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failN = n
	m.err = err
}

func (m *MockVoteCreditor) IncrementVotes(ctx context.Context, participantID string, count int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		err := m.err
		if m.failN > 0 {
			m.failN--
			if m.failN == 0 {
				m.err = nil
			}
		}
		return err
	}
	m.votes[participantID] += count
	return nil
}

func (m *MockVoteCreditor) Votes(participantID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.votes[participantID]
}

// Calls counts every IncrementVotes call, failed ones included.
func (m *MockVoteCreditor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Snapshotter can capture and restore its state.
type Snapshotter interface {
	Snapshot() func()
}

// MockTransactionRunner runs fn directly and restores the given fakes when fn fails.
type MockTransactionRunner struct {
	mu           sync.Mutex
	participants []Snapshotter
}

func NewMockTransactionRunner(participants ...Snapshotter) *MockTransactionRunner {
	return &MockTransactionRunner{participants: participants}
}

func (r *MockTransactionRunner) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// Serialize like a database would for rows touched by the same transaction.
	r.mu.Lock()
	defer r.mu.Unlock()

	restores := make([]func(), 0, len(r.participants))
	for _, p := range r.participants {
		restores = append(restores, p.Snapshot())
	}
	if err := fn(ctx); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}
