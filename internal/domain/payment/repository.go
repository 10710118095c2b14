package payment

import "context"

// PaymentRepository is the payment ledger. The storage layer enforces one row per tx hash;
// every state change is conditional on the row still being pending.
type PaymentRepository interface {
	// GetByTxHash returns nil, nil when no row exists.
	GetByTxHash(ctx context.Context, txHash string) (*Payment, error)
	// CreateIfAbsent inserts p unless a row with its tx hash exists, and returns the stored row.
	CreateIfAbsent(ctx context.Context, p *Payment) (stored *Payment, created bool, err error)
	// UpdatePending writes the latest observation onto a row that is still pending.
	// It reports false when the row has already left pending.
	UpdatePending(ctx context.Context, p *Payment) (bool, error)
	// FinalizeFromPending upserts p in its terminal state. Only one caller can move a given
	// tx hash out of pending; the others get false and must re-read the row.
	FinalizeFromPending(ctx context.Context, p *Payment) (bool, error)
	// ListPending returns up to limit pending rows with an ID above afterID, oldest first.
	// Feeding the last ID of one page into the next walks every pending row exactly once.
	ListPending(ctx context.Context, afterID uint, limit int) ([]*Payment, error)
	// ListCreditPending pages through confirmed rows whose vote credit has not landed,
	// the same way as ListPending.
	ListCreditPending(ctx context.Context, afterID uint, limit int) ([]*Payment, error)
	// ClaimCredit flips credit_status from pending to credited. False means someone else already did.
	ClaimCredit(ctx context.Context, txHash string) (bool, error)
	// RecordCreditFailure stores the last credit error for operators.
	RecordCreditFailure(ctx context.Context, txHash string, reason string) error
}

type IntentRepository interface {
	Create(ctx context.Context, intent *Intent) error
	// GetByID returns nil, nil when the intent does not exist.
	GetByID(ctx context.Context, id string) (*Intent, error)
	// BindTransaction records txHash on the intent unless another hash got there first.
	// It reports false when the intent is already bound to a different transaction.
	BindTransaction(ctx context.Context, id, txHash string) (bool, error)
	Update(ctx context.Context, intent *Intent) error
}
