package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/orris-inc/usdtvote/internal/application/payment/blockchain"
	"github.com/orris-inc/usdtvote/internal/application/payment/dto"
	"github.com/orris-inc/usdtvote/internal/domain/payment"
	vo "github.com/orris-inc/usdtvote/internal/domain/payment/valueobjects"
	"github.com/orris-inc/usdtvote/internal/infrastructure/metrics"
	apperrors "github.com/orris-inc/usdtvote/internal/shared/errors"
	"github.com/orris-inc/usdtvote/internal/shared/logger"
)

// VerifyPaymentCommand is one client poll. With IntentID set, the intent's participant,
// network and amount are authoritative and ExpectedAmount may be empty.
type VerifyPaymentCommand struct {
	TxHash         string
	Network        string
	ParticipantID  string
	ExpectedAmount string
	IntentID       string
}

// VerifyPaymentUseCase drives a ledger row from pending to confirmed or rejected. It is
// stateless per call; the ledger's conditional writes settle races between callers.
type VerifyPaymentUseCase struct {
	paymentRepo payment.PaymentRepository
	intentRepo  payment.IntentRepository
	fetcher     blockchain.TransferFetcher
	settler     *CreditSettler
	policy      PaymentPolicy
	metrics     *metrics.PaymentMetrics
	logger      logger.Interface
}

func NewVerifyPaymentUseCase(
	paymentRepo payment.PaymentRepository,
	intentRepo payment.IntentRepository,
	fetcher blockchain.TransferFetcher,
	settler *CreditSettler,
	policy PaymentPolicy,
	m *metrics.PaymentMetrics,
	logger logger.Interface,
) *VerifyPaymentUseCase {
	return &VerifyPaymentUseCase{
		paymentRepo: paymentRepo,
		intentRepo:  intentRepo,
		fetcher:     fetcher,
		settler:     settler,
		policy:      policy,
		metrics:     m,
		logger:      logger,
	}
}

// Execute verifies a client-submitted transaction.
func (uc *VerifyPaymentUseCase) Execute(ctx context.Context, cmd VerifyPaymentCommand) (*dto.VerificationResult, error) {
	req, err := uc.resolveRequest(ctx, cmd)
	if err != nil {
		return nil, err
	}

	existing, err := uc.paymentRepo.GetByTxHash(ctx, req.txHash)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read payment ledger", err.Error())
	}
	if existing != nil {
		if !existing.BelongsTo(req.participantID) {
			return nil, apperrors.NewConflictError(payment.ErrParticipantMismatch.Error())
		}
		if existing.Status().IsFinal() {
			return uc.storedResult(existing), nil
		}
		return uc.verify(ctx, existing)
	}

	p, err := payment.NewPendingPayment(req.txHash, req.network, req.participantID, req.expectedAmount, req.intentID())
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	// Fetch before inserting so a cancelled or timed-out caller leaves no row behind.
	transfer, fetchErr := uc.fetcher.FetchTransfer(ctx, req.network, req.txHash)
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return uc.timedOut(p), nil
		}
		return nil, ctxErr
	}

	if req.intent != nil {
		if err := req.intent.BindTransaction(req.txHash); err != nil {
			return nil, apperrors.NewConflictError(err.Error())
		}
		bound, err := uc.intentRepo.BindTransaction(ctx, req.intent.ID(), req.txHash)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to bind payment intent", err.Error())
		}
		if !bound {
			return nil, apperrors.NewConflictError(payment.ErrIntentAlreadyBound.Error())
		}
	}

	stored, created, err := uc.paymentRepo.CreateIfAbsent(ctx, p)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to write payment ledger", err.Error())
	}
	if !created {
		// Another request inserted the row first; treat it as if it had been there all along.
		if !stored.BelongsTo(req.participantID) {
			return nil, apperrors.NewConflictError(payment.ErrParticipantMismatch.Error())
		}
		if stored.Status().IsFinal() {
			return uc.storedResult(stored), nil
		}
	}

	return uc.apply(ctx, stored, transfer, fetchErr)
}

// VerifyPending re-runs verification for a stored pending row. Used by the sweeper.
func (uc *VerifyPaymentUseCase) VerifyPending(ctx context.Context, p *payment.Payment) (*dto.VerificationResult, error) {
	if p.Status().IsFinal() {
		return uc.storedResult(p), nil
	}
	return uc.verify(ctx, p)
}

// GetPayment returns the stored ledger row for a hash, or a not-found error.
func (uc *VerifyPaymentUseCase) GetPayment(ctx context.Context, network, txHash string) (*dto.PaymentDTO, error) {
	var (
		p   *payment.Payment
		err error
	)
	if network != "" {
		n, nerr := vo.NewNetwork(network)
		if nerr != nil {
			return nil, apperrors.NewValidationError(nerr.Error())
		}
		normalized, herr := n.NormalizeTxHash(txHash)
		if herr != nil {
			return nil, apperrors.NewValidationError(herr.Error())
		}
		p, err = uc.paymentRepo.GetByTxHash(ctx, normalized)
	} else {
		p, err = uc.lookupAnyNetwork(ctx, txHash)
	}
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperrors.NewNotFoundError("payment not found")
	}
	return dto.ToPaymentDTO(p, uc.policy.ExplorerURL(p.Network(), p.TxHash())), nil
}

func (uc *VerifyPaymentUseCase) lookupAnyNetwork(ctx context.Context, txHash string) (*payment.Payment, error) {
	valid := false
	for _, n := range []vo.Network{vo.NetworkBSC, vo.NetworkTRON} {
		normalized, err := n.NormalizeTxHash(txHash)
		if err != nil {
			continue
		}
		valid = true
		p, err := uc.paymentRepo.GetByTxHash(ctx, normalized)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to read payment ledger", err.Error())
		}
		if p != nil {
			return p, nil
		}
	}
	if !valid {
		return nil, apperrors.NewValidationError("invalid transaction hash")
	}
	return nil, nil
}

func (uc *VerifyPaymentUseCase) verify(ctx context.Context, p *payment.Payment) (*dto.VerificationResult, error) {
	transfer, fetchErr := uc.fetcher.FetchTransfer(ctx, p.Network(), p.TxHash())
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return uc.timedOut(p), nil
		}
		return nil, ctxErr
	}
	return uc.apply(ctx, p, transfer, fetchErr)
}

// timedOut reports p as still pending when the caller's budget ran out during the chain
// lookup. Nothing is written; the next poll or sweep picks the row up again.
func (uc *VerifyPaymentUseCase) timedOut(p *payment.Payment) *dto.VerificationResult {
	uc.logger.Debugw("chain lookup timed out",
		"tx_hash", p.TxHash(),
		"network", p.Network().String(),
	)
	result := uc.storedResult(p)
	result.Detail = "chain lookup timed out"
	result.Retryable = true
	return result
}

// apply evaluates the transition rules for a pending row against what the chain reported.
func (uc *VerifyPaymentUseCase) apply(ctx context.Context, p *payment.Payment, transfer *blockchain.VerifiedTransfer, fetchErr error) (*dto.VerificationResult, error) {
	settings, ok := uc.policy.settings(p.Network())
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("network %s is not enabled", p.Network()))
	}

	if fetchErr != nil {
		return uc.applyFetchError(ctx, p, fetchErr)
	}

	obs := transfer.Observation()

	if !p.Network().AddressesEqual(transfer.ToAddress, settings.DepositAddress) {
		detail := fmt.Sprintf("transfer paid %s, expected %s", transfer.ToAddress, settings.DepositAddress)
		return uc.reject(ctx, p, vo.RejectReasonWrongRecipient, detail, &obs)
	}

	if !payment.AmountWithinTolerance(transfer.AmountUSD, p.ExpectedAmount(), uc.policy.tolerance()) {
		detail := fmt.Sprintf("transfer of %s USD does not match expected %s USD", transfer.AmountUSD, p.ExpectedAmount())
		return uc.reject(ctx, p, vo.RejectReasonAmountMismatch, detail, &obs)
	}

	if transfer.Confirmations < uint64(settings.RequiredConfirmations) {
		if err := p.RecordObservation(obs); err != nil {
			return nil, apperrors.NewInternalError("failed to record observation", err.Error())
		}
		p.NoteCheckError(fmt.Sprintf("%d of %d confirmations", transfer.Confirmations, settings.RequiredConfirmations))
		return uc.keepPending(ctx, p, "waiting for confirmations")
	}

	votes, err := payment.ComputeVotes(transfer.AmountUSD, uc.policy.VoteUnitPrice)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to compute votes", err.Error())
	}
	if err := p.Confirm(obs, votes); err != nil {
		return nil, apperrors.NewInternalError("failed to confirm payment", err.Error())
	}
	return uc.finalize(ctx, p)
}

func (uc *VerifyPaymentUseCase) applyFetchError(ctx context.Context, p *payment.Payment, fetchErr error) (*dto.VerificationResult, error) {
	if reason, terminal := payment.RejectReasonFor(fetchErr); terminal {
		if errors.Is(fetchErr, payment.ErrDecode) {
			uc.logger.Errorw("undecodable chain payload",
				"tx_hash", p.TxHash(),
				"network", p.Network().String(),
				"error", fetchErr,
			)
		}
		return uc.reject(ctx, p, reason, fetchErr.Error(), nil)
	}

	if !payment.IsRetryable(fetchErr) {
		uc.logger.Errorw("unexpected chain lookup error",
			"tx_hash", p.TxHash(),
			"network", p.Network().String(),
			"error", fetchErr,
		)
		return nil, apperrors.NewInternalError("chain lookup failed", fetchErr.Error())
	}

	uc.logger.Debugw("chain lookup not conclusive",
		"tx_hash", p.TxHash(),
		"network", p.Network().String(),
		"error", fetchErr,
	)
	p.NoteCheckError(fetchErr.Error())

	detail := "transaction not yet visible on chain"
	if errors.Is(fetchErr, payment.ErrChainUnavailable) {
		detail = "chain endpoint unavailable, retry later"
	}
	return uc.keepPending(ctx, p, detail)
}

func (uc *VerifyPaymentUseCase) keepPending(ctx context.Context, p *payment.Payment, detail string) (*dto.VerificationResult, error) {
	ok, err := uc.paymentRepo.UpdatePending(ctx, p)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to update payment ledger", err.Error())
	}
	if !ok {
		return uc.reload(ctx, p.TxHash())
	}

	uc.metrics.ObserveVerification(p.Network().String(), vo.PaymentStatusPending.String(), "")
	result := uc.storedResult(p)
	result.Detail = detail
	result.Retryable = true
	return result, nil
}

func (uc *VerifyPaymentUseCase) reject(ctx context.Context, p *payment.Payment, reason vo.RejectReason, detail string, obs *payment.Observation) (*dto.VerificationResult, error) {
	if err := p.Reject(reason, detail, obs); err != nil {
		return nil, apperrors.NewInternalError("failed to reject payment", err.Error())
	}
	result, err := uc.finalize(ctx, p)
	if err != nil {
		return nil, err
	}
	result.Detail = detail
	return result, nil
}

// finalize writes the terminal state. Only the caller that moves the row out of pending
// settles the credit; everyone else returns what the winner stored.
func (uc *VerifyPaymentUseCase) finalize(ctx context.Context, p *payment.Payment) (*dto.VerificationResult, error) {
	won, err := uc.paymentRepo.FinalizeFromPending(ctx, p)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to finalize payment", err.Error())
	}
	if !won {
		return uc.reload(ctx, p.TxHash())
	}

	uc.metrics.ObserveVerification(p.Network().String(), p.Status().String(), p.RejectReason().String())
	uc.logger.Infow("payment finalized",
		"tx_hash", p.TxHash(),
		"network", p.Network().String(),
		"status", p.Status().String(),
		"reason", p.RejectReason().String(),
		"confirmations", p.Confirmations(),
		"votes", p.VoteCount(),
	)

	uc.resolveIntent(ctx, p)

	if p.Status().IsConfirmed() {
		// A failed credit is recorded by the settler and left pending for the retry job.
		// The verdict stands either way.
		_, _ = uc.settler.Settle(ctx, p)
		return uc.reload(ctx, p.TxHash())
	}
	return uc.storedResult(p), nil
}

func (uc *VerifyPaymentUseCase) reload(ctx context.Context, txHash string) (*dto.VerificationResult, error) {
	stored, err := uc.paymentRepo.GetByTxHash(context.WithoutCancel(ctx), txHash)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read payment ledger", err.Error())
	}
	if stored == nil {
		return nil, apperrors.NewInternalError("payment row disappeared", txHash)
	}
	return uc.storedResult(stored), nil
}

func (uc *VerifyPaymentUseCase) resolveIntent(ctx context.Context, p *payment.Payment) {
	if p.IntentID() == nil || uc.intentRepo == nil {
		return
	}
	intent, err := uc.intentRepo.GetByID(ctx, *p.IntentID())
	if err != nil || intent == nil {
		uc.logger.Warnw("failed to load intent for finalized payment",
			"intent_id", *p.IntentID(),
			"tx_hash", p.TxHash(),
			"error", err,
		)
		return
	}
	if err := intent.Resolve(p.Status()); err != nil {
		uc.logger.Warnw("intent already resolved", "intent_id", intent.ID(), "error", err)
		return
	}
	if err := uc.intentRepo.Update(ctx, intent); err != nil {
		uc.logger.Warnw("failed to update intent status", "intent_id", intent.ID(), "error", err)
	}
}

func (uc *VerifyPaymentUseCase) storedResult(p *payment.Payment) *dto.VerificationResult {
	result := &dto.VerificationResult{
		TxHash:         p.TxHash(),
		Network:        p.Network().String(),
		ParticipantID:  p.ParticipantID(),
		Status:         p.Status().String(),
		RejectReason:   p.RejectReason().String(),
		ExpectedAmount: p.ExpectedAmount().String(),
		ExplorerURL:    uc.policy.ExplorerURL(p.Network(), p.TxHash()),
	}
	if settings, ok := uc.policy.settings(p.Network()); ok {
		result.RequiredConfirmations = settings.RequiredConfirmations
	}
	if p.BlockNumber() > 0 || p.Status().IsConfirmed() {
		confirmations := p.Confirmations()
		result.Confirmations = &confirmations
		result.AmountUSD = p.AmountUSD().String()
	}
	if p.Status().IsConfirmed() {
		votes := p.VoteCount()
		result.VotesCredited = &votes
		result.CreditStatus = p.CreditStatus().String()
	}
	if p.Status().IsPending() {
		result.Retryable = true
		if msg, ok := p.Metadata()[payment.MetaLastCheckError].(string); ok {
			result.Detail = msg
		}
	}
	if p.Status() == vo.PaymentStatusRejected {
		if msg, ok := p.Metadata()[payment.MetaRejectDetail].(string); ok {
			result.Detail = msg
		}
	}
	return result
}

type verifyRequest struct {
	txHash         string
	network        vo.Network
	participantID  string
	expectedAmount decimal.Decimal
	intent         *payment.Intent
}

func (r verifyRequest) intentID() *string {
	if r.intent == nil {
		return nil
	}
	id := r.intent.ID()
	return &id
}

func (uc *VerifyPaymentUseCase) resolveRequest(ctx context.Context, cmd VerifyPaymentCommand) (verifyRequest, error) {
	var req verifyRequest

	network, err := vo.NewNetwork(cmd.Network)
	if err != nil {
		return req, apperrors.NewValidationError(err.Error())
	}
	if _, ok := uc.policy.settings(network); !ok {
		return req, apperrors.NewValidationError(fmt.Sprintf("network %s is not enabled", network))
	}
	txHash, err := network.NormalizeTxHash(cmd.TxHash)
	if err != nil {
		return req, apperrors.NewValidationError(err.Error())
	}
	req.network = network
	req.txHash = txHash
	req.participantID = cmd.ParticipantID

	if cmd.IntentID != "" {
		intent, err := uc.intentRepo.GetByID(ctx, cmd.IntentID)
		if err != nil {
			return req, apperrors.NewInternalError("failed to load payment intent", err.Error())
		}
		if intent == nil {
			return req, apperrors.NewNotFoundError("payment intent not found")
		}
		if intent.Network() != network {
			return req, apperrors.NewValidationError(fmt.Sprintf("intent is for %s, not %s", intent.Network(), network))
		}
		if req.participantID != "" && req.participantID != intent.ParticipantID() {
			return req, apperrors.NewConflictError("intent belongs to another participant")
		}
		req.participantID = intent.ParticipantID()
		req.expectedAmount = intent.ExpectedAmount()
		req.intent = intent
		return req, nil
	}

	if req.participantID == "" {
		return req, apperrors.NewValidationError("participant_id is required")
	}
	amount, err := decimal.NewFromString(cmd.ExpectedAmount)
	if err != nil || !amount.IsPositive() {
		return req, apperrors.NewValidationError("expected_amount must be a positive decimal")
	}
	req.expectedAmount = amount
	return req, nil
}
