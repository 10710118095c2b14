package repository

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/usdtvote/internal/domain/payment"
	vo "github.com/orris-inc/usdtvote/internal/domain/payment/valueobjects"
	"github.com/orris-inc/usdtvote/internal/infrastructure/database/databasetest"
	"github.com/orris-inc/usdtvote/internal/infrastructure/persistence/models"
	apperrors "github.com/orris-inc/usdtvote/internal/shared/errors"
)

func testTxHash(n int) string {
	return fmt.Sprintf("0x%064x", n)
}

func newPending(t *testing.T, txHash, participant string) *payment.Payment {
	t.Helper()
	p, err := payment.NewPendingPayment(txHash, vo.NetworkBSC, participant, decimal.NewFromInt(10), nil)
	require.NoError(t, err)
	return p
}

func pendingAt(txHash string, createdAt time.Time) *payment.Payment {
	return payment.ReconstructPayment(payment.PaymentReconstructParams{
		TxHash:         txHash,
		Network:        vo.NetworkBSC,
		ParticipantID:  "p-1",
		ExpectedAmount: decimal.NewFromInt(5),
		Status:         vo.PaymentStatusPending,
		CreditStatus:   vo.CreditStatusNone,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	})
}

func observation(amount int64, confirmations uint64) payment.Observation {
	minor := new(big.Int).Mul(big.NewInt(amount), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	return payment.Observation{
		FromAddress:   "0x2222222222222222222222222222222222222222",
		ToAddress:     "0x1111111111111111111111111111111111111111",
		AmountMinor:   minor,
		AmountUSD:     decimal.NewFromInt(amount),
		BlockNumber:   100,
		Confirmations: confirmations,
	}
}

func TestPaymentLedgerRepository_CreateIfAbsent(t *testing.T) {
	repo := NewPaymentLedgerRepository(databasetest.Open(t))
	ctx := context.Background()

	t.Run("first insert creates the row", func(t *testing.T) {
		stored, created, err := repo.CreateIfAbsent(ctx, newPending(t, testTxHash(1), "alice"))
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotZero(t, stored.ID())
	})

	t.Run("second insert returns the existing row", func(t *testing.T) {
		stored, created, err := repo.CreateIfAbsent(ctx, newPending(t, testTxHash(1), "bob"))
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "alice", stored.ParticipantID())
		assert.True(t, stored.ExpectedAmount().Equal(decimal.NewFromInt(10)))
	})

	t.Run("unknown hash reads as nil", func(t *testing.T) {
		got, err := repo.GetByTxHash(ctx, testTxHash(404))
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestPaymentLedgerRepository_CreateIfAbsent_Concurrent(t *testing.T) {
	repo := NewPaymentLedgerRepository(databasetest.Open(t))
	ctx := context.Background()

	const writers = 8
	var (
		wg      sync.WaitGroup
		created atomic.Int32
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := payment.NewPendingPayment(testTxHash(7), vo.NetworkBSC, fmt.Sprintf("p-%d", i), decimal.NewFromInt(1), nil)
			if !assert.NoError(t, err) {
				return
			}
			_, ok, err := repo.CreateIfAbsent(ctx, p)
			if assert.NoError(t, err) && ok {
				created.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())

	var count int64
	require.NoError(t, repo.db.Model(&models.PaymentLedgerModel{}).Where("tx_hash = ?", testTxHash(7)).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPaymentLedgerRepository_TxHashIsUnique(t *testing.T) {
	db := databasetest.Open(t)
	ctx := context.Background()
	repo := NewPaymentLedgerRepository(db)

	_, _, err := repo.CreateIfAbsent(ctx, newPending(t, testTxHash(2), "alice"))
	require.NoError(t, err)

	// A plain insert bypassing the upsert must be refused by the storage layer.
	dup := &models.PaymentLedgerModel{
		TxHash:         testTxHash(2),
		Network:        vo.NetworkBSC.String(),
		ParticipantID:  "mallory",
		ExpectedAmount: decimal.NewFromInt(1),
		Status:         vo.PaymentStatusPending.String(),
		CreditStatus:   vo.CreditStatusNone.String(),
	}
	err = db.Create(dup).Error
	require.Error(t, err)
	assert.True(t, apperrors.IsDuplicateError(err), err.Error())
}

func TestPaymentLedgerRepository_FinalizeFromPending(t *testing.T) {
	repo := NewPaymentLedgerRepository(databasetest.Open(t))
	ctx := context.Background()

	stored, _, err := repo.CreateIfAbsent(ctx, newPending(t, testTxHash(3), "alice"))
	require.NoError(t, err)

	// Two verifiers loaded the same pending row and both reached a verdict.
	first, err := repo.GetByTxHash(ctx, stored.TxHash())
	require.NoError(t, err)
	second, err := repo.GetByTxHash(ctx, stored.TxHash())
	require.NoError(t, err)

	require.NoError(t, first.Confirm(observation(10, 3), 10))
	require.NoError(t, second.Confirm(observation(10, 4), 10))

	won, err := repo.FinalizeFromPending(ctx, first)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.FinalizeFromPending(ctx, second)
	require.NoError(t, err)
	assert.False(t, won)

	got, err := repo.GetByTxHash(ctx, stored.TxHash())
	require.NoError(t, err)
	assert.Equal(t, vo.PaymentStatusConfirmed, got.Status())
	assert.Equal(t, vo.CreditStatusPending, got.CreditStatus())
	assert.Equal(t, int64(10), got.VoteCount())
	assert.Equal(t, uint64(3), got.Confirmations())
	assert.True(t, got.AmountUSD().Equal(decimal.NewFromInt(10)))
	assert.NotNil(t, got.ConfirmedAt())

	// A pending-only write after the verdict is refused.
	late, err := repo.GetByTxHash(ctx, stored.TxHash())
	require.NoError(t, err)
	late.NoteCheckError("timeout")
	ok, err := repo.UpdatePending(ctx, late)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPaymentLedgerRepository_FinalizeRejectsNonTerminal(t *testing.T) {
	repo := NewPaymentLedgerRepository(databasetest.Open(t))
	_, err := repo.FinalizeFromPending(context.Background(), newPending(t, testTxHash(4), "alice"))
	assert.ErrorIs(t, err, payment.ErrInvalidTransition)
}

func TestPaymentLedgerRepository_UpdatePending(t *testing.T) {
	repo := NewPaymentLedgerRepository(databasetest.Open(t))
	ctx := context.Background()

	stored, _, err := repo.CreateIfAbsent(ctx, newPending(t, testTxHash(5), "alice"))
	require.NoError(t, err)

	require.NoError(t, stored.RecordObservation(observation(10, 1)))
	stored.NoteCheckError("insufficient confirmations")
	ok, err := repo.UpdatePending(ctx, stored)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByTxHash(ctx, stored.TxHash())
	require.NoError(t, err)
	assert.Equal(t, vo.PaymentStatusPending, got.Status())
	assert.Equal(t, uint64(1), got.Confirmations())
	assert.Equal(t, "insufficient confirmations", got.Metadata()[payment.MetaLastCheckError])
}

func TestPaymentLedgerRepository_ListPending_Pages(t *testing.T) {
	repo := NewPaymentLedgerRepository(databasetest.Open(t))
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, _, err := repo.CreateIfAbsent(ctx, pendingAt(testTxHash(100+i), base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	confirmed := pendingAt(testTxHash(200), base)
	_, _, err := repo.CreateIfAbsent(ctx, confirmed)
	require.NoError(t, err)
	require.NoError(t, confirmed.Confirm(observation(5, 3), 5))
	_, err = repo.FinalizeFromPending(ctx, confirmed)
	require.NoError(t, err)

	all, err := repo.ListPending(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, p := range all {
		assert.Equal(t, testTxHash(100+i), p.TxHash())
	}

	var walked []string
	var afterID uint
	pages := 0
	for {
		page, err := repo.ListPending(ctx, afterID, 2)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		pages++
		for _, p := range page {
			walked = append(walked, p.TxHash())
		}
		afterID = page[len(page)-1].ID()
	}
	assert.Equal(t, 3, pages)
	require.Len(t, walked, 5)
	for i, h := range walked {
		assert.Equal(t, testTxHash(100+i), h)
	}

	// Rows that leave pending mid-walk do not shift later pages.
	first, err := repo.ListPending(ctx, 0, 2)
	require.NoError(t, err)
	require.NoError(t, first[0].Reject(vo.RejectReasonNoTransferEvent, "no transfer", nil))
	_, err = repo.FinalizeFromPending(ctx, first[0])
	require.NoError(t, err)

	next, err := repo.ListPending(ctx, first[1].ID(), 2)
	require.NoError(t, err)
	require.Len(t, next, 2)
	assert.Equal(t, testTxHash(102), next[0].TxHash())
	assert.Equal(t, testTxHash(103), next[1].TxHash())
}

func TestPaymentLedgerRepository_CreditLifecycle(t *testing.T) {
	repo := NewPaymentLedgerRepository(databasetest.Open(t))
	ctx := context.Background()

	p, _, err := repo.CreateIfAbsent(ctx, newPending(t, testTxHash(6), "alice"))
	require.NoError(t, err)
	require.NoError(t, p.Confirm(observation(10, 3), 10))
	_, err = repo.FinalizeFromPending(ctx, p)
	require.NoError(t, err)

	require.NoError(t, repo.RecordCreditFailure(ctx, p.TxHash(), "participant ledger offline"))
	require.NoError(t, repo.RecordCreditFailure(ctx, p.TxHash(), "participant ledger offline"))

	waiting, err := repo.ListCreditPending(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	md := waiting[0].Metadata()
	assert.Equal(t, "participant ledger offline", md[payment.MetaCreditError])
	assert.EqualValues(t, 2, md[payment.MetaCreditAttempts])

	claimed, err := repo.ClaimCredit(ctx, p.TxHash())
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.ClaimCredit(ctx, p.TxHash())
	require.NoError(t, err)
	assert.False(t, claimed)

	waiting, err = repo.ListCreditPending(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, waiting)
}
