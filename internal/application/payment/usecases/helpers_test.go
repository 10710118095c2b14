package usecases

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/usdtvote/internal/application/payment/blockchain"
	"github.com/orris-inc/usdtvote/internal/application/payment/testutil"
	vo "github.com/orris-inc/usdtvote/internal/domain/payment/valueobjects"
	"github.com/orris-inc/usdtvote/internal/shared/logger"
)

const (
	testBSCDeposit  = "0x1111111111111111111111111111111111111111"
	testTRONDeposit = "TLa2f6VPqDgRE67v1736s7bJ8Ray5wYjU7"
	testPayer       = "0x2222222222222222222222222222222222222222"
)

func bscHash(n int) string  { return fmt.Sprintf("0x%064x", n) }
func tronHash(n int) string { return fmt.Sprintf("%064x", n) }

func testPolicy(t *testing.T) PaymentPolicy {
	t.Helper()
	policy, err := NewPaymentPolicy(map[vo.Network]ChainSettings{
		vo.NetworkBSC:  {DepositAddress: testBSCDeposit, RequiredConfirmations: 3, ExplorerTxURL: "https://bscscan.com/tx/"},
		vo.NetworkTRON: {DepositAddress: testTRONDeposit, RequiredConfirmations: 1, ExplorerTxURL: "https://tronscan.org/#/transaction/"},
	}, decimal.NewFromInt(2), decimal.RequireFromString("0.01"))
	require.NoError(t, err)
	return policy
}

func bscTransfer(txHash, to, amountUSD string, confirmations uint64) *blockchain.VerifiedTransfer {
	amount := vo.USDToMinorUnits(vo.NetworkBSC, decimal.RequireFromString(amountUSD))
	return blockchain.NewVerifiedTransfer(vo.NetworkBSC, txHash, testPayer, to, amount, 1000, confirmations)
}

func tronTransfer(txHash, to, amountUSD string, confirmations uint64) *blockchain.VerifiedTransfer {
	amount := vo.USDToMinorUnits(vo.NetworkTRON, decimal.RequireFromString(amountUSD))
	return blockchain.NewVerifiedTransfer(vo.NetworkTRON, txHash, "T9yD14Nj9j7xAB4dbGeiX9h8unkKHxuWwb", to, amount, 500, confirmations)
}

type fixture struct {
	payments *testutil.MockPaymentRepository
	intents  *testutil.MockIntentRepository
	fetcher  *testutil.MockTransferFetcher
	creditor *testutil.MockVoteCreditor
	policy   PaymentPolicy

	settler *CreditSettler
	verify  *VerifyPaymentUseCase
	retry   *RetryPendingCreditsUseCase
	intent  *CreateDepositIntentUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		payments: testutil.NewMockPaymentRepository(),
		intents:  testutil.NewMockIntentRepository(),
		fetcher:  testutil.NewMockTransferFetcher(),
		creditor: testutil.NewMockVoteCreditor(),
		policy:   testPolicy(t),
	}
	log := logger.NewNop()
	txRunner := testutil.NewMockTransactionRunner(f.payments)

	f.settler = NewCreditSettler(f.payments, f.creditor, txRunner, nil, log)
	f.verify = NewVerifyPaymentUseCase(f.payments, f.intents, f.fetcher, f.settler, f.policy, nil, log)
	f.retry = NewRetryPendingCreditsUseCase(f.payments, f.settler, 100, log)
	f.intent = NewCreateDepositIntentUseCase(f.intents, f.policy, log)
	return f
}

func bscCommand(txHash, participant, expected string) VerifyPaymentCommand {
	return VerifyPaymentCommand{
		TxHash:         txHash,
		Network:        "BSC",
		ParticipantID:  participant,
		ExpectedAmount: expected,
	}
}
