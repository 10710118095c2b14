package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/usdtvote/internal/application/payment/usecases"
	apperrors "github.com/orris-inc/usdtvote/internal/shared/errors"
	"github.com/orris-inc/usdtvote/internal/shared/logger"
	"github.com/orris-inc/usdtvote/internal/shared/utils"
)

const defaultVerifyTimeout = 30 * time.Second

type PaymentHandler struct {
	verifyUC      verifyPaymentUseCase
	createIntent  createDepositIntentUseCase
	verifyTimeout time.Duration
	logger        logger.Interface
}

func NewPaymentHandler(
	verifyUC verifyPaymentUseCase,
	createIntent createDepositIntentUseCase,
	verifyTimeout time.Duration,
	logger logger.Interface,
) *PaymentHandler {
	if verifyTimeout <= 0 {
		verifyTimeout = defaultVerifyTimeout
	}
	return &PaymentHandler{
		verifyUC:      verifyUC,
		createIntent:  createIntent,
		verifyTimeout: verifyTimeout,
		logger:        logger,
	}
}

type CreateIntentRequest struct {
	ParticipantID string `json:"participant_id" validate:"required,max=64"`
	VoteCount     int64  `json:"vote_count" validate:"required,min=1"`
	Network       string `json:"network" validate:"required,network"`
}

type VerifyPaymentRequest struct {
	TxHash         string `json:"tx_hash" validate:"required,txhash"`
	Network        string `json:"network" validate:"required,network"`
	ParticipantID  string `json:"participant_id" validate:"max=64"`
	ExpectedAmount string `json:"expected_amount" validate:"omitempty,usd"`
	IntentID       string `json:"intent_id" validate:"omitempty,max=64"`
}

// CreateIntent quotes the deposit for a number of votes.
//
//	POST /api/v1/payments/intents
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	var req CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.createIntent.Execute(c.Request.Context(), usecases.CreateDepositIntentCommand{
		ParticipantID: req.ParticipantID,
		VoteCount:     req.VoteCount,
		Network:       req.Network,
	})
	if err != nil {
		h.logger.Warnw("failed to create deposit intent", "error", err, "participant_id", req.ParticipantID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, result, "deposit intent created")
}

// VerifyPayment checks a submitted transaction against the chain. Pending, confirmed and
// rejected are all reported with 200; only request and ledger failures are errors.
//
//	POST /api/v1/payments/verify
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.verifyTimeout)
	defer cancel()

	result, err := h.verifyUC.Execute(ctx, usecases.VerifyPaymentCommand{
		TxHash:         req.TxHash,
		Network:        req.Network,
		ParticipantID:  req.ParticipantID,
		ExpectedAmount: req.ExpectedAmount,
		IntentID:       req.IntentID,
	})
	if err != nil {
		h.handleVerifyError(c, err, req)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

func (h *PaymentHandler) handleVerifyError(c *gin.Context, err error, req VerifyPaymentRequest) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		// A slow chain lookup comes back as a retryable pending result; only a stalled ledger ends up here.
		h.logger.Warnw("payment ledger did not answer within the request budget", "tx_hash", req.TxHash)
		utils.ErrorResponseWithError(c, apperrors.NewUnavailableError("verification timed out, retry later"))
	case errors.Is(err, context.Canceled):
		// The client went away; nothing was written and nobody is listening.
		h.logger.Debugw("verification cancelled by client", "tx_hash", req.TxHash)
		c.Abort()
	default:
		if appErr := apperrors.GetAppError(err); appErr == nil || appErr.Code >= http.StatusInternalServerError {
			h.logger.Errorw("payment verification failed",
				"error", err,
				"tx_hash", req.TxHash,
				"network", req.Network,
			)
		}
		utils.ErrorResponseWithError(c, err)
	}
}

// GetPayment returns the stored ledger row for a transaction.
//
//	GET /api/v1/payments/:tx_hash?network=BSC
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	result, err := h.verifyUC.GetPayment(c.Request.Context(), c.Query("network"), c.Param("tx_hash"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// AdminHandler serves operator endpoints.
type AdminHandler struct {
	reconcileUC reconcilePendingUseCase
	logger      logger.Interface
}

func NewAdminHandler(reconcileUC reconcilePendingUseCase, logger logger.Interface) *AdminHandler {
	return &AdminHandler{reconcileUC: reconcileUC, logger: logger}
}

// Reconcile runs one sweep synchronously.
//
//	POST /api/v1/admin/reconcile
func (h *AdminHandler) Reconcile(c *gin.Context) {
	summary, err := h.reconcileUC.Execute(c.Request.Context())
	if err != nil {
		h.logger.Errorw("manual reconcile failed", "error", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "reconcile failed: "+err.Error())
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "reconcile completed", summary)
}

// HealthHandler reports process and database liveness.
type HealthHandler struct {
	db healthChecker
}

func NewHealthHandler(db healthChecker) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
