package common

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"bioshield/internal/domain"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// Principal is the authenticated caller. OwnerID doubles as the wallet
// address refunds and payouts are sent to.
type Principal struct {
	OwnerID string
	Tier    domain.UserTier
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Authenticator interface {
	Authenticate(*gin.Context) (Principal, error)
}

func AuthMiddleware(authenticator Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticator == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Code: "INTERNAL", Message: "auth misconfigured"})
			return
		}
		principal, err := authenticator.Authenticate(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication failed"})
			return
		}
		if principal.OwnerID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: "UNAUTHORIZED", Message: "owner identity required"})
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

func PrincipalFromContext(c *gin.Context) (Principal, bool) {
	value, ok := c.Get(principalKey)
	if !ok {
		WriteErrorCode(c, http.StatusInternalServerError, "INTERNAL", "principal missing")
		return Principal{}, false
	}
	principal, ok := value.(Principal)
	if !ok {
		WriteErrorCode(c, http.StatusInternalServerError, "INTERNAL", "principal invalid")
		return Principal{}, false
	}
	return principal, true
}

func ParseIDParam(c *gin.Context, name string) (string, bool) {
	value := strings.TrimSpace(c.Param(name))
	if value == "" {
		WriteErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", name+" is required")
		return "", false
	}
	return value, true
}

type CoverageResponse struct {
	ID                string                    `json:"id"`
	OwnerID           string                    `json:"owner_id"`
	Amount            int64                     `json:"amount"`
	Premium           int64                     `json:"premium"`
	CoverageType      string                    `json:"coverage_type"`
	TriggerConditions []domain.TriggerCondition `json:"trigger_conditions,omitempty"`
	RiskScore         int                       `json:"risk_score"`
	Status            string                    `json:"status"`
	Consumed          int64                     `json:"consumed"`
	Remaining         int64                     `json:"remaining"`
	StartAt           string                    `json:"start_at"`
	EndAt             string                    `json:"end_at"`
	Chain             string                    `json:"chain,omitempty"`
	TxRef             string                    `json:"tx_ref,omitempty"`
	RefundAmount      int64                     `json:"refund_amount,omitempty"`
	RefundTxRef       string                    `json:"refund_tx_ref,omitempty"`
	CreatedAt         string                    `json:"created_at"`
}

func ToCoverageResponse(coverage domain.Coverage) CoverageResponse {
	return CoverageResponse{
		ID:                coverage.ID,
		OwnerID:           coverage.OwnerID,
		Amount:            coverage.Amount,
		Premium:           coverage.Premium,
		CoverageType:      string(coverage.CoverageType),
		TriggerConditions: coverage.TriggerConditions,
		RiskScore:         coverage.RiskScore,
		Status:            string(coverage.Status),
		Consumed:          coverage.Consumed,
		Remaining:         coverage.Remaining(),
		StartAt:           coverage.StartAt.UTC().Format(time.RFC3339),
		EndAt:             coverage.EndAt.UTC().Format(time.RFC3339),
		Chain:             coverage.Chain,
		TxRef:             coverage.TxRef,
		RefundAmount:      coverage.RefundAmount,
		RefundTxRef:       coverage.RefundTxRef,
		CreatedAt:         coverage.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type ClaimResponse struct {
	ID              string `json:"id"`
	CoverageID      string `json:"coverage_id"`
	OwnerID         string `json:"owner_id"`
	Amount          int64  `json:"amount"`
	ClaimType       string `json:"claim_type"`
	Status          string `json:"status"`
	EvidenceRef     string `json:"evidence_ref,omitempty"`
	OracleRequestID string `json:"oracle_request_id,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	PayoutTxRef     string `json:"payout_tx_ref,omitempty"`
	Urgent          bool   `json:"urgent,omitempty"`
	SubmittedAt     string `json:"submitted_at"`
	ProcessedAt     string `json:"processed_at,omitempty"`
}

func ToClaimResponse(claim domain.Claim) ClaimResponse {
	resp := ClaimResponse{
		ID:              claim.ID,
		CoverageID:      claim.CoverageID,
		OwnerID:         claim.OwnerID,
		Amount:          claim.Amount,
		ClaimType:       string(claim.ClaimType),
		Status:          string(claim.Status),
		EvidenceRef:     claim.EvidenceRef,
		OracleRequestID: claim.OracleRequestID,
		RejectionReason: claim.RejectionReason,
		PayoutTxRef:     claim.PayoutTxRef,
		Urgent:          claim.Urgent,
		SubmittedAt:     claim.SubmittedAt.UTC().Format(time.RFC3339),
	}
	if claim.ProcessedAt != nil {
		resp.ProcessedAt = claim.ProcessedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func WriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		WriteErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		WriteErrorCode(c, http.StatusNotFound, "NOT_FOUND", "not found")
	case errors.Is(err, domain.ErrOverClaim):
		WriteErrorCode(c, http.StatusConflict, "OVER_CLAIM", "claim exceeds remaining coverage capacity")
	case errors.Is(err, domain.ErrInactiveCoverage):
		WriteErrorCode(c, http.StatusConflict, "INACTIVE_COVERAGE", "coverage is not active")
	case errors.Is(err, domain.ErrClaimInReview):
		WriteErrorCode(c, http.StatusConflict, "CLAIM_IN_REVIEW", "claim is already under review")
	case errors.Is(err, domain.ErrIllegalTransition):
		WriteErrorCode(c, http.StatusConflict, "ILLEGAL_TRANSITION", "operation not allowed in current status")
	case errors.Is(err, domain.ErrOracleConsensus):
		WriteErrorCode(c, http.StatusConflict, "ORACLE_CONSENSUS", "insufficient oracle consensus")
	case errors.Is(err, domain.ErrTransferFailure):
		WriteErrorCode(c, http.StatusBadGateway, "TRANSFER_FAILED", "blockchain transfer failed")
	default:
		WriteErrorCode(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func WriteErrorCode(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Code: code, Message: message})
}
