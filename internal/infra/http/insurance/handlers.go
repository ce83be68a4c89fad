package insurance

import (
	"net/http"
	"strconv"
	"strings"

	"bioshield/internal/domain"
	"bioshield/internal/infra/http/common"
	"bioshield/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Policy *usecase.PolicyService
	Claims *usecase.ClaimService
	Payout *usecase.PayoutCalculator
}

func NewHandler(policy *usecase.PolicyService, claims *usecase.ClaimService, payout *usecase.PayoutCalculator) *Handler {
	return &Handler{Policy: policy, Claims: claims, Payout: payout}
}

func (h *Handler) HandleQuote(c *gin.Context) {
	principal, ok := common.PrincipalFromContext(c)
	if !ok {
		return
	}
	var req struct {
		Amount        int64 `json:"amount"`
		PeriodSeconds int64 `json:"period_seconds"`
		RiskScore     int   `json:"risk_score"`
		PayWithToken  bool  `json:"pay_with_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	breakdown, err := h.Policy.Quote(c.Request.Context(), usecase.QuoteInput{
		Amount:        req.Amount,
		PeriodSeconds: req.PeriodSeconds,
		RiskScore:     req.RiskScore,
		Tier:          principal.Tier,
		PayWithToken:  req.PayWithToken,
	})
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quote": breakdown})
}

func (h *Handler) HandlePurchase(c *gin.Context) {
	principal, ok := common.PrincipalFromContext(c)
	if !ok {
		return
	}
	var req struct {
		Amount            int64                     `json:"amount"`
		PeriodSeconds     int64                     `json:"period_seconds"`
		CoverageType      string                    `json:"coverage_type"`
		TriggerConditions []domain.TriggerCondition `json:"trigger_conditions"`
		RiskScore         int                       `json:"risk_score"`
		PayWithToken      bool                      `json:"pay_with_token"`
		Chain             string                    `json:"chain"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	coverageType, err := domain.ParseCoverageType(req.CoverageType)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	coverage, breakdown, err := h.Policy.Purchase(c.Request.Context(), usecase.PurchaseInput{
		OwnerID:           principal.OwnerID,
		Amount:            req.Amount,
		PeriodSeconds:     req.PeriodSeconds,
		CoverageType:      coverageType,
		TriggerConditions: req.TriggerConditions,
		RiskScore:         req.RiskScore,
		Tier:              principal.Tier,
		PayWithToken:      req.PayWithToken,
		Chain:             req.Chain,
	})
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"coverage": common.ToCoverageResponse(coverage),
		"quote":    breakdown,
	})
}

func (h *Handler) HandleListCoverages(c *gin.Context) {
	principal, ok := common.PrincipalFromContext(c)
	if !ok {
		return
	}
	filter := usecase.CoverageListFilter{
		OwnerID: principal.OwnerID,
		Page:    queryInt(c, "page", 1),
		Limit:   queryInt(c, "limit", 20),
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		filter.Status = domain.CoverageStatus(strings.ToUpper(status))
	}
	page, err := h.Policy.ListOwned(c.Request.Context(), filter)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	items := make([]common.CoverageResponse, 0, len(page.Items))
	for _, coverage := range page.Items {
		items = append(items, common.ToCoverageResponse(coverage))
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"page":  page.Page,
		"limit": page.Limit,
		"total": page.Total,
	})
}

func (h *Handler) HandleGetCoverage(c *gin.Context) {
	principal, ok := common.PrincipalFromContext(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	coverage, err := h.Policy.Get(c.Request.Context(), id)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	if coverage.OwnerID != principal.OwnerID {
		common.WriteErrorCode(c, http.StatusNotFound, "NOT_FOUND", "not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"coverage": common.ToCoverageResponse(coverage)})
}

func (h *Handler) HandleCancelCoverage(c *gin.Context) {
	principal, ok := common.PrincipalFromContext(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.Policy.Cancel(c.Request.Context(), id, principal.OwnerID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"coverage":      common.ToCoverageResponse(result.Coverage),
		"refund_amount": result.RefundAmount,
		"refund_tx_ref": result.RefundTxRef,
		"refund_failed": result.RefundFailed,
	})
}

func (h *Handler) HandleRetryRefund(c *gin.Context) {
	principal, ok := common.PrincipalFromContext(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.Policy.RetryRefund(c.Request.Context(), id, principal.OwnerID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"coverage":      common.ToCoverageResponse(result.Coverage),
		"refund_amount": result.RefundAmount,
		"refund_tx_ref": result.RefundTxRef,
	})
}

func (h *Handler) HandleCoverageClaims(c *gin.Context) {
	principal, ok := common.PrincipalFromContext(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	claims, err := h.Claims.ListByCoverage(c.Request.Context(), id, principal.OwnerID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	items := make([]common.ClaimResponse, 0, len(claims))
	for _, claim := range claims {
		items = append(items, common.ToClaimResponse(claim))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) HandleSubmitClaim(c *gin.Context) {
	principal, ok := common.PrincipalFromContext(c)
	if !ok {
		return
	}
	var req struct {
		CoverageID  string `json:"coverage_id"`
		Amount      int64  `json:"amount"`
		ClaimType   string `json:"claim_type"`
		EvidenceRef string `json:"evidence_ref"`
		Evidence    []byte `json:"evidence"`
		Urgent      bool   `json:"urgent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	if req.CoverageID == "" {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "coverage_id is required")
		return
	}
	claimType, err := domain.ParseClaimType(req.ClaimType)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	claim, err := h.Claims.Submit(c.Request.Context(), usecase.SubmitClaimInput{
		CoverageID:  req.CoverageID,
		OwnerID:     principal.OwnerID,
		Amount:      req.Amount,
		ClaimType:   claimType,
		EvidenceRef: req.EvidenceRef,
		Evidence:    req.Evidence,
		Urgent:      req.Urgent,
	})
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"claim": common.ToClaimResponse(claim)})
}

func (h *Handler) HandleGetClaim(c *gin.Context) {
	principal, ok := common.PrincipalFromContext(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	claim, err := h.Claims.Get(c.Request.Context(), id, principal.OwnerID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claim": common.ToClaimResponse(claim)})
}

func (h *Handler) HandleClaimTimeline(c *gin.Context) {
	principal, ok := common.PrincipalFromContext(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	timeline, err := h.Claims.Timeline(c.Request.Context(), id, principal.OwnerID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timeline": timeline})
}

func (h *Handler) HandleClaimOracleStatus(c *gin.Context) {
	principal, ok := common.PrincipalFromContext(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	view, err := h.Claims.OracleStatus(c.Request.Context(), id, principal.OwnerID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"oracle": view})
}

func (h *Handler) HandleRetryPayout(c *gin.Context) {
	principal, ok := common.PrincipalFromContext(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.Payout.RetryPayout(c.Request.Context(), id, principal.OwnerID); err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "paid"})
}

func queryInt(c *gin.Context, name string, def int) int {
	value := strings.TrimSpace(c.Query(name))
	if value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return def
	}
	return n
}
