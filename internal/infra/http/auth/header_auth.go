package auth

import (
	"strings"

	"bioshield/internal/domain"
	"bioshield/internal/infra/http/common"

	"github.com/gin-gonic/gin"
)

// HeaderAuthenticator trusts identity headers set by the edge gateway.
type HeaderAuthenticator struct{}

func NewHeaderAuthenticator() *HeaderAuthenticator {
	return &HeaderAuthenticator{}
}

func (h *HeaderAuthenticator) Authenticate(c *gin.Context) (common.Principal, error) {
	principal := common.Principal{
		OwnerID: strings.TrimSpace(c.GetHeader("X-Owner-ID")),
		Tier:    domain.TierStandard,
	}
	if tier := strings.ToUpper(strings.TrimSpace(c.GetHeader("X-Owner-Tier"))); tier != "" {
		switch domain.UserTier(tier) {
		case domain.TierPremium, domain.TierGold, domain.TierSilver, domain.TierStandard:
			principal.Tier = domain.UserTier(tier)
		}
	}
	return principal, nil
}

var _ common.Authenticator = (*HeaderAuthenticator)(nil)
