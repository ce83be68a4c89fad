package http

import (
	"log"

	"bioshield/internal/config"
	"bioshield/internal/infra/http/auth"
	"bioshield/internal/infra/http/common"
	insurancehttp "bioshield/internal/infra/http/insurance"
	"bioshield/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg           config.Config
	r             *gin.Engine
	policy        *usecase.PolicyService
	claims        *usecase.ClaimService
	payout        *usecase.PayoutCalculator
	authenticator common.Authenticator
}

type ServerDeps struct {
	Policy        *usecase.PolicyService
	Claims        *usecase.ClaimService
	Payout        *usecase.PayoutCalculator
	Authenticator common.Authenticator
}

func NewServer(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:           cfg,
		r:             r,
		policy:        deps.Policy,
		claims:        deps.Claims,
		payout:        deps.Payout,
		authenticator: deps.Authenticator,
	}
	if s.authenticator == nil {
		s.authenticator = auth.NewHeaderAuthenticator()
	}
	s.routes()
	return s
}

func (s *Server) Run() error {
	addr := s.cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("bioshield api listening on %s", addr)
	return s.r.Run(addr)
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.r
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	handler := insurancehttp.NewHandler(s.policy, s.claims, s.payout)

	v1 := s.r.Group("/v1")
	v1.Use(common.AuthMiddleware(s.authenticator))
	{
		v1.POST("/insurance/premium/quote", handler.HandleQuote)
		v1.POST("/insurance/coverage", handler.HandlePurchase)
		v1.GET("/insurance/coverage", handler.HandleListCoverages)
		v1.GET("/insurance/coverage/:id", handler.HandleGetCoverage)
		v1.PUT("/insurance/coverage/:id/cancel", handler.HandleCancelCoverage)
		v1.POST("/insurance/coverage/:id/refund/retry", handler.HandleRetryRefund)
		v1.GET("/insurance/coverage/:id/claims", handler.HandleCoverageClaims)
		v1.POST("/insurance/claims", handler.HandleSubmitClaim)
		v1.GET("/insurance/claims/:id", handler.HandleGetClaim)
		v1.GET("/insurance/claims/:id/timeline", handler.HandleClaimTimeline)
		v1.GET("/insurance/claims/:id/oracle", handler.HandleClaimOracleStatus)
		v1.POST("/insurance/claims/:id/payout/retry", handler.HandleRetryPayout)
	}
}
