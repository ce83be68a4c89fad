package main

import (
	"context"
	"log"
	"time"

	"bioshield/internal/config"
	"bioshield/internal/infra/cacheredis"
	"bioshield/internal/infra/chain"
	"bioshield/internal/infra/db"
	"bioshield/internal/infra/events"
	"bioshield/internal/infra/evidence"
	httpapi "bioshield/internal/infra/http"
	"bioshield/internal/infra/oracle"
	"bioshield/internal/usecase"
	"bioshield/internal/workflows"

	"github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/client"
)

func main() {
	cfg := config.FromEnv()

	conn, err := db.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(conn); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	cache := cacheredis.NewWithClient(redisClient)
	publisher := events.NewRedisPublisher(redisClient, "")

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
	})
	if err != nil {
		log.Fatalf("failed to create temporal client: %v", err)
	}
	defer temporalClient.Close()

	chainClient := chain.New(cfg.ChainGatewayURL)
	oracleClient := oracle.New(cfg.OracleURL)
	evidenceStore := evidence.NewHTTPStore(cfg.EvidenceServiceURL)

	clock := func() time.Time { return time.Now().UTC() }
	coverages := db.NewCoverageRepository(conn)
	claims := db.NewClaimRepository(conn)

	market := &usecase.MarketFeed{
		Source: oracle.NewMarketSource(oracleClient),
		Cache:  cache,
		Clock:  clock,
	}
	utilization := &usecase.UtilizationFeed{
		Chain: chainClient,
		Cache: cache,
		Clock: clock,
	}
	pricing := &usecase.PricingEngine{
		MinCoverage: cfg.MinCoverage,
		MaxCoverage: cfg.MaxCoverage,
	}

	policy := &usecase.PolicyService{
		Coverages:   coverages,
		Chain:       chainClient,
		Pricing:     pricing,
		Market:      market,
		Utilization: utilization,
		Cache:       cache,
		Events:      publisher,
		Clock:       clock,
	}
	claimService := &usecase.ClaimService{
		Claims:    claims,
		Coverages: coverages,
		Evidence:  evidenceStore,
		Oracle:    oracleClient,
		Adjudication: workflows.NewStarter(temporalClient, cfg.TaskQueue,
			cfg.PollInterval, cfg.VerificationTimeout),
		Events: publisher,
		Clock:  clock,
	}
	payout := &usecase.PayoutCalculator{
		Claims:    claims,
		Coverages: coverages,
		Store:     db.NewPayoutStore(conn),
		Chain:     chainClient,
		Events:    publisher,
		Cache:     cache,
		Clock:     clock,
	}

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Printf("redis not reachable at startup: %v", err)
	}

	srv := httpapi.NewServer(cfg, httpapi.ServerDeps{
		Policy: policy,
		Claims: claimService,
		Payout: payout,
	})
	if err := srv.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
