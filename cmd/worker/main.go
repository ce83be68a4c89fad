package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bioshield/internal/activities"
	"bioshield/internal/config"
	"bioshield/internal/infra/cacheredis"
	"bioshield/internal/infra/chain"
	"bioshield/internal/infra/db"
	"bioshield/internal/infra/events"
	"bioshield/internal/infra/oracle"
	"bioshield/internal/infra/policyopa"
	"bioshield/internal/usecase"
	"bioshield/internal/workers/sweeper"
	"bioshield/internal/workflows"

	"github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	cfg := config.FromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthSrv := startHealthServer(cfg.HealthAddr)
	defer func() {
		_ = healthSrv.Shutdown(context.Background())
	}()

	conn, err := db.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
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

	var triggerPolicy usecase.TriggerPolicy
	if cfg.PolicyBundlePath != "" {
		engine, err := policyopa.NewEngineFromBundlePath(ctx, cfg.PolicyBundlePath)
		if err != nil {
			log.Fatalf("failed to load policy bundle: %v", err)
		}
		triggerPolicy = engine
	}

	clock := func() time.Time { return time.Now().UTC() }
	coverages := db.NewCoverageRepository(conn)
	claims := db.NewClaimRepository(conn)

	payout := &usecase.PayoutCalculator{
		Claims:    claims,
		Coverages: coverages,
		Store:     db.NewPayoutStore(conn),
		Chain:     chainClient,
		Events:    publisher,
		Cache:     cache,
		Clock:     clock,
	}
	adjudicator := &usecase.Adjudicator{
		Claims:    claims,
		Coverages: coverages,
		Oracle:    oracleClient,
		Policy:    triggerPolicy,
		Payout:    payout,
		Rounds:    db.NewVerificationRepository(conn),
		Events:    publisher,
		Clock:     clock,
	}

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
	sweep := &usecase.ExpirySweeper{
		Coverages: coverages,
		Cache:     cache,
		Events:    publisher,
		Clock:     clock,
	}

	go sweeper.Run(ctx, sweep, market, utilization, sweeper.Intervals{
		Expiry:      cfg.SweepInterval,
		Market:      cfg.MarketInterval,
		Utilization: cfg.UtilizationInterval,
	})

	acts := activities.New(adjudicator)
	w := worker.New(temporalClient, cfg.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.AdjudicationWorkflow)
	w.RegisterActivityWithOptions(acts.DispatchVerification, activity.RegisterOptions{Name: activities.DispatchActivityName})
	w.RegisterActivityWithOptions(acts.PollVerification, activity.RegisterOptions{Name: activities.PollActivityName})
	w.RegisterActivityWithOptions(acts.TimeoutVerification, activity.RegisterOptions{Name: activities.TimeoutActivityName})

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	log.Printf("adjudication worker listening on task queue %s", cfg.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker exited: %v", err)
	}
}

func startHealthServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("health server error: %v", err)
		}
	}()
	return srv
}
