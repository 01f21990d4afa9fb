// Package control wires the enrichment components together and manages
// their lifecycle.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pressly/goose/v3"

	"github.com/leadgrid/gatekeeper/internal/core/config"
	"github.com/leadgrid/gatekeeper/internal/enrichment/budget"
	"github.com/leadgrid/gatekeeper/internal/enrichment/failures"
	"github.com/leadgrid/gatekeeper/internal/enrichment/ops"
	"github.com/leadgrid/gatekeeper/internal/enrichment/pipeline"
	"github.com/leadgrid/gatekeeper/internal/enrichment/queue"
	"github.com/leadgrid/gatekeeper/internal/enrichment/throttle"
	redisclient "github.com/leadgrid/gatekeeper/internal/infra/redis"
	"github.com/leadgrid/gatekeeper/internal/infra/storage"
	"github.com/leadgrid/gatekeeper/internal/infra/storage/memory"
	"github.com/leadgrid/gatekeeper/internal/infra/storage/postgres"
)

// Service is the main application struct that owns all components.
type Service struct {
	cfg     *config.AppConfig
	gate    *throttle.Gate
	graph   *pipeline.Graph
	runner  *pipeline.Runner
	router  *failures.Router
	queue   *queue.Queue
	requeue *queue.RequeueService
	budgets *budget.Accountant
	ops     *ops.Server

	budgetRepo  storage.BudgetRepository
	db          *postgres.DB
	redisClient *redisclient.Client
	log         *slog.Logger
}

// NewService creates a Service with all dependencies initialized.
func NewService(cfg *config.AppConfig) (*Service, error) {
	log := slog.Default()

	// 1. Initialize storage
	var bayRepo storage.BayRepository
	var jobRepo storage.JobRepository
	var callLogRepo storage.CallLogRepository
	var budgetRepo storage.BudgetRepository
	var db *postgres.DB
	var redisClient *redisclient.Client

	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		migrationsDir := cfg.Database.MigrationsDir
		if migrationsDir == "" {
			migrationsDir = "migrations"
		}

		// Goose needs the *sql.DB that sqlx wraps.
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, migrationsDir); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		bayRepo = postgres.NewBayRepo(db)
		jobRepo = postgres.NewJobRepo(db)
		callLogRepo = postgres.NewCallLogRepo(db)
		budgetRepo = postgres.NewBudgetRepo(db)
		log.Info("Using PostgreSQL storage")
	} else {
		store := memory.NewStore()
		bayRepo = memory.NewBayRepo(store)
		jobRepo = memory.NewJobRepo(store)
		callLogRepo = memory.NewCallLogRepo(store)
		budgetRepo = memory.NewBudgetRepo(store)
		log.Info("Using Memory storage")
	}

	// Redis holds failure records for fast repair-console access. It
	// supplements the primary store rather than replacing it.
	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("Failed to connect to Redis, falling back to primary store", "error", err)
		} else {
			bayRepo = redisclient.NewBayRepo(redisClient)
			log.Info("Using Redis for failure records")
		}
	}

	// 2. Core components
	budgets := budget.NewAccountant(cfg.Budgets)
	if snaps, err := budgetRepo.List(context.Background()); err == nil && len(snaps) > 0 {
		for _, b := range snaps {
			budgets.Restore(*b)
		}
		log.Info("Restored company budgets", "count", len(snaps))
	}

	gate := throttle.NewGate(cfg.Throttle, budgets)
	graph := pipeline.NewGraph(cfg.Pipeline)
	router := failures.NewRouter(bayRepo, log)
	jobQueue := queue.NewQueue(jobRepo)
	requeue := queue.NewRequeueService(router, jobQueue, log)
	runner := pipeline.NewRunner(graph, gate, router, cfg.Agents, callLogRepo, log)

	opsServer := ops.NewServer(gate, router, requeue, cfg.Server.Port)

	return &Service{
		cfg:         cfg,
		gate:        gate,
		graph:       graph,
		runner:      runner,
		router:      router,
		queue:       jobQueue,
		requeue:     requeue,
		budgets:     budgets,
		ops:         opsServer,
		budgetRepo:  budgetRepo,
		db:          db,
		redisClient: redisClient,
		log:         log,
	}, nil
}

// Gate returns the admission gate.
func (s *Service) Gate() *throttle.Gate { return s.gate }

// Runner returns the pipeline runner.
func (s *Service) Runner() *pipeline.Runner { return s.runner }

// Router returns the failure router.
func (s *Service) Router() *failures.Router { return s.router }

// Queue returns the job queue.
func (s *Service) Queue() *queue.Queue { return s.queue }

// Requeue returns the requeue service.
func (s *Service) Requeue() *queue.RequeueService { return s.requeue }

// Start starts the ops server in the background.
func (s *Service) Start(ctx context.Context) error {
	go func() {
		s.log.Info("Ops server listening", "port", s.cfg.Server.Port)
		if err := s.ops.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Ops server failed", "error", err)
		}
	}()
	return nil
}

// Stop shuts down the service and releases resources.
func (s *Service) Stop(ctx context.Context) error {
	if err := s.ops.Stop(ctx); err != nil {
		s.log.Warn("Ops server shutdown error", "error", err)
	}

	for _, b := range s.budgets.Snapshots() {
		if err := s.budgetRepo.Save(ctx, &b); err != nil {
			s.log.Warn("Failed to persist company budget", "company", b.CompanyID, "error", err)
		}
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.Warn("Redis close error", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn("Database close error", "error", err)
		}
	}

	s.log.Info("Service stopped")
	return nil
}
