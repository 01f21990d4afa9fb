package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/leadgrid/gatekeeper/internal/control"
	"github.com/leadgrid/gatekeeper/internal/core/config"
	"github.com/leadgrid/gatekeeper/internal/core/domain"
	"github.com/leadgrid/gatekeeper/internal/enrichment/failures"
)

func TestGracefulShutdown(t *testing.T) {
	// Memory storage, random ops port: enough to start every component
	// without external services.
	cfg := config.Defaults()
	cfg.Server.Port = 0

	app, err := control.NewService(cfg)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Exercise the wired components while running.
	res, err := app.Router().RouteEmailPattern(ctx, failures.EmailPatternFailure{
		RowID:  "row-1",
		Domain: "acme.com",
	})
	if err != nil {
		t.Fatalf("Failed to route failure: %v", err)
	}
	if _, err := app.Requeue().Requeue(ctx, res.Bay, res.RecordID, domain.PriorityNormal); err != nil {
		t.Fatalf("Failed to requeue: %v", err)
	}
	if job := app.Queue().NextJob(); job == nil {
		t.Error("Expected a pending resume job, got none")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}
