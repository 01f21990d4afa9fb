package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
	"github.com/leadgrid/gatekeeper/internal/enrichment/failures"
	"github.com/leadgrid/gatekeeper/internal/enrichment/throttle"
	"github.com/leadgrid/gatekeeper/internal/infra/storage"
)

// Input is one unit of work flowing through the pipeline.
type Input struct {
	RowID     string
	CompanyID string
	Data      map[string]any
}

// Agent is the collaborator contract for an enrichment agent. Run is
// invoked only after a gate permit for the agent's mapped vendor.
type Agent interface {
	Name() domain.AgentName
	Run(ctx context.Context, in Input) (map[string]any, error)
}

// AgentTable maps agents to their vendor and flat cost estimate.
type AgentTable struct {
	// Vendors maps agent -> vendor. Agents mapped to VendorInternal skip
	// the gate.
	Vendors map[domain.AgentName]domain.VendorID `yaml:"vendors"`

	// Costs maps agent -> flat cost estimate per call (default 0).
	Costs map[domain.AgentName]float64 `yaml:"costs"`
}

// Vendor returns the vendor for an agent, defaulting to internal.
func (t AgentTable) Vendor(agent domain.AgentName) domain.VendorID {
	if v, ok := t.Vendors[agent]; ok {
		return v
	}
	return domain.VendorInternal
}

// Cost returns the flat cost estimate for an agent.
func (t AgentTable) Cost(agent domain.AgentName) float64 {
	return t.Costs[agent]
}

// StepResult reports what happened to one agent step.
type StepResult struct {
	Agent    domain.AgentName
	Ran      bool
	Denied   bool
	Decision throttle.Decision
	Routed   *failures.RouteResult
	Output   map[string]any
	Err      error
}

// Runner drives agents for one work item in dependency order. It consults
// the graph before any agent runs regardless of throttle state, asks the
// gate for a permit, and routes failures.
type Runner struct {
	graph   *Graph
	gate    *throttle.Gate
	router  *failures.Router
	agents  map[domain.AgentName]Agent
	table   AgentTable
	callLog storage.CallLogRepository
	log     *slog.Logger
}

// NewRunner creates a runner. callLog may be nil to skip durable call
// history.
func NewRunner(graph *Graph, gate *throttle.Gate, router *failures.Router, table AgentTable, callLog storage.CallLogRepository, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		graph:   graph,
		gate:    gate,
		router:  router,
		agents:  make(map[domain.AgentName]Agent),
		table:   table,
		callLog: callLog,
		log:     log.With("component", "runner"),
	}
}

// Register installs an agent implementation.
func (r *Runner) Register(agent Agent) {
	r.agents[agent.Name()] = agent
}

// RunNext executes the next runnable agent for the item, honoring the
// dependency graph and the gate. Returns the step result; Ran false with
// no error means nothing is currently runnable in the node.
func (r *Runner) RunNext(ctx context.Context, node domain.NodeName, in Input, completed []domain.AgentName) (StepResult, error) {
	agent := r.graph.NextAgent(node, completed)
	if agent == "" {
		return StepResult{}, nil
	}
	return r.RunAgent(ctx, node, agent, in, completed)
}

// RunAgent executes one specific agent for the item. Dependency validation
// happens first, independent of throttle state.
func (r *Runner) RunAgent(ctx context.Context, node domain.NodeName, agent domain.AgentName, in Input, completed []domain.AgentName) (StepResult, error) {
	if v := r.graph.ValidateDependencies(node, agent, completed); !v.Valid {
		return StepResult{}, fmt.Errorf("agent %s has unmet dependencies: %v", agent, v.Missing)
	}

	impl, ok := r.agents[agent]
	if !ok {
		return StepResult{}, fmt.Errorf("no implementation registered for agent %s", agent)
	}

	result := StepResult{Agent: agent}
	vendor := r.table.Vendor(agent)

	if vendor != domain.VendorInternal {
		decision, err := r.gate.CheckAndConsume(throttle.Request{
			Vendor:  vendor,
			Agent:   agent,
			Cost:    r.table.Cost(agent),
			Company: in.CompanyID,
		})
		if err != nil {
			return StepResult{}, err
		}
		result.Decision = decision

		if !decision.Permitted {
			result.Denied = true
			r.log.Warn("gate denied agent call",
				"agent", agent, "vendor", vendor,
				"reason", decision.Reason, "retry_after", decision.RetryAfter)

			if decision.Err != nil {
				routed, rerr := r.router.RouteThrottleError(ctx, in.RowID, decision.Err)
				if rerr != nil {
					return result, rerr
				}
				result.Routed = &routed
			}
			return result, nil
		}

		if r.callLog != nil {
			entry := &domain.CallEntry{
				Vendor:    vendor,
				Agent:     agent,
				Cost:      r.table.Cost(agent),
				Timestamp: time.Now(),
			}
			if err := r.callLog.Append(ctx, entry); err != nil {
				r.log.Warn("failed to persist call entry", "vendor", vendor, "error", err)
			}
		}
	}

	out, err := impl.Run(ctx, in)
	if err != nil {
		result.Err = err
		if vendor != domain.VendorInternal {
			r.gate.ReportFailure(vendor)
		}

		routed, rerr := r.router.AutoRoute(ctx, agent, in.RowID, err)
		if rerr != nil {
			return result, rerr
		}
		result.Routed = &routed
		return result, nil
	}

	if vendor != domain.VendorInternal {
		r.gate.ReportSuccess(vendor)
	}

	result.Ran = true
	result.Output = out
	return result, nil
}
