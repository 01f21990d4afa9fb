// Package pipeline holds the agent execution-order rules: which agents run
// in which node, what each agent requires before it may run, and the fixed
// node order. The graph is static config; it performs no I/O.
package pipeline

import (
	"github.com/leadgrid/gatekeeper/internal/core/domain"
)

// Config describes the pipeline ordering rules.
type Config struct {
	// NodeOrder is the fixed execution order of pipeline nodes.
	NodeOrder []domain.NodeName `yaml:"node_order"`

	// AgentOrder is the fixed execution order of agents within each node.
	AgentOrder map[domain.NodeName][]domain.AgentName `yaml:"agent_order"`

	// Local maps node -> agent -> node-local prerequisites.
	Local map[domain.NodeName]map[domain.AgentName][]domain.AgentName `yaml:"dependencies"`

	// Cross maps agent -> prerequisites from any node.
	Cross map[domain.AgentName][]domain.AgentName `yaml:"cross_node"`
}

// Validation is the result of a dependency check.
type Validation struct {
	Valid   bool
	Missing []domain.AgentName
}

// Graph answers ordering questions for the pipeline driver.
type Graph struct {
	nodeOrder  []domain.NodeName
	agentOrder map[domain.NodeName][]domain.AgentName
	local      map[domain.NodeName]map[domain.AgentName][]domain.AgentName
	cross      map[domain.AgentName][]domain.AgentName
}

// NewGraph builds a graph from config.
func NewGraph(cfg Config) *Graph {
	return &Graph{
		nodeOrder:  cfg.NodeOrder,
		agentOrder: cfg.AgentOrder,
		local:      cfg.Local,
		cross:      cfg.Cross,
	}
}

// ValidateDependencies checks whether agent may run in node given the set
// of completed agents. Missing lists every unmet prerequisite, node-local
// first, in declared order.
func (g *Graph) ValidateDependencies(node domain.NodeName, agent domain.AgentName, completed []domain.AgentName) Validation {
	done := toSet(completed)

	var missing []domain.AgentName
	seen := make(map[domain.AgentName]bool)
	for _, dep := range g.required(node, agent) {
		if !done[dep] && !seen[dep] {
			missing = append(missing, dep)
			seen[dep] = true
		}
	}

	return Validation{Valid: len(missing) == 0, Missing: missing}
}

// NextAgent returns the first agent in the node's fixed order that has not
// completed and has no missing dependency, or "" if none is runnable.
func (g *Graph) NextAgent(node domain.NodeName, completed []domain.AgentName) domain.AgentName {
	done := toSet(completed)

	for _, agent := range g.agentOrder[node] {
		if done[agent] {
			continue
		}
		if v := g.ValidateDependencies(node, agent, completed); v.Valid {
			return agent
		}
	}
	return ""
}

// IsNodeComplete reports whether every agent in the node has completed.
func (g *Graph) IsNodeComplete(node domain.NodeName, completed []domain.AgentName) bool {
	done := toSet(completed)
	for _, agent := range g.agentOrder[node] {
		if !done[agent] {
			return false
		}
	}
	return true
}

// NextNode returns the first node in the fixed order that is not complete,
// or "" when the whole pipeline is done.
func (g *Graph) NextNode(completed []domain.AgentName) domain.NodeName {
	for _, node := range g.nodeOrder {
		if !g.IsNodeComplete(node, completed) {
			return node
		}
	}
	return ""
}

// Nodes returns the fixed node order.
func (g *Graph) Nodes() []domain.NodeName {
	return g.nodeOrder
}

// Agents returns the fixed agent order for a node.
func (g *Graph) Agents(node domain.NodeName) []domain.AgentName {
	return g.agentOrder[node]
}

// AllDependencies returns the transitive closure of an agent's
// prerequisites. Depth-first traversal with an explicit stack and a visited
// set, so a misconfigured cycle cannot cause non-termination.
func (g *Graph) AllDependencies(agent domain.AgentName) []domain.AgentName {
	visited := map[domain.AgentName]bool{agent: true}
	var out []domain.AgentName

	stack := append([]domain.AgentName(nil), g.requiredAnywhere(agent)...)
	for len(stack) > 0 {
		dep := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[dep] {
			continue
		}
		visited[dep] = true
		out = append(out, dep)
		stack = append(stack, g.requiredAnywhere(dep)...)
	}
	return out
}

// required returns the direct prerequisites of agent in node: node-local
// rules first, then cross-node rules.
func (g *Graph) required(node domain.NodeName, agent domain.AgentName) []domain.AgentName {
	var deps []domain.AgentName
	if local, ok := g.local[node]; ok {
		deps = append(deps, local[agent]...)
	}
	deps = append(deps, g.cross[agent]...)
	return deps
}

// requiredAnywhere returns the direct prerequisites of agent across every
// node, for transitive traversal.
func (g *Graph) requiredAnywhere(agent domain.AgentName) []domain.AgentName {
	var deps []domain.AgentName
	for _, node := range g.nodeOrder {
		if local, ok := g.local[node]; ok {
			deps = append(deps, local[agent]...)
		}
	}
	deps = append(deps, g.cross[agent]...)
	return deps
}

func toSet(agents []domain.AgentName) map[domain.AgentName]bool {
	set := make(map[domain.AgentName]bool, len(agents))
	for _, a := range agents {
		set[a] = true
	}
	return set
}
