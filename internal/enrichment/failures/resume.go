package failures

import "github.com/leadgrid/gatekeeper/internal/core/domain"

// ResumePoint is the (node, agent) pair where reprocessing restarts after a
// failure category is fixed.
type ResumePoint struct {
	Node  domain.NodeName  `json:"resume_node"`
	Agent domain.AgentName `json:"resume_agent"`
}

// resumePoints encodes the recovery semantics per bay. Company-identity
// failures always resume at the root node's company-matching agent, never
// downstream: identity must be re-validated before any email work resumes.
var resumePoints = map[domain.Bay]ResumePoint{
	domain.BayCompanyFuzzy:          {Node: domain.NodeCompanyHub, Agent: domain.AgentCompanyFuzzyMatch},
	domain.BayPersonCompanyMismatch: {Node: domain.NodeCompanyHub, Agent: domain.AgentCompanyFuzzyMatch},
	domain.BayEmailPattern:          {Node: domain.NodeCompanyHub, Agent: domain.AgentPattern},
	domain.BayEmailGeneration:       {Node: domain.NodeCompanyHub, Agent: domain.AgentEmailGenerator},
	domain.BayLinkedInResolution:    {Node: domain.NodePeopleHub, Agent: domain.AgentLinkedInResolution},
	domain.BaySlotDiscovery:         {Node: domain.NodePeopleHub, Agent: domain.AgentSlotDiscovery},
	domain.BayDOLSync:               {Node: domain.NodeCompanyHub, Agent: domain.AgentDOLSync},
	domain.BayAgentFailures:         {Node: domain.NodeCompanyHub, Agent: domain.AgentCompanyFuzzyMatch},
}

// ResumePointForBay returns where jobs from a bay re-enter the pipeline.
func ResumePointForBay(bay domain.Bay) (ResumePoint, bool) {
	rp, ok := resumePoints[bay]
	return rp, ok
}

// agentBays maps each agent to the bay owning its failures. Agents not
// listed fall through to the agent_failures catch-all.
var agentBays = map[domain.AgentName]domain.Bay{
	domain.AgentCompanyFuzzyMatch:  domain.BayCompanyFuzzy,
	domain.AgentPersonMatch:        domain.BayPersonCompanyMismatch,
	domain.AgentPattern:            domain.BayEmailPattern,
	domain.AgentEmailGenerator:     domain.BayEmailGeneration,
	domain.AgentLinkedInResolution: domain.BayLinkedInResolution,
	domain.AgentSlotDiscovery:      domain.BaySlotDiscovery,
	domain.AgentDOLSync:            domain.BayDOLSync,
}

// BayForAgent returns the bay owning an agent's failures, defaulting to the
// agent_failures catch-all.
func BayForAgent(agent domain.AgentName) domain.Bay {
	if bay, ok := agentBays[agent]; ok {
		return bay
	}
	return domain.BayAgentFailures
}
