package domain

// AgentName identifies an enrichment agent in the pipeline.
type AgentName string

const (
	AgentCompanyFuzzyMatch  AgentName = "CompanyFuzzyMatchAgent"
	AgentDOLSync            AgentName = "DOLSyncAgent"
	AgentPattern            AgentName = "PatternAgent"
	AgentEmailGenerator     AgentName = "EmailGeneratorAgent"
	AgentSlotDiscovery      AgentName = "SlotDiscoveryAgent"
	AgentLinkedInResolution AgentName = "LinkedInResolutionAgent"
	AgentPersonMatch        AgentName = "PersonMatchAgent"
	AgentEmailVerify        AgentName = "EmailVerifyAgent"
	AgentOutreachSync       AgentName = "OutreachSyncAgent"
)

// NodeName identifies a pipeline node (a hub of related agents).
type NodeName string

const (
	NodeCompanyHub NodeName = "company_hub"
	NodePeopleHub  NodeName = "people_hub"
	NodeEmailHub   NodeName = "email_hub"
)
