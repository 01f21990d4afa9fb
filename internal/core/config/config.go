package config

import (
	"time"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
	"github.com/leadgrid/gatekeeper/internal/enrichment/budget"
	"github.com/leadgrid/gatekeeper/internal/enrichment/pipeline"
	"github.com/leadgrid/gatekeeper/internal/enrichment/throttle"
	redisclient "github.com/leadgrid/gatekeeper/internal/infra/redis"
	"github.com/leadgrid/gatekeeper/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Database postgres.Config    `yaml:"database"`
	Redis    redisclient.Config `yaml:"redis"`
	Throttle throttle.Config    `yaml:"throttle"`
	Agents   pipeline.AgentTable `yaml:"agents"`
	Pipeline pipeline.Config    `yaml:"pipeline"`
	Budgets  budget.Config      `yaml:"budgets"`
}

// ServerConfig holds ops HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Defaults returns the production vendor, agent and pipeline tables.
// A config file overrides sections wholesale.
func Defaults() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{Port: 8080},
		Throttle: throttle.Config{
			BreakerThreshold: 5,
			BreakerReset:     time.Minute,
			HistorySize:      5000,
			Rules: map[domain.VendorID]domain.ThrottleRule{
				domain.VendorHunter: {
					MaxCallsPerMinute:  10,
					MaxCallsPerDay:     500,
					MaxCostPerDay:      25,
					Cooldown:           5 * time.Second,
					ExponentialBackoff: true,
					MaxBackoffMultiplier: 8,
				},
				domain.VendorProxycurl: {
					MaxCallsPerMinute:  30,
					MaxCallsPerHour:    600,
					MaxCostPerHour:     15,
					MaxCostPerDay:      100,
					Cooldown:           2 * time.Second,
					ExponentialBackoff: true,
					MaxBackoffMultiplier: 16,
				},
				domain.VendorApollo: {
					MaxCallsPerMinute: 50,
					MaxCallsPerDay:    2000,
					MaxCostPerDay:     50,
					Cooldown:          time.Second,
				},
				domain.VendorOpenAI: {
					MaxCallsPerMinute: 60,
					MaxCostPerMinute:  1,
					MaxCostPerDay:     40,
					Cooldown:          time.Second,
					ExponentialBackoff: true,
					MaxBackoffMultiplier: 4,
				},
				domain.VendorDOL: {
					MaxCallsPerMinute: 20,
					Cooldown:          3 * time.Second,
				},
			},
		},
		Agents: pipeline.AgentTable{
			Vendors: map[domain.AgentName]domain.VendorID{
				domain.AgentCompanyFuzzyMatch:  domain.VendorInternal,
				domain.AgentDOLSync:            domain.VendorDOL,
				domain.AgentPattern:            domain.VendorHunter,
				domain.AgentEmailGenerator:     domain.VendorOpenAI,
				domain.AgentSlotDiscovery:      domain.VendorApollo,
				domain.AgentLinkedInResolution: domain.VendorProxycurl,
				domain.AgentPersonMatch:        domain.VendorInternal,
				domain.AgentEmailVerify:        domain.VendorHunter,
				domain.AgentOutreachSync:       domain.VendorInternal,
			},
			Costs: map[domain.AgentName]float64{
				domain.AgentPattern:            0.01,
				domain.AgentEmailVerify:        0.01,
				domain.AgentLinkedInResolution: 0.02,
				domain.AgentSlotDiscovery:      0.015,
				domain.AgentEmailGenerator:     0.002,
			},
		},
		Pipeline: pipeline.Config{
			NodeOrder: []domain.NodeName{
				domain.NodeCompanyHub,
				domain.NodePeopleHub,
				domain.NodeEmailHub,
			},
			AgentOrder: map[domain.NodeName][]domain.AgentName{
				domain.NodeCompanyHub: {
					domain.AgentCompanyFuzzyMatch,
					domain.AgentDOLSync,
					domain.AgentPattern,
					domain.AgentEmailGenerator,
				},
				domain.NodePeopleHub: {
					domain.AgentSlotDiscovery,
					domain.AgentLinkedInResolution,
					domain.AgentPersonMatch,
				},
				domain.NodeEmailHub: {
					domain.AgentEmailVerify,
					domain.AgentOutreachSync,
				},
			},
			Local: map[domain.NodeName]map[domain.AgentName][]domain.AgentName{
				domain.NodeCompanyHub: {
					domain.AgentDOLSync: {domain.AgentCompanyFuzzyMatch},
					domain.AgentPattern: {domain.AgentCompanyFuzzyMatch},
					domain.AgentEmailGenerator: {
						domain.AgentCompanyFuzzyMatch,
						domain.AgentPattern,
					},
				},
				domain.NodePeopleHub: {
					domain.AgentLinkedInResolution: {domain.AgentSlotDiscovery},
					domain.AgentPersonMatch:        {domain.AgentLinkedInResolution},
				},
				domain.NodeEmailHub: {
					domain.AgentOutreachSync: {domain.AgentEmailVerify},
				},
			},
			Cross: map[domain.AgentName][]domain.AgentName{
				domain.AgentSlotDiscovery: {domain.AgentCompanyFuzzyMatch},
				domain.AgentEmailVerify: {
					domain.AgentEmailGenerator,
					domain.AgentPersonMatch,
				},
			},
		},
		Budgets: budget.Config{
			Defaults: domain.BudgetLimits{
				Daily:   10,
				Weekly:  50,
				Monthly: 150,
			},
		},
	}
}
