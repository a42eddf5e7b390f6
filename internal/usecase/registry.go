package usecase

import (
	"context"
	"fmt"

	"gitlab.com/hexaretail/api/onboarding-orchestrator/internal/apperrors"
)

// Supported messaging channels.
const (
	ChannelWWC      = "wwc"
	ChannelWppCloud = "wpp-cloud"

	// DefaultChannel is used when a workflow record carries no channel.
	DefaultChannel = ChannelWWC
)

// PassiveAgent is a pre-built auxiliary agent integrated by reference
// during the final pipeline stage. The UUID is resolved from config at
// startup; agents without one are skipped with a warning.
type PassiveAgent struct {
	Key  string
	Name string
	UUID string
}

// ChannelConfigurer provisions and configures the messaging channel app
// for one workflow. Implementations are registered per channel code.
type ChannelConfigurer interface {
	Configure(ctx context.Context, run *pipelineRun) error
}

type registryEntry struct {
	configurer ChannelConfigurer
	agents     []PassiveAgent
}

// ChannelRegistry maps channel codes to their configurer and passive
// agent roster.
type ChannelRegistry struct {
	entries map[string]registryEntry
}

// wwcPassiveAgentRoster is the fixed ordered roster for the web chat
// channel. UUIDs come from config (onboarding.agentUUIDs keyed by Key).
var wwcPassiveAgentRoster = []PassiveAgent{
	{Key: "order_tracker", Name: "Order Tracker"},
	{Key: "product_expert", Name: "Product Expert"},
	{Key: "promo_assistant", Name: "Promo Assistant"},
	{Key: "faq_assistant", Name: "FAQ Assistant"},
}

func newChannelRegistry(svc *Service, agentUUIDs map[string]string) *ChannelRegistry {
	wwcAgents := make([]PassiveAgent, len(wwcPassiveAgentRoster))
	copy(wwcAgents, wwcPassiveAgentRoster)
	for i := range wwcAgents {
		wwcAgents[i].UUID = agentUUIDs[wwcAgents[i].Key]
	}

	return &ChannelRegistry{
		entries: map[string]registryEntry{
			ChannelWWC:      {configurer: &wwcConfigurer{svc: svc}, agents: wwcAgents},
			ChannelWppCloud: {configurer: &wppCloudConfigurer{svc: svc}, agents: nil},
		},
	}
}

// Resolve returns the configurer and agent roster for a channel. An
// empty channel resolves to the default; an unknown one is a fatal
// pipeline fault.
func (r *ChannelRegistry) Resolve(channel string) (ChannelConfigurer, []PassiveAgent, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	entry, ok := r.entries[channel]
	if !ok {
		return nil, nil, fmt.Errorf("%w: no configurer registered for channel %q", apperrors.ErrChannelConfig, channel)
	}
	return entry.configurer, entry.agents, nil
}
