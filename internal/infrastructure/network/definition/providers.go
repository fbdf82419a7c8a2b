package networkdefinition

import (
	"fmt"
	"strings"

	"wallet_console/internal/app/port"
	"wallet_console/internal/domain/entity"
)

// NetworkDefinitionProvider provides network definitions.
type NetworkDefinitionProvider struct {
	logger         port.Logger
	allNetworkDefs map[string]entity.NetworkDefinition
}

var _ port.NetworkDefinitionProvider = (*NetworkDefinitionProvider)(nil)

// Predefined network definitions
var ( //nolint:gochecknoglobals // Global for definitions
	Sepolia = entity.NetworkDefinition{
		ChainID:          11155111,
		Name:             "Sepolia Testnet",
		Identifier:       "sepolia",
		NativeSymbol:     "ETH",
		PrimaryRPCURL:    "https://ethereum-sepolia-rpc.publicnode.com",
		FallbackRPCURLs:  []string{"https://rpc.sepolia.org", "https://1rpc.io/sepolia"},
		BlockExplorerURL: "https://sepolia.etherscan.io",
		DefaultAssets: []entity.RegistryEntry{
			{DisplayName: "LINK", ContractAddress: "0x779877A7B0D9E8603169DdbD7836e478b4624789"},
			{DisplayName: "WETH", ContractAddress: "0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14"},
		},
	}
	Holesky = entity.NetworkDefinition{
		ChainID:          17000,
		Name:             "Holesky Testnet",
		Identifier:       "holesky",
		NativeSymbol:     "ETH",
		PrimaryRPCURL:    "https://ethereum-holesky-rpc.publicnode.com",
		FallbackRPCURLs:  []string{"https://1rpc.io/holesky"},
		BlockExplorerURL: "https://holesky.etherscan.io",
	}
	Ethereum = entity.NetworkDefinition{
		ChainID:          1,
		Name:             "Ethereum Mainnet",
		Identifier:       "ethereum",
		NativeSymbol:     "ETH",
		PrimaryRPCURL:    "https://ethereum-rpc.publicnode.com",
		FallbackRPCURLs:  []string{"https://rpc.ankr.com/eth", "https://ethereum.publicnode.com"},
		BlockExplorerURL: "https://etherscan.io",
		DefaultAssets: []entity.RegistryEntry{
			{DisplayName: "WETH", ContractAddress: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"},
		},
	}
	Polygon = entity.NetworkDefinition{
		ChainID:          137,
		Name:             "Polygon PoS",
		Identifier:       "polygon",
		NativeSymbol:     "MATIC",
		PrimaryRPCURL:    "https://polygon-rpc.com/",
		FallbackRPCURLs:  []string{"https://rpc.ankr.com/polygon", "https://polygon.publicnode.com"},
		BlockExplorerURL: "https://polygonscan.com",
	}
	Arbitrum = entity.NetworkDefinition{
		ChainID:          42161,
		Name:             "Arbitrum One",
		Identifier:       "arbitrum",
		NativeSymbol:     "ETH",
		PrimaryRPCURL:    "https://arb1.arbitrum.io/rpc",
		FallbackRPCURLs:  []string{"https://arbitrum.llamarpc.com", "https://arbitrum.publicnode.com"},
		BlockExplorerURL: "https://arbiscan.io",
	}
	Base = entity.NetworkDefinition{
		ChainID:          8453,
		Name:             "Base Mainnet",
		Identifier:       "base",
		NativeSymbol:     "ETH",
		PrimaryRPCURL:    "https://1rpc.io/base",
		FallbackRPCURLs:  []string{"https://base.publicnode.com", "https://base.llamarpc.com"},
		BlockExplorerURL: "https://basescan.org",
	}
	Optimism = entity.NetworkDefinition{
		ChainID:          10,
		Name:             "OP Mainnet",
		Identifier:       "optimism",
		NativeSymbol:     "ETH",
		PrimaryRPCURL:    "https://optimism.publicnode.com",
		FallbackRPCURLs:  []string{"https://rpc.ankr.com/optimism"},
		BlockExplorerURL: "https://optimistic.etherscan.io",
	}
)

// allKnownDefinitions is a helper to quickly access all hardcoded definitions.
var allKnownDefinitions = map[string]entity.NetworkDefinition{
	Sepolia.Identifier:  Sepolia,
	Holesky.Identifier:  Holesky,
	Ethereum.Identifier: Ethereum,
	Polygon.Identifier:  Polygon,
	Arbitrum.Identifier: Arbitrum,
	Base.Identifier:     Base,
	Optimism.Identifier: Optimism,
}

// NewNetworkDefinitionProvider creates a new NetworkDefinitionProvider.
func NewNetworkDefinitionProvider(log port.Logger) *NetworkDefinitionProvider {
	p := &NetworkDefinitionProvider{
		logger:         log,
		allNetworkDefs: allKnownDefinitions,
	}
	p.logger.Debug(fmt.Sprintf("NetworkDefinitionProvider initialized with %d known networks", len(p.allNetworkDefs)))
	return p
}

// GetNetworkDefinitionByName returns a network definition by its identifier or display name.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByName(nameOrIdentifier string) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	key := strings.ToLower(strings.TrimSpace(nameOrIdentifier))
	if def, ok := p.allNetworkDefs[key]; ok {
		return def, true
	}
	for _, def := range p.allNetworkDefs {
		if strings.EqualFold(def.Name, nameOrIdentifier) {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}

// Resolve looks up the configured network and lays the configured overrides over it. An unknown
// identifier is accepted as a custom network as long as the overrides carry a chain id.
func (p *NetworkDefinitionProvider) Resolve(identifier string, chainID uint64, nativeSymbol, rpcURL string, fallbackRPCURLs []string) (entity.NetworkDefinition, error) {
	def, ok := p.GetNetworkDefinitionByName(identifier)
	if !ok {
		if chainID == 0 {
			return entity.NetworkDefinition{}, fmt.Errorf("unknown network %q and no chain id configured", identifier)
		}
		p.logger.Warn("Network not predefined, using configured values only", "network", identifier)
		def = entity.NetworkDefinition{Identifier: identifier, Name: identifier, NativeSymbol: "ETH"}
	}

	if chainID != 0 {
		if ok && chainID != def.ChainID {
			p.logger.Warn("Configured chain id differs from the predefined one", "network", def.Identifier, "configured", chainID, "predefined", def.ChainID)
		}
		def.ChainID = chainID
	}
	if nativeSymbol != "" {
		def.NativeSymbol = nativeSymbol
	}
	if rpcURL != "" {
		def.PrimaryRPCURL = rpcURL
	}
	if len(fallbackRPCURLs) > 0 {
		def.FallbackRPCURLs = append([]string(nil), fallbackRPCURLs...)
	}
	if def.PrimaryRPCURL == "" {
		return entity.NetworkDefinition{}, fmt.Errorf("network %q has no RPC URL", def.Identifier)
	}
	return def, nil
}
