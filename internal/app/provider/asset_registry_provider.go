package provider

import (
	"wallet_console/internal/app/port"
	"wallet_console/internal/domain/entity"
	"wallet_console/internal/infrastructure/tokenloader"
)

type assetRegistryImpl struct {
	entries []entity.RegistryEntry
}

// NewAssetRegistry builds the registry from configured entries followed by the entries of
// registryFile (if set). When both are empty the network's default assets are used.
func NewAssetRegistry(configured []entity.RegistryEntry, registryFile string, network entity.NetworkDefinition, logger port.Logger) (port.AssetRegistry, error) {
	all := make([]entity.RegistryEntry, 0, len(configured))
	all = append(all, configured...)

	if registryFile != "" {
		logger.Debug("Loading registry entries from file", "path", registryFile)
		fromFile, err := tokenloader.NewRegistryFileLoader(registryFile, logger.Info, logger.Warn).Load()
		if err != nil {
			logger.Error("Failed to load registry file", "path", registryFile, "error", err)
			return nil, err
		}
		all = append(all, fromFile...)
	}

	if len(all) == 0 && len(network.DefaultAssets) > 0 {
		logger.Info("No assets configured, using network defaults", "network", network.Identifier, "count", len(network.DefaultAssets))
		all = append(all, network.DefaultAssets...)
	}

	entries := tokenloader.Normalize(all, logger.Warn)
	logger.Info("Asset registry initialised", "count", len(entries))
	return &assetRegistryImpl{entries: entries}, nil
}

// Entries returns a copy of the registry in declaration order.
func (r *assetRegistryImpl) Entries() []entity.RegistryEntry {
	out := make([]entity.RegistryEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
