package tokenloader

import (
	"fmt"
	"os"
	"strings"

	"wallet_console/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RegistryFileLoader reads registry entries from a JSON file of the form
// [{"displayName":"LINK","contractAddress":"0x..."}].
type RegistryFileLoader struct {
	filePath   string
	loggerInfo func(msg string, args ...any)
	loggerWarn func(msg string, args ...any)
}

// NewRegistryFileLoader creates a new RegistryFileLoader.
func NewRegistryFileLoader(filePath string, loggerInfo, loggerWarn func(msg string, args ...any)) *RegistryFileLoader {
	return &RegistryFileLoader{
		filePath:   filePath,
		loggerInfo: loggerInfo,
		loggerWarn: loggerWarn,
	}
}

// Load reads the file and returns its entries in file order. A missing or malformed file is an
// error; individual bad entries are skipped with a warning.
func (l *RegistryFileLoader) Load() ([]entity.RegistryEntry, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file %s: %w", l.filePath, err)
	}

	var raw []entity.RegistryEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal registry file %s: %w", l.filePath, err)
	}

	entries := Normalize(raw, func(msg string, args ...any) {
		if l.loggerWarn != nil {
			l.loggerWarn(msg, append(args, "file", l.filePath)...)
		}
	})
	if l.loggerInfo != nil {
		l.loggerInfo("Registry entries loaded from file", "path", l.filePath, "count", len(entries))
	}
	return entries, nil
}

// Normalize checksums addresses and drops entries that are not hex addresses, point at the zero
// address, or repeat an earlier address. Order is preserved.
func Normalize(raw []entity.RegistryEntry, warn func(msg string, args ...any)) []entity.RegistryEntry {
	seen := make(map[string]struct{}, len(raw))
	entries := make([]entity.RegistryEntry, 0, len(raw))
	for i, e := range raw {
		addr := strings.TrimSpace(e.ContractAddress)
		if !common.IsHexAddress(addr) {
			warn("Skipping registry entry with invalid contract address", "index", i, "name", e.DisplayName, "address", e.ContractAddress)
			continue
		}
		checksummed := common.HexToAddress(addr).Hex()
		if checksummed == entity.ZeroAddress {
			warn("Skipping registry entry pointing at the zero address", "index", i, "name", e.DisplayName)
			continue
		}
		key := strings.ToLower(checksummed)
		if _, dup := seen[key]; dup {
			warn("Skipping duplicate registry entry", "index", i, "name", e.DisplayName, "address", checksummed)
			continue
		}
		seen[key] = struct{}{}
		entries = append(entries, entity.RegistryEntry{
			DisplayName:     strings.TrimSpace(e.DisplayName),
			ContractAddress: checksummed,
		})
	}
	return entries
}
