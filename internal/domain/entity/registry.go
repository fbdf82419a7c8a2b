package entity

// RegistryEntry is one configured fungible asset. The order of entries is the order in which
// resolved assets are presented.
type RegistryEntry struct {
	DisplayName     string `json:"displayName" yaml:"displayName"`
	ContractAddress string `json:"contractAddress" yaml:"contractAddress"`
}

// NativeEntry returns the implicit registry entry of the native asset.
func NativeEntry(symbol string) RegistryEntry {
	return RegistryEntry{DisplayName: symbol}
}
