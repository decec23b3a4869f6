package domain

// TokenTarget identifies the token currently selected for monitoring.
// Immutable once an epoch starts.
type TokenTarget struct {
	Address     string // token mint address (base58)
	DisplayName string // human-readable name; falls back to the address
}

// Name returns the display name, or the address when no name is set.
func (t TokenTarget) Name() string {
	if t.DisplayName != "" {
		return t.DisplayName
	}
	return t.Address
}
