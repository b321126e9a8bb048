package store

import "github.com/devaloi/toastbox/internal/domain"

// History is the append-only log of closed toasts. It is an audit trail
// only; live toasts are never restored from it.
type History interface {
	// Record appends an entry. An empty ID is filled in.
	Record(entry domain.HistoryEntry) error
	// Recent returns up to `limit` entries for a provider, most recently
	// closed first.
	Recent(provider string, limit int) ([]domain.HistoryEntry, error)
	// Close releases any resources held by the store.
	Close() error
}
