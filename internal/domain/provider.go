package domain

import "time"

// Provider summarizes a toast provider.
type Provider struct {
	Name        string `json:"name"`
	ClientCount int    `json:"client_count"`
	ToastCount  int    `json:"toast_count"`
	QueuedCount int    `json:"queued_count,omitempty"`
	MaxSnackBar int    `json:"max_snack_bar"`
}

// HistoryEntry records a toast that has been closed.
type HistoryEntry struct {
	ID       string    `json:"id"`
	Provider string    `json:"provider"`
	ToastID  int64     `json:"toast_id"`
	Message  string    `json:"message"`
	Type     string    `json:"type"`
	Duration int64     `json:"duration"`
	Reason   string    `json:"reason"`
	Created  time.Time `json:"created_at"`
	Closed   time.Time `json:"closed_at"`
}
