package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/devaloi/toastbox/internal/toast"
)

// Message types.
const (
	MsgJoin     = "join"
	MsgLeave    = "leave"
	MsgAdd      = "add"
	MsgClose    = "close"
	MsgSnapshot = "snapshot"
	MsgAdded    = "added"
	MsgRemoved  = "removed"
	MsgError    = "error"
)

// Command is a request sent by a WebSocket client.
type Command struct {
	Type     string `json:"type"`
	Provider string `json:"provider,omitempty"`
	Message  string `json:"message,omitempty"`
	Variant  string `json:"variant,omitempty"`
	// Duration is in milliseconds. Absent means the store default.
	Duration *int64 `json:"duration,omitempty"`
	ID       int64  `json:"id,omitempty"`
}

// Spec converts an add command into a store spec.
func (c Command) Spec() (toast.Spec, error) {
	return NewSpec(c.Message, c.Variant, c.Duration)
}

// Toast is the wire form of a live toast.
type Toast struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	// Duration is in milliseconds.
	Duration int64 `json:"duration"`
}

// NewToast converts a store toast to its wire form.
func NewToast(t toast.Toast) Toast {
	return Toast{
		ID:        t.ID,
		Message:   t.Message,
		Type:      string(t.Variant),
		CreatedAt: t.CreatedAt,
		Duration:  t.Duration.Milliseconds(),
	}
}

// NewToasts converts a slice of store toasts. It never returns nil so the
// JSON form is always an array.
func NewToasts(ts []toast.Toast) []Toast {
	out := make([]Toast, len(ts))
	for i, t := range ts {
		out[i] = NewToast(t)
	}
	return out
}

// AddRequest is the REST body for creating a toast.
type AddRequest struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	// Duration is in milliseconds. Absent means the store default.
	Duration *int64 `json:"duration,omitempty"`
}

// Spec converts the request into a store spec.
func (r AddRequest) Spec() (toast.Spec, error) {
	return NewSpec(r.Message, r.Type, r.Duration)
}

// maxMillis is the largest millisecond count a time.Duration can hold.
const maxMillis = math.MaxInt64 / int64(time.Millisecond)

// Millis converts a wire duration in milliseconds to a time.Duration.
func Millis(ms int64) (time.Duration, error) {
	if ms < 0 {
		return 0, fmt.Errorf("%w: duration must not be negative", toast.ErrInvalidArgument)
	}
	if ms > maxMillis {
		return 0, fmt.Errorf("%w: duration exceeds %d ms", toast.ErrInvalidArgument, maxMillis)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// NewSpec builds a store spec from wire fields shared by REST and
// WebSocket adds. A nil duration leaves the store default in place; an
// explicit zero removes the toast immediately.
func NewSpec(message, variant string, durationMs *int64) (toast.Spec, error) {
	spec := toast.Spec{Message: message, Variant: toast.Variant(variant)}
	if durationMs == nil {
		return spec, nil
	}
	d, err := Millis(*durationMs)
	if err != nil {
		return toast.Spec{}, err
	}
	spec.Duration = d
	spec.DurationSet = true
	return spec, nil
}

// AddResponse is returned after a toast is created.
type AddResponse struct {
	ID int64 `json:"id"`
}

// SnapshotMessage carries the full ordered list of visible toasts.
type SnapshotMessage struct {
	Type     string  `json:"type"`
	Provider string  `json:"provider"`
	Version  uint64  `json:"version"`
	Toasts   []Toast `json:"toasts"`
}

// AddedMessage announces a toast that became visible.
type AddedMessage struct {
	Type     string `json:"type"`
	Provider string `json:"provider"`
	Toast    Toast  `json:"toast"`
}

// RemovedMessage announces a toast that left the provider.
type RemovedMessage struct {
	Type     string `json:"type"`
	Provider string `json:"provider"`
	ID       int64  `json:"id"`
	Reason   string `json:"reason"`
}

// ErrorMessage reports an error to the client.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Encode serializes a value to JSON bytes.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeCommand deserializes JSON bytes into a Command.
func DecodeCommand(data []byte) (Command, error) {
	var c Command
	err := json.Unmarshal(data, &c)
	return c, err
}
