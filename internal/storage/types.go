package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Record is one dispatched action.
// Keep it compact and schema-stable.
type Record struct {
	ID        string        `json:"id"`
	Slot      string        `json:"slot"` // HH:MM:SS
	Kind      string        `json:"kind"`
	Target    string        `json:"target"`
	Arguments string        `json:"arguments,omitempty"`
	Synthetic bool          `json:"synthetic,omitempty"`
	Started   time.Time     `json:"started"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// OK reports whether the action completed without error.
func (r Record) OK() bool { return r.Error == "" }
