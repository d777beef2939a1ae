// Package hook runs external executables in response to scan and inventory
// events. Each hook lives in its own directory with a hook.json manifest and
// talks JSON over stdin/stdout.
package hook

import (
	"encoding/json"
	"slices"
)

// ManifestFile is the manifest file name inside a hook directory.
const ManifestFile = "hook.json"

// Event names delivered to hooks.
const (
	EventScanAccepted = "scan.accepted"
	EventItemAdded    = "item.added"
	EventItemUpdated  = "item.updated"
	EventItemRemoved  = "item.removed"
)

// Manifest describes a hook and the events it subscribes to.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []string        `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Request is written to the hook's stdin.
type Request struct {
	Event    string          `json:"event"`
	Barcode  string          `json:"barcode,omitempty"`
	Format   string          `json:"format,omitempty"`
	Existing bool            `json:"existing"`
	Item     json.RawMessage `json:"item,omitempty"`
	Config   json.RawMessage `json:"config,omitempty"`
}

// Response is read from the hook's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Handles reports whether the hook subscribes to event. "*" matches all.
func (h *Hook) Handles(event string) bool {
	return slices.Contains(h.Manifest.Events, event) || slices.Contains(h.Manifest.Events, "*")
}
