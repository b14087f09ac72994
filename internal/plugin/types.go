// Package plugin discovers and runs external action plugins that react to
// affective state changes.
package plugin

import (
	"encoding/json"
	"slices"
)

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// HasAction reports whether the manifest declares the named action.
// A manifest without an action list accepts any action.
func (m Manifest) HasAction(name string) bool {
	return len(m.Actions) == 0 || slices.Contains(m.Actions, name)
}

// Request is sent to a plugin on stdin when a bound state is entered.
type Request struct {
	Action   string          `json:"action"`
	State    string          `json:"state"`
	Previous string          `json:"previous,omitempty"`
	Detail   string          `json:"detail,omitempty"`
	Config   json.RawMessage `json:"config,omitempty"`
	Params   json.RawMessage `json:"params,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
