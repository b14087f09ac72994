// Package main provides a plugin that forwards mindreader state changes to a
// Unity scene over UDP and raises desktop notifications.
package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"runtime"
)

// DefaultTarget is where the Unity scene listens for state strings.
const DefaultTarget = "127.0.0.1:5005"

// Request represents the input from the plugin executor.
type Request struct {
	Action   string          `json:"action"`
	State    string          `json:"state"`
	Previous string          `json:"previous"`
	Detail   string          `json:"detail"`
	Config   json.RawMessage `json:"config"`
	Params   json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the per-binding configuration.
type Config struct {
	Target  string `json:"target"`
	Message string `json:"message"`
}

// actionHandler defines a function type for handling specific actions.
type actionHandler func(req Request, cfg Config) (interface{}, error)

// actionHandlers maps action names to their handler functions.
var actionHandlers = map[string]actionHandler{
	"send":   send,
	"notify": notify,
}

func main() {
	// Read request from stdin
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	handler, ok := actionHandlers[req.Action]
	if !ok {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	cfg, err := parseConfig(req.Config)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}

	data, err := handler(req, cfg)
	if err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}

	writeSuccessResponse(data)
}

func parseConfig(raw json.RawMessage) (Config, error) {
	cfg := Config{Target: DefaultTarget}
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %v", err)
	}
	if cfg.Target == "" {
		cfg.Target = DefaultTarget
	}
	return cfg, nil
}

// send writes the bare state string as one datagram.
func send(req Request, cfg Config) (interface{}, error) {
	if req.State == "" {
		return nil, fmt.Errorf("request has no state")
	}

	addr, err := net.ResolveUDPAddr("udp", cfg.Target)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(req.State)); err != nil {
		return nil, err
	}
	return map[string]string{"target": cfg.Target, "sent": req.State}, nil
}

// notify shows a desktop notification for the new state.
func notify(req Request, cfg Config) (interface{}, error) {
	message := cfg.Message
	if message == "" {
		message = fmt.Sprintf("%s (%s)", req.State, req.Detail)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf(`display notification %q with title "Mindreader"`, message)
		cmd = exec.Command("osascript", "-e", script)
	case "linux":
		cmd = exec.Command("notify-send", "Mindreader", message)
	default:
		return nil, fmt.Errorf("notifications not supported on %s", runtime.GOOS)
	}

	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return map[string]string{"message": message}, nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	resp := Response{
		Success: false,
		Error:   errMsg,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// writeSuccessResponse writes a success response carrying data to stdout.
func writeSuccessResponse(data interface{}) {
	resp := Response{Success: true}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			resp.Data = raw
		}
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
