package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// scriptPlugin writes a shell script plugin and returns it.
func scriptPlugin(t *testing.T, script string, actions ...string) *Plugin {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	tmpDir := t.TempDir()
	scriptPath := filepath.Join(tmpDir, "plugin.sh")
	if err := os.WriteFile(scriptPath, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	return &Plugin{
		Manifest: Manifest{
			Name:       "test-plugin",
			Version:    "1.0.0",
			Executable: "plugin.sh",
			Actions:    actions,
		},
		Path:       tmpDir,
		Executable: scriptPath,
	}
}

func TestExecutor_Execute(t *testing.T) {
	plugin := scriptPlugin(t, `echo '{"success":true,"data":{"message":"hello world"}}'
`, "send")

	request := &Request{
		Action: "send",
		State:  "SLEEPY",
		Config: json.RawMessage(`{"key":"value"}`),
	}

	response, err := NewExecutor(5000).Execute(context.Background(), plugin, request)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if !response.Success {
		t.Errorf("expected success=true, got false")
	}
	if response.Error != "" {
		t.Errorf("expected empty error, got %q", response.Error)
	}

	var data map[string]interface{}
	if err := json.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}
	if data["message"] != "hello world" {
		t.Errorf("expected message 'hello world', got %v", data["message"])
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	plugin := scriptPlugin(t, `INPUT=$(cat)
echo "{\"success\":true,\"data\":{\"received\":$INPUT}}"
`, "echo")

	request := &Request{
		Action:   "echo",
		State:    "CONFUSED",
		Previous: "NORMAL",
		Detail:   "Thinking",
		Params:   json.RawMessage(`{"count":42}`),
	}

	response, err := NewExecutor(5000).Execute(context.Background(), plugin, request)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	var data map[string]interface{}
	if err := json.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}

	received, ok := data["received"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected 'received' to be an object, got %T", data["received"])
	}

	want := map[string]string{"action": "echo", "state": "CONFUSED", "previous": "NORMAL", "detail": "Thinking"}
	for k, v := range want {
		if received[k] != v {
			t.Errorf("expected %s %q, got %v", k, v, received[k])
		}
	}
}

func TestExecutor_Errors(t *testing.T) {
	tests := []struct {
		name      string
		script    string
		timeoutMs int
		action    string
		wantErr   error
		contains  string
	}{
		{
			name:      "timeout",
			script:    "sleep 10\necho '{\"success\":true}'\n",
			timeoutMs: 100,
			action:    "run",
			wantErr:   ErrTimeout,
		},
		{
			name:      "invalid json",
			script:    "echo 'not valid json'\n",
			timeoutMs: 5000,
			action:    "run",
			contains:  "failed to parse plugin response",
		},
		{
			name:      "non-zero exit",
			script:    "echo 'Error: something failed' >&2\nexit 1\n",
			timeoutMs: 5000,
			action:    "run",
			contains:  "something failed",
		},
		{
			name:      "undeclared action",
			script:    "echo '{\"success\":true}'\n",
			timeoutMs: 5000,
			action:    "format-disk",
			wantErr:   ErrUnknownAction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plugin := scriptPlugin(t, tt.script, "run")

			_, err := NewExecutor(tt.timeoutMs).Execute(context.Background(), plugin, &Request{Action: tt.action, State: "NORMAL"})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.contains != "" && !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not contain %q", err, tt.contains)
			}
		})
	}
}

func TestExecutor_Execute_ErrorResponse(t *testing.T) {
	plugin := scriptPlugin(t, `echo '{"success":false,"error":"something went wrong"}'
`, "fail")

	response, err := NewExecutor(5000).Execute(context.Background(), plugin, &Request{Action: "fail", State: "HAPPY"})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if response.Success {
		t.Errorf("expected success=false, got true")
	}
	if response.Error != "something went wrong" {
		t.Errorf("expected error 'something went wrong', got %q", response.Error)
	}
}

func TestExecutor_Execute_CancelledContext(t *testing.T) {
	plugin := scriptPlugin(t, "sleep 10\n", "run")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExecutor(5000).Execute(ctx, plugin, &Request{Action: "run"})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if errors.Is(err, ErrTimeout) {
		t.Errorf("cancellation should not be reported as a timeout: %v", err)
	}
}
