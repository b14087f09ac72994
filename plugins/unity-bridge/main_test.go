package main

import (
	"encoding/json"
	"net"
	"testing"
	"time"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "empty uses default", raw: "", want: DefaultTarget},
		{name: "empty object uses default", raw: "{}", want: DefaultTarget},
		{name: "explicit target", raw: `{"target":"10.0.0.2:6000"}`, want: "10.0.0.2:6000"},
		{name: "invalid json", raw: "{", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parseConfig(json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && cfg.Target != tt.want {
				t.Errorf("Target = %s, want %s", cfg.Target, tt.want)
			}
		})
	}
}

func TestSend(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP() error = %v", err)
	}
	defer conn.Close()

	cfg := Config{Target: conn.LocalAddr().String()}
	if _, err := send(Request{Action: "send", State: "SLEEPY"}, cfg); err != nil {
		t.Fatalf("send() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP() error = %v", err)
	}
	if got := string(buf[:n]); got != "SLEEPY" {
		t.Errorf("received %q, want SLEEPY", got)
	}
}

func TestSend_RequiresState(t *testing.T) {
	if _, err := send(Request{Action: "send"}, Config{Target: DefaultTarget}); err == nil {
		t.Error("expected error for request without state")
	}
}
