package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ayusman/mindreader/internal/app"
	"github.com/ayusman/mindreader/internal/capture"
	"github.com/ayusman/mindreader/internal/config"
	"github.com/ayusman/mindreader/internal/detector"
	"github.com/ayusman/mindreader/internal/log"
	"github.com/ayusman/mindreader/internal/plugin"
	"github.com/ayusman/mindreader/internal/publish"
	"github.com/ayusman/mindreader/internal/server"
	"github.com/ayusman/mindreader/internal/store"
	"github.com/ayusman/mindreader/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to KEY=VALUE config file")
	noTray := flag.Bool("no-tray", false, "run without the system tray")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel)

	if err := run(cfg, !*noTray); err != nil {
		log.Error("mindreader exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, withTray bool) error {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	plugins := plugin.NewManager(cfg.PluginDir)
	if err := plugins.Discover(); err != nil {
		log.Warn("plugin discovery failed", "dir", cfg.PluginDir, "error", err)
	}

	pub := newPublisher(cfg)

	a, err := app.New(app.Config{
		Store:     st,
		Estimator: cfg.Estimator(),
		Capture: capture.Config{
			DeviceID: cfg.CameraID,
			Width:    cfg.CameraWidth,
			Height:   cfg.CameraHeight,
			FPS:      cfg.FPS,
			Mirror:   cfg.Mirror,
		},
		DetectorConfig:  detectorConfig(cfg),
		Publisher:       pub,
		Plugins:         plugins,
		PluginTimeoutMs: cfg.PluginTimeoutMs,
		Preview:         true,
	})
	if err != nil {
		if pub != nil {
			pub.Close()
		}
		return err
	}

	webDir := cfg.WebDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		log.Info("serving static files", "dir", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Plugins:   plugins,
		Estimator: a,
		Frames:    a,
	})
	a.AddListener(srv.Hub().Broadcast)

	if err := a.Start(); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	defer a.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(cfg.HTTPAddr)
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn("http shutdown failed", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if !withTray {
		select {
		case sig := <-sigCh:
			log.Info("shutting down", "signal", sig.String())
			return nil
		case err := <-errCh:
			return err
		}
	}

	t := tray.New(a.IsEnabled())
	t.OnToggle(a.SetEnabled)
	t.OnRecalibrate(a.ResetCalibration)
	t.OnDashboard(func() { openBrowser(dashboardURL(cfg.HTTPAddr)) })
	a.AddListener(func(u publish.Update) { t.SetState(u.State, u.Detail) })

	var serveErr error
	go func() {
		select {
		case sig := <-sigCh:
			log.Info("shutting down", "signal", sig.String())
		case serveErr = <-errCh:
		}
		t.Quit()
	}()

	// The tray event loop must own the main goroutine.
	t.Run()
	return serveErr
}

// newPublisher builds the configured state sinks. Sinks that fail to start
// are logged and skipped.
func newPublisher(cfg *config.Config) publish.Publisher {
	var sinks publish.Multi

	if cfg.UDPTarget != "" {
		udp, err := publish.NewUDPPublisher(cfg.UDPTarget)
		if err != nil {
			log.Warn("udp publisher disabled", "target", cfg.UDPTarget, "error", err)
		} else {
			log.Info("publishing state over udp", "target", cfg.UDPTarget)
			sinks = append(sinks, udp)
		}
	}

	if cfg.MQTTBroker != "" {
		mqtt, err := publish.NewMQTTPublisher(publish.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Topic:    cfg.MQTTTopic,
		})
		if err != nil {
			log.Warn("mqtt publisher disabled", "broker", cfg.MQTTBroker, "error", err)
		} else {
			log.Info("publishing state over mqtt", "broker", cfg.MQTTBroker, "topic", cfg.MQTTTopic)
			sinks = append(sinks, mqtt)
		}
	}

	if len(sinks) == 0 {
		return nil
	}
	return sinks
}

func detectorConfig(cfg *config.Config) detector.Config {
	dc := detector.DefaultConfig()
	dc.ScriptPath = cfg.DetectorScript
	return dc
}

func dashboardURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn("failed to open browser", "url", url, "error", err)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.mindreader/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".mindreader", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
