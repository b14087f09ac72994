// Package config loads mindreader settings from a KEY=VALUE file.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ayusman/mindreader/internal/affect"
)

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all application configuration values.
type Config struct {
	// Camera
	CameraID     int
	CameraWidth  int
	CameraHeight int
	FPS          int
	Mirror       bool

	// Storage and HTTP
	HTTPAddr  string
	DBPath    string
	PluginDir string
	WebDir    string

	// Logging
	LogLevel string

	// Detector
	DetectorScript string

	// Estimator
	CalibrationFrames int
	ConfusionPolicy   affect.ConfusionPolicy
	ConfusionFrames   uint
	SmileSuppression  bool

	// Publishing. An empty UDPTarget or MQTTBroker disables that sink.
	UDPTarget    string
	MQTTBroker   string
	MQTTClientID string
	MQTTTopic    string

	// Plugins
	PluginTimeoutMs int
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	dataDir := defaultDataDir()
	return &Config{
		CameraID:          0,
		CameraWidth:       640,
		CameraHeight:      480,
		FPS:               15,
		Mirror:            true,
		HTTPAddr:          ":8080",
		DBPath:            filepath.Join(dataDir, "mindreader.db"),
		PluginDir:         filepath.Join(dataDir, "plugins"),
		LogLevel:          "info",
		CalibrationFrames: affect.DefaultCalibrationFrames,
		ConfusionPolicy:   affect.ConfusionLeaky,
		ConfusionFrames:   affect.DefaultConfusionFrames,
		SmileSuppression:  true,
		UDPTarget:         "127.0.0.1:5005",
		MQTTClientID:      "mindreader",
		MQTTTopic:         "mindreader/state",
		PluginTimeoutMs:   5000,
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mindreader"
	}
	return filepath.Join(home, ".mindreader")
}

// Load reads the configuration file on top of Default.
// An empty path returns the defaults.
func Load(configPath string) (*Config, error) {
	cfg := Default()
	if configPath == "" {
		return cfg, nil
	}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		if err := cfg.setValue(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Camera
	case "CAMERA_ID":
		c.CameraID, err = parseInt(key, value)
	case "CAMERA_WIDTH":
		c.CameraWidth, err = parseInt(key, value)
	case "CAMERA_HEIGHT":
		c.CameraHeight, err = parseInt(key, value)
	case "FPS":
		c.FPS, err = parseInt(key, value)
	case "MIRROR":
		c.Mirror, err = parseBool(key, value)

	// Storage and HTTP
	case "HTTP_ADDR":
		c.HTTPAddr = value
	case "DB_PATH":
		c.DBPath = value
	case "PLUGIN_DIR":
		c.PluginDir = value
	case "WEB_DIR":
		c.WebDir = value

	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(value)
	case "DETECTOR_SCRIPT":
		c.DetectorScript = value

	// Estimator
	case "CALIBRATION_FRAMES":
		c.CalibrationFrames, err = parseInt(key, value)
	case "CONFUSION_POLICY":
		c.ConfusionPolicy = affect.ConfusionPolicy(strings.ToLower(value))
	case "CONFUSION_FRAMES":
		n, perr := parseInt(key, value)
		if perr != nil {
			return perr
		}
		if n < 0 {
			return fmt.Errorf("CONFUSION_FRAMES must not be negative, got %d", n)
		}
		c.ConfusionFrames = uint(n)
	case "SMILE_SUPPRESSION":
		c.SmileSuppression, err = parseBool(key, value)

	// Publishing
	case "UDP_TARGET":
		c.UDPTarget = value
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "MQTT_TOPIC":
		c.MQTTTopic = value

	case "PLUGIN_TIMEOUT_MS":
		c.PluginTimeoutMs, err = parseInt(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}
	return err
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

// validate checks that the values are usable.
func (c *Config) validate() error {
	if c.FPS <= 0 {
		return fmt.Errorf("%w: FPS must be positive, got %d", ErrInvalid, c.FPS)
	}
	if c.CameraWidth <= 0 || c.CameraHeight <= 0 {
		return fmt.Errorf("%w: camera size must be positive, got %dx%d", ErrInvalid, c.CameraWidth, c.CameraHeight)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: DB_PATH is required", ErrInvalid)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("%w: HTTP_ADDR is required", ErrInvalid)
	}
	if c.PluginTimeoutMs <= 0 {
		return fmt.Errorf("%w: PLUGIN_TIMEOUT_MS must be positive, got %d", ErrInvalid, c.PluginTimeoutMs)
	}
	if c.UDPTarget != "" {
		if _, _, err := net.SplitHostPort(c.UDPTarget); err != nil {
			return fmt.Errorf("%w: UDP_TARGET %q: %v", ErrInvalid, c.UDPTarget, err)
		}
	}
	if c.MQTTBroker != "" && c.MQTTTopic == "" {
		return fmt.Errorf("%w: MQTT_TOPIC is required when MQTT_BROKER is set", ErrInvalid)
	}
	if err := c.Estimator().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Estimator maps the file settings onto the estimator defaults.
func (c *Config) Estimator() affect.Config {
	ec := affect.DefaultConfig()
	ec.CalibrationFrames = c.CalibrationFrames
	ec.ConfusionPolicy = c.ConfusionPolicy
	ec.ConfusionFrames = c.ConfusionFrames
	ec.SmileSuppression = c.SmileSuppression
	return ec
}
