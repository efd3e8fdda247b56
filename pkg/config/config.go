// Package config holds the suite's single configuration record: where the
// Appium server is, which device and app to drive, and how long to wait.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/shane-reaume/appium-suite/pkg/core"
)

// Defaults for the ApiDemos sample app on a local emulator.
const (
	DefaultHost              = "127.0.0.1"
	DefaultPort              = 4723
	DefaultPlatformName      = "Android"
	DefaultAutomationName    = "UiAutomator2"
	DefaultDeviceName        = "Pixel_7_API_35"
	DefaultPlatformVersion   = "14.0"
	DefaultAppPath           = "./ApiDemos-debug.apk"
	DefaultAppPackage        = "io.appium.android.apis"
	DefaultAppActivity       = ".ApiDemos"
	DefaultNewCommandTimeout = 300 // seconds
	DefaultSystemPort        = 8201
	DefaultWaitTimeout       = 10 * time.Second
	DefaultPollInterval      = 500 * time.Millisecond
)

// Config is built once and passed down to every component.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Device DeviceConfig `yaml:"device"`
	App    AppConfig    `yaml:"app"`
	Wait   WaitConfig   `yaml:"wait"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig locates the Appium server.
type ServerConfig struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"min=1,max=65535"`
	BasePath string `yaml:"basePath"` // e.g. /wd/hub for Appium 1.x
}

// DeviceConfig selects the device and automation engine.
type DeviceConfig struct {
	PlatformName      string                 `yaml:"platformName" validate:"required"`
	AutomationName    string                 `yaml:"automationName" validate:"required"`
	DeviceName        string                 `yaml:"deviceName" validate:"required"`
	PlatformVersion   string                 `yaml:"platformVersion"`
	NewCommandTimeout int                    `yaml:"newCommandTimeout" validate:"min=0"` // seconds
	SystemPort        int                    `yaml:"systemPort" validate:"min=0,max=65535"`
	Extras            map[string]interface{} `yaml:"extras"` // passed through with the appium: prefix
}

// AppConfig describes the application under test.
type AppConfig struct {
	Path                 string `yaml:"path"`
	Package              string `yaml:"package"`
	Activity             string `yaml:"activity"`
	NoReset              bool   `yaml:"noReset"`
	FullReset            bool   `yaml:"fullReset"`
	AutoGrantPermissions bool   `yaml:"autoGrantPermissions"`
}

// WaitConfig is the default wait policy for element operations.
type WaitConfig struct {
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
	PollInterval time.Duration `yaml:"pollInterval" validate:"gt=0,lte=1s"`
}

// LogConfig configures the suite logger.
type LogConfig struct {
	Level      string `yaml:"level" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" validate:"oneof=console json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB" validate:"min=0"`
	MaxBackups int    `yaml:"maxBackups" validate:"min=0"`
	MaxAgeDays int    `yaml:"maxAgeDays" validate:"min=0"`
	Compress   bool   `yaml:"compress"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Device: DeviceConfig{
			PlatformName:      DefaultPlatformName,
			AutomationName:    DefaultAutomationName,
			DeviceName:        DefaultDeviceName,
			PlatformVersion:   DefaultPlatformVersion,
			NewCommandTimeout: DefaultNewCommandTimeout,
			SystemPort:        DefaultSystemPort,
			Extras: map[string]interface{}{
				"uiautomator2ServerLaunchTimeout":  60000,
				"uiautomator2ServerInstallTimeout": 60000,
				"androidDeviceReadyTimeout":        60,
				"adbExecTimeout":                   60000,
				"appWaitActivity":                  "*",
			},
		},
		App: AppConfig{
			Path:                 DefaultAppPath,
			Package:              DefaultAppPackage,
			Activity:             DefaultAppActivity,
			NoReset:              false,
			AutoGrantPermissions: true,
		},
		Wait: WaitConfig{
			Timeout:      DefaultWaitTimeout,
			PollInterval: DefaultPollInterval,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return &cfg, nil
}

// New assembles the configuration: defaults, then the optional file, then
// the environment. The result is validated.
func New(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return core.ErrInvalidConfig.WithCause(err)
	}
	return nil
}

// ServerURL returns the base URL of the Appium server.
func (c *Config) ServerURL() string {
	base := c.Server.BasePath
	if base != "" && !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return "http://" + net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port)) + strings.TrimSuffix(base, "/")
}

// Capabilities builds the W3C alwaysMatch capabilities. The app path is made
// absolute because the server resolves it from its own working directory.
func (c *Config) Capabilities() (map[string]interface{}, error) {
	caps := map[string]interface{}{
		"platformName":                c.Device.PlatformName,
		"appium:automationName":       c.Device.AutomationName,
		"appium:deviceName":           c.Device.DeviceName,
		"appium:noReset":              c.App.NoReset,
		"appium:fullReset":            c.App.FullReset,
		"appium:autoGrantPermissions": c.App.AutoGrantPermissions,
	}

	if c.Device.PlatformVersion != "" {
		caps["appium:platformVersion"] = c.Device.PlatformVersion
	}
	if c.Device.NewCommandTimeout > 0 {
		caps["appium:newCommandTimeout"] = c.Device.NewCommandTimeout
	}
	if c.Device.SystemPort > 0 {
		caps["appium:systemPort"] = c.Device.SystemPort
	}
	if c.App.Path != "" {
		abs, err := filepath.Abs(c.App.Path)
		if err != nil {
			return nil, fmt.Errorf("resolve app path: %w", err)
		}
		caps["appium:app"] = abs
	}
	if c.App.Package != "" {
		caps["appium:appPackage"] = c.App.Package
	}
	if c.App.Activity != "" {
		caps["appium:appActivity"] = c.App.Activity
	}

	for k, v := range c.Device.Extras {
		if !strings.Contains(k, ":") {
			k = "appium:" + k
		}
		if _, set := caps[k]; !set {
			caps[k] = v
		}
	}

	return caps, nil
}

// YAML renders the configuration as YAML.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
