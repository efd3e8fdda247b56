package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environment variables read by ApplyEnv.
const (
	EnvAppiumHost           = "APPIUM_HOST"
	EnvAppiumPort           = "APPIUM_PORT"
	EnvAppiumBasePath       = "APPIUM_BASE_PATH"
	EnvAppPath              = "APP_PATH"
	EnvDeviceName           = "DEVICE_NAME"
	EnvPlatformVersion      = "PLATFORM_VERSION"
	EnvAppPackage           = "APP_PACKAGE"
	EnvAppActivity          = "APP_ACTIVITY"
	EnvNoReset              = "NO_RESET"
	EnvFullReset            = "FULL_RESET"
	EnvAutoGrantPermissions = "AUTO_GRANT_PERMISSIONS"
	EnvNewCommandTimeout    = "NEW_COMMAND_TIMEOUT"
	EnvSystemPort           = "SYSTEM_PORT"
	EnvWaitTimeout          = "WAIT_TIMEOUT"
	EnvPollInterval         = "POLL_INTERVAL"
	EnvLogLevel             = "LOG_LEVEL"
	EnvLogFormat            = "LOG_FORMAT"
	EnvLogFile              = "LOG_FILE"
)

type envBinding struct {
	name  string
	apply func(v *viper.Viper, key string, c *Config) error
}

func stringField(field func(*Config) *string) func(*viper.Viper, string, *Config) error {
	return func(v *viper.Viper, key string, c *Config) error {
		*field(c) = v.GetString(key)
		return nil
	}
}

func intField(field func(*Config) *int) func(*viper.Viper, string, *Config) error {
	return func(v *viper.Viper, key string, c *Config) error {
		n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*field(c) = n
		return nil
	}
}

func boolField(field func(*Config) *bool) func(*viper.Viper, string, *Config) error {
	return func(v *viper.Viper, key string, c *Config) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*field(c) = b
		return nil
	}
}

func durationField(field func(*Config) *time.Duration) func(*viper.Viper, string, *Config) error {
	return func(v *viper.Viper, key string, c *Config) error {
		d, err := ParseDuration(v.GetString(key))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*field(c) = d
		return nil
	}
}

var envBindings = []envBinding{
	{EnvAppiumHost, stringField(func(c *Config) *string { return &c.Server.Host })},
	{EnvAppiumPort, intField(func(c *Config) *int { return &c.Server.Port })},
	{EnvAppiumBasePath, stringField(func(c *Config) *string { return &c.Server.BasePath })},
	{EnvAppPath, stringField(func(c *Config) *string { return &c.App.Path })},
	{EnvDeviceName, stringField(func(c *Config) *string { return &c.Device.DeviceName })},
	{EnvPlatformVersion, stringField(func(c *Config) *string { return &c.Device.PlatformVersion })},
	{EnvAppPackage, stringField(func(c *Config) *string { return &c.App.Package })},
	{EnvAppActivity, stringField(func(c *Config) *string { return &c.App.Activity })},
	{EnvNoReset, boolField(func(c *Config) *bool { return &c.App.NoReset })},
	{EnvFullReset, boolField(func(c *Config) *bool { return &c.App.FullReset })},
	{EnvAutoGrantPermissions, boolField(func(c *Config) *bool { return &c.App.AutoGrantPermissions })},
	{EnvNewCommandTimeout, intField(func(c *Config) *int { return &c.Device.NewCommandTimeout })},
	{EnvSystemPort, intField(func(c *Config) *int { return &c.Device.SystemPort })},
	{EnvWaitTimeout, durationField(func(c *Config) *time.Duration { return &c.Wait.Timeout })},
	{EnvPollInterval, durationField(func(c *Config) *time.Duration { return &c.Wait.PollInterval })},
	{EnvLogLevel, stringField(func(c *Config) *string { return &c.Log.Level })},
	{EnvLogFormat, stringField(func(c *Config) *string { return &c.Log.Format })},
	{EnvLogFile, stringField(func(c *Config) *string { return &c.Log.File })},
}

// ApplyEnv overlays set, non-empty environment variables onto c.
func ApplyEnv(c *Config) error {
	v := viper.New()
	v.AutomaticEnv()

	for _, b := range envBindings {
		if !v.IsSet(b.name) {
			continue
		}
		if err := b.apply(v, b.name, c); err != nil {
			return fmt.Errorf("environment: %w", err)
		}
	}
	return nil
}

// maxDurationSeconds is the largest whole number of seconds a
// time.Duration holds.
const maxDurationSeconds = float64(math.MaxInt64 / int64(time.Second))

// ParseDuration accepts Go durations ("750ms", "1m") and bare numbers,
// which are read as seconds ("10", "2.5").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) {
			return 0, fmt.Errorf("duration %q is not a finite number", s)
		}
		if math.Abs(secs) > maxDurationSeconds {
			return 0, fmt.Errorf("duration %q out of range", s)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}
