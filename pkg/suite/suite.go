// Package suite holds the end-to-end tests that run against a real Appium
// server and device. They are skipped unless APPIUM_E2E=1.
package suite

import (
	"os"
	"testing"

	"github.com/shane-reaume/appium-suite/pkg/config"
)

// EnvEnable turns the end-to-end tests on.
const EnvEnable = "APPIUM_E2E"

// EnvConfig optionally points at a YAML config file.
const EnvConfig = "APPIUM_SUITE_CONFIG"

// Enabled reports whether the end-to-end tests should run.
func Enabled() bool {
	return os.Getenv(EnvEnable) == "1"
}

// Config skips t unless the end-to-end tests are enabled, then loads the
// configuration from the optional file and the environment.
func Config(t testing.TB) *config.Config {
	t.Helper()
	if !Enabled() {
		t.Skipf("set %s=1 to run against a live Appium server", EnvEnable)
	}
	cfg, err := config.New(os.Getenv(EnvConfig))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}
