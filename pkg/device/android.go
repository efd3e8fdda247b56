// Package device provides Android device utilities on top of an Appium session.
package device

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shane-reaume/appium-suite/pkg/appium"
	"github.com/shane-reaume/appium-suite/pkg/logger"
)

// Session is the part of an Appium session the device utilities forward to.
type Session interface {
	Capabilities() map[string]interface{}
	DeviceTime() (string, error)
	CurrentActivity() (string, error)
	CurrentPackage() (string, error)
	ToggleAirplaneMode() error
	ToggleWiFi() error
	StartActivity(appPackage, appActivity string) error
	IsAppInstalled(appID string) (bool, error)
	InstallApp(appPath string) error
	RemoveApp(appID string) error
	Screenshot() ([]byte, error)
	Back() error
}

var _ Session = (*appium.Client)(nil)

// DeviceInfo contains basic device information reported by the session.
type DeviceInfo struct {
	PlatformVersion string `json:"platform_version" yaml:"platform_version"`
	DeviceName      string `json:"device_name" yaml:"device_name"`
	AutomationName  string `json:"automation_name" yaml:"automation_name"`
}

// AndroidDevice forwards device-level calls to an Appium session.
type AndroidDevice struct {
	s   Session
	log *zap.Logger
}

// NewAndroid creates an AndroidDevice over s.
func NewAndroid(s Session, l *zap.Logger) *AndroidDevice {
	return &AndroidDevice{s: s, log: logger.OrNop(l).Named("device")}
}

// DeviceTime returns the device clock.
func (d *AndroidDevice) DeviceTime() (string, error) {
	return d.s.DeviceTime()
}

// CurrentActivity returns the foreground activity.
func (d *AndroidDevice) CurrentActivity() (string, error) {
	return d.s.CurrentActivity()
}

// CurrentPackage returns the foreground package.
func (d *AndroidDevice) CurrentPackage() (string, error) {
	return d.s.CurrentPackage()
}

// ToggleAirplaneMode flips airplane mode.
func (d *AndroidDevice) ToggleAirplaneMode() error {
	d.log.Info("Toggling airplane mode")
	return d.s.ToggleAirplaneMode()
}

// ToggleWiFi flips WiFi.
func (d *AndroidDevice) ToggleWiFi() error {
	d.log.Info("Toggling WiFi")
	return d.s.ToggleWiFi()
}

// DeviceInfo reads platform version, device name and automation name from
// the session capabilities. Missing values are empty.
func (d *AndroidDevice) DeviceInfo() DeviceInfo {
	caps := d.s.Capabilities()
	return DeviceInfo{
		PlatformVersion: capability(caps, "platformVersion"),
		DeviceName:      capability(caps, "deviceName"),
		AutomationName:  capability(caps, "automationName"),
	}
}

// capability looks name up with and without the "appium:" vendor prefix.
// Servers report it bare; the request carried it prefixed.
func capability(caps map[string]interface{}, name string) string {
	for _, key := range []string{name, "appium:" + name} {
		if v, ok := caps[key]; ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	return ""
}

// StartActivity launches appActivity of appPackage.
func (d *AndroidDevice) StartActivity(appPackage, appActivity string) error {
	d.log.Info("Starting activity", zap.String("package", appPackage), zap.String("activity", appActivity))
	return d.s.StartActivity(appPackage, appActivity)
}

// IsAppInstalled reports whether appPackage is installed.
func (d *AndroidDevice) IsAppInstalled(appPackage string) (bool, error) {
	return d.s.IsAppInstalled(appPackage)
}

// InstallApp installs the APK at appPath, a path on the Appium host.
func (d *AndroidDevice) InstallApp(appPath string) error {
	d.log.Info("Installing app", zap.String("path", appPath))
	return d.s.InstallApp(appPath)
}

// RemoveApp uninstalls appPackage.
func (d *AndroidDevice) RemoveApp(appPackage string) error {
	d.log.Info("Removing app", zap.String("package", appPackage))
	return d.s.RemoveApp(appPackage)
}

// Back presses the back button.
func (d *AndroidDevice) Back() error {
	return d.s.Back()
}

// TakeScreenshot writes a PNG screenshot to path and returns the path
// written. An empty path, or one ending in a separator or naming an existing
// directory, gets a generated file name inside it.
func (d *AndroidDevice) TakeScreenshot(path string) (string, error) {
	path = screenshotPath(path)

	data, err := d.s.Screenshot()
	if err != nil {
		return "", fmt.Errorf("failed to take screenshot: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create screenshot directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}

	d.log.Info("Saved screenshot", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}

func screenshotPath(path string) string {
	name := "screenshot-" + uuid.NewString() + ".png"
	if path == "" {
		return name
	}
	if strings.HasSuffix(path, string(os.PathSeparator)) || strings.HasSuffix(path, "/") {
		return filepath.Join(path, name)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return filepath.Join(path, name)
	}
	return path
}
