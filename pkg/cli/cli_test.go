package cli

import (
	"bytes"
	"errors"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shane-reaume/appium-suite/pkg/core"
	"github.com/shane-reaume/appium-suite/pkg/mock"
)

// run executes the CLI against serverURL and returns stdout.
func run(t *testing.T, serverURL string, args ...string) (string, error) {
	t.Helper()
	u, err := url.Parse(serverURL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("split host: %v", err)
	}

	var stdout, stderr bytes.Buffer
	argv := append([]string{"appium-suite", "--host", host, "--port", port, "--log-format", "json"}, args...)
	err = NewApp(&stdout, &stderr).Run(argv)
	return stdout.String(), err
}

func TestConfigCommand(t *testing.T) {
	out, err := run(t, "http://10.0.0.5:4724", "--wait", "3s", "config")
	if err != nil {
		t.Fatalf("config failed: %v", err)
	}
	for _, want := range []string{"host: 10.0.0.5", "port: 4724", "timeout: 3s", "package: io.appium.android.apis"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestConfigCommand_Invalid(t *testing.T) {
	_, err := run(t, "http://127.0.0.1:4723", "--log-level", "loud", "config")
	if !errors.Is(err, core.ErrInvalidConfig) {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}

func TestConfigCommand_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suite.yaml")
	if err := os.WriteFile(path, []byte("device:\n  deviceName: Pixel_8\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "http://127.0.0.1:4723", "--config", path, "config")
	if err != nil {
		t.Fatalf("config failed: %v", err)
	}
	if !strings.Contains(out, "deviceName: Pixel_8") {
		t.Errorf("file value not applied:\n%s", out)
	}
}

func TestDoctor(t *testing.T) {
	app := mock.NewAPIDemos(mock.Config{Capabilities: map[string]interface{}{"platformVersion": "14"}})
	defer app.Close()

	out, err := run(t, app.URL, "doctor")
	if err != nil {
		t.Fatalf("doctor failed: %v", err)
	}
	for _, want := range []string{
		"Session:          " + mock.SessionID,
		"Platform version: 14",
		"Foreground:       io.appium.android.apis/.ApiDemos",
		"Device time:      " + mock.DeviceTime,
		"Teardown: succeeded",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if app.SessionOpen() {
		t.Error("session left open")
	}
}

func TestDoctor_ServerDown(t *testing.T) {
	app := mock.New(mock.Config{})
	serverURL := app.URL
	app.Close()

	_, err := run(t, serverURL, "doctor")
	if !errors.Is(err, core.ErrSessionCreation) {
		t.Fatalf("expected session creation error, got %v", err)
	}
}

func TestSmoke(t *testing.T) {
	app := mock.NewAPIDemos(mock.Config{})
	defer app.Close()

	out, err := run(t, app.URL, "smoke")
	if err != nil {
		t.Fatalf("smoke failed: %v\n%s", err, out)
	}
	if n := strings.Count(out, "PASS"); n != 4 {
		t.Errorf("expected 4 passing steps, got %d:\n%s", n, out)
	}
	if !strings.Contains(out, "Summary: 4 passed\n") {
		t.Errorf("missing summary:\n%s", out)
	}
	if app.Current() != mock.ScreenMain {
		t.Errorf("expected to end on main screen, got %s", app.Current())
	}
}

func TestSmoke_Fails(t *testing.T) {
	app := mock.NewAPIDemos(mock.Config{})
	defer app.Close()
	app.Show(mock.ScreenCustomTitle)

	out, err := run(t, app.URL, "--wait", "50ms", "smoke")
	if err == nil {
		t.Fatal("expected smoke to fail")
	}
	if !strings.Contains(out, "[1/4] FAIL main screen displayed (assertion)") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "[4/4] SKIP main screen displayed again") {
		t.Errorf("later steps should be skipped:\n%s", out)
	}
	if !errors.Is(err, core.ErrElementNotFound) {
		t.Errorf("expected element not found, got %v", err)
	}
	if !strings.Contains(out, "Summary: 1 failed, 3 skipped") {
		t.Errorf("unexpected summary:\n%s", out)
	}
	if strings.Contains(out, "Page source:") {
		t.Errorf("artifacts written without --artifacts:\n%s", out)
	}
	if !strings.Contains(out, "Teardown: succeeded") {
		t.Errorf("session should still be torn down:\n%s", out)
	}
}

func TestSmoke_FailureArtifacts(t *testing.T) {
	app := mock.NewAPIDemos(mock.Config{})
	defer app.Close()
	app.Show(mock.ScreenCustomTitle)
	dir := t.TempDir()

	out, err := run(t, app.URL, "--wait", "50ms", "smoke", "--artifacts", dir)
	if err == nil {
		t.Fatal("expected smoke to fail")
	}

	shots, _ := filepath.Glob(filepath.Join(dir, "screenshot-*.png"))
	if len(shots) != 1 {
		t.Fatalf("expected one screenshot, got %v\n%s", shots, out)
	}
	sources, _ := filepath.Glob(filepath.Join(dir, "source-*.xml"))
	if len(sources) != 1 {
		t.Fatalf("expected one page source, got %v\n%s", sources, out)
	}
	data, err := os.ReadFile(sources[0])
	if err != nil || !bytes.HasPrefix(data, []byte("<hierarchy>")) {
		t.Errorf("page source not written: %v %q", err, data)
	}
	if !strings.Contains(out, "Page source: "+sources[0]) {
		t.Errorf("page source path not reported:\n%s", out)
	}
	if app.Count("GET /source") != 1 {
		t.Errorf("expected one source request, calls: %v", app.Calls())
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		statuses []core.StepStatus
		want     string
	}{
		{[]core.StepStatus{core.StatusPassed, core.StatusPassed}, "2 passed"},
		{[]core.StepStatus{core.StatusPassed, core.StatusErrored, core.StatusSkipped}, "1 passed, 1 errored, 1 skipped"},
		{[]core.StepStatus{core.StatusPassed, core.StatusPending, core.StatusPending}, "1 passed, 2 pending"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := summarize(tt.statuses); got != tt.want {
			t.Errorf("summarize(%v) = %q, want %q", tt.statuses, got, tt.want)
		}
	}
}

func TestScreenshot(t *testing.T) {
	app := mock.NewAPIDemos(mock.Config{})
	defer app.Close()
	path := filepath.Join(t.TempDir(), "main.png")

	out, err := run(t, app.URL, "screenshot", path)
	if err != nil {
		t.Fatalf("screenshot failed: %v", err)
	}
	if !strings.Contains(out, "Screenshot: "+path) {
		t.Errorf("unexpected output:\n%s", out)
	}
	data, err := os.ReadFile(path)
	if err != nil || !bytes.Equal(data, mock.PNG) {
		t.Errorf("screenshot not written: %v", err)
	}
}

func TestLogFile(t *testing.T) {
	app := mock.NewAPIDemos(mock.Config{})
	defer app.Close()
	logPath := filepath.Join(t.TempDir(), "suite.log")

	if _, err := run(t, app.URL, "--log-file", logPath, "doctor"); err != nil {
		t.Fatalf("doctor failed: %v", err)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !bytes.Contains(data, []byte(`"level":"INFO"`)) {
		t.Errorf("expected JSON entries in log file:\n%s", data)
	}
}

func TestTrace(t *testing.T) {
	app := mock.NewAPIDemos(mock.Config{})
	defer app.Close()
	tracePath := filepath.Join(t.TempDir(), "spans.json")

	if _, err := run(t, app.URL, "--trace", tracePath, "smoke"); err != nil {
		t.Fatalf("smoke failed: %v", err)
	}
	data, err := os.ReadFile(tracePath)
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	if !bytes.Contains(data, []byte("element.FindAll")) {
		t.Errorf("expected element spans in trace:\n%s", data)
	}
}
