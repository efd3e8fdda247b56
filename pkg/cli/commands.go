package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/shane-reaume/appium-suite/pkg/core"
	"github.com/shane-reaume/appium-suite/pkg/pages"
	"github.com/shane-reaume/appium-suite/pkg/session"
)

var configCommand = &cli.Command{
	Name:  "config",
	Usage: "Print the resolved configuration as YAML",
	Description: `Print the configuration after applying defaults, the config file,
environment variables and flags, in that order.`,
	Action: runConfig,
}

var doctorCommand = &cli.Command{
	Name:  "doctor",
	Usage: "Open a session and report what the device says about itself",
	Description: `Open a session with the configured capabilities, print device info and
the foreground package and activity, then tear the session down.

Examples:
  appium-suite doctor
  appium-suite --base-path /wd/hub doctor`,
	Action: runDoctor,
}

var smokeCommand = &cli.Command{
	Name:  "smoke",
	Usage: "Run the ApiDemos launch journey",
	Description: `Check the main list is showing, open Accessibility, go back and check
the main list again. Steps after the first failure are skipped and the command exits non-zero.

With --artifacts, a failing step saves a screenshot and the page source there.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "artifacts",
			Usage: "Directory for the screenshot and page source of a failing step",
		},
	},
	Action: runSmoke,
}

var screenshotCommand = &cli.Command{
	Name:      "screenshot",
	Usage:     "Save a screenshot of the device",
	ArgsUsage: "[file or directory]",
	Description: `Save a PNG screenshot. Without an argument, or with a directory, a
file name is generated.`,
	Action: runScreenshot,
}

func runConfig(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	data, err := cfg.YAML()
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(data)
	return err
}

func runDoctor(c *cli.Context) error {
	return withSession(c, func(rt *runtime, s *session.Session) error {
		dev := s.Device()
		info := dev.DeviceInfo()

		fmt.Fprintf(rt.out, "Server:           %s\n", rt.cfg.ServerURL())
		fmt.Fprintf(rt.out, "Session:          %s\n", s.Client().SessionID())
		fmt.Fprintf(rt.out, "Device:           %s\n", info.DeviceName)
		fmt.Fprintf(rt.out, "Platform version: %s\n", info.PlatformVersion)
		fmt.Fprintf(rt.out, "Automation:       %s\n", info.AutomationName)

		pkg, err := dev.CurrentPackage()
		if err != nil {
			return fmt.Errorf("current package: %w", err)
		}
		activity, err := dev.CurrentActivity()
		if err != nil {
			return fmt.Errorf("current activity: %w", err)
		}
		fmt.Fprintf(rt.out, "Foreground:       %s/%s\n", pkg, activity)

		if ts, err := dev.DeviceTime(); err == nil {
			fmt.Fprintf(rt.out, "Device time:      %s\n", ts)
		} else {
			rt.log.Warn("Could not read device time", zap.Error(err))
		}
		return nil
	})
}

func runSmoke(c *cli.Context) error {
	return withSession(c, func(rt *runtime, s *session.Session) error {
		ctx := c.Context
		home := pages.NewAPIDemos(s.Accessor(), s.Logger())

		steps := []struct {
			name string
			run  func() error
		}{
			{"main screen displayed", func() error { return expect(home.IsMainScreenDisplayed(ctx)) }},
			{"open Accessibility", func() error { return home.TapAccessibility(ctx) }},
			{"navigate back", func() error { return s.Device().Back() }},
			{"main screen displayed again", func() error { return expect(home.IsMainScreenDisplayed(ctx)) }},
		}

		statuses := make([]core.StepStatus, len(steps))
		var failed error
		for i, step := range steps {
			if ctx.Err() != nil {
				break
			}

			status := core.StatusSkipped
			var err error
			if failed == nil {
				err = step.run()
				status = core.StatusOf(err)
			}
			statuses[i] = status

			switch status {
			case core.StatusPassed, core.StatusSkipped:
				fmt.Fprintf(rt.out, "[%d/%d] %s %s\n", i+1, len(steps), status.Label(), step.name)
			default:
				fmt.Fprintf(rt.out, "[%d/%d] %s %s (%s): %v\n", i+1, len(steps), status.Label(), step.name, core.Categorize(err), err)
				rt.log.Error("Smoke step failed", zap.String("step", step.name), zap.Stringer("status", status), zap.Error(err))
				failed = fmt.Errorf("smoke step %q %s: %w", step.name, status, err)
				if dir := c.String("artifacts"); dir != "" {
					saveArtifacts(rt, s, dir)
				}
			}
		}

		fmt.Fprintf(rt.out, "Summary: %s\n", summarize(statuses))
		if failed == nil && ctx.Err() != nil {
			return ctx.Err()
		}
		return failed
	})
}

// summarize counts statuses in listing order, e.g. "1 failed, 3 skipped".
// Steps never reached because the context ended stay pending.
func summarize(statuses []core.StepStatus) string {
	order := []core.StepStatus{core.StatusPassed, core.StatusFailed, core.StatusErrored, core.StatusSkipped, core.StatusPending}
	counts := map[core.StepStatus]int{}
	for _, st := range statuses {
		counts[st]++
	}
	var parts []string
	for _, st := range order {
		if n := counts[st]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, st))
		}
	}
	return strings.Join(parts, ", ")
}

// saveArtifacts writes a screenshot and the page source into dir. Failures
// are logged; they never replace the step's error.
func saveArtifacts(rt *runtime, s *session.Session, dir string) {
	if path, err := s.Device().TakeScreenshot(dir + string(filepath.Separator)); err != nil {
		rt.log.Warn("Could not save failure screenshot", zap.Error(err))
	} else {
		fmt.Fprintf(rt.out, "Screenshot: %s\n", path)
	}

	source, err := s.Client().Source()
	if err != nil {
		rt.log.Warn("Could not read page source", zap.Error(err))
		return
	}
	path := filepath.Join(dir, "source-"+s.RunID()+".xml")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		rt.log.Warn("Could not create artifacts directory", zap.String("dir", dir), zap.Error(err))
		return
	}
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		rt.log.Warn("Could not save page source", zap.String("path", path), zap.Error(err))
		return
	}
	fmt.Fprintf(rt.out, "Page source: %s\n", path)
}

func expect(ok bool) error {
	if !ok {
		return core.ErrElementNotFound.WithMessage("main list not displayed")
	}
	return nil
}

func runScreenshot(c *cli.Context) error {
	return withSession(c, func(rt *runtime, s *session.Session) error {
		path, err := s.Device().TakeScreenshot(c.Args().First())
		if err != nil {
			return err
		}
		fmt.Fprintf(rt.out, "Screenshot: %s\n", path)
		return nil
	})
}
