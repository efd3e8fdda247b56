// Package cli provides the command-line interface for appium-suite.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands. Flags override the config
// file and the environment.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "YAML configuration file",
		EnvVars: []string{"APPIUM_SUITE_CONFIG"},
	},
	&cli.StringFlag{
		Name:  "host",
		Usage: "Appium server host (default 127.0.0.1, env APPIUM_HOST)",
	},
	&cli.IntFlag{
		Name:  "port",
		Usage: "Appium server port (default 4723, env APPIUM_PORT)",
	},
	&cli.StringFlag{
		Name:  "base-path",
		Usage: "Appium server base path, e.g. /wd/hub (env APPIUM_BASE_PATH)",
	},
	&cli.StringFlag{
		Name:  "device-name",
		Usage: "Device name capability (env DEVICE_NAME)",
	},
	&cli.StringFlag{
		Name:  "app",
		Usage: "App binary to install (env APP_PATH)",
	},
	&cli.DurationFlag{
		Name:  "wait",
		Usage: "Default element wait (env WAIT_TIMEOUT)",
	},
	&cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error (env LOG_LEVEL)",
	},
	&cli.StringFlag{
		Name:  "log-format",
		Usage: "Console log format: console, json (env LOG_FORMAT)",
	},
	&cli.StringFlag{
		Name:  "log-file",
		Usage: "Also write JSON logs to this file, rotated (env LOG_FILE)",
	},
	&cli.StringFlag{
		Name:    "trace",
		Usage:   "Write element operation spans as JSON to this file (- for stderr)",
		EnvVars: []string{"APPIUM_SUITE_TRACE"},
	},
}

// NewApp builds the CLI application writing to stdout and stderr.
func NewApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:    "appium-suite",
		Usage:   "Drive the ApiDemos Android app through an Appium server",
		Version: Version,
		Description: `appium-suite checks an Appium setup and runs the ApiDemos smoke journey.

Examples:
  appium-suite config
  appium-suite --host 10.0.2.2 doctor
  appium-suite --log-level debug --trace spans.json smoke
  appium-suite screenshot main.png`,
		Flags:     GlobalFlags,
		Writer:    stdout,
		ErrWriter: stderr,
		Commands: []*cli.Command{
			configCommand,
			doctorCommand,
			smokeCommand,
			screenshotCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	app := NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
