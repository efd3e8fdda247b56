package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shane-reaume/appium-suite/pkg/config"
	"github.com/shane-reaume/appium-suite/pkg/logger"
	"github.com/shane-reaume/appium-suite/pkg/session"
	"github.com/shane-reaume/appium-suite/pkg/telemetry"
)

// runtime is what every command needs: the resolved config, a logger and
// an optional tracer.
type runtime struct {
	cfg      *config.Config
	log      *zap.Logger
	closeLog func()
	tracer   *telemetry.Tracer
	out      io.Writer

	traceFile *os.File
}

// loadConfig resolves defaults, file, environment and then flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.New(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("host") {
		cfg.Server.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}
	if c.IsSet("base-path") {
		cfg.Server.BasePath = c.String("base-path")
	}
	if c.IsSet("device-name") {
		cfg.Device.DeviceName = c.String("device-name")
	}
	if c.IsSet("app") {
		cfg.App.Path = c.String("app")
	}
	if c.IsSet("wait") {
		cfg.Wait.Timeout = c.Duration("wait")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
	if c.IsSet("log-file") {
		cfg.Log.File = c.String("log-file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRuntime(c *cli.Context) (*runtime, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	log, closeLog, err := logger.New(cfg.Log, zapcore.AddSync(c.App.ErrWriter))
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, log: log, closeLog: closeLog, out: c.App.Writer}

	if path := c.String("trace"); path != "" {
		var w io.Writer = c.App.ErrWriter
		if path != "-" {
			f, err := os.Create(path) //#nosec G304 -- user-provided trace file
			if err != nil {
				return nil, fmt.Errorf("failed to create trace file: %w", err)
			}
			rt.traceFile = f
			w = f
		}
		rt.tracer, err = telemetry.NewStdoutTracer(w, "appium-suite")
		if err != nil {
			rt.close()
			return nil, err
		}
	}

	return rt, nil
}

func (r *runtime) openSession(ctx context.Context) (*session.Session, error) {
	var opts []session.Option
	if r.tracer != nil {
		opts = append(opts, session.WithTracer(r.tracer.Tracer()))
	}
	return session.Open(ctx, r.cfg, r.log, opts...)
}

func (r *runtime) close() {
	if r.tracer != nil {
		if err := r.tracer.Shutdown(context.Background()); err != nil {
			r.log.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	if r.traceFile != nil {
		_ = r.traceFile.Close()
	}
	r.closeLog()
}

// withSession runs fn with an open session and reports the teardown outcome.
func withSession(c *cli.Context, fn func(*runtime, *session.Session) error) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.close()

	s, err := rt.openSession(c.Context)
	if err != nil {
		return err
	}

	runErr := fn(rt, s)
	out := s.Close()
	fmt.Fprintf(rt.out, "Teardown: %s\n", out)
	return runErr
}
