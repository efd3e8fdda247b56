// Package session opens and tears down Appium sessions for the suite.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/shane-reaume/appium-suite/pkg/appium"
	"github.com/shane-reaume/appium-suite/pkg/config"
	"github.com/shane-reaume/appium-suite/pkg/core"
	"github.com/shane-reaume/appium-suite/pkg/device"
	"github.com/shane-reaume/appium-suite/pkg/element"
	"github.com/shane-reaume/appium-suite/pkg/logger"
)

// Session is one live Appium session with the helpers built on it. It must
// not be shared between concurrently running tests.
type Session struct {
	cfg    *config.Config
	client *appium.Client
	acc    *element.Accessor
	dev    *device.AndroidDevice
	log    *zap.Logger
	runID  string

	mu      sync.Mutex
	closed  bool
	outcome TeardownOutcome
}

// Option configures Open.
type Option func(*options)

type options struct {
	tracer     trace.Tracer
	httpClient *http.Client
}

// WithTracer traces element operations on the session.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithHTTPClient replaces the HTTP client used to talk to the server.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// Open validates cfg and creates a remote session. On failure the cause is
// logged and returned wrapped in core.ErrSessionCreation.
//
// Session creation is a single request bounded by the HTTP client timeout;
// ctx is only checked before it is sent.
func Open(ctx context.Context, cfg *config.Config, l *zap.Logger, opts ...Option) (*Session, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	runID := uuid.NewString()
	log := logger.OrNop(l).With(zap.String("run_id", runID))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	caps, err := cfg.Capabilities()
	if err != nil {
		return nil, core.ErrInvalidConfig.WithCause(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	serverURL := cfg.ServerURL()
	log.Info("Opening session",
		zap.String("server", serverURL),
		zap.String("device", cfg.Device.DeviceName),
		zap.String("platform_version", cfg.Device.PlatformVersion),
		zap.String("app", cfg.App.Path),
		zap.Any("capabilities", caps))

	client := appium.NewClient(serverURL)
	if o.httpClient != nil {
		client.SetHTTPClient(o.httpClient)
	}
	if err := client.Connect(caps); err != nil {
		log.Error("Failed to create session", zap.String("server", serverURL), zap.Error(err))
		return nil, core.ErrSessionCreation.
			WithMessage(fmt.Sprintf("could not create session on %s", serverURL)).
			WithDetails(map[string]interface{}{"server": serverURL}).
			WithCause(err)
	}

	log = log.With(zap.String("session_id", client.SessionID()))
	log.Info("Session opened", zap.String("platform", client.Platform()))

	acc := element.NewAccessor(client,
		element.WithTimeout(cfg.Wait.Timeout),
		element.WithPollInterval(cfg.Wait.PollInterval),
		element.WithLogger(log.Named("element")),
		element.WithTracer(o.tracer),
	)

	return &Session{
		cfg:    cfg,
		client: client,
		acc:    acc,
		dev:    device.NewAndroid(client, log),
		log:    log,
		runID:  runID,
	}, nil
}

// Client returns the underlying Appium client.
func (s *Session) Client() *appium.Client { return s.client }

// Accessor returns the wait-backed element accessor for the session.
func (s *Session) Accessor() *element.Accessor { return s.acc }

// Device returns the device utilities for the session.
func (s *Session) Device() *device.AndroidDevice { return s.dev }

// Config returns the configuration the session was opened with.
func (s *Session) Config() *config.Config { return s.cfg }

// RunID identifies this session in logs.
func (s *Session) RunID() string { return s.runID }

// Logger returns the session-scoped logger.
func (s *Session) Logger() *zap.Logger { return s.log }

// TeardownOutcome records what happened when a session was closed. Cleanup
// failures never fail a test; they are kept here instead.
type TeardownOutcome struct {
	TerminateErr error // terminating the app under test
	QuitErr      error // deleting the session
	Err          error // core.ErrTeardown wrapping both, nil on success
}

// OK reports whether teardown succeeded.
func (o TeardownOutcome) OK() bool {
	return o.Err == nil
}

func (o TeardownOutcome) String() string {
	if o.OK() {
		return "succeeded"
	}
	return "failed: " + o.Err.Error()
}

// Close terminates the app under test, when a package is configured, then
// quits the session. Both steps run even if the first fails. Close never
// returns an error; inspect the outcome instead. Later calls are no-ops that
// report success; Outcome keeps the first call's result.
func (s *Session) Close() TeardownOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return TeardownOutcome{}
	}
	s.closed = true

	s.log.Info("Tearing down session")

	var out TeardownOutcome
	if pkg := s.cfg.App.Package; pkg != "" {
		if err := s.client.TerminateApp(pkg); err != nil {
			out.TerminateErr = fmt.Errorf("terminate %s: %w", pkg, err)
			s.log.Warn("Failed to terminate app", zap.String("package", pkg), zap.Error(err))
		}
	}
	if err := s.client.Disconnect(); err != nil {
		out.QuitErr = fmt.Errorf("quit session: %w", err)
		s.log.Warn("Failed to quit session", zap.Error(err))
	}

	if out.TerminateErr != nil || out.QuitErr != nil {
		out.Err = core.ErrTeardown.WithCause(errors.Join(out.TerminateErr, out.QuitErr))
	}

	s.log.Info("Session closed", zap.Stringer("outcome", out))
	s.outcome = out
	return out
}

// Outcome returns the result of the first Close, or the zero outcome if the
// session is still open.
func (s *Session) Outcome() TeardownOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Acquire opens a session for the duration of t and closes it in t.Cleanup,
// logging the teardown outcome. It fails t if the session cannot be opened.
func Acquire(t testing.TB, cfg *config.Config, l *zap.Logger, opts ...Option) *Session {
	t.Helper()

	s, err := Open(context.Background(), cfg, l, opts...)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}

	t.Cleanup(func() {
		if out := s.Close(); !out.OK() {
			t.Logf("session teardown %s", out)
		}
	})
	return s
}
