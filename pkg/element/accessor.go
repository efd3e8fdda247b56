// Package element finds and drives on-screen elements through a remote
// session, polling until each operation succeeds or its wait expires.
package element

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/shane-reaume/appium-suite/pkg/appium"
	"github.com/shane-reaume/appium-suite/pkg/core"
	"github.com/shane-reaume/appium-suite/pkg/locator"
	"github.com/shane-reaume/appium-suite/pkg/logger"
	"github.com/shane-reaume/appium-suite/pkg/telemetry"
)

// Defaults for the wait policy.
const (
	DefaultTimeout      = 10 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
)

// Session is the part of a remote automation session the accessor uses.
// *appium.Client implements it.
type Session interface {
	FindElement(strategy, value string) (string, error)
	FindElements(strategy, value string) ([]string, error)
	ClickElement(elementID string) error
	ClearElement(elementID string) error
	SendElementKeys(elementID, text string) error
	IsElementDisplayed(elementID string) (bool, error)
	IsElementEnabled(elementID string) (bool, error)
	GetElementText(elementID string) (string, error)
	ExecuteScript(script string, args ...interface{}) (interface{}, error)
}

var _ Session = (*appium.Client)(nil)

// Element is a server-side element reference. It is only valid while the
// screen it was found on is showing; do not keep it across navigation.
type Element struct {
	ID string
}

// Accessor wraps a session with a default wait policy.
type Accessor struct {
	session  Session
	timeout  time.Duration
	interval time.Duration
	log      *zap.Logger
	tracer   trace.Tracer
}

// Option configures an Accessor.
type Option func(*Accessor)

// WithTimeout sets the default wait. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(a *Accessor) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithPollInterval sets the polling cadence. Non-positive values are ignored.
func WithPollInterval(d time.Duration) Option {
	return func(a *Accessor) {
		if d > 0 {
			a.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Accessor) { a.log = logger.OrNop(l) }
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(a *Accessor) { a.tracer = telemetry.OrNoop(t) }
}

// NewAccessor creates an Accessor over s.
func NewAccessor(s Session, opts ...Option) *Accessor {
	a := &Accessor{
		session:  s,
		timeout:  DefaultTimeout,
		interval: DefaultPollInterval,
		log:      zap.NewNop(),
		tracer:   telemetry.Noop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Timeout returns the default wait.
func (a *Accessor) Timeout() time.Duration {
	return a.timeout
}

// CallOption adjusts a single operation.
type CallOption func(*callOptions)

type callOptions struct {
	timeout time.Duration
}

// Timeout overrides the wait for one call. Non-positive values keep the default.
func Timeout(d time.Duration) CallOption {
	return func(o *callOptions) { o.timeout = d }
}

func (a *Accessor) waitFor(opts []CallOption) time.Duration {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.timeout > 0 {
		return o.timeout
	}
	return a.timeout
}

// FindOne waits for an element matching loc and returns a reference to it.
func (a *Accessor) FindOne(ctx context.Context, loc locator.Locator, opts ...CallOption) (Element, error) {
	timeout := a.waitFor(opts)
	ctx, span := a.start(ctx, "FindOne", loc, timeout)
	defer span.End()

	if err := checkLocator(loc); err != nil {
		return Element{}, a.fail(span, "FindOne", loc, err, nil)
	}

	var id string
	start := time.Now()
	err := poll(ctx, timeout, a.interval, func() error {
		var err error
		id, err = a.session.FindElement(string(loc.Strategy()), loc.Value())
		return err
	})
	if err != nil {
		return Element{}, a.fail(span, "FindOne", loc, err, core.ErrElementNotFound)
	}

	a.log.Debug("Element found",
		zap.Stringer("locator", loc),
		zap.String("element_id", id),
		zap.Duration("elapsed", time.Since(start)))
	return Element{ID: id}, nil
}

// FindAll waits until at least one element matches loc and returns every
// match. It returns an empty slice when the wait expires or the lookup fails.
func (a *Accessor) FindAll(ctx context.Context, loc locator.Locator, opts ...CallOption) []Element {
	timeout := a.waitFor(opts)
	ctx, span := a.start(ctx, "FindAll", loc, timeout)
	defer span.End()

	if err := checkLocator(loc); err != nil {
		a.quiet(span, "FindAll", loc, err)
		return []Element{}
	}

	var ids []string
	err := poll(ctx, timeout, a.interval, func() error {
		found, err := a.session.FindElements(string(loc.Strategy()), loc.Value())
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return errNotYet
		}
		ids = found
		return nil
	})
	if err != nil {
		a.quiet(span, "FindAll", loc, err)
		return []Element{}
	}

	elems := make([]Element, len(ids))
	for i, id := range ids {
		elems[i] = Element{ID: id}
	}
	span.SetAttributes(attribute.Int("element.count", len(elems)))
	a.log.Debug("Elements found", zap.Stringer("locator", loc), zap.Int("count", len(elems)))
	return elems
}

// Click waits until an element matching loc is displayed and enabled, then
// clicks it.
func (a *Accessor) Click(ctx context.Context, loc locator.Locator, opts ...CallOption) error {
	timeout := a.waitFor(opts)
	ctx, span := a.start(ctx, "Click", loc, timeout)
	defer span.End()

	if err := checkLocator(loc); err != nil {
		return a.fail(span, "Click", loc, err, nil)
	}

	present := false
	err := poll(ctx, timeout, a.interval, func() error {
		id, err := a.session.FindElement(string(loc.Strategy()), loc.Value())
		if err != nil {
			return err
		}
		present = true

		ok, err := a.clickable(id)
		if err != nil {
			return err
		}
		if !ok {
			return errNotYet
		}
		return a.session.ClickElement(id)
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("element.present", present))
		return a.fail(span, "Click", loc, err, core.ErrElementNotInteractable.WithDetails(map[string]interface{}{
			"present": present,
		}))
	}

	a.log.Info("Clicked element", zap.Stringer("locator", loc))
	return nil
}

func (a *Accessor) clickable(id string) (bool, error) {
	displayed, err := a.session.IsElementDisplayed(id)
	if err != nil || !displayed {
		return false, err
	}
	return a.session.IsElementEnabled(id)
}

// TypeText finds an element, clears it and types text into it.
func (a *Accessor) TypeText(ctx context.Context, loc locator.Locator, text string, opts ...CallOption) error {
	el, err := a.FindOne(ctx, loc, opts...)
	if err != nil {
		return err
	}

	if err := a.session.ClearElement(el.ID); err != nil {
		return fmt.Errorf("clear %s: %w", loc, err)
	}
	if err := a.session.SendElementKeys(el.ID, text); err != nil {
		return fmt.Errorf("type into %s: %w", loc, err)
	}

	a.log.Info("Typed text", zap.Stringer("locator", loc), zap.Int("length", len(text)))
	return nil
}

// IsVisible waits for an element matching loc to be displayed. It returns
// false when the wait expires and never returns an error.
func (a *Accessor) IsVisible(ctx context.Context, loc locator.Locator, opts ...CallOption) bool {
	timeout := a.waitFor(opts)
	ctx, span := a.start(ctx, "IsVisible", loc, timeout)
	defer span.End()

	if err := checkLocator(loc); err != nil {
		a.quiet(span, "IsVisible", loc, err)
		return false
	}

	err := poll(ctx, timeout, a.interval, func() error {
		id, err := a.session.FindElement(string(loc.Strategy()), loc.Value())
		if err != nil {
			return err
		}
		displayed, err := a.session.IsElementDisplayed(id)
		if err != nil {
			return err
		}
		if !displayed {
			return errNotYet
		}
		return nil
	})
	if err != nil {
		a.quiet(span, "IsVisible", loc, err)
		return false
	}
	return true
}

// WaitForDisappearance waits until nothing matching loc is displayed. It
// reports whether that happened before the wait expired and never returns
// an error.
func (a *Accessor) WaitForDisappearance(ctx context.Context, loc locator.Locator, opts ...CallOption) bool {
	timeout := a.waitFor(opts)
	ctx, span := a.start(ctx, "WaitForDisappearance", loc, timeout)
	defer span.End()

	if err := checkLocator(loc); err != nil {
		a.quiet(span, "WaitForDisappearance", loc, err)
		return false
	}

	err := poll(ctx, timeout, a.interval, func() error {
		ids, err := a.session.FindElements(string(loc.Strategy()), loc.Value())
		if appium.IsNoSuchElement(err) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, id := range ids {
			displayed, err := a.session.IsElementDisplayed(id)
			if appium.IsStaleElement(err) || appium.IsNoSuchElement(err) {
				continue // detached from the tree
			}
			if err != nil {
				return err
			}
			if displayed {
				return errNotYet
			}
		}
		return nil
	})
	if err != nil {
		a.quiet(span, "WaitForDisappearance", loc, err)
		return false
	}
	return true
}

// GetText finds an element and returns its text.
func (a *Accessor) GetText(ctx context.Context, loc locator.Locator, opts ...CallOption) (string, error) {
	el, err := a.FindOne(ctx, loc, opts...)
	if err != nil {
		return "", err
	}

	text, err := a.session.GetElementText(el.ID)
	if err != nil {
		return "", fmt.Errorf("read text of %s: %w", loc, err)
	}
	return text, nil
}

// Text reads the text of an element already found.
func (a *Accessor) Text(el Element) (string, error) {
	return a.session.GetElementText(el.ID)
}

// Tap clicks an element already found, without waiting.
func (a *Accessor) Tap(el Element) error {
	return a.session.ClickElement(el.ID)
}

func checkLocator(loc locator.Locator) error {
	if loc.IsZero() {
		return core.ErrUnknownLocatorKind.WithMessage("empty locator")
	}
	return nil
}

func (a *Accessor) start(ctx context.Context, op string, loc locator.Locator, timeout time.Duration) (context.Context, trace.Span) {
	a.log.Debug("Waiting for element",
		zap.String("op", op),
		zap.Stringer("locator", loc),
		zap.Duration("timeout", timeout))

	return a.tracer.Start(ctx, "element."+op, trace.WithAttributes(
		attribute.String("locator.kind", loc.Kind().String()),
		attribute.String("locator.strategy", string(loc.Strategy())),
		attribute.String("locator.value", loc.Value()),
		attribute.Int64("wait.timeout_ms", timeout.Milliseconds()),
	))
}

// fail converts a poll error into the error returned to the caller. A
// timeout becomes onTimeout; any other failure is wrapped and passed on.
func (a *Accessor) fail(span trace.Span, op string, loc locator.Locator, err error, onTimeout *core.ExecutionError) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if onTimeout != nil && errors.Is(err, errTimedOut) {
		a.log.Warn("Wait expired",
			zap.String("op", op),
			zap.Stringer("locator", loc),
			zap.Error(err))
		return onTimeout.WithMessage(fmt.Sprintf("%s: %s", onTimeout.Message, loc)).
			WithDetails(map[string]interface{}{
				"strategy": string(loc.Strategy()),
				"value":    loc.Value(),
			}).
			WithCause(err)
	}

	a.log.Error("Element operation failed",
		zap.String("op", op),
		zap.Stringer("locator", loc),
		zap.Error(err))
	return fmt.Errorf("%s %s: %w", op, loc, err)
}

// quiet records the failure of an operation that reports by return value.
func (a *Accessor) quiet(span trace.Span, op string, loc locator.Locator, err error) {
	span.SetAttributes(attribute.Bool("wait.satisfied", false))
	if errors.Is(err, errTimedOut) {
		a.log.Debug("Wait expired", zap.String("op", op), zap.Stringer("locator", loc))
		return
	}
	span.RecordError(err)
	a.log.Warn("Element operation failed",
		zap.String("op", op),
		zap.Stringer("locator", loc),
		zap.Error(err))
}
