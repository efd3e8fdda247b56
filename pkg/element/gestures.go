package element

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/shane-reaume/appium-suite/pkg/locator"
)

// Direction is a scroll direction understood by mobile: scrollGesture.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Area is the screen rectangle a gesture runs in, in pixels.
type Area struct {
	Left, Top, Width, Height int
}

// DefaultScrollArea is used when a ScrollGesture has an empty area.
var DefaultScrollArea = Area{Left: 100, Top: 100, Width: 200, Height: 200}

// DefaultScrollPercent is used when a ScrollGesture has no percent.
const DefaultScrollPercent = 0.75

// ScrollGesture describes one mobile: scrollGesture call.
type ScrollGesture struct {
	Area      Area
	Direction Direction
	Percent   float64
}

func (g ScrollGesture) args() map[string]interface{} {
	area := g.Area
	if area == (Area{}) {
		area = DefaultScrollArea
	}
	dir := g.Direction
	if dir == "" {
		dir = Down
	}
	percent := g.Percent
	if percent <= 0 {
		percent = DefaultScrollPercent
	}
	return map[string]interface{}{
		"left":      area.Left,
		"top":       area.Top,
		"width":     area.Width,
		"height":    area.Height,
		"direction": string(dir),
		"percent":   percent,
	}
}

// Scroll performs a single scroll gesture. It reports whether the area can
// be scrolled further, as returned by the server.
func (a *Accessor) Scroll(ctx context.Context, g ScrollGesture) (bool, error) {
	args := g.args()
	_, span := a.tracer.Start(ctx, "element.Scroll")
	defer span.End()
	span.SetAttributes(
		attribute.String("gesture.direction", args["direction"].(string)),
		attribute.Float64("gesture.percent", args["percent"].(float64)),
	)

	result, err := a.session.ExecuteScript("mobile: scrollGesture", args)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.log.Error("Scroll gesture failed", zap.Any("args", args), zap.Error(err))
		return false, fmt.Errorf("scroll gesture: %w", err)
	}

	more, _ := result.(bool)
	a.log.Debug("Scrolled", zap.Any("args", args), zap.Bool("can_scroll_more", more))
	return more, nil
}

// ScrollToText scrolls the first scrollable container until text is on
// screen, then clicks it.
func (a *Accessor) ScrollToText(ctx context.Context, text string, opts ...CallOption) error {
	el, err := a.FindOne(ctx, locator.UIScrollIntoText(text), opts...)
	if err != nil {
		return err
	}
	if err := a.session.ClickElement(el.ID); err != nil {
		return fmt.Errorf("click %q after scrolling: %w", text, err)
	}
	return nil
}

// WaitForText waits until an element whose text is exactly text exists.
func (a *Accessor) WaitForText(ctx context.Context, text string, opts ...CallOption) error {
	_, err := a.FindOne(ctx, locator.UIText(text), opts...)
	return err
}
