package pages

import (
	"context"

	"go.uber.org/zap"

	"github.com/shane-reaume/appium-suite/pkg/element"
	"github.com/shane-reaume/appium-suite/pkg/locator"
	"github.com/shane-reaume/appium-suite/pkg/logger"
)

// Helper runs one-off accessor actions with an info log before and after
// each, for tests that do not warrant a page object.
type Helper struct {
	acc *element.Accessor
	log *zap.Logger
}

// NewHelper creates a Helper.
func NewHelper(acc *element.Accessor, l *zap.Logger) *Helper {
	return &Helper{acc: acc, log: logger.OrNop(l).Named("pages.helper")}
}

// FindAndClick clicks loc once it is clickable.
func (h *Helper) FindAndClick(ctx context.Context, loc locator.Locator, opts ...element.CallOption) error {
	h.log.Info("Finding and clicking element", zap.Stringer("locator", loc))
	if err := h.acc.Click(ctx, loc, opts...); err != nil {
		h.log.Error("Element not clickable", zap.Stringer("locator", loc), zap.Error(err))
		return err
	}
	h.log.Info("Clicked element", zap.Stringer("locator", loc))
	return nil
}

// FindAndSendKeys replaces the text of loc.
func (h *Helper) FindAndSendKeys(ctx context.Context, loc locator.Locator, text string, opts ...element.CallOption) error {
	h.log.Info("Finding element to send keys", zap.Stringer("locator", loc))
	if err := h.acc.TypeText(ctx, loc, text, opts...); err != nil {
		h.log.Error("Could not send keys", zap.Stringer("locator", loc), zap.Error(err))
		return err
	}
	h.log.Info("Sent keys", zap.Stringer("locator", loc))
	return nil
}

// WaitForText waits for an element showing exactly text.
func (h *Helper) WaitForText(ctx context.Context, text string, opts ...element.CallOption) error {
	h.log.Info("Waiting for text", zap.String("text", text))
	if err := h.acc.WaitForText(ctx, text, opts...); err != nil {
		h.log.Error("Text not found", zap.String("text", text), zap.Error(err))
		return err
	}
	h.log.Info("Found text", zap.String("text", text))
	return nil
}

// ScrollToText scrolls text into view and clicks it.
func (h *Helper) ScrollToText(ctx context.Context, text string, opts ...element.CallOption) error {
	h.log.Info("Scrolling to text", zap.String("text", text))
	if err := h.acc.ScrollToText(ctx, text, opts...); err != nil {
		h.log.Error("Text not found after scrolling", zap.String("text", text), zap.Error(err))
		return err
	}
	h.log.Info("Scrolled to and clicked text", zap.String("text", text))
	return nil
}
