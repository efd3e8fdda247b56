// Package pages holds page objects for the ApiDemos app. Each action is a
// short sequence of accessor calls; none of them keep element references
// across screens.
package pages

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shane-reaume/appium-suite/pkg/core"
	"github.com/shane-reaume/appium-suite/pkg/element"
	"github.com/shane-reaume/appium-suite/pkg/locator"
	"github.com/shane-reaume/appium-suite/pkg/logger"
)

// Main list entries.
const (
	AccessibilityText = "Accessibility"
	AnimationText     = "Animation"
	AppText           = "App"
	ViewsText         = "Views"
)

var (
	// MenuItem matches every entry of an ApiDemos list screen.
	MenuItem = locator.ByID("android:id/text1")
	// AppTitle is the main screen's title.
	AppTitle = locator.ByAccessibilityID("API Demos")
	// ViewsEntry is the Views list entry.
	ViewsEntry = locator.ByAccessibilityID(ViewsText)
)

// APIDemos is the app's main list screen.
type APIDemos struct {
	acc *element.Accessor
	log *zap.Logger
}

// NewAPIDemos creates the main screen page object.
func NewAPIDemos(acc *element.Accessor, l *zap.Logger) *APIDemos {
	return &APIDemos{acc: acc, log: logger.OrNop(l).Named("pages.apidemos")}
}

// TapAccessibility opens the Accessibility entry.
func (p *APIDemos) TapAccessibility(ctx context.Context) error {
	return p.tapItem(ctx, AccessibilityText)
}

// TapAnimation opens the Animation entry.
func (p *APIDemos) TapAnimation(ctx context.Context) error {
	return p.tapItem(ctx, AnimationText)
}

// TapApp opens the App entry.
func (p *APIDemos) TapApp(ctx context.Context) error {
	return p.tapItem(ctx, AppText)
}

// OpenViews opens the Views entry.
func (p *APIDemos) OpenViews(ctx context.Context) error {
	return p.acc.Click(ctx, ViewsEntry)
}

// IsMainScreenDisplayed reports whether the main list is showing.
func (p *APIDemos) IsMainScreenDisplayed(ctx context.Context) bool {
	for _, text := range p.MenuItems(ctx) {
		if text == AccessibilityText {
			return true
		}
	}
	return false
}

// MenuItems returns the texts of the list entries currently on screen.
func (p *APIDemos) MenuItems(ctx context.Context) []string {
	items := p.acc.FindAll(ctx, MenuItem)
	texts := make([]string, 0, len(items))
	for _, el := range items {
		text, err := p.acc.Text(el)
		if err != nil {
			p.log.Debug("Skipping unreadable list item", zap.String("element_id", el.ID), zap.Error(err))
			continue
		}
		texts = append(texts, text)
	}
	return texts
}

// tapItem clicks the list entry whose text is text.
func (p *APIDemos) tapItem(ctx context.Context, text string) error {
	for _, el := range p.acc.FindAll(ctx, MenuItem) {
		got, err := p.acc.Text(el)
		if err != nil || got != text {
			continue
		}
		p.log.Info("Tapping list item", zap.String("text", text))
		return p.acc.Tap(el)
	}
	return core.ErrElementNotFound.
		WithMessage(fmt.Sprintf("list item %q not found", text)).
		WithDetails(map[string]interface{}{"text": text})
}
