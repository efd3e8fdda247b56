package pages

import (
	"context"

	"go.uber.org/zap"

	"github.com/shane-reaume/appium-suite/pkg/element"
	"github.com/shane-reaume/appium-suite/pkg/locator"
	"github.com/shane-reaume/appium-suite/pkg/logger"
)

// Custom Title activity locators.
var (
	CustomEntry       = locator.ByAccessibilityID("Custom")
	LeftTitleField    = locator.ByID("io.appium.android.apis:id/left_text_edit")
	RightTitleField   = locator.ByID("io.appium.android.apis:id/right_text_edit")
	ChangeLeftButton  = locator.ByAccessibilityID("Change Left")
	ChangeRightButton = locator.ByAccessibilityID("Change Right")
)

// CustomTitleText is the Custom list entry that opens the activity.
const CustomTitleText = "Custom Title"

// CustomTitle is Views > Custom > Custom Title, where the title bar text can
// be edited.
type CustomTitle struct {
	acc *element.Accessor
	log *zap.Logger
}

// NewCustomTitle creates the page object.
func NewCustomTitle(acc *element.Accessor, l *zap.Logger) *CustomTitle {
	return &CustomTitle{acc: acc, log: logger.OrNop(l).Named("pages.custom_title")}
}

// Open navigates from the main screen to the activity.
func (p *CustomTitle) Open(ctx context.Context) error {
	p.log.Info("Navigating to Views")
	if err := p.acc.Click(ctx, ViewsEntry); err != nil {
		return err
	}
	p.log.Info("Navigating to Custom")
	if err := p.acc.Click(ctx, CustomEntry); err != nil {
		return err
	}
	p.log.Info("Opening Custom Title")
	return p.acc.ScrollToText(ctx, CustomTitleText)
}

// SetLeftTitle replaces the left title field's text.
func (p *CustomTitle) SetLeftTitle(ctx context.Context, text string) error {
	return p.acc.TypeText(ctx, LeftTitleField, text)
}

// SetRightTitle replaces the right title field's text.
func (p *CustomTitle) SetRightTitle(ctx context.Context, text string) error {
	return p.acc.TypeText(ctx, RightTitleField, text)
}

// ApplyLeft copies the left field into the title bar.
func (p *CustomTitle) ApplyLeft(ctx context.Context) error {
	return p.acc.Click(ctx, ChangeLeftButton)
}

// ApplyRight copies the right field into the title bar.
func (p *CustomTitle) ApplyRight(ctx context.Context) error {
	return p.acc.Click(ctx, ChangeRightButton)
}

// IsTitleShown reports whether some element displays exactly text.
func (p *CustomTitle) IsTitleShown(ctx context.Context, text string) bool {
	return p.acc.IsVisible(ctx, locator.XPathText(text))
}
