// Package locator maps symbolic locator kinds to the lookup strategies an
// Appium server understands.
package locator

import (
	"fmt"

	"github.com/shane-reaume/appium-suite/pkg/core"
)

// Strategy is the "using" value of a W3C/Appium find-element request.
type Strategy string

// Lookup strategies accepted by Appium.
const (
	StrategyAccessibilityID    Strategy = "accessibility id"
	StrategyClassName          Strategy = "class name"
	StrategyID                 Strategy = "id"
	StrategyName               Strategy = "name"
	StrategyXPath              Strategy = "xpath"
	StrategyCSSSelector        Strategy = "css selector"
	StrategyTagName            Strategy = "tag name"
	StrategyAndroidUIAutomator Strategy = "-android uiautomator"
	StrategyAndroidViewTag     Strategy = "-android viewtag"
	StrategyIOSPredicate       Strategy = "-ios predicate string"
	StrategyIOSClassChain      Strategy = "-ios class chain"
)

// DefaultStrategy is what ResolveOrDefault falls back to.
const DefaultStrategy = StrategyID

// Kind is a closed set of locator categories.
type Kind int

const (
	kindInvalid Kind = iota
	AccessibilityID
	ClassName
	ID
	Name
	XPath
	CSSSelector
	TagName
	AndroidUIAutomator
	AndroidViewTag
	IOSPredicate
	IOSClassChain
)

var kindStrategies = map[Kind]Strategy{
	AccessibilityID:    StrategyAccessibilityID,
	ClassName:          StrategyClassName,
	ID:                 StrategyID,
	Name:               StrategyName,
	XPath:              StrategyXPath,
	CSSSelector:        StrategyCSSSelector,
	TagName:            StrategyTagName,
	AndroidUIAutomator: StrategyAndroidUIAutomator,
	AndroidViewTag:     StrategyAndroidViewTag,
	IOSPredicate:       StrategyIOSPredicate,
	IOSClassChain:      StrategyIOSClassChain,
}

var kindNames = map[Kind]string{
	AccessibilityID:    "ACCESSIBILITY_ID",
	ClassName:          "CLASS_NAME",
	ID:                 "ID",
	Name:               "NAME",
	XPath:              "XPATH",
	CSSSelector:        "CSS_SELECTOR",
	TagName:            "TAG_NAME",
	AndroidUIAutomator: "ANDROID_UIAUTOMATOR",
	AndroidViewTag:     "ANDROID_VIEWTAG",
	IOSPredicate:       "IOS_PREDICATE",
	IOSClassChain:      "IOS_CLASS_CHAIN",
}

// symbolic names plus the raw strategy strings, so both "ID" and "id" parse.
var kindAliases = func() map[string]Kind {
	m := make(map[string]Kind, 2*len(kindNames))
	for k, name := range kindNames {
		m[name] = k
		m[string(kindStrategies[k])] = k
	}
	return m
}()

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		AccessibilityID, ClassName, ID, Name, XPath, CSSSelector, TagName,
		AndroidUIAutomator, AndroidViewTag, IOSPredicate, IOSClassChain,
	}
}

// String returns the symbolic name, e.g. "ACCESSIBILITY_ID".
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := kindStrategies[k]
	return ok
}

// Strategy returns the server-side strategy for k.
func (k Kind) Strategy() Strategy {
	return kindStrategies[k]
}

// ParseKind accepts a symbolic name ("XPATH") or a raw strategy ("xpath").
// Matching is exact, including case and whitespace.
func ParseKind(s string) (Kind, error) {
	if k, ok := kindAliases[s]; ok {
		return k, nil
	}
	return kindInvalid, core.ErrUnknownLocatorKind.WithDetails(map[string]interface{}{
		"kind": s,
	}).WithMessage(fmt.Sprintf("unknown locator kind %q", s))
}

// Resolve maps a kind string to its strategy, failing on unrecognized kinds.
func Resolve(kind string) (Strategy, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return "", err
	}
	return k.Strategy(), nil
}

// ResolveOrDefault is the lenient form of Resolve: unrecognized kinds fall
// back to DefaultStrategy instead of failing.
func ResolveOrDefault(kind string) Strategy {
	s, err := Resolve(kind)
	if err != nil {
		return DefaultStrategy
	}
	return s
}

// Locator is an immutable (kind, value) pair.
type Locator struct {
	kind  Kind
	value string
}

// New creates a Locator. It panics on an invalid kind, which can only
// happen when a Kind is built from an arbitrary integer.
func New(kind Kind, value string) Locator {
	if !kind.Valid() {
		panic(fmt.Sprintf("locator: invalid kind %d", int(kind)))
	}
	return Locator{kind: kind, value: value}
}

// Parse builds a Locator from a kind string and value.
func Parse(kind, value string) (Locator, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return Locator{}, err
	}
	return Locator{kind: k, value: value}, nil
}

// Kind returns the locator's kind.
func (l Locator) Kind() Kind { return l.kind }

// Value returns the lookup value.
func (l Locator) Value() string { return l.value }

// Strategy returns the server-side strategy.
func (l Locator) Strategy() Strategy { return l.kind.Strategy() }

// IsZero reports whether l was never initialized.
func (l Locator) IsZero() bool { return l.kind == kindInvalid }

// String formats the locator for logs, e.g. `ID="android:id/text1"`.
func (l Locator) String() string {
	return fmt.Sprintf("%s=%q", l.kind, l.value)
}

// ByAccessibilityID locates by content-desc / accessibility label.
func ByAccessibilityID(v string) Locator { return New(AccessibilityID, v) }

// ByID locates by resource-id.
func ByID(v string) Locator { return New(ID, v) }

// ByClassName locates by widget class.
func ByClassName(v string) Locator { return New(ClassName, v) }

// ByName locates by name attribute.
func ByName(v string) Locator { return New(Name, v) }

// ByXPath locates by XPath expression.
func ByXPath(v string) Locator { return New(XPath, v) }

// ByUIAutomator locates by a UiSelector expression.
func ByUIAutomator(v string) Locator { return New(AndroidUIAutomator, v) }

// ByViewTag locates by Android view tag (Espresso driver).
func ByViewTag(v string) Locator { return New(AndroidViewTag, v) }
