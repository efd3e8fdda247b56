package locator

import (
	"fmt"
	"strings"
)

var uiAutomatorEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// escapeUiAutomatorString escapes quotes and backslashes for a UiSelector string literal.
func escapeUiAutomatorString(s string) string {
	return uiAutomatorEscaper.Replace(s)
}

// UIText matches an element whose text is exactly text.
func UIText(text string) Locator {
	return ByUIAutomator(fmt.Sprintf(`new UiSelector().text("%s")`, escapeUiAutomatorString(text)))
}

// UIScrollIntoText scrolls the first scrollable container until an element
// with the given text is on screen and locates it.
func UIScrollIntoText(text string) Locator {
	return ByUIAutomator(fmt.Sprintf(
		`new UiScrollable(new UiSelector().scrollable(true)).scrollIntoView(new UiSelector().text("%s"))`,
		escapeUiAutomatorString(text),
	))
}

// XPathText matches any element whose text attribute equals text.
func XPathText(text string) Locator {
	return ByXPath(fmt.Sprintf("//*[@text=%s]", xpathLiteral(text)))
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = "'" + p + "'"
	}
	return "concat(" + strings.Join(quoted, `, "'", `) + ")"
}
