package appium

import (
	"errors"
	"fmt"
)

// W3C WebDriver error codes the suite cares about.
const (
	CodeNoSuchElement          = "no such element"
	CodeStaleElementReference  = "stale element reference"
	CodeElementNotInteractable = "element not interactable"
	CodeElementClickIntercept  = "element click intercepted"
	CodeInvalidSessionID       = "invalid session id"
	CodeInvalidSelector        = "invalid selector"
	CodeUnknownError           = "unknown error"
)

// Error is a WebDriver error returned by the server. Transport failures are
// never an *Error.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HasCode reports whether err is a WebDriver error with the given code.
func HasCode(err error, code string) bool {
	var we *Error
	return errors.As(err, &we) && we.Code == code
}

// IsNoSuchElement reports a lookup miss.
func IsNoSuchElement(err error) bool { return HasCode(err, CodeNoSuchElement) }

// IsStaleElement reports an element reference that outlived its UI tree.
func IsStaleElement(err error) bool { return HasCode(err, CodeStaleElementReference) }

// IsNotInteractable reports an element that refused an action.
func IsNotInteractable(err error) bool {
	return HasCode(err, CodeElementNotInteractable) || HasCode(err, CodeElementClickIntercept)
}
