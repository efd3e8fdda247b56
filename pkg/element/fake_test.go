package element

import (
	"errors"
	"sync"

	"github.com/shane-reaume/appium-suite/pkg/appium"
)

var errNoSuchElement = &appium.Error{Status: 404, Code: appium.CodeNoSuchElement, Message: "not found"}

// fakeSession is an in-memory Session. Elements are keyed by locator value;
// hooks override the defaults for one test.
type fakeSession struct {
	mu sync.Mutex

	// elements maps a locator value to the element IDs it matches.
	elements map[string][]string
	texts    map[string]string
	disabled map[string]bool
	hidden   map[string]bool

	find      func(strategy, value string) (string, error)
	findAll   func(strategy, value string) ([]string, error)
	displayed func(id string) (bool, error)
	clickErr  error

	findCalls  int
	clicks     []string
	clears     []string
	keys       map[string]string
	scriptName string
	scriptArgs []interface{}
	scriptRet  interface{}
	scriptErr  error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		elements: map[string][]string{},
		texts:    map[string]string{},
		disabled: map[string]bool{},
		hidden:   map[string]bool{},
		keys:     map[string]string{},
	}
}

func (f *fakeSession) FindElement(strategy, value string) (string, error) {
	f.mu.Lock()
	f.findCalls++
	hook := f.find
	ids := f.elements[value]
	f.mu.Unlock()

	if hook != nil {
		return hook(strategy, value)
	}
	if len(ids) == 0 {
		return "", errNoSuchElement
	}
	return ids[0], nil
}

func (f *fakeSession) FindElements(strategy, value string) ([]string, error) {
	f.mu.Lock()
	f.findCalls++
	hook := f.findAll
	ids := append([]string(nil), f.elements[value]...)
	f.mu.Unlock()

	if hook != nil {
		return hook(strategy, value)
	}
	return ids, nil
}

func (f *fakeSession) ClickElement(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clickErr != nil {
		return f.clickErr
	}
	f.clicks = append(f.clicks, id)
	return nil
}

func (f *fakeSession) ClearElement(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears = append(f.clears, id)
	f.keys[id] = ""
	return nil
}

func (f *fakeSession) SendElementKeys(id, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[id] += text
	return nil
}

func (f *fakeSession) IsElementDisplayed(id string) (bool, error) {
	f.mu.Lock()
	hook := f.displayed
	hidden := f.hidden[id]
	f.mu.Unlock()

	if hook != nil {
		return hook(id)
	}
	return !hidden, nil
}

func (f *fakeSession) IsElementEnabled(id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.disabled[id], nil
}

func (f *fakeSession) GetElementText(id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	text, ok := f.texts[id]
	if !ok {
		return "", errors.New("no text for " + id)
	}
	return text, nil
}

func (f *fakeSession) ExecuteScript(script string, args ...interface{}) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scriptName = script
	f.scriptArgs = args
	return f.scriptRet, f.scriptErr
}

func (f *fakeSession) add(value string, ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.elements[value] = append(f.elements[value], ids...)
}

func (f *fakeSession) remove(value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.elements, value)
}

func (f *fakeSession) setDisabled(id string, v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disabled[id] = v
}

func (f *fakeSession) finds() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findCalls
}

func (f *fakeSession) setHidden(id string, v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hidden[id] = v
}

func (f *fakeSession) typed(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keys[id]
}

func (f *fakeSession) clicked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.clicks...)
}
