// Package mock provides an in-process Appium server for testing without a
// real device. It models an app as a set of screens holding elements; clicks
// navigate between screens and back pops the stack.
package mock

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
)

// SessionID is the ID every session created by the server gets.
const SessionID = "mock-session"

// DeviceTime is what the server reports as the device clock.
const DeviceTime = "2026-01-02T15:04:05+00:00"

// PNG is the screenshot the server returns.
var PNG = []byte("\x89PNG\r\n\x1a\nmock")

// Config configures mock server behavior.
type Config struct {
	// Capabilities are reported back on session creation.
	Capabilities map[string]interface{}
	// FailSession makes session creation fail.
	FailSession bool
	// FailTerminate makes terminate_app fail.
	FailTerminate bool
	// FailQuit makes session deletion fail.
	FailQuit bool
	// Package is reported as the current package.
	Package string
}

// Element is an element on a screen.
type Element struct {
	ID       string
	Text     string
	Hidden   bool
	Disabled bool
	Navigate string        // screen pushed on click
	OnClick  func(*Server) // run after a successful click, without the lock
	screen   string
}

// Query is a lookup as sent by a client.
type Query struct {
	Using string
	Value string
}

// Screen is one activity's element tree.
type Screen struct {
	Name     string
	Activity string
	elements map[Query][]*Element
	order    []*Element
}

// Server is a fake Appium server backed by httptest.
type Server struct {
	Config Config
	URL    string

	srv *httptest.Server

	mu        sync.Mutex
	session   string
	screens   map[string]*Screen
	stack     []string
	byID      map[string]*Element
	nextID    int
	calls     []string
	scripts   []string
	airplane  bool
	wifi      bool
	installed map[string]bool
	payloads  map[string]map[string]interface{}
}

// New starts a server. Close must be called when done.
func New(cfg Config) *Server {
	if cfg.Package == "" {
		cfg.Package = "io.appium.android.apis"
	}
	s := &Server{
		Config:    cfg,
		screens:   map[string]*Screen{},
		byID:      map[string]*Element{},
		wifi:      true,
		installed: map[string]bool{cfg.Package: true},
		payloads:  map[string]map[string]interface{}{},
	}
	s.srv = httptest.NewServer(s.routes())
	s.URL = s.srv.URL
	return s
}

// Close shuts the server down.
func (s *Server) Close() {
	s.srv.Close()
}

// Configure changes the server's behavior while it runs.
func (s *Server) Configure(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.Config)
}

// AddScreen registers a screen. The first screen added is shown at start.
func (s *Server) AddScreen(name, activity string) *Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := &Screen{Name: name, Activity: activity, elements: map[Query][]*Element{}}
	s.screens[name] = sc
	if len(s.stack) == 0 {
		s.stack = []string{name}
	}
	return sc
}

// Add places el on screen sc under the given lookup and returns it. Adding
// the same element again registers another lookup for it.
func (s *Server) Add(sc *Screen, using, value string, el *Element) *Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el.ID == "" {
		s.nextID++
		el.ID = fmt.Sprintf("el-%d", s.nextID)
	}
	q := Query{Using: using, Value: value}
	sc.elements[q] = append(sc.elements[q], el)
	if _, seen := s.byID[el.ID]; !seen || el.screen != sc.Name {
		sc.order = append(sc.order, el)
	}
	el.screen = sc.Name
	s.byID[el.ID] = el
	return el
}

// Show replaces the navigation stack with screen name.
func (s *Server) Show(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stack = []string{name}
}

// Current returns the name of the screen on top of the stack.
func (s *Server) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current().Name
}

// Update changes an element under the server lock.
func (s *Server) Update(el *Element, fn func(*Element)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(el)
}

// TextOf returns an element's text.
func (s *Server) TextOf(el *Element) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return el.Text
}

// Calls returns the requests received as "METHOD /path". Paths inside the
// session are relative to it, e.g. "POST /back".
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Count returns how many received requests equal call.
func (s *Server) Count(call string) int {
	n := 0
	for _, c := range s.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

// Scripts returns the scripts executed, in order.
func (s *Server) Scripts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.scripts...)
}

// Payload returns the last JSON body received for endpoint, e.g. "session".
func (s *Server) Payload(endpoint string) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payloads[endpoint]
}

// Airplane reports airplane mode.
func (s *Server) Airplane() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.airplane
}

// WiFi reports WiFi state.
func (s *Server) WiFi() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wifi
}

// Installed reports whether an app is installed.
func (s *Server) Installed(appID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.installed[appID]
}

// SessionOpen reports whether a session is live.
func (s *Server) SessionOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != ""
}

func (s *Server) current() *Screen {
	if len(s.stack) == 0 {
		return &Screen{elements: map[Query][]*Element{}}
	}
	return s.screens[s.stack[len(s.stack)-1]]
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /session", s.createSession)
	mux.HandleFunc("DELETE /session/{sid}", s.withSession(s.deleteSession))
	mux.HandleFunc("POST /session/{sid}/element", s.withSession(s.findElement))
	mux.HandleFunc("POST /session/{sid}/elements", s.withSession(s.findElements))
	mux.HandleFunc("POST /session/{sid}/element/{eid}/click", s.withElement(s.click))
	mux.HandleFunc("POST /session/{sid}/element/{eid}/clear", s.withElement(s.clear))
	mux.HandleFunc("POST /session/{sid}/element/{eid}/value", s.withElement(s.sendKeys))
	mux.HandleFunc("GET /session/{sid}/element/{eid}/text", s.withElement(s.text))
	mux.HandleFunc("GET /session/{sid}/element/{eid}/displayed", s.withElement(s.displayed))
	mux.HandleFunc("GET /session/{sid}/element/{eid}/enabled", s.withElement(s.enabled))
	mux.HandleFunc("POST /session/{sid}/back", s.withSession(s.back))
	mux.HandleFunc("POST /session/{sid}/execute/sync", s.withSession(s.execute))
	mux.HandleFunc("POST /session/{sid}/timeouts", s.withSession(s.ok))
	mux.HandleFunc("GET /session/{sid}/screenshot", s.withSession(s.screenshot))
	mux.HandleFunc("GET /session/{sid}/source", s.withSession(s.source))
	mux.HandleFunc("POST /session/{sid}/appium/device/{cmd}", s.withSession(s.deviceCommand))
	mux.HandleFunc("GET /session/{sid}/appium/device/{cmd}", s.withSession(s.deviceQuery))
	return mux
}

func (s *Server) record(r *http.Request) {
	path := r.URL.Path
	if rest, ok := strings.CutPrefix(path, "/session/"+SessionID+"/"); ok {
		path = "/" + rest
	}
	s.calls = append(s.calls, r.Method+" "+path)
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	body := readBody(r)

	s.mu.Lock()
	s.record(r)
	s.payloads["session"] = body
	fail := s.Config.FailSession
	if !fail {
		s.session = SessionID
	}
	caps := map[string]interface{}{"platformName": "Android"}
	for k, v := range s.Config.Capabilities {
		caps[k] = v
	}
	s.mu.Unlock()

	if fail {
		writeError(w, http.StatusInternalServerError, "session not created", "could not start UiAutomator2 server")
		return
	}
	writeValue(w, map[string]interface{}{"sessionId": SessionID, "capabilities": caps})
}

type handler func(w http.ResponseWriter, r *http.Request)

// withSession rejects requests for unknown sessions and holds the lock for h.
func (s *Server) withSession(h handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.record(r)
		if s.session == "" || r.PathValue("sid") != s.session {
			s.mu.Unlock()
			writeError(w, http.StatusNotFound, "invalid session id", "session is either terminated or not started")
			return
		}
		h(w, r)
	}
}

// withElement resolves {eid}. Elements not on the current screen are stale.
func (s *Server) withElement(h func(w http.ResponseWriter, r *http.Request, el *Element)) http.HandlerFunc {
	return s.withSession(func(w http.ResponseWriter, r *http.Request) {
		el, ok := s.byID[r.PathValue("eid")]
		if !ok {
			s.mu.Unlock()
			writeError(w, http.StatusNotFound, "no such element", "unknown element")
			return
		}
		if el.screen != s.current().Name {
			s.mu.Unlock()
			writeError(w, http.StatusNotFound, "stale element reference", "element is not attached to the page document")
			return
		}
		h(w, r, el)
	})
}

// Handlers below are entered with s.mu held and must release it.

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	fail := s.Config.FailQuit
	s.session = ""
	s.mu.Unlock()
	if fail {
		writeError(w, http.StatusInternalServerError, "unknown error", "quit failed")
		return
	}
	writeValue(w, nil)
}

func (s *Server) lookup(q Query) []*Element {
	sc := s.current()
	if els, ok := sc.elements[q]; ok {
		return els
	}
	text, ok := textQuery(q)
	if !ok {
		return nil
	}
	var out []*Element
	for _, el := range sc.order {
		if el.Text == text {
			out = append(out, el)
		}
	}
	return out
}

func (s *Server) findElement(w http.ResponseWriter, r *http.Request) {
	q := queryFrom(readBody(r))
	els := s.lookup(q)
	s.mu.Unlock()

	if len(els) == 0 {
		writeError(w, http.StatusNotFound, "no such element", fmt.Sprintf("%s=%q", q.Using, q.Value))
		return
	}
	writeValue(w, elementRef(els[0].ID))
}

func (s *Server) findElements(w http.ResponseWriter, r *http.Request) {
	els := s.lookup(queryFrom(readBody(r)))
	s.mu.Unlock()

	refs := make([]interface{}, len(els))
	for i, el := range els {
		refs[i] = elementRef(el.ID)
	}
	writeValue(w, refs)
}

func (s *Server) click(w http.ResponseWriter, r *http.Request, el *Element) {
	if el.Hidden || el.Disabled {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "element not interactable", el.ID)
		return
	}
	if el.Navigate != "" {
		s.stack = append(s.stack, el.Navigate)
	}
	onClick := el.OnClick
	s.mu.Unlock()

	if onClick != nil {
		onClick(s)
	}
	writeValue(w, nil)
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request, el *Element) {
	el.Text = ""
	s.mu.Unlock()
	writeValue(w, nil)
}

func (s *Server) sendKeys(w http.ResponseWriter, r *http.Request, el *Element) {
	text, _ := readBody(r)["text"].(string)
	el.Text += text
	s.mu.Unlock()
	writeValue(w, nil)
}

func (s *Server) text(w http.ResponseWriter, r *http.Request, el *Element) {
	text := el.Text
	s.mu.Unlock()
	writeValue(w, text)
}

func (s *Server) displayed(w http.ResponseWriter, r *http.Request, el *Element) {
	v := !el.Hidden
	s.mu.Unlock()
	writeValue(w, v)
}

func (s *Server) enabled(w http.ResponseWriter, r *http.Request, el *Element) {
	v := !el.Disabled
	s.mu.Unlock()
	writeValue(w, v)
}

func (s *Server) back(w http.ResponseWriter, r *http.Request) {
	if len(s.stack) > 1 {
		s.stack = s.stack[:len(s.stack)-1]
	}
	s.mu.Unlock()
	writeValue(w, nil)
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request) {
	body := readBody(r)
	script, _ := body["script"].(string)
	s.scripts = append(s.scripts, script)
	s.payloads["execute"] = body

	var result interface{}
	if script == "mobile: startActivity" {
		if args, ok := body["args"].([]interface{}); ok && len(args) > 0 {
			if m, ok := args[0].(map[string]interface{}); ok {
				intent, _ := m["intent"].(string)
				for name, sc := range s.screens {
					if strings.HasSuffix(intent, "/"+sc.Activity) {
						s.stack = []string{name}
					}
				}
			}
		}
	}
	if script == "mobile: scrollGesture" {
		result = false
	}
	s.mu.Unlock()
	writeValue(w, result)
}

func (s *Server) ok(w http.ResponseWriter, r *http.Request) {
	s.mu.Unlock()
	writeValue(w, nil)
}

func (s *Server) screenshot(w http.ResponseWriter, r *http.Request) {
	s.mu.Unlock()
	writeValue(w, base64.StdEncoding.EncodeToString(PNG))
}

func (s *Server) source(w http.ResponseWriter, r *http.Request) {
	var b strings.Builder
	b.WriteString("<hierarchy>")
	for _, el := range s.current().order {
		fmt.Fprintf(&b, "<node resource-id=%q text=%q/>", el.ID, el.Text)
	}
	b.WriteString("</hierarchy>")
	s.mu.Unlock()
	writeValue(w, b.String())
}

func (s *Server) deviceCommand(w http.ResponseWriter, r *http.Request) {
	body := readBody(r)
	cmd := r.PathValue("cmd")
	s.payloads[cmd] = body
	appID, _ := body["appId"].(string)

	var result interface{}
	switch cmd {
	case "terminate_app":
		if s.Config.FailTerminate {
			s.mu.Unlock()
			writeError(w, http.StatusInternalServerError, "unknown error", "terminate_app failed")
			return
		}
		result = true
	case "activate_app":
	case "install_app":
		path, _ := body["appPath"].(string)
		s.installed[path] = true
	case "remove_app":
		result = s.installed[appID]
		delete(s.installed, appID)
	case "app_installed":
		result = s.installed[appID]
	case "toggle_airplane_mode":
		s.airplane = !s.airplane
	case "toggle_wifi":
		s.wifi = !s.wifi
	default:
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "unknown command", cmd)
		return
	}
	s.mu.Unlock()
	writeValue(w, result)
}

func (s *Server) deviceQuery(w http.ResponseWriter, r *http.Request) {
	var value string
	switch r.PathValue("cmd") {
	case "current_activity":
		value = s.current().Activity
	case "current_package":
		value = s.Config.Package
	case "system_time":
		value = DeviceTime
	default:
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "unknown command", r.PathValue("cmd"))
		return
	}
	s.mu.Unlock()
	writeValue(w, value)
}

var textQueries = []*regexp.Regexp{
	regexp.MustCompile(`^//\*\[@text='(.*)'\]$`),
	regexp.MustCompile(`^new UiSelector\(\)\.text\("(.*)"\)$`),
	regexp.MustCompile(`^new UiScrollable\(new UiSelector\(\)\.scrollable\(true\)\)\.scrollIntoView\(new UiSelector\(\)\.text\("(.*)"\)\)$`),
}

// textQuery extracts the text from the text-matching xpath and UiAutomator
// forms the suite sends.
func textQuery(q Query) (string, bool) {
	if q.Using != "xpath" && q.Using != "-android uiautomator" {
		return "", false
	}
	for _, re := range textQueries {
		if m := re.FindStringSubmatch(q.Value); m != nil {
			return m[1], true
		}
	}
	return "", false
}

func queryFrom(body map[string]interface{}) Query {
	using, _ := body["using"].(string)
	value, _ := body["value"].(string)
	return Query{Using: using, Value: value}
}

func elementRef(id string) map[string]interface{} {
	return map[string]interface{}{"element-6066-11e4-a52e-4f735466cecf": id}
}

func readBody(r *http.Request) map[string]interface{} {
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body == nil {
		body = map[string]interface{}{}
	}
	return body
}

func writeValue(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"value": v})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"value": map[string]interface{}{"error": code, "message": msg},
	})
}
