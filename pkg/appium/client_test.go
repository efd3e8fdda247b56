package appium

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// writeJSON encodes data as JSON to the response writer.
func writeJSON(w http.ResponseWriter, data interface{}) {
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// readBody decodes a JSON request body.
func readBody(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body map[string]interface{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &body); err != nil {
			t.Fatalf("decode body %q: %v", data, err)
		}
	}
	return body
}

func newSessionClient(url string) *Client {
	client := NewClient(url)
	client.sessionID = "test-session"
	client.platform = "android"
	return client
}

func TestClient_Connect(t *testing.T) {
	var gotCaps map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session" && r.Method == "POST" {
			body := readBody(t, r)
			caps := body["capabilities"].(map[string]interface{})
			gotCaps = caps["alwaysMatch"].(map[string]interface{})
			writeJSON(w, map[string]interface{}{
				"value": map[string]interface{}{
					"sessionId": "test-session-123",
					"capabilities": map[string]interface{}{
						"platformName":    "Android",
						"platformVersion": "14",
						"deviceName":      "emulator-5554",
					},
				},
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	err := client.Connect(map[string]interface{}{
		"platformName":          "Android",
		"appium:automationName": "UiAutomator2",
	})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if client.SessionID() != "test-session-123" {
		t.Errorf("Expected sessionID 'test-session-123', got '%s'", client.SessionID())
	}
	if client.Platform() != "android" {
		t.Errorf("Expected platform 'android', got '%s'", client.Platform())
	}
	if gotCaps["appium:automationName"] != "UiAutomator2" {
		t.Errorf("alwaysMatch missing automationName: %v", gotCaps)
	}

	caps := client.Capabilities()
	if caps["deviceName"] != "emulator-5554" {
		t.Errorf("server capability not merged: %v", caps)
	}
	if caps["appium:automationName"] != "UiAutomator2" {
		t.Errorf("requested capability not kept: %v", caps)
	}
}

func TestClient_ConnectError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		writeJSON(w, map[string]interface{}{
			"value": map[string]interface{}{
				"error":   "session not created",
				"message": "Could not find a connected Android device",
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.Connect(map[string]interface{}{"platformName": "Android"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !HasCode(err, "session not created") {
		t.Errorf("expected session not created code, got %v", err)
	}
	if client.SessionID() != "" {
		t.Error("sessionID should stay empty on failure")
	}
}

func TestClient_ConnectMissingSessionID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"value": map[string]interface{}{}})
	}))
	defer server.Close()

	if err := NewClient(server.URL).Connect(map[string]interface{}{}); err == nil {
		t.Fatal("expected error for missing session ID")
	}
}

func TestClient_Disconnect(t *testing.T) {
	deleteCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/test-session" && r.Method == "DELETE" {
			deleteCalls++
			writeJSON(w, map[string]interface{}{"value": nil})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newSessionClient(server.URL)

	if err := client.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	if err := client.Disconnect(); err != nil {
		t.Fatalf("second Disconnect failed: %v", err)
	}

	if deleteCalls != 1 {
		t.Errorf("DELETE /session called %d times, want 1", deleteCalls)
	}
	if client.SessionID() != "" {
		t.Error("sessionID should be cleared after disconnect")
	}
}

func TestClient_FindElement(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/test-session/element" && r.Method == "POST" {
			body := readBody(t, r)
			if body["using"] != "accessibility id" || body["value"] != "API Demos" {
				t.Errorf("unexpected find body: %v", body)
			}
			writeJSON(w, map[string]interface{}{
				"value": map[string]interface{}{
					"element-6066-11e4-a52e-4f735466cecf": "elem-123",
				},
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	elemID, err := newSessionClient(server.URL).FindElement("accessibility id", "API Demos")
	if err != nil {
		t.Fatalf("FindElement failed: %v", err)
	}
	if elemID != "elem-123" {
		t.Errorf("Expected element ID 'elem-123', got '%s'", elemID)
	}
}

func TestClient_FindElementLegacyID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"value": map[string]string{"ELEMENT": "legacy-1"},
		})
	}))
	defer server.Close()

	elemID, err := newSessionClient(server.URL).FindElement("id", "x")
	if err != nil {
		t.Fatalf("FindElement failed: %v", err)
	}
	if elemID != "legacy-1" {
		t.Errorf("Expected 'legacy-1', got '%s'", elemID)
	}
}

func TestClient_FindElementNoSuchElement(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]interface{}{
			"value": map[string]interface{}{
				"error":   "no such element",
				"message": "An element could not be located on the page using the given search parameters.",
			},
		})
	}))
	defer server.Close()

	_, err := newSessionClient(server.URL).FindElement("id", "nonexistent_id")
	if !IsNoSuchElement(err) {
		t.Fatalf("expected no such element, got %v", err)
	}

	var we *Error
	if !errors.As(err, &we) {
		t.Fatal("expected *Error")
	}
	if we.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", we.Status)
	}
}

func TestClient_FindElements(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/test-session/elements" && r.Method == "POST" {
			writeJSON(w, map[string]interface{}{
				"value": []interface{}{
					map[string]interface{}{"element-6066-11e4-a52e-4f735466cecf": "elem-1"},
					map[string]interface{}{"element-6066-11e4-a52e-4f735466cecf": "elem-2"},
				},
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	ids, err := newSessionClient(server.URL).FindElements("id", "android:id/text1")
	if err != nil {
		t.Fatalf("FindElements failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("Expected 2 elements, got %d", len(ids))
	}
}

func TestClient_ElementActions(t *testing.T) {
	var calls []string
	var typed string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/session/test-session/element/e1/value":
			typed, _ = readBody(t, r)["text"].(string)
			writeJSON(w, map[string]interface{}{"value": nil})
		case "/session/test-session/element/e1/text":
			writeJSON(w, map[string]interface{}{"value": "Left Title"})
		case "/session/test-session/element/e1/displayed":
			writeJSON(w, map[string]interface{}{"value": true})
		case "/session/test-session/element/e1/enabled":
			writeJSON(w, map[string]interface{}{"value": false})
		case "/session/test-session/element/e1/attribute/checked":
			writeJSON(w, map[string]interface{}{"value": true})
		default:
			writeJSON(w, map[string]interface{}{"value": nil})
		}
	}))
	defer server.Close()

	client := newSessionClient(server.URL)

	if err := client.ClickElement("e1"); err != nil {
		t.Fatalf("ClickElement: %v", err)
	}
	if err := client.ClearElement("e1"); err != nil {
		t.Fatalf("ClearElement: %v", err)
	}
	if err := client.SendElementKeys("e1", "Left Title"); err != nil {
		t.Fatalf("SendElementKeys: %v", err)
	}
	if typed != "Left Title" {
		t.Errorf("typed %q, want 'Left Title'", typed)
	}

	text, err := client.GetElementText("e1")
	if err != nil || text != "Left Title" {
		t.Errorf("GetElementText = %q, %v", text, err)
	}
	displayed, err := client.IsElementDisplayed("e1")
	if err != nil || !displayed {
		t.Errorf("IsElementDisplayed = %v, %v", displayed, err)
	}
	enabled, err := client.IsElementEnabled("e1")
	if err != nil || enabled {
		t.Errorf("IsElementEnabled = %v, %v", enabled, err)
	}
	checked, err := client.GetElementAttribute("e1", "checked")
	if err != nil || checked != "true" {
		t.Errorf("GetElementAttribute = %q, %v", checked, err)
	}

	want := []string{
		"POST /session/test-session/element/e1/click",
		"POST /session/test-session/element/e1/clear",
		"POST /session/test-session/element/e1/value",
	}
	for i, w := range want {
		if calls[i] != w {
			t.Errorf("call %d = %q, want %q", i, calls[i], w)
		}
	}
}

func TestClient_AppManagement(t *testing.T) {
	bodies := map[string]map[string]interface{}{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bodies[r.URL.Path] = readBody(t, r)
		if r.URL.Path == "/session/test-session/appium/device/app_installed" {
			writeJSON(w, map[string]interface{}{"value": true})
			return
		}
		writeJSON(w, map[string]interface{}{"value": nil})
	}))
	defer server.Close()

	client := newSessionClient(server.URL)

	if err := client.TerminateApp("io.appium.android.apis"); err != nil {
		t.Fatalf("TerminateApp: %v", err)
	}
	if err := client.ActivateApp("io.appium.android.apis"); err != nil {
		t.Fatalf("ActivateApp: %v", err)
	}
	if err := client.InstallApp("/tmp/ApiDemos-debug.apk"); err != nil {
		t.Fatalf("InstallApp: %v", err)
	}
	if err := client.RemoveApp("io.appium.android.apis"); err != nil {
		t.Fatalf("RemoveApp: %v", err)
	}
	installed, err := client.IsAppInstalled("io.appium.android.apis")
	if err != nil || !installed {
		t.Fatalf("IsAppInstalled = %v, %v", installed, err)
	}

	if got := bodies["/session/test-session/appium/device/terminate_app"]["appId"]; got != "io.appium.android.apis" {
		t.Errorf("terminate_app appId = %v", got)
	}
	if got := bodies["/session/test-session/appium/device/install_app"]["appPath"]; got != "/tmp/ApiDemos-debug.apk" {
		t.Errorf("install_app appPath = %v", got)
	}
}

func TestClient_AppBodyIOS(t *testing.T) {
	client := newSessionClient("http://unused")
	client.platform = "ios"
	if got := client.appBody("com.example"); got["bundleId"] != "com.example" {
		t.Errorf("appBody = %v, want bundleId", got)
	}
}

func TestClient_DeviceQueries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/session/test-session/appium/device/current_activity":
			writeJSON(w, map[string]interface{}{"value": ".ApiDemos"})
		case "/session/test-session/appium/device/current_package":
			writeJSON(w, map[string]interface{}{"value": "io.appium.android.apis"})
		case "/session/test-session/appium/device/system_time":
			writeJSON(w, map[string]interface{}{"value": "2026-10-19T10:00:00+00:00"})
		default:
			writeJSON(w, map[string]interface{}{"value": nil})
		}
	}))
	defer server.Close()

	client := newSessionClient(server.URL)

	if got, _ := client.CurrentActivity(); got != ".ApiDemos" {
		t.Errorf("CurrentActivity = %q", got)
	}
	if got, _ := client.CurrentPackage(); got != "io.appium.android.apis" {
		t.Errorf("CurrentPackage = %q", got)
	}
	if got, _ := client.DeviceTime(); got != "2026-10-19T10:00:00+00:00" {
		t.Errorf("DeviceTime = %q", got)
	}
	if err := client.ToggleAirplaneMode(); err != nil {
		t.Errorf("ToggleAirplaneMode: %v", err)
	}
	if err := client.ToggleWiFi(); err != nil {
		t.Errorf("ToggleWiFi: %v", err)
	}
	if err := client.Back(); err != nil {
		t.Errorf("Back: %v", err)
	}
}

func TestClient_Screenshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"value": base64.StdEncoding.EncodeToString([]byte("fake-png-data")),
		})
	}))
	defer server.Close()

	data, err := newSessionClient(server.URL).Screenshot()
	if err != nil {
		t.Fatalf("Screenshot failed: %v", err)
	}
	if string(data) != "fake-png-data" {
		t.Errorf("Screenshot = %q", data)
	}
}

func TestClient_Source(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		writeJSON(w, map[string]interface{}{"value": "<hierarchy><node text=\"API Demos\"/></hierarchy>"})
	}))
	defer server.Close()

	source, err := newSessionClient(server.URL).Source()
	if err != nil {
		t.Fatalf("Source failed: %v", err)
	}
	if source != `<hierarchy><node text="API Demos"/></hierarchy>` {
		t.Errorf("Source = %q", source)
	}
	if !strings.HasSuffix(gotPath, "/source") || !strings.HasPrefix(gotPath, "GET /session/") {
		t.Errorf("request = %q", gotPath)
	}
}

func TestClient_SourceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]interface{}{"value": map[string]interface{}{
			"error":   "invalid session id",
			"message": "session is gone",
		}})
	}))
	defer server.Close()

	_, err := newSessionClient(server.URL).Source()
	if !HasCode(err, "invalid session id") {
		t.Errorf("expected invalid session id, got %v", err)
	}
}

func TestClient_ExecuteScript(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body = readBody(t, r)
		writeJSON(w, map[string]interface{}{"value": false})
	}))
	defer server.Close()

	value, err := newSessionClient(server.URL).ExecuteMobile("scrollGesture", map[string]interface{}{
		"direction": "down",
	})
	if err != nil {
		t.Fatalf("ExecuteMobile: %v", err)
	}
	if value != false {
		t.Errorf("value = %v, want false", value)
	}
	if body["script"] != "mobile: scrollGesture" {
		t.Errorf("script = %v", body["script"])
	}
	args := body["args"].([]interface{})
	if args[0].(map[string]interface{})["direction"] != "down" {
		t.Errorf("args = %v", args)
	}
}

func TestClient_StartActivity(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body = readBody(t, r)
		writeJSON(w, map[string]interface{}{"value": nil})
	}))
	defer server.Close()

	if err := newSessionClient(server.URL).StartActivity("io.appium.android.apis", ".ApiDemos"); err != nil {
		t.Fatalf("StartActivity: %v", err)
	}
	args := body["args"].([]interface{})
	if got := args[0].(map[string]interface{})["intent"]; got != "io.appium.android.apis/.ApiDemos" {
		t.Errorf("intent = %v", got)
	}
}

func TestClient_TransportErrorIsNotWebDriverError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newSessionClient(url).FindElement("id", "x")
	if err == nil {
		t.Fatal("expected transport error")
	}
	var we *Error
	if errors.As(err, &we) {
		t.Errorf("transport failure should not be a WebDriver error: %v", err)
	}
}

func TestClient_NonJSONErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newSessionClient(server.URL).GetElementText("e1")
	var we *Error
	if !errors.As(err, &we) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if we.Status != http.StatusBadGateway || we.Code != CodeUnknownError {
		t.Errorf("got %+v", we)
	}
}

func TestErrorHelpers(t *testing.T) {
	if !IsStaleElement(&Error{Code: CodeStaleElementReference}) {
		t.Error("IsStaleElement")
	}
	if !IsNotInteractable(&Error{Code: CodeElementClickIntercept}) {
		t.Error("IsNotInteractable click intercepted")
	}
	if IsNoSuchElement(errors.New("no such element")) {
		t.Error("plain errors must not match")
	}
	if got := (&Error{Code: "x"}).Error(); got != "x" {
		t.Errorf("Error() = %q", got)
	}
}
