// Package appium is a small client for an Appium server speaking the W3C
// WebDriver protocol plus Appium's device extensions.
package appium

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// W3C WebDriver element identifier key (standard constant)
const w3cElementKey = "element-6066-11e4-a52e-4f735466cecf"

// DefaultHTTPTimeout bounds a single request. Session creation and app
// install can take minutes on a cold emulator.
const DefaultHTTPTimeout = 5 * time.Minute

// Client handles HTTP communication with Appium server.
type Client struct {
	serverURL    string
	sessionID    string
	client       *http.Client
	platform     string // ios, android
	capabilities map[string]interface{}
}

// NewClient creates a new Appium client.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: strings.TrimSuffix(serverURL, "/"),
		client: &http.Client{
			Timeout: DefaultHTTPTimeout,
		},
	}
}

// SetHTTPClient replaces the underlying HTTP client.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.client = hc
}

// Connect creates a new session with the given capabilities.
func (c *Client) Connect(capabilities map[string]interface{}) error {
	body := map[string]interface{}{
		"capabilities": map[string]interface{}{
			"alwaysMatch": capabilities,
			"firstMatch":  []interface{}{map[string]interface{}{}},
		},
	}

	resp, err := c.post("/session", body)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	value, ok := resp["value"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("invalid session response")
	}

	c.sessionID, _ = value["sessionId"].(string)
	if c.sessionID == "" {
		return fmt.Errorf("no session ID in response")
	}

	c.capabilities = make(map[string]interface{})
	for k, v := range capabilities {
		c.capabilities[k] = v
	}
	if caps, ok := value["capabilities"].(map[string]interface{}); ok {
		for k, v := range caps {
			c.capabilities[k] = v
		}
	}
	if platform, ok := c.capabilities["platformName"].(string); ok {
		c.platform = strings.ToLower(platform)
	}

	return nil
}

// Disconnect deletes the session. Calling it again is a no-op.
func (c *Client) Disconnect() error {
	if c.sessionID == "" {
		return nil
	}
	_, err := c.delete(c.sessionPath())
	c.sessionID = ""
	return err
}

// SessionID returns the current session ID, empty when disconnected.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Platform returns the platform (ios/android).
func (c *Client) Platform() string {
	return c.platform
}

// Capabilities returns the merged requested and server-reported capabilities.
// Appium reports vendor capabilities without the "appium:" prefix.
func (c *Client) Capabilities() map[string]interface{} {
	out := make(map[string]interface{}, len(c.capabilities))
	for k, v := range c.capabilities {
		out[k] = v
	}
	return out
}

// Element Operations

// FindElement finds a single element.
func (c *Client) FindElement(strategy, value string) (string, error) {
	body := map[string]interface{}{
		"using": strategy,
		"value": value,
	}

	resp, err := c.post(c.sessionPath()+"/element", body)
	if err != nil {
		return "", err
	}

	elemValue, ok := resp["value"].(map[string]interface{})
	if !ok {
		return "", &Error{Code: CodeNoSuchElement, Message: "empty find response"}
	}

	id := extractElementID(elemValue)
	if id == "" {
		return "", &Error{Code: CodeNoSuchElement, Message: "no element reference in response"}
	}
	return id, nil
}

// FindElements finds multiple elements.
func (c *Client) FindElements(strategy, value string) ([]string, error) {
	body := map[string]interface{}{
		"using": strategy,
		"value": value,
	}

	resp, err := c.post(c.sessionPath()+"/elements", body)
	if err != nil {
		return nil, err
	}

	values, ok := resp["value"].([]interface{})
	if !ok {
		return nil, nil
	}

	var ids []string
	for _, v := range values {
		if elem, ok := v.(map[string]interface{}); ok {
			if id := extractElementID(elem); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// ClickElement clicks an element using WebDriver standard endpoint.
func (c *Client) ClickElement(elementID string) error {
	_, err := c.post(c.elementPath(elementID)+"/click", map[string]interface{}{})
	return err
}

// ClearElement clears an element's text.
func (c *Client) ClearElement(elementID string) error {
	_, err := c.post(c.elementPath(elementID)+"/clear", map[string]interface{}{})
	return err
}

// SendElementKeys types text into an element.
func (c *Client) SendElementKeys(elementID, text string) error {
	_, err := c.post(c.elementPath(elementID)+"/value", map[string]interface{}{
		"text": text,
	})
	return err
}

// GetElementText returns an element's text.
func (c *Client) GetElementText(elementID string) (string, error) {
	resp, err := c.get(c.elementPath(elementID) + "/text")
	if err != nil {
		return "", err
	}
	text, _ := resp["value"].(string)
	return text, nil
}

// GetElementAttribute returns an element's attribute value.
func (c *Client) GetElementAttribute(elementID, name string) (string, error) {
	resp, err := c.get(c.elementPath(elementID) + "/attribute/" + name)
	if err != nil {
		return "", err
	}
	switch v := resp["value"].(type) {
	case string:
		return v, nil
	case bool:
		return fmt.Sprintf("%t", v), nil
	case nil:
		return "", nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// IsElementDisplayed checks if element is visible.
func (c *Client) IsElementDisplayed(elementID string) (bool, error) {
	resp, err := c.get(c.elementPath(elementID) + "/displayed")
	if err != nil {
		return false, err
	}
	displayed, _ := resp["value"].(bool)
	return displayed, nil
}

// IsElementEnabled checks if element is enabled.
func (c *Client) IsElementEnabled(elementID string) (bool, error) {
	resp, err := c.get(c.elementPath(elementID) + "/enabled")
	if err != nil {
		return false, err
	}
	enabled, _ := resp["value"].(bool)
	return enabled, nil
}

// Navigation

// Back navigates back (Android back button).
func (c *Client) Back() error {
	_, err := c.post(c.sessionPath()+"/back", map[string]interface{}{})
	return err
}

// App Management

// ActivateApp brings an app to the foreground, launching it if needed.
func (c *Client) ActivateApp(appID string) error {
	_, err := c.post(c.sessionPath()+"/appium/device/activate_app", c.appBody(appID))
	return err
}

// TerminateApp terminates an app.
func (c *Client) TerminateApp(appID string) error {
	_, err := c.post(c.sessionPath()+"/appium/device/terminate_app", c.appBody(appID))
	return err
}

// InstallApp installs an app binary from a path on the Appium host.
func (c *Client) InstallApp(appPath string) error {
	_, err := c.post(c.sessionPath()+"/appium/device/install_app", map[string]interface{}{
		"appPath": appPath,
	})
	return err
}

// RemoveApp uninstalls an app.
func (c *Client) RemoveApp(appID string) error {
	_, err := c.post(c.sessionPath()+"/appium/device/remove_app", c.appBody(appID))
	return err
}

// IsAppInstalled reports whether an app is installed.
func (c *Client) IsAppInstalled(appID string) (bool, error) {
	resp, err := c.post(c.sessionPath()+"/appium/device/app_installed", c.appBody(appID))
	if err != nil {
		return false, err
	}
	installed, _ := resp["value"].(bool)
	return installed, nil
}

func (c *Client) appBody(appID string) map[string]interface{} {
	if c.platform == "ios" {
		return map[string]interface{}{"bundleId": appID}
	}
	return map[string]interface{}{"appId": appID}
}

// StartActivity starts an Android activity.
func (c *Client) StartActivity(appPackage, appActivity string) error {
	_, err := c.ExecuteMobile("startActivity", map[string]interface{}{
		"intent": appPackage + "/" + appActivity,
	})
	return err
}

// Device

// CurrentActivity returns the foreground Android activity.
func (c *Client) CurrentActivity() (string, error) {
	return c.getString("/appium/device/current_activity")
}

// CurrentPackage returns the foreground Android package.
func (c *Client) CurrentPackage() (string, error) {
	return c.getString("/appium/device/current_package")
}

// DeviceTime returns the device clock as reported by the server.
func (c *Client) DeviceTime() (string, error) {
	return c.getString("/appium/device/system_time")
}

// ToggleAirplaneMode flips airplane mode.
func (c *Client) ToggleAirplaneMode() error {
	_, err := c.post(c.sessionPath()+"/appium/device/toggle_airplane_mode", map[string]interface{}{})
	return err
}

// ToggleWiFi flips WiFi.
func (c *Client) ToggleWiFi() error {
	_, err := c.post(c.sessionPath()+"/appium/device/toggle_wifi", map[string]interface{}{})
	return err
}

func (c *Client) getString(path string) (string, error) {
	resp, err := c.get(c.sessionPath() + path)
	if err != nil {
		return "", err
	}
	s, _ := resp["value"].(string)
	return s, nil
}

// Screen Operations

// Screenshot returns a screenshot as PNG bytes.
func (c *Client) Screenshot() ([]byte, error) {
	resp, err := c.get(c.sessionPath() + "/screenshot")
	if err != nil {
		return nil, err
	}
	encoded, ok := resp["value"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid screenshot response")
	}
	return base64.StdEncoding.DecodeString(encoded)
}

// Source returns the page source XML.
func (c *Client) Source() (string, error) {
	resp, err := c.get(c.sessionPath() + "/source")
	if err != nil {
		return "", err
	}
	source, _ := resp["value"].(string)
	return source, nil
}

// Scripts

// ExecuteScript runs a script synchronously, e.g. "mobile: scrollGesture".
func (c *Client) ExecuteScript(script string, args ...interface{}) (interface{}, error) {
	if args == nil {
		args = []interface{}{}
	}
	resp, err := c.post(c.sessionPath()+"/execute/sync", map[string]interface{}{
		"script": script,
		"args":   args,
	})
	if err != nil {
		return nil, err
	}
	return resp["value"], nil
}

// ExecuteMobile executes a mobile: command.
func (c *Client) ExecuteMobile(command string, args map[string]interface{}) (interface{}, error) {
	return c.ExecuteScript("mobile: "+command, args)
}

// HTTP Helpers

func (c *Client) sessionPath() string {
	return "/session/" + c.sessionID
}

func (c *Client) elementPath(elementID string) string {
	return c.sessionPath() + "/element/" + elementID
}

func (c *Client) get(path string) (map[string]interface{}, error) {
	return c.request(http.MethodGet, path, nil)
}

func (c *Client) post(path string, body interface{}) (map[string]interface{}, error) {
	return c.request(http.MethodPost, path, body)
}

func (c *Client) delete(path string) (map[string]interface{}, error) {
	return c.request(http.MethodDelete, path, nil)
}

func (c *Client) request(method, path string, body interface{}) (map[string]interface{}, error) {
	url := c.serverURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &Error{Status: resp.StatusCode, Code: CodeUnknownError, Message: strings.TrimSpace(string(respBody))}
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// Check for WebDriver error
	if errValue, ok := result["value"].(map[string]interface{}); ok {
		if errType, ok := errValue["error"].(string); ok {
			msg, _ := errValue["message"].(string)
			return result, &Error{Status: resp.StatusCode, Code: errType, Message: msg}
		}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return result, &Error{Status: resp.StatusCode, Code: CodeUnknownError, Message: http.StatusText(resp.StatusCode)}
	}

	return result, nil
}

func extractElementID(value map[string]interface{}) string {
	// W3C format
	if id, ok := value[w3cElementKey].(string); ok {
		return id
	}
	// Legacy format
	if id, ok := value["ELEMENT"].(string); ok {
		return id
	}
	return ""
}
