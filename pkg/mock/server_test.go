package mock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shane-reaume/appium-suite/pkg/appium"
)

func connect(t *testing.T, s *Server) *appium.Client {
	t.Helper()
	c := appium.NewClient(s.URL)
	require.NoError(t, c.Connect(map[string]interface{}{"platformName": "Android"}))
	return c
}

func TestAPIDemos_NavigateAndBack(t *testing.T) {
	app := NewAPIDemos(Config{})
	defer app.Close()
	c := connect(t, app.Server)

	ids, err := c.FindElements("id", "android:id/text1")
	require.NoError(t, err)
	assert.Len(t, ids, len(MainMenu))

	views, err := c.FindElement("accessibility id", "Views")
	require.NoError(t, err)
	require.NoError(t, c.ClickElement(views))
	assert.Equal(t, ScreenViews, app.Current())

	activity, err := c.CurrentActivity()
	require.NoError(t, err)
	assert.Equal(t, ".view.Views", activity)

	// The main list element is no longer attached.
	_, err = c.GetElementText(views)
	assert.True(t, appium.IsStaleElement(err))

	require.NoError(t, c.Back())
	assert.Equal(t, ScreenMain, app.Current())
}

func TestAPIDemos_CustomTitle(t *testing.T) {
	app := NewAPIDemos(Config{})
	defer app.Close()
	app.Show(ScreenCustomTitle)
	c := connect(t, app.Server)

	edit, err := c.FindElement("id", "io.appium.android.apis:id/left_text_edit")
	require.NoError(t, err)
	require.NoError(t, c.ClearElement(edit))
	require.NoError(t, c.SendElementKeys(edit, "Left Title"))

	apply, err := c.FindElement("accessibility id", "Change Left")
	require.NoError(t, err)
	require.NoError(t, c.ClickElement(apply))
	assert.Equal(t, "Left Title", app.TextOf(app.LeftTitle))

	_, err = c.FindElement("xpath", "//*[@text='Left Title']")
	assert.NoError(t, err)
	_, err = c.FindElement("-android uiautomator", `new UiSelector().text("Left Title")`)
	assert.NoError(t, err)
}

func TestServer_NoSuchElement(t *testing.T) {
	app := NewAPIDemos(Config{})
	defer app.Close()
	c := connect(t, app.Server)

	_, err := c.FindElement("id", "nonexistent_id")
	assert.True(t, appium.IsNoSuchElement(err))
}

func TestServer_SessionLifecycle(t *testing.T) {
	s := New(Config{Capabilities: map[string]interface{}{"deviceName": "emulator-5554"}})
	defer s.Close()
	c := connect(t, s)

	assert.True(t, s.SessionOpen())
	assert.Equal(t, "emulator-5554", c.Capabilities()["deviceName"])

	require.NoError(t, c.Disconnect())
	assert.False(t, s.SessionOpen())
	assert.Equal(t, 1, s.Count("DELETE /session/"+SessionID))

	c2 := appium.NewClient(s.URL)
	require.NoError(t, c2.Connect(nil))
	s.Configure(func(c *Config) { c.FailQuit = true })
	assert.Error(t, c2.Disconnect())
}

func TestServer_FailSession(t *testing.T) {
	s := New(Config{FailSession: true})
	defer s.Close()

	err := appium.NewClient(s.URL).Connect(map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, appium.HasCode(err, "session not created"))
}

func TestServer_DeviceState(t *testing.T) {
	s := New(Config{})
	defer s.Close()
	c := connect(t, s)

	require.NoError(t, c.ToggleAirplaneMode())
	require.NoError(t, c.ToggleWiFi())
	assert.True(t, s.Airplane())
	assert.False(t, s.WiFi())

	installed, err := c.IsAppInstalled("io.appium.android.apis")
	require.NoError(t, err)
	assert.True(t, installed)
	require.NoError(t, c.RemoveApp("io.appium.android.apis"))
	assert.False(t, s.Installed("io.appium.android.apis"))

	png, err := c.Screenshot()
	require.NoError(t, err)
	assert.Equal(t, PNG, png)

	ts, err := c.DeviceTime()
	require.NoError(t, err)
	assert.Equal(t, DeviceTime, ts)
}

func TestServer_InvalidSession(t *testing.T) {
	s := New(Config{})
	defer s.Close()
	c := connect(t, s)
	require.NoError(t, c.Disconnect())

	c2 := appium.NewClient(s.URL)
	require.NoError(t, c2.Connect(nil))
	s.mu.Lock()
	s.session = "other"
	s.mu.Unlock()

	_, err := c2.FindElement("id", "x")
	assert.True(t, appium.HasCode(err, appium.CodeInvalidSessionID))
}
