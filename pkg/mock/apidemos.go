package mock

// Screen names used by NewAPIDemos.
const (
	ScreenMain        = "main"
	ScreenViews       = "Views"
	ScreenCustom      = "Custom"
	ScreenCustomTitle = "Custom Title"
)

// MainMenu is the ApiDemos main list, top to bottom.
var MainMenu = []string{
	"Accessibility", "Animation", "App", "Content", "Graphics",
	"Media", "NFC", "OS", "Preference", "Text", "Views",
}

// APIDemos holds the elements of the fake app that tests inspect.
type APIDemos struct {
	*Server

	LeftEdit   *Element
	RightEdit  *Element
	LeftTitle  *Element
	RightTitle *Element
}

// NewAPIDemos starts a server modelling the parts of ApiDemos the suite
// drives: the main list, Views, Custom and the Custom Title activity.
func NewAPIDemos(cfg Config) *APIDemos {
	s := New(cfg)
	app := &APIDemos{Server: s}

	main := s.AddScreen(ScreenMain, ".ApiDemos")
	s.Add(main, "accessibility id", "API Demos", &Element{Text: "API Demos"})
	for _, item := range MainMenu {
		el := s.Add(main, "id", "android:id/text1", &Element{Text: item, Navigate: item})
		s.Add(main, "accessibility id", item, el)
		if item != ScreenViews {
			s.AddScreen(item, "."+item)
		}
	}

	views := s.AddScreen(ScreenViews, ".view.Views")
	el := s.Add(views, "id", "android:id/text1", &Element{Text: "Custom", Navigate: ScreenCustom})
	s.Add(views, "accessibility id", "Custom", el)

	custom := s.AddScreen(ScreenCustom, ".view.Custom")
	s.Add(custom, "id", "android:id/text1", &Element{Text: "Custom Title", Navigate: ScreenCustomTitle})

	title := s.AddScreen(ScreenCustomTitle, ".app.CustomTitle")
	app.LeftTitle = s.Add(title, "id", "io.appium.android.apis:id/left_text", &Element{Text: "Left is best"})
	app.RightTitle = s.Add(title, "id", "io.appium.android.apis:id/right_text", &Element{Text: "Right is always right"})
	app.LeftEdit = s.Add(title, "id", "io.appium.android.apis:id/left_text_edit", &Element{Text: "Left is best"})
	app.RightEdit = s.Add(title, "id", "io.appium.android.apis:id/right_text_edit", &Element{Text: "Right is always right"})
	s.Add(title, "accessibility id", "Change Left", &Element{Text: "Change Left", OnClick: func(s *Server) {
		text := s.TextOf(app.LeftEdit)
		s.Update(app.LeftTitle, func(e *Element) { e.Text = text })
	}})
	s.Add(title, "accessibility id", "Change Right", &Element{Text: "Change Right", OnClick: func(s *Server) {
		text := s.TextOf(app.RightEdit)
		s.Update(app.RightTitle, func(e *Element) { e.Text = text })
	}})

	s.Show(ScreenMain)
	return app
}
