package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/glebovdev/radio-cli/internal/config"
	"github.com/rivo/tview"
)

const maxErrorLength = 100

// errorHints maps fragments of transport and decoder errors to text a
// listener can act on. The first match wins.
var errorHints = []struct {
	fragments []string
	message   string
}{
	{[]string{"no such host"}, "The station's server could not be found.\nCheck your internet connection."},
	{[]string{"connection refused"}, "The station refused the connection.\nIt may be off the air right now."},
	{[]string{"timeout", "deadline exceeded"}, "The station took too long to answer.\nCheck your internet connection."},
	{[]string{"network is unreachable", "network read error"}, "Network is unreachable.\nCheck your internet connection."},
	{[]string{"status 401"}, "The station requires a login (401)."},
	{[]string{"status 403"}, "The station does not allow this player (403)."},
	{[]string{"status 404"}, "The stream address no longer exists (404)."},
	{[]string{"status 500", "status 502", "status 503"}, "The station's server is failing.\nTry another station."},
	{[]string{"unsupported stream format"}, "This station streams in a format the player cannot decode.\nOnly MP3 streams are supported."},
	{[]string{"no playable stream"}, "None of this station's streams responded."},
}

func friendlyErrorMessage(errStr string) string {
	for _, hint := range errorHints {
		for _, fragment := range hint.fragments {
			if strings.Contains(errStr, fragment) {
				return hint.message
			}
		}
	}

	if idx := strings.Index(errStr, ": dial"); idx > 0 {
		return errStr[:idx]
	}
	if len(errStr) > maxErrorLength {
		return errStr[:maxErrorLength] + "..."
	}
	return errStr
}

// modalFrame wraps content in the bordered box every dialog uses.
func (ui *UI) modalFrame(content tview.Primitive, title string, border tcell.Color) *tview.Frame {
	frame := tview.NewFrame(content).
		SetBorders(1, 0, 1, 1, 2, 2)
	frame.SetBorder(true).
		SetBorderColor(border).
		SetBackgroundColor(ui.colors.modalBackground).
		SetTitle(" " + title + " ").
		SetTitleColor(ui.colors.highlight).
		SetTitleAlign(tview.AlignCenter)
	return frame
}

// centered places p in the middle of the screen at the given size.
func (ui *UI) centered(p tview.Primitive, width, height int) *tview.Flex {
	modal := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 0, true).
			AddItem(nil, 0, 1, false),
			width, 0, true).
		AddItem(nil, 0, 1, false)
	modal.SetBackgroundColor(ui.colors.background)
	return modal
}

func (ui *UI) modalBody(text string, align int, hint string) *tview.Flex {
	messageView := tview.NewTextView().
		SetTextAlign(align).
		SetDynamicColors(true).
		SetWordWrap(true).
		SetText("\n" + text)
	messageView.SetTextColor(ui.colors.foreground)
	messageView.SetBackgroundColor(ui.colors.modalBackground)

	hintView := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true).
		SetText("[::d]" + hint + "[::-]")
	hintView.SetTextColor(tcell.ColorDarkGray)
	hintView.SetBackgroundColor(ui.colors.modalBackground)

	body := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(messageView, 0, 1, false).
		AddItem(hintView, 1, 0, false).
		AddItem(nil, 1, 0, false)
	body.SetBackgroundColor(ui.colors.modalBackground)
	return body
}

func (ui *UI) openModal(name string, modal *tview.Flex) {
	ui.pages.AddPage(name, modal, true, true)
	ui.app.SetFocus(modal)
}

func (ui *UI) closeModal(name string) {
	ui.pages.RemovePage(name)
	ui.app.SetFocus(ui.stationList)
}

func (ui *UI) showError(err error) {
	name := "this station"
	if state := ui.engine.State(); state.HasStation {
		name = state.Station.Name
	}
	ui.showPlaybackErrorModal(name, friendlyErrorMessage(err.Error()))
}

func (ui *UI) showPlaybackErrorModal(stationName, message string) {
	const name = "error-modal"

	retry := func() {
		ui.closeModal(name)
		state := ui.engine.State()
		if !state.HasStation {
			return
		}
		go func() {
			ui.handlePlayResult(ui.engine.PlayStation(ui.ctx, state.Station, nil))
		}()
	}

	text := fmt.Sprintf("[::b]Could not play %s[::-]\n\n%s", tview.Escape(stationName), message)
	body := ui.modalBody(text, tview.AlignCenter, "[::b]R[::d] retry  •  [::b]N[::d] next station  •  [::b]Esc[::d] dismiss")

	height := min(10+strings.Count(message, "\n"), 15)
	modal := ui.centered(ui.modalFrame(body, "Playback Error", ui.colors.highlight), 54, height)

	modal.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEscape, tcell.KeyEnter:
			ui.closeModal(name)
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'r', 'R':
				retry()
				return nil
			case 'n', 'N':
				ui.closeModal(name)
				ui.nextStation()
				return nil
			}
		}
		return event
	})

	ui.openModal(name, modal)
}

func (ui *UI) showHelpModal() {
	keyColor := ui.colors.helpHotkey.String()
	configPath, _ := config.GetConfigPath()

	key := func(keys string, desc string) string {
		return fmt.Sprintf("  [%s]%-11s[-] %s", keyColor, keys, desc)
	}
	section := func(name string) string {
		return fmt.Sprintf("[%s::b]%s[-::-]", keyColor, name)
	}

	lines := []string{
		section("LISTENING"),
		key("Enter", "Tune in to selected station"),
		key("Space", "Pause / resume"),
		key("< >", "Previous / next in queue"),
		key("r", "Surprise me (random station)"),
		key("e", "Expand / collapse now playing"),
		"",
		section("VOLUME"),
		key("+ - ← →", "Louder / quieter"),
		key("m", "Mute / unmute"),
		"",
		section("FINDING STATIONS"),
		key("/", "Search stations by name"),
		key("c", "Browse a country"),
		key(fmt.Sprintf("1-%d", len(config.PresetCountries)), strings.Join(config.PresetCountries, ", ")),
		key("n", "Load the next 50 stations"),
		key("f", "Favorite / unfavorite"),
		"",
		section("APP"),
		key("?", "This help"),
		key("a", "About "+config.AppName),
		key("q Esc", "Quit"),
		"",
		"[::d]Config: " + tview.Escape(configPath) + "[::-]",
	}

	ui.showInfoModal("Keys", strings.Join(lines, "\n"))
}

func (ui *UI) showAboutModal() {
	const linkColor, dimColor = "skyblue", "gray"

	aboutText := fmt.Sprintf(`[::b]%s[::-] [%s]v%s[-]
[%s]%s[-]

Author:  %s ([%s:::%s]%s[-:::-])
Project: [%s:::%s]%s[-:::-]
License: MIT

[%s]Stations are listed by[-]
[::b]Radio Browser[::-] (primary) and [::b]TuneIn[::-] (fallback)`,
		config.AppName, dimColor, config.AppVersion,
		dimColor, config.AppTagline,
		config.AppAuthor, linkColor, config.AppAuthorURL, config.AppAuthorURLShort,
		linkColor, config.AppProjectURL, config.AppProjectShort,
		dimColor)

	ui.showInfoModal("About", aboutText)
}

func (ui *UI) showInfoModal(title, message string) {
	const name = "modal"

	body := ui.modalBody(message, tview.AlignLeft, "Press any key to close")
	height := min(strings.Count(message, "\n")+8, 38)
	modal := ui.centered(ui.modalFrame(body, title, ui.colors.borders), 58, height)

	modal.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		ui.closeModal(name)
		return nil
	})

	ui.openModal(name, modal)
}

func (ui *UI) showInitialErrorScreen(title, message string, onRetry, onQuit func()) {
	textView := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true).
		SetText(fmt.Sprintf("[::b]%s[::-]\n\n%s", title, message))
	textView.SetTextColor(ui.colors.foreground)
	textView.SetBackgroundColor(ui.colors.modalBackground)

	helpText := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetDynamicColors(true).
		SetText("[::d]Press [::b]R[::d] to retry  •  Press [::b]Q[::d] to quit[::-]")
	helpText.SetTextColor(ui.colors.foreground)
	helpText.SetBackgroundColor(ui.colors.background)

	frame := ui.modalFrame(textView, "Station Directory Unreachable", ui.colors.highlight)

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(ui.centered(frame, 64, 11), 0, 1, true).
		AddItem(helpText, 2, 0, false)
	layout.SetBackgroundColor(ui.colors.background)

	layout.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		var action func()
		switch {
		case event.Key() == tcell.KeyEscape:
			action = onQuit
		case event.Rune() == 'r' || event.Rune() == 'R':
			action = onRetry
		case event.Rune() == 'q' || event.Rune() == 'Q':
			action = onQuit
		default:
			return event
		}
		if action != nil {
			action()
		}
		return nil
	})

	ui.app.SetRoot(layout, true)
	ui.app.SetFocus(layout)
}

func (ui *UI) handleInitialError(err error) {
	ui.showInitialErrorScreen(
		fmt.Sprintf("Unable to load stations for %s", ui.initialCountry()),
		friendlyErrorMessage(err.Error())+"\n\nNeither Radio Browser nor TuneIn answered.",
		func() {
			ui.app.SetRoot(ui.loadingScreen, true)
			go ui.initAsync()
		},
		ui.stop,
	)
}
