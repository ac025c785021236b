package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/glebovdev/radio-cli/internal/player"
	"github.com/rivo/tview"
)

const mutedBadge = "[red]MUTED[-]"

// StatusRenderer turns the device state into the one-line footer status.
type StatusRenderer struct {
	device        DeviceStatus
	isMuted       bool
	animFrame     int
	maxAnimFrame  int
	tickCount     int
	ticksPerFrame int

	bufferHealth         int
	bufferTickCount      int
	bufferTicksPerUpdate int

	primaryColor string
}

func NewStatusRenderer(device DeviceStatus) *StatusRenderer {
	return &StatusRenderer{
		device:               device,
		maxAnimFrame:         4,
		ticksPerFrame:        8,  // Slow down animation (8 ticks per frame)
		bufferTicksPerUpdate: 10, // Update buffer about once per second at 10 ticks/s
	}
}

func (s *StatusRenderer) SetMuted(muted bool) {
	s.isMuted = muted
}

func (s *StatusRenderer) SetPrimaryColor(color string) {
	s.primaryColor = color
}

func (s *StatusRenderer) AdvanceAnimation() {
	s.tickCount++
	if s.tickCount >= s.ticksPerFrame {
		s.tickCount = 0
		s.animFrame = (s.animFrame + 1) % s.maxAnimFrame
	}

	s.bufferTickCount++
	if s.bufferTickCount >= s.bufferTicksPerUpdate {
		s.bufferTickCount = 0
		if s.device != nil {
			s.bufferHealth = s.device.BufferHealth()
		}
	}
}

func (s *StatusRenderer) Render() string {
	if s.device == nil {
		return s.renderIdle()
	}

	switch s.device.State() {
	case player.StateBuffering:
		spinner := []string{"◐", "◓", "◑", "◒"}
		return spinner[s.animFrame] + " TUNING IN"
	case player.StatePlaying:
		return s.renderOnAir()
	case player.StatePaused:
		return joinParts(s.withStreamDetails([]string{PauseIcon + " PAUSED"}))
	case player.StateReconnecting:
		current, max := s.device.RetryInfo()
		return fmt.Sprintf("↻ SIGNAL LOST, retry %d/%d", current, max)
	case player.StateError:
		return s.renderError()
	default:
		return s.renderIdle()
	}
}

func (s *StatusRenderer) renderIdle() string {
	parts := []string{"○ OFF AIR"}
	if s.isMuted {
		parts = append(parts, mutedBadge)
	}
	return joinParts(append(parts, "Pick a station"))
}

func (s *StatusRenderer) renderOnAir() string {
	dots := []string{"●", "◉", "○", "◉"}
	dot := dots[s.animFrame]
	if s.primaryColor != "" {
		dot = fmt.Sprintf("[%s]%s[-]", s.primaryColor, dot)
	}

	parts := s.withStreamDetails([]string{dot + " ON AIR"})
	return joinParts(append(parts, signalMeter(s.bufferHealth)))
}

// withStreamDetails appends the mute badge and codec details to parts.
func (s *StatusRenderer) withStreamDetails(parts []string) []string {
	if s.isMuted {
		parts = append(parts, mutedBadge)
	}
	if info := formatStreamInfo(s.device.StreamInfo()); info != "" {
		parts = append(parts, info)
	}
	return parts
}

func (s *StatusRenderer) renderError() string {
	errMsg := s.device.LastError()
	if errMsg == "" {
		errMsg = "stream failed"
	}
	return "✗ " + tview.Escape(errMsg)
}

// signalMeter draws buffer health as five rising bars, unfilled bars flat.
func signalMeter(percent int) string {
	levels := []rune("▁▂▃▅▇")
	filled := min(max(percent, 0)*len(levels)/100, len(levels))

	var b strings.Builder
	for i, level := range levels {
		if i < filled {
			b.WriteRune(level)
		} else {
			b.WriteRune(levels[0])
		}
	}
	return b.String()
}

// formatStreamInfo renders the codec details the stream advertised, e.g.
// "MP3 128k 44.1kHz". Unknown values are left out.
func formatStreamInfo(info player.StreamInfo) string {
	if info.Format == "" {
		return ""
	}
	parts := []string{info.Format}
	if info.Bitrate > 0 {
		parts = append(parts, fmt.Sprintf("%dk", info.Bitrate))
	}
	if info.SampleRate > 0 {
		parts = append(parts, fmt.Sprintf("%.1fkHz", float64(info.SampleRate)/1000.0))
	}
	return strings.Join(parts, " ")
}

func joinParts(parts []string) string {
	return strings.Join(parts, " │ ")
}

func (ui *UI) getPlaybackHint(keyColor string) string {
	k := func(key string) string { return fmt.Sprintf("[%s]%s[-]", keyColor, key) }

	switch ui.device.State() {
	case player.StatePaused:
		return k("Space") + " resume  " + k("< >") + " station"
	case player.StatePlaying, player.StateBuffering, player.StateReconnecting:
		return k("Space") + " pause  " + k("< >") + " station"
	default:
		return k("Enter") + " tune in"
	}
}

func (ui *UI) getHelpText() string {
	keyColor := ui.colors.helpHotkey.String()
	k := func(key string) string { return fmt.Sprintf("[%s]%s[-]", keyColor, key) }

	muteText := "mute"
	if ui.isMuted {
		muteText = "unmute"
	}

	hints := []string{
		ui.getPlaybackHint(keyColor),
		k("/") + " name",
		k("c") + " country",
		k("m") + " " + muteText,
		k("?") + " keys",
		k("q") + " quit",
	}
	return " " + strings.Join(hints, "  ") + " "
}

func (ui *UI) handleFooterResize(width int) {
	isWide := width >= FooterBreakpoint
	wasWide := ui.lastFooterWidth >= FooterBreakpoint

	if ui.lastFooterWidth > 0 && isWide != wasWide && ui.contentLayout != nil {
		newHeight := FooterHeightWide
		if !isWide {
			newHeight = FooterHeightNarrow
		}
		ui.contentLayout.ResizeItem(ui.helpPanel, newHeight, 0)
	}
	ui.lastFooterWidth = width
}

func fillRect(screen tcell.Screen, x, y, width, height int, bg tcell.Color) {
	style := tcell.StyleDefault.Background(bg)
	for row := y; row < y+height; row++ {
		for col := x; col < x+width; col++ {
			screen.SetContent(col, row, ' ', nil, style)
		}
	}
}

// drawWideFooter puts key hints and status side by side.
func (ui *UI) drawWideFooter(screen tcell.Screen, x, y, width, height int, helpText, statusText string) {
	helpWidth := width / 2
	fillRect(screen, x, y, helpWidth, height, ui.colors.helpBackground)
	fillRect(screen, x+helpWidth, y, width-helpWidth, height, ui.colors.background)

	centerY := y + height/2
	tview.Print(screen, helpText, x, centerY, helpWidth, tview.AlignCenter, ui.colors.helpForeground)
	tview.Print(screen, statusText, x+helpWidth, centerY, width-helpWidth-2, tview.AlignRight, ui.colors.foreground)
}

// drawNarrowFooter stacks key hints above the status.
func (ui *UI) drawNarrowFooter(screen tcell.Screen, x, y, width, height int, helpText, statusText string) {
	helpHeight := max(height/2, 1)
	statusHeight := height - helpHeight
	fillRect(screen, x, y, width, helpHeight, ui.colors.helpBackground)
	fillRect(screen, x, y+helpHeight, width, statusHeight, ui.colors.background)

	tview.Print(screen, helpText, x, y+helpHeight/2, width, tview.AlignCenter, ui.colors.helpForeground)
	if statusHeight > 0 {
		tview.Print(screen, statusText, x, y+helpHeight+statusHeight/2, width-2, tview.AlignRight, ui.colors.foreground)
	}
}

func (ui *UI) createFooter() *tview.Box {
	box := tview.NewBox().SetBackgroundColor(ui.colors.background)

	box.SetDrawFunc(func(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
		ui.handleFooterResize(width)

		helpText := ui.getHelpText()
		statusText := " " + ui.statusRenderer.Render() + " "
		if notice := ui.activeNotice(); notice != "" {
			statusText = fmt.Sprintf(" [%s]%s[-] ", ui.colors.highlight.String(), tview.Escape(notice))
		}

		isWide := width >= FooterBreakpoint
		usedHeight := height
		if isWide && height > FooterHeightWide {
			usedHeight = FooterHeightWide
		}

		if isWide {
			ui.drawWideFooter(screen, x, y, width, usedHeight, helpText, statusText)
		} else {
			ui.drawNarrowFooter(screen, x, y, width, height, helpText, statusText)
		}

		return x, y, width, height
	})

	return box
}
