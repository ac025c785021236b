package ui

import (
	"fmt"
	"strings"

	"github.com/glebovdev/radio-cli/internal/config"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

const volumeBarRows = 10

// volumeBarText draws a vertical meter with volumeBarRows cells. The percent
// label sits on the top filled cell, or next to "min" when nothing is filled.
// A muted meter keeps showing the level it will restore, struck through.
func volumeBarText(percent int, muted bool, fillColor, emptyColor string) string {
	percent = config.ClampVolume(percent)
	filled := percent * volumeBarRows / config.MaxVolume

	label := fmt.Sprintf("%3d%%", percent)
	if muted {
		label = "[::s]" + label + "[::-]"
	}

	rows := make([]string, 0, volumeBarRows+2)
	rows = append(rows, fmt.Sprintf("[%s]    max[-]", emptyColor))
	for row := volumeBarRows; row > 0; row-- {
		switch {
		case row > filled:
			rows = append(rows, fmt.Sprintf("[%s]     ░░[-]", emptyColor))
		case row == filled:
			rows = append(rows, fmt.Sprintf("[%s]%s ██[-]", fillColor, label))
		default:
			rows = append(rows, fmt.Sprintf("[%s]     ██[-]", fillColor))
		}
	}
	if filled == 0 {
		rows = append(rows, fmt.Sprintf("[%s]%s min[-]", fillColor, label))
	} else {
		rows = append(rows, fmt.Sprintf("[%s]    min[-]", emptyColor))
	}
	return strings.Join(rows, "\n")
}

func (ui *UI) createGraphicalVolumeBar() *tview.TextView {
	view := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignRight)
	view.SetBackgroundColor(ui.colors.background)
	ui.volumeView = view
	ui.updateVolumeDisplay()
	return view
}

func (ui *UI) updateVolumeDisplay() {
	if ui.volumeView == nil {
		return
	}

	ui.mu.Lock()
	level, muted := ui.currentVolume, ui.isMuted
	if muted {
		level = ui.config.Volume
	}
	ui.mu.Unlock()

	fill := ui.colors.highlight.String()
	if muted {
		fill = ui.colors.muted.String()
	}
	ui.volumeView.SetText(volumeBarText(level, muted, fill, ui.colors.foreground.String()))
}

// setVolumeState records the level and mute flag, then pushes the effective
// level to the engine and persists it.
func (ui *UI) setVolumeState(level int, muted bool) {
	ui.mu.Lock()
	ui.currentVolume = level
	ui.isMuted = muted
	ui.statusRenderer.SetMuted(muted)
	ui.mu.Unlock()

	ui.applyVolume(level)
	go ui.SaveConfig()
}

func (ui *UI) adjustVolume(delta int) {
	ui.mu.Lock()
	muted, current, saved := ui.isMuted, ui.currentVolume, ui.config.Volume
	ui.mu.Unlock()

	// Any volume key while muted brings the station back at its saved level.
	if muted {
		ui.setVolumeState(saved, false)
		log.Debug().Msgf("Unmuted by volume key, back to %d%%", saved)
		return
	}

	level := config.ClampVolume(current + delta)
	ui.setVolumeState(level, false)
	log.Debug().Msgf("Volume %d%%", level)
}

func (ui *UI) applyVolume(percent int) {
	ui.engine.SetVolume(config.VolumeFraction(percent))
	ui.updateVolumeDisplay()
}

func (ui *UI) toggleMute() {
	ui.mu.Lock()
	muted, current := ui.isMuted, ui.currentVolume
	if !muted {
		restore := current
		if restore == 0 {
			restore = config.DefaultVolume
		}
		ui.config.Volume = restore
	}
	saved := ui.config.Volume
	ui.mu.Unlock()

	if muted {
		ui.setVolumeState(saved, false)
		log.Debug().Msgf("Unmuted, back to %d%%", saved)
		return
	}
	ui.setVolumeState(0, true)
	log.Debug().Msgf("Muted, will restore %d%%", saved)
}
