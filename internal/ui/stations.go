package ui

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/glebovdev/radio-cli/internal/config"
	"github.com/glebovdev/radio-cli/internal/player"
	"github.com/glebovdev/radio-cli/internal/service"
	"github.com/glebovdev/radio-cli/internal/station"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

const (
	loadMoreText = "Load more stations (n)"
	maxNameWidth = 35
)

func (ui *UI) createStationListTable() *tview.Table {
	table := tview.NewTable().
		SetBorders(false).
		SetSeparator(' ').
		SetSelectable(true, false).
		SetFixed(1, 0)

	table.SetBorder(true).
		SetTitle("Stations").
		SetBorderColor(ui.colors.borders).
		SetTitleColor(ui.colors.foreground).
		SetBackgroundColor(ui.colors.background).
		SetBorderPadding(1, 0, 1, 1)

	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(ui.colors.background).
		Background(ui.colors.highlight))

	ui.setHeaderRow(table)

	table.SetSelectionChangedFunc(func(row, column int) {
		if row > 0 && row <= len(ui.page.Stations) && !ui.engine.State().HasStation {
			ui.showStation(ui.page.Stations[row-1])
		}
	})

	return table
}

func (ui *UI) setHeaderRow(table *tview.Table) {
	header := func(text string) *tview.TableCell {
		return tview.NewTableCell(text).
			SetTextColor(ui.colors.stationListHeaderForeground).
			SetBackgroundColor(ui.colors.stationListHeaderBackground).
			SetSelectable(false)
	}

	table.SetCell(0, 0, header(" ").SetMaxWidth(2))
	table.SetCell(0, 1, header(" ").SetMaxWidth(2))
	table.SetCell(0, 2, header("Name").SetExpansion(1))
	table.SetCell(0, 3, header("Tags").SetExpansion(1))
	table.SetCell(0, 4, header("Country").SetAlign(tview.AlignRight))
}

func (ui *UI) createSearchBar() *tview.Flex {
	ui.presetBar = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	ui.presetBar.SetBackgroundColor(ui.colors.background)
	ui.presetBar.SetTextColor(ui.colors.foreground)
	ui.updatePresetBar()

	ui.searchInput = tview.NewInputField().
		SetFieldWidth(0)
	ui.searchInput.SetBackgroundColor(ui.colors.background)
	ui.searchInput.SetLabelColor(ui.colors.foreground)
	ui.searchInput.SetFieldBackgroundColor(ui.colors.stationListHeaderBackground)
	ui.searchInput.SetFieldTextColor(ui.colors.highlight)
	ui.setSearchMode(searchByName)

	ui.searchInput.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			query := strings.TrimSpace(ui.searchInput.GetText())
			if query == "" {
				break
			}
			if ui.mode == searchByCountry {
				ui.loadCountry(query)
			} else {
				ui.searchByName(query)
			}
		case tcell.KeyEscape:
		default:
			return
		}
		ui.app.SetFocus(ui.stationList)
	})

	bar := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(ui.searchInput, 0, 1, false).
		AddItem(nil, 2, 0, false).
		AddItem(ui.presetBar, 0, 1, false)
	bar.SetBackgroundColor(ui.colors.background)

	return bar
}

func (ui *UI) setSearchMode(mode searchMode) {
	ui.mode = mode
	if mode == searchByCountry {
		ui.searchInput.SetLabel(" Country: ")
		ui.searchInput.SetPlaceholder("e.g. Argentina")
	} else {
		ui.searchInput.SetLabel(" Search: ")
		ui.searchInput.SetPlaceholder("station name")
	}
}

func (ui *UI) focusSearch(mode searchMode) {
	ui.setSearchMode(mode)
	ui.searchInput.SetText("")
	ui.app.SetFocus(ui.searchInput)
}

func (ui *UI) updatePresetBar() {
	active := ""
	if ui.page.Kind == service.KindCountry {
		active = ui.page.Query
	}
	ui.presetBar.SetText(renderPresets(config.PresetCountries, active, ui.colors.helpHotkey.String(), ui.colors.highlight.String()))
}

// renderPresets lists the preset countries with their number keys, marking
// the active one.
func renderPresets(countries []string, active, keyColor, activeColor string) string {
	parts := make([]string, 0, len(countries))
	for i, country := range countries {
		name := country
		if strings.EqualFold(country, active) {
			name = fmt.Sprintf("[%s::b]%s[-::-]", activeColor, country)
		}
		parts = append(parts, fmt.Sprintf("[%s]%d[-] %s", keyColor, i+1, name))
	}
	return strings.Join(parts, "  ")
}

// presetForRune maps the number keys 1..9 onto the preset countries.
func presetForRune(r rune) (string, bool) {
	if r < '1' || r > '9' {
		return "", false
	}
	idx := int(r - '1')
	if idx >= len(config.PresetCountries) {
		return "", false
	}
	return config.PresetCountries[idx], true
}

func (ui *UI) loadCountry(country string) {
	go func() {
		page := ui.stationService.FetchByCountry(ui.ctx, country)
		if page.Status == service.StatusOK && page.Query == country {
			ui.mu.Lock()
			ui.config.LastCountry = country
			ui.mu.Unlock()
			ui.SaveConfig()
		}
	}()
}

func (ui *UI) searchByName(name string) {
	go ui.stationService.FetchByName(ui.ctx, name)
}

func (ui *UI) loadMore() {
	if !ui.page.HasMore || ui.page.Loading {
		return
	}
	go ui.stationService.FetchMore()
}

// applyPage redraws the table from a service snapshot. The selection is kept
// on the same station when it is still listed.
func (ui *UI) applyPage(page service.Page) {
	selectedKey := ""
	if row, _ := ui.stationList.GetSelection(); row > 0 && row <= len(ui.page.Stations) {
		selectedKey = ui.page.Stations[row-1].Key()
	}

	ui.page = page
	ui.refreshStationTable()
	ui.updatePresetBar()

	if idx := indexByKey(page.Stations, selectedKey); idx >= 0 {
		ui.stationList.Select(idx+1, 0)
	} else if len(page.Stations) > 0 {
		ui.stationList.Select(1, 0)
	}
}

func (ui *UI) refreshStationTable() {
	table := ui.stationList
	table.Clear()
	ui.setHeaderRow(table)

	for i := range ui.page.Stations {
		ui.setStationRow(table, i+1, i)
	}

	next := len(ui.page.Stations) + 1
	switch {
	case ui.page.Loading:
		ui.setInfoRow(table, next, "Loading stations...")
	case ui.page.Message != "":
		ui.setInfoRow(table, next, ui.page.Message)
	case ui.page.HasMore:
		table.SetCell(next, 2, tview.NewTableCell(loadMoreText).
			SetTextColor(ui.colors.highlight).
			SetExpansion(2))
	}

	table.SetTitle(listTitle(ui.page))

	log.Debug().Int("count", len(ui.page.Stations)).Msg("Station table refreshed")
}

func (ui *UI) setInfoRow(table *tview.Table, row int, text string) {
	table.SetCell(row, 2, tview.NewTableCell(text).
		SetTextColor(ui.colors.foreground).
		SetSelectable(false).
		SetExpansion(2))
}

// listTitle describes what the table is showing.
func listTitle(page service.Page) string {
	var subject string
	switch page.Kind {
	case service.KindCountry:
		subject = "Stations in " + page.Query
	case service.KindName:
		subject = fmt.Sprintf("Stations named %q", page.Query)
	default:
		subject = "Stations"
	}

	switch {
	case page.Loading:
		return subject + " (loading)"
	case page.HasMore:
		return fmt.Sprintf("%s (%d+)", subject, len(page.Stations))
	default:
		return fmt.Sprintf("%s (%d)", subject, len(page.Stations))
	}
}

// isLoadMoreRow reports whether row is the trailing "load more" entry.
func isLoadMoreRow(row int, page service.Page) bool {
	return page.HasMore && !page.Loading && row == len(page.Stations)+1
}

func indexByKey(stations []station.Station, key string) int {
	if key == "" {
		return -1
	}
	for i, st := range stations {
		if st.Key() == key {
			return i
		}
	}
	return -1
}

func (ui *UI) setStationRow(table *tview.Table, row int, stationIndex int) {
	if stationIndex < 0 || stationIndex >= len(ui.page.Stations) {
		return
	}
	s := ui.page.Stations[stationIndex]

	favIcon := " "
	if ui.config.IsFavorite(s.Key()) {
		favIcon = "★"
	}
	table.SetCell(row, 0, tview.NewTableCell(favIcon).
		SetTextColor(ui.colors.foreground).
		SetMaxWidth(2))

	playIcon := " "
	if s.Key() == ui.playingKey {
		if ui.device.State() == player.StatePaused {
			playIcon = PauseIcon
		} else {
			playIcon = "➤"
		}
	}
	table.SetCell(row, 1, tview.NewTableCell(playIcon).
		SetTextColor(ui.colors.foreground).
		SetMaxWidth(2))

	table.SetCell(row, 2, tview.NewTableCell(tview.Escape(s.Name)).
		SetTextColor(ui.colors.foreground).
		SetMaxWidth(maxNameWidth).
		SetExpansion(2))

	table.SetCell(row, 3, tview.NewTableCell(tview.Escape(strings.Join(s.TagList(), ", "))).
		SetTextColor(ui.colors.foreground).
		SetMaxWidth(27).
		SetExpansion(1))

	table.SetCell(row, 4, tview.NewTableCell(tview.Escape(s.Country)).
		SetTextColor(ui.colors.foreground).
		SetAlign(tview.AlignRight))
}

func (ui *UI) nextStation() {
	go func() {
		ui.handlePlayResult(ui.engine.PlayNext(ui.ctx))
	}()
}

func (ui *UI) prevStation() {
	go func() {
		ui.handlePlayResult(ui.engine.PlayPrev(ui.ctx))
	}()
}

func (ui *UI) randomStation() {
	stationCount := len(ui.page.Stations)
	if stationCount == 0 {
		return
	}

	randomIndex := rand.Intn(stationCount)
	ui.stationList.Select(randomIndex+1, 0)
	ui.onStationSelected(randomIndex)
}

func (ui *UI) selectAndShowStation(index int) {
	if index < 0 || index >= len(ui.page.Stations) {
		return
	}

	st := ui.page.Stations[index]
	ui.stationList.Select(index+1, 0)
	ui.showStation(st)

	log.Debug().Msgf("Showing station info (without playing): %s", st.Name)
}

func (ui *UI) toggleFavorite() {
	row, _ := ui.stationList.GetSelection()
	if row <= 0 || row > len(ui.page.Stations) {
		return
	}

	selectedStation := ui.page.Stations[row-1]
	key := selectedStation.Key()

	ui.mu.Lock()
	ui.config.ToggleFavorite(key)
	isFavorite := ui.config.IsFavorite(key)
	ui.mu.Unlock()

	if favCell := ui.stationList.GetCell(row, 0); favCell != nil {
		if isFavorite {
			favCell.SetText("★")
		} else {
			favCell.SetText(" ")
		}
	}

	go ui.SaveConfig()

	log.Debug().Msgf("Toggled favorite for station: %s", selectedStation.Name)
}

func (ui *UI) updateStationListPlayingIndicator() {
	idx := indexByKey(ui.page.Stations, ui.playingKey)
	if idx < 0 {
		return
	}
	row := idx + 1
	s := ui.page.Stations[idx]

	state := ui.device.State()
	if state == player.StateIdle {
		ui.setStationRow(ui.stationList, row, idx)
		return
	}

	if playCell := ui.stationList.GetCell(row, 1); playCell != nil {
		if state == player.StatePaused {
			playCell.SetText(PauseIcon)
		} else {
			playCell.SetText("➤")
		}
	}

	nameCell := ui.stationList.GetCell(row, 2)
	if nameCell == nil {
		return
	}

	indicator := ""
	if state != player.StatePaused {
		indicator = ui.getPlayingIndicator()
	}
	nameCell.SetText(tview.Escape(truncateName(s.Name, maxNameWidth-len([]rune(indicator))-1)) + " " + indicator)
}

// truncateName shortens name to at most limit runes, ending in "..." when cut.
func truncateName(name string, limit int) string {
	runes := []rune(name)
	if len(runes) <= limit {
		return name
	}
	if limit <= 3 {
		return string(runes[:max(limit, 0)])
	}
	return string(runes[:limit-3]) + "..."
}
