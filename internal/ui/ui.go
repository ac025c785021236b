package ui

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/glebovdev/radio-cli/internal/config"
	"github.com/glebovdev/radio-cli/internal/player"
	"github.com/glebovdev/radio-cli/internal/service"
	"github.com/glebovdev/radio-cli/internal/station"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

const (
	VolumeStep               = 5
	HeaderHeight             = 3
	SearchBarHeight          = 1
	FooterHeightWide         = 3 // Wide: 1 row with padding (top + text + bottom)
	FooterHeightNarrow       = 6 // Narrow: 2 rows × 3 lines each
	CoverWidth               = 26
	CoverHeight              = 12
	PlayerPanelHeight        = 12
	PlayerPanelHeightCompact = 4
	FooterBreakpoint         = 130 // Width threshold for responsive footer
	MinLoadingDisplayTime    = 1200 * time.Millisecond
	MinStatusDisplayTime     = 300 * time.Millisecond
	NoticeDisplayTime        = 5 * time.Second
)

// PauseIcon uses platform-specific character (Windows renders ⏸ as emoji)
var PauseIcon = func() string {
	if runtime.GOOS == "windows" {
		return "❚❚"
	}
	return "⏸"
}()

// DeviceStatus is the read-only view of the audio device the footer renders.
type DeviceStatus interface {
	State() player.DeviceState
	StreamInfo() player.StreamInfo
	RetryInfo() (current, max int)
	LastError() string
	BufferHealth() int
}

type searchMode int

const (
	searchByName searchMode = iota
	searchByCountry
)

type UI struct {
	app            *tview.Application
	stationService *service.StationService
	engine         *player.Engine
	device         DeviceStatus
	config         *config.Config
	startRandom    bool

	ctx    context.Context
	cancel context.CancelFunc

	page          service.Page
	panelKey      string
	panelExpanded bool
	playingKey    string
	notice        string
	noticeUntil   time.Time
	mode          searchMode

	stationList      *tview.Table
	searchInput      *tview.InputField
	presetBar        *tview.TextView
	helpPanel        *tview.Box
	contentLayout    *tview.Flex
	playerPanel      *tview.Flex
	currentTrackView *tview.TextView
	elapsedView      *tview.TextView
	statusView       *tview.TextView
	logoPanel        *tview.Image
	volumeView       *tview.TextView
	mainLayout       *tview.Flex
	loadingScreen    *tview.Flex
	loadingText      *tview.TextView
	progressBar      *tview.TextView
	pages            *tview.Pages
	stopUpdates      chan struct{}
	currentVolume    int
	isMuted          bool
	lastFooterWidth  int // Track width to detect layout changes
	mu               sync.Mutex
	animationFrame   int
	playingSpinner   *PlayingSpinner
	statusRenderer   *StatusRenderer
	colors           struct {
		background                  tcell.Color
		foreground                  tcell.Color
		borders                     tcell.Color
		highlight                   tcell.Color
		headerBackground            tcell.Color
		stationListHeaderBackground tcell.Color
		stationListHeaderForeground tcell.Color
		helpBackground              tcell.Color
		helpForeground              tcell.Color
		helpHotkey                  tcell.Color
		tagBackground               tcell.Color
		modalBackground             tcell.Color
		muted                       tcell.Color
	}
}

func NewUI(engine *player.Engine, device DeviceStatus, stationService *service.StationService, cfg *config.Config, startRandom bool) *UI {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	ui := &UI{
		app:            tview.NewApplication(),
		engine:         engine,
		device:         device,
		stationService: stationService,
		config:         cfg,
		startRandom:    startRandom,
		ctx:            ctx,
		cancel:         cancel,
		stopUpdates:    make(chan struct{}),
		currentVolume:  cfg.Volume,
	}

	ui.colors.background = config.GetColor(cfg.Theme.Background)
	ui.colors.foreground = config.GetColor(cfg.Theme.Foreground)
	ui.colors.borders = config.GetColor(cfg.Theme.Borders)
	ui.colors.highlight = config.GetColor(cfg.Theme.Highlight)
	ui.colors.headerBackground = config.GetColor(cfg.Theme.HeaderBackground)
	ui.colors.stationListHeaderBackground = config.GetColor(cfg.Theme.StationListHeaderBackground)
	ui.colors.stationListHeaderForeground = config.GetColor(cfg.Theme.StationListHeaderForeground)
	ui.colors.helpBackground = config.GetColor(cfg.Theme.HelpBackground)
	ui.colors.helpForeground = config.GetColor(cfg.Theme.HelpForeground)
	ui.colors.helpHotkey = config.GetColor(cfg.Theme.HelpHotkey)
	ui.colors.tagBackground = config.GetColor(cfg.Theme.StationListHeaderBackground)
	ui.colors.modalBackground = config.GetColor(cfg.Theme.ModalBackground)
	ui.colors.muted = config.GetColor(cfg.Theme.MutedVolume)

	engine.SetVolume(config.VolumeFraction(cfg.Volume))
	engine.SetExpanded(true)
	log.Debug().Msgf("Loaded volume from config: %d%%", cfg.Volume)

	ui.statusRenderer = NewStatusRenderer(device)
	ui.statusRenderer.SetPrimaryColor(ui.colors.highlight.String())

	return ui
}

func (ui *UI) SaveConfig() {
	ui.mu.Lock()
	if !ui.isMuted {
		ui.config.Volume = ui.currentVolume
	}
	if state := ui.engine.State(); state.HasStation {
		ui.config.LastStation = state.Station.Key()
	}
	ui.mu.Unlock()

	if err := ui.config.Save(); err != nil {
		log.Error().Err(err).Msg("Failed to save config")
	}
}

func (ui *UI) safeCloseChannel() {
	ui.mu.Lock()
	defer ui.mu.Unlock()

	if ui.stopUpdates != nil {
		select {
		case <-ui.stopUpdates:
			// Already closed
		default:
			close(ui.stopUpdates)
		}
		ui.stopUpdates = nil
	}
}

func (ui *UI) stop() {
	ui.SaveConfig()
	ui.cancel()
	ui.safeCloseChannel()
	ui.app.Stop()
}

// Shutdown stops the UI gracefully from external callers (e.g., signal handlers).
func (ui *UI) Shutdown() {
	ui.app.QueueUpdateDraw(func() {
		ui.stop()
	})
}

func (ui *UI) Run() error {
	ui.setupUI()
	ui.setupLoadingScreen()
	ui.app.SetRoot(ui.loadingScreen, true)
	ui.configureScreen()

	ui.engine.SetDiagnosticHandler(func(message string) {
		ui.app.QueueUpdateDraw(func() {
			ui.showNotice(message)
		})
	})
	ui.stationService.SetChangeHandler(func(page service.Page) {
		ui.app.QueueUpdateDraw(func() {
			ui.applyPage(page)
		})
	})

	go ui.engine.Run(ui.ctx)
	go ui.initAsync()

	return ui.app.Run()
}

func (ui *UI) configureScreen() {
	bgStyle := tcell.StyleDefault.Background(ui.colors.background)
	ui.app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		screen.SetStyle(bgStyle)
		screen.Clear()
		return false
	})

	var titleSet sync.Once
	ui.app.SetAfterDrawFunc(func(screen tcell.Screen) {
		titleSet.Do(func() { screen.SetTitle(config.AppName) })
	})
}

func (ui *UI) initialCountry() string {
	if country := strings.TrimSpace(ui.config.LastCountry); country != "" {
		return country
	}
	return config.DefaultCountry
}

func (ui *UI) initAsync() {
	if err := ui.loadInitialStations(); err != nil {
		ui.app.QueueUpdateDraw(func() {
			ui.handleInitialError(err)
		})
	}
}

func (ui *UI) setupLoadingScreen() {
	ui.loadingText = tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetText(fmt.Sprintf("Loading stations for %s... (1/2)", ui.initialCountry()))
	ui.loadingText.SetTextColor(ui.colors.foreground).
		SetBackgroundColor(ui.colors.background)

	ui.progressBar = tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetText(renderProgressBar(0))
	ui.progressBar.SetTextColor(ui.colors.highlight).
		SetBackgroundColor(ui.colors.background)

	content := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(ui.loadingText, 1, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(ui.progressBar, 1, 0, false)
	content.SetBackgroundColor(ui.colors.background)

	ui.loadingScreen = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(content, 3, 0, false).
		AddItem(nil, 0, 1, false)

	ui.loadingScreen.SetBackgroundColor(ui.colors.background)
}

func renderProgressBar(percent int) string {
	const width = 30
	percent = max(0, min(percent, 100))
	filled := (percent * width) / 100
	empty := width - filled
	return strings.Repeat("█", filled) + strings.Repeat("░", empty)
}

func (ui *UI) animateProgress(fromPercent, toPercent int, duration time.Duration) {
	steps := toPercent - fromPercent
	if steps <= 0 {
		return
	}
	stepDuration := duration / time.Duration(steps)
	lastBar := renderProgressBar(fromPercent)

	for p := fromPercent + 1; p <= toPercent; p++ {
		time.Sleep(stepDuration)
		if bar := renderProgressBar(p); bar != lastBar {
			ui.app.QueueUpdateDraw(func() {
				ui.progressBar.SetText(bar)
			})
			lastBar = bar
		}
	}
}

func (ui *UI) loadInitialStations() error {
	const totalStages = 2
	stagePercent := func(stage int) int { return (stage * 100) / totalStages }

	startTime := time.Now()
	country := ui.initialCountry()

	animDone := make(chan struct{})
	go func() {
		ui.animateProgress(stagePercent(0), stagePercent(1), MinStatusDisplayTime)
		close(animDone)
	}()

	page := ui.stationService.FetchByCountry(ui.ctx, country)
	<-animDone

	if page.Status == service.StatusFailed {
		return errors.New(page.Message)
	}
	log.Debug().Msgf("Loaded %d stations for %s in %v", len(page.Stations), country, time.Since(startTime))

	ui.app.QueueUpdateDraw(func() {
		ui.loadingText.SetText("Building interface... (2/2)")
	})
	ui.animateProgress(stagePercent(1), stagePercent(2), MinStatusDisplayTime)

	// Floor, not ceiling: wait only if real work finished early.
	if elapsed := time.Since(startTime); elapsed < MinLoadingDisplayTime {
		time.Sleep(MinLoadingDisplayTime - elapsed)
	}
	log.Debug().Msgf("Total loading time: %v", time.Since(startTime))

	ui.app.QueueUpdateDraw(func() {
		ui.app.SetRoot(ui.pages, true).EnableMouse(true)
		ui.app.SetFocus(ui.stationList)
		ui.startPlayingAnimation()

		if ui.startRandom {
			ui.randomStation()
			return
		}

		if ui.config.LastStation == "" {
			ui.selectAndShowStation(0)
			return
		}

		index := indexByKey(ui.page.Stations, ui.config.LastStation)
		if index < 0 {
			log.Debug().Msgf("Last station '%s' not found, showing first station", ui.config.LastStation)
			ui.selectAndShowStation(0)
			return
		}

		if ui.config.Autostart {
			log.Debug().Msgf("Autostart enabled, playing last station: %s", ui.config.LastStation)
			ui.stationList.Select(index+1, 0)
			ui.onStationSelected(index)
		} else {
			ui.selectAndShowStation(index)
		}
	})

	return nil
}

func (ui *UI) setupUI() {
	header := ui.createHeader()

	ui.playerPanel = tview.NewFlex().SetDirection(tview.FlexRow)
	ui.playerPanel.SetBackgroundColor(ui.colors.background)

	ui.stationList = ui.createStationListTable()
	searchBar := ui.createSearchBar()

	ui.helpPanel = ui.createFooter()

	ui.contentLayout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(header, HeaderHeight, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(ui.playerPanel, PlayerPanelHeight, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(searchBar, SearchBarHeight, 0, false).
		AddItem(ui.stationList, 0, 1, true).
		AddItem(ui.helpPanel, FooterHeightWide, 0, false)
	ui.contentLayout.SetBackgroundColor(ui.colors.background)

	wrapper := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(nil, 3, 0, false).
		AddItem(ui.contentLayout, 0, 1, true).
		AddItem(nil, 3, 0, false)
	wrapper.SetBackgroundColor(ui.colors.background)

	ui.mainLayout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 1, 0, false).
		AddItem(wrapper, 0, 1, true).
		AddItem(nil, 1, 0, false)
	ui.mainLayout.SetBackgroundColor(ui.colors.background)

	ui.pages = tview.NewPages().
		AddPage("main", ui.mainLayout, true, true)
	ui.pages.SetBackgroundColor(ui.colors.background)

	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if ui.pages.HasPage("modal") || ui.pages.HasPage("error-modal") {
			return event
		}
		if ui.app.GetFocus() == ui.searchInput {
			return event
		}
		return ui.globalInputHandler(event)
	})
}

func (ui *UI) createHeader() tview.Primitive {
	titleView := tview.NewTextView()
	titleView.SetText(" " + config.AppName)
	titleView.SetTextAlign(tview.AlignLeft)
	titleView.SetTextColor(ui.colors.foreground)
	titleView.SetBackgroundColor(ui.colors.headerBackground)

	versionView := tview.NewTextView()
	versionView.SetText("v" + config.AppVersion + " ")
	versionView.SetTextAlign(tview.AlignRight)
	versionView.SetTextColor(ui.colors.foreground)
	versionView.SetBackgroundColor(ui.colors.headerBackground)

	textFlex := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(titleView, 0, 1, false).
		AddItem(versionView, 10, 0, false)
	textFlex.SetBackgroundColor(ui.colors.headerBackground)

	topSpacer := tview.NewBox().SetBackgroundColor(ui.colors.headerBackground)
	bottomSpacer := tview.NewBox().SetBackgroundColor(ui.colors.headerBackground)
	leftSpacer := tview.NewBox().SetBackgroundColor(ui.colors.headerBackground)
	rightSpacer := tview.NewBox().SetBackgroundColor(ui.colors.headerBackground)

	textWithPadding := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(leftSpacer, 1, 0, false).
		AddItem(textFlex, 0, 1, false).
		AddItem(rightSpacer, 1, 0, false)
	textWithPadding.SetBackgroundColor(ui.colors.headerBackground)

	headerFlex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(topSpacer, 1, 0, false).
		AddItem(textWithPadding, 1, 0, false).
		AddItem(bottomSpacer, 1, 0, false)
	headerFlex.SetBackgroundColor(ui.colors.headerBackground)

	return headerFlex
}

func (ui *UI) updateLogoPanel(s station.Station) {
	if ui.logoPanel == nil {
		return
	}
	logoPanel := ui.logoPanel
	key := s.Key()

	go func() {
		img, err := ui.stationService.LoadImage(s.Logo)
		if err != nil {
			if !errors.Is(err, service.ErrNoLogo) {
				log.Debug().Err(err).Msgf("Failed to load logo for %s", s.Name)
			}
			ui.app.QueueUpdateDraw(func() {
				logoPanel.SetDrawFunc(func(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
					tview.Print(screen, "no logo", x, y+height/2, width, tview.AlignCenter, ui.colors.borders)
					return x, y, width, height
				})
			})
			return
		}

		ui.app.QueueUpdateDraw(func() {
			if ui.panelKey == key {
				logoPanel.SetImage(img)
			}
		})
	}()
}

// onStationSelected plays the station at index of the displayed list, which
// becomes the queue for next/previous.
func (ui *UI) onStationSelected(index int) {
	if index < 0 || index >= len(ui.page.Stations) {
		return
	}

	st := ui.page.Stations[index]
	state := ui.engine.State()
	if state.HasStation && state.IsPlaying && state.Station.Key() == st.Key() {
		return
	}

	queue := append([]station.Station(nil), ui.page.Stations...)
	ui.showStation(st)

	go func() {
		log.Info().Msgf("Starting playback for station: %s", st.Name)
		err := ui.engine.PlayStation(ui.ctx, st, queue)
		ui.handlePlayResult(err)
		ui.SaveConfig()
	}()
}

func (ui *UI) handlePlayResult(err error) {
	switch {
	case err == nil:
	case errors.Is(err, player.ErrSuperseded), errors.Is(err, context.Canceled):
		log.Debug().Msg("Play request superseded")
	case errors.Is(err, player.ErrNoPlayableStream):
		// Already reported through the diagnostic handler.
	default:
		log.Error().Err(err).Msg("Failed to play station")
		ui.app.QueueUpdateDraw(func() {
			ui.showError(err)
		})
	}
}

func (ui *UI) showStation(st station.Station) {
	expanded := ui.engine.State().Expanded
	if ui.panelKey == st.Key() && ui.panelExpanded == expanded && ui.playerPanel.GetItemCount() > 0 {
		return
	}
	ui.panelKey = st.Key()
	ui.panelExpanded = expanded

	ui.playerPanel.Clear()
	if expanded {
		ui.contentLayout.ResizeItem(ui.playerPanel, PlayerPanelHeight, 0)
		ui.playerPanel.AddItem(ui.createContentPanel(st), 0, 1, false)
		ui.updateLogoPanel(st)
	} else {
		ui.contentLayout.ResizeItem(ui.playerPanel, PlayerPanelHeightCompact, 0)
		ui.playerPanel.AddItem(ui.createCompactPanel(st), 0, 1, false)
	}
	ui.updateTrackInfo()
}

func (ui *UI) toggleExpanded() {
	ui.engine.ToggleExpanded()
	if state := ui.engine.State(); state.HasStation {
		ui.showStation(state.Station)
		return
	}
	if row, _ := ui.stationList.GetSelection(); row > 0 && row <= len(ui.page.Stations) {
		ui.showStation(ui.page.Stations[row-1])
	}
}

func (ui *UI) createTags(tags []string) *tview.Flex {
	container := tview.NewFlex().SetDirection(tview.FlexColumn)
	container.SetBackgroundColor(ui.colors.background)

	container.AddItem(tview.NewBox().SetBackgroundColor(ui.colors.background), 1, 0, false)

	if len(tags) == 0 {
		noTags := tview.NewTextView()
		noTags.SetText("N/A")
		noTags.SetTextColor(ui.colors.foreground)
		noTags.SetBackgroundColor(ui.colors.background)
		container.AddItem(noTags, 3, 0, false)
		return container
	}

	const maxTags = 5
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}

	for i, t := range tags {
		tag := tview.NewTextView()
		tag.SetText(" " + t + " ")
		tag.SetTextColor(ui.colors.foreground)
		tag.SetBackgroundColor(ui.colors.tagBackground)
		tag.SetTextAlign(tview.AlignCenter)

		container.AddItem(tag, tview.TaggedStringWidth(t)+2, 0, false)

		if i < len(tags)-1 {
			spacer := tview.NewBox().SetBackgroundColor(ui.colors.background)
			container.AddItem(spacer, 1, 0, false)
		}
	}

	container.AddItem(tview.NewBox().SetBackgroundColor(ui.colors.background), 0, 1, false)

	return container
}

func (ui *UI) label(text string) *tview.TextView {
	view := tview.NewTextView()
	view.SetText(" " + text)
	view.SetTextColor(ui.colors.foreground)
	view.SetBackgroundColor(ui.colors.background)
	view.SetWrap(false)
	return view
}

func (ui *UI) highlighted(text string, wrap bool) *tview.TextView {
	view := tview.NewTextView()
	view.SetDynamicColors(true)
	view.SetText(fmt.Sprintf(" [%s]%s[-]", ui.colors.highlight.String(), tview.Escape(text)))
	view.SetTextColor(ui.colors.highlight)
	view.SetBackgroundColor(ui.colors.background)
	view.SetWrap(wrap)
	view.SetTextStyle(tcell.StyleDefault.Background(ui.colors.background).Attributes(tcell.AttrBold))
	return view
}

func (ui *UI) newTrackViews() {
	ui.currentTrackView = ui.highlighted("", false)
	ui.elapsedView = tview.NewTextView()
	ui.elapsedView.SetTextColor(ui.colors.foreground)
	ui.elapsedView.SetBackgroundColor(ui.colors.background)
	ui.statusView = tview.NewTextView()
	ui.statusView.SetDynamicColors(true)
	ui.statusView.SetBackgroundColor(ui.colors.background)
}

func (ui *UI) createContentPanel(st station.Station) *tview.Flex {
	ui.logoPanel = tview.NewImage()
	ui.logoPanel.SetBackgroundColor(ui.colors.background)
	ui.logoPanel.SetAlign(tview.AlignLeft, tview.AlignTop)

	ui.newTrackViews()

	country := st.Country
	if country == "" {
		country = "Unknown"
	}

	infoContent := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(ui.label("Station:"), 1, 0, false).
		AddItem(ui.highlighted(st.Name, false), 1, 0, false).
		AddItem(ui.statusView, 1, 0, false).
		AddItem(ui.label("Playing:"), 1, 0, false).
		AddItem(ui.currentTrackView, 1, 0, false).
		AddItem(ui.elapsedView, 1, 0, false).
		AddItem(ui.label("Country:"), 1, 0, false).
		AddItem(ui.label(country), 1, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(ui.label("Tags:"), 1, 0, false).
		AddItem(ui.createTags(st.TagList()), 1, 0, false).
		AddItem(tview.NewBox().SetBackgroundColor(ui.colors.background), 0, 1, false)
	infoContent.SetBackgroundColor(ui.colors.background)

	ui.volumeView = ui.createGraphicalVolumeBar()

	// Wrap logo in vertical flex to constrain height
	logoWrapper := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(ui.logoPanel, CoverHeight, 0, false).
		AddItem(nil, 0, 1, false)
	logoWrapper.SetBackgroundColor(ui.colors.background)

	contentFlex := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(logoWrapper, CoverWidth, 0, false).
		AddItem(infoContent, 0, 1, false).
		AddItem(ui.volumeView, 7, 0, false)
	contentFlex.SetBackgroundColor(ui.colors.background)

	return ui.padded(contentFlex)
}

func (ui *UI) createCompactPanel(st station.Station) *tview.Flex {
	ui.logoPanel = nil
	ui.volumeView = nil
	ui.newTrackViews()

	info := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(ui.highlighted(st.Name, false), 1, 0, false).
		AddItem(ui.currentTrackView, 1, 0, false).
		AddItem(ui.elapsedView, 1, 0, false).
		AddItem(ui.statusView, 1, 0, false)
	info.SetBackgroundColor(ui.colors.background)

	return ui.padded(info)
}

func (ui *UI) padded(content tview.Primitive) *tview.Flex {
	contentWithPadding := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(nil, 4, 0, false).
		AddItem(content, 0, 1, false).
		AddItem(nil, 4, 0, false)
	contentWithPadding.SetBackgroundColor(ui.colors.background)
	return contentWithPadding
}

type PlayingSpinner struct {
	Frames []string
	FPS    time.Duration
}

func NewPlayingSpinner() *PlayingSpinner {
	return &PlayingSpinner{
		Frames: []string{"⣾ ", "⣽ ", "⣻ ", "⢿ ", "⡿ ", "⣟ ", "⣯ ", "⣷ "},
		FPS:    time.Second / 10,
	}
}

func (ui *UI) getPlayingIndicator() string {
	if ui.playingSpinner == nil {
		ui.playingSpinner = NewPlayingSpinner()
	}

	frameIndex := ui.animationFrame % len(ui.playingSpinner.Frames)
	return ui.playingSpinner.Frames[frameIndex]
}

// startPlayingAnimation runs the redraw loop that mirrors engine state into
// the widgets until the UI stops.
func (ui *UI) startPlayingAnimation() {
	if ui.playingSpinner == nil {
		ui.playingSpinner = NewPlayingSpinner()
	}

	ui.mu.Lock()
	stop := ui.stopUpdates
	ui.mu.Unlock()
	if stop == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(ui.playingSpinner.FPS)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ui.statusRenderer.AdvanceAnimation()

				ui.app.QueueUpdateDraw(func() {
					ui.animationFrame++
					ui.syncWithEngine()
				})
			}
		}
	}()
}

// syncWithEngine reflects station changes made by the engine itself, such as
// auto-advance, in the list and the player panel.
func (ui *UI) syncWithEngine() {
	state := ui.engine.State()

	key := ""
	if state.HasStation {
		key = state.Station.Key()
	}
	if key != ui.playingKey {
		previous := ui.playingKey
		ui.playingKey = key
		if idx := indexByKey(ui.page.Stations, previous); idx >= 0 {
			ui.setStationRow(ui.stationList, idx+1, idx)
		}
		if idx := indexByKey(ui.page.Stations, key); idx >= 0 {
			ui.stationList.Select(idx+1, 0)
		}
		if state.HasStation {
			ui.showStation(state.Station)
		}
	}

	ui.updateStationListPlayingIndicator()
	ui.updateTrackInfo()
}

func (ui *UI) updateTrackInfo() {
	if ui.currentTrackView == nil {
		return
	}
	state := ui.engine.State()
	if !state.HasStation || state.Station.Key() != ui.panelKey {
		ui.currentTrackView.SetText("")
		ui.elapsedView.SetText("")
		ui.statusView.SetText("")
		return
	}

	track := state.NowPlaying
	if track == "" {
		track = "Live broadcast"
	}
	ui.currentTrackView.SetText(fmt.Sprintf(" [%s]%s[-]",
		ui.colors.highlight.String(),
		tview.Escape(track)))

	ui.elapsedView.SetText(" " + formatElapsed(state.Elapsed))

	if state.ErrorMessage != "" {
		ui.statusView.SetText(fmt.Sprintf(" [%s]%s[-]", ui.colors.muted.String(), tview.Escape(state.ErrorMessage)))
	} else {
		ui.statusView.SetText("")
	}
}

// formatElapsed renders a playback position as m:ss or h:mm:ss.
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func (ui *UI) showNotice(message string) {
	ui.notice = message
	ui.noticeUntil = time.Now().Add(NoticeDisplayTime)
}

func (ui *UI) activeNotice() string {
	if ui.notice == "" || time.Now().After(ui.noticeUntil) {
		return ""
	}
	return ui.notice
}

func (ui *UI) togglePlayback() {
	state := ui.engine.State()
	if state.HasStation && state.Source != "" {
		go func() {
			ui.handlePlayResult(ui.engine.PlayPause(ui.ctx))
		}()
		return
	}

	row, _ := ui.stationList.GetSelection()
	if row > 0 && row <= len(ui.page.Stations) {
		ui.onStationSelected(row - 1)
	}
}

func (ui *UI) globalInputHandler(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyRune:
		r := event.Rune()
		if country, ok := presetForRune(r); ok {
			ui.loadCountry(country)
			return nil
		}
		switch r {
		case 'q', 'Q':
			ui.stop()
			return nil
		case ' ':
			ui.togglePlayback()
			return nil
		case '>':
			ui.nextStation()
			return nil
		case '<':
			ui.prevStation()
			return nil
		case 'r', 'R':
			ui.randomStation()
			return nil
		case 'f', 'F':
			ui.toggleFavorite()
			return nil
		case '+', '=':
			ui.adjustVolume(VolumeStep)
			return nil
		case '-', '_':
			ui.adjustVolume(-VolumeStep)
			return nil
		case 'm', 'M':
			ui.toggleMute()
			return nil
		case 'e', 'E':
			ui.toggleExpanded()
			return nil
		case 'n', 'N':
			ui.loadMore()
			return nil
		case '/':
			ui.focusSearch(searchByName)
			return nil
		case 'c', 'C':
			ui.focusSearch(searchByCountry)
			return nil
		case '?':
			ui.showHelpModal()
			return nil
		case 'a', 'A':
			ui.showAboutModal()
			return nil
		}
	case tcell.KeyEnter:
		row, _ := ui.stationList.GetSelection()
		switch {
		case row > 0 && row <= len(ui.page.Stations):
			ui.onStationSelected(row - 1)
		case isLoadMoreRow(row, ui.page):
			ui.loadMore()
		}
		return nil
	case tcell.KeyEscape:
		ui.stop()
		return nil
	case tcell.KeyRight:
		// Right arrow - volume up (hidden shortcut)
		ui.adjustVolume(VolumeStep)
		return nil
	case tcell.KeyLeft:
		// Left arrow - volume down (hidden shortcut)
		ui.adjustVolume(-VolumeStep)
		return nil
	}
	return event
}
