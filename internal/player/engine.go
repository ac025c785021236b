package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glebovdev/radio-cli/internal/station"
	"github.com/rs/zerolog/log"
)

const (
	DefaultVolume = 0.8

	msgStationUnavailable = "This station is unavailable. Skipping to the next one..."
)

var (
	// ErrNoPlayableStream is returned when every candidate URL of a station failed.
	ErrNoPlayableStream = errors.New("no playable stream")
	// ErrSuperseded is returned by a play request that lost to a newer one.
	ErrSuperseded = errors.New("play request superseded")
)

// Resolver turns an indirect stream URL into a directly playable one.
type Resolver interface {
	Resolve(ctx context.Context, url string) string
}

// State is a point-in-time copy of the engine state for presentation.
type State struct {
	Station      station.Station
	HasStation   bool
	Cursor       int
	QueueLen     int
	IsPlaying    bool
	Volume       float64
	Expanded     bool
	ErrorMessage string
	Elapsed      time.Duration
	NowPlaying   string
	Source       string
}

// Engine owns the playback queue and the audio device. Every play request
// takes a new token, and continuations of older requests are discarded so
// the most recent intent wins.
type Engine struct {
	device   Device
	resolver Resolver

	mu           sync.Mutex
	queue        *Queue
	isPlaying    bool
	volume       float64
	expanded     bool
	errorMessage string
	elapsed      time.Duration
	nowPlaying   string
	source       string
	token        uint64
	failStreak   int
	onDiagnostic func(string)

	skip chan uint64
}

func NewEngine(device Device, resolver Resolver) *Engine {
	e := &Engine{
		device:   device,
		resolver: resolver,
		queue:    NewQueue(),
		volume:   DefaultVolume,
		skip:     make(chan uint64, 1),
	}
	device.SetVolume(DefaultVolume)
	return e
}

// SetDiagnosticHandler registers fn to receive user-facing failure messages.
func (e *Engine) SetDiagnosticHandler(fn func(message string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onDiagnostic = fn
}

// PlayStation plays st. A non-empty list replaces the queue; otherwise the
// cursor moves to st, or the queue becomes just st. Stations without stream
// URLs are ignored. Auto-advance gets a fresh lap after every PlayStation.
func (e *Engine) PlayStation(ctx context.Context, st station.Station, list []station.Station) error {
	if !st.Playable() {
		return nil
	}

	e.mu.Lock()
	if len(list) > 0 {
		e.queue.Replace(list, st)
	} else {
		e.queue.Focus(st)
	}
	e.failStreak = 0
	token := e.nextToken()
	e.mu.Unlock()

	return e.play(ctx, token, st)
}

// PlayNext advances the cursor with wraparound and plays that station.
func (e *Engine) PlayNext(ctx context.Context) error {
	return e.step(ctx, 1)
}

// PlayPrev moves the cursor back with wraparound and plays that station.
func (e *Engine) PlayPrev(ctx context.Context) error {
	return e.step(ctx, -1)
}

func (e *Engine) step(ctx context.Context, delta int) error {
	e.mu.Lock()
	st, ok := e.queue.Step(delta)
	if !ok {
		e.mu.Unlock()
		return nil
	}
	token := e.nextToken()
	e.mu.Unlock()

	return e.play(ctx, token, st)
}

// PlayPause toggles the current assignment without resolving it again.
func (e *Engine) PlayPause(ctx context.Context) error {
	e.mu.Lock()
	_, hasStation := e.queue.Current()
	if !hasStation || e.source == "" {
		e.mu.Unlock()
		return nil
	}

	if e.isPlaying {
		e.device.Pause()
		e.isPlaying = false
		e.mu.Unlock()
		log.Debug().Msg("Playback paused")
		return nil
	}
	token := e.token
	e.mu.Unlock()

	err := e.device.Play(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if token != e.token {
		return ErrSuperseded
	}
	if err != nil {
		e.isPlaying = false
		return fmt.Errorf("failed to resume playback: %w", err)
	}
	e.isPlaying = true
	log.Debug().Msg("Playback resumed")
	return nil
}

// SetVolume clamps v to [0, 1] and applies it to the device right away.
func (e *Engine) SetVolume(v float64) {
	if v < 0 || v != v {
		v = 0
	}
	if v > 1 {
		v = 1
	}

	e.mu.Lock()
	e.volume = v
	e.mu.Unlock()

	e.device.SetVolume(v)
}

func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

func (e *Engine) SetExpanded(expanded bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expanded = expanded
}

func (e *Engine) ToggleExpanded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expanded = !e.expanded
	return e.expanded
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.queue.Current()
	return State{
		Station:      st,
		HasStation:   ok,
		Cursor:       e.queue.Cursor(),
		QueueLen:     e.queue.Len(),
		IsPlaying:    e.isPlaying,
		Volume:       e.volume,
		Expanded:     e.expanded,
		ErrorMessage: e.errorMessage,
		Elapsed:      e.elapsed,
		NowPlaying:   e.nowPlaying,
		Source:       e.source,
	}
}

// Queue returns a copy of the queued stations.
func (e *Engine) Queue() []station.Station {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Items()
}

// Run consumes device events until ctx is done. End of stream and stream
// errors advance to the next station.
func (e *Engine) Run(ctx context.Context) {
	events := e.device.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			e.handleEvent(ctx, ev)
		case token := <-e.skip:
			e.handleSkip(ctx, token)
		}
	}
}

func (e *Engine) handleEvent(ctx context.Context, ev Event) {
	e.mu.Lock()
	if ev.Source != e.source {
		e.mu.Unlock()
		log.Debug().Msgf("Ignoring %s event for stale source %s", ev.Type, ev.Source)
		return
	}

	switch ev.Type {
	case EventLoadedMetadata:
		e.nowPlaying = ev.Title
		e.mu.Unlock()
	case EventTimeUpdate:
		e.elapsed = ev.Elapsed
		e.mu.Unlock()
	case EventEnded:
		e.isPlaying = false
		e.mu.Unlock()
		log.Debug().Msgf("Stream ended: %s", ev.Source)
		e.advance(ctx)
	case EventError:
		e.isPlaying = false
		e.errorMessage = msgStationUnavailable
		notify := e.onDiagnostic
		e.mu.Unlock()
		log.Warn().Err(ev.Err).Msgf("Stream failed: %s", ev.Source)
		if notify != nil {
			notify(msgStationUnavailable)
		}
		e.advance(ctx)
	default:
		e.mu.Unlock()
	}
}

// handleSkip moves past a station whose every URL failed, unless a newer
// request was issued or a whole lap of the queue has already failed.
func (e *Engine) handleSkip(ctx context.Context, token uint64) {
	e.mu.Lock()
	if token != e.token || e.failStreak >= e.queue.Len() {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	e.advance(ctx)
}

func (e *Engine) advance(ctx context.Context) {
	err := e.PlayNext(ctx)
	if err != nil && !errors.Is(err, ErrSuperseded) && !errors.Is(err, ErrNoPlayableStream) {
		log.Error().Err(err).Msg("Failed to advance to next station")
	}
}

// play runs resolve, assign and play over the primary URL and then the
// remaining ones in declared order, stopping at the first success.
func (e *Engine) play(ctx context.Context, token uint64, st station.Station) error {
	var lastErr error

	for i, candidate := range candidateURLs(st) {
		if e.stale(token) {
			return ErrSuperseded
		}

		url := e.resolver.Resolve(ctx, candidate)
		if url != candidate {
			log.Debug().Msgf("Resolved %s -> %s", candidate, url)
		}

		if !e.assign(token, url) {
			return ErrSuperseded
		}

		log.Debug().Msgf("Trying stream %d for %s: %s", i+1, st.Name, url)
		err := e.device.Play(ctx)
		if err == nil {
			return e.markPlaying(token, st)
		}
		if e.stale(token) {
			return ErrSuperseded
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.Warn().Err(err).Msgf("Stream rejected: %s", url)
		lastErr = err
	}

	return e.markExhausted(token, st, lastErr)
}

func (e *Engine) assign(token uint64, url string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if token != e.token {
		return false
	}
	e.source = url
	e.elapsed = 0
	e.nowPlaying = ""
	e.device.AssignSource(url)
	return true
}

func (e *Engine) markPlaying(token uint64, st station.Station) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if token != e.token {
		return ErrSuperseded
	}
	e.isPlaying = true
	e.errorMessage = ""
	e.failStreak = 0
	log.Debug().Msgf("Now playing: %s", st.Name)
	return nil
}

func (e *Engine) markExhausted(token uint64, st station.Station, lastErr error) error {
	e.mu.Lock()
	if token != e.token {
		e.mu.Unlock()
		return ErrSuperseded
	}
	message := fmt.Sprintf("Could not play %s. None of its streams responded.", st.Name)
	e.isPlaying = false
	e.errorMessage = message
	e.source = ""
	e.failStreak++
	notify := e.onDiagnostic
	e.mu.Unlock()

	log.Error().Err(lastErr).Msgf("All streams failed for %s (%s)", st.Name, st.Source)
	if notify != nil {
		notify(message)
	}

	select {
	case <-e.skip:
	default:
	}
	select {
	case e.skip <- token:
	default:
	}

	if lastErr == nil {
		return fmt.Errorf("%w: %s", ErrNoPlayableStream, st.Name)
	}
	return fmt.Errorf("%w: %s: %v", ErrNoPlayableStream, st.Name, lastErr)
}

func (e *Engine) nextToken() uint64 {
	e.token++
	return e.token
}

func (e *Engine) stale(token uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return token != e.token
}

// candidateURLs returns the primary URL followed by the remaining URLs in
// declared order, skipping repeats of the primary.
func candidateURLs(st station.Station) []string {
	if len(st.StreamURLs) == 0 {
		return nil
	}
	primary := st.StreamURLs[0]
	urls := []string{primary}
	for _, u := range st.StreamURLs[1:] {
		if u != primary {
			urls = append(urls, u)
		}
	}
	return urls
}
