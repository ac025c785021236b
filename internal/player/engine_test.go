package player

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/glebovdev/radio-cli/internal/station"
)

type fakeDevice struct {
	mu       sync.Mutex
	source   string
	assigned []string
	rejected map[string]bool
	plays    int
	paused   bool
	playing  bool
	volume   float64
	events   chan Event
}

func newFakeDevice(rejected ...string) *fakeDevice {
	d := &fakeDevice{
		rejected: make(map[string]bool),
		events:   make(chan Event, 16),
	}
	for _, url := range rejected {
		d.rejected[url] = true
	}
	return d
}

func (d *fakeDevice) AssignSource(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.source = url
	d.assigned = append(d.assigned, url)
	d.playing = false
	d.paused = false
}

func (d *fakeDevice) Play(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.plays++
	if d.rejected[d.source] {
		return errors.New("source rejected")
	}
	d.playing = true
	d.paused = false
	return nil
}

func (d *fakeDevice) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = true
	d.playing = false
}

func (d *fakeDevice) SetVolume(v float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.volume = v
}

func (d *fakeDevice) Events() <-chan Event {
	return d.events
}

func (d *fakeDevice) snapshot() (assigned []string, plays int, volume float64, paused bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.assigned...), d.plays, d.volume, d.paused
}

type fakeResolver struct {
	mu       sync.Mutex
	resolved map[string]string
	calls    int
}

func (r *fakeResolver) Resolve(ctx context.Context, url string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if target, ok := r.resolved[url]; ok {
		return target
	}
	return url
}

func (r *fakeResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type diagnostics struct {
	mu       sync.Mutex
	messages []string
}

func (d *diagnostics) record(message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, message)
}

func (d *diagnostics) list() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.messages...)
}

func newTestEngine(device *fakeDevice) (*Engine, *fakeResolver, *diagnostics) {
	resolver := &fakeResolver{resolved: map[string]string{}}
	diag := &diagnostics{}
	e := NewEngine(device, resolver)
	e.SetDiagnosticHandler(diag.record)
	return e, resolver, diag
}

func testStation(id string, urls ...string) station.Station {
	return station.New(id, "Station "+id, "Colombia", urls, "", "", station.SourceRadioBrowser)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewEngineAppliesDefaultVolume(t *testing.T) {
	device := newFakeDevice()
	e, _, _ := newTestEngine(device)

	if e.Volume() != DefaultVolume {
		t.Errorf("Volume() = %v, want %v", e.Volume(), DefaultVolume)
	}
	if _, _, volume, _ := device.snapshot(); volume != DefaultVolume {
		t.Errorf("device volume = %v, want %v", volume, DefaultVolume)
	}

	state := e.State()
	if state.HasStation || state.Cursor != -1 || state.IsPlaying {
		t.Errorf("initial state = %+v, want empty", state)
	}
}

func TestPlayStationPrimarySuccess(t *testing.T) {
	device := newFakeDevice()
	e, _, diag := newTestEngine(device)

	st := testStation("a", "http://a.example/live", "http://a.example/backup")
	if err := e.PlayStation(context.Background(), st, nil); err != nil {
		t.Fatalf("PlayStation() error = %v", err)
	}

	state := e.State()
	if !state.IsPlaying {
		t.Error("IsPlaying = false, want true")
	}
	if state.Source != "http://a.example/live" {
		t.Errorf("Source = %q, want primary URL", state.Source)
	}
	if assigned, _, _, _ := device.snapshot(); len(assigned) != 1 {
		t.Errorf("assigned = %v, want only the primary URL", assigned)
	}
	if len(diag.list()) != 0 {
		t.Errorf("diagnostics = %v, want none", diag.list())
	}
}

func TestPlayStationFallbackSuccess(t *testing.T) {
	device := newFakeDevice("http://bad.example/stream")
	e, _, diag := newTestEngine(device)

	st := testStation("a", "http://bad.example/stream", "http://good.example/stream")
	if err := e.PlayStation(context.Background(), st, nil); err != nil {
		t.Fatalf("PlayStation() error = %v", err)
	}

	state := e.State()
	if !state.IsPlaying {
		t.Error("IsPlaying = false, want true after fallback")
	}
	if state.ErrorMessage != "" {
		t.Errorf("ErrorMessage = %q, want empty", state.ErrorMessage)
	}
	if len(diag.list()) != 0 {
		t.Errorf("fallback success emitted diagnostics: %v", diag.list())
	}

	assigned, _, _, _ := device.snapshot()
	expected := []string{"http://bad.example/stream", "http://good.example/stream"}
	if len(assigned) != len(expected) || assigned[0] != expected[0] || assigned[1] != expected[1] {
		t.Errorf("assigned = %v, want %v", assigned, expected)
	}
}

func TestPlayStationTotalFailure(t *testing.T) {
	device := newFakeDevice("http://bad1.example", "http://bad2.example")
	e, _, diag := newTestEngine(device)

	other := testStation("other", "http://other.example")
	st := testStation("dead", "http://bad1.example", "http://bad2.example")
	list := []station.Station{other, st}

	err := e.PlayStation(context.Background(), st, list)
	if !errors.Is(err, ErrNoPlayableStream) {
		t.Fatalf("PlayStation() error = %v, want ErrNoPlayableStream", err)
	}

	state := e.State()
	if state.IsPlaying {
		t.Error("IsPlaying = true, want false")
	}
	if state.ErrorMessage == "" {
		t.Error("ErrorMessage is empty, want diagnostic")
	}
	if state.Station.Key() != st.Key() || state.Cursor != 1 {
		t.Errorf("current = %s at %d, want %s at 1", state.Station.Key(), state.Cursor, st.Key())
	}
	if msgs := diag.list(); len(msgs) != 1 {
		t.Errorf("diagnostics = %v, want exactly one", msgs)
	}
	if _, plays, _, _ := device.snapshot(); plays != 2 {
		t.Errorf("device plays = %d, want 2", plays)
	}
}

func TestPlayStationWithoutURLsIsNoop(t *testing.T) {
	device := newFakeDevice()
	e, resolver, diag := newTestEngine(device)

	before := e.State()
	err := e.PlayStation(context.Background(), station.Station{ID: "empty", Name: "Empty"}, []station.Station{testStation("a", "http://a")})
	if err != nil {
		t.Errorf("PlayStation() error = %v, want nil", err)
	}

	if after := e.State(); !reflect.DeepEqual(after, before) {
		t.Errorf("state changed: %+v -> %+v", before, after)
	}
	if assigned, plays, _, _ := device.snapshot(); len(assigned) != 0 || plays != 0 {
		t.Errorf("device touched: assigned=%v plays=%d", assigned, plays)
	}
	if resolver.callCount() != 0 {
		t.Errorf("resolver called %d times, want 0", resolver.callCount())
	}
	if len(diag.list()) != 0 {
		t.Errorf("diagnostics = %v, want none", diag.list())
	}
}

func TestPlayStationSkipsRepeatedPrimary(t *testing.T) {
	device := newFakeDevice("http://a")
	e, _, _ := newTestEngine(device)

	st := testStation("x", "http://a", "http://a", "http://b")
	if err := e.PlayStation(context.Background(), st, nil); err != nil {
		t.Fatalf("PlayStation() error = %v", err)
	}

	assigned, _, _, _ := device.snapshot()
	if len(assigned) != 2 || assigned[1] != "http://b" {
		t.Errorf("assigned = %v, want [http://a http://b]", assigned)
	}
}

func TestPlayStationResolvesBeforeAssign(t *testing.T) {
	device := newFakeDevice()
	e, resolver, _ := newTestEngine(device)
	resolver.resolved["http://dir.example/listen.pls"] = "http://stream.example/live"

	st := testStation("a", "http://dir.example/listen.pls")
	if err := e.PlayStation(context.Background(), st, nil); err != nil {
		t.Fatalf("PlayStation() error = %v", err)
	}

	if got := e.State().Source; got != "http://stream.example/live" {
		t.Errorf("Source = %q, want resolved URL", got)
	}
}

func TestPlayStationQueueSelection(t *testing.T) {
	a := testStation("a", "http://a")
	b := testStation("b", "http://b")
	c := testStation("c", "http://c")
	unplayable := station.Station{ID: "u", Source: station.SourceRadioBrowser}

	tests := []struct {
		name           string
		initial        []station.Station
		play           station.Station
		list           []station.Station
		expectedLen    int
		expectedCursor int
	}{
		{"list replaces queue", nil, b, []station.Station{a, b, c}, 3, 1},
		{"station missing from list falls back to first", nil, c, []station.Station{a, b}, 2, 0},
		{"unplayable entries dropped", nil, b, []station.Station{unplayable, a, b}, 2, 1},
		{"no list focuses queued station", []station.Station{a, b, c}, c, nil, 3, 2},
		{"no list with unknown station makes singleton", []station.Station{a, b}, c, nil, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, _ := newTestEngine(newFakeDevice())
			ctx := context.Background()
			if len(tt.initial) > 0 {
				_ = e.PlayStation(ctx, tt.initial[0], tt.initial)
			}

			if err := e.PlayStation(ctx, tt.play, tt.list); err != nil {
				t.Fatalf("PlayStation() error = %v", err)
			}

			state := e.State()
			if state.QueueLen != tt.expectedLen || state.Cursor != tt.expectedCursor {
				t.Errorf("queue = %d items, cursor %d; want %d items, cursor %d",
					state.QueueLen, state.Cursor, tt.expectedLen, tt.expectedCursor)
			}
		})
	}
}

func TestPlayNextPrevInverse(t *testing.T) {
	list := []station.Station{
		testStation("a", "http://a"),
		testStation("b", "http://b"),
		testStation("c", "http://c"),
	}

	for start := range list {
		e, _, _ := newTestEngine(newFakeDevice())
		ctx := context.Background()
		_ = e.PlayStation(ctx, list[start], list)

		_ = e.PlayNext(ctx)
		_ = e.PlayPrev(ctx)

		if got := e.State().Cursor; got != start {
			t.Errorf("start %d: cursor after next+prev = %d", start, got)
		}
	}
}

func TestPlayNextPrevWraparound(t *testing.T) {
	list := []station.Station{testStation("a", "http://a"), testStation("b", "http://b")}
	e, _, _ := newTestEngine(newFakeDevice())
	ctx := context.Background()

	_ = e.PlayStation(ctx, list[1], list)
	if err := e.PlayNext(ctx); err != nil {
		t.Fatalf("PlayNext() error = %v", err)
	}
	if state := e.State(); state.Cursor != 0 || state.Source != "http://a" {
		t.Errorf("after wrap forward: cursor %d source %q", state.Cursor, state.Source)
	}

	if err := e.PlayPrev(ctx); err != nil {
		t.Fatalf("PlayPrev() error = %v", err)
	}
	if state := e.State(); state.Cursor != 1 || state.Source != "http://b" {
		t.Errorf("after wrap backward: cursor %d source %q", state.Cursor, state.Source)
	}
}

func TestPlayNextOnEmptyQueueIsNoop(t *testing.T) {
	device := newFakeDevice()
	e, _, _ := newTestEngine(device)

	if err := e.PlayNext(context.Background()); err != nil {
		t.Errorf("PlayNext() error = %v", err)
	}
	if err := e.PlayPrev(context.Background()); err != nil {
		t.Errorf("PlayPrev() error = %v", err)
	}
	if _, plays, _, _ := device.snapshot(); plays != 0 {
		t.Errorf("device plays = %d, want 0", plays)
	}
}

func TestPlayPauseDoesNotResolve(t *testing.T) {
	device := newFakeDevice()
	e, resolver, _ := newTestEngine(device)
	ctx := context.Background()

	_ = e.PlayStation(ctx, testStation("a", "http://a.example/list.m3u"), nil)
	calls := resolver.callCount()

	if err := e.PlayPause(ctx); err != nil {
		t.Fatalf("PlayPause() error = %v", err)
	}
	if e.State().IsPlaying {
		t.Error("IsPlaying = true after pause")
	}
	if _, _, _, paused := device.snapshot(); !paused {
		t.Error("device was not paused")
	}

	if err := e.PlayPause(ctx); err != nil {
		t.Fatalf("PlayPause() error = %v", err)
	}
	if !e.State().IsPlaying {
		t.Error("IsPlaying = false after resume")
	}

	if resolver.callCount() != calls {
		t.Errorf("resolver calls = %d, want %d", resolver.callCount(), calls)
	}
	if assigned, _, _, _ := device.snapshot(); len(assigned) != 1 {
		t.Errorf("assigned = %v, PlayPause must not reassign", assigned)
	}
}

func TestPlayPauseWithoutStationIsNoop(t *testing.T) {
	device := newFakeDevice()
	e, _, _ := newTestEngine(device)

	if err := e.PlayPause(context.Background()); err != nil {
		t.Errorf("PlayPause() error = %v", err)
	}
	if _, plays, _, paused := device.snapshot(); plays != 0 || paused {
		t.Errorf("device touched: plays=%d paused=%v", plays, paused)
	}
}

func TestSetVolumeClamps(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{0.3, 0.3},
		{0, 0},
		{1, 1},
		{-0.5, 0},
		{1.5, 1},
	}

	for _, tt := range tests {
		device := newFakeDevice()
		e, _, _ := newTestEngine(device)

		e.SetVolume(tt.input)

		if e.Volume() != tt.expected {
			t.Errorf("SetVolume(%v): Volume() = %v, want %v", tt.input, e.Volume(), tt.expected)
		}
		if _, _, volume, _ := device.snapshot(); volume != tt.expected {
			t.Errorf("SetVolume(%v): device volume = %v, want %v", tt.input, volume, tt.expected)
		}
	}
}

func TestToggleExpanded(t *testing.T) {
	e, _, _ := newTestEngine(newFakeDevice())

	if !e.ToggleExpanded() || !e.State().Expanded {
		t.Error("ToggleExpanded() should expand")
	}
	e.SetExpanded(false)
	if e.State().Expanded {
		t.Error("SetExpanded(false) should collapse")
	}
}

type blockingResolver struct {
	block   string
	entered chan struct{}
	release chan struct{}
}

func (r *blockingResolver) Resolve(ctx context.Context, url string) string {
	if url == r.block {
		close(r.entered)
		<-r.release
	}
	return url
}

func TestStalePlayRequestIsDiscarded(t *testing.T) {
	device := newFakeDevice()
	resolver := &blockingResolver{
		block:   "http://slow.example/list.pls",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	e := NewEngine(device, resolver)
	ctx := context.Background()

	slow := testStation("slow", "http://slow.example/list.pls")
	fast := testStation("fast", "http://fast.example/live")

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.PlayStation(ctx, slow, nil)
	}()
	<-resolver.entered

	if err := e.PlayStation(ctx, fast, nil); err != nil {
		t.Fatalf("PlayStation(fast) error = %v", err)
	}
	close(resolver.release)

	if err := <-errCh; !errors.Is(err, ErrSuperseded) {
		t.Errorf("PlayStation(slow) error = %v, want ErrSuperseded", err)
	}

	state := e.State()
	if state.Station.Key() != fast.Key() || state.Source != "http://fast.example/live" || !state.IsPlaying {
		t.Errorf("state = %+v, want fast station playing", state)
	}
	for _, url := range func() []string { a, _, _, _ := device.snapshot(); return a }() {
		if url == slow.StreamURLs[0] {
			t.Error("superseded request assigned its source")
		}
	}
}

func TestRunAdvancesOnEnded(t *testing.T) {
	device := newFakeDevice()
	e, _, diag := newTestEngine(device)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	list := []station.Station{testStation("a", "http://a"), testStation("b", "http://b")}
	_ = e.PlayStation(ctx, list[0], list)

	device.events <- Event{Type: EventEnded, Source: "http://a"}

	waitFor(t, "advance to next station", func() bool {
		s := e.State()
		return s.Cursor == 1 && s.IsPlaying
	})
	if len(diag.list()) != 0 {
		t.Errorf("ended event emitted diagnostics: %v", diag.list())
	}
}

func TestRunAdvancesOnErrorWithDiagnostic(t *testing.T) {
	device := newFakeDevice()
	e, _, diag := newTestEngine(device)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	list := []station.Station{testStation("a", "http://a"), testStation("b", "http://b")}
	_ = e.PlayStation(ctx, list[0], list)

	device.events <- Event{Type: EventError, Source: "http://a", Err: errors.New("connection reset")}

	waitFor(t, "advance after error", func() bool { return e.State().Cursor == 1 })

	msgs := diag.list()
	if len(msgs) != 1 || msgs[0] != msgStationUnavailable {
		t.Errorf("diagnostics = %v, want [%q]", msgs, msgStationUnavailable)
	}
}

func TestRunIgnoresStaleSourceEvents(t *testing.T) {
	device := newFakeDevice()
	e, _, _ := newTestEngine(device)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	list := []station.Station{testStation("a", "http://a"), testStation("b", "http://b")}
	_ = e.PlayStation(ctx, list[0], list)

	device.events <- Event{Type: EventEnded, Source: "http://old"}
	device.events <- Event{Type: EventLoadedMetadata, Source: "http://a", Title: "Marker"}

	waitFor(t, "metadata", func() bool { return e.State().NowPlaying == "Marker" })
	if got := e.State().Cursor; got != 0 {
		t.Errorf("cursor = %d after stale ended event, want 0", got)
	}
}

func TestRunTracksMetadataAndElapsed(t *testing.T) {
	device := newFakeDevice()
	e, _, _ := newTestEngine(device)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	_ = e.PlayStation(ctx, testStation("a", "http://a"), nil)

	device.events <- Event{Type: EventLoadedMetadata, Source: "http://a", Title: "Artist - Song"}
	device.events <- Event{Type: EventTimeUpdate, Source: "http://a", Elapsed: 3 * time.Second}

	waitFor(t, "elapsed update", func() bool { return e.State().Elapsed == 3*time.Second })
	if got := e.State().NowPlaying; got != "Artist - Song" {
		t.Errorf("NowPlaying = %q, want %q", got, "Artist - Song")
	}
}

func TestRunSkipsExhaustedStation(t *testing.T) {
	device := newFakeDevice("http://dead")
	e, _, _ := newTestEngine(device)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	list := []station.Station{testStation("dead", "http://dead"), testStation("live", "http://live")}
	if err := e.PlayStation(ctx, list[0], list); !errors.Is(err, ErrNoPlayableStream) {
		t.Fatalf("PlayStation() error = %v, want ErrNoPlayableStream", err)
	}

	waitFor(t, "skip to live station", func() bool {
		s := e.State()
		return s.Cursor == 1 && s.IsPlaying
	})
}

func TestRunStopsSkippingAfterFullLap(t *testing.T) {
	device := newFakeDevice("http://dead1", "http://dead2")
	e, _, _ := newTestEngine(device)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	list := []station.Station{testStation("d1", "http://dead1"), testStation("d2", "http://dead2")}
	_ = e.PlayStation(ctx, list[0], list)

	waitFor(t, "second station attempt", func() bool {
		_, plays, _, _ := device.snapshot()
		return plays >= 2
	})
	time.Sleep(50 * time.Millisecond)

	if _, plays, _, _ := device.snapshot(); plays != 2 {
		t.Errorf("device plays = %d, want 2 (one lap)", plays)
	}
	if e.State().IsPlaying {
		t.Error("IsPlaying = true with every station dead")
	}
}

func TestPlayStationAfterDeadQueueSkipsAgain(t *testing.T) {
	device := newFakeDevice("http://a", "http://b", "http://c", "http://x")
	e, _, _ := newTestEngine(device)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	dead := []station.Station{
		testStation("a", "http://a"),
		testStation("b", "http://b"),
		testStation("c", "http://c"),
	}
	_ = e.PlayStation(ctx, dead[0], dead)

	waitFor(t, "full lap of dead stations", func() bool {
		_, plays, _, _ := device.snapshot()
		return plays >= 3
	})
	time.Sleep(50 * time.Millisecond)

	list := []station.Station{testStation("x", "http://x"), testStation("y", "http://y")}
	if err := e.PlayStation(ctx, list[0], list); !errors.Is(err, ErrNoPlayableStream) {
		t.Fatalf("PlayStation() error = %v, want ErrNoPlayableStream", err)
	}

	waitFor(t, "skip to live station y", func() bool {
		s := e.State()
		return s.Cursor == 1 && s.IsPlaying && s.Station.ID == "y"
	})
}

func TestPlayPauseAfterExhaustionIsNoop(t *testing.T) {
	device := newFakeDevice("http://bad1", "http://bad2")
	e, _, _ := newTestEngine(device)
	ctx := context.Background()

	st := testStation("dead", "http://bad1", "http://bad2")
	if err := e.PlayStation(ctx, st, nil); !errors.Is(err, ErrNoPlayableStream) {
		t.Fatalf("PlayStation() error = %v, want ErrNoPlayableStream", err)
	}
	if got := e.State().Source; got != "" {
		t.Errorf("Source = %q after exhaustion, want empty", got)
	}

	if err := e.PlayPause(ctx); err != nil {
		t.Fatalf("PlayPause() error = %v", err)
	}
	if _, plays, _, _ := device.snapshot(); plays != 2 {
		t.Errorf("device plays = %d, want 2 (no retry of a dead source)", plays)
	}
	if e.State().IsPlaying {
		t.Error("IsPlaying = true after PlayPause on an exhausted station")
	}
	if s := e.State(); !s.HasStation || s.Station.Key() != st.Key() {
		t.Errorf("current station = %s, want it to stay on %s", s.Station.Key(), st.Key())
	}
}
