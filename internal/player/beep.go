package player

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/glebovdev/radio-cli/internal/config"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSampleRate   = beep.SampleRate(44100)
	SpeakerBufferSize   = time.Millisecond * 250
	NetworkReadSize     = 4096
	SampleChannelSize   = 8192
	MaxRetries          = 3
	RetryDelay          = time.Second * 2
	VolumeCurveExponent = 0.5
	MinVolumeDB         = -10.0
	ReadTimeout         = 5 * time.Second
	MaxPlaybackDelay    = 5 * time.Second
	TimeUpdateInterval  = time.Second
	MaxICYMetadataSize  = 4080

	eventBufferSize = 32
)

var (
	ErrNoSource          = errors.New("no source assigned")
	ErrSourceChanged     = errors.New("source changed while connecting")
	ErrUnsupportedFormat = errors.New("unsupported stream format")
)

type DeviceState int

const (
	StateIdle DeviceState = iota
	StateBuffering
	StatePlaying
	StatePaused
	StateReconnecting
	StateError
)

func (s DeviceState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateBuffering:
		return "BUFFERING"
	case StatePlaying:
		return "LIVE"
	case StatePaused:
		return "PAUSED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// StreamInfo contains metadata about the current audio stream.
type StreamInfo struct {
	Name       string
	Format     string
	Bitrate    int
	SampleRate int
}

// Relies on context cancellation to clean up the spawned read goroutine.
type contextReader struct {
	reader  io.Reader
	ctx     context.Context
	timeout time.Duration
}

func (cr *contextReader) Read(p []byte) (n int, err error) {
	select {
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	default:
	}

	timer := time.NewTimer(cr.timeout)
	defer timer.Stop()

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)

	go func() {
		n, err := cr.reader.Read(p)
		select {
		case done <- result{n, err}:
		case <-cr.ctx.Done():
		}
	}()

	select {
	case res := <-done:
		return res.n, res.err
	case <-timer.C:
		return 0, fmt.Errorf("read timeout: no data received for %v", cr.timeout)
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	}
}

// stream is one connection to one source. It is never reused.
type stream struct {
	source   string
	ctx      context.Context
	cancel   context.CancelFunc
	sampleCh chan [2]float64
	done     chan struct{}
	doneOnce sync.Once
	errCh    chan error
	wg       sync.WaitGroup

	ctrl      *beep.Ctrl
	volume    *effects.Volume
	title     string
	started   time.Time
	pausedAt  time.Time
	pausedFor time.Duration
}

// Prevents panics from double-close when multiple goroutines signal completion.
func (s *stream) closeDone() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
}

func (s *stream) alive() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *stream) reportError(err error) {
	s.closeDone()
	select {
	case s.errCh <- err:
	default:
	}
}

// BeepDevice plays MP3 internet radio streams through the system speaker.
type BeepDevice struct {
	httpClient *http.Client
	userAgent  string

	mu          sync.Mutex
	source      string
	current     *stream
	volume      float64
	speakerInit bool
	sampleRate  beep.SampleRate

	// Serializes connection attempts so only one stream owns the speaker.
	startMu sync.Mutex

	stateMu      sync.RWMutex
	state        DeviceState
	streamInfo   StreamInfo
	retryAttempt int
	maxRetries   int
	lastError    string

	events    chan Event
	quit      chan struct{}
	closeOnce sync.Once
}

func NewBeepDevice() *BeepDevice {
	httpClient := &http.Client{
		Timeout: 0, // No overall timeout, streams are long-lived
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: 10 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 15 * time.Second,
			DisableKeepAlives:     false,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			DisableCompression:    true,
		},
	}

	return &BeepDevice{
		httpClient: httpClient,
		userAgent:  fmt.Sprintf("radio-cli/%s", config.AppVersion),
		volume:     DefaultVolume,
		sampleRate: DefaultSampleRate,
		events:     make(chan Event, eventBufferSize),
		quit:       make(chan struct{}),
	}
}

func (d *BeepDevice) Events() <-chan Event {
	return d.events
}

// AssignSource selects the URL the next Play starts. Any stream of a
// different source is stopped.
func (d *BeepDevice) AssignSource(url string) {
	d.mu.Lock()
	if d.source == url {
		d.mu.Unlock()
		return
	}
	d.source = url
	old := d.current
	d.current = nil
	d.mu.Unlock()

	if old != nil {
		d.stopStream(old, true)
		d.setState(StateIdle)
	}
}

func (d *BeepDevice) Play(ctx context.Context) error {
	d.mu.Lock()
	src := d.source
	s := d.current
	d.mu.Unlock()

	if src == "" {
		return ErrNoSource
	}

	if s != nil && s.source == src && s.alive() && d.resume(s) {
		return nil
	}

	return d.start(ctx, src)
}

// resume unpauses s. It reports false when s has fallen too far behind the
// live stream and must be reconnected instead.
func (d *BeepDevice) resume(s *stream) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s.pausedAt.IsZero() {
		return true
	}

	paused := s.pausedFor + time.Since(s.pausedAt)
	if paused > MaxPlaybackDelay {
		log.Debug().Msgf("Total paused %v (>%v), reconnecting", paused, MaxPlaybackDelay)
		return false
	}

	speaker.Lock()
	s.ctrl.Paused = false
	speaker.Unlock()

	s.pausedFor = paused
	s.pausedAt = time.Time{}
	d.setState(StatePlaying)
	log.Debug().Msg("Playback resumed")
	return true
}

func (d *BeepDevice) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.current
	if s == nil || s.ctrl == nil || !s.pausedAt.IsZero() {
		return
	}

	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()

	s.pausedAt = time.Now()
	d.setState(StatePaused)
	log.Debug().Msg("Playback paused")
}

// SetVolume takes a level in [0, 1] and maps it onto a logarithmic gain.
func (d *BeepDevice) SetVolume(v float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.volume = v
	volumeLevel := percentToExponent(v * 100)

	if d.current == nil || d.current.volume == nil {
		log.Debug().Msgf("Volume stored as %.0f%% (will be applied when playback starts)", v*100)
		return
	}

	speaker.Lock()
	d.current.volume.Volume = volumeLevel
	d.current.volume.Silent = v <= 0
	speaker.Unlock()

	log.Debug().Msgf("Volume set to %.0f%% (%.2f dB)", v*100, volumeLevel)
}

func percentToExponent(p float64) float64 {
	if p <= 0 {
		return MinVolumeDB
	}
	if p >= 100 {
		return 0
	}

	normalized := p / 100.0
	adjusted := math.Pow(normalized, VolumeCurveExponent)
	return (1.0 - adjusted) * MinVolumeDB
}

// Close stops playback. The device can't be used afterwards.
func (d *BeepDevice) Close() {
	d.closeOnce.Do(func() {
		close(d.quit)

		d.mu.Lock()
		s := d.current
		d.current = nil
		d.source = ""
		d.mu.Unlock()

		if s != nil {
			d.stopStream(s, true)
		}
		d.setState(StateIdle)
		log.Debug().Msg("Audio device closed")
	})
}

func (d *BeepDevice) State() DeviceState {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.state
}

func (d *BeepDevice) setState(state DeviceState) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	if d.state != state {
		log.Debug().Msgf("Device state: %s -> %s", d.state.String(), state.String())
		d.state = state
	}
}

func (d *BeepDevice) StreamInfo() StreamInfo {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.streamInfo
}

func (d *BeepDevice) setStreamInfo(info StreamInfo) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	d.streamInfo = info
	log.Debug().Msgf("Stream info: %s %dk %dHz", info.Format, info.Bitrate, info.SampleRate)
}

func (d *BeepDevice) RetryInfo() (current, max int) {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.retryAttempt, d.maxRetries
}

func (d *BeepDevice) setRetryInfo(current, max int) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	d.retryAttempt = current
	d.maxRetries = max
}

func (d *BeepDevice) LastError() string {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.lastError
}

func (d *BeepDevice) setLastError(err string) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	d.lastError = err
}

// BufferHealth returns the current buffer fill level as a percentage (0-100).
func (d *BeepDevice) BufferHealth() int {
	d.mu.Lock()
	s := d.current
	d.mu.Unlock()

	if s == nil {
		return 0
	}

	channelCap := cap(s.sampleCh)
	if channelCap == 0 {
		return 0
	}
	return (len(s.sampleCh) * 100) / channelCap
}

func (d *BeepDevice) emit(ev Event) {
	select {
	case d.events <- ev:
	default:
		log.Debug().Msgf("Event buffer full, dropping %s event", ev.Type)
	}
}

func (d *BeepDevice) initSpeaker(sampleRate beep.SampleRate) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.speakerInit || sampleRate != d.sampleRate {
		err := speaker.Init(sampleRate, sampleRate.N(SpeakerBufferSize))
		if err != nil {
			return fmt.Errorf("failed to initialize speaker: %w", err)
		}
		d.sampleRate = sampleRate
		d.speakerInit = true
		log.Debug().Msgf("Speaker initialized with sample rate: %d Hz, buffer: %v", sampleRate, SpeakerBufferSize)
	}
	return nil
}

// start connects to src and hands it to the speaker. It returns once audio
// is flowing.
func (d *BeepDevice) start(ctx context.Context, src string) error {
	d.startMu.Lock()
	defer d.startMu.Unlock()

	d.mu.Lock()
	old := d.current
	d.current = nil
	d.mu.Unlock()
	if old != nil {
		d.stopStream(old, true)
	}

	d.setState(StateBuffering)

	s, err := d.open(ctx, src)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			d.setState(StateIdle)
			return err
		}
		d.setState(StateError)
		d.setLastError("Connection failed")
		return err
	}

	d.mu.Lock()
	if d.source != src {
		d.mu.Unlock()
		d.stopStream(s, false)
		return ErrSourceChanged
	}

	fadeInSamples := d.sampleRate.N(fadeInDuration)
	s.volume = &effects.Volume{
		Streamer: &bufferedStreamerWrapper{
			stream:          s,
			fadeInRemaining: fadeInSamples,
			fadeInTotal:     fadeInSamples,
		},
		Base:   2,
		Volume: percentToExponent(d.volume * 100),
		Silent: d.volume <= 0,
	}
	s.ctrl = &beep.Ctrl{Streamer: s.volume, Paused: false}
	s.started = time.Now()
	d.current = s
	title := s.title
	d.mu.Unlock()

	speaker.Play(s.ctrl)

	d.setState(StatePlaying)
	d.setRetryInfo(0, MaxRetries)
	d.setLastError("")
	log.Debug().Msgf("Now streaming: %s", src)

	if title != "" {
		d.emit(Event{Type: EventLoadedMetadata, Source: src, Title: title})
	}

	go d.supervise(s)
	return nil
}

// open connects, starts the reader and decoder goroutines and waits until
// the decoder has seen a valid MP3 header.
func (d *BeepDevice) open(ctx context.Context, src string) (*stream, error) {
	streamCtx, cancel := context.WithCancel(context.Background())
	stopAfter := context.AfterFunc(ctx, cancel)
	defer stopAfter()

	s := &stream{
		source:   src,
		ctx:      streamCtx,
		cancel:   cancel,
		sampleCh: make(chan [2]float64, SampleChannelSize),
		done:     make(chan struct{}),
		errCh:    make(chan error, 1),
	}

	log.Debug().Msgf("Connecting to stream: %s", src)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, src, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Icy-MetaData", "1")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to fetch stream: %w", err)
	}

	log.Debug().Msgf("Stream response status: %d, Content-Type: %s", resp.StatusCode, resp.Header.Get("Content-Type"))

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, &httpStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	info := parseStreamInfo(resp.Header)
	if info.Format != "MP3" {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, info.Format)
	}

	var icyMetaint int
	if val := resp.Header.Get("icy-metaint"); val != "" {
		_, _ = fmt.Sscanf(val, "%d", &icyMetaint)
		log.Debug().Msgf("ICY metadata interval: %d bytes", icyMetaint)
	}

	pipeReader, pipeWriter := io.Pipe()

	timeoutBody := &contextReader{
		reader:  resp.Body,
		ctx:     streamCtx,
		timeout: ReadTimeout,
	}

	s.wg.Add(1)
	go d.readNetworkStream(s, resp.Body, timeoutBody, pipeWriter, icyMetaint)

	log.Debug().Msg("Decoding MP3 stream...")
	streamer, format, err := mp3.Decode(pipeReader)
	if err != nil {
		pipeReader.Close()
		d.stopStream(s, false)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to decode MP3 stream: %w", err)
	}

	log.Debug().Msgf("Initializing audio output (sample rate: %d Hz)...", format.SampleRate)
	if err := d.initSpeaker(format.SampleRate); err != nil {
		streamer.Close()
		pipeReader.Close()
		d.stopStream(s, false)
		return nil, fmt.Errorf("failed to initialize audio output: %w", err)
	}

	info.SampleRate = int(format.SampleRate)
	d.setStreamInfo(info)

	s.wg.Add(1)
	go d.decodeAndBuffer(s, streamer, pipeReader)

	return s, nil
}

// stopStream cancels s and waits for its goroutines. The speaker is only
// cleared when s was handed to it.
func (d *BeepDevice) stopStream(s *stream, clearSpeaker bool) {
	s.cancel()
	s.closeDone()
	if clearSpeaker {
		speaker.Clear()
	}
	s.wg.Wait()
}

// supervise publishes time updates for s and turns its end into an event.
// Dropped connections are retried before an error is reported.
func (d *BeepDevice) supervise(s *stream) {
	ticker := time.NewTicker(TimeUpdateInterval)
	defer ticker.Stop()

	for running := true; running; {
		select {
		case <-s.done:
			running = false
		case <-ticker.C:
			if elapsed, ok := d.elapsed(s); ok {
				d.emit(Event{Type: EventTimeUpdate, Source: s.source, Elapsed: elapsed})
			}
		}
	}

	s.wg.Wait()
	if s.ctx.Err() != nil {
		return
	}

	var streamErr error
	select {
	case streamErr = <-s.errCh:
	default:
	}

	d.startMu.Lock()
	d.mu.Lock()
	owned := d.current == s
	if owned {
		d.current = nil
	}
	d.mu.Unlock()
	if owned {
		speaker.Clear()
	}
	d.startMu.Unlock()
	s.cancel()

	if !owned {
		return
	}

	if streamErr == nil {
		log.Debug().Msgf("Stream ended: %s", s.source)
		d.setState(StateIdle)
		d.emit(Event{Type: EventEnded, Source: s.source})
		return
	}

	log.Warn().Err(streamErr).Msgf("Stream dropped: %s", s.source)
	if err := d.reconnect(s.source); err != nil {
		d.setState(StateError)
		d.setLastError("Connection lost")
		d.emit(Event{Type: EventError, Source: s.source, Err: err})
	}
}

// reconnect retries a dropped source. A stream that recovers and drops again
// gets a fresh set of retries from its own supervisor.
func (d *BeepDevice) reconnect(src string) error {
	var lastErr error

	for attempt := 1; attempt <= MaxRetries; attempt++ {
		d.setState(StateReconnecting)
		d.setRetryInfo(attempt, MaxRetries)
		log.Warn().Msgf("Reconnecting in %v... (%d/%d) %s", RetryDelay, attempt, MaxRetries, src)

		select {
		case <-time.After(RetryDelay):
		case <-d.quit:
			return nil
		}

		d.mu.Lock()
		stillWanted := d.source == src && d.current == nil
		d.mu.Unlock()
		if !stillWanted {
			return nil
		}

		err := d.start(context.Background(), src)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrSourceChanged) {
			return nil
		}

		lastErr = err
		if isNonRetryableError(err) {
			break
		}
	}

	return fmt.Errorf("reconnection failed: %w", lastErr)
}

func (d *BeepDevice) elapsed(s *stream) (time.Duration, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != s || s.started.IsZero() || !s.pausedAt.IsZero() {
		return 0, false
	}
	return time.Since(s.started) - s.pausedFor, true
}

func (d *BeepDevice) setTitle(s *stream, title string) {
	d.mu.Lock()
	if s.title == title {
		d.mu.Unlock()
		return
	}
	s.title = title
	registered := d.current == s
	d.mu.Unlock()

	log.Debug().Msgf("Now playing: %s", title)
	if registered {
		d.emit(Event{Type: EventLoadedMetadata, Source: s.source, Title: title})
	}
}

type httpStatusError struct {
	StatusCode int
	Status     string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("stream returned status %d: %s", e.StatusCode, e.Status)
}

func isNonRetryableError(err error) bool {
	if errors.Is(err, ErrUnsupportedFormat) {
		return true
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case 401, 403, 404, 410:
			return true
		}
	}
	return false
}

func (d *BeepDevice) readNetworkStream(s *stream, respBody io.ReadCloser, bodyReader io.Reader, pipeWriter *io.PipeWriter, icyMetaint int) {
	var exitErr error

	defer func() {
		respBody.Close()
		if exitErr != nil {
			pipeWriter.CloseWithError(exitErr)
		} else {
			pipeWriter.Close()
		}
		s.wg.Done()
		log.Debug().Msg("Network stream reader stopped")
	}()

	fail := func(err error) {
		exitErr = err
		s.reportError(err)
	}

	chunkSize := int64(icyMetaint)
	if chunkSize == 0 {
		chunkSize = NetworkReadSize
	}

	bufReader := bufio.NewReader(bodyReader)

	for {
		select {
		case <-s.ctx.Done():
			log.Debug().Msg("Network reader context cancelled")
			return
		case <-s.done:
			return
		default:
		}

		_, err := io.CopyN(pipeWriter, bufReader, chunkSize)
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, io.ErrClosedPipe) {
				return
			}
			if err != io.EOF {
				log.Error().Err(err).Msg("Error reading audio data from stream")
				fail(fmt.Errorf("network read error: %w", err))
			}
			return
		}

		if icyMetaint == 0 {
			continue
		}

		metaLenByte, err := bufReader.ReadByte()
		if err != nil {
			if s.ctx.Err() != nil || err == io.EOF {
				return
			}
			log.Error().Err(err).Msg("Error reading metadata length")
			fail(fmt.Errorf("metadata read error: %w", err))
			return
		}

		metaLen := int(metaLenByte) * 16
		if metaLen > MaxICYMetadataSize {
			log.Warn().Int("metaLen", metaLen).Msg("ICY metadata too large, skipping")
			if _, err := io.CopyN(io.Discard, bufReader, int64(metaLen)); err != nil && s.ctx.Err() != nil {
				return
			}
			continue
		}
		if metaLen == 0 {
			continue
		}

		metaData := make([]byte, metaLen)
		n, err := io.ReadFull(bufReader, metaData)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("Error reading metadata content")
			fail(fmt.Errorf("metadata content error: %w", err))
			return
		}

		if title, ok := parseStreamTitle(string(metaData[:n])); ok {
			d.setTitle(s, title)
		}
	}
}

func (d *BeepDevice) decodeAndBuffer(s *stream, streamer beep.StreamSeekCloser, pipeReader *io.PipeReader) {
	defer func() {
		streamer.Close()
		pipeReader.Close()
		close(s.sampleCh)
		s.wg.Done()

		log.Debug().Msg("Decoder and buffer goroutine stopped")

		if s.ctx.Err() == nil {
			s.closeDone()
		}
	}()

	decodedSamples := make([][2]float64, 4096)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.done:
			return
		default:
		}

		n, ok := streamer.Stream(decodedSamples)
		if !ok {
			if err := streamer.Err(); err != nil && s.ctx.Err() == nil {
				log.Error().Err(err).Msg("Stream decoding error")
				s.reportError(fmt.Errorf("decode error: %w", err))
			}
			return
		}

		for i := 0; i < n; i++ {
			select {
			case <-s.ctx.Done():
				return
			case <-s.done:
				return
			case s.sampleCh <- decodedSamples[i]:
			}
		}
	}
}

const fadeInDuration = 50 * time.Millisecond

type bufferedStreamerWrapper struct {
	stream          *stream
	fadeInRemaining int
	fadeInTotal     int
	done            bool
}

// Stream reads decoded audio samples into the buffer. Uses non-blocking reads
// so that an empty channel outputs silence instead of blocking the speaker
// mutex. This keeps oto's audio pipeline flowing and prevents stale audio
// from accumulating in its internal buffers during network interruptions.
func (b *bufferedStreamerWrapper) Stream(samples [][2]float64) (n int, ok bool) {
	s := b.stream
	audioEnd := 0

	if !b.done {
		for i := range samples {
			select {
			case <-s.done:
				b.done = true
			default:
			}
			if b.done {
				break
			}

			select {
			case sample, more := <-s.sampleCh:
				if !more {
					b.done = true
				} else {
					samples[i] = sample
					audioEnd = i + 1
				}
			default:
			}
			if b.done || audioEnd <= i {
				break
			}
		}
	}

	// When the stream ends mid-batch, discard any samples already read.
	// They may be stale (decoded from truncated pipe data).
	if b.done {
		audioEnd = 0
	}

	for i := audioEnd; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}

	if b.fadeInRemaining > 0 {
		for i := 0; i < audioEnd; i++ {
			pos := b.fadeInTotal - b.fadeInRemaining
			scale := float64(pos) / float64(b.fadeInTotal)
			samples[i][0] *= scale
			samples[i][1] *= scale
			b.fadeInRemaining--
			if b.fadeInRemaining <= 0 {
				break
			}
		}
	}

	return len(samples), true
}

func (b *bufferedStreamerWrapper) Err() error {
	return nil
}

// parseStreamTitle extracts StreamTitle from an ICY metadata block.
func parseStreamTitle(meta string) (string, bool) {
	const marker = "StreamTitle='"
	start := strings.Index(meta, marker)
	if start < 0 {
		return "", false
	}
	start += len(marker)
	end := strings.Index(meta[start:], "';")
	if end <= 0 {
		return "", false
	}
	return meta[start : start+end], true
}

// parseStreamInfo reads the format and bitrate announced by an Icecast or
// Shoutcast server.
func parseStreamInfo(h http.Header) StreamInfo {
	info := StreamInfo{
		Name:   strings.TrimSpace(h.Get("icy-name")),
		Format: "MP3",
	}

	contentType := strings.ToLower(h.Get("Content-Type"))
	switch {
	case strings.Contains(contentType, "aac"):
		info.Format = "AAC"
	case strings.Contains(contentType, "ogg"):
		info.Format = "OGG"
	case strings.Contains(contentType, "flac"):
		info.Format = "FLAC"
	}

	// Some servers send "128,128" for multi-bitrate streams.
	if br := h.Get("icy-br"); br != "" {
		first, _, _ := strings.Cut(br, ",")
		if v, err := strconv.Atoi(strings.TrimSpace(first)); err == nil {
			info.Bitrate = v
		}
	}

	if sr := h.Get("icy-sr"); sr != "" {
		if v, err := strconv.Atoi(strings.TrimSpace(sr)); err == nil {
			info.SampleRate = v
		}
	}

	return info
}
