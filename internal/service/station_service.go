// Package service provides the business logic layer for discovering stations.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"sync"
	"time"

	"github.com/glebovdev/radio-cli/internal/cache"
	"github.com/glebovdev/radio-cli/internal/config"
	"github.com/glebovdev/radio-cli/internal/station"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	// PageSize is how many stations each page exposes.
	PageSize = 50

	imageLoadTimeout = 15 * time.Second
)

var ErrNoLogo = errors.New("station has no logo")

// PrimaryDirectory is the station directory consulted first.
type PrimaryDirectory interface {
	StationsByCountry(ctx context.Context, country string) ([]station.Station, error)
	StationsByName(ctx context.Context, name string) ([]station.Station, error)
}

// LegacyDirectory is the fallback for country lookups.
type LegacyDirectory interface {
	Search(ctx context.Context, query string) ([]station.Station, error)
}

type Status int

const (
	StatusIdle Status = iota
	StatusOK
	StatusEmpty
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type QueryKind int

const (
	KindNone QueryKind = iota
	KindCountry
	KindName
)

// Page is what the presentation layer sees: the stations exposed so far and
// the outcome of the last lookup.
type Page struct {
	Stations []station.Station
	HasMore  bool
	Loading  bool
	Status   Status
	Message  string
	Kind     QueryKind
	Query    string
}

type pager struct {
	kind QueryKind
	key  string
	all  []station.Station
	page int
}

func (p pager) hasMore() bool {
	return p.page*PageSize < len(p.all)
}

// StationService memoizes directory lookups per query and pages through the
// cached results. Cached entries live for the process lifetime.
type StationService struct {
	primary     PrimaryDirectory
	legacy      LegacyDirectory
	imageCache  *cache.Cache
	imageClient *resty.Client

	mu        sync.Mutex
	byCountry map[string][]station.Station
	byName    map[string][]station.Station
	pager     pager
	displayed []station.Station
	loading   bool
	status    Status
	message   string
	seq       uint64
	onChange  func(Page)
}

// NewStationService creates a StationService. imageCache may be nil, in which
// case logos are fetched on every request.
func NewStationService(primary PrimaryDirectory, legacy LegacyDirectory, imageCache *cache.Cache) *StationService {
	return &StationService{
		primary:    primary,
		legacy:     legacy,
		imageCache: imageCache,
		imageClient: resty.New().
			SetTimeout(imageLoadTimeout).
			SetHeader("User-Agent", fmt.Sprintf("radio-cli/%s", config.AppVersion)),
		byCountry: make(map[string][]station.Station),
		byName:    make(map[string][]station.Station),
	}
}

// SetChangeHandler registers fn to be called with a fresh snapshot whenever
// the displayed page, loading flag or status changes.
func (s *StationService) SetChangeHandler(fn func(Page)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// FetchByCountry shows the first page of stations for country. Cached
// countries are served from memory. Otherwise the primary directory is asked
// first and the legacy directory's search is used when it yields nothing.
// Empty results are cached, failures are not.
func (s *StationService) FetchByCountry(ctx context.Context, country string) Page {
	country = strings.TrimSpace(country)
	if country == "" {
		return s.Snapshot()
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	if cached, ok := s.byCountry[country]; ok {
		log.Debug().Str("country", country).Int("count", len(cached)).Msg("Country served from cache")
		s.showLocked(KindCountry, country, cached, statusFor(cached), emptyCountryMessage(country, cached))
		return s.commit()
	}
	s.startLoadingLocked(KindCountry, country)
	s.commit()

	results, status, message := s.lookupCountry(ctx, country)

	s.mu.Lock()
	// Only settled answers are memoized; a failed lookup must stay retryable.
	if ctx.Err() == nil && status != StatusFailed {
		s.byCountry[country] = results
	}
	if seq != s.seq {
		s.mu.Unlock()
		log.Debug().Str("country", country).Msg("Country fetch superseded, result cached only")
		return s.Snapshot()
	}
	s.showLocked(KindCountry, country, results, status, message)
	return s.commit()
}

func (s *StationService) lookupCountry(ctx context.Context, country string) ([]station.Station, Status, string) {
	results, err := s.primary.StationsByCountry(ctx, country)
	if err != nil {
		log.Debug().Err(err).Str("country", country).Msg("Primary directory failed, trying legacy directory")
	}
	if len(results) > 0 {
		return results, StatusOK, ""
	}

	if s.legacy == nil {
		return []station.Station{}, StatusEmpty, emptyCountryMessage(country, nil)
	}

	results, err = s.legacy.Search(ctx, country)
	if err != nil {
		log.Warn().Err(err).Str("country", country).Msg("Legacy directory failed")
		return []station.Station{}, StatusFailed,
			fmt.Sprintf("Could not load stations for %s. Please try again later.", country)
	}
	if len(results) == 0 {
		return []station.Station{}, StatusEmpty, emptyCountryMessage(country, nil)
	}
	return results, StatusOK, ""
}

// FetchByName shows the first page of stations whose name matches name.
// Only the primary directory is searched. Empty and failed searches are not
// cached so they can be retried.
func (s *StationService) FetchByName(ctx context.Context, name string) Page {
	name = strings.TrimSpace(name)
	if name == "" {
		return s.Snapshot()
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	if cached, ok := s.byName[name]; ok {
		log.Debug().Str("name", name).Int("count", len(cached)).Msg("Name served from cache")
		s.showLocked(KindName, name, cached, StatusOK, "")
		return s.commit()
	}
	s.startLoadingLocked(KindName, name)
	s.commit()

	results, err := s.primary.StationsByName(ctx, name)

	status, message := StatusOK, ""
	switch {
	case err != nil:
		log.Warn().Err(err).Str("name", name).Msg("Name search failed")
		results = []station.Station{}
		status = StatusFailed
		message = fmt.Sprintf("Could not search for %q. Please try again later.", name)
	case len(results) == 0:
		results = []station.Station{}
		status = StatusEmpty
		message = fmt.Sprintf("No stations found with the name %q.", name)
	}

	s.mu.Lock()
	if status == StatusOK {
		s.byName[name] = results
	}
	if seq != s.seq {
		s.mu.Unlock()
		log.Debug().Str("name", name).Msg("Name search superseded")
		return s.Snapshot()
	}
	s.showLocked(KindName, name, results, status, message)
	return s.commit()
}

// FetchMoreByCountry appends the next page of the active country listing.
func (s *StationService) FetchMoreByCountry() Page {
	return s.fetchMore(KindCountry)
}

// FetchMoreByName appends the next page of the active name search.
func (s *StationService) FetchMoreByName() Page {
	return s.fetchMore(KindName)
}

// FetchMore appends the next page of whatever listing is active.
func (s *StationService) FetchMore() Page {
	s.mu.Lock()
	kind := s.pager.kind
	s.mu.Unlock()
	return s.fetchMore(kind)
}

func (s *StationService) fetchMore(kind QueryKind) Page {
	s.mu.Lock()
	if s.loading || kind == KindNone || s.pager.kind != kind || !s.pager.hasMore() {
		page := s.pageLocked()
		s.mu.Unlock()
		return page
	}

	start := s.pager.page * PageSize
	end := min(start+PageSize, len(s.pager.all))
	s.displayed = append(s.displayed, s.pager.all[start:end]...)
	s.pager.page++

	log.Debug().Int("shown", len(s.displayed)).Int("total", len(s.pager.all)).Msg("Next page exposed")
	return s.commit()
}

// Clear empties the displayed results and status. Cached lookups are kept,
// and a lookup still in flight will no longer replace the display.
func (s *StationService) Clear() {
	s.mu.Lock()
	s.seq++
	s.displayed = nil
	s.pager = pager{}
	s.loading = false
	s.status = StatusIdle
	s.message = ""
	s.commit()
}

// Snapshot returns the current page state.
func (s *StationService) Snapshot() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageLocked()
}

// CachedQueries reports how many country and name lookups are memoized.
func (s *StationService) CachedQueries() (countries, names int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byCountry), len(s.byName)
}

func (s *StationService) startLoadingLocked(kind QueryKind, key string) {
	s.loading = true
	s.status = StatusIdle
	s.message = ""
	s.pager = pager{kind: kind, key: key}
}

func (s *StationService) showLocked(kind QueryKind, key string, all []station.Station, status Status, message string) {
	s.pager = pager{kind: kind, key: key, all: all, page: 1}
	n := min(PageSize, len(all))
	s.displayed = append([]station.Station(nil), all[:n]...)
	s.loading = false
	s.status = status
	s.message = message
}

// commit releases the lock taken by the caller and publishes the new state.
func (s *StationService) commit() Page {
	page := s.pageLocked()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(page)
	}
	return page
}

func (s *StationService) pageLocked() Page {
	stations := make([]station.Station, len(s.displayed))
	copy(stations, s.displayed)
	return Page{
		Stations: stations,
		HasMore:  s.pager.hasMore(),
		Loading:  s.loading,
		Status:   s.status,
		Message:  s.message,
		Kind:     s.pager.kind,
		Query:    s.pager.key,
	}
}

func statusFor(results []station.Station) Status {
	if len(results) == 0 {
		return StatusEmpty
	}
	return StatusOK
}

func emptyCountryMessage(country string, results []station.Station) string {
	if len(results) > 0 {
		return ""
	}
	return fmt.Sprintf("No stations found for %s.", country)
}

// LoadImage fetches a station logo, going through the disk cache when one is
// configured.
func (s *StationService) LoadImage(url string) (image.Image, error) {
	if url == "" {
		return nil, ErrNoLogo
	}

	if s.imageCache != nil {
		if img := s.imageCache.GetImage(url); img != nil {
			log.Debug().Str("url", url).Msg("Image loaded from cache")
			return img, nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), imageLoadTimeout)
	defer cancel()

	resp, err := s.imageClient.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("image returned status %d", resp.StatusCode())
	}

	img, _, err := image.Decode(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	if s.imageCache != nil {
		go func() {
			if err := s.imageCache.SaveImage(url, img); err != nil {
				log.Debug().Err(err).Str("url", url).Msg("Failed to cache image")
			} else {
				log.Debug().Str("url", url).Msg("Image cached")
			}
		}()
	}

	return img, nil
}
