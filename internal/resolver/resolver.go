// Package resolver turns playlist files and legacy redirect links into the
// stream URL they point to.
package resolver

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/glebovdev/radio-cli/internal/config"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	// MaxPlaylistSize caps how much of a playlist body is inspected.
	MaxPlaylistSize = 64 * 1024
)

var (
	redirectPatterns   = []string{"radiotime.com/tune.ashx"}
	playlistExtensions = []string{".m3u", ".pls"}

	streamLinePattern = regexp.MustCompile(`(?i)^https?://`)
	lineSplitPattern  = regexp.MustCompile(`\r?\n`)
)

// Resolver fetches indirect stream URLs. The zero value is not usable, use New.
type Resolver struct {
	client *resty.Client
}

func New(timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = config.DefaultRequestTimeout
	}
	return &Resolver{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", fmt.Sprintf("radio-cli/%s", config.AppVersion)),
	}
}

// NeedsResolution reports whether rawURL is a playlist file or a legacy
// redirect link rather than an audio stream.
func NeedsResolution(rawURL string) bool {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	if lower == "" {
		return false
	}

	for _, pattern := range redirectPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}

	path := lower
	if u, err := url.Parse(lower); err == nil && u.Path != "" {
		path = u.Path
	} else if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	for _, ext := range playlistExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// Resolve returns the first stream URL listed behind rawURL. Direct stream
// URLs are returned as is without any request, and every failure returns
// rawURL unchanged.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) string {
	if !NeedsResolution(rawURL) {
		return rawURL
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		log.Debug().Err(err).Msgf("Failed to fetch playlist %s", rawURL)
		return rawURL
	}

	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		log.Debug().Msgf("Playlist %s returned status %d", rawURL, resp.StatusCode())
		return rawURL
	}

	data, err := io.ReadAll(io.LimitReader(body, MaxPlaylistSize))
	if err != nil {
		log.Debug().Err(err).Msgf("Failed to read playlist %s", rawURL)
		return rawURL
	}

	if stream, ok := ParsePlaylist(string(data)); ok {
		log.Debug().Msgf("Resolved %s -> %s", rawURL, stream)
		return stream
	}

	log.Debug().Msgf("No stream URL found in playlist %s", rawURL)
	return rawURL
}

// ParsePlaylist returns the first absolute HTTP(S) URL in an M3U or PLS body.
// Blank lines and lines starting with # or ; are skipped, and PLS FileN=
// entries contribute their value.
func ParsePlaylist(body string) (string, bool) {
	for _, line := range lineSplitPattern.Split(body, -1) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if key, value, ok := strings.Cut(line, "="); ok && isPLSFileKey(key) {
			line = strings.TrimSpace(value)
		}

		if streamLinePattern.MatchString(line) {
			return line, true
		}
	}
	return "", false
}

func isPLSFileKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if !strings.HasPrefix(key, "file") || len(key) == len("file") {
		return false
	}
	for _, c := range key[len("file"):] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
