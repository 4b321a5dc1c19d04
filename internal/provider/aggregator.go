package provider

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	logx "posterbot/pkg/logx"
)

type Config struct {
	OMDbAPIKey string
	TMDbAPIKey string

	// Overridable for tests; empty means production endpoints.
	OMDbBaseURL   string
	TMDbBaseURL   string
	TMDbImageBase string

	HTTPTimeout time.Duration
}

// ErrNoProviders is the only fatal provider condition: without at least one
// configured API key the bot has no data source at all.
var ErrNoProviders = errors.New("no metadata provider configured (need an OMDb or TMDb api key)")

// Aggregator queries OMDb and TMDb and normalizes their payloads into
// Records. Transport errors never escape it: a failing provider degrades to
// "no data from this provider" so search, detail and scan flows keep going
// with whatever remains.
type Aggregator struct {
	omdb *omdbClient
	tmdb *tmdbClient
	log  logx.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func New(cfg Config, log logx.Logger) (*Aggregator, error) {
	if strings.TrimSpace(cfg.OMDbAPIKey) == "" && strings.TrimSpace(cfg.TMDbAPIKey) == "" {
		return nil, ErrNoProviders
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	hc := &http.Client{Timeout: timeout}
	return &Aggregator{
		omdb: &omdbClient{apiKey: cfg.OMDbAPIKey, baseURL: cfg.OMDbBaseURL, http: hc},
		tmdb: &tmdbClient{apiKey: cfg.TMDbAPIKey, baseURL: cfg.TMDbBaseURL, imageBase: cfg.TMDbImageBase, http: hc},
		log:  log,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Search tries OMDb first and short-circuits on a non-empty result; TMDb is
// consulted only when OMDb is unavailable or empty. Both empty is a
// legitimate "no results": (empty source, nil slice), not an error.
func (a *Aggregator) Search(ctx context.Context, query string) (Source, []Record) {
	if a.omdb.configured() {
		records, err := a.omdb.search(ctx, query)
		if err != nil {
			a.log.Warn("omdb search failed", logx.String("query", query), logx.Err(err))
		} else if len(records) > 0 {
			return SourceOMDb, records
		}
	}
	if a.tmdb.configured() {
		records, err := a.tmdb.search(ctx, query)
		if err != nil {
			a.log.Warn("tmdb search failed", logx.String("query", query), logx.Err(err))
		} else if len(records) > 0 {
			return SourceTMDb, records
		}
	}
	return "", nil
}

// Details looks up the full record from the given source only. The source
// was pinned when the search session was created, so there is no fallback.
func (a *Aggregator) Details(ctx context.Context, source Source, id string) (*Record, error) {
	var (
		rec *Record
		err error
	)
	switch source {
	case SourceOMDb:
		if !a.omdb.configured() {
			return nil, ErrNotFound
		}
		rec, err = a.omdb.details(ctx, id)
	case SourceTMDb:
		if !a.tmdb.configured() {
			return nil, ErrNotFound
		}
		rec, err = a.tmdb.details(ctx, id)
	default:
		return nil, ErrNotFound
	}
	if err != nil {
		a.log.Warn("detail lookup failed", logx.String("source", string(source)), logx.String("id", id), logx.Err(err))
		return nil, ErrNotFound
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

// NewReleases merges the theatrical and episodic feeds in feed order.
// No catalog provider configured, or every feed failing, yields an empty
// slice, never an error.
func (a *Aggregator) NewReleases(ctx context.Context) []Record {
	if !a.tmdb.configured() {
		return nil
	}
	var out []Record
	movies, err := a.tmdb.nowPlaying(ctx)
	if err != nil {
		a.log.Warn("now_playing fetch failed", logx.Err(err))
	} else {
		out = append(out, movies...)
	}
	shows, err := a.tmdb.onTheAir(ctx)
	if err != nil {
		a.log.Warn("on_the_air fetch failed", logx.Err(err))
	} else {
		out = append(out, shows...)
	}
	return out
}

// Spotlight picks one record to decorate the landing message: a random entry
// from the curated pool when OMDb is configured, otherwise a random current
// release from TMDb. Any failure degrades to nil; callers fall back to a
// static greeting.
func (a *Aggregator) Spotlight(ctx context.Context) *Record {
	if a.omdb.configured() {
		id := curatedPool[a.intn(len(curatedPool))]
		rec, err := a.omdb.details(ctx, id)
		if err != nil {
			a.log.Debug("spotlight omdb lookup failed", logx.String("id", id), logx.Err(err))
		} else if rec != nil && rec.PosterURL != "" {
			return rec
		}
	}
	if a.tmdb.configured() {
		releases, err := a.tmdb.nowPlaying(ctx)
		if err != nil {
			a.log.Debug("spotlight tmdb fetch failed", logx.Err(err))
		} else if len(releases) > 0 {
			rec := releases[a.intn(len(releases))]
			return &rec
		}
	}
	return nil
}

func (a *Aggregator) intn(n int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.Intn(n)
}

// Well-known IMDb ids used for the landing spotlight when only OMDb is
// available (OMDb has no discovery feed to sample from).
var curatedPool = []string{
	"tt0111161", "tt0068646", "tt0468569", "tt0071562", "tt0050083",
	"tt0108052", "tt0167260", "tt0110912", "tt0060196", "tt0120737",
	"tt0137523", "tt0109830", "tt1375666", "tt0080684", "tt0167261",
	"tt0073486", "tt0099685", "tt0133093", "tt0047478", "tt0114369",
	"tt0317248", "tt0076759", "tt0102926", "tt0038650", "tt0118799",
	"tt0120815", "tt0245429", "tt0120689", "tt0816692", "tt0114814",
	"tt0110413", "tt0056058", "tt0088763", "tt0103064", "tt0027977",
	"tt0120586", "tt0253474", "tt0407887", "tt0172495", "tt0482571",
}
