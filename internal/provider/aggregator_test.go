package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	logx "posterbot/pkg/logx"
)

func nopLogger() logx.Logger { return logx.Nop() }

const omdbSearchBody = `{
	"Search": [
		{"Title": "Inception", "Year": "2010", "imdbID": "tt1375666", "Type": "movie", "Poster": "https://img.example/inception.jpg"},
		{"Title": "Inception: The Cobol Job", "Year": "2010", "imdbID": "tt1790736", "Type": "movie", "Poster": "N/A"}
	],
	"Response": "True"
}`

const omdbEmptyBody = `{"Response": "False", "Error": "Movie not found!"}`

const tmdbSearchBody = `{
	"results": [
		{"id": 27205, "title": "Inception", "release_date": "2010-07-15", "poster_path": "/ince.jpg", "overview": "A thief.", "vote_average": 8.369}
	]
}`

func newAggregator(t *testing.T, cfg Config) *Aggregator {
	t.Helper()
	agg, err := New(cfg, nopLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return agg
}

func TestNewRequiresAProvider(t *testing.T) {
	if _, err := New(Config{}, nopLogger()); !errors.Is(err, ErrNoProviders) {
		t.Fatalf("New with no keys: err = %v, want ErrNoProviders", err)
	}
}

func TestSearchShortCircuitsOnPrimaryHit(t *testing.T) {
	omdb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(omdbSearchBody))
	}))
	defer omdb.Close()

	var tmdbHits atomic.Int64
	tmdb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tmdbHits.Add(1)
		w.Write([]byte(tmdbSearchBody))
	}))
	defer tmdb.Close()

	agg := newAggregator(t, Config{
		OMDbAPIKey:  "k1",
		TMDbAPIKey:  "k2",
		OMDbBaseURL: omdb.URL,
		TMDbBaseURL: tmdb.URL,
	})

	source, records := agg.Search(context.Background(), "inception")
	if source != SourceOMDb {
		t.Fatalf("source = %q, want omdb", source)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].ExternalID != "tt1375666" {
		t.Errorf("records[0].ExternalID = %q", records[0].ExternalID)
	}
	if records[1].PosterURL != "" {
		t.Errorf("N/A poster should normalize to empty, got %q", records[1].PosterURL)
	}
	if n := tmdbHits.Load(); n != 0 {
		t.Fatalf("secondary provider was queried %d times despite a primary hit", n)
	}
}

func TestSearchFallsBackWhenPrimaryIsEmpty(t *testing.T) {
	omdb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(omdbEmptyBody))
	}))
	defer omdb.Close()
	tmdb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(tmdbSearchBody))
	}))
	defer tmdb.Close()

	agg := newAggregator(t, Config{
		OMDbAPIKey:    "k1",
		TMDbAPIKey:    "k2",
		OMDbBaseURL:   omdb.URL,
		TMDbBaseURL:   tmdb.URL,
		TMDbImageBase: "https://img.example",
	})

	source, records := agg.Search(context.Background(), "inception")
	if source != SourceTMDb {
		t.Fatalf("source = %q, want tmdb", source)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].ExternalID != "27205" {
		t.Errorf("ExternalID = %q, want 27205", records[0].ExternalID)
	}
	if records[0].Year != "2010" {
		t.Errorf("Year = %q, want 2010", records[0].Year)
	}
	if records[0].PosterURL != "https://img.example/ince.jpg" {
		t.Errorf("PosterURL = %q", records[0].PosterURL)
	}
}

func TestSearchFallsBackWhenPrimaryFails(t *testing.T) {
	omdb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer omdb.Close()
	tmdb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(tmdbSearchBody))
	}))
	defer tmdb.Close()

	agg := newAggregator(t, Config{
		OMDbAPIKey:  "k1",
		TMDbAPIKey:  "k2",
		OMDbBaseURL: omdb.URL,
		TMDbBaseURL: tmdb.URL,
	})

	source, records := agg.Search(context.Background(), "inception")
	if source != SourceTMDb || len(records) != 1 {
		t.Fatalf("expected tmdb fallback after primary failure, got source=%q n=%d", source, len(records))
	}
}

func TestSearchBothEmptyIsNotAnError(t *testing.T) {
	omdb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(omdbEmptyBody))
	}))
	defer omdb.Close()
	tmdb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": []}`))
	}))
	defer tmdb.Close()

	agg := newAggregator(t, Config{
		OMDbAPIKey:  "k1",
		TMDbAPIKey:  "k2",
		OMDbBaseURL: omdb.URL,
		TMDbBaseURL: tmdb.URL,
	})

	source, records := agg.Search(context.Background(), "zzzz")
	if source != "" || records != nil {
		t.Fatalf("want empty source and nil records, got %q / %v", source, records)
	}
}

func TestDetailsStaysOnPinnedSource(t *testing.T) {
	var omdbHits atomic.Int64
	omdb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		omdbHits.Add(1)
		w.Write([]byte(omdbEmptyBody))
	}))
	defer omdb.Close()
	tmdb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": 27205, "title": "Inception", "release_date": "2010-07-15",
			"poster_path": "/ince.jpg", "overview": "A thief.", "vote_average": 8.369,
			"runtime": 148, "original_language": "en",
			"budget": 160000000, "revenue": 825532764,
			"genres": [{"name": "Action"}, {"name": "Sci-Fi"}]
		}`))
	}))
	defer tmdb.Close()

	agg := newAggregator(t, Config{
		OMDbAPIKey:  "k1",
		TMDbAPIKey:  "k2",
		OMDbBaseURL: omdb.URL,
		TMDbBaseURL: tmdb.URL,
	})

	rec, err := agg.Details(context.Background(), SourceTMDb, "27205")
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if rec.Runtime != "148 min" {
		t.Errorf("Runtime = %q, want %q", rec.Runtime, "148 min")
	}
	if rec.Genre != "Action, Sci-Fi" {
		t.Errorf("Genre = %q", rec.Genre)
	}
	if rec.Budget != "$160,000,000" {
		t.Errorf("Budget = %q", rec.Budget)
	}
	if rec.Language != "EN" {
		t.Errorf("Language = %q, want EN", rec.Language)
	}
	if n := omdbHits.Load(); n != 0 {
		t.Fatalf("a pinned tmdb lookup hit omdb %d times", n)
	}

	// A source with no record behind it maps onto ErrNotFound.
	if _, err := agg.Details(context.Background(), SourceOMDb, "tt0000000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing record: err = %v, want ErrNotFound", err)
	}
}

func TestNewReleasesMergesFeeds(t *testing.T) {
	tmdb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/movie/now_playing":
			w.Write([]byte(`{"results": [{"id": 1, "title": "Movie One", "release_date": "2026-08-01", "poster_path": "/m1.jpg", "vote_average": 7.0}]}`))
		case "/tv/on_the_air":
			w.Write([]byte(`{"results": [{"id": 2, "name": "Show Two", "first_air_date": "2026-08-02", "poster_path": "/s2.jpg", "vote_average": 8.0}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer tmdb.Close()

	agg := newAggregator(t, Config{TMDbAPIKey: "k2", TMDbBaseURL: tmdb.URL})

	releases := agg.NewReleases(context.Background())
	if len(releases) != 2 {
		t.Fatalf("got %d releases, want 2", len(releases))
	}
	if releases[0].Kind != KindMovie || releases[1].Kind != KindSeries {
		t.Errorf("kinds = %q/%q, want movie/series", releases[0].Kind, releases[1].Kind)
	}
	if releases[1].Title != "Show Two" {
		t.Errorf("series title = %q, want Show Two", releases[1].Title)
	}
	if releases[1].Year != "2026" {
		t.Errorf("series year = %q, want 2026", releases[1].Year)
	}
}

func TestNewReleasesWithoutCatalogProvider(t *testing.T) {
	omdb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(omdbSearchBody))
	}))
	defer omdb.Close()

	agg := newAggregator(t, Config{OMDbAPIKey: "k1", OMDbBaseURL: omdb.URL})
	if releases := agg.NewReleases(context.Background()); len(releases) != 0 {
		t.Fatalf("got %d releases without a catalog provider, want 0", len(releases))
	}
}
