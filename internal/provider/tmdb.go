package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	defaultTMDbBase      = "https://api.themoviedb.org/3"
	defaultTMDbImageBase = "https://image.tmdb.org/t/p/original"
)

// tmdbClient talks to the TMDb API. Poster paths are relative and must be
// joined with the image base URL.
type tmdbClient struct {
	apiKey    string
	baseURL   string
	imageBase string
	http      *http.Client
}

func (c *tmdbClient) configured() bool { return c != nil && strings.TrimSpace(c.apiKey) != "" }

type tmdbListItem struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"` // tv endpoints use "name"
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	PosterPath   string  `json:"poster_path"`
	Overview     string  `json:"overview"`
	VoteAverage  float64 `json:"vote_average"`
}

type tmdbListResponse struct {
	Results []tmdbListItem `json:"results"`
}

type tmdbMovieDetail struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	ReleaseDate      string  `json:"release_date"`
	PosterPath       string  `json:"poster_path"`
	Overview         string  `json:"overview"`
	VoteAverage      float64 `json:"vote_average"`
	Runtime          int     `json:"runtime"`
	OriginalLanguage string  `json:"original_language"`
	Budget           int64   `json:"budget"`
	Revenue          int64   `json:"revenue"`
	Genres           []struct {
		Name string `json:"name"`
	} `json:"genres"`
}

func (c *tmdbClient) get(ctx context.Context, path string, params url.Values, out any) error {
	base := c.baseURL
	if base == "" {
		base = defaultTMDbBase
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tmdb: unexpected status %d for %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *tmdbClient) search(ctx context.Context, query string) ([]Record, error) {
	params := url.Values{}
	params.Set("query", query)
	var body tmdbListResponse
	if err := c.get(ctx, "/search/movie", params, &body); err != nil {
		return nil, err
	}
	return c.listToRecords(body.Results, KindMovie), nil
}

func (c *tmdbClient) details(ctx context.Context, id string) (*Record, error) {
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return nil, fmt.Errorf("tmdb: invalid movie id %q", id)
	}
	var body tmdbMovieDetail
	if err := c.get(ctx, "/movie/"+id, nil, &body); err != nil {
		return nil, err
	}
	if body.ID == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(body.Genres))
	for _, g := range body.Genres {
		names = append(names, g.Name)
	}

	raw, _ := json.Marshal(body)
	return &Record{
		Source:      SourceTMDb,
		ExternalID:  strconv.FormatInt(body.ID, 10),
		Title:       body.Title,
		Year:        yearFromDate(body.ReleaseDate),
		Kind:        KindMovie,
		PosterURL:   c.posterURL(body.PosterPath),
		Rating:      floatRating(body.VoteAverage),
		ReleaseDate: orNA(body.ReleaseDate),
		Overview:    orNA(body.Overview),
		Runtime:     runtimeMinutes(body.Runtime),
		Genre:       orNA(strings.Join(names, ", ")),
		Language:    upperLang(body.OriginalLanguage),
		Budget:      formatMoney(body.Budget),
		Revenue:     formatMoney(body.Revenue),
		Raw:         raw,
	}, nil
}

func (c *tmdbClient) nowPlaying(ctx context.Context) ([]Record, error) {
	var body tmdbListResponse
	if err := c.get(ctx, "/movie/now_playing", nil, &body); err != nil {
		return nil, err
	}
	return c.listToRecords(body.Results, KindMovie), nil
}

func (c *tmdbClient) onTheAir(ctx context.Context) ([]Record, error) {
	var body tmdbListResponse
	if err := c.get(ctx, "/tv/on_the_air", nil, &body); err != nil {
		return nil, err
	}
	return c.listToRecords(body.Results, KindSeries), nil
}

func (c *tmdbClient) listToRecords(items []tmdbListItem, kind Kind) []Record {
	records := make([]Record, 0, len(items))
	for _, it := range items {
		title := it.Title
		date := it.ReleaseDate
		if kind == KindSeries {
			title = it.Name
			date = it.FirstAirDate
		}
		records = append(records, Record{
			Source:      SourceTMDb,
			ExternalID:  strconv.FormatInt(it.ID, 10),
			Title:       title,
			Year:        yearFromDate(date),
			Kind:        kind,
			PosterURL:   c.posterURL(it.PosterPath),
			Rating:      floatRating(it.VoteAverage),
			ReleaseDate: orNA(date),
			Overview:    it.Overview,
		})
	}
	return records
}

func (c *tmdbClient) posterURL(path string) string {
	if path == "" {
		return ""
	}
	base := c.imageBase
	if base == "" {
		base = defaultTMDbImageBase
	}
	return base + path
}
