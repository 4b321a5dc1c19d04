package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const defaultOMDbBase = "http://www.omdbapi.com/"

// omdbClient talks to the OMDb API. OMDb signals success through a
// response-level "Response" field; a 200 with Response=="False" means
// "no data", not an error.
type omdbClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func (c *omdbClient) configured() bool { return c != nil && strings.TrimSpace(c.apiKey) != "" }

type omdbSearchItem struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	IMDbID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

type omdbSearchResponse struct {
	Search   []omdbSearchItem `json:"Search"`
	Response string           `json:"Response"`
	Error    string           `json:"Error"`
}

type omdbDetailResponse struct {
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Rated      string `json:"Rated"`
	Released   string `json:"Released"`
	Runtime    string `json:"Runtime"`
	Genre      string `json:"Genre"`
	Director   string `json:"Director"`
	Actors     string `json:"Actors"`
	Plot       string `json:"Plot"`
	Language   string `json:"Language"`
	Country    string `json:"Country"`
	Awards     string `json:"Awards"`
	Poster     string `json:"Poster"`
	IMDbRating string `json:"imdbRating"`
	IMDbID     string `json:"imdbID"`
	Type       string `json:"Type"`
	BoxOffice  string `json:"BoxOffice"`
	Response   string `json:"Response"`
}

func (c *omdbClient) get(ctx context.Context, params url.Values, out any) error {
	params.Set("apikey", c.apiKey)
	base := c.baseURL
	if base == "" {
		base = defaultOMDbBase
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("omdb: unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *omdbClient) search(ctx context.Context, query string) ([]Record, error) {
	params := url.Values{}
	params.Set("s", query)
	params.Set("type", "movie")

	var body omdbSearchResponse
	if err := c.get(ctx, params, &body); err != nil {
		return nil, err
	}
	if body.Response != "True" {
		return nil, nil
	}

	records := make([]Record, 0, len(body.Search))
	for _, it := range body.Search {
		records = append(records, Record{
			Source:     SourceOMDb,
			ExternalID: it.IMDbID,
			Title:      it.Title,
			Year:       orNA(it.Year),
			Kind:       omdbKind(it.Type),
			PosterURL:  posterOrEmpty(it.Poster),
		})
	}
	return records, nil
}

func (c *omdbClient) details(ctx context.Context, imdbID string) (*Record, error) {
	params := url.Values{}
	params.Set("i", imdbID)
	params.Set("plot", "full")

	var body omdbDetailResponse
	if err := c.get(ctx, params, &body); err != nil {
		return nil, err
	}
	if body.Response != "True" {
		return nil, nil
	}

	raw, _ := json.Marshal(body)
	return &Record{
		Source:      SourceOMDb,
		ExternalID:  body.IMDbID,
		Title:       body.Title,
		Year:        orNA(body.Year),
		Kind:        omdbKind(body.Type),
		PosterURL:   posterOrEmpty(body.Poster),
		Rating:      orNA(body.IMDbRating),
		ReleaseDate: orNA(body.Released),
		Overview:    orNA(body.Plot),
		Rated:       orNA(body.Rated),
		Runtime:     orNA(body.Runtime),
		Genre:       orNA(body.Genre),
		Director:    orNA(body.Director),
		Actors:      orNA(body.Actors),
		Language:    orNA(body.Language),
		Country:     orNA(body.Country),
		Awards:      orNA(body.Awards),
		BoxOffice:   orNA(body.BoxOffice),
		Raw:         raw,
	}, nil
}

func omdbKind(t string) Kind {
	if strings.EqualFold(t, "series") {
		return KindSeries
	}
	return KindMovie
}

// OMDb uses the literal string "N/A" for missing posters.
func posterOrEmpty(p string) string {
	if p == "" || p == notAvailable {
		return ""
	}
	return p
}
