package provider

import (
	"encoding/json"
	"errors"
)

// Source identifies the upstream metadata provider a record came from.
// External ids are only unique within their source.
type Source string

const (
	SourceOMDb Source = "omdb"
	SourceTMDb Source = "tmdb"
)

type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "series"
)

// ErrNotFound is returned by Details when the pinned source has no record
// for the given id. Transport failures are absorbed into it as well; callers
// only need to know there is nothing to show.
var ErrNotFound = errors.New("record not found")

// Record is the provider-neutral representation of a movie or series.
// Optional fields are empty strings when the provider did not supply them.
type Record struct {
	Source     Source
	ExternalID string
	Title      string
	Year       string
	Kind       Kind

	PosterURL   string
	Rating      string
	ReleaseDate string
	Overview    string

	// Detail-view fields, populated by Details lookups only.
	Rated     string
	Runtime   string
	Genre     string
	Director  string
	Actors    string
	Language  string
	Country   string
	Awards    string
	BoxOffice string
	Budget    string
	Revenue   string

	// Raw keeps the provider's native payload for debugging.
	Raw json.RawMessage
}

// ContentKey returns the ledger key for this record. It is prefixed with the
// source so ids from different providers can never collide.
func (r Record) ContentKey() string {
	return string(r.Source) + ":" + r.ExternalID
}
