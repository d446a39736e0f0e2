package articles

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SearchLimit caps the number of articles a search returns.
const SearchLimit = 10

var (
	ErrMissingTitle       = errors.New("title is required")
	ErrMissingDescription = errors.New("description is required")
)

// Article is a catalog entry as stored remotely.
type Article struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Code        string    `json:"code"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewArticle is the payload of an insert.
type NewArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Code        string `json:"code"`
}

// Validate reports missing required fields. Code may be empty.
func (n NewArticle) Validate() error {
	var errs []error
	if n.Title == "" {
		errs = append(errs, ErrMissingTitle)
	}
	if n.Description == "" {
		errs = append(errs, ErrMissingDescription)
	}
	return errors.Join(errs...)
}

// StoreError is an error reported by the store itself, as opposed to a
// transport failure. Fields mirror the PostgREST error body.
type StoreError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func (e *StoreError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Result is the normalized store response. When Error is set, Data must be
// ignored by the caller.
type Result struct {
	Data  []Article
	Error *StoreError
}

// Failed reports whether the store rejected the request.
func (r Result) Failed() bool {
	return r.Error != nil
}

// Store is the remote article table.
//
// A non-nil error return means the request never produced a store response
// (network failure, undecodable body). Store-side failures come back in
// Result.Error instead.
type Store interface {
	Insert(ctx context.Context, a NewArticle) (Result, error)
	Search(ctx context.Context, query string) (Result, error)
}

// SearchPattern wraps a raw query the way the store expects it. The query is
// passed through untouched otherwise.
func SearchPattern(query string) string {
	return "%" + query + "%"
}
