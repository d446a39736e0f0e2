// Package catalog implements the insert and search flows on top of an
// articles.Store, a result cache and a renderer.
package catalog

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/TobiSchelling/catalog/internal/articles"
	"github.com/TobiSchelling/catalog/internal/cache"
	"github.com/TobiSchelling/catalog/internal/render"
)

// Outcome locations of the insert flow.
const (
	SuccessLocation = "/article-added-success.html"
	ErrorLocation   = "/article-add-error.html"
)

// DefaultSlot names the cache slot holding the last result set.
const DefaultSlot = "articles"

// Reason classifies a failed insert. It is only logged; every failure leads to
// the same error page.
type Reason string

const (
	ReasonValidation Reason = "validation"
	ReasonStore      Reason = "store"
	ReasonUnexpected Reason = "unexpected"
)

// Outcome is where the client goes after an insert.
type Outcome struct {
	Location string
	Reason   Reason
	Err      error
	Article  *articles.Article
}

// OK reports whether the insert succeeded.
func (o Outcome) OK() bool {
	return o.Location == SuccessLocation
}

// State is the presentation state of the results container.
type State int

const (
	StateInitial State = iota
	StatePopulated
	StateNoResults
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StatePopulated:
		return "populated"
	case StateNoResults:
		return "no-results"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// View is what the results container shows.
type View struct {
	State    State
	Fragment render.Fragment
}

// Service wires the flows together.
type Service struct {
	store    articles.Store
	cache    cache.Cache
	renderer *render.Renderer
	logger   *zap.Logger
	slot     string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithSlot overrides the cache slot name.
func WithSlot(slot string) Option {
	return func(s *Service) { s.slot = slot }
}

// New creates a Service.
func New(store articles.Store, c cache.Cache, r *render.Renderer, opts ...Option) *Service {
	s := &Service{
		store:    store,
		cache:    c,
		renderer: r,
		logger:   zap.NewNop(),
		slot:     DefaultSlot,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
