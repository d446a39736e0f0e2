package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/TobiSchelling/catalog/internal/articles"
	"github.com/TobiSchelling/catalog/internal/cache"
	"github.com/TobiSchelling/catalog/internal/render"
)

// Search runs query against the store and renders the outcome for the
// client identified by session.
//
// Only a successful non-empty result overwrites the client's cached set; an
// empty or failed search leaves it as it was. The returned error is non-nil
// only when rendering itself fails.
func (s *Service) Search(ctx context.Context, session, query string) (View, error) {
	res, err := s.store.Search(ctx, query)
	switch {
	case err != nil:
		s.logger.Error("searching articles", zap.String("query", query), zap.Error(err))
		return s.empty(StateFailed, render.MsgSearchFailed)
	case res.Error != nil:
		s.logger.Warn("store rejected search", zap.String("query", query), zap.Error(res.Error))
		return s.empty(StateFailed, render.MsgSearchFailed)
	case len(res.Data) == 0:
		s.logger.Debug("no articles matched", zap.String("query", query))
		return s.empty(StateNoResults, render.MsgNoResults)
	}

	if err := s.cache.Set(ctx, cache.Key(session, s.slot), res.Data); err != nil {
		s.logger.Warn("caching results", zap.String("session", session), zap.Error(err))
	}

	s.logger.Debug("articles found", zap.String("query", query), zap.Int("count", len(res.Data)))
	return s.populated(res.Data)
}

// Restore re-renders the client's cached result set without querying the
// store. With nothing cached the view stays in StateInitial.
func (s *Service) Restore(ctx context.Context, session string) (View, error) {
	data, ok, err := s.cache.Get(ctx, cache.Key(session, s.slot))
	if err != nil {
		s.logger.Warn("reading cached results", zap.String("session", session), zap.Error(err))
		return View{State: StateInitial}, nil
	}
	if !ok || len(data) == 0 {
		return View{State: StateInitial}, nil
	}
	return s.populated(data)
}

// Forget clears the client's cached result set.
func (s *Service) Forget(ctx context.Context, session string) error {
	return s.cache.Clear(ctx, cache.Key(session, s.slot))
}

func (s *Service) populated(data []articles.Article) (View, error) {
	frag, err := s.renderer.Articles(data)
	if err != nil {
		return View{}, err
	}
	return View{State: StatePopulated, Fragment: frag}, nil
}

func (s *Service) empty(state State, message string) (View, error) {
	frag, err := s.renderer.Empty(message)
	if err != nil {
		return View{}, err
	}
	return View{State: state, Fragment: frag}, nil
}
