package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/TobiSchelling/catalog/internal/articles"
)

// Insert validates a and writes it to the store. It never returns an error
// and never panics: every failure is logged and mapped to ErrorLocation.
func (s *Service) Insert(ctx context.Context, a articles.NewArticle) Outcome {
	if err := a.Validate(); err != nil {
		s.logger.Info("rejected article", zap.Error(err))
		return Outcome{Location: ErrorLocation, Reason: ReasonValidation, Err: err}
	}

	res, err := s.storeInsert(ctx, a)
	if err != nil {
		s.logger.Error("inserting article", zap.String("title", a.Title), zap.Error(err))
		return Outcome{Location: ErrorLocation, Reason: ReasonUnexpected, Err: err}
	}
	if res.Error != nil {
		s.logger.Warn("store rejected article", zap.String("title", a.Title), zap.Error(res.Error))
		return Outcome{Location: ErrorLocation, Reason: ReasonStore, Err: res.Error}
	}
	if res.Data == nil {
		s.logger.Warn("store returned no data for insert", zap.String("title", a.Title))
		return Outcome{Location: ErrorLocation, Reason: ReasonStore}
	}

	out := Outcome{Location: SuccessLocation}
	if len(res.Data) > 0 {
		out.Article = &res.Data[0]
		s.logger.Info("article added", zap.Int64("id", out.Article.ID), zap.String("title", out.Article.Title))
	}
	return out
}

// storeInsert converts a panic in the store into an error.
func (s *Service) storeInsert(ctx context.Context, a articles.NewArticle) (res articles.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("store panicked: %v", r)
		}
	}()
	return s.store.Insert(ctx, a)
}
