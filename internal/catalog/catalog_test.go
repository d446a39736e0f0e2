package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/TobiSchelling/catalog/internal/articles"
	"github.com/TobiSchelling/catalog/internal/cache"
	"github.com/TobiSchelling/catalog/internal/render"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var expectedArticles = []articles.Article{
	{ID: 2, Title: "Test Article 2", Description: "This is another test article", Code: "This is some more test code", CreatedAt: time.Date(2022, 1, 2, 0, 0, 0, 0, time.UTC)},
	{ID: 1, Title: "Test Article 1", Description: "This is a test article", Code: "This is some test code", CreatedAt: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)},
}

var tsqueryError = &articles.StoreError{Code: "42601", Message: `syntax error in tsquery: "%bad !> ? %"`}

type fakeStore struct {
	result  articles.Result
	err     error
	panics  bool
	inserts []articles.NewArticle
	queries []string
}

func (f *fakeStore) Insert(_ context.Context, a articles.NewArticle) (articles.Result, error) {
	f.inserts = append(f.inserts, a)
	if f.panics {
		panic("connection reset")
	}
	return f.result, f.err
}

func (f *fakeStore) Search(_ context.Context, query string) (articles.Result, error) {
	f.queries = append(f.queries, query)
	return f.result, f.err
}

// spyCache records writes on top of an in-memory cache.
type spyCache struct {
	*cache.Memory
	sets int
}

func (s *spyCache) Set(ctx context.Context, key string, data []articles.Article) error {
	s.sets++
	return s.Memory.Set(ctx, key, data)
}

func newService(t *testing.T, store articles.Store) (*Service, *spyCache) {
	t.Helper()
	r, err := render.New()
	require.NoError(t, err)
	c := &spyCache{Memory: cache.NewMemory()}
	return New(store, c, r, WithLogger(zaptest.NewLogger(t))), c
}

var valid = articles.NewArticle{Title: "Test Article 1", Description: "This is a test article", Code: "This is some test code"}

func TestInsertSuccess(t *testing.T) {
	store := &fakeStore{result: articles.Result{Data: expectedArticles[1:]}}
	svc, _ := newService(t, store)

	out := svc.Insert(context.Background(), valid)
	assert.True(t, out.OK())
	assert.Equal(t, SuccessLocation, out.Location)
	require.NotNil(t, out.Article)
	assert.Equal(t, int64(1), out.Article.ID)
	require.Len(t, store.inserts, 1)
	assert.Equal(t, valid, store.inserts[0])
}

func TestInsertEmptyCodeAllowed(t *testing.T) {
	store := &fakeStore{result: articles.Result{Data: []articles.Article{{ID: 3}}}}
	svc, _ := newService(t, store)

	out := svc.Insert(context.Background(), articles.NewArticle{Title: "T", Description: "D"})
	assert.Equal(t, SuccessLocation, out.Location)
}

func TestInsertValidationSkipsStore(t *testing.T) {
	store := &fakeStore{result: articles.Result{Data: expectedArticles}}
	svc, _ := newService(t, store)

	for _, in := range []articles.NewArticle{
		{Description: "D"},
		{Title: "T"},
		{Code: "x()"},
	} {
		out := svc.Insert(context.Background(), in)
		assert.Equal(t, ErrorLocation, out.Location)
		assert.Equal(t, ReasonValidation, out.Reason)
	}
	assert.Empty(t, store.inserts)
}

func TestInsertStoreError(t *testing.T) {
	store := &fakeStore{result: articles.Result{Data: []articles.Article{}, Error: tsqueryError}}
	svc, _ := newService(t, store)

	out := svc.Insert(context.Background(), valid)
	assert.Equal(t, ErrorLocation, out.Location)
	assert.Equal(t, ReasonStore, out.Reason)

	var se *articles.StoreError
	require.True(t, errors.As(out.Err, &se))
	assert.Equal(t, "42601", se.Code)
}

func TestInsertNilData(t *testing.T) {
	svc, _ := newService(t, &fakeStore{})

	out := svc.Insert(context.Background(), valid)
	assert.Equal(t, ErrorLocation, out.Location)
	assert.Equal(t, ReasonStore, out.Reason)
}

func TestInsertTransportError(t *testing.T) {
	svc, _ := newService(t, &fakeStore{err: errors.New("dial tcp: connection refused")})

	out := svc.Insert(context.Background(), valid)
	assert.Equal(t, ErrorLocation, out.Location)
	assert.Equal(t, ReasonUnexpected, out.Reason)
	assert.Error(t, out.Err)
}

func TestInsertRecoversPanic(t *testing.T) {
	svc, _ := newService(t, &fakeStore{panics: true})

	var out Outcome
	require.NotPanics(t, func() { out = svc.Insert(context.Background(), valid) })
	assert.Equal(t, ErrorLocation, out.Location)
	assert.Equal(t, ReasonUnexpected, out.Reason)
	assert.Contains(t, out.Err.Error(), "connection reset")
}

func TestSearchPopulatesCache(t *testing.T) {
	store := &fakeStore{result: articles.Result{Data: expectedArticles}}
	svc, c := newService(t, store)
	ctx := context.Background()

	view, err := svc.Search(ctx, "s1", "data-mock-test")
	require.NoError(t, err)
	assert.Equal(t, StatePopulated, view.State)
	assert.Equal(t, []string{"data-mock-test"}, store.queries)

	cached, ok, err := c.Get(ctx, cache.Key("s1", DefaultSlot))
	require.NoError(t, err)
	require.True(t, ok)
	if diff := cmp.Diff(expectedArticles, cached); diff != "" {
		t.Errorf("cache mismatch (-want +got):\n%s", diff)
	}

	out := string(view.Fragment.HTML)
	assert.Equal(t, 2, strings.Count(out, "data-article-id="))
	assert.Less(t, strings.Index(out, `data-article-id="2"`), strings.Index(out, `data-article-id="1"`))
}

func TestSearchNoResultsLeavesCache(t *testing.T) {
	store := &fakeStore{result: articles.Result{Data: expectedArticles}}
	svc, c := newService(t, store)
	ctx := context.Background()

	_, err := svc.Search(ctx, "s1", "first")
	require.NoError(t, err)

	store.result = articles.Result{Data: []articles.Article{}}
	view, err := svc.Search(ctx, "s1", "nothing")
	require.NoError(t, err)
	assert.Equal(t, StateNoResults, view.State)
	assert.Contains(t, string(view.Fragment.HTML), render.MsgNoResults)
	assert.Equal(t, 1, c.sets)

	cached, _, _ := c.Get(ctx, cache.Key("s1", DefaultSlot))
	assert.Len(t, cached, 2)
}

func TestSearchStoreErrorIgnoresData(t *testing.T) {
	store := &fakeStore{result: articles.Result{Data: expectedArticles, Error: tsqueryError}}
	svc, c := newService(t, store)

	view, err := svc.Search(context.Background(), "s1", "bad !> ?")
	require.NoError(t, err)
	assert.Equal(t, StateFailed, view.State)
	assert.Contains(t, string(view.Fragment.HTML), render.MsgSearchFailed)
	assert.NotContains(t, string(view.Fragment.HTML), "Test Article")
	assert.Zero(t, c.sets)
}

func TestSearchTransportError(t *testing.T) {
	svc, c := newService(t, &fakeStore{err: errors.New("timeout")})

	view, err := svc.Search(context.Background(), "s1", "go")
	require.NoError(t, err)
	assert.Equal(t, StateFailed, view.State)
	assert.Contains(t, string(view.Fragment.HTML), render.MsgSearchFailed)
	assert.Zero(t, c.sets)
}

func TestRestore(t *testing.T) {
	store := &fakeStore{result: articles.Result{Data: expectedArticles}}
	svc, _ := newService(t, store)
	ctx := context.Background()

	initial, err := svc.Restore(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, StateInitial, initial.State)
	assert.Empty(t, initial.Fragment.HTML)

	searched, err := svc.Search(ctx, "s1", "go")
	require.NoError(t, err)

	first, err := svc.Restore(ctx, "s1")
	require.NoError(t, err)
	second, err := svc.Restore(ctx, "s1")
	require.NoError(t, err)

	assert.Equal(t, StatePopulated, first.State)
	assert.Equal(t, searched.Fragment.HTML, first.Fragment.HTML)
	assert.Equal(t, first.Fragment.HTML, second.Fragment.HTML)
	assert.Len(t, store.queries, 1, "restore must not query the store")
}

func TestRestoreIsPerSession(t *testing.T) {
	store := &fakeStore{result: articles.Result{Data: expectedArticles}}
	svc, _ := newService(t, store)
	ctx := context.Background()

	svc.Search(ctx, "s1", "go")
	other, err := svc.Restore(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, StateInitial, other.State)
}

func TestForget(t *testing.T) {
	store := &fakeStore{result: articles.Result{Data: expectedArticles}}
	svc, _ := newService(t, store)
	ctx := context.Background()

	svc.Search(ctx, "s1", "go")
	require.NoError(t, svc.Forget(ctx, "s1"))

	view, _ := svc.Restore(ctx, "s1")
	assert.Equal(t, StateInitial, view.State)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "populated", StatePopulated.String())
	assert.Equal(t, "no-results", StateNoResults.String())
	assert.Equal(t, "State(9)", State(9).String())
}
