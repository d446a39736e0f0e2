package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"modernc.org/sqlite"

	"github.com/TobiSchelling/catalog/internal/articles"
)

const articleColumns = `id, title, description, COALESCE(code, ''), created_at`

// ArticleStore is the local SQLite implementation of articles.Store, used for
// offline development. Search matches %query% against title, description and
// code with LIKE.
type ArticleStore struct {
	db *DB
}

// ArticleStore returns the article table of this database.
func (db *DB) ArticleStore() *ArticleStore {
	return &ArticleStore{db: db}
}

// Insert adds an article and returns the stored row.
func (s *ArticleStore) Insert(ctx context.Context, a articles.NewArticle) (articles.Result, error) {
	var code *string
	if a.Code != "" {
		code = &a.Code
	}

	row := s.db.conn.QueryRowContext(ctx,
		`INSERT INTO articles (title, description, code) VALUES (?, ?, ?) RETURNING `+articleColumns,
		a.Title, a.Description, code,
	)
	article, err := scanArticle(row)
	if err != nil {
		return storeResult(err)
	}
	return articles.Result{Data: []articles.Article{*article}}, nil
}

// Search returns up to articles.SearchLimit matches, newest id first.
func (s *ArticleStore) Search(ctx context.Context, query string) (articles.Result, error) {
	pattern := articles.SearchPattern(query)
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles
		WHERE title LIKE ? OR description LIKE ? OR COALESCE(code, '') LIKE ?
		ORDER BY id DESC LIMIT ?`,
		pattern, pattern, pattern, articles.SearchLimit,
	)
	if err != nil {
		return storeResult(err)
	}
	defer rows.Close()

	data := []articles.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return articles.Result{}, err
		}
		data = append(data, *a)
	}
	if err := rows.Err(); err != nil {
		return storeResult(err)
	}
	return articles.Result{Data: data}, nil
}

// Count returns the number of stored articles.
func (s *ArticleStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(row scanner) (*articles.Article, error) {
	var a articles.Article
	var created string
	if err := row.Scan(&a.ID, &a.Title, &a.Description, &a.Code, &created); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", created, err)
	}
	a.CreatedAt = t
	return &a, nil
}

// storeResult classifies err: SQLite engine errors are store errors, anything
// else is returned as a plain error.
func storeResult(err error) (articles.Result, error) {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return articles.Result{Error: &articles.StoreError{
			Code:    strconv.Itoa(se.Code()),
			Message: se.Error(),
		}}, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return articles.Result{Error: &articles.StoreError{Message: "no row returned"}}, nil
	}
	return articles.Result{}, err
}
