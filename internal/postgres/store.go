package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/lib/pq"

	"github.com/TobiSchelling/catalog/internal/articles"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store reads and writes articles over a direct Postgres connection. It
// issues the same queries PostgREST would: to_tsquery over the search column.
type Store struct {
	db          *sql.DB
	insertQuery string
	searchQuery string
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn, table, searchColumn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	s, err := New(db, table, searchColumn)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection pool.
func New(db *sql.DB, table, searchColumn string) (*Store, error) {
	insert, search, err := buildQueries(table, searchColumn)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, insertQuery: insert, searchQuery: search}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func buildQueries(table, searchColumn string) (insert, search string, err error) {
	if !identifier.MatchString(table) {
		return "", "", fmt.Errorf("invalid table name %q", table)
	}
	if !identifier.MatchString(searchColumn) {
		return "", "", fmt.Errorf("invalid search column %q", searchColumn)
	}

	t := pq.QuoteIdentifier(table)
	columns := `id, title, description, COALESCE(code, ''), created_at`
	insert = fmt.Sprintf(
		`INSERT INTO %s (title, description, code) VALUES ($1, $2, $3) RETURNING %s`,
		t, columns,
	)
	search = fmt.Sprintf(
		`SELECT %s FROM %s WHERE %s @@ to_tsquery($1) ORDER BY id DESC LIMIT $2`,
		columns, t, pq.QuoteIdentifier(searchColumn),
	)
	return insert, search, nil
}

// Insert adds an article and returns the inserted row.
func (s *Store) Insert(ctx context.Context, a articles.NewArticle) (articles.Result, error) {
	var row articles.Article
	err := s.db.QueryRowContext(ctx, s.insertQuery, a.Title, a.Description, a.Code).
		Scan(&row.ID, &row.Title, &row.Description, &row.Code, &row.CreatedAt)
	if err != nil {
		return classify(err)
	}
	return articles.Result{Data: []articles.Article{row}}, nil
}

// Search returns up to articles.SearchLimit matches, newest id first.
func (s *Store) Search(ctx context.Context, query string) (articles.Result, error) {
	rows, err := s.db.QueryContext(ctx, s.searchQuery, articles.SearchPattern(query), articles.SearchLimit)
	if err != nil {
		return classify(err)
	}
	defer rows.Close()

	data := []articles.Article{}
	for rows.Next() {
		var a articles.Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.Code, &a.CreatedAt); err != nil {
			return articles.Result{}, fmt.Errorf("scanning article: %w", err)
		}
		data = append(data, a)
	}
	if err := rows.Err(); err != nil {
		return classify(err)
	}
	return articles.Result{Data: data}, nil
}

// classify maps server-reported errors to StoreError; connection failures
// and the like stay plain errors.
func classify(err error) (articles.Result, error) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return articles.Result{Error: storeError(pqErr)}, nil
	}
	return articles.Result{}, err
}

func storeError(e *pq.Error) *articles.StoreError {
	return &articles.StoreError{
		Code:    string(e.Code),
		Message: e.Message,
		Details: e.Detail,
		Hint:    e.Hint,
	}
}
