// Package postgres provides the Postgres-backed table store and its schema
// migrations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DefaultPageSize is the page size of FetchAllPaged.
const DefaultPageSize = 1000

var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// TableStoreConfig controls the Postgres connection pool and target table.
type TableStoreConfig struct {
	DSN             string
	Table           string
	OrderBy         string
	PageSize        int
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// TableStore pages through a table and appends rows to it. It never updates
// or upserts; callers filter out known rows before InsertMany.
type TableStore struct {
	pool     pool
	table    string
	orderBy  string
	pageSize int
	logger   *zap.Logger
}

// NewTableStore connects a pgx pool using cfg.
func NewTableStore(ctx context.Context, cfg TableStoreConfig, logger *zap.Logger) (*TableStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewTableStoreWithPool(p, cfg, logger)
	if err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewTableStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewTableStoreWithPool(p pool, cfg TableStoreConfig, logger *zap.Logger) (*TableStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table := cfg.Table
	if table == "" {
		table = "blogs"
	}
	if !validIdentifier.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	orderBy := cfg.OrderBy
	if orderBy == "" {
		orderBy = "id"
	}
	if !validIdentifier.MatchString(orderBy) {
		return nil, fmt.Errorf("invalid order column %q", orderBy)
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TableStore{
		pool:     p,
		table:    table,
		orderBy:  orderBy,
		pageSize: pageSize,
		logger:   logger.With(zap.String("table", table)),
	}, nil
}

// Table returns the target table name.
func (s *TableStore) Table() string {
	return s.table
}

// Ping checks the connection.
func (s *TableStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *TableStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// FetchAllPaged selects columns from every row, one page at a time, until a
// page comes back shorter than the page size.
func (s *TableStore) FetchAllPaged(ctx context.Context, columns ...string) ([]map[string]any, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("at least one column is required")
	}
	if err := checkIdentifiers(columns); err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT $1 OFFSET $2",
		strings.Join(columns, ", "), s.table, s.orderBy)

	var out []map[string]any
	for offset := 0; ; offset += s.pageSize {
		rows, err := s.pool.Query(ctx, query, s.pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("select page at offset %d: %w", offset, err)
		}
		page, err := pgx.CollectRows(rows, pgx.RowToMap)
		if err != nil {
			return nil, fmt.Errorf("read page at offset %d: %w", offset, err)
		}
		out = append(out, page...)
		if len(page) < s.pageSize {
			break
		}
	}
	s.logger.Debug("fetched rows", zap.Int("rows", len(out)))
	return out, nil
}

// InsertMany appends rows in one transaction and returns the number of rows
// inserted. Each row holds one value per column.
func (s *TableStore) InsertMany(ctx context.Context, columns []string, rows [][]any) (n int, err error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("at least one column is required")
	}
	if err := checkIdentifiers(columns); err != nil {
		return 0, err
	}
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Warn("rollback failed", zap.Error(rbErr))
		}
	}()

	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
		var tag pgconn.CommandTag
		tag, err = tx.Exec(ctx, query, row...)
		if err != nil {
			return 0, fmt.Errorf("insert row %d: %w", i, err)
		}
		n += int(tag.RowsAffected())
	}
	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	s.logger.Info("inserted rows", zap.Int("rows", n))
	return n, nil
}

func checkIdentifiers(columns []string) error {
	for _, c := range columns {
		if !validIdentifier.MatchString(c) {
			return fmt.Errorf("invalid column name %q", c)
		}
	}
	return nil
}
