package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/docextract/internal/common"
)

// maxTableName is the Postgres identifier limit; SQLite accepts anything that fits it.
const maxTableName = 63

// SQLStore keeps entries in a single key/value table on SQLite or Postgres. Statements
// are built with ent's dialect-aware builder so placeholders and quoting match the backend.
type SQLStore struct {
	db      *sql.DB
	pool    *pgxpool.Pool
	dialect string
	table   string
	logger  *slog.Logger
}

// OpenSQL opens the store named by dsn: "sqlite:<path>" (":memory:" allowed) or a
// postgres:// / postgresql:// URL. The table is created if missing.
func OpenSQL(ctx context.Context, dsn, table string, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if table == "" {
		table = "extraction_cache"
	}
	v := common.NewValidator().Field("table", table, common.Identifier, common.MaxLength(maxTableName))
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}

	s := &SQLStore{table: table, logger: logger}
	switch {
	case strings.HasPrefix(dsn, "sqlite:"):
		db, err := openSQLite(strings.TrimPrefix(dsn, "sqlite:"))
		if err != nil {
			return nil, err
		}
		s.db, s.dialect = db, dialect.SQLite
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		pool, err := openPool(ctx, dsn)
		if err != nil {
			return nil, err
		}
		s.db, s.pool, s.dialect = stdlib.OpenDBFromPool(pool), pool, dialect.Postgres
	default:
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unsupported cache dsn %q", dsn), common.ErrInvalidInput)
	}

	if err := s.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	logger.Info("cache.sql.opened", "dialect", s.dialect, "table", table)
	return s, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	for _, p := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", p, err)
		}
	}
	return db, nil
}

func openPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pc.MaxConns = 4
	pc.ConnConfig.RuntimeParams["application_name"] = "docextract"

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

func (s *SQLStore) builder() *entsql.DialectBuilder { return entsql.Dialect(s.dialect) }

func (s *SQLStore) migrate(ctx context.Context) error {
	valueType := "BLOB"
	if s.dialect == dialect.Postgres {
		valueType = "BYTEA"
	}
	// The table name has already passed common.Identifier.
	table := s.builder().String(func(b *entsql.Builder) { b.Ident(s.table) })
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	key TEXT NOT NULL PRIMARY KEY,
	value %s NOT NULL,
	created_at BIGINT NOT NULL
)`, table, valueType)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create cache table: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query, args := s.builder().Select("value").
		From(entsql.Table(s.table)).
		Where(entsql.EQ("key", key)).
		Query()
	var v []byte
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return v, true, nil
}

func (s *SQLStore) Put(ctx context.Context, key string, value []byte) error {
	query, args := s.builder().Insert(s.table).
		Columns("key", "value", "created_at").
		Values(key, value, time.Now().Unix()).
		OnConflict(
			entsql.ConflictColumns("key"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Purge deletes entries created before cutoff and returns how many were removed.
func (s *SQLStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args := s.builder().Delete(s.table).
		Where(entsql.LT("created_at", cutoff.Unix())).
		Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("cache purge: %w", err)
	}
	return res.RowsAffected()
}

// HealthCheck pings the database within timeout.
func (s *SQLStore) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("cache.sql.ping_failed", "error", err)
		return err
	}
	s.logger.Debug("cache.sql.ping_ok", "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

func (s *SQLStore) Dialect() string { return s.dialect }

func (s *SQLStore) Close() error {
	err := s.db.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}
