package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

const (
	bucketPopulations = "populations"
	bucketMice        = "mice"
	bucketBreeding    = "breeding"
	bucketValidation  = "validation"
)

const (
	defaultSQLitePath  = "breeding-sim.db"
	defaultPostgresDSN = "postgres://localhost/breeding_sim?sslmode=disable"
)

// dialect holds the statements that differ between SQL backends.
type dialect struct {
	driver string
	ddl    string
	upsert string
}

var (
	sqliteDialect = dialect{
		driver: "sqlite",
		ddl: `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`,
		upsert: `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`,
	}
	postgresDialect = dialect{
		driver: "pgx",
		ddl: `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`,
		upsert: `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`,
	}
)

var sqlOpen = sql.Open

// SQLStore serves reads from memory and snapshots the whole state into a
// single state table, one JSON payload per bucket, after every write.
type SQLStore struct {
	*MemoryStore
	db      *sql.DB
	dialect dialect
	mu      sync.Mutex
}

var _ Store = (*SQLStore)(nil)

// OpenSQLite opens (creating if needed) a SQLite database at path and loads
// any previously persisted state.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		path = defaultSQLitePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	return openSQL(ctx, sqliteDialect, path)
}

// OpenPostgres connects to dsn and loads any previously persisted state.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	if dsn == "" {
		dsn = defaultPostgresDSN
	}
	return openSQL(ctx, postgresDialect, dsn)
}

func openSQL(ctx context.Context, d dialect, dsn string) (*SQLStore, error) {
	db, err := sqlOpen(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.driver, err)
	}
	if _, err := db.ExecContext(ctx, d.ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &SQLStore{MemoryStore: NewMemoryStore(), db: db, dialect: d}
	if err := s.load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logrus.Debugf("store: opened %s backend", d.driver)
	return s, nil
}

func (s *SQLStore) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	payloads := make(map[string][]byte)
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan state: %w", err)
		}
		payloads[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if err := s.restore(payloads); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	return nil
}

// persist rewrites the named buckets. Each bucket is one JSON document, so a
// write costs the size of the whole bucket, not of the changed record.
func (s *SQLStore) persist(ctx context.Context, names ...string) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payloads, err := s.buckets(names...)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range names {
		if _, err := tx.ExecContext(ctx, s.dialect.upsert, bucket, payloads[bucket]); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	return tx.Commit()
}

// SavePopulation implements Store.
func (s *SQLStore) SavePopulation(ctx context.Context, rec PopulationRecord) error {
	if err := s.MemoryStore.SavePopulation(ctx, rec); err != nil {
		return err
	}
	return s.persist(ctx, bucketPopulations)
}

// SaveMice implements Store.
func (s *SQLStore) SaveMice(ctx context.Context, recs ...MouseRecord) error {
	if err := s.MemoryStore.SaveMice(ctx, recs...); err != nil {
		return err
	}
	return s.persist(ctx, bucketMice)
}

// AddBreedingRecord implements Store.
func (s *SQLStore) AddBreedingRecord(ctx context.Context, rec BreedingRecord) (int64, error) {
	id, err := s.MemoryStore.AddBreedingRecord(ctx, rec)
	if err != nil {
		return 0, err
	}
	return id, s.persist(ctx, bucketBreeding)
}

// AddValidationResult implements Store.
func (s *SQLStore) AddValidationResult(ctx context.Context, rec ValidationRecord) (int64, error) {
	id, err := s.MemoryStore.AddValidationResult(ctx, rec)
	if err != nil {
		return 0, err
	}
	return id, s.persist(ctx, bucketValidation)
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying sql.DB for tests.
func (s *SQLStore) DB() *sql.DB { return s.db }
