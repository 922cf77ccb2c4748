package marker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the pure-Go "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	domain "github.com/oshokin/marker-alerts/internal/domain/marker"
)

// Repository defines the marker operations used by the engine and the CLI.
type Repository interface {
	CreateMarker(ctx context.Context, location domain.Coordinate) (*domain.Marker, error)
	DeleteMarker(ctx context.Context, id int64) (bool, error)
	QueryMarkerByID(ctx context.Context, id int64) (*domain.Marker, error)
	QueryMarkers(ctx context.Context) ([]*domain.Marker, error)
	UpdateMarker(ctx context.Context, id int64, title, description *string) (bool, error)
}

// DefaultFilename is the default marker database file.
const DefaultFilename = "markers.db"

var (
	// ErrNotFound is returned when a marker does not exist.
	ErrNotFound = errors.New("marker not found")
	// errInvalidLocation is returned for coordinates outside WGS 84 bounds.
	errInvalidLocation = errors.New("location is out of range")
)

// SQLiteStore persists markers in a SQLite database file.
type SQLiteStore struct {
	// db is the shared connection pool.
	db *sql.DB
	// now stamps created_at and updated_at.
	now func() time.Time
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultFilename
	}

	path = filepath.Clean(path)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open marker database: %w", err)
	}

	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err = db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if err = migrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{
		db:  db,
		now: time.Now,
	}, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

// CreateMarker stores a new untitled marker at location.
func (s *SQLiteStore) CreateMarker(ctx context.Context, location domain.Coordinate) (*domain.Marker, error) {
	if !location.Valid() {
		return nil, fmt.Errorf("%w: %s", errInvalidLocation, location)
	}

	encoded, err := json.Marshal(location)
	if err != nil {
		return nil, fmt.Errorf("encode location: %w", err)
	}

	now := s.now().UTC().Truncate(time.Second)

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO map_markers(location, created_at, updated_at) VALUES(?, ?, ?)`,
		string(encoded), now.Unix(), now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert marker: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read marker id: %w", err)
	}

	return &domain.Marker{
		ID:         id,
		Coordinate: location,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// DeleteMarker removes a marker and reports whether it existed.
func (s *SQLiteStore) DeleteMarker(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM map_markers WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete marker: %w", err)
	}

	return affected(result)
}

// QueryMarkerByID returns one marker or ErrNotFound.
func (s *SQLiteStore) QueryMarkerByID(ctx context.Context, id int64) (*domain.Marker, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, location, title, description, created_at, updated_at FROM map_markers WHERE id = ?`, id)

	m, err := scanMarker(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return m, nil
}

// QueryMarkers returns every marker ordered by id.
func (s *SQLiteStore) QueryMarkers(ctx context.Context) ([]*domain.Marker, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, location, title, description, created_at, updated_at FROM map_markers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query markers: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var markers []*domain.Marker

	for rows.Next() {
		m, err := scanMarker(rows)
		if err != nil {
			return nil, err
		}

		markers = append(markers, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate markers: %w", err)
	}

	return markers, nil
}

// UpdateMarker replaces title and description and reports whether the marker existed.
func (s *SQLiteStore) UpdateMarker(ctx context.Context, id int64, title, description *string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE map_markers SET title = ?, description = ?, updated_at = ? WHERE id = ?`,
		nullString(title), nullString(description), s.now().UTC().Unix(), id,
	)
	if err != nil {
		return false, fmt.Errorf("update marker: %w", err)
	}

	return affected(result)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMarker(row rowScanner) (*domain.Marker, error) {
	var (
		m           domain.Marker
		location    string
		title       sql.NullString
		description sql.NullString
		createdAt   int64
		updatedAt   int64
	)

	if err := row.Scan(&m.ID, &location, &title, &description, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("scan marker: %w", err)
	}

	if err := json.Unmarshal([]byte(location), &m.Coordinate); err != nil {
		return nil, fmt.Errorf("decode location of marker %d: %w", m.ID, err)
	}

	if title.Valid {
		m.Title = &title.String
	}

	if description.Valid {
		m.Description = &description.String
	}

	m.CreatedAt = time.Unix(createdAt, 0).UTC()
	m.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return &m, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: *s, Valid: true}
}

func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("read affected rows: %w", err)
	}

	return n > 0, nil
}
