package tagstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"cinetag/internal/config"
	"cinetag/internal/inventory"
	"cinetag/internal/services"
)

// Assignment is one (tag, movie) pair together with the leaf name the
// reconciler should materialize it under.
type Assignment struct {
	Tag       string
	MoviePath string
	MovieName string
	Leaf      string
}

// Store manages tag assignments backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS tags (
    name       TEXT PRIMARY KEY,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS assignments (
    tag        TEXT NOT NULL REFERENCES tags(name) ON DELETE CASCADE,
    movie_path TEXT NOT NULL,
    movie_name TEXT NOT NULL,
    created_at TEXT NOT NULL,
    PRIMARY KEY (tag, movie_path)
);

CREATE INDEX IF NOT EXISTS idx_assignments_movie ON assignments(movie_path);
`

// Open initializes or connects to the tag database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.StorePath())
}

// OpenPath opens the tag database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// CreateTag registers a tag with no assignments. Creating an existing tag is
// a no-op.
func (s *Store) CreateTag(ctx context.Context, name string) (string, error) {
	normalized, err := NormalizeTagName(name)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO tags (name, created_at) VALUES (?, ?)`,
		normalized, timestamp())
	if err != nil {
		return "", fmt.Errorf("insert tag: %w", err)
	}
	return normalized, nil
}

// DeleteTag removes a tag and all of its assignments. Deleting an unknown
// tag reports ErrNotFound.
func (s *Store) DeleteTag(ctx context.Context, name string) error {
	normalized, err := NormalizeTagName(name)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE name = ?`, normalized)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "tagstore", "delete", fmt.Sprintf("tag %q", normalized), nil)
	}
	return nil
}

// Tags returns all tag names in sorted order.
func (s *Store) Tags(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

// Add assigns a movie to a tag, creating the tag row when absent. Adding an
// existing assignment is a no-op.
func (s *Store) Add(ctx context.Context, tag string, movie inventory.Entry) error {
	normalized, err := s.CreateTag(ctx, tag)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO assignments (tag, movie_path, movie_name, created_at) VALUES (?, ?, ?, ?)`,
		normalized, movie.Path, movie.Name, timestamp())
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

// Remove drops one assignment. Removing an absent assignment reports
// ErrNotFound so callers can distinguish toggles from repeats.
func (s *Store) Remove(ctx context.Context, tag, moviePath string) error {
	normalized, err := NormalizeTagName(tag)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM assignments WHERE tag = ? AND movie_path = ?`, normalized, moviePath)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "tagstore", "remove",
			fmt.Sprintf("assignment %q -> %q", normalized, moviePath), nil)
	}
	return nil
}

// Toggle adds the assignment when absent and removes it when present,
// reporting whether the movie is now assigned.
func (s *Store) Toggle(ctx context.Context, tag string, movie inventory.Entry) (bool, error) {
	err := s.Remove(ctx, tag, movie.Path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, services.ErrNotFound) {
		return false, err
	}
	if err := s.Add(ctx, tag, movie); err != nil {
		return false, err
	}
	return true, nil
}

// TagsFor returns the sorted tag names a movie is assigned to.
func (s *Store) TagsFor(ctx context.Context, moviePath string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tag FROM assignments WHERE movie_path = ? ORDER BY tag`, moviePath)
	if err != nil {
		return nil, fmt.Errorf("query tags for movie: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// MoviesFor returns the assignments of one tag with leaves computed.
func (s *Store) MoviesFor(ctx context.Context, tag string) ([]Assignment, error) {
	normalized, err := NormalizeTagName(tag)
	if err != nil {
		return nil, err
	}
	assignments, err := s.queryAssignments(ctx,
		`SELECT tag, movie_path, movie_name FROM assignments WHERE tag = ?`, normalized)
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

// Assignments returns every assignment with leaves computed, ordered by
// (tag, leaf).
func (s *Store) Assignments(ctx context.Context) ([]Assignment, error) {
	return s.queryAssignments(ctx, `SELECT tag, movie_path, movie_name FROM assignments`)
}

// Prune deletes assignments whose movie no longer appears in the supplied
// inventory snapshot and returns what was removed. Only the reconciler calls
// this, once per pass, so vanished movies are dropped exactly where the
// filesystem diff notices them.
func (s *Store) Prune(ctx context.Context, existing map[string]struct{}) ([]Assignment, error) {
	all, err := s.Assignments(ctx)
	if err != nil {
		return nil, err
	}

	var pruned []Assignment
	for _, assignment := range all {
		if _, ok := existing[assignment.MoviePath]; ok {
			continue
		}
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM assignments WHERE tag = ? AND movie_path = ?`,
			assignment.Tag, assignment.MoviePath); err != nil {
			return pruned, fmt.Errorf("prune assignment: %w", err)
		}
		pruned = append(pruned, assignment)
	}
	return pruned, nil
}

func (s *Store) queryAssignments(ctx context.Context, query string, args ...any) ([]Assignment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.Tag, &a.MoviePath, &a.MovieName); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	assignLeaves(assignments)
	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].Tag != assignments[j].Tag {
			return assignments[i].Tag < assignments[j].Tag
		}
		return assignments[i].Leaf < assignments[j].Leaf
	})
	return assignments, nil
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
