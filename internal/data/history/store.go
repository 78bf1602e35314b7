package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func normalizeProject(projectKey string) string {
	projectKey = strings.TrimSpace(projectKey)
	if projectKey == "" {
		return "default"
	}
	return projectKey
}

// SaveScan stores scan and its unresolved references in one transaction and
// returns the scan id. A new UUID is assigned when scan.ID is empty.
func (s *Store) SaveScan(projectKey string, scan Scan) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if scan.ID == "" {
		scan.ID = uuid.NewString()
	}
	if scan.Timestamp.IsZero() {
		scan.Timestamp = time.Now().UTC()
	}
	projectKey = normalizeProject(projectKey)

	err := s.withRetry("save scan", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		_, err = tx.Exec(`
INSERT INTO scans (
  id, project_key, ts_utc, module_count, root_count, stale_root_count,
  file_count, literal_count, reference_count, unresolved_count
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			scan.ID,
			projectKey,
			scan.Timestamp.UTC().Format(time.RFC3339Nano),
			scan.ModuleCount,
			scan.RootCount,
			scan.StaleRootCount,
			scan.FileCount,
			scan.LiteralCount,
			scan.ReferenceCount,
			scan.UnresolvedCount,
		)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		for i, ref := range scan.Unresolved {
			if _, err := tx.Exec(`
INSERT INTO unresolved_refs (scan_id, seq, path, line, col, literal, segment, module)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				scan.ID, i, ref.Path, ref.Line, ref.Column, ref.Literal, ref.Segment, ref.Module,
			); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return "", err
	}
	return scan.ID, nil
}

// LoadScans returns the scans of projectKey at or after since, oldest first.
// Unresolved references are not loaded; see UnresolvedForScan.
func (s *Store) LoadScans(projectKey string, since time.Time) ([]Scan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT
  id, project_key, ts_utc, module_count, root_count, stale_root_count,
  file_count, literal_count, reference_count, unresolved_count
FROM scans
WHERE project_key = ?`
	args := []any{normalizeProject(projectKey)}
	if !since.IsZero() {
		query += " AND ts_utc >= ?"
		args = append(args, since.UTC().Format(time.RFC3339Nano))
	}
	query += " ORDER BY ts_utc ASC, id ASC"

	var rows *sql.Rows
	err := s.withRetry("load scans", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scans := make([]Scan, 0)
	for rows.Next() {
		var (
			tsRaw string
			scan  Scan
		)
		if err := rows.Scan(
			&scan.ID,
			&scan.ProjectKey,
			&tsRaw,
			&scan.ModuleCount,
			&scan.RootCount,
			&scan.StaleRootCount,
			&scan.FileCount,
			&scan.LiteralCount,
			&scan.ReferenceCount,
			&scan.UnresolvedCount,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse scan timestamp %q: %w", tsRaw, err)
		}
		scan.Timestamp = ts.UTC()
		scans = append(scans, scan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scan rows: %w", err)
	}
	return scans, nil
}

// UnresolvedForScan returns the unresolved references recorded with a scan
// in their original order.
func (s *Store) UnresolvedForScan(id string) ([]UnresolvedRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load unresolved refs", func() error {
		var qErr error
		rows, qErr = s.db.Query(`
SELECT path, line, col, literal, segment, module
FROM unresolved_refs
WHERE scan_id = ?
ORDER BY seq ASC`, id)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := make([]UnresolvedRef, 0)
	for rows.Next() {
		var ref UnresolvedRef
		if err := rows.Scan(&ref.Path, &ref.Line, &ref.Column, &ref.Literal, &ref.Segment, &ref.Module); err != nil {
			return nil, fmt.Errorf("scan unresolved row: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unresolved rows: %w", err)
	}
	return refs, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
