package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"nessql/logger"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// DBExtension is the file extension of every scan database in the data dir.
const DBExtension = ".db"

var (
	ErrUnknownDatabase = errors.New("unknown database")
	ErrPluginNotFound  = errors.New("plugin not found")
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store is the process-wide scan store, set by InitStore.
var Store *ScanStore

type scanConn struct {
	rw *sql.DB
	ro *sql.DB
}

// ScanStore manages a directory of per-scan SQLite databases. The database
// handle is the file name inside the directory.
type ScanStore struct {
	dir string

	mu    sync.Mutex
	conns map[string]*scanConn
}

// InitStore creates the data directory if needed and sets Store.
func InitStore(dataDir string) error {
	s, err := NewScanStore(dataDir)
	if err != nil {
		return err
	}
	if Store != nil {
		Store.Close()
	}
	Store = s
	return nil
}

func NewScanStore(dataDir string) (*ScanStore, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		logger.Error("Failed to create data directory %s: %v", dataDir, err)
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}
	logger.Info("Scan store initialized at: %s", dataDir)
	return &ScanStore{dir: dataDir, conns: make(map[string]*scanConn)}, nil
}

// Dir returns the data directory.
func (s *ScanStore) Dir() string { return s.dir }

// Close closes every open connection pool.
func (s *ScanStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for h, c := range s.conns {
		c.rw.Close()
		c.ro.Close()
		delete(s.conns, h)
	}
}

// ListDatabases returns the handles of all scan databases, sorted by name.
func (s *ScanStore) ListDatabases() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory %s: %w", s.dir, err)
	}
	handles := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), DBExtension) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		handles = append(handles, e.Name())
	}
	sort.Strings(handles)
	return handles, nil
}

func (s *ScanStore) path(handle string) string {
	return filepath.Join(s.dir, handle)
}

// resolve checks that handle names an existing scan database in the data dir.
func (s *ScanStore) resolve(handle string) (string, error) {
	if handle == "" || filepath.Base(handle) != handle || strings.HasPrefix(handle, ".") || !strings.HasSuffix(handle, DBExtension) {
		return "", fmt.Errorf("%w: %q", ErrUnknownDatabase, handle)
	}
	p := s.path(handle)
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDatabase, handle)
	}
	return p, nil
}

func (s *ScanStore) conn(handle string) (*scanConn, error) {
	p, err := s.resolve(handle)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conns[handle]; ok {
		return c, nil
	}

	rw, err := sql.Open("sqlite3", p+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", handle, err)
	}
	ro, err := sql.Open("sqlite3", "file:"+p+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		rw.Close()
		return nil, fmt.Errorf("failed to open read-only database %s: %w", handle, err)
	}
	if err = rw.Ping(); err != nil {
		rw.Close()
		ro.Close()
		logger.Error("Failed to connect to database %s: %v", handle, err)
		return nil, fmt.Errorf("failed to connect to database %s: %w", handle, err)
	}
	c := &scanConn{rw: rw, ro: ro}
	s.conns[handle] = c
	return c, nil
}

// CreateDatabase allocates a new handle derived from name, creates the file and
// applies the schema migrations. An existing handle is never reused: a short
// UUID suffix is appended on collision.
func (s *ScanStore) CreateDatabase(name string) (string, error) {
	base := sanitizeHandleBase(name)
	handle := base + DBExtension
	if _, err := os.Stat(s.path(handle)); err == nil {
		handle = fmt.Sprintf("%s-%s%s", base, uuid.New().String()[:8], DBExtension)
	}

	p := s.path(handle)
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0640)
	if err != nil {
		return "", fmt.Errorf("creating database file %s: %w", handle, err)
	}
	f.Close()

	if err := applyMigrations(p); err != nil {
		os.Remove(p)
		return "", err
	}
	logger.Info("Created scan database %s", handle)
	return handle, nil
}

// RemoveDatabase closes and deletes a scan database. Used to discard a failed import.
func (s *ScanStore) RemoveDatabase(handle string) error {
	p, err := s.resolve(handle)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if c, ok := s.conns[handle]; ok {
		c.rw.Close()
		c.ro.Close()
		delete(s.conns, handle)
	}
	s.mu.Unlock()
	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		os.Remove(p + suffix)
	}
	return os.Remove(p)
}

func applyMigrations(dbPath string) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, fmt.Sprintf("sqlite3://%s?_foreign_keys=on", dbPath))
	if err != nil {
		logger.Error("Failed to initialize migrations for %s: %v", dbPath, err)
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	logger.Debug("Applying scan schema migrations to %s...", dbPath)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Failed to apply migrations to %s: %v", dbPath, err)
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func sanitizeHandleBase(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "scan-" + uuid.New().String()[:8]
	}
	return out
}
