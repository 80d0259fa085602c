package infra

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/procscope/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

// AuditSink implements domain.ExitSink using a SQLCipher encrypted
// SQLite database. It is append-only; entries are written as exits are
// detected and never read back by the program.
type AuditSink struct {
	db     *sql.DB
	dbPath string
}

// NewAuditSink opens (or creates) the encrypted exit audit database at
// path. The key is applied as the SQLCipher passphrase via PRAGMA key.
func NewAuditSink(path string, key []byte) (*AuditSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	keyHex := hex.EncodeToString(key)
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", path, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	// Verify the key works before handing the sink out
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to audit database: %w", err)
	}

	sink := &AuditSink{db: db, dbPath: path}
	if err := sink.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit schema: %w", err)
	}
	return sink, nil
}

// createTables creates the schema if it doesn't exist.
func (s *AuditSink) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS process_exits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pid INTEGER NOT NULL,
		name TEXT NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		start_clock TEXT NOT NULL DEFAULT '',
		exit_time INTEGER NOT NULL,
		uptime_secs INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends one exit entry.
func (s *AuditSink) Record(r domain.ExitRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO process_exits (pid, name, username, start_clock, exit_time, uptime_secs)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.PID, r.Name, r.User, r.StartClock, r.ExitTime.Unix(), r.UptimeSecs,
	)
	return err
}

// Path returns the database file path.
func (s *AuditSink) Path() string {
	return s.dbPath
}

// Close releases the database connection.
func (s *AuditSink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure AuditSink implements domain.ExitSink.
var _ domain.ExitSink = (*AuditSink)(nil)
