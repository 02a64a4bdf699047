package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrDisabled is returned by a Store opened with an empty path.
var ErrDisabled = errors.New("history disabled")

type Kind string

const (
	KindFile Kind = "file"
	KindText Kind = "text"
)

// Entry is one received item.
type Entry struct {
	ID         uint `gorm:"primaryKey"`
	Kind       Kind `gorm:"index"`
	Peer       string
	FileName   string
	FileSize   int64
	FileType   string
	Checksum   string
	Path       string
	Text       string
	Error      string
	ReceivedAt time.Time `gorm:"index"`
}

func (e Entry) Failed() bool {
	return e.Error != ""
}

// FileRecord describes a finished or rejected file transfer.
type FileRecord struct {
	Peer     string
	FileName string
	FileSize int64
	FileType string
	Checksum string
	Path     string
	Err      error
}

type TextRecord struct {
	Peer string
	Text string
}

// Store keeps received entries in a sqlite database. The zero-path Store
// accepts writes and drops them.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open opens or creates the database at path. An empty path disables history.
func Open(path string) (*Store, error) {
	s := &Store{now: time.Now}
	if path == "" {
		return s, nil
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt: true,
		Logger:      logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening history database %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrating history database: %w", err)
	}
	s.db = db
	return s, nil
}

func (s *Store) Enabled() bool {
	return s != nil && s.db != nil
}

func (s *Store) RecordFile(ctx context.Context, rec FileRecord) error {
	entry := Entry{
		Kind:     KindFile,
		Peer:     rec.Peer,
		FileName: rec.FileName,
		FileSize: rec.FileSize,
		FileType: rec.FileType,
		Checksum: rec.Checksum,
		Path:     rec.Path,
	}
	if rec.Err != nil {
		entry.Error = rec.Err.Error()
	}
	return s.create(ctx, &entry)
}

func (s *Store) RecordText(ctx context.Context, rec TextRecord) error {
	return s.create(ctx, &Entry{Kind: KindText, Peer: rec.Peer, Text: rec.Text})
}

func (s *Store) create(ctx context.Context, entry *Entry) error {
	if !s.Enabled() {
		return nil
	}
	entry.ReceivedAt = s.now()
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("recording %s entry: %w", entry.Kind, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = 20
	}
	var entries []Entry
	err := s.db.WithContext(ctx).
		Order("received_at DESC").Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	return entries, nil
}

// Prune deletes entries received before cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if !s.Enabled() {
		return 0, ErrDisabled
	}
	res := s.db.WithContext(ctx).Where("received_at < ?", cutoff).Delete(&Entry{})
	if res.Error != nil {
		return 0, fmt.Errorf("pruning history: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) Close() error {
	if !s.Enabled() {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
