package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"service_market/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// AccountRecord is the latest committed state of one account.
type AccountRecord struct {
	Address   string `gorm:"primaryKey;size:64"`
	Kind      uint8  `gorm:"index"`
	Data      []byte
	Seq       uint64 // seq of the commit that wrote this version
	UpdatedAt time.Time
}

func (AccountRecord) TableName() string { return "accounts" }

// JournalRecord is one committed instruction.
type JournalRecord struct {
	Seq         uint64 `gorm:"primaryKey;autoIncrement:false"`
	Instruction string `gorm:"index;size:64"`
	Payload     []byte
	Signers     string // comma-separated base58 addresses
	Event       []byte
	CreatedAt   time.Time
}

func (JournalRecord) TableName() string { return "journal" }

// Storage persists the account snapshot and the instruction journal.
// Both are written in one transaction per commit, so they never diverge.
type Storage struct {
	db *gorm.DB
}

var _ domain.Journal = (*Storage)(nil)

// NewStorage opens (or creates) the SQLite database at path.
// An empty path resolves to the per-user data directory.
func NewStorage(path string) (*Storage, error) {
	if path == "" {
		p, err := getDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
		path = p
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrate(db); err != nil {
		return nil, err
	}
	return &Storage{db: db}, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&AccountRecord{}, &JournalRecord{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "ServiceMarket", "data", "market.db"), nil
}

// Close releases the database handle.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Journal
// ======================================================================================

// Append writes the journal entry and every dirty account atomically.
func (s *Storage) Append(ctx context.Context, rec *domain.CommitRecord) error {
	signers := make([]string, 0, len(rec.Signers))
	for _, a := range rec.Signers {
		signers = append(signers, a.String())
	}

	accounts := make([]AccountRecord, 0, len(rec.Accounts))
	for _, acc := range rec.Accounts {
		data, err := encodeAccount(acc)
		if err != nil {
			return err
		}
		accounts = append(accounts, AccountRecord{
			Address:   acc.AccountAddress().String(),
			Kind:      uint8(acc.Kind()),
			Data:      data,
			Seq:       rec.Seq,
			UpdatedAt: rec.Time,
		})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := JournalRecord{
			Seq:         rec.Seq,
			Instruction: rec.Instruction,
			Payload:     rec.Payload,
			Signers:     strings.Join(signers, ","),
			Event:       rec.Event,
			CreatedAt:   rec.Time,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("journal seq %d: %w", rec.Seq, err)
		}
		for i := range accounts {
			if err := tx.Save(&accounts[i]).Error; err != nil {
				return fmt.Errorf("save account %s: %w", accounts[i].Address, err)
			}
		}
		return nil
	})
}

// JournalSeqs returns every journaled sequence number in ascending order.
func (s *Storage) JournalSeqs(ctx context.Context) ([]uint64, error) {
	var seqs []uint64
	err := s.db.WithContext(ctx).Model(&JournalRecord{}).Order("seq ASC").Pluck("seq", &seqs).Error
	return seqs, err
}

// JournalSince returns up to limit journal entries with seq > after.
func (s *Storage) JournalSince(ctx context.Context, after uint64, limit int) ([]JournalRecord, error) {
	var recs []JournalRecord
	err := s.db.WithContext(ctx).
		Where("seq > ?", after).
		Order("seq ASC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}

// ======================================================================================
// Accounts
// ======================================================================================

// LoadAccounts decodes the whole account snapshot.
func (s *Storage) LoadAccounts(ctx context.Context) ([]domain.Account, error) {
	var recs []AccountRecord
	if err := s.db.WithContext(ctx).Order("address ASC").Find(&recs).Error; err != nil {
		return nil, err
	}

	out := make([]domain.Account, 0, len(recs))
	for _, r := range recs {
		acc, err := decodeAccount(domain.AccountKind(r.Kind), r.Data)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", r.Address, err)
		}
		out = append(out, acc)
	}
	return out, nil
}
