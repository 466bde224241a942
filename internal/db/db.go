package db

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/catmatch/internal/config"
)

// NowFunc is the clock gorm stamps rows with. Millisecond precision keeps
// MySQL DATETIME(3) and SQLite text timestamps comparable.
func NowFunc() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// NewDB initializes the database connection using the driver and DSN from config.
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DB.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DB.DSN)
	case "mysql", "":
		dialector = mysql.Open(cfg.DB.DSN)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DB.Driver)
	}

	level := logger.Warn
	if cfg.Log.Level == "debug" {
		level = logger.Info // log SQL queries
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		NowFunc:        NowFunc,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate ensures schema is in sync with models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}, &Cat{}, &Swipe{}, &Match{}, &Message{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// MatchID derives the match primary key from the unordered pair and the cat.
func MatchID(userX, userY, catID string) string {
	a, b := SortPair(userX, userY)
	sum := sha1.Sum([]byte(a + "|" + b + "|" + catID))
	return hex.EncodeToString(sum[:])
}

// SortPair returns the two ids in ascending order.
func SortPair(x, y string) (string, string) {
	if y < x {
		return y, x
	}
	return x, y
}
