package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/karloscodes/cartridge/cache"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Setting represents a configuration item in the database
type Setting struct {
	ID        uint      `gorm:"primaryKey"`
	Key       string    `gorm:"uniqueIndex;not null"`
	Value     string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:milli"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:milli"`
}

// Well-known setting keys
const (
	KeyExcludedIPs        = "excluded_ips"
	KeyLandingTitle       = "landing_title"
	KeyLandingDescription = "landing_description"
	KeyLandingSlug        = "landing_slug"
)

// ButtonKeyPrefix prefixes the per-button destination settings.
const ButtonKeyPrefix = "button_url:"

// ErrSettingNotFound is returned for keys that were never stored.
var ErrSettingNotFound = errors.New("setting not found")

var (
	excludedIPsCache   *cache.Cache[string, []string]
	excludedIPsCacheMu sync.RWMutex
)

// Defaults returns the settings written on first start.
func Defaults(landingSlug string) map[string]string {
	return map[string]string{
		KeyExcludedIPs:        "",
		KeyLandingTitle:       "My Links",
		KeyLandingDescription: "Everything I share, in one place.",
		KeyLandingSlug:        landingSlug,
	}
}

// SetupDefaultSettings inserts missing defaults without touching existing values
// and initializes the excluded IPs cache.
func SetupDefaultSettings(dbConn *gorm.DB, logger *slog.Logger, defaults map[string]string) error {
	now := time.Now().UTC()
	err := sqlite.PerformWrite(logger, dbConn, func(tx *gorm.DB) error {
		for key, value := range defaults {
			setting := Setting{Key: key, Value: value, CreatedAt: now, UpdatedAt: now}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoNothing: true,
			}).Create(&setting).Error
			if err != nil {
				logger.Error("Failed to upsert setting", slog.String("key", key), slog.Any("error", err))
				return fmt.Errorf("failed to upsert setting %s: %w", key, err)
			}
		}
		return nil
	})

	loadCache(dbConn, logger)
	return err
}

// GetSetting retrieves a setting value from the database
func GetSetting(dbConn *gorm.DB, key string) (string, error) {
	var setting Setting
	if err := dbConn.Where("key = ?", key).First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: %s", ErrSettingNotFound, key)
		}
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return setting.Value, nil
}

// GetSettingOr returns the stored value, or fallback when the key is missing.
func GetSettingOr(dbConn *gorm.DB, key, fallback string) (string, error) {
	value, err := GetSetting(dbConn, key)
	if errors.Is(err, ErrSettingNotFound) {
		return fallback, nil
	}
	return value, err
}

// GetSettingsWithPrefix returns all settings whose key starts with prefix,
// keyed by the remainder of the key.
func GetSettingsWithPrefix(dbConn *gorm.DB, prefix string) (map[string]string, error) {
	var rows []Setting
	if err := dbConn.Where("key LIKE ?", prefix+"%").Order("key").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list settings %s*: %w", prefix, err)
	}
	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[strings.TrimPrefix(row.Key, prefix)] = row.Value
	}
	return values, nil
}

// SetSettingTx upserts a setting on the caller's transaction.
func SetSettingTx(tx *gorm.DB, key, value string) error {
	now := time.Now().UTC()
	setting := Setting{Key: key, Value: value, CreatedAt: now, UpdatedAt: now}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{"value": value, "updated_at": now}),
	}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

// CreateOrUpdateSetting creates a new setting or updates an existing one
func CreateOrUpdateSetting(dbConn *gorm.DB, logger *slog.Logger, key string, value string) error {
	err := sqlite.PerformWrite(logger, dbConn, func(tx *gorm.DB) error {
		return SetSettingTx(tx, key, value)
	})
	if err != nil {
		return err
	}

	if key == KeyExcludedIPs {
		InvalidateCache(dbConn, logger)
	}
	return nil
}

// InvalidateCache drops cached setting values after a write.
func InvalidateCache(dbConn *gorm.DB, logger *slog.Logger) {
	excludedIPsCacheMu.RLock()
	c := excludedIPsCache
	excludedIPsCacheMu.RUnlock()
	if c != nil {
		c.Clear()
	}
	loadCache(dbConn, logger)
}

// IsIPExcluded reports whether clicks from ip should be ignored.
func IsIPExcluded(ip string) (bool, error) {
	excludedIPsCacheMu.RLock()
	c := excludedIPsCache
	excludedIPsCacheMu.RUnlock()

	// If the cache isn't initialized yet, nothing is excluded
	if c == nil || ip == "" {
		return false, nil
	}

	excludedIPs, err := c.Get(KeyExcludedIPs)
	if err != nil {
		return false, fmt.Errorf("failed to check excluded IPs: %w", err)
	}

	parsed := net.ParseIP(ip)
	for _, excluded := range excludedIPs {
		if excluded == ip {
			return true, nil
		}
		if _, network, err := net.ParseCIDR(excluded); err == nil && parsed != nil && network.Contains(parsed) {
			return true, nil
		}
	}
	return false, nil
}

func loadCache(dbConn *gorm.DB, logger *slog.Logger) {
	fetchFunc := func(key string) ([]string, error) {
		var value string
		err := dbConn.WithContext(context.Background()).Raw("SELECT value FROM settings WHERE key = ? LIMIT 1", key).Scan(&value).Error
		if err != nil {
			return nil, err
		}
		return SplitList(value), nil
	}

	excludedIPsCacheMu.Lock()
	excludedIPsCache = cache.NewCache[string, []string](logger, 5*time.Minute, fetchFunc)
	excludedIPsCacheMu.Unlock()
}

// SplitList parses a comma separated setting, dropping blanks.
func SplitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
