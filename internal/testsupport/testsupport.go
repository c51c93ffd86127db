package testsupport

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"linkbio/internal"
	"linkbio/internal/clicks"
	"linkbio/internal/config"
	"linkbio/internal/database"
	"linkbio/internal/links"
	"linkbio/internal/pkg/geoip"
	"linkbio/internal/pkg/metrics"
)

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

// NewTestDBManager creates a TestDBManager that implements cartridge.DBManager
func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

// Ensure TestDBManager implements cartridge.DBManager
var _ cartridge.DBManager = (*TestDBManager)(nil)

// SetupTestDB creates an in-memory test database with all models migrated.
// Databases are cached by root test name so subtests share one database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	rootName := t.Name()
	if idx := strings.Index(rootName, "/"); idx > 0 {
		rootName = rootName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	// One connection keeps concurrent writers from hitting shared-cache table locks.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	db.Exec("PRAGMA foreign_keys = ON")

	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupTestDBManager creates a test DB manager and forces the test environment.
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	t.Helper()
	TestConfig()

	db := SetupTestDB(t)
	return NewTestDBManager(db), GetLogger()
}

// TestConfig returns the shared configuration switched to the test environment.
func TestConfig() *config.Config {
	cfg := config.GetConfig()
	cfg.Environment = config.Test
	cfg.RedirectDelaySeconds = 3
	return cfg
}

// CleanAllTables clears all non-system tables in the database
func CleanAllTables(db *gorm.DB) {
	var tableNames []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tableNames)

	if len(tableNames) == 0 {
		return
	}

	db.Exec("PRAGMA foreign_keys = OFF")
	defer db.Exec("PRAGMA foreign_keys = ON")

	db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tableNames {
			tx.Exec("DELETE FROM " + table)
			tx.Exec("DELETE FROM sqlite_sequence WHERE name=?", table)
		}
		return nil
	})
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// CreateTestLink creates a link through the store and fails the test on error.
func CreateTestLink(t *testing.T, db *gorm.DB, input links.CreateLinkInput) *links.Link {
	t.Helper()
	link, err := links.CreateLink(db, GetLogger(), input)
	require.NoError(t, err)
	return link
}

// CreateTestLanding creates a landing page with the given slug.
func CreateTestLanding(t *testing.T, db *gorm.DB, slug string) *links.Link {
	t.Helper()
	return CreateTestLink(t, db, links.CreateLinkInput{
		Title:      "Landing " + slug,
		CustomSlug: slug,
		LinkType:   links.LinkTypeLanding,
	})
}

// CreateTestButton creates a button owned by the landing page parentSlug.
func CreateTestButton(t *testing.T, db *gorm.DB, parentSlug, title, slug, destination string) *links.Link {
	t.Helper()
	return CreateTestLink(t, db, links.CreateLinkInput{
		Destination: destination,
		Title:       title,
		CustomSlug:  slug,
		LinkType:    links.LinkTypeStreaming,
		ParentSlug:  parentSlug,
	})
}

// CreateTestClick inserts a click event at timestamp for linkID.
func CreateTestClick(t *testing.T, db *gorm.DB, linkID uint, timestamp time.Time) *links.ClickEvent {
	t.Helper()
	event := &links.ClickEvent{
		LinkID:    linkID,
		Timestamp: timestamp,
		Referrer:  "https://instagram.com/",
		Browser:   "Chrome",
		Device:    "Mobile",
		OS:        "Android",
		Country:   "India",
		Region:    "Maharashtra",
		City:      "Mumbai",
		StateCode: "MH",
		Location:  links.FormatLocation("Mumbai", "Maharashtra", "India"),
		IP:        "49.36.0.1",
	}
	require.NoError(t, links.AddClick(db, GetLogger(), event))
	return event
}

// StaticLocator answers every lookup with the same location.
func StaticLocator(loc geoip.Location) geoip.Locator {
	return geoip.LocatorFunc(func(ctx context.Context, ip string) (geoip.Location, error) {
		return loc, nil
	})
}

// FailingLocator simulates an unreachable geolocation service.
func FailingLocator() geoip.Locator {
	return geoip.LocatorFunc(func(ctx context.Context, ip string) (geoip.Location, error) {
		return geoip.Location{}, fmt.Errorf("simulated network error")
	})
}

// NewTestRecorder builds a recorder over dbManager with locator and fresh metrics.
func NewTestRecorder(dbManager cartridge.DBManager, locator geoip.Locator) *clicks.Recorder {
	return clicks.NewRecorder(dbManager, GetLogger(), locator, clicks.WithMetrics(metrics.NewMetrics()))
}

// CreateMinimalTestApp creates a test Fiber app with all routes mounted over db.
// The returned recorder can be waited on for asynchronous clicks.
func CreateMinimalTestApp(t *testing.T, db *gorm.DB) (*fiber.App, *clicks.Recorder) {
	t.Helper()

	dbManager := NewTestDBManager(db)
	appConfig := TestConfig()

	m := metrics.NewMetrics()
	recorder := clicks.NewRecorder(dbManager, GetLogger(),
		StaticLocator(geoip.Location{Country: "Germany", Region: "Berlin", City: "Berlin", StateCode: "BE"}),
		clicks.WithMetrics(m))

	cfg := cartridge.DefaultServerConfig()
	cfg.Config = appConfig
	cfg.Logger = GetLogger()
	cfg.DBManager = dbManager

	srv, err := cartridge.NewServer(cfg)
	require.NoError(t, err)

	internal.NewRouteMount(&internal.Dependencies{
		Config:   appConfig,
		Recorder: recorder,
		Metrics:  m,
	})(srv)

	t.Cleanup(recorder.Wait)
	return srv.App(), recorder
}
