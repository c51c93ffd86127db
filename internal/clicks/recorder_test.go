package clicks_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkbio/internal/clicks"
	"linkbio/internal/links"
	"linkbio/internal/pkg/geoip"
	"linkbio/internal/pkg/metrics"
	"linkbio/internal/settings"
	"linkbio/internal/testsupport"
)

const iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

func TestRecordWritesEvent(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	link := testsupport.CreateTestLink(t, db, links.CreateLinkInput{
		Destination: "https://example.com/promo",
		Title:       "Promo",
		CustomSlug:  "promo",
	})

	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := metrics.NewMetrics()
	recorder := clicks.NewRecorder(dbManager, logger,
		testsupport.StaticLocator(geoip.Location{Country: "United States", Region: "California", City: "San Francisco", StateCode: "CA"}),
		clicks.WithMetrics(m),
		clicks.WithClock(func() time.Time { return fixed }))

	recorder.Record(context.Background(), clicks.RecordInput{
		Slug:      "promo",
		Referrer:  "https://www.instagram.com/p/abc",
		UserAgent: iphoneUA,
		IPAddress: "8.8.8.8",
	})

	stored, err := links.GetLink(db, link.ID)
	require.NoError(t, err)
	require.Len(t, stored.ClickHistory, 1)
	assert.Equal(t, int64(1), stored.Clicks)

	event := stored.ClickHistory[0]
	assert.True(t, fixed.Equal(event.Timestamp))
	assert.Equal(t, "https://www.instagram.com/p/abc", event.Referrer)
	assert.Equal(t, "Safari", event.Browser)
	assert.Equal(t, "Mobile", event.Device)
	assert.Equal(t, "iOS", event.OS)
	assert.Equal(t, "San Francisco, California, United States", event.Location)
	assert.Equal(t, "CA", event.StateCode)
	assert.Equal(t, "8.8.8.8", event.IP)

	out, err := m.Gather()
	require.NoError(t, err)
	assert.Contains(t, out, `linkbio_clicks_recorded_total{browser="Safari",device="Mobile"} 1`)
}

func TestRecordUnknownSlugWritesNothing(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	m := metrics.NewMetrics()
	recorder := clicks.NewRecorder(dbManager, logger, geoip.NoopLocator{}, clicks.WithMetrics(m))

	assert.NotPanics(t, func() {
		recorder.Record(context.Background(), clicks.RecordInput{Slug: "missing"})
	})

	var count int64
	require.NoError(t, db.Model(&links.ClickEvent{}).Count(&count).Error)
	assert.Zero(t, count)

	out, err := m.Gather()
	require.NoError(t, err)
	assert.Contains(t, out, `linkbio_tracking_failures_total{stage="lookup"} 1`)
}

func TestRecordGeoFailureUsesFallback(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	link := testsupport.CreateTestLink(t, db, links.CreateLinkInput{
		Destination: "https://example.com",
		CustomSlug:  "geo",
	})

	recorder := clicks.NewRecorder(dbManager, logger, testsupport.FailingLocator())
	recorder.Record(context.Background(), clicks.RecordInput{Slug: "geo", IPAddress: "1.1.1.1"})

	stored, err := links.GetLink(db, link.ID)
	require.NoError(t, err)
	require.Len(t, stored.ClickHistory, 1)

	event := stored.ClickHistory[0]
	assert.Equal(t, "India", event.Country)
	assert.Equal(t, "Unknown", event.Region)
	assert.Equal(t, "Unknown", event.City)
	assert.Equal(t, "Unknown, Unknown, India", event.Location)
	assert.Equal(t, links.DirectReferrer, event.Referrer)
	assert.Equal(t, "Desktop", event.Device)
}

func TestRecordAsyncConcurrentClicks(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	link := testsupport.CreateTestLink(t, db, links.CreateLinkInput{
		Destination: "https://example.com",
		CustomSlug:  "busy",
	})

	recorder := clicks.NewRecorder(dbManager, logger, geoip.NoopLocator{})
	const n = 25
	for i := 0; i < n; i++ {
		recorder.RecordAsync(clicks.RecordInput{Slug: "busy", UserAgent: iphoneUA})
	}
	recorder.Wait()

	var stored links.Link
	require.NoError(t, db.First(&stored, link.ID).Error)
	assert.Equal(t, int64(n), stored.Clicks)

	count, err := links.CountClicks(db, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), count)
}

func TestStopDropsNewClicks(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	link := testsupport.CreateTestLink(t, db, links.CreateLinkInput{
		Destination: "https://example.com",
		CustomSlug:  "late",
	})

	recorder := clicks.NewRecorder(dbManager, logger, geoip.NoopLocator{})
	require.NoError(t, recorder.Start())
	recorder.RecordAsync(clicks.RecordInput{Slug: "late"})
	recorder.Stop()

	recorder.RecordAsync(clicks.RecordInput{Slug: "late"})
	recorder.Wait()

	count, err := links.CountClicks(db, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRecordAsyncDoesNotBlockCaller(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	testsupport.CreateTestLink(t, db, links.CreateLinkInput{
		Destination: "https://example.com",
		CustomSlug:  "slowgeo",
	})

	release := make(chan struct{})
	slow := geoip.LocatorFunc(func(ctx context.Context, ip string) (geoip.Location, error) {
		<-release
		return geoip.Location{Country: "Japan", Region: "Tokyo", City: "Tokyo"}, nil
	})

	recorder := clicks.NewRecorder(dbManager, logger, slow)

	done := make(chan struct{})
	go func() {
		recorder.RecordAsync(clicks.RecordInput{Slug: "slowgeo", IPAddress: "1.2.3.4"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RecordAsync blocked on geolocation")
	}

	close(release)
	recorder.Wait()
}

func TestRecordSkipsExcludedIPs(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	require.NoError(t, settings.SetupDefaultSettings(db, logger, settings.Defaults("home")))
	require.NoError(t, settings.CreateOrUpdateSetting(db, logger, settings.KeyExcludedIPs, "203.0.113.7"))
	t.Cleanup(func() {
		_ = settings.CreateOrUpdateSetting(db, logger, settings.KeyExcludedIPs, "")
	})

	link := testsupport.CreateTestLink(t, db, links.CreateLinkInput{Destination: "https://example.com", CustomSlug: "office"})
	recorder := testsupport.NewTestRecorder(dbManager, testsupport.FailingLocator())

	recorder.Record(context.Background(), clicks.RecordInput{Slug: "office", IPAddress: "203.0.113.7"})
	recorder.Record(context.Background(), clicks.RecordInput{Slug: "office", IPAddress: "198.51.100.1"})

	count, err := links.CountClicks(db, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
