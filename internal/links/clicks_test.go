package links_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkbio/internal/links"
	"linkbio/internal/testsupport"
)

func TestAddClickKeepsCounterInSync(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	testsupport.CleanAllTables(db)
	logger := testsupport.GetLogger()

	link := testsupport.CreateTestLink(t, db, links.CreateLinkInput{Destination: "https://example.com", CustomSlug: "sync"})

	event := &links.ClickEvent{LinkID: link.ID}
	require.NoError(t, links.AddClick(db, logger, event))
	assert.Equal(t, links.DirectReferrer, event.Referrer)
	assert.False(t, event.Timestamp.IsZero())

	var stored links.Link
	require.NoError(t, db.First(&stored, link.ID).Error)
	assert.Equal(t, int64(1), stored.Clicks)
}

func TestResetClicks(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	testsupport.CleanAllTables(db)
	logger := testsupport.GetLogger()

	a := testsupport.CreateTestLink(t, db, links.CreateLinkInput{Destination: "https://a.example", CustomSlug: "a"})
	b := testsupport.CreateTestLink(t, db, links.CreateLinkInput{Destination: "https://b.example", CustomSlug: "b"})
	testsupport.CreateTestClick(t, db, a.ID, time.Now().UTC())
	testsupport.CreateTestClick(t, db, a.ID, time.Now().UTC())
	testsupport.CreateTestClick(t, db, b.ID, time.Now().UTC())

	require.NoError(t, links.ResetClicks(db, logger, []uint{a.ID}))

	resetLink, err := links.GetLink(db, a.ID)
	require.NoError(t, err)
	assert.Zero(t, resetLink.Clicks)
	assert.Empty(t, resetLink.ClickHistory)
	assert.Equal(t, "https://a.example", resetLink.RedirectURL)

	untouched, err := links.GetLink(db, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), untouched.Clicks)
}

func TestResetClicksForLanding(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	testsupport.CleanAllTables(db)
	logger := testsupport.GetLogger()

	landing := testsupport.CreateTestLanding(t, db, "promo")
	buy := testsupport.CreateTestButton(t, db, "promo", "Buy Now", "promo-buy", "https://shop.example")
	// Legacy button without a parent, matched by slug prefix.
	legacy := testsupport.CreateTestLink(t, db, links.CreateLinkInput{Destination: "https://netflix.com", CustomSlug: "promo-netflix"})
	other := testsupport.CreateTestLink(t, db, links.CreateLinkInput{Destination: "https://example.com", CustomSlug: "promotion"})

	now := time.Now().UTC()
	for _, id := range []uint{landing.ID, buy.ID, legacy.ID, other.ID} {
		testsupport.CreateTestClick(t, db, id, now)
	}

	ids, err := links.ResetClicksForLink(db, logger, landing.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{landing.ID, buy.ID, legacy.ID}, ids)

	for _, id := range ids {
		count, err := links.CountClicks(db, id)
		require.NoError(t, err)
		assert.Zero(t, count)
	}

	count, err := links.CountClicks(db, other.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = links.ResetClicksForLink(db, logger, 9999)
	var notFound *links.LinkNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestResetScope(t *testing.T) {
	landing := links.Link{ID: 1, Slug: "home", ButtonType: links.LinkTypeLanding}
	all := []links.Link{
		landing,
		{ID: 2, Slug: "x1", ParentLandingPage: "home", ButtonType: links.LinkTypeCommerce},
		{ID: 3, Slug: "home-prime", ButtonType: links.LinkTypeStreaming},
		{ID: 4, Slug: "home-other", ParentLandingPage: "elsewhere", ButtonType: links.LinkTypeStreaming},
		{ID: 5, Slug: "homepage", ButtonType: links.LinkTypeRedirect},
		{ID: 6, Slug: "home-sale", ButtonType: links.LinkTypeRedirect, RedirectURL: "https://shop.example.com/home"},
		{ID: 7, Slug: "home-2", ButtonType: links.LinkTypeLanding, RedirectURL: links.LandingDestination},
	}

	assert.Equal(t, []uint{1, 2, 3}, links.ResetScope(landing, all))
	assert.Equal(t, []uint{5}, links.ResetScope(all[4], all))
	assert.Equal(t, []uint{7}, links.ResetScope(all[6], all))
}

func TestResetClicksForLandingAcrossIDChunks(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	testsupport.CleanAllTables(db)
	logger := testsupport.GetLogger()
	t.Cleanup(links.SetIDChunkSize(1))

	home := testsupport.CreateTestLanding(t, db, "home")
	first := testsupport.CreateTestButton(t, db, "home", "Netflix", "home-netflix", "https://www.netflix.com")
	second := testsupport.CreateTestButton(t, db, "home", "Prime", "home-prime", "https://www.primevideo.com")
	for _, id := range []uint{home.ID, first.ID, second.ID} {
		testsupport.CreateTestClick(t, db, id, time.Now().UTC())
	}

	ids, err := links.ResetClicksForLink(db, logger, home.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{home.ID, first.ID, second.ID}, ids)

	for _, id := range ids {
		count, err := links.CountClicks(db, id)
		require.NoError(t, err)
		assert.Zero(t, count)
	}
}

func TestResetClicksForLandingKeepsPrefixedNonButtons(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	testsupport.CleanAllTables(db)
	logger := testsupport.GetLogger()

	home := testsupport.CreateTestLanding(t, db, "home")
	button := testsupport.CreateTestButton(t, db, "home", "Prime", "home-prime", "https://www.primevideo.com")
	sale := testsupport.CreateTestLink(t, db, links.CreateLinkInput{Destination: "https://shop.example.com", CustomSlug: "home-sale"})
	other := testsupport.CreateTestLanding(t, db, "home-2")
	for _, id := range []uint{home.ID, button.ID, sale.ID, other.ID} {
		testsupport.CreateTestClick(t, db, id, time.Now().UTC())
	}

	ids, err := links.ResetClicksForLink(db, logger, home.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{home.ID, button.ID}, ids)

	for _, id := range []uint{sale.ID, other.ID} {
		count, err := links.CountClicks(db, id)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	}
}

func TestReconcileClickCounts(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	testsupport.CleanAllTables(db)
	logger := testsupport.GetLogger()

	link := testsupport.CreateTestLink(t, db, links.CreateLinkInput{Destination: "https://example.com", CustomSlug: "drift"})
	testsupport.CreateTestClick(t, db, link.ID, time.Now().UTC())
	testsupport.CreateTestClick(t, db, link.ID, time.Now().UTC())
	require.NoError(t, db.Model(&links.Link{}).Where("id = ?", link.ID).Update("clicks", 40).Error)

	corrected, err := links.ReconcileClickCounts(db, logger)
	require.NoError(t, err)
	assert.Equal(t, int64(1), corrected)

	var stored links.Link
	require.NoError(t, db.First(&stored, link.ID).Error)
	assert.Equal(t, int64(2), stored.Clicks)

	corrected, err = links.ReconcileClickCounts(db, logger)
	require.NoError(t, err)
	assert.Zero(t, corrected)
}

func TestResetErrorListsFailedIDs(t *testing.T) {
	err := &links.ResetError{Failed: map[uint]error{
		7: assert.AnError,
		3: assert.AnError,
	}}
	assert.Equal(t, []uint{3, 7}, err.FailedIDs())
	assert.Contains(t, err.Error(), "2 link(s)")
}
