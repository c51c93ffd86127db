package links_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkbio/internal/links"
	"linkbio/internal/testsupport"
)

func TestStateRefresh(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	testsupport.CleanAllTables(db)

	state := links.NewState(db)
	assert.Empty(t, state.Links())
	assert.True(t, state.RefreshedAt().IsZero())

	link := testsupport.CreateTestLink(t, db, links.CreateLinkInput{Destination: "https://example.com", CustomSlug: "snap"})
	testsupport.CreateTestClick(t, db, link.ID, time.Now().UTC())

	_, found := state.Find("snap")
	assert.False(t, found, "snapshot must not change until refreshed")

	require.NoError(t, state.Refresh())
	snap, found := state.Find("snap")
	require.True(t, found)
	assert.Equal(t, int64(1), snap.Clicks)
	assert.Len(t, snap.ClickHistory, 1)
	assert.False(t, state.RefreshedAt().IsZero())

	byID, found := state.FindByID(link.ID)
	require.True(t, found)
	assert.Equal(t, "snap", byID.Slug)
}

func TestStateLinksReturnsCopy(t *testing.T) {
	state := links.NewStateFromLinks([]links.Link{{ID: 1, Slug: "a"}})

	copied := state.Links()
	copied[0].Slug = "changed"

	original, found := state.FindByID(1)
	require.True(t, found)
	assert.Equal(t, "a", original.Slug)
}
