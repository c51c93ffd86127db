package redirect_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkbio/internal/clicks"
	"linkbio/internal/links"
	"linkbio/internal/pkg/metrics"
	"linkbio/internal/redirect"
	"linkbio/internal/testsupport"
)

type fakeTracker struct {
	mu     sync.Mutex
	inputs []clicks.RecordInput
}

func (f *fakeTracker) RecordAsync(input clicks.RecordInput) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
}

func (f *fakeTracker) recorded() []clicks.RecordInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]clicks.RecordInput(nil), f.inputs...)
}

func snapshot() *links.State {
	return links.NewStateFromLinks([]links.Link{
		{ID: 1, Slug: "promo", RedirectURL: "https://example.com/sale", ButtonType: links.LinkTypeRedirect,
			UTM: links.UTMParameters{Source: "bio"}},
		{ID: 2, Slug: "home", RedirectURL: links.LandingDestination, ButtonType: links.LinkTypeLanding},
	})
}

func TestResolveFound(t *testing.T) {
	tracker := &fakeTracker{}
	m := metrics.NewMetrics()
	resolver := redirect.NewResolver(redirect.SnapshotLookup(snapshot()), tracker, 3*time.Second, redirect.WithMetrics(m))

	res := resolver.Resolve(context.Background(), redirect.Request{
		Code:      "promo",
		Referrer:  "https://instagram.com",
		UserAgent: "Mozilla/5.0",
		IPAddress: "8.8.8.8",
	})

	assert.Equal(t, redirect.StateRedirecting, res.State())
	assert.True(t, res.Found())
	assert.Equal(t, "https://example.com/sale?utm_source=bio", res.Destination())
	assert.Equal(t, 3, res.CountdownSeconds())

	require.Len(t, tracker.recorded(), 1)
	assert.Equal(t, clicks.RecordInput{
		Slug:      "promo",
		Referrer:  "https://instagram.com",
		UserAgent: "Mozilla/5.0",
		IPAddress: "8.8.8.8",
	}, tracker.recorded()[0])

	dest, err := res.Navigate()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/sale?utm_source=bio", dest)
	assert.Equal(t, redirect.StateNavigated, res.State())
	assert.True(t, res.State().IsTerminal())

	_, err = res.Navigate()
	assert.ErrorIs(t, err, redirect.ErrNotNavigable)

	out, err := m.Gather()
	require.NoError(t, err)
	assert.Contains(t, out, `linkbio_redirects_total{outcome="redirected"} 1`)
}

func TestResolveLandingGoesToPublicPage(t *testing.T) {
	resolver := redirect.NewResolver(redirect.SnapshotLookup(snapshot()), nil, 0)
	res := resolver.Resolve(context.Background(), redirect.Request{Code: "home"})
	assert.Equal(t, "/l/home", res.Destination())
	assert.Zero(t, res.CountdownSeconds())
}

func TestResolveUnknownCode(t *testing.T) {
	tracker := &fakeTracker{}
	m := metrics.NewMetrics()
	resolver := redirect.NewResolver(redirect.SnapshotLookup(snapshot()), tracker, time.Second, redirect.WithMetrics(m))

	for _, code := range []string{"missing", "", "  ", "PROMO"} {
		res := resolver.Resolve(context.Background(), redirect.Request{Code: code})
		assert.Equal(t, redirect.StateNotFound, res.State(), code)
		assert.False(t, res.Found())
		assert.Empty(t, res.Destination())

		_, err := res.Navigate()
		assert.ErrorIs(t, err, redirect.ErrNotNavigable)
		assert.Equal(t, redirect.StateNotFound, res.State())
	}

	assert.Empty(t, tracker.recorded())

	out, err := m.Gather()
	require.NoError(t, err)
	assert.Contains(t, out, `linkbio_redirects_total{outcome="not_found"} 4`)
}

func TestResolveLookupFailureIsNotFound(t *testing.T) {
	failing := redirect.LookupFunc(func(ctx context.Context, code string) (*links.Link, error) {
		return nil, errors.New("database is locked")
	})
	tracker := &fakeTracker{}
	resolver := redirect.NewResolver(failing, tracker, time.Second, redirect.WithLogger(testsupport.GetLogger()))

	res := resolver.Resolve(context.Background(), redirect.Request{Code: "promo"})
	assert.Equal(t, redirect.StateNotFound, res.State())
	assert.Empty(t, tracker.recorded())
}

func TestNavigateOnlyOnce(t *testing.T) {
	resolver := redirect.NewResolver(redirect.SnapshotLookup(snapshot()), nil, time.Second)
	res := resolver.Resolve(context.Background(), redirect.Request{Code: "promo"})

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := res.Navigate(); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
}

func TestStoreLookup(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	testsupport.CleanAllTables(db)
	testsupport.CreateTestLink(t, db, links.CreateLinkInput{Destination: "https://example.com", CustomSlug: "stored"})

	lookup := redirect.StoreLookup(db)
	link, err := lookup.Lookup(context.Background(), "stored")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", link.RedirectURL)

	_, err = lookup.Lookup(context.Background(), "nope")
	var notFound *links.LinkNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCodeFromPath(t *testing.T) {
	assert.Equal(t, "abc", redirect.CodeFromPath("/r/abc"))
	assert.Equal(t, "abc", redirect.CodeFromPath("/r/abc/"))
	assert.Equal(t, "abc", redirect.CodeFromPath("abc"))
	assert.Equal(t, "", redirect.CodeFromPath("/"))
}
