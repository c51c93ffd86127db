package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"linkbio/internal/landing"
	"linkbio/internal/links"
	"linkbio/internal/pkg/user_agent"
	"linkbio/internal/settings"
)

// Seeder fills a database with a demo landing page, its buttons, a couple of
// standalone short links and a realistic click history.
type Seeder struct {
	DBManager   cartridge.DBManager
	Logger      *slog.Logger
	ClickCount  int
	LandingSlug string
	Days        int

	rng *rand.Rand
	now func() time.Time
}

// NewSeeder creates a new seeder instance
func NewSeeder(dbManager cartridge.DBManager, logger *slog.Logger, clickCount int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		DBManager:   dbManager,
		Logger:      logger,
		ClickCount:  clickCount,
		LandingSlug: "home",
		Days:        30,
		rng:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 42)),
		now:         time.Now,
	}
}

// WithSeed makes the generated history reproducible.
func (s *Seeder) WithSeed(seed uint64) *Seeder {
	s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return s
}

// Run creates the demo links (idempotently) and appends ClickCount clicks
// spread over the last Days days.
func (s *Seeder) Run(ctx context.Context) error {
	start := time.Now()
	s.Logger.Info("Starting database seeding...",
		slog.String("landing", s.LandingSlug),
		slog.Int("clickCount", s.ClickCount))

	db := s.DBManager.GetConnection()

	if err := settings.SetupDefaultSettings(db, s.Logger, settings.Defaults(s.LandingSlug)); err != nil {
		return fmt.Errorf("failed to set up settings: %w", err)
	}

	if _, err := landing.EnsureLandingPage(db, s.Logger, s.LandingSlug, "My Links"); err != nil {
		return fmt.Errorf("failed to seed landing page: %w", err)
	}

	if err := s.seedStandaloneLinks(db); err != nil {
		return err
	}

	all, err := links.ListLinks(db)
	if err != nil {
		return fmt.Errorf("failed to list seeded links: %w", err)
	}

	if err := s.generateClicks(ctx, db, all); err != nil {
		return fmt.Errorf("failed to generate clicks: %w", err)
	}

	s.Logger.Info("Seeding completed successfully",
		slog.Int("links", len(all)),
		slog.Int("clicks", s.ClickCount),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Seeder) seedStandaloneLinks(db *gorm.DB) error {
	standalone := []links.CreateLinkInput{
		{
			Destination: "https://example.com/spring-sale",
			Title:       "Spring Sale",
			CustomSlug:  "spring-sale",
			UTM:         links.UTMParameters{Source: "instagram", Medium: "bio", Campaign: "spring"},
		},
		{
			Destination: "https://example.com/newsletter",
			Title:       "Newsletter",
			CustomSlug:  "newsletter",
		},
	}

	for _, input := range standalone {
		if _, err := links.FindBySlug(db, input.CustomSlug); err == nil {
			continue
		}
		if _, err := links.CreateLink(db, s.Logger, input); err != nil {
			return fmt.Errorf("failed to seed link %s: %w", input.CustomSlug, err)
		}
	}
	return nil
}

type demoLocation struct {
	city, region, country, stateCode string
}

func (s *Seeder) generateClicks(ctx context.Context, db *gorm.DB, all []links.Link) error {
	if len(all) == 0 || s.ClickCount <= 0 {
		return nil
	}

	ipPool := generateIPPool(s.rng, 100)
	userAgents := getUserAgents()
	referrers := getReferrers()
	locations := getLocations()
	window := time.Duration(s.Days) * 24 * time.Hour
	now := s.now().UTC()

	const batchSize = 200
	created := 0
	for created < s.ClickCount {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := min(batchSize, s.ClickCount-created)
		batch := make([]links.ClickEvent, 0, n)
		for i := 0; i < n; i++ {
			link := all[s.rng.IntN(len(all))]
			ua := user_agent.ParseUserAgent(userAgents[s.rng.IntN(len(userAgents))])
			loc := locations[s.rng.IntN(len(locations))]
			referrer := referrers[s.rng.IntN(len(referrers))]
			if referrer == "" {
				referrer = links.DirectReferrer
			}

			batch = append(batch, links.ClickEvent{
				LinkID:    link.ID,
				Timestamp: now.Add(-time.Duration(s.rng.Int64N(int64(window)))),
				Referrer:  referrer,
				Browser:   ua.Browser,
				Device:    ua.Device,
				OS:        ua.OS,
				Country:   loc.country,
				Region:    loc.region,
				City:      loc.city,
				StateCode: loc.stateCode,
				Location:  links.FormatLocation(loc.city, loc.region, loc.country),
				IP:        ipPool[s.rng.IntN(len(ipPool))],
			})
		}

		err := sqlite.PerformWrite(s.Logger, db, func(tx *gorm.DB) error {
			for i := range batch {
				event := batch[i]
				if err := links.InsertClick(tx, &event); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		created += n
		s.Logger.Debug("Seeded click batch", slog.Int("created", created))
	}
	return nil
}

func generateIPPool(rng *rand.Rand, count int) []string {
	ipPool := make(map[string]bool)
	var ips []string
	for len(ips) < count {
		ip := fmt.Sprintf("%d.%d.%d.%d", rng.IntN(223)+1, rng.IntN(256), rng.IntN(256), rng.IntN(256))
		if !ipPool[ip] {
			ipPool[ip] = true
			ips = append(ips, ip)
		}
	}
	return ips
}

func getUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
		"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
		"Mozilla/5.0 (iPad; CPU OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
		"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
	}
}

func getReferrers() []string {
	return []string{
		"", // Direct visit
		"https://www.instagram.com/",
		"https://l.instagram.com/",
		"https://www.tiktok.com/",
		"https://t.co/",
		"https://www.youtube.com/",
		"https://www.facebook.com/",
		"https://www.google.com/",
	}
}

func getLocations() []demoLocation {
	return []demoLocation{
		{"Mumbai", "Maharashtra", "India", "MH"},
		{"Pune", "Maharashtra", "India", "MH"},
		{"Bengaluru", "Karnataka", "India", "KA"},
		{"San Francisco", "California", "United States", "CA"},
		{"Austin", "Texas", "United States", "TX"},
		{"Berlin", "Berlin", "Germany", "BE"},
		{"London", "England", "United Kingdom", "ENG"},
		{"Unknown", "Unknown", "India", ""},
	}
}
