// main.go - Admin control tool for linkbio
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"linkbio/internal"
	"linkbio/internal/analytics"
	"linkbio/internal/config"
	"linkbio/internal/links"
	"linkbio/internal/seeder"
	"linkbio/internal/settings"
)

const (
	defaultShutdownTimeout = 30 * time.Second
)

// Command defines the interface for all command implementations
type Command interface {
	// Name returns the command name
	Name() string
	// Description returns the command description
	Description() string
	// Execute runs the command with the given app and args
	Execute(ctx context.Context, app *internal.Application, args []string) error
}

// The set of available commands
var commands = []Command{
	&MigrateCommand{},
	&CreateLinkCommand{},
	&ListLinksCommand{},
	&DeleteLinkCommand{},
	&ResetClicksCommand{},
	&ReconcileCommand{},
	&ExcludeIPsCommand{},
	&SeedCommand{},
	&StatusCommand{},
	&HelpCommand{},
}

func main() {
	// Parse global flags
	flag.Parse()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	// Set up context with cancellation for cleanup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals in a separate goroutine
	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v, initiating cleanup...", sig)
		cancel() // Signal the context to cancel
	}()

	// Parse command and arguments
	cmdName, args := parseArgs()

	// Find the requested command
	cmd := findCommand(cmdName)
	if cmd == nil {
		showUsageAndExit()
	}

	// Try to initialize the app
	app, err := internal.NewApp()
	if err != nil {
		log.Printf("Warning: Failed to initialize app: %v", err)
		log.Println("Proceeding with limited functionality...")
		// Let the command handle this situation
	}

	// Ensure app is cleaned up
	defer func() {
		if app != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
			defer cancel()
			if err := app.Shutdown(shutdownCtx); err != nil {
				log.Printf("Warning: Cleanup error: %v", err)
			}
		}
	}()

	// Execute the command
	if err := cmd.Execute(ctx, app, args); err != nil {
		log.Fatalf("Command failed: %v", err)
	}

	log.Printf("Command %s completed successfully", cmd.Name())
}

var errNoApp = errors.New("app initialization failed, cannot connect to database")

// MigrateCommand runs database migrations
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string        { return "migrate" }
func (c *MigrateCommand) Description() string { return "Runs database migrations" }

func (c *MigrateCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return errNoApp
	}

	log.Println("Running database migrations...")
	if err := app.DBManager.MigrateDatabase(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Println("Migrations completed successfully")
	return nil
}

// CreateLinkCommand creates a tracked link
type CreateLinkCommand struct{}

func (c *CreateLinkCommand) Name() string { return "create-link" }
func (c *CreateLinkCommand) Description() string {
	return "Creates a link: create-link -dest URL [-title T] [-slug S] [-type T] [-parent SLUG] [-utm-source ...]"
}

func (c *CreateLinkCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	dest := fs.String("dest", "", "destination URL")
	title := fs.String("title", "", "link title")
	slug := fs.String("slug", "", "custom slug (generated from the title when empty)")
	linkType := fs.String("type", string(links.LinkTypeRedirect), "link type")
	parent := fs.String("parent", "", "parent landing page slug for buttons")
	utmSource := fs.String("utm-source", "", "utm_source")
	utmMedium := fs.String("utm-medium", "", "utm_medium")
	utmCampaign := fs.String("utm-campaign", "", "utm_campaign")
	utmTerm := fs.String("utm-term", "", "utm_term")
	utmContent := fs.String("utm-content", "", "utm_content")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if app == nil {
		return errNoApp
	}

	link, err := links.CreateLink(app.DBManager.GetConnection(), slog.Default(), links.CreateLinkInput{
		Destination: *dest,
		Title:       *title,
		CustomSlug:  *slug,
		LinkType:    links.LinkType(*linkType),
		ParentSlug:  *parent,
		UTM: links.UTMParameters{
			Source:   *utmSource,
			Medium:   *utmMedium,
			Campaign: *utmCampaign,
			Term:     *utmTerm,
			Content:  *utmContent,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}

	fmt.Printf("Created link %d: %s -> %s\n", link.ID, config.GetConfig().ShortURL(link.Slug), link.Destination())
	return nil
}

// ListLinksCommand prints every link with its click windows
type ListLinksCommand struct{}

func (c *ListLinksCommand) Name() string        { return "list-links" }
func (c *ListLinksCommand) Description() string { return "Lists all links with click counts" }

func (c *ListLinksCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return errNoApp
	}

	all, err := links.ListLinks(app.DBManager.GetConnection())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSLUG\tTYPE\tPARENT\tCLICKS\t24H\t7D\tDESTINATION")
	for _, row := range analytics.Summarize(all, time.Now()) {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			row.ID, row.Slug, row.LinkType, row.ParentLandingPage,
			row.Clicks, row.Windows.Last24h, row.Windows.Last7d, row.Destination)
	}
	return w.Flush()
}

// DeleteLinkCommand removes a link and its click history
type DeleteLinkCommand struct{}

func (c *DeleteLinkCommand) Name() string        { return "delete-link" }
func (c *DeleteLinkCommand) Description() string { return "Deletes a link and its clicks: delete-link <id>" }

func (c *DeleteLinkCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	id, err := parseID(c.Name(), args)
	if err != nil {
		return err
	}
	if app == nil {
		return errNoApp
	}
	return links.DeleteLink(app.DBManager.GetConnection(), slog.Default(), id)
}

// ResetClicksCommand clears the clicks of a link
type ResetClicksCommand struct{}

func (c *ResetClicksCommand) Name() string { return "reset-clicks" }
func (c *ResetClicksCommand) Description() string {
	return "Clears the clicks of a link, landing pages include their buttons: reset-clicks <id>"
}

func (c *ResetClicksCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	id, err := parseID(c.Name(), args)
	if err != nil {
		return err
	}
	if app == nil {
		return errNoApp
	}

	ids, err := links.ResetClicksForLink(app.DBManager.GetConnection(), slog.Default(), id)
	if err != nil {
		return err
	}
	fmt.Printf("Reset clicks for %d link(s): %v\n", len(ids), ids)
	return nil
}

// ReconcileCommand runs the click counter reconciliation job once
type ReconcileCommand struct{}

func (c *ReconcileCommand) Name() string        { return "reconcile" }
func (c *ReconcileCommand) Description() string { return "Recomputes click counters from click events" }

func (c *ReconcileCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return errNoApp
	}

	found, err := app.Scheduler.RunNow("reconcile_clicks")
	if !found {
		return fmt.Errorf("reconcile job is not registered")
	}
	return err
}

// ExcludeIPsCommand sets the addresses whose clicks are ignored
type ExcludeIPsCommand struct{}

func (c *ExcludeIPsCommand) Name() string { return "exclude-ips" }
func (c *ExcludeIPsCommand) Description() string {
	return "Sets the comma separated IPs or CIDRs whose clicks are ignored: exclude-ips <list>"
}

func (c *ExcludeIPsCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return errNoApp
	}

	value := ""
	if len(args) > 0 {
		value = args[0]
	}
	if err := settings.CreateOrUpdateSetting(app.DBManager.GetConnection(), slog.Default(), settings.KeyExcludedIPs, value); err != nil {
		return err
	}
	fmt.Printf("Excluded IPs: %v\n", settings.SplitList(value))
	return nil
}

// SeedCommand populates the DB with demo data
type SeedCommand struct{}

func (c *SeedCommand) Name() string        { return "seed" }
func (c *SeedCommand) Description() string { return "Seeds the database with sample links and clicks" }

func (c *SeedCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	clickCount := fs.Int("clicks", 2000, "number of clicks to generate")
	days := fs.Int("days", 30, "spread clicks over this many days")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if app == nil {
		return fmt.Errorf("unable to initialise app")
	}

	se := seeder.NewSeeder(app.DBManager, slog.Default(), *clickCount)
	se.LandingSlug = config.GetConfig().DefaultLandingSlug
	se.Days = *days
	return se.Run(ctx)
}

// StatusCommand implements a command to check the system status
type StatusCommand struct{}

// Name returns the command name
func (c *StatusCommand) Name() string {
	return "status"
}

// Description returns the command description
func (c *StatusCommand) Description() string {
	return "Shows the current system status"
}

// Execute implements the status command
func (c *StatusCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return fmt.Errorf("cannot check status: app initialization failed")
	}

	db := app.DBManager.GetConnection()

	var linkCount, clickCount int64
	if err := db.Model(&links.Link{}).Count(&linkCount).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if err := db.Model(&links.ClickEvent{}).Count(&clickCount).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}

	log.Println("System Status:")
	log.Println("- Database: Connected")
	log.Printf("- Links: %d", linkCount)
	log.Printf("- Click events: %d", clickCount)

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB: %w", err)
	}

	log.Printf("- Max Open Connections: %d", sqlDB.Stats().MaxOpenConnections)
	log.Printf("- Open Connections: %d", sqlDB.Stats().OpenConnections)
	log.Printf("- In Use: %d", sqlDB.Stats().InUse)
	log.Printf("- Idle: %d", sqlDB.Stats().Idle)

	return nil
}

// HelpCommand implements a command to show usage information
type HelpCommand struct{}

// Name returns the command name
func (c *HelpCommand) Name() string {
	return "help"
}

// Description returns the command description
func (c *HelpCommand) Description() string {
	return "Shows usage information"
}

// Execute implements the help command
func (c *HelpCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	printUsage()
	return nil
}

// Helper functions

func parseID(name string, args []string) (uint, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("usage: %s <id>", name)
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid link id %q", args[0])
	}
	return uint(id), nil
}

// parseArgs parses the command name and arguments
func parseArgs() (string, []string) {
	args := flag.Args()
	if len(args) == 0 {
		return "help", []string{}
	}
	return args[0], args[1:]
}

// findCommand finds a command by name
func findCommand(name string) Command {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: linkctl [command] [args...]")
	fmt.Println("Available commands:")

	for _, cmd := range commands {
		fmt.Printf("  %s: %s\n", cmd.Name(), cmd.Description())
	}
}

// showUsageAndExit shows usage information and exits
func showUsageAndExit() {
	printUsage()
	os.Exit(1)
}
