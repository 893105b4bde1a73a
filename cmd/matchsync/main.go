package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	crerr "github.com/cockroachdb/errors"

	"github.com/fortuna/pitchside/internal/config"
	"github.com/fortuna/pitchside/internal/fetch"
	"github.com/fortuna/pitchside/internal/ingest"
	"github.com/fortuna/pitchside/internal/ingest/transfermarkt"
	"github.com/fortuna/pitchside/internal/logging"
	"github.com/fortuna/pitchside/internal/store"
	"github.com/fortuna/pitchside/internal/store/memory"
	"github.com/fortuna/pitchside/internal/store/repository"
)

const (
	appName    = "pitchside-matchsync"
	appVersion = "1.0.0"
)

type options struct {
	leagues  string
	matchday int
	dryRun   bool
	squads   bool
	chrome   bool
	dsn      string
	aliases  string
	verbose  bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	var opts options
	flag.StringVar(&opts.leagues, "leagues", "GB1", "Comma separated league source ids (e.g. GB1,ES1)")
	flag.IntVar(&opts.matchday, "matchday", 0, "Matchday to sync (0 = current)")
	flag.BoolVar(&opts.dryRun, "dry-run", true, "Write to an in-memory catalog instead of the database")
	flag.BoolVar(&opts.squads, "squads", false, "Also sync squads and injuries of every resolved team")
	flag.BoolVar(&opts.chrome, "chrome", cfg.ChromeEnabled, "Render pages in headless Chrome before falling back to HTTP")
	flag.StringVar(&opts.dsn, "dsn", cfg.DatabaseURL, "Postgres DSN used without -dry-run")
	flag.StringVar(&opts.aliases, "aliases", "", "Extra club aliases to seed (e.g. GB1/985=Man Utd;ES1/131=Barca)")
	flag.BoolVar(&opts.verbose, "v", false, "Print every outcome, not only failures and skips")
	flag.Parse()

	level := logging.LevelWarn
	if opts.verbose {
		level = logging.LevelDebug
	}
	logger := logging.NewJSON(level).With("app", appName)
	logging.SetDefault(logger)

	fmt.Printf("=== %s v%s ===\n", appName, appVersion)
	if err := run(cfg, opts, logger); err != nil {
		fmt.Fprintf(os.Stderr, "matchsync failed: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, opts options, logger *logging.Logger) error {
	leagues, err := config.SelectLeagues(opts.leagues, cfg.Season)
	if err != nil {
		return err
	}
	if err := config.AddAliases(leagues, opts.aliases); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var catalog ingest.Catalog
	if opts.dryRun {
		catalog = memory.NewCatalog()
		fmt.Println("dry run: writing to an in-memory catalog")
	} else {
		db, err := store.NewDatabase(opts.dsn)
		if err != nil {
			return crerr.Wrap(err, "connect database")
		}
		defer db.Close()
		catalog = repository.NewCatalog(db)
	}

	var primary fetch.Strategy
	if opts.chrome {
		primary = fetch.NewBrowser(fetch.BrowserOptions{RenderTimeout: cfg.RenderTimeout})
	}
	env := ingest.Env{
		Fetcher: fetch.NewController(primary, fetch.NewHTTP(cfg.HTTPTimeout, ""), fetch.Options{
			MaxAttempts: cfg.FetchMaxAttempts,
			RetryDelay:  cfg.FetchRetryDelay,
			Logger:      logger,
		}),
		Site:     transfermarkt.NewSite(cfg.SourceBaseURL),
		Catalog:  catalog,
		Logger:   logger,
		Pauses:   ingest.DefaultPauses(),
		Location: cfg.Location,
	}

	job := ingest.NewLeagueSync(env, nil, nil)
	squads := ingest.NewSquadSync(env)
	clubs := ingest.NewClubSync(env, nil)
	for _, league := range leagues {
		var res ingest.LeagueResult
		if opts.matchday > 0 {
			res = job.SyncMatchday(ctx, league, opts.matchday)
		} else {
			res = job.SyncLeague(ctx, league)
		}
		printLeague(res, opts.verbose)

		if res.LeagueID != 0 {
			report, err := clubs.SeedAliases(ctx, league, res.LeagueID)
			printReport(report, opts.verbose)
			if err != nil {
				return err
			}
		}

		if opts.squads && res.LeagueID != 0 {
			for _, step := range []func(context.Context, int64) (*ingest.Report, error){squads.SyncSquads, squads.SyncInjuries} {
				report, err := step(ctx, res.LeagueID)
				printReport(report, opts.verbose)
				if err != nil {
					return err
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func printLeague(res ingest.LeagueResult, verbose bool) {
	fmt.Printf("\n%s (%s) matchday %d\n", res.League.Name, res.League.SourceID, res.Matchday)
	fmt.Printf("  fetched=%v rows=%d candidates=%d guessed_kickoffs=%d upserted=%d\n",
		res.Fetched, res.Parse.Rows, res.Candidates, res.Parse.Guessed, res.Upserted)
	for reason, n := range res.Parse.Skipped {
		fmt.Printf("  skipped rows (%s): %d\n", reason, n)
	}
	if res.Structural {
		fmt.Println("  WARNING: league yielded no fixtures after a healthy sync, page layout may have changed")
	}
	printReport(res.Report, verbose)
}

func printReport(report *ingest.Report, verbose bool) {
	if report == nil {
		return
	}
	fmt.Printf("  %s\n", report)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, o := range report.Outcomes {
		if o.Status == ingest.StatusSuccess && !verbose {
			continue
		}
		fmt.Fprintf(w, "    %s\t%s\t%s\n", o.Status, o.Entity, strings.TrimSpace(o.Reason))
	}
	w.Flush()
}
