// Command redeem checks or redeems a file of signed ticket redemptions.
//
// Usage:
//
//	redeem -config config.json -tickets tickets.json -requests requests.json [-db ./replaydb] [-check]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/mahdiidarabi/ticketsig/internal/ledger"
	"github.com/mahdiidarabi/ticketsig/internal/store"
	"github.com/mahdiidarabi/ticketsig/pkg/redeem"
	"github.com/mahdiidarabi/ticketsig/pkg/ticketsig"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile   = flag.String("config", "", "Path to the JSON configuration file")
		ticketsFile  = flag.String("tickets", "", "Path to a JSON file of {ticket_id, owner} entries to load into the ledger")
		requestsFile = flag.String("requests", "", "Path to the redemption requests file (JSON or CSV)")
		format       = flag.String("format", "auto", "Requests file format (json, csv or auto)")
		dbDir        = flag.String("db", "", "LevelDB directory for the replay record (empty = in memory)")
		checkOnly    = flag.Bool("check", false, "Run every check without committing")
		numWorkers   = flag.Int("workers", 0, "Number of parallel workers (0 = auto-detect based on CPU cores)")
		debugLevel   = flag.String("debuglevel", "info", "Logging level {trace, debug, info, warn, error, critical} or SUBSYS=level,...")
	)
	flag.Parse()

	if *configFile == "" || *requestsFile == "" {
		flag.Usage()
		return fmt.Errorf("--config and --requests are required")
	}
	if err := parseAndSetDebugLevels(*debugLevel); err != nil {
		return err
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return err
	}
	builder, err := cfg.builder()
	if err != nil {
		return err
	}
	opts, err := cfg.guardOptions()
	if err != nil {
		return err
	}

	tickets := ledger.NewMemory()
	if *ticketsFile != "" {
		n, err := loadTickets(*ticketsFile, tickets)
		if err != nil {
			return err
		}
		log.Infof("Loaded %d tickets", n)
	}

	var replay redeem.Store
	if *dbDir != "" {
		ls, err := store.OpenLevelStore(*dbDir, store.LevelOptions{FilterCapacity: cfg.FilterCapacity})
		if err != nil {
			return err
		}
		defer ls.Close()
		replay = ls
	} else {
		log.Warnf("No --db given; the replay record is not persisted")
		replay = store.NewMemStore()
	}

	guard, err := redeem.New(builder, tickets, replay, opts...)
	if err != nil {
		return err
	}
	log.Infof("Domain %q v%s chain %s contract %s, separator %s, nonces %v",
		builder.Domain().Name, builder.Domain().Version, builder.Domain().ChainID,
		builder.Domain().VerifyingContract, builder.DomainSeparator(), guard.NoncesEnabled())

	client := ticketsig.NewClient(guard).WithWorkers(*numWorkers)
	switch strings.ToLower(*format) {
	case "auto":
		client.WithParser(ticketsig.ParserForFile(*requestsFile, builder.Hasher()))
	case "json":
		client.WithParser(&ticketsig.JSONParser{Hasher: builder.Hasher()})
	case "csv":
		client.WithParser(&ticketsig.CSVParser{Hasher: builder.Hasher()})
	default:
		return fmt.Errorf("unknown format %q", *format)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var result *ticketsig.BatchResult
	if *checkOnly {
		result, err = client.CheckFile(ctx, *requestsFile)
	} else {
		result, err = client.RedeemFile(ctx, *requestsFile)
	}
	if err != nil {
		return err
	}

	printOutcomes(os.Stdout, result)
	return nil
}

func printOutcomes(w *os.File, result *ticketsig.BatchResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTICKET\tOWNER\tSTATUS\tDETAIL")
	for _, o := range result.Outcomes {
		if o.Err != nil {
			fmt.Fprintf(tw, "%d\t%s\t%s\trejected\t%s\n", o.Index, o.Request.TicketID, o.Request.Owner, o.Reason())
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", o.Index, o.Receipt.TicketID, o.Receipt.Owner, o.Receipt.State, o.Receipt.Digest)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d accepted, %d rejected\n", result.Accepted, result.Rejected)
}
