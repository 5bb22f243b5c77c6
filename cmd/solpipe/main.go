package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"solpipe/internal"
	"solpipe/internal/config"
	"solpipe/internal/connectors"
	gmailconnector "solpipe/internal/connectors/gmail"
	imapconnector "solpipe/internal/connectors/imap"
	"solpipe/internal/listener"
	"solpipe/internal/logging"
	"solpipe/internal/pipeline"
	"solpipe/internal/report"
	"solpipe/internal/storage"
	"solpipe/internal/util"
	"solpipe/internal/web"
)

func main() {
	cfg, err := config.Load()
	must(err)
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "merge":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		masterPath := fs.String("master", "", "current masterfile (xlsx or csv)")
		incomingPath := fs.String("incoming", "", "fresh CRM export (xlsx or csv)")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *masterPath == "" || *incomingPath == "" || *out == "" {
			must(fmt.Errorf("--master, --incoming and --out are required"))
		}
		hints := pipeline.HintsFromConfig(cfg)
		master, err := loadCanonical(*masterPath, hints)
		must(err)
		incoming, err := loadCanonical(*incomingPath, hints)
		must(err)
		merged, stats := pipeline.Merge(master, incoming)
		must(pipeline.ExportXLSXFile(merged, *out))
		fmt.Printf("merge done updated=%d added=%d removed=%d total=%d output=%s\n",
			stats.Updated, stats.Added, stats.Removed, stats.Total, *out)
	case "import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "CRM export file (xlsx or csv)")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}
		svc := pipeline.NewProcessingService(db, cfg)
		stats, err := svc.MergeFile(*input)
		must(err)
		fmt.Printf("merge done updated=%d added=%d removed=%d total=%d\n",
			stats.Updated, stats.Added, stats.Removed, stats.Total)
	case "export:xlsx", "export:csv":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}
		records, err := db.LoadMasterfile()
		must(err)
		if cmd == "export:xlsx" {
			must(pipeline.ExportXLSXFile(records, *out))
		} else {
			f, err := os.Create(*out)
			must(err)
			defer f.Close()
			must(pipeline.ExportCSV(records, f))
		}
		fmt.Printf("exported %d rows to %s\n", len(records), *out)
	case "edit":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		name := fs.String("name", "", "opportunity name")
		field := fs.String("field", "", "team column, e.g. 'Solutions Notes'")
		value := fs.String("value", "", "new cell value")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*name) == "" || strings.TrimSpace(*field) == "" {
			must(fmt.Errorf("--name and --field are required"))
		}
		must(db.UpdateTeamField(*name, *field, *value))
		fmt.Printf("updated %q of %q\n", *field, *name)
	case "report":
		records, err := db.LoadMasterfile()
		must(err)
		s := report.Build(records, nowDay(), 10)
		fmt.Printf("opportunities=%d pipeline=%s past_due=%d avg_stage_days=%.1f\n",
			s.Count, s.TotalValueDisplay, s.PastDue, s.AvgStageDuration)
		for _, g := range s.ByStage {
			fmt.Printf("  stage %-24s count=%-3d value=%s\n", g.Key, g.Count, util.FormatMoney(g.Value))
		}
		for _, b := range s.Aging {
			fmt.Printf("  aging %-8s count=%-3d value=%s\n", b.Label, b.Count, util.FormatMoney(b.Value))
		}
	case "runs":
		runs, err := db.ListMergeRuns(20)
		must(err)
		for _, run := range runs {
			fmt.Printf("%s %s updated=%d added=%d removed=%d total=%d %s\n",
				run.CreatedAt, run.TraceID, run.Stats.Updated, run.Stats.Added,
				run.Stats.Removed, run.Stats.Total, run.Source)
		}
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap")
		label := fs.String("label", cfg.MailListenerLabel, "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := makeConnector(cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn)
		result, err := fetch.FetchAndStore(*label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d\n", *provider, result.Fetched, result.Stored)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])
		processor := pipeline.NewProcessingService(db, cfg)
		if strings.TrimSpace(*messageID) != "" {
			res, err := processor.ProcessByProviderMessageID(*provider, *messageID)
			must(err)
			fmt.Printf("processed email id=%d status=%s total=%d\n", res.EmailID, res.Status, res.Stats.Total)
			return
		}
		processed, err := processor.ProcessPending(*batch, *provider)
		must(err)
		fmt.Printf("processed pending emails=%d\n", processed)
	case "mail:listen":
		s := listener.NewService(db, cfg)
		must(s.Run(context.Background()))
	case "serve":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		addr := fs.String("addr", cfg.HTTPAddr, "listen address")
		_ = fs.Parse(os.Args[2:])
		cfg.HTTPAddr = *addr
		srv := web.NewServer(db, cfg)
		fmt.Printf("dashboard listening on %s\n", cfg.HTTPAddr)
		must(srv.ListenAndServe())
	default:
		usage()
		os.Exit(1)
	}
}

// loadCanonical reads one export file and canonicalizes it without touching
// the stored masterfile. Used by the one-shot merge command.
func loadCanonical(path string, hints pipeline.DateHints) ([]internal.Opportunity, error) {
	table, _, err := pipeline.ExtractTableFromFile(path)
	if err != nil {
		return nil, err
	}
	return pipeline.Canonicalize(table, hints)
}

func nowDay() time.Time {
	y, m, d := time.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func makeConnector(cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func usage() {
	fmt.Println("usage: solpipe <command>")
	fmt.Println("commands:")
	fmt.Println("  merge --master=./masterfile.xlsx --incoming=./export.xlsx --out=./out/masterfile.xlsx")
	fmt.Println("  import --input=./export.xlsx|csv")
	fmt.Println("  export:xlsx --out=./out/masterfile.xlsx")
	fmt.Println("  export:csv --out=./out/masterfile.csv")
	fmt.Println("  edit --name='Acme Refresh' --field='Solutions Notes' --value='...'")
	fmt.Println("  report")
	fmt.Println("  runs")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:process --provider=gmail|imap [--messageId=...] [--batch=20]")
	fmt.Println("  mail:listen")
	fmt.Println("  serve --addr=:8080")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
