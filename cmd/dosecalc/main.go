// Package main is the entry point for the dosecalc application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jwulff/dosecalc-go/internal/bloodsugar"
	"github.com/jwulff/dosecalc-go/internal/cgm"
	"github.com/jwulff/dosecalc-go/internal/config"
	"github.com/jwulff/dosecalc-go/internal/dexcom"
	"github.com/jwulff/dosecalc-go/internal/dosing"
	"github.com/jwulff/dosecalc-go/internal/server"
	"github.com/jwulff/dosecalc-go/internal/storage/sqlite"
	"github.com/jwulff/dosecalc-go/internal/watch"
)

const disclaimer = "Educational use only. Not medical advice. At 70 mg/dL or below, treat the hypo before any dose."

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		showUsage()
		return
	}

	switch os.Args[1] {
	case "calc":
		if len(os.Args) < 3 {
			fmt.Println("Error: glucose value required")
			fmt.Println("Usage: dosecalc calc <mg/dL> [trend]")
			os.Exit(1)
		}
		trend := ""
		if len(os.Args) > 3 {
			trend = os.Args[3]
		}
		if err := runCalc(os.Stdout, os.Args[2], trend); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	case "reference":
		printReference(os.Stdout)
	case "cgm":
		if err := runCGM(os.Stdout, loadConfig()); err != nil {
			fmt.Printf("Error: %v\n", err)
			fmt.Println("Enter the reading manually: dosecalc calc <mg/dL> [trend]")
			os.Exit(1)
		}
	case "watch":
		if err := runWatch(loadConfig()); err != nil {
			log.Fatalf("[FATAL] %v", err)
		}
	case "serve":
		runServe(loadConfig())
	default:
		showUsage()
	}
}

func showUsage() {
	fmt.Println("Usage:")
	fmt.Println("  dosecalc calc <mg/dL> [trend]  - Recommend a dose for a reading")
	fmt.Println("  dosecalc reference             - Show the correction tables")
	fmt.Println("  dosecalc cgm                   - Recommend a dose from the latest Dexcom reading")
	fmt.Println("  dosecalc watch                 - Poll Dexcom on a schedule and log recommendations")
	fmt.Println("  dosecalc serve                 - Start the HTTP API")
	fmt.Println()
	fmt.Println("Trends: rising-fast (↑), rising (↗), stable (→), falling (↘), falling-fast (↓)")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  CONFIG_PATH         - YAML config file (default configs/config.yaml)")
	fmt.Println("  DEXCOM_USERNAME     - Dexcom Share username")
	fmt.Println("  DEXCOM_PASSWORD     - Dexcom Share password")
	fmt.Println("  DOSECALC_ADDR       - HTTP listen address (default :8080)")
	fmt.Println()
	fmt.Println(disclaimer)
}

func loadConfig() *config.Config {
	path := config.DefaultPath
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}
	return cfg
}

func runCalc(w io.Writer, glucoseArg, trendArg string) error {
	glucose, err := dosing.ParseGlucose(glucoseArg)
	if err != nil {
		return err
	}
	trend := dosing.DefaultTrend
	if trendArg != "" {
		trend, err = dosing.ParseTrend(trendArg)
		if err != nil {
			return err
		}
	}

	printResult(w, glucose, trend, dosing.Compute(glucose, trend))
	return nil
}

func printResult(w io.Writer, glucose float64, trend dosing.Trend, r dosing.Result) {
	fmt.Fprintf(w, "Glucose:            %g mg/dL (%.1f mmol/L)\n", glucose, bloodsugar.MgdlToMmol(int(glucose+0.5)))
	fmt.Fprintf(w, "Trend:              %s %s\n", trend.Symbol(), trend.Description())
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Base dose:          %d UI\n", dosing.BaseDose)
	fmt.Fprintf(w, "Range correction:   %+d UI  (%s)\n", r.BaseDelta, r.BaseRangeLabel)
	fmt.Fprintf(w, "Trend correction:   %+d UI  (%s)\n", r.TrendDelta, r.TrendRangeLabel)
	fmt.Fprintf(w, "Total vs base:      %+d UI\n", r.TotalDelta)
	fmt.Fprintf(w, "Recommended dose:   %d UI\n", r.RecommendedDose)
	fmt.Fprintln(w)
	fmt.Fprintln(w, disclaimer)
}

func printReference(w io.Writer) {
	ref := dosing.Reference()

	fmt.Fprintf(w, "Glucose ranges (base dose %d UI, no trend)\n", ref.BaseDose)
	for _, row := range ref.BaseRows {
		line := fmt.Sprintf("  %-9s mg/dL  %s", row.Range, row.Delta)
		if row.Note != "" {
			line += "  (" + row.Note + ")"
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trend adjustments (not applied at 70 mg/dL or below)")
	fmt.Fprintf(w, "  %-16s %8s %8s %8s\n", "", ref.TrendBands[0], ref.TrendBands[1], ref.TrendBands[2])
	for _, row := range ref.TrendRows {
		label := row.Symbol + " " + row.Trend.Description()
		fmt.Fprintf(w, "  %-16s %8d %8d %8d\n", label, row.InRange, row.High, row.VeryHigh)
	}
}

// openStore opens the reading cache; tests replace it.
var openStore = sqlite.NewFileStore

// openSource wires the Dexcom client to the SQLite store.
func openSource(cfg *config.Config) (*cgm.Source, *sqlite.Store, error) {
	if !cfg.HasDexcom() {
		return nil, nil, errors.New("dexcom credentials required (DEXCOM_USERNAME / DEXCOM_PASSWORD)")
	}

	if dir := filepath.Dir(cfg.Database.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	store, err := openStore(cfg.Database.SQLitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	client := dexcom.NewClient(cfg.Dexcom.Username, cfg.Dexcom.Password)
	if cfg.Dexcom.BaseURL != "" {
		client.BaseURL = cfg.Dexcom.BaseURL
	}
	return cgm.NewSource(client, store), store, nil
}

func runCGM(w io.Writer, cfg *config.Config) error {
	source, store, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	rec, err := watch.Check(ctx, source)
	if err != nil {
		return err
	}

	r := rec.Current.Reading
	fmt.Fprintf(w, "Reading from %s (%s, %s ago)\n", r.Timestamp.Format("15:04"), r.RawTrend,
		r.Age(time.Now()).Round(time.Minute))
	if rec.Current.Cached {
		fmt.Fprintln(w, "Warning: Dexcom unreachable, using cached reading")
	}
	fmt.Fprintln(w)
	printResult(w, float64(r.Glucose), r.Trend, rec.Result)
	return nil
}

func runWatch(cfg *config.Config) error {
	source, store, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	w := watch.NewWatcher(ctx, source, watch.LogReport)
	if err := w.Register(cfg.Watch.Cron); err != nil {
		return err
	}

	log.Printf("[INFO] polling Dexcom on %q. Press Ctrl+C to stop.", cfg.Watch.Cron)
	w.RunNow()
	w.Start()

	<-ctx.Done()
	log.Println("[INFO] shutdown signal received, stopping...")
	w.Stop()
	return nil
}

func runServe(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := server.New(cfg.Server.Addr).ListenAndServe(ctx); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	log.Println("[INFO] dosecalc stopped")
}
