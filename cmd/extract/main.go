// Command extract runs the extraction pipeline over local files and prints
// one JSON outcome per file. Status and records go to a local SQLite file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joseph-ayodele/store-extractor/constants"
	"github.com/joseph-ayodele/store-extractor/internal/bootstrap"
	"github.com/joseph-ayodele/store-extractor/internal/common"
	"github.com/joseph-ayodele/store-extractor/internal/export"
	"github.com/joseph-ayodele/store-extractor/internal/intake"
	"github.com/joseph-ayodele/store-extractor/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		file     = flag.String("file", "", "single file to extract")
		dir      = flag.String("dir", "", "directory to extract (recursive)")
		watch    = flag.String("watch", "", "directory to watch for new files")
		typ      = flag.String("type", "", "declared file type: "+typeList())
		store    = flag.String("store", "STORE001", "store id")
		dbPath   = flag.String("sqlite", "", "sqlite database path (defaults to SQLITE_PATH)")
		parallel = flag.Int("parallel", 4, "files processed concurrently in -dir mode")
		xlsxOut  = flag.String("xlsx", "", "also write extracted records to this XLSX file (-file/-dir)")
	)
	flag.Parse()

	modes := 0
	for _, v := range []string{*file, *dir, *watch} {
		if v != "" {
			modes++
		}
	}
	if modes != 1 {
		printError("Error: exactly one of --file, --dir or --watch is required\n")
		os.Exit(1)
	}
	if *typ == "" {
		printError("Error: --type is required\n")
		os.Exit(1)
	}
	fileType := constants.ParseFileType(*typ)

	cfg := common.LoadConfig()
	// logs go to stderr so stdout carries only outcomes
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)
	if *dbPath == "" {
		*dbPath = cfg.Store.SQLitePath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.OpenSQLite(ctx, *dbPath, cfg.Store.UploadsTable, cfg.Store.ExtractedTable, logger)
	if err != nil {
		logger.Error("failed to open sqlite", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	providers, closeProviders := bootstrap.Providers(cfg.LLM, logger)
	defer closeProviders()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	switch {
	case *file != "":
		abs, err := filepath.Abs(*file)
		if err != nil {
			printError("Error: %v\n", err)
			os.Exit(1)
		}
		r := newRunner(filepath.Dir(abs), *store, fileType, db, providers, logger)
		out, err := r.one(ctx, abs)
		_ = enc.Encode(result{Path: abs, Outcome: out})
		if err != nil {
			os.Exit(1)
		}
		if *xlsxOut != "" {
			if err := writeWorkbook(ctx, db, *store, []result{{Path: abs, Outcome: out}}, *xlsxOut, logger); err != nil {
				logger.Error("xlsx export failed", "error", err)
				os.Exit(1)
			}
		}

	case *dir != "":
		root, err := filepath.Abs(*dir)
		if err != nil {
			printError("Error: %v\n", err)
			os.Exit(1)
		}
		paths, stats, err := intake.Scan(root, true)
		if err != nil {
			printError("Error: %v\n", err)
			os.Exit(1)
		}
		logger.Info("extract.scan", "root", root, "scanned", stats.Scanned, "matched", stats.Matched)

		r := newRunner(root, *store, fileType, db, providers, logger)
		results, err := r.many(ctx, paths, *parallel)
		_ = enc.Encode(results)
		if err != nil {
			logger.Error("batch interrupted", "error", err)
			os.Exit(1)
		}
		if *xlsxOut != "" {
			if err := writeWorkbook(ctx, db, *store, results, *xlsxOut, logger); err != nil {
				logger.Error("xlsx export failed", "error", err)
				os.Exit(1)
			}
		}
		for _, res := range results {
			if res.Outcome.Status != constants.UploadStatusExtracted {
				os.Exit(1)
			}
		}

	case *watch != "":
		root, err := filepath.Abs(*watch)
		if err != nil {
			printError("Error: %v\n", err)
			os.Exit(1)
		}
		events, errs, err := intake.Watch(ctx, intake.WatchConfig{Roots: []string{root}, Debounce: defaultDebounce}, logger)
		if err != nil {
			printError("Error: %v\n", err)
			os.Exit(1)
		}
		r := newRunner(root, *store, fileType, db, providers, logger)
		watchLoop(ctx, r, events, errs, enc, logger)
	}
}

// writeWorkbook exports the records of every extracted result to path.
func writeWorkbook(ctx context.Context, db *repository.SQLite, storeID string, results []result, path string, logger *slog.Logger) error {
	var ids []string
	for _, res := range results {
		if res.Outcome.Status == constants.UploadStatusExtracted {
			ids = append(ids, res.Outcome.RecordID)
		}
	}
	b, err := export.NewService(db, logger).ExportRecordsXLSX(ctx, storeID, ids)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	logger.Info("extract.xlsx.written", "path", path, "records", len(ids))
	return nil
}

func typeList() string {
	names := make([]string, len(constants.FileTypes))
	for i, ft := range constants.FileTypes {
		names[i] = string(ft)
	}
	return strings.Join(names, ", ")
}
