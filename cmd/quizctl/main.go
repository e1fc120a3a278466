// quizctl is the maintenance CLI: content import, progress reset,
// answer simulation, and weight recalculation.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/importer"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/selection"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/service"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/simulation"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/store"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/weighting"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: quizctl <command> [flags]

Commands:
  import    -file <path> [-db <path>] [-sheet <name>]             load items from CSV or XLSX
  reset     [-db <path>] [-policy <name>]                         clear all learning progress
  simulate  [-db <path>] [-policy <name>] [-items N] [-attempts N] record synthetic correct answers
  recalc    [-db <path>] [-policy <name>]                         recompute all item weights

The policy defaults to the WEIGHT_POLICY environment variable, then "linear".
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	// Same .env convention as the server.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := context.Background()

	var err error
	switch os.Args[1] {
	case "import":
		err = runImport(ctx, os.Args[2:], logger)
	case "reset":
		err = runReset(ctx, os.Args[2:], logger)
	case "simulate":
		err = runSimulate(ctx, os.Args[2:], logger)
	case "recalc":
		err = runRecalc(ctx, os.Args[2:], logger)
	default:
		usage()
	}
	if err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

// defaultPolicyName mirrors the server's configuration precedence.
func defaultPolicyName() string {
	if v := os.Getenv("WEIGHT_POLICY"); v != "" {
		return v
	}
	return weighting.PolicyLinear
}

func openService(dbPath, policyName string, logger *slog.Logger) (*service.QuizService, *store.SQLiteStore, error) {
	policy, err := weighting.FromName(policyName)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.NewSQLite(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	svc := service.New(st, policy, selection.New(nil), logger)
	return svc, st, nil
}

func runImport(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	dbPath := fs.String("db", "quiz.db", "database path")
	file := fs.String("file", "", "CSV or XLSX file to import")
	sheet := fs.String("sheet", "Sheet1", "XLSX sheet name")
	fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("-file is required")
	}

	st, err := store.NewSQLite(*dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	cfg := importer.DefaultConfig()
	cfg.SheetName = *sheet
	result, err := importer.ImportFile(ctx, st, *file, cfg)
	if err != nil {
		return err
	}

	logger.Info("import complete", "imported", result.Imported, "skipped", result.Skipped)
	for _, msg := range result.Errors {
		logger.Warn("import row skipped", "reason", msg)
	}
	return nil
}

func runReset(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	dbPath := fs.String("db", "quiz.db", "database path")
	policy := fs.String("policy", defaultPolicyName(), "weight policy (linear or exponential)")
	fs.Parse(args)

	svc, st, err := openService(*dbPath, *policy, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	return svc.ResetProgress(ctx)
}

func runSimulate(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	dbPath := fs.String("db", "quiz.db", "database path")
	policy := fs.String("policy", defaultPolicyName(), "weight policy (linear or exponential)")
	items := fs.Int("items", 213, "number of items to answer")
	attempts := fs.Int("attempts", 4, "correct attempts per item")
	fs.Parse(args)

	svc, st, err := openService(*dbPath, *policy, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	result, err := simulation.CorrectAnswers(ctx, svc, st, *items, *attempts, logger)
	if err != nil {
		return err
	}
	logger.Info("simulation complete", "items", result.Items, "attempts", result.Attempts)
	return nil
}

func runRecalc(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("recalc", flag.ExitOnError)
	dbPath := fs.String("db", "quiz.db", "database path")
	policy := fs.String("policy", defaultPolicyName(), "weight policy (linear or exponential)")
	fs.Parse(args)

	svc, st, err := openService(*dbPath, *policy, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	updated, err := svc.RecalculateWeights(ctx)
	if err != nil {
		return err
	}
	logger.Info("recalculation complete", "items", updated)
	return nil
}
