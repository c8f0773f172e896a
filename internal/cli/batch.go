package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/danieceiflora/perdcomp01-sub000/internal/app"
	"github.com/danieceiflora/perdcomp01-sub000/internal/export"
	"github.com/danieceiflora/perdcomp01-sub000/internal/parser"
)

var (
	batchDir     string
	batchOut     string
	batchMode    string
	batchInMem   bool
	batchWorkers int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Ingest and process every document under a directory",
	Long: `Ingest and process every PDF and image under --dir, then write one
spreadsheet row per file with the extracted fields and review status.

Documents are stored in the configured database (DB_URL), or in a
throwaway in-memory database with --inmem.`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchDir, "dir", "", "directory to process (required)")
	batchCmd.Flags().StringVar(&batchOut, "out", "", "output XLSX path (default <dir>/../perdcomp.xlsx)")
	batchCmd.Flags().StringVar(&batchMode, "mode", "auto", "ressarcimento, declaracao_compensacao, pedido_credito or auto")
	batchCmd.Flags().BoolVar(&batchInMem, "inmem", false, "use an in-memory SQLite database")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 2, "documents processed concurrently")
	_ = batchCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, _ []string) error {
	if strings.TrimSpace(batchDir) == "" {
		return errors.New("--dir is required")
	}
	mode, err := parser.ParseMode(batchMode)
	if err != nil {
		return err
	}
	out := batchOut
	if out == "" {
		out = filepath.Join(filepath.Dir(filepath.Clean(batchDir)), "perdcomp.xlsx")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(cmd)
	cfg := loadConfig()

	db, err := app.OpenDatabase(ctx, cfg.Database, batchInMem, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a := app.New(db, cfg, logger, extractorOptions...)
	defer a.Close()

	root, err := filepath.Abs(batchDir)
	if err != nil {
		return err
	}
	results, stats, err := a.Ingestor.IngestDirectory(ctx, nil, root, true)
	if err != nil {
		return err
	}

	rows := make([]export.BatchRow, len(results))
	first := make(map[uuid.UUID]int)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(batchWorkers, 1))
	for i, r := range results {
		rows[i].File = relPath(root, r.SourcePath)
		if r.Err != "" {
			rows[i].Err = r.Err
			continue
		}
		if _, seen := first[r.DocumentID]; seen {
			continue
		}
		first[r.DocumentID] = i
		g.Go(func() error {
			res, err := a.Processor.ProcessDocument(gctx, r.DocumentID, mode)
			rows[i].Mode = res.Mode
			rows[i].Claim = res.Claim
			rows[i].NeedsReview = res.NeedsReview
			rows[i].Reasons = res.Reasons
			if err != nil {
				rows[i].Err = err.Error()
			}
			// only cancellation stops the batch
			if errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var review, failed int
	for i, r := range results {
		if j, ok := first[r.DocumentID]; ok && j != i && r.Err == "" {
			file := rows[i].File
			rows[i] = rows[j]
			rows[i].File = file
		}
		switch {
		case rows[i].Err != "":
			failed++
		case rows[i].NeedsReview:
			review++
		}
	}

	b, err := a.Export.BatchSummaryXLSX(rows)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "files: %d  deduplicated: %d  failed: %d  needs review: %d\n",
		stats.Matched, stats.Deduplicated, failed, review)
	_, _ = fmt.Fprintf(w, "wrote %s\n", out)
	return nil
}

func relPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return path
}
