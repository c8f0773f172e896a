package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/danieceiflora/perdcomp01-sub000/constants"
	"github.com/danieceiflora/perdcomp01-sub000/internal/app"
	"github.com/danieceiflora/perdcomp01-sub000/internal/ocr"
)

var (
	extractForceOCR bool
	extractJSON     bool
)

// extractorOptions are passed to every extractor the CLI builds.
var extractorOptions []ocr.Option

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Recover the plain text of a PDF or image",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().BoolVar(&extractForceOCR, "force-ocr", false, "ignore the PDF text layer and OCR every page")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "print the text with its recovery metadata as JSON")
	rootCmd.AddCommand(extractCmd)
}

type extractOutput struct {
	Source     constants.TextSource `json:"source"`
	SourceType string               `json:"source_type"`
	Pages      int                  `json:"pages"`
	Confidence float32              `json:"confidence"`
	DurationMS int64                `json:"duration_ms"`
	Warnings   []string             `json:"warnings,omitempty"`
	Text       string               `json:"text"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)
	rec, err := recoverText(cmd.Context(), app.NewExtractor(loadConfig().OCR, logger, extractorOptions...), args[0], extractForceOCR)
	if err != nil {
		return err
	}
	if extractJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(extractOutput{
			Source:     rec.Source,
			SourceType: rec.SourceType,
			Pages:      rec.Pages,
			Confidence: rec.Confidence,
			DurationMS: rec.Duration.Milliseconds(),
			Warnings:   rec.Warnings,
			Text:       rec.Text,
		})
	}
	for _, w := range rec.Warnings {
		logger.Warn("recovery warning", "path", args[0], "warning", w)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), rec.Text)
	return err
}

func recoverText(ctx context.Context, e *ocr.Extractor, path string, forceOCR bool) (ocr.RecoveredText, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if forceOCR && constants.MapExtToFormat(constants.NormalizeExt(filepath.Ext(path))) == constants.PDF {
		return e.ExtractText(ctx, path, ocr.ExtractOptions{ForceOCR: true}), nil
	}
	return e.Extract(ctx, path)
}
