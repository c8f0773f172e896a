package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danieceiflora/perdcomp01-sub000/internal/app"
	"github.com/danieceiflora/perdcomp01-sub000/internal/ocr"
	"github.com/danieceiflora/perdcomp01-sub000/internal/parser"
	"github.com/danieceiflora/perdcomp01-sub000/internal/pipeline"
)

var (
	parseMode          string
	parseForceOCR      bool
	parseMinConfidence float64
)

var parseCmd = &cobra.Command{
	Use:   "parse <file|->",
	Short: "Extract the claim fields of a document as a JSON record",
	Long: `Extract the claim fields of a document as a JSON record.

Plain text (.txt, or "-" for stdin) is parsed as given. PDFs and images
are recovered first, exactly as "perdcomp extract" would.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVar(&parseMode, "mode", "auto", "ressarcimento, declaracao_compensacao, pedido_credito or auto")
	parseCmd.Flags().BoolVar(&parseForceOCR, "force-ocr", false, "ignore the PDF text layer and OCR every page")
	parseCmd.Flags().Float64Var(&parseMinConfidence, "min-confidence", ocr.ReviewConfidenceThreshold, "flag recovered text below this confidence for review")
	rootCmd.AddCommand(parseCmd)
}

type parseOutput struct {
	Mode        parser.Mode    `json:"mode"`
	Record      map[string]any `json:"record"`
	NeedsReview bool           `json:"needs_review"`
	Reasons     []string       `json:"reasons,omitempty"`
}

func runParse(cmd *cobra.Command, args []string) error {
	mode, err := parser.ParseMode(parseMode)
	if err != nil {
		return err
	}

	text, confidence, err := readParseInput(cmd, args[0])
	if err != nil {
		return err
	}
	if mode == "" {
		mode = parser.DetectMode(text)
	}
	claim := parser.Parse(mode, text)
	record := claim.Record()
	if err := parser.ValidateRecord(record); err != nil {
		return err
	}
	reasons := pipeline.ReviewReasons(claim, confidence, parseMinConfidence)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(parseOutput{
		Mode:        mode,
		Record:      record,
		NeedsReview: len(reasons) > 0,
		Reasons:     reasons,
	})
}

// readParseInput returns the text to parse and how far it can be trusted.
// Text given directly counts as exact.
func readParseInput(cmd *cobra.Command, arg string) (string, float64, error) {
	if arg == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), 1, err
	}
	if strings.EqualFold(filepath.Ext(arg), ".txt") {
		b, err := os.ReadFile(arg)
		return string(b), 1, err
	}
	e := app.NewExtractor(loadConfig().OCR, newLogger(cmd), extractorOptions...)
	rec, err := recoverText(cmd.Context(), e, arg, parseForceOCR)
	if err != nil {
		return "", 0, err
	}
	if rec.Empty() {
		return "", 0, fmt.Errorf("no text recovered from %s", arg)
	}
	return rec.Text, float64(rec.Confidence), nil
}
