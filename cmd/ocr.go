package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nurilab/nuri-collector/internal/ocr"
)

var (
	ocrInputDir   string
	ocrOutputFile string
)

var ocrCmd = &cobra.Command{
	Use:   "ocr",
	Short: "Parse weighbridge ticket OCR samples to CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOCRTask()
	},
}

func runOCRTask() error {
	inputDir := ocrInputDir
	if inputDir == "" {
		inputDir = cfg.OCR.SampleDir
	}
	outputFile := ocrOutputFile
	if outputFile == "" {
		outputFile = filepath.Join(cfg.OCR.OutputDir, "ocr_results.csv")
	}

	results, err := ocr.ParseDir(inputDir)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintf(os.Stderr, "No JSON samples found in %s.\n", inputDir)
		return nil
	}

	succeeded := 0
	for _, r := range results {
		if r.Success() {
			succeeded++
		}
	}

	if err := ocr.WriteCSV(results, outputFile); err != nil {
		return err
	}

	zap.L().Info("ocr task complete",
		zap.Int("files", len(results)),
		zap.Int("parsed", succeeded),
		zap.Int("failed", len(results)-succeeded),
		zap.String("output", outputFile),
	)
	fmt.Printf("Parsed %d/%d tickets -> %s\n", succeeded, len(results), outputFile)
	return nil
}

func init() {
	ocrCmd.Flags().StringVar(&ocrInputDir, "input", "", "directory of ticket JSON samples (default from config)")
	ocrCmd.Flags().StringVar(&ocrOutputFile, "output", "", "output CSV path (default <ocr.output_dir>/ocr_results.csv)")
	rootCmd.AddCommand(ocrCmd)
}
