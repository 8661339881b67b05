package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nbme-dashboard-go/dashboard"
	"nbme-dashboard-go/report"
)

var (
	reportOut  string
	reportXLSX bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate the at-risk dataset for one school",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.service.GenerateReport(cmd.Context(), dashboard.ReportForm{APIKey: apiKey(), School: schoolFlag})
	if err != nil {
		return errors.New(dashboard.ErrorMessage(err))
	}
	printNotices(cmd.ErrOrStderr(), rep.Notices)

	if err := os.MkdirAll(reportOut, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	written := []string{filepath.Join(reportOut, report.CSVFileName)}
	if err := writeFile(written[0], rep.WriteCSV); err != nil {
		return err
	}
	if reportXLSX {
		path := filepath.Join(reportOut, report.XLSXFileName)
		if err := writeFile(path, rep.WriteXLSX); err != nil {
			return err
		}
		written = append(written, path)
	}

	logger.Info("dataset written",
		zap.String("school_id", rep.School),
		zap.Int("students", len(rep.Rows)),
		zap.Int("at_risk", rep.AtRiskCount()),
		zap.Strings("files", written))
	fmt.Fprintf(cmd.OutOrStdout(), "%d students, %d at risk\n", len(rep.Rows), rep.AtRiskCount())
	for _, path := range written {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}
