package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"nbme-dashboard-go/dashboard"
	"nbme-dashboard-go/models"
)

var (
	apiKeyFlag string
	schoolFlag string

	queryEndpoint   string
	queryStudentIDs string
	queryTestIDs    []string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run one API query and print the response as JSON",
	Long: `Builds the request for one endpoint the same way the Basic Functionality
page does and prints the result as JSON.

Example:
  nbme-dashboard query --endpoint students/scores --api-key $KEY \
    --school MedSchoolA --student-ids 1,2 --test-ids SE-1`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func apiKey() string {
	if apiKeyFlag != "" {
		return apiKeyFlag
	}
	return os.Getenv("NBME_API_KEY")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.service.RunQuery(cmd.Context(), dashboard.QueryForm{
		Endpoint:   queryEndpoint,
		APIKey:     apiKey(),
		School:     schoolFlag,
		StudentIDs: queryStudentIDs,
		TestIDs:    queryTestIDs,
	})
	if res != nil {
		printNotices(cmd.ErrOrStderr(), res.Notices)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(res); encErr != nil {
			return encErr
		}
	}
	if err != nil {
		return errors.New(dashboard.ErrorMessage(err))
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func printNotices(w io.Writer, notices []models.Notice) {
	for _, n := range notices {
		fmt.Fprintf(w, "[%s] %s\n", n.Level, n.Message)
	}
}
