package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"nbme-dashboard-go/models"
)

// Download file names.
const (
	CSVFileName  = "at_risk_students.csv"
	XLSXFileName = "at_risk_students.xlsx"
)

const (
	reportSheet       = "At-Risk"
	distributionSheet = "Distribution"
	histogramBins     = 20
)

// orderedKeys gives roster fields a stable column order: student_id
// first, the rest sorted.
func orderedKeys(rec models.Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		if k != FieldStudentID {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if rec.Has(FieldStudentID) {
		keys = append([]string{FieldStudentID}, keys...)
	}
	return keys
}

// Value returns the typed value of a column for the row: nil for nulls,
// float64 for score, bool for At-Risk, otherwise the roster value.
func (row Row) Value(column string) any {
	switch column {
	case FieldScore:
		if row.Score == nil {
			return nil
		}
		return *row.Score
	case ColumnAtRisk:
		if row.AtRisk == nil {
			return nil
		}
		return *row.AtRisk
	}
	return row.Fields[column]
}

// Cell renders a column of the row as text. Nulls are empty.
func (row Row) Cell(column string) string {
	return models.FormatValue(row.Value(column))
}

// WriteCSV writes the report as UTF-8 CSV: a header row of column names,
// then one row per student.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(r.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(r.Columns))
	for _, row := range r.Rows {
		for i, col := range r.Columns {
			record[i] = row.Cell(col)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row for student %s: %w", row.StudentID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the report as a workbook: the dataset on one sheet, the
// score distribution with a column chart on another.
func (r *Report) WriteXLSX(w io.Writer) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), reportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := r.writeDataset(f); err != nil {
		return err
	}
	if err := r.writeDistribution(f); err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (r *Report) writeDataset(f *excelize.File) error {
	header := make([]interface{}, len(r.Columns))
	for i, col := range r.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(reportSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}
	for i, row := range r.Rows {
		values := make([]interface{}, len(r.Columns))
		for j, col := range r.Columns {
			values[j] = xlsxValue(row.Value(col))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(reportSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return nil
}

func xlsxValue(v any) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case float64, bool:
		return t
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
	}
	return models.FormatValue(v)
}

func (r *Report) writeDistribution(f *excelize.File) error {
	if _, err := f.NewSheet(distributionSheet); err != nil {
		return fmt.Errorf("add distribution sheet: %w", err)
	}
	hist := r.Histogram(histogramBins)
	header := []interface{}{r.TestID + " Score", "Frequency"}
	if err := f.SetSheetRow(distributionSheet, "A1", &header); err != nil {
		return err
	}
	for i, bin := range hist.Bins {
		row := []interface{}{bin.Label(), bin.Count}
		if err := f.SetSheetRow(distributionSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}
	if r.NationalMean != nil {
		row := []interface{}{"National Mean", *r.NationalMean}
		if err := f.SetSheetRow(distributionSheet, "D1", &row); err != nil {
			return err
		}
	}
	if len(hist.Bins) == 0 {
		return nil
	}

	last := len(hist.Bins) + 1
	chart := &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("'%s'!$B$1", distributionSheet),
			Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", distributionSheet, last),
			Values:     fmt.Sprintf("'%s'!$B$2:$B$%d", distributionSheet, last),
		}},
	}
	if err := f.AddChart(distributionSheet, "D3", chart); err != nil {
		return fmt.Errorf("add distribution chart: %w", err)
	}
	return nil
}
