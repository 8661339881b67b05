// Package report builds the at-risk student dataset: the school roster
// left-joined with one exam's scores and compared to the national mean.
package report

import (
	"strings"

	"nbme-dashboard-go/models"
)

const (
	// TargetTest is the exam the risk report is built for.
	TargetTest = "SE-1"

	FieldStudentID   = "student_id"
	FieldScore       = "score"
	FieldTestID      = "test_id"
	FieldMean        = "mean"
	FieldRosterScore = "roster_score"
	ColumnAtRisk     = "At-Risk"
)

// Report is one generated at-risk dataset.
type Report struct {
	ID           string          `json:"id"`
	School       string          `json:"school_id"`
	TestID       string          `json:"test_id"`
	Columns      []string        `json:"columns"`
	Rows         []Row           `json:"rows"`
	NationalMean *float64        `json:"national_mean"`
	Notices      []models.Notice `json:"notices,omitempty"`
}

// Row is a roster record joined with its score.
type Row struct {
	Fields    models.Record `json:"fields"` // roster fields, pass-through
	StudentID string        `json:"student_id"`
	Score     *float64      `json:"score"`
	AtRisk    *bool         `json:"at_risk,omitempty"` // nil when the mean is unknown
}

// Flagged reports whether the at-risk column is present.
func (r *Report) Flagged() bool { return r.NationalMean != nil }

// AtRiskCount returns the number of flagged students.
func (r *Report) AtRiskCount() int {
	n := 0
	for _, row := range r.Rows {
		if row.AtRisk != nil && *row.AtRisk {
			n++
		}
	}
	return n
}

// StudentIDs returns the identifier of every roster row that has one, in
// roster order, plus the number of rows that lack one.
func StudentIDs(roster []models.Record) (ids []string, missing int) {
	for _, rec := range roster {
		id, ok := rec.Text(FieldStudentID)
		if !ok || id == "" {
			missing++
			continue
		}
		ids = append(ids, id)
	}
	return ids, missing
}

// BatchStudentIDs joins identifiers for a single batched scores request.
func BatchStudentIDs(ids []string) string {
	return strings.Join(ids, ",")
}

// NormalizeScores converts the scores response into (student, score)
// pairs. Entries that are not objects are skipped; missing or non-numeric
// scores become nil.
func NormalizeScores(items []any) []models.ScoreRecord {
	scores := make([]models.ScoreRecord, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rec := models.Record(obj)
		id, _ := rec.Text(FieldStudentID)
		scores = append(scores, models.ScoreRecord{StudentID: id, Score: rec.Float(FieldScore)})
	}
	return scores
}

// NationalMean returns the mean of the first statistic for testID, or nil.
func NationalMean(stats []models.Record, testID string) *float64 {
	for _, s := range stats {
		if id, ok := s.Text(FieldTestID); ok && id == testID {
			return s.Float(FieldMean)
		}
	}
	return nil
}

// Build left-joins the roster with the scores on student_id. Every roster
// row appears exactly once; the first score row per student wins. When
// mean is known each row gets AtRisk = score < mean, which is false for a
// missing score.
func Build(roster []models.Record, scores []models.ScoreRecord, mean *float64) *Report {
	byStudent := make(map[string]*float64, len(scores))
	for _, s := range scores {
		if _, seen := byStudent[s.StudentID]; !seen && s.StudentID != "" {
			byStudent[s.StudentID] = s.Score
		}
	}

	rep := &Report{TestID: TargetTest, NationalMean: mean}
	seen := make(map[string]bool)
	for _, rec := range roster {
		fields := make(models.Record, len(rec))
		for k, v := range rec {
			if k == FieldScore {
				k = FieldRosterScore
			}
			fields[k] = v
		}

		row := Row{Fields: fields}
		row.StudentID, _ = rec.Text(FieldStudentID)
		if row.StudentID != "" {
			row.Score = byStudent[row.StudentID]
		}
		if mean != nil {
			atRisk := row.Score != nil && *row.Score < *mean
			row.AtRisk = &atRisk
		}
		rep.Rows = append(rep.Rows, row)

		for _, k := range orderedKeys(rec) {
			if k == FieldScore {
				k = FieldRosterScore
			}
			if !seen[k] {
				seen[k] = true
				rep.Columns = append(rep.Columns, k)
			}
		}
	}
	if !seen[FieldStudentID] {
		rep.Columns = append([]string{FieldStudentID}, rep.Columns...)
	}
	rep.Columns = append(rep.Columns, FieldScore)
	if mean != nil {
		rep.Columns = append(rep.Columns, ColumnAtRisk)
	}
	return rep
}
