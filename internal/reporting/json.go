package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"that/pkg/diff"
	"that/pkg/failure"
	"that/pkg/logging"
	"that/pkg/registry"
	"that/pkg/runner"
)

// Report is the JSON document describing one run.
type Report struct {
	RunID     string          `json:"run_id"`
	StartedAt time.Time       `json:"started_at"`
	Summary   runner.Summary  `json:"summary"`
	Outcomes  []OutcomeRecord `json:"outcomes"`
}

// OutcomeRecord is an outcome with its assertion failure flattened for JSON.
type OutcomeRecord struct {
	runner.Outcome
	DurationMS float64        `json:"duration_ms"`
	Failure    *FailureRecord `json:"failure,omitempty"`
}

// FailureRecord describes a Failed test.
type FailureRecord struct {
	Message       string             `json:"message"`
	Differences   []DifferenceRecord `json:"differences,omitempty"`
	Expected      string             `json:"expected,omitempty"`
	Actual        string             `json:"actual,omitempty"`
	Supplementary []string           `json:"supplementary,omitempty"`
}

// DifferenceRecord is one structural difference.
type DifferenceRecord struct {
	Path   string `json:"path"`
	Detail string `json:"detail"`
}

// BuildReport assembles the JSON document for a finished run.
func BuildReport(s runner.Summary, outcomes []runner.Outcome) Report {
	r := Report{
		RunID:     s.RunID,
		StartedAt: s.StartTime,
		Summary:   s,
		Outcomes:  make([]OutcomeRecord, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		rec := OutcomeRecord{
			Outcome:    o,
			DurationMS: float64(o.Duration) / float64(time.Millisecond),
		}
		if o.Failure != nil {
			rec.Failure = failureRecord(o.Failure)
		}
		r.Outcomes = append(r.Outcomes, rec)
	}
	return r
}

func failureRecord(f *failure.Error) *FailureRecord {
	rec := &FailureRecord{Message: f.Error()}
	if f.Result != nil {
		for _, d := range f.Result.Differences {
			rec.Differences = append(rec.Differences, DifferenceRecord{
				Path:   d.Path.String(),
				Detail: d.Kind.String(),
			})
		}
	} else if f.Expected != nil || f.Actual != nil {
		rec.Expected = describe(f.Expected)
		rec.Actual = describe(f.Actual)
	}
	for _, s := range f.Supplementary {
		rec.Supplementary = append(rec.Supplementary, s.Error())
	}
	return rec
}

func describe(v any) string {
	if d, ok := v.(failure.Description); ok {
		return string(d)
	}
	return diff.FormatValue(v)
}

// JSON writes a single report document when the run ends, and optionally
// saves a timestamped copy under a report directory.
type JSON struct {
	out        io.Writer
	reportPath string

	mu        sync.Mutex
	savedPath string
}

// NewJSON creates a JSON reporter. An empty reportPath disables the file copy.
func NewJSON(w io.Writer, reportPath string) *JSON {
	return &JSON{out: w, reportPath: reportPath}
}

func (j *JSON) ReportStart(int)                    {}
func (j *JSON) ReportSuiteStart(string)            {}
func (j *JSON) ReportTestStart(*registry.TestCase) {}
func (j *JSON) ReportOutcome(runner.Outcome)       {}

// ReportSummary implements runner.Reporter.
func (j *JSON) ReportSummary(s runner.Summary, outcomes []runner.Outcome) {
	report := BuildReport(s, outcomes)

	if j.out != nil {
		enc := json.NewEncoder(j.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			logging.Error("Reporter", err, "Failed to write JSON report")
		}
	}

	if j.reportPath != "" {
		path, err := SaveReport(j.reportPath, report)
		if err != nil {
			logging.Error("Reporter", err, "Failed to save report to %s", j.reportPath)
			return
		}
		j.mu.Lock()
		j.savedPath = path
		j.mu.Unlock()
		logging.Info("Reporter", "Report saved to %s", path)
	}
}

// SavedPath returns the file written by the last run, if any.
func (j *JSON) SavedPath() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.savedPath
}

// SaveReport writes report to dir as that-report-<timestamp>.json, named
// after the run's start time, and returns the file path.
func SaveReport(dir string, report Report) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	started := report.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	filename := fmt.Sprintf("that-report-%s.json", started.Format("20060102-150405"))
	fullPath := filepath.Join(dir, filename)

	jsonData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report to JSON: %w", err)
	}
	if err := os.WriteFile(fullPath, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return fullPath, nil
}
