package reporter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/procsense/procsense/internal/config"
	"github.com/procsense/procsense/internal/models"
)

// SummaryStore is the query the reporter aggregates over.
type SummaryStore interface {
	GetAppSummarySince(since time.Time) ([]models.AppSummary, error)
}

// Reporter handles report generation
type Reporter struct {
	config *config.Config
	repo   SummaryStore
	now    func() time.Time
}

// New creates a new reporter
func New(cfg *config.Config, repo SummaryStore) *Reporter {
	return &Reporter{
		config: cfg,
		repo:   repo,
		now:    time.Now,
	}
}

// GenerateReport generates a report for the specified period
func (r *Reporter) GenerateReport(periodType string) (*models.Report, error) {
	period, err := r.Period(periodType)
	if err != nil {
		return nil, err
	}

	// SQL does the SUM
	summaries, err := r.repo.GetAppSummarySince(period.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to get app summary: %w", err)
	}

	totalSeconds := Summarize(summaries)

	return &models.Report{
		Period:       *period,
		Apps:         summaries,
		TotalSeconds: totalSeconds,
		TotalMinutes: float64(totalSeconds) / 60.0,
		TotalHours:   float64(totalSeconds) / 3600.0,
		GeneratedAt:  r.now(),
	}, nil
}

// Summarize fills the derived fields of each summary and returns the total.
func Summarize(summaries []models.AppSummary) int64 {
	var totalSeconds int64
	for i := range summaries {
		summaries[i].TotalMinutes = float64(summaries[i].TotalSeconds) / 60.0
		summaries[i].TotalHours = float64(summaries[i].TotalSeconds) / 3600.0
		totalSeconds += summaries[i].TotalSeconds
	}

	if totalSeconds > 0 {
		for i := range summaries {
			summaries[i].Percentage = (float64(summaries[i].TotalSeconds) / float64(totalSeconds)) * 100.0
		}
	}
	return totalSeconds
}

// Period calculates the time range for a report in the configured time zone.
func (r *Reporter) Period(periodType string) (*models.ReportPeriod, error) {
	loc, err := r.config.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid report time zone: %w", err)
	}
	now := r.now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	var start, end time.Time
	switch periodType {
	case "day", "today":
		start = today
		end = start.AddDate(0, 0, 1)

	case "week":
		// Weeks start on Monday
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start = today.AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0)

	default:
		return nil, fmt.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Activity Report - %s\n", report.Period.Type)
	fmt.Fprintf(&b, "Period: %s to %s\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Total Time: %s (%.2fh)\n\n", FormatDuration(report.TotalSeconds), report.TotalHours)

	if len(report.Apps) == 0 {
		b.WriteString("No activity recorded for this period.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-24s %-40s %8s %9s\n", "Process", "Path", "Time", "Percent")
	b.WriteString(strings.Repeat("-", 84) + "\n")

	for _, app := range report.Apps {
		fmt.Fprintf(&b, "%-24s %-40s %8s %8.1f%%\n",
			truncate(app.ProcessName, 24),
			truncateLeft(app.ExePath, 40),
			FormatDuration(app.TotalSeconds),
			app.Percentage)
	}

	return b.String()
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// FormatDuration renders seconds in the largest whole unit: 45s, 12m, 3h.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = -seconds
	}
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm", seconds/60)
	default:
		return fmt.Sprintf("%dh", seconds/3600)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// truncateLeft keeps the end of a path, which carries the file name.
func truncateLeft(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen+3:]
}
