package reporter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/actionsum/focusstat/internal/models"
	"github.com/actionsum/focusstat/pkg/utils"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7C3AED")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true)
)

// Source is the read side of the store
type Source interface {
	GetCategorySummaryBetween(start, end time.Time) ([]models.CategorySummary, error)
	GetStatsBetween(start, end time.Time) ([]models.CategoryStat, error)
}

// Reporter handles report generation
type Reporter struct {
	repo     Source
	location *time.Location
	now      func() time.Time
}

// New creates a new reporter. Periods are computed in loc.
func New(repo Source, loc *time.Location) *Reporter {
	if loc == nil {
		loc = time.Local
	}
	return &Reporter{
		repo:     repo,
		location: loc,
		now:      time.Now,
	}
}

// GenerateReport generates a report for the specified period.
// withBuckets adds the per-bucket rows behind the totals.
func (r *Reporter) GenerateReport(periodType string, withBuckets bool) (*models.Report, error) {
	period, err := r.getPeriod(periodType)
	if err != nil {
		return nil, err
	}

	// Get raw summaries from database (SQL does the SUM)
	summaries, err := r.repo.GetCategorySummaryBetween(period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("failed to get category summary: %w", err)
	}

	// Runtime calculates derived fields and percentages
	var totalSeconds float64
	for i := range summaries {
		summaries[i].TotalMinutes = summaries[i].TotalSeconds / 60.0
		summaries[i].TotalHours = summaries[i].TotalSeconds / 3600.0
		totalSeconds += summaries[i].TotalSeconds
	}

	if totalSeconds > 0 {
		for i := range summaries {
			summaries[i].Percentage = (summaries[i].TotalSeconds / totalSeconds) * 100.0
		}
	}

	report := &models.Report{
		Period:       *period,
		Categories:   summaries,
		TotalSeconds: totalSeconds,
		TotalMinutes: totalSeconds / 60.0,
		TotalHours:   totalSeconds / 3600.0,
		GeneratedAt:  r.now(),
	}

	if withBuckets {
		buckets, err := r.repo.GetStatsBetween(period.Start, period.End)
		if err != nil {
			return nil, fmt.Errorf("failed to get bucket stats: %w", err)
		}
		for i := range buckets {
			buckets[i].BucketStart = buckets[i].BucketStart.In(r.location)
		}
		report.Buckets = buckets
	}

	return report, nil
}

// getPeriod calculates the time range for the report
func (r *Reporter) getPeriod(periodType string) (*models.ReportPeriod, error) {
	now := r.now().In(r.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.location)
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = today
		end = start.AddDate(0, 0, 1)

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday = 7
		}
		start = today.AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, r.location)
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

	b.WriteString(titleStyle.Render(fmt.Sprintf("Focus Report - %s", report.Period.Type)))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("Period: %s to %s",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Total Time: %.2fh (%.0fm)\n\n", report.TotalHours, report.TotalMinutes)

	if len(report.Categories) == 0 {
		b.WriteString("No activity recorded for this period.\n")
		return b.String()
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-30s %10s %10s %10s", "Category", "Time", "Minutes", "Percent")))
	b.WriteString("\n")

	for _, c := range report.Categories {
		fmt.Fprintf(&b, "%-30s %10s %10.0f %9.1f%%\n",
			utils.Truncate(c.Category, 30),
			utils.FormatRoundedUnit(int64(c.TotalSeconds)),
			c.TotalMinutes,
			c.Percentage)
	}

	if len(report.Buckets) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-17s %-30s %10s", "Bucket", "Category", "Time")))
		b.WriteString("\n")
		for _, s := range report.Buckets {
			fmt.Fprintf(&b, "%-17s %-30s %10s\n",
				s.BucketStart.Format("2006-01-02 15:04"),
				utils.Truncate(s.Category, 30),
				utils.FormatRoundedUnit(int64(s.Seconds())))
		}
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
