// Package cli renders recommendations and errors for terminal users.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/catherinevee/mdcagent/internal/models"
	apperrors "github.com/catherinevee/mdcagent/internal/shared/errors"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
)

// ParseFormat accepts "table" or "json", ignoring case.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case FormatTable, "":
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (table or json)", s)
	}
}

// maxTitleWidth truncates long titles in table output.
const maxTitleWidth = 60

// OutputFormatter handles formatted output
type OutputFormatter struct {
	writer  io.Writer
	format  OutputFormat
	noColor bool
}

// NewOutputFormatter creates a formatter writing to w. A nil w means stdout.
func NewOutputFormatter(w io.Writer, format OutputFormat) *OutputFormatter {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = FormatTable
	}
	return &OutputFormatter{
		writer:  w,
		format:  format,
		noColor: color.NoColor,
	}
}

// DisableColor disables colored output
func (f *OutputFormatter) DisableColor() {
	f.noColor = true
}

// EnableColor forces colored output even when not writing to a terminal.
func (f *OutputFormatter) EnableColor() {
	f.noColor = false
}

func (f *OutputFormatter) paint(text string, attrs ...color.Attribute) string {
	c := color.New(attrs...)
	if f.noColor {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
	return c.Sprint(text)
}

// SeverityColor returns the display attributes for a severity.
func SeverityColor(severity models.Severity) []color.Attribute {
	switch severity {
	case models.SeverityCritical:
		return []color.Attribute{color.FgHiRed, color.Bold}
	case models.SeverityHigh:
		return []color.Attribute{color.FgRed}
	case models.SeverityMedium:
		return []color.Attribute{color.FgYellow}
	case models.SeverityLow:
		return []color.Attribute{color.FgCyan}
	default:
		return nil
	}
}

func statusColor(status models.AssessmentStatus) []color.Attribute {
	switch status {
	case models.AssessmentStatusHealthy:
		return []color.Attribute{color.FgGreen}
	case models.AssessmentStatusUnhealthy:
		return []color.Attribute{color.FgRed}
	default:
		return []color.Attribute{color.FgHiBlack}
	}
}

// RecommendationList prints one page of recommendations.
func (f *OutputFormatter) RecommendationList(resp models.RecommendationListResponse) error {
	if f.format == FormatJSON {
		return f.json(resp)
	}

	if len(resp.Recommendations) == 0 {
		f.Info("No recommendations matched (%d total)", resp.TotalCount)
		return nil
	}

	table := tablewriter.NewWriter(f.writer)
	table.SetHeader([]string{"Severity", "Status", "Title", "Resource Group", "Resource Type", "Name"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)

	for _, rec := range resp.Recommendations {
		resourceType := ""
		if len(rec.AffectedResources) > 0 {
			resourceType = rec.AffectedResources[0].ResourceType
		}
		table.Append([]string{
			f.paint(string(rec.Severity), SeverityColor(rec.Severity)...),
			f.paint(string(rec.AssessmentStatus), statusColor(rec.AssessmentStatus)...),
			truncate(rec.Title, maxTitleWidth),
			deref(rec.ResourceGroup),
			resourceType,
			rec.RecommendationID[strings.LastIndex(rec.RecommendationID, "/")+1:],
		})
	}
	table.Render()

	first := resp.Offset + 1
	last := resp.Offset + len(resp.Recommendations)
	fmt.Fprintf(f.writer, "\nShowing %d-%d of %d\n", first, last, resp.TotalCount)
	return nil
}

// Recommendation prints the full detail of one recommendation.
func (f *OutputFormatter) Recommendation(rec models.Recommendation) error {
	if f.format == FormatJSON {
		return f.json(rec)
	}

	fmt.Fprintln(f.writer, f.paint(rec.Title, color.Bold))
	fmt.Fprintln(f.writer, f.paint(strings.Repeat("=", len(rec.Title)), color.FgCyan))

	f.KeyValue("ID", rec.RecommendationID)
	f.KeyValue("Severity", f.paint(string(rec.Severity), SeverityColor(rec.Severity)...))
	f.KeyValue("Status", f.paint(string(rec.AssessmentStatus), statusColor(rec.AssessmentStatus)...))
	f.KeyValue("Subscription", rec.SubscriptionID)
	f.KeyValue("Resource group", deref(rec.ResourceGroup))
	for _, res := range rec.AffectedResources {
		f.KeyValue("Resource", fmt.Sprintf("%s (%s)", res.ResourceName, res.ResourceType))
	}
	if len(rec.ComplianceStandards) > 0 {
		f.KeyValue("Compliance", strings.Join(rec.ComplianceStandards, ", "))
	}
	if rec.GracePeriodEnabled != nil {
		f.KeyValue("Grace period", strconv.FormatBool(*rec.GracePeriodEnabled))
	}

	fmt.Fprintln(f.writer)
	fmt.Fprintln(f.writer, f.paint("Description", color.Bold))
	fmt.Fprintln(f.writer, rec.Description)
	fmt.Fprintln(f.writer)
	fmt.Fprintln(f.writer, f.paint("Remediation", color.Bold))
	fmt.Fprintln(f.writer, rec.RemediationSteps)
	return nil
}

// AppError prints a classified error. JSON output uses the API error body.
func (f *OutputFormatter) AppError(appErr *apperrors.AppError) error {
	if f.format == FormatJSON {
		details := appErr.Details
		if details == nil {
			details = map[string]interface{}{}
		}
		return f.json(map[string]interface{}{
			"error_code": appErr.Kind,
			"message":    appErr.Message,
			"details":    details,
		})
	}

	f.Error("%s: %s", appErr.Kind, appErr.Message)
	for key, value := range appErr.Details {
		fmt.Fprintf(f.writer, "  %s: %v\n", key, value)
	}
	return nil
}

// Error prints an error message
func (f *OutputFormatter) Error(message string, args ...interface{}) {
	fmt.Fprintln(f.writer, f.paint("✗ "+fmt.Sprintf(message, args...), color.FgRed))
}

// Info prints an info message
func (f *OutputFormatter) Info(message string, args ...interface{}) {
	fmt.Fprintln(f.writer, f.paint("ℹ "+fmt.Sprintf(message, args...), color.FgBlue))
}

// KeyValue prints a key-value pair
func (f *OutputFormatter) KeyValue(key, value string) {
	fmt.Fprintf(f.writer, "%s: %s\n", f.paint(key, color.Bold), value)
}

func (f *OutputFormatter) json(v interface{}) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
