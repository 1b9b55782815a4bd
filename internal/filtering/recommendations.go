// Package filtering narrows raw provider records before they are parsed.
package filtering

import (
	"strings"

	"github.com/catherinevee/mdcagent/internal/models"
)

// RecordFilter holds the optional predicates of a list request. Empty fields
// are not applied. Predicates combine with AND; values within one predicate
// combine with OR.
type RecordFilter struct {
	Severities         []string
	ResourceType       string
	ResourceGroup      string
	AssessmentStatuses []string
}

// FromQuery builds the filter for a list query.
func FromQuery(q models.ListQuery) RecordFilter {
	return RecordFilter{
		Severities:         q.Severity,
		ResourceType:       q.ResourceType,
		ResourceGroup:      q.ResourceGroup,
		AssessmentStatuses: q.AssessmentStatus,
	}
}

// IsEmpty reports whether the filter would keep every record.
func (f RecordFilter) IsEmpty() bool {
	return len(f.Severities) == 0 &&
		f.ResourceType == "" &&
		f.ResourceGroup == "" &&
		len(f.AssessmentStatuses) == 0
}

// Apply returns the records matching every supplied predicate, in their
// original order. The input slice is not modified.
func (f RecordFilter) Apply(records []models.Record) []models.Record {
	filtered := make([]models.Record, 0, len(records))
	for _, record := range records {
		if f.Matches(record) {
			filtered = append(filtered, record)
		}
	}
	return filtered
}

// Matches evaluates the filter against one record.
func (f RecordFilter) Matches(record models.Record) bool {
	if len(f.Severities) > 0 && !MatchesSeverity(record, f.Severities) {
		return false
	}
	if f.ResourceType != "" && !MatchesResourceType(record, f.ResourceType) {
		return false
	}
	if f.ResourceGroup != "" && !MatchesResourceGroup(record, f.ResourceGroup) {
		return false
	}
	if len(f.AssessmentStatuses) > 0 && !MatchesAssessmentStatus(record, f.AssessmentStatuses) {
		return false
	}
	return true
}

// MatchesSeverity is an exact, case-sensitive membership test.
func MatchesSeverity(record models.Record, severities []string) bool {
	return models.Contains(severities, record.Severity)
}

// MatchesResourceType checks whether resourceType occurs, ignoring case, in
// the declared resource type or the resource id.
func MatchesResourceType(record models.Record, resourceType string) bool {
	needle := strings.ToLower(resourceType)
	details := record.ResourceDetails
	return strings.Contains(strings.ToLower(details.ResourceType), needle) ||
		strings.Contains(strings.ToLower(details.ID), needle)
}

// MatchesResourceGroup checks for the "/resourceGroups/<name>/" path fragment.
func MatchesResourceGroup(record models.Record, resourceGroup string) bool {
	return strings.Contains(record.ResourceDetails.ID, "/resourceGroups/"+resourceGroup+"/")
}

// MatchesAssessmentStatus is an exact membership test on the status code.
func MatchesAssessmentStatus(record models.Record, statuses []string) bool {
	return models.Contains(statuses, record.Status.Code)
}
