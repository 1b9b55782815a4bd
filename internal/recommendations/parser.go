// Package recommendations turns raw provider records into the normalized
// recommendation shape served to clients.
package recommendations

import (
	"encoding/json"
	"strings"

	"github.com/catherinevee/mdcagent/internal/models"
	"github.com/catherinevee/mdcagent/internal/transform"
)

// Fallback values for fields the provider left empty.
const (
	DefaultDescription      = "No description available"
	DefaultRemediationSteps = "See Azure Portal for remediation steps"
	UnknownValue            = "Unknown"
)

// Parse maps one raw record to a Recommendation. fallbackSubscription is used
// when the record id does not carry a valid subscription id.
func Parse(record models.Record, fallbackSubscription string) models.Recommendation {
	additional := snakeCaseBag(record.AdditionalData)

	rec := models.Recommendation{
		RecommendationID:    record.ID,
		Severity:            parseSeverity(record.Severity),
		Title:               firstNonEmpty(record.DisplayName, record.Name),
		Description:         firstNonEmpty(record.Status.Description, DefaultDescription),
		AffectedResources:   []models.Resource{parseResource(record.ResourceDetails)},
		RemediationSteps:    remediationSteps(record, additional),
		AssessmentStatus:    parseAssessmentStatus(record.Status.Code),
		ComplianceStandards: complianceStandards(additional["compliance_standards"]),
		SubscriptionID:      fallbackSubscription,
	}

	if sub := SegmentAfter(record.ID, "subscriptions"); models.IsSubscriptionID(sub) {
		rec.SubscriptionID = sub
	}
	if rg := SegmentAfter(record.ResourceDetails.ID, "resourceGroups"); rg != "" {
		rec.ResourceGroup = &rg
	}

	return rec
}

// ParseAll parses records in order.
func ParseAll(records []models.Record, fallbackSubscription string) []models.Recommendation {
	out := make([]models.Recommendation, 0, len(records))
	for _, record := range records {
		out = append(out, Parse(record, fallbackSubscription))
	}
	return out
}

func parseResource(details models.ResourceDetails) models.Resource {
	resourceType := details.ResourceType
	if resourceType == "" {
		resourceType = ResourceTypeFromID(details.ID)
	}
	return models.Resource{
		ResourceID:   details.ID,
		ResourceType: resourceType,
		ResourceName: ResourceNameFromID(details.ID),
	}
}

func parseSeverity(value string) models.Severity {
	for _, valid := range models.ValidSeverities {
		if strings.EqualFold(value, valid) {
			return models.Severity(valid)
		}
	}
	return models.SeverityMedium
}

// parseAssessmentStatus canonicalizes the casing of known codes and keeps
// unknown codes as sent.
func parseAssessmentStatus(code string) models.AssessmentStatus {
	for _, valid := range models.ValidAssessmentStatuses {
		if strings.EqualFold(code, valid) {
			return models.AssessmentStatus(valid)
		}
	}
	return models.AssessmentStatus(code)
}

func remediationSteps(record models.Record, additional map[string]interface{}) string {
	if record.RemediationDescription != "" {
		return record.RemediationDescription
	}
	if s, ok := additional["remediation_description"].(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return DefaultRemediationSteps
}

func snakeCaseBag(bag map[string]interface{}) map[string]interface{} {
	if len(bag) == 0 {
		return map[string]interface{}{}
	}
	converted, _ := transform.TransformKeys(bag).(map[string]interface{})
	return converted
}

// complianceStandards accepts a list, a JSON array string or a
// comma-separated string. Nil means absent.
func complianceStandards(value interface{}) []string {
	var standards []string

	switch v := value.(type) {
	case []string:
		standards = append(standards, v...)
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				standards = append(standards, s)
			}
		}
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "[") {
			var decoded []string
			if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
				standards = decoded
				break
			}
		}
		standards = strings.Split(trimmed, ",")
	default:
		return nil
	}

	out := make([]string, 0, len(standards))
	for _, s := range standards {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SegmentAfter returns the path segment following the first segment named
// name, compared case-insensitively. It returns "" when there is none.
func SegmentAfter(path, name string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if strings.EqualFold(segment, name) && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	return ""
}

// ResourceTypeFromID joins the namespace and kind after the first
// "providers" segment, e.g. "Microsoft.Compute/virtualMachines".
func ResourceTypeFromID(resourceID string) string {
	segments := strings.Split(resourceID, "/")
	for i, segment := range segments {
		if !strings.EqualFold(segment, "providers") {
			continue
		}
		if i+2 < len(segments) && segments[i+1] != "" && segments[i+2] != "" {
			return segments[i+1] + "/" + segments[i+2]
		}
		break
	}
	return UnknownValue
}

// ResourceNameFromID returns the last path segment.
func ResourceNameFromID(resourceID string) string {
	trimmed := strings.TrimRight(resourceID, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if trimmed == "" {
		return UnknownValue
	}
	return trimmed
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
