package models

import (
	"regexp"
	"time"
)

// Severity is the provider-assigned severity of a finding
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// AssessmentStatus is the provider-reported health of the assessed resource
type AssessmentStatus string

const (
	AssessmentStatusHealthy       AssessmentStatus = "Healthy"
	AssessmentStatusUnhealthy     AssessmentStatus = "Unhealthy"
	AssessmentStatusNotApplicable AssessmentStatus = "NotApplicable"
)

// AssignmentStatus selects recommendations by remediation assignment
type AssignmentStatus string

const (
	AssignmentStatusAssigned   AssignmentStatus = "assigned"
	AssignmentStatusUnassigned AssignmentStatus = "unassigned"
	AssignmentStatusOverdue    AssignmentStatus = "overdue"
	AssignmentStatusAll        AssignmentStatus = "all"
)

// Accepted values, in documentation order.
var (
	ValidSeverities         = []string{"Critical", "High", "Medium", "Low"}
	ValidAssessmentStatuses = []string{"Healthy", "Unhealthy", "NotApplicable"}
	ValidAssignmentStatuses = []string{"assigned", "unassigned", "overdue", "all"}
)

var subscriptionIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsSubscriptionID reports whether s is a canonical 8-4-4-4-12 hex UUID.
func IsSubscriptionID(s string) bool {
	return subscriptionIDPattern.MatchString(s)
}

// Contains reports whether value is one of values, case-sensitively.
func Contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// Resource is an Azure resource affected by a recommendation
type Resource struct {
	ResourceID   string `json:"resource_id"`
	ResourceType string `json:"resource_type"`
	ResourceName string `json:"resource_name"`
}

// AssignedUser is the owner of a remediation assignment
type AssignedUser struct {
	UserEmail        string    `json:"user_email"`
	UserName         string    `json:"user_name"`
	AssignmentDate   time.Time `json:"assignment_date"`
	NotificationSent bool      `json:"notification_sent"`
}

// Recommendation is the normalized, snake_case view of one security assessment
type Recommendation struct {
	RecommendationID    string           `json:"recommendation_id"`
	Severity            Severity         `json:"severity"`
	Title               string           `json:"title"`
	Description         string           `json:"description"`
	AffectedResources   []Resource       `json:"affected_resources"`
	RemediationSteps    string           `json:"remediation_steps"`
	AssessmentStatus    AssessmentStatus `json:"assessment_status"`
	ComplianceStandards []string         `json:"compliance_standards"`
	AssignedUser        *AssignedUser    `json:"assigned_user"`
	// DueDate is a calendar date, YYYY-MM-DD.
	DueDate            *string `json:"due_date"`
	GracePeriodEnabled *bool   `json:"grace_period_enabled"`
	SubscriptionID     string  `json:"subscription_id"`
	ResourceGroup      *string `json:"resource_group"`
}

// RecommendationListResponse is one page of filtered recommendations
type RecommendationListResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
	// TotalCount counts all filtered recommendations, not just this page.
	TotalCount int `json:"total_count"`
	Limit      int `json:"limit"`
	Offset     int `json:"offset"`
}
