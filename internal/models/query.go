package models

// Pagination bounds
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// ListQuery carries the list endpoint parameters. Binding tags cover range
// and format checks. Severity and assessment status membership is checked
// separately so the error can list the accepted values.
type ListQuery struct {
	SubscriptionID   string   `form:"subscription_id" json:"subscription_id,omitempty" binding:"omitempty,subscription_id"`
	Severity         []string `form:"severity" json:"severity,omitempty"`
	ResourceType     string   `form:"resource_type" json:"resource_type,omitempty" binding:"omitempty,max=256"`
	ResourceGroup    string   `form:"resource_group" json:"resource_group,omitempty" binding:"omitempty,max=90"`
	AssignmentStatus string   `form:"assignment_status,default=all" json:"assignment_status,omitempty" binding:"omitempty,oneof=assigned unassigned overdue all"`
	AssessmentStatus []string `form:"assessment_status" json:"assessment_status,omitempty"`
	Limit            int      `form:"limit,default=100" json:"limit" binding:"min=1,max=1000"`
	Offset           int      `form:"offset,default=0" json:"offset" binding:"min=0"`
}

// NewListQuery returns a query with the documented defaults.
func NewListQuery() ListQuery {
	return ListQuery{
		AssignmentStatus: string(AssignmentStatusAll),
		Limit:            DefaultLimit,
	}
}
