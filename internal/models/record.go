package models

// Record is a raw security assessment as returned by the provider, before
// filtering and normalization. Optional provider fields are empty strings.
type Record struct {
	ID                     string          `json:"id"`
	Name                   string          `json:"name"`
	Type                   string          `json:"type"`
	DisplayName            string          `json:"display_name"`
	Severity               string          `json:"severity"`
	Status                 RecordStatus    `json:"status"`
	ResourceDetails        ResourceDetails `json:"resource_details"`
	RemediationDescription string          `json:"remediation_description"`
	// AdditionalData is the provider's free-form bag, keys as sent.
	AdditionalData map[string]interface{} `json:"additional_data"`
}

// RecordStatus is the provider assessment status
type RecordStatus struct {
	Code        string `json:"code"`
	Cause       string `json:"cause"`
	Description string `json:"description"`
}

// ResourceDetails identifies the assessed resource
type ResourceDetails struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	ResourceType string `json:"resource_type"`
}
