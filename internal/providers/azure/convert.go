package azure

import (
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/security/armsecurity"

	"github.com/catherinevee/mdcagent/internal/models"
)

// metadataEntry is the part of an assessment definition the listing omits
type metadataEntry struct {
	DisplayName            string
	Severity               string
	RemediationDescription string
}

// metadataCatalog is keyed by assessment name (the assessment key)
type metadataCatalog map[string]metadataEntry

func deref[T ~string](p *T) string {
	if p == nil {
		return ""
	}
	return string(*p)
}

// toRecord flattens an SDK assessment. Inline metadata wins over the catalog.
func toRecord(a *armsecurity.AssessmentResponse, catalog metadataCatalog) models.Record {
	record := models.Record{
		ID:   deref(a.ID),
		Name: deref(a.Name),
		Type: deref(a.Type),
	}

	props := a.Properties
	if props == nil {
		return record
	}

	record.DisplayName = deref(props.DisplayName)
	record.ResourceDetails = resourceDetails(props.ResourceDetails)

	if props.Status != nil {
		record.Status = models.RecordStatus{
			Code:        deref(props.Status.Code),
			Cause:       deref(props.Status.Cause),
			Description: deref(props.Status.Description),
		}
	}

	if len(props.AdditionalData) > 0 {
		record.AdditionalData = make(map[string]interface{}, len(props.AdditionalData))
		for key, value := range props.AdditionalData {
			if value != nil {
				record.AdditionalData[key] = *value
			}
		}
	}

	if props.Metadata != nil {
		record.Severity = deref(props.Metadata.Severity)
		record.RemediationDescription = deref(props.Metadata.RemediationDescription)
	}

	if entry, ok := catalog[record.Name]; ok {
		if record.Severity == "" {
			record.Severity = entry.Severity
		}
		if record.RemediationDescription == "" {
			record.RemediationDescription = entry.RemediationDescription
		}
		if record.DisplayName == "" {
			record.DisplayName = entry.DisplayName
		}
	}

	return record
}

func resourceDetails(details armsecurity.ResourceDetailsClassification) models.ResourceDetails {
	switch d := details.(type) {
	case nil:
		return models.ResourceDetails{}
	case *armsecurity.AzureResourceDetails:
		return models.ResourceDetails{
			ID:     deref(d.ID),
			Source: deref(d.Source),
		}
	default:
		base := d.GetResourceDetails()
		if base == nil {
			return models.ResourceDetails{}
		}
		return models.ResourceDetails{Source: deref(base.Source)}
	}
}
