package mock

import (
	"fmt"

	"github.com/catherinevee/mdcagent/internal/models"
)

// Fixtures returns a fixed set of assessments covering every severity and
// status, several resource groups and resource types, and records with
// missing optional fields.
func Fixtures(subscriptionID string) []models.Record {
	scope := "/subscriptions/" + subscriptionID

	assessmentID := func(name string) string {
		return fmt.Sprintf("%s/providers/Microsoft.Security/assessments/%s", scope, name)
	}
	resourceID := func(group, resourceType, name string) string {
		return fmt.Sprintf("%s/resourceGroups/%s/providers/%s/%s", scope, group, resourceType, name)
	}

	return []models.Record{
		{
			ID:          assessmentID("d57a4221-a804-52ca-3dea-768284f06bb7"),
			Name:        "d57a4221-a804-52ca-3dea-768284f06bb7",
			Type:        "Microsoft.Security/assessments",
			DisplayName: "Enable disk encryption on virtual machines",
			Severity:    "High",
			Status: models.RecordStatus{
				Code:        "Unhealthy",
				Description: "Virtual machines without disk encryption are vulnerable to data theft",
			},
			ResourceDetails: models.ResourceDetails{
				ID:     resourceID("rg-prod", "Microsoft.Compute/virtualMachines", "vm-web-01"),
				Source: "Azure",
			},
			RemediationDescription: "Enable Azure Disk Encryption for the virtual machine OS and data disks.",
			AdditionalData: map[string]interface{}{
				"ComplianceStandards": "CIS,PCI-DSS",
			},
		},
		{
			ID:          assessmentID("1f24d55a-df0f-4772-9090-4629c2d6bfff"),
			Name:        "1f24d55a-df0f-4772-9090-4629c2d6bfff",
			Type:        "Microsoft.Security/assessments",
			DisplayName: "Storage accounts should restrict network access",
			Severity:    "Medium",
			Status: models.RecordStatus{
				Code:        "Unhealthy",
				Description: "Storage account accepts traffic from all networks",
			},
			ResourceDetails: models.ResourceDetails{
				ID:     resourceID("rg-data", "Microsoft.Storage/storageAccounts", "stdata01"),
				Source: "Azure",
			},
			AdditionalData: map[string]interface{}{
				"RemediationDescription": "Set the default network access rule to Deny.",
				"ComplianceStandards":    `["ISO27001"]`,
			},
		},
		{
			ID:          assessmentID("94208a8b-16e8-4e5b-abbd-4e81c9d02bee"),
			Name:        "94208a8b-16e8-4e5b-abbd-4e81c9d02bee",
			Type:        "Microsoft.Security/assessments",
			DisplayName: "MFA should be enabled on accounts with owner permissions",
			Severity:    "High",
			Status: models.RecordStatus{
				Code:        "Healthy",
				Description: "All owner accounts use MFA",
			},
			ResourceDetails: models.ResourceDetails{
				ID:     scope,
				Source: "Azure",
			},
		},
		{
			ID:          assessmentID("a8c6a4ad-d51e-88fe-2979-d3ee3c864f8b"),
			Name:        "a8c6a4ad-d51e-88fe-2979-d3ee3c864f8b",
			Type:        "Microsoft.Security/assessments",
			DisplayName: "SQL servers should have auditing enabled",
			Severity:    "Low",
			Status: models.RecordStatus{
				Code:        "Unhealthy",
				Description: "Auditing is disabled on the SQL server",
			},
			ResourceDetails: models.ResourceDetails{
				ID:     resourceID("rg-data", "Microsoft.Sql/servers", "sql-orders"),
				Source: "Azure",
			},
		},
		{
			ID:          assessmentID("22e18b64-4576-41e6-8972-0eb28c9af0c8"),
			Name:        "22e18b64-4576-41e6-8972-0eb28c9af0c8",
			Type:        "Microsoft.Security/assessments",
			DisplayName: "Key Vault keys should have an expiration date",
			Severity:    "Critical",
			Status: models.RecordStatus{
				Code: "NotApplicable",
			},
			ResourceDetails: models.ResourceDetails{
				ID:     resourceID("rg-prod", "Microsoft.KeyVault/vaults", "kv-prod"),
				Source: "Azure",
			},
		},
		{
			ID:   assessmentID("4fb67663-9ab9-475d-b026-8c544cced439"),
			Name: "4fb67663-9ab9-475d-b026-8c544cced439",
			Type: "Microsoft.Security/assessments",
			Status: models.RecordStatus{
				Code: "Unhealthy",
			},
			ResourceDetails: models.ResourceDetails{
				ID:     resourceID("rg-prod-eu", "Microsoft.Web/sites", "app-frontend"),
				Source: "Azure",
			},
		},
	}
}
