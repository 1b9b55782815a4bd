// Package credentials builds the Azure token credential used by the
// provider client.
package credentials

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/catherinevee/mdcagent/internal/shared/config"
	"github.com/catherinevee/mdcagent/internal/shared/logging"
)

// Method names the credential source in use
type Method string

const (
	MethodClientSecret Method = "client_secret"
	MethodDefaultChain Method = "default_chain"
)

// Credential describes the configured credential without exposing secrets
type Credential struct {
	Provider string                 `json:"provider"`
	Method   Method                 `json:"method"`
	Details  map[string]interface{} `json:"details"`
}

// SelectMethod picks a service principal when tenant, client id and secret
// are all set; otherwise the default chain (environment, managed identity,
// Azure CLI).
func SelectMethod(cfg config.AzureConfig) Method {
	if cfg.TenantID != "" && cfg.ClientID != "" && cfg.ClientSecret != "" {
		return MethodClientSecret
	}
	return MethodDefaultChain
}

// Describe reports the credential that NewAzureCredential would build.
func Describe(cfg config.AzureConfig) Credential {
	details := map[string]interface{}{}
	if cfg.SubscriptionID != "" {
		details["subscription_id"] = cfg.SubscriptionID
	}
	if cfg.TenantID != "" {
		details["tenant_id"] = cfg.TenantID
	}
	if cfg.ClientID != "" {
		details["client_id"] = logging.Redact(cfg.ClientID)
	}

	return Credential{
		Provider: "azure",
		Method:   SelectMethod(cfg),
		Details:  details,
	}
}

// NewAzureCredential builds the token credential for cfg. Token acquisition
// is lazy, so a bad secret surfaces as an authentication failure on the
// first provider call.
func NewAzureCredential(cfg config.AzureConfig) (azcore.TokenCredential, error) {
	logger := logging.WithComponent("credentials")

	switch SelectMethod(cfg) {
	case MethodClientSecret:
		cred, err := azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create client secret credential: %w", err)
		}
		logger.Info().
			Str("tenant_id", cfg.TenantID).
			Str("client_id", logging.Redact(cfg.ClientID)).
			Msg("Using Azure service principal credential")
		return cred, nil

	default:
		options := &azidentity.DefaultAzureCredentialOptions{TenantID: cfg.TenantID}
		cred, err := azidentity.NewDefaultAzureCredential(options)
		if err != nil {
			return nil, fmt.Errorf("failed to create default Azure credential: %w", err)
		}
		logger.Info().Msg("Using default Azure credential chain")
		return cred, nil
	}
}
