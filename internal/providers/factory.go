package providers

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/catherinevee/mdcagent/internal/providers/azure"
	"github.com/catherinevee/mdcagent/internal/providers/mock"
	"github.com/catherinevee/mdcagent/internal/shared/config"
)

// NewRecordSource creates the source selected by cfg.Provider.Kind. The
// credential is only used by the azure kind and may be nil otherwise.
func NewRecordSource(cfg *config.Config, cred azcore.TokenCredential) (RecordSource, error) {
	switch cfg.Provider.Kind {
	case config.ProviderMock:
		return mock.NewProvider(cfg.Azure.SubscriptionID), nil
	case config.ProviderAzure:
		if cred == nil {
			return nil, fmt.Errorf("azure provider requires a credential")
		}
		return azure.NewDefenderProvider(cred, azure.Options{
			SubscriptionID: cfg.Azure.SubscriptionID,
		})
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider.Kind)
	}
}
