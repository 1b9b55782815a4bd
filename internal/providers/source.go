// Package providers defines where raw security assessments come from.
package providers

import (
	"context"
	"fmt"

	"github.com/catherinevee/mdcagent/internal/models"
)

// RecordSource lists and fetches raw assessment records for a scope such as
// "/subscriptions/<id>". Implementations return provider errors unmodified
// so they can be classified and retried by the caller.
type RecordSource interface {
	// Name identifies the source in logs and metrics
	Name() string

	// ListRecords returns every assessment visible at scope, in provider order
	ListRecords(ctx context.Context, scope string) ([]models.Record, error)

	// GetRecord returns one assessment by name
	GetRecord(ctx context.Context, scope, name string) (models.Record, error)
}

// SubscriptionScope returns the ARM scope of a subscription.
func SubscriptionScope(subscriptionID string) string {
	return fmt.Sprintf("/subscriptions/%s", subscriptionID)
}
