// Package azure reads security assessments from Microsoft Defender for Cloud.
package azure

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/security/armsecurity"

	"github.com/catherinevee/mdcagent/internal/models"
	"github.com/catherinevee/mdcagent/internal/shared/cache"
	"github.com/catherinevee/mdcagent/internal/shared/logging"
)

// DefaultMetadataTTL bounds how long the assessment metadata catalog is
// reused. The catalog changes only when Microsoft ships new assessments.
const DefaultMetadataTTL = time.Hour

const catalogKey = "assessment-metadata"

// Options configures a DefenderProvider
type Options struct {
	SubscriptionID string
	// ClientOptions overrides the ARM pipeline (cloud, transport). SDK
	// retries are always disabled; the service applies its own policy.
	ClientOptions *arm.ClientOptions
	// MetadataTTL is the catalog lifetime, DefaultMetadataTTL when zero.
	MetadataTTL time.Duration
	// SkipMetadata disables severity and remediation enrichment.
	SkipMetadata bool
}

// DefenderProvider implements providers.RecordSource on the armsecurity
// assessments API.
type DefenderProvider struct {
	assessments  *armsecurity.AssessmentsClient
	metadata     *armsecurity.AssessmentsMetadataClient
	catalog      *cache.Cache[string, metadataCatalog]
	skipMetadata bool
}

// NewDefenderProvider creates the assessments and metadata clients.
func NewDefenderProvider(cred azcore.TokenCredential, opts Options) (*DefenderProvider, error) {
	clientOptions := &arm.ClientOptions{}
	if opts.ClientOptions != nil {
		copied := *opts.ClientOptions
		clientOptions = &copied
	}
	clientOptions.Retry.MaxRetries = -1
	if clientOptions.Telemetry.ApplicationID == "" {
		clientOptions.Telemetry.ApplicationID = "mdcagent"
	}

	assessments, err := armsecurity.NewAssessmentsClient(cred, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create assessments client: %w", err)
	}

	metadata, err := armsecurity.NewAssessmentsMetadataClient(opts.SubscriptionID, cred, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create assessment metadata client: %w", err)
	}

	ttl := opts.MetadataTTL
	if ttl <= 0 {
		ttl = DefaultMetadataTTL
	}

	return &DefenderProvider{
		assessments:  assessments,
		metadata:     metadata,
		catalog:      cache.New[string, metadataCatalog](ttl),
		skipMetadata: opts.SkipMetadata,
	}, nil
}

// Name returns the provider name
func (p *DefenderProvider) Name() string {
	return "azure"
}

// ListRecords pages through every assessment at scope.
func (p *DefenderProvider) ListRecords(ctx context.Context, scope string) ([]models.Record, error) {
	catalog := p.metadataCatalog(ctx)

	records := []models.Record{}
	pager := p.assessments.NewListPager(scope, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list assessments for %s: %w", scope, err)
		}

		for _, assessment := range page.Value {
			if assessment == nil {
				continue
			}
			records = append(records, toRecord(assessment, catalog))
		}
	}

	logger := logging.FromContext(ctx)
	logger.Debug().
		Str("component", "azure").
		Str("scope", scope).
		Int("count", len(records)).
		Msg("Listed assessments")

	return records, nil
}

// GetRecord fetches one assessment with its metadata expanded.
func (p *DefenderProvider) GetRecord(ctx context.Context, scope, name string) (models.Record, error) {
	resp, err := p.assessments.Get(ctx, scope, name, &armsecurity.AssessmentsClientGetOptions{
		Expand: to.Ptr(armsecurity.ExpandEnumMetadata),
	})
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to get assessment %s: %w", name, err)
	}

	return toRecord(&resp.AssessmentResponse, p.metadataCatalog(ctx)), nil
}

// metadataCatalog returns the cached catalog, loading it on a miss. A failed
// load is logged and yields an empty catalog so listing still succeeds with
// default severities.
func (p *DefenderProvider) metadataCatalog(ctx context.Context) metadataCatalog {
	if p.skipMetadata {
		return nil
	}
	if catalog, ok := p.catalog.Get(catalogKey); ok {
		return catalog
	}

	catalog, err := p.loadMetadata(ctx)
	if err != nil {
		logger := logging.FromContext(ctx)
		logger.Warn().
			Str("component", "azure").
			Err(err).
			Msg("Assessment metadata unavailable, using default severities")
		return nil
	}

	p.catalog.Set(catalogKey, catalog)
	return catalog
}

func (p *DefenderProvider) loadMetadata(ctx context.Context) (metadataCatalog, error) {
	catalog := metadataCatalog{}

	pager := p.metadata.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list assessment metadata: %w", err)
		}
		for _, item := range page.Value {
			if item == nil || item.Name == nil || item.Properties == nil {
				continue
			}
			catalog[*item.Name] = metadataEntry{
				DisplayName:            deref(item.Properties.DisplayName),
				Severity:               deref(item.Properties.Severity),
				RemediationDescription: deref(item.Properties.RemediationDescription),
			}
		}
	}

	return catalog, nil
}
