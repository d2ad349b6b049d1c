package publish

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"

	"github.com/theory-cloud/docsite"
	"github.com/theory-cloud/docsite/pkg/logger"
	"github.com/theory-cloud/docsite/pkg/observability"
)

const DefaultWaitTimeout = 15 * time.Minute

// InvalidationAPI is the subset of the CloudFront client used by Invalidator.
type InvalidationAPI interface {
	CreateInvalidation(ctx context.Context, params *cloudfront.CreateInvalidationInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error)
	cloudfront.GetInvalidationAPIClient
}

type Invalidator struct {
	Client InvalidationAPI
	IDs    IDGenerator
	// Logger defaults to the process logger from pkg/logger.
	Logger observability.StructuredLogger

	// Wait blocks Invalidate until CloudFront reports the invalidation completed.
	Wait        bool
	WaitTimeout time.Duration
	// WaiterOptions tune the completion poll, mainly its delays.
	WaiterOptions []func(*cloudfront.InvalidationCompletedWaiterOptions)
}

// Invalidation describes a submitted cache invalidation.
type Invalidation struct {
	ID              string   `json:"id"`
	DistributionID  string   `json:"distribution_id"`
	CallerReference string   `json:"caller_reference"`
	Status          string   `json:"status"`
	Paths           []string `json:"paths"`
}

// Invalidate submits an invalidation for paths, or "/*" when none are given.
func (i *Invalidator) Invalidate(ctx context.Context, distributionID string, paths []string) (Invalidation, error) {
	if i == nil || i.Client == nil {
		return Invalidation{}, errors.New("publish: cloudfront client is nil")
	}
	distributionID = strings.TrimSpace(distributionID)
	if distributionID == "" {
		return Invalidation{}, docsite.NewError(docsite.ErrorCodeConfigInvalid, "distribution id is required")
	}
	paths = normalizePaths(paths)

	ids := i.IDs
	if ids == nil {
		ids = ULIDGenerator{}
	}
	log := i.Logger
	if log == nil {
		log = logger.For("publish.invalidate")
	}

	ref := ids.NewID()
	out, err := i.Client.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(distributionID),
		InvalidationBatch: &cftypes.InvalidationBatch{
			CallerReference: aws.String(ref),
			Paths: &cftypes.Paths{
				Quantity: aws.Int32(int32(len(paths))),
				Items:    paths,
			},
		},
	})
	if err != nil {
		return Invalidation{}, docsite.WrapError(docsite.ErrorCodePublishFailed, "create invalidation", err)
	}

	inv := Invalidation{
		DistributionID:  distributionID,
		CallerReference: ref,
		Paths:           paths,
	}
	if out != nil && out.Invalidation != nil {
		inv.ID = aws.ToString(out.Invalidation.Id)
		inv.Status = aws.ToString(out.Invalidation.Status)
	}
	log.Info("created invalidation", map[string]any{
		"distribution_id": distributionID,
		"invalidation_id": inv.ID,
		"paths":           paths,
	})

	if !i.Wait || inv.ID == "" {
		return inv, nil
	}

	timeout := i.WaitTimeout
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	waiter := cloudfront.NewInvalidationCompletedWaiter(i.Client, i.WaiterOptions...)
	if err := waiter.Wait(ctx, &cloudfront.GetInvalidationInput{
		DistributionId: aws.String(distributionID),
		Id:             aws.String(inv.ID),
	}, timeout); err != nil {
		return inv, docsite.WrapError(docsite.ErrorCodePublishFailed, "wait for invalidation "+inv.ID, err)
	}
	inv.Status = "Completed"
	log.Info("invalidation completed", map[string]any{"invalidation_id": inv.ID})
	return inv, nil
}

func normalizePaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	seen := map[string]bool{}
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	if len(out) == 0 {
		out = append(out, "/*")
	}
	return out
}
