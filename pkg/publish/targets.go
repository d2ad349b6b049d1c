package publish

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff"

	"github.com/theory-cloud/docsite"
	"github.com/theory-cloud/docsite/cdk/site"
)

const defaultDescribeRetries = 8

// Targets are the deployed resources content is published to.
type Targets struct {
	StackName      string `json:"stack_name"`
	BucketName     string `json:"bucket_name"`
	DistributionID string `json:"distribution_id,omitempty"`
	WebsiteURL     string `json:"website_url,omitempty"`
}

// HasDistribution reports whether the stack fronts the bucket with a CDN.
func (t Targets) HasDistribution() bool {
	return t.DistributionID != ""
}

// Resolver reads Targets from CloudFormation stack outputs.
type Resolver struct {
	Client cloudformation.DescribeStacksAPIClient

	// BackOff returns the retry policy for throttled calls. Defaults to
	// exponential backoff with eight retries.
	BackOff func() backoff.BackOff
}

// ResolveTargets reads the outputs of stackName with the default retry policy.
func ResolveTargets(ctx context.Context, client cloudformation.DescribeStacksAPIClient, stackName string) (Targets, error) {
	return Resolver{Client: client}.Resolve(ctx, stackName)
}

func (r Resolver) Resolve(ctx context.Context, stackName string) (Targets, error) {
	stackName = strings.TrimSpace(stackName)
	if stackName == "" {
		return Targets{}, docsite.NewError(docsite.ErrorCodeConfigInvalid, "stack name is required")
	}
	if r.Client == nil {
		return Targets{}, errors.New("publish: cloudformation client is nil")
	}

	policy := r.BackOff
	if policy == nil {
		policy = func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), defaultDescribeRetries)
		}
	}

	var stack *cfntypes.Stack
	describe := func() error {
		resp, err := r.Client.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
			StackName: aws.String(stackName),
		})
		if err != nil {
			if isStackNotExistErr(err) {
				return backoff.Permanent(docsite.WrapError(docsite.ErrorCodeStackNotFound, stackName, err))
			}
			if isThrottlingErr(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		if len(resp.Stacks) != 1 {
			return backoff.Permanent(docsite.NewError(docsite.ErrorCodeStackNotFound, stackName))
		}
		stack = &resp.Stacks[0]
		return nil
	}
	if err := backoff.Retry(describe, backoff.WithContext(policy(), ctx)); err != nil {
		return Targets{}, err
	}

	outputs := make(map[string]string, len(stack.Outputs))
	for _, o := range stack.Outputs {
		outputs[aws.ToString(o.OutputKey)] = strings.TrimSpace(aws.ToString(o.OutputValue))
	}

	t := Targets{
		StackName:      stackName,
		BucketName:     outputs[site.OutputBucketName],
		DistributionID: outputs[site.OutputDistributionID],
		WebsiteURL:     outputs[site.OutputWebsiteURL],
	}
	if t.BucketName == "" {
		return Targets{}, docsite.NewError(docsite.ErrorCodeOutputMissing, stackName+" has no "+site.OutputBucketName+" output")
	}
	return t, nil
}

// isStackNotExistErr returns true if the error is a smithy.APIError reporting
// that the named stack does not exist.
func isStackNotExistErr(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "ValidationError" && strings.Contains(apiErr.ErrorMessage(), "does not exist")
	}
	return false
}

func isThrottlingErr(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "Throttling", "ThrottlingException", "RequestLimitExceeded", "TooManyRequestsException":
		return true
	default:
		return false
	}
}
