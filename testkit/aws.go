package testkit

import (
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// APIError builds the error shape AWS SDK clients return for service faults.
func APIError(code, message string) error {
	return &smithy.GenericAPIError{Code: code, Message: message, Fault: smithy.FaultClient}
}

// StackNotFound is the error CloudFormation returns for an unknown stack name.
func StackNotFound(stackName string) error {
	return APIError("ValidationError", "Stack with id "+stackName+" does not exist")
}

// FakeCloudFormationClient serves DescribeStacks from a map of stack outputs.
//
// Queued errors are returned, in order, before any stack lookup.
type FakeCloudFormationClient struct {
	mu sync.Mutex

	Stacks map[string]map[string]string
	Errors []error
	Calls  int
}

func NewFakeCloudFormationClient() *FakeCloudFormationClient {
	return &FakeCloudFormationClient{Stacks: map[string]map[string]string{}}
}

// PutStack registers stackName with outputs.
func (f *FakeCloudFormationClient) PutStack(stackName string, outputs map[string]string) {
	f.mu.Lock()
	f.Stacks[stackName] = outputs
	f.mu.Unlock()
}

func (f *FakeCloudFormationClient) DescribeStacks(
	_ context.Context,
	params *cloudformation.DescribeStacksInput,
	_ ...func(*cloudformation.Options),
) (*cloudformation.DescribeStacksOutput, error) {
	if f == nil {
		return nil, errors.New("testkit: cloudformation client is nil")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++

	if len(f.Errors) > 0 {
		err := f.Errors[0]
		f.Errors = f.Errors[1:]
		return nil, err
	}

	name := ""
	if params != nil {
		name = aws.ToString(params.StackName)
	}
	outputs, ok := f.Stacks[name]
	if !ok {
		return nil, StackNotFound(name)
	}

	keys := make([]string, 0, len(outputs))
	for k := range outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	stack := cfntypes.Stack{
		StackName:   aws.String(name),
		StackStatus: cfntypes.StackStatusUpdateComplete,
	}
	for _, k := range keys {
		stack.Outputs = append(stack.Outputs, cfntypes.Output{
			OutputKey:   aws.String(k),
			OutputValue: aws.String(outputs[k]),
		})
	}
	return &cloudformation.DescribeStacksOutput{Stacks: []cfntypes.Stack{stack}}, nil
}

// UploadedObject is one object received by FakeUploader.
type UploadedObject struct {
	Bucket      string
	Key         string
	ACL         string
	ContentType string
	Body        []byte
}

// FakeUploader records uploads in memory. FailKeys makes uploads of those keys fail.
type FakeUploader struct {
	mu sync.Mutex

	Objects  map[string]UploadedObject
	FailKeys map[string]error
}

func NewFakeUploader() *FakeUploader {
	return &FakeUploader{Objects: map[string]UploadedObject{}}
}

func (f *FakeUploader) Upload(
	ctx context.Context,
	input *s3.PutObjectInput,
	_ ...func(*manager.Uploader),
) (*manager.UploadOutput, error) {
	if f == nil {
		return nil, errors.New("testkit: uploader is nil")
	}
	if input == nil {
		return nil, errors.New("testkit: put object input is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := aws.ToString(input.Key)
	f.mu.Lock()
	failErr := f.FailKeys[key]
	f.mu.Unlock()
	if failErr != nil {
		return nil, failErr
	}

	var body []byte
	if input.Body != nil {
		b, err := io.ReadAll(input.Body)
		if err != nil {
			return nil, err
		}
		body = b
	}

	obj := UploadedObject{
		Bucket:      aws.ToString(input.Bucket),
		Key:         key,
		ACL:         string(input.ACL),
		ContentType: aws.ToString(input.ContentType),
		Body:        body,
	}
	f.mu.Lock()
	f.Objects[key] = obj
	f.mu.Unlock()

	return &manager.UploadOutput{
		Key:      aws.String(key),
		Location: "https://" + obj.Bucket + ".s3.amazonaws.com/" + key,
	}, nil
}

// Keys returns the uploaded keys in sorted order.
func (f *FakeUploader) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.Objects))
	for k := range f.Objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FakeCloudFrontClient accepts invalidations and reports them InProgress
// until PendingPolls GetInvalidation calls have been made.
type FakeCloudFrontClient struct {
	mu sync.Mutex

	Batches      []cftypes.InvalidationBatch
	CreateErr    error
	PendingPolls int
	Polls        int
	nextID       int
}

func NewFakeCloudFrontClient() *FakeCloudFrontClient {
	return &FakeCloudFrontClient{nextID: 1}
}

func (f *FakeCloudFrontClient) CreateInvalidation(
	_ context.Context,
	params *cloudfront.CreateInvalidationInput,
	_ ...func(*cloudfront.Options),
) (*cloudfront.CreateInvalidationOutput, error) {
	if f == nil {
		return nil, errors.New("testkit: cloudfront client is nil")
	}
	if params == nil || params.InvalidationBatch == nil {
		return nil, errors.New("testkit: invalidation batch is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	f.Batches = append(f.Batches, *params.InvalidationBatch)
	id := "I" + strconv.Itoa(f.nextID)
	f.nextID++

	return &cloudfront.CreateInvalidationOutput{
		Invalidation: &cftypes.Invalidation{
			Id:                aws.String(id),
			Status:            aws.String("InProgress"),
			InvalidationBatch: params.InvalidationBatch,
		},
	}, nil
}

func (f *FakeCloudFrontClient) GetInvalidation(
	_ context.Context,
	params *cloudfront.GetInvalidationInput,
	_ ...func(*cloudfront.Options),
) (*cloudfront.GetInvalidationOutput, error) {
	if f == nil {
		return nil, errors.New("testkit: cloudfront client is nil")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Polls++

	status := "Completed"
	if f.Polls <= f.PendingPolls {
		status = "InProgress"
	}
	return &cloudfront.GetInvalidationOutput{
		Invalidation: &cftypes.Invalidation{
			Id:     params.Id,
			Status: aws.String(status),
		},
	}, nil
}
