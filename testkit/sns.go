package testkit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type SNSPublishCall struct {
	TopicARN string
	Subject  string
	Message  string
}

// FakeSNSClient records Publish calls. Failed publishes are recorded too.
type FakeSNSClient struct {
	mu sync.Mutex

	Calls      []SNSPublishCall
	PublishErr error
	nextID     int
}

func NewFakeSNSClient() *FakeSNSClient {
	return &FakeSNSClient{nextID: 1}
}

func (f *FakeSNSClient) Publish(
	_ context.Context,
	params *sns.PublishInput,
	_ ...func(*sns.Options),
) (*sns.PublishOutput, error) {
	if f == nil {
		return nil, errors.New("testkit: sns client is nil")
	}
	if params == nil {
		return nil, errors.New("testkit: publish input is nil")
	}

	topicARN := strings.TrimSpace(aws.ToString(params.TopicArn))
	if topicARN == "" {
		return nil, errors.New("testkit: topic arn is empty")
	}

	f.mu.Lock()
	f.Calls = append(f.Calls, SNSPublishCall{
		TopicARN: topicARN,
		Subject:  aws.ToString(params.Subject),
		Message:  aws.ToString(params.Message),
	})
	err := f.PublishErr
	id := f.nextID
	f.nextID++
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-" + strconv.Itoa(id))}, nil
}

// Published returns the calls made to topicARN, or every call when it is empty.
func (f *FakeSNSClient) Published(topicARN string) []SNSPublishCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []SNSPublishCall
	for _, c := range f.Calls {
		if topicARN == "" || c.TopicARN == topicARN {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeSNSClient) Reset() {
	f.mu.Lock()
	f.Calls = nil
	f.nextID = 1
	f.mu.Unlock()
}
