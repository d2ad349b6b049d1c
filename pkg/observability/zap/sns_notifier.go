package zap

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/theory-cloud/docsite/pkg/observability"
	"github.com/theory-cloud/docsite/pkg/sanitization"
)

const (
	defaultSubject = "docsite deploy error"

	maxSubjectLen = 100
	maxMessageLen = 256 * 1024
)

// SNSPublisher is the subset of the SNS client the notifier uses.
type SNSPublisher interface {
	Publish(
		ctx context.Context,
		params *sns.PublishInput,
		optFns ...func(*sns.Options),
	) (*sns.PublishOutput, error)
}

type SNSNotifierOptions struct {
	Subject string
	// LookupEnv supplies the build context attached to each message; defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

type snsNotifier struct {
	client    SNSPublisher
	topicARN  string
	subject   string
	lookupEnv func(string) (string, bool)
}

var _ observability.ErrorNotifier = (*snsNotifier)(nil)

func NewSNSNotifier(client SNSPublisher, topicARN string, opts SNSNotifierOptions) observability.ErrorNotifier {
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &snsNotifier{
		client:    client,
		topicARN:  strings.TrimSpace(topicARN),
		subject:   strings.TrimSpace(opts.Subject),
		lookupEnv: lookup,
	}
}

func (n *snsNotifier) Notify(ctx context.Context, entry observability.LogEntry) error {
	if n == nil || n.client == nil {
		return errors.New("observability/zap: sns notifier is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if n.topicARN == "" {
		return errors.New("observability/zap: sns topic arn is empty")
	}

	env := map[string]string{}
	for _, key := range []string{"AWS_REGION", "CODEBUILD_BUILD_ARN", "CODEBUILD_RESOLVED_SOURCE_VERSION", "CODEBUILD_INITIATOR"} {
		if v, ok := n.lookupEnv(key); ok && v != "" {
			env[strings.ToLower(key)] = v
		}
	}

	// Keys marshal sorted, so build context survives truncation of a large entry.
	body, err := json.Marshal(map[string]any{
		"entry": entry,
		"build": env,
	})
	if err != nil {
		return err
	}

	subject := n.subject
	if subject == "" {
		subject = defaultSubject
		if entry.Scope.Stack != "" {
			subject += ": " + entry.Scope.Stack
		}
	}
	subject = asciiSubject(sanitization.SanitizeLogString(subject))
	if subject == "" {
		subject = defaultSubject
	}

	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(truncateUTF8(string(body), maxMessageLen)),
	})
	return err
}

// asciiSubject keeps printable ASCII only, as SNS requires for subjects.
func asciiSubject(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 0x20 && r < 0x7f {
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if len(out) > maxSubjectLen {
		out = strings.TrimSpace(out[:maxSubjectLen])
	}
	return out
}

// truncateUTF8 cuts s to at most limit bytes without splitting a rune.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

