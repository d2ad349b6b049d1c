package zap

import (
	"context"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// TopicARNEnvVar is set on the deploy build project when failure notifications are enabled.
const TopicARNEnvVar = "DOCSITE_ERROR_TOPIC_ARN"

type EnvironmentErrorNotificationsOptions struct {
	TopicARNEnvVars []string
	SubjectEnvVars  []string

	// Client overrides the SNS client built from the default AWS config.
	Client SNSPublisher
}

// WithEnvironmentErrorNotifications enables SNS notifications when one of the
// topic variables is set. It is resolved after every other option.
func WithEnvironmentErrorNotifications(ctx context.Context, config EnvironmentErrorNotificationsOptions) Option {
	return func(opts *loggerOptions) {
		if ctx == nil {
			ctx = context.Background()
		}
		opts.deferred = append(opts.deferred, func(opts *loggerOptions) {
			lookup := func(keys []string) string { return firstEnvValue(opts.lookupEnv, keys...) }

			topicARN := lookup(config.TopicARNEnvVars)
			if topicARN == "" {
				return
			}

			client := config.Client
			if client == nil {
				awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
				if err != nil {
					opts.initErr = err
					return
				}
				client = sns.NewFromConfig(awsCfg)
			}

			opts.notifier = NewSNSNotifier(client, topicARN, SNSNotifierOptions{
				Subject:   lookup(config.SubjectEnvVars),
				LookupEnv: opts.lookupEnv,
			})
		})
	}
}

func DefaultEnvironmentErrorNotifications() EnvironmentErrorNotificationsOptions {
	return EnvironmentErrorNotificationsOptions{
		TopicARNEnvVars: []string{TopicARNEnvVar, "ERROR_NOTIFICATIONS_TOPIC_ARN"},
		SubjectEnvVars:  []string{"DOCSITE_ERROR_SUBJECT"},
	}
}

func firstEnvValue(lookup func(string) (string, bool), keys ...string) string {
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
