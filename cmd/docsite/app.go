package main

import (
	"context"
	"io"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/theory-cloud/docsite/pkg/config"
	"github.com/theory-cloud/docsite/pkg/logger"
	"github.com/theory-cloud/docsite/pkg/observability"
	docsitezap "github.com/theory-cloud/docsite/pkg/observability/zap"
	"github.com/theory-cloud/docsite/pkg/publish"
)

// clients are the AWS APIs the operator commands call.
type clients struct {
	CloudFormation cloudformation.DescribeStacksAPIClient
	Uploader       publish.Uploader
	CloudFront     publish.InvalidationAPI
}

type app struct {
	stdout io.Writer
	stderr io.Writer

	lookupEnv  func(string) (string, bool)
	newClients func(ctx context.Context, region string) (*clients, error)

	configPath string
	logLevel   string
	logFormat  string

	cfg        config.Config
	log        observability.StructuredLogger
	prevLogger observability.StructuredLogger
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:     stdout,
		stderr:     stderr,
		lookupEnv:  os.LookupEnv,
		newClients: awsClients,
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docsite",
		Short: "Deploy and operate a static documentation site on AWS",
		Long: `docsite declares a static documentation website: an S3 bucket, an optional
CloudFront distribution, an ACM certificate and a CodeBuild project that
regenerates and redeploys the site on every push and every three days.

The cdk CLI runs "docsite synth" through cdk.json; the remaining commands
inspect the definition or operate the deployed site.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "config file (default "+config.DefaultFile+" when present)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: console or json")

	root.AddCommand(
		a.synthCmd(),
		a.policyCmd(),
		a.buildspecCmd(),
		a.scheduleCmd(),
		a.outputsCmd(),
		a.publishCmd(),
		a.invalidateCmd(),
		newVersionCmd(a),
	)
	return root
}

// setup loads the configuration and installs the process logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	a.cfg = cfg

	log, err := docsitezap.NewZapLogger(observability.LoggerConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: a.stderr,
	},
		docsitezap.WithLookupEnv(a.lookupEnv),
		docsitezap.WithEnvironmentErrorNotifications(cmd.Context(), docsitezap.DefaultEnvironmentErrorNotifications()),
	)
	if err != nil {
		return err
	}

	buildID, _ := a.lookupEnv("CODEBUILD_BUILD_ID")
	a.log = log.WithScope(observability.Scope{
		Stack:     cfg.StackName,
		Stage:     cfg.Stage,
		BuildID:   strings.TrimSpace(buildID),
		Operation: cmd.Name(),
	})
	a.prevLogger = logger.SetLogger(a.log)
	return nil
}

func (a *app) logger() observability.StructuredLogger {
	if a.log == nil {
		return observability.NewNoOpLogger()
	}
	return a.log
}

// close flushes pending notifications and restores the previous global logger.
func (a *app) close() {
	if a.log == nil {
		return
	}
	_ = a.log.Close()
	logger.SetLogger(a.prevLogger)
	a.log = nil
}

func awsClients(ctx context.Context, region string) (*clients, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if awsCfg.Region == "" {
		awsCfg.Region = "us-east-1"
	}
	awsCfg.RetryMaxAttempts = max(awsCfg.RetryMaxAttempts, 5)

	return &clients{
		CloudFormation: cloudformation.NewFromConfig(awsCfg),
		Uploader:       manager.NewUploader(s3.NewFromConfig(awsCfg)),
		CloudFront:     cloudfront.NewFromConfig(awsCfg, func(o *cloudfront.Options) { o.Region = "us-east-1" }),
	}, nil
}
