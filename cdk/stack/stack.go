// Package stack composes the site and its deploy pipeline into one CloudFormation stack.
package stack

import (
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/cxapi"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/theory-cloud/docsite/cdk/pipeline"
	"github.com/theory-cloud/docsite/cdk/site"
	"github.com/theory-cloud/docsite/pkg/config"
)

// ContextDeployDistribution is the CDK context key overriding the distribution toggle.
const ContextDeployDistribution = "deployDistribution"

type Stack struct {
	awscdk.Stack

	site     *site.Site
	pipeline *pipeline.Pipeline
}

// NewStack validates cfg and declares the site, then the pipeline fed with the
// site's bucket and distribution.
func NewStack(scope constructs.Construct, cfg config.Config) (*Stack, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sched, err := cfg.Schedule()
	if err != nil {
		return nil, err
	}

	props := &awscdk.StackProps{
		StackName:   jsii.String(cfg.StackName),
		Description: jsii.String("Static website " + cfg.Domain),
	}
	if env := environment(cfg); env != nil {
		props.Env = env
	}
	s := &Stack{Stack: awscdk.NewStack(scope, jsii.String(cfg.StackName), props)}

	s.site = site.NewSite(s.Stack, "site", &site.SiteProps{
		DomainName:         cfg.Domain,
		BucketName:         cfg.BucketName,
		DeployDistribution: cfg.DeployDistribution,
		IndexDocument:      cfg.IndexDocument,
		ErrorDocument:      cfg.ErrorDocument,
	})

	pp := &pipeline.PipelineProps{
		Bucket:      s.site.Bucket(),
		StackName:   cfg.StackName,
		ProjectName: cfg.ProjectName(),
		Description: cfg.Build.Description,
		Source: pipeline.Source{
			Owner:      cfg.Source.Owner,
			Repo:       cfg.Source.Repo,
			Branch:     cfg.Source.Branch,
			CloneDepth: cfg.Source.CloneDepth,
		},
		BuildImage:        cfg.Build.Image,
		Timeout:           cfg.Build.Timeout,
		Badge:             cfg.Build.Badge,
		Schedule:          sched,
		Script:            cfg.ScriptOptions(),
		Notifications:     cfg.Notifications.Enabled,
		NotificationEmail: strings.TrimSpace(cfg.Notifications.Email),
		// Ignored by permissions while a distribution is deployed.
		RetireDistribution: cfg.RetireDistribution,
	}
	if d := s.site.Distribution(); d != nil {
		pp.Distribution = d
	}
	s.pipeline, err = pipeline.NewPipeline(s.Stack, "pipeline", pp)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func environment(cfg config.Config) *awscdk.Environment {
	account := strings.TrimSpace(cfg.Account)
	region := strings.TrimSpace(cfg.Region)
	if account == "" && region == "" {
		return nil
	}
	env := &awscdk.Environment{}
	if account != "" {
		env.Account = jsii.String(account)
	}
	if region != "" {
		env.Region = jsii.String(region)
	}
	return env
}

func (s *Stack) Site() *site.Site { return s.site }

func (s *Stack) Pipeline() *pipeline.Pipeline { return s.pipeline }

// NewApp creates the CDK app, applies the deployDistribution context value to
// cfg and declares the stack.
func NewApp(cfg config.Config, props *awscdk.AppProps) (awscdk.App, *Stack, error) {
	app := awscdk.NewApp(props)
	if err := cfg.ApplyContext(app.Node().TryGetContext(jsii.String(ContextDeployDistribution))); err != nil {
		return nil, nil, err
	}
	s, err := NewStack(app, cfg)
	if err != nil {
		return nil, nil, err
	}
	return app, s, nil
}

// Synth writes the cloud assembly for app.
func Synth(app awscdk.App) cxapi.CloudAssembly {
	return app.Synth(nil)
}
