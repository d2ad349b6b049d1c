// Package pipeline declares the build project that regenerates and redeploys
// the site on every push and on a fixed schedule.
package pipeline

import (
	"errors"
	"time"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfront"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodebuild"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awseventstargets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssnssubscriptions"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/theory-cloud/docsite/pkg/buildspec"
	"github.com/theory-cloud/docsite/pkg/naming"
	docsitezap "github.com/theory-cloud/docsite/pkg/observability/zap"
	"github.com/theory-cloud/docsite/pkg/permissions"
	"github.com/theory-cloud/docsite/pkg/schedule"
)

const uploadSid = "DeployUpload"

var ErrMissingBucket = errors.New("pipeline: bucket is required")

type Source struct {
	Owner  string
	Repo   string
	Branch string
	// CloneDepth 0 clones the full history.
	CloneDepth int
}

// PipelineProps configures a Pipeline. Bucket is required; zero values take
// the botodocs defaults.
type PipelineProps struct {
	Bucket awss3.IBucket
	// Distribution is nil when the site has no CDN.
	Distribution awscloudfront.IDistribution
	// RetireDistribution grants cleanup of a distribution this deploy removes.
	RetireDistribution bool

	// StackName scopes role permissions; defaults to the enclosing stack's name.
	StackName   string
	ProjectName string
	Description string

	Source     Source
	BuildImage string
	Timeout    time.Duration
	Badge      bool
	Schedule   schedule.Cron
	Script     buildspec.Options

	Notifications     bool
	NotificationEmail string
}

// Pipeline is the deploy build project with its triggers and grants.
type Pipeline struct {
	constructs.Construct

	project    awscodebuild.Project
	rule       awsevents.Rule
	topic      awssns.Topic
	statements []permissions.Statement
}

// NewPipeline declares the build project, its push webhook and rebuild
// schedule, the role statements for the managed resources, and the optional
// failure topic.
func NewPipeline(scope constructs.Construct, id string, props *PipelineProps) (*Pipeline, error) {
	if props == nil || props.Bucket == nil {
		return nil, ErrMissingBucket
	}

	this := constructs.NewConstruct(scope, jsii.String(id))
	stack := awscdk.Stack_Of(this)
	p := &Pipeline{Construct: this}

	stackName := props.StackName
	if stackName == "" {
		stackName = *stack.StackName()
	}
	projectName := props.ProjectName
	if projectName == "" {
		projectName = naming.ResourceName(stackName, "deploy-site")
	}

	statements, err := permissions.ForResources(permissions.Scope{
		Partition:   *stack.Partition(),
		Account:     *stack.Account(),
		Region:      *stack.Region(),
		StackName:   stackName,
		ProjectName: projectName,
		BucketArn:   *props.Bucket.BucketArn(),
	}, permissions.Resources{
		Distribution:       props.Distribution != nil,
		Notifications:      props.Notifications || props.NotificationEmail != "",
		RetireDistribution: props.RetireDistribution,
	})
	if err != nil {
		return nil, err
	}
	p.statements = statements

	script := props.Script
	script.Distribution = props.Distribution != nil
	script = script.WithDefaults()

	env := map[string]*awscodebuild.BuildEnvironmentVariable{
		script.BucketEnvVar: {Value: props.Bucket.BucketName()},
	}
	if props.Distribution != nil {
		env[script.DistributionEnvVar] = &awscodebuild.BuildEnvironmentVariable{Value: props.Distribution.DistributionId()}
	}

	if props.Notifications || props.NotificationEmail != "" {
		p.topic = awssns.NewTopic(this, jsii.String("build-failures"), &awssns.TopicProps{
			TopicName:   jsii.String(naming.ResourceName(stackName, "build-failures")),
			DisplayName: jsii.String(projectName + " failures"),
		})
		if props.NotificationEmail != "" {
			p.topic.AddSubscription(awssnssubscriptions.NewEmailSubscription(jsii.String(props.NotificationEmail), nil))
		}
		env[docsitezap.TopicARNEnvVar] = &awscodebuild.BuildEnvironmentVariable{Value: p.topic.TopicArn()}
	}

	spec := buildspec.Spec(script)
	p.project = awscodebuild.NewProject(this, jsii.String("deploy-site"), &awscodebuild.ProjectProps{
		ProjectName:          jsii.String(projectName),
		Description:          jsii.String(props.Description),
		Timeout:              awscdk.Duration_Minutes(jsii.Number(timeoutOrDefault(props.Timeout).Minutes())),
		Badge:                jsii.Bool(props.Badge),
		Source:               gitHubSource(props.Source),
		Environment:          &awscodebuild.BuildEnvironment{BuildImage: awscodebuild.LinuxBuildImage_FromCodeBuildImageId(jsii.String(imageOrDefault(props.BuildImage)))},
		EnvironmentVariables: &env,
		BuildSpec:            awscodebuild.BuildSpec_FromObject(&spec),
	})

	for _, stmt := range statements {
		p.project.AddToRolePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
			Sid:       jsii.String(stmt.Sid),
			Actions:   jsii.Strings(stmt.Actions...),
			Resources: jsii.Strings(stmt.Resources...),
		}))
	}

	sched := props.Schedule
	if sched == (schedule.Cron{}) {
		sched = schedule.Default()
	}
	p.rule = awsevents.NewRule(this, jsii.String("build-schedule"), &awsevents.RuleProps{
		Description: jsii.String("Rebuilds " + projectName + " on " + sched.String()),
		Schedule:    awsevents.Schedule_Expression(jsii.String(sched.Expression())),
		Targets:     &[]awsevents.IRuleTarget{awseventstargets.NewCodeBuildProject(p.project, nil)},
	})

	props.Bucket.AddToResourcePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Sid:        jsii.String(uploadSid),
		Actions:    jsii.Strings("s3:PutObject", "s3:PutObjectAcl"),
		Principals: &[]awsiam.IPrincipal{p.project.Role()},
		Resources:  &[]*string{props.Bucket.ArnForObjects(jsii.String("*"))},
	}))

	if p.topic != nil {
		p.project.OnBuildFailed(jsii.String("build-failed"), &awsevents.OnEventOptions{
			Target: awseventstargets.NewSnsTopic(p.topic, nil),
		})
	}

	return p, nil
}

func gitHubSource(src Source) awscodebuild.ISource {
	props := &awscodebuild.GitHubSourceProps{
		Owner:   jsii.String(src.Owner),
		Repo:    jsii.String(src.Repo),
		Webhook: jsii.Bool(true),
		WebhookFilters: &[]awscodebuild.FilterGroup{
			awscodebuild.FilterGroup_InEventOf(awscodebuild.EventAction_PUSH).AndBranchIs(jsii.String(src.Branch)),
		},
	}
	if src.CloneDepth > 0 {
		props.CloneDepth = jsii.Number(float64(src.CloneDepth))
	}
	return awscodebuild.Source_GitHub(props)
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return buildspec.DefaultTimeout
	}
	return d
}

func imageOrDefault(image string) string {
	if image == "" {
		return buildspec.DefaultImage
	}
	return image
}

func (p *Pipeline) Project() awscodebuild.Project { return p.project }

func (p *Pipeline) ScheduleRule() awsevents.Rule { return p.rule }

// FailureTopic returns nil when notifications are disabled.
func (p *Pipeline) FailureTopic() awssns.Topic { return p.topic }

// Statements returns the role statements granted to the build.
func (p *Pipeline) Statements() []permissions.Statement {
	return append([]permissions.Statement(nil), p.statements...)
}
