// Package site declares the storage, certificate and optional CDN of a static website.
package site

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscertificatemanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfront"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// Stack output names read back by the publish tooling.
const (
	OutputBucketName             = "BucketName"
	OutputBucketArn              = "BucketArn"
	OutputWebsiteURL             = "WebsiteUrl"
	OutputCertificateArn         = "CertificateArn"
	OutputDistributionID         = "DistributionId"
	OutputDistributionDomainName = "DistributionDomainName"
)

// AccessMode is how viewers reach the bucket content.
type AccessMode string

const (
	// AccessModeDistribution serves content only through the CDN origin identity.
	AccessModeDistribution AccessMode = "distribution"
	// AccessModePublic serves content straight from the bucket website endpoint.
	AccessModePublic AccessMode = "public"
)

// AccessModeFor returns the single access mode implied by the distribution toggle.
func AccessModeFor(deployDistribution bool) AccessMode {
	if deployDistribution {
		return AccessModeDistribution
	}
	return AccessModePublic
}

// BlockPublicAccessFor returns the bucket public access block for mode.
//
// Both modes accept public-read ACLs on upload. Distribution mode ignores them
// and refuses public bucket policies, so the origin identity grant is the only
// read path.
func BlockPublicAccessFor(mode AccessMode) *awss3.BlockPublicAccessOptions {
	restrict := mode == AccessModeDistribution
	return &awss3.BlockPublicAccessOptions{
		BlockPublicAcls:       jsii.Bool(false),
		IgnorePublicAcls:      jsii.Bool(restrict),
		BlockPublicPolicy:     jsii.Bool(restrict),
		RestrictPublicBuckets: jsii.Bool(restrict),
	}
}

// SiteProps configures a Site. Only DomainName is required.
type SiteProps struct {
	DomainName string
	// BucketName defaults to DomainName.
	BucketName         string
	DeployDistribution bool
	IndexDocument      string
	ErrorDocument      string
}

// Site is the bucket, certificate and optional distribution serving one domain.
type Site struct {
	constructs.Construct

	mode         AccessMode
	bucket       awss3.Bucket
	certificate  awscertificatemanager.Certificate
	identity     awscloudfront.OriginAccessIdentity
	distribution awscloudfront.CloudFrontWebDistribution
}

// NewSite declares the site under scope and adds its stack outputs. With
// DeployDistribution off the bucket is served directly as a public website.
func NewSite(scope constructs.Construct, id string, props *SiteProps) *Site {
	if props == nil {
		props = &SiteProps{}
	}
	bucketName := props.BucketName
	if bucketName == "" {
		bucketName = props.DomainName
	}
	index := props.IndexDocument
	if index == "" {
		index = "index.html"
	}

	this := constructs.NewConstruct(scope, jsii.String(id))
	s := &Site{
		Construct: this,
		mode:      AccessModeFor(props.DeployDistribution),
	}

	s.certificate = awscertificatemanager.NewCertificate(this, jsii.String("cert"), &awscertificatemanager.CertificateProps{
		DomainName: jsii.String(props.DomainName),
		Validation: awscertificatemanager.CertificateValidation_FromDns(nil),
	})

	bucketProps := &awss3.BucketProps{
		BucketName:           jsii.String(bucketName),
		RemovalPolicy:        awscdk.RemovalPolicy_DESTROY,
		AutoDeleteObjects:    jsii.Bool(true),
		WebsiteIndexDocument: jsii.String(index),
		ObjectOwnership:      awss3.ObjectOwnership_OBJECT_WRITER,
		BlockPublicAccess:    awss3.NewBlockPublicAccess(BlockPublicAccessFor(s.mode)),
	}
	if props.ErrorDocument != "" {
		bucketProps.WebsiteErrorDocument = jsii.String(props.ErrorDocument)
	}
	s.bucket = awss3.NewBucket(this, jsii.String("WebsiteBucket"), bucketProps)

	switch s.mode {
	case AccessModeDistribution:
		s.identity = awscloudfront.NewOriginAccessIdentity(this, jsii.String("OriginAccessIdentity"), &awscloudfront.OriginAccessIdentityProps{
			Comment: jsii.String("CloudFront OriginAccessIdentity for " + bucketName),
		})
		s.bucket.GrantRead(s.identity, nil)

		s.distribution = awscloudfront.NewCloudFrontWebDistribution(this, jsii.String("WebSiteDistribution"), &awscloudfront.CloudFrontWebDistributionProps{
			Comment:           jsii.String(props.DomainName),
			DefaultRootObject: jsii.String(index),
			OriginConfigs: &[]*awscloudfront.SourceConfiguration{{
				S3OriginSource: &awscloudfront.S3OriginConfig{
					S3BucketSource:       s.bucket,
					OriginAccessIdentity: s.identity,
				},
				Behaviors: &[]*awscloudfront.Behavior{{IsDefaultBehavior: jsii.Bool(true)}},
			}},
			ViewerCertificate: awscloudfront.ViewerCertificate_FromAcmCertificate(s.certificate, &awscloudfront.ViewerCertificateOptions{
				Aliases: jsii.Strings(props.DomainName),
			}),
		})
	default:
		s.bucket.GrantPublicAccess(nil)
	}

	s.addOutputs(props.DomainName)
	return s
}

func (s *Site) addOutputs(domain string) {
	stack := awscdk.Stack_Of(s.Construct)
	output := func(id string, value *string, description string) {
		awscdk.NewCfnOutput(stack, jsii.String(id), &awscdk.CfnOutputProps{
			Value:       value,
			Description: jsii.String(description),
		})
	}

	output(OutputBucketName, s.bucket.BucketName(), "Bucket holding the generated site")
	output(OutputBucketArn, s.bucket.BucketArn(), "ARN of the site bucket")
	output(OutputCertificateArn, s.certificate.CertificateArn(), "Certificate for "+domain)
	if s.distribution == nil {
		output(OutputWebsiteURL, s.bucket.BucketWebsiteUrl(), "Public bucket website endpoint")
		return
	}
	output(OutputWebsiteURL, jsii.String("https://"+domain), "Site URL")
	output(OutputDistributionID, s.distribution.DistributionId(), "Distribution to invalidate after uploads")
	output(OutputDistributionDomainName, s.distribution.DistributionDomainName(), "Alias target for "+domain)
}

func (s *Site) AccessMode() AccessMode { return s.mode }

func (s *Site) Bucket() awss3.Bucket { return s.bucket }

func (s *Site) Certificate() awscertificatemanager.Certificate { return s.certificate }

// Distribution returns nil when the distribution is disabled.
func (s *Site) Distribution() awscloudfront.CloudFrontWebDistribution { return s.distribution }

// OriginAccessIdentity returns nil when the distribution is disabled.
func (s *Site) OriginAccessIdentity() awscloudfront.OriginAccessIdentity { return s.identity }
