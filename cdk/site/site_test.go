package site

import (
	"strings"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/docsite/testkit"
)

func botodocs(deployDistribution bool) *SiteProps {
	return &SiteProps{
		DomainName:         "botodocs.com",
		DeployDistribution: deployDistribution,
		IndexDocument:      "index.html",
		ErrorDocument:      "error.html",
	}
}

func synth(t *testing.T, props *SiteProps) (*Site, assertions.Template) {
	t.Helper()
	stack := testkit.NewStack("botodocs")
	s := NewSite(stack, "site", props)
	return s, testkit.Template(stack)
}

func isPublicPrincipal(p any) bool {
	switch v := p.(type) {
	case string:
		return v == "*"
	case map[string]any:
		for _, aws := range testkit.StringsOf(v["AWS"]) {
			if aws == "*" {
				return true
			}
		}
	}
	return false
}

func readsObjects(stmt map[string]any) bool {
	for _, a := range testkit.StringsOf(stmt["Action"]) {
		if strings.HasPrefix(a, "s3:GetObject") {
			return true
		}
	}
	return false
}

func TestAccessModeFor(t *testing.T) {
	t.Parallel()

	require.Equal(t, AccessModeDistribution, AccessModeFor(true))
	require.Equal(t, AccessModePublic, AccessModeFor(false))

	dist := BlockPublicAccessFor(AccessModeDistribution)
	require.False(t, *dist.BlockPublicAcls)
	require.True(t, *dist.IgnorePublicAcls)
	require.True(t, *dist.BlockPublicPolicy)
	require.True(t, *dist.RestrictPublicBuckets)

	public := BlockPublicAccessFor(AccessModePublic)
	require.False(t, *public.BlockPublicAcls)
	require.False(t, *public.IgnorePublicAcls)
	require.False(t, *public.BlockPublicPolicy)
	require.False(t, *public.RestrictPublicBuckets)
}

func TestNewSite_Botodocs(t *testing.T) {
	s, tpl := synth(t, botodocs(true))

	require.Equal(t, AccessModeDistribution, s.AccessMode())
	require.NotNil(t, s.Distribution())
	require.NotNil(t, s.OriginAccessIdentity())

	tpl.ResourceCountIs(jsii.String("AWS::CertificateManager::Certificate"), jsii.Number(1))
	tpl.ResourceCountIs(jsii.String("AWS::S3::Bucket"), jsii.Number(1))
	tpl.ResourceCountIs(jsii.String("AWS::CloudFront::CloudFrontOriginAccessIdentity"), jsii.Number(1))
	tpl.ResourceCountIs(jsii.String("AWS::CloudFront::Distribution"), jsii.Number(1))

	tpl.HasResourceProperties(jsii.String("AWS::CertificateManager::Certificate"), map[string]any{
		"DomainName":       "botodocs.com",
		"ValidationMethod": "DNS",
	})
	tpl.HasResourceProperties(jsii.String("AWS::S3::Bucket"), map[string]any{
		"BucketName": "botodocs.com",
		"WebsiteConfiguration": map[string]any{
			"IndexDocument": "index.html",
			"ErrorDocument": "error.html",
		},
		"OwnershipControls": map[string]any{
			"Rules": []any{map[string]any{"ObjectOwnership": "ObjectWriter"}},
		},
		"PublicAccessBlockConfiguration": map[string]any{
			"BlockPublicAcls":       false,
			"IgnorePublicAcls":      true,
			"BlockPublicPolicy":     true,
			"RestrictPublicBuckets": true,
		},
	})
	tpl.HasResource(jsii.String("AWS::S3::Bucket"), map[string]any{
		"DeletionPolicy": "Delete",
	})
	tpl.HasResourceProperties(jsii.String("AWS::CloudFront::Distribution"), map[string]any{
		"DistributionConfig": assertions.Match_ObjectLike(&map[string]any{
			"Aliases":           []any{"botodocs.com"},
			"DefaultRootObject": "index.html",
		}),
	})

	outputs := testkit.Outputs(tpl)
	for _, name := range []string{OutputBucketName, OutputBucketArn, OutputWebsiteURL, OutputCertificateArn, OutputDistributionID, OutputDistributionDomainName} {
		require.Contains(t, outputs, name)
	}
	require.Equal(t, "https://botodocs.com", outputs[OutputWebsiteURL]["Value"])
}

func TestNewSite_ReadOnlyThroughOriginIdentity(t *testing.T) {
	_, tpl := synth(t, botodocs(true))

	stmts := testkit.PolicyStatements(tpl, "AWS::S3::BucketPolicy")
	require.NotEmpty(t, stmts)

	reads := 0
	for _, stmt := range stmts {
		require.False(t, isPublicPrincipal(stmt["Principal"]), "public statement %v", stmt)
		if !readsObjects(stmt) {
			continue
		}
		reads++
		principal, ok := stmt["Principal"].(map[string]any)
		require.True(t, ok, "principal %v", stmt["Principal"])
		require.Contains(t, principal, "CanonicalUser")
	}
	require.Positive(t, reads)
}

func TestNewSite_PublicWithoutDistribution(t *testing.T) {
	s, tpl := synth(t, botodocs(false))

	require.Equal(t, AccessModePublic, s.AccessMode())
	require.Nil(t, s.Distribution())
	require.Nil(t, s.OriginAccessIdentity())

	tpl.ResourceCountIs(jsii.String("AWS::CloudFront::Distribution"), jsii.Number(0))
	tpl.ResourceCountIs(jsii.String("AWS::CloudFront::CloudFrontOriginAccessIdentity"), jsii.Number(0))
	tpl.ResourceCountIs(jsii.String("AWS::CertificateManager::Certificate"), jsii.Number(1))
	tpl.HasResourceProperties(jsii.String("AWS::S3::Bucket"), map[string]any{
		"PublicAccessBlockConfiguration": map[string]any{
			"BlockPublicAcls":       false,
			"IgnorePublicAcls":      false,
			"BlockPublicPolicy":     false,
			"RestrictPublicBuckets": false,
		},
	})

	public := 0
	for _, stmt := range testkit.PolicyStatements(tpl, "AWS::S3::BucketPolicy") {
		if p, ok := stmt["Principal"].(map[string]any); ok {
			require.NotContains(t, p, "CanonicalUser")
		}
		if isPublicPrincipal(stmt["Principal"]) && readsObjects(stmt) {
			public++
		}
	}
	require.Equal(t, 1, public)

	outputs := testkit.Outputs(tpl)
	require.NotContains(t, outputs, OutputDistributionID)
	require.NotContains(t, outputs, OutputDistributionDomainName)
	require.Contains(t, outputs, OutputWebsiteURL)
}

func TestNewSite_BucketNameOverride(t *testing.T) {
	props := botodocs(false)
	props.BucketName = "botodocs-site-content"
	props.ErrorDocument = ""
	_, tpl := synth(t, props)

	tpl.HasResourceProperties(jsii.String("AWS::S3::Bucket"), map[string]any{
		"BucketName": "botodocs-site-content",
		"WebsiteConfiguration": map[string]any{
			"IndexDocument": "index.html",
		},
	})
}
