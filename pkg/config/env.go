package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/theory-cloud/docsite"
)

const (
	EnvDomain             = "DOCSITE_DOMAIN"
	EnvStage              = "DOCSITE_STAGE"
	EnvStackName          = "DOCSITE_STACK_NAME"
	EnvBucketName         = "DOCSITE_BUCKET_NAME"
	EnvDeployDistribution = "DOCSITE_DEPLOY_DISTRIBUTION"
	EnvRetireDistribution = "DOCSITE_RETIRE_DISTRIBUTION"
	EnvGitHubOwner        = "DOCSITE_GITHUB_OWNER"
	EnvGitHubRepo         = "DOCSITE_GITHUB_REPO"
	EnvBranch             = "DOCSITE_BRANCH"
	EnvSchedule           = "DOCSITE_SCHEDULE"
	EnvBuildTimeout       = "DOCSITE_BUILD_TIMEOUT"
	EnvNotifyEmail        = "DOCSITE_NOTIFY_EMAIL"
	EnvLogLevel           = "DOCSITE_LOG_LEVEL"
	EnvLogFormat          = "DOCSITE_LOG_FORMAT"

	// Set by the cdk CLI from the active credentials.
	EnvCDKAccount = "CDK_DEFAULT_ACCOUNT"
	EnvCDKRegion  = "CDK_DEFAULT_REGION"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides c with any DOCSITE_* variables lookup reports as set.
//
// CDK_DEFAULT_ACCOUNT and CDK_DEFAULT_REGION only fill an empty account or region.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		return nil
	}
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	strs := []struct {
		key string
		dst *string
	}{
		{EnvDomain, &c.Domain},
		{EnvStage, &c.Stage},
		{EnvStackName, &c.StackName},
		{EnvBucketName, &c.BucketName},
		{EnvGitHubOwner, &c.Source.Owner},
		{EnvGitHubRepo, &c.Source.Repo},
		{EnvBranch, &c.Source.Branch},
		{EnvSchedule, &c.Build.Schedule},
		{EnvNotifyEmail, &c.Notifications.Email},
		{EnvLogLevel, &c.Logging.Level},
		{EnvLogFormat, &c.Logging.Format},
	}
	for _, s := range strs {
		if v, ok := get(s.key); ok {
			*s.dst = v
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{EnvDeployDistribution, &c.DeployDistribution},
		{EnvRetireDistribution, &c.RetireDistribution},
	}
	for _, b := range bools {
		v, ok := get(b.key)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return docsite.WrapError(docsite.ErrorCodeConfigInvalid, b.key, err)
		}
		*b.dst = parsed
	}
	if v, ok := get(EnvBuildTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return docsite.WrapError(docsite.ErrorCodeConfigInvalid, EnvBuildTimeout, err)
		}
		c.Build.Timeout = d
	}

	if v, ok := get(EnvCDKAccount); ok && strings.TrimSpace(c.Account) == "" {
		c.Account = v
	}
	if v, ok := get(EnvCDKRegion); ok && strings.TrimSpace(c.Region) == "" {
		c.Region = v
	}
	return nil
}

// ApplyContext overrides the distribution toggle from a CDK context value
// (`cdk deploy -c deployDistribution=false`). Nil leaves c unchanged.
func (c *Config) ApplyContext(deployDistribution any) error {
	switch v := deployDistribution.(type) {
	case nil:
		return nil
	case bool:
		c.DeployDistribution = v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return docsite.WrapError(docsite.ErrorCodeConfigInvalid, "context deployDistribution", err)
		}
		c.DeployDistribution = b
	default:
		return docsite.NewError(docsite.ErrorCodeConfigInvalid, "context deployDistribution must be a boolean")
	}
	return nil
}
