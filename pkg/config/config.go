// Package config loads the docsite deployment configuration.
//
// Values come from, in increasing precedence: built-in defaults reproducing
// the botodocs.com deployment, a YAML file, and DOCSITE_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/mail"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/theory-cloud/docsite"
	"github.com/theory-cloud/docsite/pkg/buildspec"
	"github.com/theory-cloud/docsite/pkg/naming"
	"github.com/theory-cloud/docsite/pkg/permissions"
	"github.com/theory-cloud/docsite/pkg/schedule"
)

// DefaultFile is read when Load is given no path and the file exists.
const DefaultFile = "docsite.yaml"

const (
	DefaultDomain = "botodocs.com"

	// CloudFront only accepts viewer certificates issued in this region.
	distributionRegion = "us-east-1"

	minBuildTimeout = 5 * time.Minute
	maxBuildTimeout = 36 * time.Hour
)

var stackNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]{0,127}$`)

type Config struct {
	App        string `yaml:"app"`
	Stage      string `yaml:"stage"`
	StackName  string `yaml:"stackName"`
	Domain     string `yaml:"domain"`
	BucketName string `yaml:"bucketName"`
	Account    string `yaml:"account"`
	Region     string `yaml:"region"`

	// DeployDistribution toggles the CDN. With it off the bucket is served
	// publicly and deploys skip the slow distribution rollout.
	DeployDistribution bool `yaml:"deployDistribution"`
	// RetireDistribution is set for the one deploy that turns the
	// distribution off, so the build can still delete it.
	RetireDistribution bool   `yaml:"retireDistribution"`
	IndexDocument      string `yaml:"indexDocument"`
	ErrorDocument      string `yaml:"errorDocument"`

	Source        SourceConfig        `yaml:"source"`
	Build         BuildConfig         `yaml:"build"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logging       LoggingConfig       `yaml:"logging"`
}

type SourceConfig struct {
	Owner      string `yaml:"owner"`
	Repo       string `yaml:"repo"`
	Branch     string `yaml:"branch"`
	CloneDepth int    `yaml:"cloneDepth"`
}

type BuildConfig struct {
	Description string        `yaml:"description"`
	Image       string        `yaml:"image"`
	Timeout     time.Duration `yaml:"timeout"`
	Schedule    string        `yaml:"schedule"`
	Badge       bool          `yaml:"badge"`

	Script buildspec.Options `yaml:"script"`
}

type NotificationsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Email   string `yaml:"email"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the botodocs.com deployment.
func Default() Config {
	return Config{
		Domain:             DefaultDomain,
		DeployDistribution: true,
		IndexDocument:      "index.html",
		ErrorDocument:      "error.html",
		Source: SourceConfig{
			Owner:      "jeshan",
			Repo:       "botodocs",
			Branch:     "master",
			CloneDepth: 1,
		},
		Build: BuildConfig{
			Image:    buildspec.DefaultImage,
			Timeout:  buildspec.DefaultTimeout,
			Schedule: schedule.DefaultExpression,
			Badge:    true,
			Script:   buildspec.DefaultOptions(),
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads path over the defaults, applies the process environment, fills
// derived values and validates the result.
//
// An empty path reads DefaultFile when present.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultFile
	}

	//nolint:gosec // Config path is operator supplied.
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := Decode(raw, &cfg); err != nil {
			return Config{}, err
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, docsite.WrapError(docsite.ErrorCodeConfigInvalid, "read "+path, err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode unmarshals YAML over cfg; fields absent from raw keep their values.
func Decode(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return docsite.WrapError(docsite.ErrorCodeConfigInvalid, "decode yaml", err)
	}
	return nil
}

// Resolve fills values derived from other fields.
func (c *Config) Resolve() {
	c.Domain = strings.ToLower(strings.TrimSpace(c.Domain))
	if strings.TrimSpace(c.App) == "" {
		c.App = naming.AppName(c.Domain)
	}
	if strings.TrimSpace(c.StackName) == "" {
		c.StackName = naming.StackName(c.App, c.Stage)
	}
	if strings.TrimSpace(c.BucketName) == "" {
		c.BucketName = c.Domain
	}
	if strings.TrimSpace(c.Build.Description) == "" {
		c.Build.Description = "Deploys website at " + c.Domain
	}
	if c.Build.Timeout == 0 {
		c.Build.Timeout = buildspec.DefaultTimeout
	}
	if strings.TrimSpace(c.Build.Schedule) == "" {
		c.Build.Schedule = schedule.DefaultExpression
	}
	if strings.TrimSpace(c.Build.Image) == "" {
		c.Build.Image = buildspec.DefaultImage
	}
	if strings.TrimSpace(c.Notifications.Email) != "" {
		c.Notifications.Enabled = true
	}
}

// Validate reports every problem at once as a docsite.config_invalid error.
func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if !naming.IsDomainName(c.Domain) {
		add("domain %q is not a valid DNS name", c.Domain)
	}
	if !naming.IsBucketName(c.BucketName) {
		add("bucket name %q violates S3 naming rules", c.BucketName)
	}
	if !stackNamePattern.MatchString(c.StackName) {
		add("stack name %q is not a valid CloudFormation stack name", c.StackName)
	}
	if c.DeployDistribution && c.Region != "" && c.Region != distributionRegion {
		add("region %q cannot host a CloudFront viewer certificate, use %s", c.Region, distributionRegion)
	}
	if strings.TrimSpace(c.IndexDocument) == "" {
		add("index document is required")
	}
	if strings.TrimSpace(c.Source.Owner) == "" || strings.TrimSpace(c.Source.Repo) == "" {
		add("source owner and repo are required")
	}
	if strings.TrimSpace(c.Source.Branch) == "" {
		add("source branch is required")
	}
	if c.Source.CloneDepth < 0 {
		add("clone depth %d is negative", c.Source.CloneDepth)
	}
	if c.Build.Timeout < minBuildTimeout || c.Build.Timeout > maxBuildTimeout {
		add("build timeout %s outside [%s, %s]", c.Build.Timeout, minBuildTimeout, maxBuildTimeout)
	}
	if _, err := schedule.Parse(c.Build.Schedule); err != nil {
		add("schedule: %v", err)
	}
	if email := strings.TrimSpace(c.Notifications.Email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			add("notification email %q: %v", email, err)
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		add("log level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		add("log format %q is not one of console, json", c.Logging.Format)
	}

	if len(problems) == 0 {
		return nil
	}
	return docsite.NewError(docsite.ErrorCodeConfigInvalid, strings.Join(problems, "; "))
}

// ProjectName is the name of the deploy build project.
func (c Config) ProjectName() string {
	return naming.ResourceName(c.StackName, "deploy-site")
}

// Schedule returns the parsed rebuild schedule.
func (c Config) Schedule() (schedule.Cron, error) {
	return schedule.Parse(c.Build.Schedule)
}

// ScriptOptions returns the build script options for this deployment.
func (c Config) ScriptOptions() buildspec.Options {
	opts := c.Build.Script
	opts.Distribution = c.DeployDistribution
	return opts
}

// ManagedResources returns the optional resource categories this deployment manages.
func (c Config) ManagedResources() permissions.Resources {
	return permissions.Resources{
		Distribution:       c.DeployDistribution,
		Notifications:      c.Notifications.Enabled,
		RetireDistribution: c.RetireDistribution && !c.DeployDistribution,
	}
}
