package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/docsite"
	"github.com/theory-cloud/docsite/pkg/permissions"
)

func resolvedDefault(t *testing.T) Config {
	t.Helper()
	cfg := Default()
	cfg.Resolve()
	require.NoError(t, cfg.Validate())
	return cfg
}

func envMap(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestDefault_ReproducesBotodocs(t *testing.T) {
	t.Parallel()

	cfg := resolvedDefault(t)
	require.Equal(t, "botodocs.com", cfg.Domain)
	require.Equal(t, "botodocs", cfg.App)
	require.Equal(t, "botodocs", cfg.StackName)
	require.Equal(t, "botodocs.com", cfg.BucketName)
	require.Equal(t, "botodocs-deploy-site", cfg.ProjectName())
	require.Equal(t, "Deploys website at botodocs.com", cfg.Build.Description)
	require.Equal(t, 30*time.Minute, cfg.Build.Timeout)
	require.True(t, cfg.DeployDistribution)
	require.True(t, cfg.ScriptOptions().Distribution)
	require.Equal(t, permissions.Resources{Distribution: true}, cfg.ManagedResources())

	sched, err := cfg.Schedule()
	require.NoError(t, err)
	require.Equal(t, "cron(0 0 1/3 * ? *)", sched.Expression())
}

func TestDecode_OverlaysDefaults(t *testing.T) {
	t.Parallel()

	cfg := Default()
	err := Decode([]byte(`
domain: docs.example.org
deployDistribution: false
stage: dev
source:
  branch: main
build:
  timeout: 45m
  script:
    generatorCommands: ["make docs"]
notifications:
  email: ops@example.org
`), &cfg)
	require.NoError(t, err)
	cfg.Resolve()
	require.NoError(t, cfg.Validate())

	require.Equal(t, "docs-example", cfg.App)
	require.Equal(t, "docs-example-dev", cfg.StackName)
	require.Equal(t, "docs.example.org", cfg.BucketName)
	require.False(t, cfg.DeployDistribution)
	require.Equal(t, "main", cfg.Source.Branch)
	require.Equal(t, "jeshan", cfg.Source.Owner)
	require.Equal(t, 45*time.Minute, cfg.Build.Timeout)
	require.Equal(t, []string{"make docs"}, cfg.Build.Script.GeneratorCommands)
	require.Equal(t, "cdk", cfg.Build.Script.CDKCommand)
	require.True(t, cfg.Notifications.Enabled)
	require.Equal(t, permissions.Resources{Notifications: true}, cfg.ManagedResources())
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	cfg := Default()
	err := Decode([]byte("domian: typo.com\n"), &cfg)
	require.ErrorIs(t, err, docsite.ErrConfigInvalid)
}

func TestDecode_EmptyDocument(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, Decode(nil, &cfg))
	require.Equal(t, Default(), cfg)
}

func TestManagedResources_RetireOnlyWhenDistributionOff(t *testing.T) {
	t.Parallel()

	cfg := resolvedDefault(t)
	require.NoError(t, cfg.ApplyEnv(envMap(map[string]string{EnvRetireDistribution: "true"})))
	require.True(t, cfg.RetireDistribution)
	require.Equal(t, permissions.Resources{Distribution: true}, cfg.ManagedResources())

	cfg.DeployDistribution = false
	require.Equal(t, permissions.Resources{RetireDistribution: true}, cfg.ManagedResources())
	require.ErrorIs(t, cfg.ApplyEnv(envMap(map[string]string{EnvRetireDistribution: "soon"})), docsite.ErrConfigInvalid)
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Region = "us-east-1"
	err := cfg.ApplyEnv(envMap(map[string]string{
		EnvDomain:             "docs.example.org",
		EnvDeployDistribution: "false",
		EnvBuildTimeout:       "1h",
		EnvCDKAccount:         "123456789012",
		EnvCDKRegion:          "eu-west-1",
		EnvLogLevel:           " ",
	}))
	require.NoError(t, err)
	require.Equal(t, "docs.example.org", cfg.Domain)
	require.False(t, cfg.DeployDistribution)
	require.Equal(t, time.Hour, cfg.Build.Timeout)
	require.Equal(t, "123456789012", cfg.Account)
	require.Equal(t, "us-east-1", cfg.Region)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestApplyEnv_BadValues(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.ErrorIs(t, cfg.ApplyEnv(envMap(map[string]string{EnvDeployDistribution: "maybe"})), docsite.ErrConfigInvalid)
	require.ErrorIs(t, cfg.ApplyEnv(envMap(map[string]string{EnvBuildTimeout: "soon"})), docsite.ErrConfigInvalid)
	require.NoError(t, cfg.ApplyEnv(nil))
}

func TestApplyContext(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.ApplyContext(nil))
	require.True(t, cfg.DeployDistribution)
	require.NoError(t, cfg.ApplyContext("false"))
	require.False(t, cfg.DeployDistribution)
	require.NoError(t, cfg.ApplyContext(true))
	require.True(t, cfg.DeployDistribution)
	require.ErrorIs(t, cfg.ApplyContext("nope"), docsite.ErrConfigInvalid)
	require.ErrorIs(t, cfg.ApplyContext(3), docsite.ErrConfigInvalid)
}

func TestValidate_CollectsProblems(t *testing.T) {
	t.Parallel()

	cfg := resolvedDefault(t)
	cfg.Domain = "not a domain"
	cfg.BucketName = "UPPER"
	cfg.Region = "eu-west-1"
	cfg.Build.Timeout = time.Minute
	cfg.Build.Schedule = "cron(0 0 * * * *)"
	cfg.Notifications.Email = "nobody"
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	require.ErrorIs(t, err, docsite.ErrConfigInvalid)

	var docErr *docsite.Error
	require.True(t, errors.As(err, &docErr))
	for _, fragment := range []string{"domain", "bucket name", "eu-west-1", "build timeout", "schedule", "notification email", "log format"} {
		require.Contains(t, docErr.Message, fragment)
	}
}

func TestValidate_AcceptsEventBridgeCronModifiers(t *testing.T) {
	t.Parallel()

	cfg := resolvedDefault(t)
	for _, expr := range []string{"cron(0 0 L * ? *)", "cron(0 9 ? * 6#3 *)", "cron(0 0 15W * ? *)"} {
		cfg.Build.Schedule = expr
		require.NoError(t, cfg.Validate(), expr)
	}
}

func TestValidate_RegionFreeWithoutDistribution(t *testing.T) {
	t.Parallel()

	cfg := resolvedDefault(t)
	cfg.DeployDistribution = false
	cfg.Region = "eu-west-1"
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte("deployDistribution: false\n"), 0o600))

	t.Setenv(EnvStage, "staging")
	t.Setenv(EnvCDKRegion, "")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.False(t, cfg.DeployDistribution)
	require.Equal(t, "botodocs-stage", cfg.StackName)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, docsite.ErrConfigInvalid)
}

func TestLoad_DefaultFileOptional(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvCDKRegion, "")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "botodocs", cfg.StackName)
}
