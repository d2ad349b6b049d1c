// Package buildspec renders the deploy build script run by CodeBuild.
//
// The build regenerates the site, re-applies the infrastructure, uploads the
// generated content and, when a distribution exists, invalidates its cache.
// Every step aborts the build on failure except the diff preview.
package buildspec

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	Version = "0.2"

	// DefaultImage provides the runtime versions DefaultOptions asks for. Its
	// newest Go runtime is 1.22, older than the module's go directive.
	DefaultImage   = "aws/codebuild/standard:7.0"
	DefaultTimeout = 30 * time.Minute

	// DefaultGoToolchain matches the go directive in go.mod, so `go run` in
	// cdk.json fetches this toolchain once per build instead of failing.
	DefaultGoToolchain = "go1.26.2"

	DefaultBucketEnvVar       = "SITE_BUCKET"
	DefaultDistributionEnvVar = "SITE_DISTRIBUTION_ID"

	toleratedSuffix = " || true"
)

type StepName string

const (
	StepGenerate   StepName = "generate"
	StepDiff       StepName = "diff"
	StepDeploy     StepName = "deploy"
	StepSync       StepName = "sync"
	StepInvalidate StepName = "invalidate"
)

// Options controls the rendered build script.
type Options struct {
	RuntimeVersions    map[string]string `yaml:"runtimeVersions"`
	InstallCommands    []string          `yaml:"installCommands"`
	PreBuildCommands   []string          `yaml:"preBuildCommands"`
	GeneratorCommands  []string          `yaml:"generatorCommands"`
	CDKCommand         string            `yaml:"cdkCommand"`
	ContentDir         string            `yaml:"contentDir"`
	InvalidationPaths  []string          `yaml:"invalidationPaths"`
	GoToolchain        string            `yaml:"goToolchain"`
	BucketEnvVar       string            `yaml:"-"`
	DistributionEnvVar string            `yaml:"-"`
	Distribution       bool              `yaml:"-"`
}

// Step is one ordered build command.
type Step struct {
	Name      StepName
	Command   string
	Tolerated bool
}

// DefaultOptions reproduces the reference deployment's build environment.
func DefaultOptions() Options {
	return Options{
		RuntimeVersions: map[string]string{
			"golang": "1.22",
			"nodejs": "20",
			"python": "3.12",
		},
		InstallCommands:   []string{"npm install -g aws-cdk"},
		PreBuildCommands:  []string{"pip install --upgrade boto3 awscli"},
		GeneratorCommands: []string{"python main.py"},
		CDKCommand:        "cdk",
		ContentDir:        "docs/",
		InvalidationPaths: []string{"/*"},
		GoToolchain:       DefaultGoToolchain,
	}
}

// WithDefaults fills every unset option from DefaultOptions.
func (o Options) WithDefaults() Options {
	def := DefaultOptions()
	if o.RuntimeVersions == nil {
		o.RuntimeVersions = def.RuntimeVersions
	}
	if o.InstallCommands == nil {
		o.InstallCommands = def.InstallCommands
	}
	if o.PreBuildCommands == nil {
		o.PreBuildCommands = def.PreBuildCommands
	}
	if len(o.GeneratorCommands) == 0 {
		o.GeneratorCommands = def.GeneratorCommands
	}
	if strings.TrimSpace(o.CDKCommand) == "" {
		o.CDKCommand = def.CDKCommand
	}
	if strings.TrimSpace(o.ContentDir) == "" {
		o.ContentDir = def.ContentDir
	}
	if len(o.InvalidationPaths) == 0 {
		o.InvalidationPaths = def.InvalidationPaths
	}
	if strings.TrimSpace(o.GoToolchain) == "" {
		o.GoToolchain = def.GoToolchain
	}
	if strings.TrimSpace(o.BucketEnvVar) == "" {
		o.BucketEnvVar = DefaultBucketEnvVar
	}
	if strings.TrimSpace(o.DistributionEnvVar) == "" {
		o.DistributionEnvVar = DefaultDistributionEnvVar
	}
	return o
}

// Steps returns the build phase commands in execution order.
func Steps(o Options) []Step {
	o = o.WithDefaults()

	steps := make([]Step, 0, len(o.GeneratorCommands)+4)
	for _, cmd := range o.GeneratorCommands {
		steps = append(steps, Step{Name: StepGenerate, Command: cmd})
	}
	steps = append(steps,
		Step{Name: StepDiff, Command: o.CDKCommand + " diff" + toleratedSuffix, Tolerated: true},
		Step{Name: StepDeploy, Command: o.CDKCommand + " deploy --require-approval never"},
		Step{Name: StepSync, Command: fmt.Sprintf("aws s3 cp --acl public-read --recursive %s s3://$%s", o.ContentDir, o.BucketEnvVar)},
	)
	if o.Distribution {
		steps = append(steps, Step{
			Name:    StepInvalidate,
			Command: fmt.Sprintf("aws cloudfront create-invalidation --distribution-id $%s --paths %s", o.DistributionEnvVar, quotePaths(o.InvalidationPaths)),
		})
	}
	return steps
}

// Commands returns the build phase commands in execution order.
func Commands(o Options) []string {
	steps := Steps(o)
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Command
	}
	return out
}

// Tolerated reports whether a failing command leaves the build running.
func Tolerated(command string) bool {
	return strings.HasSuffix(strings.TrimSpace(command), toleratedSuffix)
}

type document struct {
	Version string       `yaml:"version"`
	Env     *environment `yaml:"env,omitempty"`
	Phases  phases       `yaml:"phases"`
}

type environment struct {
	Variables map[string]string `yaml:"variables"`
}

type phases struct {
	Install  *phase `yaml:"install,omitempty"`
	PreBuild *phase `yaml:"pre_build,omitempty"`
	Build    *phase `yaml:"build"`
}

type phase struct {
	RuntimeVersions map[string]string `yaml:"runtime-versions,omitempty"`
	Commands        []string          `yaml:"commands,omitempty"`
}

func build(o Options) document {
	o = o.WithDefaults()

	doc := document{
		Version: Version,
		Env:     &environment{Variables: map[string]string{"GOTOOLCHAIN": o.GoToolchain}},
		Phases: phases{
			Build: &phase{Commands: Commands(o)},
		},
	}
	if len(o.RuntimeVersions) > 0 || len(o.InstallCommands) > 0 {
		doc.Phases.Install = &phase{
			RuntimeVersions: o.RuntimeVersions,
			Commands:        o.InstallCommands,
		}
	}
	if len(o.PreBuildCommands) > 0 {
		doc.Phases.PreBuild = &phase{Commands: o.PreBuildCommands}
	}
	return doc
}

// Spec returns the build script as a generic object, suitable for
// awscodebuild.BuildSpec_FromObject.
func Spec(o Options) map[string]any {
	doc := build(o)

	ph := map[string]any{
		"build": doc.Phases.Build.object(),
	}
	if doc.Phases.Install != nil {
		ph["install"] = doc.Phases.Install.object()
	}
	if doc.Phases.PreBuild != nil {
		ph["pre_build"] = doc.Phases.PreBuild.object()
	}
	vars := make(map[string]any, len(doc.Env.Variables))
	for k, v := range doc.Env.Variables {
		vars[k] = v
	}
	return map[string]any{
		"version": doc.Version,
		"env":     map[string]any{"variables": vars},
		"phases":  ph,
	}
}

func (p *phase) object() map[string]any {
	out := map[string]any{}
	if len(p.RuntimeVersions) > 0 {
		rv := make(map[string]any, len(p.RuntimeVersions))
		for k, v := range p.RuntimeVersions {
			rv[k] = v
		}
		out["runtime-versions"] = rv
	}
	if len(p.Commands) > 0 {
		cmds := make([]any, len(p.Commands))
		for i, c := range p.Commands {
			cmds[i] = c
		}
		out["commands"] = cmds
	}
	return out
}

// Render returns the build script as buildspec.yml content.
func Render(o Options) ([]byte, error) {
	out, err := yaml.Marshal(build(o))
	if err != nil {
		return nil, fmt.Errorf("buildspec: render: %w", err)
	}
	return out, nil
}

func quotePaths(paths []string) string {
	quoted := make([]string, len(paths))
	for i, p := range paths {
		quoted[i] = `"` + strings.ReplaceAll(p, `"`, `\"`) + `"`
	}
	return strings.Join(quoted, " ")
}
