package testkit

import (
	"encoding/json"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
)

const (
	TestAccount = "123456789012"
	TestRegion  = "us-east-1"
)

// NewStack returns an empty stack in a fresh app, pinned to the test account and region.
func NewStack(id string) awscdk.Stack {
	app := awscdk.NewApp(nil)
	return awscdk.NewStack(app, jsii.String(id), &awscdk.StackProps{
		Env: &awscdk.Environment{
			Account: jsii.String(TestAccount),
			Region:  jsii.String(TestRegion),
		},
	})
}

// Template synthesizes stack.
func Template(stack awscdk.Stack) assertions.Template {
	return assertions.Template_FromStack(stack, nil)
}

// Resource is one synthesized CloudFormation resource.
type Resource struct {
	Type       string         `json:"Type"`
	Properties map[string]any `json:"Properties"`
	DependsOn  any            `json:"DependsOn,omitempty"`
}

// Resources returns every resource of type keyed by logical id.
func Resources(tpl assertions.Template, typ string) map[string]Resource {
	out := map[string]Resource{}
	found := tpl.FindResources(jsii.String(typ), nil)
	if found == nil {
		return out
	}
	mustRoundTrip(*found, &out)
	return out
}

// Outputs returns the template outputs keyed by logical id.
func Outputs(tpl assertions.Template) map[string]map[string]any {
	out := map[string]map[string]any{}
	found := tpl.FindOutputs(jsii.String("*"), nil)
	if found == nil {
		return out
	}
	mustRoundTrip(*found, &out)
	return out
}

// TemplateJSON returns the whole synthesized template.
func TemplateJSON(tpl assertions.Template) []byte {
	raw, err := json.Marshal(tpl.ToJSON())
	if err != nil {
		panic(err)
	}
	return raw
}

// PolicyStatements flattens the statements of every resource of typ carrying a PolicyDocument.
func PolicyStatements(tpl assertions.Template, typ string) []map[string]any {
	var out []map[string]any
	for _, res := range Resources(tpl, typ) {
		doc, ok := res.Properties["PolicyDocument"].(map[string]any)
		if !ok {
			continue
		}
		stmts, _ := doc["Statement"].([]any)
		for _, s := range stmts {
			if m, ok := s.(map[string]any); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

// StringsOf normalizes a policy field that may be a string or a list.
func StringsOf(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func mustRoundTrip(in any, out any) {
	raw, err := json.Marshal(in)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		panic(err)
	}
}
