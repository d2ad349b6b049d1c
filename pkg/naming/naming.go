package naming

import (
	"net"
	"regexp"
	"strings"
)

var (
	nonAlnum   = regexp.MustCompile(`[^a-z0-9-]+`)
	multiDash  = regexp.MustCompile(`-+`)
	bucketName = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)
	domainName = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,63}$`)
)

func sanitizePart(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	value = strings.ReplaceAll(value, "_", "-")
	value = strings.ReplaceAll(value, " ", "-")
	value = strings.ReplaceAll(value, ".", "-")
	value = nonAlnum.ReplaceAllString(value, "-")
	value = multiDash.ReplaceAllString(value, "-")
	value = strings.Trim(value, "-")
	return value
}

// NormalizeStage maps stage aliases to canonical values.
//
// The empty stage stays empty so the reference deployment keeps its bare name.
func NormalizeStage(stage string) string {
	stage = strings.ToLower(strings.TrimSpace(stage))
	switch stage {
	case "prod", "production", "live":
		return "live"
	case "dev", "development":
		return "dev"
	case "stg", "stage", "staging":
		return "stage"
	case "test", "testing":
		return "test"
	default:
		return sanitizePart(stage)
	}
}

// StackName returns the stack name for an app, optionally suffixed by stage:
// - <app>
// - <app>-<stage>
//
// The live stage is omitted.
func StackName(appName, stage string) string {
	app := sanitizePart(appName)
	stage = NormalizeStage(stage)
	if stage == "" || stage == "live" {
		return app
	}
	return app + "-" + stage
}

// ResourceName returns a deterministic resource name: <stack>-<resource>.
func ResourceName(stackName, resource string) string {
	stack := sanitizePart(stackName)
	resource = sanitizePart(resource)
	if resource == "" {
		return stack
	}
	if stack == "" {
		return resource
	}
	return stack + "-" + resource
}

// AppName derives an app name from a domain: botodocs.com -> botodocs.
func AppName(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if i := strings.LastIndex(domain, "."); i > 0 {
		domain = domain[:i]
	}
	return sanitizePart(domain)
}

// IsDomainName reports whether value is a fully qualified, lowercase DNS name.
func IsDomainName(value string) bool {
	if len(value) > 253 {
		return false
	}
	return domainName.MatchString(value)
}

// IsBucketName reports whether value satisfies the S3 general purpose bucket naming rules.
func IsBucketName(value string) bool {
	if !bucketName.MatchString(value) {
		return false
	}
	if strings.Contains(value, "..") || strings.HasPrefix(value, "xn--") || strings.HasSuffix(value, "-s3alias") {
		return false
	}
	return net.ParseIP(value) == nil
}
