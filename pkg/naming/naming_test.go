package naming

import "testing"

func TestNormalizeStage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"prod", "live"},
		{"production", "live"},
		{"live", "live"},
		{"dev", "dev"},
		{"development", "dev"},
		{"stg", "stage"},
		{"staging", "stage"},
		{"test", "test"},
		{"My Env!", "my-env"},
	}
	for _, tt := range tests {
		if got := NormalizeStage(tt.in); got != tt.want {
			t.Fatalf("NormalizeStage(%q)=%q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStackName(t *testing.T) {
	if got := StackName("botodocs", ""); got != "botodocs" {
		t.Fatalf("StackName bare: %q", got)
	}
	if got := StackName("botodocs", "prod"); got != "botodocs" {
		t.Fatalf("StackName live: %q", got)
	}
	if got := StackName("BotoDocs", "development"); got != "botodocs-dev" {
		t.Fatalf("StackName dev: %q", got)
	}
}

func TestResourceName(t *testing.T) {
	if got := ResourceName("botodocs", "deploy-site"); got != "botodocs-deploy-site" {
		t.Fatalf("ResourceName: %q", got)
	}
	if got := ResourceName("botodocs", ""); got != "botodocs" {
		t.Fatalf("ResourceName empty resource: %q", got)
	}
}

func TestAppName(t *testing.T) {
	if got := AppName("botodocs.com"); got != "botodocs" {
		t.Fatalf("AppName: %q", got)
	}
	if got := AppName("docs.example.co"); got != "docs-example" {
		t.Fatalf("AppName subdomain: %q", got)
	}
}

func TestIsDomainName(t *testing.T) {
	for _, ok := range []string{"botodocs.com", "docs.example.org", "a-b.io"} {
		if !IsDomainName(ok) {
			t.Fatalf("expected %q to be valid", ok)
		}
	}
	for _, bad := range []string{"", "localhost", "Botodocs.com", "-bad.com", "bad-.com", "a..com"} {
		if IsDomainName(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
}

func TestIsBucketName(t *testing.T) {
	for _, ok := range []string{"botodocs.com", "my-bucket", "abc"} {
		if !IsBucketName(ok) {
			t.Fatalf("expected %q to be valid", ok)
		}
	}
	for _, bad := range []string{"ab", "UPPER", "a..b", "192.168.0.1", "xn--bucket", "bucket-s3alias", "-lead"} {
		if IsBucketName(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
}
