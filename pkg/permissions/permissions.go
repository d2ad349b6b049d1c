// Package permissions declares the least-privilege statements the deploy build needs.
//
// Every managed resource category maps to exactly one statement. Statements are
// scoped by partition, account, region and stack name wherever the provider
// supports it; only certificate requests and origin access identities are
// granted account-wide because their create calls accept no resource ARN.
package permissions

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Category string

const (
	CategoryStack               Category = "stack"
	CategoryBootstrap           Category = "bootstrap"
	CategoryRole                Category = "role"
	CategoryCertificateRequest  Category = "certificate-request"
	CategoryCertificate         Category = "certificate"
	CategoryBucket              Category = "bucket"
	CategoryProject             Category = "project"
	CategoryFunction            Category = "function"
	CategorySchedule            Category = "schedule"
	CategoryOriginIdentity      Category = "origin-identity"
	CategoryDistribution        Category = "distribution"
	CategoryDistributionCleanup Category = "distribution-cleanup"
	CategoryNotifications       Category = "notifications"
)

const wildcard = "*"

var ErrInvalidScope = errors.New("permissions: invalid scope")

// Resources describes which optional resource categories a deployment manages.
type Resources struct {
	Distribution  bool
	Notifications bool
	// RetireDistribution keeps delete access to a distribution and origin
	// identity that the deploy removes. CloudFormation deletes them after the
	// role policy update, so without it the cleanup is denied. Ignored while
	// Distribution is set.
	RetireDistribution bool
}

// Scope carries the values statements are qualified with.
//
// Account, Region and BucketArn may be unresolved CDK tokens.
type Scope struct {
	Partition   string
	Account     string
	Region      string
	StackName   string
	ProjectName string
	BucketArn   string
}

// Statement is one allow statement attached to the build role.
type Statement struct {
	Sid       string   `json:"Sid"`
	Category  Category `json:"-"`
	Actions   []string `json:"Action"`
	Resources []string `json:"Resource"`
}

// AccountWide reports whether the statement applies to every resource in the account.
func (s Statement) AccountWide() bool {
	for _, r := range s.Resources {
		if r == wildcard {
			return true
		}
	}
	return false
}

// CategoriesFor returns the categories a deployment with the given resources manages.
//
// The base set always applies: stack lifecycle, CDK bootstrap access, roles,
// certificates, the bucket, the build project, the auto-delete provider
// function and the schedule rule.
func CategoriesFor(r Resources) []Category {
	out := []Category{
		CategoryStack,
		CategoryBootstrap,
		CategoryRole,
		CategoryCertificateRequest,
		CategoryCertificate,
		CategoryBucket,
		CategoryProject,
		CategoryFunction,
		CategorySchedule,
	}
	switch {
	case r.Distribution:
		out = append(out, CategoryOriginIdentity, CategoryDistribution)
	case r.RetireDistribution:
		out = append(out, CategoryDistributionCleanup)
	}
	if r.Notifications {
		out = append(out, CategoryNotifications)
	}
	return out
}

// AllCategories lists every known category in declaration order.
func AllCategories() []Category {
	out := CategoriesFor(Resources{Distribution: true, Notifications: true})
	return append(out, CategoryDistributionCleanup)
}

// ForResources renders the statements for the categories of r.
func ForResources(scope Scope, r Resources) ([]Statement, error) {
	return Statements(scope, CategoriesFor(r))
}

// Statements renders one statement per category, in the given order.
func Statements(scope Scope, categories []Category) ([]Statement, error) {
	scope = scope.normalized()
	if err := scope.validate(); err != nil {
		return nil, err
	}

	seen := make(map[Category]bool, len(categories))
	out := make([]Statement, 0, len(categories))
	for _, category := range categories {
		if seen[category] {
			continue
		}
		seen[category] = true

		build, ok := builders[category]
		if !ok {
			return nil, fmt.Errorf("permissions: unknown category %q", category)
		}
		stmt := build(scope)
		stmt.Category = category
		stmt.Sid = sid(category)
		out = append(out, stmt)
	}
	return out, nil
}

// AccountWide filters the statements granted on "*".
func AccountWide(statements []Statement) []Statement {
	var out []Statement
	for _, s := range statements {
		if s.AccountWide() {
			out = append(out, s)
		}
	}
	return out
}

// Categories returns the sorted set of categories covered by statements.
func Categories(statements []Statement) []Category {
	set := map[Category]bool{}
	for _, s := range statements {
		set[s.Category] = true
	}
	out := make([]Category, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PolicyDocument is the IAM JSON form of a statement list.
type PolicyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Sid      string   `json:"Sid"`
	Effect   string   `json:"Effect"`
	Action   []string `json:"Action"`
	Resource []string `json:"Resource"`
}

// Document renders statements as an IAM policy document.
func Document(statements []Statement) PolicyDocument {
	doc := PolicyDocument{Version: "2012-10-17"}
	for _, s := range statements {
		doc.Statement = append(doc.Statement, policyStatement{
			Sid:      s.Sid,
			Effect:   "Allow",
			Action:   append([]string(nil), s.Actions...),
			Resource: append([]string(nil), s.Resources...),
		})
	}
	return doc
}

func (s Scope) normalized() Scope {
	s.Partition = strings.TrimSpace(s.Partition)
	if s.Partition == "" {
		s.Partition = "aws"
	}
	s.Account = strings.TrimSpace(s.Account)
	s.Region = strings.TrimSpace(s.Region)
	s.StackName = strings.TrimSpace(s.StackName)
	s.ProjectName = strings.TrimSpace(s.ProjectName)
	s.BucketArn = strings.TrimSpace(s.BucketArn)
	return s
}

func (s Scope) validate() error {
	missing := []string{}
	if s.Account == "" {
		missing = append(missing, "account")
	}
	if s.Region == "" {
		missing = append(missing, "region")
	}
	if s.StackName == "" {
		missing = append(missing, "stack name")
	}
	if s.ProjectName == "" {
		missing = append(missing, "project name")
	}
	if s.BucketArn == "" {
		missing = append(missing, "bucket arn")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidScope, strings.Join(missing, ", "))
	}
	return nil
}

func sid(c Category) string {
	var b strings.Builder
	b.WriteString("Deploy")
	for _, part := range strings.Split(string(c), "-") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
