package sanitization

import "regexp"

// SecretPattern matches a credential embedded in free text.
type SecretPattern struct {
	Name    string
	Pattern *regexp.Regexp
	// Mask returns the replacement for a match; nil replaces it with [REDACTED].
	Mask func(match string) string
	// KeepPrefix preserves the first capture group ahead of the redaction.
	KeepPrefix bool
}

// SecretPatterns cover credentials that leak into build output and SDK errors.
var SecretPatterns = []SecretPattern{
	{
		Name:    "AWSAccessKeyID",
		Pattern: regexp.MustCompile(`\b(AKIA|ASIA)[A-Z0-9]{16}\b`),
		Mask:    func(m string) string { return MaskFirstLast(m, 4, 4) },
	},
	{
		Name:    "AWSSecretAccessKey",
		Pattern:    regexp.MustCompile(`(?i)(aws_secret_access_key\s*[=:]\s*)[A-Za-z0-9/+=]{40}`),
		KeepPrefix: true,
	},
	{
		Name:    "GitHubToken",
		Pattern: regexp.MustCompile(`\b(ghp|gho|ghu|ghs|ghr)_[A-Za-z0-9]{36,255}\b`),
	},
	{
		Name:    "GitHubFineGrainedToken",
		Pattern: regexp.MustCompile(`\bgithub_pat_[A-Za-z0-9_]{22,255}\b`),
	},
	{
		Name:    "PresignedSignature",
		Pattern:    regexp.MustCompile(`(?i)(X-Amz-Signature=)[0-9a-f]{64}`),
		KeepPrefix: true,
	},
}

// RedactSecrets replaces every SecretPatterns match in value.
func RedactSecrets(value string) string {
	if value == "" {
		return value
	}
	for _, p := range SecretPatterns {
		value = p.Pattern.ReplaceAllStringFunc(value, func(match string) string {
			switch {
			case p.Mask != nil:
				return p.Mask(match)
			case p.KeepPrefix:
				if sub := p.Pattern.FindStringSubmatch(match); len(sub) > 1 {
					return sub[1] + redactedValue
				}
			}
			return redactedValue
		})
	}
	return value
}
