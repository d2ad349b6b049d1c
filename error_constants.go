package docsite

const (
	ErrorCodeConfigInvalid = "docsite.config_invalid"
	ErrorCodeStackNotFound = "docsite.stack_not_found"
	ErrorCodeOutputMissing = "docsite.output_missing"
	ErrorCodePublishFailed = "docsite.publish_failed"
	ErrorCodeInternal      = "docsite.internal"
)

// Sentinels for errors.Is comparisons.
var (
	ErrConfigInvalid = NewError(ErrorCodeConfigInvalid, "invalid configuration")
	ErrStackNotFound = NewError(ErrorCodeStackNotFound, "stack not found")
	ErrOutputMissing = NewError(ErrorCodeOutputMissing, "stack output missing")
	ErrPublishFailed = NewError(ErrorCodePublishFailed, "publish failed")
)
