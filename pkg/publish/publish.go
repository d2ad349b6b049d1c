// Package publish operates a deployed site from outside the build: it reads
// the stack outputs, uploads generated content and invalidates the CDN cache.
package publish

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// IDGenerator provides caller references for invalidations.
type IDGenerator interface {
	NewID() string
}

// ULIDGenerator returns monotonic, lexically sortable ids.
type ULIDGenerator struct{}

func (ULIDGenerator) NewID() string {
	return ulid.Make().String()
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

var (
	_ IDGenerator = ULIDGenerator{}
	_ Clock       = systemClock{}
)
