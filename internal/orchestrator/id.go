package orchestrator

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid"
)

// CreateDeploymentID generates a unique, lexicographically sortable ID for
// one deployment request. History rows use it as their primary key, so
// ordering by ID is ordering by creation time.
func CreateDeploymentID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
