package xid

import (
	"github.com/google/uuid"
)

// New returns a random identifier such as "req-3f2b...". The prefix names
// what the id is for.
func New(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
