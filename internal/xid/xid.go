package xid

import "github.com/google/uuid"

// New returns a random identifier such as "req-3f0c...". It is used for
// correlation ids, never for primary keys.
func New(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + "-" + uuid.NewString()
}
