package testutil

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RandomSlug returns a unique slug with the given prefix. Tests share a
// single database, so generated slugs must not collide across runs.
func RandomSlug(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s", prefix, suffix)
}

// RandomEmail returns a unique email address with the given local-part
// prefix.
func RandomEmail(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s@example.com", prefix, suffix)
}
