package driven

import (
	"github.com/custodia-labs/conduit-cli/internal/core/domain"
)

// AuthStore persists credential bundles per provider key.
type AuthStore interface {
	// Load returns the details for key. The boolean reports whether the key
	// existed; a missing key is not an error.
	Load(key string) (domain.AuthDetails, bool, error)

	// Save writes the details for key, creating or replacing the entry.
	Save(key string, details domain.AuthDetails) error

	// Delete removes the entry for key. Deleting a missing key is a no-op.
	Delete(key string) error

	// Path reports where the store lives, for diagnostics.
	Path() string
}
