package blob

import (
	"testing"

	"assaycore/testutil"
)

// TestOnlyBlobPackageImportsInfra ensures that only the top-level blob
// package wraps the infra-backed implementations. Other packages must depend
// on the blob.Store interface instead of importing infra packages directly.
func TestOnlyBlobPackageImportsInfra(t *testing.T) {
	testutil.AssertFacadeOnly(t, "assaycore/...", "assaycore/internal/blob", "assaycore/internal/infra/blob")
}
