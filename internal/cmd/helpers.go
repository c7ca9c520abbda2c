package cmd

import (
	"github.com/fspec-dev/fspec/internal/store"
	"github.com/fspec-dev/fspec/internal/workunit"
)

// touch refreshes a unit's updatedAt through the store clock.
func touch(u *workunit.WorkUnit) {
	u.UpdatedAt = store.Clock()
}
