package taggedcontent

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Admin is the privileged capability. It can only be constructed from an
// AuthenticatedUser whose cached snapshot carries the admin flag, so
// holding one is proof of authorization. Handles are cheap and re-derived
// per request; admin-flag staleness is bounded by cache invalidation, not
// by capability lifetime.
type Admin struct {
	repo *Repo
	user *UserSnapshot
}

// GrantAdmin promotes another user to administrator. The target's cache
// entry is invalidated so the flag takes effect on its next capability
// construction.
func (a *Admin) GrantAdmin(ctx context.Context, userID uuid.UUID) error {
	return a.repo.grantAdmin(ctx, userID)
}

// RebuildIndices deletes all search indices and recreates them from the
// current database contents.
func (a *Admin) RebuildIndices(ctx context.Context) error {
	return a.repo.rebuildIndices(ctx)
}

// Prune reclaims collectible database rows and unreferenced blobs. It is
// safe to re-run; a store removal that failed last time is simply retried.
func (a *Admin) Prune(ctx context.Context) (*RemoveResult, error) {
	return a.repo.prune(ctx)
}

// Export produces a versioned snapshot of the full data graph.
func (a *Admin) Export(ctx context.Context) (*ExportData, error) {
	return a.repo.export(ctx)
}

var errNoMaintenance = errors.New("database maintenance is not configured")

// InitSchema creates the database schema from scratch.
func (a *Admin) InitSchema(ctx context.Context) error {
	if a.repo.maint == nil {
		return errNoMaintenance
	}
	return a.repo.maint.InitSchema(ctx)
}

// Migrate brings the database schema up to the current version.
func (a *Admin) Migrate(ctx context.Context) error {
	if a.repo.maint == nil {
		return errNoMaintenance
	}
	return a.repo.maint.Migrate(ctx)
}

// Reset drops and recreates the database schema, discarding all data.
func (a *Admin) Reset(ctx context.Context) error {
	if a.repo.maint == nil {
		return errNoMaintenance
	}
	return a.repo.maint.Reset(ctx)
}

// Dump writes a database backup to path.
func (a *Admin) Dump(ctx context.Context, path string) error {
	if a.repo.maint == nil {
		return errNoMaintenance
	}
	return a.repo.maint.Dump(ctx, path)
}

// Restore loads a database backup from path.
func (a *Admin) Restore(ctx context.Context, path string) error {
	if a.repo.maint == nil {
		return errNoMaintenance
	}
	return a.repo.maint.Restore(ctx, path)
}
