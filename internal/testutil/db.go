package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xxxsen/papershelf/internal/repo"
)

// OpenTestHandle returns an acquired handle backed by a fresh SQLite file in
// the test's temp dir. The handle is closed on cleanup.
func OpenTestHandle(t *testing.T) *repo.Handle {
	t.Helper()
	handle := repo.NewHandle(filepath.Join(t.TempDir(), "papers.sqlite"))
	if _, err := handle.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire db: %v", err)
	}
	t.Cleanup(func() {
		_ = handle.Close()
	})
	return handle
}
