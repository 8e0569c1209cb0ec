//go:build windows

package filesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qnreport/pkg/contract"
)

func TestMapPathRejectsEscapeWindows(t *testing.T) {
	w, err := New(&Options{Root: t.TempDir()})
	require.NoError(t, err)
	for _, id := range []string{`C:\abs`, `C:rel`, `\\srv\share\x.md`, "..", `..\x.md`, "."} {
		_, err := w.mapPath(contract.ArtifactID(id))
		assert.ErrorIs(t, err, contract.ErrPathInvalid, "id %q", id)
	}
}
