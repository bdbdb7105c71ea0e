package places

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePlaces(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "places.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRead(t *testing.T) {
	path := writePlaces(t, "# airports\n\nAIVR, 13.174, 121.278\n  Calapan ,13.41,121.18  \n")

	got, err := Read(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "AIVR", got[0].Label)
	assert.Equal(t, "AIVR", got[0].Query)
	assert.InDelta(t, 13.174, got[0].Location.Lat, 1e-9)
	assert.InDelta(t, 121.278, got[0].Location.Lon, 1e-9)
	assert.Equal(t, "Calapan", got[1].Label)
}

func TestRead_Missing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPlacesMissing))
}

func TestRead_BadLines(t *testing.T) {
	tests := []struct {
		name    string
		content string
		line    int
	}{
		{"too few fields", "AIVR, 13.1\n", 1},
		{"too many fields", "ok, 1, 2\nA, 1, 2, 3\n", 2},
		{"bad latitude", "# c\nA, north, 121\n", 2},
		{"bad longitude", "A, 13, east\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(writePlaces(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), fmt.Sprintf("line %d", tt.line))
		})
	}
}

func TestRead_BadLineCause(t *testing.T) {
	path := writePlaces(t, "AIVR, 13.1\n")
	_, err := Read(path)
	require.Error(t, err)
	assert.Equal(t, "invalid format in "+path+" line 1: expected: Label, lat, lon", err.Error())
	assert.Equal(t, "expected: Label, lat, lon", errors.Cause(err).Error())
}

func TestRead_Empty(t *testing.T) {
	got, err := Read(writePlaces(t, "# nothing yet\n\n"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSignature(t *testing.T) {
	path := writePlaces(t, "A, 1, 2\n")
	mtime := time.Unix(1700000000, 0)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	sig, err := Signature(path)
	require.NoError(t, err)
	assert.Equal(t, "1700000000:8", sig)

	_, err = Signature(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.Is(err, ErrPlacesMissing))
}

func TestLabelFromQuery(t *testing.T) {
	assert.Equal(t, "Calapan", LabelFromQuery(" Calapan , Oriental Mindoro"))
	assert.Equal(t, "Puerto Galera", LabelFromQuery("Puerto Galera"))
}
