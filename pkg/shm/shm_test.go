package shm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeapRegionSlice(t *testing.T) {
	r := NewHeapRegion(64)
	s, err := r.Slice(8, 16)
	require.NoError(t, err)
	require.Len(t, s, 16)
	s[0] = 0xAB
	s2, _ := r.Slice(8, 1)
	require.Equal(t, byte(0xAB), s2[0])
}

func TestHeapRegionOutOfBounds(t *testing.T) {
	r := NewHeapRegion(16)
	_, err := r.Slice(10, 10)
	require.Error(t, err)
}

func TestMappedRegionRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "psi.shm")
	r, err := NewMappedRegion(path, 4096)
	require.NoError(t, err)
	defer r.Close()

	s, err := r.Slice(0, 4)
	require.NoError(t, err)
	copy(s, []byte{1, 2, 3, 4})

	r2, err := NewMappedRegion(path, 4096)
	require.NoError(t, err)
	defer r2.Close()
	s2, err := r2.Slice(0, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, s2)
}
