package platform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSsdoBufferLayout(t *testing.T) {
	const maxChannels = 4
	require.Equal(t, SsdoTxBase, SsdoTxID(0))
	require.Equal(t, SsdoTxBase+3, SsdoTxID(3))
	require.Equal(t, SsdoTxBase+maxChannels, SsdoRxID(maxChannels, 0))
	require.Equal(t, SsdoTxBase+2*maxChannels, LogTxID(maxChannels, 0))
}

func TestSystemClockMonotonic(t *testing.T) {
	c := NewSystemClock()
	t1 := c.NowUs()
	c.Sleep(1)
	t2 := c.NowUs()
	require.GreaterOrEqual(t, t2, t1)
}
