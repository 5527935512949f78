package logbook

import (
	"testing"

	"github.com/epsg/go-psi/pkg/errorhandler"
	"github.com/epsg/go-psi/pkg/tbuf"
	"github.com/stretchr/testify/require"
)

func TestPostLogEntryEncodesFixedWidthRecord(t *testing.T) {
	c := New(64, nil, "logbook0", 5)
	require.NoError(t, c.PostLogEntry("cc", errorhandler.SeverityMinor, errorhandler.KindTimeout, 0xDEADBEEF))
	require.True(t, c.Busy())

	buf := tbuf.New(0, make([]byte, 16), tbuf.NewAckRegister())
	require.NoError(t, c.EncodeOutbound(buf))

	length, err := buf.ReadU8(1)
	require.NoError(t, err)
	require.Equal(t, uint8(entryLen), length)
}

func TestPostLogEntryRejectsSecondPostWhileBusy(t *testing.T) {
	c := New(64, nil, "logbook0", 5)
	require.NoError(t, c.PostLogEntry("cc", errorhandler.SeverityInfo, errorhandler.KindTimeout, 0))
	err := c.PostLogEntry("cc", errorhandler.SeverityInfo, errorhandler.KindTimeout, 0)
	require.ErrorIs(t, err, errorhandler.ErrChannelBusy)
}

func TestHandlerForwardsReportsIntoLogbook(t *testing.T) {
	c := New(64, nil, "cc", 5)
	h := errorhandler.New(nil, c)
	h.Report(errorhandler.Report{Source: "cc", Severity: errorhandler.SeverityMinor, Kind: errorhandler.KindTimeout, AdditionalInfo: 7})
	require.True(t, c.Busy())
	require.Equal(t, uint32(0), h.LostErrors())
}
