package status

import (
	"testing"

	"github.com/epsg/go-psi/pkg/platform"
	"github.com/epsg/go-psi/pkg/seqnr"
	"github.com/epsg/go-psi/pkg/tbuf"
	"github.com/stretchr/testify/require"
)

func newInBuffer() *tbuf.Buffer {
	return tbuf.New(tbuf.ID(platform.StatusIn), make([]byte, InboundFrameLen), tbuf.NewAckRegister())
}

func TestDecodeInboundForwardsTimeStampAndCachesFlags(t *testing.T) {
	var got TimeStamp
	c := New(func(ts TimeStamp) { got = ts })

	buf := newInBuffer()
	require.NoError(t, buf.WriteU32(offRelTimeLow, 0x11223344))
	require.NoError(t, buf.WriteU32(offRelTimeHigh, 0x55667788))
	require.NoError(t, buf.WriteU8(offIccStatus, uint8(seqnr.First)))
	require.NoError(t, buf.WriteU16(offAsyncConsus, 0x0005))

	require.NoError(t, c.DecodeInbound(buf))

	require.Equal(t, TimeStamp{Low: 0x11223344, High: 0x55667788}, got)
	require.Equal(t, seqnr.First, c.GetIccStatus())
	require.True(t, c.GetAsyncTxChanFlag(0))
	require.True(t, c.GetAsyncTxChanFlag(2))
	require.False(t, c.GetAsyncTxChanFlag(1))
}

func TestEncodeOutboundReflectsRxChanFlags(t *testing.T) {
	c := New(nil)
	c.SetAsyncRxChanFlag(0, true)
	c.SetAsyncRxChanFlag(3, true)

	out := tbuf.New(tbuf.ID(platform.StatusOut), make([]byte, OutboundFrameLen), tbuf.NewAckRegister())
	require.NoError(t, c.EncodeOutbound(out))

	v, err := out.ReadU16(0)
	require.NoError(t, err)
	require.Equal(t, uint16(0x0009), v)

	c.SetAsyncRxChanFlag(0, false)
	require.NoError(t, c.EncodeOutbound(out))
	v, err = out.ReadU16(0)
	require.NoError(t, err)
	require.Equal(t, uint16(0x0008), v)
}

func TestDecodeInboundNilCallbackDoesNotPanic(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.DecodeInbound(newInBuffer()))
}
