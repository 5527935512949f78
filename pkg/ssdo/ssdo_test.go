package ssdo

import (
	"testing"

	"github.com/epsg/go-psi/pkg/errorhandler"
	"github.com/epsg/go-psi/pkg/seqnr"
	"github.com/epsg/go-psi/pkg/tbuf"
	"github.com/stretchr/testify/require"
)

func TestPostPayloadThenBusyUntilAcked(t *testing.T) {
	c := New(64, nil, nil, "ssdo0", 5)
	require.NoError(t, c.PostPayload([]byte{1, 2, 3}))
	require.True(t, c.Busy())
	require.ErrorIs(t, c.PostPayload([]byte{4}), errorhandler.ErrChannelBusy)
}

func TestEncodeOutboundRetransmitsSamePayloadUntilAcked(t *testing.T) {
	c := New(64, nil, nil, "ssdo0", 5)
	require.NoError(t, c.PostPayload([]byte{9, 8, 7}))

	buf := tbuf.New(0, make([]byte, 8), tbuf.NewAckRegister())
	require.NoError(t, c.EncodeOutbound(buf))
	seq, err := buf.ReadU8(0)
	require.NoError(t, err)
	require.NotEqual(t, uint8(seqnr.Invalid), seq)
	length, _ := buf.ReadU8(1)
	require.Equal(t, uint8(3), length)

	// Second cycle, still unacked: same frame content re-sent.
	require.NoError(t, c.EncodeOutbound(buf))
	seq2, _ := buf.ReadU8(0)
	require.Equal(t, seq, seq2)

	c.PostAcked(seqnr.SeqNr(seq))
	require.False(t, c.Busy())
}

func TestEncodeOutboundTimesOutAfterConfiguredCycles(t *testing.T) {
	c := New(64, nil, nil, "ssdo0", 2)
	require.NoError(t, c.PostPayload([]byte{1}))

	buf := tbuf.New(0, make([]byte, 8), tbuf.NewAckRegister())
	require.NoError(t, c.EncodeOutbound(buf))
	require.True(t, c.Busy())
	require.NoError(t, c.EncodeOutbound(buf))
	require.False(t, c.Busy())
}

func TestRxAckBitTracksReceivedSequenceAlternation(t *testing.T) {
	c := New(64, nil, nil, "ssdo0", 5)
	require.False(t, c.RxAckBit()) // idle: rxSeq is still Invalid

	buf := tbuf.New(1, make([]byte, 8), tbuf.NewAckRegister())
	require.NoError(t, buf.WriteU8(0, uint8(seqnr.First)))
	require.NoError(t, c.DecodeInbound(buf))
	require.False(t, c.RxAckBit()) // First

	require.NoError(t, buf.WriteU8(0, uint8(seqnr.Second)))
	require.NoError(t, c.DecodeInbound(buf))
	require.True(t, c.RxAckBit()) // Second
}

func TestDecodeInboundDeliversNewFrameOnce(t *testing.T) {
	var got []byte
	calls := 0
	c := New(64, func(payload []byte) { got = payload; calls++ }, nil, "ssdo0", 5)

	buf := tbuf.New(1, make([]byte, 8), tbuf.NewAckRegister())
	require.NoError(t, buf.WriteU8(0, uint8(seqnr.First)))
	require.NoError(t, buf.WriteU8(1, 2))
	require.NoError(t, buf.WriteStream(2, []byte{0xAA, 0xBB}))

	require.NoError(t, c.DecodeInbound(buf))
	require.Equal(t, []byte{0xAA, 0xBB}, got)
	require.Equal(t, 1, calls)

	// Same sequence number again: not redelivered.
	require.NoError(t, c.DecodeInbound(buf))
	require.Equal(t, 1, calls)
}
