package pdoimage

import (
	"testing"

	"github.com/epsg/go-psi/pkg/tbuf"
	"github.com/stretchr/testify/require"
)

func TestDecodeIntoCopiesSharedBufferIntoImage(t *testing.T) {
	buf := tbuf.New(0, []byte{1, 2, 3, 4}, tbuf.NewAckRegister())
	ch := NewChannel(make([]byte, 4))

	require.NoError(t, ch.DecodeInto(buf))
	require.Equal(t, []byte{1, 2, 3, 4}, ch.Image)
}

func TestEncodeFromCopiesImageIntoSharedBuffer(t *testing.T) {
	buf := tbuf.New(0, make([]byte, 4), tbuf.NewAckRegister())
	ch := NewChannel([]byte{9, 8, 7, 6})

	require.NoError(t, ch.EncodeFrom(buf))
	out := make([]byte, 4)
	require.NoError(t, buf.ReadStream(0, out))
	require.Equal(t, []byte{9, 8, 7, 6}, out)
}

func TestDeactivatedChannelIsNoOp(t *testing.T) {
	buf := tbuf.New(0, []byte{1, 2, 3, 4}, tbuf.NewAckRegister())
	ch := NewChannel(nil)

	require.True(t, ch.Deactivated())
	require.NoError(t, ch.DecodeInto(buf))
	require.NoError(t, ch.EncodeFrom(buf))
}

func TestExchangeRunSyncInvokesCallbackWithBothChannels(t *testing.T) {
	rpdo := NewChannel(make([]byte, 2))
	tpdo := NewChannel(make([]byte, 2))

	var gotR, gotT *Channel
	e := NewExchange(rpdo, tpdo, func(r, t *Channel) error {
		gotR, gotT = r, t
		return nil
	})

	require.NoError(t, e.RunSync())
	require.Same(t, rpdo, gotR)
	require.Same(t, tpdo, gotT)
}

func TestExchangeRunSyncNilCallbackIsNoOp(t *testing.T) {
	e := NewExchange(nil, nil, nil)
	require.NoError(t, e.RunSync())
}
