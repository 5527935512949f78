package serial

import (
	"sync"
	"testing"
	"time"

	"github.com/epsg/go-psi/pkg/ioserial"
	"github.com/epsg/go-psi/pkg/platform"
	"github.com/stretchr/testify/require"
)

func TestPingPongRoundTrip(t *testing.T) {
	masterPort, slavePort := ioserial.NewPipePair()
	clock := platform.NewSystemClock()

	var wg sync.WaitGroup
	wg.Add(2)

	var masterErr, slaveErr error
	var slaveGotPong []byte

	go func() {
		defer wg.Done()
		ping, err := MasterReceivePing(masterPort, 4, func(f []byte) bool { return string(f) == "ping" })
		masterErr = err
		if err == nil {
			_ = ping
			masterErr = MasterSendPong(masterPort, clock, []byte("pong"))
		}
	}()

	go func() {
		defer wg.Done()
		pong, err := SlaveExchange(slavePort, clock, []byte("ping"), 4, 2*time.Second, 3, func(f []byte) bool { return string(f) == "pong" })
		slaveErr = err
		slaveGotPong = pong
	}()

	wg.Wait()
	require.NoError(t, masterErr)
	require.NoError(t, slaveErr)
	require.Equal(t, "pong", string(slaveGotPong))
}

func TestMasterRejectsInvalidWelcome(t *testing.T) {
	masterPort, slavePort := ioserial.NewPipePair()
	defer slavePort.Close()

	go func() { _, _ = slavePort.Write([]byte("bad!")) }()

	_, err := MasterReceivePing(masterPort, 4, func(f []byte) bool { return string(f) == "ping" })
	require.ErrorIs(t, err, ErrMessageInvalid)
}

func TestSlaveRetriesOnTimeoutThenFails(t *testing.T) {
	masterPort, slavePort := ioserial.NewPipePair()
	clock := platform.NewSystemClock()

	// Consume the slave's pings so its writes complete, but never answer.
	go func() {
		buf := make([]byte, 4)
		for {
			if _, err := masterPort.ReadTimeout(buf, time.Second); err != nil {
				return
			}
		}
	}()

	_, err := SlaveExchange(slavePort, clock, []byte("ping"), 4, 10*time.Millisecond, 2, nil)
	require.ErrorIs(t, err, ErrMaxAttemptsExceeded)
}
