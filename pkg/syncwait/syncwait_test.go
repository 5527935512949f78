package syncwait

import (
	"sync"
	"testing"
	"time"

	"github.com/epsg/go-psi/pkg/constime"
	"github.com/epsg/go-psi/pkg/ioserial"
	"github.com/epsg/go-psi/pkg/platform"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct{ v uint16 }

func (f *fakeCounter) Read16() uint16 { return f.v }

func TestSyncWaitClockAlignment(t *testing.T) {
	masterPort, slavePort := ioserial.NewPipePair()
	clock := platform.NewSystemClock()

	masterCounter := &fakeCounter{v: 0x5678}
	masterCt, err := constime.New(masterCounter, 1)
	require.NoError(t, err)
	masterCt.SetTimeBase(0x0000_1234_5678_ABCD)

	slaveCounter := &fakeCounter{v: 1}
	slaveCt, err := constime.New(slaveCounter, 1)
	require.NoError(t, err)

	syncFired := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)
	var masterErr, slaveErr error
	var masterTime, slaveTime uint64

	go func() {
		defer wg.Done()
		masterTime, masterErr = RunMaster(masterPort, clock, masterCt, syncFired)
	}()
	go func() {
		defer wg.Done()
		slaveTime, slaveErr = RunSlave(slavePort, clock, slaveCt, time.Second, 10)
	}()

	time.Sleep(20 * time.Millisecond)
	close(syncFired)
	wg.Wait()

	require.NoError(t, masterErr)
	require.NoError(t, slaveErr)
	require.Equal(t, masterTime, slaveTime)
	require.GreaterOrEqual(t, slaveCt.GetTimeBase(), uint64(0x1234_5678_ABCD))
}
