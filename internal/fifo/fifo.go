// Package fifo implements the byte-ring buffer used by the SSDO and logbook
// async channels to stage outgoing/incoming frame payloads between PSI
// processing cycles.
package fifo

// Fifo is a circular byte buffer with a primary read cursor and an
// alternate read cursor used to peek/rewind without disturbing the primary
// one (needed when a transmit attempt must be retried after a timeout).
type Fifo struct {
	buffer     []byte
	writePos   int
	readPos    int
	altReadPos int
}

func NewFifo(size uint16) *Fifo {
	return &Fifo{buffer: make([]byte, size)}
}

func (f *Fifo) Reset() {
	f.readPos = 0
	f.writePos = 0
	f.altReadPos = 0
}

func (f *Fifo) GetSpace() int {
	sizeLeft := f.readPos - f.writePos - 1
	if sizeLeft < 0 {
		sizeLeft += len(f.buffer)
	}
	return sizeLeft
}

func (f *Fifo) GetOccupied() int {
	sizeOccupied := f.writePos - f.readPos
	if sizeOccupied < 0 {
		sizeOccupied += len(f.buffer)
	}
	return sizeOccupied
}

// Write appends buffer to the fifo, stopping early if space runs out, and
// returns the number of bytes actually written.
func (f *Fifo) Write(buffer []byte) int {
	if buffer == nil {
		return 0
	}
	writeCounter := 0
	for _, element := range buffer {
		writePosNext := f.writePos + 1
		if writePosNext == f.readPos || (writePosNext == len(f.buffer) && f.readPos == 0) {
			break
		}
		f.buffer[f.writePos] = element
		writeCounter++
		if writePosNext == len(f.buffer) {
			f.writePos = 0
		} else {
			f.writePos++
		}
	}
	return writeCounter
}

// Read drains up to len(buffer) bytes from the fifo and returns the count read.
func (f *Fifo) Read(buffer []byte) int {
	if buffer == nil || f.readPos == f.writePos {
		return 0
	}
	readCounter := 0
	for index := range buffer {
		if f.readPos == f.writePos {
			break
		}
		buffer[index] = f.buffer[f.readPos]
		readCounter++
		f.readPos++
		if f.readPos == len(f.buffer) {
			f.readPos = 0
		}
	}
	return readCounter
}

// AltBegin positions the alternate read cursor offset bytes ahead of the
// primary cursor, returning how far it actually moved (bounded by occupancy).
func (f *Fifo) AltBegin(offset int) int {
	var i int
	f.altReadPos = f.readPos
	for i = offset; i > 0; i-- {
		if f.altReadPos == f.writePos {
			break
		}
		f.altReadPos++
		if f.altReadPos == len(f.buffer) {
			f.altReadPos = 0
		}
	}
	return offset - i
}

// AltFinish commits the alternate cursor as the new primary read position,
// discarding everything between them (used once a transmit attempt is
// acknowledged).
func (f *Fifo) AltFinish() {
	f.readPos = f.altReadPos
}

func (f *Fifo) AltRead(buffer []byte) int {
	readCounter := 0
	for index := range buffer {
		if f.altReadPos == f.writePos {
			break
		}
		buffer[index] = f.buffer[f.altReadPos]
		readCounter++
		f.altReadPos++
		if f.altReadPos == len(f.buffer) {
			f.altReadPos = 0
		}
	}
	return readCounter
}

func (f *Fifo) AltGetOccupied() int {
	sizeOccupied := f.writePos - f.altReadPos
	if sizeOccupied < 0 {
		sizeOccupied += len(f.buffer)
	}
	return sizeOccupied
}
