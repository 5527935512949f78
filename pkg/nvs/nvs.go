// Package nvs wraps non-volatile storage access for SOD persistence
// (C19): sector erase plus word/halfword/byte-width flash programming,
// including the tail-byte-promoted-to-halfword edge case some devices
// require because they cannot program less than 16 bits at a time.
//
// Grounded on original_source/.../target/stm32f103rb/nvs.c for the
// write-width selection algorithm; simulated here (no real flash
// peripheral exists to target) over a byte slice that starts "erased"
// (all 0xFF), matching flash semantics closely enough to exercise the
// algorithm and its invariants.
package nvs

import "fmt"

// ProgramWidth records which flash program width a Write call used for a
// given chunk, exposed so tests can assert the selection algorithm.
type ProgramWidth uint8

const (
	WidthWord     ProgramWidth = 4
	WidthHalfword ProgramWidth = 2
)

// Erased is the byte value a freshly erased flash sector reads as.
const Erased byte = 0xFF

// Sector simulates one dedicated flash sector holding the persisted SOD.
type Sector struct {
	data []byte
}

// NewSector allocates a simulated sector of the given size, erased.
func NewSector(size int) *Sector {
	s := &Sector{data: make([]byte, size)}
	s.Erase()
	return s
}

// Erase resets the whole sector to the erased state; flash requires an
// erase before any bit can be set back to 1.
func (s *Sector) Erase() {
	for i := range s.data {
		s.data[i] = Erased
	}
}

// Read copies n bytes starting at offset out of the sector.
func (s *Sector) Read(offset, n int) ([]byte, error) {
	if offset < 0 || n < 0 || offset+n > len(s.data) {
		return nil, fmt.Errorf("nvs: read [%d:%d) out of bounds (sector size %d)", offset, offset+n, len(s.data))
	}
	out := make([]byte, n)
	copy(out, s.data[offset:offset+n])
	return out, nil
}

// Write programs buf at offset using the word-preferred, halfword-if-tail,
// byte-if-tail width selection, promoting a final single byte to a
// halfword program. Returns the sequence of widths used, in order; a final
// byte at the sector's last location is programmed alone and is not
// recorded in that sequence.
func (s *Sector) Write(offset int, buf []byte) ([]ProgramWidth, error) {
	if offset < 0 || offset+len(buf) > len(s.data) {
		return nil, fmt.Errorf("nvs: write [%d:%d) out of bounds (sector size %d)", offset, offset+len(buf), len(s.data))
	}
	var widths []ProgramWidth
	pos := 0
	for pos < len(buf) {
		remaining := len(buf) - pos
		switch {
		case remaining >= 4:
			copy(s.data[offset+pos:offset+pos+4], buf[pos:pos+4])
			widths = append(widths, WidthWord)
			pos += 4

		case remaining == 2:
			copy(s.data[offset+pos:offset+pos+2], buf[pos:pos+2])
			widths = append(widths, WidthHalfword)
			pos += 2

		case remaining == 3:
			copy(s.data[offset+pos:offset+pos+2], buf[pos:pos+2])
			widths = append(widths, WidthHalfword)
			pos += 2

		case remaining == 1:
			if offset+pos+1 >= len(s.data) {
				// No room to promote at the very end of the sector: fall
				// back to a single byte program.
				s.data[offset+pos] = buf[pos]
				pos++
				continue
			}
			// Promoted: program a halfword whose low byte is the tail
			// value and whose high byte is whatever already occupies the
			// next sector location (erased 0xFF unless this Write follows
			// another into the same region without an intervening erase).
			pad := s.data[offset+pos+1]
			s.data[offset+pos] = buf[pos]
			s.data[offset+pos+1] = pad
			widths = append(widths, WidthHalfword)
			pos++
		}
	}
	return widths, nil
}
