package decode

import (
	"crypto/sha256"
	"encoding/binary"
)

// Discriminator is the fixed-width event type tag prefixing every payload.
type Discriminator [8]byte

// eventDiscriminator computes the tag the program derives for an event
// struct name: the first 8 bytes of sha256("event:<Name>").
func eventDiscriminator(name string) Discriminator {
	h := sha256.Sum256([]byte("event:" + name))
	var d Discriminator
	copy(d[:], h[:8])
	return d
}

// eventCPITag marks an instruction whose data is a wrapped event emitted
// through self-CPI. The payload after the tag is the event itself.
var eventCPITag = func() Discriminator {
	h := sha256.Sum256([]byte("anchor:event"))
	var d Discriminator
	copy(d[:], h[:8])
	return d
}()

// splitDiscriminator separates the leading tag from the payload. ok is
// false when the data is too short to carry a tag.
func splitDiscriminator(data []byte) (Discriminator, []byte, bool) {
	if len(data) < 8 {
		return Discriminator{}, nil, false
	}
	var d Discriminator
	copy(d[:], data[:8])
	return d, data[8:], true
}

// Uint64 returns the tag as a little-endian integer, for log output.
func (d Discriminator) Uint64() uint64 {
	return binary.LittleEndian.Uint64(d[:])
}
