package decode

import (
	"encoding/binary"
	"errors"

	"github.com/mr-tron/base58"
)

// errShortPayload is returned when a payload ends before its fixed layout.
var errShortPayload = errors.New("payload shorter than event layout")

// payloadReader walks a fixed little-endian field layout. The first bounds
// failure sticks; callers check Err once after reading every field.
type payloadReader struct {
	buf []byte
	off int
	err error
}

func newPayloadReader(buf []byte) *payloadReader {
	return &payloadReader{buf: buf}
}

func (r *payloadReader) Err() error {
	return r.err
}

func (r *payloadReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = errShortPayload
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *payloadReader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *payloadReader) boolean() bool {
	return r.u8() != 0
}

func (r *payloadReader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *payloadReader) i64() int64 {
	return int64(r.u64())
}

// pubkey reads a 32-byte key and returns its base58 form.
func (r *payloadReader) pubkey() string {
	b := r.take(32)
	if b == nil {
		return ""
	}
	return base58.Encode(b)
}
