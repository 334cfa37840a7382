package ntp

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

const (
	EraLength     int64   = 4_294_967_296 // 2^32
	UnixEraOffset int64   = 2_208_988_800 // 1970 - 1900 in seconds
	ShortLength   float64 = 65536         // 2^16

	TimestampSize = 8
)

// Timestamp is a 64-bit NTP timestamp: whole seconds since 1900-01-01 UTC and
// a fraction of a second in units of 2^-32 s. Seconds wrap in 2036.
type Timestamp struct {
	Seconds  uint32
	Fraction uint32
}

// NewTimestamp encodes t. The fraction is truncated, never rounded.
func NewTimestamp(t time.Time) Timestamp {
	sec := t.Unix() + UnixEraOffset
	frac := (uint64(t.Nanosecond()) << 32) / uint64(time.Second)
	return Timestamp{
		Seconds:  uint32(sec),
		Fraction: uint32(frac),
	}
}

// DecodeTimestamp reads a big-endian timestamp from the first 8 octets of b.
func DecodeTimestamp(b []byte) (Timestamp, error) {
	if len(b) < TimestampSize {
		return Timestamp{}, fmt.Errorf("%w: timestamp needs %d bytes, got %d", ErrFormat, TimestampSize, len(b))
	}
	return Timestamp{
		Seconds:  binary.BigEndian.Uint32(b[0:4]),
		Fraction: binary.BigEndian.Uint32(b[4:8]),
	}, nil
}

func (ts Timestamp) Bytes() []byte {
	b := make([]byte, TimestampSize)
	binary.BigEndian.PutUint32(b[0:4], ts.Seconds)
	binary.BigEndian.PutUint32(b[4:8], ts.Fraction)
	return b
}

func (ts Timestamp) Encoded() TimestampEncoded {
	return TimestampEncoded(ts.Seconds)<<32 | TimestampEncoded(ts.Fraction)
}

// Time decodes ts assuming era 0 (1900-2036).
func (ts Timestamp) Time() time.Time {
	sec := int64(ts.Seconds) - UnixEraOffset
	nsec := (uint64(ts.Fraction) * uint64(time.Second)) >> 32
	return time.Unix(sec, int64(nsec)).UTC()
}

func (ts Timestamp) String() string {
	return ts.Time().Format(time.RFC3339Nano)
}

func TimestampFromEncoded(encoded TimestampEncoded) Timestamp {
	return Timestamp{
		Seconds:  uint32(encoded >> 32),
		Fraction: uint32(encoded),
	}
}

// Log2ToDouble converts a log2 seconds field (poll, precision) to seconds.
func Log2ToDouble(a int8) float64 {
	return math.Ldexp(1, int(a))
}

// ShortToDuration converts a 16.16 fixed-point NTP short (root delay, root
// dispersion) into a duration.
func ShortToDuration(s ShortEncoded) time.Duration {
	return time.Duration(float64(s) / ShortLength * float64(time.Second))
}
