package ntp

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	leapShift    = 6
	versionShift = 3
	leapMask     = 0b11
	versionMask  = 0b111
	modeMask     = 0b111
)

// Frame is one SNTP/NTP header. Extension fields and the MAC are not modeled.
type Frame struct {
	Leap    LeapIndicator /* leap indicator */
	Version byte          /* version number */
	Mode    Mode          /* mode */
	FrameFieldsEncoded
}

// FrameFieldsEncoded is the fixed-layout part of the header following octet 0.
// Its in-memory field order matches the wire so it can go through encoding/binary.
type FrameFieldsEncoded struct {
	Stratum        byte         /* stratum */
	Poll           int8         /* poll interval */
	Precision      int8         /* precision */
	RootDelay      ShortEncoded /* root delay */
	RootDispersion ShortEncoded /* root dispersion */
	ReferenceID    ShortEncoded /* reference ID */
	ReferenceTime  Timestamp    /* reference time */
	OriginTime     Timestamp    /* origin timestamp */
	ReceiveTime    Timestamp    /* receive timestamp */
	TransmitTime   Timestamp    /* transmit timestamp */
}

// packFlags builds octet 0: leap in bits 7-6, version in bits 5-3, mode in bits 2-0.
func packFlags(leap LeapIndicator, version byte, mode Mode) byte {
	return byte(leap&leapMask)<<leapShift |
		(version&versionMask)<<versionShift |
		byte(mode&modeMask)
}

// unpackFlags shifts first and masks second.
func unpackFlags(b byte) (LeapIndicator, byte, Mode) {
	leap := LeapIndicator((b >> leapShift) & leapMask)
	version := (b >> versionShift) & versionMask
	mode := Mode(b & modeMask)
	return leap, version, mode
}

// ParseFrame decodes the first FrameSize octets of datagram. Anything past
// that is ignored.
func ParseFrame(datagram []byte) (Frame, error) {
	if len(datagram) < FrameSize {
		return Frame{}, fmt.Errorf("%w: frame needs %d bytes, got %d", ErrFormat, FrameSize, len(datagram))
	}

	leap, version, mode := unpackFlags(datagram[0])

	fieldsEncoded := FrameFieldsEncoded{}
	reader := bytes.NewReader(datagram[1:FrameSize])
	if err := binary.Read(reader, binary.BigEndian, &fieldsEncoded); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	return Frame{
		Leap:               leap,
		Version:            version,
		Mode:               mode,
		FrameFieldsEncoded: fieldsEncoded,
	}, nil
}

// Bytes serializes the frame into exactly FrameSize octets.
func (f Frame) Bytes() []byte {
	var buffer bytes.Buffer
	buffer.Grow(FrameSize)
	buffer.WriteByte(packFlags(f.Leap, f.Version, f.Mode))
	// Writes into a bytes.Buffer of fixed-size fields cannot fail.
	_ = binary.Write(&buffer, binary.BigEndian, &f.FrameFieldsEncoded)
	return buffer.Bytes()
}
