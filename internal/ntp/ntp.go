package ntp

import "errors"

type TimestampEncoded = uint64

type ShortEncoded = uint32

type Mode byte

const (
	RESERVED Mode = iota
	SYMMETRIC_ACTIVE
	SYMMETRIC_PASSIVE
	CLIENT
	SERVER
	BROADCAST_SERVER
	CONTROL_MESSAGE
	RESERVED_PRIVATE_USE
)

var modeNames = [...]string{
	"reserved",
	"symmetric-active",
	"symmetric-passive",
	"client",
	"server",
	"broadcast",
	"control",
	"private",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "invalid"
}

type LeapIndicator byte

const (
	LeapNoWarning       LeapIndicator = iota /* no warning */
	LeapLastMinute61                         /* last minute of the day has 61 seconds */
	LeapLastMinute59                         /* last minute of the day has 59 seconds */
	LeapNotSynchronized                      /* clock unsynchronized */
)

const (
	MTU       = 1300
	FrameSize = 48 // header without extension fields or MAC
)

// ErrFormat is returned when wire data is shorter than the structure it must hold.
var ErrFormat = errors.New("malformed ntp data")
