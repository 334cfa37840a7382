package ntp

import "time"

// Values advertised in every response. This service does not relay a real
// reference clock, so the reference ID, root delay and root dispersion are
// fixed placeholders.
const (
	ResponseStratum        byte         = 2
	ResponsePoll           int8         = 4
	ResponsePrecision      int8         = -23 // 0xe9
	ResponseReferenceID    ShortEncoded = 0x808a8dac
	ResponseRootDelay      ShortEncoded = 0x00000e66
	ResponseRootDispersion ShortEncoded = 0x00000424

	ReferenceAge = time.Hour
)

// RearrangeForResponse derives the server reply to request f. now is the
// server's current time and delay is added to the receive and transmit
// timestamps. Only the version and the client's transmit timestamp (echoed as
// the origin timestamp) carry over from the request.
func (f Frame) RearrangeForResponse(now time.Time, delay time.Duration) Frame {
	stamp := NewTimestamp(now.Add(delay))

	return Frame{
		Leap:    LeapNoWarning,
		Version: f.Version,
		Mode:    SERVER,
		FrameFieldsEncoded: FrameFieldsEncoded{
			Stratum:        ResponseStratum,
			Poll:           ResponsePoll,
			Precision:      ResponsePrecision,
			RootDelay:      ResponseRootDelay,
			RootDispersion: ResponseRootDispersion,
			ReferenceID:    ResponseReferenceID,
			ReferenceTime:  NewTimestamp(now.Add(-ReferenceAge)),
			OriginTime:     f.TransmitTime,
			ReceiveTime:    stamp,
			TransmitTime:   stamp,
		},
	}
}
