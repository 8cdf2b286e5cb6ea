package hostapi

import "go.uber.org/zap"

// HTTPVersion is the decoded protocol version of a host message.
type HTTPVersion int

const (
	HTTPVersionUnknown HTTPVersion = iota
	HTTPVersion09
	HTTPVersion10
	HTTPVersion11
)

func (v HTTPVersion) String() string {
	switch v {
	case HTTPVersion09:
		return "HTTP/0.9"
	case HTTPVersion10:
		return "HTTP/1.0"
	case HTTPVersion11:
		return "HTTP/1.1"
	}
	return "HTTP/unknown"
}

// DecodeVersion maps a host major/minor pair to an HTTPVersion. An
// unrecognized pair is logged and reported as unknown, never an error.
func DecodeVersion(major, minor int, log *zap.Logger) HTTPVersion {
	switch {
	// Some hosts report 0.9 as version 0.0.
	case major == 0 && (minor == 9 || minor == 0):
		return HTTPVersion09
	case major == 1 && minor == 0:
		return HTTPVersion10
	case major == 1 && minor == 1:
		return HTTPVersion11
	}
	log.Error("unrecognized http version", zap.Int("major", major), zap.Int("minor", minor))
	return HTTPVersionUnknown
}
