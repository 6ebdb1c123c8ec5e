package protocol

import "github.com/sara-star-quant/hybrid-channel/internal/constants"

// Current is the protocol version this implementation speaks.
const Current = constants.ProtocolVersion

// IsSupported reports whether a ClientHello version can be accepted.
// There is no negotiation: only Current is.
func IsSupported(version uint8) bool {
	return version == Current
}
