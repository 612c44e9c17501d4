package interaction

import "errors"

// MessageCode identifies a message type. The high bit partitions the 64-bit
// space: codes with the bit set are reserved for the library, everything
// below the mask is available to user-defined message types.
type MessageCode uint64

// LibraryMask is the reserved-bit partition between library message codes
// and user-defined ones.
const LibraryMask MessageCode = 1 << 63

// ErrInvalidMessageCode reports a code that does not carry the library
// partition bit where one is required.
var ErrInvalidMessageCode = errors.New("interaction: invalid message code")

// Library message codes. Offsets are declared in one place so the partition
// cannot be violated by construction.
const (
	CodeOrder MessageCode = LibraryMask | 1
	CodeQuote MessageCode = LibraryMask | 2
)

// LibraryCode maps an offset into the library partition. The offset must fit
// below the mask.
func LibraryCode(offset MessageCode) (MessageCode, error) {
	if offset&LibraryMask != 0 {
		return 0, ErrInvalidMessageCode
	}
	return LibraryMask | offset, nil
}

// LibraryOffset recovers the offset from a library code. Codes without the
// reserved bit fail with ErrInvalidMessageCode.
func LibraryOffset(code MessageCode) (MessageCode, error) {
	if code&LibraryMask == 0 {
		return 0, ErrInvalidMessageCode
	}
	return code &^ LibraryMask, nil
}
