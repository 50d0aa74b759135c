package transport

import "convsync/internal/wire"

// Sender is the outbound half of the channel, as seen by the sync components.
// Implementations must be safe for use from the frame-handling goroutine.
type Sender interface {
	SendFrame(f wire.Frame) error
	SendBinary(data []byte) error
}

// FrameHandler receives inbound text frames one at a time. The transport
// never invokes it concurrently, so handlers may mutate state without locks.
type FrameHandler func(f wire.Frame)
