package session

import "github.com/PocketRelay/Server-sub000/internal/netpacket"

// Component ids referenced by the debug-tracing policy (§4.C); the full
// numbering lives with the handler set (internal/handlers), these are the
// handful needed to decide what the session's read loop logs.
const (
	componentAuth = 0x1
	componentUtil = 0x9
)

const (
	cmdPing                 = 0x02
	cmdSuspendUserPing      = 0x1B
	cmdListUserEntitlements2 = 0x1D
	cmdFetchClientConfig    = 0x01
	cmdUserSettingsLoadAll  = 0x0C
)

// ShouldLogPacket reports whether the session's read loop should even log
// the packet header. Ping and SuspendUserPing are chatty keep-alive traffic
// and are never logged.
func ShouldLogPacket(h netpacket.Header) bool {
	if h.Component == componentUtil && (h.Command == cmdPing || h.Command == cmdSuspendUserPing) {
		return false
	}
	return true
}

// ShouldLogPayload reports whether, given ShouldLogPacket already allowed
// logging the header, the payload should also be stringified. A handful of
// high-volume or high-size commands log headers only.
func ShouldLogPayload(h netpacket.Header) bool {
	switch {
	case h.Component == componentAuth && h.Command == cmdListUserEntitlements2:
		return false
	case h.Component == componentUtil && h.Command == cmdFetchClientConfig:
		return false
	case h.Component == componentUtil && h.Command == cmdUserSettingsLoadAll:
		return false
	default:
		return true
	}
}
