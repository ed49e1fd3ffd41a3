package tunnel

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/PocketRelay/Server-sub000/internal/assoc"
)

// KeepAliveInterval is how often the server pings every live tunnel.
const KeepAliveInterval = 10 * time.Second

// DissociateAfter is the idle deadline past which a tunnel is torn down
// (§4.H: "any tunnel whose last_alive is older than 40 seconds is
// dissociated").
const DissociateAfter = 40 * time.Second

var (
	// ErrInvalidAssociation is returned when Initiate's token fails verification.
	ErrInvalidAssociation = errors.New("tunnel: invalid association token")
	// ErrTunnelIDsExhausted is returned when the allocator can't find a free id
	// after two full passes, per the boundary behavior in §8.
	ErrTunnelIDsExhausted = errors.New("tunnel: id space exhausted")
	// ErrUnknownTunnel is returned when a Forward/KeepAlive references a tunnel
	// id the relay has no record of.
	ErrUnknownTunnel = errors.New("tunnel: unknown tunnel id")
)

type tunnelEntry struct {
	transport   Transport
	association assoc.ID
	lastAlive   time.Time
	poolKey     uint64
	hasPoolKey  bool
}

// Relay is the process-wide tunnel mesh: TunnelId -> {transport,
// association, last_alive}, AssociationId -> TunnelId, and the pool-slot
// table routing Forward messages between peers in the same game. A single
// mutex guards all four maps, held only for the bookkeeping itself, never
// across network I/O — matching the teacher's short-critical-section idiom
// over shared maps.
type Relay struct {
	signer *assoc.Signer

	mu              sync.Mutex
	tunnels         map[uint32]*tunnelEntry
	byAssociation   map[assoc.ID]uint32
	poolToTunnel    map[uint64]uint32 // (game_id,slot_index) -> tunnel_id ("index_to_tunnel")
	tunnelToPoolKey map[uint32]uint64 // tunnel_id -> (game_id,slot_index) ("tunnel_to_index")
	nextID          uint32
}

// New builds an empty Relay bound to signer for association-token verification.
func New(signer *assoc.Signer) *Relay {
	return &Relay{
		signer:          signer,
		tunnels:         make(map[uint32]*tunnelEntry),
		byAssociation:   make(map[assoc.ID]uint32),
		poolToTunnel:    make(map[uint64]uint32),
		tunnelToPoolKey: make(map[uint32]uint64),
	}
}

// Initiate verifies token, allocates a fresh tunnel id bound to transport,
// and returns it. The id never collides with a live tunnel and is never
// math.MaxUint32 (reserved); after two full passes over the id space
// without finding a free slot it reports ErrTunnelIDsExhausted.
func (r *Relay) Initiate(token []byte, transport Transport) (uint32, error) {
	id, err := r.signer.Verify(token)
	if err != nil {
		return 0, ErrInvalidAssociation
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tunnelID, err := r.allocateLocked()
	if err != nil {
		return 0, err
	}

	r.tunnels[tunnelID] = &tunnelEntry{
		transport:   transport,
		association: id,
		lastAlive:   time.Now(),
	}
	r.byAssociation[id] = tunnelID
	return tunnelID, nil
}

// allocateLocked finds a free id, skipping 0 and math.MaxUint32 (reserved),
// giving up after two full passes over the id space (uint32 wraparound on
// overflow does the wrapping for free). Caller must hold r.mu.
func (r *Relay) allocateLocked() (uint32, error) {
	const reserved = ^uint32(0) // math.MaxUint32
	for pass := 0; pass < 2; pass++ {
		start := r.nextID
		for {
			r.nextID++
			if r.nextID == 0 || r.nextID == reserved {
				continue
			}
			if _, taken := r.tunnels[r.nextID]; !taken {
				return r.nextID, nil
			}
			if r.nextID == start {
				break // completed one full pass without finding a free id
			}
		}
	}
	return 0, ErrTunnelIDsExhausted
}

// AssociatePool binds the tunnel currently associated with token's
// association to pool slot (gameID, slotIndex), making Forward routable
// for it. This is the out-of-band call a handler makes when a player joins
// a game (§4.H).
func (r *Relay) AssociatePool(association assoc.ID, gameID int32, slotIndex uint8) bool {
	key := assoc.PoolKey(gameID, slotIndex)

	r.mu.Lock()
	defer r.mu.Unlock()

	tunnelID, ok := r.byAssociation[association]
	if !ok {
		return false
	}
	entry := r.tunnels[tunnelID]
	if entry == nil {
		return false
	}

	// Displace any prior tunnel bound to this slot.
	if prior, had := r.poolToTunnel[key]; had && prior != tunnelID {
		delete(r.tunnelToPoolKey, prior)
	}
	if entry.hasPoolKey && entry.poolKey != key {
		delete(r.poolToTunnel, entry.poolKey)
	}

	r.poolToTunnel[key] = tunnelID
	entry.poolKey = key
	entry.hasPoolKey = true
	r.tunnelToPoolKey[tunnelID] = key
	return true
}

// Forward looks up senderTunnelID's (game_id, self_index), resolves the
// peer tunnel at the frame's target index within the same game, rewrites
// the frame's index to the sender's own index, and forwards it. Per
// §4.H: "if present, rewrite the frame's index to self_index and send to
// that tunnel's current addr." A missing mapping or peer is logged and
// dropped (§7's "non-handler background failures... are logged and
// dropped").
func (r *Relay) Forward(senderTunnelID uint32, frame Frame) {
	r.mu.Lock()
	senderKey, ok := r.tunnelToPoolKey[senderTunnelID]
	if !ok {
		r.mu.Unlock()
		slog.Debug("forward from tunnel with no pool binding", "tunnel", senderTunnelID)
		return
	}
	selfIndex := uint8(senderKey & 0xFF)
	gameID := int32(senderKey >> 32)

	targetKey := keyWithIndex(gameID, frame.Index)
	targetTunnelID, ok := r.poolToTunnel[targetKey]
	if !ok {
		r.mu.Unlock()
		return
	}
	target := r.tunnels[targetTunnelID]
	r.mu.Unlock()

	if target == nil {
		return
	}
	outgoing := Frame{Index: selfIndex, Payload: frame.Payload}
	msg := EncodeEnvelope(MsgForward, targetTunnelID, outgoing.Encode())
	if err := target.transport.Send(msg); err != nil {
		slog.Debug("tunnel forward send failed", "tunnel", targetTunnelID, "error", err)
	}
}

func keyWithIndex(gameID int32, slotIndex uint8) uint64 {
	return uint64(uint32(gameID))<<32 | uint64(slotIndex)
}

// Touch records datagram/stream activity for tunnelID, and rebinds its
// transport when addr differs from the stored one (§4.H address
// mobility: "If a datagram with an existing tunnel_id arrives from a new
// addr, the mapping's addr is updated"). Reports whether the tunnel exists.
func (r *Relay) Touch(tunnelID uint32, transport Transport) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.tunnels[tunnelID]
	if !ok {
		return false
	}
	entry.lastAlive = time.Now()
	if entry.transport.Key() != transport.Key() {
		entry.transport = transport
	}
	return true
}

// Dissociate removes a tunnel's entries from all four maps: tunnel,
// association, and both pool-slot indices.
func (r *Relay) Dissociate(tunnelID uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dissociateLocked(tunnelID)
}

func (r *Relay) dissociateLocked(tunnelID uint32) {
	entry, ok := r.tunnels[tunnelID]
	if !ok {
		return
	}
	delete(r.tunnels, tunnelID)
	delete(r.byAssociation, entry.association)
	if entry.hasPoolKey {
		delete(r.poolToTunnel, entry.poolKey)
		delete(r.tunnelToPoolKey, tunnelID)
	}
}

// SweepIdle dissociates every tunnel whose last_alive predates the
// deadline and returns their transports so the caller can close them.
func (r *Relay) SweepIdle(deadline time.Duration) []Transport {
	cutoff := time.Now().Add(-deadline)

	r.mu.Lock()
	defer r.mu.Unlock()

	var dead []Transport
	for id, entry := range r.tunnels {
		if entry.lastAlive.Before(cutoff) {
			dead = append(dead, entry.transport)
			r.dissociateLocked(id)
		}
	}
	return dead
}

// BroadcastKeepAlive sends a KeepAlive message to every live tunnel.
func (r *Relay) BroadcastKeepAlive() {
	r.mu.Lock()
	targets := make(map[uint32]Transport, len(r.tunnels))
	for id, entry := range r.tunnels {
		targets[id] = entry.transport
	}
	r.mu.Unlock()

	msg := EncodeEnvelope(MsgKeepAlive, 0, nil)
	for id, transport := range targets {
		if err := transport.Send(msg); err != nil {
			slog.Debug("keep-alive send failed", "tunnel", id, "error", err)
		}
	}
}

// Count returns the number of live tunnels.
func (r *Relay) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tunnels)
}
