package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

// Envelope is the message shape delivered to every attached TabPort. Inbound
// frames arrive as "message" envelopes; "connected" and "disconnected" are
// synthetic lifecycle broadcasts so subscribers can reflect connection health.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	EnvelopeConnected    = "connected"
	EnvelopeDisconnected = "disconnected"
	EnvelopeMessage      = "message"
)

// Conn is a live duplex connection as seen by the hub.
type Conn interface {
	Send(payload []byte) error
	Close() error
}

// Dialer opens the underlying duplex connection. onMessage is invoked once
// per inbound frame in receipt order; onClose is invoked exactly once when
// the connection dies, whether cleanly or not.
type Dialer interface {
	Dial(onMessage func(payload []byte), onClose func(err error)) (Conn, error)
}

// State of the hub's single connection.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

// Stats is a point-in-time snapshot of the hub, used by callers that surface
// connection health and by tests.
type Stats struct {
	State       State
	Subscribers int
}

// portBuffer is the per-port delivery buffer. A port that falls this far
// behind is evicted rather than allowed to stall fan-out for everyone else.
const portBuffer = 256

// TabPort is one subscriber's handle on the hub. Each browser-tab-equivalent
// holds exactly one and detaches it with Close when it goes away.
type TabPort struct {
	hub   *Hub
	recv  chan Envelope
	close sync.Once
}

// Messages returns the port's delivery channel. It is closed when the port
// detaches, is evicted, or the hub shuts down.
func (p *TabPort) Messages() <-chan Envelope {
	return p.recv
}

// Send forwards a payload onto the live connection. Payloads sent while the
// connection is not open are dropped, not queued: callers get no delivery
// guarantee beyond "sent while open."
func (p *TabPort) Send(payload []byte) {
	select {
	case p.hub.sendc <- payload:
	case <-p.hub.stopc:
	}
}

// Close detaches the port from the hub. Closing an already-detached port is
// a no-op.
func (p *TabPort) Close() {
	p.close.Do(func() {
		select {
		case p.hub.detachc <- p:
		case <-p.hub.stopc:
		}
	})
}

type eventKind int

const (
	evOpened eventKind = iota
	evDialFailed
	evMessage
	evClosed
)

// connEvent carries connection callbacks into the hub loop. gen identifies
// which connection attempt the event belongs to; events from a superseded
// connection are discarded.
type connEvent struct {
	gen     uint64
	kind    eventKind
	conn    Conn
	payload []byte
}

// Hub owns at most one live connection and multiplexes it across all
// attached TabPorts: outbound payloads from any port are forwarded onto the
// connection, and every inbound frame is fanned out to every attached port
// in receipt order. The connection is opened when the first port attaches
// and torn down when the last one detaches; after an unexpected close the
// hub stays disconnected until a new attach arrives. All state is owned by a
// single run loop; ports talk to it over channels only.
type Hub struct {
	dialer Dialer

	attachc chan *TabPort
	detachc chan *TabPort
	sendc   chan []byte
	eventc  chan connEvent
	statsc  chan chan Stats
	stopc   chan struct{}
	done    chan struct{}
}

// NewHub creates a hub and starts its run loop.
func NewHub(dialer Dialer) *Hub {
	h := &Hub{
		dialer:  dialer,
		attachc: make(chan *TabPort),
		detachc: make(chan *TabPort),
		sendc:   make(chan []byte),
		eventc:  make(chan connEvent, 64),
		statsc:  make(chan chan Stats),
		stopc:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	go h.run()
	return h
}

// Attach registers a new subscriber and returns its port immediately. If no
// connection is live, a fresh one is dialed in the background; message
// delivery begins once it reaches Open.
func (h *Hub) Attach() *TabPort {
	p := &TabPort{hub: h, recv: make(chan Envelope, portBuffer)}
	select {
	case h.attachc <- p:
	case <-h.stopc:
		close(p.recv)
	}
	return p
}

// Stats returns a snapshot of the hub's connection state and subscriber
// count.
func (h *Hub) Stats() Stats {
	reply := make(chan Stats, 1)
	select {
	case h.statsc <- reply:
		return <-reply
	case <-h.stopc:
		return Stats{}
	}
}

// Shutdown stops the run loop, closes the connection if live, and closes
// every attached port's channel.
func (h *Hub) Shutdown() {
	select {
	case <-h.stopc:
	default:
		close(h.stopc)
	}
	<-h.done
}

func (h *Hub) run() {
	defer close(h.done)

	ports := make(map[*TabPort]struct{})
	var (
		state State
		conn  Conn
		gen   uint64
	)

	broadcast := func(env Envelope) {
		for p := range ports {
			select {
			case p.recv <- env:
			default:
				// Buffer full: the subscriber stopped draining. Evict it so
				// the remaining ports keep seeing frames in order.
				delete(ports, p)
				close(p.recv)
			}
		}
	}

	for {
		select {
		case p := <-h.attachc:
			ports[p] = struct{}{}
			if state == StateClosed {
				gen++
				state = StateConnecting
				go h.dial(gen)
			}

		case p := <-h.detachc:
			if _, ok := ports[p]; !ok {
				break
			}
			delete(ports, p)
			close(p.recv)
			if len(ports) == 0 && state != StateClosed {
				// Last subscriber gone: discard the connection. A later
				// attach dials a brand-new one rather than resurrecting this.
				if conn != nil {
					_ = conn.Close()
				}
				conn = nil
				state = StateClosed
				gen++
			}

		case payload := <-h.sendc:
			if state == StateOpen && conn != nil {
				if err := conn.Send(payload); err != nil {
					log.Println("realtime: send failed:", err)
				}
			}
			// Not open: dropped by policy.

		case e := <-h.eventc:
			if e.gen != gen {
				// Event from a superseded connection attempt.
				if e.kind == evOpened && e.conn != nil {
					_ = e.conn.Close()
				}
				break
			}
			switch e.kind {
			case evOpened:
				conn = e.conn
				state = StateOpen
				broadcast(Envelope{Type: EnvelopeConnected})
			case evDialFailed:
				state = StateClosed
				broadcast(Envelope{Type: EnvelopeDisconnected})
			case evMessage:
				broadcast(Envelope{Type: EnvelopeMessage, Data: e.payload})
			case evClosed:
				conn = nil
				state = StateClosed
				broadcast(Envelope{Type: EnvelopeDisconnected})
			}

		case reply := <-h.statsc:
			reply <- Stats{State: state, Subscribers: len(ports)}

		case <-h.stopc:
			if conn != nil {
				_ = conn.Close()
			}
			for p := range ports {
				close(p.recv)
			}
			return
		}
	}
}

// dial runs off the loop so attach never blocks on the network.
func (h *Hub) dial(gen uint64) {
	conn, err := h.dialer.Dial(
		func(payload []byte) {
			h.post(connEvent{gen: gen, kind: evMessage, payload: payload})
		},
		func(err error) {
			if err != nil {
				log.Println("realtime: connection closed:", err)
			}
			h.post(connEvent{gen: gen, kind: evClosed})
		},
	)
	if err != nil {
		log.Println("realtime: dial failed:", err)
		h.post(connEvent{gen: gen, kind: evDialFailed})
		return
	}
	h.post(connEvent{gen: gen, kind: evOpened, conn: conn})
}

func (h *Hub) post(e connEvent) {
	select {
	case h.eventc <- e:
	case <-h.stopc:
		if e.kind == evOpened && e.conn != nil {
			_ = e.conn.Close()
		}
	}
}
