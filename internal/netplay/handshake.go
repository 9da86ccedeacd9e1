package netplay

import (
	"context"
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/konosubakonoakua/jumpy/internal/logging"
)

// MatchPath is the websocket endpoint a joining peer dials.
const MatchPath = "/match"

var upgrader = websocket.Upgrader{
	// Peer-to-peer matches are joined by explicit address, not from a
	// browser origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Host listens for a single joining peer. The hosting side always plays
// input-table slot 0.
type Host struct {
	lis    net.Listener
	srv    *http.Server
	peerCh chan *websocket.Conn
	log    logging.Logger
}

// Listen binds addr and starts accepting a match. Use Addr to learn the bound
// address (useful with ":0") and Accept to wait for the joining peer.
func Listen(addr string, log logging.Logger) (*Host, error) {
	if log == nil {
		log = logging.Noop()
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	h := &Host{
		lis:    lis,
		peerCh: make(chan *websocket.Conn, 1),
		log:    log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(MatchPath, h.handleMatch)
	h.srv = &http.Server{Handler: mux}

	go func() {
		if err := h.srv.Serve(lis); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "match listener exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "hosting match", logging.String("addr", lis.Addr().String()))
	return h, nil
}

// Addr returns the bound listen address.
func (h *Host) Addr() string { return h.lis.Addr().String() }

func (h *Host) handleMatch(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "match upgrade failed", logging.Err(err))
		return
	}
	select {
	case h.peerCh <- conn:
	default:
		// Match is already full.
		_ = conn.Close()
	}
}

// Accept blocks until a peer joins, returning the host-side Peer.
func (h *Host) Accept(ctx context.Context) (*Peer, error) {
	select {
	case conn := <-h.peerCh:
		return newPeer(conn, hostPlayerIdx, h.log), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting new peers. Hijacked match connections stay open and
// are owned by their Peer.
func (h *Host) Close() error {
	return h.srv.Close()
}

// Dial joins a hosted match at the given websocket URL (ws://host:port/match).
// The joining side always plays input-table slot 1.
func Dial(ctx context.Context, url string, log logging.Logger) (*Peer, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return newPeer(conn, clientPlayerIdx, log), nil
}
