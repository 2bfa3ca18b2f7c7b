package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rob-gra/xcp-lite/xcpproto"
)

// Server binds one Ethernet transport (UDP or TCP) and dispatches every
// connected tool's commands to handler, running the accept/receive loop,
// each TCP session's command/DTO/flush trio, and teardown as one coordinated
// errgroup - the concurrency shape SPEC_FULL's domain stack calls for. A UDP
// session's DTO drain runs in its own goroutine outside that errgroup (see
// startUDPSessionDrain).
type Server struct {
	cfg     Config
	handler CommandHandler
	unknown UnknownCommandHandler

	mu       sync.Mutex
	sessions map[string]*session
}

// NewServer creates a Server dispatching to handler. unknown may be nil, in
// which case any command outside this package's native subset is answered
// with CRCCmdUnknown.
func NewServer(cfg Config, handler CommandHandler, unknown UnknownCommandHandler) (*Server, error) {
	if err := cfg.Valid(); err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, handler: handler, unknown: unknown, sessions: make(map[string]*session)}, nil
}

// Session returns the active session for peer (its DTO queue, to wire as a
// daq.Sampler), or false if no tool is connected from that address.
func (s *Server) Session(peer string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[peer]
	return sess, ok
}

// Broadcast feeds eventID/base into every connected session's DTO queue,
// for wiring as a daq.Sampler shared across all currently connected tools.
func (s *Server) Broadcast(eventID uint16, base []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		sess.queue.Sample(eventID, base)
	}
}

func (s *Server) addSession(sess *session) {
	s.mu.Lock()
	s.sessions[sess.peer] = sess
	s.mu.Unlock()
}

func (s *Server) removeSession(peer string) {
	s.mu.Lock()
	delete(s.sessions, peer)
	s.mu.Unlock()
}

// ServeTCP accepts connections on addr:port until ctx is cancelled, running
// each as its own session inside one errgroup.
func (s *Server) ServeTCP(ctx context.Context, addr net.IP, port uint16) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", addr, port))
	if err != nil {
		return fmt.Errorf("transport: listen tcp: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})
	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return err
			}
			g.Go(func() error { return s.serveTCPConn(ctx, conn) })
		}
	})
	err = g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *Server) serveTCPConn(ctx context.Context, conn net.Conn) error {
	peer := conn.RemoteAddr().String()
	sess := newSession(peer, conn, s.handler, s.unknown, s.cfg)
	s.addSession(sess)
	defer s.removeSession(peer)
	log.Debug("tcp session opened peer=%s", peer)

	err := runSession(ctx, sess, conn, conn)
	log.Debug("tcp session closed peer=%s: %v", peer, err)
	if ctx.Err() != nil {
		return nil
	}
	return nil
}

// udpWriter addresses Write calls at one UDP peer over the server's shared
// socket, since net.UDPConn has no per-peer connected handle in the
// multi-client case this runtime serves.
type udpWriter struct {
	conn *net.UDPConn
	addr *net.UDPAddr
}

func (w udpWriter) Write(b []byte) (int, error) { return w.conn.WriteToUDP(b, w.addr) }

// ServeUDP reads datagrams on addr:port until ctx is cancelled. Each
// datagram is exactly one CTO frame; a session is created per source
// address on first sight and torn down when ctx is cancelled.
func (s *Server) ServeUDP(ctx context.Context, addr net.IP, port uint16) error {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: addr, Port: int(port)})
	if err != nil {
		return fmt.Errorf("transport: listen udp: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return conn.Close()
	})
	g.Go(func() error { return s.runFlushTickerAll(ctx) })
	g.Go(func() error { return s.receiveUDP(ctx, conn) })

	err = g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *Server) receiveUDP(ctx context.Context, conn *net.UDPConn) error {
	buf := make([]byte, s.cfg.MaxSegmentSize)
	for {
		n, peerAddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		h, payload, _, ok := parseFrame(buf[:n])
		if !ok {
			log.Warn("udp: short frame from %s, dropped", peerAddr)
			continue
		}

		peer := peerAddr.String()
		sess, known := s.Session(peer)
		if !known {
			sess = newSession(peer, udpWriter{conn: conn, addr: peerAddr}, s.handler, s.unknown, s.cfg)
			s.addSession(sess)
			s.startUDPSessionDrain(ctx, sess)
			log.Debug("udp session opened peer=%s", peer)
		}

		resp := sess.handleCommand(h.ctr, payload)
		if _, err := sess.writer.Write(resp); err != nil {
			log.Warn("udp: write to %s failed: %s", peer, err)
		}
	}
}

// startUDPSessionDrain launches sess's DTO drain loop, torn down when ctx
// is cancelled; UDP has no per-peer close signal so sessions for a peer
// that goes silent are only reaped on server shutdown.
func (s *Server) startUDPSessionDrain(ctx context.Context, sess *session) {
	go func() {
		_ = sess.runDTODrain(ctx)
		s.removeSession(sess.peer)
	}()
}

func (s *Server) runFlushTickerAll(ctx context.Context) error {
	return runEvery(ctx, s.cfg.FlushInterval, func() {
		if status := s.handler.Flush(); status != xcpproto.CmdOK {
			log.Warn("periodic flush failed status=%#x", status)
		}
	})
}
