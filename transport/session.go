package transport

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/rob-gra/xcp-lite/xcpproto"
)

// session is one connected tool's CTO/DTO traffic: the command dispatch
// state (memory transfer address) and the DTO queue package daq.Sampler
// implementations (via Queue) feed from the application's trigger path.
type session struct {
	peer    string
	writer  io.Writer
	handler CommandHandler
	unknown UnknownCommandHandler
	queue   *dtoQueue
	cfg     Config

	mta    mta
	dtoCtr uint16
}

func newSession(peer string, writer io.Writer, handler CommandHandler, unknown UnknownCommandHandler, cfg Config) *session {
	return &session{
		peer:    peer,
		writer:  writer,
		handler: handler,
		unknown: unknown,
		queue:   newDTOQueue(cfg.QueueSize),
		cfg:     cfg,
	}
}

// Queue exposes this session's DTO queue as a daq.Sampler, for wiring a
// DaqEvent's measurement trigger into this session's outbound traffic.
func (s *session) Queue() *dtoQueue { return s.queue }

// handleCommand decodes and dispatches one CTO payload, returning the
// encoded response frame ready to write.
func (s *session) handleCommand(ctr uint16, payload []byte) []byte {
	resp, status := dispatch(s.handler, s.unknown, &s.mta, payload)

	var out []byte
	if status == xcpproto.CmdOK {
		out = make([]byte, 1+len(resp))
		out[0] = xcpproto.ResponsePID
		copy(out[1:], resp)
	} else {
		out = []byte{xcpproto.ErrorPID, byte(status)}
		log.Debug("session %s: command error status=%#x", s.peer, status)
	}

	return encodeFrame(ctr, out)
}

// runDTODrain writes every DTO frame this session's queue produces to its
// writer until ctx is cancelled, as one leg of the server's errgroup.
func (s *session) runDTODrain(ctx context.Context) error {
	stop := ctx.Done()
	for {
		frame, ok := s.queue.drain(stop)
		if !ok {
			if dropped := s.queue.droppedCount(); dropped > 0 {
				log.Warn("session %s: dropped %d dto frames", s.peer, dropped)
			}
			return ctx.Err()
		}
		s.dtoCtr++
		if _, err := s.writer.Write(encodeFrame(s.dtoCtr, frame.encode())); err != nil {
			return err
		}
	}
}

// runFlushTicker periodically calls the command handler's Flush, publishing
// delayed calibration writes even absent a SYNCH from the tool.
func (s *session) runFlushTicker(ctx context.Context) error {
	return runEvery(ctx, s.cfg.FlushInterval, func() {
		if status := s.handler.Flush(); status != xcpproto.CmdOK {
			log.Warn("session %s: periodic flush failed status=%#x", s.peer, status)
		}
	})
}

// serveCommandStream reads length-prefixed frames from r until it returns
// an error (including io.EOF on a clean peer close), dispatching each and
// writing its response.
func (s *session) serveCommandStream(r io.Reader) error {
	buf := make([]byte, 0, s.cfg.MaxSegmentSize)
	tmp := make([]byte, s.cfg.MaxSegmentSize)
	for {
		n, err := r.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
			for {
				h, payload, rest, ok := parseFrame(buf)
				if !ok {
					break
				}
				resp := s.handleCommand(h.ctr, payload)
				if _, werr := s.writer.Write(resp); werr != nil {
					return werr
				}
				buf = rest
			}
		}
		if err != nil {
			return err
		}
	}
}

// runSession drives a session's four concurrent duties - command stream,
// DTO drain, periodic flush, and unblocking the stream's Read on shutdown -
// as one errgroup, returning once any leg fails or ctx is cancelled.
// closer is closed when ctx is done, which is what makes serveCommandStream
// (blocked in r.Read) actually observe the cancellation.
func runSession(ctx context.Context, s *session, r io.Reader, closer io.Closer) error {
	connClosed := make(chan struct{})
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-ctx.Done():
			closer.Close()
		case <-connClosed:
		}
		return nil
	})
	g.Go(func() error {
		defer close(connClosed)
		return s.serveCommandStream(r)
	})
	g.Go(func() error { return s.runDTODrain(ctx) })
	g.Go(func() error { return s.runFlushTicker(ctx) })
	return g.Wait()
}
