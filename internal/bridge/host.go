package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/interview-autofill-host/internal/framing"
)

// DefaultExchangeTimeout bounds how long Submit waits for the peer to answer
// one forwarded request.
const DefaultExchangeTimeout = 30 * time.Second

// ControlHandler produces the reply frame for one inbound control message.
// A nil reply means the frame is dropped.
type ControlHandler interface {
	Handle(payload []byte) []byte
}

// Host owns the duplex stream. Its Run loop is the only reader of the input
// side; every other component talks to the stream through Host. Writes from
// concurrent exchanges and control replies are serialized by an internal
// mutex so frames never interleave.
type Host struct {
	in      io.Reader
	out     io.Writer
	control ControlHandler
	logger  *zap.Logger
	timeout time.Duration

	writeMu sync.Mutex

	mu      sync.Mutex
	pending *exchange
	closed  bool

	slot slot
	done chan struct{}
}

type exchange struct {
	id   string
	resp chan []byte

	mu        sync.Mutex
	abandoned bool
}

// deliver hands an inbound frame to the waiting Submit call. It reports
// false when the exchange was already abandoned, so the caller can log the
// discarded frame. The response channel is buffered and the exchange is
// unregistered before delivery, so the send never blocks.
func (ex *exchange) deliver(payload []byte) bool {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	if ex.abandoned {
		return false
	}
	ex.resp <- payload
	return true
}

// abandon marks the exchange as no longer awaited. Frames routed to it
// afterwards are discarded rather than delivered.
func (ex *exchange) abandon() {
	ex.mu.Lock()
	ex.abandoned = true
	ex.mu.Unlock()
}

// Option configures a Host.
type Option func(*Host)

// WithExchangeTimeout overrides the per-exchange response deadline.
func WithExchangeTimeout(d time.Duration) Option {
	return func(h *Host) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// NewHost creates a host reading frames from in and writing frames to out.
// The control handler answers frames that are not responses to a pending
// exchange.
func NewHost(in io.Reader, out io.Writer, control ControlHandler, logger *zap.Logger, opts ...Option) *Host {
	h := &Host{
		in:      in,
		out:     out,
		control: control,
		logger:  logger,
		timeout: DefaultExchangeTimeout,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes the message loop until the peer closes the channel or a
// framing violation occurs. It returns nil on clean EOF and an error on
// malformed framing, so the caller can exit non-zero for a supervisor.
// All pending and queued Submit calls fail with ErrPeerDisconnected once
// Run returns.
func (h *Host) Run(ctx context.Context) error {
	defer h.shutdown()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		payload, err := framing.ReadFrame(h.in)
		if err != nil {
			if errors.Is(err, framing.ErrChannelClosed) {
				h.logger.Info("peer closed the channel")
				return nil
			}
			return fmt.Errorf("reading inbound frame: %w", err)
		}

		h.route(payload)
	}
}

// route applies the demultiplexing rule: while an exchange is pending, any
// inbound frame is its response; otherwise the frame is a control message.
func (h *Host) route(payload []byte) {
	h.mu.Lock()
	ex := h.pending
	h.pending = nil
	h.mu.Unlock()

	if ex != nil {
		if !ex.deliver(payload) {
			h.logger.Warn("discarding stale response frame",
				zap.String("exchange_id", ex.id),
				zap.Int("size", len(payload)),
			)
		}
		return
	}

	reply := h.control.Handle(payload)
	if reply == nil {
		return
	}
	if err := h.writeFrame(reply); err != nil {
		h.logger.Error("writing control reply", zap.Error(err))
	}
}

// Submit forwards one request envelope to the peer and waits for its
// response. Callers are granted the channel in FIFO order and at most one
// exchange is in flight at a time. ctx cancellation only applies while the
// caller is queued; once the request frame is written the exchange runs to
// completion or timeout regardless, because the peer cannot be told to
// abort.
func (h *Host) Submit(ctx context.Context, req *Request) (*Response, error) {
	select {
	case <-h.done:
		return nil, ErrPeerDisconnected
	default:
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request envelope: %w", err)
	}

	if err := h.slot.acquire(ctx); err != nil {
		return nil, err
	}
	defer h.slot.release()

	ex := &exchange{id: uuid.NewString(), resp: make(chan []byte, 1)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrPeerDisconnected
	}
	h.pending = ex
	h.mu.Unlock()

	h.logger.Debug("bridge exchange started",
		zap.String("exchange_id", ex.id),
		zap.String("method", req.Method),
		zap.String("path", req.Path),
	)

	if err := h.writeFrame(payload); err != nil {
		h.clearPending(ex)
		ex.abandon()
		return nil, fmt.Errorf("writing request frame: %w", err)
	}

	timer := time.NewTimer(h.timeout)
	defer timer.Stop()

	select {
	case raw := <-ex.resp:
		var resp *Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("decoding peer response: %w", err)
		}
		if resp == nil {
			// A bare JSON null unmarshals without error but leaves the
			// pointer nil.
			return nil, fmt.Errorf("decoding peer response: null payload")
		}
		h.logger.Debug("bridge exchange resolved",
			zap.String("exchange_id", ex.id),
			zap.Int("status", resp.Status),
		)
		return resp, nil
	case <-timer.C:
		h.clearPending(ex)
		ex.abandon()
		// A response may have raced the timer into the buffer. Drain it so
		// the drop is visible in the log either way.
		select {
		case raw := <-ex.resp:
			h.logger.Warn("discarding stale response frame",
				zap.String("exchange_id", ex.id),
				zap.Int("size", len(raw)),
			)
		default:
		}
		h.logger.Warn("bridge exchange timed out",
			zap.String("exchange_id", ex.id),
			zap.Duration("timeout", h.timeout),
		)
		return nil, ErrExchangeTimeout
	case <-h.done:
		return nil, ErrPeerDisconnected
	}
}

func (h *Host) clearPending(ex *exchange) {
	h.mu.Lock()
	if h.pending == ex {
		h.pending = nil
	}
	h.mu.Unlock()
}

func (h *Host) writeFrame(payload []byte) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	return framing.WriteFrame(h.out, payload)
}

func (h *Host) shutdown() {
	h.mu.Lock()
	h.closed = true
	h.pending = nil
	h.mu.Unlock()

	// Wakes the in-flight exchange and every queued waiter.
	close(h.done)
}
