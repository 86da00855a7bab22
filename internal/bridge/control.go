package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultServerPort is used when a start_server message carries no port.
const DefaultServerPort = 8765

// ServerController starts and stops the HTTP front door. The dispatcher
// treats it as the single source of truth for the Stopped/Running state.
type ServerController interface {
	Start(port int) error
	Stop() error
	Running() bool
}

// Dispatcher handles in-band control messages from the peer. It runs only
// on the host's reader goroutine, so no locking is needed beyond what the
// controller does internally.
type Dispatcher struct {
	server ServerController
	logger *zap.Logger
	now    func() time.Time
}

// NewDispatcher creates a control dispatcher driving the given controller.
func NewDispatcher(server ServerController, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		server: server,
		logger: logger,
		now:    time.Now,
	}
}

type controlMessage struct {
	Type string `json:"type"`
	Port int    `json:"port"`
}

// Handle classifies one inbound frame that is not a response to a pending
// exchange and returns the reply frame. Stale bridge responses (a tagless
// object carrying a status field, left over from a timed-out exchange) are
// dropped with a nil reply.
func (d *Dispatcher) Handle(payload []byte) []byte {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		d.logger.Error("malformed control message", zap.Error(err))
		return mustMarshal(map[string]any{
			"type":  "error",
			"error": "Invalid JSON format",
		})
	}

	if _, ok := fields["type"]; !ok {
		if _, stale := fields["status"]; stale {
			d.logger.Warn("discarding response frame with no pending exchange")
			return nil
		}
		return mustMarshal(map[string]any{
			"type":  "error",
			"error": "missing message type",
		})
	}

	var msg controlMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		d.logger.Error("malformed control message", zap.Error(err))
		return mustMarshal(map[string]any{
			"type":  "error",
			"error": fmt.Sprintf("invalid control message: %s", err),
		})
	}

	switch msg.Type {
	case "start_server":
		return d.startServer(msg.Port)
	case "stop_server":
		return d.stopServer()
	case "ping":
		return mustMarshal(map[string]any{
			"type":      "pong",
			"timestamp": d.now().UnixMilli(),
		})
	default:
		d.logger.Warn("unknown control message", zap.String("type", msg.Type))
		return mustMarshal(map[string]any{
			"type":  "unknown",
			"error": fmt.Sprintf("Unknown message type: %s", msg.Type),
		})
	}
}

func (d *Dispatcher) startServer(port int) []byte {
	if port == 0 {
		port = DefaultServerPort
	}

	success := true
	switch {
	case d.server.Running():
		d.logger.Info("http server already running", zap.Int("port", port))
	default:
		if err := d.server.Start(port); err != nil {
			success = false
			d.logger.Error("starting http server", zap.Int("port", port), zap.Error(err))
		}
	}

	return mustMarshal(map[string]any{
		"type":    "server_started",
		"success": success,
		"port":    port,
	})
}

func (d *Dispatcher) stopServer() []byte {
	if err := d.server.Stop(); err != nil {
		d.logger.Error("stopping http server", zap.Error(err))
	}

	return mustMarshal(map[string]any{
		"type":    "server_stopped",
		"success": true,
	})
}

func mustMarshal(v map[string]any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Reply maps contain only strings, ints and bools.
		panic(fmt.Sprintf("marshal control reply: %v", err))
	}
	return data
}
