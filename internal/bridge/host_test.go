package bridge

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interview-autofill-host/internal/framing"
)

// fakePeer is the extension side of the channel: it reads frames the host
// writes and injects frames for the host to read.
type fakePeer struct {
	t *testing.T

	fromHost *io.PipeReader
	toHost   *io.PipeWriter
}

func newHostUnderTest(t *testing.T, control ControlHandler, opts ...Option) (*Host, *fakePeer, chan error) {
	t.Helper()

	hostInR, hostInW := io.Pipe()
	hostOutR, hostOutW := io.Pipe()

	if control == nil {
		control = NewDispatcher(&fakeController{}, zap.NewNop())
	}

	host := NewHost(hostInR, hostOutW, control, zap.NewNop(), opts...)
	peer := &fakePeer{t: t, fromHost: hostOutR, toHost: hostInW}

	runErr := make(chan error, 1)
	go func() {
		runErr <- host.Run(context.Background())
	}()

	return host, peer, runErr
}

func (p *fakePeer) read() []byte {
	p.t.Helper()
	payload, err := framing.ReadFrame(p.fromHost)
	if err != nil {
		p.t.Fatalf("peer read: %v", err)
	}
	return payload
}

func (p *fakePeer) write(payload string) {
	p.t.Helper()
	if err := framing.WriteFrame(p.toHost, []byte(payload)); err != nil {
		p.t.Fatalf("peer write: %v", err)
	}
}

func (p *fakePeer) disconnect() {
	p.toHost.Close()
}

func TestSubmitRoundTrip(t *testing.T) {
	t.Parallel()

	host, peer, runErr := newHostUnderTest(t, nil)
	defer peer.disconnect()

	go func() {
		raw := peer.read()
		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			p := fmt.Sprintf("unmarshal request: %v", err)
			peer.write(`{"status":500,"body":{"error":` + fmt.Sprintf("%q", p) + `}}`)
			return
		}
		if req.Type != "http_request" || req.Method != "POST" || req.Path != "/v1/chat" {
			peer.write(`{"status":500,"body":{"error":"unexpected envelope"}}`)
			return
		}
		peer.write(`{"status":204,"body":{}}`)
	}()

	resp, err := host.Submit(context.Background(), NewRequest("POST", "/v1/chat", nil, `{"x":1}`))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.Status != 204 {
		t.Fatalf("expected status 204, got %d", resp.Status)
	}
	if string(resp.Body) != "{}" {
		t.Fatalf("expected body {}, got %s", resp.Body)
	}

	peer.disconnect()
	if err := <-runErr; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestSubmitNullResponseIsAnError(t *testing.T) {
	t.Parallel()

	host, peer, _ := newHostUnderTest(t, nil)
	defer peer.disconnect()

	go func() {
		peer.read()
		peer.write(`null`)
	}()

	resp, err := host.Submit(context.Background(), NewRequest("POST", "/v1/chat", nil, "{}"))
	if err == nil {
		t.Fatalf("expected an error for a null peer response, got %+v", resp)
	}
	if errors.Is(err, ErrExchangeTimeout) || errors.Is(err, ErrPeerDisconnected) {
		t.Fatalf("null response must be a decode failure, got %v", err)
	}

	// The slot must be free for the next exchange.
	go func() {
		peer.read()
		peer.write(`{"status":200,"body":{}}`)
	}()

	resp, err = host.Submit(context.Background(), NewRequest("POST", "/v1/chat", nil, "{}"))
	if err != nil {
		t.Fatalf("Submit after null response: %v", err)
	}
	if resp.Status != 200 {
		t.Fatalf("expected 200, got %d", resp.Status)
	}
}

func TestConcurrentSubmitsCorrelate(t *testing.T) {
	t.Parallel()

	const n = 8

	host, peer, _ := newHostUnderTest(t, nil)
	defer peer.disconnect()

	// The peer echoes each request body back, so every caller can verify
	// it received the response to its own request.
	go func() {
		for i := 0; i < n; i++ {
			raw := peer.read()
			var req Request
			if err := json.Unmarshal(raw, &req); err != nil {
				return
			}
			peer.write(`{"status":200,"body":` + req.Body + `}`)
		}
	}()

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			probe := fmt.Sprintf(`{"probe":%d}`, i)
			resp, err := host.Submit(context.Background(), NewRequest("POST", "/echo", nil, probe))
			if err != nil {
				errs <- fmt.Errorf("submit %d: %w", i, err)
				return
			}
			if string(resp.Body) != probe {
				errs <- fmt.Errorf("submit %d: got body %s, want %s", i, resp.Body, probe)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatal(err)
	}
}

func TestSubmitTimeoutFreesSlot(t *testing.T) {
	t.Parallel()

	host, peer, _ := newHostUnderTest(t, nil, WithExchangeTimeout(50*time.Millisecond))
	defer peer.disconnect()

	// First exchange: the peer swallows the request and stays silent.
	silent := make(chan struct{})
	go func() {
		peer.read()
		close(silent)
	}()

	if _, err := host.Submit(context.Background(), NewRequest("POST", "/slow", nil, "{}")); !errors.Is(err, ErrExchangeTimeout) {
		t.Fatalf("expected ErrExchangeTimeout, got %v", err)
	}
	<-silent

	// Second exchange must be granted the slot and complete normally.
	go func() {
		peer.read()
		peer.write(`{"status":200,"body":{"ok":true}}`)
	}()

	resp, err := host.Submit(context.Background(), NewRequest("POST", "/fast", nil, "{}"))
	if err != nil {
		t.Fatalf("Submit after timeout: %v", err)
	}
	if resp.Status != 200 {
		t.Fatalf("expected 200, got %d", resp.Status)
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	t.Parallel()

	host, peer, _ := newHostUnderTest(t, nil, WithExchangeTimeout(50*time.Millisecond))
	defer peer.disconnect()

	go func() {
		peer.read()
	}()

	if _, err := host.Submit(context.Background(), NewRequest("POST", "/slow", nil, "{}")); !errors.Is(err, ErrExchangeTimeout) {
		t.Fatalf("expected ErrExchangeTimeout, got %v", err)
	}

	// The stale response arrives after the timeout. The host must drop it
	// silently: the next frame it writes has to be the pong, not a reply
	// to the stale frame.
	peer.write(`{"status":200,"body":{"late":true}}`)
	peer.write(`{"type":"ping"}`)

	reply := peer.read()
	var pong struct {
		Type      string `json:"type"`
		Timestamp int64  `json:"timestamp"`
	}
	if err := json.Unmarshal(reply, &pong); err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	if pong.Type != "pong" {
		t.Fatalf("expected pong, got %s", reply)
	}
}

func TestAbandonedExchangeRefusesDelivery(t *testing.T) {
	t.Parallel()

	ex := &exchange{id: "ex-1", resp: make(chan []byte, 1)}

	if !ex.deliver([]byte(`{"status":200}`)) {
		t.Fatal("delivery to a live exchange must succeed")
	}
	<-ex.resp

	ex.abandon()
	if ex.deliver([]byte(`{"status":200}`)) {
		t.Fatal("delivery to an abandoned exchange must be refused")
	}
	select {
	case raw := <-ex.resp:
		t.Fatalf("refused frame must not reach the channel, got %s", raw)
	default:
	}
}

func TestPeerDisconnectFailsInFlight(t *testing.T) {
	t.Parallel()

	host, peer, runErr := newHostUnderTest(t, nil)

	go func() {
		peer.read()
		peer.disconnect()
	}()

	if _, err := host.Submit(context.Background(), NewRequest("POST", "/gone", nil, "{}")); !errors.Is(err, ErrPeerDisconnected) {
		t.Fatalf("expected ErrPeerDisconnected, got %v", err)
	}

	if err := <-runErr; err != nil {
		t.Fatalf("Run should return nil on clean EOF, got %v", err)
	}

	// The channel is closed; new submissions must fail immediately.
	if _, err := host.Submit(context.Background(), NewRequest("POST", "/after", nil, "{}")); !errors.Is(err, ErrPeerDisconnected) {
		t.Fatalf("expected ErrPeerDisconnected after close, got %v", err)
	}
}

func TestRunFailsOnTruncatedFrame(t *testing.T) {
	t.Parallel()

	_, peer, runErr := newHostUnderTest(t, nil)

	// Announce a 100-byte payload but deliver only a fragment.
	var header [4]byte
	binary.NativeEndian.PutUint32(header[:], 100)
	peer.toHost.Write(header[:])
	peer.toHost.Write([]byte("short"))
	peer.disconnect()

	err := <-runErr
	if !errors.Is(err, framing.ErrTruncatedFrame) {
		t.Fatalf("expected ErrTruncatedFrame from Run, got %v", err)
	}
}

func TestPingTimestampsNonDecreasing(t *testing.T) {
	t.Parallel()

	_, peer, _ := newHostUnderTest(t, nil)
	defer peer.disconnect()

	var last int64
	for i := 0; i < 3; i++ {
		peer.write(`{"type":"ping"}`)
		reply := peer.read()

		var pong struct {
			Type      string `json:"type"`
			Timestamp int64  `json:"timestamp"`
		}
		if err := json.Unmarshal(reply, &pong); err != nil {
			t.Fatalf("unmarshal pong: %v", err)
		}
		if pong.Type != "pong" {
			t.Fatalf("expected pong, got %s", reply)
		}
		if pong.Timestamp < last {
			t.Fatalf("timestamp went backwards: %d < %d", pong.Timestamp, last)
		}
		last = pong.Timestamp
	}
}
