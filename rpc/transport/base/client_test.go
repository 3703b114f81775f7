package base

import (
	"bytes"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/vellumdb/vellum/rpc/common"
)

// pipeConnector hands out in-memory pipe connections, each served by an
// echo loop, standing in for a real socket transport.
type pipeConnector struct {
	mu     sync.Mutex
	dials  int
	server net.Conn // server side of the most recent pipe
}

func (p *pipeConnector) Connect(endpoint string) (net.Conn, error) {
	client, server := net.Pipe()
	p.mu.Lock()
	p.dials++
	p.server = server
	p.mu.Unlock()
	go echoFrames(server)
	return client, nil
}

func (p *pipeConnector) GetName() string { return "pipe" }

func (p *pipeConnector) UpgradeConnection(conn net.Conn, config common.ClientConfig) error {
	return nil
}

func (p *pipeConnector) dialCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dials
}

func (p *pipeConnector) closeServerSide() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.server != nil {
		p.server.Close()
	}
}

// echoFrames answers every request frame with its own payload
func echoFrames(conn net.Conn) {
	for {
		shardID, requestID, data, err := readFrame(conn, nil)
		if err != nil {
			return
		}
		payload := make([]byte, len(data))
		copy(payload, data)
		if err := writeFrame(conn, shardID, requestID, payload); err != nil {
			return
		}
	}
}

func pipeClientConfig(timeoutSecond int) common.ClientConfig {
	return common.ClientConfig{
		TimeoutSecond: timeoutSecond,
		Transport: common.ClientTransportConfig{
			Endpoints:              []string{"pipe"},
			ConnectionsPerEndpoint: 1,
			RetryCount:             5,
		},
	}
}

// TestClientIdleConnectionSurvivesReadDeadline tests that an expired read
// deadline on a connection with nothing in flight does not tear it down
func TestClientIdleConnectionSurvivesReadDeadline(t *testing.T) {
	connector := &pipeConnector{}
	client := NewBaseClientTransport(connector)
	if err := client.Connect(pipeClientConfig(1)); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	resp, err := client.Send(0, []byte("ping"))
	if err != nil {
		t.Fatalf("Send before idle period failed: %v", err)
	}
	if !bytes.Equal(resp, []byte("ping")) {
		t.Errorf("Unexpected response: %q", resp)
	}

	// Let the 1s read deadline expire with no request in flight
	time.Sleep(1500 * time.Millisecond)

	resp, err = client.Send(0, []byte("pong"))
	if err != nil {
		t.Fatalf("Send after idle period failed: %v", err)
	}
	if !bytes.Equal(resp, []byte("pong")) {
		t.Errorf("Unexpected response: %q", resp)
	}
	if connector.dialCount() != 1 {
		t.Errorf("Expected a single dial, got %d", connector.dialCount())
	}
}

// TestClientReconnectsAfterConnectionLoss tests that a dropped connection
// is redialed and later requests go through
func TestClientReconnectsAfterConnectionLoss(t *testing.T) {
	connector := &pipeConnector{}
	client := NewBaseClientTransport(connector)
	if err := client.Connect(pipeClientConfig(1)); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	if _, err := client.Send(0, []byte("before")); err != nil {
		t.Fatalf("Send before connection loss failed: %v", err)
	}

	connector.closeServerSide()
	time.Sleep(100 * time.Millisecond)

	resp, err := client.Send(0, []byte("after"))
	if err != nil {
		t.Fatalf("Send after connection loss failed: %v", err)
	}
	if !bytes.Equal(resp, []byte("after")) {
		t.Errorf("Unexpected response: %q", resp)
	}
	if connector.dialCount() < 2 {
		t.Errorf("Expected a redial, got %d dials", connector.dialCount())
	}
}
