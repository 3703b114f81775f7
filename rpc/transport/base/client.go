package base

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vellumdb/vellum/rpc/common"
	"github.com/vellumdb/vellum/rpc/transport"
)

var Logger = logger.GetLogger("transport/rpc")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the transport-specific connection operations
// behind the shared client logic.
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g. "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an
	// established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// responseResult carries one response (or read error) to a waiting request
type responseResult struct {
	data []byte
	err  error
}

// clientConnection is one multiplexed socket connection. Responses are
// matched to waiting requests via the request ID carried in every frame.
type clientConnection struct {
	conn         net.Conn
	endpoint     string
	stopCh       chan struct{} // close signal for the reader goroutine
	requestChans *xsync.MapOf[uint64, chan responseResult]
	writeMu      sync.Mutex // serializes frame writes
	parent       *clientTransport
}

// clientTransport implements the shared client transport logic independent
// of the socket type (tcp, unix).
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	connections   []*clientConnection
	connectionsMu sync.RWMutex
	nextConnIndex uint64 // atomic, round robin over connections
	nextRequestID uint64 // atomic, unique per request
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a client transport on top of the given
// connector.
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector:     connector,
		nextRequestID: 1,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if len(config.Transport.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}
	t.config = config
	t.closeConnections()

	perEndpoint := config.Transport.ConnectionsPerEndpoint
	if perEndpoint < 1 {
		perEndpoint = 1
	}

	for _, endpoint := range config.Transport.Endpoints {
		for i := 0; i < perEndpoint; i++ {
			c := &clientConnection{
				endpoint:     endpoint,
				stopCh:       make(chan struct{}),
				requestChans: xsync.NewMapOf[uint64, chan responseResult](),
				parent:       t,
			}
			conn, err := t.dial(endpoint)
			if err != nil {
				Logger.Warningf("failed to connect to %s (connection %d/%d): %v", endpoint, i+1, perEndpoint, err)
				continue
			}
			c.conn = conn

			t.connectionsMu.Lock()
			t.connections = append(t.connections, c)
			t.connectionsMu.Unlock()

			go c.readResponses()
		}
	}

	t.connectionsMu.RLock()
	active := len(t.connections)
	t.connectionsMu.RUnlock()
	if active == 0 {
		return fmt.Errorf("failed to connect to any endpoint")
	}

	Logger.Infof("connected %d/%d connections to %d endpoints using %s transport",
		active, len(config.Transport.Endpoints)*perEndpoint, len(config.Transport.Endpoints), t.connector.GetName())
	return nil
}

func (t *clientTransport) Send(shardId uint64, req []byte) ([]byte, error) {
	requestID := atomic.AddUint64(&t.nextRequestID, 1)

	attempts := t.config.Transport.RetryCount
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	backoff := 50 * time.Millisecond
	for i := 0; i < attempts; i++ {
		conn := t.nextConnection()
		if conn == nil {
			return nil, fmt.Errorf("no active connections available")
		}

		data, err := conn.roundTrip(shardId, requestID, req)
		if err == nil {
			return data, nil
		}
		lastErr = err
		Logger.Debugf("request attempt %d/%d failed: %v", i+1, attempts, err)

		if i < attempts-1 {
			// Exponential backoff with +-10% jitter
			jitter := time.Duration(float64(backoff) * (0.9 + 0.2*rand.Float64()))
			time.Sleep(jitter)
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("failed to send request after %d attempts: %w", attempts, lastErr)
}

func (t *clientTransport) Close() error {
	t.closeConnections()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// dial establishes and upgrades one connection
func (t *clientTransport) dial(endpoint string) (net.Conn, error) {
	conn, err := t.connector.Connect(endpoint)
	if err != nil {
		return nil, err
	}
	if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// nextConnection selects a connection via round robin
func (t *clientTransport) nextConnection() *clientConnection {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()

	if len(t.connections) == 0 {
		return nil
	}
	if len(t.connections) == 1 {
		return t.connections[0]
	}
	index := atomic.AddUint64(&t.nextConnIndex, 1) % uint64(len(t.connections))
	return t.connections[index]
}

// removeConnection takes a dead connection out of the round robin pool
func (t *clientTransport) removeConnection(dead *clientConnection) {
	t.connectionsMu.Lock()
	defer t.connectionsMu.Unlock()

	for i, c := range t.connections {
		if c == dead {
			t.connections = append(t.connections[:i], t.connections[i+1:]...)
			return
		}
	}
}

// closeConnections closes all active connections
func (t *clientTransport) closeConnections() {
	t.connectionsMu.Lock()
	defer t.connectionsMu.Unlock()

	for _, c := range t.connections {
		close(c.stopCh)
		if c.conn != nil {
			c.conn.Close()
		}
	}
	t.connections = nil
}

// roundTrip writes one request frame and waits for its response
func (c *clientConnection) roundTrip(shardID, requestID uint64, req []byte) ([]byte, error) {
	respCh := make(chan responseResult, 1)
	c.requestChans.Store(requestID, respCh)
	defer c.requestChans.Delete(requestID)

	timeout := time.Duration(c.parent.config.TimeoutSecond) * time.Second

	// writeMu also guards c.conn against swaps by reconnect
	c.writeMu.Lock()
	conn := c.conn
	if conn == nil {
		c.writeMu.Unlock()
		return nil, fmt.Errorf("connection is closed")
	}
	if timeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	err := writeFrame(conn, shardID, requestID, req)
	c.writeMu.Unlock()
	if err != nil {
		return nil, err
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timeoutCh = time.After(timeout)
	}
	select {
	case result := <-respCh:
		return result.data, result.err
	case <-timeoutCh:
		return nil, fmt.Errorf("request timed out")
	case <-c.stopCh:
		return nil, fmt.Errorf("transport closed")
	}
}

// readResponses reads response frames in a loop and dispatches them to the
// waiting requests by request ID. On a read error it reattempts the dial,
// the connection leaves the pool only when that fails too.
func (c *clientConnection) readResponses() {
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		if timeout := time.Duration(c.parent.config.TimeoutSecond) * time.Second; timeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(timeout))
		}

		_, requestID, data, err := readFrame(c.conn, nil)

		if respCh, found := c.requestChans.Load(requestID); found {
			if err != nil {
				respCh <- responseResult{nil, fmt.Errorf("error reading response: %w", err)}
			} else {
				respCh <- responseResult{data, nil}
			}
		}
		if err == nil {
			continue
		}

		select {
		case <-c.stopCh:
			return
		default:
		}

		// An expired read deadline with nothing in flight is just an idle
		// connection, not a failure
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() && c.requestChans.Size() == 0 {
			continue
		}

		Logger.Warningf("connection to %s failed, reconnecting: %v", c.endpoint, err)
		if err := c.reconnect(); err != nil {
			Logger.Errorf("reconnect to %s failed, dropping connection: %v", c.endpoint, err)
			c.parent.removeConnection(c)
			return
		}
		// Requests in flight on the old socket fail via their timeouts
	}
}

// reconnect replaces the underlying socket with a fresh dial to the same
// endpoint. Held under writeMu so no frame is written to the dying socket.
func (c *clientConnection) reconnect() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.conn != nil {
		c.conn.Close()
	}
	conn, err := c.parent.dial(c.endpoint)
	if err != nil {
		c.conn = nil
		return err
	}
	c.conn = conn
	return nil
}
