package connection

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Divyesh-Thirukonda/quantshit/internal/clock"
	"github.com/Divyesh-Thirukonda/quantshit/internal/protocol"
)

// WSConn is a WebSocket venue connection. One read-loop goroutine delivers
// inbound frames to the data callback stamped with receive time; writes are
// serialized under a mutex with a deadline per frame.
type WSConn struct {
	cfg    Config
	proto  protocol.Protocol
	logger *slog.Logger

	state atomic.Int32

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	writeMu sync.Mutex
	cmdID   atomic.Int64

	cbMu    sync.RWMutex
	dataCB  DataCallback
	stateCB StateCallback
	errorCB ErrorCallback

	subMu sync.Mutex
	subs  map[string]struct{}

	wg sync.WaitGroup
}

// NewWSConn creates a WebSocket connection for the given venue. Connect
// must be called before Send.
func NewWSConn(cfg Config, proto protocol.Protocol, logger *slog.Logger) *WSConn {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSConn{
		cfg:    cfg,
		proto:  proto,
		logger: logger.With("venue", proto.String()),
		subs:   make(map[string]struct{}),
	}
}

func (c *WSConn) Protocol() protocol.Protocol { return c.proto }

func (c *WSConn) State() State { return State(c.state.Load()) }

// Connect dials the endpoint and starts the read loop. Returns false on
// dial failure; the error callback receives the detail.
func (c *WSConn) Connect() bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.reportError(0, ErrAlreadyClosed.Error())
		return false
	}
	c.mu.Unlock()

	c.setState(Connecting)

	conn, ok := c.dial()
	if !ok {
		c.setState(Error)
		return false
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.setState(Connected)

	c.wg.Add(1)
	go c.readLoop(conn)

	c.resubscribe()

	c.logger.Debug("websocket connected", "endpoint", c.cfg.Endpoint)
	return true
}

// Disconnect closes the transport. Idempotent.
func (c *WSConn) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		conn.Close()
	}

	c.wg.Wait()
	c.setState(Disconnected)
}

// Send writes one text frame. Returns false unless Connected.
func (c *WSConn) Send(data []byte) bool {
	if c.State() != Connected {
		return false
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return false
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.reportError(0, "write failed: "+err.Error())
		return false
	}
	return true
}

// Subscribe sends a subscribe command and remembers the channel for
// resubscription after reconnect.
func (c *WSConn) Subscribe(channel, symbol string) {
	c.subMu.Lock()
	c.subs[subKey(channel, symbol)] = struct{}{}
	c.subMu.Unlock()

	c.sendCommand("subscribe", channel, symbol)
}

// Unsubscribe sends an unsubscribe command and forgets the channel.
func (c *WSConn) Unsubscribe(channel, symbol string) {
	c.subMu.Lock()
	delete(c.subs, subKey(channel, symbol))
	c.subMu.Unlock()

	c.sendCommand("unsubscribe", channel, symbol)
}

func (c *WSConn) SetDataCallback(cb DataCallback) {
	c.cbMu.Lock()
	c.dataCB = cb
	c.cbMu.Unlock()
}

func (c *WSConn) SetStateCallback(cb StateCallback) {
	c.cbMu.Lock()
	c.stateCB = cb
	c.cbMu.Unlock()
}

func (c *WSConn) SetErrorCallback(cb ErrorCallback) {
	c.cbMu.Lock()
	c.errorCB = cb
	c.cbMu.Unlock()
}

func (c *WSConn) dial() (*websocket.Conn, bool) {
	header := http.Header{}
	header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.ConnectTimeout}
	conn, _, err := dialer.Dial(c.cfg.Endpoint, header)
	if err != nil {
		c.reportError(0, "dial failed: "+err.Error())
		return nil, false
	}

	conn.SetPingHandler(func(data string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	return conn, true
}

// readLoop delivers inbound frames until the transport fails or the
// connection is closed. On failure it attempts reconnection with linear
// backoff when configured.
func (c *WSConn) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		if c.cfg.RecvTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(c.cfg.RecvTimeout))
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if closed {
				return
			}

			c.reportError(0, "read failed: "+err.Error())

			if !c.cfg.AutoReconnect {
				c.setState(Disconnected)
				return
			}
			next, ok := c.reconnect()
			if !ok {
				return
			}
			conn = next
			continue
		}

		c.cbMu.RLock()
		cb := c.dataCB
		c.cbMu.RUnlock()
		if cb != nil {
			c.deliver(cb, &protocol.RawPacket{
				Protocol:        c.proto,
				Data:            data,
				RecvTimestampNS: clock.NowNS(),
			})
		}
	}
}

// deliver guards the user callback so a panic cannot kill the read loop.
func (c *WSConn) deliver(cb DataCallback, packet *protocol.RawPacket) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("data callback panicked", "panic", r)
		}
	}()
	cb(packet)
}

func (c *WSConn) reconnect() (*websocket.Conn, bool) {
	c.setState(Reconnecting)

	for attempt := 1; c.cfg.MaxReconnectAttempts <= 0 || attempt <= c.cfg.MaxReconnectAttempts; attempt++ {
		time.Sleep(c.cfg.ReconnectDelay * time.Duration(attempt))

		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return nil, false
		}

		conn, ok := c.dial()
		if !ok {
			c.logger.Warn("reconnect attempt failed", "attempt", attempt)
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		c.setState(Connected)
		c.resubscribe()
		c.logger.Info("reconnected", "attempt", attempt)
		return conn, true
	}

	c.setState(Error)
	c.reportError(0, "reconnect attempts exhausted")
	return nil, false
}

func (c *WSConn) resubscribe() {
	c.subMu.Lock()
	keys := make([]string, 0, len(c.subs))
	for k := range c.subs {
		keys = append(keys, k)
	}
	c.subMu.Unlock()

	for _, k := range keys {
		channel, symbol := splitSubKey(k)
		c.sendCommand("subscribe", channel, symbol)
	}
}

func (c *WSConn) sendCommand(cmd, channel, symbol string) {
	data, err := json.Marshal(command{
		ID:     c.cmdID.Add(1),
		Cmd:    cmd,
		Params: commandParams{Channel: channel, Symbol: symbol},
	})
	if err != nil {
		return
	}
	c.Send(data)
}

func (c *WSConn) setState(s State) {
	old := State(c.state.Swap(int32(s)))
	if old == s {
		return
	}

	c.cbMu.RLock()
	cb := c.stateCB
	c.cbMu.RUnlock()
	if cb != nil {
		cb(s)
	}
}

func (c *WSConn) reportError(code int, msg string) {
	c.cbMu.RLock()
	cb := c.errorCB
	c.cbMu.RUnlock()
	if cb != nil {
		cb(code, msg)
	}
}

func subKey(channel, symbol string) string {
	if symbol == "" {
		return channel
	}
	return channel + "\x00" + symbol
}

func splitSubKey(key string) (channel, symbol string) {
	for i := 0; i < len(key); i++ {
		if key[i] == 0 {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}
