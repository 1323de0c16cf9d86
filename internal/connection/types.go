package connection

import (
	"errors"
	"time"

	"github.com/Divyesh-Thirukonda/quantshit/internal/protocol"
)

// Errors
var (
	ErrNotConnected  = errors.New("not connected")
	ErrAlreadyClosed = errors.New("already closed")
	ErrPoolFull      = errors.New("connection pool full")
)

// State is the lifecycle state of a venue connection.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
	Error
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Error:
		return "error"
	default:
		return "invalid"
	}
}

// Callback types for inbound data, state transitions, and errors.
type (
	DataCallback  func(*protocol.RawPacket)
	StateCallback func(State)
	ErrorCallback func(code int, message string)
)

// Conn is a venue connection. Implementations own their transport,
// authentication, and timeouts; the core only sends bytes and observes
// state.
type Conn interface {
	Protocol() protocol.Protocol
	State() State

	Connect() bool
	Disconnect()

	// Send writes one outbound frame. Returns false when the connection
	// is not in the Connected state or the write fails.
	Send(data []byte) bool

	Subscribe(channel, symbol string)
	Unsubscribe(channel, symbol string)

	SetDataCallback(cb DataCallback)
	SetStateCallback(cb StateCallback)
	SetErrorCallback(cb ErrorCallback)
}

// Config holds per-connection settings.
type Config struct {
	Endpoint  string
	APIKey    string
	APISecret string

	ConnectTimeout    time.Duration
	RecvTimeout       time.Duration
	WriteTimeout      time.Duration
	HeartbeatInterval time.Duration

	AutoReconnect        bool
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
}

// DefaultConfig returns sensible defaults. RecvTimeout is advisory and off
// by default: the server's pings keep an idle feed alive, and a read
// deadline on a quiet market would cycle the connection for nothing.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:       5 * time.Second,
		WriteTimeout:         time.Second,
		HeartbeatInterval:    30 * time.Second,
		AutoReconnect:        true,
		MaxReconnectAttempts: 5,
		ReconnectDelay:       time.Second,
	}
}

// command is the outbound subscription envelope.
type command struct {
	ID     int64         `json:"id"`
	Cmd    string        `json:"cmd"`
	Params commandParams `json:"params"`
}

type commandParams struct {
	Channel string `json:"channel"`
	Symbol  string `json:"symbol,omitempty"`
}
