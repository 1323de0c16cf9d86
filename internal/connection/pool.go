package connection

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Divyesh-Thirukonda/quantshit/internal/protocol"
)

// Pool owns a bounded set of venue connections.
type Pool struct {
	mu    sync.Mutex
	max   int
	conns []Conn
}

// NewPool creates a pool holding at most maxConnections connections.
func NewPool(maxConnections int) *Pool {
	if maxConnections < 1 {
		maxConnections = 1
	}
	return &Pool{max: maxConnections}
}

// Add takes ownership of a connection. Returns ErrPoolFull at capacity.
func (p *Pool) Add(conn Conn) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.conns) >= p.max {
		return ErrPoolFull
	}
	p.conns = append(p.conns, conn)
	return nil
}

// Get returns the first connected connection for the protocol, or nil.
func (p *Pool) Get(proto protocol.Protocol) Conn {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, c := range p.conns {
		if c.Protocol() == proto && c.State() == Connected {
			return c
		}
	}
	return nil
}

// ConnectAll dials every disconnected connection concurrently and returns
// the first failure, if any. Connections that fail stay in the pool for a
// later retry.
func (p *Pool) ConnectAll() error {
	p.mu.Lock()
	conns := make([]Conn, len(p.conns))
	copy(conns, p.conns)
	p.mu.Unlock()

	var g errgroup.Group
	for _, c := range conns {
		c := c
		if c.State() != Disconnected {
			continue
		}
		g.Go(func() error {
			if !c.Connect() {
				return fmt.Errorf("connect %s failed", c.Protocol())
			}
			return nil
		})
	}
	return g.Wait()
}

// DisconnectAll closes every connection.
func (p *Pool) DisconnectAll() {
	p.mu.Lock()
	conns := make([]Conn, len(p.conns))
	copy(conns, p.conns)
	p.mu.Unlock()

	for _, c := range conns {
		c.Disconnect()
	}
}

// Size returns the number of owned connections.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

// ConnectedCount returns how many connections are currently Connected.
func (p *Pool) ConnectedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := 0
	for _, c := range p.conns {
		if c.State() == Connected {
			count++
		}
	}
	return count
}
