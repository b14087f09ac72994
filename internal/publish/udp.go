package publish

import (
	"fmt"
	"net"
	"sync"
)

// UDPPublisher sends the bare state name as one datagram per tick.
// Game engines listening on a socket can consume it without a JSON parser.
type UDPPublisher struct {
	mu   sync.Mutex
	conn *net.UDPConn
	addr *net.UDPAddr
}

// NewUDPPublisher creates a publisher sending to addr (host:port).
func NewUDPPublisher(addr string) (*UDPPublisher, error) {
	uaddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve udp target %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("open udp socket: %w", err)
	}
	return &UDPPublisher{conn: conn, addr: uaddr}, nil
}

// Publish sends u.State.
func (p *UDPPublisher) Publish(u Update) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return net.ErrClosed
	}
	if _, err := p.conn.WriteToUDP([]byte(u.State), p.addr); err != nil {
		return fmt.Errorf("udp send: %w", err)
	}
	return nil
}

// Close releases the socket.
func (p *UDPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}
