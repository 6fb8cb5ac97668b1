package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrNoAddress is returned when a client config names no endpoint.
var ErrNoAddress = errors.New("rpc: no connection address specified")

// ClientConfig configures the RPC client.
type ClientConfig struct {
	// UnixSocketPath is the path to the Unix socket.
	UnixSocketPath string
	// TCPAddress is the TCP address to connect to.
	TCPAddress string
	// Timeout is the connection and per-request timeout.
	// Default: 30 seconds
	Timeout time.Duration
}

// Client is a remote-service client holding a single connection. The dial
// handshake makes construction expensive, which is what makes clients worth
// pooling. A Client is not safe for concurrent use; PooledClient is.
type Client struct {
	cfg       ClientConfig
	conn      net.Conn
	reader    *bufio.Reader
	requestID int
}

// Dial creates a client and establishes its connection.
func Dial(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &Client{cfg: cfg}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// connect establishes the underlying connection over Unix socket or TCP.
func (c *Client) connect(ctx context.Context) error {
	network, address := "unix", c.cfg.UnixSocketPath
	if address == "" {
		network, address = "tcp", c.cfg.TCPAddress
	}
	if address == "" {
		return ErrNoAddress
	}

	dialer := net.Dialer{Timeout: c.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return fmt.Errorf("connect %s: %w", network, err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	log.WithField("network", network).WithField("address", address).Debug("rpc client connected")
	return nil
}

// Call invokes a remote method and unmarshals its result into result (which
// may be nil to discard it). A transport failure tears the connection down;
// the next Call redials.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	if c.conn == nil {
		if err := c.connect(ctx); err != nil {
			return err
		}
	}

	c.requestID++
	req, err := NewRequest(c.requestID, method, params)
	if err != nil {
		return err
	}

	resp, err := c.roundTrip(req)
	if err != nil {
		// Connection state is unknown after a transport error; drop it
		// so the next Call starts clean.
		c.teardown()
		return err
	}

	if err := ValidateResponse(resp); err != nil {
		return fmt.Errorf("rpc: invalid response: %w", err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if result != nil {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("rpc: unmarshaling result: %w", err)
		}
	}
	return nil
}

// roundTrip writes one request line and reads one response line.
func (c *Client) roundTrip(req *Request) (*Response, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("rpc: marshaling request: %w", err)
	}
	data = append(data, '\n')

	if err := c.conn.SetDeadline(time.Now().Add(c.cfg.Timeout)); err != nil {
		return nil, fmt.Errorf("rpc: setting deadline: %w", err)
	}

	if _, err := c.conn.Write(data); err != nil {
		return nil, fmt.Errorf("rpc: writing request: %w", err)
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("rpc: reading response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("rpc: parsing response: %w", err)
	}
	return &resp, nil
}

// teardown drops the current connection.
func (c *Client) teardown() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.reader = nil
	}
}

// Close closes the client's connection. Safe to call more than once.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	return err
}
