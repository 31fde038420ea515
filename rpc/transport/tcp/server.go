package tcp

import (
	"fmt"
	"github.com/ValentinKolb/crund/rpc/common"
	"github.com/ValentinKolb/crund/rpc/transport"
	"github.com/ValentinKolb/crund/rpc/transport/base"
	"net"
	"time"
)

const (
	defaultBufferSize = 512 * 1024 // 512 KB
)

// serverConnector implements the IServerConnector interface for TCP sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "tcp"
}

func (c *serverConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	listener, err := net.Listen("tcp", config.Transport.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create TCP socket: %w", err)
	}
	return listener, nil
}

func (c *serverConnector) UpgradeConnection(conn net.Conn, config common.ServerConfig) error {
	return upgrade(conn, socketOptions{
		noDelay:         config.Transport.TCPNoDelay,
		keepAliveSec:    config.Transport.TCPKeepAliveSec,
		lingerSec:       config.Transport.TCPLingerSec,
		writeBufferSize: config.Transport.WriteBufferSize,
		readBufferSize:  config.Transport.ReadBufferSize,
	})
}

// --------------------------------------------------------------------------
// Socket options
// --------------------------------------------------------------------------

// socketOptions are the TCP settings shared by client and server connections
type socketOptions struct {
	noDelay         bool
	keepAliveSec    int
	lingerSec       int // 0 = system default
	writeBufferSize int
	readBufferSize  int
}

// upgrade applies the socket options to a TCP connection, other connections are left alone
func upgrade(conn net.Conn, opts socketOptions) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	// Disable Nagle's algorithm if configured
	if err := tcpConn.SetNoDelay(opts.noDelay); err != nil {
		return err
	}

	if opts.writeBufferSize > 0 {
		if err := tcpConn.SetWriteBuffer(opts.writeBufferSize); err != nil {
			return err
		}
	}
	if opts.readBufferSize > 0 {
		if err := tcpConn.SetReadBuffer(opts.readBufferSize); err != nil {
			return err
		}
	}

	if opts.keepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		if err := tcpConn.SetKeepAlivePeriod(time.Duration(opts.keepAliveSec) * time.Second); err != nil {
			return err
		}
	}

	if opts.lingerSec > 0 {
		if err := tcpConn.SetLinger(opts.lingerSec); err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewTCPServerTransport creates a new TCP server transport
func NewTCPServerTransport() transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&serverConnector{}, defaultBufferSize)
}
