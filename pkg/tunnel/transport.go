// transport.go runs the handshake and the secure channel over a net.Conn.
//
// Every message travels in a frame: a 4-byte big-endian length followed by
// the encoded message. The initiator writes one ClientHello frame, the
// responder answers with one ServerHello frame, and after that each frame
// carries one AppData record.
package tunnel

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	qerrors "github.com/sara-star-quant/hybrid-channel/internal/errors"
	"github.com/sara-star-quant/hybrid-channel/pkg/protocol"
)

// --- Handshake over frames ---

// Initiate runs the initiator side of the handshake over rw.
func (h *Handshaker) Initiate(rw io.ReadWriter) (*Session, error) {
	codec := protocol.NewCodec()

	ch, state, err := h.GenerateClientHello()
	if err != nil {
		return nil, err
	}
	defer state.Abort()

	if err := protocol.WriteFrame(rw, codec.EncodeClientHello(ch)); err != nil {
		return nil, errors.Wrap(err, "send ClientHello")
	}

	frame, err := protocol.ReadFrame(rw)
	if err != nil {
		return nil, errors.Wrap(err, "read ServerHello")
	}
	sh, err := codec.DecodeServerHello(frame)
	if err != nil {
		return nil, err
	}
	return h.HandleServerHello(sh, state)
}

// Respond runs the responder side of the handshake over rw.
func (h *Handshaker) Respond(rw io.ReadWriter) (*Session, error) {
	codec := protocol.NewCodec()

	frame, err := protocol.ReadFrame(rw)
	if err != nil {
		return nil, errors.Wrap(err, "read ClientHello")
	}
	ch, err := codec.DecodeClientHello(frame)
	if err != nil {
		return nil, err
	}

	sh, session, err := h.HandleClientHello(ch)
	if err != nil {
		return nil, err
	}
	if err := protocol.WriteFrame(rw, codec.EncodeServerHello(sh)); err != nil {
		session.Keys.Zeroize()
		return nil, errors.Wrap(err, "send ServerHello")
	}
	return session, nil
}

// InitiatorHandshake runs the initiator handshake with the default algorithms.
func InitiatorHandshake(rw io.ReadWriter) (*Session, error) {
	return DefaultHandshaker().Initiate(rw)
}

// ResponderHandshake runs the responder handshake with the default algorithms.
func ResponderHandshake(rw io.ReadWriter) (*Session, error) {
	return DefaultHandshaker().Respond(rw)
}

// --- Conn ---

// Conn is an established channel over a network connection.
//
// Send and Receive may be called concurrently with each other. Concurrent
// calls to Send are serialized, as are concurrent calls to Receive.
type Conn struct {
	conn     net.Conn
	channel  *SecureChannel
	codec    *protocol.Codec
	config   Config
	log      *logrus.Entry
	observer Observer

	sendMu sync.Mutex
	recvMu sync.Mutex

	id string

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Client runs the initiator handshake over conn and returns the resulting
// Conn. conn is closed if the handshake fails.
func Client(ctx context.Context, conn net.Conn, config Config) (*Conn, error) {
	return handshake(ctx, conn, config, RoleInitiator)
}

// Server runs the responder handshake over conn and returns the resulting
// Conn. conn is closed if the handshake fails.
func Server(ctx context.Context, conn net.Conn, config Config) (*Conn, error) {
	return handshake(ctx, conn, config, RoleResponder)
}

// Dial connects to address and runs the initiator handshake.
func Dial(ctx context.Context, network, address string, config Config) (*Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", address)
	}
	return Client(ctx, conn, config)
}

func handshake(ctx context.Context, conn net.Conn, config Config, role Role) (*Conn, error) {
	info := ConnInfo{
		ID:         uuid.NewString(),
		Role:       role,
		LocalAddr:  conn.LocalAddr(),
		RemoteAddr: conn.RemoteAddr(),
	}
	observer := observerFromConfig(config, info)
	log := config.log().WithFields(logrus.Fields{
		"conn_id": info.ID,
		"role":    role.String(),
		"remote":  addrString(info.RemoteAddr),
	})

	observer.OnSessionStart()
	_, done := observer.OnHandshakeStart(ctx)

	session, err := runHandshake(ctx, conn, config, role)
	done(err)
	if err != nil {
		_ = conn.Close()
		if isProtocolError(err) {
			observer.OnProtocolError(err)
		}
		observer.OnSessionFailed(err)
		observer.OnSessionEnd()
		log.WithError(err).Debug("handshake failed")
		return nil, err
	}

	channel, err := session.NewChannel()
	if err != nil {
		_ = conn.Close()
		observer.OnSessionFailed(err)
		observer.OnSessionEnd()
		return nil, err
	}

	log.Debug("handshake complete")
	return &Conn{
		id:       info.ID,
		conn:     conn,
		channel:  channel,
		codec:    protocol.NewCodec(),
		config:   config,
		log:      log,
		observer: observer,
	}, nil
}

// runHandshake bounds the exchange by HandshakeTimeout and by ctx.
func runHandshake(ctx context.Context, conn net.Conn, config Config, role Role) (*Session, error) {
	deadline, ok := ctx.Deadline()
	if config.HandshakeTimeout > 0 {
		if t := time.Now().Add(config.HandshakeTimeout); !ok || t.Before(deadline) {
			deadline, ok = t, true
		}
	}
	if ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, err
		}
		defer func() { _ = conn.SetDeadline(time.Time{}) }()
	}

	// Unblock pending I/O if ctx is cancelled mid-handshake.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	h := config.handshaker()
	var (
		session *Session
		err     error
	)
	if role == RoleInitiator {
		session, err = h.Initiate(conn)
	} else {
		session, err = h.Respond(conn)
	}
	if err != nil && ctx.Err() != nil {
		return nil, errors.Wrap(ctx.Err(), "handshake")
	}
	return session, err
}

// Send encrypts data as one record and writes it.
func (c *Conn) Send(data []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed.Load() {
		return channelError(qerrors.ErrChannelClosed)
	}

	_, done := c.observer.OnEncrypt(context.Background(), len(data))
	record, err := c.channel.Encrypt(data)
	done(err)
	if err != nil {
		return err
	}

	if c.config.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}
	if err := protocol.WriteFrame(c.conn, c.codec.EncodeAppData(record)); err != nil {
		return errors.Wrap(err, "send record")
	}
	return nil
}

// Receive reads and decrypts the next record. It returns io.EOF once the
// peer has closed the connection cleanly between records.
//
// A record that fails decryption or replay checks is reported as an error
// and leaves the channel usable; the caller decides whether to continue.
func (c *Conn) Receive() ([]byte, error) {
	c.recvMu.Lock()
	defer c.recvMu.Unlock()

	if c.closed.Load() {
		return nil, channelError(qerrors.ErrChannelClosed)
	}

	if c.config.ReadTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	}
	frame, err := protocol.ReadFrame(c.conn)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if isProtocolError(err) {
			c.observer.OnProtocolError(err)
		}
		return nil, err
	}

	record, err := c.codec.DecodeAppData(frame)
	if err != nil {
		c.observer.OnProtocolError(err)
		return nil, err
	}

	_, done := c.observer.OnDecrypt(context.Background(), len(record.Ciphertext))
	plaintext, err := c.channel.Decrypt(record)
	done(err)
	switch {
	case err == nil:
	case errors.Is(err, qerrors.ErrReplayDetected):
		c.observer.OnReplayDetected()
		c.log.WithField("seq", record.Seq).Warn("replayed record rejected")
	case errors.Is(err, qerrors.ErrDecryptionFailed):
		c.observer.OnAuthFailure()
		c.log.WithField("seq", record.Seq).Warn("record failed authentication")
	}
	return plaintext, err
}

// Close closes the network connection and erases the channel keys.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.conn.Close()

		// Wait for in-flight Send and Receive, which the close above unblocks.
		c.sendMu.Lock()
		c.recvMu.Lock()
		c.channel.Close()
		c.recvMu.Unlock()
		c.sendMu.Unlock()

		c.observer.OnSessionEnd()
		c.log.Debug("connection closed")
	})
	return c.closeErr
}

// ID returns the identifier this connection logs under.
func (c *Conn) ID() string { return c.id }

// Transcript returns the handshake transcript hash both peers agreed on.
func (c *Conn) Transcript() [32]byte { return c.channel.Transcript() }

// IsClient reports whether this side initiated the handshake.
func (c *Conn) IsClient() bool { return c.channel.IsClient() }

// LocalAddr returns the local network address.
func (c *Conn) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}

// --- Listener ---

// Listener accepts incoming connections and runs the responder handshake.
type Listener struct {
	listener net.Listener
	config   Config

	ipLimiter        *IPRateLimiter
	handshakeLimiter *HandshakeLimiter
}

// Listen announces on the local network address.
func Listen(network, address string, config Config) (*Listener, error) {
	ln, err := net.Listen(network, address)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", address)
	}
	return NewListener(ln, config), nil
}

// NewListener wraps an existing net.Listener.
func NewListener(ln net.Listener, config Config) *Listener {
	l := &Listener{listener: ln, config: config}
	if config.RateLimit.MaxConnectionsPerIP > 0 {
		l.ipLimiter = NewIPRateLimiter(config.RateLimit.MaxConnectionsPerIP)
	}
	if config.RateLimit.HandshakeRateLimit > 0 {
		l.handshakeLimiter = NewHandshakeLimiter(config.RateLimit.HandshakeRateLimit, config.RateLimit.HandshakeBurst, config.clock())
	}
	return l
}

// Accept waits for the next connection and completes its handshake.
//
// A connection refused by rate limiting or failing its handshake is closed
// and its error returned; the listener remains usable. Errors matching
// net.ErrClosed mean the listener itself is closed.
//
// Accept blocks until the handshake finishes. Servers that must not stall
// behind a slow peer call Admit and run Handshake on their own goroutine.
func (l *Listener) Accept(ctx context.Context) (*Conn, error) {
	p, err := l.Admit()
	if err != nil {
		return nil, err
	}
	return p.Handshake(ctx)
}

// Admit waits for the next connection and applies the rate limits, without
// reading anything from the peer.
func (l *Listener) Admit() (*PendingConn, error) {
	conn, err := l.listener.Accept()
	if err != nil {
		return nil, err
	}

	remoteIP := extractRemoteIP(conn)

	conn, err = l.checkIPRateLimit(conn, remoteIP)
	if err != nil {
		return nil, err
	}

	if l.handshakeLimiter != nil && !l.handshakeLimiter.AllowHandshake() {
		if l.config.RateLimitObserver != nil {
			l.config.RateLimitObserver.OnHandshakeRateLimit(remoteIP)
		}
		_ = conn.Close()
		return nil, errors.Wrap(qerrors.ErrRateLimited, "handshake")
	}

	return &PendingConn{conn: conn, config: l.config}, nil
}

// PendingConn is an admitted connection whose responder handshake has not
// run yet.
type PendingConn struct {
	conn   net.Conn
	config Config
}

// Handshake runs the responder handshake. The connection is closed if it
// fails.
func (p *PendingConn) Handshake(ctx context.Context) (*Conn, error) {
	return Server(ctx, p.conn, p.config)
}

// RemoteAddr returns the remote network address.
func (p *PendingConn) RemoteAddr() net.Addr { return p.conn.RemoteAddr() }

// Close drops the connection without a handshake.
func (p *PendingConn) Close() error { return p.conn.Close() }

// extractRemoteIP extracts the IP address from a connection.
func extractRemoteIP(conn net.Conn) string {
	if tcpAddr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		return tcpAddr.IP.String()
	}
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err == nil {
		return host
	}
	return conn.RemoteAddr().String()
}

// checkIPRateLimit checks IP rate limiting and wraps the connection if needed.
func (l *Listener) checkIPRateLimit(conn net.Conn, remoteIP string) (net.Conn, error) {
	if l.ipLimiter == nil {
		return conn, nil
	}

	if !l.ipLimiter.AllowConnection(remoteIP) {
		if l.config.RateLimitObserver != nil {
			l.config.RateLimitObserver.OnConnectionRateLimit(remoteIP)
		}
		_ = conn.Close()
		return nil, errors.Wrap(qerrors.ErrRateLimited, "connection")
	}

	// Release the slot when the connection closes.
	return &rateLimitedConn{
		Conn:    conn,
		limiter: l.ipLimiter,
		ip:      remoteIP,
	}, nil
}

// Close closes the listener.
func (l *Listener) Close() error {
	return l.listener.Close()
}

// Addr returns the listener's network address.
func (l *Listener) Addr() net.Addr {
	return l.listener.Addr()
}

// rateLimitedConn wraps a net.Conn to release the IP rate limit on close.
type rateLimitedConn struct {
	net.Conn
	limiter   *IPRateLimiter
	ip        string
	closeOnce sync.Once
}

// Close closes the connection and releases the IP rate limit token.
func (c *rateLimitedConn) Close() error {
	err := c.Conn.Close()
	c.closeOnce.Do(func() {
		c.limiter.ReleaseConnection(c.ip)
	})
	return err
}
