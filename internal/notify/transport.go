package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"time"
)

// Session is the subset of an SMTP client conversation used to send one
// message. *smtp.Client satisfies it.
type Session interface {
	Auth(a smtp.Auth) error
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Dialer opens an SMTP session to addr.
type Dialer interface {
	Dial(ctx context.Context, addr string) (Session, error)
}

// TLSDialer connects with implicit TLS (SMTPS).
type TLSDialer struct {
	// Timeout bounds the TCP and TLS handshake. The session deadline is
	// twice this value.
	Timeout time.Duration

	// TLSConfig overrides the client TLS settings. ServerName defaults to
	// the host part of addr.
	TLSConfig *tls.Config
}

// Dial implements Dialer.
func (d *TLSDialer) Dial(ctx context.Context, addr string) (Session, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("parse address: %w", err)
	}

	timeout := d.Timeout
	if timeout == 0 {
		timeout = DefaultDialTimeout
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if d.TLSConfig != nil {
		tlsConfig = d.TLSConfig.Clone()
	}
	if tlsConfig.ServerName == "" {
		tlsConfig.ServerName = host
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config:    tlsConfig,
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if err := conn.SetDeadline(time.Now().Add(2 * timeout)); err != nil {
		conn.Close()
		return nil, err
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return client, nil
}
