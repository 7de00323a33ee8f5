// Package notify sends pollution alert emails over SMTP with implicit TLS.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/ecowatch/ecowatch/internal/notify"

// Send errors.
var (
	ErrNotConfigured    = errors.New("mail sender not configured")
	ErrInvalidRecipient = errors.New("invalid alert recipient")
	ErrSendFailed       = errors.New("alert email send failed")
)

// Defaults for the SMTP transport.
const (
	DefaultHost        = "smtp.gmail.com"
	DefaultPort        = 465
	DefaultDialTimeout = 15 * time.Second
)

// Config holds configuration for the alert sender.
type Config struct {
	// Host and Port of the SMTPS server (defaults: smtp.gmail.com:465).
	Host string
	Port int

	// Username and Password authenticate with AUTH PLAIN. Sending is
	// disabled when either is empty.
	Username string
	Password string

	// From is the envelope and header sender (defaults to Username).
	From string

	// DialTimeout bounds connection setup; the whole session gets twice
	// this as a deadline (default: 15s).
	DialTimeout time.Duration

	// Dialer opens SMTP sessions. If nil, a TLSDialer is used.
	Dialer Dialer

	// Logger for send outcomes.
	Logger zerolog.Logger
}

// Sender delivers alert emails. It holds no connection between sends.
type Sender struct {
	host     string
	port     int
	username string
	password string
	from     string
	dialer   Dialer
	logger   zerolog.Logger
	now      func() time.Time
}

// NewSender creates a new alert sender.
func NewSender(cfg Config) *Sender {
	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	timeout := cfg.DialTimeout
	if timeout == 0 {
		timeout = DefaultDialTimeout
	}

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &TLSDialer{Timeout: timeout}
	}

	return &Sender{
		host:     host,
		port:     port,
		username: cfg.Username,
		password: cfg.Password,
		from:     from,
		dialer:   dialer,
		logger:   cfg.Logger,
		now:      time.Now,
	}
}

// Configured reports whether credentials are present.
func (s *Sender) Configured() bool {
	return s.username != "" && s.password != "" && s.host != ""
}

// SendAlert emails the alert lines for a city to a single recipient.
// It performs no network I/O when credentials are missing or the recipient
// is invalid. Every transport failure wraps ErrSendFailed.
func (s *Sender) SendAlert(ctx context.Context, to, city string, lines []string) error {
	if !s.Configured() {
		return ErrNotConfigured
	}

	to = strings.TrimSpace(to)
	if to == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidRecipient)
	}
	addr, err := mail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecipient, err)
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "notify.SendAlert")
	defer span.End()
	span.SetAttributes(
		attribute.String("city", city),
		attribute.Int("alerts", len(lines)),
	)

	msg := ComposeAlert(city, lines)
	start := time.Now()

	if err := s.deliver(ctx, addr.Address, msg.Bytes(s.from, addr.Address, s.now())); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		s.logger.Error().
			Err(err).
			Str("city", city).
			Dur("duration", time.Since(start)).
			Msg("alert email failed")
		return err
	}

	s.logger.Info().
		Str("city", city).
		Int("alerts", len(lines)).
		Dur("duration", time.Since(start)).
		Msg("alert email sent")
	return nil
}

func (s *Sender) deliver(ctx context.Context, to string, data []byte) error {
	serverAddr := net.JoinHostPort(s.host, strconv.Itoa(s.port))

	session, err := s.dialer.Dial(ctx, serverAddr)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %w", ErrSendFailed, serverAddr, err)
	}
	defer session.Close()

	if err := session.Auth(smtp.PlainAuth("", s.username, s.password, s.host)); err != nil {
		return fmt.Errorf("%w: auth: %w", ErrSendFailed, err)
	}
	if err := session.Mail(s.from); err != nil {
		return fmt.Errorf("%w: mail from: %w", ErrSendFailed, err)
	}
	if err := session.Rcpt(to); err != nil {
		return fmt.Errorf("%w: rcpt to: %w", ErrSendFailed, err)
	}

	w, err := session.Data()
	if err != nil {
		return fmt.Errorf("%w: data: %w", ErrSendFailed, err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("%w: write message: %w", ErrSendFailed, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: end data: %w", ErrSendFailed, err)
	}

	if err := session.Quit(); err != nil {
		return fmt.Errorf("%w: quit: %w", ErrSendFailed, err)
	}
	return nil
}
