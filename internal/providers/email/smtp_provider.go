package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vipspot/contact-relay/internal/config"
)

// SMTPOption configures the SMTP provider.
type SMTPOption func(*SMTPProvider)

// WithSMTPDialer swaps the network dialer used to establish connections.
func WithSMTPDialer(d Dialer) SMTPOption {
	return func(p *SMTPProvider) {
		if d != nil {
			p.dialer = d
		}
	}
}

// WithSMTPAuth supplies a custom auth strategy. When omitted the provider
// derives PLAIN auth from the configured credentials.
func WithSMTPAuth(auth smtp.Auth) SMTPOption {
	return func(p *SMTPProvider) {
		p.auth = auth
	}
}

// WithSMTPTLSConfig overrides the TLS configuration used for STARTTLS.
func WithSMTPTLSConfig(cfg *tls.Config) SMTPOption {
	return func(p *SMTPProvider) {
		p.tlsConfig = cfg
	}
}

// WithSMTPClock replaces the clock used for Date headers and timestamps.
func WithSMTPClock(now func() time.Time) SMTPOption {
	return func(p *SMTPProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// Dialer abstracts net.Dialer to simplify testing.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// SMTPProvider delivers email through a real SMTP backend.
type SMTPProvider struct {
	logger    zerolog.Logger
	host      string
	port      int
	auth      smtp.Auth
	tlsConfig *tls.Config
	dialer    Dialer
	now       func() time.Time
}

// NewSMTPProvider constructs a Provider backed by an SMTP server.
func NewSMTPProvider(cfg config.SMTPConfig, logger zerolog.Logger, opts ...SMTPOption) (*SMTPProvider, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp provider: host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("smtp provider: invalid port %d", cfg.Port)
	}

	p := &SMTPProvider{
		logger: logger,
		host:   cfg.Host,
		port:   cfg.Port,
		dialer: &net.Dialer{Timeout: 30 * time.Second},
		now:    time.Now,
		tlsConfig: &tls.Config{
			ServerName: cfg.Host,
			MinVersion: tls.VersionTLS12,
		},
	}
	if strings.TrimSpace(cfg.User) != "" {
		p.auth = smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// Send implements Provider.
func (p *SMTPProvider) Send(ctx context.Context, payload *Payload) (*RawResponse, error) {
	if payload == nil {
		return nil, errors.New("smtp provider: payload is required")
	}
	if strings.TrimSpace(payload.To) == "" {
		return nil, errors.New("smtp provider: recipient is required")
	}
	if strings.TrimSpace(payload.From) == "" {
		return nil, errors.New("smtp provider: from address is required")
	}

	envelopeFrom, err := envelopeAddress(payload.From)
	if err != nil {
		return nil, fmt.Errorf("smtp provider: invalid from address: %w", err)
	}
	envelopeTo, err := envelopeAddress(payload.To)
	if err != nil {
		return nil, fmt.Errorf("smtp provider: invalid recipient: %w", err)
	}

	message, err := p.buildMessage(payload)
	if err != nil {
		return nil, err
	}

	resp := &RawResponse{ID: payload.MessageID, Timestamp: p.now()}
	if err := p.deliver(ctx, envelopeFrom, envelopeTo, message); err != nil {
		resp.Code, resp.Body = classifySMTPError(err)
		if resp.Body == "" {
			resp.Body = err.Error()
		}
		return resp, err
	}

	resp.Code = 250
	resp.Body = "smtp: message accepted"
	return resp, nil
}

func (p *SMTPProvider) deliver(ctx context.Context, from, to string, message []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(p.host, strconv.Itoa(p.port))
	conn, err := p.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp provider: dial: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer close(done)

	client, err := smtp.NewClient(conn, p.host)
	if err != nil {
		return fmt.Errorf("smtp provider: new client: %w", err)
	}
	defer client.Close()

	if cfg := p.tlsConfig; cfg != nil {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(cfg.Clone()); err != nil {
				return fmt.Errorf("smtp provider: starttls: %w", err)
			}
		}
	}

	if p.auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(p.auth); err != nil {
				return fmt.Errorf("smtp provider: auth: %w", err)
			}
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp provider: mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp provider: rcpt to %s: %w", to, err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp provider: data: %w", err)
	}
	if _, err := writer.Write(message); err != nil {
		_ = writer.Close()
		return fmt.Errorf("smtp provider: data write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp provider: data close: %w", err)
	}

	if err := client.Quit(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("smtp provider: quit: %w", err)
	}
	return ctx.Err()
}

// buildMessage renders the RFC 5322 message. When both text and HTML bodies
// are present it produces multipart/alternative with the HTML part last.
func (p *SMTPProvider) buildMessage(payload *Payload) ([]byte, error) {
	headers := make(map[string]string, len(payload.Headers)+8)
	for key, value := range payload.Headers {
		canonical := textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(key))
		if canonical == "" || strings.TrimSpace(value) == "" {
			continue
		}
		headers[canonical] = sanitizeHeaderValue(value)
	}

	headers["From"] = payload.From
	headers["To"] = payload.To
	if payload.ReplyTo != "" {
		headers["Reply-To"] = sanitizeHeaderValue(payload.ReplyTo)
	}
	if payload.Subject != "" {
		headers["Subject"] = sanitizeHeaderValue(payload.Subject)
	}
	if payload.MessageID != "" {
		if _, exists := headers["Message-Id"]; !exists {
			headers["Message-Id"] = sanitizeHeaderValue(payload.MessageID)
		}
	}
	if _, ok := headers["Date"]; !ok {
		headers["Date"] = p.now().UTC().Format(time.RFC1123Z)
	}
	headers["Mime-Version"] = "1.0"

	var body bytes.Buffer
	switch {
	case payload.Text != "" && payload.HTML != "":
		mw := multipart.NewWriter(&body)
		headers["Content-Type"] = "multipart/alternative; boundary=" + mw.Boundary()

		part, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=UTF-8"}})
		if err != nil {
			return nil, fmt.Errorf("smtp provider: text part: %w", err)
		}
		if _, err := part.Write([]byte(normalizeBody(payload.Text))); err != nil {
			return nil, fmt.Errorf("smtp provider: text part: %w", err)
		}

		part, err = mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=UTF-8"}})
		if err != nil {
			return nil, fmt.Errorf("smtp provider: html part: %w", err)
		}
		if _, err := part.Write([]byte(normalizeBody(payload.HTML))); err != nil {
			return nil, fmt.Errorf("smtp provider: html part: %w", err)
		}
		if err := mw.Close(); err != nil {
			return nil, fmt.Errorf("smtp provider: close multipart: %w", err)
		}
	case payload.HTML != "":
		headers["Content-Type"] = "text/html; charset=UTF-8"
		body.WriteString(normalizeBody(payload.HTML))
	default:
		headers["Content-Type"] = "text/plain; charset=UTF-8"
		body.WriteString(normalizeBody(payload.Text))
	}

	keys := make([]string, 0, len(headers))
	for key := range headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for _, key := range keys {
		buf.WriteString(key)
		buf.WriteString(": ")
		buf.WriteString(headers[key])
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")
	buf.Write(body.Bytes())

	return buf.Bytes(), nil
}

func sanitizeHeaderValue(value string) string {
	clean := strings.ReplaceAll(value, "\r", " ")
	clean = strings.ReplaceAll(clean, "\n", " ")
	return strings.TrimSpace(clean)
}

func normalizeBody(body string) string {
	if body == "" {
		return ""
	}
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return strings.ReplaceAll(normalized, "\n", "\r\n")
}

func envelopeAddress(value string) (string, error) {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return "", err
	}
	if addr.Address == "" {
		return "", errors.New("empty address")
	}
	return addr.Address, nil
}

func classifySMTPError(err error) (int, string) {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return tpErr.Code, strings.TrimSpace(tpErr.Msg)
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return 0, "smtp: timeout"
	}
	return 0, ""
}
