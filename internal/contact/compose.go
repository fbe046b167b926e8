package contact

import (
	"fmt"
	"html/template"
	"net/mail"
	"strings"
	"time"

	"github.com/vipspot/contact-relay/internal/config"
	"github.com/vipspot/contact-relay/internal/models"
	emailprovider "github.com/vipspot/contact-relay/internal/providers/email"
)

// snippetMaxRunes caps the quoted message in the visitor confirmation.
const snippetMaxRunes = 260

// visitorHTML renders the confirmation email. html/template escapes every
// interpolated field, including the quoted snippet.
var visitorHTML = template.Must(template.New("visitor").Parse(strings.TrimSpace(`
<div style="font-family:Inter,Segoe UI,Arial,sans-serif;max-width:620px;margin:0 auto;padding:24px;color:#e6f6ff;background:#0b1220;">
  <h2 style="margin:0 0 12px;color:#73e6ff;">Thanks, {{.Name}} — we got your message ✅</h2>
  <p style="margin:0 0 16px;opacity:.9;">Ticket <strong>{{.TicketID}}</strong></p>
  <h3 style="margin:20px 0 8px;color:#a9ff68;">What happens next</h3>
  <ul style="margin:0 0 16px;padding-left:18px;opacity:.9;">
    <li>We'll reply within 1–2 business days.</li>
    <li>Urgent? Reply to this email and include "URGENT".</li>
    <li>Prefer a quick call? <a href="{{.BookingURL}}" style="color:#73e6ff;text-decoration:none;">Book a 15-min intro</a>.</li>
  </ul>
  <h3 style="margin:20px 0 8px;color:#a9ff68;">Your message</h3>
  <blockquote style="margin:0;padding:12px 14px;border-left:3px solid #73e6ff;background:#0f1830;opacity:.95;">
    {{.Snippet}}
  </blockquote>
  <p style="margin:22px 0 0;opacity:.7;">— {{.Company}} • {{.FromAddress}}</p>
</div>
`)))

// Composer renders the owner notification and visitor confirmation for one
// accepted submission.
type Composer struct {
	cfg      config.ContactConfig
	fromAddr string
}

// NewComposer constructs a Composer from the addressing configuration.
func NewComposer(cfg config.ContactConfig) *Composer {
	return &Composer{cfg: cfg, fromAddr: bareAddress(cfg.From)}
}

// Dispatch describes the submission being turned into email.
type Dispatch struct {
	Req        models.SubmissionRequest
	TicketID   string
	RequestID  string
	ClientIP   string
	ReceivedAt time.Time
}

// Owner builds the plain-text notification sent to the configured inbox.
// Reply-To points at the visitor so a reply in the mail client just works.
func (c *Composer) Owner(d Dispatch) *emailprovider.Payload {
	lines := []string{
		fmt.Sprintf("New inquiry (ticket %s)", d.TicketID),
		fmt.Sprintf("Request ID: %s", d.RequestID),
		"",
		fmt.Sprintf("Name: %s", d.Req.Name),
		fmt.Sprintf("Email: %s", d.Req.Email),
		fmt.Sprintf("When: %s", d.ReceivedAt.UTC().Format(time.RFC3339)),
		fmt.Sprintf("IP: %s", orNA(d.ClientIP)),
	}
	if d.Req.Source != "" {
		lines = append(lines, fmt.Sprintf("Source: %s", d.Req.Source))
	}
	lines = append(lines, "", "Message:", d.Req.Message)

	return &emailprovider.Payload{
		From:    c.cfg.From,
		To:      c.cfg.To,
		ReplyTo: d.Req.Email,
		Subject: fmt.Sprintf("%s contact — %s", c.cfg.Company, d.Req.Name),
		Text:    strings.Join(lines, "\n"),
		Headers: c.headers(d),
	}
}

// Visitor builds the confirmation sent back to the submitter, in both plain
// text and HTML.
func (c *Composer) Visitor(d Dispatch) (*emailprovider.Payload, error) {
	snippet := truncateRunes(d.Req.Message, snippetMaxRunes)

	var html strings.Builder
	err := visitorHTML.Execute(&html, struct {
		Name, TicketID, BookingURL, Snippet, Company, FromAddress string
	}{
		Name:        d.Req.Name,
		TicketID:    d.TicketID,
		BookingURL:  c.cfg.BookingURL,
		Snippet:     snippet,
		Company:     c.cfg.Company,
		FromAddress: c.fromAddr,
	})
	if err != nil {
		return nil, fmt.Errorf("contact: render visitor html: %w", err)
	}

	text := strings.Join([]string{
		fmt.Sprintf("Hi %s,", d.Req.Name),
		"",
		fmt.Sprintf("Thanks for reaching out to %s — we received your message and created ticket %s.", c.cfg.Company, d.TicketID),
		"",
		"What happens next",
		"• We'll reply within 1–2 business days.",
		"• If it's urgent, reply to this email and include \"URGENT\".",
		fmt.Sprintf("• Optional: book a quick 15-minute intro call here: %s", c.cfg.BookingURL),
		"",
		"Your message",
		fmt.Sprintf("%q", snippet),
		"",
		fmt.Sprintf("— %s", c.cfg.Company),
		c.fromAddr,
	}, "\n")

	return &emailprovider.Payload{
		From:    c.cfg.From,
		To:      d.Req.Email,
		ReplyTo: c.cfg.ReplyTo,
		Subject: fmt.Sprintf("Thanks, %s — we got your message at %s", d.Req.Name, c.cfg.Company),
		Text:    text,
		HTML:    html.String(),
		Headers: c.headers(d),
	}, nil
}

func (c *Composer) headers(d Dispatch) map[string]string {
	return map[string]string{
		"X-Ticket-ID":  d.TicketID,
		"X-Request-ID": d.RequestID,
	}
}

func truncateRunes(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max])
}

// bareAddress strips an RFC 5322 display name, so "VIPSpot <noreply@x>"
// becomes "noreply@x". Unparseable values pass through untouched.
func bareAddress(value string) string {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return value
	}
	return addr.Address
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return "N/A"
	}
	return value
}
