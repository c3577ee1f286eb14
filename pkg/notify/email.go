// Package notify delivers best-effort outbound notifications: email to the
// business and an optional push into its POS system. Failures here are
// logged by callers and never affect an ongoing call.
package notify

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/answerline/answerline/pkg/voice"
)

type EmailConfig struct {
	SMTPAddr string // host:port
	Username string
	Password string
	From     string
	To       string

	// BusinessName appears in subjects; empty is fine.
	BusinessName string
}

func (c EmailConfig) enabled() bool {
	return c.SMTPAddr != "" && c.From != "" && c.To != ""
}

type EmailNotifier struct {
	Config EmailConfig

	// send is a seam for tests; nil means smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailNotifier(cfg EmailConfig) *EmailNotifier {
	return &EmailNotifier{Config: cfg}
}

func (n *EmailNotifier) SendOrderEmail(fields voice.OrderFields, callerPhone string) error {
	subject := "New Order"
	if n.Config.BusinessName != "" {
		subject = "New Order - " + n.Config.BusinessName
	}
	return n.deliver(subject, orderBody(fields, callerPhone, ""))
}

func (n *EmailNotifier) SendSummaryEmail(callerPhone string, fields voice.OrderFields, transcript string) error {
	subject := "Call Summary"
	if n.Config.BusinessName != "" {
		subject = "Call Summary - " + n.Config.BusinessName
	}
	return n.deliver(subject, orderBody(fields, callerPhone, transcript))
}

func (n *EmailNotifier) deliver(subject, body string) error {
	if !n.Config.enabled() {
		// Email not configured; callers treat this as a silent skip.
		return nil
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", n.Config.From)
	fmt.Fprintf(&msg, "To: %s\r\n", n.Config.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if n.Config.Username != "" {
		host := n.Config.SMTPAddr
		if idx := strings.LastIndex(host, ":"); idx > 0 {
			host = host[:idx]
		}
		auth = smtp.PlainAuth("", n.Config.Username, n.Config.Password, host)
	}

	send := n.send
	if send == nil {
		send = smtp.SendMail
	}
	if err := send(n.Config.SMTPAddr, auth, n.Config.From, []string{n.Config.To}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func orderBody(fields voice.OrderFields, callerPhone, transcript string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CALL - %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Caller Phone: %s\n\n", callerPhone)
	b.WriteString("ORDER DETAILS:\n")
	fmt.Fprintf(&b, "- Customer Name: %s\n", orDash(fields.CustomerName))
	fmt.Fprintf(&b, "- Order Type: %s\n", orDash(strings.ToUpper(fields.OrderType)))
	fmt.Fprintf(&b, "- Delivery Address: %s\n", orDash(fields.DeliveryAddress))
	fmt.Fprintf(&b, "- Pickup Name: %s\n", orDash(fields.PickupName))
	fmt.Fprintf(&b, "- Payment Method: %s\n", orDash(fields.PaymentMethod))
	fmt.Fprintf(&b, "- Estimated Total: %s\n\n", orDash(fields.TotalEstimate))
	fmt.Fprintf(&b, "ITEMS ORDERED:\n%s\n\n", orDefault(fields.Items, "No items specified"))
	fmt.Fprintf(&b, "SPECIAL INSTRUCTIONS:\n%s\n", orDefault(fields.SpecialInstructions, "None"))
	if transcript != "" {
		fmt.Fprintf(&b, "\nCONVERSATION:\n%s", transcript)
	}
	b.WriteString("\n---\nThis call was handled by the AI receptionist.\n")
	return b.String()
}

func orDash(s string) string {
	return orDefault(s, "Not provided")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
