package notifier

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EmailNotifier sends messages through an SMTP server. Port 465 uses
// implicit TLS; any other port upgrades with STARTTLS when offered.
type EmailNotifier struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// NewEmailNotifier creates an EmailNotifier. From defaults to username.
func NewEmailNotifier(host string, port int, username, password, from string) *EmailNotifier {
	if from == "" {
		from = username
	}
	return &EmailNotifier{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		Timeout:  30 * time.Second,
	}
}

// Send delivers msg to msg.To.
func (e *EmailNotifier) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("email: no recipient")
	}
	addr := net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
	dialer := &net.Dialer{Timeout: e.Timeout}

	var conn net.Conn
	var err error
	if e.Port == 465 {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: e.Host}}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("email: dial %s: %w", addr, err)
	}
	if dl, ok := ctx.Deadline(); ok {
		conn.SetDeadline(dl)
	} else if e.Timeout > 0 {
		conn.SetDeadline(time.Now().Add(e.Timeout))
	}

	c, err := smtp.NewClient(conn, e.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("email: handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok && e.Port != 465 {
		if err := c.StartTLS(&tls.Config{ServerName: e.Host}); err != nil {
			return fmt.Errorf("email: starttls: %w", err)
		}
	}
	if e.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", e.Username, e.Password, e.Host)); err != nil {
			return fmt.Errorf("email: authentication failed, check EMAIL_USER and EMAIL_PASS: %w", err)
		}
	}
	if err := c.Mail(e.From); err != nil {
		return fmt.Errorf("email: sender: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return fmt.Errorf("email: recipient: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("email: data: %w", err)
	}
	if _, err := w.Write(e.compose(msg, time.Now())); err != nil {
		return fmt.Errorf("email: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("email: send: %w", err)
	}
	return c.Quit()
}

// compose renders msg as an RFC 5322 plain-text message.
func (e *EmailNotifier) compose(msg Message, now time.Time) []byte {
	var b bytes.Buffer
	domain := e.Host
	if at := strings.LastIndex(e.From, "@"); at >= 0 {
		domain = e.From[at+1:]
	}
	fmt.Fprintf(&b, "From: %s\r\n", e.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@%s>\r\n", uuid.NewString(), domain)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	body := strings.ReplaceAll(msg.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.Bytes()
}
