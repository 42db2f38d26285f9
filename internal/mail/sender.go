// Package mail delivers email confirmation codes over SMTP. The concrete
// sender wraps goemail; the auth service depends on the Sender interface
// so tests can capture outgoing codes instead of dialing a server.
package mail

import (
	"crypto/tls"
	"fmt"

	"github.com/dajohi/goemail"

	"github.com/bookshare/bookshare-go/internal/config"
)

// Sender dispatches a confirmation code to a recipient address.
type Sender interface {
	SendCode(to, code string) error
}

// SMTPSender sends codes through a real SMTP server.
type SMTPSender struct {
	smtp     *goemail.SMTP
	name     string
	address  string
	disabled bool
}

// NewSMTPSender builds a sender from the mail config. When mail is
// disabled the sender silently drops messages, which keeps signup usable
// in development environments without SMTP access.
func NewSMTPSender(cfg config.MailConfig) (*SMTPSender, error) {
	if !cfg.Enabled {
		return &SMTPSender{disabled: true}, nil
	}
	var tlsConf *tls.Config
	if cfg.SkipTLS {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	smtp, err := goemail.NewSMTP(cfg.Host, tlsConf)
	if err != nil {
		return nil, fmt.Errorf("smtp setup: %w", err)
	}
	return &SMTPSender{
		smtp:    smtp,
		name:    cfg.Name,
		address: cfg.Address,
	}, nil
}

// SendCode emails a one-time confirmation code to the recipient. The body
// intentionally contains only the code and a short validity note; the code
// itself proves nothing beyond mailbox control.
func (s *SMTPSender) SendCode(to, code string) error {
	if s.disabled {
		return nil
	}
	body := fmt.Sprintf("Your confirmation code is %s. It expires in 10 minutes.", code)
	msg := goemail.NewMessage(s.address, "Your confirmation code", body)
	msg.SetName(s.name)
	msg.AddTo(to)
	return s.smtp.Send(msg)
}
