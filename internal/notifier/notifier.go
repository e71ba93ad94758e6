// Package notifier sends batch completion emails.
package notifier

import (
	"github.com/mkondo/postlens/internal/config"
	"github.com/mkondo/postlens/internal/notifier/providers"
	"github.com/mkondo/postlens/internal/report"
)

// Notifier handles sending batch reports
type Notifier struct {
	sender Sender
	toAddr string
}

// Sender defines the interface for email sending
type Sender interface {
	Send(to, subject, htmlBody, plainBody string) error
}

// New creates a new notifier with the given sender
func New(sender Sender, toAddr string) *Notifier {
	return &Notifier{sender: sender, toAddr: toAddr}
}

// NewFromConfig creates a notifier based on configuration
func NewFromConfig(cfg config.EmailConfig) *Notifier {
	sender := providers.NewSMTPSender(
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUser,
		cfg.SMTPPass,
		cfg.FromAddr,
	)
	return New(sender, cfg.ToAddr)
}

// SendReport sends a batch completion report
func (n *Notifier) SendReport(r *report.Report) error {
	return n.sender.Send(n.toAddr, r.Subject, r.HTMLBody, r.PlainBody)
}
