// Package notify sends email notices to card owners via SMTP.
package notify

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/bankcards/card-service/internal/config"
	"github.com/bankcards/card-service/internal/money"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// EmailSender delivers card event notifications over SMTP. Delivery
// failures are logged and never propagated to the triggering operation.
type EmailSender struct {
	cfg *config.Config
	log *logrus.Logger
}

// NewEmailSender creates a new email sender
func NewEmailSender(cfg *config.Config, log *logrus.Logger) *EmailSender {
	return &EmailSender{cfg: cfg, log: log}
}

// CardBlocked notifies the owner that their card was blocked.
func (s *EmailSender) CardBlocked(to, username, maskedNumber string) {
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your card %s was blocked on %s.\n"+
			"If you did not request this, please contact support.\n"+
			"\nBest regards,\nCard Service",
		username, maskedNumber, time.Now().Format("2006-01-02 15:04:05"),
	)
	s.send(to, "Card Blocked Notification", body)
}

// TransferCompleted notifies the owner about a completed transfer.
func (s *EmailSender) TransferCompleted(to, username string, amount money.Amount, fromMasked, toMasked string) {
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"A transfer of %s from card %s to card %s has completed.\n"+
			"Transaction time: %s\n"+
			"\nBest regards,\nCard Service",
		username, amount, fromMasked, toMasked, time.Now().Format("2006-01-02 15:04:05"),
	)
	s.send(to, "Transfer Notification", body)
}

func (s *EmailSender) send(to, subject, body string) {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.log.Errorf("Failed to send email to %s: %v", to, err)
		return
	}
	s.log.Infof("Email sent to %s: %s", to, subject)
}
