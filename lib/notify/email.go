package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address" validate:"omitempty,email"`
	Password     string `json:"password"`
	// To defaults to EmailAddress.
	To []string `json:"to" validate:"dive,email"`
}

func (c SmtpConfig) Enabled() bool {
	return c.Server != "" && c.EmailAddress != ""
}

type sendFunc func(mail *email.Email, addr string, auth smtp.Auth) error

func sendMail(mail *email.Email, addr string, auth smtp.Auth) error {
	return mail.Send(addr, auth)
}

// Email sends the alert as a plain text mail.
type Email struct {
	config SmtpConfig
	send   sendFunc
}

func NewEmail(config SmtpConfig) Email {
	return Email{config: config, send: sendMail}
}

func (n Email) message(alert Alert) *email.Email {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Medicover Assist <%s>", n.config.EmailAddress)
	mail.To = n.config.To
	if len(mail.To) == 0 {
		mail.To = []string{n.config.EmailAddress}
	}
	mail.Subject = alert.Title
	mail.Text = []byte(strings.Join(alert.Lines, "\n") + "\n")
	return mail
}

func (n Email) Notify(ctx context.Context, alert Alert) error {
	if len(alert.Lines) == 0 {
		return nil
	}

	_, span := tracer.Start(ctx, "email:Notify")
	defer span.End()

	mail := n.message(alert)
	addr := fmt.Sprintf("%s:%d", n.config.Server, n.config.Port)

	err := n.send(mail, addr, smtp.PlainAuth("", n.config.EmailAddress, n.config.Password, n.config.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = n.send(mail, addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return fmt.Errorf("email: %w", err)
	}
	return nil
}
