// Package mail sends transactional email over SMTP.
package mail

import (
	"fmt"
	"log"

	"gopkg.in/gomail.v2"
)

// Sender is the interface handlers depend on. Satisfied by *Mailer; a fake
// implementation is used in tests so no SMTP server is needed.
type Sender interface {
	SendResetCode(to, code string) error
}

// Mailer sends email through a configured SMTP server.
type Mailer struct {
	host string
	port int
	user string
	pass string
	from string
}

func NewMailer(host string, port int, user, pass string) *Mailer {
	return &Mailer{host: host, port: port, user: user, pass: pass, from: user}
}

// SendResetCode emails a 6-digit password reset code. The code expires
// shortly after sending, which the email spells out.
func (m *Mailer) SendResetCode(to, code string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "MediStore Password Reset Code")
	msg.SetBody("text/plain", "Your password reset code is: "+code+"\n\nThis code expires in 10 minutes. If you did not request a password reset, please ignore this email.")

	htmlBody := `
	<!DOCTYPE html>
	<html>
	<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 0;">
		<div style="background-color: #ffffff; margin: 20px auto; padding: 20px; border-radius: 8px; max-width: 600px;">
			<h1 style="color: #333333;">Password Reset Code</h1>
			<p style="color: #666666;">Your password reset code is:</p>
			<p style="font-weight: bold; font-size: 24px; color: #007bff;">` + code + `</p>
			<p style="color: #666666;">This code expires in 10 minutes.</p>
			<p style="color: #666666;">If you did not request a password reset, please ignore this email.</p>
		</div>
	</body>
	</html>
	`
	msg.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(m.host, m.port, m.user, m.pass)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending reset code email: %w", err)
	}
	return nil
}

// LogSender writes codes to the server log instead of sending email. Used
// when SMTP is not configured, e.g. in local development.
type LogSender struct{}

func (LogSender) SendResetCode(to, code string) error {
	log.Printf("INFO: password reset code for %s: %s (smtp not configured)", to, code)
	return nil
}
