// Package mailer sends transactional email over SMTP. It is only invoked
// from the queue consumer, never directly from a request handler.
package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Mailer holds the SMTP relay settings.
type Mailer struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

func New(host string, port int, user, pass, from string) *Mailer {
	return &Mailer{Host: host, Port: port, User: user, Pass: pass, From: from}
}

// Enabled reports whether a relay is configured. Without one, mail is
// logged and dropped by the consumer.
func (m *Mailer) Enabled() bool { return m.Host != "" && m.From != "" }

func (m *Mailer) send(to, subject, html string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetHeader("X-Mailer", "Taskify")
	msg.SetBody("text/html", html)
	d := gomail.NewDialer(m.Host, m.Port, m.User, m.Pass)
	return d.DialAndSend(msg)
}

// SendRegistered sends the registration confirmation.
func (m *Mailer) SendRegistered(to, fullName string) error {
	body := fmt.Sprintf(
		"<h2>Welcome to Taskify, %s!</h2><p>Your account has been created successfully. You can now sign in and start organizing your boards.</p>",
		fullName)
	return m.send(to, "Taskify | Registration Success", body)
}

// SendOTP sends the password-reset code.
func (m *Mailer) SendOTP(to string, otp, expiryMinutes int) error {
	body := fmt.Sprintf(
		"<h2>Password Reset</h2><p>Your one-time code is <b>%06d</b>. It expires in %d minute(s). If you did not request a reset, ignore this email.</p>",
		otp, expiryMinutes)
	return m.send(to, "Taskify | Password Reset OTP", body)
}
