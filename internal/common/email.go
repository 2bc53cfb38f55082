package common

import (
	"fmt"
	"net/smtp"
	"strings"
)

// EmailSender defines the contract for sending emails.
type EmailSender interface {
	Send(to, subject, html string) error
}

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	Addr string
	From string
	Auth smtp.Auth
}

// Send implements EmailSender.
func (s SMTPSender) Send(to, subject, html string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return fmt.Errorf("email: recipient is required")
	}
	if strings.TrimSpace(s.Addr) == "" {
		return fmt.Errorf("email: smtp address not configured")
	}
	msg := strings.Builder{}
	msg.WriteString("From: " + s.From + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(html)
	return smtp.SendMail(s.Addr, s.Auth, s.From, []string{to}, []byte(msg.String()))
}

// InMemoryEmail records messages for tests.
type InMemoryEmail struct {
	Outbox []Email
}

// Email is a single message captured by InMemoryEmail.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// Send records the email in memory.
func (m *InMemoryEmail) Send(to, subject, html string) error {
	if m == nil {
		return nil
	}
	m.Outbox = append(m.Outbox, Email{To: to, Subject: subject, HTML: html})
	return nil
}

// NopEmailSender implements EmailSender without performing any action.
type NopEmailSender struct{}

// Send implements EmailSender.
func (NopEmailSender) Send(string, string, string) error { return nil }
