package service

import (
	"fmt"
	"log"
	"net/smtp"

	"epay/config"
)

// MailService delivers one-time verification codes over SMTP. A nil
// *MailService is valid and means delivery is disabled; Send then logs the
// code and reports success so development signups still work.
type MailService struct {
	cfg config.SMTPConfig
}

func NewMailService(cfg config.SMTPConfig) *MailService {
	if cfg.Host == "" {
		return nil
	}
	return &MailService{cfg: cfg}
}

// Send delivers the code to the recipient. Contract: boolean success, no
// error detail; callers only branch on whether the code went out.
func (m *MailService) Send(to, code string) bool {
	if m == nil {
		log.Printf("[Mail] SMTP not configured; OTP for %s is %s", to, code)
		return true
	}
	subject := "Your ePay Account Verification Code"
	body := fmt.Sprintf(
		"Welcome to ePay! Your verification code is: %s\r\n\r\n"+
			"This code will expire in 10 minutes. If you didn't request this code, please ignore this email.\r\n",
		code)
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.cfg.From, to, subject, body))
	addr := m.cfg.Host + ":" + m.cfg.Port
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		log.Printf("[Mail] send to %s failed: %v", to, err)
		return false
	}
	return true
}
