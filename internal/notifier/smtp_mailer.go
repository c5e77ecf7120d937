package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/gyanoda/user-service/internal/config"
	"go.uber.org/zap"
)

// ChannelEmail is the name the email channel reports in dispatch results.
const ChannelEmail = "email"

// SMTPMailer delivers activation codes, confirmations, and password-reset
// links over SMTP with a multipart plain-text/HTML body.
type SMTPMailer struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

func NewSMTPMailer(cfg config.SMTPConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		logger: logger.Named("SMTPMailer"),
	}
}

func (m *SMTPMailer) Name() string { return ChannelEmail }

func (m *SMTPMailer) Send(ctx context.Context, n Notification) error {
	switch n.Kind {
	case KindActivation:
		subject := "Activate Your Gyanoda Account"
		html := fmt.Sprintf(`<p>Hello %s,</p>
<p>Your activation code is: <b>%s</b></p>
<p>This code is valid for 5 minutes. Please verify your account to get activated.</p>`, n.Name, n.Code)
		plain := fmt.Sprintf("Hello %s,\nYour activation code is: %s\nThis code is valid for 5 minutes. Please verify your account to get activated.", n.Name, n.Code)
		return m.send(n.Email, subject, plain, html)
	case KindConfirmation:
		subject := "Your Gyanoda Account is Activated"
		html := fmt.Sprintf(`<p>Congratulations %s!</p>
<p>Your registration is complete and your account has been verified.</p>
<p>Explore our courses and start learning today.</p>`, n.Name)
		plain := fmt.Sprintf("Congratulations %s! Your registration is complete and your account has been verified.", n.Name)
		return m.send(n.Email, subject, plain, html)
	default:
		return fmt.Errorf("unknown notification kind %q", n.Kind)
	}
}

// SendPasswordReset emails the reset link. Reset is email-only, so it does
// not go through the dispatcher.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, toEmail, toName, resetLink string) error {
	subject := "Reset Your Password - Gyanoda"
	html := fmt.Sprintf(`<p>Hello %s,</p>
<p>Click the link below to reset your password. The link is valid for 1 hour.</p>
<p><a href="%s">%s</a></p>
<p>If you did not request this, please ignore this email.</p>`, toName, resetLink, resetLink)
	plain := fmt.Sprintf("Hello %s,\nClick the link to reset your password (valid for 1 hour):\n%s", toName, resetLink)
	return m.send(toEmail, subject, plain, html)
}

func (m *SMTPMailer) send(toEmail, subject, plainBody, htmlBody string) error {
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	headers := make(map[string]string)
	if m.cfg.SenderName != "" {
		headers["From"] = fmt.Sprintf("%s <%s>", m.cfg.SenderName, m.cfg.From)
	} else {
		headers["From"] = m.cfg.From
	}
	headers["To"] = toEmail
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"

	boundary := "gyanoda-mail-boundary"
	headers["Content-Type"] = fmt.Sprintf("multipart/alternative; boundary=%s", boundary)

	var msg strings.Builder
	for k, v := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	msg.WriteString("\r\n")

	msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	msg.WriteString("Content-Transfer-Encoding: 7bit\r\n\r\n")
	msg.WriteString(plainBody)
	msg.WriteString("\r\n\r\n")

	msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	msg.WriteString("Content-Transfer-Encoding: 7bit\r\n\r\n")
	msg.WriteString(htmlBody)
	msg.WriteString("\r\n\r\n")

	msg.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{toEmail}, []byte(msg.String())); err != nil {
		m.logger.Error("Failed to send email via SMTP",
			zap.String("toEmail", toEmail),
			zap.String("smtpHost", m.cfg.Host),
			zap.Error(err))
		return fmt.Errorf("smtp.SendMail failed: %w", err)
	}

	m.logger.Info("Email sent", zap.String("toEmail", toEmail), zap.String("subject", subject))
	return nil
}
