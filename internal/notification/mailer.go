package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"admin-service/internal/config"
	"admin-service/internal/util"
)

// Notifier delivers account emails. Delivery is best-effort on the
// promote and demote paths; only the OTP email is load-bearing.
type Notifier interface {
	SendOTP(ctx context.Context, to, code string, expiry time.Duration) error
	SendPromotionNotice(ctx context.Context, to, fullName, role string) error
	SendDemotionNotice(ctx context.Context, to, fullName string) error
}

type smtpNotifier struct {
	config *config.SMTPConfig
}

func NewSMTPNotifier(cfg *config.Config) Notifier {
	return &smtpNotifier{config: &cfg.SMTP}
}

func (n *smtpNotifier) SendOTP(ctx context.Context, to, code string, expiry time.Duration) error {
	subject := "Your admin login code"
	body := fmt.Sprintf(
		"Your one-time login code is: %s\n\n"+
			"It expires in %d minutes. If you did not request this code, ignore this email.\n",
		code, int(expiry.Minutes()))

	return n.send(ctx, to, subject, body)
}

func (n *smtpNotifier) SendPromotionNotice(ctx context.Context, to, fullName, role string) error {
	subject := "You have been granted admin access"
	body := fmt.Sprintf(
		"Hi %s,\n\nYour account has been granted admin access with the %s role.\n"+
			"You can now sign in to the admin console with your email address.\n",
		fullName, role)

	return n.send(ctx, to, subject, body)
}

func (n *smtpNotifier) SendDemotionNotice(ctx context.Context, to, fullName string) error {
	subject := "Your admin access has been revoked"
	body := fmt.Sprintf(
		"Hi %s,\n\nYour admin access has been revoked. "+
			"Your regular account is unaffected.\n",
		fullName)

	return n.send(ctx, to, subject, body)
}

func (n *smtpNotifier) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := strings.Join([]string{
		"From: " + n.config.FromEmail,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", n.config.Host, n.config.Port)

	var auth smtp.Auth
	if n.config.Username != "" {
		auth = smtp.PlainAuth("", n.config.Username, n.config.Password, n.config.Host)
	}

	if err := smtp.SendMail(addr, auth, n.config.FromEmail, []string{to}, []byte(msg)); err != nil {
		util.Error("Failed to send email",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	util.Debug("Email sent",
		zap.String("to", to),
		zap.String("subject", subject))

	return nil
}
