package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/dom/task-manager/internal/config"
	"github.com/dom/task-manager/internal/domain"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Notifier sends account lifecycle mail.
type Notifier interface {
	SendWelcome(ctx context.Context, user *domain.User) error
	SendCancellation(ctx context.Context, user *domain.User) error
}

// Dialer is the part of gomail.Dialer the notifier uses.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailNotifier struct {
	from    string
	dialer  Dialer
	enabled bool
	logger  *zap.Logger
}

func NewEmailNotifier(cfg *config.Config, logger *zap.Logger) *EmailNotifier {
	return &EmailNotifier{
		from:    cfg.MailFrom,
		dialer:  gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		enabled: cfg.MailEnabled(),
		logger:  logger,
	}
}

// WithDialer replaces the SMTP dialer and enables sending.
func (n *EmailNotifier) WithDialer(from string, d Dialer) *EmailNotifier {
	n.from = from
	n.dialer = d
	n.enabled = true
	return n
}

func (n *EmailNotifier) SendWelcome(ctx context.Context, user *domain.User) error {
	body := fmt.Sprintf(`<p>Welcome to the task app, %s.</p>
<p>Let us know how you get along with it.</p>`, html.EscapeString(user.Username))
	return n.send(user.Email, "Thanks for joining in!", body)
}

func (n *EmailNotifier) SendCancellation(ctx context.Context, user *domain.User) error {
	body := fmt.Sprintf(`<p>Goodbye, %s.</p>
<p>Is there anything we could have done to keep you on board?</p>`, html.EscapeString(user.Username))
	return n.send(user.Email, "Sorry to see you go!", body)
}

func (n *EmailNotifier) send(to, subject, body string) error {
	if !n.enabled {
		n.logger.Debug("mail not configured, skip notification", zap.String("subject", subject))
		return nil
	}
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("empty recipient")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("email notification sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
