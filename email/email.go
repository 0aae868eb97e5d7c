// engforum/email/email.go
package email

import (
	"bytes"
	"crypto/tls"
	"engforum/utils"
	"html/template"
	"log/slog"
	"time"

	mail "github.com/go-mail/mail"
)

// Config holds SMTP transport settings. An empty Host or Username marks
// the transport as unconfigured.
type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// Service sends forum notification emails over SMTP. Delivery is
// best-effort: every failure is logged and reported as false, so a
// broken mail setup can never abort the operation that triggered the
// email.
type Service struct {
	cfg    Config
	logger *slog.Logger
}

func NewService(cfg Config, logger *slog.Logger) *Service {
	return &Service{cfg: cfg, logger: logger}
}

const welcomeSubject = "Welcome to International Engineering Forum! 🎉"

var welcomeTmpl = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; background: #f4f4f4; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background: white; border-radius: 15px; overflow: hidden; }
        .header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 40px 20px; text-align: center; }
        .content { padding: 40px 30px; }
        .info-box { background: #f8f9ff; border-left: 4px solid #667eea; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .footer { background: #f8f9ff; padding: 20px; text-align: center; color: #666; font-size: 14px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Welcome to International Engineering Forum!</h1>
        </div>
        <div class="content">
            <h2>Hello {{.Username}}! 👋</h2>
            <p>Congratulations on joining the <strong>International Engineering Forum</strong>! We're thrilled to have you as part of our global engineering community.</p>
            <div class="info-box">
                <strong>📋 Your Registration Details:</strong><br>
                <strong>Username:</strong> {{.Username}}<br>
                <strong>Email:</strong> {{.Email}}<br>
                <strong>Major:</strong> {{.Major}}<br>
                <strong>Registered on:</strong> {{.Date}}
            </div>
            <h3>🚀 Get Started:</h3>
            <ul>
                <li><strong>Explore Categories:</strong> Browse through various engineering disciplines</li>
                <li><strong>Start Discussions:</strong> Share your knowledge and ask questions</li>
                <li><strong>Connect with Peers:</strong> Network with engineers worldwide</li>
                <li><strong>Stay Professional:</strong> Follow our community guidelines</li>
            </ul>
            <p>If you have any questions or need assistance, feel free to reach out to our community moderators.</p>
            <p><strong>Happy Engineering! 🔧</strong></p>
        </div>
        <div class="footer">
            <p>This is an automated email. Please do not reply directly to this message.</p>
        </div>
    </div>
</body>
</html>`))

// composeWelcomeEmail renders the welcome message for a new account.
func composeWelcomeEmail(toEmail, username, major string) (subject, body string, err error) {
	var buf bytes.Buffer
	err = welcomeTmpl.Execute(&buf, map[string]string{
		"Username": username,
		"Email":    toEmail,
		"Major":    major,
		"Date":     utils.GetTime().UTC().Format("January 02, 2006"),
	})
	if err != nil {
		return "", "", err
	}
	return welcomeSubject, buf.String(), nil
}

// SendWelcomeEmail sends the fixed welcome message to a newly
// registered user. Returns whatever SendEmail returns.
func (s *Service) SendWelcomeEmail(toEmail, username, major string) bool {
	subject, body, err := composeWelcomeEmail(toEmail, username, major)
	if err != nil {
		s.logger.Error("Failed to render welcome email", "email", toEmail, "error", err)
		return false
	}
	return s.SendEmail(toEmail, subject, body)
}

// SendEmail sends a single-recipient HTML email. With no SMTP host or
// username configured it logs what would have been sent and reports
// success, so an unconfigured development setup never blocks
// registration.
func (s *Service) SendEmail(toEmail, subject, bodyHTML string) bool {
	if s.cfg.Host == "" || s.cfg.Username == "" {
		s.logger.Warn("Email settings not configured. Email not sent", "email", toEmail)
		s.logger.Info("Would have sent email", "email", toEmail, "subject", subject)
		return true
	}

	from := s.cfg.FromEmail
	if from == "" {
		from = s.cfg.Username
	}

	m := mail.NewMessage()
	m.SetAddressHeader("From", from, s.cfg.FromName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", bodyHTML)

	d := mail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	d.SSL = true
	d.TLSConfig = &tls.Config{ServerName: s.cfg.Host}
	d.Timeout = 15 * time.Second

	if err := d.DialAndSend(m); err != nil {
		s.logger.Error("Failed to send email", "email", toEmail, "error", err)
		return false
	}
	s.logger.Info("Email sent successfully", "email", toEmail)
	return true
}
