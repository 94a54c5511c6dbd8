// Package alert sends email notifications when a contract analysis flags
// an exploitative verdict.
package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
)

// Mailer sends verdict alerts over SMTP.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	logger   *slog.Logger

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// MailerConfig configures the SMTP mailer.
type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Logger   *slog.Logger
}

// NewMailer creates a mailer. Host and From are required.
func NewMailer(cfg MailerConfig) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host not configured")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp from address not configured")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Mailer{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		logger:   cfg.Logger,
		send:     smtp.SendMail,
	}, nil
}

// SendAlert emails the exploitative-contract verdict to the recipient.
func (m *Mailer) SendAlert(ctx context.Context, recipient, contractName, verdictJSON string) error {
	if recipient == "" {
		return fmt.Errorf("alert recipient not configured")
	}

	subject := fmt.Sprintf("Contract alert: %s flagged as potentially exploitative", contractName)
	body := renderBody(contractName, verdictJSON)

	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + recipient,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	addr := net.JoinHostPort(m.host, fmt.Sprintf("%d", m.port))

	// net/smtp has no context support; honor cancellation before dialing.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.send(addr, auth, m.from, []string{recipient}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}

	m.logger.Info("alert email sent", "contract", contractName, "recipient", recipient)
	return nil
}

// renderBody turns the verdict JSON into a short plain-text body, falling
// back to the raw JSON when it does not decode.
func renderBody(contractName, verdictJSON string) string {
	var verdict struct {
		Exploitative     bool     `json:"exploitative"`
		Rationale        string   `json:"rationale"`
		TopUnfairClauses []string `json:"top_unfair_clauses"`
	}
	if err := json.Unmarshal([]byte(verdictJSON), &verdict); err != nil {
		return fmt.Sprintf("Contract %q was flagged during analysis.\n\n%s\n", contractName, verdictJSON)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Contract %q was flagged as potentially exploitative.\n\n", contractName)
	if verdict.Rationale != "" {
		fmt.Fprintf(&b, "Rationale: %s\n", verdict.Rationale)
	}
	if len(verdict.TopUnfairClauses) > 0 {
		b.WriteString("\nClauses to review:\n")
		for _, c := range verdict.TopUnfairClauses {
			fmt.Fprintf(&b, "  - %s\n", c)
		}
	}
	b.WriteString("\nReview the full analysis report before signing.\n")
	return b.String()
}
