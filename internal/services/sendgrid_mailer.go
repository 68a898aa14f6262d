package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Mailer sends transactional email through the SendGrid v3 API: parent
// email-verification codes and support form forwarding.
type Mailer struct {
	APIKey     string
	FromEmail  string
	ToEmail    string
	HTTPClient *http.Client
	Endpoint   string
}

func NewMailer(apiKey, fromEmail, toEmail string) *Mailer {
	return &Mailer{
		APIKey:    strings.TrimSpace(apiKey),
		FromEmail: strings.TrimSpace(fromEmail),
		ToEmail:   strings.TrimSpace(toEmail),
		Endpoint:  "https://api.sendgrid.com/v3/mail/send",
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sendGridEmailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridPersonalization struct {
	To         []sendGridEmailAddress `json:"to"`
	Subject    string                 `json:"subject"`
	CustomArgs map[string]string      `json:"custom_args,omitempty"`
}

type sendGridMailSendRequest struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridEmailAddress      `json:"from"`
	ReplyTo          *sendGridEmailAddress     `json:"reply_to,omitempty"`
	Content          []sendGridContent         `json:"content"`
}

// SendVerificationCode emails a short-lived code for parent email
// verification.
func (m *Mailer) SendVerificationCode(ctx context.Context, toEmail, code string) error {
	if m == nil {
		return fmt.Errorf("mailer not configured")
	}
	if m.APIKey == "" {
		return fmt.Errorf("missing SENDGRID_API_KEY")
	}
	if m.FromEmail == "" {
		return fmt.Errorf("missing SUPPORT_FROM_EMAIL")
	}

	plain := fmt.Sprintf(
		"Your verification code is: %s\n\nIt expires in 10 minutes. If you did not request this, ignore this email.\n",
		code,
	)

	reqBody := sendGridMailSendRequest{
		Personalizations: []sendGridPersonalization{
			{
				To:      []sendGridEmailAddress{{Email: strings.TrimSpace(toEmail)}},
				Subject: "Your verification code",
			},
		},
		From: sendGridEmailAddress{
			Email: m.FromEmail,
			Name:  "KidSwap",
		},
		Content: []sendGridContent{
			{Type: "text/plain", Value: plain},
		},
	}

	return m.send(ctx, &reqBody)
}

// SendSupportEmail forwards a support form submission to the support inbox.
func (m *Mailer) SendSupportEmail(ctx context.Context, ticket, userName, userEmail, message string) error {
	if m == nil {
		return fmt.Errorf("mailer not configured")
	}
	if m.APIKey == "" {
		return fmt.Errorf("missing SENDGRID_API_KEY")
	}
	if m.FromEmail == "" {
		return fmt.Errorf("missing SUPPORT_FROM_EMAIL")
	}
	if m.ToEmail == "" {
		return fmt.Errorf("missing SUPPORT_TO_EMAIL")
	}

	subject := fmt.Sprintf("Support Request: #%s", ticket)
	body := strings.TrimSpace(message)
	if body == "" {
		body = "(empty message)"
	}

	plain := fmt.Sprintf(
		"Support ticket: %s\nFrom: %s <%s>\n\nMessage:\n%s\n",
		ticket,
		strings.TrimSpace(userName),
		strings.TrimSpace(userEmail),
		body,
	)

	reqBody := sendGridMailSendRequest{
		Personalizations: []sendGridPersonalization{
			{
				To:      []sendGridEmailAddress{{Email: m.ToEmail}},
				Subject: subject,
				CustomArgs: map[string]string{
					"ticket": ticket,
				},
			},
		},
		From: sendGridEmailAddress{
			Email: m.FromEmail,
			Name:  "KidSwap Support Form",
		},
		ReplyTo: &sendGridEmailAddress{
			Email: strings.TrimSpace(userEmail),
			Name:  strings.TrimSpace(userName),
		},
		Content: []sendGridContent{
			{Type: "text/plain", Value: plain},
		},
	}

	return m.send(ctx, &reqBody)
}

func (m *Mailer) send(ctx context.Context, reqBody *sendGridMailSendRequest) error {
	b, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := m.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// SendGrid returns 202 Accepted on success.
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("sendgrid mail send http %d", resp.StatusCode)
	}
	return nil
}
