// Package notify sends transactional email through the Resend API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const resendURL = "https://api.resend.com/emails"

// Mailer delivers a single email.
type Mailer interface {
	SendEmail(ctx context.Context, subject, body string, recipients []string) error
}

// Noop drops every email. Used when RESEND_API_KEY is unset.
type Noop struct{}

func (Noop) SendEmail(context.Context, string, string, []string) error { return nil }

// ResendEmailRequest represents the request payload for Resend API
type ResendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Html    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// ResendEmailResponse represents the response from Resend API
type ResendEmailResponse struct {
	ID string `json:"id"`
}

// ResendErrorResponse represents an error response from Resend API
type ResendErrorResponse struct {
	Message string `json:"message"`
}

type Resend struct {
	apiKey   string
	from     string
	endpoint string
	client   *http.Client
}

// NewResend builds a mailer; from is e.g. "Inkwell <no-reply@inkwell.app>".
func NewResend(apiKey, from string) (*Resend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY is required")
	}
	if from == "" {
		return nil, fmt.Errorf("RESEND_FROM_EMAIL is required")
	}
	return &Resend{
		apiKey:   apiKey,
		from:     from,
		endpoint: resendURL,
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// SendEmail sends an HTML email to recipients.
func (r *Resend) SendEmail(ctx context.Context, subject, body string, recipients []string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}

	jsonPayload, err := json.Marshal(ResendEmailRequest{
		From:    r.from,
		To:      recipients,
		Subject: subject,
		Html:    body,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create Resend API request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to Resend API: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read Resend API response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ResendErrorResponse
		if err := json.Unmarshal(bodyBytes, &errorResp); err == nil && errorResp.Message != "" {
			return fmt.Errorf("resend API error (status %d): %s", resp.StatusCode, errorResp.Message)
		}
		return fmt.Errorf("resend API error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var emailResponse ResendEmailResponse
	if err := json.Unmarshal(bodyBytes, &emailResponse); err != nil {
		log.Warn().Err(err).Msg("Failed to parse Resend email response, but email was sent")
	} else {
		log.Info().Str("emailId", emailResponse.ID).Msg("Successfully sent email via Resend")
	}
	return nil
}

// NewFollowerEmail renders the notice sent to a user who gained a follower.
func NewFollowerEmail(followerName string) (subject, body string) {
	name := html.EscapeString(followerName)
	subject = followerName + " started following you"
	body = fmt.Sprintf("<p><strong>%s</strong> is now following you on Inkwell.</p>"+
		"<p>They will see your published posts in their feed.</p>", name)
	return subject, body
}
