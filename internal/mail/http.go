package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"

	"encoding/json/v2"
)

const inviteTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>You're invited</title></head>
<body style="margin: 0; padding: 0; background-color: #f3f4f6; font-family: Arial, sans-serif;">
    <table role="presentation" width="100%" cellpadding="0" cellspacing="0">
        <tr>
            <td align="center" style="padding: 40px 20px;">
                <table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background-color: #ffffff; border-radius: 8px;">
                    <tr>
                        <td style="padding: 40px;">
                            <h2 style="margin: 0 0 20px 0; color: #1f2937; font-size: 24px;">Welcome{{if .FirstName}}, {{.FirstName}}{{end}}</h2>
                            <p style="margin: 0 0 20px 0; color: #4b5563; font-size: 16px; line-height: 1.5;">
                                You have been invited to join RefHQ. Click the button below to finish creating your account.
                            </p>
                            <table role="presentation" cellpadding="0" cellspacing="0" style="margin: 0 0 20px 0;">
                                <tr>
                                    <td style="background-color: #2563eb; border-radius: 6px;">
                                        <a href="{{.Link}}" style="display: inline-block; padding: 12px 28px; color: #ffffff; font-size: 16px; text-decoration: none;">
                                            Complete signup
                                        </a>
                                    </td>
                                </tr>
                            </table>
                            <p style="margin: 0; color: #6b7280; font-size: 14px;">
                                This invitation expires in {{.ExpiresIn}}. If you weren't expecting it, you can ignore this email.
                            </p>
                        </td>
                    </tr>
                </table>
            </td>
        </tr>
    </table>
</body>
</html>`

// HTTPMailer delivers email through a JSON-over-HTTP provider API
// (Resend-compatible: POST with a bearer key, 200/201 on success).
type HTTPMailer struct {
	endpoint string
	apiKey   string
	from     string
	client   *http.Client
	tmpl     *template.Template
	logger   *slog.Logger
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// NewHTTPMailer builds a provider-backed mailer. endpoint and apiKey
// must be non-empty; from is the sender identity shown to recipients.
func NewHTTPMailer(endpoint, apiKey, from string, logger *slog.Logger) (*HTTPMailer, error) {
	if endpoint == "" || apiKey == "" {
		return nil, fmt.Errorf("mail: endpoint and api key are required")
	}
	tmpl, err := template.New("invite").Parse(inviteTemplate)
	if err != nil {
		return nil, fmt.Errorf("mail: parsing invite template: %w", err)
	}
	return &HTTPMailer{
		endpoint: endpoint,
		apiKey:   apiKey,
		from:     from,
		client:   &http.Client{Timeout: 10 * time.Second},
		tmpl:     tmpl,
		logger:   logger,
	}, nil
}

func (m *HTTPMailer) SendInvite(ctx context.Context, inv Invite) error {
	var body bytes.Buffer
	if err := m.tmpl.Execute(&body, inv); err != nil {
		return fmt.Errorf("rendering invite email: %w", err)
	}

	payload, err := json.Marshal(sendRequest{
		From:    m.from,
		To:      []string{inv.To},
		Subject: "You're invited to RefHQ",
		HTML:    body.String(),
	})
	if err != nil {
		return fmt.Errorf("encoding send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending invite email: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("email provider returned status %d", resp.StatusCode)
	}

	m.logger.Debug("invite email sent", "to", inv.To)
	return nil
}
