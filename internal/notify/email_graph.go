package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/studioxv/booking-platform/pkg/logging"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// AccessTokenSource yields a bearer token for the Microsoft Graph API.
// The calendar package's client-credentials cache satisfies this.
type AccessTokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// GraphSender sends email through Microsoft Graph from the studio mailbox.
// Mail lands in the mailbox's sent items, which is why it is preferred for
// replies the studio staff follow up on.
type GraphSender struct {
	tokens     AccessTokenSource
	httpClient *http.Client
	baseURL    string
	userEmail  string
	logger     *logging.Logger
}

// NewGraphSender creates a Graph-backed email sender for the given mailbox.
func NewGraphSender(tokens AccessTokenSource, userEmail string, logger *logging.Logger) *GraphSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &GraphSender{
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    graphBaseURL,
		userEmail:  userEmail,
		logger:     logger,
	}
}

// WithBaseURL overrides the Graph endpoint, for tests.
func (s *GraphSender) WithBaseURL(base string) *GraphSender {
	s.baseURL = base
	return s
}

type graphMessage struct {
	Message struct {
		Subject string `json:"subject"`
		Body    struct {
			ContentType string `json:"contentType"`
			Content     string `json:"content"`
		} `json:"body"`
		ToRecipients []graphRecipient `json:"toRecipients"`
		ReplyTo      []graphRecipient `json:"replyTo,omitempty"`
	} `json:"message"`
	SaveToSentItems bool `json:"saveToSentItems"`
}

type graphRecipient struct {
	EmailAddress struct {
		Address string `json:"address"`
		Name    string `json:"name,omitempty"`
	} `json:"emailAddress"`
}

// Send posts the message to Graph's sendMail action. Graph answers 202 with
// an empty body on success.
func (s *GraphSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.tokens == nil {
		return fmt.Errorf("notify: graph sender not configured")
	}
	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("notify: graph token: %w", err)
	}

	payload := graphMessage{SaveToSentItems: true}
	payload.Message.Subject = msg.Subject
	payload.Message.Body.ContentType = "HTML"
	payload.Message.Body.Content = msg.HTML
	if payload.Message.Body.Content == "" {
		payload.Message.Body.ContentType = "Text"
		payload.Message.Body.Content = msg.Body
	}
	recipient := graphRecipient{}
	recipient.EmailAddress.Address = msg.To
	recipient.EmailAddress.Name = msg.ToName
	payload.Message.ToRecipients = []graphRecipient{recipient}
	if msg.ReplyTo != "" {
		reply := graphRecipient{}
		reply.EmailAddress.Address = msg.ReplyTo
		payload.Message.ReplyTo = []graphRecipient{reply}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshal graph message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/sendMail", s.baseURL, url.PathEscape(s.userEmail))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build graph request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: graph send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		s.logger.Error("graph sendMail returned error status", "status", resp.StatusCode, "body", string(detail), "to", msg.To)
		return fmt.Errorf("notify: graph sendMail returned status %d", resp.StatusCode)
	}

	s.logger.Info("email sent via graph", "to", msg.To, "subject", msg.Subject)
	return nil
}
