// Package notify delivers user-visible packing notifications.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/packlane/packlane-backend/internal/store"
	"github.com/packlane/packlane-backend/logger"
	"go.uber.org/zap"
)

const (
	// ExpoPushURL is the Expo Push API endpoint.
	ExpoPushURL = "https://exp.host/--/api/v2/push/send"

	// MaxBatchSize is the maximum number of notifications per request (Expo limit).
	MaxBatchSize = 100

	pushTimeout = 30 * time.Second
)

// Sink delivers a notification for a checklist. The key identifies the
// logical notification; senders may use it to collapse repeats so the user
// sees one current reminder per checklist rather than a pile-up.
type Sink interface {
	Notify(ctx context.Context, key string, title string, body string) error
}

// ExpoMessage is the Expo push API message format.
type ExpoMessage struct {
	To       string                 `json:"to"`
	Title    string                 `json:"title,omitempty"`
	Body     string                 `json:"body,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Sound    string                 `json:"sound,omitempty"`
	Priority string                 `json:"priority,omitempty"`
	// CategoryID doubles as the collapse key on both platforms.
	CategoryID string `json:"categoryId,omitempty"`
}

// ExpoResponse represents the Expo Push API response.
type ExpoResponse struct {
	Data []ExpoTicket `json:"data"`
}

// ExpoTicket represents a single push ticket from Expo.
type ExpoTicket struct {
	Status  string            `json:"status"` // "ok" or "error"
	ID      string            `json:"id,omitempty"`
	Message string            `json:"message,omitempty"`
	Details *ExpoErrorDetails `json:"details,omitempty"`
}

// ExpoErrorDetails contains details about push errors.
type ExpoErrorDetails struct {
	Error string `json:"error,omitempty"` // "DeviceNotRegistered", "InvalidCredentials", etc.
}

// ExpoSink sends packing notifications through Expo's push API to every
// active device registered for a checklist's owner.
type ExpoSink struct {
	tokens     store.PushTokenStore
	httpClient *http.Client
	baseURL    string
	log        *zap.SugaredLogger
}

// NewExpoSink creates the Expo push sink.
func NewExpoSink(tokens store.PushTokenStore) *ExpoSink {
	return &ExpoSink{
		tokens: tokens,
		httpClient: &http.Client{
			Timeout: pushTimeout,
		},
		baseURL: ExpoPushURL,
		log:     logger.GetLogger().Named("expo-push"),
	}
}

// Notify sends the notification to all active tokens for the checklist.
// A checklist whose owner has no registered devices is not an error.
func (s *ExpoSink) Notify(ctx context.Context, key, title, body string) error {
	tokens, err := s.tokens.GetActiveTokensForChecklist(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to get tokens for checklist %s: %w", key, err)
	}

	if len(tokens) == 0 {
		s.log.Debugw("No active push tokens for checklist", "checklistId", key)
		return nil
	}

	messages := make([]ExpoMessage, 0, len(tokens))
	for _, t := range tokens {
		messages = append(messages, ExpoMessage{
			To:         t.Token,
			Title:      title,
			Body:       body,
			Data:       map[string]interface{}{"checklistId": key},
			Sound:      "default",
			Priority:   "high",
			CategoryID: "packing_reminder_" + key,
		})
	}

	for i := 0; i < len(messages); i += MaxBatchSize {
		end := i + MaxBatchSize
		if end > len(messages) {
			end = len(messages)
		}

		if err := s.sendBatch(ctx, messages[i:end]); err != nil {
			s.log.Errorw("Failed to send push notification batch",
				"batchStart", i,
				"batchEnd", end,
				"error", err)
			// Continue with other batches even if one fails.
		}
	}

	return nil
}

func (s *ExpoSink) sendBatch(ctx context.Context, messages []ExpoMessage) error {
	if len(messages) == 0 {
		return nil
	}

	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		s.log.Errorw("Expo push API returned non-OK status",
			"statusCode", resp.StatusCode,
			"response", string(respBody))
		return fmt.Errorf("expo push API returned status %d", resp.StatusCode)
	}

	var expoResp ExpoResponse
	if err := json.Unmarshal(respBody, &expoResp); err != nil {
		s.log.Warnw("Failed to parse Expo response",
			"error", err,
			"responseBody", string(respBody))
		return nil // the push itself likely succeeded
	}

	s.processTickets(ctx, messages, expoResp.Data)
	return nil
}

// processTickets checks per-token delivery tickets, invalidating tokens
// Expo reports as unregistered and touching last-used on successes.
func (s *ExpoSink) processTickets(ctx context.Context, messages []ExpoMessage, tickets []ExpoTicket) {
	var okCount, errCount int
	for i, ticket := range tickets {
		if i >= len(messages) {
			break
		}

		token := messages[i].To

		switch ticket.Status {
		case "error":
			errCount++
			errorDetails := ""
			if ticket.Details != nil {
				errorDetails = ticket.Details.Error
			}
			s.log.Warnw("Push notification failed",
				"token", maskToken(token),
				"message", ticket.Message,
				"errorDetails", errorDetails)

			if ticket.Details != nil && ticket.Details.Error == "DeviceNotRegistered" {
				if err := s.tokens.InvalidateToken(ctx, token); err != nil {
					s.log.Errorw("Failed to invalidate token", "error", err)
				}
			}
		case "ok":
			okCount++
			if err := s.tokens.UpdateTokenLastUsed(ctx, token); err != nil {
				s.log.Warnw("Failed to update token last used", "error", err)
			}
		default:
			s.log.Warnw("Unexpected push ticket status",
				"token", maskToken(token),
				"status", ticket.Status,
				"message", ticket.Message)
		}
	}

	s.log.Infow("Push notification batch processed",
		"total", len(tickets),
		"ok", okCount,
		"errors", errCount)
}

// maskToken masks a token for logging (shows first and last few characters).
func maskToken(token string) string {
	if len(token) <= 10 {
		return "***"
	}
	return token[:8] + strings.Repeat("*", 8) + token[len(token)-4:]
}
