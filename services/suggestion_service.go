package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-deepseek/deepseek"
	"github.com/go-deepseek/deepseek/request"
	"github.com/go-deepseek/deepseek/response"
	"github.com/packlane/packlane-backend/config"
	apperrors "github.com/packlane/packlane-backend/errors"
	"github.com/packlane/packlane-backend/logger"
	"go.uber.org/zap"
)

const suggestionSystemPrompt = `You are a travel packing assistant. Given a trip destination and dates, reply with a JSON array of short packing item names, nothing else. Example: ["Passport","Phone charger","Sunscreen"]`

// chatCompleter is the slice of the DeepSeek client the service uses.
type chatCompleter interface {
	CallChatCompletionsChat(ctx context.Context, req *request.ChatCompletionsRequest) (*response.ChatCompletionsResponse, error)
}

// SuggestionService generates packing-item suggestions for a trip using the
// DeepSeek chat API. The service is optional; when disabled it returns a
// typed error instead of calling out.
type SuggestionService struct {
	client chatCompleter
	cfg    config.AIConfig
	log    *zap.SugaredLogger
}

// NewSuggestionService creates the suggestion service. A disabled config
// yields a service whose Suggest always fails fast; the caller decides
// whether to expose the endpoint.
func NewSuggestionService(cfg config.AIConfig) (*SuggestionService, error) {
	s := &SuggestionService{
		cfg: cfg,
		log: logger.GetLogger().Named("suggestions"),
	}

	if !cfg.Enabled {
		return s, nil
	}

	client, err := deepseek.NewClient(cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create DeepSeek client: %w", err)
	}
	s.client = client
	s.log.Infow("Suggestion service enabled",
		"model", cfg.Model,
		"apiKey", logger.MaskAPIKey(cfg.APIKey))
	return s, nil
}

// Suggest returns packing item names for a destination and travel window.
func (s *SuggestionService) Suggest(ctx context.Context, destination string, startDate, endDate time.Time) ([]string, error) {
	if !s.cfg.Enabled || s.client == nil {
		return nil, apperrors.New(apperrors.SuggestionError,
			"Packing suggestions are not enabled", "")
	}
	if strings.TrimSpace(destination) == "" {
		return nil, apperrors.ValidationFailed("Invalid destination", "destination is required")
	}

	timeout := time.Duration(s.cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt := fmt.Sprintf("Destination: %s. Trip dates: %s to %s. Suggest packing items.",
		destination,
		startDate.Format("2006-01-02"),
		endDate.Format("2006-01-02"))

	resp, err := s.client.CallChatCompletionsChat(ctx, &request.ChatCompletionsRequest{
		Model: s.cfg.Model,
		Messages: []*request.Message{
			{Role: "system", Content: suggestionSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Stream: false,
	})
	if err != nil {
		s.log.Errorw("DeepSeek request failed",
			"destination", destination,
			"error", err)
		return nil, apperrors.Wrap(err, apperrors.SuggestionError,
			"Failed to generate packing suggestions")
	}

	if len(resp.Choices) == 0 {
		return nil, apperrors.New(apperrors.SuggestionError,
			"The suggestion model returned no content", "")
	}

	items := parseSuggestedItems(resp.Choices[0].Message.Content)
	if len(items) == 0 {
		return nil, apperrors.New(apperrors.SuggestionError,
			"The suggestion model returned no usable items", "")
	}

	if max := s.cfg.MaxItems; max > 0 && len(items) > max {
		items = items[:max]
	}

	s.log.Infow("Packing suggestions generated",
		"destination", destination,
		"itemCount", len(items))
	return items, nil
}

// parseSuggestedItems extracts item names from the model output. The model
// is prompted for a bare JSON array, but replies wrapped in code fences or
// prose happen; fall back to line splitting before giving up.
func parseSuggestedItems(content string) []string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	// The array may be embedded in surrounding prose.
	if start, end := strings.Index(content, "["), strings.LastIndex(content, "]"); start >= 0 && end > start {
		var items []string
		if err := json.Unmarshal([]byte(content[start:end+1]), &items); err == nil {
			return cleanItems(items)
		}
	}

	// Fallback: one item per line, tolerating bullets and numbering.
	var items []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789. ")
		line = strings.Trim(line, `"',`)
		if line != "" {
			items = append(items, line)
		}
	}
	return cleanItems(items)
}

func cleanItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it != "" {
			out = append(out, it)
		}
	}
	return out
}
