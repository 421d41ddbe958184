// Package chat is the storefront's shopping assistant. Replies are canned;
// the package owns conversation state, input cleanup and pacing.
package chat

import (
	"context"
	"errors"
	"html"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	"github.com/johnrirwin/devicedeck/internal/cache"
	"github.com/johnrirwin/devicedeck/internal/logging"
	"github.com/johnrirwin/devicedeck/internal/models"
	"github.com/johnrirwin/devicedeck/internal/ratelimit"
)

const (
	Greeting = "Hi! I'm your shopping assistant. Ask me anything about products!"
	Reply    = "I can help you find the perfect product! Try asking about specific features or price ranges."

	cacheKeyPrefix = "chat:"
	maxHistory     = 100
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrEmptyMessage         = errors.New("message is empty")
	ErrMessageTooLong       = errors.New("message is too long")
	ErrRateLimited          = errors.New("sending messages too quickly")
)

// Config tunes the assistant
type Config struct {
	HistoryTTL     time.Duration
	MaxMessageSize int
}

// Service holds conversations in the shared cache
type Service struct {
	cache   cache.Cache
	limiter ratelimit.RateLimiter
	config  Config
	policy  *bluemonday.Policy
	logger  *logging.Logger
	now     func() time.Time

	mu sync.Mutex
}

// NewService creates a chat service; limiter may be nil
func NewService(c cache.Cache, limiter ratelimit.RateLimiter, config Config, logger *logging.Logger) *Service {
	if config.HistoryTTL <= 0 {
		config.HistoryTTL = 24 * time.Hour
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = 1000
	}
	return &Service{
		cache:   c,
		limiter: limiter,
		config:  config,
		policy:  bluemonday.StrictPolicy(),
		logger:  logger,
		now:     time.Now,
	}
}

// Start opens a conversation with the greeting as its first message
func (s *Service) Start(ctx context.Context) (*models.Conversation, error) {
	now := s.now().UTC()
	conv := &models.Conversation{
		ID:        s.newID(now),
		CreatedAt: now,
		Messages: []models.ChatMessage{{
			ID:        s.newID(now),
			Role:      models.ChatRoleAssistant,
			Text:      Greeting,
			CreatedAt: now,
		}},
	}
	s.save(conv)

	s.logger.Debug("Started conversation", logging.WithField("conversationId", conv.ID))
	return conv, nil
}

// Get returns a conversation that has not expired
func (s *Service) Get(ctx context.Context, id string) (*models.Conversation, error) {
	value, ok := s.cache.Get(cacheKeyPrefix + id)
	if !ok {
		return nil, ErrConversationNotFound
	}
	if conv, ok := value.(*models.Conversation); ok {
		c := *conv
		c.Messages = append([]models.ChatMessage(nil), conv.Messages...)
		return &c, nil
	}

	var conv models.Conversation
	if !cache.Decode(value, &conv) {
		return nil, ErrConversationNotFound
	}
	return &conv, nil
}

// Send adds the shopper's message and the assistant's reply and returns both.
// Markup is stripped from text before it is stored.
func (s *Service) Send(ctx context.Context, id, text string) ([]models.ChatMessage, error) {
	text = s.clean(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > s.config.MaxMessageSize {
		return nil, ErrMessageTooLong
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.limiter != nil && !s.limiter.Allow(cacheKeyPrefix+id) {
		return nil, ErrRateLimited
	}

	now := s.now().UTC()
	added := []models.ChatMessage{
		{ID: s.newID(now), Role: models.ChatRoleUser, Text: text, CreatedAt: now},
		{ID: s.newID(now), Role: models.ChatRoleAssistant, Text: Reply, CreatedAt: now},
	}
	conv.Messages = append(conv.Messages, added...)
	if len(conv.Messages) > maxHistory {
		conv.Messages = conv.Messages[len(conv.Messages)-maxHistory:]
	}
	s.save(conv)

	return added, nil
}

// clean reduces text to plain text. Entities are decoded until stable so
// escaped markup reaches the sanitizer as markup, and sanitizing repeats
// until a pass removes nothing, since stripping a tag can join two text
// fragments into a new one.
func (s *Service) clean(text string) string {
	for {
		next := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(unescapeAll(text))))
		if next == text {
			return next
		}
		text = next
	}
}

func unescapeAll(text string) string {
	for {
		decoded := html.UnescapeString(text)
		if decoded == text {
			return text
		}
		text = decoded
	}
}

func (s *Service) save(conv *models.Conversation) {
	s.cache.SetWithTTL(cacheKeyPrefix+conv.ID, conv, s.config.HistoryTTL)
}

func (s *Service) newID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}
