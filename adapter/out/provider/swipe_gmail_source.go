// Package provider implements the email source and calendar adapters.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"swipe_server/core/domain"
	"swipe_server/core/port/out"
	"swipe_server/core/service/normalize"
)

const (
	DefaultGmailQuery = "is:unread OR in:inbox"

	// parallel messages.get calls per fetch
	gmailMaxConcurrency = 10
	gmailMessageTimeout = 15 * time.Second
)

// ErrGmailNotConfigured is returned by Fetch when no server credential is set.
var ErrGmailNotConfigured = errors.New("gmail server credential not configured")

// =============================================================================
// Gmail Source
// =============================================================================

// GmailConfig holds the server-side Gmail credential.
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	UserEmail    string
	Query        string
	// Endpoint overrides the API base URL.
	Endpoint string
}

// GmailSource reads the inbox through the Gmail API.
type GmailSource struct {
	config       *oauth2.Config
	refreshToken string
	query        string
	endpoint     string
	cb           *gobreaker.CircuitBreaker
	normalizer   *normalize.Normalizer
	log          zerolog.Logger
}

var (
	_ out.EmailSource      = (*GmailSource)(nil)
	_ out.TokenEmailSource = (*GmailSource)(nil)
)

func NewGmailSource(cfg *GmailConfig, normalizer *normalize.Normalizer, log zerolog.Logger) *GmailSource {
	query := cfg.Query
	if query == "" {
		query = DefaultGmailQuery
	}
	if normalizer == nil {
		normalizer = normalize.New(nil)
	}

	log = log.With().Str("adapter", "gmail").Logger()
	return &GmailSource{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       []string{gmail.GmailReadonlyScope},
			Endpoint:     google.Endpoint,
		},
		refreshToken: cfg.RefreshToken,
		query:        query,
		endpoint:     cfg.Endpoint,
		cb:           newBreaker("gmail-api", log),
		normalizer:   normalizer,
		log:          log,
	}
}

// Name returns the source name.
func (s *GmailSource) Name() string {
	return "gmail"
}

// Configured reports whether the server refresh-token credential is complete.
func (s *GmailSource) Configured() bool {
	return s.config.ClientID != "" && s.config.ClientSecret != "" && s.refreshToken != ""
}

// Fetch reads the shared inbox with the server credential.
func (s *GmailSource) Fetch(ctx context.Context, max int) ([]domain.NormalizedEmail, error) {
	if !s.Configured() {
		return nil, ErrGmailNotConfigured
	}
	ts := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: s.refreshToken})
	return s.fetch(ctx, ts, max)
}

// FetchWithToken reads the caller's inbox with their own access token.
func (s *GmailSource) FetchWithToken(ctx context.Context, accessToken string, max int) ([]domain.NormalizedEmail, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	return s.fetch(ctx, ts, max)
}

func (s *GmailSource) fetch(ctx context.Context, ts oauth2.TokenSource, max int) ([]domain.NormalizedEmail, error) {
	svc, err := s.service(ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}

	var list *gmail.ListMessagesResponse
	err = s.executeWithCircuitBreaker("list", func() error {
		var listErr error
		list, listErr = svc.Users.Messages.List("me").
			Q(s.query).
			MaxResults(int64(max)).
			Context(ctx).Do()
		return listErr
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	emails, err := s.fetchMessagesParallel(ctx, svc, list.Messages)
	if err != nil {
		return nil, err
	}
	return normalize.DropEmpty(emails), nil
}

// fetchMessagesParallel fetches full messages with bounded concurrency.
// Messages deleted since the list call are dropped. Any other failure fails
// the batch. Order follows the list response.
func (s *GmailSource) fetchMessagesParallel(ctx context.Context, svc *gmail.Service, refs []*gmail.Message) ([]domain.NormalizedEmail, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		index int
		email domain.NormalizedEmail
		err   error
	}

	results := make(chan result, len(refs))
	sem := make(chan struct{}, gmailMaxConcurrency)

	for i, ref := range refs {
		go func(idx int, id string) {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results <- result{index: idx, err: ctx.Err()}
				return
			}

			msgCtx, cancel := context.WithTimeout(ctx, gmailMessageTimeout)
			defer cancel()

			var msg *gmail.Message
			err := s.executeWithCircuitBreaker("get", func() error {
				var getErr error
				msg, getErr = svc.Users.Messages.Get("me", id).Format("full").Context(msgCtx).Do()
				return getErr
			})
			if err != nil {
				results <- result{index: idx, err: err}
				return
			}
			results <- result{index: idx, email: s.normalizer.FromRaw(ToRawMessage(msg))}
		}(i, ref.Id)
	}

	emails := make([]domain.NormalizedEmail, len(refs))
	ok := make([]bool, len(refs))
	var firstErr error
	for collected := 0; collected < len(refs); collected++ {
		r := <-results
		if r.err != nil {
			if isNotFound(r.err) {
				s.log.Debug().Int("index", r.index).Msg("message gone since list, skipping")
				continue
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("get message %s: %w", refs[r.index].Id, r.err)
				cancel()
			}
			continue
		}
		emails[r.index] = r.email
		ok[r.index] = true
	}
	if firstErr != nil {
		return nil, firstErr
	}

	filtered := make([]domain.NormalizedEmail, 0, len(refs))
	for i, email := range emails {
		if ok[i] {
			filtered = append(filtered, email)
		}
	}
	return filtered, nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 404
}

func (s *GmailSource) service(ctx context.Context, ts oauth2.TokenSource) (*gmail.Service, error) {
	opts := []option.ClientOption{option.WithTokenSource(ts)}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}
	return gmail.NewService(ctx, opts...)
}

func (s *GmailSource) executeWithCircuitBreaker(operation string, fn func() error) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if err != nil {
		s.log.Debug().Str("operation", operation).Str("state", s.cb.State().String()).Err(err).Msg("gmail call failed")
	}
	return err
}

// =============================================================================
// Conversion
// =============================================================================

// ToRawMessage converts a full-format Gmail message to the normalizer's shape.
func ToRawMessage(msg *gmail.Message) *normalize.RawMessage {
	raw := &normalize.RawMessage{ID: msg.Id, Headers: make(map[string]string)}
	if msg.Payload == nil {
		return raw
	}
	for _, h := range msg.Payload.Headers {
		if _, exists := raw.Headers[h.Name]; !exists {
			raw.Headers[h.Name] = h.Value
		}
	}
	raw.Payload = convertPart(msg.Payload)
	return raw
}

func convertPart(p *gmail.MessagePart) *normalize.Part {
	part := &normalize.Part{MimeType: p.MimeType}
	if p.Body != nil {
		part.Data = p.Body.Data
	}
	for _, child := range p.Parts {
		if child == nil {
			continue
		}
		part.Parts = append(part.Parts, *convertPart(child))
	}
	return part
}

// =============================================================================
// Circuit Breaker
// =============================================================================

func newBreaker(name string, log zerolog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 2,
		Interval:    2 * time.Minute,
		Timeout:     20 * time.Second,
		// one deck refresh issues a list plus up to MAX_EMAILS gets, so a dead
		// upstream trips within the first batch
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 8 {
				return true
			}
			return counts.Requests >= 20 && counts.TotalFailures*2 >= counts.Requests
		},
		// client errors never trip the breaker
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) {
				switch apiErr.Code {
				case 400, 401, 403, 404:
					return true
				}
			}
			var statusErr *StatusError
			if errors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 && statusErr.Code != 429 {
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
}
