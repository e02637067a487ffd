package card

import (
	"context"
	"sort"
	"time"

	"github.com/go-pkgz/pool"
	"golang.org/x/sync/singleflight"

	"swipe_server/core/domain"
	"swipe_server/core/port/in"
	"swipe_server/core/port/out"
	"swipe_server/core/service/classification"
	"swipe_server/pkg/apperr"
	"swipe_server/pkg/logger"
	"swipe_server/pkg/metrics"
)

// Config tunes deck building.
type Config struct {
	MaxEmails       int           // default 50
	Workers         int           // build fan-out, default 8
	DeckTTL         time.Duration // default 5m
	RequireFormLink bool
	FormPrefixes    []string // recognized application-form prefixes
	Now             func() time.Time
}

// Sources are the email inputs in precedence order.
type Sources struct {
	// PerUser serves requests carrying the caller's own access token.
	PerUser out.TokenEmailSource
	// Primary is the server-credential Gmail source or the mock dataset.
	Primary out.EmailSource
	// Fallback, when set, replaces a failing Primary.
	Fallback out.EmailSource
}

// Service builds, caches and applies to cards.
type Service struct {
	builder    *Builder
	sources    Sources
	store      out.ApplyStore
	calendar   out.CalendarPort
	deck       *DeckCache
	applyGroup singleflight.Group
	cfg        Config
}

var _ in.CardService = (*Service)(nil)

func NewService(builder *Builder, sources Sources, store out.ApplyStore, calendar out.CalendarPort, cfg Config) *Service {
	if cfg.MaxEmails <= 0 {
		cfg.MaxEmails = 50
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if len(cfg.FormPrefixes) == 0 {
		cfg.FormPrefixes = classification.DefaultFormPrefixes
	}
	return &Service{
		builder:  builder,
		sources:  sources,
		store:    store,
		calendar: calendar,
		deck:     NewDeckCache(cfg.DeckTTL, cfg.Now),
		cfg:      cfg,
	}
}

// =============================================================================
// Deck
// =============================================================================

// ListCards returns the deck, newest first, optionally filtered by type.
func (s *Service) ListCards(ctx context.Context, req *in.ListCardsRequest) ([]*domain.EventCard, error) {
	cards, err := s.currentDeck(ctx, req.AccessToken)
	if err != nil {
		return nil, err
	}

	filtered := make([]*domain.EventCard, 0, len(cards))
	for _, card := range cards {
		if req.Filter.Matches(card) {
			filtered = append(filtered, card.Clone())
		}
	}
	return filtered, nil
}

// Prewarm rebuilds the shared deck ahead of expiry.
func (s *Service) Prewarm(ctx context.Context) (int, error) {
	cards, err := s.deck.Refresh(ctx, s.loadShared)
	if err != nil {
		return 0, err
	}
	return len(cards), nil
}

// currentDeck picks the per-user or shared deck. Per-user decks are never cached.
func (s *Service) currentDeck(ctx context.Context, accessToken string) ([]*domain.EventCard, error) {
	if accessToken != "" && s.sources.PerUser != nil {
		return s.buildDeck(ctx, "gmail_user", func(ctx context.Context) ([]domain.NormalizedEmail, error) {
			return s.sources.PerUser.FetchWithToken(ctx, accessToken, s.cfg.MaxEmails)
		})
	}
	return s.deck.Get(ctx, s.loadShared)
}

func (s *Service) loadShared(ctx context.Context) ([]*domain.EventCard, error) {
	if s.sources.Primary == nil {
		return []*domain.EventCard{}, nil
	}

	cards, err := s.buildDeck(ctx, s.sources.Primary.Name(), func(ctx context.Context) ([]domain.NormalizedEmail, error) {
		return s.sources.Primary.Fetch(ctx, s.cfg.MaxEmails)
	})
	if err == nil || s.sources.Fallback == nil {
		return cards, err
	}

	logger.WithContext(ctx).WithError(err).Warn("source %s failed, falling back to %s",
		s.sources.Primary.Name(), s.sources.Fallback.Name())
	return s.buildDeck(ctx, s.sources.Fallback.Name(), func(ctx context.Context) ([]domain.NormalizedEmail, error) {
		return s.sources.Fallback.Fetch(ctx, s.cfg.MaxEmails)
	})
}

// buildDeck fetches a batch and builds, filters and sorts its cards.
func (s *Service) buildDeck(ctx context.Context, source string, fetch func(context.Context) ([]domain.NormalizedEmail, error)) ([]*domain.EventCard, error) {
	start := time.Now()

	emails, err := fetch(ctx)
	if err != nil {
		return nil, apperr.ExternalError(source, err)
	}

	built, err := s.buildAll(ctx, emails)
	if err != nil {
		return nil, apperr.InternalWithError(err)
	}

	cards := make([]*domain.EventCard, 0, len(built))
	for _, card := range built {
		if card == nil {
			continue
		}
		if s.cfg.RequireFormLink && !classification.IsApplicationForm(card.ApplyLink, s.cfg.FormPrefixes) {
			continue
		}
		cards = append(cards, card)
	}
	SortByReceivedDesc(cards)

	metrics.RecordDeckRefresh(source, time.Since(start), len(cards))
	logger.WithContext(ctx).WithFields(map[string]any{
		"source": source,
		"emails": len(emails),
		"cards":  len(cards),
	}).WithDuration(time.Since(start)).Info("deck built")
	return cards, nil
}

// buildWorker builds one card per submitted index.
type buildWorker struct {
	builder *Builder
	emails  []domain.NormalizedEmail
	results []*domain.EventCard
}

// Do implements pool.Worker. Each index is written by exactly one worker.
func (w *buildWorker) Do(ctx context.Context, i int) error {
	if card, ok := w.builder.Build(ctx, &w.emails[i]); ok {
		w.results[i] = card
	}
	return nil
}

// buildAll fans the batch out over a bounded worker group and joins it.
// Skipped emails leave a nil slot.
func (s *Service) buildAll(ctx context.Context, emails []domain.NormalizedEmail) ([]*domain.EventCard, error) {
	worker := &buildWorker{
		builder: s.builder,
		emails:  emails,
		results: make([]*domain.EventCard, len(emails)),
	}
	if len(emails) == 0 {
		return worker.results, nil
	}

	workers := s.cfg.Workers
	if workers > len(emails) {
		workers = len(emails)
	}

	group := pool.New[int](workers, worker).WithContinueOnError()
	if err := group.Go(ctx); err != nil {
		return nil, err
	}
	for i := range emails {
		group.Submit(i)
	}
	if err := group.Close(ctx); err != nil {
		return nil, err
	}
	return worker.results, nil
}

// SortByReceivedDesc orders cards newest first. Equal timestamps keep batch order.
func SortByReceivedDesc(cards []*domain.EventCard) {
	sort.SliceStable(cards, func(i, j int) bool {
		return domain.ParseTimestamp(cards[i].ReceivedAt).After(domain.ParseTimestamp(cards[j].ReceivedAt))
	})
}

// =============================================================================
// Apply
// =============================================================================

// ApplyCard records an application and schedules its calendar event once.
func (s *Service) ApplyCard(ctx context.Context, req *in.ApplyCardRequest) (*in.ApplyCardResult, error) {
	log := logger.WithContext(ctx).WithField("card_id", req.CardID)

	existing, err := s.store.Get(ctx, req.CardID)
	if err != nil {
		metrics.RecordApply("failed")
		return nil, apperr.DatabaseError("get apply record", err)
	}
	if existing != nil {
		metrics.RecordApply("duplicate")
		return &in.ApplyCardResult{CalendarEventID: existing.CalendarEventID, AlreadyApplied: true}, nil
	}

	cards, err := s.currentDeck(ctx, req.AccessToken)
	if err != nil {
		metrics.RecordApply("failed")
		return nil, err
	}
	card := findCard(cards, req.CardID)
	if card == nil {
		metrics.RecordApply("not_found")
		return nil, apperr.NotFound("card")
	}

	// concurrent first applies for one card share a single calendar call
	v, err, _ := s.applyGroup.Do(req.CardID, func() (any, error) {
		return s.apply(ctx, card, req)
	})
	if err != nil {
		metrics.RecordApply("failed")
		log.WithError(err).Warn("apply failed")
		return nil, err
	}

	result := *v.(*in.ApplyCardResult)
	if result.AlreadyApplied {
		metrics.RecordApply("duplicate")
	} else {
		metrics.RecordApply("created")
		log.WithField("calendar_event_id", result.CalendarEventID).Info("card applied")
	}
	return &result, nil
}

func (s *Service) apply(ctx context.Context, card *domain.EventCard, req *in.ApplyCardRequest) (*in.ApplyCardResult, error) {
	// re-check inside the flight; a previous flight may have just finished
	existing, err := s.store.Get(ctx, card.ID)
	if err != nil {
		return nil, apperr.DatabaseError("get apply record", err)
	}
	if existing != nil {
		return &in.ApplyCardResult{CalendarEventID: existing.CalendarEventID, AlreadyApplied: true}, nil
	}

	start, end := InferTimes(card, req.Start, req.End, s.cfg.Now())
	eventID, err := s.calendar.CreateEvent(ctx, domain.CalendarEventInput{
		Title:       card.Subject,
		Description: EventDescription(card),
		Start:       start,
		End:         end,
		Location:    card.Location,
	})
	if err != nil {
		return nil, apperr.ExternalError("calendar", err)
	}

	stored, inserted, err := s.store.PutIfAbsent(ctx, &domain.ApplyRecord{
		CardID:          card.ID,
		Subject:         card.Subject,
		Tags:            append([]string(nil), card.Tags...),
		AppliedAt:       s.cfg.Now().UTC(),
		CalendarEventID: eventID,
	})
	if err != nil {
		return nil, apperr.DatabaseError("put apply record", err)
	}
	return &in.ApplyCardResult{CalendarEventID: stored.CalendarEventID, AlreadyApplied: !inserted}, nil
}

func findCard(cards []*domain.EventCard, id string) *domain.EventCard {
	for _, card := range cards {
		if card.ID == id {
			return card
		}
	}
	return nil
}
