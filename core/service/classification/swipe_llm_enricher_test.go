package classification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"swipe_server/core/domain"
)

// fakeCompleter returns scripted replies and counts calls.
type fakeCompleter struct {
	mu      sync.Mutex
	model   string
	replies []string
	err     error
	calls   int
	prompts []string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func (f *fakeCompleter) Model() string {
	if f.model == "" {
		return "test-model"
	}
	return f.model
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func heuristicFallback(email *domain.NormalizedEmail) domain.ClassificationResult {
	return NewHeuristicClassifier().Classify(email)
}

func TestParseReply(t *testing.T) {
	fallback := domain.ClassificationResult{
		Type:      domain.CardTypeEvent,
		Tags:      []string{"Event"},
		EventDate: "March 20",
		Location:  "Miami",
		Summary:   "fallback summary",
	}

	tests := []struct {
		name    string
		reply   string
		wantErr bool
		check   func(t *testing.T, r domain.ClassificationResult)
	}{
		{
			name:  "full valid reply",
			reply: `{"skip":false,"type":"club","clubType":"startup","atmosphere":"casual","eventDate":"May 1","location":"Boston","tags":["Startups"," AI ",""],"summary":"A club","googleFormUrl":"https://forms.gle/x"}`,
			check: func(t *testing.T, r domain.ClassificationResult) {
				if r.Type != domain.CardTypeClub || r.ClubType != domain.ClubTypeStartup || r.Atmosphere != domain.AtmosphereCasual {
					t.Errorf("unexpected enums: %+v", r)
				}
				if strings.Join(r.Tags, ",") != "Startups,AI" {
					t.Errorf("unexpected tags %v", r.Tags)
				}
				if r.Location != "Boston" || r.GoogleFormURL != "https://forms.gle/x" {
					t.Errorf("unexpected fields: %+v", r)
				}
			},
		},
		{
			name:  "code fenced with prose",
			reply: "Sure!\n```json\n{\"type\":\"event\",\"eventType\":\"hackathon\"}\n```",
			check: func(t *testing.T, r domain.ClassificationResult) {
				if r.EventType != domain.EventTypeHackathon {
					t.Errorf("expected hackathon, got %q", r.EventType)
				}
				if r.Summary != "fallback summary" || r.Location != "Miami" {
					t.Errorf("missing fields should fall back: %+v", r)
				}
			},
		},
		{
			name:  "invalid enums dropped and type defaults to event",
			reply: `{"type":"party","eventType":"rave","clubType":"chess","atmosphere":"wild"}`,
			check: func(t *testing.T, r domain.ClassificationResult) {
				if r.Type != domain.CardTypeEvent {
					t.Errorf("expected event, got %q", r.Type)
				}
				if r.EventType != "" || r.ClubType != "" || r.Atmosphere != "" {
					t.Errorf("expected invalid enums dropped: %+v", r)
				}
			},
		},
		{
			name:  "club type cleared for events",
			reply: `{"type":"event","eventType":"summit","clubType":"tech"}`,
			check: func(t *testing.T, r domain.ClassificationResult) {
				if r.ClubType != "" {
					t.Errorf("expected clubType cleared, got %q", r.ClubType)
				}
			},
		},
		{
			name:  "tags capped and fallback on empty",
			reply: `{"tags":["a","b","c","d","e","f","g","a"]}`,
			check: func(t *testing.T, r domain.ClassificationResult) {
				if len(r.Tags) != domain.MaxTags {
					t.Errorf("expected %d tags, got %v", domain.MaxTags, r.Tags)
				}
			},
		},
		{
			name:  "non-string tags fall back",
			reply: `{"tags":[1,2,null]}`,
			check: func(t *testing.T, r domain.ClassificationResult) {
				if strings.Join(r.Tags, ",") != "Event" {
					t.Errorf("expected fallback tags, got %v", r.Tags)
				}
			},
		},
		{
			name:  "null strings fall back",
			reply: `{"googleFormUrl":"null","location":null,"summary":"  "}`,
			check: func(t *testing.T, r domain.ClassificationResult) {
				if r.GoogleFormURL != "" || r.Location != "Miami" || r.Summary != "fallback summary" {
					t.Errorf("unexpected fallback merge: %+v", r)
				}
			},
		},
		{
			name:  "skip honored",
			reply: `{"skip":true}`,
			check: func(t *testing.T, r domain.ClassificationResult) {
				if !r.Skip {
					t.Error("expected skip")
				}
			},
		},
		{
			name:  "skip as string is not trusted",
			reply: `{"skip":"yes"}`,
			check: func(t *testing.T, r domain.ClassificationResult) {
				if r.Skip {
					t.Error("expected skip=false")
				}
			},
		},
		{name: "no object", reply: "I cannot help with that", wantErr: true},
		{name: "broken json", reply: `{"type": "event",}`, wantErr: true},
		{name: "reversed braces", reply: "} nothing {", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseReply(tt.reply, fallback)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", r)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, r)
		})
	}
}

func TestResponseCache_TTL(t *testing.T) {
	clock := newTestClock()
	cache := NewResponseCache(time.Minute, clock.Now)

	cache.Set("k", domain.ClassificationResult{Type: domain.CardTypeClub, Tags: []string{"Club"}})

	got, ok := cache.Get("k")
	if !ok || got.Type != domain.CardTypeClub {
		t.Fatalf("expected hit, got %v %+v", ok, got)
	}

	// returned copies must not alias the stored entry
	got.Tags[0] = "mutated"
	again, _ := cache.Get("k")
	if again.Tags[0] != "Club" {
		t.Errorf("cache entry was mutated through a returned copy")
	}

	clock.Advance(time.Minute)
	if _, ok := cache.Get("k"); ok {
		t.Error("expected entry to expire at ttl")
	}
	if cache.Len() != 0 {
		t.Errorf("expected lazy eviction on lookup, %d entries remain", cache.Len())
	}

	stats := cache.Stats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestCacheKey(t *testing.T) {
	email := foundersEmail()
	a := CacheKey("m1", PromptVersion, email)
	b := CacheKey("m1", PromptVersion, email)
	c := CacheKey("m2", PromptVersion, email)
	d := CacheKey("m1", "other", email)

	if a != b {
		t.Error("expected deterministic key")
	}
	if a == c || a == d {
		t.Error("model and prompt version must change the key")
	}

	changed := *email
	changed.Body += "!"
	if CacheKey("m1", PromptVersion, &changed) == a {
		t.Error("body must change the key")
	}
}

func TestEnricher_NoCredential(t *testing.T) {
	e := NewEnricher(nil, EnricherConfig{})
	result := e.Classify(context.Background(), foundersEmail(), heuristicFallback)

	if result.Location != "Miami" {
		t.Errorf("expected heuristic result, got %+v", result)
	}
	if e.Cache().Len() != 0 {
		t.Error("heuristic-only mode must not populate the cache")
	}
}

func TestEnricher_SuccessIsCached(t *testing.T) {
	clock := newTestClock()
	llm := &fakeCompleter{replies: []string{`{"type":"event","eventType":"summit","atmosphere":"professional","tags":["Founders"],"summary":"Summit in Miami"}`}}
	e := NewEnricher(llm, EnricherConfig{CacheTTL: 15 * time.Minute, Now: clock.Now})

	first := e.Classify(context.Background(), foundersEmail(), heuristicFallback)
	second := e.Classify(context.Background(), foundersEmail(), heuristicFallback)

	if llm.calls != 1 {
		t.Errorf("expected 1 model call, got %d", llm.calls)
	}
	if first.Summary != "Summit in Miami" || second.Summary != first.Summary {
		t.Errorf("unexpected results: %+v / %+v", first, second)
	}
	if first.Location != "Miami" {
		t.Errorf("missing location should merge from heuristic, got %q", first.Location)
	}
	if !strings.Contains(llm.prompts[0], "Links found: https://test.org/apply") {
		t.Error("prompt should list the extracted links")
	}

	clock.Advance(16 * time.Minute)
	e.Classify(context.Background(), foundersEmail(), heuristicFallback)
	if llm.calls != 2 {
		t.Errorf("expected a fresh call after ttl, got %d calls", llm.calls)
	}
}

func TestEnricher_FailuresFallBackAndAreNotCached(t *testing.T) {
	tests := []struct {
		name string
		llm  *fakeCompleter
	}{
		{"transport error", &fakeCompleter{err: errors.New("connection reset")}},
		{"malformed reply", &fakeCompleter{replies: []string{"not json"}}},
		{"empty reply", &fakeCompleter{replies: []string{""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEnricher(tt.llm, EnricherConfig{})
			want := heuristicFallback(foundersEmail())

			got := e.Classify(context.Background(), foundersEmail(), heuristicFallback)
			if got.Type != want.Type || got.Location != want.Location || got.Summary != want.Summary {
				t.Errorf("expected heuristic result, got %+v", got)
			}
			if e.Cache().Len() != 0 {
				t.Error("failures must not be cached")
			}

			e.Classify(context.Background(), foundersEmail(), heuristicFallback)
			if tt.llm.calls != 2 {
				t.Errorf("expected retry on next request, got %d calls", tt.llm.calls)
			}
		})
	}
}

func TestEnricher_CallTimeout(t *testing.T) {
	blocking := &blockingCompleter{}
	e := NewEnricher(blocking, EnricherConfig{CallTimeout: 20 * time.Millisecond})

	start := time.Now()
	result := e.Classify(context.Background(), foundersEmail(), heuristicFallback)
	if time.Since(start) > 2*time.Second {
		t.Fatal("call timeout not enforced")
	}
	if result.Location != "Miami" {
		t.Errorf("expected heuristic result after timeout, got %+v", result)
	}
}

type blockingCompleter struct{}

func (blockingCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (blockingCompleter) Model() string { return "slow" }

func TestPipeline(t *testing.T) {
	llm := &fakeCompleter{replies: []string{`{"skip":true}`}}
	p := NewPipeline(nil, NewEnricher(llm, EnricherConfig{}))

	if r := p.Classify(context.Background(), foundersEmail()); !r.Skip {
		t.Error("expected skip from enrichment stage")
	}
	if r := p.Fallback(foundersEmail()); r.Skip {
		t.Error("fallback must never skip")
	}

	heuristicOnly := NewPipeline(nil, nil)
	if r := heuristicOnly.Classify(context.Background(), foundersEmail()); r.Type != domain.CardTypeEvent {
		t.Errorf("unexpected type %q", r.Type)
	}
}
