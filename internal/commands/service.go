package commands

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/postamail/posta/internal/ai"
	"github.com/postamail/posta/internal/cache"
	"github.com/postamail/posta/internal/calendar"
	"github.com/postamail/posta/internal/gmail"
	"github.com/postamail/posta/internal/google"
	"github.com/postamail/posta/internal/instrumentation"
	"github.com/postamail/posta/internal/mirror"
	"github.com/postamail/posta/internal/model"
	"github.com/postamail/posta/internal/people"
	mailsync "github.com/postamail/posta/internal/sync"
)

// Event is a notification pushed to subscribed UI shells.
type Event struct {
	Type      string `json:"type"`
	AccountID string `json:"account_id,omitempty"`
	CardID    string `json:"card_id,omitempty"`
}

// Event types emitted by the service.
const (
	EventSyncCompleted = "sync_completed"
	EventCardsChanged  = "cards_changed"
)

// Config wires a Service together.
type Config struct {
	Cache   *cache.Store
	Mirror  mirror.Store
	Tokens  google.TokenStore
	OAuth   google.Config
	AI      *ai.Client
	Logger  *slog.Logger
	Metrics *instrumentation.Metrics

	// NewGmail overrides how per-account Gmail clients are built, for tests.
	NewGmail func(ctx context.Context, account model.Account) (*gmail.Client, error)
	// NewCalendar and NewPeople override the other per-account clients.
	NewCalendar func(ctx context.Context, account model.Account) (*calendar.Client, error)
	NewPeople   func(ctx context.Context, account model.Account) (*people.Client, error)
}

// Service executes commands against a user's accounts and local state.
type Service struct {
	cache   *cache.Store
	mirror  mirror.Store
	tokens  google.TokenStore
	oauth   google.Config
	ai      *ai.Client
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	controller *mailsync.Controller

	newGmail    func(ctx context.Context, account model.Account) (*gmail.Client, error)
	newCalendar func(ctx context.Context, account model.Account) (*calendar.Client, error)
	newPeople   func(ctx context.Context, account model.Account) (*people.Client, error)

	// One sync in flight per account; concurrent requests wait.
	syncMu    sync.Mutex
	syncGates map[string]*sync.Mutex

	subMu       sync.Mutex
	subscribers []chan Event
}

// NewService builds a Service. Cache and Mirror are required; everything else
// degrades gracefully when absent.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Mirror == nil {
		cfg.Mirror = mirror.NoopStore{}
	}
	if cfg.AI == nil {
		cfg.AI = ai.New("")
	}

	s := &Service{
		cache:       cfg.Cache,
		mirror:      cfg.Mirror,
		tokens:      cfg.Tokens,
		oauth:       cfg.OAuth,
		ai:          cfg.AI,
		logger:      logger,
		metrics:     cfg.Metrics,
		controller:  mailsync.NewController(logger, cfg.Metrics),
		newGmail:    cfg.NewGmail,
		newCalendar: cfg.NewCalendar,
		newPeople:   cfg.NewPeople,
		syncGates:   make(map[string]*sync.Mutex),
	}

	if s.newGmail == nil {
		s.newGmail = s.defaultGmail
	}
	if s.newCalendar == nil {
		s.newCalendar = s.defaultCalendar
	}
	if s.newPeople == nil {
		s.newPeople = s.defaultPeople
	}
	return s
}

func (s *Service) defaultGmail(ctx context.Context, account model.Account) (*gmail.Client, error) {
	httpClient, err := s.httpClient(ctx, account)
	if err != nil {
		return nil, err
	}
	return gmail.New(gmail.Config{
		AccountID:  account.ID,
		HTTPClient: httpClient,
		Logger:     s.logger,
		Metrics:    s.metrics,
	})
}

func (s *Service) defaultCalendar(ctx context.Context, account model.Account) (*calendar.Client, error) {
	httpClient, err := s.httpClient(ctx, account)
	if err != nil {
		return nil, err
	}
	return calendar.New(ctx, httpClient)
}

func (s *Service) defaultPeople(ctx context.Context, account model.Account) (*people.Client, error) {
	httpClient, err := s.httpClient(ctx, account)
	if err != nil {
		return nil, err
	}
	return people.New(ctx, httpClient)
}

func (s *Service) httpClient(ctx context.Context, account model.Account) (*http.Client, error) {
	return s.oauth.HTTPClient(ctx, account.Email, s.tokens)
}

// Subscribe returns a channel receiving service events until unsubscribe is
// called. Slow subscribers drop events rather than block commands.
func (s *Service) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	s.subMu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.subMu.Unlock()

	unsubscribe := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subscribers {
			if sub == ch {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, unsubscribe
}

func (s *Service) publish(event Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// recordCommand stamps one command invocation for metrics.
func (s *Service) recordCommand(ctx context.Context, command string, start time.Time, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	s.metrics.RecordCommand(ctx, command, status, time.Since(start))
}

// syncGate returns the per-account mutex serializing sync runs.
func (s *Service) syncGate(accountID string) *sync.Mutex {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	gate, ok := s.syncGates[accountID]
	if !ok {
		gate = &sync.Mutex{}
		s.syncGates[accountID] = gate
	}
	return gate
}
