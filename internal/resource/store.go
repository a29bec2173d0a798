// Package resource holds the admin console's collection stores. A Store owns
// one backend collection: its current page of records, the pagination and
// statistics that came with it, the filter params that produced it, and the
// fetch/mutation lifecycle around it.
package resource

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/ecommerce-admin/internal/notify"
	"github.com/utafrali/ecommerce-admin/internal/shape"
	apperrors "github.com/utafrali/ecommerce-admin/pkg/errors"
	"github.com/utafrali/ecommerce-admin/pkg/httpclient"
	"github.com/utafrali/ecommerce-admin/pkg/logger"
	"github.com/utafrali/ecommerce-admin/pkg/pagination"
	"github.com/utafrali/ecommerce-admin/pkg/tracing"
)

// Phase is where a store is in its fetch lifecycle.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseErrored Phase = "errored"
)

// Requester performs one backend call. *httpclient.API satisfies it.
type Requester interface {
	Request(ctx context.Context, endpoint string, opts httpclient.Options, out any) error
}

// Authorizer yields the bearer token for a request, or an error wrapping
// apperrors.ErrAuthRequired when the request must not be sent.
type Authorizer interface {
	Authorize(ctx context.Context) (string, error)
}

// Config describes one backend collection.
type Config struct {
	// Name is the human-readable collection name used in messages.
	Name string
	// Endpoint is the list path relative to the backend base URL.
	Endpoint string
	// Key is the field the list is nested under in wrapped responses.
	Key string
	// Singular is the field a single record is nested under in mutation responses.
	Singular      string
	DefaultParams pagination.Params
}

// Deps are the collaborators every store shares.
type Deps struct {
	API      Requester
	Auth     Authorizer
	Notifier notify.Notifier
	Logger   *slog.Logger
}

// State is a point-in-time view of a store.
type State[T any] struct {
	Phase        Phase                  `json:"phase"`
	Loading      bool                   `json:"loading"`
	Items        []T                    `json:"items"`
	Pagination   *pagination.Pagination `json:"pagination"`
	HasNext      bool                   `json:"hasNext"`
	HasPrev      bool                   `json:"hasPrev"`
	Statistics   json.RawMessage        `json:"statistics,omitempty"`
	Params       pagination.Params      `json:"params"`
	Error        string                 `json:"error,omitempty"`
	AuthRequired bool                   `json:"authRequired,omitempty"`
}

// Mutation is one confirmed write against the collection. Nothing local
// changes until the backend has answered 2xx.
type Mutation[T any] struct {
	Method   string
	Endpoint string
	Body     any
	// ID is the record the mutation targets.
	ID string
	// UseServerRecord overlays the record in the response onto the local
	// one when the response carries a record with the same ID.
	UseServerRecord bool
	// Apply patches the local items. It runs after the server record is
	// merged, so the confirmed change wins over a stale response body.
	Apply func(items []T) []T
	// Statistics adjusts the statistics object after Apply ran.
	Statistics func(stats json.RawMessage) json.RawMessage
	// Success is the toast shown after confirmation.
	Success string
	// Failure is the toast shown when the backend gave no message.
	Failure string
}

// Store is a generic collection store. It is safe for concurrent use; when
// fetches overlap, only the most recently started one is applied.
type Store[T shape.Identifiable] struct {
	cfg    Config
	deps   Deps
	tracer trace.Tracer

	mu    sync.Mutex
	state State[T]
	seq   uint64
}

// NewStore creates an idle store.
func NewStore[T shape.Identifiable](cfg Config, deps Deps) *Store[T] {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NotifierFunc(func(context.Context, notify.Kind, string) {})
	}
	return &Store[T]{
		cfg:    cfg,
		deps:   deps,
		tracer: tracing.Tracer("github.com/utafrali/ecommerce-admin/internal/resource"),
		state:  initialState[T](cfg.DefaultParams),
	}
}

func initialState[T any](params pagination.Params) State[T] {
	return State[T]{
		Phase:  PhaseIdle,
		Items:  []T{},
		Params: params.Clone(),
	}
}

// Name returns the collection name.
func (s *Store[T]) Name() string { return s.cfg.Name }

// DefaultParams returns the params a fresh list view starts from.
func (s *Store[T]) DefaultParams() pagination.Params { return s.cfg.DefaultParams.Clone() }

// Fetch loads the page described by params and replaces items, pagination
// and statistics together. Failures are recorded in the returned state, never
// returned: a missing token sets AuthRequired without any network call, a
// backend error keeps the previous items, and an unrecognized response
// empties the items but keeps the previous pagination.
func (s *Store[T]) Fetch(ctx context.Context, params pagination.Params) State[T] {
	s.mu.Lock()
	s.seq++
	tag := s.seq
	s.state.Params = params.Clone()
	s.state.Phase = PhaseLoading
	s.state.Loading = true
	s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "resource.Fetch",
		trace.WithAttributes(
			attribute.String("resource", s.cfg.Name),
			attribute.Int("page", params.Page),
		),
	)
	defer span.End()

	token, err := s.deps.Auth.Authorize(ctx)
	if err != nil {
		return s.fail(ctx, tag, err)
	}

	var raw json.RawMessage
	opts := httpclient.Options{Query: params.Query(), Token: token}
	if err := s.deps.API.Request(ctx, s.cfg.Endpoint, opts, &raw); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return s.fail(ctx, tag, err)
	}

	env, err := shape.Normalize[T](raw, s.cfg.Key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unrecognized response")
		return s.fail(ctx, tag, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tag != s.seq {
		fetchesTotal.WithLabelValues(s.cfg.Name, outcomeStale).Inc()
		logger.WithContext(ctx, s.deps.Logger).DebugContext(ctx, "discarding stale response",
			slog.String("resource", s.cfg.Name),
		)
		return s.snapshotLocked()
	}

	p := shape.SinglePage(len(env.Items), params)
	if env.Pagination != nil {
		p = *env.Pagination
	}
	s.state.Items = env.Items
	s.state.Pagination = &p
	s.state.Statistics = env.Statistics
	s.state.Phase = PhaseReady
	s.state.Loading = false
	s.state.Error = ""
	s.state.AuthRequired = false

	fetchesTotal.WithLabelValues(s.cfg.Name, outcomeOK).Inc()
	span.SetAttributes(attribute.Int("items", len(env.Items)))
	return s.snapshotLocked()
}

// fail records a fetch failure unless a newer fetch has started since.
func (s *Store[T]) fail(ctx context.Context, tag uint64, err error) State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tag != s.seq {
		fetchesTotal.WithLabelValues(s.cfg.Name, outcomeStale).Inc()
		return s.snapshotLocked()
	}

	outcome := outcomeError
	s.state.Phase = PhaseErrored
	s.state.Loading = false
	s.state.AuthRequired = errors.Is(err, apperrors.ErrAuthRequired)
	s.state.Error = apperrors.UserMessage(err, s.fetchFallback())

	switch {
	case s.state.AuthRequired:
		outcome = outcomeAuthRequired
	case errors.Is(err, apperrors.ErrShapeMismatch):
		outcome = outcomeShapeMismatch
		s.state.Items = []T{}
	}
	fetchesTotal.WithLabelValues(s.cfg.Name, outcome).Inc()

	log := logger.WithContext(ctx, s.deps.Logger)
	if s.state.AuthRequired {
		log.InfoContext(ctx, "fetch skipped: no admin token", slog.String("resource", s.cfg.Name))
	} else {
		log.WarnContext(ctx, "fetch failed",
			slog.String("resource", s.cfg.Name),
			slog.String("error", err.Error()),
		)
	}
	return s.snapshotLocked()
}

func (s *Store[T]) fetchFallback() string {
	return "Failed to fetch " + s.cfg.Name
}

// Refetch repeats the last fetch with the params the store currently holds.
func (s *Store[T]) Refetch(ctx context.Context) State[T] {
	s.mu.Lock()
	params := s.state.Params.Clone()
	s.mu.Unlock()
	return s.Fetch(ctx, params)
}

// Mutate sends m and, once the backend confirms, patches the local items.
// Exactly one toast is emitted either way. The error is returned so the
// caller can react (keep a dialog open, re-enable a button).
func (s *Store[T]) Mutate(ctx context.Context, m Mutation[T]) error {
	ctx, span := s.tracer.Start(ctx, "resource.Mutate",
		trace.WithAttributes(
			attribute.String("resource", s.cfg.Name),
			attribute.String("method", m.Method),
			attribute.String("record_id", m.ID),
		),
	)
	defer span.End()

	token, err := s.deps.Auth.Authorize(ctx)
	if err != nil {
		return s.mutationFailed(ctx, m, err)
	}

	var raw json.RawMessage
	opts := httpclient.Options{Method: m.Method, Body: m.Body, Token: token}
	if err := s.deps.API.Request(ctx, m.Endpoint, opts, &raw); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "mutation failed")
		return s.mutationFailed(ctx, m, err)
	}

	if _, _, err := shape.Record[T](raw, s.cfg.Singular); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "mutation rejected")
		return s.mutationFailed(ctx, m, err)
	}

	s.mu.Lock()
	items := s.state.Items
	if m.UseServerRecord {
		items = s.mergeByID(ctx, items, m.ID, raw)
	}
	if m.Apply != nil {
		items = m.Apply(cloneItems(items))
	}
	s.state.Items = items
	if m.Statistics != nil && s.state.Statistics != nil {
		s.state.Statistics = m.Statistics(s.state.Statistics)
	}
	s.mu.Unlock()

	mutationsTotal.WithLabelValues(s.cfg.Name, m.Method, outcomeOK).Inc()
	logger.WithContext(ctx, s.deps.Logger).InfoContext(ctx, "mutation confirmed",
		slog.String("resource", s.cfg.Name),
		slog.String("method", m.Method),
		slog.String("id", m.ID),
	)
	s.deps.Notifier.Notify(ctx, notify.KindSuccess, m.Success)
	return nil
}

func (s *Store[T]) mutationFailed(ctx context.Context, m Mutation[T], err error) error {
	outcome := outcomeError
	if errors.Is(err, apperrors.ErrAuthRequired) {
		outcome = outcomeAuthRequired
	}
	mutationsTotal.WithLabelValues(s.cfg.Name, m.Method, outcome).Inc()

	logger.WithContext(ctx, s.deps.Logger).WarnContext(ctx, "mutation failed",
		slog.String("resource", s.cfg.Name),
		slog.String("method", m.Method),
		slog.String("id", m.ID),
		slog.String("error", err.Error()),
	)
	s.deps.Notifier.Notify(ctx, notify.KindError, apperrors.UserMessage(err, m.Failure))
	return err
}

// Snapshot returns a copy of the current state that later fetches and
// mutations will not change.
func (s *Store[T]) Snapshot() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store[T]) snapshotLocked() State[T] {
	st := s.state
	st.Items = cloneItems(s.state.Items)
	st.Params = s.state.Params.Clone()
	if s.state.Pagination != nil {
		p := *s.state.Pagination
		st.Pagination = &p
		st.HasNext = p.HasNext()
		st.HasPrev = p.HasPrev()
	}
	if s.state.Statistics != nil {
		st.Statistics = append(json.RawMessage(nil), s.state.Statistics...)
	}
	return st
}

// Reset discards all state, as when the admin signs out. Responses to
// fetches already in flight are ignored.
func (s *Store[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.state = initialState[T](s.cfg.DefaultParams)
}

func cloneItems[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}

func (s *Store[T]) mergeByID(ctx context.Context, items []T, id string, raw json.RawMessage) []T {
	out := cloneItems(items)
	for i := range out {
		if out[i].RecordID() != id {
			continue
		}
		merged, ok, err := shape.Merge(out[i], raw, s.cfg.Singular)
		if err != nil {
			logger.WithContext(ctx, s.deps.Logger).WarnContext(ctx, "server record not merged",
				slog.String("resource", s.cfg.Name),
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		if ok {
			out[i] = merged
		}
	}
	return out
}

// PatchByID returns an Apply func that calls fn on the record with id.
// Other records are left untouched; an absent id changes nothing.
func PatchByID[T shape.Identifiable](id string, fn func(*T)) func([]T) []T {
	return func(items []T) []T {
		for i := range items {
			if items[i].RecordID() == id {
				fn(&items[i])
			}
		}
		return items
	}
}

// RemoveByID returns an Apply func dropping the record with id.
func RemoveByID[T shape.Identifiable](id string) func([]T) []T {
	return func(items []T) []T {
		out := items[:0]
		for _, it := range items {
			if it.RecordID() != id {
				out = append(out, it)
			}
		}
		return out
	}
}
