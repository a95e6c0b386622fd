package backup

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliohq/folio/pkg/models"
	"github.com/foliohq/folio/pkg/store"
)

type options struct {
	metrics    *Metrics
	timeout    time.Duration
	credential CredentialFunc
	now        func() time.Time
	locks      *ScopeLocks
}

// Option configures a [Service] or an [Executor].
type Option func(*options)

// WithMetrics records operations on m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithRestoreTimeout bounds the restore transaction. Zero means no bound.
func WithRestoreTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithCredentialFunc replaces [PlaceholderCredential] for owners recreated
// by a system restore.
func WithCredentialFunc(fn CredentialFunc) Option {
	return func(o *options) { o.credential = fn }
}

// WithClock sets the time source for envelope timestamps and statistics.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithScopeLocks shares lock state between executors of the same process.
func WithScopeLocks(l *ScopeLocks) Option {
	return func(o *options) { o.locks = l }
}

func newOptions(opts []Option) options {
	o := options{
		credential: PlaceholderCredential,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.locks == nil {
		o.locks = NewScopeLocks()
	}
	return o
}

// Service is the entry point for exports and imports. Imports are checked
// completely (format, envelope type, version, payload) before the
// executor touches storage.
type Service struct {
	store    store.Store
	builder  *Builder
	executor *Executor
	metrics  *Metrics
	log      zerolog.Logger
}

func NewService(s store.Store, log zerolog.Logger, opts ...Option) *Service {
	o := newOptions(opts)
	return &Service{
		store:    s,
		builder:  &Builder{store: s, now: o.now},
		executor: NewExecutor(s, log, opts...),
		metrics:  o.metrics,
		log:      log.With().Str("component", "backup").Logger(),
	}
}

// OwnerBySlug looks an owner up by slug.
func (s *Service) OwnerBySlug(ctx context.Context, slug string) (*models.User, error) {
	var owner *models.User
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		owner, err = tx.GetUserBySlug(slug)
		return err
	})
	if err != nil {
		return nil, classify("find owner", err)
	}
	return owner, nil
}

// ExportUser writes a user-scoped snapshot of ownerID to w. Nothing is
// written when the snapshot cannot be built.
func (s *Service) ExportUser(ctx context.Context, ownerID models.UserID, w io.Writer, f Format) (err error) {
	start := time.Now()
	defer func() { s.metrics.observe("export", "user", start, err) }()

	env, err := s.builder.BuildUser(ctx, ownerID)
	if err != nil {
		return err
	}
	n, err := encode(w, f, env)
	if err != nil {
		return err
	}
	s.metrics.envelopeSize("export", f, n)
	s.log.Info().
		Str("owner", env.Owner.Slug).
		Str("format", string(f)).
		Int("bytes", n).
		Int("projects", len(env.Projects)).
		Int("skills", len(env.Skills)).
		Msg("user backup exported")
	return nil
}

// ExportSystem writes a snapshot of every owner and the settings catalog.
func (s *Service) ExportSystem(ctx context.Context, w io.Writer, f Format) (err error) {
	start := time.Now()
	defer func() { s.metrics.observe("export", "system", start, err) }()

	env, err := s.builder.BuildSystem(ctx)
	if err != nil {
		return err
	}
	n, err := encode(w, f, env)
	if err != nil {
		return err
	}
	s.metrics.envelopeSize("export", f, n)
	s.log.Info().
		Str("format", string(f)).
		Int("bytes", n).
		Int("owners", len(env.Payload)).
		Msg("system backup exported")
	return nil
}

// ImportUser replaces ownerID's portfolio with the user envelope read from
// r. An empty f detects the format from the content.
func (s *Service) ImportUser(ctx context.Context, ownerID models.UserID, r io.Reader, f Format) (stats *RestoreStats, err error) {
	start := time.Now()
	defer func() { s.metrics.observe("restore", "user", start, err) }()

	var env UserEnvelope
	if err := s.read(r, f, TypeUser, &env); err != nil {
		return nil, err
	}
	return s.executor.RestoreUser(ctx, ownerID, env.Owner, &env.Portfolio)
}

// ImportSystem replaces the whole data set with the system envelope read
// from r.
func (s *Service) ImportSystem(ctx context.Context, r io.Reader, f Format) (stats *RestoreStats, err error) {
	start := time.Now()
	defer func() { s.metrics.observe("restore", "system", start, err) }()

	var env SystemEnvelope
	if err := s.read(r, f, TypeSystem, &env); err != nil {
		return nil, err
	}
	return s.executor.RestoreSystem(ctx, &env)
}

// read decodes and validates an envelope. The header is checked first so
// a snapshot of the wrong type or version is reported as such rather than
// as a payload error.
func (s *Service) read(r io.Reader, f Format, expected EnvelopeType, env any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return newError(ErrResource, "read envelope", err)
	}
	if f == "" {
		f = DetectFormat(data)
	}
	s.metrics.envelopeSize("restore", f, len(data))

	var header struct {
		Meta Meta `json:"meta"`
	}
	if err := decode(f, data, &header); err != nil {
		return err
	}
	if err := ValidateMeta(header.Meta, expected); err != nil {
		return err
	}
	if err := decode(f, data, env); err != nil {
		return err
	}
	if err := validatePayload(env); err != nil {
		return err
	}
	s.log.Debug().
		Str("type", string(expected)).
		Str("version", header.Meta.Version).
		Str("format", string(f)).
		Int("bytes", len(data)).
		Msg("envelope validated")
	return nil
}
