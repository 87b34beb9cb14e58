package cases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mop.org/internal/clock"
	"mop.org/internal/domain"
)

const (
	defaultIDPrefix    = "MOP"
	defaultMaxAttempts = 5
)

// Observer receives lifecycle events. Implementations must not block.
type Observer interface {
	CaseCreated(c Case)
	StatusChanged(c Case, from, to Status)
}

// Service owns the case lifecycle: identifier allocation, status transitions
// and the per-case history.
type Service struct {
	store       Store
	clock       clock.Clock
	transitions TransitionTable
	idPrefix    string
	maxAttempts int
	observers   []Observer
	logger      *slog.Logger
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithClock overrides the time source.
func WithClock(c clock.Clock) ServiceOption {
	return func(s *Service) error {
		if c != nil {
			s.clock = c
		}
		return nil
	}
}

// WithTransitions installs a transition table. The default allows everything.
func WithTransitions(t TransitionTable) ServiceOption {
	return func(s *Service) error {
		s.transitions = t
		return nil
	}
}

// WithIDPrefix changes the "MOP" prefix of generated case ids.
func WithIDPrefix(prefix string) ServiceOption {
	return func(s *Service) error {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" {
			return errors.New("cases: id prefix must not be empty")
		}
		s.idPrefix = prefix
		return nil
	}
}

// WithMaxIDAttempts bounds retries when a generated id collides.
func WithMaxIDAttempts(n int) ServiceOption {
	return func(s *Service) error {
		if n < 1 {
			return fmt.Errorf("cases: max id attempts must be positive, got %d", n)
		}
		s.maxAttempts = n
		return nil
	}
}

// WithObserver registers a lifecycle observer. Observers are called in
// registration order.
func WithObserver(o Observer) ServiceOption {
	return func(s *Service) error {
		if o == nil {
			return errors.New("cases: nil observer")
		}
		s.observers = append(s.observers, o)
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) error {
		if l != nil {
			s.logger = l
		}
		return nil
	}
}

// NewService constructs Service with optional configuration.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("cases: store is required")
	}
	svc := &Service{
		store:       store,
		clock:       clock.System(),
		transitions: AllowAll(),
		idPrefix:    defaultIDPrefix,
		maxAttempts: defaultMaxAttempts,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Transitions exposes the active transition table.
func (s *Service) Transitions() TransitionTable { return s.transitions }

// FormatID renders a case identifier, e.g. MOP-2024-007.
func FormatID(prefix string, year, seq int) string {
	return fmt.Sprintf("%s-%d-%03d", prefix, year, seq)
}

// CreateCase stores a new case. Missing id, created date, status and priority
// are defaulted and one creation entry starts the history.
func (s *Service) CreateCase(ctx context.Context, in Input) (Case, error) {
	now := s.clock.Now()
	c := Case{
		ID:                 strings.TrimSpace(in.ID),
		Status:             StatusPendingReview,
		Priority:           DefaultPriority,
		CreatedDate:        now.Format(DateLayout),
		LastUpdated:        now.Format(DateTimeLayout),
		CreatedAt:          now,
		UpdatedAt:          now,
		BusinessName:       in.BusinessName,
		BusinessType:       in.BusinessType,
		RegistrationNumber: in.RegistrationNumber,
		MerchantCategory:   in.MerchantCategory,
		BusinessAddress:    in.BusinessAddress,
		DirectorName:       in.DirectorName,
		DirectorIC:         in.DirectorIC,
		DirectorPhone:      in.DirectorPhone,
		DirectorEmail:      in.DirectorEmail,
		AssignedTo:         in.AssignedTo,
	}
	if in.Status != nil {
		if st := normalizeStatus(*in.Status); st != "" {
			c.Status = st
		}
	}
	if p := strings.TrimSpace(in.Priority); p != "" {
		c.Priority = p
	}
	if d := strings.TrimSpace(in.CreatedDate); d != "" {
		parsed, err := time.Parse(DateLayout, d)
		if err != nil {
			return Case{}, domain.Invalid("created_date", "must be a date in YYYY-MM-DD form")
		}
		if parsed.Format(DateLayout) > c.CreatedDate {
			return Case{}, domain.Invalid("created_date", "must not be in the future")
		}
		c.CreatedDate = parsed.Format(DateLayout)
	}
	c.Documents = make([]Document, 0, len(in.Documents))
	for _, d := range in.Documents {
		if d.UploadedAt.IsZero() {
			d.UploadedAt = now
		}
		c.Documents = append(c.Documents, d)
	}
	actor := in.AssignedTo
	if actor == "" {
		actor = systemActor
	}
	c.History = []HistoryEntry{{Time: now.Format(DateTimeLayout), Action: "Case created by " + actor}}

	if c.ID != "" {
		if err := s.store.Create(ctx, c); err != nil {
			return Case{}, err
		}
	} else if err := s.createWithGeneratedID(ctx, &c, now.Year()); err != nil {
		return Case{}, err
	}

	s.logger.InfoContext(ctx, "case created", "case_id", c.ID, "status", string(c.Status))
	for _, o := range s.observers {
		o.CaseCreated(c.Clone())
	}
	return c.Clone(), nil
}

func (s *Service) createWithGeneratedID(ctx context.Context, c *Case, year int) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		seq, err := s.store.AllocateSequence(ctx, year)
		if err != nil {
			return fmt.Errorf("allocate case sequence: %w", err)
		}
		c.ID = FormatID(s.idPrefix, year, seq)
		err = s.store.Create(ctx, *c)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
		s.logger.WarnContext(ctx, "case id collision, retrying", "case_id", c.ID, "attempt", attempt)
	}
	return domain.Conflict("no free case id for %d after %d attempts", year, s.maxAttempts)
}

// UpdateCase overwrites the mutable fields of an existing case. A blank status
// means no change; a status that differs from the stored one is checked
// against the transition table and recorded in the history.
func (s *Service) UpdateCase(ctx context.Context, id string, in Input) (Case, error) {
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Case{}, err
	}
	now := s.clock.Now()

	next := current.Clone()
	next.BusinessName = in.BusinessName
	next.BusinessType = in.BusinessType
	next.RegistrationNumber = in.RegistrationNumber
	next.MerchantCategory = in.MerchantCategory
	next.BusinessAddress = in.BusinessAddress
	next.DirectorName = in.DirectorName
	next.DirectorIC = in.DirectorIC
	next.DirectorPhone = in.DirectorPhone
	next.DirectorEmail = in.DirectorEmail
	next.AssignedTo = in.AssignedTo
	next.Priority = in.Priority
	next.LastUpdated = now.Format(DateTimeLayout)
	next.UpdatedAt = now

	var appended []HistoryEntry
	changed := false
	if in.Status != nil {
		to := normalizeStatus(*in.Status)
		if to != "" && to != current.Status {
			if !s.transitions.Allows(current.Status, to) {
				return Case{}, domain.Conflict("status transition from %q to %q is not allowed", current.Status, to)
			}
			next.Status = to
			appended = append(appended, HistoryEntry{
				Time:   now.Format(DateTimeLayout),
				Action: fmt.Sprintf("Status changed from '%s' to '%s'", current.Status, to),
			})
			changed = true
		}
	}

	if err := s.store.Update(ctx, next, appended); err != nil {
		return Case{}, err
	}
	next.History = append(next.History, appended...)

	if changed {
		s.logger.InfoContext(ctx, "case status changed", "case_id", id,
			"from", string(current.Status), "to", string(next.Status))
		for _, o := range s.observers {
			o.StatusChanged(next.Clone(), current.Status, next.Status)
		}
	}
	return next, nil
}

// DeleteCase removes a case with its documents and history.
func (s *Service) DeleteCase(ctx context.Context, id string) error {
	ok, err := s.store.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFound("case", id)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "case deleted", "case_id", id)
	return nil
}

// GetCase returns a case with documents and history in insertion order.
func (s *Service) GetCase(ctx context.Context, id string) (Case, error) {
	return s.store.FindByID(ctx, id)
}

// ListCases returns every case, newest first.
func (s *Service) ListCases(ctx context.Context) ([]Case, error) {
	return s.store.FindAll(ctx, OrderNewestFirst)
}

// ListByAssignee returns the cases assigned to an officer.
func (s *Service) ListByAssignee(ctx context.Context, assignee string) ([]Case, error) {
	return s.store.FindByAssignee(ctx, assignee)
}

// SearchCases matches keyword case-insensitively against business name,
// business type and merchant category.
func (s *Service) SearchCases(ctx context.Context, keyword string) ([]Case, error) {
	return s.store.Search(ctx, keyword)
}

// FilterCases narrows by keyword first, then by exact status.
func (s *Service) FilterCases(ctx context.Context, status, keyword string) ([]Case, error) {
	var (
		list []Case
		err  error
	)
	if keyword != "" {
		list, err = s.store.Search(ctx, keyword)
	} else {
		list, err = s.store.FindAll(ctx, OrderNewestFirst)
	}
	if err != nil {
		return nil, err
	}
	if status == "" {
		return list, nil
	}
	out := list[:0]
	for _, c := range list {
		if string(c.Status) == status {
			out = append(out, c)
		}
	}
	return out, nil
}

// AddHistoryEntry appends a free-form entry to a case's history.
func (s *Service) AddHistoryEntry(ctx context.Context, id, action string) (HistoryEntry, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return HistoryEntry{}, domain.Invalid("action", "is required")
	}
	ok, err := s.store.Exists(ctx, id)
	if err != nil {
		return HistoryEntry{}, err
	}
	if !ok {
		return HistoryEntry{}, domain.NotFound("case", id)
	}
	entry := HistoryEntry{Time: s.clock.Now().Format(DateTimeLayout), Action: action}
	if err := s.store.AppendHistory(ctx, id, entry); err != nil {
		return HistoryEntry{}, err
	}
	return entry, nil
}

// History returns the audit entries of a case in append order.
func (s *Service) History(ctx context.Context, id string) ([]HistoryEntry, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.History, nil
}
