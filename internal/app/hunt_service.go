package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hunt-service/internal/domain"
)

// HuntService contains the puzzle hunt use cases.
type HuntService struct {
	store    Store
	progress ProgressReader
	catalog  PuzzleCatalog
	feeds    FeedRepository
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes a HuntService.
type Option func(*HuntService)

// WithLogger sets the logger used for background failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *HuntService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *HuntService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewHuntService(store Store, progress ProgressReader, catalog PuzzleCatalog, feeds FeedRepository, opts ...Option) *HuntService {
	s := &HuntService{
		store:    store,
		progress: progress,
		catalog:  catalog,
		feeds:    feeds,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HuntRef addresses a hunt the way a request does: by ID plus whatever slug
// the caller presented.
type HuntRef struct {
	ID    int64
	Token domain.SlugToken
}

// CreateUser registers an account.
func (s *HuntService) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	user.Username = strings.TrimSpace(user.Username)
	if err := user.Validate(); err != nil {
		return domain.User{}, err
	}
	user.CreatedAt = s.now().UTC()
	if err := s.store.CreateUser(ctx, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *HuntService) GetUser(ctx context.Context, id int64) (domain.User, error) {
	return s.store.GetUser(ctx, id)
}

// DeleteUser removes the account. Past guesses stay with their team.
func (s *HuntService) DeleteUser(ctx context.Context, viewer domain.Viewer, id int64) error {
	if viewer.Anonymous() {
		return domain.ErrAuthRequired
	}
	if viewer.UserID != id {
		return domain.ErrNotAccountOwner
	}
	return s.store.DeleteUser(ctx, id)
}

// CreateHunt stores a new hunt with the viewer as its first organizer.
func (s *HuntService) CreateHunt(ctx context.Context, viewer domain.Viewer, hunt domain.Hunt) (domain.Hunt, error) {
	if viewer.Anonymous() {
		return domain.Hunt{}, domain.ErrAuthRequired
	}
	if err := hunt.Validate(); err != nil {
		return domain.Hunt{}, err
	}
	hunt.ID = 0
	hunt.CreatedAt = s.now().UTC()
	if err := s.store.CreateHunt(ctx, &hunt, viewer.UserID); err != nil {
		return domain.Hunt{}, err
	}
	return hunt, nil
}

// ListHunts returns public hunts plus the private hunts the viewer organizes.
func (s *HuntService) ListHunts(ctx context.Context, viewer domain.Viewer) ([]domain.Hunt, error) {
	hunts, err := s.store.ListHunts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Hunt, 0, len(hunts))
	for _, h := range hunts {
		if h.IsPrivate {
			ok, err := s.IsOrganizer(ctx, viewer, h.ID)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, h)
	}
	return out, nil
}

// IsOrganizer reports whether the viewer organizes the hunt. Anonymous viewers never do.
func (s *HuntService) IsOrganizer(ctx context.Context, viewer domain.Viewer, huntID int64) (bool, error) {
	if viewer.Anonymous() {
		return false, nil
	}
	return s.store.IsOrganizer(ctx, huntID, viewer.UserID)
}

// AuthorizeHunt loads the hunt and checks read access. A private hunt the
// viewer may not see is reported as missing so its slug never leaks.
func (s *HuntService) AuthorizeHunt(ctx context.Context, viewer domain.Viewer, ref HuntRef) (domain.Hunt, bool, error) {
	hunt, err := s.store.GetHunt(ctx, ref.ID)
	if err != nil {
		return domain.Hunt{}, false, err
	}
	isOrganizer, err := s.IsOrganizer(ctx, viewer, hunt.ID)
	if err != nil {
		return domain.Hunt{}, false, err
	}
	if !hunt.IsAuthorizedToView(isOrganizer, ref.Token) {
		return domain.Hunt{}, false, domain.ErrHuntNotFound
	}
	return hunt, isOrganizer, nil
}

func (s *HuntService) requireOrganizer(ctx context.Context, viewer domain.Viewer, huntID int64) (domain.Hunt, error) {
	if viewer.Anonymous() {
		return domain.Hunt{}, domain.ErrAuthRequired
	}
	hunt, err := s.store.GetHunt(ctx, huntID)
	if err != nil {
		return domain.Hunt{}, err
	}
	ok, err := s.store.IsOrganizer(ctx, huntID, viewer.UserID)
	if err != nil {
		return domain.Hunt{}, err
	}
	if !ok {
		if hunt.IsPrivate {
			return domain.Hunt{}, domain.ErrHuntNotFound
		}
		return domain.Hunt{}, domain.ErrNotOrganizer
	}
	return hunt, nil
}

// UpdateHunt overwrites the hunt's settings. Changing the slug revokes every
// link shared with the old one.
func (s *HuntService) UpdateHunt(ctx context.Context, viewer domain.Viewer, hunt domain.Hunt) (domain.Hunt, error) {
	existing, err := s.requireOrganizer(ctx, viewer, hunt.ID)
	if err != nil {
		return domain.Hunt{}, err
	}
	if err := hunt.Validate(); err != nil {
		return domain.Hunt{}, err
	}
	hunt.CreatedAt = existing.CreatedAt
	if err := s.store.UpdateHunt(ctx, &hunt); err != nil {
		return domain.Hunt{}, err
	}
	if existing.Slug != hunt.Slug {
		s.logger.Info("hunt slug rotated", "hunt_id", hunt.ID)
	}
	return hunt, nil
}

func (s *HuntService) DeleteHunt(ctx context.Context, viewer domain.Viewer, huntID int64) error {
	if _, err := s.requireOrganizer(ctx, viewer, huntID); err != nil {
		return err
	}
	if err := s.store.DeleteHunt(ctx, huntID); err != nil {
		return err
	}
	s.invalidate(ctx, huntID)
	return nil
}

// AddOrganizer grants organizer rights to another user by username.
func (s *HuntService) AddOrganizer(ctx context.Context, viewer domain.Viewer, huntID int64, username string) error {
	if _, err := s.requireOrganizer(ctx, viewer, huntID); err != nil {
		return err
	}
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return err
	}
	return s.store.AddOrganizer(ctx, huntID, user.ID)
}

// teamFor returns the viewer's team in the hunt, or nil when the viewer is
// anonymous or has none.
func (s *HuntService) teamFor(ctx context.Context, viewer domain.Viewer, huntID int64) (*domain.Team, error) {
	if viewer.Anonymous() {
		return nil, nil
	}
	team, err := s.store.TeamForUser(ctx, huntID, viewer.UserID)
	if errors.Is(err, domain.ErrTeamNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (s *HuntService) invalidate(ctx context.Context, huntID int64) {
	if err := s.catalog.Invalidate(ctx, huntID); err != nil {
		s.logger.Warn("puzzle catalog invalidation failed", "hunt_id", huntID, "err", err)
	}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.KindOf(err) != domain.KindInternal {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
