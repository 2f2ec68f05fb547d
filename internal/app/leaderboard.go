package app

import (
	"context"

	"hunt-service/internal/domain"
)

// Leaderboard ranks the hunt's teams. Hidden leaderboards are organizer only.
func (s *HuntService) Leaderboard(ctx context.Context, viewer domain.Viewer, ref HuntRef) (domain.Leaderboard, error) {
	hunt, isOrganizer, err := s.AuthorizeHunt(ctx, viewer, ref)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	if hunt.LeaderboardStyle == domain.LeaderboardHidden && !isOrganizer {
		return domain.Leaderboard{}, domain.ErrLeaderboardHidden
	}
	return s.leaderboard(ctx, hunt)
}

func (s *HuntService) leaderboard(ctx context.Context, hunt domain.Hunt) (domain.Leaderboard, error) {
	standings, err := s.progress.TeamStandings(ctx, hunt.ID)
	if err != nil {
		return domain.Leaderboard{}, wrap("team standings", err)
	}
	domain.RankStandings(hunt.LeaderboardStyle, standings)
	return domain.Leaderboard{
		HuntID:    hunt.ID,
		Style:     hunt.LeaderboardStyle,
		Entries:   standings,
		UpdatedAt: s.now().UTC(),
	}, nil
}

// SubscribeLeaderboard returns a channel that receives the current
// leaderboard and then a fresh one after every solve. The caller must invoke
// the returned cancel function to avoid leaks.
func (s *HuntService) SubscribeLeaderboard(ctx context.Context, viewer domain.Viewer, ref HuntRef) (<-chan domain.Leaderboard, func(), error) {
	initial, err := s.Leaderboard(ctx, viewer, ref)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel, err := s.feeds.Subscribe(ctx, ref.ID, initial)
	if err != nil {
		return nil, nil, wrap("subscribe leaderboard", err)
	}
	return ch, cancel, nil
}

// publishLeaderboard pushes a fresh snapshot to live subscribers, if any.
// Failures are logged: the write that triggered it has already succeeded.
func (s *HuntService) publishLeaderboard(ctx context.Context, huntID int64) {
	if !s.feeds.Watched(ctx, huntID) {
		return
	}
	hunt, err := s.store.GetHunt(ctx, huntID)
	if err != nil {
		s.logger.Warn("leaderboard publish skipped", "hunt_id", huntID, "err", err)
		return
	}
	lb, err := s.leaderboard(ctx, hunt)
	if err != nil {
		s.logger.Warn("leaderboard publish skipped", "hunt_id", huntID, "err", err)
		return
	}
	if err := s.feeds.Publish(ctx, lb); err != nil {
		s.logger.Warn("leaderboard publish failed", "hunt_id", huntID, "err", err)
	}
}
