package app

import (
	"context"
	"errors"
	"strings"

	"hunt-service/internal/domain"
)

// TeamView is the viewer's team page for a hunt.
type TeamView struct {
	Team        *domain.Team  `json:"team,omitempty"`
	Progress    int           `json:"progress"`
	Invitations []domain.Team `json:"invitations"`
}

// MyTeam returns the viewer's team with its progress, or the teams that have
// invited the viewer when they have none yet.
func (s *HuntService) MyTeam(ctx context.Context, viewer domain.Viewer, ref HuntRef) (TeamView, error) {
	if viewer.Anonymous() {
		return TeamView{}, domain.ErrAuthRequired
	}
	hunt, _, err := s.AuthorizeHunt(ctx, viewer, ref)
	if err != nil {
		return TeamView{}, err
	}
	team, err := s.teamFor(ctx, viewer, hunt.ID)
	if err != nil {
		return TeamView{}, err
	}
	view := TeamView{Team: team, Progress: hunt.ProgressFloor, Invitations: []domain.Team{}}
	if team != nil {
		view.Progress, err = s.teamProgress(ctx, hunt, team.ID)
		return view, err
	}
	invites, err := s.store.InvitingTeams(ctx, hunt.ID, viewer.UserID)
	if err != nil {
		return TeamView{}, wrap("inviting teams", err)
	}
	view.Invitations = invites
	return view, nil
}

// CreateTeam founds a team with the viewer as its only member.
func (s *HuntService) CreateTeam(ctx context.Context, viewer domain.Viewer, ref HuntRef, name string) (domain.Team, error) {
	if viewer.Anonymous() {
		return domain.Team{}, domain.ErrAuthRequired
	}
	hunt, _, err := s.AuthorizeHunt(ctx, viewer, ref)
	if err != nil {
		return domain.Team{}, err
	}
	if err := s.requireNoTeam(ctx, hunt.ID, viewer.UserID); err != nil {
		return domain.Team{}, err
	}
	team := domain.Team{HuntID: hunt.ID, Name: strings.TrimSpace(name), CreatedAt: s.now().UTC()}
	if err := team.Validate(); err != nil {
		return domain.Team{}, err
	}
	if err := s.store.CreateTeam(ctx, &team, viewer.UserID); err != nil {
		return domain.Team{}, err
	}
	return team, nil
}

func (s *HuntService) requireNoTeam(ctx context.Context, huntID, userID int64) error {
	_, err := s.store.TeamForUser(ctx, huntID, userID)
	switch {
	case err == nil:
		return domain.ErrAlreadyOnTeam
	case errors.Is(err, domain.ErrTeamNotFound):
		return nil
	default:
		return err
	}
}

// InviteMember invites a user, by username, to the viewer's team.
func (s *HuntService) InviteMember(ctx context.Context, viewer domain.Viewer, ref HuntRef, username string) (domain.Team, error) {
	if viewer.Anonymous() {
		return domain.Team{}, domain.ErrAuthRequired
	}
	hunt, _, err := s.AuthorizeHunt(ctx, viewer, ref)
	if err != nil {
		return domain.Team{}, err
	}
	team, err := s.teamFor(ctx, viewer, hunt.ID)
	if err != nil {
		return domain.Team{}, err
	}
	if team == nil {
		return domain.Team{}, domain.ErrNotOnTeam
	}
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return domain.Team{}, err
	}
	isOrganizer, err := s.store.IsOrganizer(ctx, hunt.ID, user.ID)
	if err != nil {
		return domain.Team{}, err
	}
	switch {
	case isOrganizer:
		return domain.Team{}, domain.ErrUserIsOrganizer
	case team.HasMember(user.ID):
		return domain.Team{}, domain.ErrAlreadyMember
	case team.IsInvited(user.ID):
		return domain.Team{}, domain.ErrAlreadyInvited
	}
	if err := s.store.AddInvite(ctx, team.ID, user.ID); err != nil {
		return domain.Team{}, err
	}
	return s.store.GetTeam(ctx, team.ID)
}

// AcceptInvite moves the viewer from the team's invitations to its members.
func (s *HuntService) AcceptInvite(ctx context.Context, viewer domain.Viewer, ref HuntRef, teamID int64) (domain.Team, error) {
	if viewer.Anonymous() {
		return domain.Team{}, domain.ErrAuthRequired
	}
	hunt, _, err := s.AuthorizeHunt(ctx, viewer, ref)
	if err != nil {
		return domain.Team{}, err
	}
	if err := s.requireNoTeam(ctx, hunt.ID, viewer.UserID); err != nil {
		return domain.Team{}, err
	}
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return domain.Team{}, err
	}
	if team.HuntID != hunt.ID {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	if !team.IsInvited(viewer.UserID) {
		return domain.Team{}, domain.ErrNotInvited
	}
	if hunt.MemberLimit > 0 && len(team.Members) >= hunt.MemberLimit {
		return domain.Team{}, domain.ErrTeamFull
	}
	if err := s.store.AcceptInvite(ctx, team.ID, viewer.UserID, hunt.MemberLimit); err != nil {
		return domain.Team{}, err
	}
	return s.store.GetTeam(ctx, team.ID)
}

// ListTeams is organizer only.
func (s *HuntService) ListTeams(ctx context.Context, viewer domain.Viewer, huntID int64) ([]domain.Team, error) {
	if _, err := s.requireOrganizer(ctx, viewer, huntID); err != nil {
		return nil, err
	}
	teams, err := s.store.ListTeams(ctx, huntID)
	return teams, wrap("list teams", err)
}

// DeleteTeam removes a team with its guesses and grants. Organizer only.
func (s *HuntService) DeleteTeam(ctx context.Context, viewer domain.Viewer, huntID, teamID int64) error {
	if _, err := s.requireOrganizer(ctx, viewer, huntID); err != nil {
		return err
	}
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if team.HuntID != huntID {
		return domain.ErrTeamNotFound
	}
	if err := s.store.DeleteTeam(ctx, teamID); err != nil {
		return err
	}
	s.publishLeaderboard(ctx, huntID)
	return nil
}
