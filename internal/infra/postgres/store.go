package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"hunt-service/internal/app"
	"hunt-service/internal/domain"
)

var _ app.Store = (*Store)(nil)

// Open connects bun to Postgres through pgdriver.
func Open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Store implements app.Store on Postgres. Uniqueness and cascades live in the
// schema; Store only translates violations into domain errors.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	m := newUserModel(*user)
	if _, err := s.db.NewInsert().Model(m).Returning("id").Exec(ctx); err != nil {
		return translate("create user", err, nil)
	}
	user.ID = m.ID
	return nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (domain.User, error) {
	var m userModel
	if err := s.db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.User{}, translate("get user", err, domain.ErrUserNotFound)
	}
	return m.toDomain(), nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	var m userModel
	if err := s.db.NewSelect().Model(&m).Where("username = ?", username).Scan(ctx); err != nil {
		return domain.User{}, translate("get user by username", err, domain.ErrUserNotFound)
	}
	return m.toDomain(), nil
}

// DeleteUser relies on ON DELETE SET NULL for guesses and cascades for
// memberships, invitations and organizer rows.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*userModel)(nil)).Where("id = ?", id).Exec(ctx)
	return affected("delete user", res, err, domain.ErrUserNotFound)
}

func (s *Store) CreateHunt(ctx context.Context, hunt *domain.Hunt, organizerID int64) error {
	m := newHuntModel(*hunt)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(m).Returning("id").Exec(ctx); err != nil {
			return translate("create hunt", err, nil)
		}
		org := &organizerModel{HuntID: m.ID, UserID: organizerID}
		if _, err := tx.NewInsert().Model(org).Exec(ctx); err != nil {
			return translate("add organizer", err, domain.ErrUserNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	hunt.ID = m.ID
	return nil
}

func (s *Store) GetHunt(ctx context.Context, id int64) (domain.Hunt, error) {
	var m huntModel
	if err := s.db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Hunt{}, translate("get hunt", err, domain.ErrHuntNotFound)
	}
	return m.toDomain(), nil
}

func (s *Store) ListHunts(ctx context.Context) ([]domain.Hunt, error) {
	var models []huntModel
	if err := s.db.NewSelect().Model(&models).Order("id ASC").Scan(ctx); err != nil {
		return nil, translate("list hunts", err, nil)
	}
	out := make([]domain.Hunt, len(models))
	for i, m := range models {
		out[i] = m.toDomain()
	}
	return out, nil
}

func (s *Store) UpdateHunt(ctx context.Context, hunt *domain.Hunt) error {
	res, err := s.db.NewUpdate().Model(newHuntModel(*hunt)).WherePK().ExcludeColumn("created_at").Exec(ctx)
	return affected("update hunt", res, err, domain.ErrHuntNotFound)
}

func (s *Store) DeleteHunt(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*huntModel)(nil)).Where("id = ?", id).Exec(ctx)
	return affected("delete hunt", res, err, domain.ErrHuntNotFound)
}

func (s *Store) AddOrganizer(ctx context.Context, huntID, userID int64) error {
	_, err := s.db.NewInsert().Model(&organizerModel{HuntID: huntID, UserID: userID}).Exec(ctx)
	return translate("add organizer", err, domain.ErrUserNotFound)
}

func (s *Store) IsOrganizer(ctx context.Context, huntID, userID int64) (bool, error) {
	ok, err := s.db.NewSelect().Model((*organizerModel)(nil)).
		Where("hunt_id = ? AND user_id = ?", huntID, userID).
		Exists(ctx)
	if err != nil {
		return false, translate("is organizer", err, nil)
	}
	return ok, nil
}

func (s *Store) CreatePuzzle(ctx context.Context, puzzle *domain.Puzzle, responses []domain.GuessResponse) error {
	m := newPuzzleModel(*puzzle)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(m).Returning("id").Exec(ctx); err != nil {
			return translate("create puzzle", err, domain.ErrHuntNotFound)
		}
		return insertResponses(ctx, tx, m.ID, responses)
	})
	if err != nil {
		return err
	}
	puzzle.ID = m.ID
	return nil
}

// UpdatePuzzle rewrites the puzzle row and swaps its responses in one transaction.
func (s *Store) UpdatePuzzle(ctx context.Context, puzzle *domain.Puzzle, responses []domain.GuessResponse) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model(newPuzzleModel(*puzzle)).
			WherePK().
			Where("hunt_id = ?", puzzle.HuntID).
			Exec(ctx)
		if err := affected("update puzzle", res, err, domain.ErrPuzzleNotFound); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*guessResponseModel)(nil)).Where("puzzle_id = ?", puzzle.ID).Exec(ctx); err != nil {
			return translate("clear guess responses", err, nil)
		}
		return insertResponses(ctx, tx, puzzle.ID, responses)
	})
}

func insertResponses(ctx context.Context, tx bun.Tx, puzzleID int64, responses []domain.GuessResponse) error {
	if len(responses) == 0 {
		return nil
	}
	models := make([]guessResponseModel, len(responses))
	for i, gr := range responses {
		models[i] = guessResponseModel{PuzzleID: puzzleID, Guess: gr.Guess, Response: gr.Response}
	}
	if _, err := tx.NewInsert().Model(&models).Exec(ctx); err != nil {
		return translate("insert guess responses", err, nil)
	}
	return nil
}

func (s *Store) GetPuzzle(ctx context.Context, huntID, puzzleID int64) (domain.Puzzle, error) {
	var m puzzleModel
	err := s.db.NewSelect().Model(&m).Where("id = ? AND hunt_id = ?", puzzleID, huntID).Scan(ctx)
	if err != nil {
		return domain.Puzzle{}, translate("get puzzle", err, domain.ErrPuzzleNotFound)
	}
	return m.toDomain(), nil
}

func (s *Store) ListGuessResponses(ctx context.Context, puzzleID int64) ([]domain.GuessResponse, error) {
	var models []guessResponseModel
	if err := s.db.NewSelect().Model(&models).Where("puzzle_id = ?", puzzleID).Order("id ASC").Scan(ctx); err != nil {
		return nil, translate("list guess responses", err, nil)
	}
	out := make([]domain.GuessResponse, len(models))
	for i, m := range models {
		out[i] = m.toDomain()
	}
	return out, nil
}

func (s *Store) DeletePuzzle(ctx context.Context, huntID, puzzleID int64) error {
	res, err := s.db.NewDelete().Model((*puzzleModel)(nil)).
		Where("id = ? AND hunt_id = ?", puzzleID, huntID).
		Exec(ctx)
	return affected("delete puzzle", res, err, domain.ErrPuzzleNotFound)
}

func (s *Store) CreateTeam(ctx context.Context, team *domain.Team, founderID int64) error {
	m := &teamModel{HuntID: team.HuntID, Name: team.Name, CreatedAt: team.CreatedAt}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(m).Returning("id").Exec(ctx); err != nil {
			return translate("create team", err, domain.ErrHuntNotFound)
		}
		member := &teamMemberModel{TeamID: m.ID, HuntID: m.HuntID, UserID: founderID}
		if _, err := tx.NewInsert().Model(member).Exec(ctx); err != nil {
			return translate("add founder", err, domain.ErrUserNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	team.ID = m.ID
	team.Members = []int64{founderID}
	team.InvitedMembers = []int64{}
	return nil
}

func (s *Store) GetTeam(ctx context.Context, id int64) (domain.Team, error) {
	var m teamModel
	if err := s.db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Team{}, translate("get team", err, domain.ErrTeamNotFound)
	}
	teams, err := s.withMembers(ctx, []teamModel{m})
	if err != nil {
		return domain.Team{}, err
	}
	return teams[0], nil
}

func (s *Store) TeamForUser(ctx context.Context, huntID, userID int64) (domain.Team, error) {
	var m teamModel
	err := s.db.NewSelect().Model(&m).
		Join("JOIN team_members AS tm ON tm.team_id = t.id").
		Where("tm.hunt_id = ? AND tm.user_id = ?", huntID, userID).
		Scan(ctx)
	if err != nil {
		return domain.Team{}, translate("team for user", err, domain.ErrTeamNotFound)
	}
	teams, err := s.withMembers(ctx, []teamModel{m})
	if err != nil {
		return domain.Team{}, err
	}
	return teams[0], nil
}

func (s *Store) ListTeams(ctx context.Context, huntID int64) ([]domain.Team, error) {
	var models []teamModel
	if err := s.db.NewSelect().Model(&models).Where("hunt_id = ?", huntID).Order("name ASC").Scan(ctx); err != nil {
		return nil, translate("list teams", err, nil)
	}
	return s.withMembers(ctx, models)
}

func (s *Store) InvitingTeams(ctx context.Context, huntID, userID int64) ([]domain.Team, error) {
	var models []teamModel
	err := s.db.NewSelect().Model(&models).
		Join("JOIN team_invites AS ti ON ti.team_id = t.id").
		Where("t.hunt_id = ? AND ti.user_id = ?", huntID, userID).
		Order("t.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, translate("inviting teams", err, nil)
	}
	return s.withMembers(ctx, models)
}

// withMembers loads memberships and invitations for a batch of teams.
func (s *Store) withMembers(ctx context.Context, models []teamModel) ([]domain.Team, error) {
	out := make([]domain.Team, len(models))
	if len(models) == 0 {
		return out, nil
	}
	ids := make([]int64, len(models))
	index := make(map[int64]int, len(models))
	for i, m := range models {
		ids[i] = m.ID
		index[m.ID] = i
		out[i] = domain.Team{
			ID:             m.ID,
			HuntID:         m.HuntID,
			Name:           m.Name,
			Members:        []int64{},
			InvitedMembers: []int64{},
			CreatedAt:      m.CreatedAt,
		}
	}

	var members []teamMemberModel
	if err := s.db.NewSelect().Model(&members).Where("team_id IN (?)", bun.In(ids)).Order("user_id ASC").Scan(ctx); err != nil {
		return nil, translate("load members", err, nil)
	}
	for _, m := range members {
		t := &out[index[m.TeamID]]
		t.Members = append(t.Members, m.UserID)
	}

	var invites []teamInviteModel
	if err := s.db.NewSelect().Model(&invites).Where("team_id IN (?)", bun.In(ids)).Order("user_id ASC").Scan(ctx); err != nil {
		return nil, translate("load invites", err, nil)
	}
	for _, inv := range invites {
		t := &out[index[inv.TeamID]]
		t.InvitedMembers = append(t.InvitedMembers, inv.UserID)
	}
	return out, nil
}

func (s *Store) AddInvite(ctx context.Context, teamID, userID int64) error {
	_, err := s.db.NewInsert().Model(&teamInviteModel{TeamID: teamID, UserID: userID}).Exec(ctx)
	return translate("add invite", err, domain.ErrUserNotFound)
}

// AcceptInvite consumes the invitation and inserts the membership together.
// The team row lock serializes accepts, so the member count read below holds
// until commit. The (hunt_id, user_id) key rejects a user who joined another
// team meanwhile.
func (s *Store) AcceptInvite(ctx context.Context, teamID, userID int64, memberLimit int) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var team teamModel
		if err := tx.NewSelect().Model(&team).Where("id = ?", teamID).For("UPDATE").Scan(ctx); err != nil {
			return translate("lock team", err, domain.ErrTeamNotFound)
		}
		if memberLimit > 0 {
			members, err := tx.NewSelect().Model((*teamMemberModel)(nil)).Where("team_id = ?", teamID).Count(ctx)
			if err != nil {
				return translate("count members", err, nil)
			}
			if members >= memberLimit {
				return domain.ErrTeamFull
			}
		}
		res, err := tx.NewDelete().Model((*teamInviteModel)(nil)).
			Where("team_id = ? AND user_id = ?", teamID, userID).
			Exec(ctx)
		if err := affected("consume invite", res, err, domain.ErrNotInvited); err != nil {
			return err
		}
		member := &teamMemberModel{TeamID: teamID, HuntID: team.HuntID, UserID: userID}
		if _, err := tx.NewInsert().Model(member).Exec(ctx); err != nil {
			return translate("add member", err, domain.ErrUserNotFound)
		}
		return nil
	})
}

func (s *Store) DeleteTeam(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*teamModel)(nil)).Where("id = ?", id).Exec(ctx)
	return affected("delete team", res, err, domain.ErrTeamNotFound)
}

// CreateGuess reports domain.ErrAlreadySolved when the partial unique index
// on correct guesses rejects the row.
func (s *Store) CreateGuess(ctx context.Context, guess *domain.Guess) error {
	m := &guessModel{
		TeamID:        guess.TeamID,
		PuzzleID:      guess.PuzzleID,
		UserID:        guess.UserID,
		Guess:         guess.Guess,
		Correct:       guess.Correct,
		Response:      guess.Response,
		CountsAsGuess: guess.CountsAsGuess,
		Time:          guess.Time,
	}
	if _, err := s.db.NewInsert().Model(m).Returning("id").Exec(ctx); err != nil {
		return translate("create guess", err, domain.ErrPuzzleNotFound)
	}
	guess.ID = m.ID
	return nil
}

func (s *Store) ListGuesses(ctx context.Context, filter app.GuessFilter) ([]domain.Guess, error) {
	var models []guessModel
	q := s.db.NewSelect().Model(&models).Order("time ASC", "id ASC")
	if filter.TeamID != 0 {
		q = q.Where("team_id = ?", filter.TeamID)
	}
	if filter.PuzzleID != 0 {
		q = q.Where("puzzle_id = ?", filter.PuzzleID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, translate("list guesses", err, nil)
	}
	out := make([]domain.Guess, len(models))
	for i, m := range models {
		out[i] = m.toDomain()
	}
	return out, nil
}

func (s *Store) CountScoredGuesses(ctx context.Context, teamID, puzzleID int64) (int, error) {
	n, err := s.db.NewSelect().Model((*guessModel)(nil)).
		Where("team_id = ? AND puzzle_id = ? AND counts_as_guess", teamID, puzzleID).
		Count(ctx)
	if err != nil {
		return 0, translate("count scored guesses", err, nil)
	}
	return n, nil
}

func (s *Store) HasGuessed(ctx context.Context, teamID, puzzleID int64, guess string) (bool, error) {
	ok, err := s.db.NewSelect().Model((*guessModel)(nil)).
		Where("team_id = ? AND puzzle_id = ? AND guess = ?", teamID, puzzleID, guess).
		Exists(ctx)
	if err != nil {
		return false, translate("has guessed", err, nil)
	}
	return ok, nil
}

func (s *Store) IsSolved(ctx context.Context, teamID, puzzleID int64) (bool, error) {
	ok, err := s.db.NewSelect().Model((*guessModel)(nil)).
		Where("team_id = ? AND puzzle_id = ? AND correct", teamID, puzzleID).
		Exists(ctx)
	if err != nil {
		return false, translate("is solved", err, nil)
	}
	return ok, nil
}

func (s *Store) CreateGrant(ctx context.Context, grant *domain.ExtraGuessGrant) error {
	m := &grantModel{TeamID: grant.TeamID, PuzzleID: grant.PuzzleID, ExtraGuesses: grant.ExtraGuesses}
	if _, err := s.db.NewInsert().Model(m).Returning("id").Exec(ctx); err != nil {
		return translate("create grant", err, domain.ErrTeamNotFound)
	}
	grant.ID = m.ID
	return nil
}

func (s *Store) UpdateGrant(ctx context.Context, grant *domain.ExtraGuessGrant) error {
	m := &grantModel{}
	err := s.db.NewUpdate().Model(m).
		Set("extra_guesses = ?", grant.ExtraGuesses).
		Where("team_id = ? AND puzzle_id = ?", grant.TeamID, grant.PuzzleID).
		Returning("id").
		Scan(ctx)
	if err != nil {
		return translate("update grant", err, domain.ErrGrantNotFound)
	}
	grant.ID = m.ID
	return nil
}

func (s *Store) GetGrant(ctx context.Context, teamID, puzzleID int64) (domain.ExtraGuessGrant, error) {
	var m grantModel
	err := s.db.NewSelect().Model(&m).Where("team_id = ? AND puzzle_id = ?", teamID, puzzleID).Scan(ctx)
	if err != nil {
		return domain.ExtraGuessGrant{}, translate("get grant", err, domain.ErrGrantNotFound)
	}
	return m.toDomain(), nil
}

func affected(op string, res sql.Result, err error, missing error) error {
	if err != nil {
		return translate(op, err, nil)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return missing
	}
	return nil
}
