package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun/driver/pgdriver"

	"hunt-service/internal/domain"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// uniqueConstraints maps constraint and index names from the schema to the
// conflict they represent.
var uniqueConstraints = map[string]error{
	"users_username_key":                  domain.ErrUsernameTaken,
	"hunts_slug_key":                      domain.ErrHuntSlugTaken,
	"hunt_organizers_pkey":                domain.ErrAlreadyOrganizer,
	"guess_responses_puzzle_guess_key":    domain.ErrDuplicateGuessResponse,
	"teams_hunt_name_key":                 domain.ErrTeamNameTaken,
	"team_members_pkey":                   domain.ErrAlreadyMember,
	"team_members_hunt_user_key":          domain.ErrAlreadyOnTeam,
	"team_invites_pkey":                   domain.ErrAlreadyInvited,
	"guesses_one_correct_per_team_puzzle": domain.ErrAlreadySolved,
	"extra_guess_grants_team_puzzle_key":  domain.ErrDuplicateGrant,
}

// translate turns driver errors into domain errors. missing is returned for
// sql.ErrNoRows and foreign key violations; pass nil to keep those wrapped.
func translate(op string, err error, missing error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) && missing != nil {
		return missing
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		switch pgErr.Field('C') {
		case codeUniqueViolation:
			if mapped, ok := uniqueConstraints[pgErr.Field('n')]; ok {
				return mapped
			}
		case codeForeignKeyViolation:
			if missing != nil {
				return missing
			}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
