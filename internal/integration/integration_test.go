package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun/migrate"

	"hunt-service/internal/app"
	"hunt-service/internal/domain"
	"hunt-service/internal/infra/postgres"
	pgmigrations "hunt-service/internal/infra/postgres/migrations"
	infraredis "hunt-service/internal/infra/redis"
)

type stack struct {
	ctx   context.Context
	svc   *app.HuntService
	store *postgres.Store
	pool  *pgxpool.Pool
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	t.Cleanup(pgCleanup)
	redisURL, redisCleanup := startRedis(t, ctx)
	t.Cleanup(redisCleanup)

	db := postgres.Open(pgURL)
	t.Cleanup(func() { _ = db.Close() })
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err := migrator.Migrate(ctx)
	require.NoError(t, err)

	pool, err := pgxpool.Connect(ctx, pgURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	readModel := postgres.NewReadModel(pool)

	redisClient, err := redisClientFromURL(redisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisClient.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := postgres.NewStore(db)
	feeds := infraredis.NewFeedStore(redisClient, logger)
	t.Cleanup(func() { _ = feeds.Close() })
	svc := app.NewHuntService(
		store,
		readModel,
		infraredis.NewPuzzleCatalog(redisClient, readModel, 5*time.Minute),
		feeds,
		app.WithLogger(logger),
	)
	return &stack{ctx: ctx, svc: svc, store: store, pool: pool}
}

func (s *stack) user(t *testing.T, name string) domain.Viewer {
	t.Helper()
	u, err := s.svc.CreateUser(s.ctx, domain.User{Username: name})
	require.NoError(t, err)
	return domain.Viewer{UserID: u.ID}
}

func TestHuntEndToEnd(t *testing.T) {
	s := newStack(t)
	org := s.user(t, "organizer")
	alice := s.user(t, "alice")
	bob := s.user(t, "bob")

	hunt := domain.NewHunt("Integration Hunt", "integration")
	hunt.GuessLimit = 3
	hunt.MemberLimit = 2
	hunt, err := s.svc.CreateHunt(s.ctx, org, hunt)
	require.NoError(t, err)
	ref := app.HuntRef{ID: hunt.ID, Token: domain.SlugToken(hunt.Slug)}

	_, err = s.svc.CreateHunt(s.ctx, org, domain.NewHunt("Copy", "integration"))
	require.ErrorIs(t, err, domain.ErrHuntSlugTaken)

	a := domain.NewPuzzle(hunt.ID, "Alpha", "alpha", "Alpha Centauri")
	a.Points = 2
	a.ProgressPoints = 1
	a, err = s.svc.CreatePuzzle(s.ctx, org, hunt.ID, a, []domain.GuessResponse{{Guess: "proxima", Response: "Close, keep going"}})
	require.NoError(t, err)
	b := domain.NewPuzzle(hunt.ID, "Bravo", "bravo", "Betelgeuse")
	b.ProgressThreshold = 1
	b.Order = 1
	b, err = s.svc.CreatePuzzle(s.ctx, org, hunt.ID, b, nil)
	require.NoError(t, err)

	team, err := s.svc.CreateTeam(s.ctx, alice, ref, "Stargazers")
	require.NoError(t, err)
	_, err = s.svc.CreateTeam(s.ctx, alice, ref, "Second")
	require.ErrorIs(t, err, domain.ErrAlreadyOnTeam)
	_, err = s.svc.InviteMember(s.ctx, alice, ref, "bob")
	require.NoError(t, err)
	_, err = s.svc.AcceptInvite(s.ctx, bob, ref, team.ID)
	require.NoError(t, err)

	// Canned responses are free; wrong guesses count.
	res, err := s.svc.SubmitGuess(s.ctx, alice, ref, a.ID, "Proxima!")
	require.NoError(t, err)
	require.Equal(t, "Close, keep going", res.Guess.Response)
	require.Equal(t, 3, res.Allowance.Remaining)
	res, err = s.svc.SubmitGuess(s.ctx, bob, ref, a.ID, "sirius")
	require.NoError(t, err)
	require.Equal(t, 2, res.Allowance.Remaining)
	_, err = s.svc.SubmitGuess(s.ctx, alice, ref, a.ID, "SIRIUS")
	require.ErrorIs(t, err, domain.ErrDuplicateGuess)

	_, err = s.svc.ViewPuzzle(s.ctx, alice, ref, b.ID)
	require.ErrorIs(t, err, domain.ErrPuzzleNotFound)

	// Solves reach feed subscribers through Redis pub/sub.
	updates, unsubscribe, err := s.svc.SubscribeLeaderboard(s.ctx, org, ref)
	require.NoError(t, err)
	defer unsubscribe()
	initial := <-updates
	require.Equal(t, 0, initial.Entries[0].Score)

	// Both members race the correct answer; the partial unique index keeps one.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, v := range []domain.Viewer{alice, bob} {
		wg.Add(1)
		go func(i int, v domain.Viewer) {
			defer wg.Done()
			_, errs[i] = s.svc.SubmitGuess(s.ctx, v, ref, a.ID, "alpha centauri")
		}(i, v)
	}
	wg.Wait()
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, domain.ErrAlreadySolved)
	}
	require.Equal(t, 1, succeeded)

	var correctRows int
	require.NoError(t, s.pool.QueryRow(s.ctx,
		`SELECT COUNT(*) FROM guesses WHERE team_id = $1 AND puzzle_id = $2 AND correct`, team.ID, a.ID).Scan(&correctRows))
	require.Equal(t, 1, correctRows)

	select {
	case lb := <-updates:
		require.Equal(t, 2, lb.Entries[0].Score)
	case <-time.After(5 * time.Second):
		t.Fatal("no leaderboard update after the solve")
	}

	progress, err := s.svc.TeamProgress(s.ctx, team)
	require.NoError(t, err)
	require.Equal(t, 1, progress)
	view, err := s.svc.ViewPuzzle(s.ctx, alice, ref, b.ID)
	require.NoError(t, err)
	require.Empty(t, view.Puzzle.Answer)

	lb, err := s.svc.Leaderboard(s.ctx, alice, ref)
	require.NoError(t, err)
	require.Len(t, lb.Entries, 1)
	require.Equal(t, 2, lb.Entries[0].Score)
	require.Equal(t, 1, lb.Entries[0].SolveCount)

	huntView, err := s.svc.ViewHunt(s.ctx, alice, ref)
	require.NoError(t, err)
	require.Len(t, huntView.Puzzles, 2)
	require.True(t, huntView.Puzzles[0].Solved)
	require.Equal(t, 1, huntView.Puzzles[0].SolveCount)
	require.Equal(t, 3, huntView.Puzzles[0].GuessCount)

	// Puzzle edits invalidate the redis catalog.
	b.Name = "Bravo Renamed"
	_, err = s.svc.UpdatePuzzle(s.ctx, org, hunt.ID, b, nil)
	require.NoError(t, err)
	huntView, err = s.svc.ViewHunt(s.ctx, alice, ref)
	require.NoError(t, err)
	require.Equal(t, "Bravo Renamed", huntView.Puzzles[1].Name)

	// Grants extend the allowance on B.
	_, err = s.svc.GrantExtraGuesses(s.ctx, org, hunt.ID, domain.ExtraGuessGrant{TeamID: team.ID, PuzzleID: b.ID, ExtraGuesses: 2})
	require.NoError(t, err)
	_, err = s.svc.GrantExtraGuesses(s.ctx, org, hunt.ID, domain.ExtraGuessGrant{TeamID: team.ID, PuzzleID: b.ID, ExtraGuesses: 1})
	require.ErrorIs(t, err, domain.ErrDuplicateGrant)
	allowance, err := s.svc.GuessAllowance(s.ctx, alice, ref, b.ID)
	require.NoError(t, err)
	require.Equal(t, 5, allowance.Remaining)

	// Deleting a member keeps the team's solves.
	require.NoError(t, s.svc.DeleteUser(s.ctx, bob, bob.UserID))
	progress, err = s.svc.TeamProgress(s.ctx, team)
	require.NoError(t, err)
	require.Equal(t, 1, progress)
	guesses, err := s.svc.PuzzleLog(s.ctx, org, hunt.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, guesses, 3)

	require.NoError(t, s.svc.DeleteHunt(s.ctx, org, hunt.ID))
	_, err = s.svc.ViewHunt(s.ctx, alice, ref)
	require.ErrorIs(t, err, domain.ErrHuntNotFound)
}

func TestConcurrentAcceptsRespectMemberLimit(t *testing.T) {
	s := newStack(t)
	org := s.user(t, "organizer")
	alice := s.user(t, "alice")

	hunt := domain.NewHunt("Crowded Hunt", "crowded")
	hunt.MemberLimit = 2
	hunt, err := s.svc.CreateHunt(s.ctx, org, hunt)
	require.NoError(t, err)
	ref := app.HuntRef{ID: hunt.ID, Token: domain.SlugToken(hunt.Slug)}
	team, err := s.svc.CreateTeam(s.ctx, alice, ref, "Only Two")
	require.NoError(t, err)

	invited := make([]domain.Viewer, 4)
	for i := range invited {
		name := fmt.Sprintf("joiner%d", i)
		invited[i] = s.user(t, name)
		_, err := s.svc.InviteMember(s.ctx, alice, ref, name)
		require.NoError(t, err)
	}

	// Straight to the store so every accept reaches the locked section.
	var wg sync.WaitGroup
	errs := make([]error, len(invited))
	for i, v := range invited {
		wg.Add(1)
		go func(i int, v domain.Viewer) {
			defer wg.Done()
			errs[i] = s.store.AcceptInvite(s.ctx, team.ID, v.UserID, hunt.MemberLimit)
		}(i, v)
	}
	wg.Wait()
	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		require.ErrorIs(t, err, domain.ErrTeamFull)
	}
	require.Equal(t, 1, accepted)

	var members int
	require.NoError(t, s.pool.QueryRow(s.ctx,
		`SELECT COUNT(*) FROM team_members WHERE team_id = $1`, team.ID).Scan(&members))
	require.Equal(t, 2, members)
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "hunt", "POSTGRES_PASSWORD": "huntpass", "POSTGRES_DB": "huntdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://hunt:huntpass@%s:%s/huntdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

