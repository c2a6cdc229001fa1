package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"classlive-session-service/internal/app"
	"classlive-session-service/internal/domain"
	pginfra "classlive-session-service/internal/infra/postgres"
	pgmigrations "classlive-session-service/internal/infra/postgres/migrations"
	redisinfra "classlive-session-service/internal/infra/redis"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestLiveSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuiz(t, ctx, pgURL, sampleQuiz())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	quizRepo := redisinfra.NewQuizRepository(redisClient, pginfra.NewQuizLoader(pool), 5*time.Minute)
	registry := redisinfra.NewSessionRegistry(redisClient, 5*time.Minute)
	results := pginfra.NewResultStore(pool)
	service := app.NewSessionService(registry, quizRepo, results, app.ServiceConfig{
		Session:   app.SessionConfig{BasePoints: 1000, AllowLateJoin: true},
		Retention: time.Minute,
	})

	summary, err := service.Create(ctx, "quiz-1", "host-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	code := summary.Code

	alice, err := service.Join(ctx, code, "Alice")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	bob, err := service.Join(ctx, code, "Bob")
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := service.Start(ctx, code, "host-1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	result, err := service.SubmitAnswer(ctx, code, bob, 0, 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Correct || result.Awarded == 0 {
		t.Fatalf("expected bob's correct answer scored, got %+v", result)
	}
	if _, err := service.SubmitAnswer(ctx, code, alice, 0, 0); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := service.End(ctx, code, "host-1"); err != nil {
		t.Fatalf("end: %v", err)
	}

	// Final standings land in Postgres off the session goroutine.
	deadline := time.Now().Add(10 * time.Second)
	for {
		var raw []byte
		err := pool.QueryRow(ctx, `SELECT leaderboard FROM session_results WHERE code=$1`, code).Scan(&raw)
		if err == nil {
			var lb domain.Leaderboard
			if err := json.Unmarshal(raw, &lb); err != nil {
				t.Fatalf("unmarshal stored leaderboard: %v", err)
			}
			if len(lb.Entries) != 2 || lb.Entries[0].DisplayName != "Bob" {
				t.Fatalf("expected bob leading stored standings, got %+v", lb.Entries)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("result row never appeared: %v", err)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
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
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
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

func seedQuiz(t *testing.T, ctx context.Context, dsn string, quiz domain.Quiz) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(quiz)
	if err != nil {
		t.Fatalf("marshal quiz: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO quizzes (id, data) VALUES (? , ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, quiz.ID, string(data)); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "Arithmetic Warmup",
		Questions: []domain.Question{
			{
				Text:               "What is 2 + 2?",
				Options:            []string{"3", "4", "5"},
				CorrectOptionIndex: 1,
				TimeLimitSeconds:   30,
			},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
