package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"classlive-session-service/internal/app"
	"classlive-session-service/internal/domain"
	"classlive-session-service/internal/infra/memory"
)

func newTestService(results *memory.ResultStore) *app.SessionService {
	registry := memory.NewSessionRegistry()
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"biology-101": testQuiz(),
	}), 5*time.Minute)
	return app.NewSessionService(registry, quizRepo, results, app.ServiceConfig{
		Session: app.SessionConfig{
			BasePoints:    1000,
			AllowLateJoin: true,
		},
		Retention: time.Minute,
	})
}

func TestCreateRejectsUnknownQuiz(t *testing.T) {
	service := newTestService(memory.NewResultStore())
	if _, err := service.Create(context.Background(), "nope", "host-1"); err != domain.ErrQuizNotFound {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestCreateGeneratesUniqueCodesConcurrently(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewResultStore())

	const sessions = 50
	var (
		mu    sync.Mutex
		codes = make(map[string]struct{}, sessions)
		wg    sync.WaitGroup
	)
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			summary, err := service.Create(ctx, "biology-101", "host-1")
			if err != nil {
				t.Errorf("create failed: %v", err)
				return
			}
			mu.Lock()
			codes[summary.Code] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(codes) != sessions {
		t.Fatalf("expected %d unique codes, got %d", sessions, len(codes))
	}
}

func TestJoinNormalizesCode(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewResultStore())

	summary, err := service.Create(ctx, "biology-101", "host-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Humans type codes lowercased and with dashes; both must resolve.
	sloppy := summary.Code[:3] + "-" + summary.Code[3:]
	if _, err := service.Join(ctx, sloppy, "Alice"); err != nil {
		t.Fatalf("join with dashed code failed: %v", err)
	}

	if _, err := service.Join(ctx, "ZZZZZZ", "Bob"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestServiceAnswerFlow(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewResultStore())

	summary, err := service.Create(ctx, "biology-101", "host-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	code := summary.Code

	if err := service.Next(ctx, code, "host-1"); err != domain.ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition for next in lobby, got %v", err)
	}

	alice, err := service.Join(ctx, code, "Alice")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}

	if err := service.Start(ctx, code, "host-1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	result, err := service.SubmitAnswer(ctx, code, alice, 0, 1)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !result.Correct || result.Awarded == 0 {
		t.Fatalf("expected correct scored answer, got %+v", result)
	}

	snap, err := service.Snapshot(ctx, code, alice)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if snap.State != domain.StateQuestionReveal {
		t.Fatalf("expected reveal after sole participant answered, got %v", snap.State)
	}
	if len(snap.Leaderboard.Entries) != 1 || snap.Leaderboard.Entries[0].Score != result.TotalScore {
		t.Fatalf("unexpected leaderboard %+v", snap.Leaderboard.Entries)
	}
}

func TestResultPersistedOnEnd(t *testing.T) {
	ctx := context.Background()
	results := memory.NewResultStore()
	service := newTestService(results)

	summary, err := service.Create(ctx, "biology-101", "host-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := service.Join(ctx, summary.Code, "Alice"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if err := service.End(ctx, summary.Code, "host-1"); err != nil {
		t.Fatalf("end failed: %v", err)
	}

	// Persistence runs off the session goroutine; poll briefly.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if result, ok := results.GetResult(summary.Code); ok {
			if result.QuizID != "biology-101" || len(result.Leaderboard.Entries) != 1 {
				t.Fatalf("unexpected stored result %+v", result)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("result never persisted")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEndedSessionStillQueryableUntilRetention(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewResultStore())

	summary, err := service.Create(ctx, "biology-101", "host-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := service.End(ctx, summary.Code, "host-1"); err != nil {
		t.Fatalf("end failed: %v", err)
	}

	snap, err := service.Snapshot(ctx, summary.Code, "")
	if err != nil {
		t.Fatalf("expected ended session to stay queryable, got %v", err)
	}
	if snap.State != domain.StateEnded {
		t.Fatalf("expected ended state, got %v", snap.State)
	}
}
