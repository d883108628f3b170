package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"maqamlab/internal/config"
	"maqamlab/internal/games"
)

// newTestApp builds an App against a stub archive server. The view is the
// real tview Root; its Set* methods only mutate primitives, so no terminal
// is needed as long as Run is never called.
func newTestApp(t *testing.T, handler http.Handler) *App {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Config{
		APIBaseURL:     srv.URL,
		DataDir:        t.TempDir(),
		RequestTimeout: 2 * time.Second,
		FeedbackDelay:  time.Millisecond,
		ExamDuration:   time.Minute,
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(a.Close)
	return a
}

func stubArchive() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/demo-token", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"eyJhbGciOiJub25lIn0.eyJzdWIiOiJkZW1vIiwicm9sZSI6InVzZXIifQ."}`))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"maqamet_count":3,"contributions_count":1}`))
	})
	mux.HandleFunc("/knowledge/maqam", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":1,"name":{"en":"Rast","ar":"راست"},"emotion":{"en":"pride"}},
			{"id":2,"name_en":"Saba","emotion_ar":"حزن"}
		]`))
	})
	return mux
}

func TestNewPersistsDemoCredential(t *testing.T) {
	a := newTestApp(t, stubArchive())

	a.OnOpenDashboard()

	if tok := a.tokens.Get(); tok == "" {
		t.Fatalf("dashboard load should have bootstrapped a credential")
	}
	claims, err := a.tokens.Claims()
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "demo" || claims.Role != "user" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestLoadArchiveNormalizesBothShapes(t *testing.T) {
	a := newTestApp(t, stubArchive())

	a.loadArchive("", "")

	if len(a.maqamat) != 2 {
		t.Fatalf("expected 2 maqamat, got %d", len(a.maqamat))
	}
	if a.maqamat[0].Name.EN != "Rast" || a.maqamat[1].Name.EN != "Saba" {
		t.Fatalf("names not normalized: %+v", a.maqamat)
	}
}

func TestLoadArchiveSurvivesServerError(t *testing.T) {
	a := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/demo-token" {
			w.Write([]byte(`{"access_token":"tok"}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"archive down"}`))
	}))

	// Must not panic or wedge; the archive simply renders empty.
	a.loadArchive("", "")
	if len(a.maqamat) != 0 {
		t.Fatalf("expected empty archive after server error, got %d", len(a.maqamat))
	}
}

func TestMCQCatalogAlwaysCarriesBonusQuestion(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/demo-token", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok"}`))
	})
	mux.HandleFunc("/learning/quiz/mcq/start", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"questions":[]}`))
	})
	a := newTestApp(t, mux)

	s, err := a.mcqCatalog(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	// An empty server catalog still plays a one-question round: the local
	// seasonal question.
	if s.Total() != 1 {
		t.Fatalf("expected the seasonal bonus alone, got %d items", s.Total())
	}
	item, err := s.Current()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := item.(games.MCQItem); !ok {
		t.Fatalf("expected an MCQ item, got %T", item)
	}
}

func TestClueSkipHoldsThePuzzleWhileRevealing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/demo-token", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok"}`))
	})
	mux.HandleFunc("/learning/clue-game/all", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"puzzles":[
			{"maqam_id":1,"clues":["bright","festive"],"answer":"Rast"},
			{"maqam_id":2,"clues":["grief"],"answer":"Saba"}
		]}`))
	})
	a := newTestApp(t, mux)

	a.OnStartGame("clue")
	s := a.engines["clue"].Current()
	if s == nil {
		t.Fatal("clue session did not start")
	}

	a.OnGameSkip()

	// The reveal shows the answer first; the skip itself runs only after
	// the feedback delay, so the session has not stepped yet.
	if s.Index() != 0 || s.State() != games.StatePresenting {
		t.Fatalf("skip advanced immediately: index=%d state=%v", s.Index(), s.State())
	}
}

func TestIsAdminGatesOnRole(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/demo-token", func(w http.ResponseWriter, r *http.Request) {
		// {"sub":"curator","role":"admin"}
		w.Write([]byte(`{"access_token":"eyJhbGciOiJub25lIn0.eyJzdWIiOiJjdXJhdG9yIiwicm9sZSI6ImFkbWluIn0."}`))
	})
	a := newTestApp(t, mux)

	if _, err := a.tokens.Ensure(t.Context()); err != nil {
		t.Fatal(err)
	}
	if !a.isAdmin() {
		t.Fatalf("admin role should unlock curator tools")
	}
}
