// Package app wires the archive client together: configuration, telemetry,
// local state, the credential store, the API gateway, the game engines, and
// the terminal view. The view calls back into App through ui.Controller.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"maqamlab/internal/activity"
	"maqamlab/internal/api"
	"maqamlab/internal/auth"
	"maqamlab/internal/config"
	"maqamlab/internal/exam"
	"maqamlab/internal/games"
	"maqamlab/internal/knowledge"
	"maqamlab/internal/state"
	"maqamlab/internal/telemetry"
	"maqamlab/internal/ui"

	"github.com/google/uuid"
)

type App struct {
	cfg      config.Config
	logger   *telemetry.JSONLogger
	store    *state.SQLiteStore
	tokens   *auth.TokenStore
	client   *api.Client
	reporter *activity.Reporter
	view     ui.View

	sessionID string
	rng       *rand.Rand

	region     string
	maqamat    []knowledge.Maqam
	current    knowledge.Maqam
	flashcards []ui.FlashcardRow

	engines    map[string]*games.Engine
	variant    string
	arr        *games.Arrangement
	cluesShown int
	match      *games.MatchingGame
	matchSet   games.MatchingSet
	graded     bool
	lastScore  int
	runStart   time.Time

	exams    *exam.Engine
	examView ui.ExamState
}

func New(cfg config.Config) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	logPath := cfg.LogPath
	if logPath == "" {
		logPath = filepath.Join(cfg.DataDir, "maqamlab.log")
	}
	logger, err := telemetry.NewJSONLogger(logPath)
	if err != nil {
		return nil, err
	}

	store, err := state.NewSQLite(filepath.Join(cfg.DataDir, "state.db"))
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	if err := store.EnsureSchema(context.Background()); err != nil {
		_ = store.Close()
		_ = logger.Close()
		return nil, err
	}

	tokens, err := auth.NewTokenStore(context.Background(), auth.Options{
		Persist: store,
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.RequestTimeout,
		InfoLog: logger.Info,
		WarnLog: logger.Warn,
	})
	if err != nil {
		_ = store.Close()
		_ = logger.Close()
		return nil, err
	}

	client := api.NewClient(api.Options{
		BaseURL: cfg.APIBaseURL,
		Tokens:  tokens,
		Timeout: cfg.RequestTimeout,
		WarnLog: logger.Warn,
	})

	view := ui.New(ui.Options{ASCIIOnly: cfg.ASCIIOnly})

	a := &App{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		tokens:    tokens,
		client:    client,
		view:      view,
		sessionID: uuid.NewString(),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	a.reporter = activity.NewReporter(client, store, logger, cfg.RequestTimeout)
	a.engines = map[string]*games.Engine{
		"mcq":   games.NewEngine(a.mcqCatalog),
		"audio": games.NewEngine(a.audioCatalog),
		"clue":  games.NewEngine(a.clueCatalog),
		"order": games.NewEngine(a.orderCatalog),
	}
	a.exams = exam.NewEngine(exam.Options{
		Service:  client,
		Duration: cfg.ExamDuration,
		OnTick: func(remaining time.Duration) {
			a.view.QueueUpdate(func() { a.view.SetExamClock(remaining) })
		},
		OnExpire: func(res api.ExamResult, err error) {
			a.view.QueueUpdate(func() { a.finishExam(res, err, true) })
		},
	})
	view.SetController(a)
	return a, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("app.start", map[string]any{"session": a.sessionID, "api": a.cfg.APIBaseURL})
	go func() {
		<-ctx.Done()
		a.view.QueueUpdate(func() { a.view.Stop() })
	}()
	a.OnOpenDashboard()
	return a.view.Run()
}

func (a *App) Close() {
	a.exams.Abandon()
	a.reporter.Wait()
	_ = a.store.Close()
	a.logger.Info("app.stop", map[string]any{"session": a.sessionID})
	_ = a.logger.Close()
}

func (a *App) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.cfg.RequestTimeout+5*time.Second)
}

func (a *App) OnQuit() {
	a.view.Stop()
}

func (a *App) OnOpenDashboard() {
	ctx, cancel := a.ctx()
	defer cancel()

	s := ui.DashboardState{}
	if status, err := a.client.Status(ctx); err == nil {
		s.Online = true
		s.MaqamCount = status.MaqametCount
	} else {
		a.logger.Warn("status.unavailable", map[string]any{"error": err.Error()})
	}
	if claims, err := a.tokens.Claims(); err == nil {
		s.Role = claims.Role
		s.Subject = claims.Subject
	}
	if sum, err := a.store.GetSummary(ctx); err == nil {
		s.GameRuns = sum.GameRuns
		s.Completed = sum.Completed
		s.Correct = sum.Correct
		s.Answered = sum.Answered
	}
	a.view.SetDashboard(s)
	a.view.SetScreen(ui.ScreenDashboard)
}

func (a *App) OnOpenArchive() {
	a.loadArchive("", a.region)
}

func (a *App) OnSearchMaqam(query string) {
	a.loadArchive(strings.TrimSpace(query), a.region)
}

func (a *App) OnFilterRegion(region string) {
	a.region = region
	a.loadArchive("", region)
}

func (a *App) loadArchive(query, region string) {
	ctx, cancel := a.ctx()
	defer cancel()

	var (
		list []knowledge.Maqam
		err  error
	)
	if query != "" {
		list, err = a.client.SearchMaqamByName(ctx, query)
	} else {
		list, err = a.client.ListMaqamat(ctx, region)
	}
	if err != nil {
		a.logger.Warn("archive.load_failed", map[string]any{"error": err.Error()})
		a.view.FlashStatus("archive unavailable: " + err.Error())
		list = nil
	}
	a.maqamat = list

	st := ui.ArchiveState{Region: region, Query: query, CanEdit: a.isAdmin()}
	for _, m := range list {
		st.Rows = append(st.Rows, ui.MaqamRow{
			ID:      m.ID,
			Name:    m.Name.EN,
			Emotion: m.Emotion.EN,
			Rarity:  m.Rarity.EN,
		})
	}
	a.view.SetArchive(st)
	a.view.SetScreen(ui.ScreenArchive)
}

func (a *App) isAdmin() bool {
	claims, err := a.tokens.Claims()
	return err == nil && claims.Role == "admin"
}

func (a *App) OnSelectMaqam(id int64) {
	ctx, cancel := a.ctx()
	defer cancel()

	m, err := a.client.GetMaqam(ctx, id)
	if err != nil {
		a.view.FlashStatus("cannot load maqam: " + err.Error())
		return
	}
	a.current = m
	a.reporter.Report(id, "view_details")

	d := ui.MaqamDetail{
		ID:          m.ID,
		Name:        m.Name.EN,
		NameAR:      m.Name.AR,
		Description: m.Description.EN,
		Regions:     m.Regions.EN,
		Emotion:     m.Emotion.EN,
		Usage:       strings.Join(m.Usage.EN, ", "),
		Difficulty:  m.DifficultyLabel,
		Rarity:      m.Rarity.EN,
		Periods:     m.HistoricalPeriods.EN,
		Seasonal:    strings.Join(m.SeasonalUsage.EN, ", "),
		AudioCount:  len(m.AudioURLs),
		CanEdit:     a.isAdmin(),
	}
	for _, j := range m.Ajnas {
		d.Ajnas = append(d.Ajnas, ui.AjnasRow{Name: j.Name.EN, Notes: j.Notes.EN})
	}
	a.view.SetMaqamDetail(d)
	a.view.SetScreen(ui.ScreenMaqamDetail)
}

func (a *App) OnSaveMaqam(id int64, fields map[string]string) {
	if strings.TrimSpace(fields["name_en"]) == "" {
		a.view.FlashStatus("name is required")
		return
	}
	ctx, cancel := a.ctx()
	defer cancel()

	err := a.client.UpdateMaqam(ctx, id, api.MaqamUpdate{
		NameEN:        fields["name_en"],
		NameAR:        fields["name_ar"],
		DescriptionEN: fields["description_en"],
		DescriptionAR: fields["description_ar"],
	})
	if err != nil {
		a.view.FlashStatus("save failed: " + err.Error())
		return
	}
	a.view.FlashStatus("saved")
	a.OnSelectMaqam(id)
}

func (a *App) OnDeleteMaqam(id int64) {
	ctx, cancel := a.ctx()
	defer cancel()

	if err := a.client.DeleteMaqam(ctx, id); err != nil {
		a.view.FlashStatus("delete failed: " + err.Error())
		return
	}
	a.logger.Info("maqam.deleted", map[string]any{"id": id})
	a.view.FlashStatus("maqam deleted")
	a.OnOpenArchive()
}

func (a *App) OnOpenContribute(maqamID int64) {
	name := a.current.Name.EN
	if a.current.ID != maqamID {
		name = fmt.Sprintf("maqam %d", maqamID)
	}
	a.view.OpenContribute(maqamID, name)
	a.view.SetScreen(ui.ScreenContribute)
}

func (a *App) OnSubmitContribution(maqamID int64, ctype, title, details, source, audioName string, audio []byte) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(details) == "" {
		a.view.FlashStatus("title and details are required")
		return
	}
	if ctype == "audio_recording" && len(audio) == 0 {
		a.view.FlashStatus("an audio recording needs an audio file")
		return
	}
	ctx, cancel := a.ctx()
	defer cancel()

	payload := api.ContributionPayload{Title: title, Details: details, Source: source}
	if err := a.client.SubmitContribution(ctx, maqamID, ctype, payload, filepath.Base(audioName), audio); err != nil {
		a.view.FlashStatus("contribution failed: " + err.Error())
		return
	}
	a.logger.Info("contribution.submitted", map[string]any{"maqam_id": maqamID, "type": ctype})
	a.view.FlashStatus("thank you, contribution submitted for review")
	a.OnSelectMaqam(maqamID)
}

func (a *App) OnOpenProposeMaqam() {
	a.view.OpenPropose()
	a.view.SetScreen(ui.ScreenPropose)
}

func (a *App) OnProposeMaqam(fields map[string]string, audioName string, audio []byte) {
	if strings.TrimSpace(fields["name_en"]) == "" {
		a.view.FlashStatus("name is required")
		return
	}
	ctx, cancel := a.ctx()
	defer cancel()

	p := api.MaqamProposal{
		NameEN:        fields["name_en"],
		NameAR:        fields["name_ar"],
		DescriptionEN: fields["description_en"],
		EmotionEN:     fields["emotion_en"],
	}
	for _, r := range strings.Split(fields["regions"], ",") {
		if r = strings.TrimSpace(r); r != "" {
			p.Regions = append(p.Regions, r)
		}
	}
	p.Notes = strings.Fields(fields["notes"])

	if err := a.client.ProposeMaqam(ctx, p, filepath.Base(audioName), audio); err != nil {
		a.errFlash("proposal failed", err)
		return
	}
	a.logger.Info("maqam.proposed", map[string]any{"name": p.NameEN})
	a.view.FlashStatus("proposal submitted for curator review")
	a.OnOpenArchive()
}

func (a *App) OnOpenAnalysis() {
	a.view.SetAnalysis(ui.AnalysisState{})
	a.view.SetScreen(ui.ScreenAnalysis)
}

func (a *App) OnAnalyzeNotes(notes []string, mood string) {
	if len(notes) == 0 {
		a.view.FlashStatus("enter at least one note")
		return
	}
	ctx, cancel := a.ctx()
	defer cancel()

	res, err := a.client.AnalyzeNotes(ctx, notes, mood)
	if err != nil {
		a.view.FlashStatus("analysis failed: " + err.Error())
		return
	}
	a.view.SetAnalysis(analysisState(res.Candidates, ""))
}

func (a *App) OnAnalyzeAudio(fileName string) {
	if strings.TrimSpace(fileName) == "" {
		a.view.FlashStatus("enter an audio file path")
		return
	}
	data, err := os.ReadFile(fileName)
	if err != nil {
		a.view.FlashStatus("cannot read file: " + err.Error())
		return
	}
	ctx, cancel := a.ctx()
	defer cancel()

	res, err := a.client.AnalyzeAudio(ctx, filepath.Base(fileName), data)
	if err != nil {
		a.view.FlashStatus("analysis failed: " + err.Error())
		return
	}
	summary := ""
	if len(res.ExtractedNotes) > 0 {
		summary = "Extracted notes: " + strings.Join(res.ExtractedNotes, " ")
	}
	if res.Warning != "" {
		summary = strings.TrimSpace(summary + "\n" + res.Warning)
	}
	a.view.SetAnalysis(analysisState(res.Candidates, summary))
}

func analysisState(candidates []api.Candidate, summary string) ui.AnalysisState {
	out := ui.AnalysisState{Summary: summary}
	for _, c := range candidates {
		out.Candidates = append(out.Candidates, ui.CandidateRow{Name: c.Maqam, Score: c.Confidence})
	}
	return out
}

func (a *App) OnOpenRecommend() {
	a.view.SetRecommendations(nil)
	a.view.SetScreen(ui.ScreenRecommend)
}

func (a *App) OnRecommend(moods, regions []string, difficulty string) {
	ctx, cancel := a.ctx()
	defer cancel()

	q := api.RecommendationQuery{
		Mood:               strings.Join(moods, ", "),
		Region:             strings.Join(regions, ", "),
		SimpleForBeginners: difficulty == "beginner",
	}
	recs, err := a.client.Recommend(ctx, q)
	if err != nil {
		a.view.FlashStatus("recommendation failed: " + err.Error())
		return
	}
	rows := make([]ui.RecommendationRow, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, ui.RecommendationRow{Name: r.Maqam, Reason: r.Reason})
	}
	a.view.SetRecommendations(rows)
	a.view.SetScreen(ui.ScreenRecommend)
}

func (a *App) OnOpenFlashcards(topic string) {
	ctx, cancel := a.ctx()
	defer cancel()

	cards, err := a.client.Flashcards(ctx, topic)
	if err != nil {
		a.view.FlashStatus("flashcards unavailable: " + err.Error())
		return
	}
	rows := make([]ui.FlashcardRow, 0, len(cards))
	for _, c := range cards {
		rows = append(rows, ui.FlashcardRow{Front: c.NameEN, Back: flashcardBack(topic, c)})
	}
	a.flashcards = rows
	a.view.SetFlashcards(rows)
	a.view.SetScreen(ui.ScreenFlashcards)
}

func (a *App) OnShuffleFlashcards() {
	if len(a.flashcards) == 0 {
		return
	}
	a.rng.Shuffle(len(a.flashcards), func(i, j int) {
		a.flashcards[i], a.flashcards[j] = a.flashcards[j], a.flashcards[i]
	})
	a.view.SetFlashcards(a.flashcards)
}

func flashcardBack(topic string, c api.Flashcard) string {
	if c.Back != "" {
		return c.Back
	}
	switch topic {
	case "emotion":
		return c.EmotionEN
	case "usage":
		return c.UsageEN
	case "region":
		return strings.Join(c.RegionsEN, ", ")
	case "ajnas":
		return strings.TrimSpace(c.FirstJinsEN + " + " + c.SecondJinsEN)
	}
	return c.EmotionEN
}

func (a *App) OnOpenLeaderboard() {
	ctx, cancel := a.ctx()
	defer cancel()

	entries, err := a.client.Leaderboard(ctx)
	if err != nil {
		a.view.FlashStatus("leaderboard unavailable: " + err.Error())
		return
	}
	rows := make([]ui.LeaderboardRow, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, ui.LeaderboardRow{
			Rank:       i + 1,
			Name:       e.UserID,
			BestScore:  e.BestScore,
			Quizzes:    e.Quizzes,
			Activities: e.Activities,
		})
	}
	a.view.SetLeaderboard(rows)
	a.view.SetScreen(ui.ScreenLeaderboard)
}

func (a *App) OnOpenRecent() {
	ctx, cancel := a.ctx()
	defer cancel()

	rows := []ui.RecentRow{}
	if records, err := a.client.ActivityLog(ctx); err == nil {
		for _, rec := range records {
			rows = append(rows, ui.RecentRow{
				When:     rec.CreatedAt,
				Activity: rec.Activity,
				Maqam:    fmt.Sprintf("maqam %d", rec.MaqamID),
			})
		}
	} else {
		// Offline fallback: the local journal mirrors every report.
		a.logger.Warn("activity_log.unavailable", map[string]any{"error": err.Error()})
		entries, err := a.store.RecentActivities(ctx, 50)
		if err != nil {
			a.view.FlashStatus("activity log unavailable")
			return
		}
		for _, e := range entries {
			rows = append(rows, ui.RecentRow{
				When:     e.CreatedTS.Local().Format("Jan 02 15:04"),
				Activity: e.Activity,
				Maqam:    fmt.Sprintf("maqam %d", e.MaqamID),
			})
		}
	}
	a.view.SetRecent(rows)
	a.view.SetScreen(ui.ScreenRecent)
}

// errFlash reduces an API error to a status line message, normalizing the
// auth-specific cases.
func (a *App) errFlash(prefix string, err error) {
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		a.view.FlashStatus(prefix + ": session expired, try again")
	case errors.Is(err, auth.ErrRefreshInFlight):
		a.view.FlashStatus(prefix + ": signing in, try again in a moment")
	default:
		a.view.FlashStatus(prefix + ": " + err.Error())
	}
}
