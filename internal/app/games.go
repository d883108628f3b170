package app

import (
	"context"
	"errors"
	"time"

	"maqamlab/internal/api"
	"maqamlab/internal/exam"
	"maqamlab/internal/games"
	"maqamlab/internal/state"
	"maqamlab/internal/ui"
)

// Catalog fetchers. Each maps one API response to the local item types and
// builds a session; grading afterwards is entirely local.

func (a *App) mcqCatalog(ctx context.Context) (*games.Session, error) {
	topic := games.RandomMCQTopic(a.rng)
	questions, err := a.client.MCQStart(ctx, topic)
	if err != nil {
		return nil, err
	}
	items := make([]games.MCQItem, 0, len(questions)+1)
	for _, q := range questions {
		items = append(items, games.MCQItem{
			Prompt:  q.Question,
			Choices: q.Choices,
			Answer:  q.Answer,
			MaqamID: q.MaqamID,
		})
	}
	// The seasonal bonus rides along even when the server has no questions,
	// so an empty catalog still plays a one-question round.
	items = append(items, games.BonusQuestion(a.rng))
	return games.NewMCQSession(items, topic, a.reporter.Report), nil
}

func (a *App) audioCatalog(ctx context.Context) (*games.Session, error) {
	tracks, err := a.client.AudioTracks(ctx)
	if err != nil {
		return nil, err
	}
	pool := make([]games.AudioChoiceTrack, 0, len(tracks))
	for _, t := range tracks {
		pool = append(pool, games.AudioChoiceTrack{ID: t.ID, Name: t.Name, AudioURL: t.AudioURL})
	}
	return games.NewAudioSession(games.BuildAudioItems(a.rng, pool), a.reporter.Report), nil
}

func (a *App) clueCatalog(ctx context.Context) (*games.Session, error) {
	puzzles, err := a.client.CluePuzzles(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]games.ClueItem, 0, len(puzzles))
	for _, p := range puzzles {
		items = append(items, games.ClueItem{MaqamID: p.MaqamID, Clues: p.Clues, Answer: p.Answer})
	}
	return games.NewClueSession(items, a.reporter.Report), nil
}

func (a *App) orderCatalog(ctx context.Context) (*games.Session, error) {
	puzzles, err := a.client.OrderPuzzles(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]games.OrderItem, 0, len(puzzles))
	for _, p := range puzzles {
		items = append(items, games.OrderItem{
			MaqamID:  p.MaqamID,
			Name:     p.Name,
			Notes:    p.Notes,
			Solution: p.Solution,
		})
	}
	return games.NewOrderSession(items, a.reporter.Report), nil
}

func (a *App) OnOpenGames() {
	a.view.SetScreen(ui.ScreenGamesMenu)
}

func (a *App) OnStartGame(variant string) {
	if variant == "matching" {
		a.startMatching()
		return
	}
	engine, ok := a.engines[variant]
	if !ok {
		a.view.FlashStatus("unknown game: " + variant)
		return
	}
	ctx, cancel := a.ctx()
	defer cancel()

	session, err := engine.Play(ctx)
	if err != nil {
		if errors.Is(err, games.ErrCatalogUnavailable) {
			a.view.FlashStatus("no puzzles available right now")
		} else {
			a.errFlash("cannot start game", err)
		}
		return
	}
	a.variant = variant
	a.runStart = time.Now()
	a.cluesShown = 1
	a.prepareItem(session)
	a.logger.Info("game.start", map[string]any{"variant": variant, "items": session.Total()})
	a.renderGame(session)
	a.view.SetScreen(ui.ScreenGame)
}

// prepareItem sets up per-item state for the current puzzle: a shuffled
// arrangement for the sequencer, a fresh clue counter for deduction.
func (a *App) prepareItem(s *games.Session) {
	a.cluesShown = 1
	a.arr = nil
	item, err := s.Current()
	if err != nil {
		return
	}
	if o, ok := item.(games.OrderItem); ok {
		a.arr = games.NewArrangement(a.rng, o)
	}
}

func (a *App) renderGame(s *games.Session) {
	correct, total, done := s.Summary()
	g := ui.GameState{
		Variant: a.variant,
		Index:   s.Index(),
		Total:   total,
		Correct: correct,
		Done:    done,
	}
	if done {
		a.view.SetGame(g)
		return
	}
	g.Graded = s.State() == games.StateGraded
	g.LastOK = s.LastCorrect()

	item, err := s.Current()
	if err != nil {
		a.view.FlashStatus(err.Error())
		return
	}
	switch it := item.(type) {
	case games.MCQItem:
		g.Prompt = it.Prompt
		g.Choices = it.Choices
		if g.Graded && !g.LastOK {
			g.Answer = it.Answer
		}
	case games.AudioItem:
		g.Prompt = "Which maqam is playing?"
		g.AudioURL = it.AudioURL
		for _, c := range it.Choices {
			g.Choices = append(g.Choices, c.Name)
			g.ChoiceIDs = append(g.ChoiceIDs, c.ID)
		}
		if g.Graded && !g.LastOK {
			g.Answer = it.Name
		}
	case games.ClueItem:
		g.Prompt = "Which maqam fits these clues?"
		shown := a.cluesShown
		if shown > len(it.Clues) {
			shown = len(it.Clues)
		}
		g.Clues = it.Clues[:shown]
		if g.Graded && !g.LastOK && a.cluesShown > len(it.Clues) {
			g.Answer = it.Answer
		}
	case games.OrderItem:
		g.Prompt = "Arrange the notes of " + it.Name
		if a.arr != nil {
			g.Notes = a.arr.Notes()
		}
		if g.Graded && !g.LastOK {
			g.Answer = joinNotes(it.Solution)
		}
	}
	a.view.SetGame(g)
}

func joinNotes(notes []string) string {
	out := ""
	for i, n := range notes {
		if i > 0 {
			out += " "
		}
		out += n
	}
	return out
}

func (a *App) OnGameAnswer(answer any) {
	s := a.currentSession()
	if s == nil {
		return
	}
	ok, err := s.Answer(answer)
	if err != nil {
		a.view.FlashStatus(err.Error())
		return
	}
	if !ok && a.variant == "clue" {
		// A wrong guess buys the next clue.
		a.cluesShown++
	}
	a.renderGame(s)
	if ok || a.variant == "mcq" || a.variant == "audio" {
		a.advanceAfterDelay(s)
	}
}

func (a *App) OnOrderMove(from, to int) {
	if a.arr == nil {
		return
	}
	a.arr.Move(from, to)
	if s := a.currentSession(); s != nil {
		a.renderGame(s)
	}
}

func (a *App) OnOrderSubmit() {
	if a.arr == nil {
		return
	}
	a.OnGameAnswer(a.arr.Notes())
}

func (a *App) OnGameSkip() {
	s := a.currentSession()
	if s == nil {
		return
	}
	if a.variant == "clue" {
		if item, err := s.Current(); err == nil {
			if it, ok := item.(games.ClueItem); ok {
				a.revealAndSkip(s, it)
				return
			}
		}
	}
	if err := s.Skip(); err != nil {
		a.view.FlashStatus(err.Error())
		return
	}
	a.afterAdvance(s)
}

// revealAndSkip shows the stored answer before the round moves past a clue
// puzzle. The reveal scores as neither correct nor a retry; the actual skip
// runs after the feedback delay so the answer sits on screen first.
func (a *App) revealAndSkip(s *games.Session, it games.ClueItem) {
	correct, total, _ := s.Summary()
	a.view.SetGame(ui.GameState{
		Variant:  "clue",
		Index:    s.Index(),
		Total:    total,
		Correct:  correct,
		Prompt:   "Which maqam fits these clues?",
		Clues:    it.Clues,
		Answer:   it.Answer,
		Revealed: true,
	})
	time.AfterFunc(a.cfg.FeedbackDelay, func() {
		a.view.QueueUpdate(func() {
			if s != a.currentSession() || s.State() != games.StatePresenting {
				return
			}
			if err := s.Skip(); err != nil {
				return
			}
			a.afterAdvance(s)
		})
	})
}

func (a *App) OnGameRetry() {
	s := a.currentSession()
	if s == nil {
		return
	}
	if err := s.Retry(); err != nil {
		a.view.FlashStatus(err.Error())
		return
	}
	a.renderGame(s)
}

func (a *App) OnGameNext() {
	s := a.currentSession()
	if s == nil {
		return
	}
	if _, _, done := s.Summary(); done {
		// Replay: the engine fetches a fresh catalog for a finished round.
		a.OnStartGame(a.variant)
		return
	}
	if err := s.Advance(); err != nil {
		a.view.FlashStatus(err.Error())
		return
	}
	a.afterAdvance(s)
}

func (a *App) currentSession() *games.Session {
	engine, ok := a.engines[a.variant]
	if !ok {
		return nil
	}
	return engine.Current()
}

// advanceAfterDelay lets the verdict sit on screen before moving on. The
// session itself is synchronous; the pause lives here.
func (a *App) advanceAfterDelay(s *games.Session) {
	time.AfterFunc(a.cfg.FeedbackDelay, func() {
		a.view.QueueUpdate(func() {
			if s != a.currentSession() || s.State() != games.StateGraded {
				return
			}
			if err := s.Advance(); err != nil {
				return
			}
			a.afterAdvance(s)
		})
	})
}

func (a *App) afterAdvance(s *games.Session) {
	correct, total, done := s.Summary()
	if done {
		a.recordRun(a.variant, correct, total, true)
	} else {
		a.prepareItem(s)
	}
	a.renderGame(s)
}

func (a *App) recordRun(variant string, correct, total int, completed bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := a.store.RecordGameRun(ctx, state.GameRun{
		SessionID: a.sessionID,
		Variant:   variant,
		StartTS:   a.runStart,
		Correct:   correct,
		Total:     total,
		Completed: completed,
	})
	if err != nil {
		a.logger.Warn("game_run.record_failed", map[string]any{"error": err.Error()})
	}
	a.logger.Info("game.finished", map[string]any{"variant": variant, "correct": correct, "total": total})
}

func (a *App) startMatching() {
	ctx, cancel := a.ctx()
	defer cancel()

	topic := games.RandomMCQTopic(a.rng)
	set, err := a.client.Matching(ctx, topic)
	if err != nil {
		a.errFlash("cannot start matching", err)
		return
	}
	if len(set.Left) == 0 {
		a.view.FlashStatus("no pairs available right now")
		return
	}
	gs := games.MatchingSet{
		Topic:    topic,
		Right:    set.Right,
		Solution: make(map[int64]string, len(set.Solution)),
	}
	for _, l := range set.Left {
		gs.Left = append(gs.Left, games.MatchingLeft{ID: l.ID, Name: l.Name})
	}
	for _, sol := range set.Solution {
		gs.Solution[sol.MaqamID] = sol.Value
	}
	a.variant = "matching"
	a.matchSet = gs
	a.match = games.NewMatchingGame(gs, a.reporter.Report)
	a.graded = false
	a.runStart = time.Now()
	a.logger.Info("game.start", map[string]any{"variant": "matching", "pairs": len(gs.Left)})
	a.renderMatching()
	a.view.SetScreen(ui.ScreenMatching)
}

func (a *App) renderMatching() {
	if a.match == nil {
		return
	}
	st := a.match.State
	leftSel, rightSel := st.Selection()

	m := ui.MatchingView{
		Topic:     a.matchSet.Topic,
		Committed: st.Count(),
		Total:     len(a.matchSet.Left),
		Graded:    a.graded,
	}
	if a.graded {
		m.Correct = a.lastScore
		m.Percent = games.Percent(a.lastScore, len(a.matchSet.Solution))
	}
	for _, l := range a.matchSet.Left {
		pill := ui.MatchPill{ID: l.ID, Label: l.Name, Color: -1}
		if c, ok := st.Color(l.ID); ok {
			pill.Color = c
		}
		if leftSel != nil && *leftSel == l.ID {
			pill.Selected = true
		}
		m.Left = append(m.Left, pill)
	}
	pairs := st.Pairs()
	for i, val := range a.matchSet.Right {
		pill := ui.MatchPill{Index: i, Label: val, Color: -1}
		for _, p := range pairs {
			if p.Right == i {
				if c, ok := st.Color(p.Left); ok {
					pill.Color = c
				}
			}
		}
		if rightSel != nil && *rightSel == i {
			pill.Selected = true
		}
		m.Right = append(m.Right, pill)
	}
	a.view.SetMatching(m)
}

func (a *App) OnMatchSelectLeft(id int64) {
	if a.match == nil || a.graded {
		return
	}
	a.match.State.SelectLeft(id)
	a.renderMatching()
}

func (a *App) OnMatchSelectRight(index int) {
	if a.match == nil || a.graded {
		return
	}
	a.match.State.SelectRight(index)
	a.renderMatching()
}

func (a *App) OnMatchCommit() {
	if a.match == nil || a.graded {
		return
	}
	if _, err := a.match.State.Commit(); err != nil {
		a.view.FlashStatus(err.Error())
		return
	}
	a.renderMatching()
}

func (a *App) OnMatchReset() {
	if a.match == nil {
		return
	}
	a.match.State.Reset()
	a.graded = false
	a.lastScore = 0
	a.renderMatching()
}

func (a *App) OnMatchGrade() {
	if a.match == nil || a.graded {
		return
	}
	correct, total, err := a.match.Grade()
	if err != nil {
		a.view.FlashStatus(err.Error())
		return
	}
	a.graded = true
	a.lastScore = correct
	a.recordRun("matching", correct, total, true)
	a.renderMatching()
}

func (a *App) OnStartExam(lang string) {
	ctx, cancel := a.ctx()
	defer cancel()

	paper, err := a.exams.Start(ctx, lang)
	if err != nil {
		a.errFlash("cannot start exam", err)
		return
	}
	ev := ui.ExamState{
		QuizID:    paper.QuizID,
		Answers:   make([]*string, len(paper.Questions)),
		Remaining: a.cfg.ExamDuration,
	}
	for _, q := range paper.Questions {
		ev.Questions = append(ev.Questions, ui.ExamQuestionRow{
			Prompt:  q.Prompt,
			Type:    q.Type,
			Choices: q.Choices,
		})
	}
	a.examView = ev
	a.runStart = time.Now()
	a.logger.Info("exam.start", map[string]any{"quiz_id": paper.QuizID, "questions": len(paper.Questions)})
	a.view.SetExam(ev)
	a.view.SetScreen(ui.ScreenExam)
}

func (a *App) OnExamAnswer(index int, answer *string) {
	a.exams.SetAnswer(index, answer)
	if index < 0 || index >= len(a.examView.Answers) {
		return
	}
	a.examView.Answers[index] = answer
	if a.examView.Current < len(a.examView.Questions)-1 {
		a.examView.Current++
	}
	a.view.SetExam(a.examView)
}

func (a *App) OnSubmitExam() {
	ctx, cancel := a.ctx()
	defer cancel()

	res, err := a.exams.Submit(ctx)
	a.finishExam(res, err, false)
}

func (a *App) OnAbandonExam() {
	a.exams.Abandon()
	a.examView = ui.ExamState{}
}

func (a *App) finishExam(res api.ExamResult, err error, auto bool) {
	if err != nil {
		if errors.Is(err, exam.ErrAlreadySubmitted) || errors.Is(err, exam.ErrNoExam) {
			return
		}
		a.errFlash("exam submission failed", err)
		return
	}
	a.recordRun("exam", res.Correct, res.Total, true)
	a.examView = ui.ExamState{}

	out := ui.ExamResultState{Score: res.Score, Correct: res.Correct, Total: res.Total}
	for _, d := range res.Details {
		row := ui.ExamDetailRow{
			Question:      d.Question,
			IsCorrect:     d.IsCorrect,
			CorrectAnswer: d.CorrectAnswer,
		}
		if d.UserAnswer != nil {
			row.UserAnswer = *d.UserAnswer
		}
		out.Details = append(out.Details, row)
	}
	a.view.SetExamResult(out)
	a.view.SetScreen(ui.ScreenExamResult)
	if auto {
		a.view.SetInfo("Time is up", "The exam was submitted automatically with the answers given so far.", true)
	}
}
