package ui

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
)

type mockController struct {
	dashboard int
	archive   int
	games     int
	quit      int
	abandon   int
	propose   int
	shuffle   int
	skips     int
	topics    []string
}

func (m *mockController) OnOpenDashboard()                     { m.dashboard++ }
func (m *mockController) OnOpenArchive()                       { m.archive++ }
func (m *mockController) OnSearchMaqam(string)                 {}
func (m *mockController) OnFilterRegion(string)                {}
func (m *mockController) OnSelectMaqam(int64)                  {}
func (m *mockController) OnDeleteMaqam(int64)                  {}
func (m *mockController) OnSaveMaqam(int64, map[string]string) {}
func (m *mockController) OnOpenContribute(int64)               {}
func (m *mockController) OnSubmitContribution(int64, string, string, string, string, string, []byte) {
}
func (m *mockController) OnOpenProposeMaqam()                              { m.propose++ }
func (m *mockController) OnProposeMaqam(map[string]string, string, []byte) {}
func (m *mockController) OnOpenAnalysis()                                  {}
func (m *mockController) OnAnalyzeNotes([]string, string)                  {}
func (m *mockController) OnAnalyzeAudio(string)                            {}
func (m *mockController) OnOpenRecommend()                                 {}
func (m *mockController) OnRecommend([]string, []string, string)           {}
func (m *mockController) OnOpenFlashcards(topic string)                    { m.topics = append(m.topics, topic) }
func (m *mockController) OnShuffleFlashcards()                             { m.shuffle++ }
func (m *mockController) OnOpenGames()                                     { m.games++ }
func (m *mockController) OnStartGame(string)                               {}
func (m *mockController) OnGameAnswer(any)                                 {}
func (m *mockController) OnGameSkip()                                      { m.skips++ }
func (m *mockController) OnGameRetry()                                     {}
func (m *mockController) OnGameNext()                                      {}
func (m *mockController) OnOrderMove(int, int)                             {}
func (m *mockController) OnOrderSubmit()                                   {}
func (m *mockController) OnMatchSelectLeft(int64)                          {}
func (m *mockController) OnMatchSelectRight(int)                           {}
func (m *mockController) OnMatchCommit()                                   {}
func (m *mockController) OnMatchReset()                                    {}
func (m *mockController) OnMatchGrade()                                    {}
func (m *mockController) OnStartExam(string)                               {}
func (m *mockController) OnExamAnswer(int, *string)                        {}
func (m *mockController) OnSubmitExam()                                    {}
func (m *mockController) OnAbandonExam()                                   { m.abandon++ }
func (m *mockController) OnOpenLeaderboard()                               {}
func (m *mockController) OnOpenRecent()                                    {}
func (m *mockController) OnQuit()                                          { m.quit++ }

func newTestRoot(t *testing.T) (*Root, *mockController) {
	t.Helper()
	r := New(Options{ASCIIOnly: true})
	ctrl := &mockController{}
	r.SetController(ctrl)
	return r, ctrl
}

func key(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone)
}

func runeKey(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func TestFunctionKeysSwitchScreens(t *testing.T) {
	r, ctrl := newTestRoot(t)

	if ev := r.handleKey(key(tcell.KeyF2)); ev != nil {
		t.Fatalf("F2 should be consumed")
	}
	r.handleKey(key(tcell.KeyF3))
	r.handleKey(key(tcell.KeyCtrlC))

	if ctrl.archive != 1 || ctrl.games != 1 || ctrl.quit != 1 {
		t.Fatalf("unexpected dispatch counts: %+v", ctrl)
	}
}

func TestEscapeAbandonsExamBeforeLeaving(t *testing.T) {
	r, ctrl := newTestRoot(t)

	r.SetScreen(ScreenArchive)
	r.handleKey(key(tcell.KeyEscape))
	if ctrl.abandon != 0 {
		t.Fatalf("escape outside the exam must not abandon")
	}

	r.SetScreen(ScreenExam)
	r.handleKey(key(tcell.KeyEscape))
	if ctrl.abandon != 1 || ctrl.dashboard != 2 {
		t.Fatalf("expected abandon then dashboard, got %+v", ctrl)
	}
}

func TestArchiveProposeShortcut(t *testing.T) {
	r, ctrl := newTestRoot(t)
	capture := r.archiveList.GetInputCapture()

	if ev := capture(runeKey('p')); ev != nil {
		t.Fatalf("p should be consumed")
	}
	if ctrl.propose != 1 {
		t.Fatalf("expected propose dispatch, got %d", ctrl.propose)
	}
	if ev := capture(runeKey('x')); ev == nil {
		t.Fatalf("other runes should pass through to the list")
	}
}

func TestFlashcardShortcuts(t *testing.T) {
	r, ctrl := newTestRoot(t)
	capture := r.flashList.GetInputCapture()

	capture(runeKey('s'))
	if ctrl.shuffle != 1 {
		t.Fatalf("expected shuffle dispatch")
	}

	capture(runeKey('t'))
	capture(runeKey('t'))
	if len(ctrl.topics) != 2 || ctrl.topics[0] != "usage" || ctrl.topics[1] != "region" {
		t.Fatalf("topic cycle wrong: %v", ctrl.topics)
	}
}

func TestSetArchiveRendersRows(t *testing.T) {
	r, _ := newTestRoot(t)

	r.SetArchive(ArchiveState{Rows: []MaqamRow{
		{ID: 1, Name: "Rast", Emotion: "pride", Rarity: "common"},
		{ID: 2, Name: "Saba", Emotion: "grief"},
	}})
	if got := r.archiveList.GetItemCount(); got != 2 {
		t.Fatalf("expected 2 rows, got %d", got)
	}
	main, secondary := r.archiveList.GetItemText(0)
	if main != "Rast" || secondary != "pride  ·  common" {
		t.Fatalf("row text wrong: %q / %q", main, secondary)
	}

	r.SetArchive(ArchiveState{})
	if got := r.archiveList.GetItemCount(); got != 1 {
		t.Fatalf("empty archive should show a placeholder, got %d items", got)
	}
}

func TestSetGameRendersRevealedAnswer(t *testing.T) {
	r, ctrl := newTestRoot(t)

	r.SetGame(GameState{
		Variant:  "clue",
		Total:    2,
		Clues:    []string{"bright", "festive"},
		Answer:   "Rast",
		Revealed: true,
	})
	if text := r.gamePrompt.GetText(true); !strings.Contains(text, "Rast") {
		t.Fatalf("revealed answer missing from prompt: %q", text)
	}

	// The puzzle is already decided; reveal keys during the reveal are inert.
	capture := r.gameFlex.GetInputCapture()
	capture(key(tcell.KeyCtrlR))
	capture(runeKey('s'))
	if ctrl.skips != 0 {
		t.Fatalf("skip should be ignored while the answer is shown")
	}
}

func TestClueRevealKeyWorksWhileTyping(t *testing.T) {
	r, ctrl := newTestRoot(t)

	// The clue screen focuses the guess input, so plain runes go to the
	// field; the reveal rides on Ctrl+R instead.
	r.SetGame(GameState{Variant: "clue", Total: 2, Clues: []string{"bright"}})
	capture := r.gameFlex.GetInputCapture()
	if ev := capture(runeKey('s')); ev == nil {
		t.Fatalf("plain runes should pass through to the guess input")
	}
	if ev := capture(key(tcell.KeyCtrlR)); ev != nil {
		t.Fatalf("Ctrl+R should be consumed")
	}
	if ctrl.skips != 1 {
		t.Fatalf("expected a reveal dispatch, got %d", ctrl.skips)
	}
}

func TestSetInfoShowsAndHidesModal(t *testing.T) {
	r, _ := newTestRoot(t)
	r.SetScreen(ScreenDashboard)

	r.SetInfo("Time is up", "The exam was submitted automatically.", true)
	if name, _ := r.pages.GetFrontPage(); name != "info" {
		t.Fatalf("expected the info modal in front, got %q", name)
	}

	r.SetInfo("", "", false)
	if name, _ := r.pages.GetFrontPage(); name != "dashboard" {
		t.Fatalf("expected the dashboard back in front, got %q", name)
	}
}

func TestDispatchWithoutControllerIsSafe(t *testing.T) {
	r := New(Options{ASCIIOnly: true})
	// Must log and drop, not panic.
	r.handleKey(key(tcell.KeyF1))
}
