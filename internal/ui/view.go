package ui

import (
	"fmt"
	"os"
	"strings"
	"time"

	clog "github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Root is the terminal view. All Set* methods mutate primitives directly and
// must run on the event goroutine; background goroutines go through
// QueueUpdate.
type Root struct {
	app   *tview.Application
	pages *tview.Pages
	theme Theme
	ascii bool
	ctrl  Controller

	logger *clog.Logger

	header *tview.TextView
	status *tview.TextView

	dashboard   *tview.TextView
	dashMenu    *tview.List
	search      *tview.InputField
	regionDrop  *tview.DropDown
	archiveList *tview.List
	archive     ArchiveState

	detailText *tview.TextView
	detailForm *tview.Form
	detailFlex *tview.Flex
	detail     MaqamDetail

	contribForm  *tview.Form
	contribMaqam int64
	proposeForm  *tview.Form

	analysisForm *tview.Form
	analysisOut  *tview.TextView

	recommendForm *tview.Form
	recommendOut  *tview.TextView

	flashList  *tview.List
	cards      []FlashcardRow
	flipped    map[int]bool
	flashTopic int

	gamesMenu *tview.List

	gamePrompt  *tview.TextView
	gameChoices *tview.List
	gameInput   *tview.InputField
	gameFlex    *tview.Flex
	game        GameState

	matchLeft  *tview.List
	matchRight *tview.List
	matchInfo  *tview.TextView
	matching   MatchingView

	examText  *tview.TextView
	examList  *tview.List
	examInput *tview.InputField
	exam      ExamState

	examResult *tview.TextView

	boardText  *tview.TextView
	recentText *tview.TextView

	infoModal *tview.Modal

	screen     Screen
	flashTimer *time.Timer
}

type Options struct {
	ASCIIOnly bool
}

func New(opts Options) *Root {
	logger := clog.NewWithOptions(os.Stderr, clog.Options{Prefix: "maqamlab-ui", Level: clog.WarnLevel})

	r := &Root{
		app:     tview.NewApplication(),
		pages:   tview.NewPages(),
		theme:   DefaultTheme(),
		ascii:   opts.ASCIIOnly,
		logger:  logger,
		flipped: map[int]bool{},
	}
	r.build()
	return r
}

func (r *Root) SetController(c Controller) { r.ctrl = c }

func (r *Root) Run() error {
	return r.app.Run()
}

func (r *Root) Stop() {
	r.app.Stop()
}

// QueueUpdate schedules fn on the event goroutine and redraws. Used by the
// controller for timer ticks and deferred feedback.
func (r *Root) QueueUpdate(fn func()) {
	go r.app.QueueUpdateDraw(fn)
}

func (r *Root) build() {
	r.header = tview.NewTextView().SetDynamicColors(true).SetTextAlign(tview.AlignCenter)
	r.header.SetText(r.title())
	r.status = tview.NewTextView().SetDynamicColors(true)

	r.buildDashboard()
	r.buildArchive()
	r.buildDetail()
	r.buildContribute()
	r.buildPropose()
	r.buildAnalysis()
	r.buildRecommend()
	r.buildFlashcards()
	r.buildGamesMenu()
	r.buildGame()
	r.buildMatching()
	r.buildExam()
	r.buildBoards()

	r.infoModal = tview.NewModal().AddButtons([]string{"Close"}).
		SetDoneFunc(func(int, string) {
			r.pages.HidePage("info")
			r.app.SetFocus(r.focusFor(r.screen))
		})
	r.pages.AddPage("info", r.infoModal, true, false)

	r.header.SetTextColor(r.theme.Accent)
	r.status.SetTextColor(r.theme.Muted)
	r.infoModal.SetBackgroundColor(r.theme.Surface)
	r.infoModal.SetTextColor(r.theme.Text)

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(r.header, 1, 0, false).
		AddItem(r.pages, 0, 1, true).
		AddItem(r.status, 1, 0, false)

	r.app.SetRoot(layout, true)
	r.app.SetInputCapture(r.handleKey)
}

func (r *Root) title() string {
	if r.ascii {
		return "[::b]MAQAM LAB[::-]  modes of the Arab world"
	}
	return "[::b]MAQAM LAB[::-]  ♩ modes of the Arab world"
}

func (r *Root) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	switch ev.Key() {
	case tcell.KeyF1:
		r.dispatch(func(c Controller) { c.OnOpenDashboard() })
		return nil
	case tcell.KeyF2:
		r.dispatch(func(c Controller) { c.OnOpenArchive() })
		return nil
	case tcell.KeyF3:
		r.dispatch(func(c Controller) { c.OnOpenGames() })
		return nil
	case tcell.KeyF4:
		r.dispatch(func(c Controller) { c.OnStartExam("en") })
		return nil
	case tcell.KeyF5:
		r.dispatch(func(c Controller) { c.OnOpenLeaderboard() })
		return nil
	case tcell.KeyF6:
		r.dispatch(func(c Controller) { c.OnOpenRecent() })
		return nil
	case tcell.KeyEscape:
		if r.screen == ScreenExam {
			r.dispatch(func(c Controller) { c.OnAbandonExam() })
		}
		r.dispatch(func(c Controller) { c.OnOpenDashboard() })
		return nil
	case tcell.KeyCtrlC:
		r.dispatch(func(c Controller) { c.OnQuit() })
		return nil
	}
	return ev
}

func (r *Root) dispatch(fn func(Controller)) {
	if r.ctrl == nil {
		r.logger.Warn("controller not attached")
		return
	}
	fn(r.ctrl)
}

func (r *Root) SetScreen(s Screen) {
	r.screen = s
	name := pageName(s)
	r.pages.SwitchToPage(name)
	r.app.SetFocus(r.focusFor(s))
}

func pageName(s Screen) string {
	switch s {
	case ScreenDashboard:
		return "dashboard"
	case ScreenArchive:
		return "archive"
	case ScreenMaqamDetail:
		return "detail"
	case ScreenContribute:
		return "contribute"
	case ScreenPropose:
		return "propose"
	case ScreenAnalysis:
		return "analysis"
	case ScreenRecommend:
		return "recommend"
	case ScreenFlashcards:
		return "flashcards"
	case ScreenGamesMenu:
		return "games"
	case ScreenGame:
		return "game"
	case ScreenMatching:
		return "matching"
	case ScreenExam:
		return "exam"
	case ScreenExamResult:
		return "examresult"
	case ScreenLeaderboard:
		return "leaderboard"
	case ScreenRecent:
		return "recent"
	}
	return "dashboard"
}

func (r *Root) focusFor(s Screen) tview.Primitive {
	switch s {
	case ScreenDashboard:
		return r.dashMenu
	case ScreenArchive:
		return r.archiveList
	case ScreenMaqamDetail:
		if r.detail.CanEdit {
			return r.detailForm
		}
		return r.detailText
	case ScreenContribute:
		return r.contribForm
	case ScreenPropose:
		return r.proposeForm
	case ScreenAnalysis:
		return r.analysisForm
	case ScreenRecommend:
		return r.recommendForm
	case ScreenFlashcards:
		return r.flashList
	case ScreenGamesMenu:
		return r.gamesMenu
	case ScreenGame:
		if r.game.Variant == "clue" && !r.game.Revealed {
			return r.gameInput
		}
		return r.gameChoices
	case ScreenMatching:
		return r.matchLeft
	case ScreenExam:
		return r.examList
	case ScreenExamResult:
		return r.examResult
	case ScreenLeaderboard:
		return r.boardText
	case ScreenRecent:
		return r.recentText
	}
	return r.dashMenu
}

func (r *Root) buildDashboard() {
	r.dashboard = tview.NewTextView().SetDynamicColors(true)
	r.dashboard.SetBorder(true).SetTitle(" Overview ")

	r.dashMenu = tview.NewList().ShowSecondaryText(true)
	r.dashMenu.SetBorder(true).SetTitle(" Explore ")
	r.dashMenu.AddItem("Archive", "browse and search the maqam archive", 'a', func() {
		r.dispatch(func(c Controller) { c.OnOpenArchive() })
	})
	r.dashMenu.AddItem("Games", "five ways to train your ear and memory", 'g', func() {
		r.dispatch(func(c Controller) { c.OnOpenGames() })
	})
	r.dashMenu.AddItem("Mastery exam", "twenty timed questions, one submission", 'e', func() {
		r.dispatch(func(c Controller) { c.OnStartExam("en") })
	})
	r.dashMenu.AddItem("Flashcards", "quick drills by topic", 'f', func() {
		r.dispatch(func(c Controller) { c.OnOpenFlashcards("emotion") })
	})
	r.dashMenu.AddItem("Analysis", "identify a maqam from notes or audio", 'n', func() {
		r.dispatch(func(c Controller) { c.OnOpenAnalysis() })
	})
	r.dashMenu.AddItem("Recommend", "find a maqam for a mood", 'r', func() {
		r.dispatch(func(c Controller) { c.OnOpenRecommend() })
	})
	r.dashMenu.AddItem("Leaderboard", "community standings", 'l', func() {
		r.dispatch(func(c Controller) { c.OnOpenLeaderboard() })
	})
	r.dashMenu.AddItem("Recent activity", "your learning journal", 'j', func() {
		r.dispatch(func(c Controller) { c.OnOpenRecent() })
	})
	r.dashMenu.AddItem("Quit", "", 'q', func() {
		r.dispatch(func(c Controller) { c.OnQuit() })
	})

	flex := tview.NewFlex().
		AddItem(r.dashMenu, 0, 1, true).
		AddItem(r.dashboard, 0, 1, false)
	r.pages.AddPage("dashboard", flex, true, true)
}

func (r *Root) SetDashboard(s DashboardState) {
	online := "[red]offline[-]"
	if s.Online {
		online = "[green]online[-]"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Archive: %s, %d maqamat\n\n", online, s.MaqamCount)
	if s.Subject != "" {
		fmt.Fprintf(&b, "Signed in as %s (%s)\n\n", s.Subject, s.Role)
	}
	fmt.Fprintf(&b, "Game runs: %d\nCompleted: %d\nCorrect answers: %d of %d\n", s.GameRuns, s.Completed, s.Correct, s.Answered)
	b.WriteString("\nF1 home  F2 archive  F3 games  F4 exam  F5 board  F6 journal")
	r.dashboard.SetText(b.String())
}

func (r *Root) buildArchive() {
	r.search = tview.NewInputField().SetLabel("Search: ").SetFieldWidth(28)
	r.search.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			q := r.search.GetText()
			r.dispatch(func(c Controller) { c.OnSearchMaqam(q) })
		}
	})
	regions := []string{"all", "Egypt", "Levant", "Iraq", "Gulf", "Maghreb", "Turkey"}
	r.regionDrop = tview.NewDropDown().SetLabel("Region: ").SetOptions(regions, func(text string, _ int) {
		if text == "all" {
			text = ""
		}
		r.dispatch(func(c Controller) { c.OnFilterRegion(text) })
	})
	r.archiveList = tview.NewList().ShowSecondaryText(true)
	r.archiveList.SetBorder(true).SetTitle(" Maqam Archive (p propose new) ")
	r.archiveList.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Rune() == 'p' {
			r.dispatch(func(c Controller) { c.OnOpenProposeMaqam() })
			return nil
		}
		return ev
	})

	bar := tview.NewFlex().
		AddItem(r.search, 0, 1, false).
		AddItem(r.regionDrop, 0, 1, false)
	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(bar, 1, 0, false).
		AddItem(r.archiveList, 0, 1, true)
	r.pages.AddPage("archive", flex, true, false)
}

func (r *Root) SetArchive(s ArchiveState) {
	r.archive = s
	r.archiveList.Clear()
	for _, row := range s.Rows {
		id := row.ID
		secondary := row.Emotion
		if row.Rarity != "" {
			secondary += "  ·  " + row.Rarity
		}
		r.archiveList.AddItem(row.Name, secondary, 0, func() {
			r.dispatch(func(c Controller) { c.OnSelectMaqam(id) })
		})
	}
	if len(s.Rows) == 0 {
		r.archiveList.AddItem("No maqamat found", "adjust search or region filter", 0, nil)
	}
}

func (r *Root) buildDetail() {
	r.detailText = tview.NewTextView().SetDynamicColors(true)
	r.detailText.SetBorder(true)
	r.detailForm = tview.NewForm()
	r.detailForm.SetBorder(true).SetTitle(" Curator tools ")
	r.detailFlex = tview.NewFlex().
		AddItem(r.detailText, 0, 2, true)
	r.pages.AddPage("detail", r.detailFlex, true, false)
}

func (r *Root) SetMaqamDetail(d MaqamDetail) {
	r.detail = d
	var b strings.Builder
	fmt.Fprintf(&b, "[::b]%s[-:-:-]", d.Name)
	if d.NameAR != "" {
		fmt.Fprintf(&b, "  (%s)", tview.Escape(d.NameAR))
	}
	b.WriteString("\n\n")
	if d.Description != "" {
		b.WriteString(d.Description + "\n\n")
	}
	if len(d.Regions) > 0 {
		fmt.Fprintf(&b, "Regions: %s\n", strings.Join(d.Regions, ", "))
	}
	if d.Emotion != "" {
		fmt.Fprintf(&b, "Emotion: %s\n", d.Emotion)
	}
	if d.Usage != "" {
		fmt.Fprintf(&b, "Usage: %s\n", d.Usage)
	}
	if d.Seasonal != "" {
		fmt.Fprintf(&b, "Seasonal usage: %s\n", d.Seasonal)
	}
	if d.Difficulty != "" {
		fmt.Fprintf(&b, "Difficulty: %s\n", d.Difficulty)
	}
	if d.Rarity != "" {
		fmt.Fprintf(&b, "Rarity: %s\n", d.Rarity)
	}
	if len(d.Periods) > 0 {
		fmt.Fprintf(&b, "Periods: %s\n", strings.Join(d.Periods, ", "))
	}
	if len(d.Ajnas) > 0 {
		b.WriteString("\nAjnas:\n")
		for _, j := range d.Ajnas {
			fmt.Fprintf(&b, "  %s: %s\n", j.Name, strings.Join(j.Notes, " "))
		}
	}
	fmt.Fprintf(&b, "\nRecordings: %d\n", d.AudioCount)
	b.WriteString("\n[gray]c contribute  Esc back[-]")
	r.detailText.SetTitle(" " + d.Name + " ")
	r.detailText.SetText(b.String())

	r.detailText.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Rune() == 'c' {
			r.dispatch(func(c Controller) { c.OnOpenContribute(d.ID) })
			return nil
		}
		return ev
	})

	r.detailFlex.Clear()
	r.detailFlex.AddItem(r.detailText, 0, 2, !d.CanEdit)
	if d.CanEdit {
		r.rebuildDetailForm(d)
		r.detailFlex.AddItem(r.detailForm, 0, 1, true)
	}
}

func (r *Root) rebuildDetailForm(d MaqamDetail) {
	r.detailForm.Clear(true)
	r.detailForm.
		AddInputField("Name (en)", d.Name, 24, nil, nil).
		AddInputField("Name (ar)", d.NameAR, 24, nil, nil).
		AddInputField("Description", d.Description, 40, nil, nil).
		AddInputField("Emotion", d.Emotion, 24, nil, nil).
		AddInputField("Usage", d.Usage, 24, nil, nil).
		AddButton("Save", func() {
			fields := map[string]string{
				"name_en":        r.formText(r.detailForm, 0),
				"name_ar":        r.formText(r.detailForm, 1),
				"description_en": r.formText(r.detailForm, 2),
				"emotion_en":     r.formText(r.detailForm, 3),
				"usage_en":       r.formText(r.detailForm, 4),
			}
			r.dispatch(func(c Controller) { c.OnSaveMaqam(d.ID, fields) })
		}).
		AddButton("Delete", func() {
			r.dispatch(func(c Controller) { c.OnDeleteMaqam(d.ID) })
		})
}

func (r *Root) formText(f *tview.Form, idx int) string {
	item, ok := f.GetFormItem(idx).(*tview.InputField)
	if !ok {
		return ""
	}
	return item.GetText()
}

func (r *Root) buildContribute() {
	r.contribForm = tview.NewForm()
	r.contribForm.SetBorder(true).SetTitle(" Contribute knowledge ")
	r.pages.AddPage("contribute", r.contribForm, true, false)
}

// OpenContribute rebuilds the contribution form for one maqam.
func (r *Root) OpenContribute(maqamID int64, maqamName string) {
	r.contribMaqam = maqamID
	types := []string{"story", "historical_context", "regional_variation", "audio_recording"}
	r.contribForm.Clear(true)
	r.contribForm.SetTitle(fmt.Sprintf(" Contribute to %s ", maqamName))
	r.contribForm.
		AddDropDown("Type", types, 0, nil).
		AddInputField("Title", "", 32, nil, nil).
		AddInputField("Details", "", 60, nil, nil).
		AddInputField("Source", "", 32, nil, nil).
		AddInputField("Audio file", "", 40, nil, nil).
		AddButton("Submit", func() {
			_, ctype := r.contribForm.GetFormItem(0).(*tview.DropDown).GetCurrentOption()
			title := r.formText(r.contribForm, 1)
			details := r.formText(r.contribForm, 2)
			source := r.formText(r.contribForm, 3)
			audioPath := r.formText(r.contribForm, 4)
			var audio []byte
			audioName := ""
			if audioPath != "" {
				b, err := os.ReadFile(audioPath)
				if err != nil {
					r.FlashStatus("cannot read audio file: " + err.Error())
					return
				}
				audio = b
				audioName = audioPath
			}
			r.dispatch(func(c Controller) {
				c.OnSubmitContribution(maqamID, ctype, title, details, source, audioName, audio)
			})
		}).
		AddButton("Cancel", func() {
			r.dispatch(func(c Controller) { c.OnSelectMaqam(maqamID) })
		})
}

func (r *Root) buildPropose() {
	r.proposeForm = tview.NewForm()
	r.proposeForm.SetBorder(true).SetTitle(" Propose a new maqam ")
	r.pages.AddPage("propose", r.proposeForm, true, false)
}

// OpenPropose resets the proposal form to a blank slate.
func (r *Root) OpenPropose() {
	r.proposeForm.Clear(true)
	r.proposeForm.
		AddInputField("Name (en)", "", 28, nil, nil).
		AddInputField("Name (ar)", "", 28, nil, nil).
		AddInputField("Description", "", 60, nil, nil).
		AddInputField("Emotion", "", 24, nil, nil).
		AddInputField("Regions (comma separated)", "", 36, nil, nil).
		AddInputField("Notes (space separated)", "", 40, nil, nil).
		AddInputField("Audio file", "", 40, nil, nil).
		AddButton("Submit", func() {
			fields := map[string]string{
				"name_en":        r.formText(r.proposeForm, 0),
				"name_ar":        r.formText(r.proposeForm, 1),
				"description_en": r.formText(r.proposeForm, 2),
				"emotion_en":     r.formText(r.proposeForm, 3),
				"regions":        r.formText(r.proposeForm, 4),
				"notes":          r.formText(r.proposeForm, 5),
			}
			audioPath := r.formText(r.proposeForm, 6)
			var audio []byte
			audioName := ""
			if audioPath != "" {
				b, err := os.ReadFile(audioPath)
				if err != nil {
					r.FlashStatus("cannot read audio file: " + err.Error())
					return
				}
				audio = b
				audioName = audioPath
			}
			r.dispatch(func(c Controller) { c.OnProposeMaqam(fields, audioName, audio) })
		}).
		AddButton("Cancel", func() {
			r.dispatch(func(c Controller) { c.OnOpenArchive() })
		})
}

func (r *Root) buildAnalysis() {
	r.analysisForm = tview.NewForm()
	r.analysisForm.SetBorder(true).SetTitle(" Identify a maqam ")
	r.analysisForm.
		AddInputField("Notes (space separated)", "", 40, nil, nil).
		AddInputField("Mood", "", 24, nil, nil).
		AddInputField("Audio file", "", 40, nil, nil).
		AddButton("Analyze notes", func() {
			notes := strings.Fields(r.formText(r.analysisForm, 0))
			mood := r.formText(r.analysisForm, 1)
			r.dispatch(func(c Controller) { c.OnAnalyzeNotes(notes, mood) })
		}).
		AddButton("Analyze audio", func() {
			path := r.formText(r.analysisForm, 2)
			r.dispatch(func(c Controller) { c.OnAnalyzeAudio(path) })
		})
	r.analysisOut = tview.NewTextView().SetDynamicColors(true)
	r.analysisOut.SetBorder(true).SetTitle(" Result ")
	flex := tview.NewFlex().
		AddItem(r.analysisForm, 0, 1, true).
		AddItem(r.analysisOut, 0, 1, false)
	r.pages.AddPage("analysis", flex, true, false)
}

func (r *Root) SetAnalysis(s AnalysisState) {
	var b strings.Builder
	if s.Summary != "" {
		b.WriteString(s.Summary + "\n\n")
	}
	for i, c := range s.Candidates {
		fmt.Fprintf(&b, "%d. %s  [gray]%.0f%%[-]\n", i+1, c.Name, c.Score*100)
	}
	if len(s.Candidates) == 0 && s.Summary == "" {
		b.WriteString("No match found.")
	}
	r.analysisOut.SetText(b.String())
}

func (r *Root) buildRecommend() {
	r.recommendForm = tview.NewForm()
	r.recommendForm.SetBorder(true).SetTitle(" Recommend a maqam ")
	r.recommendForm.
		AddInputField("Moods (comma separated)", "", 36, nil, nil).
		AddInputField("Regions (comma separated)", "", 36, nil, nil).
		AddDropDown("Difficulty", []string{"any", "beginner", "intermediate", "advanced"}, 0, nil).
		AddButton("Recommend", func() {
			moods := splitCSV(r.formText(r.recommendForm, 0))
			regions := splitCSV(r.formText(r.recommendForm, 1))
			_, diff := r.recommendForm.GetFormItem(2).(*tview.DropDown).GetCurrentOption()
			if diff == "any" {
				diff = ""
			}
			r.dispatch(func(c Controller) { c.OnRecommend(moods, regions, diff) })
		})
	r.recommendOut = tview.NewTextView().SetDynamicColors(true)
	r.recommendOut.SetBorder(true).SetTitle(" Suggestions ")
	flex := tview.NewFlex().
		AddItem(r.recommendForm, 0, 1, true).
		AddItem(r.recommendOut, 0, 1, false)
	r.pages.AddPage("recommend", flex, true, false)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (r *Root) SetRecommendations(rows []RecommendationRow) {
	var b strings.Builder
	for _, row := range rows {
		fmt.Fprintf(&b, "[::b]%s[-:-:-]\n  %s\n\n", row.Name, row.Reason)
	}
	if len(rows) == 0 {
		b.WriteString("Nothing matched those filters.")
	}
	r.recommendOut.SetText(b.String())
}

var flashTopics = []string{"emotion", "usage", "region", "ajnas"}

func (r *Root) buildFlashcards() {
	r.flashList = tview.NewList().ShowSecondaryText(true)
	r.flashList.SetBorder(true).SetTitle(" Flashcards (enter flips, s shuffles, t switches topic) ")
	r.flashList.SetSelectedFunc(func(i int, _, _ string, _ rune) {
		r.flipped[i] = !r.flipped[i]
		r.renderFlashcards()
	})
	r.flashList.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		switch ev.Rune() {
		case 's':
			r.dispatch(func(c Controller) { c.OnShuffleFlashcards() })
			return nil
		case 't':
			r.flashTopic = (r.flashTopic + 1) % len(flashTopics)
			topic := flashTopics[r.flashTopic]
			r.dispatch(func(c Controller) { c.OnOpenFlashcards(topic) })
			return nil
		}
		return ev
	})
	r.pages.AddPage("flashcards", r.flashList, true, false)
}

func (r *Root) SetFlashcards(cards []FlashcardRow) {
	r.cards = cards
	r.flipped = map[int]bool{}
	r.renderFlashcards()
}

func (r *Root) renderFlashcards() {
	idx := r.flashList.GetCurrentItem()
	r.flashList.Clear()
	for i, card := range r.cards {
		text := card.Front
		secondary := "···"
		if r.flipped[i] {
			secondary = card.Back
		}
		r.flashList.AddItem(text, secondary, 0, nil)
	}
	if len(r.cards) == 0 {
		r.flashList.AddItem("No cards for this topic", "", 0, nil)
	} else if idx >= 0 && idx < len(r.cards) {
		r.flashList.SetCurrentItem(idx)
	}
}

func (r *Root) buildGamesMenu() {
	r.gamesMenu = tview.NewList().ShowSecondaryText(true)
	r.gamesMenu.SetBorder(true).SetTitle(" Games ")
	add := func(label, desc, variant string, key rune) {
		r.gamesMenu.AddItem(label, desc, key, func() {
			r.dispatch(func(c Controller) { c.OnStartGame(variant) })
		})
	}
	add("Multiple choice", "emotion, region, or usage questions", "mcq", '1')
	add("Match pairs", "pair each maqam with its trait", "matching", '2')
	add("Name that maqam", "recognize a recording", "audio", '3')
	add("Clue by clue", "deduce the maqam from clues", "clue", '4')
	add("Order the notes", "rebuild the scale in sequence", "order", '5')
	r.pages.AddPage("games", r.gamesMenu, true, false)
}

func (r *Root) buildGame() {
	r.gamePrompt = tview.NewTextView().SetDynamicColors(true)
	r.gamePrompt.SetBorder(true)
	r.gameChoices = tview.NewList().ShowSecondaryText(false)
	r.gameChoices.SetSelectedFunc(func(i int, main, _ string, _ rune) {
		g := r.game
		if g.Graded || g.Done {
			return
		}
		if len(g.ChoiceIDs) > i {
			id := g.ChoiceIDs[i]
			r.dispatch(func(c Controller) { c.OnGameAnswer(id) })
			return
		}
		r.dispatch(func(c Controller) { c.OnGameAnswer(main) })
	})
	r.gameInput = tview.NewInputField().SetLabel("Your guess: ").SetFieldWidth(30)
	r.gameInput.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			guess := r.gameInput.GetText()
			r.dispatch(func(c Controller) { c.OnGameAnswer(guess) })
		}
	})
	r.gameFlex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(r.gamePrompt, 0, 2, false).
		AddItem(r.gameChoices, 0, 3, true)
	r.gameFlex.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		g := r.game
		// Checked before the input passthrough so it works while typing.
		if ev.Key() == tcell.KeyCtrlR && g.Variant == "clue" && !g.Graded && !g.Done && !g.Revealed {
			r.dispatch(func(c Controller) { c.OnGameSkip() })
			return nil
		}
		if r.app.GetFocus() == r.gameInput && !g.Graded && !g.Done {
			return ev
		}
		switch ev.Rune() {
		case 's':
			if !g.Graded && !g.Done && !g.Revealed {
				r.dispatch(func(c Controller) { c.OnGameSkip() })
				return nil
			}
		case 'r':
			if g.Graded && !g.LastOK {
				r.dispatch(func(c Controller) { c.OnGameRetry() })
				return nil
			}
		case 'n':
			if g.Graded || g.Done {
				r.dispatch(func(c Controller) { c.OnGameNext() })
				return nil
			}
		}
		if g.Variant == "order" && !g.Graded && !g.Done {
			idx := r.gameChoices.GetCurrentItem()
			switch ev.Rune() {
			case 'K':
				if idx > 0 {
					r.dispatch(func(c Controller) { c.OnOrderMove(idx, idx-1) })
					r.gameChoices.SetCurrentItem(idx - 1)
				}
				return nil
			case 'J':
				if idx < len(g.Notes)-1 {
					r.dispatch(func(c Controller) { c.OnOrderMove(idx, idx+1) })
					r.gameChoices.SetCurrentItem(idx + 1)
				}
				return nil
			}
			if ev.Key() == tcell.KeyEnter {
				r.dispatch(func(c Controller) { c.OnOrderSubmit() })
				return nil
			}
		}
		return ev
	})
	r.pages.AddPage("game", r.gameFlex, true, false)
}

func (r *Root) SetGame(g GameState) {
	r.game = g
	var b strings.Builder
	fmt.Fprintf(&b, "[gray]%d of %d  ·  %d correct[-]\n\n", g.Index+1, g.Total, g.Correct)
	if g.Done {
		fmt.Fprintf(&b, "[::b]Round complete.[-:-:-]\n\nYou got %d of %d.\n\n[gray]n plays again, Esc returns home[-]", g.Correct, g.Total)
		r.gamePrompt.SetText(b.String())
		r.gameChoices.Clear()
		return
	}
	if g.Prompt != "" {
		b.WriteString(g.Prompt + "\n")
	}
	if g.AudioURL != "" {
		fmt.Fprintf(&b, "\n[gray]recording: %s[-]\n", g.AudioURL)
	}
	for i, clue := range g.Clues {
		fmt.Fprintf(&b, "\nClue %d: %s", i+1, clue)
	}
	if g.Graded {
		if g.LastOK {
			b.WriteString("\n\n[green]Correct![-]  [gray]n continues[-]")
		} else {
			verdict := "\n\n[red]Not quite.[-]"
			if g.Answer != "" {
				verdict += fmt.Sprintf("  The answer was [::b]%s[-:-:-].", g.Answer)
			}
			b.WriteString(verdict + "  [gray]r retries, n moves on[-]")
		}
	} else if g.Revealed {
		fmt.Fprintf(&b, "\n\n[yellow]The answer was [::b]%s[-:-:-].", g.Answer)
	} else if g.Variant == "order" {
		b.WriteString("\n[gray]Shift+J / Shift+K move the note, Enter submits, s skips[-]")
	} else if g.Variant == "clue" {
		b.WriteString("\n[gray]Ctrl+R reveals the answer and moves on[-]")
	} else {
		b.WriteString("\n[gray]s skips[-]")
	}
	r.gamePrompt.SetTitle(fmt.Sprintf(" %s ", gameTitle(g.Variant)))
	r.gamePrompt.SetText(b.String())

	r.gameFlex.Clear()
	r.gameFlex.AddItem(r.gamePrompt, 0, 2, false)
	if g.Variant == "clue" && !g.Revealed {
		r.gameInput.SetText("")
		r.gameFlex.AddItem(r.gameInput, 1, 0, true)
	} else {
		r.gameChoices.Clear()
		if g.Variant == "order" {
			for _, n := range g.Notes {
				r.gameChoices.AddItem(n, "", 0, nil)
			}
		} else {
			for _, choice := range g.Choices {
				r.gameChoices.AddItem(choice, "", 0, nil)
			}
		}
		r.gameFlex.AddItem(r.gameChoices, 0, 3, true)
	}
	r.app.SetFocus(r.focusFor(ScreenGame))
}

func gameTitle(variant string) string {
	switch variant {
	case "mcq":
		return "Multiple choice"
	case "audio":
		return "Name that maqam"
	case "clue":
		return "Clue by clue"
	case "order":
		return "Order the notes"
	}
	return variant
}

func (r *Root) buildMatching() {
	r.matchLeft = tview.NewList().ShowSecondaryText(false)
	r.matchLeft.SetBorder(true).SetTitle(" Maqam ")
	r.matchRight = tview.NewList().ShowSecondaryText(false)
	r.matchRight.SetBorder(true).SetTitle(" Trait ")
	r.matchInfo = tview.NewTextView().SetDynamicColors(true)

	r.matchLeft.SetSelectedFunc(func(i int, _, _ string, _ rune) {
		if i < len(r.matching.Left) {
			id := r.matching.Left[i].ID
			r.dispatch(func(c Controller) { c.OnMatchSelectLeft(id) })
		}
	})
	r.matchRight.SetSelectedFunc(func(i int, _, _ string, _ rune) {
		if i < len(r.matching.Right) {
			idx := r.matching.Right[i].Index
			r.dispatch(func(c Controller) { c.OnMatchSelectRight(idx) })
		}
	})

	cols := tview.NewFlex().
		AddItem(r.matchLeft, 0, 1, true).
		AddItem(r.matchRight, 0, 1, false)
	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(cols, 0, 1, true).
		AddItem(r.matchInfo, 2, 0, false)
	flex.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		switch ev.Rune() {
		case 'c':
			r.dispatch(func(c Controller) { c.OnMatchCommit() })
			return nil
		case 'x':
			r.dispatch(func(c Controller) { c.OnMatchReset() })
			return nil
		case 'g':
			r.dispatch(func(c Controller) { c.OnMatchGrade() })
			return nil
		}
		if ev.Key() == tcell.KeyTab {
			if r.app.GetFocus() == r.matchLeft {
				r.app.SetFocus(r.matchRight)
			} else {
				r.app.SetFocus(r.matchLeft)
			}
			return nil
		}
		return ev
	})
	r.pages.AddPage("matching", flex, true, false)
}

func (r *Root) SetMatching(m MatchingView) {
	r.matching = m
	fill := func(list *tview.List, pills []MatchPill) {
		idx := list.GetCurrentItem()
		list.Clear()
		for _, p := range pills {
			label := p.Label
			if p.Color >= 0 {
				label = fmt.Sprintf("[%s]%s[-]", PairTag(p.Color), label)
			}
			if p.Selected {
				label = "> " + label
			}
			list.AddItem(label, "", 0, nil)
		}
		if idx >= 0 && idx < len(pills) {
			list.SetCurrentItem(idx)
		}
	}
	fill(r.matchLeft, m.Left)
	fill(r.matchRight, m.Right)

	if m.Graded {
		r.matchInfo.SetText(fmt.Sprintf("[::b]%d%%[-:-:-]  %d of %d pairs correct.  x restarts, Esc returns home", m.Percent, m.Correct, m.Total))
		return
	}
	r.matchInfo.SetText(fmt.Sprintf("%d of %d pairs committed.  Tab switches column, c commits, x resets, g grades", m.Committed, m.Total))
}

func (r *Root) buildExam() {
	r.examText = tview.NewTextView().SetDynamicColors(true)
	r.examText.SetBorder(true).SetTitle(" Mastery exam ")
	r.examList = tview.NewList().ShowSecondaryText(false)
	r.examList.SetSelectedFunc(func(i int, main, _ string, _ rune) {
		idx := r.exam.Current
		answer := main
		r.dispatch(func(c Controller) { c.OnExamAnswer(idx, &answer) })
	})
	r.examInput = tview.NewInputField().SetLabel("Answer: ").SetFieldWidth(30)
	r.examInput.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		idx := r.exam.Current
		text := r.examInput.GetText()
		r.dispatch(func(c Controller) { c.OnExamAnswer(idx, &text) })
	})
	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(r.examText, 0, 2, false).
		AddItem(r.examInput, 1, 0, false).
		AddItem(r.examList, 0, 3, true)
	flex.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if r.app.GetFocus() == r.examInput {
			if ev.Key() == tcell.KeyTab {
				r.stepExam(1)
				return nil
			}
			return ev
		}
		switch ev.Rune() {
		case 'n':
			r.stepExam(1)
			return nil
		case 'p':
			r.stepExam(-1)
			return nil
		case 'S':
			r.dispatch(func(c Controller) { c.OnSubmitExam() })
			return nil
		}
		return ev
	})
	r.pages.AddPage("exam", flex, true, false)

	r.examResult = tview.NewTextView().SetDynamicColors(true)
	r.examResult.SetBorder(true).SetTitle(" Exam result ")
	r.pages.AddPage("examresult", r.examResult, true, false)
}

func (r *Root) stepExam(delta int) {
	e := r.exam
	next := e.Current + delta
	if next < 0 || next >= len(e.Questions) {
		return
	}
	e.Current = next
	r.SetExam(e)
}

func (r *Root) SetExam(e ExamState) {
	r.exam = e
	if len(e.Questions) == 0 {
		r.examText.SetText("No exam in progress.")
		r.examList.Clear()
		return
	}
	r.renderExamText()

	q := e.Questions[e.Current]
	r.examList.Clear()
	if q.Type == "text" {
		r.examInput.SetText("")
		if a := e.Answers[e.Current]; a != nil {
			r.examInput.SetText(*a)
		}
		r.app.SetFocus(r.examInput)
		return
	}
	for _, choice := range q.Choices {
		r.examList.AddItem(choice, "", 0, nil)
	}
	r.app.SetFocus(r.examList)
}

func (r *Root) renderExamText() {
	e := r.exam
	q := e.Questions[e.Current]
	answered := 0
	for _, a := range e.Answers {
		if a != nil {
			answered++
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[yellow]%s left[-]   question %d of %d   %d answered\n\n",
		formatClock(e.Remaining), e.Current+1, len(e.Questions), answered)
	b.WriteString(q.Prompt)
	if a := e.Answers[e.Current]; a != nil {
		fmt.Fprintf(&b, "\n\nYour answer: [::b]%s[-:-:-]", *a)
	}
	b.WriteString("\n\n[gray]p/n navigate, Shift+S submits everything[-]")
	r.examText.SetText(b.String())
}

// SetExamClock refreshes only the countdown header, leaving the choice list
// and its focus alone. Called once per second while an exam runs.
func (r *Root) SetExamClock(remaining time.Duration) {
	if len(r.exam.Questions) == 0 {
		return
	}
	r.exam.Remaining = remaining
	r.renderExamText()
}

func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func (r *Root) SetExamResult(res ExamResultState) {
	var b strings.Builder
	fmt.Fprintf(&b, "[::b]Score: %.0f%%[-:-:-]  (%d of %d)\n\n", res.Score, res.Correct, res.Total)
	for i, d := range res.Details {
		mark := "[red]✗[-]"
		if r.ascii {
			mark = "[red]x[-]"
		}
		if d.IsCorrect {
			mark = "[green]✓[-]"
			if r.ascii {
				mark = "[green]+[-]"
			}
		}
		fmt.Fprintf(&b, "%s %d. %s\n", mark, i+1, d.Question)
		if !d.IsCorrect {
			ua := d.UserAnswer
			if ua == "" {
				ua = "(unanswered)"
			}
			fmt.Fprintf(&b, "   yours: %s   correct: %s\n", ua, d.CorrectAnswer)
		}
	}
	b.WriteString("\n[gray]Esc returns home[-]")
	r.examResult.SetText(b.String())
}

func (r *Root) buildBoards() {
	r.boardText = tview.NewTextView().SetDynamicColors(true)
	r.boardText.SetBorder(true).SetTitle(" Leaderboard ")
	r.pages.AddPage("leaderboard", r.boardText, true, false)

	r.recentText = tview.NewTextView().SetDynamicColors(true)
	r.recentText.SetBorder(true).SetTitle(" Recent activity ")
	r.pages.AddPage("recent", r.recentText, true, false)
}

func (r *Root) SetLeaderboard(rows []LeaderboardRow) {
	var b strings.Builder
	for _, row := range rows {
		fmt.Fprintf(&b, "%3d. %-24s best %5.1f%%  %d quizzes, %d activities\n",
			row.Rank, row.Name, row.BestScore, row.Quizzes, row.Activities)
	}
	if len(rows) == 0 {
		b.WriteString("The leaderboard is empty.")
	}
	r.boardText.SetText(b.String())
}

func (r *Root) SetRecent(rows []RecentRow) {
	var b strings.Builder
	for _, row := range rows {
		fmt.Fprintf(&b, "%s  [::b]%s[-:-:-]  %s\n", row.When, row.Activity, row.Maqam)
	}
	if len(rows) == 0 {
		b.WriteString("No activity yet. Play a game to get started.")
	}
	r.recentText.SetText(b.String())
}

func (r *Root) SetInfo(title, text string, open bool) {
	if !open {
		r.pages.HidePage("info")
		return
	}
	r.infoModal.SetText(title + "\n\n" + text)
	r.pages.ShowPage("info")
	r.app.SetFocus(r.infoModal)
}

func (r *Root) FlashStatus(msg string) {
	r.status.SetText(" " + tview.Escape(msg))
	if r.flashTimer != nil {
		r.flashTimer.Stop()
	}
	r.flashTimer = time.AfterFunc(4*time.Second, func() {
		r.QueueUpdate(func() { r.status.SetText("") })
	})
}
