package ui

import "time"

type Controller interface {
	OnOpenDashboard()
	OnOpenArchive()
	OnSearchMaqam(query string)
	OnFilterRegion(region string)
	OnSelectMaqam(id int64)
	OnDeleteMaqam(id int64)
	OnSaveMaqam(id int64, fields map[string]string)

	OnOpenContribute(maqamID int64)
	OnSubmitContribution(maqamID int64, ctype, title, details, source, audioName string, audio []byte)
	OnOpenProposeMaqam()
	OnProposeMaqam(fields map[string]string, audioName string, audio []byte)

	OnOpenAnalysis()
	OnAnalyzeNotes(notes []string, mood string)
	OnAnalyzeAudio(fileName string)
	OnOpenRecommend()
	OnRecommend(moods, regions []string, difficulty string)
	OnOpenFlashcards(topic string)
	OnShuffleFlashcards()

	OnOpenGames()
	OnStartGame(variant string)
	OnGameAnswer(answer any)
	OnGameSkip()
	OnGameRetry()
	OnGameNext()
	OnOrderMove(from, to int)
	OnOrderSubmit()

	OnMatchSelectLeft(id int64)
	OnMatchSelectRight(index int)
	OnMatchCommit()
	OnMatchReset()
	OnMatchGrade()

	OnStartExam(lang string)
	OnExamAnswer(index int, answer *string)
	OnSubmitExam()
	OnAbandonExam()

	OnOpenLeaderboard()
	OnOpenRecent()
	OnQuit()
}

type View interface {
	Run() error
	Stop()
	SetController(Controller)
	SetScreen(Screen)
	SetDashboard(DashboardState)
	SetArchive(ArchiveState)
	SetMaqamDetail(MaqamDetail)
	OpenContribute(maqamID int64, maqamName string)
	OpenPropose()
	SetAnalysis(AnalysisState)
	SetRecommendations([]RecommendationRow)
	SetFlashcards([]FlashcardRow)
	SetGame(GameState)
	SetMatching(MatchingView)
	SetExam(ExamState)
	SetExamClock(remaining time.Duration)
	SetExamResult(ExamResultState)
	SetLeaderboard([]LeaderboardRow)
	SetRecent([]RecentRow)
	SetInfo(title, text string, open bool)
	FlashStatus(msg string)
	QueueUpdate(fn func())
}

type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenArchive
	ScreenMaqamDetail
	ScreenContribute
	ScreenPropose
	ScreenAnalysis
	ScreenRecommend
	ScreenFlashcards
	ScreenGamesMenu
	ScreenGame
	ScreenMatching
	ScreenExam
	ScreenExamResult
	ScreenLeaderboard
	ScreenRecent
)

type DashboardState struct {
	Online     bool
	MaqamCount int
	Role       string
	Subject    string
	GameRuns   int
	Completed  int
	Correct    int
	Answered   int
}

type ArchiveState struct {
	Region  string
	Query   string
	CanEdit bool
	Rows    []MaqamRow
}

type MaqamRow struct {
	ID      int64
	Name    string
	Emotion string
	Rarity  string
}

type MaqamDetail struct {
	ID          int64
	Name        string
	NameAR      string
	Description string
	Regions     []string
	Emotion     string
	Usage       string
	Difficulty  string
	Rarity      string
	Periods     []string
	Seasonal    string
	Ajnas       []AjnasRow
	AudioCount  int
	CanEdit     bool
}

type AjnasRow struct {
	Name  string
	Notes []string
}

type AnalysisState struct {
	Candidates []CandidateRow
	Summary    string
}

type CandidateRow struct {
	Name  string
	Score float64
}

type RecommendationRow struct {
	Name   string
	Reason string
}

type FlashcardRow struct {
	Front string
	Back  string
}

// GameState renders the stepped variants. Matching has its own state.
type GameState struct {
	Variant   string
	Prompt    string
	Choices   []string
	ChoiceIDs []int64
	Clues     []string
	Notes     []string
	AudioURL  string
	Index     int
	Total     int
	Correct   int
	Graded    bool
	LastOK    bool
	Answer    string
	Revealed  bool
	Done      bool
}

type MatchingView struct {
	Topic     string
	Left      []MatchPill
	Right     []MatchPill
	Committed int
	Total     int
	Graded    bool
	Correct   int
	Percent   int
}

// MatchPill is one selectable endpoint. Color indexes the pair palette; -1
// means uncommitted.
type MatchPill struct {
	ID       int64
	Index    int
	Label    string
	Selected bool
	Color    int
}

type ExamState struct {
	QuizID    string
	Questions []ExamQuestionRow
	Answers   []*string
	Remaining time.Duration
	Current   int
}

type ExamQuestionRow struct {
	Prompt  string
	Type    string
	Choices []string
}

type ExamResultState struct {
	Score   float64
	Correct int
	Total   int
	Details []ExamDetailRow
}

type ExamDetailRow struct {
	Question      string
	UserAnswer    string
	IsCorrect     bool
	CorrectAnswer string
}

type LeaderboardRow struct {
	Rank       int
	Name       string
	BestScore  float64
	Quizzes    int
	Activities int
}

type RecentRow struct {
	When     string
	Activity string
	Maqam    string
}
