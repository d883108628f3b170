package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"maqamlab/internal/knowledge"
)

type Status struct {
	MaqametCount       int `json:"maqamet_count"`
	ContributionsCount int `json:"contributions_count"`
}

func (c *Client) Status(ctx context.Context) (Status, error) {
	var out Status
	err := c.Call(ctx, http.MethodGet, "/status", nil, &out)
	return out, err
}

// ListMaqamat lists archive entries, optionally filtered by region.
func (c *Client) ListMaqamat(ctx context.Context, region string) ([]knowledge.Maqam, error) {
	path := "/knowledge/maqam"
	if region != "" {
		path += "?region=" + url.QueryEscape(region)
	}
	var raw json.RawMessage
	if err := c.Call(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return knowledge.DecodeOneOrMany(raw)
}

func (c *Client) GetMaqam(ctx context.Context, id int64) (knowledge.Maqam, error) {
	var out knowledge.Maqam
	err := c.Call(ctx, http.MethodGet, fmt.Sprintf("/knowledge/maqam/%d", id), nil, &out)
	return out, err
}

func (c *Client) SearchMaqamByName(ctx context.Context, q string) ([]knowledge.Maqam, error) {
	var raw json.RawMessage
	path := "/knowledge/maqam/by-name/" + url.PathEscape(q)
	if err := c.Call(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return knowledge.DecodeOneOrMany(raw)
}

// MaqamUpdate uses the flat field variant; the server accepts both.
type MaqamUpdate struct {
	NameEN        string `json:"name_en"`
	NameAR        string `json:"name_ar"`
	DescriptionEN string `json:"description_en"`
	DescriptionAR string `json:"description_ar"`
}

func (c *Client) UpdateMaqam(ctx context.Context, id int64, upd MaqamUpdate) error {
	return c.Call(ctx, http.MethodPut, fmt.Sprintf("/knowledge/maqam/%d", id), upd, nil)
}

func (c *Client) DeleteMaqam(ctx context.Context, id int64) error {
	return c.Call(ctx, http.MethodDelete, fmt.Sprintf("/knowledge/maqam/%d", id), nil, nil)
}

// MaqamProposal is a community submission of a new archive entry. It waits
// for curator review server-side and never appears in listings directly.
type MaqamProposal struct {
	NameEN        string   `json:"name_en"`
	NameAR        string   `json:"name_ar,omitempty"`
	DescriptionEN string   `json:"description_en,omitempty"`
	EmotionEN     string   `json:"emotion_en,omitempty"`
	Regions       []string `json:"regions,omitempty"`
	Notes         []string `json:"notes,omitempty"`
}

// ProposeMaqam posts a new-maqam proposal, as JSON or as multipart when a
// reference recording accompanies it.
func (c *Client) ProposeMaqam(ctx context.Context, p MaqamProposal, audioName string, audio []byte) error {
	if len(audio) == 0 {
		return c.Call(ctx, http.MethodPost, "/knowledge/maqam", p, nil)
	}
	encoded, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding proposal: %w", err)
	}
	return c.Call(ctx, http.MethodPost, "/knowledge/maqam", &Multipart{
		Fields:   map[string]string{"maqam": string(encoded)},
		FileName: audioName,
		FilePart: "audio",
		File:     audio,
	}, nil)
}

// ContributionPayload is the free-form detail block of a contribution.
type ContributionPayload struct {
	Title   string `json:"title"`
	Details string `json:"details"`
	Source  string `json:"source,omitempty"`
}

// SubmitContribution posts a contribution as JSON, or as multipart when an
// audio file accompanies it (payload serialized into the form field, file in
// the "audio" part).
func (c *Client) SubmitContribution(ctx context.Context, maqamID int64, ctype string, payload ContributionPayload, audioName string, audio []byte) error {
	path := fmt.Sprintf("/knowledge/maqam/%d/contributions", maqamID)
	if len(audio) == 0 {
		body := struct {
			Type    string              `json:"type"`
			Payload ContributionPayload `json:"payload"`
		}{Type: ctype, Payload: payload}
		return c.Call(ctx, http.MethodPost, path, body, nil)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	return c.Call(ctx, http.MethodPost, path, &Multipart{
		Fields:   map[string]string{"type": ctype, "payload": string(encoded)},
		FileName: audioName,
		FilePart: "audio",
		File:     audio,
	}, nil)
}

type Candidate struct {
	Maqam        string   `json:"maqam"`
	Confidence   float64  `json:"confidence"`
	Reason       string   `json:"reason"`
	Evidence     []string `json:"evidence"`
	MatchedNotes []string `json:"matched_notes"`
}

type NotesAnalysis struct {
	Candidates []Candidate `json:"candidates"`
}

func (c *Client) AnalyzeNotes(ctx context.Context, notes []string, mood string) (NotesAnalysis, error) {
	body := struct {
		Notes        []string `json:"notes"`
		OptionalMood string   `json:"optional_mood,omitempty"`
	}{Notes: notes, OptionalMood: mood}
	var out NotesAnalysis
	err := c.Call(ctx, http.MethodPost, "/analysis/notes", body, &out)
	return out, err
}

type AudioAnalysis struct {
	ExtractedNotes []string    `json:"extracted_notes"`
	Candidates     []Candidate `json:"candidates"`
	Warning        string      `json:"warning"`
}

func (c *Client) AnalyzeAudio(ctx context.Context, fileName string, audio []byte) (AudioAnalysis, error) {
	var out AudioAnalysis
	err := c.Call(ctx, http.MethodPost, "/analysis/audio", &Multipart{
		FileName: fileName,
		FilePart: "audio",
		File:     audio,
	}, &out)
	return out, err
}

type RecommendationQuery struct {
	Mood               string `json:"mood,omitempty"`
	Event              string `json:"event,omitempty"`
	Region             string `json:"region,omitempty"`
	TimePeriod         string `json:"time_period,omitempty"`
	PreserveHeritage   bool   `json:"preserve_heritage"`
	SimpleForBeginners bool   `json:"simple_for_beginners"`
}

type Recommendation struct {
	Maqam      string  `json:"maqam"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

func (c *Client) Recommend(ctx context.Context, q RecommendationQuery) ([]Recommendation, error) {
	var out struct {
		Recommendations []Recommendation `json:"recommendations"`
	}
	err := c.Call(ctx, http.MethodPost, "/recommendations/maqam", q, &out)
	return out.Recommendations, err
}

// Flashcard fields vary by topic; unused ones stay empty.
type Flashcard struct {
	NameEN       string   `json:"name_en"`
	EmotionEN    string   `json:"emotion_en"`
	UsageEN      string   `json:"usage_en"`
	RegionsEN    []string `json:"regions_en"`
	FirstJinsEN  string   `json:"first_jins_en"`
	SecondJinsEN string   `json:"second_jins_en"`
	Back         string   `json:"back"`
}

func (c *Client) Flashcards(ctx context.Context, topic string) ([]Flashcard, error) {
	var out struct {
		Cards []Flashcard `json:"cards"`
	}
	err := c.Call(ctx, http.MethodGet, "/learning/flashcards?topic="+url.QueryEscape(topic), nil, &out)
	return out.Cards, err
}

type ExamQuestion struct {
	Index   int      `json:"index"`
	Type    string   `json:"type"` // "mcq" or "text"
	Prompt  string   `json:"prompt"`
	Choices []string `json:"choices,omitempty"`
}

type ExamPaper struct {
	QuizID    string         `json:"quiz_id"`
	Questions []ExamQuestion `json:"questions"`
}

func (c *Client) QuizStart(ctx context.Context, lang string) (ExamPaper, error) {
	body := struct {
		Lang string `json:"lang"`
	}{Lang: lang}
	var out ExamPaper
	err := c.Call(ctx, http.MethodPost, "/learning/quiz/start", body, &out)
	return out, err
}

type ExamDetail struct {
	Question      string  `json:"question"`
	UserAnswer    *string `json:"user_answer"`
	IsCorrect     bool    `json:"is_correct"`
	CorrectAnswer string  `json:"correct_answer"`
}

type ExamResult struct {
	Score   float64      `json:"score"`
	Correct int          `json:"correct"`
	Total   int          `json:"total"`
	Details []ExamDetail `json:"details"`
}

// QuizAnswer submits the full answer set in one call. Unanswered questions
// are nil and serialize as JSON null.
func (c *Client) QuizAnswer(ctx context.Context, quizID string, answers []*string) (ExamResult, error) {
	body := struct {
		Answers []*string `json:"answers"`
	}{Answers: answers}
	var out ExamResult
	err := c.Call(ctx, http.MethodPost, "/learning/quiz/"+url.PathEscape(quizID)+"/answer", body, &out)
	return out, err
}

type MCQQuestion struct {
	Question string   `json:"question"`
	Choices  []string `json:"choices"`
	Answer   string   `json:"answer"`
	MaqamID  int64    `json:"maqam_id"`
}

func (c *Client) MCQStart(ctx context.Context, topic string) ([]MCQQuestion, error) {
	body := struct {
		Topic string `json:"topic"`
	}{Topic: topic}
	var out struct {
		Questions []MCQQuestion `json:"questions"`
	}
	err := c.Call(ctx, http.MethodPost, "/learning/quiz/mcq/start", body, &out)
	return out.Questions, err
}

type MatchingLeft struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type MatchingSolution struct {
	MaqamID int64  `json:"maqam_id"`
	Value   string `json:"value"`
}

type MatchingSet struct {
	Left     []MatchingLeft     `json:"left"`
	Right    []string           `json:"right"`
	Solution []MatchingSolution `json:"solution"`
}

func (c *Client) Matching(ctx context.Context, topic string) (MatchingSet, error) {
	var out MatchingSet
	err := c.Call(ctx, http.MethodGet, "/learning/matching?topic="+url.QueryEscape(topic), nil, &out)
	return out, err
}

type AudioTrack struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	AudioURL string `json:"audio_url"`
}

func (c *Client) AudioTracks(ctx context.Context) ([]AudioTrack, error) {
	var out struct {
		Tracks []AudioTrack `json:"tracks"`
	}
	err := c.Call(ctx, http.MethodGet, "/learning/audio-recognition/all", nil, &out)
	return out.Tracks, err
}

type CluePuzzle struct {
	MaqamID int64    `json:"maqam_id"`
	Clues   []string `json:"clues"`
	Answer  string   `json:"answer"`
}

func (c *Client) CluePuzzles(ctx context.Context) ([]CluePuzzle, error) {
	var out struct {
		Puzzles []CluePuzzle `json:"puzzles"`
	}
	err := c.Call(ctx, http.MethodGet, "/learning/clue-game/all", nil, &out)
	return out.Puzzles, err
}

type OrderPuzzle struct {
	MaqamID  int64    `json:"maqam_id"`
	Name     string   `json:"name"`
	Notes    []string `json:"notes"`
	Solution []string `json:"solution"`
}

func (c *Client) OrderPuzzles(ctx context.Context) ([]OrderPuzzle, error) {
	var out struct {
		Puzzles []OrderPuzzle `json:"puzzles"`
	}
	err := c.Call(ctx, http.MethodGet, "/learning/order-notes/all", nil, &out)
	return out.Puzzles, err
}

func (c *Client) CompleteActivity(ctx context.Context, maqamID int64, activity string) error {
	body := struct {
		MaqamID  int64  `json:"maqam_id"`
		Activity string `json:"activity"`
	}{MaqamID: maqamID, Activity: activity}
	return c.Call(ctx, http.MethodPost, "/learning/complete-activity", body, nil)
}

type LeaderboardEntry struct {
	UserID     string  `json:"user_id"`
	BestScore  float64 `json:"best_score"`
	Quizzes    int     `json:"quizzes"`
	Activities int     `json:"activities"`
}

func (c *Client) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	var out struct {
		Leaderboard []LeaderboardEntry `json:"leaderboard"`
	}
	err := c.Call(ctx, http.MethodGet, "/learning/leaderboard", nil, &out)
	return out.Leaderboard, err
}

type ActivityRecord struct {
	MaqamID   int64  `json:"maqam_id"`
	Activity  string `json:"activity"`
	CreatedAt string `json:"created_at"`
}

func (c *Client) ActivityLog(ctx context.Context) ([]ActivityRecord, error) {
	var out struct {
		Activities []ActivityRecord `json:"activities"`
	}
	err := c.Call(ctx, http.MethodGet, "/learning/activity-log", nil, &out)
	return out.Activities, err
}
