package games

import "math/rand"

// MCQItem is one multiple-choice question.
type MCQItem struct {
	Prompt  string
	Choices []string
	Answer  string
	MaqamID int64
}

func (i MCQItem) SubjectID() int64 { return i.MaqamID }

// MCQTopics are the topics the quiz endpoint understands; one is picked at
// random per play-through.
var MCQTopics = []string{"emotion", "region", "usage"}

func RandomMCQTopic(rng *rand.Rand) string {
	return MCQTopics[rng.Intn(len(MCQTopics))]
}

// BonusQuestion is the fixed seasonal-usage question appended to every
// fetched multiple-choice catalog, independent of the server response.
func BonusQuestion(rng *rand.Rand) MCQItem {
	choices := []string{
		"Weddings in spring and summer",
		"Ramadan evenings",
		"No specific seasonal usage",
		"Love poetry evenings",
	}
	Shuffle(rng, choices)
	return MCQItem{
		Prompt:  "What is the seasonal usage of Al Ardhaoui?",
		Choices: choices,
		Answer:  "Weddings in spring and summer",
	}
}

// NewMCQSession grades by exact, case-sensitive string equality between the
// selection and the stored answer.
func NewMCQSession(items []MCQItem, topic string, report ReportFunc) *Session {
	wrapped := make([]Item, 0, len(items))
	for _, it := range items {
		wrapped = append(wrapped, it)
	}
	grade := func(item Item, answer any) bool {
		q, ok := item.(MCQItem)
		if !ok {
			return false
		}
		sel, ok := answer.(string)
		return ok && sel == q.Answer
	}
	return NewSession("mcq", "mcq_"+topic, wrapped, grade, report)
}

// Shuffle permutes s in place.
func Shuffle(rng *rand.Rand, s []string) {
	rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}
