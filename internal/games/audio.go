package games

import "math/rand"

// AudioChoice is one identity offered for a track.
type AudioChoice struct {
	ID   int64
	Name string
}

// AudioItem is one ear-training challenge: a track plus four identity
// choices, one of which is the track itself.
type AudioItem struct {
	TrackID  int64
	Name     string
	AudioURL string
	Choices  []AudioChoice
}

func (i AudioItem) SubjectID() int64 { return i.TrackID }

// BuildAudioItems turns a track catalog into challenges. Each item's
// distractors are 3 identities sampled uniformly without replacement from
// the remaining tracks; with fewer than 4 tracks, every identity is offered.
func BuildAudioItems(rng *rand.Rand, tracks []AudioChoiceTrack) []AudioItem {
	out := make([]AudioItem, 0, len(tracks))
	for _, t := range tracks {
		others := make([]AudioChoice, 0, len(tracks)-1)
		for _, o := range tracks {
			if o.ID != t.ID {
				others = append(others, AudioChoice{ID: o.ID, Name: o.Name})
			}
		}
		distractors := sampleChoices(rng, others, 3)
		choices := append(distractors, AudioChoice{ID: t.ID, Name: t.Name})
		rng.Shuffle(len(choices), func(i, j int) { choices[i], choices[j] = choices[j], choices[i] })
		out = append(out, AudioItem{
			TrackID:  t.ID,
			Name:     t.Name,
			AudioURL: t.AudioURL,
			Choices:  choices,
		})
	}
	return out
}

// AudioChoiceTrack is the wire shape of one track as games needs it.
type AudioChoiceTrack struct {
	ID       int64
	Name     string
	AudioURL string
}

// NewAudioSession grades by identity: the selected choice id must equal the
// item's track id.
func NewAudioSession(items []AudioItem, report ReportFunc) *Session {
	wrapped := make([]Item, 0, len(items))
	for _, it := range items {
		wrapped = append(wrapped, it)
	}
	grade := func(item Item, answer any) bool {
		a, ok := item.(AudioItem)
		if !ok {
			return false
		}
		sel, ok := answer.(int64)
		return ok && sel == a.TrackID
	}
	return NewSession("audio", "audio_mcq", wrapped, grade, report)
}

func sampleChoices(rng *rand.Rand, pool []AudioChoice, k int) []AudioChoice {
	if k >= len(pool) {
		out := make([]AudioChoice, len(pool))
		copy(out, pool)
		return out
	}
	idx := rng.Perm(len(pool))[:k]
	out := make([]AudioChoice, 0, k)
	for _, i := range idx {
		out = append(out, pool[i])
	}
	return out
}
