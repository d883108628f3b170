// Package knowledge holds the canonical client-side model of the archive.
// The API serves bilingual fields in several historical shapes: nested
// {"en":..,"ar":..} objects, flat *_en/*_ar pairs, and *_json string columns.
// Everything is normalized here, at the boundary, into one representation so
// the rest of the client never sees the ambiguity.
package knowledge

import (
	"encoding/json"
	"strings"
)

// BiText is a bilingual string.
type BiText struct {
	EN string
	AR string
}

// BiList is a bilingual string list.
type BiList struct {
	EN []string
	AR []string
}

type Jins struct {
	Name  BiText
	Notes BiList
}

type Maqam struct {
	ID                int64
	Name              BiText
	Description       BiText
	Regions           BiList
	Emotion           BiText
	Usage             BiList
	DifficultyLabel   string
	Rarity            BiText
	HistoricalPeriods BiList
	SeasonalUsage     BiList
	Ajnas             []Jins
	AudioURLs         []string
	AudioIDs          []int64
}

func (m *Maqam) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID int64 `json:"id"`

		Name   json.RawMessage `json:"name"`
		NameEN string          `json:"name_en"`
		NameAR string          `json:"name_ar"`

		Descriptions  json.RawMessage `json:"descriptions"`
		Description   json.RawMessage `json:"description"`
		DescriptionEN string          `json:"description_en"`
		DescriptionAR string          `json:"description_ar"`

		Regions     json.RawMessage `json:"regions"`
		RegionsJSON string          `json:"regions_json"`

		Emotion   json.RawMessage `json:"emotion"`
		EmotionAR string          `json:"emotion_ar"`

		Usage   json.RawMessage `json:"usage"`
		UsageAR json.RawMessage `json:"usage_ar"`

		DifficultyLabel json.RawMessage `json:"difficulty_label"`

		RarityLevel   json.RawMessage `json:"rarity_level"`
		RarityLevelAR string          `json:"rarity_level_ar"`

		HistoricalPeriods       json.RawMessage `json:"historical_periods"`
		HistoricalPeriodsJSON   string          `json:"historical_periods_json"`
		HistoricalPeriodsARJSON string          `json:"historical_periods_ar_json"`

		SeasonalUsage       json.RawMessage `json:"seasonal_usage"`
		SeasonalUsageJSON   string          `json:"seasonal_usage_json"`
		SeasonalUsageARJSON string          `json:"seasonal_usage_ar_json"`

		Ajnas []struct {
			Name  json.RawMessage `json:"name"`
			Notes json.RawMessage `json:"notes"`
		} `json:"ajnas"`

		AudioURLs []string `json:"audio_urls"`
		AudioIDs  []int64  `json:"audio_ids"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.ID = raw.ID

	m.Name = decodeText(raw.Name)
	m.Name = coalesceText(m.Name, raw.NameEN, raw.NameAR)

	m.Description = decodeText(raw.Descriptions)
	if m.Description == (BiText{}) {
		m.Description = decodeText(raw.Description)
	}
	m.Description = coalesceText(m.Description, raw.DescriptionEN, raw.DescriptionAR)

	m.Regions = decodeList(raw.Regions)
	if len(m.Regions.EN) == 0 && raw.RegionsJSON != "" {
		m.Regions.EN = decodeJSONList(raw.RegionsJSON)
	}

	m.Emotion = decodeText(raw.Emotion)
	m.Emotion = coalesceText(m.Emotion, "", raw.EmotionAR)

	m.Usage = decodeList(raw.Usage)
	if len(m.Usage.AR) == 0 {
		m.Usage.AR = decodeList(raw.UsageAR).EN
	}

	m.DifficultyLabel = decodeText(raw.DifficultyLabel).EN

	m.Rarity = decodeText(raw.RarityLevel)
	m.Rarity = coalesceText(m.Rarity, "", raw.RarityLevelAR)

	m.HistoricalPeriods = decodeList(raw.HistoricalPeriods)
	if raw.HistoricalPeriodsJSON != "" {
		m.HistoricalPeriods.EN = decodeJSONList(raw.HistoricalPeriodsJSON)
	}
	if raw.HistoricalPeriodsARJSON != "" {
		m.HistoricalPeriods.AR = decodeJSONList(raw.HistoricalPeriodsARJSON)
	}

	m.SeasonalUsage = decodeList(raw.SeasonalUsage)
	if raw.SeasonalUsageJSON != "" {
		m.SeasonalUsage.EN = decodeJSONList(raw.SeasonalUsageJSON)
	}
	if raw.SeasonalUsageARJSON != "" {
		m.SeasonalUsage.AR = decodeJSONList(raw.SeasonalUsageARJSON)
	}

	m.Ajnas = nil
	for _, a := range raw.Ajnas {
		m.Ajnas = append(m.Ajnas, Jins{Name: decodeText(a.Name), Notes: decodeList(a.Notes)})
	}

	m.AudioURLs = raw.AudioURLs
	m.AudioIDs = raw.AudioIDs
	return nil
}

// DecodeOneOrMany accepts either a single entity or a list, as the knowledge
// endpoints return both shapes.
func DecodeOneOrMany(data []byte) ([]Maqam, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var out []Maqam
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	var one Maqam
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, err
	}
	return []Maqam{one}, nil
}

func decodeText(raw json.RawMessage) BiText {
	if len(raw) == 0 {
		return BiText{}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return BiText{EN: s}
	}
	var obj struct {
		EN string `json:"en"`
		AR string `json:"ar"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return BiText{EN: obj.EN, AR: obj.AR}
	}
	return BiText{}
}

func coalesceText(t BiText, en, ar string) BiText {
	if t.EN == "" {
		t.EN = en
	}
	if t.AR == "" {
		t.AR = ar
	}
	return t
}

func decodeList(raw json.RawMessage) BiList {
	if len(raw) == 0 {
		return BiList{}
	}
	var flat []string
	if err := json.Unmarshal(raw, &flat); err == nil {
		return BiList{EN: flat}
	}
	var obj struct {
		EN []string `json:"en"`
		AR []string `json:"ar"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return BiList{EN: obj.EN, AR: obj.AR}
	}
	// A bare string is treated as a one-element list.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return BiList{EN: []string{s}}
	}
	return BiList{}
}

func decodeJSONList(s string) []string {
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
