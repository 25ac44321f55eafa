package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"

	"github.com/litscan/litscan/internal/model"
)

// rawRecord mirrors the JSON shape the model is instructed to return.
// Pointer fields distinguish "absent" from "empty".
type rawRecord struct {
	AuthorSurname *string `json:"author_surname"`
	AuthorInitial *string `json:"author_initial"`
	Year          *any    `json:"year"`
	Title         *string `json:"title"`
	Abstract      *string `json:"abstract"`
}

// parseRecord decodes the model's JSON response into a Record. Any missing
// field is a schema mismatch, not a partial success.
func parseRecord(text string) (*model.Record, error) {
	cleaned := cleanJSON(text)
	if cleaned == "" {
		return nil, eris.New("extract: empty response")
	}

	var raw rawRecord
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, eris.Wrap(err, "extract: decode response")
	}

	var missing []string
	if raw.AuthorSurname == nil {
		missing = append(missing, "author_surname")
	}
	if raw.AuthorInitial == nil {
		missing = append(missing, "author_initial")
	}
	if raw.Year == nil {
		missing = append(missing, "year")
	}
	if raw.Title == nil {
		missing = append(missing, "title")
	}
	if raw.Abstract == nil {
		missing = append(missing, "abstract")
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("extract: response missing fields: %s", strings.Join(missing, ", "))
	}

	return &model.Record{
		AuthorSurname: cleanField(*raw.AuthorSurname),
		AuthorInitial: cleanField(*raw.AuthorInitial),
		Year:          normalizeYear(*raw.Year),
		Title:         cleanField(*raw.Title),
		Abstract:      cleanField(*raw.Abstract),
	}, nil
}

// cleanField trims whitespace and applies NFC normalization. Author names in
// scanned papers often arrive with decomposed accents.
func cleanField(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// normalizeYear accepts a JSON number or string and returns a 4-digit year,
// or YearUnknown when the value does not parse. A bad year is never a reason
// to drop the record.
func normalizeYear(v any) int {
	var year int
	switch t := v.(type) {
	case float64:
		year = int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return model.YearUnknown
		}
		year = n
	default:
		return model.YearUnknown
	}

	if year < 1000 || year > 9999 {
		return model.YearUnknown
	}
	return year
}

// cleanJSON strips markdown fences and extracts the JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}
