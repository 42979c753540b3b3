package tenff

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/okian/autorole/internal/domain/profile"
)

// Languages whose graph maxima need special handling.
const (
	languageChineseSimplified  = 15
	languageChineseTraditional = 16
	languageJapanese           = 29

	multilingualLanguages = 10
	multilingualTests     = 50
)

// japaneseCutoff drops Japanese results from before the 2019 test rework.
var japaneseCutoff = time.Date(2019, time.February, 25, 0, 0, 0, 0, time.UTC)

// flexInt decodes integers that 10FF sends either as numbers or as strings.
type flexInt struct {
	value int
	set   bool
}

var _ json.Unmarshaler = (*flexInt)(nil)

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = flexInt{}
		return nil
	}
	s := strings.Trim(string(data), `"`)
	if s == "" {
		*f = flexInt{}
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", data)
	}
	*f = flexInt{value: int(v), set: true}
	return nil
}

// Int returns the value, 0 when absent.
func (f flexInt) Int() int { return f.value }

type graphPoint struct {
	Date         string  `json:"date"`
	Normal       flexInt `json:"g1"`
	Advanced     flexInt `json:"g2"`
	CorrectWords flexInt `json:"correct_words"`
}

type languageTests struct {
	Stats struct {
		Tests flexInt `json:"anzahl"`
	} `json:"0"`
}

type graphData struct {
	SpeedtestIDActive flexInt         `json:"speedtest_id_active"`
	MaxNorm           flexInt         `json:"max_norm"`
	MaxAdv            flexInt         `json:"max_adv"`
	GraphData         []graphPoint    `json:"graph_data"`
	LanguagesSorted   []languageTests `json:"languages_sorted"`
}

// maxima returns the best normal and advanced speeds for language.
func (g graphData) maxima(language int) (normal, advanced int) {
	switch language {
	case languageChineseSimplified, languageChineseTraditional:
		for _, p := range g.GraphData {
			if p.Normal.set && p.Normal.value != 0 {
				normal = max(normal, p.CorrectWords.Int())
			}
			if p.Advanced.set && p.Advanced.value != 0 {
				advanced = max(advanced, p.CorrectWords.Int())
			}
		}
		return normal, advanced
	case languageJapanese:
		for _, p := range g.GraphData {
			at, ok := parseGraphDate(p.Date)
			if !ok || !at.After(japaneseCutoff) {
				continue
			}
			normal = max(normal, p.Normal.Int())
			advanced = max(advanced, p.Advanced.Int())
		}
		return normal, advanced
	default:
		return g.MaxNorm.Int(), g.MaxAdv.Int()
	}
}

// multilingual reports at least 50 tests in at least 10 languages.
func (g graphData) multilingual() bool {
	n := 0
	for _, l := range g.LanguagesSorted {
		if l.Stats.Tests.Int() >= multilingualTests {
			n++
		}
	}
	return n >= multilingualLanguages
}

func parseGraphDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.DateTime, time.DateOnly} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type competitionView struct {
	Competition struct {
		SpeedtestID flexInt `json:"speedtest_id"`
	} `json:"Competition"`
}

// rankingWPM finds the wpm cell of profileID's row in a rankings fragment.
func rankingWPM(body []byte, profileID string) (int, bool, error) {
	if !bytes.Contains(bytes.ToLower(body), []byte("<table")) {
		body = append(append([]byte("<table>"), body...), []byte("</table>")...)
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return 0, false, fmt.Errorf("%w: competition rankings: %w", profile.ErrAcquisition, err)
	}

	row := findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "tr" && attr(n, "user_id") == profileID
	})
	if row == nil {
		return 0, false, nil
	}
	cell := findFirst(row, func(n *html.Node) bool {
		return n.Type == html.ElementNode && hasClass(n, "wpm")
	})
	if cell == nil {
		return 0, false, nil
	}
	wpm := leadingInt(text(cell))
	if wpm <= 0 {
		return 0, false, nil
	}
	return wpm, true, nil
}
