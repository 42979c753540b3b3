package tenff

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/net/html"

	"github.com/okian/autorole/internal/domain/model"
	"github.com/okian/autorole/internal/domain/profile"
)

const (
	achievementTranslator = 18
	achievementSupporter  = 48
)

// Rows of the profile data table, 1-based.
const (
	rowJoined            = 3
	rowTestsTaken        = 7
	rowCompetitionsTaken = 8
)

var achievementString = regexp.MustCompile(`var achievement_string =\s*"([\d,]+)"`)

// profilePage is what the public profile page tells about a user.
type profilePage struct {
	description       string
	testsTaken        int
	competitionsTaken int
	joined            time.Time // zero when unknown
	achievements      map[int]bool
}

func parseProfilePage(body []byte) (profilePage, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return profilePage{}, fmt.Errorf("%w: profile page: %w", profile.ErrAcquisition, err)
	}

	page := profilePage{achievements: make(map[int]bool)}
	if n := findByID(doc, "profile-description"); n != nil {
		page.description = text(n)
	}

	table := findByID(doc, "profile-data-table")
	if table == nil {
		return profilePage{}, fmt.Errorf("%w: profile data table not found", profile.ErrAcquisition)
	}
	rows := dataRows(table)
	if len(rows) < rowCompetitionsTaken {
		return profilePage{}, fmt.Errorf("%w: profile data table has %d rows", profile.ErrAcquisition, len(rows))
	}
	page.testsTaken = leadingInt(rows[rowTestsTaken-1])
	page.competitionsTaken = leadingInt(rows[rowCompetitionsTaken-1])
	page.joined = parseJoined(rows[rowJoined-1])

	if m := achievementString.FindSubmatch(body); m != nil {
		for _, s := range strings.Split(string(m[1]), ",") {
			if id, err := strconv.Atoi(s); err == nil {
				page.achievements[id] = true
			}
		}
	}
	return page, nil
}

// mentions reports whether the description carries the requester's tag or id.
func (p profilePage) mentions(r model.Requester) bool {
	if r.Tag != "" && strings.Contains(p.description, r.Tag) {
		return true
	}
	return r.MemberID != "" && strings.Contains(p.description, r.MemberID)
}

func (p profilePage) has(id int) bool { return p.achievements[id] }

func (p profilePage) hasAll(ids []int) bool {
	if len(p.achievements) == 0 {
		return false
	}
	for _, id := range ids {
		if !p.achievements[id] {
			return false
		}
	}
	return true
}

// findFirst returns the first node under n, n included, in document order
// that satisfies match.
func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func findByID(n *html.Node, id string) *html.Node {
	return findFirst(n, func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "id") == id
	})
}

// dataRows returns the text of the second cell of every row of table.
func dataRows(table *html.Node) []string {
	var rows []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			cells := 0
			value := ""
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					cells++
					if cells == 2 {
						value = text(c)
					}
				}
			}
			rows = append(rows, value)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)
	return rows
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

// leadingInt parses the number at the start of s, ignoring thousands
// separators. It returns 0 when s does not start with a digit.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == ',' || s[end] == '.') {
		end++
	}
	v, err := strconv.Atoi(separators.Replace(s[:end]))
	if err != nil {
		return 0
	}
	return v
}

var separators = strings.NewReplacer(",", "", ".", "")

var months = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// parseJoined reads a join date such as "on January 5th, 2015".
func parseJoined(s string) time.Time {
	if !strings.HasPrefix(strings.TrimSpace(s), "on ") {
		return time.Time{}
	}
	tokens := strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
	var (
		month     time.Month
		day, year int
	)
	for _, tok := range tokens {
		lower := strings.ToLower(tok)
		switch {
		case month == 0 && months[lower] != 0:
			month = months[lower]
		case month != 0 && day == 0:
			day = leadingInt(tok)
		case day != 0 && year == 0 && len(tok) == 4:
			year, _ = strconv.Atoi(tok)
		}
	}
	if month == 0 || day < 1 || day > 31 || year == 0 {
		return time.Time{}
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// accountAge is the number of full years since joined, capped.
func accountAge(joined, now time.Time) int {
	if joined.IsZero() || now.Before(joined) {
		return 0
	}
	years := now.Year() - joined.Year()
	if now.Month() < joined.Month() || (now.Month() == joined.Month() && now.Day() < joined.Day()) {
		years--
	}
	return min(years, model.MaxAccountAgeYears)
}
