// Package intake turns the free-text arguments of a role command into a
// validated request.
package intake

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/autorole/internal/domain/model"
)

// CommandRole is the command word of a role request.
const CommandRole = "role"

// Accepted ranges for explicit targets, upper bound exclusive.
const (
	MaxNormal   = 250
	MaxAdvanced = 220
)

// Usage is shown alongside every validation error.
const Usage = "Usage: role <profile url> [language] [normal wpm] [advanced wpm] [competition url]\n" +
	"Example: role https://10fastfingers.com/user/209050/ english 120 90\n" +
	"  gives the 120-129 WPM role in normal and the 90-99 WPM (Advanced) role in advanced.\n" +
	"Omit the language to use your primary language (first flag in your profile graph).\n" +
	"Omit the speeds to get the roles of your highest detected scores."

var (
	profileURL     = regexp.MustCompile(`^https://10fastfingers\.com/user/(\d+)/?$`)
	competitionURL = regexp.MustCompile(`^https://10fastfingers\.com/competition/([a-f0-9]+)/?$`)
	languageToken  = regexp.MustCompile(`^[a-zA-Z_]+$`)
	numberToken    = regexp.MustCompile(`^\d+$`)
)

// ValidationError names the argument that was rejected and why.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Arguments are the validated arguments of a role command.
type Arguments struct {
	ProfileURL     string
	ProfileID      string
	Language       string // lower-case language name, "" for the primary language
	LanguageID     int
	Normal         *int
	Advanced       *int
	CompetitionURL string
	CompetitionID  string
}

// Split separates a message into its command word and arguments.
func Split(content string) (string, []string) {
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

// Parse validates args against the grammar
// <profile url> [language] [normal] [advanced] [competition url], in any
// order. languages is indexed by language id.
func Parse(args []string, languages []string) (Arguments, error) {
	var a Arguments
	numbers := 0
	for _, arg := range args {
		switch {
		case profileURL.MatchString(arg):
			if a.ProfileURL != "" {
				return Arguments{}, &ValidationError{Field: "profile", Reason: "only one profile URL is allowed"}
			}
			a.ProfileURL = arg
			a.ProfileID = profileURL.FindStringSubmatch(arg)[1]
		case competitionURL.MatchString(arg):
			if a.CompetitionURL != "" {
				return Arguments{}, &ValidationError{Field: "competition", Reason: "only one competition URL is allowed"}
			}
			a.CompetitionURL = arg
			a.CompetitionID = competitionURL.FindStringSubmatch(arg)[1]
		case languageToken.MatchString(arg):
			if a.Language != "" {
				return Arguments{}, &ValidationError{Field: "language", Reason: "only one language is allowed"}
			}
			a.Language = strings.ToLower(arg)
		case numberToken.MatchString(arg):
			numbers++
			v, err := strconv.Atoi(arg)
			if err != nil {
				v = -1
			}
			switch numbers {
			case 1:
				a.Normal = &v
			case 2:
				a.Advanced = &v
			default:
				return Arguments{}, &ValidationError{Field: "arguments", Reason: fmt.Sprintf("unexpected number %s", arg)}
			}
		default:
			return Arguments{}, &ValidationError{Field: "arguments", Reason: fmt.Sprintf("unexpected argument %q", arg)}
		}
	}

	if a.ProfileURL == "" {
		return Arguments{}, &ValidationError{Field: "profile", Reason: "missing or invalid 10FF profile URL"}
	}
	if a.Language != "" {
		id := languageID(languages, a.Language)
		if id < 0 {
			return Arguments{}, &ValidationError{Field: "language", Reason: fmt.Sprintf("language %s does not exist", a.Language)}
		}
		a.LanguageID = id
	}
	if a.Normal != nil && (*a.Normal < 0 || *a.Normal >= MaxNormal) {
		return Arguments{}, &ValidationError{Field: "normal", Reason: fmt.Sprintf("normal WPM should be between 0 and %d", MaxNormal)}
	}
	if a.Advanced != nil && (*a.Advanced < 0 || *a.Advanced >= MaxAdvanced) {
		return Arguments{}, &ValidationError{Field: "advanced", Reason: fmt.Sprintf("advanced WPM should be between 0 and %d", MaxAdvanced)}
	}
	return a, nil
}

func languageID(languages []string, name string) int {
	for i, l := range languages {
		if l != "" && strings.EqualFold(l, name) {
			return i
		}
	}
	return -1
}

// Request builds a new request from validated arguments.
func (a Arguments) Request(guildID string, requester model.Requester, origin model.Origin) model.Request {
	return model.Request{
		ID:             uuid.NewString(),
		GuildID:        guildID,
		Requester:      requester,
		ProfileURL:     a.ProfileURL,
		ProfileID:      a.ProfileID,
		LanguageID:     a.LanguageID,
		Normal:         a.Normal,
		Advanced:       a.Advanced,
		CompetitionURL: a.CompetitionURL,
		CompetitionID:  a.CompetitionID,
		Origin:         origin,
		SubmittedAt:    time.Now(),
	}
}
