// Package notify formats and delivers the messages a request produces: the
// queued acknowledgment, the terminal success or failure reply and the
// moderator high-score warning.
package notify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/autorole/internal/domain/intake"
	"github.com/okian/autorole/internal/domain/model"
	"github.com/okian/autorole/internal/domain/profile"
	"github.com/okian/autorole/internal/domain/reconcile"
)

// Reactions added to the request message.
const (
	ReactionSucceeded = "✅"
	ReactionFailed    = "❌"
	ReactionNoDM      = "💬"
)

// HelpURL is linked from failure replies.
const HelpURL = "https://github.com/wRadion/10FFDiscordBot"

// Queued is the acknowledgment sent when a request is accepted.
func Queued(position int) string {
	if position <= 0 {
		return ":hourglass: **Processing your request. Please wait...**"
	}
	return fmt.Sprintf(":hourglass: **Your request is queued at position %d. Please wait...**", position)
}

// Succeeded describes the roles that changed, or says nothing had to.
func Succeeded(applied model.Applied) string {
	var b strings.Builder
	if !applied.Changed() {
		b.WriteString(":information_source: Your roles are up to date! _(No roles to add or remove)_")
	} else {
		b.WriteString(":white_check_mark: **Success!**\n")
		writeRoles(&b, "added", applied.Added)
		writeRoles(&b, "removed", applied.Removed)
	}
	if n := len(applied.Failures); n > 0 {
		fmt.Fprintf(&b, "\n\n:warning: %d role change(s) could not be applied, a moderator will have a look.", n)
	}
	return b.String()
}

func writeRoles(b *strings.Builder, verb string, names []string) {
	if len(names) == 0 {
		return
	}
	fmt.Fprintf(b, "\nThe following roles were __%s__:\n", verb)
	for _, n := range names {
		fmt.Fprintf(b, "- **%s**\n", n)
	}
}

// Failed describes why a request failed and returns its discriminator tag,
// "" when the failure has none.
func Failed(err error) (text, tag string) {
	var (
		exceeds *reconcile.ExceedsDetectedMaximumError
		invalid *intake.ValidationError
	)
	switch {
	case errors.As(err, &exceeds):
		return fmt.Sprintf(":x: **Error:** You can't have the **%d WPM** role as your detected max %s WPM is **%d WPM**.",
			exceeds.Requested, exceeds.Category, exceeds.DetectedMax), reconcile.TagExceeds
	case errors.As(err, &invalid):
		return Invalid(err), ""
	}
	return fmt.Sprintf(":x: **Error:** %s\n\nPlease read %s for more help or contact a moderator if this issue persists.",
		err, HelpURL), Tag(err)
}

// Invalid is the reply to a command whose arguments were rejected.
func Invalid(err error) string {
	return fmt.Sprintf(":x: **Error:** Invalid arguments for `%s`:\n\t\t%s\n\n%s", intake.CommandRole, err, intake.Usage)
}

// Tag returns the discriminator tag of err, or "".
func Tag(err error) string {
	if t := profile.Tag(err); t != "" {
		return t
	}
	return reconcile.Tag(err)
}

// Notice is the public channel message for failures the requester can fix
// on their profile. It is "" for every other failure.
func Notice(err error, mention string) string {
	switch profile.Tag(err) {
	case profile.TagIdentity:
		return fmt.Sprintf("%s :x: %s: Please copy your **Discord tag or ID** in your **10FF profile description** so I can verify that this 10FF profile is yours.",
			profile.TagIdentity, mention)
	case profile.TagNoTests:
		return fmt.Sprintf("%s :x: %s: You have to do **at least one test** to have a WPM role (competitions don't count).",
			profile.TagNoTests, mention)
	default:
		return ""
	}
}

// HighScore is the warning sent to moderator about n.
func HighScore(moderator string, req model.Request, n model.HighScoreNotification) string { //nolint:gocritic // hugeParam: requests are values
	var b strings.Builder
	fmt.Fprintf(&b, ":warning: Heads up, **%s**!\n\n", moderator)
	name := req.Requester.DisplayName
	if name == "" {
		name = req.Requester.Tag
	}
	fmt.Fprintf(&b, "User **%s** (__%s__) updated their WPM roles.\n", req.Requester.Tag, name)
	fmt.Fprintf(&b, "Here is the 10FF profile link they provided: %s\n", n.ProfileURL)
	fmt.Fprintf(&b, "Their max detected WPMs are **%d WPM** and **%d WPM (Advanced)**.\n", n.MaxNormal, n.MaxAdvanced)
	b.WriteString("The following 200WPM+ roles were added:\n")
	for _, label := range n.Labels() {
		fmt.Fprintf(&b, "- **%s**\n", label)
	}
	if n.VerifiedRevoked {
		b.WriteString(":negative_squared_cross_mark: Their **Verified** role has been removed.")
	} else {
		b.WriteString(":question: They didn't have the **Verified** role.")
	}
	return b.String()
}
