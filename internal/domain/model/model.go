// Package model contains domain models passed between layers.
package model

import (
	"sort"
	"time"
)

// MaxAccountAgeYears caps the account-age tier.
const MaxAccountAgeYears = 10

// ProfileSnapshot is a point-in-time read of a subject's measured performance
// and account attributes. It is produced fresh per request and never mutated.
type ProfileSnapshot struct {
	SubjectID         string // external profile id
	LanguageID        int    // performance track that was measured
	MaxNormal         int    // best normal WPM
	MaxAdvanced       int    // best advanced WPM
	TestsTaken        int
	CompetitionsTaken int
	Supporter         bool
	Translator        bool
	Completionist     bool
	Multilingual      bool
	AccountAgeYears   int // 0 when undetermined, capped at MaxAccountAgeYears
}

// Requester identifies the guild member who submitted a request.
type Requester struct {
	MemberID    string // chat-platform user id
	Tag         string // full tag, e.g. name#1234 or username
	DisplayName string
}

// Origin points back to where a request came from so replies can find it.
type Origin struct {
	Source    string // "discord", "http", "cli"
	ChannelID string
	MessageID string
}

// Request is one role-update submission. It is consumed exactly once.
type Request struct {
	ID             string
	GuildID        string
	Requester      Requester
	ProfileURL     string
	ProfileID      string
	LanguageID     int  // 0 selects the profile's primary language
	Normal         *int // explicit normal target, nil = detected maximum
	Advanced       *int // explicit advanced target, nil = detected maximum
	CompetitionURL string
	CompetitionID  string
	Origin         Origin
	SubmittedAt    time.Time
}

// RoleSet is the set of role ids a member currently holds.
type RoleSet map[string]struct{}

// NewRoleSet builds a RoleSet from ids.
func NewRoleSet(ids ...string) RoleSet {
	s := make(RoleSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// Has reports whether id is held.
func (s RoleSet) Has(id string) bool {
	if id == "" {
		return false
	}
	_, ok := s[id]
	return ok
}

// IDs returns the held ids in sorted order.
func (s RoleSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Apply returns a new set with diff applied; s is left untouched.
func (s RoleSet) Apply(diff RoleDiff) RoleSet {
	out := make(RoleSet, len(s)+len(diff.ToAdd))
	for id := range s {
		out[id] = struct{}{}
	}
	for _, id := range diff.ToRemove {
		delete(out, id)
	}
	for _, id := range diff.ToAdd {
		out[id] = struct{}{}
	}
	return out
}

// RoleDiff is the minimal change that brings a member in line with a snapshot.
// ToAdd and ToRemove are disjoint.
type RoleDiff struct {
	ToAdd    []string
	ToRemove []string
}

// Empty reports whether the diff changes nothing.
func (d RoleDiff) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0
}

// HighScoreNotification tells moderators that 200+ WPM roles were granted.
type HighScoreNotification struct {
	SubjectID       string
	ProfileURL      string // filled in by the pipeline
	MaxNormal       int
	MaxAdvanced     int
	Roles           []HighScoreRole // newly granted high-tier roles
	VerifiedRevoked bool
}

// HighScoreRole is one newly granted high-tier role.
type HighScoreRole struct {
	ID    string
	Label string // e.g. "200-209 WPM (Advanced)"
}

// Labels returns the labels of n.Roles in order.
func (n HighScoreNotification) Labels() []string {
	out := make([]string, 0, len(n.Roles))
	for _, r := range n.Roles {
		out = append(out, r.Label)
	}
	return out
}

// Applied reports the result of applying a RoleDiff.
type Applied struct {
	Added    []string         // names of roles granted
	Removed  []string         // names of roles revoked
	Failures map[string]error // role id -> failure
}

// Changed reports whether at least one role was granted or revoked.
func (a Applied) Changed() bool {
	return len(a.Added) > 0 || len(a.Removed) > 0
}
