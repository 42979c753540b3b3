// Package profile defines how profile snapshots are acquired and how
// acquisition failures are classified.
package profile

import (
	"context"
	"errors"

	"github.com/okian/autorole/internal/domain/model"
)

// Query selects what to acquire.
type Query struct {
	ProfileID     string
	LanguageID    int    // 0 selects the profile's primary language
	CompetitionID string // optional competition hash
	Requester     model.Requester
}

// QueryFor builds the acquisition query of a request.
func QueryFor(req model.Request) Query {
	return Query{
		ProfileID:     req.ProfileID,
		LanguageID:    req.LanguageID,
		CompetitionID: req.CompetitionID,
		Requester:     req.Requester,
	}
}

// Provider returns a fresh snapshot or an error classified by the sentinels
// below.
type Provider interface {
	Snapshot(ctx context.Context, q Query) (model.ProfileSnapshot, error)
}

// Acquisition failure kinds.
var (
	ErrIdentityUnverified          = errors.New("profile does not mention the requester")
	ErrNoTestsTaken                = errors.New("profile has no tests taken")
	ErrCompetitionLanguageMismatch = errors.New("competition language does not match")
	ErrCompetitionRecordNotFound   = errors.New("no result in competition")
	ErrAcquisition                 = errors.New("profile acquisition failed")
)

// Discriminator tags attached to failure replies.
const (
	TagIdentity = "👤"
	TagNoTests  = "0⃣"
)

// Kind returns a short metric label for err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrIdentityUnverified):
		return "identity_unverified"
	case errors.Is(err, ErrNoTestsTaken):
		return "no_tests_taken"
	case errors.Is(err, ErrCompetitionLanguageMismatch):
		return "competition_language_mismatch"
	case errors.Is(err, ErrCompetitionRecordNotFound):
		return "competition_record_not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "acquisition"
	}
}

// Tag returns the discriminator tag of err, or "".
func Tag(err error) string {
	switch {
	case errors.Is(err, ErrIdentityUnverified):
		return TagIdentity
	case errors.Is(err, ErrNoTestsTaken):
		return TagNoTests
	default:
		return ""
	}
}
