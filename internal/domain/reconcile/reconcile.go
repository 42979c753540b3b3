// Package reconcile computes the minimal role change that brings a member's
// held roles in line with a profile snapshot.
//
// The engine is a pure function of its inputs: it performs no I/O, keeps no
// state between calls and never mutates the role set it is given.
package reconcile

import (
	"fmt"

	"github.com/okian/autorole/internal/domain/catalog"
	"github.com/okian/autorole/internal/domain/model"
)

const defaultHighScoreBand = 20

// Overrides are the optional explicit targets of a request. Nil means "use
// the detected maximum".
type Overrides struct {
	Normal   *int
	Advanced *int
}

// Result is a successful reconciliation.
type Result struct {
	Diff          model.RoleDiff
	Notifications []model.HighScoreNotification
}

// Engine reconciles snapshots against one catalog.
type Engine struct {
	catalog       *catalog.Catalog
	highScoreBand int
}

// New returns an engine over c.
func New(c *catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{catalog: c, highScoreBand: defaultHighScoreBand}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// slot is one exclusive category resolved for a member: the roles of the
// category currently held and the one role that should be held.
type slot struct {
	category catalog.Category
	held     []string
	desired  string
}

func resolve(category catalog.Category, ids []string, current model.RoleSet, desired string) slot {
	s := slot{category: category, desired: desired}
	for _, id := range ids {
		if current.Has(id) {
			s.held = append(s.held, id)
		}
	}
	return s
}

// stage records the adds and removes that leave only desired held.
func (s slot) stage(b *builder) (added string) {
	for _, id := range s.held {
		if id != s.desired {
			b.remove(id)
		}
	}
	if s.desired == "" {
		return ""
	}
	for _, id := range s.held {
		if id == s.desired {
			return ""
		}
	}
	b.add(s.desired)
	return s.desired
}

// Reconcile returns the diff and notifications for snap given the roles in
// current. It fails with *ExceedsDetectedMaximumError when an override asks
// for more than was measured.
func (e *Engine) Reconcile(current model.RoleSet, snap model.ProfileSnapshot, o Overrides) (Result, error) {
	normal, advanced := snap.MaxNormal, snap.MaxAdvanced
	if o.Normal != nil {
		normal = *o.Normal
	}
	if o.Advanced != nil {
		advanced = *o.Advanced
	}
	if normal > snap.MaxNormal {
		return Result{}, &ExceedsDetectedMaximumError{
			Category: catalog.CategoryNormal, Requested: normal, DetectedMax: snap.MaxNormal,
		}
	}
	if advanced > snap.MaxAdvanced {
		return Result{}, &ExceedsDetectedMaximumError{
			Category: catalog.CategoryAdvanced, Requested: advanced, DetectedMax: snap.MaxAdvanced,
		}
	}

	c := e.catalog
	normalBand := normal / catalog.BandWidth
	advancedBand := advanced / catalog.BandWidth

	speed := []struct {
		table catalog.BandTable
		band  int
	}{
		{c.Normal, normalBand},
		{c.Advanced, advancedBand},
	}
	slots := []slot{
		resolve(catalog.CategoryNormal, c.Normal.RoleIDs(), current, c.Normal.RoleFor(normalBand)),
		resolve(catalog.CategoryAdvanced, c.Advanced.RoleIDs(), current, c.Advanced.RoleFor(advancedBand)),
		resolve(catalog.CategoryTestsTaken, c.TestsTaken.RoleIDs(), current, c.TestsTaken.RoleFor(snap.TestsTaken)),
		resolve(catalog.CategoryCompetitionsTaken, c.CompetitionsTaken.RoleIDs(), current, c.CompetitionsTaken.RoleFor(snap.CompetitionsTaken)),
	}

	b := newBuilder()
	var highScore []model.HighScoreRole
	for i, s := range slots {
		added := s.stage(b)
		if i < len(speed) && added != "" && speed[i].band >= e.highScoreBand {
			highScore = append(highScore, model.HighScoreRole{ID: added, Label: speed[i].table.Label(added)})
		}
	}

	verifiedRevoked := false
	if current.Has(c.Verified) {
		for i, sp := range speed {
			if desiredLow(sp.table, slots[i].desired) > heldLow(sp.table, slots[i].held) {
				b.remove(c.Verified)
				verifiedRevoked = true
				break
			}
		}
	}

	flags := []struct {
		role string
		set  bool
	}{
		{c.Supporter, snap.Supporter},
		{c.Translator, snap.Translator},
		{c.Completionist, snap.Completionist},
		{c.Multilingual, snap.Multilingual},
	}
	for _, f := range flags {
		switch {
		case f.role == "":
		case f.set && !current.Has(f.role):
			b.add(f.role)
		case !f.set && current.Has(f.role):
			b.remove(f.role)
		}
	}

	age := resolve(catalog.CategoryAge, c.Age.RoleIDs(), current, c.Age.RoleFor(min(snap.AccountAgeYears, model.MaxAccountAgeYears)))
	age.stage(b)

	diff, err := b.build()
	if err != nil {
		return Result{}, err
	}

	res := Result{Diff: diff}
	if len(highScore) > 0 {
		res.Notifications = append(res.Notifications, model.HighScoreNotification{
			SubjectID:       snap.SubjectID,
			MaxNormal:       snap.MaxNormal,
			MaxAdvanced:     snap.MaxAdvanced,
			Roles:           highScore,
			VerifiedRevoked: verifiedRevoked,
		})
	}
	return res, nil
}

// desiredLow is the lower bound of the band of desired, 0 when no role is
// desired.
func desiredLow(t catalog.BandTable, desired string) int {
	if b, ok := t.Band(desired); ok {
		return b.Low
	}
	return 0
}

// heldLow is the lower bound of the lowest held band, 0 when none is held.
// Stale duplicates of a category therefore count as the member's old speed.
func heldLow(t catalog.BandTable, held []string) int {
	low, found := 0, false
	for _, id := range held {
		if b, ok := t.Band(id); ok && (!found || b.Low < low) {
			low, found = b.Low, true
		}
	}
	return low
}

// builder collects staged changes in staging order without duplicates.
type builder struct {
	adds, removes  []string
	added, removed map[string]bool
}

func newBuilder() *builder {
	return &builder{added: make(map[string]bool), removed: make(map[string]bool)}
}

func (b *builder) add(id string) {
	if id == "" || b.added[id] {
		return
	}
	b.added[id] = true
	b.adds = append(b.adds, id)
}

func (b *builder) remove(id string) {
	if id == "" || b.removed[id] {
		return
	}
	b.removed[id] = true
	b.removes = append(b.removes, id)
}

func (b *builder) build() (model.RoleDiff, error) {
	for _, id := range b.adds {
		if b.removed[id] {
			return model.RoleDiff{}, fmt.Errorf("%w: role %s", ErrInconsistentDiff, id)
		}
	}
	return model.RoleDiff{ToAdd: b.adds, ToRemove: b.removes}, nil
}
