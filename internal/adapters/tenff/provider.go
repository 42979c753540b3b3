// Package tenff acquires profile snapshots from 10FastFingers: the public
// profile page, the graph-data endpoint the profile page itself calls, and
// the competition endpoints.
package tenff

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/autorole/internal/domain/model"
	"github.com/okian/autorole/internal/domain/profile"
	"github.com/okian/autorole/pkg/logger"
	"github.com/okian/autorole/pkg/metrics"
)

// DefaultBaseURL is the public 10FF site.
const DefaultBaseURL = "https://10fastfingers.com"

const (
	userAgent    = "Mozilla/5.0 (compatible; autorole)"
	maxBodyBytes = 2 << 20
)

// DefaultCompletionistAchievements are the achievements that count towards
// the completionist role. Translator (18), the tests/competitions milestones
// (19-33) and supporter (48) are excluded.
var DefaultCompletionistAchievements = func() []int {
	ids := make([]int, 0, 31)
	for id := 1; id <= 47; id++ {
		if id < 18 || id > 33 {
			ids = append(ids, id)
		}
	}
	return ids
}()

// Provider implements profile.Provider against 10FF.
type Provider struct {
	baseURL       string
	client        *http.Client
	completionist []int
	now           func() time.Time
	logger        logger.Logger
}

var _ profile.Provider = (*Provider)(nil)

// New creates a provider for the public site.
func New(opts ...Option) *Provider {
	p := &Provider{
		baseURL:       DefaultBaseURL,
		client:        &http.Client{},
		completionist: DefaultCompletionistAchievements,
		now:           time.Now,
		logger:        logger.Get().Named("tenff"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot reads the profile of q.ProfileID. The profile description must
// mention the requester's tag or id.
func (p *Provider) Snapshot(ctx context.Context, q profile.Query) (model.ProfileSnapshot, error) {
	snap, err := p.snapshot(ctx, q)
	if err != nil {
		metrics.RecordErrorByComponent("tenff", profile.Kind(err))
		return model.ProfileSnapshot{}, err
	}
	p.logger.Debug(ctx, "snapshot acquired",
		logger.String("profile", q.ProfileID),
		logger.Int("language", snap.LanguageID),
		logger.Int("max_normal", snap.MaxNormal),
		logger.Int("max_advanced", snap.MaxAdvanced),
	)
	return snap, nil
}

func (p *Provider) snapshot(ctx context.Context, q profile.Query) (model.ProfileSnapshot, error) {
	body, err := p.get(ctx, fmt.Sprintf("%s/user/%s/", p.baseURL, url.PathEscape(q.ProfileID)), false)
	if err != nil {
		return model.ProfileSnapshot{}, err
	}
	page, err := parseProfilePage(body)
	if err != nil {
		return model.ProfileSnapshot{}, err
	}
	if !page.mentions(q.Requester) {
		return model.ProfileSnapshot{}, fmt.Errorf("%w: write your tag or id in your 10FF profile description", profile.ErrIdentityUnverified)
	}
	if page.testsTaken <= 0 {
		return model.ProfileSnapshot{}, fmt.Errorf("%w: do at least one test on 10FF (competitions are excluded)", profile.ErrNoTestsTaken)
	}

	graph, err := p.graph(ctx, q.ProfileID, q.LanguageID)
	if err != nil {
		return model.ProfileSnapshot{}, err
	}
	lang := graph.SpeedtestIDActive.Int()
	maxNormal, maxAdvanced := graph.maxima(lang)

	if q.CompetitionID != "" {
		wpm, err := p.competitionWPM(ctx, q.CompetitionID, q.ProfileID, lang)
		if err != nil {
			return model.ProfileSnapshot{}, err
		}
		maxNormal = max(maxNormal, wpm)
	}

	return model.ProfileSnapshot{
		SubjectID:         q.ProfileID,
		LanguageID:        lang,
		MaxNormal:         maxNormal,
		MaxAdvanced:       maxAdvanced,
		TestsTaken:        page.testsTaken,
		CompetitionsTaken: page.competitionsTaken,
		Supporter:         page.has(achievementSupporter),
		Translator:        page.has(achievementTranslator),
		Completionist:     page.hasAll(p.completionist),
		Multilingual:      graph.multilingual(),
		AccountAgeYears:   accountAge(page.joined, p.now()),
	}, nil
}

func (p *Provider) graph(ctx context.Context, profileID string, languageID int) (graphData, error) {
	endpoint := fmt.Sprintf("%s/users/get_graph_data/1/%s/%d", p.baseURL, url.PathEscape(profileID), languageID)
	body, err := p.get(ctx, endpoint, true)
	if err != nil {
		return graphData{}, err
	}
	var g graphData
	if err := json.Unmarshal(body, &g); err != nil {
		return graphData{}, fmt.Errorf("%w: graph data: %w", profile.ErrAcquisition, err)
	}
	return g, nil
}

func (p *Provider) competitionWPM(ctx context.Context, hashID, profileID string, languageID int) (int, error) {
	form := url.Values{"hash_id": {hashID}}

	body, err := p.post(ctx, p.baseURL+"/competition/view", form)
	if err != nil {
		return 0, err
	}
	var view competitionView
	if err := json.Unmarshal(body, &view); err != nil {
		return 0, fmt.Errorf("%w: competition view: %w", profile.ErrAcquisition, err)
	}
	if view.Competition.SpeedtestID.Int() != languageID {
		return 0, fmt.Errorf("%w: competition is in language %d, profile in %d",
			profile.ErrCompetitionLanguageMismatch, view.Competition.SpeedtestID.Int(), languageID)
	}

	body, err = p.post(ctx, p.baseURL+"/competitions/get_competition_rankings", form)
	if err != nil {
		return 0, err
	}
	wpm, ok, err := rankingWPM(body, profileID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: you did not take part in competition %s", profile.ErrCompetitionRecordNotFound, hashID)
	}
	return wpm, nil
}

func (p *Provider) get(ctx context.Context, endpoint string, xhr bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", profile.ErrAcquisition, err)
	}
	if xhr {
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}
	return p.do(req)
}

func (p *Provider) post(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", profile.ErrAcquisition, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	return p.do(req)
}

func (p *Provider) do(req *http.Request) ([]byte, error) {
	req.Header.Set("User-Agent", userAgent)
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", profile.ErrAcquisition, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s %s: HTTP %d", profile.ErrAcquisition, req.Method, req.URL.Path, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", profile.ErrAcquisition, err)
	}
	return bytes.TrimPrefix(body, []byte("\xef\xbb\xbf")), nil
}
