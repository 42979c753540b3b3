// Package catalog loads the static role catalog: which guild role stands for
// which speed band, membership tier or profile flag.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tier quantization constants.
const (
	CountTierStep = 2500
	CountTierCap  = 10000
	AgeTierStep   = 1
	AgeTierCap    = 10
	BandWidth     = 10
)

// Category names an exclusive-slot category.
type Category string

// Exclusive-slot categories.
const (
	CategoryNormal            Category = "normal"
	CategoryAdvanced          Category = "advanced"
	CategoryTestsTaken        Category = "tests_taken"
	CategoryCompetitionsTaken Category = "competitions_taken"
	CategoryAge               Category = "age"
)

// document mirrors the on-disk catalog format. JSON documents parse too.
type document struct {
	Norm          map[string]string `yaml:"norm"`
	Adv           map[string]string `yaml:"adv"`
	TestsTaken    map[string]string `yaml:"testsTaken"`
	CompetsTaken  map[string]string `yaml:"competsTaken"`
	Age           map[string]string `yaml:"age"`
	Verified      string            `yaml:"verified"`
	Supporter     string            `yaml:"supporter"`
	Translator    string            `yaml:"translator"`
	Completionist string            `yaml:"completionist"`
	Multilingual  string            `yaml:"multilingual"`
}

// Catalog is the immutable role catalog.
type Catalog struct {
	Normal            BandTable
	Advanced          BandTable
	TestsTaken        TierTable
	CompetitionsTaken TierTable
	Age               TierTable

	Verified      string
	Supporter     string
	Translator    string
	Completionist string
	Multilingual  string
}

// Load reads and parses a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	normal, err := newBandTable(CategoryNormal, "", doc.Norm)
	if err != nil {
		return nil, err
	}
	advanced, err := newBandTable(CategoryAdvanced, " (Advanced)", doc.Adv)
	if err != nil {
		return nil, err
	}
	tests, err := newTierTable(CategoryTestsTaken, CountTierStep, CountTierCap, doc.TestsTaken)
	if err != nil {
		return nil, err
	}
	compets, err := newTierTable(CategoryCompetitionsTaken, CountTierStep, CountTierCap, doc.CompetsTaken)
	if err != nil {
		return nil, err
	}
	age, err := newTierTable(CategoryAge, AgeTierStep, AgeTierCap, doc.Age)
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		Normal:            normal,
		Advanced:          advanced,
		TestsTaken:        tests,
		CompetitionsTaken: compets,
		Age:               age,
		Verified:          strings.TrimSpace(doc.Verified),
		Supporter:         strings.TrimSpace(doc.Supporter),
		Translator:        strings.TrimSpace(doc.Translator),
		Completionist:     strings.TrimSpace(doc.Completionist),
		Multilingual:      strings.TrimSpace(doc.Multilingual),
	}
	if err := c.checkUnique(); err != nil {
		return nil, err
	}
	return c, nil
}

// checkUnique rejects a role id mapped in more than one place; a shared id
// would let one category's revocation undo another's grant.
func (c *Catalog) checkUnique() error {
	seen := make(map[string]string)
	claim := func(owner, id string) error {
		if id == "" {
			return nil
		}
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("%w: role %s used by %s and %s", ErrDuplicateRole, id, prev, owner)
		}
		seen[id] = owner
		return nil
	}

	for _, t := range []BandTable{c.Normal, c.Advanced} {
		for _, b := range t.bands {
			if err := claim(string(t.category)+" "+b.String(), b.RoleID); err != nil {
				return err
			}
		}
	}
	for _, t := range []TierTable{c.TestsTaken, c.CompetitionsTaken, c.Age} {
		for _, tier := range t.order {
			if err := claim(fmt.Sprintf("%s %d", t.category, tier), t.roles[tier]); err != nil {
				return err
			}
		}
	}
	scalars := [][2]string{
		{"verified", c.Verified},
		{"supporter", c.Supporter},
		{"translator", c.Translator},
		{"completionist", c.Completionist},
		{"multilingual", c.Multilingual},
	}
	for _, s := range scalars {
		if err := claim(s[0], s[1]); err != nil {
			return err
		}
	}
	return nil
}

// Band is one decile bucket of a speed table.
type Band struct {
	Low    int
	High   int
	RoleID string // empty when the band is intentionally unmapped
}

// String renders the band the way the catalog keys it.
func (b Band) String() string {
	return strconv.Itoa(b.Low) + "-" + strconv.Itoa(b.High)
}

// BandTable maps decile bands to roles for one speed category.
type BandTable struct {
	category Category
	suffix   string
	bands    []Band
	byRole   map[string]Band
}

func newBandTable(category Category, suffix string, raw map[string]string) (BandTable, error) {
	t := BandTable{category: category, suffix: suffix, byRole: make(map[string]Band)}
	for key, role := range raw {
		low, high, err := parseBandKey(key)
		if err != nil {
			return BandTable{}, fmt.Errorf("%w: %s band %q: %w", ErrInvalidCatalog, category, key, err)
		}
		t.bands = append(t.bands, Band{Low: low, High: high, RoleID: strings.TrimSpace(role)})
	}
	sort.Slice(t.bands, func(i, j int) bool { return t.bands[i].Low < t.bands[j].Low })

	for i, b := range t.bands {
		if i > 0 && b.Low != t.bands[i-1].Low+BandWidth {
			return BandTable{}, fmt.Errorf("%w: %s bands %s and %s are not contiguous",
				ErrInvalidCatalog, category, t.bands[i-1], b)
		}
		if b.RoleID != "" {
			t.byRole[b.RoleID] = b
		}
	}
	return t, nil
}

func parseBandKey(key string) (int, int, error) {
	lo, hi, ok := strings.Cut(strings.TrimSpace(key), "-")
	if !ok {
		return 0, 0, errors.New("want <low>-<high>")
	}
	low, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, err
	}
	high, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, err
	}
	if low < 0 || low%BandWidth != 0 || high != low+BandWidth-1 {
		return 0, 0, errors.New("want a decile band such as 130-139")
	}
	return low, high, nil
}

// Category returns the table's category.
func (t BandTable) Category() Category { return t.category }

// RoleFor returns the role of band index band (floor(wpm/10)). Band 0 and
// unmapped bands return "".
func (t BandTable) RoleFor(band int) string {
	if band <= 0 {
		return ""
	}
	low := band * BandWidth
	i := sort.Search(len(t.bands), func(i int) bool { return t.bands[i].Low >= low })
	if i < len(t.bands) && t.bands[i].Low == low {
		return t.bands[i].RoleID
	}
	return ""
}

// Band returns the band a role id stands for.
func (t BandTable) Band(roleID string) (Band, bool) {
	b, ok := t.byRole[roleID]
	return b, ok
}

// RoleIDs returns the mapped role ids in ascending band order.
func (t BandTable) RoleIDs() []string {
	ids := make([]string, 0, len(t.byRole))
	for _, b := range t.bands {
		if b.RoleID != "" {
			ids = append(ids, b.RoleID)
		}
	}
	return ids
}

// Label renders a human label such as "200-209 WPM (Advanced)".
func (t BandTable) Label(roleID string) string {
	b, ok := t.byRole[roleID]
	if !ok {
		return roleID
	}
	return b.String() + " WPM" + t.suffix
}

// TierTable maps quantized counts to roles for one tier category.
type TierTable struct {
	category Category
	step     int
	cap      int
	roles    map[int]string
	order    []int
}

func newTierTable(category Category, step, limit int, raw map[string]string) (TierTable, error) {
	t := TierTable{category: category, step: step, cap: limit, roles: make(map[int]string)}
	for key, role := range raw {
		tier, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return TierTable{}, fmt.Errorf("%w: %s tier %q: %w", ErrInvalidCatalog, category, key, err)
		}
		if tier < 0 || tier > limit || tier%step != 0 {
			return TierTable{}, fmt.Errorf("%w: %s tier %d must be a multiple of %d within [0,%d]",
				ErrInvalidCatalog, category, tier, step, limit)
		}
		t.roles[tier] = strings.TrimSpace(role)
		t.order = append(t.order, tier)
	}
	sort.Ints(t.order)
	return t, nil
}

// Category returns the table's category.
func (t TierTable) Category() Category { return t.category }

// Quantize caps count and floors it to the tier step.
func (t TierTable) Quantize(count int) int {
	if count <= 0 {
		return 0
	}
	if count >= t.cap {
		return t.cap
	}
	return count / t.step * t.step
}

// RoleFor returns the role of the tier count falls into, or "".
func (t TierTable) RoleFor(count int) string {
	return t.roles[t.Quantize(count)]
}

// RoleIDs returns the mapped role ids in ascending tier order.
func (t TierTable) RoleIDs() []string {
	ids := make([]string, 0, len(t.order))
	for _, tier := range t.order {
		if id := t.roles[tier]; id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
