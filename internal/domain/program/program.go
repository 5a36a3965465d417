package program

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CurriculumItem is one requirement inside a rank (a form, technique,
// sparring drill, etc.). Items are identified by a stable slug so
// per-item completion maps survive renames.
type CurriculumItem struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
	Kind string `json:"kind"` // "form", "technique", "sparring", "conditioning"
}

type Rank struct {
	ID         uuid.UUID        `json:"id"`
	Name       string           `json:"name"`
	Ordinal    int              `json:"ordinal"`
	Color      string           `json:"color"`
	Curriculum []CurriculumItem `json:"curriculum,omitempty"`
}

type Program struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Ranks       []Rank    `json:"ranks,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Program) EntityID() string { return p.ID.String() }

// NaturalKey is the program name, lowercased. Name uniqueness among active
// programs is checked at creation time against this key.
func (p *Program) NaturalKey() string { return strings.ToLower(strings.TrimSpace(p.Name)) }

func (p *Program) RankByID(rankID uuid.UUID) (Rank, bool) {
	for _, r := range p.Ranks {
		if r.ID == rankID {
			return r, true
		}
	}
	return Rank{}, false
}

// RanksInOrder returns the ranks sorted by ordinal position.
func (p *Program) RanksInOrder() []Rank {
	out := make([]Rank, len(p.Ranks))
	copy(out, p.Ranks)
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out
}

// NextRank returns the rank with the smallest ordinal strictly greater than
// the given rank's ordinal. The second return is false when the given rank
// is already the highest, which is not an error.
func (p *Program) NextRank(currentRankID uuid.UUID) (Rank, bool) {
	current, ok := p.RankByID(currentRankID)
	if !ok {
		return Rank{}, false
	}
	var next Rank
	found := false
	for _, r := range p.Ranks {
		if r.Ordinal <= current.Ordinal {
			continue
		}
		if !found || r.Ordinal < next.Ordinal {
			next = r
			found = true
		}
	}
	return next, found
}
