package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/dojolist/dojolist-engine/internal/domain"
)

// FixtureProgram builds an unsaved program with four ordered ranks
// (white, yellow, orange, green) and a small curriculum on each.
func FixtureProgram(tb testing.TB, name string) *types.Program {
	tb.Helper()
	names := []string{"White Belt", "Yellow Belt", "Orange Belt", "Green Belt"}
	colors := []string{"#ffffff", "#ffd700", "#ff8c00", "#228b22"}
	ranks := make([]types.Rank, len(names))
	for i := range names {
		ranks[i] = types.Rank{
			ID:      uuid.New(),
			Name:    names[i],
			Ordinal: i,
			Color:   colors[i],
			Curriculum: []types.CurriculumItem{
				{Slug: "form-" + names[i], Name: names[i] + " Form", Kind: "form"},
				{Slug: "sparring-" + names[i], Name: names[i] + " Sparring", Kind: "sparring"},
			},
		}
	}
	return &types.Program{
		Name:        name,
		Description: "fixture program",
		Category:    "karate",
		Ranks:       ranks,
		Active:      true,
	}
}

func FixtureEnrollment(tb testing.TB, userID uuid.UUID, p *types.Program) *types.Enrollment {
	tb.Helper()
	rankID := p.Ranks[0].ID
	now := time.Now().UTC()
	return &types.Enrollment{
		UserID:        userID,
		ProgramID:     p.ID,
		Enrolled:      true,
		EnrolledAt:    now,
		CurrentRankID: &rankID,
		RankChangedAt: &now,
		Active:        true,
	}
}

func FixtureProfile(tb testing.TB, authID string) *types.UserProfile {
	tb.Helper()
	return &types.UserProfile{
		AuthID:      authID,
		Email:       authID + "@example.com",
		DisplayName: "Fixture User",
		Roles:       []string{"student"},
		AccessLevel: "member",
	}
}
