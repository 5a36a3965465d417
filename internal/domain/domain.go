package domain

import (
	"github.com/dojolist/dojolist-engine/internal/domain/profile"
	"github.com/dojolist/dojolist-engine/internal/domain/program"
	"github.com/dojolist/dojolist-engine/internal/domain/training"
)

// Entity is the minimal contract every stored record satisfies: a stable
// document id plus a natural key used for uniqueness checks and secondary
// cache lookups.
type Entity interface {
	EntityID() string
	NaturalKey() string
}

// Kind names an entity family for change notification and error reporting.
type Kind string

const (
	KindProgram          Kind = "program"
	KindEnrollment       Kind = "enrollment"
	KindProgramProgress  Kind = "program_progress"
	KindRankProgress     Kind = "rank_progress"
	KindUserProfile      Kind = "user_profile"
	KindSubscription     Kind = "subscription"
	KindStudioMembership Kind = "studio_membership"
)

type Program = program.Program
type Rank = program.Rank
type CurriculumItem = program.CurriculumItem

type Enrollment = training.Enrollment
type ProgramProgress = training.ProgramProgress
type RankProgress = training.RankProgress

type UserProfile = profile.UserProfile
type Subscription = profile.Subscription
type StudioMembership = profile.StudioMembership
type CompositeProfile = profile.CompositeProfile
