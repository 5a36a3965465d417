package repos

import (
	"github.com/dojolist/dojolist-engine/internal/notify"
	"github.com/dojolist/dojolist-engine/internal/pkg/logger"
	"github.com/dojolist/dojolist-engine/internal/store"
)

// Repos bundles one repository per entity kind. Profile (and the composite
// cache) live on the primary store; everything else on the secondary.
type Repos struct {
	Program         ProgramRepo
	Enrollment      EnrollmentRepo
	ProgramProgress ProgramProgressRepo
	RankProgress    RankProgressRepo
	Profile         ProfileRepo
	Membership      StudioMembershipRepo
	Subscription    SubscriptionRepo
}

func New(primary, secondary store.Client, notifier *notify.Notifier, baseLog *logger.Logger) Repos {
	return Repos{
		Program:         NewProgramRepo(secondary, notifier, baseLog),
		Enrollment:      NewEnrollmentRepo(secondary, notifier, baseLog),
		ProgramProgress: NewProgramProgressRepo(secondary, notifier, baseLog),
		RankProgress:    NewRankProgressRepo(secondary, notifier, baseLog),
		Profile:         NewProfileRepo(primary, notifier, baseLog),
		Membership:      NewStudioMembershipRepo(secondary, notifier, baseLog),
		Subscription:    NewSubscriptionRepo(secondary, notifier, baseLog),
	}
}
