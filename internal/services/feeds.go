package services

import (
	"github.com/dojolist/dojolist-engine/internal/domain"
	"github.com/dojolist/dojolist-engine/internal/notify"
)

// ChangeFeeds is the consumer-facing subscription surface over the
// notifier, one stream per entity kind the view layer cares about.
type ChangeFeeds struct {
	notifier *notify.Notifier
}

func NewChangeFeeds(notifier *notify.Notifier) *ChangeFeeds {
	return &ChangeFeeds{notifier: notifier}
}

func (f *ChangeFeeds) SubscribeToProgramChanges() *notify.Subscription {
	return f.notifier.Subscribe(domain.KindProgram)
}

func (f *ChangeFeeds) SubscribeToEnrollmentChanges() *notify.Subscription {
	return f.notifier.Subscribe(domain.KindEnrollment)
}

func (f *ChangeFeeds) SubscribeToProgressChanges() *notify.Subscription {
	return f.notifier.Subscribe(domain.KindProgramProgress)
}

func (f *ChangeFeeds) SubscribeToRankProgressChanges() *notify.Subscription {
	return f.notifier.Subscribe(domain.KindRankProgress)
}

func (f *ChangeFeeds) Unsubscribe(sub *notify.Subscription) {
	f.notifier.Unsubscribe(sub)
}
