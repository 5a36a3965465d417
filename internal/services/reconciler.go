package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dojolist/dojolist-engine/internal/data/repos"
	types "github.com/dojolist/dojolist-engine/internal/domain"
	"github.com/dojolist/dojolist-engine/internal/pkg/logger"
	"github.com/dojolist/dojolist-engine/internal/platform/apperr"
)

// SessionState tracks one user session's reconciliation lifecycle.
type SessionState string

const (
	StateUninitialized SessionState = "uninitialized"
	StateLoading       SessionState = "loading"
	StateReady         SessionState = "ready"
	StateRefreshing    SessionState = "refreshing"
	StateFailed        SessionState = "failed"
)

// ProfileReconciler produces and keeps current one user session's
// CompositeProfile: identity from the primary store, program/subscription/
// membership fragments from the secondary store, merged without erasing
// known-good data when a secondary fetch fails.
type ProfileReconciler interface {
	Load(ctx context.Context, identity SessionIdentity) (*types.CompositeProfile, error)
	// Refresh re-runs the secondary fetch and merge without re-deriving
	// identity. Idempotent: with no underlying change it produces the
	// same composite.
	Refresh(ctx context.Context) (*types.CompositeProfile, error)
	Current() *types.CompositeProfile
	State() SessionState
}

type ReconcilerConfig struct {
	// CreationPollAttempts bounds how often Load re-checks the primary
	// store for a profile the onboarding collaborator is creating.
	CreationPollAttempts int
	CreationPollBackoff  time.Duration
}

func (c ReconcilerConfig) withDefaults() ReconcilerConfig {
	if c.CreationPollAttempts <= 0 {
		c.CreationPollAttempts = 3
	}
	if c.CreationPollBackoff <= 0 {
		c.CreationPollBackoff = 2 * time.Second
	}
	return c
}

type profileReconciler struct {
	mu sync.Mutex

	profiles      repos.ProfileRepo
	enrollments   repos.EnrollmentRepo
	memberships   repos.StudioMembershipRepo
	subscriptions repos.SubscriptionRepo
	onboarder     Onboarder
	cfg           ReconcilerConfig
	log           *logger.Logger

	state    SessionState
	identity SessionIdentity
	current  *types.CompositeProfile
}

func NewProfileReconciler(r repos.Repos, onboarder Onboarder, cfg ReconcilerConfig, baseLog *logger.Logger) ProfileReconciler {
	return &profileReconciler{
		profiles:      r.Profile,
		enrollments:   r.Enrollment,
		memberships:   r.Membership,
		subscriptions: r.Subscription,
		onboarder:     onboarder,
		cfg:           cfg.withDefaults(),
		log:           baseLog.With("service", "ProfileReconciler"),
		state:         StateUninitialized,
	}
}

func (r *profileReconciler) State() SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *profileReconciler) Current() *types.CompositeProfile {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current.Clone()
}

func (r *profileReconciler) Load(ctx context.Context, identity SessionIdentity) (*types.CompositeProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state = StateLoading
	r.identity = identity

	prof, err := r.resolveProfile(ctx, identity)
	if err != nil {
		// Primary-store failure is fatal to the load.
		r.state = StateFailed
		return nil, err
	}
	if prof == nil {
		prof, err = r.createAndPoll(ctx, identity)
		if err != nil {
			r.state = StateFailed
			return nil, err
		}
	}

	composite, err := r.reconcile(ctx, prof)
	if err != nil {
		r.state = StateFailed
		return nil, err
	}
	r.current = composite
	r.state = StateReady
	return composite.Clone(), nil
}

func (r *profileReconciler) Refresh(ctx context.Context) (*types.CompositeProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateReady || r.current == nil {
		return nil, apperr.Conflict("session", string(r.state), "refresh requires a loaded session")
	}
	r.state = StateRefreshing

	prof, err := r.profiles.GetByID(ctx, r.current.Profile.ID)
	if err != nil {
		r.state = StateReady
		return nil, err
	}
	if prof == nil {
		r.state = StateFailed
		return nil, apperr.NotFound(string(types.KindUserProfile), r.current.Profile.ID.String())
	}

	composite, err := r.reconcile(ctx, prof)
	if err != nil {
		r.state = StateReady
		return nil, err
	}
	r.current = composite
	r.state = StateReady
	return composite.Clone(), nil
}

// resolveProfile tries the two lookup strategies in order: external auth
// id first, then direct id for legacy records. First success wins; a miss
// on both is (nil, nil).
func (r *profileReconciler) resolveProfile(ctx context.Context, identity SessionIdentity) (*types.UserProfile, error) {
	if identity.AuthID != "" {
		prof, err := r.profiles.GetByAuthID(ctx, identity.AuthID)
		if err != nil {
			return nil, err
		}
		if prof != nil {
			return prof, nil
		}
	}
	if identity.ProfileID != uuid.Nil {
		prof, err := r.profiles.GetByID(ctx, identity.ProfileID)
		if err != nil {
			return nil, err
		}
		if prof != nil {
			return prof, nil
		}
	}
	return nil, nil
}

// createAndPoll hands the session to the onboarding collaborator, then
// polls the primary store on a fixed backoff until the new profile becomes
// visible or the attempt budget runs out.
func (r *profileReconciler) createAndPoll(ctx context.Context, identity SessionIdentity) (*types.UserProfile, error) {
	if r.onboarder == nil {
		return nil, apperr.NotFound(string(types.KindUserProfile), identity.AuthID)
	}
	if err := r.onboarder.BeginOnboarding(ctx, identity); err != nil {
		return nil, apperr.Unknown(err)
	}
	r.log.Info("onboarding started, polling for profile", "authID", identity.AuthID)

	for attempt := 1; attempt <= r.cfg.CreationPollAttempts; attempt++ {
		timer := time.NewTimer(r.cfg.CreationPollBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, apperr.Network(ctx.Err())
		case <-timer.C:
		}

		prof, err := r.resolveProfile(ctx, identity)
		if err != nil {
			return nil, err
		}
		if prof != nil {
			return prof, nil
		}
		r.log.Debug("profile not yet visible", "authID", identity.AuthID, "attempt", attempt)
	}
	return nil, apperr.NotFound(string(types.KindUserProfile), identity.AuthID)
}

// secondaryFetch carries the fragment results of one reconciliation pass.
// Per-fragment errors are kept rather than aborting the pass: secondary
// failures are non-fatal.
type secondaryFetch struct {
	enrollments     []*types.Enrollment
	enrollmentsErr  error
	membership      *types.StudioMembership
	membershipErr   error
	subscription    *types.Subscription
	subscriptionErr error
}

func (r *profileReconciler) reconcile(ctx context.Context, prof *types.UserProfile) (*types.CompositeProfile, error) {
	fetch := r.fetchFragments(ctx, prof)

	if fetch.membershipErr == nil && fetch.membership == nil {
		if m := r.backfillMembership(ctx, prof, fetch.enrollments); m != nil {
			fetch.membership = m
		}
	}

	composite := r.merge(ctx, prof, fetch)

	if err := r.profiles.SaveComposite(ctx, composite); err != nil {
		// The composite copy in the primary store only serves offline
		// reads; failing to refresh it does not fail the pass.
		r.log.Warn("composite persist failed", "profileID", prof.ID, "error", err)
	}
	return composite, nil
}

// fetchFragments issues the three independent secondary fetches
// concurrently and awaits them jointly.
func (r *profileReconciler) fetchFragments(ctx context.Context, prof *types.UserProfile) *secondaryFetch {
	fetch := &secondaryFetch{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		all, err := r.enrollments.ListForUser(gctx, prof.ID)
		if err != nil {
			fetch.enrollmentsErr = err
			return nil
		}
		fetch.enrollments = scopeEnrollments(all, prof.ProgramEnrollments)
		return nil
	})
	g.Go(func() error {
		m, err := r.memberships.GetForUser(gctx, prof.ID)
		if err != nil {
			fetch.membershipErr = err
			return nil
		}
		fetch.membership = m
		return nil
	})
	g.Go(func() error {
		s, err := r.subscriptions.GetForUser(gctx, prof.ID)
		if err != nil {
			fetch.subscriptionErr = err
			return nil
		}
		fetch.subscription = s
		return nil
	})

	_ = g.Wait()
	return fetch
}

// scopeEnrollments filters the fetched enrollment records to the programs
// the profile knows about. An empty profile map means a legacy account;
// everything is kept.
func scopeEnrollments(all []*types.Enrollment, known map[string]bool) []*types.Enrollment {
	if len(known) == 0 {
		return all
	}
	var out []*types.Enrollment
	for _, e := range all {
		if _, ok := known[e.ProgramID.String()]; ok {
			out = append(out, e)
		}
	}
	return out
}

// backfillMembership synthesizes the missing studio-membership record from
// enrollment data. This is the engine's one write-on-read behavior: legacy
// accounts predate the membership entity. Idempotent under the repo's
// duplicate check; the write is never cancelled mid-flight.
func (r *profileReconciler) backfillMembership(ctx context.Context, prof *types.UserProfile, enrollments []*types.Enrollment) *types.StudioMembership {
	var (
		programIDs []string
		earliest   time.Time
		anyActive  bool
	)
	for _, e := range enrollments {
		if !e.Enrolled {
			continue
		}
		anyActive = true
		programIDs = append(programIDs, e.ProgramID.String())
		if earliest.IsZero() || e.EnrolledAt.Before(earliest) {
			earliest = e.EnrolledAt
		}
	}
	if !anyActive {
		for _, enrolled := range prof.ProgramEnrollments {
			if enrolled {
				anyActive = true
				break
			}
		}
	}
	if !anyActive {
		return nil
	}
	if earliest.IsZero() {
		earliest = prof.CreatedAt
	}

	m := &types.StudioMembership{
		UserID:     prof.ID,
		ProgramIDs: programIDs,
		JoinedAt:   earliest,
		Source:     "enrollment_backfill",
	}
	created, err := r.memberships.Create(context.WithoutCancel(ctx), m)
	if err != nil {
		if apperr.IsDuplicate(err) {
			// A concurrent pass won the race; read theirs.
			existing, gerr := r.memberships.GetForUser(ctx, prof.ID)
			if gerr == nil {
				return existing
			}
		}
		r.log.Warn("membership backfill failed", "profileID", prof.ID, "error", err)
		return nil
	}
	r.log.Info("membership backfilled from enrollments", "profileID", prof.ID, "programs", len(programIDs))
	return created
}

// merge builds the composite: identity fields always come from the primary
// profile; fragment fields are overlaid only when the secondary source
// returned a non-empty value, so a transient secondary failure never
// visibly erases known-good data.
func (r *profileReconciler) merge(ctx context.Context, prof *types.UserProfile, fetch *secondaryFetch) *types.CompositeProfile {
	base := r.current
	if base == nil {
		// Fresh session: the denormalized copy persisted by a previous
		// session seeds the known-good fragment values.
		if cached, err := r.profiles.GetComposite(ctx, prof.ID); err == nil && cached != nil {
			base = cached
		}
	}

	composite := &types.CompositeProfile{
		Profile:      *prof,
		ReconciledAt: time.Now().UTC(),
	}
	if base != nil {
		known := base.Clone()
		composite.Enrollments = known.Enrollments
		composite.Subscription = known.Subscription
		composite.Membership = known.Membership
	}

	if len(fetch.enrollments) > 0 {
		if composite.Enrollments == nil {
			composite.Enrollments = make(map[string]types.Enrollment, len(fetch.enrollments))
		}
		for _, e := range fetch.enrollments {
			composite.Enrollments[e.ProgramID.String()] = *e
		}
	}
	if fetch.subscription != nil {
		composite.Subscription = fetch.subscription
	}
	if fetch.membership != nil {
		composite.Membership = fetch.membership
	}

	if fetch.enrollmentsErr != nil || fetch.membershipErr != nil || fetch.subscriptionErr != nil {
		composite.PartiallyStale = true
		r.log.Warn("composite reconciled with partial secondary data",
			"profileID", prof.ID,
			"enrollmentsErr", fetch.enrollmentsErr,
			"membershipErr", fetch.membershipErr,
			"subscriptionErr", fetch.subscriptionErr)
	}
	return composite
}
