package onboarding

import (
	"math"

	"github.com/vocaid/identity/pkg/domain"
)

// StepKey identifies an onboarding step. The set is closed.
type StepKey string

const (
	StepAccountType StepKey = "accountType"
	StepPassword    StepKey = "password"
	StepConsent     StepKey = "consent"
	StepPhone       StepKey = "phone"
)

// Step is a static registry entry, not per-user data. Predicates are
// evaluated against caller-supplied snapshots and never fetch anything.
type Step struct {
	Key   StepKey
	Route string

	// Required marks the step unconditionally mandatory. Conditionally
	// required steps leave this false and set requiredWhen.
	Required bool

	// Inline steps render inside another step's page: they are hidden from
	// the progress indicator and skipped by post-step navigation, but still
	// tracked for completion.
	Inline bool

	requiredWhen func(*domain.OnboardingUser) bool
	completeWhen func(*domain.OnboardingUser, *domain.ConsentStatus) bool
}

// RequiredFor reports whether this step is mandatory for the given user.
// An absent per-user predicate means never.
func (s Step) RequiredFor(u *domain.OnboardingUser) bool {
	if s.Required {
		return true
	}
	if s.requiredWhen == nil {
		return false
	}
	return s.requiredWhen(u)
}

// CompleteFor reports whether this step is satisfied. consent may be nil when
// the status has not been fetched; predicates treat missing data as
// incomplete.
func (s Step) CompleteFor(u *domain.OnboardingUser, consent *domain.ConsentStatus) bool {
	if s.completeWhen == nil {
		return false
	}
	return s.completeWhen(u, consent)
}

// registry defines step precedence. Order is significant: the resolver
// always returns the earliest unsatisfied required step, never a later one.
// The slice is never mutated at runtime; accessors hand out copies.
var registry = []Step{
	{
		Key:      StepAccountType,
		Route:    RouteAccountType,
		Required: true,
		completeWhen: func(u *domain.OnboardingUser, _ *domain.ConsentStatus) bool {
			return u.AccountTypeConfirmedAt != nil
		},
	},
	{
		// Required only for federation-provisioned accounts that have not
		// set a local credential yet.
		Key:   StepPassword,
		Route: RoutePassword,
		requiredWhen: func(u *domain.OnboardingUser) bool {
			return !u.HasPassword
		},
		completeWhen: func(u *domain.OnboardingUser, _ *domain.ConsentStatus) bool {
			return u.HasPassword
		},
	},
	{
		Key:      StepConsent,
		Route:    RouteConsent,
		Required: true,
		completeWhen: func(_ *domain.OnboardingUser, consent *domain.ConsentStatus) bool {
			return consent != nil && consent.Complete()
		},
	},
	{
		// Phone verification lives on the consent page and never gates
		// access.
		Key:    StepPhone,
		Route:  RouteConsent,
		Inline: true,
		completeWhen: func(u *domain.OnboardingUser, _ *domain.ConsentStatus) bool {
			return u.PhoneVerified
		},
	},
}

// Steps returns a copy of the full registry in declared order.
func Steps() []Step {
	return append([]Step(nil), registry...)
}

// RequiredSteps returns, in order, the steps required for this user.
func RequiredSteps(u *domain.OnboardingUser) []Step {
	var out []Step
	for _, s := range registry {
		if s.RequiredFor(u) {
			out = append(out, s)
		}
	}
	return out
}

// VisibleSteps returns, in order, the steps the progress indicator shows:
// inline steps are hidden, and conditionally required steps appear only when
// required for this user.
func VisibleSteps(u *domain.OnboardingUser) []Step {
	var out []Step
	for _, s := range registry {
		if s.Inline || !s.RequiredFor(u) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// StepState is one entry of a progress indicator.
type StepState struct {
	Key      StepKey
	Active   bool
	Complete bool
}

// Progress describes a user's position within the visible step list.
type Progress struct {
	Position int // 1-based; 0 when currentKey is not visible
	Total    int
	Percent  int
	Steps    []StepState
}

// StepProgress computes progress-indicator state for the step the user is
// currently on. Complete marks steps strictly before the current one; Active
// marks exactly the current one. An unknown or hidden currentKey yields
// position 0 with no active step.
func StepProgress(currentKey StepKey, u *domain.OnboardingUser) Progress {
	visible := VisibleSteps(u)

	currentIdx := -1
	for i, s := range visible {
		if s.Key == currentKey {
			currentIdx = i
			break
		}
	}

	total := len(visible)
	position := currentIdx + 1

	percent := 0
	if total > 0 {
		percent = int(math.Round(float64(position) / float64(total) * 100))
	}

	states := make([]StepState, total)
	for i, s := range visible {
		states[i] = StepState{
			Key:      s.Key,
			Active:   i == currentIdx,
			Complete: i < currentIdx,
		}
	}

	return Progress{
		Position: position,
		Total:    total,
		Percent:  percent,
		Steps:    states,
	}
}

// StepByKey returns the registry entry for key.
func StepByKey(key StepKey) (Step, bool) {
	for _, s := range registry {
		if s.Key == key {
			return s, true
		}
	}
	return Step{}, false
}

// StepByRoute returns the first registry entry mounted on route. The consent
// and phone steps share a route; the earlier (consent) entry wins.
func StepByRoute(route string) (Step, bool) {
	for _, s := range registry {
		if s.Route == route {
			return s, true
		}
	}
	return Step{}, false
}
