package onboarding

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/vocaid/identity/pkg/domain"
)

// Input is the state snapshot a routing decision is computed from. All
// fields are caller-supplied; the resolver performs no fetches and never
// mutates the snapshot.
type Input struct {
	User           *domain.OnboardingUser
	AuthLoaded     bool
	SignedIn       bool
	Consent        *domain.ConsentStatus
	ConsentLoading bool

	// CurrentPath is diagnostic only; it never changes the decision.
	CurrentPath string
}

// Decision is the resolver output. Exactly one of three states holds:
// loading (ShowLoading true), redirect (NextRoute non-empty), or complete
// (AllowAccess true). Reason is diagnostic only; callers branch on the other
// three fields.
type Decision struct {
	NextRoute   string
	Reason      string
	AllowAccess bool
	ShowLoading bool
}

// Resolver computes routing decisions. It is stateless: identical inputs
// always yield identical decisions, so callers may invoke it on every
// request or render without memoization. The logger emits diagnostics only.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver returns a resolver logging decisions at debug level. A nil
// logger discards diagnostics.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{logger: logger}
}

// defaultResolver backs the package-level convenience functions.
var defaultResolver = NewResolver(nil)

// Next returns the routing decision for in. See Resolver.Next.
func Next(in Input) Decision {
	return defaultResolver.Next(in)
}

// IsComplete reports whether a signed-in user with the given consent
// snapshot has satisfied every required step.
func IsComplete(u *domain.OnboardingUser, consent *domain.ConsentStatus) bool {
	return defaultResolver.IsComplete(u, consent)
}

// Next walks the registry in declared order and returns the first unsatisfied
// required step as a redirect, a loading decision while auth or consent state
// is still unresolved, or an allow-access decision when everything required
// is complete.
func (r *Resolver) Next(in Input) Decision {
	d := r.next(in)
	r.logger.Debug("onboarding route resolved",
		"current_path", in.CurrentPath,
		"next_route", d.NextRoute,
		"allow_access", d.AllowAccess,
		"show_loading", d.ShowLoading,
		"reason", d.Reason,
	)
	return d
}

func (r *Resolver) next(in Input) Decision {
	if !in.AuthLoaded {
		return Decision{Reason: "auth not loaded", ShowLoading: true}
	}
	if !in.SignedIn || in.User == nil {
		return Decision{NextRoute: RouteSignIn, Reason: "not authenticated"}
	}

	for _, step := range registry {
		if !step.RequiredFor(in.User) {
			continue
		}
		if step.CompleteFor(in.User, in.Consent) {
			continue
		}

		// Consent incompleteness is ambiguous until the status has actually
		// been fetched; "unknown" and "checked and missing" must not be
		// conflated.
		if step.Key == StepConsent {
			if in.ConsentLoading {
				return Decision{Reason: "consent status loading", ShowLoading: true}
			}
			if in.Consent == nil {
				return Decision{NextRoute: step.Route, Reason: "consent status unknown"}
			}
		}

		return Decision{NextRoute: step.Route, Reason: fmt.Sprintf("step %q incomplete", step.Key)}
	}

	return Decision{AllowAccess: true, Reason: "onboarding complete"}
}

// IsComplete reports whether a signed-in user with the given consent
// snapshot has satisfied every required step.
func (r *Resolver) IsComplete(u *domain.OnboardingUser, consent *domain.ConsentStatus) bool {
	d := r.next(Input{User: u, AuthLoaded: true, SignedIn: true, Consent: consent})
	return d.AllowAccess && d.NextRoute == ""
}

// NextStepAfter returns where to navigate once completedKey's own page has
// submitted its form: the route of the first later incomplete required step,
// skipping inline steps, or the default landing when none remain. The caller
// already knows completedKey is done, so earlier steps are not re-examined.
func NextStepAfter(completedKey StepKey, u *domain.OnboardingUser, consent *domain.ConsentStatus) string {
	idx := -1
	for i, s := range registry {
		if s.Key == completedKey {
			idx = i
			break
		}
	}

	for _, s := range registry[idx+1:] {
		if s.Inline {
			continue
		}
		if !s.RequiredFor(u) {
			continue
		}
		if !s.CompleteFor(u, consent) {
			return s.Route
		}
	}

	return RouteDefaultLanding
}
