package onboarding

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/vocaid/identity/pkg/domain"
)

func TestNext_LoadingPrecedesEverything(t *testing.T) {
	// Auth not loaded wins over every other input, including a user who has
	// completed everything.
	inputs := []Input{
		{AuthLoaded: false},
		{AuthLoaded: false, SignedIn: true, User: testUser(true, true, true), Consent: consentComplete()},
		{AuthLoaded: false, ConsentLoading: true},
	}

	for _, in := range inputs {
		got := Next(in)
		if got.NextRoute != "" {
			t.Errorf("NextRoute: got %q, want empty", got.NextRoute)
		}
		if !got.ShowLoading {
			t.Error("ShowLoading should be true while auth is loading")
		}
		if got.AllowAccess {
			t.Error("AllowAccess must be false while auth is loading")
		}
	}
}

func TestNext_SignedOut(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{
			name: "not signed in",
			in:   Input{AuthLoaded: true, SignedIn: false},
		},
		{
			name: "signed in but user snapshot missing",
			in:   Input{AuthLoaded: true, SignedIn: true, User: nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Next(tt.in)
			if got.NextRoute != RouteSignIn {
				t.Errorf("NextRoute: got %q, want %q", got.NextRoute, RouteSignIn)
			}
			if got.AllowAccess || got.ShowLoading {
				t.Errorf("want pure redirect, got %+v", got)
			}
		})
	}
}

func TestNext_Scenarios(t *testing.T) {
	tests := []struct {
		name           string
		user           *domain.OnboardingUser
		consent        *domain.ConsentStatus
		consentLoading bool
		wantRoute      string
		wantAccess     bool
		wantLoading    bool
		wantReason     string
	}{
		{
			name:      "unconfirmed account type redirects to account type",
			user:      testUser(false, true, false),
			consent:   consentComplete(),
			wantRoute: RouteAccountType,
		},
		{
			name:      "federated user without credential redirects to password",
			user:      testUser(true, false, false),
			consent:   consentComplete(),
			wantRoute: RoutePassword,
		},
		{
			name:       "consent never fetched redirects with unknown reason",
			user:       testUser(true, true, false),
			consent:    nil,
			wantRoute:  RouteConsent,
			wantReason: "unknown",
		},
		{
			name:           "consent loading shows spinner instead of redirect",
			user:           testUser(true, true, false),
			consent:        nil,
			consentLoading: true,
			wantLoading:    true,
		},
		{
			name:       "everything satisfied allows access",
			user:       testUser(true, true, false),
			consent:    consentComplete(),
			wantAccess: true,
		},
		{
			name:      "consent fetched but missing redirects to consent",
			user:      testUser(true, true, false),
			consent:   consentMissing(),
			wantRoute: RouteConsent,
		},
		{
			name:      "stale consent redirects to consent",
			user:      testUser(true, true, false),
			consent:   consentStale(),
			wantRoute: RouteConsent,
		},
		{
			name:       "unverified phone never blocks access",
			user:       testUser(true, true, false),
			consent:    consentComplete(),
			wantAccess: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Next(Input{
				User:           tt.user,
				AuthLoaded:     true,
				SignedIn:       true,
				Consent:        tt.consent,
				ConsentLoading: tt.consentLoading,
			})

			if got.NextRoute != tt.wantRoute {
				t.Errorf("NextRoute: got %q, want %q", got.NextRoute, tt.wantRoute)
			}
			if got.AllowAccess != tt.wantAccess {
				t.Errorf("AllowAccess: got %v, want %v", got.AllowAccess, tt.wantAccess)
			}
			if got.ShowLoading != tt.wantLoading {
				t.Errorf("ShowLoading: got %v, want %v", got.ShowLoading, tt.wantLoading)
			}
			if tt.wantReason != "" && !strings.Contains(got.Reason, tt.wantReason) {
				t.Errorf("Reason: got %q, want it to mention %q", got.Reason, tt.wantReason)
			}
		})
	}
}

func TestNext_EarliestIncompleteStepWins(t *testing.T) {
	// Account type unconfirmed AND no password AND no consent: account type
	// precedes everything else in the registry.
	got := Next(Input{
		User:       testUser(false, false, false),
		AuthLoaded: true,
		SignedIn:   true,
		Consent:    nil,
	})

	if got.NextRoute != RouteAccountType {
		t.Errorf("NextRoute: got %q, want %q", got.NextRoute, RouteAccountType)
	}

	// With account type confirmed, the password step is next, even though
	// consent is also unresolved.
	got = Next(Input{
		User:       testUser(true, false, false),
		AuthLoaded: true,
		SignedIn:   true,
		Consent:    nil,
	})

	if got.NextRoute != RoutePassword {
		t.Errorf("NextRoute: got %q, want %q", got.NextRoute, RoutePassword)
	}
}

func TestNext_Idempotent(t *testing.T) {
	inputs := []Input{
		{},
		{AuthLoaded: true},
		{AuthLoaded: true, SignedIn: true, User: testUser(false, false, false)},
		{AuthLoaded: true, SignedIn: true, User: testUser(true, true, false), Consent: consentComplete()},
		{AuthLoaded: true, SignedIn: true, User: testUser(true, true, false), ConsentLoading: true},
	}

	for _, in := range inputs {
		first := Next(in)
		second := Next(in)
		if first != second {
			t.Errorf("decisions differ for identical input: %+v vs %+v", first, second)
		}
	}
}

func TestNext_ExactlyOneState(t *testing.T) {
	inputs := []Input{
		{},
		{AuthLoaded: true},
		{AuthLoaded: true, SignedIn: true, User: testUser(false, true, false)},
		{AuthLoaded: true, SignedIn: true, User: testUser(true, true, false), ConsentLoading: true},
		{AuthLoaded: true, SignedIn: true, User: testUser(true, true, true), Consent: consentComplete()},
	}

	for _, in := range inputs {
		got := Next(in)

		states := 0
		if got.ShowLoading {
			states++
		}
		if got.NextRoute != "" {
			states++
		}
		if got.AllowAccess {
			states++
		}
		if states != 1 {
			t.Errorf("decision must be exactly one of loading/redirect/complete, got %+v", got)
		}
	}
}

func TestIsComplete(t *testing.T) {
	tests := []struct {
		name    string
		user    *domain.OnboardingUser
		consent *domain.ConsentStatus
		want    bool
	}{
		{
			name:    "complete with password",
			user:    testUser(true, true, false),
			consent: consentComplete(),
			want:    true,
		},
		{
			name:    "complete regardless of phone",
			user:    testUser(true, true, true),
			consent: consentComplete(),
			want:    true,
		},
		{
			name:    "account type unconfirmed",
			user:    testUser(false, true, false),
			consent: consentComplete(),
			want:    false,
		},
		{
			name:    "credential missing",
			user:    testUser(true, false, false),
			consent: consentComplete(),
			want:    false,
		},
		{
			name:    "consent unknown",
			user:    testUser(true, true, false),
			consent: nil,
			want:    false,
		},
		{
			name:    "needs re-consent",
			user:    testUser(true, true, false),
			consent: consentStale(),
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsComplete(tt.user, tt.consent); got != tt.want {
				t.Errorf("IsComplete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextStepAfter(t *testing.T) {
	tests := []struct {
		name      string
		completed StepKey
		user      *domain.OnboardingUser
		consent   *domain.ConsentStatus
		want      string
	}{
		{
			name:      "account type done, consent still missing",
			completed: StepAccountType,
			user:      testUser(true, true, false),
			consent:   consentMissing(),
			want:      RouteConsent,
		},
		{
			name:      "account type done for federated user goes to password",
			completed: StepAccountType,
			user:      testUser(true, false, false),
			consent:   consentMissing(),
			want:      RoutePassword,
		},
		{
			name:      "password done goes to consent",
			completed: StepPassword,
			user:      testUser(true, true, false),
			consent:   consentMissing(),
			want:      RouteConsent,
		},
		{
			name:      "consent done lands on dashboard even with phone unverified",
			completed: StepConsent,
			user:      testUser(true, true, false),
			consent:   consentComplete(),
			want:      RouteDefaultLanding,
		},
		{
			name:      "everything after account type already done",
			completed: StepAccountType,
			user:      testUser(true, true, false),
			consent:   consentComplete(),
			want:      RouteDefaultLanding,
		},
		{
			name:      "later steps skipped when not required",
			completed: StepAccountType,
			user:      testUser(true, true, true),
			consent:   consentComplete(),
			want:      RouteDefaultLanding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextStepAfter(tt.completed, tt.user, tt.consent); got != tt.want {
				t.Errorf("NextStepAfter(%q) = %q, want %q", tt.completed, got, tt.want)
			}
		})
	}
}

func TestNewResolver_LoggerDoesNotChangeDecisions(t *testing.T) {
	logged := NewResolver(slog.New(slog.NewTextHandler(os.Stdout, nil)))
	silent := NewResolver(nil)

	inputs := []Input{
		{},
		{AuthLoaded: true},
		{AuthLoaded: true, SignedIn: true, User: testUser(false, false, false)},
		{AuthLoaded: true, SignedIn: true, User: testUser(true, true, false), Consent: consentComplete(), CurrentPath: "/dashboard"},
	}

	for _, in := range inputs {
		if got, want := logged.Next(in), silent.Next(in); got != want {
			t.Errorf("decision depends on logger: %+v vs %+v", got, want)
		}
	}
}
