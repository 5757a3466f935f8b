//go:build darwin

package secrets

import (
	"strings"
	"testing"
)

func TestIsKeychainLockedError(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{in: "set sa:bot@example.iam.gserviceaccount.com: User Interaction is not allowed. (-25308)", want: true},
		{in: "(-25308)", want: true},
		{in: "set sa:bot: item already exists", want: false},
		{in: "", want: false},
	}
	for _, tc := range cases {
		if got := IsKeychainLockedError(tc.in); got != tc.want {
			t.Fatalf("IsKeychainLockedError(%q)=%v want %v", tc.in, got, tc.want)
		}
	}
}

func TestLoginKeychainPath(t *testing.T) {
	if p := loginKeychainPath(); !strings.HasSuffix(p, "login.keychain-db") {
		t.Fatalf("unexpected keychain path: %q", p)
	}
}
