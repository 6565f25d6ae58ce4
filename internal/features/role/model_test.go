package role

import "testing"

func TestSatisfies(t *testing.T) {
	tests := []struct {
		name     string
		actor    Role
		required Role
		want     bool
	}{
		{"exact match", RoleAuditor, RoleAuditor, true},
		{"higher satisfies lower", RoleAdmin, RoleAuditor, true},
		{"manager satisfies reviewer", RoleManager, RoleReviewer, true},
		{"lower does not satisfy higher", RoleAuditor, RoleReviewer, false},
		{"viewer satisfies nothing above", RoleViewer, RoleContributor, false},
		{"unknown actor role", Role("superuser"), RoleViewer, false},
		{"unknown required role", RoleAdmin, Role("owner"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.actor.Satisfies(tt.required); got != tt.want {
				t.Errorf("Satisfies(%s, %s) = %v, want %v", tt.actor, tt.required, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	if _, err := Parse("reviewer"); err != nil {
		t.Errorf("Parse(reviewer) returned error: %v", err)
	}
	if _, err := Parse("ceo"); err == nil {
		t.Error("Parse(ceo) should fail")
	}
}

func TestRankTotalOrder(t *testing.T) {
	ordered := []Role{RoleViewer, RoleContributor, RoleAuditor, RoleReviewer, RoleManager, RoleAdmin}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Rank() <= ordered[i-1].Rank() {
			t.Errorf("rank of %s should exceed %s", ordered[i], ordered[i-1])
		}
	}
}
