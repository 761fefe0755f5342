package users

import (
	"testing"

	"github.com/google/uuid"
)

func TestResolveRelation(t *testing.T) {
	customer := uuid.New()
	guide := uuid.New()
	stranger := uuid.New()

	tests := []struct {
		name  string
		actor Actor
		want  Relation
	}{
		{"owner", Actor{ID: customer, Role: RoleCustomer}, RelationOwner},
		{"guide of the tour", Actor{ID: guide, Role: RoleGuide}, RelationCompany},
		{"other guide", Actor{ID: stranger, Role: RoleGuide}, RelationNone},
		{"admin", Actor{ID: stranger, Role: RoleAdmin}, RelationAdmin},
		{"stranger", Actor{ID: stranger, Role: RoleCustomer}, RelationNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveRelation(tt.actor, customer, guide); got != tt.want {
				t.Fatalf("ResolveRelation = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsValidRole(t *testing.T) {
	for _, r := range []string{"CUSTOMER", "GUIDE", "ADMIN"} {
		if !IsValidRole(r) {
			t.Errorf("%s should be valid", r)
		}
	}
	if IsValidRole("USER") {
		t.Error("USER is not a role")
	}
}
