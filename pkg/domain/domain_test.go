package domain

import (
	"errors"
	"testing"
)

func TestValidateProfile(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		wantErr bool
	}{
		{
			name:    "valid admin",
			profile: Profile{IdentityID: "u1", Role: RoleAdmin},
			wantErr: false,
		},
		{
			name:    "valid client with affiliation",
			profile: Profile{IdentityID: "u2", Role: RoleClient, TenantAffiliation: "a@x.com"},
			wantErr: false,
		},
		{
			name:    "missing role",
			profile: Profile{IdentityID: "u3"},
			wantErr: true,
		},
		{
			name:    "unknown role",
			profile: Profile{IdentityID: "u4", Role: Role("superuser")},
			wantErr: true,
		},
		{
			name:    "affiliation not an email",
			profile: Profile{IdentityID: "u5", Role: RoleClient, TenantAffiliation: "not-an-email"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProfile(&tt.profile)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateProfile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformedDocument) {
				t.Errorf("error should wrap ErrMalformedDocument, got %v", err)
			}
		})
	}
}

func TestValidateTenant(t *testing.T) {
	valid := TenantRecord{ID: "t1", Name: "Acme", ContactEmail: "acme@x.com"}
	if err := ValidateTenant(&valid); err != nil {
		t.Errorf("ValidateTenant() unexpected error: %v", err)
	}

	noEmail := TenantRecord{ID: "t2", Name: "NoMail"}
	if err := ValidateTenant(&noEmail); err == nil {
		t.Error("ValidateTenant() should reject record without contact email")
	}
}

func TestTenantListFind(t *testing.T) {
	list := TenantList{
		{ID: "t1", Name: "One", ContactEmail: "one@x.com"},
		{ID: "t2", Name: "Two", ContactEmail: "two@x.com"},
	}

	if rec := list.FindByID("t2"); rec == nil || rec.Name != "Two" {
		t.Errorf("FindByID(t2) = %+v, want Two", rec)
	}
	if rec := list.FindByID("t9"); rec != nil {
		t.Errorf("FindByID(t9) = %+v, want nil", rec)
	}
	if rec := list.FindByContactEmail("one@x.com"); rec == nil || rec.ID != "t1" {
		t.Errorf("FindByContactEmail(one@x.com) = %+v, want t1", rec)
	}
	if rec := list.FindByContactEmail("none@x.com"); rec != nil {
		t.Errorf("FindByContactEmail(none@x.com) = %+v, want nil", rec)
	}
}

func TestSessionIsAdmin(t *testing.T) {
	var nilSession *Session
	if nilSession.IsAdmin() {
		t.Error("nil session should not be admin")
	}
	if !(&Session{Role: RoleAdmin}).IsAdmin() {
		t.Error("admin session should be admin")
	}
	if (&Session{Role: RoleClient}).IsAdmin() {
		t.Error("client session should not be admin")
	}
}
