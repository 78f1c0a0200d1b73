package domain

import "testing"

func TestApplyObligations(t *testing.T) {
	payload := map[string]any{
		"name":  "B. Halloran",
		"ssn":   "123-45-6789",
		"dob":   "2001-03-14",
		"grade": 92,
	}

	ApplyObligations(payload, []Obligation{
		{Field: "ssn", Mode: FieldModeOmit},
		{Field: "dob", Mode: FieldModeMask},
		{Field: "email", Mode: FieldModeOmit},
	})

	if _, present := payload["ssn"]; present {
		t.Fatal("expected omitted field removed")
	}
	if payload["dob"] != MaskSentinel {
		t.Fatalf("expected masked field replaced with sentinel, got %v", payload["dob"])
	}
	if payload["name"] != "B. Halloran" || payload["grade"] != 92 {
		t.Fatal("unmentioned fields must pass through untouched")
	}
}

func TestApplyObligationsDenyRemovesField(t *testing.T) {
	payload := map[string]any{"ssn": "123-45-6789"}

	ApplyObligations(payload, []Obligation{{Field: "ssn", Mode: FieldModeDeny}})

	if _, present := payload["ssn"]; present {
		t.Fatal("expected DENY to remove the field")
	}
}

func TestApplyObligationsNilPayload(t *testing.T) {
	// Must not panic.
	ApplyObligations(nil, []Obligation{{Field: "ssn", Mode: FieldModeOmit}})
}

func TestFieldModeRestrictiveness(t *testing.T) {
	cases := []struct {
		more FieldMode
		less FieldMode
	}{
		{FieldModeDeny, FieldModeOmit},
		{FieldModeOmit, FieldModeMask},
		{FieldModeMask, FieldModeAllow},
		{FieldModeDeny, FieldModeAllow},
	}

	for _, tc := range cases {
		if !tc.more.MoreRestrictiveThan(tc.less) {
			t.Fatalf("expected %s to beat %s", tc.more, tc.less)
		}
		if tc.less.MoreRestrictiveThan(tc.more) {
			t.Fatalf("%s must not beat %s", tc.less, tc.more)
		}
	}

	if FieldModeOmit.MoreRestrictiveThan(FieldModeOmit) {
		t.Fatal("a mode must not be more restrictive than itself")
	}
}

func TestMutatingActions(t *testing.T) {
	reads := map[Action]bool{
		ActionCourseRead:   true,
		ActionCadetRead:    true,
		ActionTrainingRead: true,
		ActionAuditRead:    true,
	}

	for _, action := range Actions() {
		if action.Mutating() == reads[action] {
			t.Fatalf("action %s: unexpected Mutating()=%v", action, action.Mutating())
		}
	}
}

func TestAttributePermissions(t *testing.T) {
	p := Principal{Attributes: map[string]any{"permissions": []string{"course:read"}}}
	if got := p.AttributePermissions(); len(got) != 1 || got[0] != "course:read" {
		t.Fatalf("unexpected grants: %v", got)
	}

	// JSON-decoded claims arrive as []any.
	p = Principal{Attributes: map[string]any{"permissions": []any{"cadet:read", 42}}}
	if got := p.AttributePermissions(); len(got) != 1 || got[0] != "cadet:read" {
		t.Fatalf("expected non-string entries skipped, got %v", got)
	}

	if got := (Principal{}).AttributePermissions(); len(got) != 0 {
		t.Fatalf("expected no grants, got %v", got)
	}
}
