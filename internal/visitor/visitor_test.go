package visitor

import (
	"strings"
	"testing"
)

func validVisitor() Visitor {
	return Visitor{
		Name:        "John Smith",
		Date:        "2025-05-01",
		Time:        "14:30",
		Reason:      "Scheduled maintenance",
		ActionTaken: ActionCheckedIn,
	}
}

func TestValidateAcceptsValidRecord(t *testing.T) {
	v := validVisitor()
	if fields := v.Validate(); fields != nil {
		t.Fatalf("unexpected validation errors: %#v", fields)
	}
}

func TestValidateRequiredFields(t *testing.T) {
	v := Visitor{}
	fields := v.Validate()
	if fields == nil {
		t.Fatal("expected validation errors")
	}
	for _, field := range []string{"name", "date", "time", "reason", "action"} {
		if fields[field] == "" {
			t.Fatalf("expected error for %s, got %#v", field, fields)
		}
	}
}

func TestValidateDateFormat(t *testing.T) {
	for _, date := range []string{"01-05-2025", "2025/05/01", "2025-13-01", "2025-02-30", "yesterday"} {
		v := validVisitor()
		v.Date = date
		fields := v.Validate()
		if fields == nil || fields["date"] == "" {
			t.Fatalf("expected date error for %q, got %#v", date, fields)
		}
	}
}

func TestValidateTimeFormat(t *testing.T) {
	for _, tm := range []string{"2:30 PM", "25:00", "14:60", "noon"} {
		v := validVisitor()
		v.Time = tm
		fields := v.Validate()
		if fields == nil || fields["time"] == "" {
			t.Fatalf("expected time error for %q, got %#v", tm, fields)
		}
	}
}

func TestValidateLengthLimits(t *testing.T) {
	v := validVisitor()
	v.Name = strings.Repeat("a", 256)
	if fields := v.Validate(); fields == nil || fields["name"] == "" {
		t.Fatal("expected name length error")
	}

	v = validVisitor()
	v.Reason = strings.Repeat("a", 301)
	if fields := v.Validate(); fields == nil || fields["reason"] == "" {
		t.Fatal("expected reason length error")
	}
}

func TestValidateActionEnum(t *testing.T) {
	v := validVisitor()
	v.ActionTaken = "arrested"
	if fields := v.Validate(); fields == nil || fields["action"] == "" {
		t.Fatal("expected action error")
	}
}

func TestValidActionTaken(t *testing.T) {
	for _, action := range []string{ActionCheckedIn, ActionCheckedOut, ActionReported} {
		if !ValidActionTaken(action) {
			t.Fatalf("expected %q to be valid", action)
		}
	}
	if ValidActionTaken("") || ValidActionTaken("other") {
		t.Fatal("expected unknown actions to be invalid")
	}
}
