// Package visitor は来訪者記録のCRUDと集計を提供します。
package visitor

import (
	"strings"
	"time"
)

// 来訪者への対応種別。
const (
	ActionCheckedIn  = "checked_in"
	ActionCheckedOut = "checked_out"
	ActionReported   = "reported"
)

const (
	maxNameLength   = 255
	maxReasonLength = 300

	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Visitor は来訪者記録1件です。
type Visitor struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Date        string `json:"date"` // YYYY-MM-DD
	Time        string `json:"time"` // HH:MM
	Reason      string `json:"reason"`
	ActionTaken string `json:"actionTaken"`
}

// Stats はダッシュボード用の当月集計です。
type Stats struct {
	Total      int64 `json:"total"`
	CheckedIn  int64 `json:"checkedIn"`
	CheckedOut int64 `json:"checkedOut"`
	Reported   int64 `json:"reported"`
}

// ListFilter は一覧取得の検索・絞り込み条件です。
type ListFilter struct {
	Search string // 名前・理由の部分一致
	Action string // 対応種別での絞り込み（空は全件）
	Limit  int
	Offset int
}

// ValidActionTaken は対応種別が定義済みか判定します。
func ValidActionTaken(action string) bool {
	switch action {
	case ActionCheckedIn, ActionCheckedOut, ActionReported:
		return true
	default:
		return false
	}
}

// Validate は記録の入力値を検証し、フィールドごとのエラーを返します。
// 違反が無ければ nil を返します。
func (v *Visitor) Validate() map[string]string {
	fields := map[string]string{}

	name := strings.TrimSpace(v.Name)
	switch {
	case name == "":
		fields["name"] = "Visitor name is required"
	case len(name) > maxNameLength:
		fields["name"] = "Visitor name must not exceed 255 characters"
	}

	switch {
	case v.Date == "":
		fields["date"] = "Date is required"
	default:
		if t, err := time.Parse(dateLayout, v.Date); err != nil || t.Format(dateLayout) != v.Date {
			fields["date"] = "Date must be a valid date"
		}
	}

	switch {
	case v.Time == "":
		fields["time"] = "Time is required"
	default:
		if t, err := time.Parse(timeLayout, v.Time); err != nil || t.Format(timeLayout) != v.Time {
			fields["time"] = "Time must be a valid time"
		}
	}

	reason := strings.TrimSpace(v.Reason)
	switch {
	case reason == "":
		fields["reason"] = "Reason is required"
	case len(reason) > maxReasonLength:
		fields["reason"] = "Reason must not exceed 300 characters"
	}

	switch {
	case v.ActionTaken == "":
		fields["action"] = "Action is required"
	case !ValidActionTaken(v.ActionTaken):
		fields["action"] = "Action has an invalid value"
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}
