package core

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
)

// PeriodRange is an inclusive date window, From <= To.
type PeriodRange struct {
	From Date `json:"from"`
	To   Date `json:"to"`
}

// Days returns the window length in days.
func (r PeriodRange) Days() int {
	return int(r.To.Time.Sub(r.From.Time).Hours()/24) + 1
}

// Contains reports whether d falls inside the range, bounds included.
func (r PeriodRange) Contains(d Date) bool {
	return !d.Before(r.From) && !d.After(r.To)
}

// BalanceMap holds signed pairwise balances keyed by member user ID.
// Positive means the member owes the viewer. It marshals with sorted keys so
// identical summaries serialize byte-identically.
type BalanceMap map[int64]Money

func (b BalanceMap) MarshalJSON() ([]byte, error) {
	ids := make([]int64, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.FormatInt(id, 10)))
		buf.WriteByte(':')
		val, err := json.Marshal(b[id])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (b *BalanceMap) UnmarshalJSON(data []byte) error {
	raw := map[string]Money{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(BalanceMap, len(raw))
	for k, v := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return err
		}
		out[id] = v
	}
	*b = out
	return nil
}

// Summary is the derived settlement view for one place, range and viewer.
// It is computed on demand and never stored.
type Summary struct {
	From                 Date       `json:"from"`
	To                   Date       `json:"to"`
	TotalExpense         Money      `json:"total_expense"`
	MyExpense            Money      `json:"my_expense"`
	OthersExpense        Money      `json:"others_expense"`
	TotalIPaid           Money      `json:"total_i_paid"`
	TotalIOwe            Money      `json:"total_i_owe"`
	TotalOwedToMe        Money      `json:"total_owed_to_me"`
	ByMemberBalance      BalanceMap `json:"by_member_balance"`
	PreviousTotalExpense Money      `json:"previous_total_expense"`
	// SpendingChangePercent is nil when no comparison is possible (both
	// periods empty). NewSpending flags a current total against an empty
	// previous period.
	SpendingChangePercent *int64 `json:"spending_change_percent"`
	NewSpending           bool   `json:"new_spending"`
	CanAdvance            bool   `json:"can_advance"`
}
