package settle

import (
	"equilo/internal/core"
)

// Summarize aggregates the expenses of one range into the viewer's settlement
// summary. previous holds the expenses of the immediately preceding window of
// equal length and feeds only the comparison fields. Expenses outside the
// range are ignored, so callers may pass unfiltered ledgers.
//
// Sign convention for balances: positive means the member owes the viewer.
func Summarize(r core.PeriodRange, current, previous []core.Expense, viewerID int64) core.Summary {
	s := core.Summary{
		From:            r.From,
		To:              r.To,
		ByMemberBalance: core.BalanceMap{},
	}

	balances := map[int64]int64{}

	for _, e := range current {
		if !r.Contains(e.Date) {
			continue
		}
		s.TotalExpense.Cents += e.Amount.Cents

		shares := Shares(e.Amount, e.SplitUserIDs)
		if own, ok := shares[viewerID]; ok {
			s.MyExpense.Cents += own.Cents
		}
		if e.PaidBy == viewerID {
			s.TotalIPaid.Cents += e.Amount.Cents
			for member, share := range shares {
				if member != viewerID {
					balances[member] += share.Cents
				}
			}
		} else if share, ok := shares[viewerID]; ok {
			balances[e.PaidBy] -= share.Cents
		}
	}

	s.OthersExpense.Cents = s.TotalExpense.Cents - s.MyExpense.Cents

	for member, cents := range balances {
		if cents == 0 {
			continue
		}
		s.ByMemberBalance[member] = core.Money{Cents: cents}
		if cents > 0 {
			s.TotalOwedToMe.Cents += cents
		} else {
			s.TotalIOwe.Cents += -cents
		}
	}

	prevRange := core.PeriodRange{From: r.From.AddDays(-r.Days()), To: r.From.AddDays(-1)}
	for _, e := range previous {
		if !prevRange.Contains(e.Date) {
			continue
		}
		s.PreviousTotalExpense.Cents += e.Amount.Cents
	}

	switch {
	case s.PreviousTotalExpense.Cents > 0:
		pct := changePercent(s.TotalExpense.Cents, s.PreviousTotalExpense.Cents)
		s.SpendingChangePercent = &pct
	case s.TotalExpense.Cents > 0:
		s.NewSpending = true
	}

	return s
}

// changePercent computes round(100*(cur-prev)/prev) in integer arithmetic,
// rounding half away from zero. prev must be positive.
func changePercent(cur, prev int64) int64 {
	diff := cur - prev
	neg := diff < 0
	if neg {
		diff = -diff
	}
	pct := (diff*100 + prev/2) / prev
	if neg {
		return -pct
	}
	return pct
}
