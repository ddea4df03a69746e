// Package settle computes equal-split shares and period settlement summaries.
// All arithmetic is integer cents; summaries are pure functions of their
// inputs so repeated calls with the same ledger state are byte-identical.
package settle

import (
	"sort"

	"equilo/internal/core"
)

// Shares divides amount equally among the given user IDs in integer cents
// using largest-remainder allocation: everyone gets amount/n cents and the
// first amount%n members in ascending user-ID order get one extra cent.
// The returned shares always sum to amount exactly.
func Shares(amount core.Money, userIDs []int64) map[int64]core.Money {
	shares := make(map[int64]core.Money, len(userIDs))
	if len(userIDs) == 0 {
		return shares
	}

	ids := make([]int64, 0, len(userIDs))
	seen := make(map[int64]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	n := int64(len(ids))
	base := amount.Cents / n
	remainder := amount.Cents % n
	for i, id := range ids {
		cents := base
		if int64(i) < remainder {
			cents++
		}
		shares[id] = core.Money{Cents: cents}
	}
	return shares
}
