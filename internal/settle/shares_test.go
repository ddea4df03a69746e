package settle

import (
	"math/rand"
	"testing"

	"equilo/internal/core"
)

func TestShares(t *testing.T) {
	tests := []struct {
		name    string
		cents   int64
		userIDs []int64
		want    map[int64]int64
	}{
		{
			name: "even split", cents: 2000, userIDs: []int64{1, 2},
			want: map[int64]int64{1: 1000, 2: 1000},
		},
		{
			name: "remainder to lowest ids", cents: 1000, userIDs: []int64{1, 2, 3},
			want: map[int64]int64{1: 334, 2: 333, 3: 333},
		},
		{
			name: "remainder independent of input order", cents: 1000, userIDs: []int64{3, 1, 2},
			want: map[int64]int64{1: 334, 2: 333, 3: 333},
		},
		{
			name: "two extra cents", cents: 1001, userIDs: []int64{5, 9, 7},
			want: map[int64]int64{5: 334, 7: 334, 9: 333},
		},
		{
			name: "single member", cents: 999, userIDs: []int64{42},
			want: map[int64]int64{42: 999},
		},
		{
			name: "duplicates collapse", cents: 900, userIDs: []int64{1, 2, 2, 3, 1},
			want: map[int64]int64{1: 300, 2: 300, 3: 300},
		},
		{
			name: "amount smaller than group", cents: 2, userIDs: []int64{10, 20, 30},
			want: map[int64]int64{10: 1, 20: 1, 30: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Shares(core.Money{Cents: tt.cents}, tt.userIDs)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d shares, want %d", len(got), len(tt.want))
			}
			for id, cents := range tt.want {
				if got[id].Cents != cents {
					t.Errorf("share[%d] = %d, want %d", id, got[id].Cents, cents)
				}
			}
		})
	}
}

func TestSharesEmpty(t *testing.T) {
	if got := Shares(core.Money{Cents: 1000}, nil); len(got) != 0 {
		t.Errorf("empty group should yield no shares, got %v", got)
	}
}

// Shares must never lose or invent a cent, whatever the amount and
// group size.
func TestSharesSumInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 1000; i++ {
		amount := rng.Int63n(1_000_000) + 1
		n := rng.Intn(12) + 1
		ids := make([]int64, n)
		for j := range ids {
			ids[j] = rng.Int63n(100) + 1
		}

		shares := Shares(core.Money{Cents: amount}, ids)

		var sum int64
		var maxShare, minShare int64
		first := true
		for _, share := range shares {
			sum += share.Cents
			if first || share.Cents > maxShare {
				maxShare = share.Cents
			}
			if first || share.Cents < minShare {
				minShare = share.Cents
			}
			first = false
		}

		if sum != amount {
			t.Fatalf("iteration %d: shares sum to %d, want %d (ids %v)", i, sum, amount, ids)
		}
		if maxShare-minShare > 1 {
			t.Fatalf("iteration %d: share spread %d exceeds one cent", i, maxShare-minShare)
		}
	}
}
