package rewards

import (
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Run with -race: claims, stakes and reads on shared NFTs must serialize.
func TestConcurrentClaimsAndStakesKeepTotals(t *testing.T) {
	f := newFixture(t)
	owners := map[uint64]common.Address{1: alice, 2: bob, 3: alice}
	for id, owner := range owners {
		f.mint(t, id, owner, 25000)
	}
	f.advanceMonths(3)
	cur := f.reg.CurrentMonth()

	const rounds = 10
	var wg sync.WaitGroup
	errCh := make(chan error, 16*rounds*len(owners))
	run := func(fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				if err := fn(); err != nil {
					errCh <- err
				}
			}
		}()
	}
	for id, owner := range owners {
		run(func() error {
			_, err := f.wrapper.Claim(owner, id)
			return err
		})
		run(func() error {
			_, err := f.tokenD.Claim(owner, id)
			return err
		})
		run(func() error {
			_, err := f.sharesD.Claim(owner, id)
			return err
		})
		run(func() error { return f.reg.Stake(owner, id, new(uint256.Int)) })
		run(func() error { return f.reg.Unstake(owner, id, tokens(1)) })
		run(func() error {
			_, err := f.wrapper.Claimable(id)
			return err
		})
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent op failed: %v", err)
	}

	sum := new(uint256.Int)
	for id := range owners {
		claimed := new(uint256.Int)
		for _, d := range f.wrapper.Distributors() {
			want := new(uint256.Int)
			for m := uint64(1); m <= cur; m++ {
				r, err := d.Strategy().RewardNftIDMonth(id, m)
				if err != nil {
					t.Fatal(err)
				}
				want.Add(want, r)
			}
			rec, err := d.Record(id)
			if err != nil {
				t.Fatal(err)
			}
			if !rec.ClaimedTotal.Eq(want) || rec.LastClaimedMonth != cur {
				t.Fatalf("nft %d %s: claimed %s through %d, want %s through %d",
					id, d.Name(), rec.ClaimedTotal.Dec(), rec.LastClaimedMonth, want.Dec(), cur)
			}
			claimed.Add(claimed, want)
		}

		r, err := f.reg.StakedAt(id, cur)
		if err != nil {
			t.Fatal(err)
		}
		want := new(uint256.Int).Sub(tokens(25000), tokens(rounds))
		want.Add(want, claimed)
		if !r.Staked.Eq(want) {
			t.Fatalf("nft %d: staked %s, want %s", id, r.Staked.Dec(), want.Dec())
		}
		sum.Add(sum, &r.Staked)
	}

	g, err := f.reg.GlobalAt(cur)
	if err != nil {
		t.Fatal(err)
	}
	if !g.Staked.Eq(sum) {
		t.Fatalf("global staked %s != sum of nfts %s", g.Staked.Dec(), sum.Dec())
	}
	if !f.token.BalanceOf(vault).Eq(sum) {
		t.Fatalf("vault holds %s, positions total %s", f.token.BalanceOf(vault).Dec(), sum.Dec())
	}
	b, err := f.wrapper.Claimable(1)
	if err != nil {
		t.Fatal(err)
	}
	if !b.Total.IsZero() {
		t.Fatalf("nothing should remain claimable, got %s", b.Total.Dec())
	}
}
