package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/cropshield/cropshield/internal/domain"
)

func TestBuyPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects non-positive units", func(t *testing.T) {
		h := newHarness(t, 9)
		for _, units := range []int64{0, -3} {
			if _, err := h.engine.BuyPolicy(ctx, "farmer", units); !errors.Is(err, domain.ErrInvalidAmount) {
				t.Fatalf("units %d: err = %v, want ErrInvalidAmount", units, err)
			}
		}
	})

	t.Run("rejects purchase into shareless pool", func(t *testing.T) {
		h := newHarness(t, 9)
		h.fund("farmer", 100)
		if _, err := h.engine.BuyPolicy(ctx, "farmer", 1); !errors.Is(err, domain.ErrNoInvestorCapital) {
			t.Fatalf("err = %v, want ErrNoInvestorCapital", err)
		}
		// Nothing moved: the first deposit still bootstraps 1:1.
		h.fund("investor", 1000)
		evt, err := h.engine.Deposit(ctx, "investor", 1000)
		if err != nil {
			t.Fatalf("Deposit: %v", err)
		}
		if evt.SharesMinted != 1000 {
			t.Fatalf("bootstrap shares = %d, want 1000", evt.SharesMinted)
		}
	})

	t.Run("rejects failed premium transfer", func(t *testing.T) {
		h := newHarness(t, 9)
		h.fund("investor", 1000)
		if _, err := h.engine.Deposit(ctx, "investor", 1000); err != nil {
			t.Fatalf("Deposit: %v", err)
		}
		// Farmer has funds but never approved the pool.
		h.assets.Mint("farmer", 100)
		if _, err := h.engine.BuyPolicy(ctx, "farmer", 1); !errors.Is(err, domain.ErrTransferFailed) {
			t.Fatalf("err = %v, want ErrTransferFailed", err)
		}
		if units, _ := h.engine.UnitBalance(1, "farmer"); units != 0 {
			t.Fatalf("units after failed buy = %d, want 0", units)
		}
	})

	t.Run("purchase", func(t *testing.T) {
		h := newHarness(t, 9)
		h.fund("investor", 1000)
		if _, err := h.engine.Deposit(ctx, "investor", 1000); err != nil {
			t.Fatalf("Deposit: %v", err)
		}
		h.fund("farmer", 27)

		evt, err := h.engine.BuyPolicy(ctx, "farmer", 3)
		if err != nil {
			t.Fatalf("BuyPolicy: %v", err)
		}
		if evt.TotalPremium != 27 || evt.Units != 3 || evt.SeasonID != 1 {
			t.Fatalf("event = %+v", evt)
		}
		if evt.PoolBalance != 1027 {
			t.Fatalf("pool = %d, want 1027", evt.PoolBalance)
		}
		if units, _ := h.engine.UnitBalance(1, "farmer"); units != 3 {
			t.Fatalf("units = %d, want 3", units)
		}
		if s := h.engine.CurrentSeason(); s.TotalUnitsSold != 3 {
			t.Fatalf("total units sold = %d, want 3", s.TotalUnitsSold)
		}

		// A second purchase accumulates.
		h.fund("farmer", 9)
		if _, err := h.engine.BuyPolicy(ctx, "farmer", 1); err != nil {
			t.Fatalf("second BuyPolicy: %v", err)
		}
		if units, _ := h.engine.UnitBalance(1, "farmer"); units != 4 {
			t.Fatalf("units = %d, want 4", units)
		}
	})
}

func TestClaimPolicies(t *testing.T) {
	ctx := context.Background()

	// setup funds an investor and a farmer with 3 units, then advances to
	// the claim phase.
	setup := func(t *testing.T, deposit int64) *harness {
		t.Helper()
		h := newHarness(t, 9)
		h.fund("investor", deposit)
		if _, err := h.engine.Deposit(ctx, "investor", deposit); err != nil {
			t.Fatalf("Deposit: %v", err)
		}
		h.fund("farmer", 27)
		if _, err := h.engine.BuyPolicy(ctx, "farmer", 3); err != nil {
			t.Fatalf("BuyPolicy: %v", err)
		}
		h.advanceTo(t, domain.PhaseClaim)
		return h
	}

	t.Run("settles and burns the holding", func(t *testing.T) {
		h := setup(t, 1000)
		h.oracle.Set(5)

		evt, err := h.engine.ClaimPolicies(ctx, "farmer")
		if err != nil {
			t.Fatalf("ClaimPolicies: %v", err)
		}
		if evt.TotalPayout != 108 || evt.Units != 3 {
			t.Fatalf("event = %+v", evt)
		}
		// 1000 deposit + 27 premiums - 108 payout.
		if evt.PoolBalance != 919 {
			t.Fatalf("pool = %d, want 919", evt.PoolBalance)
		}
		if bal, _ := h.assets.BalanceOf(ctx, "farmer"); bal != 108 {
			t.Fatalf("farmer balance = %d, want 108", bal)
		}
		if units, _ := h.engine.UnitBalance(1, "farmer"); units != 0 {
			t.Fatalf("units after claim = %d, want 0", units)
		}

		// No double payout: the burned holding cannot be claimed again.
		if _, err := h.engine.ClaimPolicies(ctx, "farmer"); !errors.Is(err, domain.ErrNoPoliciesToClaim) {
			t.Fatalf("repeat claim err = %v, want ErrNoPoliciesToClaim", err)
		}
	})

	t.Run("keeps payout after oracle reversal", func(t *testing.T) {
		h := setup(t, 1000)
		h.oracle.Set(5)
		if _, err := h.engine.ClaimPolicies(ctx, "farmer"); err != nil {
			t.Fatalf("ClaimPolicies: %v", err)
		}
		h.oracle.Set(50)
		if bal, _ := h.assets.BalanceOf(ctx, "farmer"); bal != 108 {
			t.Fatalf("farmer balance after reversal = %d, want 108", bal)
		}
	})

	t.Run("threshold is strict", func(t *testing.T) {
		cases := []struct {
			value   int64
			wantErr error
		}{
			{value: 9, wantErr: nil},
			{value: 10, wantErr: domain.ErrConditionNotMet}, // exactly threshold fails
			{value: 15, wantErr: domain.ErrConditionNotMet},
		}
		for _, tc := range cases {
			h := setup(t, 1000)
			h.oracle.Set(tc.value)
			_, err := h.engine.ClaimPolicies(ctx, "farmer")
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("value %d: err = %v, want success", tc.value, err)
				}
				continue
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("value %d: err = %v, want %v", tc.value, err, tc.wantErr)
			}
			if units, _ := h.engine.UnitBalance(1, "farmer"); units != 3 {
				t.Fatalf("value %d: units = %d, want 3 (unchanged)", tc.value, units)
			}
		}
	})

	t.Run("rejects when pool cannot cover payout", func(t *testing.T) {
		// Pool = 10 deposit + 27 premiums = 37 < 108 payout.
		h := setup(t, 10)
		h.oracle.Set(5)
		if _, err := h.engine.ClaimPolicies(ctx, "farmer"); !errors.Is(err, domain.ErrInsufficientFunds) {
			t.Fatalf("err = %v, want ErrInsufficientFunds", err)
		}
		if units, _ := h.engine.UnitBalance(1, "farmer"); units != 3 {
			t.Fatalf("units = %d, want 3 (unchanged)", units)
		}
	})

	t.Run("restores holding when payout transfer fails", func(t *testing.T) {
		h := newHarness(t, 9)
		flaky := &flakyAsset{AssetLedger: h.assets}

		engine, err := New(Config{
			Window:           testWindow,
			PayoutMultiplier: 4,
			TriggerThreshold: 10,
			Admin:            testAdmin,
			PoolAccount:      testPool,
			InitialPremium:   9,
		}, h.clock, flaky, h.oracle, discardLogger())
		if err != nil {
			t.Fatalf("New: %v", err)
		}

		h.fund("investor", 1000)
		if _, err := engine.Deposit(ctx, "investor", 1000); err != nil {
			t.Fatalf("Deposit: %v", err)
		}
		h.fund("farmer", 27)
		if _, err := engine.BuyPolicy(ctx, "farmer", 3); err != nil {
			t.Fatalf("BuyPolicy: %v", err)
		}
		for engine.CurrentPhase() != domain.PhaseClaim {
			if _, err := engine.AdvancePhase(ctx, testAdmin); err != nil {
				t.Fatalf("AdvancePhase: %v", err)
			}
		}

		flaky.failTransfer = true
		if _, err := engine.ClaimPolicies(ctx, "farmer"); !errors.Is(err, domain.ErrTransferFailed) {
			t.Fatalf("err = %v, want ErrTransferFailed", err)
		}
		if units, _ := engine.UnitBalance(1, "farmer"); units != 3 {
			t.Fatalf("units after rollback = %d, want 3", units)
		}

		// Once the ledger recovers, the claim settles normally.
		flaky.failTransfer = false
		if _, err := engine.ClaimPolicies(ctx, "farmer"); err != nil {
			t.Fatalf("ClaimPolicies after recovery: %v", err)
		}
	})
}

// TestPoolConservation replays a mixed operation sequence and checks that the
// pool balance equals deposits + premiums - claims - redemptions after every
// step.
func TestPoolConservation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 9)

	var deposits, premiums, claims, redemptions int64

	check := func(step string) {
		t.Helper()
		bal, err := h.assets.BalanceOf(ctx, testPool)
		if err != nil {
			t.Fatalf("%s: BalanceOf: %v", step, err)
		}
		want := deposits + premiums - claims - redemptions
		if bal != want {
			t.Fatalf("%s: pool = %d, want %d", step, bal, want)
		}
	}

	h.fund("alice", 1000)
	evt1, err := h.engine.Deposit(ctx, "alice", 1000)
	if err != nil {
		t.Fatalf("deposit alice: %v", err)
	}
	deposits += evt1.Amount
	check("deposit alice")

	h.fund("bob", 500)
	evt2, err := h.engine.Deposit(ctx, "bob", 500)
	if err != nil {
		t.Fatalf("deposit bob: %v", err)
	}
	deposits += evt2.Amount
	check("deposit bob")

	h.fund("farmer", 45)
	buy, err := h.engine.BuyPolicy(ctx, "farmer", 5)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	premiums += buy.TotalPremium
	check("buy")

	h.advanceTo(t, domain.PhaseClaim)
	h.oracle.Set(3)
	claim, err := h.engine.ClaimPolicies(ctx, "farmer")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	claims += claim.TotalPayout
	check("claim")

	h.advanceTo(t, domain.PhaseWithdraw)
	red1, err := h.engine.Redeem(ctx, "alice", evt1.SharesMinted)
	if err != nil {
		t.Fatalf("redeem alice: %v", err)
	}
	redemptions += red1.Amount
	check("redeem alice")

	red2, err := h.engine.Redeem(ctx, "bob", evt2.SharesMinted)
	if err != nil {
		t.Fatalf("redeem bob: %v", err)
	}
	redemptions += red2.Amount
	check("redeem bob")
}
