package ticker

import "testing"

func contains(tokens []int32, tok int32) bool {
	for _, t := range tokens {
		if t == tok {
			return true
		}
	}
	return false
}

// Invariant 3.
func TestLedgerSubscribeThenUnsubscribeRemoves(t *testing.T) {
	l := NewLedger()
	l.Subscribe([]int32{1, 2, 3})
	l.Unsubscribe([]int32{1, 2, 3})
	if l.Len() != 0 {
		t.Fatalf("expected empty ledger, got %d entries", l.Len())
	}
}

func TestLedgerSubscribeLeavesExistingModeUnchanged(t *testing.T) {
	l := NewLedger()
	l.SetMode(ModeFull, []int32{1})
	l.Subscribe([]int32{1})
	mode, ok := l.ModeOf(1)
	if !ok || mode != ModeFull {
		t.Fatalf("expected mode to remain FULL, got %q (present=%v)", mode, ok)
	}
}

// Invariant 4.
func TestLedgerSetModeOverwrites(t *testing.T) {
	l := NewLedger()
	l.Subscribe([]int32{1, 2})
	l.SetMode(ModeFull, []int32{1, 2})
	for _, tok := range []int32{1, 2} {
		mode, ok := l.ModeOf(tok)
		if !ok || mode != ModeFull {
			t.Fatalf("token %d: expected mode FULL, got %q (present=%v)", tok, mode, ok)
		}
	}
}

// Invariant 5: partition sizes sum to the ledger size, unset folds into quote.
func TestLedgerPartitionFoldsUnsetIntoQuote(t *testing.T) {
	l := NewLedger()
	l.Subscribe([]int32{300}) // unset
	l.SetMode(ModeLTP, []int32{100})
	l.SetMode(ModeQuote, []int32{200})
	l.SetMode(ModeFull, []int32{400})

	ltp, quote, full := l.Partition()
	if len(ltp)+len(quote)+len(full) != l.Len() {
		t.Fatalf("partition sizes %d+%d+%d don't sum to ledger size %d",
			len(ltp), len(quote), len(full), l.Len())
	}
	if !contains(ltp, 100) {
		t.Fatal("expected token 100 in ltp batch")
	}
	if !contains(full, 400) {
		t.Fatal("expected token 400 in full batch")
	}
	if !contains(quote, 200) || !contains(quote, 300) {
		t.Fatal("expected tokens 200 and 300 in quote batch")
	}
}
