package ticker

import "sync"

// Ledger tracks which instrument tokens are subscribed and at which mode.
// It is mutated only by host subscribe/unsubscribe/setMode calls;
// reconnection reads it to resubscribe but never mutates it.
type Ledger struct {
	mu      sync.Mutex
	entries map[int32]Mode
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[int32]Mode)}
}

// Subscribe inserts an entry with the unset-sentinel mode for each token
// not already present. Existing entries are left unchanged.
func (l *Ledger) Subscribe(tokens []int32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, tok := range tokens {
		if _, ok := l.entries[tok]; !ok {
			l.entries[tok] = ModeUnset
		}
	}
}

// Unsubscribe removes each token, if present.
func (l *Ledger) Unsubscribe(tokens []int32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, tok := range tokens {
		delete(l.entries, tok)
	}
}

// SetMode overwrites the stored mode for each token.
func (l *Ledger) SetMode(mode Mode, tokens []int32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, tok := range tokens {
		l.entries[tok] = mode
	}
}

// Len returns the number of tracked tokens.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// ModeOf reports the mode currently stored for tok, and whether tok is
// tracked at all.
func (l *Ledger) ModeOf(tok int32) (Mode, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.entries[tok]
	return m, ok
}

// Partition splits the ledger's tokens into three batches by mode, for
// resubscription. Unset-sentinel entries fold into the quote batch. Order
// within each batch is unspecified.
func (l *Ledger) Partition() (ltp, quote, full []int32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for tok, mode := range l.entries {
		switch mode {
		case ModeLTP:
			ltp = append(ltp, tok)
		case ModeFull:
			full = append(full, tok)
		default: // ModeQuote and ModeUnset
			quote = append(quote, tok)
		}
	}
	return ltp, quote, full
}
