package debounce

import "sync/atomic"

// Token identifies one scheduled request. The zero token is never current.
type Token uint64

// Guard is a generation counter. Results carrying a token are applied only
// while that token is still the latest one issued.
type Guard struct {
	gen atomic.Uint64
}

// Next issues a new token, making every earlier token stale.
func (g *Guard) Next() Token {
	return Token(g.gen.Add(1))
}

// Current reports whether t is the most recently issued token.
func (g *Guard) Current(t Token) bool {
	if t == 0 {
		return false
	}
	return Token(g.gen.Load()) == t
}

// Invalidate makes every issued token stale without issuing a new one.
func (g *Guard) Invalidate() {
	g.gen.Add(1)
}
