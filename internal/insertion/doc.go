// Package insertion places new elements into an ordered sequence at positions
// expressed against the sequence's original, unmodified order. Callers hand
// over every request at once; the engine validates all of them, then fills the
// output from the back in strictly descending index order so no request ever
// needs its index corrected for earlier insertions.
package insertion
