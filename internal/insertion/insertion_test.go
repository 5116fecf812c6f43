package insertion

import (
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"strings"
	"testing"
)

func identity(s string) (string, error) { return s, nil }

func req(index int, payload string) Request[string] {
	return Request[string]{Index: index, Payload: payload}
}

func TestInsertAllExamples(t *testing.T) {
	abc := []string{"A", "B", "C"}
	cases := []struct {
		name string
		seq  []string
		reqs []Request[string]
		want []string
	}{
		{"shared index keeps declaration order", abc, []Request[string]{req(1, "X"), req(1, "Y")}, []string{"A", "X", "Y", "B", "C"}},
		{"front", abc, []Request[string]{req(0, "Z")}, []string{"Z", "A", "B", "C"}},
		{"append", abc, []Request[string]{req(3, "W")}, []string{"A", "B", "C", "W"}},
		{"no requests", abc, nil, []string{"A", "B", "C"}},
		{"empty sequence", nil, []Request[string]{req(0, "Z")}, []string{"Z"}},
		{"every slot", abc, []Request[string]{req(0, "0"), req(1, "1"), req(2, "2"), req(3, "3")}, []string{"0", "A", "1", "B", "2", "C", "3"}},
		{"unsorted declaration", abc, []Request[string]{req(2, "P"), req(0, "Q"), req(2, "R"), req(1, "S")}, []string{"Q", "A", "S", "B", "P", "R", "C"}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InsertAll(tt.seq, tt.reqs, identity)
			if err != nil {
				t.Fatalf("insert: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInsertAllOutOfRange(t *testing.T) {
	seq := []string{"A", "B", "C"}
	for _, index := range []int{4, -1, 100} {
		reqs := []Request[string]{req(1, "ok"), req(index, "X")}
		got, err := InsertAll(seq, reqs, identity)
		if !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("index %d: expected ErrOutOfRange, got %v", index, err)
		}
		if got != nil {
			t.Fatalf("index %d: expected no output, got %v", index, got)
		}
		var reqErr *RequestError
		if !errors.As(err, &reqErr) || reqErr.Position != 1 || reqErr.Index != index {
			t.Fatalf("index %d: unexpected request error %#v", index, err)
		}
	}
	if !reflect.DeepEqual(seq, []string{"A", "B", "C"}) {
		t.Fatalf("input mutated: %v", seq)
	}
}

func TestInsertAllMalformedPayload(t *testing.T) {
	errEmpty := errors.New("empty")
	build := func(s string) (string, error) {
		if s == "" {
			return "", errEmpty
		}
		return s, nil
	}
	built := 0
	counting := func(s string) (string, error) {
		built++
		return build(s)
	}
	reqs := []Request[string]{req(0, "X"), req(2, ""), req(5, "Y")}
	// Range problems are reported before any payload is built.
	if _, err := InsertAll([]string{"A", "B", "C"}, reqs, counting); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected out of range first, got %v", err)
	}
	if built != 0 {
		t.Fatalf("builder ran %d times before range validation finished", built)
	}
	reqs[2].Index = 3
	_, err := InsertAll([]string{"A", "B", "C"}, reqs, build)
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
	if !errors.Is(err, errEmpty) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
	if !strings.Contains(err.Error(), "request 1") {
		t.Fatalf("error should name the request: %v", err)
	}
}

func TestInsertAllRequiresBuilder(t *testing.T) {
	if _, err := InsertAll[string, string](nil, nil, nil); err == nil {
		t.Fatalf("expected nil builder to fail")
	}
}

func TestInsertAllDoesNotMutateInputs(t *testing.T) {
	seq := []string{"A", "B", "C"}
	reqs := []Request[string]{req(3, "W"), req(0, "Z"), req(1, "X")}
	seqCopy := append([]string(nil), seq...)
	reqsCopy := append([]Request[string](nil), reqs...)
	out, err := InsertAll(seq, reqs, identity)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !reflect.DeepEqual(seq, seqCopy) || !reflect.DeepEqual(reqs, reqsCopy) {
		t.Fatalf("inputs mutated: seq=%v reqs=%v", seq, reqs)
	}
	out[0] = "changed"
	if seq[0] != "A" {
		t.Fatalf("output aliases input")
	}
}

func TestOrderIsStrictlyDescending(t *testing.T) {
	reqs := []Request[string]{req(1, "a"), req(5, "b"), req(1, "c"), req(0, "d"), req(5, "e"), req(3, "f")}
	got := Order(reqs)
	want := []int{4, 1, 5, 2, 0, 3}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	for i := 1; i < len(got); i++ {
		prev, cur := reqs[got[i-1]], reqs[got[i]]
		if prev.Index < cur.Index {
			t.Fatalf("index increased at step %d: %d -> %d", i, prev.Index, cur.Index)
		}
		if prev.Index == cur.Index && got[i-1] < got[i] {
			t.Fatalf("tie not ordered by descending declaration at step %d", i)
		}
	}
}

type tagged struct {
	orig int // original index, or -1 for inserted
	req  int // declaration position for inserted elements
}

func randomCase(rng *rand.Rand) ([]tagged, []Request[int]) {
	n := rng.Intn(40)
	seq := make([]tagged, n)
	for i := range seq {
		seq[i] = tagged{orig: i, req: -1}
	}
	r := rng.Intn(25)
	reqs := make([]Request[int], r)
	for i := range reqs {
		reqs[i] = Request[int]{Index: rng.Intn(n + 1), Payload: i}
	}
	return seq, reqs
}

func buildTagged(pos int) (tagged, error) { return tagged{orig: -1, req: pos}, nil }

func TestInsertAllProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 500; iter++ {
		seq, reqs := randomCase(rng)
		out, err := InsertAll(seq, reqs, buildTagged)
		if err != nil {
			t.Fatalf("iter %d: %v", iter, err)
		}
		if len(out) != len(seq)+len(reqs) {
			t.Fatalf("iter %d: length %d, want %d", iter, len(out), len(seq)+len(reqs))
		}
		origPos := make(map[int]int)
		last := -1
		for pos, elem := range out {
			if elem.orig < 0 {
				continue
			}
			if elem.orig <= last {
				t.Fatalf("iter %d: original order broken at %d", iter, pos)
			}
			last = elem.orig
			origPos[elem.orig] = pos
		}
		for orig, pos := range origPos {
			shift := 0
			for _, r := range reqs {
				if r.Index <= orig {
					shift++
				}
			}
			if pos != orig+shift {
				t.Fatalf("iter %d: original %d at %d, want %d", iter, orig, pos, orig+shift)
			}
		}
		for pos, elem := range out {
			if elem.orig >= 0 {
				continue
			}
			target := reqs[elem.req].Index
			// Skip the run of inserted elements to find the element this one precedes.
			next := pos + 1
			for next < len(out) && out[next].orig < 0 {
				next++
			}
			if target == len(seq) {
				if next != len(out) {
					t.Fatalf("iter %d: append request %d not at end", iter, elem.req)
				}
				continue
			}
			if next >= len(out) || out[next].orig != target {
				t.Fatalf("iter %d: request %d not before original %d", iter, elem.req, target)
			}
		}
		again, err := InsertAll(seq, reqs, buildTagged)
		if err != nil || !reflect.DeepEqual(out, again) {
			t.Fatalf("iter %d: re-derivation differs", iter)
		}
	}
}

func TestInsertAllPermutationInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	seq := []string{"c0", "c1", "c2", "c3", "c4", "c5", "c6", "c7"}
	base := []Request[string]{req(0, "n0"), req(2, "n2"), req(3, "n3"), req(5, "n5"), req(8, "n8")}
	want, err := InsertAll(seq, base, identity)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	for iter := 0; iter < 50; iter++ {
		shuffled := append([]Request[string](nil), base...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got, err := InsertAll(seq, shuffled, identity)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("permutation %v produced %v, want %v", shuffled, got, want)
		}
	}
}

func ExampleInsertAll() {
	out, _ := InsertAll([]string{"A", "B", "C"}, []Request[string]{{Index: 1, Payload: "X"}, {Index: 1, Payload: "Y"}}, identity)
	fmt.Println(out)
	// Output: [A X Y B C]
}
