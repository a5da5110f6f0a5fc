package budget

import "testing"

func sum(xs []int64) int64 {
	var s int64
	for _, x := range xs {
		s += x
	}
	return s
}

func TestSplitProportional(t *testing.T) {
	shares := splitProportional(1200, []int64{10000, 30000})
	if shares[0] != 300 || shares[1] != 900 {
		t.Fatalf("got %v, want [300 900]", shares)
	}
}

func TestSplitProportional_RemainderToLast(t *testing.T) {
	shares := splitProportional(100, []int64{1, 1, 1})
	if sum(shares) != 100 {
		t.Fatalf("shares %v do not re-sum to pool", shares)
	}
	if shares[0] != 33 || shares[1] != 33 || shares[2] != 34 {
		t.Fatalf("got %v, want [33 33 34]", shares)
	}
}

func TestSplitProportional_ZeroWeightGetsNothing(t *testing.T) {
	shares := splitProportional(100, []int64{50, 0, 50})
	if shares[1] != 0 {
		t.Fatalf("zero-weight share should be 0, got %d", shares[1])
	}
	if sum(shares) != 100 {
		t.Fatalf("shares %v do not re-sum to pool", shares)
	}
}

func TestSplitProportional_AllZeroWeights(t *testing.T) {
	shares := splitProportional(100, []int64{0, 0})
	if shares[0] != 0 || shares[1] != 100 {
		t.Fatalf("got %v, want pool on the last share", shares)
	}
}

func TestSplitProportional_Empty(t *testing.T) {
	if shares := splitProportional(100, nil); len(shares) != 0 {
		t.Fatalf("expected empty result, got %v", shares)
	}
}

func TestSplitEven(t *testing.T) {
	shares := splitEven(10000, 3)
	if shares[0] != 3333 || shares[1] != 3333 || shares[2] != 3334 {
		t.Fatalf("got %v, want [3333 3333 3334]", shares)
	}
	if sum(shares) != 10000 {
		t.Fatal("shares do not re-sum to pool")
	}
}

func TestSplitEven_SingleShare(t *testing.T) {
	shares := splitEven(500, 1)
	if len(shares) != 1 || shares[0] != 500 {
		t.Fatalf("got %v, want [500]", shares)
	}
}
