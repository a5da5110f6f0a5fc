package budget

// splitProportional divides pool across weights, each share proportional to
// its weight, in minor units. Rounding drift is folded into the last
// non-zero-weight share so the slices always re-sum to the pool exactly.
func splitProportional(pool int64, weights []int64) []int64 {
	shares := make([]int64, len(weights))
	if len(weights) == 0 {
		return shares
	}

	var total int64
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		shares[len(shares)-1] = pool
		return shares
	}

	last := -1
	var allocated int64
	for i, w := range weights {
		if w == 0 {
			continue
		}
		shares[i] = pool * w / total
		allocated += shares[i]
		last = i
	}
	shares[last] += pool - allocated
	return shares
}

// splitEven divides pool into n near-equal shares, remainder to the last.
func splitEven(pool int64, n int) []int64 {
	if n <= 0 {
		n = 1
	}
	shares := make([]int64, n)
	each := pool / int64(n)
	for i := range shares {
		shares[i] = each
	}
	shares[n-1] += pool - each*int64(n)
	return shares
}
