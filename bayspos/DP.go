package bayspos

import "sort"

// DP is a Dirichlet-process conditional p(key | ctx) over a Lexicon of depth 1.
// p(key | ctx) = (count(ctx, key) + concentration * base(key)) / (count(ctx) + concentration)
type DP struct {
	lexicon       *Lexicon
	base          BaseDistribution
	concentration float64
	path          []int
}

// NewDP returns DP instance.
func NewDP(lexicon *Lexicon, base BaseDistribution, concentration float64) *DP {
	if lexicon.table.Depth() != 1 {
		panic("DP error. lexicon should be conditioned on one key")
	}
	if concentration <= 0.0 {
		panic("range of concentration is 0.0 to inf")
	}
	return &DP{lexicon: lexicon, base: base, concentration: concentration, path: make([]int, 1)}
}

// Prob returns p(key | ctx).
func (dp *DP) Prob(ctx int, key string) float64 {
	return dp.Numerator(ctx, key) / dp.Denominator(ctx)
}

// Numerator returns p(key | ctx) without its denominator.
func (dp *DP) Numerator(ctx int, key string) float64 {
	dp.path[0] = ctx
	return float64(dp.lexicon.Count(dp.path, key)) + dp.concentration*dp.base.Prob(key)
}

// Denominator returns the normalizer shared by every key under ctx.
func (dp *DP) Denominator(ctx int) float64 {
	dp.path[0] = ctx
	return float64(dp.lexicon.CumulativeCount(dp.path)) + dp.concentration
}

// Inc adds key under ctx.
func (dp *DP) Inc(ctx int, key string) {
	dp.path[0] = ctx
	dp.lexicon.Inc(dp.path, key)
}

// Dec removes key under ctx. An exhausted context simply vanishes from the lexicon.
func (dp *DP) Dec(ctx int, key string) error {
	dp.path[0] = ctx
	_, _, err := dp.lexicon.Dec(dp.path, key)
	return err
}

// Count returns the number of keys under ctx.
func (dp *DP) Count(ctx int) int {
	dp.path[0] = ctx
	return dp.lexicon.CumulativeCount(dp.path)
}

// Top returns the n observed keys of ctx with the highest probability.
func (dp *DP) Top(ctx int, n int) []WordProb {
	dp.path[0] = ctx
	keys := dp.lexicon.Keys(dp.path)
	probs := make([]WordProb, 0, len(keys))
	for _, key := range keys {
		probs = append(probs, WordProb{Word: key, Prob: dp.Prob(ctx, key)})
	}
	sort.SliceStable(probs, func(i, j int) bool { return probs[i].Prob > probs[j].Prob })
	if len(probs) > n {
		probs = probs[:n]
	}
	return probs
}
