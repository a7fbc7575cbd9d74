package bayspos

import (
	"math"

	"github.com/golang/glog"
	"gonum.org/v1/gonum/stat/distuv"
)

const proposalSigma = 0.1

// metropolisHastings runs steps of a log-space random walk on value, a positive Dirichlet prior,
// under a flat prior. The log(next / value) term is the Jacobian of the walk.
func (bhmm *BHMM) metropolisHastings(name string, value float64, steps int, logLikelihood func(float64) float64) float64 {
	proposal := distuv.Normal{Mu: 0.0, Sigma: proposalSigma, Src: bhmm.pcg}
	current := logLikelihood(value)
	accepted := 0
	for step := 0; step < steps; step++ {
		next := value * math.Exp(proposal.Rand())
		nextLogLikelihood := logLikelihood(next)
		logAccept := nextLogLikelihood - current + math.Log(next/value)
		if logAccept >= 0.0 || math.Log(bhmm.rng.Float64()) < logAccept {
			value = next
			current = nextLogLikelihood
			accepted++
		}
	}
	glog.Infof("%v = %v (accepted %v / %v)", name, value, accepted, steps)
	return value
}

// ResampleHyperParameters moves gamma, and delta where the model emits whole words from states.
func (bhmm *BHMM) ResampleHyperParameters(steps int) {
	if steps <= 0 {
		return
	}
	bhmm.hyper.Gamma = bhmm.metropolisHastings("gamma", bhmm.hyper.Gamma, steps, bhmm.trans.logLikelihood)
	bhmm.trans.setHyperParameter(bhmm.hyper.Gamma)
	if words := bhmm.emit.flat(); words != nil {
		bhmm.hyper.Delta = bhmm.metropolisHastings("delta", bhmm.hyper.Delta, steps, words.logLikelihood)
		words.setDelta(bhmm.hyper.Delta)
	}
}
