package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Spectrum is the one-sided amplitude spectrum of an evenly sampled signal.
type Spectrum struct {
	Freqs []float64
	Power []float64
}

// PowerSpectrum removes the mean, applies a Hann window and transforms the
// samples. dt is the sampling interval.
func PowerSpectrum(samples []float64, dt float64) Spectrum {
	n := len(samples)
	if n < 2 || dt <= 0 {
		return Spectrum{}
	}

	x := make([]float64, n)
	copy(x, samples)
	floats.AddConst(-stat.Mean(x, nil), x)
	window.Apply(x, window.Hann)

	coeffs := fft.FFTReal(x)

	half := n/2 + 1
	s := Spectrum{
		Freqs: make([]float64, half),
		Power: make([]float64, half),
	}
	for k := 0; k < half; k++ {
		s.Freqs[k] = float64(k) / (float64(n) * dt)
		s.Power[k] = cmplx.Abs(coeffs[k]) / float64(n)
	}
	return s
}

// DominantFrequency returns the frequency of the strongest non-zero bin and
// the matching period. A flat signal yields zeros.
func DominantFrequency(samples []float64, dt float64) (freq, period float64) {
	s := PowerSpectrum(samples, dt)
	if len(s.Power) < 2 {
		return 0, 0
	}

	k := floats.MaxIdx(s.Power[1:]) + 1
	if s.Power[k] == 0 {
		return 0, 0
	}
	freq = s.Freqs[k]
	return freq, 1 / freq
}

// AngularFrequency converts a frequency to rad per unit time.
func AngularFrequency(freq float64) float64 { return 2 * math.Pi * freq }
