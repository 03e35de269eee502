package freq

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrInsufficientData = errors.New("sample too small to fit distribution")
	ErrNonPositiveData  = errors.New("sample contains zero or negative values")
)

// Param is one named distribution parameter.
type Param struct {
	Name  string
	Value float64
}

// FitParams is the outcome of fitting a distribution family to an annual
// extremum sample.
type FitParams struct {
	Family string
	Method string
	N      int
	Params []Param
}

// Distribution is a fittable extreme-value family. Quantile and
// StandardError take a cumulative (non-exceedance) probability in (0,1);
// StandardError propagates the fit's parameter covariance by the delta
// method and returns NaN when no estimate is available.
type Distribution interface {
	Name() string
	Fit(sample []float64) (FitParams, error)
	Quantile(p FitParams, prob float64) float64
	StandardError(p FitParams, prob float64) float64
}

// DistributionByName resolves the supported family names "log-pearson3" and
// "weibull".
func DistributionByName(name string) (Distribution, error) {
	switch name {
	case "log-pearson3", "PIII", "":
		return LogPearson3{}, nil
	case "weibull":
		return Weibull{}, nil
	default:
		return nil, fmt.Errorf("unknown distribution %q", name)
	}
}

// LogPearson3 is the log-Pearson Type III family, fitted by method of
// moments on log10-transformed data.
type LogPearson3 struct{}

func (LogPearson3) Name() string { return "log-pearson3" }

func (LogPearson3) Fit(sample []float64) (FitParams, error) {
	if len(sample) < 3 {
		return FitParams{}, fmt.Errorf("%w: need at least 3 values, got %d", ErrInsufficientData, len(sample))
	}
	logs := make([]float64, len(sample))
	for i, v := range sample {
		if v <= 0 {
			return FitParams{}, fmt.Errorf("%w: cannot log-transform %g", ErrNonPositiveData, v)
		}
		logs[i] = math.Log10(v)
	}
	mean, std := stat.MeanStdDev(logs, nil)
	if std < 1e-12 {
		return FitParams{}, fmt.Errorf("%w: sample is constant", ErrInsufficientData)
	}
	skew := stat.Skew(logs, nil)
	return FitParams{
		Family: "log-pearson3",
		Method: "MOM",
		N:      len(sample),
		Params: []Param{
			{Name: "meanlog", Value: mean},
			{Name: "sdlog", Value: std},
			{Name: "skewlog", Value: skew},
		},
	}, nil
}

func (LogPearson3) Quantile(p FitParams, prob float64) float64 {
	return math.Pow(10, lp3LogQuantile(p.Params[0].Value, p.Params[1].Value, p.Params[2].Value, prob))
}

// lp3LogQuantile evaluates the Pearson III quantile in log10 space. The
// skewed case maps onto a gamma variate: shape 4/g², scale s·g/2 (negative
// for negative skew) and location m − 2s/g.
func lp3LogQuantile(m, s, g, prob float64) float64 {
	if math.Abs(g) < 1e-8 {
		return m + s*distuv.UnitNormal.Quantile(prob)
	}
	alpha := 4 / (g * g)
	beta := s * g / 2
	xi := m - 2*s/g
	gd := distuv.Gamma{Alpha: alpha, Beta: 1}
	if g > 0 {
		return xi + beta*gd.Quantile(prob)
	}
	return xi + beta*gd.Quantile(1-prob)
}

func (d LogPearson3) StandardError(p FitParams, prob float64) float64 {
	m, s, g := p.Params[0].Value, p.Params[1].Value, p.Params[2].Value
	n := float64(p.N)
	if p.N < 4 || s <= 0 {
		return math.NaN()
	}

	// Sampling variances of the log-space moment estimators under
	// normal-theory approximations; skewness variance is the exact
	// small-sample form.
	varM := s * s / n
	varS := s * s / (2 * n)
	varG := 6 * n * (n - 1) / ((n - 2) * (n + 1) * (n + 3))

	dm := numericPartial(func(x float64) float64 { return lp3LogQuantile(x, s, g, prob) }, m)
	ds := numericPartial(func(x float64) float64 { return lp3LogQuantile(m, x, g, prob) }, s)
	dg := numericPartial(func(x float64) float64 { return lp3LogQuantile(m, s, x, prob) }, g)

	varLog := dm*dm*varM + ds*ds*varS + dg*dg*varG
	if varLog < 0 || math.IsNaN(varLog) {
		return math.NaN()
	}
	// back-transform the log-space error to flow units
	return math.Ln10 * d.Quantile(p, prob) * math.Sqrt(varLog)
}

// Weibull is the two-parameter Weibull family, fitted by maximum likelihood
// with Newton iteration on the shape parameter.
type Weibull struct{}

func (Weibull) Name() string { return "weibull" }

func (Weibull) Fit(sample []float64) (FitParams, error) {
	if len(sample) < 3 {
		return FitParams{}, fmt.Errorf("%w: need at least 3 values, got %d", ErrInsufficientData, len(sample))
	}
	logs := make([]float64, len(sample))
	for i, v := range sample {
		if v <= 0 {
			return FitParams{}, fmt.Errorf("%w: got %g", ErrNonPositiveData, v)
		}
		logs[i] = math.Log(v)
	}
	meanLog, stdLog := stat.MeanStdDev(logs, nil)
	if stdLog < 1e-12 {
		return FitParams{}, fmt.Errorf("%w: sample is constant", ErrInsufficientData)
	}

	k, err := weibullShapeMLE(sample, meanLog, stdLog)
	if err != nil {
		return FitParams{}, err
	}
	sum := 0.0
	for _, v := range sample {
		sum += math.Pow(v, k)
	}
	lambda := math.Pow(sum/float64(len(sample)), 1/k)

	return FitParams{
		Family: "weibull",
		Method: "MLE",
		N:      len(sample),
		Params: []Param{
			{Name: "shape", Value: k},
			{Name: "scale", Value: lambda},
		},
	}, nil
}

// weibullShapeMLE solves the profile likelihood equation
// Σxᵏln x / Σxᵏ − 1/k − mean(ln x) = 0 by Newton's method.
func weibullShapeMLE(sample []float64, meanLog, stdLog float64) (float64, error) {
	k := math.Pi / (stdLog * math.Sqrt(6))
	for iter := 0; iter < 100; iter++ {
		var sumK, sumKLog, sumKLog2 float64
		for _, v := range sample {
			xk := math.Pow(v, k)
			lx := math.Log(v)
			sumK += xk
			sumKLog += xk * lx
			sumKLog2 += xk * lx * lx
		}
		f := sumKLog/sumK - 1/k - meanLog
		df := (sumKLog2*sumK-sumKLog*sumKLog)/(sumK*sumK) + 1/(k*k)
		step := f / df
		k -= step
		if k <= 0 {
			return 0, fmt.Errorf("weibull shape estimate diverged")
		}
		if math.Abs(step) < 1e-10 {
			return k, nil
		}
	}
	return 0, fmt.Errorf("weibull shape estimate did not converge")
}

func (Weibull) Quantile(p FitParams, prob float64) float64 {
	w := distuv.Weibull{K: p.Params[0].Value, Lambda: p.Params[1].Value}
	return w.Quantile(prob)
}

func (d Weibull) StandardError(p FitParams, prob float64) float64 {
	k, lambda := p.Params[0].Value, p.Params[1].Value
	n := float64(p.N)
	if p.N < 3 {
		return math.NaN()
	}

	// Asymptotic covariance of the Weibull MLEs (inverse Fisher
	// information, Thoman-Bain-Antle constants).
	varK := 0.6079 * k * k / n
	varL := 1.1087 * lambda * lambda / (n * k * k)
	covKL := 0.2570 * lambda / n

	dk := numericPartial(func(x float64) float64 {
		return distuv.Weibull{K: x, Lambda: lambda}.Quantile(prob)
	}, k)
	dl := numericPartial(func(x float64) float64 {
		return distuv.Weibull{K: k, Lambda: x}.Quantile(prob)
	}, lambda)

	v := dk*dk*varK + dl*dl*varL + 2*dk*dl*covKL
	if v < 0 || math.IsNaN(v) {
		return math.NaN()
	}
	return math.Sqrt(v)
}

func numericPartial(f func(float64) float64, at float64) float64 {
	h := 1e-6 * math.Max(math.Abs(at), 1e-3)
	return (f(at+h) - f(at-h)) / (2 * h)
}
