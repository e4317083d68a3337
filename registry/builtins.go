package registry

import "math"

// builtins returns the fixed primitive set of spec §6: arithmetic operators,
// elementary math, and the distribution constructors (which eval never
// folds numerically - Distribution: true - but which must be registered for
// package nodefn to accept them as a stochastic right-hand side). A call to
// an unregistered name is left unresolved by eval, not reported as an error.
func builtins() []Entry {
	bin := func(name string, fn Fn, isInt bool) Entry {
		return Entry{Name: name, Arity: Arity{Min: 2, Max: 2}, Fn: fn, IsInteger: isInt}
	}
	un := func(name string, fn Fn, isInt bool) Entry {
		return Entry{Name: name, Arity: Arity{Min: 1, Max: 1}, Fn: fn, IsInteger: isInt}
	}

	es := []Entry{
		bin("+", func(a ...float64) (float64, error) { return a[0] + a[1], nil }, false),
		bin("-", func(a ...float64) (float64, error) { return a[0] - a[1], nil }, false),
		bin("*", func(a ...float64) (float64, error) { return a[0] * a[1], nil }, false),
		bin("/", func(a ...float64) (float64, error) { return a[0] / a[1], nil }, false),
		bin("^", func(a ...float64) (float64, error) { return math.Pow(a[0], a[1]), nil }, false),
		{Name: "-u", Arity: Arity{Min: 1, Max: 1}, Fn: func(a ...float64) (float64, error) { return -a[0], nil }},

		un("log", func(a ...float64) (float64, error) { return math.Log(a[0]), nil }, false),
		un("exp", func(a ...float64) (float64, error) { return math.Exp(a[0]), nil }, false),
		un("sqrt", func(a ...float64) (float64, error) { return math.Sqrt(a[0]), nil }, false),
		un("logistic", func(a ...float64) (float64, error) { return 1 / (1 + math.Exp(-a[0])), nil }, false),
		un("cexpexp", func(a ...float64) (float64, error) { return 1 - math.Exp(-math.Exp(a[0])), nil }, false),
		un("phi", func(a ...float64) (float64, error) { return 0.5 * (1 + math.Erf(a[0]/math.Sqrt2)), nil }, false),

		{
			Name:  "mean",
			Arity: Arity{Min: 1, Max: -1},
			Fn: func(a ...float64) (float64, error) {
				var sum float64
				for _, v := range a {
					sum += v
				}
				return sum / float64(len(a)), nil
			},
		},
		{
			Name:  "sum",
			Arity: Arity{Min: 1, Max: -1},
			Fn: func(a ...float64) (float64, error) {
				var sum float64
				for _, v := range a {
					sum += v
				}
				return sum, nil
			},
		},

		{Name: ":", Arity: Arity{Min: 2, Max: 2}}, // range constructor; eval handles specially
	}

	for _, d := range []string{
		"dnorm", "dbin", "dcat", "dgamma", "dbeta", "dunif", "dbern", "dpois",
		"dexp", "dflat", "dmnorm", "dwish",
		"truncated", "censored",
		"cdf", "pdf",
		"lower_unbounded", "upper_unbounded", "nothing",
	} {
		es = append(es, Entry{Name: d, Arity: Arity{Min: 0, Max: -1}, Distribution: true})
	}

	return es
}
