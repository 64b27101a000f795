package strategy

// Strategy is the closed set of caching policies. Exactly one strategy is
// active at a time; the controller switches between them based on sampled
// system conditions. The enum replaces lookup-by-name so the compiler can
// check exhaustiveness.
type Strategy int

const (
	Balanced Strategy = iota
	Performance
	Memory
	Network
	Battery
)

// All lists every strategy, in controller evaluation order. Balanced comes
// first so that score ties resolve in its favor.
var All = []Strategy{Balanced, Performance, Memory, Network, Battery}

// Names returns every strategy name, for metrics label initialization.
func Names() []string {
	names := make([]string, 0, len(All))
	for _, s := range All {
		names = append(names, s.String())
	}
	return names
}

// String returns the strategy name used in stats and metrics labels.
func (s Strategy) String() string {
	switch s {
	case Performance:
		return "performance"
	case Memory:
		return "memory"
	case Balanced:
		return "balanced"
	case Network:
		return "network"
	case Battery:
		return "battery"
	default:
		return "unknown"
	}
}

// TTLMultiplier scales every computed TTL under this strategy. Memory and
// battery strategies shorten entry lifetimes to shed load; performance and
// network strategies lengthen them to avoid refetches.
func (s Strategy) TTLMultiplier() float64 {
	switch s {
	case Performance:
		return 1.5
	case Memory:
		return 0.7
	case Network:
		return 1.3
	case Battery:
		return 0.5
	default:
		return 1.0
	}
}

// SizeMultiplier scales tier capacities under this strategy, bounded by the
// per-tier min/max configuration.
func (s Strategy) SizeMultiplier() float64 {
	switch s {
	case Performance:
		return 1.2
	case Memory:
		return 0.6
	case Network:
		return 1.0
	case Battery:
		return 0.8
	default:
		return 1.0
	}
}
