package matcher

import (
	"fmt"
	"sort"
)

// Strategy decides the order in which an auto-match pass visits sources.
// Earlier sources claim targets first.
type Strategy string

const (
	// StrategyOrdered visits sources in input order.
	StrategyOrdered Strategy = "ordered"
	// StrategySizeBiased visits sources with longer normalized names first,
	// keeping input order among equal lengths.
	StrategySizeBiased Strategy = "size-biased"
)

// ParseStrategy parses a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyOrdered:
		return StrategyOrdered, nil
	case StrategySizeBiased:
		return StrategySizeBiased, nil
	}
	return "", fmt.Errorf("unknown match strategy %q", s)
}

func (s Strategy) order(sources []prepared) []prepared {
	if s != StrategySizeBiased {
		return sources
	}
	out := make([]prepared, len(sources))
	copy(out, sources)
	sort.SliceStable(out, func(i, j int) bool {
		return len([]rune(out[i].name)) > len([]rune(out[j].name))
	})
	return out
}
