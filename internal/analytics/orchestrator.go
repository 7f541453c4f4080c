package analytics

import (
	"github.com/samber/lo"

	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/models"
	"github.com/predeshen/telegramscalperbot-sub001/internal/strategy"
	"github.com/predeshen/telegramscalperbot-sub001/pkg/config"
)

// Orchestrator decides which strategies run, in which order, and how their
// confidence is scaled for the current regime.
type Orchestrator struct {
	priority config.StrategyPriorityConfig
	registry *strategy.Registry
}

func NewOrchestrator(priority config.StrategyPriorityConfig, registry *strategy.Registry) *Orchestrator {
	return &Orchestrator{priority: priority, registry: registry}
}

// regime bucket thresholds for the priority lists.
const (
	highVolatilityRatio = 1.5
	lowVolatilityRatio  = 0.8
	strongTrendADX      = 25.0
)

// SelectStrategies builds the candidate order for the given conditions:
// matching bucket lists are concatenated (buckets are not mutually
// exclusive), remaining enabled strategies are appended, and the result is
// deduplicated preserving first occurrence. Strategies failing the skip
// heuristics are removed outright.
func (o *Orchestrator) SelectStrategies(cond models.MarketConditions) []string {
	var candidates []string
	if cond.VolatilityRatio > highVolatilityRatio {
		candidates = append(candidates, o.priority.HighVolatility...)
	}
	if cond.VolatilityRatio < lowVolatilityRatio {
		candidates = append(candidates, o.priority.LowVolatility...)
	}
	if cond.TrendStrength > strongTrendADX {
		candidates = append(candidates, o.priority.StrongTrend...)
	}
	if cond.IsRanging {
		candidates = append(candidates, o.priority.Ranging...)
	}

	enabled := o.registry.Enabled()
	candidates = append(candidates, lo.Map(enabled, func(d strategy.Descriptor, _ int) string {
		return d.Name
	})...)

	ordered := lo.Uniq(candidates)

	return lo.Filter(ordered, func(name string, _ int) bool {
		desc, ok := o.registry.Describe(name)
		if !ok || !desc.Enabled {
			return false
		}
		skip, _ := o.ShouldSkip(desc.Family, cond)
		return !skip
	})
}

// ShouldSkip reports whether a strategy family must not run at all under
// the given conditions, with the reason.
func (o *Orchestrator) ShouldSkip(family strategy.Family, cond models.MarketConditions) (bool, string) {
	switch family {
	case strategy.FamilyMomentum:
		if cond.IsRanging {
			return true, "momentum strategies idle in ranging markets"
		}
	case strategy.FamilyMeanReversion:
		if cond.TrendStrength > strongTrendADX {
			return true, "mean reversion idle in strong trends"
		}
	case strategy.FamilyTrendFollowing:
		if cond.IsRanging {
			return true, "trend following idle in ranging markets"
		}
	case strategy.FamilyBreakout:
		if cond.VolumeProfile == models.VolumeLow {
			return true, "breakouts unreliable on low volume"
		}
	}
	return false, ""
}

// ConfidenceMultiplier scales a produced signal's confidence for the
// regime. The caller applies it before quality filtering. Clamped to
// [0.5, 1.5].
func (o *Orchestrator) ConfidenceMultiplier(family strategy.Family, cond models.MarketConditions) float64 {
	multiplier := 1.0

	switch family {
	case strategy.FamilyMomentum:
		if cond.IsTrending {
			multiplier *= 1.3
		}
	case strategy.FamilyMeanReversion:
		if cond.IsRanging {
			multiplier *= 1.2
		}
	case strategy.FamilyTrendFollowing:
		if cond.TrendStrength > strongTrendADX {
			multiplier *= 1.4
		}
	case strategy.FamilyBreakout:
		if cond.VolumeProfile == models.VolumeHigh {
			multiplier *= 1.3
		}
	}

	if cond.VolumeProfile == models.VolumeLow {
		multiplier *= 0.8
	}

	if multiplier > 1.5 {
		multiplier = 1.5
	}
	if multiplier < 0.5 {
		multiplier = 0.5
	}
	return multiplier
}

// ApplyMultiplier scales a 1..5 confidence and clamps it back to the scale.
func ApplyMultiplier(confidence int, multiplier float64) int {
	scaled := int(float64(confidence)*multiplier + 0.5)
	if scaled > 5 {
		scaled = 5
	}
	if scaled < 1 {
		scaled = 1
	}
	return scaled
}

// HasConflict reports whether a batch of signals produced in one pass
// contains both LONG and SHORT sides. Resolution is the caller's policy.
func HasConflict(signals []*models.Signal) bool {
	hasLong := lo.SomeBy(signals, func(s *models.Signal) bool { return s.Side == models.SideLong })
	hasShort := lo.SomeBy(signals, func(s *models.Signal) bool { return s.Side == models.SideShort })
	return hasLong && hasShort
}
