package quality

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/models"
	"github.com/predeshen/telegramscalperbot-sub001/pkg/config"
	"github.com/predeshen/telegramscalperbot-sub001/pkg/logger"
)

// maxHistoryPerSymbol bounds the duplicate-check history.
const maxHistoryPerSymbol = 10

type historyEntry struct {
	at     time.Time
	signal models.Signal
}

// Filter evaluates candidate signals against a market snapshot and recent
// signal history. Rejections are values on the verdict, never errors.
// History is mutex-guarded so one filter can serve concurrent symbol loops.
type Filter struct {
	cfg     config.QualityConfig
	weights map[string]int
	log     *logger.Logger

	mu      sync.Mutex
	history map[string][]historyEntry

	now func() time.Time
}

func NewFilter(cfg config.QualityConfig, log *logger.Logger) *Filter {
	weights := make(map[string]int, len(DefaultWeights))
	for name, w := range DefaultWeights {
		weights[name] = w
	}
	for name, w := range cfg.ConfluenceWeights {
		weights[name] = w
	}

	return &Filter{
		cfg:     cfg,
		weights: weights,
		log:     log.Named("quality_filter"),
		history: make(map[string][]historyEntry),
		now:     time.Now,
	}
}

// Evaluate runs the full gating sequence: risk/reward, confluence count,
// confidence score, duplicate suppression. The first failing gate sets the
// rejection reason. An accepted signal is appended to the symbol's history.
func (f *Filter) Evaluate(signal *models.Signal, snapshot *models.Series) models.Verdict {
	factors, weighted := f.evaluateFactors(signal, snapshot)
	confidence := confidenceFromWeighted(weighted)

	verdict := models.Verdict{
		ConfidenceScore:   confidence,
		ConfluenceFactors: factors,
	}

	rr, ok := riskReward(signal)
	if !ok || rr < f.cfg.MinRiskReward {
		verdict.RejectionReason = fmt.Sprintf("risk/reward %.2f below minimum %.2f", rr, f.cfg.MinRiskReward)
		return verdict
	}
	verdict.ConfidenceScore = adjustForRiskReward(confidence, rr)

	if len(factors) < f.cfg.MinConfluenceFactors {
		verdict.RejectionReason = fmt.Sprintf("only %d confluence factors, need %d", len(factors), f.cfg.MinConfluenceFactors)
		return verdict
	}

	if verdict.ConfidenceScore < f.cfg.MinConfidenceScore {
		verdict.RejectionReason = fmt.Sprintf("confidence %d below minimum %d", verdict.ConfidenceScore, f.cfg.MinConfidenceScore)
		return verdict
	}

	if reason, dup := f.isDuplicate(signal); dup {
		verdict.RejectionReason = reason
		return verdict
	}

	verdict.Passed = true
	f.remember(signal)

	f.log.Debug("signal accepted",
		logger.String("symbol", signal.Symbol),
		logger.String("side", string(signal.Side)),
		logger.Int("confidence", verdict.ConfidenceScore),
		logger.Strings("factors", factors))
	return verdict
}

// riskReward computes the direction-aware reward/risk ratio.
func riskReward(signal *models.Signal) (float64, bool) {
	risk := math.Abs(signal.EntryPrice - signal.StopLoss)
	reward := math.Abs(signal.TakeProfit - signal.EntryPrice)
	if risk <= 0 {
		return 0, false
	}
	return reward / risk, true
}

// adjustForRiskReward rewards generous ratios and penalizes thin ones,
// clamped to the 1..5 scale.
func adjustForRiskReward(confidence int, rr float64) int {
	switch {
	case rr >= 2.5:
		confidence++
	case rr < 2.0:
		confidence--
	}
	if confidence > 5 {
		confidence = 5
	}
	if confidence < 1 {
		confidence = 1
	}
	return confidence
}

// isDuplicate scans the symbol's history inside the duplicate window. Every
// entry is checked; multiple prior entries may conflict. Entries older than
// twice the window are pruned on each call.
func (f *Filter) isDuplicate(signal *models.Signal) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	entries := f.prune(signal.Symbol, now)

	duplicate := false
	var reason string
	for _, e := range entries {
		if now.Sub(e.at) > f.cfg.DuplicateWindow {
			continue
		}
		if e.signal.Side != signal.Side {
			continue
		}
		movePct := math.Abs(signal.EntryPrice-e.signal.EntryPrice) / e.signal.EntryPrice * 100
		if movePct >= f.cfg.SignificantPriceMovePct {
			// Price has moved meaningfully since the prior signal; a repeat
			// at the new level is a fresh setup regardless of the window.
			continue
		}
		if movePct < f.cfg.DuplicatePriceTolerance {
			duplicate = true
			reason = fmt.Sprintf("duplicate of %s signal at %.2f from %s ago",
				e.signal.Side, e.signal.EntryPrice, now.Sub(e.at).Round(time.Second))
		}
	}
	return reason, duplicate
}

// prune drops entries older than twice the duplicate window and trims the
// list to the retention cap. Caller holds the lock.
func (f *Filter) prune(symbol string, now time.Time) []historyEntry {
	entries := f.history[symbol]
	kept := entries[:0]
	for _, e := range entries {
		if now.Sub(e.at) <= 2*f.cfg.DuplicateWindow {
			kept = append(kept, e)
		}
	}
	if len(kept) > maxHistoryPerSymbol {
		kept = kept[len(kept)-maxHistoryPerSymbol:]
	}
	f.history[symbol] = kept
	return kept
}

func (f *Filter) remember(signal *models.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := append(f.history[signal.Symbol], historyEntry{at: f.now(), signal: *signal})
	if len(entries) > maxHistoryPerSymbol {
		entries = entries[len(entries)-maxHistoryPerSymbol:]
	}
	f.history[signal.Symbol] = entries
}
