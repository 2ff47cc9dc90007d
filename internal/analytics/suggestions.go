package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jwrfree/lemon-beta/internal/model"
)

// Confidence is the display tier of a suggestion score.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

const (
	maxRecencyScore   = 4.0
	recencyHalfDayHrs = 12.0
	timeMatchScore    = 2.0
	weekendMatchScore = 1.0
	paydayMatchScore  = 1.0
	sequenceScore     = 1.5

	highConfidenceScore   = 6.5
	mediumConfidenceScore = 4.0

	reasonSeparator = " · "
	fallbackReason  = "recent transaction"
)

// RankedSuggestion is a candidate re-entry of an earlier transaction.
type RankedSuggestion struct {
	Text          string
	Reason        string
	Confidence    Confidence
	Score         float64
	TransactionID string
	Type          model.TransactionType
	Description   string
	Category      string
	Amount        float64
	Date          time.Time
}

// RankPersonalizedSuggestions scores every eligible transaction against the
// reference time now and the most recent entry, collapses suggestions with
// the same text to the best-scoring one, and returns at most limit of them,
// highest score first.
func RankPersonalizedSuggestions(transactions []*model.Transaction, now time.Time, limit int) []RankedSuggestion {
	if limit <= 0 {
		return []RankedSuggestion{}
	}

	var eligible []*model.Transaction
	var previous *model.Transaction
	for _, tx := range transactions {
		if tx == nil || tx.Amount <= 0 || strings.TrimSpace(tx.Description) == "" || tx.Date.IsZero() {
			continue
		}
		eligible = append(eligible, tx)
		if previous == nil || tx.Date.After(previous.Date) {
			previous = tx
		}
	}
	if len(eligible) == 0 {
		return []RankedSuggestion{}
	}

	ref := NewTimeContext(now)

	best := make(map[string]RankedSuggestion)
	var keys []string
	for _, tx := range eligible {
		s := scoreSuggestion(tx, previous, ref, now)
		key := strings.ToLower(strings.TrimSpace(s.Text))
		current, ok := best[key]
		if !ok {
			keys = append(keys, key)
			best[key] = s
			continue
		}
		if s.Score > current.Score || (s.Score == current.Score && s.Date.After(current.Date)) {
			best[key] = s
		}
	}

	ranked := make([]RankedSuggestion, 0, len(keys))
	for _, key := range keys {
		ranked = append(ranked, best[key])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Date.After(ranked[j].Date)
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func scoreSuggestion(tx, previous *model.Transaction, ref TimeContext, now time.Time) RankedSuggestion {
	ctx := NewTimeContext(tx.Date)

	ageHours := now.Sub(tx.Date).Hours()
	if ageHours < 1 {
		ageHours = 1
	}
	score := math.Max(0, maxRecencyScore-math.Min(maxRecencyScore, ageHours/recencyHalfDayHrs))

	var reasons []string
	if ctx.Bucket == ref.Bucket {
		score += timeMatchScore
		reasons = append(reasons, fmt.Sprintf("matches frequent %s activity", ctx.Bucket))
	}
	if ctx.Weekend == ref.Weekend {
		score += weekendMatchScore
		reasons = append(reasons, "similar day pattern")
	}
	if ctx.Payday == ref.Payday {
		score += paydayMatchScore
		reasons = append(reasons, "similar payday period")
	}
	if tx.Category == previous.Category {
		score += sequenceScore
		reasons = append(reasons, fmt.Sprintf("usually follows category %s", previous.Category))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, fallbackReason)
	}

	score = math.Round(score*100) / 100

	return RankedSuggestion{
		Text:          SuggestionText(tx.Description, tx.Amount),
		Reason:        strings.Join(reasons, reasonSeparator),
		Confidence:    confidenceFor(score),
		Score:         score,
		TransactionID: tx.ID,
		Type:          tx.Type,
		Description:   strings.TrimSpace(tx.Description),
		Category:      tx.Category,
		Amount:        tx.Amount,
		Date:          tx.Date,
	}
}

func confidenceFor(score float64) Confidence {
	switch {
	case score >= highConfidenceScore:
		return ConfidenceHigh
	case score >= mediumConfidenceScore:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// SuggestionText renders a suggestion label such as "Kopi Susu Rp25.000".
func SuggestionText(description string, amount float64) string {
	return strings.TrimSpace(description) + " " + FormatAmount(amount)
}
