package analytics

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jwrfree/lemon-beta/internal/model"
)

// AnomalyType classifies a price change on a recurring charge.
type AnomalyType string

const (
	AnomalyInflation AnomalyType = "inflation"
	// AnomalyDeflation and AnomalyNew are part of the record shape but are not
	// emitted by AnalyzeSubscriptions.
	AnomalyDeflation AnomalyType = "deflation"
	AnomalyNew       AnomalyType = "new"
)

// Frequency is the billing cadence inferred from the gaps between charges.
type Frequency string

const (
	FrequencyUnknown     Frequency = ""
	FrequencyWeekly      Frequency = "weekly"
	FrequencyFortnightly Frequency = "fortnightly"
	FrequencyMonthly     Frequency = "monthly"
	FrequencyQuarterly   Frequency = "quarterly"
	FrequencyAnnually    Frequency = "annually"
)

// activeWindow absorbs billing-date jitter on monthly charges.
const activeWindow = 45 * 24 * time.Hour

// recurringCategories are matched case-insensitively against Transaction.Category.
var recurringCategories = map[string]bool{
	"subscriptions": true,
	"subscription":  true,
	"bills":         true,
	"langganan":     true,
	"tagihan":       true,
}

// SubscriptionAnomaly is a price change between the two most recent charges
// of one merchant.
type SubscriptionAnomaly struct {
	MerchantName   string
	PreviousAmount float64
	CurrentAmount  float64
	Difference     float64
	Type           AnomalyType
	LastDate       time.Time
}

// SubscriptionSummary describes one merchant group.
type SubscriptionSummary struct {
	MerchantName   string
	NormalizedName string
	LatestAmount   float64
	LastDate       time.Time
	Occurrences    int
	Active         bool
	Frequency      Frequency
	ExpectedNext   time.Time // zero when Frequency is unknown
}

// SubscriptionAudit is the result of AnalyzeSubscriptions.
type SubscriptionAudit struct {
	TotalMonthlyBurn    float64
	ActiveSubscriptions int
	Anomalies           []SubscriptionAnomaly
	Subscriptions       []SubscriptionSummary
}

// IsRecurringCandidate reports whether tx belongs to a recurring-expense
// category or carries the subscription tag.
func IsRecurringCandidate(tx *model.Transaction) bool {
	if tx == nil {
		return false
	}
	if recurringCategories[strings.ToLower(strings.TrimSpace(tx.Category))] {
		return true
	}
	return tx.HasTag(model.SubscriptionTag)
}

// NormalizeMerchant is the grouping key for recurring charges.
func NormalizeMerchant(description string) string {
	return strings.ToLower(strings.TrimSpace(description))
}

// AnalyzeSubscriptions groups recurring charges by merchant, counts the ones
// still billing within 45 days of now and flags price increases between the
// last two charges. Groups and anomalies keep the order in which merchants
// first appear in transactions.
func AnalyzeSubscriptions(transactions []*model.Transaction, now time.Time) SubscriptionAudit {
	var order []string
	groups := make(map[string][]*model.Transaction)
	for _, tx := range transactions {
		if !IsRecurringCandidate(tx) || tx.Date.IsZero() {
			continue
		}
		key := NormalizeMerchant(tx.Description)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], tx)
	}

	audit := SubscriptionAudit{
		Anomalies:     []SubscriptionAnomaly{},
		Subscriptions: []SubscriptionSummary{},
	}

	for _, key := range order {
		group := groups[key]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Date.After(group[j].Date)
		})
		latest := group[0]

		active := now.Sub(latest.Date) <= activeWindow
		if active {
			audit.TotalMonthlyBurn += latest.Amount
			audit.ActiveSubscriptions++
		}

		summary := SubscriptionSummary{
			MerchantName:   strings.TrimSpace(latest.Description),
			NormalizedName: key,
			LatestAmount:   latest.Amount,
			LastDate:       latest.Date,
			Occurrences:    len(group),
			Active:         active,
		}
		if freq := detectFrequency(chargeIntervals(group)); freq != FrequencyUnknown {
			summary.Frequency = freq
			summary.ExpectedNext = nextChargeDate(latest.Date, freq)
		}
		audit.Subscriptions = append(audit.Subscriptions, summary)

		if len(group) < 2 {
			continue
		}
		previous := group[1]
		if diff := latest.Amount - previous.Amount; diff > 0 {
			audit.Anomalies = append(audit.Anomalies, SubscriptionAnomaly{
				MerchantName:   summary.MerchantName,
				PreviousAmount: previous.Amount,
				CurrentAmount:  latest.Amount,
				Difference:     diff,
				Type:           AnomalyInflation,
				LastDate:       latest.Date,
			})
		}
	}

	return audit
}

// chargeIntervals returns the gaps in days between consecutive charges of a
// group sorted newest first.
func chargeIntervals(group []*model.Transaction) []float64 {
	var intervals []float64
	for i := 1; i < len(group); i++ {
		days := group[i-1].Date.Sub(group[i].Date).Hours() / 24
		if days > 0 {
			intervals = append(intervals, days)
		}
	}
	return intervals
}

// detectFrequency picks the cadence whose window contains the mean interval.
// At least half of the individual intervals must fall in the same window.
func detectFrequency(intervals []float64) Frequency {
	if len(intervals) == 0 {
		return FrequencyUnknown
	}

	var avg float64
	for _, d := range intervals {
		avg += d
	}
	avg /= float64(len(intervals))

	patterns := []struct {
		freq     Frequency
		min, max float64
	}{
		{FrequencyWeekly, 5, 9},
		{FrequencyFortnightly, 12, 16},
		{FrequencyMonthly, 27, 34},
		{FrequencyQuarterly, 85, 95},
		{FrequencyAnnually, 355, 375},
	}

	for _, p := range patterns {
		if avg < p.min || avg > p.max {
			continue
		}
		matches := 0
		for _, d := range intervals {
			if d >= p.min && d <= p.max {
				matches++
			}
		}
		if math.Round(float64(matches)/float64(len(intervals))*100) >= 50 {
			return p.freq
		}
		return FrequencyUnknown
	}
	return FrequencyUnknown
}

func nextChargeDate(last time.Time, freq Frequency) time.Time {
	switch freq {
	case FrequencyWeekly:
		return last.AddDate(0, 0, 7)
	case FrequencyFortnightly:
		return last.AddDate(0, 0, 14)
	case FrequencyQuarterly:
		return last.AddDate(0, 3, 0)
	case FrequencyAnnually:
		return last.AddDate(1, 0, 0)
	default:
		return last.AddDate(0, 1, 0)
	}
}
