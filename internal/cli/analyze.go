package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jwrfree/lemon-beta/internal/analytics"
	"github.com/jwrfree/lemon-beta/internal/model"
	"github.com/jwrfree/lemon-beta/internal/rpc"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("now", "", "Reference time (ISO 8601), defaults to the current time")
	analyzeCmd.Flags().Int("limit", 5, "Maximum number of suggestions")
	analyzeCmd.Flags().Float64("budget-target", 0, "Monthly budget target to evaluate")
	analyzeCmd.Flags().StringSlice("budget-category", nil, "Budget categories (repeatable)")
	analyzeCmd.Flags().Float64("balance", 0, "Available balance; enables the spending risk insight")
	analyzeCmd.Flags().String("lang", "en", "Insight language")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE",
	Short: "Run the analyzers over a JSON ledger export",
	Long: `Load a JSON array of transactions and print the subscription audit,
ranked suggestions and, when a budget or balance is given, budget health and
spending risk. Entries whose date cannot be parsed are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

// ledgerEntry is one transaction in an exported ledger file.
type ledgerEntry struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Amount      float64  `json:"amount"`
	Category    string   `json:"category"`
	SubCategory string   `json:"subCategory"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Tags        []string `json:"tags"`
}

type analyzeBudget struct {
	Target     float64         `json:"target"`
	Categories []string        `json:"categories"`
	Stats      rpc.BudgetStats `json:"stats"`
}

type analyzeInsight struct {
	Risk     rpc.SpendingRisk `json:"risk"`
	Insight  string           `json:"insight"`
	Language string           `json:"language"`
}

type analyzeReport struct {
	Now           time.Time                       `json:"now"`
	Transactions  int                             `json:"transactions"`
	Skipped       int                             `json:"skipped"`
	Budget        *analyzeBudget                  `json:"budget,omitempty"`
	Subscriptions *rpc.AuditSubscriptionsResponse `json:"subscriptions"`
	Suggestions   []rpc.Suggestion                `json:"suggestions"`
	Insight       *analyzeInsight                 `json:"insight,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	nowRaw, _ := flags.GetString("now")
	limit, _ := flags.GetInt("limit")
	target, _ := flags.GetFloat64("budget-target")
	categories, _ := flags.GetStringSlice("budget-category")
	balance, _ := flags.GetFloat64("balance")
	lang, _ := flags.GetString("lang")

	now := time.Now()
	if nowRaw != "" {
		t, ok := model.ParseDate(nowRaw, time.UTC)
		if !ok {
			return fmt.Errorf("invalid --now %q", nowRaw)
		}
		now = t
	}

	txs, skipped, err := loadLedger(args[0])
	if err != nil {
		return err
	}
	// mixed offsets in one ledger are read on the reference clock
	for _, tx := range txs {
		tx.Date = tx.Date.In(now.Location())
	}

	report := analyzeReport{
		Now:           now,
		Transactions:  len(txs),
		Skipped:       skipped,
		Subscriptions: rpc.FromSubscriptionAudit(analytics.AnalyzeSubscriptions(txs, now)),
		Suggestions:   rpc.FromSuggestions(analytics.RankPersonalizedSuggestions(txs, now, limit)),
	}

	if target > 0 {
		if len(categories) == 0 {
			return fmt.Errorf("--budget-target needs at least one --budget-category")
		}
		budget := &model.Budget{TargetAmount: target, Categories: categories}
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		var month []*model.Transaction
		for _, tx := range txs {
			if !tx.Date.Before(start) && tx.Date.Before(start.AddDate(0, 1, 0)) {
				month = append(month, tx)
			}
		}
		report.Budget = &analyzeBudget{
			Target:     target,
			Categories: categories,
			Stats:      rpc.FromBudgetStats(analytics.ComputeBudgetStats(budget, month, now)),
		}
	}

	if flags.Changed("balance") {
		risk := analytics.EstimateSpendingRisk(txs, balance, now)
		tag := analytics.MatchInsightLanguage(lang)
		report.Insight = &analyzeInsight{
			Risk:     rpc.FromSpendingRisk(risk),
			Insight:  analytics.ComposeSpendingInsight(risk, tag),
			Language: tag.String(),
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// loadLedger reads a ledger file. Entries with unparseable dates or unknown
// types are counted as skipped.
func loadLedger(path string) ([]*model.Transaction, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read ledger: %w", err)
	}
	var entries []ledgerEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, 0, fmt.Errorf("parse ledger %s: %w", path, err)
	}

	txs := make([]*model.Transaction, 0, len(entries))
	skipped := 0
	for i, e := range entries {
		date, ok := model.ParseDate(e.Date, time.UTC)
		txType := model.TransactionType(strings.ToLower(strings.TrimSpace(e.Type)))
		if !ok || !txType.Valid() {
			skipped++
			continue
		}
		id := e.ID
		if id == "" {
			id = fmt.Sprintf("entry-%d", i)
		}
		txs = append(txs, &model.Transaction{
			ID:          id,
			Type:        txType,
			Amount:      e.Amount,
			Category:    e.Category,
			SubCategory: e.SubCategory,
			Description: e.Description,
			Date:        date,
			Tags:        e.Tags,
		})
	}
	return txs, skipped, nil
}
