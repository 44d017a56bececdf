package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/bobmcallan/putscan/internal/models"
)

func renderReport(w io.Writer, report *models.ScanReport) {
	fmt.Fprintf(w, "%s\n\n", report.Summary)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Symbol", "Price", "Expiry", "DTE", "Strike", "OTM %", "Weekly %", "Avg IV", "Risk", "Rec", "Reason"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, r := range report.Results {
		table.Append(resultRow(r))
	}
	table.Render()

	if report.BestOverall != nil {
		b := report.BestOverall
		fmt.Fprintf(w, "\nBest overall: %s $%.2f put, mid $%.2f (%s)\n", b.Symbol, b.Contract.Strike, b.Contract.Mid, b.Reason)
	}

	if report.Focus != nil && len(report.Shortlist) > 0 {
		fmt.Fprintf(w, "\nShortlist for %s:\n", report.Focus.Symbol)
		st := tablewriter.NewWriter(w)
		st.SetHeader([]string{"#", "Strike", "Bid", "Ask", "Mid", "OTM %", "Weekly %", "OI", "Preferred"})
		st.SetAlignment(tablewriter.ALIGN_RIGHT)
		for _, e := range report.Shortlist {
			preferred := ""
			if e.InPreferredBand {
				preferred = "yes"
			}
			st.Append([]string{
				fmt.Sprintf("%d", e.Rank),
				fmt.Sprintf("%.2f", e.Strike),
				fmt.Sprintf("%.2f", e.Bid),
				fmt.Sprintf("%.2f", e.Ask),
				fmt.Sprintf("%.2f", e.Mid),
				fmt.Sprintf("%.2f", e.OTMPercent),
				fmt.Sprintf("%.2f", e.WeeklyReturnPercent),
				fmt.Sprintf("%d", e.OpenInterest),
				preferred,
			})
		}
		st.Render()
	}

	if n := report.Narrative; n != nil {
		fmt.Fprintf(w, "\n%s at $%.2f (risk %s, %s)\n", n.Recommendation, n.RecommendedStrike, n.RiskLevel, n.Source)
		fmt.Fprintf(w, "  %s\n", n.RecommendationReasoning)
		for _, f := range n.KeyFactors {
			fmt.Fprintf(w, "  + %s\n", f)
		}
		for _, warn := range n.Warnings {
			fmt.Fprintf(w, "  ! %s\n", warn)
		}
	}

	if len(report.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors:\n  %s\n", strings.Join(report.Errors, "\n  "))
	}
}

func resultRow(r models.TickerResult) []string {
	if !r.OK() {
		return []string{r.Symbol, "-", "-", "-", "-", "-", "-", "-", "-", r.Recommendation, r.Error}
	}

	row := []string{r.Symbol, "-", "-", fmt.Sprintf("%d", r.DaysToExpiry), "-", "-", "-", fmt.Sprintf("%.1f", r.AverageIV), "-", r.Recommendation, r.Reason}
	if r.Quote != nil {
		row[1] = fmt.Sprintf("%.2f", r.Quote.Price)
	}
	if r.Expiration != nil {
		row[2] = r.Expiration.Format("2006-01-02")
	}
	if b := r.BestContract; b != nil {
		row[4] = fmt.Sprintf("%.2f", b.Strike)
		row[5] = fmt.Sprintf("%.2f", b.OTMPercent)
		row[6] = fmt.Sprintf("%.2f", b.WeeklyReturnPercent)
	}
	if r.Risk != nil {
		row[8] = string(r.Risk.Level)
	}
	return row
}
