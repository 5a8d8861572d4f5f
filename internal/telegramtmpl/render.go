package telegramtmpl

import (
	"fmt"
	"strings"
)

// PoolLine is one reward pool's row in the monthly report.
type PoolLine struct {
	Strategy string
	Total    string
	Balance  string
}

// MonthlyData describes the data required to render a month rollover message.
type MonthlyData struct {
	Month         uint64
	Symbol        string
	LiveNfts      int
	GlobalStaked  string
	GlobalMinimum string
	GlobalShares  uint64
	GlobalLevels  uint64
	Pools         []PoolLine
	Highlights    []string
	Warnings      []string
}

// RenderMonthlyHTML renders a month rollover report in HTML parse mode.
func RenderMonthlyHTML(d MonthlyData) string {
	symbol := strings.TrimSpace(d.Symbol)
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>Month %d Started</b>\n", d.Month))
	b.WriteString(fmt.Sprintf("Live NFTs: %d\n", d.LiveNfts))
	b.WriteString(fmt.Sprintf("Staked: %s %s\nMinimum: %s %s\n", d.GlobalStaked, symbol, d.GlobalMinimum, symbol))
	b.WriteString(fmt.Sprintf("Shares: %d\nLevels: %d\n", d.GlobalShares, d.GlobalLevels))
	if len(d.Pools) > 0 {
		b.WriteString("\n<b>Reward Pools</b>\n")
		for _, p := range d.Pools {
			b.WriteString(fmt.Sprintf("- %s: %s %s this month, balance %s\n", p.Strategy, p.Total, symbol, p.Balance))
		}
	}
	if len(d.Highlights) > 0 {
		b.WriteString("\n<b>Highlights</b>\n")
		for _, h := range d.Highlights {
			b.WriteString("- " + h + "\n")
		}
	}
	if len(d.Warnings) > 0 {
		b.WriteString("\n<b>Warnings</b>\n")
		for _, w := range d.Warnings {
			b.WriteString("- " + w + "\n")
		}
	}
	return strings.TrimSpace(b.String())
}
