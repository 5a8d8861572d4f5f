package telegramtmpl

import "fmt"

// MonthlyAdviceInput describes inputs for generating monthly highlights and warnings.
type MonthlyAdviceInput struct {
	Month          uint64
	ScheduleMonths uint64
	LiveNfts       int
	Minted         int
	Destroyed      int
	Claims         int
	// PoolShortfalls lists pools whose balance cannot cover the month's total.
	PoolShortfalls []string
}

// BuildMonthlyHighlightsWarnings generates month rollover highlights and warnings.
func BuildMonthlyHighlightsWarnings(in MonthlyAdviceInput) (highlights []string, warnings []string) {
	highlights = make([]string, 0, 3)
	warnings = make([]string, 0, 3)
	if in.Minted > 0 {
		highlights = append(highlights, fmt.Sprintf("%d NFTs minted last month.", in.Minted))
	}
	if in.Claims > 0 {
		highlights = append(highlights, fmt.Sprintf("%d reward claims restaked.", in.Claims))
	}
	switch {
	case in.ScheduleMonths == 0:
	case in.Month > in.ScheduleMonths:
		highlights = append(highlights, "Reward schedules have ended; only level rewards accrue.")
	case in.ScheduleMonths-in.Month < 3:
		warnings = append(warnings, fmt.Sprintf("Reward schedules end after month %d.", in.ScheduleMonths))
	}
	if in.LiveNfts == 0 {
		warnings = append(warnings, "No live NFTs: this month's rewards go unclaimed.")
	}
	if in.Destroyed > 0 {
		warnings = append(warnings, fmt.Sprintf("%d NFTs destroyed last month.", in.Destroyed))
	}
	for _, p := range in.PoolShortfalls {
		warnings = append(warnings, fmt.Sprintf("Pool %s cannot cover this month's rewards.", p))
	}
	return highlights, warnings
}
