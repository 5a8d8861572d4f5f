package rewards

import (
	"github.com/holiman/uint256"

	"github.com/stakeforge/nftstake/internal/curve"
)

// ScheduleMonths is the length of the default reward schedules.
const ScheduleMonths = 40

// Schedule is a per-month reward total for months 1..Len(); zero elsewhere.
type Schedule struct {
	totals []uint256.Int
}

func NewSchedule(totals []uint256.Int) Schedule {
	return Schedule{totals: append([]uint256.Int(nil), totals...)}
}

func (s Schedule) Len() int { return len(s.totals) }

// Total returns the reward for month, zero outside [1, Len()].
func (s Schedule) Total(month uint64) *uint256.Int {
	if month == 0 || month > uint64(len(s.totals)) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(&s.totals[month-1])
}

// Sum is the total paid over the whole schedule.
func (s Schedule) Sum() *uint256.Int {
	sum := new(uint256.Int)
	for i := range s.totals {
		sum.Add(sum, &s.totals[i])
	}
	return sum
}

// StepSchedule builds a 40-month schedule that pays yearly[i] whole tokens a
// month during year i (the fourth "year" is only four months long).
func StepSchedule(decimals uint8, yearly [4]uint64) Schedule {
	unit := curve.Unit(decimals)
	totals := make([]uint256.Int, ScheduleMonths)
	for i := range totals {
		totals[i].Mul(uint256.NewInt(yearly[i/12]), unit)
	}
	return Schedule{totals: totals}
}

func DefaultTokenSchedule(decimals uint8) Schedule {
	return StepSchedule(decimals, [4]uint64{500_000, 400_000, 300_000, 200_000})
}

func DefaultSharesSchedule(decimals uint8) Schedule {
	return StepSchedule(decimals, [4]uint64{250_000, 200_000, 150_000, 100_000})
}
