package rewards

import (
	"fmt"

	"github.com/stakeforge/nftstake/internal/errs"
	"github.com/stakeforge/nftstake/internal/ledger"
)

var (
	ErrClaimNotAllowed  = fmt.Errorf("%w: claim not allowed", errs.ErrPermission)
	ErrUnknownStrategy  = fmt.Errorf("%w: unknown strategy", errs.ErrNotFound)
	ErrFutureMonth      = ledger.ErrFutureMonth
	ErrMonthNotRecorded = ledger.ErrMonthNotRecorded
)
