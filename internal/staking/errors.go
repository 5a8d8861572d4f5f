package staking

import (
	"fmt"

	"github.com/stakeforge/nftstake/internal/errs"
	"github.com/stakeforge/nftstake/internal/ledger"
)

var (
	ErrNftNotOwned             = fmt.Errorf("%w: nft not owned", errs.ErrPermission)
	ErrUnstakeAmountNotAllowed = fmt.Errorf("%w: unstake amount not allowed", errs.ErrInvariant)
	ErrLockPeriodActive        = fmt.Errorf("%w: lock period has not elapsed", errs.ErrInvariant)
	ErrNftExists               = fmt.Errorf("%w: nft already minted", errs.ErrValidation)
	ErrZeroAddress             = fmt.Errorf("%w: zero address", errs.ErrValidation)
	ErrUnknownNft              = ledger.ErrUnknownEntity
	ErrNftDestroyed            = ledger.ErrEntityDestroyed
)
