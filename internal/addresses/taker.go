package addresses

import (
	"context"
	"fmt"

	"github.com/sudoswap/0x-tracker-worker/internal/domain/model"
	"github.com/sudoswap/0x-tracker-worker/internal/store"
)

// ContractChecker reports whether an address is a contract address.
type ContractChecker interface {
	IsContract(ctx context.Context, address string) (bool, error)
}

// ResolveEffectiveTaker resolves the human-controlled counterparty of a
// fill. Aggregator and proxy contracts submit trades on behalf of end
// users; when the nominal taker is a contract, the trade is attributed to
// the account that originated the transaction instead.
func ResolveEffectiveTaker(
	ctx context.Context,
	fill *model.Fill,
	checker ContractChecker,
	txs store.TransactionRepository,
) (string, error) {
	isContract, err := checker.IsContract(ctx, fill.Taker)
	if err != nil {
		return "", err
	}
	if !isContract {
		return fill.Taker, nil
	}

	tx, err := txs.FindByHash(ctx, fill.TransactionHash)
	if err != nil {
		return "", err
	}
	if tx == nil {
		return "", fmt.Errorf("no transaction found with the hash: %s", fill.TransactionHash)
	}

	return tx.From, nil
}
