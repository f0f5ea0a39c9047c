package ledger

import (
	"fmt"

	"github.com/ruteri/canary-registry/interfaces"
)

var coinModule = NewModule("coin")

// CoinType is the type tag of payment objects.
var CoinType = coinModule.Type("Coin")

// Coin is a fungible payment object owned by a single principal.
type Coin struct {
	Value uint64 `json:"value"`
}

// TakeCoin consumes a coin owned by the sender and returns its value.
func (tx *Tx) TakeCoin(id Address) (uint64, error) {
	var coin Coin
	if _, err := tx.Load(id, CoinType, &coin); err != nil {
		return 0, err
	}
	if err := tx.Delete(coinModule, id); err != nil {
		return 0, err
	}
	return coin.Value, nil
}

// PayCoin mints a coin of value owned by to. Callers must hold the funds
// they pay out, e.g. a balance they debit in the same transaction.
func (tx *Tx) PayCoin(to Address, value uint64) (Address, error) {
	id := tx.FreshID()
	if err := tx.Create(coinModule, id, "Coin", AddressOwner(to), Coin{Value: value}); err != nil {
		return Address{}, err
	}
	return id, nil
}

// SplitCoin moves amount out of a sender-owned coin into a new coin owned by
// the sender.
func SplitCoin(tx *Tx, coinID Address, amount uint64) (Address, error) {
	var coin Coin
	if _, err := tx.Load(coinID, CoinType, &coin); err != nil {
		return Address{}, err
	}
	if amount > coin.Value {
		return Address{}, fmt.Errorf("%w: split %d from %d", interfaces.ErrInsufficientBalance, amount, coin.Value)
	}

	coin.Value -= amount
	if err := tx.Update(coinModule, coinID, coin); err != nil {
		return Address{}, err
	}
	return tx.PayCoin(tx.Sender(), amount)
}

// MergeCoins folds others into primary. All coins must belong to the sender.
func MergeCoins(tx *Tx, primary Address, others []Address) error {
	var coin Coin
	if _, err := tx.Load(primary, CoinType, &coin); err != nil {
		return err
	}

	for _, id := range others {
		if id == primary {
			return fmt.Errorf("%w: cannot merge %s into itself", interfaces.ErrObjectExists, id)
		}
		value, err := tx.TakeCoin(id)
		if err != nil {
			return err
		}
		if coin.Value+value < coin.Value {
			return fmt.Errorf("%w: merging %d into %d", interfaces.ErrValueOverflow, value, coin.Value)
		}
		coin.Value += value
	}
	return tx.Update(coinModule, primary, coin)
}

// TransferObject hands a sender-owned object to another principal.
func TransferObject(tx *Tx, id Address, to Address) error {
	return tx.Transfer(id, to)
}

// CoinBalance sums the value of all coins owned by owner.
func CoinBalance(v *View, owner Address) (uint64, []Address, error) {
	var total uint64
	var ids []Address
	for _, obj := range v.OwnedBy(owner) {
		if obj.Type != CoinType {
			continue
		}
		var coin Coin
		if err := decodeObject(obj, CoinType, &coin); err != nil {
			return 0, nil, err
		}
		if total+coin.Value < total {
			return 0, nil, fmt.Errorf("%w: coins of %s", interfaces.ErrValueOverflow, owner)
		}
		total += coin.Value
		ids = append(ids, obj.ID)
	}
	return total, ids, nil
}
