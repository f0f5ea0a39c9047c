package httpserver

import (
	"github.com/ruteri/canary-registry/api"
	"github.com/ruteri/canary-registry/artifacts"
	"github.com/ruteri/canary-registry/interfaces"
	"github.com/ruteri/canary-registry/ledger"
	"github.com/ruteri/canary-registry/registry"
)

// operation binds a transaction endpoint to its request type and the entry
// function it runs.
type operation struct {
	newRequest func() api.Sequenced
	run        func(tx *ledger.Tx, req api.Sequenced) (interfaces.Address, error)
}

var operations = map[string]operation{
	api.OpJoin: {
		newRequest: func() api.Sequenced { return &api.JoinRequest{} },
		run: func(tx *ledger.Tx, req api.Sequenced) (interfaces.Address, error) {
			r := req.(*api.JoinRequest)
			return registry.Join(tx, r.RegistryID, r.PaymentCoin, r.Domain)
		},
	},
	api.OpRemoveMember: {
		newRequest: func() api.Sequenced { return &api.RemoveMemberRequest{} },
		run: func(tx *ledger.Tx, req api.Sequenced) (interfaces.Address, error) {
			r := req.(*api.RemoveMemberRequest)
			return interfaces.Address{}, registry.RemoveMember(tx, r.RegistryID, r.AdminCap, r.Member)
		},
	},
	api.OpWithdraw: {
		newRequest: func() api.Sequenced { return &api.WithdrawRequest{} },
		run: func(tx *ledger.Tx, req api.Sequenced) (interfaces.Address, error) {
			r := req.(*api.WithdrawRequest)
			return registry.Withdraw(tx, r.RegistryID, r.AdminCap, r.Amount)
		},
	},
	api.OpUpdateFee: {
		newRequest: func() api.Sequenced { return &api.UpdateFeeRequest{} },
		run: func(tx *ledger.Tx, req api.Sequenced) (interfaces.Address, error) {
			r := req.(*api.UpdateFeeRequest)
			return interfaces.Address{}, registry.UpdateFee(tx, r.RegistryID, r.AdminCap, r.Fee)
		},
	},
	api.OpStoreBlob: {
		newRequest: func() api.Sequenced { return &api.StoreBlobRequest{} },
		run: func(tx *ledger.Tx, req api.Sequenced) (interfaces.Address, error) {
			r := req.(*api.StoreBlobRequest)
			rec, err := artifacts.StoreBlob(tx, r.RegistryID, r.AdminCap, r.Namespace, r.RecordLocator, r.ExplanationLocator, r.ScopeID)
			if err != nil {
				return interfaces.Address{}, err
			}
			return rec.ID, nil
		},
	},
	api.OpUpdateBlob: {
		newRequest: func() api.Sequenced { return &api.UpdateBlobRequest{} },
		run: func(tx *ledger.Tx, req api.Sequenced) (interfaces.Address, error) {
			r := req.(*api.UpdateBlobRequest)
			rec, err := artifacts.UpdateBlob(tx, r.RegistryID, r.AdminCap, r.RecordID, r.RecordLocator, r.ExplanationLocator)
			if err != nil {
				return interfaces.Address{}, err
			}
			return rec.ID, nil
		},
	},
	api.OpDeleteArtifact: {
		newRequest: func() api.Sequenced { return &api.DeleteArtifactRequest{} },
		run: func(tx *ledger.Tx, req api.Sequenced) (interfaces.Address, error) {
			r := req.(*api.DeleteArtifactRequest)
			return interfaces.Address{}, artifacts.DeleteArtifact(tx, r.RegistryID, r.AdminCap, r.RecordID)
		},
	},
	api.OpSplitCoin: {
		newRequest: func() api.Sequenced { return &api.SplitCoinRequest{} },
		run: func(tx *ledger.Tx, req api.Sequenced) (interfaces.Address, error) {
			r := req.(*api.SplitCoinRequest)
			return ledger.SplitCoin(tx, r.Coin, r.Amount)
		},
	},
	api.OpMergeCoins: {
		newRequest: func() api.Sequenced { return &api.MergeCoinsRequest{} },
		run: func(tx *ledger.Tx, req api.Sequenced) (interfaces.Address, error) {
			r := req.(*api.MergeCoinsRequest)
			return r.Primary, ledger.MergeCoins(tx, r.Primary, r.Others)
		},
	},
	api.OpTransferObject: {
		newRequest: func() api.Sequenced { return &api.TransferObjectRequest{} },
		run: func(tx *ledger.Tx, req api.Sequenced) (interfaces.Address, error) {
			r := req.(*api.TransferObjectRequest)
			return r.Object, ledger.TransferObject(tx, r.Object, r.Recipient)
		},
	},
}
