package api

import (
	"context"

	"github.com/ruteri/canary-registry/interfaces"
	"github.com/ruteri/canary-registry/ledger"
	"github.com/ruteri/canary-registry/registry"
)

// SignatureHeader carries the hex recoverable signature of a transaction
// request. The signer is the transaction sender.
const SignatureHeader = "X-Canary-Signature"

// Transaction operations, addressed as POST /api/tx/{op}.
const (
	OpJoin           = "join"
	OpRemoveMember   = "remove_member"
	OpWithdraw       = "withdraw"
	OpUpdateFee      = "update_fee"
	OpStoreBlob      = "store_blob"
	OpUpdateBlob     = "update_blob"
	OpDeleteArtifact = "delete_artifact"
	OpSplitCoin      = "split_coin"
	OpMergeCoins     = "merge_coins"
	OpTransferObject = "transfer_object"
)

// TxHeader is embedded in every transaction request. Sequence must equal the
// sender's next sequence number.
type TxHeader struct {
	Sequence uint64 `json:"sequence"`
}

// SetSequence lets clients fill the header of any request.
func (h *TxHeader) SetSequence(seq uint64) { h.Sequence = seq }

// SequenceNumber returns the header sequence.
func (h *TxHeader) SequenceNumber() uint64 { return h.Sequence }

// Sequenced is implemented by every transaction request.
type Sequenced interface {
	SetSequence(seq uint64)
	SequenceNumber() uint64
}

type JoinRequest struct {
	TxHeader
	RegistryID  interfaces.Address `json:"registry_id"`
	PaymentCoin interfaces.Address `json:"payment_coin"`
	Domain      string             `json:"domain"`
}

type RemoveMemberRequest struct {
	TxHeader
	RegistryID interfaces.Address `json:"registry_id"`
	AdminCap   interfaces.Address `json:"admin_cap"`
	Member     interfaces.Address `json:"member"`
}

type WithdrawRequest struct {
	TxHeader
	RegistryID interfaces.Address `json:"registry_id"`
	AdminCap   interfaces.Address `json:"admin_cap"`
	Amount     uint64             `json:"amount"`
}

type UpdateFeeRequest struct {
	TxHeader
	RegistryID interfaces.Address `json:"registry_id"`
	AdminCap   interfaces.Address `json:"admin_cap"`
	Fee        uint64             `json:"fee"`
}

type StoreBlobRequest struct {
	TxHeader
	RegistryID         interfaces.Address `json:"registry_id"`
	AdminCap           interfaces.Address `json:"admin_cap"`
	Namespace          string             `json:"namespace"`
	RecordLocator      interfaces.Locator `json:"record_locator"`
	ExplanationLocator interfaces.Locator `json:"explanation_locator"`
	ScopeID            interfaces.Address `json:"scope_id"`
}

type UpdateBlobRequest struct {
	TxHeader
	RegistryID         interfaces.Address `json:"registry_id"`
	AdminCap           interfaces.Address `json:"admin_cap"`
	RecordID           interfaces.Address `json:"record_id"`
	RecordLocator      interfaces.Locator `json:"record_locator"`
	ExplanationLocator interfaces.Locator `json:"explanation_locator"`
}

type DeleteArtifactRequest struct {
	TxHeader
	RegistryID interfaces.Address `json:"registry_id"`
	AdminCap   interfaces.Address `json:"admin_cap"`
	RecordID   interfaces.Address `json:"record_id"`
}

type SplitCoinRequest struct {
	TxHeader
	Coin   interfaces.Address `json:"coin"`
	Amount uint64             `json:"amount"`
}

type MergeCoinsRequest struct {
	TxHeader
	Primary interfaces.Address   `json:"primary"`
	Others  []interfaces.Address `json:"others"`
}

type TransferObjectRequest struct {
	TxHeader
	Object    interfaces.Address `json:"object"`
	Recipient interfaces.Address `json:"recipient"`
}

// TxResponse is returned for committed transactions. Result names the main
// object the operation produced, if any: the MembershipCap of a join, the
// coin of a withdraw or split, the record of a store.
type TxResponse struct {
	Effects *ledger.Effects    `json:"effects"`
	Result  interfaces.Address `json:"result"`
}

// ErrorResponse is the body of every non-2xx response. Aborted transactions
// also carry their effects.
type ErrorResponse struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Effects *ledger.Effects `json:"effects,omitempty"`
}

type MemberResponse struct {
	Member   interfaces.Address   `json:"member"`
	IsMember bool                 `json:"is_member"`
	Info     *registry.MemberInfo `json:"info,omitempty"`
}

type DeriveResponse struct {
	Address interfaces.Address `json:"address"`
	Exists  bool               `json:"exists"`
}

type ExistsResponse struct {
	Exists bool `json:"exists"`
}

type AccountResponse struct {
	Address  interfaces.Address `json:"address"`
	Sequence uint64             `json:"sequence"`
	Balance  uint64             `json:"balance"`
	Objects  []ledger.Object    `json:"objects"`
}

// LedgerAPI is the client side of the ledger HTTP service.
type LedgerAPI interface {
	Join(ctx context.Context, req *JoinRequest) (*TxResponse, error)
	RemoveMember(ctx context.Context, req *RemoveMemberRequest) (*TxResponse, error)
	Withdraw(ctx context.Context, req *WithdrawRequest) (*TxResponse, error)
	UpdateFee(ctx context.Context, req *UpdateFeeRequest) (*TxResponse, error)
	StoreBlob(ctx context.Context, req *StoreBlobRequest) (*TxResponse, error)
	UpdateBlob(ctx context.Context, req *UpdateBlobRequest) (*TxResponse, error)
	DeleteArtifact(ctx context.Context, req *DeleteArtifactRequest) (*TxResponse, error)
	SplitCoin(ctx context.Context, req *SplitCoinRequest) (*TxResponse, error)
	MergeCoins(ctx context.Context, req *MergeCoinsRequest) (*TxResponse, error)
	TransferObject(ctx context.Context, req *TransferObjectRequest) (*TxResponse, error)

	RegistryInfo(ctx context.Context, registryID interfaces.Address) (*registry.Info, error)
	Members(ctx context.Context, registryID interfaces.Address) ([]registry.Member, error)
	Member(ctx context.Context, registryID, member interfaces.Address) (*MemberResponse, error)
	DeriveArtifact(ctx context.Context, registryID interfaces.Address, namespace string, scopeID interfaces.Address) (*DeriveResponse, error)
	ArtifactExists(ctx context.Context, registryID interfaces.Address, namespace string, scopeID interfaces.Address) (bool, error)
	Object(ctx context.Context, id interfaces.Address) (*ledger.Object, error)
	Account(ctx context.Context, addr interfaces.Address) (*AccountResponse, error)
}
