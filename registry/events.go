package registry

// Event names emitted by the registry entry operations. The full event type
// on the ledger is "registry::<name>".
const (
	EventMemberJoined  = "MemberJoined"
	EventMemberRemoved = "MemberRemoved"
	EventFeeUpdated    = "FeeUpdated"
	EventWithdrawn     = "Withdrawn"
)

type MemberJoined struct {
	RegistryID Address `json:"registry_id"`
	Member     Address `json:"member"`
	Domain     string  `json:"domain"`
	Paid       uint64  `json:"paid"`
	JoinedAt   uint64  `json:"joined_at"`
}

type MemberRemoved struct {
	RegistryID Address `json:"registry_id"`
	Member     Address `json:"member"`
}

type FeeUpdated struct {
	RegistryID Address `json:"registry_id"`
	OldFee     uint64  `json:"old_fee"`
	NewFee     uint64  `json:"new_fee"`
}

type Withdrawn struct {
	RegistryID Address `json:"registry_id"`
	Amount     uint64  `json:"amount"`
	Recipient  Address `json:"recipient"`
	CoinID     Address `json:"coin_id"`
}
