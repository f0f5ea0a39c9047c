package clients

import (
	"context"

	"github.com/ruteri/canary-registry/api"
	"github.com/ruteri/canary-registry/interfaces"
	"github.com/ruteri/canary-registry/ledger"
	"github.com/ruteri/canary-registry/registry"
	"github.com/stretchr/testify/mock"
)

// MockLedgerAPI implements api.LedgerAPI for testing.
type MockLedgerAPI struct {
	mock.Mock
}

var _ api.LedgerAPI = (*MockLedgerAPI)(nil)

func txResponse(args mock.Arguments) (*api.TxResponse, error) {
	resp, _ := args.Get(0).(*api.TxResponse)
	return resp, args.Error(1)
}

func (m *MockLedgerAPI) Join(ctx context.Context, req *api.JoinRequest) (*api.TxResponse, error) {
	return txResponse(m.Called(ctx, req))
}

func (m *MockLedgerAPI) RemoveMember(ctx context.Context, req *api.RemoveMemberRequest) (*api.TxResponse, error) {
	return txResponse(m.Called(ctx, req))
}

func (m *MockLedgerAPI) Withdraw(ctx context.Context, req *api.WithdrawRequest) (*api.TxResponse, error) {
	return txResponse(m.Called(ctx, req))
}

func (m *MockLedgerAPI) UpdateFee(ctx context.Context, req *api.UpdateFeeRequest) (*api.TxResponse, error) {
	return txResponse(m.Called(ctx, req))
}

func (m *MockLedgerAPI) StoreBlob(ctx context.Context, req *api.StoreBlobRequest) (*api.TxResponse, error) {
	return txResponse(m.Called(ctx, req))
}

func (m *MockLedgerAPI) UpdateBlob(ctx context.Context, req *api.UpdateBlobRequest) (*api.TxResponse, error) {
	return txResponse(m.Called(ctx, req))
}

func (m *MockLedgerAPI) DeleteArtifact(ctx context.Context, req *api.DeleteArtifactRequest) (*api.TxResponse, error) {
	return txResponse(m.Called(ctx, req))
}

func (m *MockLedgerAPI) SplitCoin(ctx context.Context, req *api.SplitCoinRequest) (*api.TxResponse, error) {
	return txResponse(m.Called(ctx, req))
}

func (m *MockLedgerAPI) MergeCoins(ctx context.Context, req *api.MergeCoinsRequest) (*api.TxResponse, error) {
	return txResponse(m.Called(ctx, req))
}

func (m *MockLedgerAPI) TransferObject(ctx context.Context, req *api.TransferObjectRequest) (*api.TxResponse, error) {
	return txResponse(m.Called(ctx, req))
}

func (m *MockLedgerAPI) RegistryInfo(ctx context.Context, registryID interfaces.Address) (*registry.Info, error) {
	args := m.Called(ctx, registryID)
	info, _ := args.Get(0).(*registry.Info)
	return info, args.Error(1)
}

func (m *MockLedgerAPI) Members(ctx context.Context, registryID interfaces.Address) ([]registry.Member, error) {
	args := m.Called(ctx, registryID)
	members, _ := args.Get(0).([]registry.Member)
	return members, args.Error(1)
}

func (m *MockLedgerAPI) Member(ctx context.Context, registryID, member interfaces.Address) (*api.MemberResponse, error) {
	args := m.Called(ctx, registryID, member)
	resp, _ := args.Get(0).(*api.MemberResponse)
	return resp, args.Error(1)
}

func (m *MockLedgerAPI) DeriveArtifact(ctx context.Context, registryID interfaces.Address, namespace string, scopeID interfaces.Address) (*api.DeriveResponse, error) {
	args := m.Called(ctx, registryID, namespace, scopeID)
	resp, _ := args.Get(0).(*api.DeriveResponse)
	return resp, args.Error(1)
}

func (m *MockLedgerAPI) ArtifactExists(ctx context.Context, registryID interfaces.Address, namespace string, scopeID interfaces.Address) (bool, error) {
	args := m.Called(ctx, registryID, namespace, scopeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerAPI) Object(ctx context.Context, id interfaces.Address) (*ledger.Object, error) {
	args := m.Called(ctx, id)
	obj, _ := args.Get(0).(*ledger.Object)
	return obj, args.Error(1)
}

func (m *MockLedgerAPI) Account(ctx context.Context, addr interfaces.Address) (*api.AccountResponse, error) {
	args := m.Called(ctx, addr)
	resp, _ := args.Get(0).(*api.AccountResponse)
	return resp, args.Error(1)
}
