package clients

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ruteri/canary-registry/api"
	"github.com/ruteri/canary-registry/cryptoutils"
	"github.com/ruteri/canary-registry/interfaces"
	"github.com/ruteri/canary-registry/ledger"
	"github.com/ruteri/canary-registry/registry"
)

var ErrNoSigningKey = errors.New("client has no signing key")

// APIError is a non-2xx response of the ledger service.
type APIError struct {
	StatusCode int
	Reason     string
	Message    string
	Effects    *ledger.Effects
}

func (e *APIError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("ledger returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ledger returned %d (%s): %s", e.StatusCode, e.Reason, e.Message)
}

// Unwrap exposes the sentinel error of the abort reason, if known.
func (e *APIError) Unwrap() error {
	return interfaces.ErrorFromReason(e.Reason)
}

// LedgerClient talks to the ledger HTTP service.
type LedgerClient struct {
	// ServerAddr is the base URL of the ledger server
	ServerAddr string

	// Key signs transaction requests. Queries work without it.
	Key *ecdsa.PrivateKey

	// AutoSequence fetches the sender sequence before every transaction
	// that does not set one.
	AutoSequence bool

	HTTPClient *http.Client
}

var _ api.LedgerAPI = (*LedgerClient)(nil)

func NewLedgerClient(serverAddr string, key *ecdsa.PrivateKey) *LedgerClient {
	return &LedgerClient{
		ServerAddr:   serverAddr,
		Key:          key,
		AutoSequence: true,
		HTTPClient:   http.DefaultClient,
	}
}

// Sender returns the principal of the signing key.
func (c *LedgerClient) Sender() (interfaces.Address, error) {
	if c.Key == nil {
		return interfaces.Address{}, ErrNoSigningKey
	}
	return cryptoutils.Principal(&c.Key.PublicKey), nil
}

func (c *LedgerClient) submit(ctx context.Context, op string, req api.Sequenced) (*api.TxResponse, error) {
	sender, err := c.Sender()
	if err != nil {
		return nil, err
	}

	if c.AutoSequence && req.SequenceNumber() == 0 {
		account, err := c.Account(ctx, sender)
		if err != nil {
			return nil, fmt.Errorf("fetch sequence: %w", err)
		}
		req.SetSequence(account.Sequence)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	path := "/api/tx/" + op
	sig, err := cryptoutils.SignRequest(c.Key, http.MethodPost, path, body)
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ServerAddr+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(api.SignatureHeader, hex.EncodeToString(sig))

	var resp api.TxResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *LedgerClient) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.ServerAddr + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(httpReq, out)
}

func (c *LedgerClient) do(httpReq *http.Request, out any) error {
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("could not request %s: %w", httpReq.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return &APIError{StatusCode: resp.StatusCode, Message: "unreadable error body"}
		}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			return &APIError{StatusCode: resp.StatusCode, Message: string(bodyBytes)}
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Reason:     errResp.Error,
			Message:    errResp.Message,
			Effects:    errResp.Effects,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse response: %w", err)
	}
	return nil
}

func (c *LedgerClient) Join(ctx context.Context, req *api.JoinRequest) (*api.TxResponse, error) {
	return c.submit(ctx, api.OpJoin, req)
}

func (c *LedgerClient) RemoveMember(ctx context.Context, req *api.RemoveMemberRequest) (*api.TxResponse, error) {
	return c.submit(ctx, api.OpRemoveMember, req)
}

func (c *LedgerClient) Withdraw(ctx context.Context, req *api.WithdrawRequest) (*api.TxResponse, error) {
	return c.submit(ctx, api.OpWithdraw, req)
}

func (c *LedgerClient) UpdateFee(ctx context.Context, req *api.UpdateFeeRequest) (*api.TxResponse, error) {
	return c.submit(ctx, api.OpUpdateFee, req)
}

func (c *LedgerClient) StoreBlob(ctx context.Context, req *api.StoreBlobRequest) (*api.TxResponse, error) {
	return c.submit(ctx, api.OpStoreBlob, req)
}

func (c *LedgerClient) UpdateBlob(ctx context.Context, req *api.UpdateBlobRequest) (*api.TxResponse, error) {
	return c.submit(ctx, api.OpUpdateBlob, req)
}

func (c *LedgerClient) DeleteArtifact(ctx context.Context, req *api.DeleteArtifactRequest) (*api.TxResponse, error) {
	return c.submit(ctx, api.OpDeleteArtifact, req)
}

func (c *LedgerClient) SplitCoin(ctx context.Context, req *api.SplitCoinRequest) (*api.TxResponse, error) {
	return c.submit(ctx, api.OpSplitCoin, req)
}

func (c *LedgerClient) MergeCoins(ctx context.Context, req *api.MergeCoinsRequest) (*api.TxResponse, error) {
	return c.submit(ctx, api.OpMergeCoins, req)
}

func (c *LedgerClient) TransferObject(ctx context.Context, req *api.TransferObjectRequest) (*api.TxResponse, error) {
	return c.submit(ctx, api.OpTransferObject, req)
}

func (c *LedgerClient) RegistryInfo(ctx context.Context, registryID interfaces.Address) (*registry.Info, error) {
	var info registry.Info
	if err := c.get(ctx, "/api/registry/"+registryID.String(), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *LedgerClient) Members(ctx context.Context, registryID interfaces.Address) ([]registry.Member, error) {
	var members []registry.Member
	if err := c.get(ctx, "/api/registry/"+registryID.String()+"/members", nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (c *LedgerClient) Member(ctx context.Context, registryID, member interfaces.Address) (*api.MemberResponse, error) {
	var resp api.MemberResponse
	if err := c.get(ctx, "/api/registry/"+registryID.String()+"/members/"+member.String(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func artifactQuery(namespace string, scopeID interfaces.Address) url.Values {
	return url.Values{"namespace": {namespace}, "scope": {scopeID.String()}}
}

func (c *LedgerClient) DeriveArtifact(ctx context.Context, registryID interfaces.Address, namespace string, scopeID interfaces.Address) (*api.DeriveResponse, error) {
	var resp api.DeriveResponse
	path := "/api/registry/" + registryID.String() + "/artifacts/derive"
	if err := c.get(ctx, path, artifactQuery(namespace, scopeID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *LedgerClient) ArtifactExists(ctx context.Context, registryID interfaces.Address, namespace string, scopeID interfaces.Address) (bool, error) {
	var resp api.ExistsResponse
	path := "/api/registry/" + registryID.String() + "/artifacts/exists"
	if err := c.get(ctx, path, artifactQuery(namespace, scopeID), &resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

func (c *LedgerClient) Object(ctx context.Context, id interfaces.Address) (*ledger.Object, error) {
	var obj ledger.Object
	if err := c.get(ctx, "/api/objects/"+id.String(), nil, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

func (c *LedgerClient) Account(ctx context.Context, addr interfaces.Address) (*api.AccountResponse, error) {
	var resp api.AccountResponse
	if err := c.get(ctx, "/api/accounts/"+addr.String(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
