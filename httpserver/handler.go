package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/canary-registry/api"
	"github.com/ruteri/canary-registry/artifacts"
	"github.com/ruteri/canary-registry/interfaces"
	"github.com/ruteri/canary-registry/ledger"
	"github.com/ruteri/canary-registry/registry"
)


var ErrUnknownOperation = errors.New("unknown operation")

// RequestError provides structured error information for HTTP responses.
// It includes both an HTTP status code and the underlying error.
type RequestError struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error returns the error message from the underlying error.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Handler executes signed transactions and answers queries against a ledger.
type Handler struct {
	ledger       *ledger.Ledger
	log          *slog.Logger
	maxBodyBytes int64
}

// NewHandler creates a handler serving l. maxBodyBytes <= 0 selects a 1MB limit.
func NewHandler(l *ledger.Ledger, log *slog.Logger, maxBodyBytes int64) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = api.DefaultMaxBodyBytes
	}
	return &Handler{
		ledger:       l,
		log:          log,
		maxBodyBytes: maxBodyBytes,
	}
}

// statusForReason maps abort reasons to HTTP status codes.
func statusForReason(reason string) int {
	switch reason {
	case "InsufficientPayment", "AlreadyMember", "NotMember", "InsufficientBalance",
		"DerivedObjectAlreadyExists", "ObjectExists", "BadSequence", "ValueOverflow":
		return http.StatusConflict
	case "NotAdmin", "InvalidCapability", "NotOwner", "SealedType", "Immutable":
		return http.StatusForbidden
	case "ObjectNotFound":
		return http.StatusNotFound
	case "TypeMismatch":
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, effects *ledger.Effects) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		writeJSON(w, reqErr.StatusCode, api.ErrorResponse{Error: http.StatusText(reqErr.StatusCode), Message: err.Error()})
		return
	}

	reason := interfaces.AbortReason(err)
	status := statusForReason(reason)
	if status == http.StatusInternalServerError {
		h.log.Error("Request failed", "err", err)
	}
	writeJSON(w, status, api.ErrorResponse{Error: reason, Message: err.Error(), Effects: effects})
}

func pathAddress(r *http.Request, param string) (interfaces.Address, error) {
	addr, err := interfaces.NewAddressFromHex(chi.URLParam(r, param))
	if err != nil {
		return interfaces.Address{}, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("invalid %s: %w", param, err)}
	}
	return addr, nil
}

// HandleTransaction executes a signed transaction.
//
// URL format: POST /api/tx/{op}
// Required headers:
//   - X-Canary-Signature: hex recoverable signature of method, path and body
//
// Response: api.TxResponse on commit, api.ErrorResponse with the abort
// reason otherwise.
func (h *Handler) HandleTransaction(w http.ResponseWriter, r *http.Request) {
	opName := chi.URLParam(r, "op")
	op, ok := operations[opName]
	if !ok {
		h.writeError(w, &RequestError{StatusCode: http.StatusNotFound, Err: fmt.Errorf("%w: %q", ErrUnknownOperation, opName)}, nil)
		return
	}

	sender, body, err := h.authenticate(w, r)
	if err != nil {
		h.writeError(w, err, nil)
		return
	}

	req := op.newRequest()
	if err := json.Unmarshal(body, req); err != nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("invalid request body: %w", err)}, nil)
		return
	}

	var result interfaces.Address
	effects, err := h.ledger.ExecuteSequenced(r.Context(), sender, req.SequenceNumber(), func(tx *ledger.Tx) error {
		var err error
		result, err = op.run(tx, req)
		return err
	})
	if err != nil {
		h.log.Info("Transaction rejected",
			"op", opName,
			"sender", sender.String(),
			"reason", interfaces.AbortReason(err),
			"err", err)
		h.writeError(w, err, effects)
		return
	}

	h.log.Info("Transaction committed",
		"op", opName,
		"sender", sender.String(),
		"digest", effects.Digest.String(),
		"checkpoint", effects.Checkpoint)
	writeJSON(w, http.StatusOK, api.TxResponse{Effects: effects, Result: result})
}

// HandleRegistryInfo answers GET /api/registry/{id}.
func (h *Handler) HandleRegistryInfo(w http.ResponseWriter, r *http.Request) {
	registryID, err := pathAddress(r, "id")
	if err != nil {
		h.writeError(w, err, nil)
		return
	}

	var info registry.Info
	err = h.ledger.View(r.Context(), func(v *ledger.View) error {
		info, err = registry.GetInfo(v, registryID)
		return err
	})
	if err != nil {
		h.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// HandleMembers answers GET /api/registry/{id}/members.
func (h *Handler) HandleMembers(w http.ResponseWriter, r *http.Request) {
	registryID, err := pathAddress(r, "id")
	if err != nil {
		h.writeError(w, err, nil)
		return
	}

	var members []registry.Member
	err = h.ledger.View(r.Context(), func(v *ledger.View) error {
		members, err = registry.GetAllMembers(v, registryID)
		return err
	})
	if err != nil {
		h.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// HandleMember answers GET /api/registry/{id}/members/{addr}. Non-members
// are reported with is_member=false rather than an error.
func (h *Handler) HandleMember(w http.ResponseWriter, r *http.Request) {
	registryID, err := pathAddress(r, "id")
	if err != nil {
		h.writeError(w, err, nil)
		return
	}
	member, err := pathAddress(r, "addr")
	if err != nil {
		h.writeError(w, err, nil)
		return
	}

	resp := api.MemberResponse{Member: member}
	err = h.ledger.View(r.Context(), func(v *ledger.View) error {
		reg, err := registry.Load(v, registryID)
		if err != nil {
			return err
		}
		if info, err := reg.MemberInfo(member); err == nil {
			resp.IsMember = true
			resp.Info = &info
		}
		return nil
	})
	if err != nil {
		h.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func artifactKey(r *http.Request) (interfaces.Address, string, interfaces.Address, error) {
	registryID, err := pathAddress(r, "id")
	if err != nil {
		return interfaces.Address{}, "", interfaces.Address{}, err
	}
	namespace := r.URL.Query().Get("namespace")
	if namespace == "" {
		return interfaces.Address{}, "", interfaces.Address{}, &RequestError{StatusCode: http.StatusBadRequest, Err: errors.New("missing namespace")}
	}
	scopeID, err := interfaces.NewAddressFromHex(r.URL.Query().Get("scope"))
	if err != nil {
		return interfaces.Address{}, "", interfaces.Address{}, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("invalid scope: %w", err)}
	}
	return registryID, namespace, scopeID, nil
}

// HandleDeriveArtifact answers GET /api/registry/{id}/artifacts/derive.
func (h *Handler) HandleDeriveArtifact(w http.ResponseWriter, r *http.Request) {
	registryID, namespace, scopeID, err := artifactKey(r)
	if err != nil {
		h.writeError(w, err, nil)
		return
	}

	resp := api.DeriveResponse{Address: artifacts.DeriveAddress(registryID, namespace, scopeID)}
	err = h.ledger.View(r.Context(), func(v *ledger.View) error {
		resp.Exists = v.Exists(resp.Address)
		return nil
	})
	if err != nil {
		h.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleArtifactExists answers GET /api/registry/{id}/artifacts/exists.
func (h *Handler) HandleArtifactExists(w http.ResponseWriter, r *http.Request) {
	registryID, namespace, scopeID, err := artifactKey(r)
	if err != nil {
		h.writeError(w, err, nil)
		return
	}

	var resp api.ExistsResponse
	err = h.ledger.View(r.Context(), func(v *ledger.View) error {
		resp.Exists = artifacts.Exists(v, registryID, namespace, scopeID)
		return nil
	})
	if err != nil {
		h.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleObject answers GET /api/objects/{id}.
func (h *Handler) HandleObject(w http.ResponseWriter, r *http.Request) {
	id, err := pathAddress(r, "id")
	if err != nil {
		h.writeError(w, err, nil)
		return
	}

	var obj ledger.Object
	err = h.ledger.View(r.Context(), func(v *ledger.View) error {
		obj, err = v.Get(id)
		return err
	})
	if err != nil {
		h.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

// HandleAccount answers GET /api/accounts/{addr}.
func (h *Handler) HandleAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "addr")
	if err != nil {
		h.writeError(w, err, nil)
		return
	}

	resp := api.AccountResponse{Address: addr, Sequence: h.ledger.Sequence(addr)}
	err = h.ledger.View(r.Context(), func(v *ledger.View) error {
		resp.Objects = v.OwnedBy(addr)
		resp.Balance, _, err = ledger.CoinBalance(v, addr)
		return err
	})
	if err != nil {
		h.writeError(w, err, nil)
		return
	}
	if resp.Objects == nil {
		resp.Objects = []ledger.Object{}
	}
	writeJSON(w, http.StatusOK, resp)
}
