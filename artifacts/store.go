package artifacts

import (
	"fmt"

	"github.com/ruteri/canary-registry/interfaces"
	"github.com/ruteri/canary-registry/ledger"
	"github.com/ruteri/canary-registry/registry"
)

var module = ledger.NewModule("artifacts")

// RecordType is the ledger type tag of artifact records.
var RecordType = module.Type("Record")

// Record is the shared object stored at a derived address.
type Record struct {
	ID                 Address            `json:"id"`
	RegistryID         Address            `json:"registry_id"`
	RecordLocator      interfaces.Locator `json:"record_locator"`
	ExplanationLocator interfaces.Locator `json:"explanation_locator"`
	ScopeID            Address            `json:"scope_id"`
	Namespace          string             `json:"namespace"`
	CreatedAt          uint64             `json:"created_at"`
	CreatedBy          Address            `json:"created_by"`
}

// Event names, emitted as "artifacts::<name>".
const (
	EventBlobStored  = "BlobStored"
	EventBlobUpdated = "BlobUpdated"
	EventBlobDeleted = "BlobDeleted"
)

// BlobEvent is the payload of every artifact event.
type BlobEvent struct {
	RecordID   Address `json:"record_id"`
	RegistryID Address `json:"registry_id"`
	Namespace  string  `json:"namespace"`
	ScopeID    Address `json:"scope_id"`
}

func (r *Record) event() BlobEvent {
	return BlobEvent{RecordID: r.ID, RegistryID: r.RegistryID, Namespace: r.Namespace, ScopeID: r.ScopeID}
}

// StoreBlob creates the record for (namespace, scopeID) under registryID.
// The sender must hold an AdminCap bound to the registry. If a record
// already lives at the derived address the call fails with
// ErrDerivedObjectAlreadyExists.
func StoreBlob(tx *ledger.Tx, registryID, adminCapID Address, namespace string, recordLoc, explanationLoc interfaces.Locator, scopeID Address) (*Record, error) {
	if _, _, err := registry.Authorize(tx, registryID, adminCapID); err != nil {
		return nil, err
	}

	id, err := tx.ClaimDerived(registryID, NewDerivationKey(namespace, scopeID).Bytes())
	if err != nil {
		return nil, err
	}

	rec := &Record{
		ID:                 id,
		RegistryID:         registryID,
		RecordLocator:      recordLoc,
		ExplanationLocator: explanationLoc,
		ScopeID:            scopeID,
		Namespace:          namespace,
		CreatedAt:          tx.Timestamp(),
		CreatedBy:          tx.Sender(),
	}
	if err := tx.Create(module, id, "Record", ledger.Shared(), rec); err != nil {
		return nil, err
	}
	return rec, tx.Emit(module, EventBlobStored, rec.event())
}

// UpdateBlob replaces the locators of an existing record in place and stamps
// it with the sender and the transaction time.
func UpdateBlob(tx *ledger.Tx, registryID, adminCapID, recordID Address, recordLoc, explanationLoc interfaces.Locator) (*Record, error) {
	rec, err := loadForAdmin(tx, registryID, adminCapID, recordID)
	if err != nil {
		return nil, err
	}

	rec.RecordLocator = recordLoc
	rec.ExplanationLocator = explanationLoc
	rec.CreatedAt = tx.Timestamp()
	rec.CreatedBy = tx.Sender()
	if err := tx.Update(module, recordID, rec); err != nil {
		return nil, err
	}
	return rec, tx.Emit(module, EventBlobUpdated, rec.event())
}

// DeleteArtifact destroys a record. Its address can host a new record later.
func DeleteArtifact(tx *ledger.Tx, registryID, adminCapID, recordID Address) error {
	rec, err := loadForAdmin(tx, registryID, adminCapID, recordID)
	if err != nil {
		return err
	}
	if err := tx.Delete(module, recordID); err != nil {
		return err
	}
	return tx.Emit(module, EventBlobDeleted, rec.event())
}

func loadForAdmin(tx *ledger.Tx, registryID, adminCapID, recordID Address) (*Record, error) {
	if _, _, err := registry.Authorize(tx, registryID, adminCapID); err != nil {
		return nil, err
	}
	rec, err := Get(tx, recordID)
	if err != nil {
		return nil, err
	}
	if rec.RegistryID != registryID {
		return nil, fmt.Errorf("%w: record %s belongs to registry %s", interfaces.ErrInvalidCapability, recordID, rec.RegistryID)
	}
	return rec, nil
}

// Get reads the record stored at recordID.
func Get(r ledger.Reader, recordID Address) (*Record, error) {
	var rec Record
	if _, err := r.Load(recordID, RecordType, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Exists reports whether a record for (namespace, scopeID) is live.
func Exists(v *ledger.View, registryID Address, namespace string, scopeID Address) bool {
	return v.Exists(DeriveAddress(registryID, namespace, scopeID))
}

// Lookup reads the record for (namespace, scopeID) without an index.
func Lookup(v *ledger.View, registryID Address, namespace string, scopeID Address) (*Record, error) {
	return Get(v, DeriveAddress(registryID, namespace, scopeID))
}
