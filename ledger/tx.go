package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/ruteri/canary-registry/interfaces"
)

// Tx is the execution context of one transaction. Writes are buffered in an
// overlay and only reach the ledger when the transaction commits.
type Tx struct {
	l          *Ledger
	sender     Address
	sequence   uint64
	checkpoint uint64
	timestamp  uint64
	digest     Address

	idCounter uint64
	writes    map[Address]*Object // nil marks a deletion
	order     []Address
	events    []Event
}

func newTx(l *Ledger, sender Address, sequence, checkpoint, timestamp uint64) *Tx {
	return &Tx{
		l:          l,
		sender:     sender,
		sequence:   sequence,
		checkpoint: checkpoint,
		timestamp:  timestamp,
		digest:     transactionDigest(sender, sequence, checkpoint, timestamp),
		writes:     make(map[Address]*Object),
	}
}

// Sender returns the principal on whose behalf the transaction executes.
func (tx *Tx) Sender() Address { return tx.sender }

// Timestamp returns the transaction time in milliseconds. Timestamps never
// decrease across transactions.
func (tx *Tx) Timestamp() uint64 { return tx.timestamp }

// Digest identifies the transaction.
func (tx *Tx) Digest() Address { return tx.digest }

// FreshID returns a new unique object id.
func (tx *Tx) FreshID() Address {
	tx.idCounter++
	return freshID(tx.digest, tx.idCounter)
}

func (tx *Tx) lookup(id Address) (Object, bool) {
	if w, ok := tx.writes[id]; ok {
		if w == nil {
			return Object{}, false
		}
		return *w, true
	}
	obj, ok := tx.l.objects[id]
	return obj, ok
}

func (tx *Tx) stage(id Address, obj *Object) {
	if _, seen := tx.writes[id]; !seen {
		tx.order = append(tx.order, id)
	}
	tx.writes[id] = obj
}

// Get returns a copy of the object with the given id as seen by this
// transaction, including its own uncommitted writes.
func (tx *Tx) Get(id Address) (Object, error) {
	obj, ok := tx.lookup(id)
	if !ok {
		return Object{}, fmt.Errorf("%w: %s", interfaces.ErrObjectNotFound, id)
	}
	return obj.clone(), nil
}

// Load decodes an object of type typ into out. Objects owned by another
// principal cannot be used by this transaction.
func (tx *Tx) Load(id Address, typ string, out any) (Object, error) {
	obj, err := tx.Get(id)
	if err != nil {
		return Object{}, err
	}
	if err := tx.checkAccess(obj); err != nil {
		return Object{}, err
	}
	return obj, decodeObject(obj, typ, out)
}

func (tx *Tx) checkAccess(obj Object) error {
	if obj.Owner.Kind == OwnerKindAddress && obj.Owner.Address != tx.sender {
		return fmt.Errorf("%w: %s belongs to %s", interfaces.ErrNotOwner, obj.ID, obj.Owner.Address)
	}
	return nil
}

func (tx *Tx) checkMutable(m *Module, obj Object) error {
	if !m.owns(obj.Type) {
		return fmt.Errorf("%w: %s cannot modify %s", interfaces.ErrSealedType, m.name, obj.Type)
	}
	if obj.Owner.Kind == OwnerKindImmutable {
		return fmt.Errorf("%w: %s", interfaces.ErrImmutable, obj.ID)
	}
	return tx.checkAccess(obj)
}

// Create stores a new object of type m.Type(name) at id.
func (tx *Tx) Create(m *Module, id Address, name string, owner Owner, value any) error {
	if id.IsZero() {
		return fmt.Errorf("%w: zero id", interfaces.ErrObjectExists)
	}
	if _, exists := tx.lookup(id); exists {
		return fmt.Errorf("%w: %s", interfaces.ErrObjectExists, id)
	}

	contents, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", m.Type(name), err)
	}

	tx.stage(id, &Object{
		ID:       id,
		Type:     m.Type(name),
		Owner:    owner,
		Version:  tx.checkpoint,
		Contents: contents,
	})
	return nil
}

// Update replaces the contents of an existing object defined by m.
func (tx *Tx) Update(m *Module, id Address, value any) error {
	obj, ok := tx.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", interfaces.ErrObjectNotFound, id)
	}
	if err := tx.checkMutable(m, obj); err != nil {
		return err
	}

	contents, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", obj.Type, err)
	}

	obj.Contents = contents
	obj.Version = tx.checkpoint
	tx.stage(id, &obj)
	return nil
}

// Delete destroys an object defined by m. A later transaction may create a
// new object at the same id.
func (tx *Tx) Delete(m *Module, id Address) error {
	obj, ok := tx.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", interfaces.ErrObjectNotFound, id)
	}
	if err := tx.checkMutable(m, obj); err != nil {
		return err
	}

	tx.stage(id, nil)
	return nil
}

// Transfer hands an object owned by the sender to another principal.
// Shared and immutable objects cannot change hands.
func (tx *Tx) Transfer(id Address, to Address) error {
	obj, ok := tx.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", interfaces.ErrObjectNotFound, id)
	}
	if !obj.Owner.IsOwnedBy(tx.sender) {
		return fmt.Errorf("%w: %s is %s", interfaces.ErrNotOwner, id, obj.Owner)
	}

	obj.Owner = AddressOwner(to)
	obj.Version = tx.checkpoint
	tx.stage(id, &obj)
	return nil
}

// Emit records an event of type m.Type(name).
func (tx *Tx) Emit(m *Module, name string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", m.Type(name), err)
	}
	tx.events = append(tx.events, Event{Type: m.Type(name), Sender: tx.sender, Payload: raw})
	return nil
}

// ClaimDerived returns the address derived from parent under key after
// checking that no live object occupies it. The claim and the creation that
// follows happen inside the same transaction, so concurrent claims of the
// same address are linearized by the ledger and exactly one succeeds.
func (tx *Tx) ClaimDerived(parent Address, key []byte) (Address, error) {
	if _, ok := tx.lookup(parent); !ok {
		return Address{}, fmt.Errorf("%w: parent %s", interfaces.ErrObjectNotFound, parent)
	}

	id := DeriveID(parent, key)
	if _, exists := tx.lookup(id); exists {
		return Address{}, fmt.Errorf("%w: %s", interfaces.ErrDerivedObjectAlreadyExists, id)
	}
	return id, nil
}

func (tx *Tx) commit(effects *Effects) {
	for _, id := range tx.order {
		w := tx.writes[id]
		_, existed := tx.l.objects[id]
		switch {
		case w == nil && existed:
			delete(tx.l.objects, id)
			effects.Deleted = append(effects.Deleted, id)
		case w == nil:
			// created and destroyed within the transaction
		case existed:
			tx.l.objects[id] = *w
			effects.Mutated = append(effects.Mutated, id)
		default:
			tx.l.objects[id] = *w
			effects.Created = append(effects.Created, id)
		}
	}
	effects.Events = append(effects.Events, tx.events...)
}
