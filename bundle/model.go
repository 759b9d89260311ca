package bundle

import (
	"fmt"

	"lula/property"

	"github.com/google/uuid"
)

// AssociationInput marks an action that consumed the object as its input.
const AssociationInput = "input"

// ActionContextEntry is one action that touched an object: the action name
// and how the object was associated with it.
type ActionContextEntry struct {
	ActionName      string `json:"action_name"`
	AssociationType string `json:"association_type"`
}

type Object struct {
	ID         string        `json:"id"`
	TypeTag    string        `json:"type"`
	Properties property.Tree `json:"properties"`
}

// NewObject builds a replacement object around a pruned property tree. A
// fresh ID keeps derived indicator objects distinct from the observed ones
// they were cut from.
func NewObject(typeTag string, properties property.Tree) *Object {
	return &Object{
		ID:         fmt.Sprintf("lula:object-%s", uuid.New()),
		TypeTag:    typeTag,
		Properties: properties,
	}
}

// ObjectHistoryEntry couples one observed object with the history of actions
// that operated on it. The pipeline may replace Object; the entry itself
// belongs to the caller.
type ObjectHistoryEntry struct {
	Object  *Object              `json:"object"`
	Actions []ActionContextEntry `json:"action_context"`
}

// ActionContext returns the (action name, association type) pairs in
// observation order.
func (e *ObjectHistoryEntry) ActionContext() []ActionContextEntry {
	return e.Actions
}
