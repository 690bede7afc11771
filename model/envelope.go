// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

import (
	"encoding/json"
	"io"
)

// Transaction is one document-change transaction as supplied by the host
// platform to the Trigger's translate operation.
type Transaction struct {
	Kind        TransactionKind
	ObjectClass ObjectClass
	ObjectID    string
	ModifiedBy  string
	SpaceID     string

	// Object carries the post-update state for update transactions, the
	// created attributes for create transactions, or the removed state (if
	// the host exposes it, else nil) for delete transactions.
	Object interface{}

	// Operations carries the set of field changes and is present only for
	// update transactions.
	Operations interface{}
}

// EnvelopeEvent is the "event" section of the canonical envelope. Field
// order is part of the wire contract: signatures are computed over the
// exact serialized bytes, so this order must never change.
type EnvelopeEvent struct {
	ID          string      `json:"id"`
	Timestamp   int64       `json:"timestamp"`
	Type        EventType   `json:"type"`
	Action      string      `json:"action"`
	ObjectID    string      `json:"objectId"`
	ObjectClass ObjectClass `json:"objectClass"`
}

// EnvelopeData is the "data" section of the canonical envelope.
type EnvelopeData struct {
	Action     string      `json:"action"`
	Object     interface{} `json:"object"`
	Operations interface{} `json:"operations,omitempty"`
}

// Envelope is the canonical JSON body delivered to a webhook endpoint. Its
// top-level key order (event, workspace, modifiedBy, data) is fixed so that
// HMAC signatures are deterministic for the same logical content.
type Envelope struct {
	Event      EnvelopeEvent `json:"event"`
	Workspace  string        `json:"workspace"`
	ModifiedBy string        `json:"modifiedBy"`
	Data       EnvelopeData  `json:"data"`
}

// NewEnvelope builds the canonical envelope for one Event/Transaction pair.
func NewEnvelope(eventID string, timestamp int64, eventType EventType, workspace string, tx Transaction) Envelope {
	action := tx.Kind.Action()
	return Envelope{
		Event: EnvelopeEvent{
			ID:          eventID,
			Timestamp:   timestamp,
			Type:        eventType,
			Action:      action,
			ObjectID:    tx.ObjectID,
			ObjectClass: tx.ObjectClass,
		},
		Workspace:  workspace,
		ModifiedBy: tx.ModifiedBy,
		Data: EnvelopeData{
			Action:     action,
			Object:     tx.Object,
			Operations: tx.Operations,
		},
	}
}

// Marshal serializes the envelope to its canonical, signature-stable byte
// representation. encoding/json preserves struct field declaration order,
// which is what keeps the top-level and nested key order fixed.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// NewEnvelopeFromReader decodes a previously-serialized canonical envelope,
// used by inspection tooling that reads back a stored Event's Payload.
func NewEnvelopeFromReader(reader io.Reader) (*Envelope, error) {
	var envelope Envelope
	if err := json.NewDecoder(reader).Decode(&envelope); err != nil && err != io.EOF {
		return nil, err
	}
	return &envelope, nil
}
