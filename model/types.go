// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"os"
)

// Header is a single static header attached to a Subscription's outbound
// requests. Exactly one of Value or ValueFromEnv must be set; the latter is
// resolved against the delivery process's environment at dispatch time so
// that secrets need not be stored alongside the Subscription.
type Header struct {
	Key          string  `json:"key"`
	Value        *string `json:"value,omitempty"`
	ValueFromEnv *string `json:"valueFromEnv,omitempty"`
}

// Headers is a JSON-encoded column type shared by Subscription storage.
type Headers []Header

func (h Headers) Value() (driver.Value, error) {
	return json.Marshal(h)
}

func (h *Headers) Scan(databaseValue interface{}) error {
	switch value := databaseValue.(type) {
	case string: // sqlite's text
		return json.Unmarshal([]byte(value), h)
	case []byte: // postgres jsonb
		return json.Unmarshal(value, h)
	case nil:
		return nil
	default:
		return fmt.Errorf("cannot scan type %T into Headers", databaseValue)
	}
}

func (h Headers) Validate() error {
	keys := make(map[string]struct{}, len(h))
	for _, header := range h {
		if _, ok := keys[header.Key]; ok {
			return fmt.Errorf("header %s is duplicated", header.Key)
		}
		keys[header.Key] = struct{}{}
		if header.Value == nil && header.ValueFromEnv == nil {
			return fmt.Errorf("header %s must have either a value or a valueFromEnv", header.Key)
		}
		if header.Value != nil && header.ValueFromEnv != nil {
			return fmt.Errorf("header %s cannot have both a value and a valueFromEnv", header.Key)
		}
	}
	return nil
}

// Resolve returns the header set as a plain map, substituting environment
// variables for any ValueFromEnv entries.
func (h Headers) Resolve() map[string]string {
	headers := make(map[string]string, len(h))
	for _, header := range h {
		if header.Value != nil {
			headers[header.Key] = *header.Value
		} else if header.ValueFromEnv != nil {
			headers[header.Key] = os.Getenv(*header.ValueFromEnv)
		}
	}
	return headers
}
