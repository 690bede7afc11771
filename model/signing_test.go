// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignDeterministic(t *testing.T) {
	body := []byte(`{"hello":"world"}`)

	sig1 := Sign(body, "k")
	sig2 := Sign(body, "k")

	assert.Equal(t, sig1, sig2)
	assert.True(t, len(sig1) > len(SignaturePrefix))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"hello":"world"}`)
	sig := Sign(body, "k")

	assert.True(t, VerifySignature(body, sig, "k"))
	assert.False(t, VerifySignature(body, sig, "not-k"))
	assert.False(t, VerifySignature(body, "sha256=deadbeef", "k"))
}
