// Copyright (c) 2025 Andrzej Kurek
//
// This file is part of pelion-crypto.
//
// pelion-crypto is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact the author for commercial licensing options.

package operation

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

func TestMAC_SignMatchesVector(t *testing.T) {
	s, b := newTestEnv(t)

	// RFC 4231 test case 1.
	key := bytes.Repeat([]byte{0x0b}, 20)
	h := importKeyWithPolicy(t, s, types.KeyTypeHMAC, key,
		types.Policy{Usage: types.UsageSign, Algorithm: types.AlgorithmHMACSHA256})

	op := NewMAC(s, b)
	require.NoError(t, op.SetupSign(h, types.AlgorithmHMACSHA256))
	require.NoError(t, op.Update([]byte("Hi ")))
	require.NoError(t, op.Update([]byte("There")))

	mac, err := op.SignFinish()
	require.NoError(t, err)
	assert.Equal(t,
		mustHex(t, "b0344c61d8db38535ca8afceaf0bf12b881dc200c9833da726e9376c2e32cff7"),
		mac)
}

func TestMAC_CMACRoundTrip(t *testing.T) {
	s, b := newTestEnv(t)

	// NIST SP 800-38B example D.1, Mlen = 128.
	key := mustHex(t, "2b7e151628aed2a6abf7158809cf4f3c")
	msg := mustHex(t, "6bc1bee22e409f96e93d7e117393172a")
	h := importKeyWithPolicy(t, s, types.KeyTypeAES, key,
		types.Policy{Usage: types.UsageSign | types.UsageVerify, Algorithm: types.AlgorithmAESCMAC})

	op := NewMAC(s, b)
	require.NoError(t, op.SetupSign(h, types.AlgorithmAESCMAC))
	require.NoError(t, op.Update(msg))
	mac, err := op.SignFinish()
	require.NoError(t, err)
	assert.Equal(t, mustHex(t, "070a16b46b4d4144f79bdd9dd04a287c"), mac)

	vop := NewMAC(s, b)
	require.NoError(t, vop.SetupVerify(h, types.AlgorithmAESCMAC))
	require.NoError(t, vop.Update(msg))
	require.NoError(t, vop.VerifyFinish(mac))
}

func TestMAC_VerifyMismatch(t *testing.T) {
	s, b := newTestEnv(t)
	key := bytes.Repeat([]byte{0x0b}, 20)
	h := importKeyWithPolicy(t, s, types.KeyTypeHMAC, key,
		types.Policy{Usage: types.UsageVerify, Algorithm: types.AlgorithmHMACSHA256})

	op := NewMAC(s, b)
	require.NoError(t, op.SetupVerify(h, types.AlgorithmHMACSHA256))
	require.NoError(t, op.Update([]byte("Hi There")))

	bogus := make([]byte, 32)
	assert.ErrorIs(t, op.VerifyFinish(bogus), types.ErrInvalidSignature)
}

func TestMAC_PolicyGate(t *testing.T) {
	s, b := newTestEnv(t)
	key := bytes.Repeat([]byte{0x0b}, 20)

	verifyOnly := importKeyWithPolicy(t, s, types.KeyTypeHMAC, key,
		types.Policy{Usage: types.UsageVerify, Algorithm: types.AlgorithmHMACSHA256})
	op := NewMAC(s, b)
	assert.ErrorIs(t, op.SetupSign(verifyOnly, types.AlgorithmHMACSHA256), types.ErrNotPermitted)

	// A failed setup leaves the operation reusable.
	require.NoError(t, op.SetupVerify(verifyOnly, types.AlgorithmHMACSHA256))

	wrongAlg := importKeyWithPolicy(t, s, types.KeyTypeHMAC, key,
		types.Policy{Usage: types.UsageSign, Algorithm: types.AlgorithmHMACSHA512})
	op2 := NewMAC(s, b)
	assert.ErrorIs(t, op2.SetupSign(wrongAlg, types.AlgorithmHMACSHA256), types.ErrNotPermitted)
}

func TestMAC_WildcardPolicyPermitsConcreteSetup(t *testing.T) {
	s, b := newTestEnv(t)
	key := bytes.Repeat([]byte{0x0b}, 20)
	h := importKeyWithPolicy(t, s, types.KeyTypeHMAC, key,
		types.Policy{Usage: types.UsageSign, Algorithm: types.AlgorithmHMACAnyHash})

	op := NewMAC(s, b)
	require.NoError(t, op.SetupSign(h, types.AlgorithmHMACSHA384))
	_, err := op.SignFinish()
	require.NoError(t, err)
}

func TestMAC_WildcardAlgorithmRejected(t *testing.T) {
	s, b := newTestEnv(t)
	key := bytes.Repeat([]byte{0x0b}, 20)
	h := importKeyWithPolicy(t, s, types.KeyTypeHMAC, key,
		types.Policy{Usage: types.UsageSign, Algorithm: types.AlgorithmHMACAnyHash})

	op := NewMAC(s, b)
	assert.ErrorIs(t, op.SetupSign(h, types.AlgorithmHMACAnyHash), types.ErrInvalidArgument)
}

func TestMAC_RoleEnforcement(t *testing.T) {
	s, b := newTestEnv(t)
	key := bytes.Repeat([]byte{0x0b}, 20)
	h := importKeyWithPolicy(t, s, types.KeyTypeHMAC, key,
		types.Policy{Usage: types.UsageSign | types.UsageVerify, Algorithm: types.AlgorithmHMACSHA256})

	signer := NewMAC(s, b)
	require.NoError(t, signer.SetupSign(h, types.AlgorithmHMACSHA256))
	assert.ErrorIs(t, signer.VerifyFinish(make([]byte, 32)), types.ErrBadState)

	verifier := NewMAC(s, b)
	require.NoError(t, verifier.SetupVerify(h, types.AlgorithmHMACSHA256))
	_, err := verifier.SignFinish()
	assert.ErrorIs(t, err, types.ErrBadState)
}

func TestMAC_KeyDestroyedMidOperation(t *testing.T) {
	s, b := newTestEnv(t)
	key := bytes.Repeat([]byte{0x0b}, 20)
	h := importKeyWithPolicy(t, s, types.KeyTypeHMAC, key,
		types.Policy{Usage: types.UsageSign, Algorithm: types.AlgorithmHMACSHA256})

	op := NewMAC(s, b)
	require.NoError(t, op.SetupSign(h, types.AlgorithmHMACSHA256))
	require.NoError(t, op.Update([]byte("Hi ")))

	require.NoError(t, s.DestroyKey(h))

	assert.ErrorIs(t, op.Update([]byte("There")), types.ErrBadState)
	_, err := op.SignFinish()
	assert.ErrorIs(t, err, types.ErrBadState)

	require.NoError(t, op.Abort())
}

func TestMAC_Sequencing(t *testing.T) {
	s, b := newTestEnv(t)
	op := NewMAC(s, b)

	assert.ErrorIs(t, op.Update([]byte("x")), types.ErrBadState)
	_, err := op.SignFinish()
	assert.ErrorIs(t, err, types.ErrBadState)

	key := bytes.Repeat([]byte{0x0b}, 20)
	h := importKeyWithPolicy(t, s, types.KeyTypeHMAC, key,
		types.Policy{Usage: types.UsageSign, Algorithm: types.AlgorithmHMACSHA256})
	require.NoError(t, op.SetupSign(h, types.AlgorithmHMACSHA256))
	assert.ErrorIs(t, op.SetupSign(h, types.AlgorithmHMACSHA256), types.ErrBadState)

	_, err = op.SignFinish()
	require.NoError(t, err)
	assert.ErrorIs(t, op.Update([]byte("x")), types.ErrBadState)
}

func TestMAC_SetupRejectsNonMAC(t *testing.T) {
	s, b := newTestEnv(t)
	key := bytes.Repeat([]byte{0x0b}, 20)
	h := importKeyWithPolicy(t, s, types.KeyTypeHMAC, key,
		types.Policy{Usage: types.UsageSign, Algorithm: types.AlgorithmHMACSHA256})

	op := NewMAC(s, b)
	assert.ErrorIs(t, op.SetupSign(h, types.AlgorithmSHA256), types.ErrNotSupported)
}

func TestMAC_AbortReleasesTheKey(t *testing.T) {
	s, b := newTestEnv(t)
	key := bytes.Repeat([]byte{0x0b}, 20)
	h := importKeyWithPolicy(t, s, types.KeyTypeHMAC, key,
		types.Policy{Usage: types.UsageSign, Algorithm: types.AlgorithmHMACSHA256})

	op := NewMAC(s, b)
	require.NoError(t, op.SetupSign(h, types.AlgorithmHMACSHA256))
	require.NoError(t, op.Abort())

	// The aborted operation no longer pins the slot.
	require.NoError(t, s.DestroyKey(h))
	assert.ErrorIs(t, op.Update(nil), types.ErrBadState)
}
