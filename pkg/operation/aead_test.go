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

	"github.com/AndrzejKurek/pelion-crypto/pkg/keystore"
	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

func aeadTestKey(t *testing.T, s *keystore.Store, alg types.Algorithm) types.Handle {
	t.Helper()
	keyType, size := types.KeyTypeAES, 16
	if alg == types.AlgorithmChaCha20Poly1305 {
		keyType, size = types.KeyTypeChaCha20, 32
	}
	key := bytes.Repeat([]byte{0x3c}, size)
	return importKeyWithPolicy(t, s, keyType, key,
		types.Policy{Usage: types.UsageEncrypt | types.UsageDecrypt, Algorithm: alg})
}

func splitSealed(t *testing.T, alg types.Algorithm, sealed []byte) (ct, tag []byte) {
	t.Helper()
	n := alg.TagSize()
	require.GreaterOrEqual(t, len(sealed), n)
	return sealed[:len(sealed)-n], sealed[len(sealed)-n:]
}

func TestAEAD_GCMRoundTrip(t *testing.T) {
	s, b := newTestEnv(t)
	h := aeadTestKey(t, s, types.AlgorithmAESGCM)
	ad := []byte("header v1")
	pt := []byte("the payload to protect")

	enc := NewAEAD(s, b)
	require.NoError(t, enc.SetupEncrypt(h, types.AlgorithmAESGCM))
	nonce, err := enc.GenerateNonce()
	require.NoError(t, err)
	require.Len(t, nonce, 12)
	require.NoError(t, enc.UpdateAD(ad[:4]))
	require.NoError(t, enc.UpdateAD(ad[4:]))
	_, err = enc.Update(pt[:9])
	require.NoError(t, err)
	_, err = enc.Update(pt[9:])
	require.NoError(t, err)
	sealed, err := enc.Finish()
	require.NoError(t, err)
	require.Equal(t, len(pt)+16, len(sealed))

	ct, tag := splitSealed(t, types.AlgorithmAESGCM, sealed)

	dec := NewAEAD(s, b)
	require.NoError(t, dec.SetupDecrypt(h, types.AlgorithmAESGCM))
	require.NoError(t, dec.SetNonce(nonce))
	require.NoError(t, dec.UpdateAD(ad))
	_, err = dec.Update(ct)
	require.NoError(t, err)
	got, err := dec.Verify(tag)
	require.NoError(t, err)
	assert.Equal(t, pt, got)
}

func TestAEAD_ChaCha20Poly1305RoundTrip(t *testing.T) {
	s, b := newTestEnv(t)
	h := aeadTestKey(t, s, types.AlgorithmChaCha20Poly1305)
	pt := []byte("stream of consciousness")

	enc := NewAEAD(s, b)
	require.NoError(t, enc.SetupEncrypt(h, types.AlgorithmChaCha20Poly1305))
	nonce, err := enc.GenerateNonce()
	require.NoError(t, err)
	_, err = enc.Update(pt)
	require.NoError(t, err)
	sealed, err := enc.Finish()
	require.NoError(t, err)

	ct, tag := splitSealed(t, types.AlgorithmChaCha20Poly1305, sealed)

	dec := NewAEAD(s, b)
	require.NoError(t, dec.SetupDecrypt(h, types.AlgorithmChaCha20Poly1305))
	require.NoError(t, dec.SetNonce(nonce))
	_, err = dec.Update(ct)
	require.NoError(t, err)
	got, err := dec.Verify(tag)
	require.NoError(t, err)
	assert.Equal(t, pt, got)
}

func TestAEAD_CCMRequiresLengthsBeforeNonce(t *testing.T) {
	s, b := newTestEnv(t)
	h := aeadTestKey(t, s, types.AlgorithmAESCCM)
	nonce := bytes.Repeat([]byte{0x01}, 13)

	op := NewAEAD(s, b)
	require.NoError(t, op.SetupEncrypt(h, types.AlgorithmAESCCM))
	assert.ErrorIs(t, op.SetNonce(nonce), types.ErrBadState)

	require.NoError(t, op.SetLengths(3, 10))
	require.NoError(t, op.SetNonce(nonce))
}

func TestAEAD_CCMRoundTrip(t *testing.T) {
	s, b := newTestEnv(t)
	h := aeadTestKey(t, s, types.AlgorithmAESCCM)
	nonce := bytes.Repeat([]byte{0x24}, 13)
	ad := []byte("adata")
	pt := []byte("ccm payload")

	enc := NewAEAD(s, b)
	require.NoError(t, enc.SetupEncrypt(h, types.AlgorithmAESCCM))
	require.NoError(t, enc.SetLengths(len(ad), len(pt)))
	require.NoError(t, enc.SetNonce(nonce))
	require.NoError(t, enc.UpdateAD(ad))
	_, err := enc.Update(pt)
	require.NoError(t, err)
	sealed, err := enc.Finish()
	require.NoError(t, err)

	ct, tag := splitSealed(t, types.AlgorithmAESCCM, sealed)

	dec := NewAEAD(s, b)
	require.NoError(t, dec.SetupDecrypt(h, types.AlgorithmAESCCM))
	require.NoError(t, dec.SetLengths(len(ad), len(pt)))
	require.NoError(t, dec.SetNonce(nonce))
	require.NoError(t, dec.UpdateAD(ad))
	_, err = dec.Update(ct)
	require.NoError(t, err)
	got, err := dec.Verify(tag)
	require.NoError(t, err)
	assert.Equal(t, pt, got)
}

func TestAEAD_DeclaredLengthsEnforced(t *testing.T) {
	s, b := newTestEnv(t)
	h := aeadTestKey(t, s, types.AlgorithmAESGCM)
	nonce := make([]byte, 12)

	t.Run("associated data overflow", func(t *testing.T) {
		op := NewAEAD(s, b)
		require.NoError(t, op.SetupEncrypt(h, types.AlgorithmAESGCM))
		require.NoError(t, op.SetLengths(4, 8))
		require.NoError(t, op.SetNonce(nonce))
		assert.ErrorIs(t, op.UpdateAD(make([]byte, 5)), types.ErrInvalidArgument)
		// The violation kills the operation.
		assert.ErrorIs(t, op.UpdateAD(nil), types.ErrBadState)
	})

	t.Run("payload overflow", func(t *testing.T) {
		op := NewAEAD(s, b)
		require.NoError(t, op.SetupEncrypt(h, types.AlgorithmAESGCM))
		require.NoError(t, op.SetLengths(0, 8))
		require.NoError(t, op.SetNonce(nonce))
		_, err := op.Update(make([]byte, 9))
		assert.ErrorIs(t, err, types.ErrInvalidArgument)
	})

	t.Run("payload before all declared AD", func(t *testing.T) {
		op := NewAEAD(s, b)
		require.NoError(t, op.SetupEncrypt(h, types.AlgorithmAESGCM))
		require.NoError(t, op.SetLengths(4, 8))
		require.NoError(t, op.SetNonce(nonce))
		require.NoError(t, op.UpdateAD(make([]byte, 2)))
		_, err := op.Update(make([]byte, 1))
		assert.ErrorIs(t, err, types.ErrInvalidArgument)
	})

	t.Run("undershoot at finish", func(t *testing.T) {
		op := NewAEAD(s, b)
		require.NoError(t, op.SetupEncrypt(h, types.AlgorithmAESGCM))
		require.NoError(t, op.SetLengths(0, 8))
		require.NoError(t, op.SetNonce(nonce))
		_, err := op.Update(make([]byte, 7))
		require.NoError(t, err)
		_, err = op.Finish()
		assert.ErrorIs(t, err, types.ErrInvalidArgument)
	})
}

func TestAEAD_SetLengthsValidation(t *testing.T) {
	s, b := newTestEnv(t)
	h := aeadTestKey(t, s, types.AlgorithmAESGCM)

	op := NewAEAD(s, b)
	require.NoError(t, op.SetupEncrypt(h, types.AlgorithmAESGCM))
	assert.ErrorIs(t, op.SetLengths(-1, 0), types.ErrInvalidArgument)
	require.NoError(t, op.SetLengths(0, 4))
	assert.ErrorIs(t, op.SetLengths(0, 4), types.ErrBadState)

	late := NewAEAD(s, b)
	require.NoError(t, late.SetupEncrypt(h, types.AlgorithmAESGCM))
	require.NoError(t, late.SetNonce(make([]byte, 12)))
	assert.ErrorIs(t, late.SetLengths(0, 4), types.ErrBadState)
}

func TestAEAD_ADAfterPayloadRejected(t *testing.T) {
	s, b := newTestEnv(t)
	h := aeadTestKey(t, s, types.AlgorithmAESGCM)

	op := NewAEAD(s, b)
	require.NoError(t, op.SetupEncrypt(h, types.AlgorithmAESGCM))
	require.NoError(t, op.SetNonce(make([]byte, 12)))
	require.NoError(t, op.UpdateAD([]byte("early")))
	_, err := op.Update(nil)
	require.NoError(t, err)
	assert.ErrorIs(t, op.UpdateAD([]byte("late")), types.ErrBadState)
}

func TestAEAD_NonceLengthValidation(t *testing.T) {
	s, b := newTestEnv(t)

	gcm := NewAEAD(s, b)
	require.NoError(t, gcm.SetupEncrypt(aeadTestKey(t, s, types.AlgorithmAESGCM), types.AlgorithmAESGCM))
	assert.ErrorIs(t, gcm.SetNonce(make([]byte, 8)), types.ErrInvalidArgument)
	require.NoError(t, gcm.SetNonce(make([]byte, 12)))

	h := aeadTestKey(t, s, types.AlgorithmAESCCM)
	for n, want := range map[int]error{6: types.ErrInvalidArgument, 7: nil, 13: nil, 14: types.ErrInvalidArgument} {
		op := NewAEAD(s, b)
		require.NoError(t, op.SetupEncrypt(h, types.AlgorithmAESCCM))
		require.NoError(t, op.SetLengths(0, 0))
		err := op.SetNonce(make([]byte, n))
		if want == nil {
			assert.NoError(t, err, "nonce length %d", n)
		} else {
			assert.ErrorIs(t, err, want, "nonce length %d", n)
		}
	}
}

func TestAEAD_GenerateNonceDecryptRejected(t *testing.T) {
	s, b := newTestEnv(t)
	h := aeadTestKey(t, s, types.AlgorithmAESGCM)

	op := NewAEAD(s, b)
	require.NoError(t, op.SetupDecrypt(h, types.AlgorithmAESGCM))
	_, err := op.GenerateNonce()
	assert.ErrorIs(t, err, types.ErrBadState)
}

func TestAEAD_VerifyTamper(t *testing.T) {
	s, b := newTestEnv(t)
	h := aeadTestKey(t, s, types.AlgorithmAESGCM)
	pt := []byte("authenticity matters")

	enc := NewAEAD(s, b)
	require.NoError(t, enc.SetupEncrypt(h, types.AlgorithmAESGCM))
	nonce, err := enc.GenerateNonce()
	require.NoError(t, err)
	_, err = enc.Update(pt)
	require.NoError(t, err)
	sealed, err := enc.Finish()
	require.NoError(t, err)

	ct, tag := splitSealed(t, types.AlgorithmAESGCM, sealed)
	tag[0] ^= 0x01

	dec := NewAEAD(s, b)
	require.NoError(t, dec.SetupDecrypt(h, types.AlgorithmAESGCM))
	require.NoError(t, dec.SetNonce(nonce))
	_, err = dec.Update(ct)
	require.NoError(t, err)
	got, err := dec.Verify(tag)
	assert.ErrorIs(t, err, types.ErrInvalidSignature)
	assert.Nil(t, got)
}

func TestAEAD_RoleEnforcement(t *testing.T) {
	s, b := newTestEnv(t)
	h := aeadTestKey(t, s, types.AlgorithmAESGCM)

	enc := NewAEAD(s, b)
	require.NoError(t, enc.SetupEncrypt(h, types.AlgorithmAESGCM))
	require.NoError(t, enc.SetNonce(make([]byte, 12)))
	_, err := enc.Verify(make([]byte, 16))
	assert.ErrorIs(t, err, types.ErrBadState)

	dec := NewAEAD(s, b)
	require.NoError(t, dec.SetupDecrypt(h, types.AlgorithmAESGCM))
	require.NoError(t, dec.SetNonce(make([]byte, 12)))
	_, err = dec.Finish()
	assert.ErrorIs(t, err, types.ErrBadState)
}

func TestAEAD_SetupRejectsNonAEAD(t *testing.T) {
	s, b := newTestEnv(t)
	h := aeadTestKey(t, s, types.AlgorithmAESGCM)

	op := NewAEAD(s, b)
	assert.ErrorIs(t, op.SetupEncrypt(h, types.AlgorithmAESCTR), types.ErrNotSupported)
}

func TestAEAD_PolicyGate(t *testing.T) {
	s, b := newTestEnv(t)
	h := importKeyWithPolicy(t, s, types.KeyTypeAES, make([]byte, 16),
		types.Policy{Usage: types.UsageEncrypt, Algorithm: types.AlgorithmAESGCM})

	op := NewAEAD(s, b)
	assert.ErrorIs(t, op.SetupDecrypt(h, types.AlgorithmAESGCM), types.ErrNotPermitted)
}

func TestAEAD_KeyDestroyedMidOperation(t *testing.T) {
	s, b := newTestEnv(t)
	h := aeadTestKey(t, s, types.AlgorithmAESGCM)

	op := NewAEAD(s, b)
	require.NoError(t, op.SetupEncrypt(h, types.AlgorithmAESGCM))
	require.NoError(t, op.SetNonce(make([]byte, 12)))
	_, err := op.Update([]byte("begun"))
	require.NoError(t, err)

	require.NoError(t, s.DestroyKey(h))

	_, err = op.Update([]byte("more"))
	assert.ErrorIs(t, err, types.ErrBadState)
	require.NoError(t, op.Abort())
	require.NoError(t, op.SetupEncrypt(aeadTestKey(t, s, types.AlgorithmAESGCM), types.AlgorithmAESGCM))
}
