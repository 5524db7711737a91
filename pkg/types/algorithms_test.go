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

package types

import (
	"crypto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlgorithm_Classification(t *testing.T) {
	tests := []struct {
		alg       Algorithm
		hash      bool
		mac       bool
		cipher    bool
		aead      bool
		signature bool
		asymEnc   bool
		kdf       bool
		agreement bool
		wildcard  bool
	}{
		{alg: AlgorithmSHA256, hash: true},
		{alg: AlgorithmSHA3_512, hash: true},
		{alg: AlgorithmSHA512_224, hash: true},
		{alg: AlgorithmHMACSHA256, mac: true},
		{alg: HMAC(AlgorithmSHA3_256), mac: true},
		{alg: AlgorithmHMACAnyHash, mac: true, wildcard: true},
		{alg: AlgorithmAESCMAC, mac: true},
		{alg: AlgorithmAESCTR, cipher: true},
		{alg: AlgorithmAESCBCPKCS7, cipher: true},
		{alg: AlgorithmChaCha20, cipher: true},
		{alg: AlgorithmAESGCM, aead: true},
		{alg: AlgorithmAESCCM, aead: true},
		{alg: AlgorithmChaCha20Poly1305, aead: true},
		{alg: AlgorithmECDSASHA256, signature: true},
		{alg: AlgorithmECDSAAnyHash, signature: true, wildcard: true},
		{alg: AlgorithmRSAPSSSHA384, signature: true},
		{alg: AlgorithmRSAPKCS1v15SHA256, signature: true},
		{alg: AlgorithmRSAPKCS1v15AnyHash, signature: true, wildcard: true},
		{alg: AlgorithmRSAPKCS1v15Crypt, asymEnc: true},
		{alg: AlgorithmRSAOAEPSHA256, asymEnc: true},
		{alg: AlgorithmHKDFSHA256, kdf: true},
		{alg: AlgorithmHKDFAnyHash, kdf: true, wildcard: true},
		{alg: AlgorithmECDH, agreement: true},
	}

	for _, tc := range tests {
		t.Run(string(tc.alg), func(t *testing.T) {
			assert.Equal(t, tc.hash, tc.alg.IsHash(), "IsHash")
			assert.Equal(t, tc.mac, tc.alg.IsMAC(), "IsMAC")
			assert.Equal(t, tc.cipher, tc.alg.IsCipher(), "IsCipher")
			assert.Equal(t, tc.aead, tc.alg.IsAEAD(), "IsAEAD")
			assert.Equal(t, tc.signature, tc.alg.IsSignature(), "IsSignature")
			assert.Equal(t, tc.asymEnc, tc.alg.IsAsymmetricEncryption(), "IsAsymmetricEncryption")
			assert.Equal(t, tc.kdf, tc.alg.IsKeyDerivation(), "IsKeyDerivation")
			assert.Equal(t, tc.agreement, tc.alg.IsKeyAgreement(), "IsKeyAgreement")
			assert.Equal(t, tc.wildcard, tc.alg.IsWildcard(), "IsWildcard")
			assert.True(t, tc.alg.IsValid(), "IsValid")
		})
	}
}

func TestAlgorithm_IsValid_Unrecognized(t *testing.T) {
	assert.False(t, AlgorithmNone.IsValid())
	assert.False(t, Algorithm("ROT13").IsValid())
	assert.False(t, Algorithm("HMAC-ROT13").IsValid())
	assert.False(t, Algorithm("AES-XTS").IsValid())
}

func TestAlgorithm_HashComponent(t *testing.T) {
	assert.Equal(t, AlgorithmSHA256, AlgorithmSHA256.HashComponent())
	assert.Equal(t, AlgorithmSHA256, AlgorithmHMACSHA256.HashComponent())
	assert.Equal(t, AlgorithmSHA384, AlgorithmECDSASHA384.HashComponent())
	assert.Equal(t, AlgorithmSHA512, AlgorithmRSAPSSSHA512.HashComponent())
	assert.Equal(t, AlgorithmSHA256, AlgorithmRSAOAEPSHA256.HashComponent())
	assert.Equal(t, AlgorithmSHA256, AlgorithmHKDFSHA256.HashComponent())

	// Wildcards and unparameterized algorithms have no hash component.
	assert.Equal(t, AlgorithmNone, AlgorithmHMACAnyHash.HashComponent())
	assert.Equal(t, AlgorithmNone, AlgorithmAESCMAC.HashComponent())
	assert.Equal(t, AlgorithmNone, AlgorithmECDH.HashComponent())
	assert.Equal(t, AlgorithmNone, AlgorithmRSAPKCS1v15Crypt.HashComponent())
}

func TestAlgorithm_CryptoHash(t *testing.T) {
	assert.Equal(t, crypto.SHA256, AlgorithmSHA256.CryptoHash())
	assert.Equal(t, crypto.SHA512_256, AlgorithmSHA512_256.CryptoHash())
	assert.Equal(t, crypto.SHA3_384, AlgorithmSHA3_384.CryptoHash())
	assert.Equal(t, crypto.SHA256, AlgorithmHMACSHA256.CryptoHash())
	assert.Equal(t, crypto.Hash(0), AlgorithmAESGCM.CryptoHash())
}

func TestAlgorithm_HashSize(t *testing.T) {
	assert.Equal(t, 32, AlgorithmSHA256.HashSize())
	assert.Equal(t, 48, AlgorithmSHA384.HashSize())
	assert.Equal(t, 64, AlgorithmSHA512.HashSize())
	assert.Equal(t, 28, AlgorithmSHA512_224.HashSize())
	assert.Equal(t, 32, AlgorithmSHA3_256.HashSize())
	assert.Equal(t, 32, AlgorithmHMACSHA256.HashSize())
	assert.Equal(t, 0, AlgorithmAESCTR.HashSize())
}

func TestWildcardMatches(t *testing.T) {
	tests := []struct {
		wildcard Algorithm
		concrete Algorithm
		match    bool
	}{
		{AlgorithmHMACAnyHash, AlgorithmHMACSHA256, true},
		{AlgorithmHMACAnyHash, HMAC(AlgorithmSHA3_512), true},
		{AlgorithmHMACAnyHash, AlgorithmAESCMAC, false},
		{AlgorithmECDSAAnyHash, AlgorithmECDSASHA256, true},
		{AlgorithmECDSAAnyHash, AlgorithmRSAPSSSHA256, false},
		{AlgorithmRSAPSSAnyHash, AlgorithmRSAPSSSHA384, true},
		{AlgorithmRSAPKCS1v15AnyHash, AlgorithmRSAPKCS1v15SHA256, true},
		{AlgorithmRSAPKCS1v15AnyHash, AlgorithmRSAPKCS1v15Crypt, false},
		{AlgorithmHKDFAnyHash, AlgorithmHKDFSHA512, true},
		// A concrete algorithm never acts as a wildcard.
		{AlgorithmHMACSHA256, AlgorithmHMACSHA256, false},
		{AlgorithmHMACSHA256, AlgorithmHMACAnyHash, false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.match, WildcardMatches(tc.wildcard, tc.concrete),
			"WildcardMatches(%s, %s)", tc.wildcard, tc.concrete)
	}
}

func TestAlgorithm_OperationParameters(t *testing.T) {
	assert.Equal(t, 16, AlgorithmAESCTR.IVSize())
	assert.Equal(t, 16, AlgorithmAESCBCPKCS7.IVSize())
	assert.Equal(t, 12, AlgorithmChaCha20.IVSize())
	assert.Equal(t, 0, AlgorithmAESGCM.IVSize())

	assert.Equal(t, 12, AlgorithmAESGCM.NonceSize())
	assert.Equal(t, 13, AlgorithmAESCCM.NonceSize())
	assert.Equal(t, 12, AlgorithmChaCha20Poly1305.NonceSize())

	assert.Equal(t, 16, AlgorithmAESGCM.TagSize())
	assert.Equal(t, 16, AlgorithmAESCCM.TagSize())
	assert.Equal(t, 0, AlgorithmAESCTR.TagSize())

	assert.Equal(t, 16, AlgorithmAESCBCNoPadding.BlockSize())
	assert.Equal(t, 16, AlgorithmAESCBCPKCS7.BlockSize())
	assert.Equal(t, 1, AlgorithmAESCTR.BlockSize())
	assert.Equal(t, 1, AlgorithmChaCha20.BlockSize())
	assert.Equal(t, 0, AlgorithmSHA256.BlockSize())

	assert.True(t, AlgorithmAESCCM.RequiresLengthCommitment())
	assert.False(t, AlgorithmAESGCM.RequiresLengthCommitment())
	assert.False(t, AlgorithmChaCha20Poly1305.RequiresLengthCommitment())
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in   string
		want Algorithm
	}{
		{"sha-256", AlgorithmSHA256},
		{"SHA256", AlgorithmNone}, // dashless spelling is not accepted
		{"sha-512/256", AlgorithmSHA512_256},
		{"hmac-sha-256", AlgorithmHMACSHA256},
		{"HMAC_SHA_256", AlgorithmHMACSHA256},
		{"aes-gcm", AlgorithmAESGCM},
		{"aes-ccm", AlgorithmAESCCM},
		{"chacha20-poly1305", AlgorithmChaCha20Poly1305},
		{"chacha20_poly1305", AlgorithmChaCha20Poly1305},
		{"aes-cbc", AlgorithmAESCBCNoPadding},
		{"aes-cbc-nopadding", AlgorithmAESCBCNoPadding},
		{"aes-cbc-pkcs7", AlgorithmAESCBCPKCS7},
		{"rsa-pkcs1v15-sha-256", AlgorithmRSAPKCS1v15SHA256},
		{"RSA-PKCS1V15-CRYPT", AlgorithmRSAPKCS1v15Crypt},
		{"ecdsa-any-hash", AlgorithmECDSAAnyHash},
		{"hkdf-sha-256", AlgorithmHKDFSHA256},
		{"ecdh", AlgorithmECDH},
		{"", AlgorithmNone},
		{"rot13", AlgorithmNone},
	}

	for _, tc := range tests {
		got := ParseAlgorithm(tc.in)
		assert.Equal(t, tc.want, got, "ParseAlgorithm(%q)", tc.in)
	}
}

func TestAlgorithm_FamilyConstructors(t *testing.T) {
	require.Equal(t, AlgorithmHMACSHA256, HMAC(AlgorithmSHA256))
	require.Equal(t, AlgorithmECDSASHA256, ECDSA(AlgorithmSHA256))
	require.Equal(t, AlgorithmRSAPSSSHA384, RSAPSS(AlgorithmSHA384))
	require.Equal(t, AlgorithmRSAPKCS1v15SHA512, RSAPKCS1v15Sign(AlgorithmSHA512))
	require.Equal(t, AlgorithmRSAOAEPSHA256, RSAOAEP(AlgorithmSHA256))
	require.Equal(t, AlgorithmHKDFSHA512, HKDF(AlgorithmSHA512))
}
