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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_IsNil(t *testing.T) {
	assert.True(t, NilHandle.IsNil())
	assert.False(t, Handle(1).IsNil())
	assert.False(t, Handle(0xFFFF0001).IsNil())
}

func TestLifetime_IsValid(t *testing.T) {
	assert.True(t, LifetimeVolatile.IsValid())
	assert.True(t, LifetimePersistent.IsValid())
	assert.False(t, Lifetime("").IsValid())
	assert.False(t, Lifetime("ephemeral").IsValid())
}

func TestKeyType_Predicates(t *testing.T) {
	tests := []struct {
		kt        KeyType
		symmetric bool
		keyPair   bool
		public    bool
	}{
		{KeyTypeRawData, true, false, false},
		{KeyTypeDerive, true, false, false},
		{KeyTypeHMAC, true, false, false},
		{KeyTypeAES, true, false, false},
		{KeyTypeChaCha20, true, false, false},
		{KeyTypeRSAKeyPair, false, true, false},
		{KeyTypeRSAPublicKey, false, false, true},
		{KeyTypeECCKeyPair, false, true, false},
		{KeyTypeECCPublicKey, false, false, true},
	}

	for _, tc := range tests {
		t.Run(string(tc.kt), func(t *testing.T) {
			assert.True(t, tc.kt.IsValid())
			assert.Equal(t, tc.symmetric, tc.kt.IsSymmetric())
			assert.Equal(t, tc.keyPair, tc.kt.IsKeyPair())
			assert.Equal(t, tc.public, tc.kt.IsPublic())
			assert.Equal(t, tc.keyPair || tc.public, tc.kt.IsAsymmetric())
		})
	}

	assert.False(t, KeyTypeNone.IsValid())
	assert.False(t, KeyType("DSA").IsValid())
}

func TestKeyType_PublicVariant(t *testing.T) {
	assert.Equal(t, KeyTypeRSAPublicKey, KeyTypeRSAKeyPair.PublicVariant())
	assert.Equal(t, KeyTypeRSAPublicKey, KeyTypeRSAPublicKey.PublicVariant())
	assert.Equal(t, KeyTypeECCPublicKey, KeyTypeECCKeyPair.PublicVariant())
	assert.Equal(t, KeyTypeNone, KeyTypeAES.PublicVariant())
	assert.Equal(t, KeyTypeNone, KeyTypeRawData.PublicVariant())
}

func TestParseKeyType(t *testing.T) {
	assert.Equal(t, KeyTypeAES, ParseKeyType("aes"))
	assert.Equal(t, KeyTypeChaCha20, ParseKeyType("ChaCha20"))
	assert.Equal(t, KeyTypeRSAKeyPair, ParseKeyType("rsa_keypair"))
	assert.Equal(t, KeyTypeECCKeyPair, ParseKeyType("ec-keypair"))
	assert.Equal(t, KeyTypeRawData, ParseKeyType(" raw "))
	assert.Equal(t, KeyTypeNone, ParseKeyType("dsa"))
	assert.Equal(t, KeyTypeNone, ParseKeyType(""))
}

func TestEllipticCurve_Bits(t *testing.T) {
	assert.Equal(t, 256, CurveP256.Bits())
	assert.Equal(t, 384, CurveP384.Bits())
	assert.Equal(t, 521, CurveP521.Bits())
	assert.Equal(t, 255, CurveX25519.Bits())
	assert.Equal(t, 0, CurveNone.Bits())
}

func TestCurveFromBits(t *testing.T) {
	assert.Equal(t, CurveP256, CurveFromBits(256))
	assert.Equal(t, CurveP384, CurveFromBits(384))
	assert.Equal(t, CurveP521, CurveFromBits(521))
	assert.Equal(t, CurveX25519, CurveFromBits(255))
	assert.Equal(t, CurveNone, CurveFromBits(512))
	assert.Equal(t, CurveNone, CurveFromBits(0))
}

func TestUsage_Has(t *testing.T) {
	u := UsageEncrypt | UsageDecrypt

	assert.True(t, u.Has(UsageEncrypt))
	assert.True(t, u.Has(UsageDecrypt))
	assert.True(t, u.Has(UsageEncrypt|UsageDecrypt))
	assert.False(t, u.Has(UsageSign))
	assert.False(t, u.Has(UsageEncrypt|UsageSign), "a missing bit fails the whole check")
	assert.True(t, u.Has(0), "empty requirement is always satisfied")
}

func TestUsage_IsValid(t *testing.T) {
	assert.True(t, Usage(0).IsValid())
	assert.True(t, (UsageExport | UsageCopy | UsageEncrypt | UsageDecrypt |
		UsageSign | UsageVerify | UsageDerive).IsValid())
	assert.False(t, Usage(1<<20).IsValid())
	assert.False(t, (UsageSign | Usage(1<<31)).IsValid())
}

func TestUsage_String(t *testing.T) {
	assert.Equal(t, "none", Usage(0).String())
	assert.Equal(t, "export", UsageExport.String())
	assert.Equal(t, "encrypt|decrypt", (UsageEncrypt | UsageDecrypt).String())
	assert.Equal(t, "sign|verify", (UsageSign | UsageVerify).String())
}

func TestKeySource_IsValid(t *testing.T) {
	assert.True(t, SourceImport.IsValid())
	assert.True(t, SourceGenerate.IsValid())
	assert.True(t, SourceCopy.IsValid())
	assert.True(t, SourceDerive.IsValid())
	assert.False(t, KeySource("").IsValid())
	assert.False(t, KeySource("clone").IsValid())
}

func TestValidateKeySize(t *testing.T) {
	tests := []struct {
		name    string
		keyType KeyType
		bits    int
		wantErr error
	}{
		{"aes 128", KeyTypeAES, 128, nil},
		{"aes 192", KeyTypeAES, 192, nil},
		{"aes 256", KeyTypeAES, 256, nil},
		{"aes odd size", KeyTypeAES, 160, ErrInvalidArgument},
		{"chacha20 256", KeyTypeChaCha20, 256, nil},
		{"chacha20 128", KeyTypeChaCha20, 128, ErrInvalidArgument},
		{"hmac 256", KeyTypeHMAC, 256, nil},
		{"hmac not byte aligned", KeyTypeHMAC, 257, ErrInvalidArgument},
		{"hmac zero", KeyTypeHMAC, 0, ErrInvalidArgument},
		{"raw data", KeyTypeRawData, 64, nil},
		{"raw zero", KeyTypeRawData, 0, ErrInvalidArgument},
		{"raw not byte aligned", KeyTypeRawData, 21, ErrInvalidArgument},
		{"derive", KeyTypeDerive, 512, nil},
		{"rsa 2048", KeyTypeRSAKeyPair, 2048, nil},
		{"rsa 512 too small", KeyTypeRSAKeyPair, 512, ErrInvalidArgument},
		{"rsa public 3072", KeyTypeRSAPublicKey, 3072, nil},
		{"ecc p-256", KeyTypeECCKeyPair, 256, nil},
		{"ecc p-521", KeyTypeECCKeyPair, 521, nil},
		{"ecc x25519", KeyTypeECCKeyPair, 255, nil},
		{"ecc unknown curve", KeyTypeECCKeyPair, 300, ErrNotSupported},
		{"unknown type", KeyType("DSA"), 1024, ErrNotSupported},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateKeySize(tc.keyType, tc.bits)
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestKeyTypeSupportsAlgorithm(t *testing.T) {
	tests := []struct {
		keyType KeyType
		alg     Algorithm
		want    bool
	}{
		{KeyTypeAES, AlgorithmAESGCM, true},
		{KeyTypeAES, AlgorithmAESCTR, true},
		{KeyTypeAES, AlgorithmAESCMAC, true},
		{KeyTypeAES, AlgorithmChaCha20Poly1305, false},
		{KeyTypeAES, AlgorithmHMACSHA256, false},
		{KeyTypeChaCha20, AlgorithmChaCha20, true},
		{KeyTypeChaCha20, AlgorithmChaCha20Poly1305, true},
		{KeyTypeChaCha20, AlgorithmAESGCM, false},
		{KeyTypeHMAC, AlgorithmHMACSHA256, true},
		{KeyTypeHMAC, AlgorithmHMACAnyHash, true},
		{KeyTypeHMAC, AlgorithmAESCMAC, false},
		{KeyTypeRSAKeyPair, AlgorithmRSAPSSSHA256, true},
		{KeyTypeRSAKeyPair, AlgorithmRSAPKCS1v15Crypt, true},
		{KeyTypeRSAKeyPair, AlgorithmRSAOAEPSHA256, true},
		{KeyTypeRSAKeyPair, AlgorithmECDSASHA256, false},
		{KeyTypeRSAPublicKey, AlgorithmRSAPKCS1v15SHA256, true},
		{KeyTypeECCKeyPair, AlgorithmECDSASHA256, true},
		{KeyTypeECCKeyPair, AlgorithmECDSAAnyHash, true},
		{KeyTypeECCKeyPair, AlgorithmECDH, true},
		{KeyTypeECCKeyPair, AlgorithmRSAPSSSHA256, false},
		{KeyTypeECCPublicKey, AlgorithmECDSASHA384, true},
		{KeyTypeECCPublicKey, AlgorithmECDH, false},
		{KeyTypeDerive, AlgorithmHKDFSHA256, true},
		{KeyTypeDerive, AlgorithmHMACSHA256, false},
		{KeyTypeHMAC, AlgorithmHKDFSHA256, false},
		{KeyTypeRawData, AlgorithmAESGCM, false},
		// Hashes are keyless, no key type supports them.
		{KeyTypeAES, AlgorithmSHA256, false},
		{KeyTypeRawData, AlgorithmSHA256, false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, KeyTypeSupportsAlgorithm(tc.keyType, tc.alg),
			"KeyTypeSupportsAlgorithm(%s, %s)", tc.keyType, tc.alg)
	}
}

func TestSignatureSize(t *testing.T) {
	assert.Equal(t, 64, SignatureSize(KeyTypeECCKeyPair, 256))
	assert.Equal(t, 96, SignatureSize(KeyTypeECCKeyPair, 384))
	assert.Equal(t, 132, SignatureSize(KeyTypeECCKeyPair, 521))
	assert.Equal(t, 256, SignatureSize(KeyTypeRSAKeyPair, 2048))
	assert.Equal(t, 384, SignatureSize(KeyTypeRSAKeyPair, 3072))
	assert.Equal(t, 0, SignatureSize(KeyTypeAES, 256))
}

func TestSharedSecretSize(t *testing.T) {
	assert.Equal(t, 32, SharedSecretSize(CurveP256))
	assert.Equal(t, 48, SharedSecretSize(CurveP384))
	assert.Equal(t, 66, SharedSecretSize(CurveP521))
	assert.Equal(t, 32, SharedSecretSize(CurveX25519))
	assert.Equal(t, 0, SharedSecretSize(CurveNone))
}

func TestZeroize(t *testing.T) {
	b := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	Zeroize(b)
	assert.Equal(t, []byte{0, 0, 0, 0}, b)

	// Zero-length and nil are no-ops.
	Zeroize(nil)
	Zeroize([]byte{})
}

func TestKeyAttributes_Curve(t *testing.T) {
	ecc := KeyAttributes{Type: KeyTypeECCKeyPair, Bits: 384}
	assert.Equal(t, CurveP384, ecc.Curve())

	pub := KeyAttributes{Type: KeyTypeECCPublicKey, Bits: 256}
	assert.Equal(t, CurveP256, pub.Curve())

	aes := KeyAttributes{Type: KeyTypeAES, Bits: 256}
	assert.Equal(t, CurveNone, aes.Curve())
}
