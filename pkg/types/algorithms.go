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
	"strings"
)

// =============================================================================
// Algorithm Identifiers
// =============================================================================
// Algorithms are string identifiers grouped into families: hash, MAC,
// cipher, AEAD, signature, asymmetric encryption, key derivation, and key
// agreement. Hash-parameterized families (HMAC, ECDSA, RSA-PSS,
// RSA-PKCS1v15 signing, RSA-OAEP, HKDF) embed the hash name as a suffix,
// and each of those families except OAEP has an ANY-HASH wildcard form
// usable only inside key policies.

// Algorithm identifies a cryptographic algorithm or a policy wildcard.
type Algorithm string

// AlgorithmNone is the zero value of Algorithm.
const AlgorithmNone Algorithm = ""

// Hash algorithms.
const (
	// AlgorithmMD5 is MD5 (legacy, insecure; retained for interoperability).
	AlgorithmMD5 Algorithm = "MD5"

	// AlgorithmSHA1 is SHA-1 (legacy; use SHA-256 or better for new keys).
	AlgorithmSHA1 Algorithm = "SHA-1"

	// AlgorithmSHA224 is SHA-224.
	AlgorithmSHA224 Algorithm = "SHA-224"

	// AlgorithmSHA256 is SHA-256 (recommended minimum).
	AlgorithmSHA256 Algorithm = "SHA-256"

	// AlgorithmSHA384 is SHA-384.
	AlgorithmSHA384 Algorithm = "SHA-384"

	// AlgorithmSHA512 is SHA-512.
	AlgorithmSHA512 Algorithm = "SHA-512"

	// AlgorithmSHA512_224 is SHA-512/224.
	AlgorithmSHA512_224 Algorithm = "SHA-512/224"

	// AlgorithmSHA512_256 is SHA-512/256.
	AlgorithmSHA512_256 Algorithm = "SHA-512/256"

	// AlgorithmSHA3_224 is SHA3-224.
	AlgorithmSHA3_224 Algorithm = "SHA3-224"

	// AlgorithmSHA3_256 is SHA3-256.
	AlgorithmSHA3_256 Algorithm = "SHA3-256"

	// AlgorithmSHA3_384 is SHA3-384.
	AlgorithmSHA3_384 Algorithm = "SHA3-384"

	// AlgorithmSHA3_512 is SHA3-512.
	AlgorithmSHA3_512 Algorithm = "SHA3-512"
)

// MAC algorithms.
const (
	// AlgorithmHMACSHA256 is HMAC with SHA-256.
	AlgorithmHMACSHA256 Algorithm = "HMAC-SHA-256"

	// AlgorithmHMACSHA384 is HMAC with SHA-384.
	AlgorithmHMACSHA384 Algorithm = "HMAC-SHA-384"

	// AlgorithmHMACSHA512 is HMAC with SHA-512.
	AlgorithmHMACSHA512 Algorithm = "HMAC-SHA-512"

	// AlgorithmHMACAnyHash is the policy wildcard matching HMAC with any hash.
	AlgorithmHMACAnyHash Algorithm = "HMAC-ANY-HASH"

	// AlgorithmAESCMAC is AES-CMAC (NIST SP 800-38B).
	AlgorithmAESCMAC Algorithm = "AES-CMAC"
)

// Unauthenticated cipher algorithms.
const (
	// AlgorithmAESCTR is AES in CTR mode.
	AlgorithmAESCTR Algorithm = "AES-CTR"

	// AlgorithmAESCFB is AES in CFB mode.
	AlgorithmAESCFB Algorithm = "AES-CFB"

	// AlgorithmAESOFB is AES in OFB mode.
	AlgorithmAESOFB Algorithm = "AES-OFB"

	// AlgorithmAESCBCNoPadding is AES-CBC without padding; total input must
	// be block-aligned by the time the operation finishes.
	AlgorithmAESCBCNoPadding Algorithm = "AES-CBC-NoPadding"

	// AlgorithmAESCBCPKCS7 is AES-CBC with PKCS#7 padding.
	AlgorithmAESCBCPKCS7 Algorithm = "AES-CBC-PKCS7"

	// AlgorithmChaCha20 is the ChaCha20 stream cipher (RFC 8439, no MAC).
	AlgorithmChaCha20 Algorithm = "ChaCha20"
)

// AEAD algorithms.
const (
	// AlgorithmAESGCM is AES-GCM.
	AlgorithmAESGCM Algorithm = "AES-GCM"

	// AlgorithmAESCCM is AES-CCM (NIST SP 800-38C). CCM commits to the
	// associated-data and payload lengths up front, so multi-part
	// operations must declare them before supplying a nonce.
	AlgorithmAESCCM Algorithm = "AES-CCM"

	// AlgorithmChaCha20Poly1305 is ChaCha20-Poly1305 (RFC 8439).
	AlgorithmChaCha20Poly1305 Algorithm = "ChaCha20-Poly1305"
)

// Signature algorithms. The suffix names the hash the digest was computed
// with; signing operates on the digest, not the message.
const (
	// AlgorithmECDSASHA256 is ECDSA over a SHA-256 digest, raw r‖s encoding.
	AlgorithmECDSASHA256 Algorithm = "ECDSA-SHA-256"

	// AlgorithmECDSASHA384 is ECDSA over a SHA-384 digest.
	AlgorithmECDSASHA384 Algorithm = "ECDSA-SHA-384"

	// AlgorithmECDSASHA512 is ECDSA over a SHA-512 digest.
	AlgorithmECDSASHA512 Algorithm = "ECDSA-SHA-512"

	// AlgorithmECDSAAnyHash is the policy wildcard matching ECDSA with any hash.
	AlgorithmECDSAAnyHash Algorithm = "ECDSA-ANY-HASH"

	// AlgorithmRSAPSSSHA256 is RSASSA-PSS over a SHA-256 digest.
	AlgorithmRSAPSSSHA256 Algorithm = "RSA-PSS-SHA-256"

	// AlgorithmRSAPSSSHA384 is RSASSA-PSS over a SHA-384 digest.
	AlgorithmRSAPSSSHA384 Algorithm = "RSA-PSS-SHA-384"

	// AlgorithmRSAPSSSHA512 is RSASSA-PSS over a SHA-512 digest.
	AlgorithmRSAPSSSHA512 Algorithm = "RSA-PSS-SHA-512"

	// AlgorithmRSAPSSAnyHash is the policy wildcard matching RSA-PSS with any hash.
	AlgorithmRSAPSSAnyHash Algorithm = "RSA-PSS-ANY-HASH"

	// AlgorithmRSAPKCS1v15SHA256 is RSASSA-PKCS1-v1_5 over a SHA-256 digest.
	AlgorithmRSAPKCS1v15SHA256 Algorithm = "RSA-PKCS1v15-SHA-256"

	// AlgorithmRSAPKCS1v15SHA384 is RSASSA-PKCS1-v1_5 over a SHA-384 digest.
	AlgorithmRSAPKCS1v15SHA384 Algorithm = "RSA-PKCS1v15-SHA-384"

	// AlgorithmRSAPKCS1v15SHA512 is RSASSA-PKCS1-v1_5 over a SHA-512 digest.
	AlgorithmRSAPKCS1v15SHA512 Algorithm = "RSA-PKCS1v15-SHA-512"

	// AlgorithmRSAPKCS1v15AnyHash is the policy wildcard matching
	// RSASSA-PKCS1-v1_5 signing with any hash.
	AlgorithmRSAPKCS1v15AnyHash Algorithm = "RSA-PKCS1v15-ANY-HASH"
)

// Asymmetric encryption algorithms.
const (
	// AlgorithmRSAPKCS1v15Crypt is RSAES-PKCS1-v1_5 encryption.
	AlgorithmRSAPKCS1v15Crypt Algorithm = "RSA-PKCS1v15-CRYPT"

	// AlgorithmRSAOAEPSHA256 is RSAES-OAEP with SHA-256.
	AlgorithmRSAOAEPSHA256 Algorithm = "RSA-OAEP-SHA-256"

	// AlgorithmRSAOAEPSHA384 is RSAES-OAEP with SHA-384.
	AlgorithmRSAOAEPSHA384 Algorithm = "RSA-OAEP-SHA-384"

	// AlgorithmRSAOAEPSHA512 is RSAES-OAEP with SHA-512.
	AlgorithmRSAOAEPSHA512 Algorithm = "RSA-OAEP-SHA-512"
)

// Key derivation and key agreement algorithms.
const (
	// AlgorithmHKDFSHA256 is HKDF with SHA-256 (RFC 5869).
	AlgorithmHKDFSHA256 Algorithm = "HKDF-SHA-256"

	// AlgorithmHKDFSHA384 is HKDF with SHA-384.
	AlgorithmHKDFSHA384 Algorithm = "HKDF-SHA-384"

	// AlgorithmHKDFSHA512 is HKDF with SHA-512.
	AlgorithmHKDFSHA512 Algorithm = "HKDF-SHA-512"

	// AlgorithmHKDFAnyHash is the policy wildcard matching HKDF with any hash.
	AlgorithmHKDFAnyHash Algorithm = "HKDF-ANY-HASH"

	// AlgorithmECDH is raw elliptic-curve Diffie-Hellman. The curve comes
	// from the private key; a DERIVE policy naming ECDH also permits
	// feeding the shared secret into a derivation generator.
	AlgorithmECDH Algorithm = "ECDH"
)

// Hash-parameterized family prefixes.
const (
	prefixHMAC        = "HMAC-"
	prefixECDSA       = "ECDSA-"
	prefixRSAPSS      = "RSA-PSS-"
	prefixRSAPKCS1v15 = "RSA-PKCS1v15-"
	prefixRSAOAEP     = "RSA-OAEP-"
	prefixHKDF        = "HKDF-"
)

// wildcardSuffix marks the ANY-HASH policy wildcards.
const wildcardSuffix = "ANY-HASH"

// =============================================================================
// Family Constructors
// =============================================================================

// HMAC builds the HMAC algorithm for the given hash.
func HMAC(hash Algorithm) Algorithm {
	return Algorithm(prefixHMAC) + hash
}

// ECDSA builds the ECDSA algorithm for digests of the given hash.
func ECDSA(hash Algorithm) Algorithm {
	return Algorithm(prefixECDSA) + hash
}

// RSAPSS builds the RSASSA-PSS algorithm for digests of the given hash.
func RSAPSS(hash Algorithm) Algorithm {
	return Algorithm(prefixRSAPSS) + hash
}

// RSAPKCS1v15Sign builds the RSASSA-PKCS1-v1_5 signing algorithm for
// digests of the given hash.
func RSAPKCS1v15Sign(hash Algorithm) Algorithm {
	return Algorithm(prefixRSAPKCS1v15) + hash
}

// RSAOAEP builds the RSAES-OAEP algorithm using the given hash.
func RSAOAEP(hash Algorithm) Algorithm {
	return Algorithm(prefixRSAOAEP) + hash
}

// HKDF builds the HKDF algorithm for the given hash.
func HKDF(hash Algorithm) Algorithm {
	return Algorithm(prefixHKDF) + hash
}

// =============================================================================
// Classification
// =============================================================================

// String returns the string representation.
func (a Algorithm) String() string {
	return string(a)
}

// Lower returns the lowercase form of the algorithm name.
func (a Algorithm) Lower() string {
	return strings.ToLower(string(a))
}

// Equals performs case-insensitive comparison.
func (a Algorithm) Equals(s string) bool {
	return strings.EqualFold(string(a), s)
}

// IsHash returns true for plain hash algorithms.
func (a Algorithm) IsHash() bool {
	switch a {
	case AlgorithmMD5, AlgorithmSHA1, AlgorithmSHA224, AlgorithmSHA256,
		AlgorithmSHA384, AlgorithmSHA512, AlgorithmSHA512_224,
		AlgorithmSHA512_256, AlgorithmSHA3_224, AlgorithmSHA3_256,
		AlgorithmSHA3_384, AlgorithmSHA3_512:
		return true
	}
	return false
}

// hashSuffixOf returns the hash that parameterizes a with the given family
// prefix, or AlgorithmNone when a is not in that family.
func (a Algorithm) hashSuffixOf(prefix string) Algorithm {
	s := string(a)
	if !strings.HasPrefix(s, prefix) {
		return AlgorithmNone
	}
	h := Algorithm(strings.TrimPrefix(s, prefix))
	if !h.IsHash() {
		return AlgorithmNone
	}
	return h
}

// IsMAC returns true for MAC algorithms, including the HMAC wildcard.
func (a Algorithm) IsMAC() bool {
	if a == AlgorithmAESCMAC || a == AlgorithmHMACAnyHash {
		return true
	}
	return a.hashSuffixOf(prefixHMAC) != AlgorithmNone
}

// IsCipher returns true for unauthenticated cipher algorithms.
func (a Algorithm) IsCipher() bool {
	switch a {
	case AlgorithmAESCTR, AlgorithmAESCFB, AlgorithmAESOFB,
		AlgorithmAESCBCNoPadding, AlgorithmAESCBCPKCS7, AlgorithmChaCha20:
		return true
	}
	return false
}

// IsAEAD returns true for authenticated encryption algorithms.
func (a Algorithm) IsAEAD() bool {
	switch a {
	case AlgorithmAESGCM, AlgorithmAESCCM, AlgorithmChaCha20Poly1305:
		return true
	}
	return false
}

// IsSignature returns true for signature algorithms, including wildcards.
func (a Algorithm) IsSignature() bool {
	return a.IsECDSA() || a.IsRSAPSS() || a.IsRSAPKCS1v15Signature()
}

// IsECDSA returns true for ECDSA signature algorithms, including the wildcard.
func (a Algorithm) IsECDSA() bool {
	return a == AlgorithmECDSAAnyHash || a.hashSuffixOf(prefixECDSA) != AlgorithmNone
}

// IsRSAPSS returns true for RSA-PSS signature algorithms, including the wildcard.
func (a Algorithm) IsRSAPSS() bool {
	return a == AlgorithmRSAPSSAnyHash || a.hashSuffixOf(prefixRSAPSS) != AlgorithmNone
}

// IsRSAPKCS1v15Signature returns true for RSA PKCS#1 v1.5 signature
// algorithms, including the wildcard but not the encryption scheme.
func (a Algorithm) IsRSAPKCS1v15Signature() bool {
	return a == AlgorithmRSAPKCS1v15AnyHash || a.hashSuffixOf(prefixRSAPKCS1v15) != AlgorithmNone
}

// IsRSAOAEP returns true for RSA-OAEP encryption algorithms.
func (a Algorithm) IsRSAOAEP() bool {
	return a.hashSuffixOf(prefixRSAOAEP) != AlgorithmNone
}

// IsAsymmetricEncryption returns true for asymmetric encryption algorithms.
func (a Algorithm) IsAsymmetricEncryption() bool {
	if a == AlgorithmRSAPKCS1v15Crypt {
		return true
	}
	return a.hashSuffixOf(prefixRSAOAEP) != AlgorithmNone
}

// IsKeyDerivation returns true for key-derivation algorithms, including the
// HKDF wildcard.
func (a Algorithm) IsKeyDerivation() bool {
	if a == AlgorithmHKDFAnyHash {
		return true
	}
	return a.hashSuffixOf(prefixHKDF) != AlgorithmNone
}

// IsKeyAgreement returns true for key-agreement algorithms.
func (a Algorithm) IsKeyAgreement() bool {
	return a == AlgorithmECDH
}

// IsWildcard returns true for policy wildcards, which match a family of
// concrete algorithms but cannot be used to set up an operation.
func (a Algorithm) IsWildcard() bool {
	return strings.HasSuffix(string(a), wildcardSuffix)
}

// IsValid returns true for any recognized algorithm or wildcard.
func (a Algorithm) IsValid() bool {
	return a.IsHash() || a.IsMAC() || a.IsCipher() || a.IsAEAD() ||
		a.IsSignature() || a.IsAsymmetricEncryption() ||
		a.IsKeyDerivation() || a.IsKeyAgreement()
}

// HashComponent returns the hash that parameterizes the algorithm: the
// algorithm itself for plain hashes, the suffix hash for HMAC, ECDSA,
// RSA-PSS, RSA-PKCS1v15 signing, RSA-OAEP, and HKDF, and AlgorithmNone for
// wildcards and unparameterized algorithms.
func (a Algorithm) HashComponent() Algorithm {
	if a.IsHash() {
		return a
	}
	for _, prefix := range []string{
		prefixHMAC, prefixECDSA, prefixRSAPSS, prefixRSAPKCS1v15,
		prefixRSAOAEP, prefixHKDF,
	} {
		if h := a.hashSuffixOf(prefix); h != AlgorithmNone {
			return h
		}
	}
	return AlgorithmNone
}

// CryptoHash maps the algorithm's hash component to the standard library
// crypto.Hash, or 0 when there is none.
func (a Algorithm) CryptoHash() crypto.Hash {
	switch a.HashComponent() {
	case AlgorithmMD5:
		return crypto.MD5
	case AlgorithmSHA1:
		return crypto.SHA1
	case AlgorithmSHA224:
		return crypto.SHA224
	case AlgorithmSHA256:
		return crypto.SHA256
	case AlgorithmSHA384:
		return crypto.SHA384
	case AlgorithmSHA512:
		return crypto.SHA512
	case AlgorithmSHA512_224:
		return crypto.SHA512_224
	case AlgorithmSHA512_256:
		return crypto.SHA512_256
	case AlgorithmSHA3_224:
		return crypto.SHA3_224
	case AlgorithmSHA3_256:
		return crypto.SHA3_256
	case AlgorithmSHA3_384:
		return crypto.SHA3_384
	case AlgorithmSHA3_512:
		return crypto.SHA3_512
	}
	return 0
}

// HashSize returns the digest length in bytes of the algorithm's hash
// component, or 0 when there is none.
func (a Algorithm) HashSize() int {
	h := a.CryptoHash()
	if h == 0 {
		return 0
	}
	return h.Size()
}

// =============================================================================
// Wildcard Matching
// =============================================================================

// WildcardMatches reports whether concrete falls in the family named by
// wildcard. Only ANY-HASH wildcards match anything, and only concrete
// algorithms of the same family with a recognized hash suffix.
func WildcardMatches(wildcard, concrete Algorithm) bool {
	w := string(wildcard)
	if !strings.HasSuffix(w, wildcardSuffix) {
		return false
	}
	family := strings.TrimSuffix(w, wildcardSuffix)
	return concrete.hashSuffixOf(family) != AlgorithmNone
}

// =============================================================================
// Operation Parameters
// =============================================================================

// IVSize returns the initialization vector length in bytes for cipher
// algorithms, or 0 for everything else.
func (a Algorithm) IVSize() int {
	switch a {
	case AlgorithmAESCTR, AlgorithmAESCFB, AlgorithmAESOFB,
		AlgorithmAESCBCNoPadding, AlgorithmAESCBCPKCS7:
		return 16
	case AlgorithmChaCha20:
		return 12
	}
	return 0
}

// NonceSize returns the default nonce length in bytes for AEAD algorithms,
// or 0 for everything else.
func (a Algorithm) NonceSize() int {
	switch a {
	case AlgorithmAESGCM, AlgorithmChaCha20Poly1305:
		return 12
	case AlgorithmAESCCM:
		return 13
	}
	return 0
}

// TagSize returns the authentication tag length in bytes for AEAD
// algorithms, or 0 for everything else.
func (a Algorithm) TagSize() int {
	if a.IsAEAD() {
		return 16
	}
	return 0
}

// BlockSize returns the granularity at which a cipher operation must feed
// the backend: 16 for CBC modes, 1 for stream-like modes, 0 for
// non-cipher algorithms.
func (a Algorithm) BlockSize() int {
	switch a {
	case AlgorithmAESCBCNoPadding, AlgorithmAESCBCPKCS7:
		return 16
	case AlgorithmAESCTR, AlgorithmAESCFB, AlgorithmAESOFB, AlgorithmChaCha20:
		return 1
	}
	return 0
}

// RequiresLengthCommitment returns true for AEAD algorithms that must know
// the total associated-data and payload lengths before processing begins.
func (a Algorithm) RequiresLengthCommitment() bool {
	return a == AlgorithmAESCCM
}

// =============================================================================
// Parsing
// =============================================================================

// canonicalAlgorithms maps normalized (uppercase) names to their canonical
// constants, covering the algorithms whose display form is not all-uppercase.
var canonicalAlgorithms = map[string]Algorithm{
	"AES-CBC":            AlgorithmAESCBCNoPadding,
	"AES-CBC-NOPADDING":  AlgorithmAESCBCNoPadding,
	"AES-CBC-NO-PADDING": AlgorithmAESCBCNoPadding,
	"CHACHA20":           AlgorithmChaCha20,
	"CHACHA20-POLY1305":  AlgorithmChaCha20Poly1305,
}

// ParseAlgorithm converts a string to a recognized Algorithm, accepting
// case-insensitive input with dashes or underscores. Returns AlgorithmNone
// for unrecognized names.
func ParseAlgorithm(s string) Algorithm {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "-")
	if alg, ok := canonicalAlgorithms[s]; ok {
		return alg
	}
	if a := Algorithm(s); a.IsValid() {
		return a
	}
	// Mixed-case display forms normalize to uppercase already except for
	// the PKCS1v15 spelling.
	s = strings.ReplaceAll(s, "PKCS1V15", "PKCS1v15")
	s = strings.ReplaceAll(s, "NOPADDING", "NoPadding")
	if a := Algorithm(s); a.IsValid() {
		return a
	}
	return AlgorithmNone
}
