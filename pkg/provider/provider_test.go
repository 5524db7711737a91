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

package provider

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndrzejKurek/pelion-crypto/pkg/metrics"
	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Logging.Level = "error"
	cfg.Metrics.Enabled = false
	return newTestProviderWith(t, cfg)
}

func newTestProviderWith(t *testing.T, cfg *Config) *Provider {
	t.Helper()
	p, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, p.Init())
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func importTestKey(t *testing.T, p *Provider, keyType types.KeyType, material []byte, policy types.Policy) types.Handle {
	t.Helper()
	h, err := p.AllocateKey()
	require.NoError(t, err)
	require.NoError(t, p.SetKeyPolicy(h, policy))
	require.NoError(t, p.ImportKey(h, keyType, material))
	return h
}

func TestProvider_New_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "loud"

	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestProvider_UninitializedRejectsCalls(t *testing.T) {
	p, err := New(nil)
	require.NoError(t, err)
	assert.False(t, p.IsInitialized())

	_, err = p.AllocateKey()
	assert.ErrorIs(t, err, types.ErrBadState)

	err = p.CloseKey(types.Handle(1))
	assert.ErrorIs(t, err, types.ErrBadState)

	_, err = p.HashCompute(types.AlgorithmSHA256, []byte("x"))
	assert.ErrorIs(t, err, types.ErrBadState)

	_, err = p.GenerateRandom(8)
	assert.ErrorIs(t, err, types.ErrBadState)

	_, err = p.HashOperation()
	assert.ErrorIs(t, err, types.ErrBadState)

	_, err = p.Store()
	assert.ErrorIs(t, err, types.ErrBadState)
}

func TestProvider_Init_Idempotent(t *testing.T) {
	p := newTestProvider(t)

	h, err := p.AllocateKey()
	require.NoError(t, err)

	// A second Init must not rebuild the store.
	require.NoError(t, p.Init())
	assert.True(t, p.IsInitialized())

	lifetime, err := p.KeyLifetime(h)
	require.NoError(t, err)
	assert.Equal(t, types.LifetimeVolatile, lifetime)
}

func TestProvider_CloseAndReinitialize(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.AllocateKey()
	require.NoError(t, err)

	require.NoError(t, p.Close())
	assert.False(t, p.IsInitialized())

	_, err = p.AllocateKey()
	assert.ErrorIs(t, err, types.ErrBadState)

	// Close on a closed provider is a no-op.
	require.NoError(t, p.Close())

	// Init builds a fresh instance that is fully usable.
	require.NoError(t, p.Init())
	assert.True(t, p.IsInitialized())

	material := bytes.Repeat([]byte{0x2B}, 16)
	h := importTestKey(t, p, types.KeyTypeAES, material, types.Policy{
		Usage:     types.UsageExport,
		Algorithm: types.AlgorithmAESGCM,
	})
	out, err := p.ExportKey(h)
	require.NoError(t, err)
	assert.Equal(t, material, out)
}

func TestProvider_KeyLifecycle(t *testing.T) {
	p := newTestProvider(t)

	material := bytes.Repeat([]byte{0xA5}, 16)
	policy := types.Policy{
		Usage:     types.UsageEncrypt | types.UsageDecrypt | types.UsageExport | types.UsageCopy,
		Algorithm: types.AlgorithmAESGCM,
	}
	h := importTestKey(t, p, types.KeyTypeAES, material, policy)

	keyType, bits, err := p.KeyInfo(h)
	require.NoError(t, err)
	assert.Equal(t, types.KeyTypeAES, keyType)
	assert.Equal(t, 128, bits)

	got, err := p.KeyPolicy(h)
	require.NoError(t, err)
	assert.Equal(t, policy, got)

	lifetime, err := p.KeyLifetime(h)
	require.NoError(t, err)
	assert.Equal(t, types.LifetimeVolatile, lifetime)

	exported, err := p.ExportKey(h)
	require.NoError(t, err)
	assert.Equal(t, material, exported)

	// Copy under a tighter policy: effective usage is the three-way
	// intersection of source, target and constraint.
	dst, err := p.AllocateKey()
	require.NoError(t, err)
	require.NoError(t, p.SetKeyPolicy(dst, policy))
	constraint := &types.Policy{Usage: types.UsageEncrypt, Algorithm: types.AlgorithmAESGCM}
	require.NoError(t, p.CopyKey(h, dst, constraint))

	copied, err := p.KeyPolicy(dst)
	require.NoError(t, err)
	assert.Equal(t, types.UsageEncrypt, copied.Usage)

	require.NoError(t, p.DestroyKey(h))
	_, _, err = p.KeyInfo(h)
	assert.ErrorIs(t, err, types.ErrInvalidHandle)
}

func TestProvider_GenerateKeyAndExportPublic(t *testing.T) {
	p := newTestProvider(t)

	h, err := p.AllocateKey()
	require.NoError(t, err)
	require.NoError(t, p.SetKeyPolicy(h, types.Policy{
		Usage:     types.UsageSign | types.UsageVerify,
		Algorithm: types.AlgorithmECDSASHA256,
	}))
	require.NoError(t, p.GenerateKey(h, types.KeyTypeECCKeyPair, 256))

	pub, err := p.ExportPublicKey(h)
	require.NoError(t, err)
	parsed, err := x509.ParsePKIXPublicKey(pub)
	require.NoError(t, err)
	ecKey, ok := parsed.(*ecdsa.PublicKey)
	require.True(t, ok)
	assert.Equal(t, elliptic.P256(), ecKey.Curve)

	// The private half stays put without the export usage.
	_, err = p.ExportKey(h)
	assert.ErrorIs(t, err, types.ErrNotPermitted)
}

func TestProvider_PersistentKeysSurviveReopen(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Logging.Level = "error"
	cfg.Metrics.Enabled = false
	cfg.Storage.Backend = StorageFile
	cfg.Storage.Path = dir
	p := newTestProviderWith(t, cfg)

	const keyID = types.KeyID(7)
	h, err := p.CreateKey(types.LifetimePersistent, keyID)
	require.NoError(t, err)
	require.NoError(t, p.SetKeyPolicy(h, types.Policy{
		Usage:     types.UsageExport,
		Algorithm: types.AlgorithmAESGCM,
	}))
	material := bytes.Repeat([]byte{0x77}, 32)
	require.NoError(t, p.ImportKey(h, types.KeyTypeAES, material))
	require.NoError(t, p.CloseKey(h))

	// Full teardown and rebuild on the same directory.
	require.NoError(t, p.Close())
	require.NoError(t, p.Init())

	h2, err := p.OpenKey(types.LifetimePersistent, keyID)
	require.NoError(t, err)
	exported, err := p.ExportKey(h2)
	require.NoError(t, err)
	assert.Equal(t, material, exported)

	require.NoError(t, p.DestroyKey(h2))
	_, err = p.OpenKey(types.LifetimePersistent, keyID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestProvider_SealedStorage(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Logging.Level = "error"
	cfg.Metrics.Enabled = false
	cfg.Storage.Backend = StorageFile
	cfg.Storage.Path = dir
	cfg.Storage.Passphrase = "correct horse battery staple"
	p := newTestProviderWith(t, cfg)

	const keyID = types.KeyID(11)
	h, err := p.CreateKey(types.LifetimePersistent, keyID)
	require.NoError(t, err)
	require.NoError(t, p.SetKeyPolicy(h, types.Policy{
		Usage:     types.UsageExport,
		Algorithm: types.AlgorithmAESGCM,
	}))
	material := bytes.Repeat([]byte{0x42}, 16)
	require.NoError(t, p.ImportKey(h, types.KeyTypeAES, material))
	require.NoError(t, p.Close())

	// Right passphrase round-trips.
	require.NoError(t, p.Init())
	h, err = p.OpenKey(types.LifetimePersistent, keyID)
	require.NoError(t, err)
	exported, err := p.ExportKey(h)
	require.NoError(t, err)
	assert.Equal(t, material, exported)
	require.NoError(t, p.Close())

	// Wrong passphrase fails closed.
	bad := *cfg
	bad.Storage.Passphrase = "guess"
	wrong, err := New(&bad)
	require.NoError(t, err)
	require.NoError(t, wrong.Init())
	t.Cleanup(func() { _ = wrong.Close() })

	_, err = wrong.OpenKey(types.LifetimePersistent, keyID)
	assert.ErrorIs(t, err, types.ErrStorageFailure)
}

func TestProvider_OperationConstructors(t *testing.T) {
	p := newTestProvider(t)

	hash, err := p.HashOperation()
	require.NoError(t, err)
	require.NoError(t, hash.Setup(types.AlgorithmSHA256))
	require.NoError(t, hash.Update([]byte("abc")))
	digest, err := hash.Finish()
	require.NoError(t, err)
	assert.Len(t, digest, 32)

	key := importTestKey(t, p, types.KeyTypeHMAC, bytes.Repeat([]byte{0x0B}, 32), types.Policy{
		Usage:     types.UsageSign | types.UsageVerify,
		Algorithm: types.AlgorithmHMACSHA256,
	})
	mac, err := p.MACOperation()
	require.NoError(t, err)
	require.NoError(t, mac.SetupSign(key, types.AlgorithmHMACSHA256))
	require.NoError(t, mac.Abort())

	aesKey := importTestKey(t, p, types.KeyTypeAES, bytes.Repeat([]byte{0x3C}, 16), types.Policy{
		Usage:     types.UsageEncrypt | types.UsageDecrypt,
		Algorithm: types.AlgorithmAESCTR,
	})
	cipher, err := p.CipherOperation()
	require.NoError(t, err)
	require.NoError(t, cipher.SetupEncrypt(aesKey, types.AlgorithmAESCTR))
	require.NoError(t, cipher.Abort())

	aead, err := p.AEADOperation()
	require.NoError(t, err)
	require.NoError(t, aead.Abort())

	gen, err := p.Generator()
	require.NoError(t, err)
	require.NoError(t, gen.Setup(types.AlgorithmHKDFSHA256))
	require.NoError(t, gen.Abort())
}

func TestProvider_MetricsWiring(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "error"
	p := newTestProviderWith(t, cfg)
	assert.True(t, metrics.IsEnabled())

	success := metrics.OperationsTotal.WithLabelValues(metrics.OpImportKey, metrics.StatusSuccess)
	before := testutil.ToFloat64(success)

	importTestKey(t, p, types.KeyTypeAES, bytes.Repeat([]byte{0x55}, 16), types.Policy{
		Usage:     types.UsageEncrypt,
		Algorithm: types.AlgorithmAESGCM,
	})
	assert.Equal(t, before+1, testutil.ToFloat64(success))

	// Disabled config turns recording off on the next Init.
	require.NoError(t, p.Close())
	p.cfg.Metrics.Enabled = false
	require.NoError(t, p.Init())
	assert.False(t, metrics.IsEnabled())
}

func TestDefault(t *testing.T) {
	p := Default()
	require.NotNil(t, p)
	assert.True(t, p.IsInitialized())
	assert.Same(t, p, Default())

	out, err := p.GenerateRandom(16)
	require.NoError(t, err)
	assert.Len(t, out, 16)
}

func TestVersion(t *testing.T) {
	v := Version()
	assert.NotEmpty(t, v)
	assert.NotEqual(t, "unknown", v)
}
