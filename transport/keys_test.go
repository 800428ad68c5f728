package transport

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RFC 9001 appendix A worked example: destination connection ID
// 0x8394c8f03e515708.
func TestDeriveInitialSecretsRFCVector(t *testing.T) {
	dcid, err := hex.DecodeString("8394c8f03e515708")
	require.NoError(t, err)

	clientSecret, serverSecret, err := deriveInitialSecrets(dcid)
	require.NoError(t, err)

	wantClient, _ := hex.DecodeString("c00cf151ca5be075ed0ebfb5c80323c42d6b7db67881289af4008f1f6c357aea")
	wantServer, _ := hex.DecodeString("3c199828fd139efd216c155ad844cc81fb82fa8d7446fa7d78be803acdda951b")

	assert.Equal(t, wantClient, clientSecret)
	assert.Equal(t, wantServer, serverSecret)
}

func TestDeriveInitialKeysProducesExpectedLengths(t *testing.T) {
	dcid, _ := hex.DecodeString("8394c8f03e515708")
	clientSecret, _, err := deriveInitialSecrets(dcid)
	require.NoError(t, err)

	key, iv, hp, err := deriveInitialKeys(clientSecret)
	require.NoError(t, err)
	assert.Len(t, key, 16)
	assert.Len(t, iv, 12)
	assert.Len(t, hp, 16)
}

func TestHeaderProtectionMaskIs16Bytes(t *testing.T) {
	dcid, _ := hex.DecodeString("8394c8f03e515708")
	clientSecret, _, err := deriveInitialSecrets(dcid)
	require.NoError(t, err)

	keys, _, err := newAESGCMKeys(clientSecret)
	require.NoError(t, err)

	sample := make([]byte, 16)
	mask, err := keys.headerProtectionMask(sample)
	require.NoError(t, err)
	assert.Len(t, mask, 16)
}

func TestHeaderProtectionMaskRejectsWrongSampleSize(t *testing.T) {
	dcid, _ := hex.DecodeString("8394c8f03e515708")
	clientSecret, _, err := deriveInitialSecrets(dcid)
	require.NoError(t, err)

	keys, _, err := newAESGCMKeys(clientSecret)
	require.NoError(t, err)

	_, err = keys.headerProtectionMask(make([]byte, 8))
	assert.Error(t, err)
}

func TestSealOpenRoundTrip(t *testing.T) {
	dcid, _ := hex.DecodeString("8394c8f03e515708")
	clientSecret, _, err := deriveInitialSecrets(dcid)
	require.NoError(t, err)

	keys, iv, err := newAESGCMKeys(clientSecret)
	require.NoError(t, err)

	plaintext := []byte("hello quic")
	ad := []byte("associated")
	sealed := keys.seal(nil, plaintext, iv, ad)

	opened, err := keys.open(nil, sealed, iv, ad)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestNewTrafficKeysRoundTrip(t *testing.T) {
	dcid, _ := hex.DecodeString("8394c8f03e515708")
	clientSecret, _, err := deriveInitialSecrets(dcid)
	require.NoError(t, err)

	seal, open, iv, err := NewTrafficKeys(clientSecret)
	require.NoError(t, err)
	require.Len(t, iv, 12)

	plaintext := []byte("traffic key smoke test")
	sealed := seal.seal(nil, plaintext, iv, nil)
	opened, err := open.open(nil, sealed, iv, nil)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestPacketNonceXorsLowOrderBytes(t *testing.T) {
	iv := []byte{0x0e, 0xef, 0xf9, 0x90, 0x0e, 0x2f, 0x55, 0xfc, 0xe1, 0x44, 0x3b, 0x4a}

	n0 := packetNonce(iv, 0)
	assert.Equal(t, iv, n0, "packet number 0 must not perturb the IV")

	n1 := packetNonce(iv, 1)
	assert.NotEqual(t, n0, n1)
	assert.Equal(t, iv[len(iv)-1]^0x01, n1[len(n1)-1])
	assert.Equal(t, iv[:len(iv)-1], n1[:len(n1)-1], "only the low-order byte changes for a one-byte packet number")
}
