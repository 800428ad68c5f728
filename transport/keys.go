package transport

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
)

// initialSalt is the version-specific salt used to derive Initial secrets,
// RFC 9001 section 5.2 (QUIC version 1).
var initialSalt = []byte{
	0x38, 0x76, 0x2c, 0xf7, 0xf5, 0x59, 0x34, 0xb3,
	0x4d, 0x17, 0x9a, 0xe6, 0xa4, 0xc8, 0x0c, 0xad,
	0xcc, 0xbb, 0x7f, 0x0a,
}

// sealer encrypts and authenticates one packet-number space's outgoing
// packets; opener does the reverse for incoming ones. A QUIC connection
// holds one pair per epoch. Kept as a narrow capability interface rather
// than a concrete struct so space.go and conn.go can be driven by fakes in
// tests without standing up real TLS key schedule state.
type sealer interface {
	seal(dst, plaintext, nonce, associatedData []byte) []byte
	headerProtectionMask(sample []byte) ([]byte, error)
	overhead() int
}

type opener interface {
	open(dst, ciphertext, nonce, associatedData []byte) ([]byte, error)
	headerProtectionMask(sample []byte) ([]byte, error)
}

// aeadKeys bundles the packet-protection AEAD and header-protection cipher
// derived for one traffic secret, satisfying both sealer and opener.
type aeadKeys struct {
	aead   cipher.AEAD
	hpKey  []byte
	hpAEAD string // "aes" for AES-based header protection (the only scheme qcore derives)
}

func (k *aeadKeys) seal(dst, plaintext, nonce, associatedData []byte) []byte {
	return k.aead.Seal(dst, nonce, plaintext, associatedData)
}

func (k *aeadKeys) open(dst, ciphertext, nonce, associatedData []byte) ([]byte, error) {
	return k.aead.Open(dst, nonce, ciphertext, associatedData)
}

func (k *aeadKeys) overhead() int {
	return k.aead.Overhead()
}

// headerProtectionMask computes the mask RFC 9001 section 5.4.1 defines
// for the AES-based header protection scheme: it AES-ECB-encrypts the
// 16-byte sample under hpKey and returns the full 16-byte result, of which
// callers use the first 5 bytes.
func (k *aeadKeys) headerProtectionMask(sample []byte) ([]byte, error) {
	if len(sample) != 16 {
		return nil, errors.New("keys: header protection sample must be 16 bytes")
	}
	block, err := aes.NewCipher(k.hpKey)
	if err != nil {
		return nil, errors.Wrap(err, "keys: aes cipher")
	}
	mask := make([]byte, aes.BlockSize)
	block.Encrypt(mask, sample)
	return mask, nil
}

// deriveInitialSecrets computes the client and server Initial traffic
// secrets from a connection ID per RFC 9001 section 5.2.
func deriveInitialSecrets(destConnID []byte) (clientSecret, serverSecret []byte, err error) {
	initialSecret := hkdfExtract(initialSalt, destConnID)
	clientSecret, err = hkdfExpandLabel(initialSecret, "client in", 32)
	if err != nil {
		return nil, nil, err
	}
	serverSecret, err = hkdfExpandLabel(initialSecret, "server in", 32)
	if err != nil {
		return nil, nil, err
	}
	return clientSecret, serverSecret, nil
}

// deriveInitialKeys expands one side's Initial secret into the AEAD key,
// IV and header-protection key needed to build aeadKeys, per RFC 9001
// section 5.1.
func deriveInitialKeys(secret []byte) (key, iv, hp []byte, err error) {
	key, err = hkdfExpandLabel(secret, "quic key", 16)
	if err != nil {
		return nil, nil, nil, err
	}
	iv, err = hkdfExpandLabel(secret, "quic iv", 12)
	if err != nil {
		return nil, nil, nil, err
	}
	hp, err = hkdfExpandLabel(secret, "quic hp", 16)
	if err != nil {
		return nil, nil, nil, err
	}
	return key, iv, hp, nil
}

// newAESGCMKeys builds the sealer/opener pair for one direction's Initial
// keys given its traffic secret.
func newAESGCMKeys(secret []byte) (*aeadKeys, []byte, error) {
	key, iv, hp, err := deriveInitialKeys(secret)
	if err != nil {
		return nil, nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, errors.Wrap(err, "keys: aes cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, errors.Wrap(err, "keys: aes-gcm")
	}
	return &aeadKeys{aead: gcm, hpKey: hp, hpAEAD: "aes"}, iv, nil
}

// NewTrafficKeys derives the sealer/opener pair and IV for one direction
// from a TLS 1.3 traffic secret the handshake layer has already produced
// (RFC 9001 section 5.1). qcore derives Initial secrets itself (they come
// from a public salt, not the TLS key schedule); Handshake and 1-RTT
// secrets are an external collaborator's responsibility, handed in here
// once available.
func NewTrafficKeys(secret []byte) (seal sealer, open opener, iv []byte, err error) {
	keys, iv, err := newAESGCMKeys(secret)
	if err != nil {
		return nil, nil, nil, err
	}
	return keys, keys, iv, nil
}

// packetNonce computes the per-packet AEAD nonce RFC 9001 section 5.3
// defines: the left-padded packet number XORed into the low-order bytes
// of the traffic secret's IV.
func packetNonce(iv []byte, pn packetNumber) []byte {
	nonce := make([]byte, len(iv))
	copy(nonce, iv)
	for i := 0; i < 8; i++ {
		nonce[len(nonce)-1-i] ^= byte(pn >> (8 * i))
	}
	return nonce
}

func hkdfExtract(salt, ikm []byte) []byte {
	h := hkdf.Extract(sha256.New, ikm, salt)
	return h
}

// hkdfExpandLabel implements TLS 1.3's HKDF-Expand-Label (RFC 8446 section
// 7.1) restricted to the fixed "tls13 " label prefix and no context, which
// is all RFC 9001's Initial key derivation needs.
func hkdfExpandLabel(secret []byte, label string, length int) ([]byte, error) {
	fullLabel := "tls13 " + label
	info := make([]byte, 0, 2+1+len(fullLabel)+1)
	info = append(info, byte(length>>8), byte(length))
	info = append(info, byte(len(fullLabel)))
	info = append(info, fullLabel...)
	info = append(info, 0) // empty context

	r := hkdf.Expand(sha256.New, secret, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, errors.Wrap(err, "keys: hkdf expand")
	}
	return out, nil
}

var _ crypto.Hash = crypto.SHA256 // documents the hash qcore's key schedule is pinned to
