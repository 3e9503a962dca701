package native

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const sealedFormatVersion = 1

var errWrongPassphrase = errors.New("wrong passphrase or corrupted key file")

// sealedKey is the on-disk form of a passphrase protected private key.
type sealedKey struct {
	V      int    `json:"v"`
	Sealed bool   `json:"sealed"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

func scryptParamsDefault() (N, r, p int) { return 1 << 15, 8, 1 }

func sealWithPassphrase(passphrase, raw []byte, N, r, p int) ([]byte, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, err
	}
	key, err := scrypt.Key(passphrase, salt[:], N, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	// The key is unique per salt, so a zero nonce is never reused.
	var nonce [chacha20poly1305.NonceSize]byte
	return json.Marshal(sealedKey{
		V:      sealedFormatVersion,
		Sealed: true,
		Salt:   salt[:],
		N:      N,
		R:      r,
		P:      p,
		Cipher: aead.Seal(nil, nonce[:], raw, salt[:]),
	})
}

func openWithPassphrase(passphrase []byte, sk sealedKey) ([]byte, error) {
	if sk.V > sealedFormatVersion {
		return nil, fmt.Errorf("unsupported key file version %d", sk.V)
	}
	key, err := scrypt.Key(passphrase, sk.Salt, sk.N, sk.R, sk.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	pt, err := aead.Open(nil, nonce[:], sk.Cipher, sk.Salt)
	if err != nil {
		return nil, errWrongPassphrase
	}
	return pt, nil
}
