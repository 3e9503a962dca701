package native

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"filippo.io/age"
	kerrors "github.com/PolarWolf314/rakau/internal/errors"
	"github.com/PolarWolf314/rakau/internal/utils"
)

const (
	publicSuffix  = ".pub"
	privateSuffix = ".key"
)

// PassphraseFunc supplies the passphrase for a sealed private key.
type PassphraseFunc func(id string) ([]byte, error)

// Keyring is a directory of public and private key files.
type Keyring struct {
	Dir        string
	Passphrase PassphraseFunc
}

// Save writes the identity's key files. A non-empty passphrase seals the
// private key.
func (k *Keyring) Save(id *Identity, passphrase []byte) error {
	if err := os.MkdirAll(k.Dir, 0700); err != nil {
		return fmt.Errorf("failed to create keyring %s: %w", k.Dir, err)
	}
	if err := k.AddPublic(id.Public); err != nil {
		return err
	}

	raw, err := json.Marshal(id.private())
	if err != nil {
		return fmt.Errorf("failed to encode private key: %w", err)
	}
	if len(passphrase) > 0 {
		N, r, p := scryptParamsDefault()
		if raw, err = sealWithPassphrase(passphrase, raw, N, r, p); err != nil {
			return fmt.Errorf("failed to seal private key: %w", err)
		}
	}
	return utils.WriteFileAtomic(filepath.Join(k.Dir, id.ID()+privateSuffix), raw, 0600)
}

// AddPublic imports a recipient's public key.
func (k *Keyring) AddPublic(pub PublicKey) error {
	if err := os.MkdirAll(k.Dir, 0700); err != nil {
		return fmt.Errorf("failed to create keyring %s: %w", k.Dir, err)
	}
	if Fingerprint(pub.Recipient) != pub.ID {
		return fmt.Errorf("%w: public key id %s does not match its key", kerrors.ErrInvalidRecipient, pub.ID)
	}
	b, err := json.MarshalIndent(pub, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode public key: %w", err)
	}
	return utils.WriteFileAtomic(filepath.Join(k.Dir, pub.ID+publicSuffix), b, 0644)
}

// PublicKeys lists every public key in the keyring, sorted by id.
func (k *Keyring) PublicKeys() ([]PublicKey, error) {
	entries, err := os.ReadDir(k.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: reading keyring: %v", kerrors.ErrDecryptionUnavailable, err)
	}
	var out []PublicKey
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), publicSuffix) {
			continue
		}
		pub, err := k.loadPublic(filepath.Join(k.Dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, pub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Lookup resolves a recipient by key id or identity name.
func (k *Keyring) Lookup(recipient string) (PublicKey, error) {
	path := filepath.Join(k.Dir, recipient+publicSuffix)
	if !strings.ContainsAny(recipient, `/\`) && utils.FileExists(path) {
		return k.loadPublic(path)
	}
	keys, err := k.PublicKeys()
	if err != nil {
		return PublicKey{}, err
	}
	for _, pub := range keys {
		if pub.Name != "" && pub.Name == recipient {
			return pub, nil
		}
	}
	return PublicKey{}, fmt.Errorf("%w: %s", kerrors.ErrKeyNotFound, recipient)
}

func (k *Keyring) loadPublic(path string) (PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return PublicKey{}, fmt.Errorf("failed to read public key %s: %w", path, err)
	}
	var pub PublicKey
	if err := json.Unmarshal(b, &pub); err != nil {
		return PublicKey{}, fmt.Errorf("%w: public key %s: %v", kerrors.ErrInvalidRecipient, filepath.Base(path), err)
	}
	if _, err := age.ParseX25519Recipient(pub.Recipient); err != nil || Fingerprint(pub.Recipient) != pub.ID {
		return PublicKey{}, fmt.Errorf("%w: public key %s is malformed", kerrors.ErrInvalidRecipient, filepath.Base(path))
	}
	return pub, nil
}

// PrivateIDs lists the ids the keyring holds a private key for. Unsealed
// keys come first so decryption asks for a passphrase only when needed.
func (k *Keyring) PrivateIDs() ([]string, error) {
	entries, err := os.ReadDir(k.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: reading keyring: %v", kerrors.ErrDecryptionUnavailable, err)
	}
	var ids []string
	sealed := map[string]bool{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), privateSuffix) {
			continue
		}
		id := strings.TrimSuffix(e.Name(), privateSuffix)
		ids = append(ids, id)
		sealed[id] = k.isSealed(id)
	}
	sort.Strings(ids)
	sort.SliceStable(ids, func(i, j int) bool { return !sealed[ids[i]] && sealed[ids[j]] })
	return ids, nil
}

func (k *Keyring) isSealed(id string) bool {
	raw, err := os.ReadFile(filepath.Join(k.Dir, id+privateSuffix))
	if err != nil {
		return false
	}
	var sk sealedKey
	return json.Unmarshal(raw, &sk) == nil && sk.Sealed
}

// HasPrivate reports whether the keyring holds the private key for id.
func (k *Keyring) HasPrivate(id string) bool {
	return utils.FileExists(filepath.Join(k.Dir, id+privateSuffix))
}

// Identity loads the full identity for id, asking for a passphrase when
// the private key is sealed.
func (k *Keyring) Identity(id string) (*Identity, error) {
	pub, err := k.loadPublic(filepath.Join(k.Dir, id+publicSuffix))
	if err != nil {
		return nil, err
	}
	raw, err := utils.ReadFileIfExists(filepath.Join(k.Dir, id+privateSuffix))
	if err != nil {
		return nil, fmt.Errorf("%w: reading private key: %v", kerrors.ErrDecryptionUnavailable, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: no private key for %s", kerrors.ErrKeyNotFound, id)
	}

	var sk sealedKey
	if err := json.Unmarshal(raw, &sk); err == nil && sk.Sealed {
		if k.Passphrase == nil {
			return nil, fmt.Errorf("%w: private key %s is sealed and no passphrase source is set", kerrors.ErrDecryptionUnavailable, id)
		}
		pass, err := k.Passphrase(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", kerrors.ErrDecryptionUnavailable, err)
		}
		if raw, err = openWithPassphrase(pass, sk); err != nil {
			return nil, err
		}
	}

	var pf privateFile
	if err := json.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("private key %s is malformed: %w", id, err)
	}
	return identityFromPrivate(pub, pf)
}
