package native

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"filippo.io/age"
)

const fingerprintBytes = 10

// PublicKey is the shareable half of an identity.
type PublicKey struct {
	V    int    `json:"v"`
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	// Recipient is the age X25519 recipient ("age1...").
	Recipient string `json:"recipient"`
	Ed25519   []byte `json:"ed25519"`
}

// Identity holds both key pairs of a keyring member.
type Identity struct {
	Public     PublicKey
	decryption *age.X25519Identity
	signing    ed25519.PrivateKey
}

// GenerateIdentity creates a fresh identity. It backs tests and tooling;
// the CLI never generates keys.
func GenerateIdentity(name string) (*Identity, error) {
	x, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("failed to generate X25519 key: %w", err)
	}
	edPub, edPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Ed25519 key: %w", err)
	}
	recipient := x.Recipient().String()
	return &Identity{
		Public: PublicKey{
			V:         1,
			ID:        Fingerprint(recipient),
			Name:      name,
			Recipient: recipient,
			Ed25519:   edPub,
		},
		decryption: x,
		signing:    edPriv,
	}, nil
}

// ID returns the identity's key id.
func (i *Identity) ID() string { return i.Public.ID }

// Fingerprint returns a short hex fingerprint of an age recipient.
func Fingerprint(recipient string) string {
	sum := sha256.Sum256([]byte(recipient))
	return hex.EncodeToString(sum[:fingerprintBytes])
}

// privateFile is the unsealed content of a "<id>.key" file.
type privateFile struct {
	V        int    `json:"v"`
	ID       string `json:"id"`
	Identity string `json:"identity"`
	Ed25519  []byte `json:"ed25519"`
}

func (i *Identity) private() privateFile {
	return privateFile{V: 1, ID: i.Public.ID, Identity: i.decryption.String(), Ed25519: i.signing}
}

func identityFromPrivate(pub PublicKey, pf privateFile) (*Identity, error) {
	if len(pf.Ed25519) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key %s has the wrong size", pf.ID)
	}
	x, err := age.ParseX25519Identity(pf.Identity)
	if err != nil {
		return nil, fmt.Errorf("private key %s is malformed: %w", pf.ID, err)
	}
	if x.Recipient().String() != pub.Recipient {
		return nil, fmt.Errorf("private key %s does not match its public key", pf.ID)
	}
	return &Identity{Public: pub, decryption: x, signing: ed25519.PrivateKey(pf.Ed25519)}, nil
}
