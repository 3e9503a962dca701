package codec

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/rakau/internal/errors"
	"github.com/PolarWolf314/rakau/internal/recipients"
)

const (
	// MetadataVersion is the sidecar format written by this package.
	MetadataVersion = 1

	metaSuffix = ".meta"
)

// Metadata is the JSON sidecar stored next to a ciphertext.
type Metadata struct {
	V           int       `json:"v"`
	Fingerprint string    `json:"fpr"`
	Recipients  []string  `json:"recipients"`
	SignedBy    string    `json:"signed_by,omitempty"`
	Signature   []byte    `json:"sig,omitempty"`
	WrittenAt   time.Time `json:"written_at"`
}

// Envelope is a ciphertext with its optional metadata.
type Envelope struct {
	Ciphertext []byte
	Meta       *Metadata
}

// Stale reports whether the envelope was not sealed for decl.
func (e Envelope) Stale(decl recipients.Declaration) bool {
	return e.Meta == nil || e.Meta.Fingerprint != decl.Fingerprint()
}

// MetaPath returns the sidecar path for a ciphertext file. The sidecar is a
// dot file so entry listings skip it.
func MetaPath(cipherFile string) string {
	return filepath.Join(filepath.Dir(cipherFile), "."+filepath.Base(cipherFile)+metaSuffix)
}

// CipherPathForMeta inverts MetaPath. ok is false if name is not a sidecar.
func CipherPathForMeta(metaFile string) (string, bool) {
	base := filepath.Base(metaFile)
	if !strings.HasPrefix(base, ".") || !strings.HasSuffix(base, metaSuffix) {
		return "", false
	}
	name := strings.TrimSuffix(strings.TrimPrefix(base, "."), metaSuffix)
	if name == "" {
		return "", false
	}
	return filepath.Join(filepath.Dir(metaFile), name), true
}

// EncodeMetadata renders m as indented JSON.
func EncodeMetadata(m *Metadata) ([]byte, error) {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return append(b, '\n'), nil
}

// DecodeMetadata parses a sidecar, rejecting unknown versions.
func DecodeMetadata(b []byte) (*Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidEnvelope, err)
	}
	if m.V < 1 || m.V > MetadataVersion {
		return nil, fmt.Errorf("%w: unsupported metadata version %d", kerrors.ErrInvalidEnvelope, m.V)
	}
	return &m, nil
}
