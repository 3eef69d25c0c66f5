// ABOUTME: Client-side sealing of opaque biometric values with age.
// ABOUTME: Sealed values are ASCII-armored so they travel as plain JSON strings.
package sealing

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
	"github.com/harperreed/wellness/internal/ingest"
	"github.com/harperreed/wellness/internal/models"
)

// ErrNotSealed is returned by Open for values that carry no age armor.
var ErrNotSealed = errors.New("value is not sealed")

// IsSealed reports whether s looks like an armored age payload.
func IsSealed(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), armor.Header)
}

// Sealer encrypts values to one or more X25519 recipients.
type Sealer struct {
	recipients []age.Recipient
}

// NewSealer parses age1... recipient strings.
func NewSealer(recipients ...string) (*Sealer, error) {
	if len(recipients) == 0 {
		return nil, errors.New("at least one recipient is required")
	}
	s := &Sealer{}
	for _, r := range recipients {
		rec, err := age.ParseX25519Recipient(strings.TrimSpace(r))
		if err != nil {
			return nil, fmt.Errorf("parse recipient: %w", err)
		}
		s.recipients = append(s.recipients, rec)
	}
	return s, nil
}

// Seal encrypts plaintext and returns the armored ciphertext.
func (s *Sealer) Seal(plaintext string) (string, error) {
	var buf bytes.Buffer
	aw := armor.NewWriter(&buf)

	w, err := age.Encrypt(aw, s.recipients...)
	if err != nil {
		return "", fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", fmt.Errorf("encrypting value: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing encryption: %w", err)
	}
	if err := aw.Close(); err != nil {
		return "", fmt.Errorf("finalizing armor: %w", err)
	}
	return buf.String(), nil
}

// SealValue seals v's text form into an opaque value.
func (s *Sealer) SealValue(v models.Value) (models.Value, error) {
	sealed, err := s.Seal(v.String())
	if err != nil {
		return models.Value{}, err
	}
	return models.Opaque(sealed), nil
}

// SealRequest replaces every record value of a batch or per-metric array
// request with its sealed form. Wide rows carry numeric columns and cannot be sealed.
// Empty values are left alone so validation still reports them.
func (s *Sealer) SealRequest(req ingest.Request) error {
	var groups [][]ingest.Record
	switch r := req.(type) {
	case *ingest.Batch:
		groups = append(groups, r.Records)
	case *ingest.MetricArrays:
		for _, series := range r.Series {
			groups = append(groups, series.Records)
		}
	default:
		return fmt.Errorf("sealing is not supported for %s payloads", req.Shape())
	}

	for _, records := range groups {
		for i := range records {
			if records[i].Value.IsEmpty() {
				continue
			}
			sealed, err := s.SealValue(records[i].Value)
			if err != nil {
				return fmt.Errorf("seal record %d: %w", i, err)
			}
			records[i].Value = sealed
		}
	}
	return nil
}

// Opener decrypts values sealed to any of its identities.
type Opener struct {
	identities []age.Identity
}

// NewOpener wraps already parsed identities.
func NewOpener(identities ...age.Identity) *Opener {
	return &Opener{identities: identities}
}

// LoadOpener reads an age identity file such as one written by GenerateIdentity.
func LoadOpener(path string) (*Opener, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open identity file: %w", err)
	}
	defer f.Close()

	identities, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parse identity file: %w", err)
	}
	return NewOpener(identities...), nil
}

// Open decrypts an armored value.
func (o *Opener) Open(sealed string) (string, error) {
	if !IsSealed(sealed) {
		return "", ErrNotSealed
	}
	r, err := age.Decrypt(armor.NewReader(strings.NewReader(strings.TrimSpace(sealed))), o.identities...)
	if err != nil {
		return "", fmt.Errorf("decrypting value: %w", err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading decrypted value: %w", err)
	}
	return string(plain), nil
}

// Reveal returns the display text of v, opening it when sealed.
func (o *Opener) Reveal(v models.Value) (string, error) {
	if v.Kind() != models.ValueOpaque || !IsSealed(v.String()) {
		return v.String(), nil
	}
	return o.Open(v.String())
}

// GenerateIdentity writes a new X25519 identity to path and returns its recipient.
func GenerateIdentity(path string) (string, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", fmt.Errorf("generating key pair: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", fmt.Errorf("creating key directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", fmt.Errorf("creating identity file: %w", err)
	}
	defer f.Close()

	recipient := identity.Recipient().String()
	content := fmt.Sprintf("# public key: %s\n%s\n", recipient, identity.String())
	if _, err := io.WriteString(f, content); err != nil {
		return "", fmt.Errorf("writing identity file: %w", err)
	}
	return recipient, nil
}
