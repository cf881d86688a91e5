package assetcache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Key identifies one cache entry.
type Key struct {
	Service string
	Digest  string
	Ext     string
}

// NewKey hashes params and returns the key for service/ext.
func NewKey(service string, params map[string]any, ext string) (Key, error) {
	digest, err := Hash(params)
	if err != nil {
		return Key{}, err
	}
	key := Key{Service: service, Digest: digest, Ext: normalizeExt(ext)}
	if err := key.validate(); err != nil {
		return Key{}, err
	}
	return key, nil
}

// Hash returns the hex SHA-256 of the canonical JSON encoding of params.
// Map keys are sorted by the encoder and strings are NFC-normalized, so the
// digest does not depend on insertion order or Unicode composition.
func Hash(params map[string]any) (string, error) {
	if len(params) == 0 {
		return "", errors.New("assetcache: empty parameter set")
	}
	payload, err := json.Marshal(canonicalize(params))
	if err != nil {
		return "", fmt.Errorf("assetcache: encode params: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

func canonicalize(value any) any {
	switch v := value.(type) {
	case string:
		return norm.NFC.String(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			out[norm.NFC.String(key)] = canonicalize(inner)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = canonicalize(inner)
		}
		return out
	case []string:
		out := make([]string, len(v))
		for i, inner := range v {
			out[i] = norm.NFC.String(inner)
		}
		return out
	default:
		return v
	}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func (k Key) validate() error {
	service := strings.TrimSpace(k.Service)
	if service == "" {
		return errors.New("assetcache: service is required")
	}
	if strings.ContainsAny(service, `/\`) || service == "." || service == ".." {
		return fmt.Errorf("assetcache: invalid service name %q", k.Service)
	}
	if len(k.Digest) != sha256.Size*2 {
		return fmt.Errorf("assetcache: invalid digest %q", k.Digest)
	}
	if strings.ContainsAny(k.Ext, `/\`) {
		return fmt.Errorf("assetcache: invalid extension %q", k.Ext)
	}
	return nil
}

// String renders the key as service/digest.ext for logs.
func (k Key) String() string {
	return k.Service + "/" + k.Digest + k.Ext
}
