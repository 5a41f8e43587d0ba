package banking

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/GregMSThompson/treasury-backend/internal/errs"
)

const redacted = "[REDACTED]"

// Credentials holds provider secrets in plaintext. It only exists between
// vault decryption and adapter construction, and redacts itself whenever it
// is printed, logged or serialized.
type Credentials map[string]string

func (c Credentials) Get(key string) string {
	return strings.TrimSpace(c[key])
}

// Require reports the missing keys, sorted, as a ValidationError.
func (c Credentials) Require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if c.Get(k) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return errs.NewValidationError(fmt.Sprintf("missing credential fields: %s", strings.Join(missing, ", ")))
}

func (c Credentials) String() string   { return redacted }
func (c Credentials) GoString() string { return redacted }

func (c Credentials) LogValue() slog.Value { return slog.StringValue(redacted) }

func (c Credentials) MarshalJSON() ([]byte, error) {
	return json.Marshal(redacted)
}

// Seal serializes the plaintext for the vault. It is the only way to get the
// secrets back out as bytes.
func (c Credentials) Seal() (string, error) {
	b, err := json.Marshal(map[string]string(c))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseCredentials is the inverse of Seal.
func ParseCredentials(plain string) (Credentials, error) {
	var m map[string]string
	if err := json.Unmarshal([]byte(plain), &m); err != nil {
		return nil, errs.NewValidationError("credentials are not a JSON object")
	}
	return Credentials(m), nil
}
