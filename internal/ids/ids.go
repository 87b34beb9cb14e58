package ids

import (
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier suitable for storage keys.
func New() string {
	return At(time.Now())
}

// At returns a ULID whose timestamp component is t.
func At(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Prefixed returns prefix + "_" + lower-case ULID stamped with t, e.g. "role_01hv...".
func Prefixed(prefix string, t time.Time) string {
	return prefix + "_" + strings.ToLower(At(t))
}

// Timestamp extracts the creation instant of an id produced by At or Prefixed.
func Timestamp(id string) (time.Time, bool) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	parsed, err := ulid.ParseStrict(strings.ToUpper(id))
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(parsed.Time()), true
}
