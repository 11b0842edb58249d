package source

import (
	"errors"
	"strconv"
	"strings"
)

// ErrEmptyType is returned when a URL is requested for an empty type.
var ErrEmptyType = errors.New("conference type is empty")

// Resolver builds the URL of a yearly conference file.
//
// Types without an entry in Bases use DefaultBase. Unknown types are not an
// error: the caller gets a URL that most likely answers 404, which the
// Fetcher turns into an empty list.
type Resolver struct {
	DefaultBase string
	// Bases maps lowercase type keys to their base URL.
	Bases map[string]string
}

// NewResolver returns a Resolver with trailing slashes trimmed from every base.
func NewResolver(defaultBase string, bases map[string]string) Resolver {
	r := Resolver{
		DefaultBase: strings.TrimRight(defaultBase, "/"),
		Bases:       make(map[string]string, len(bases)),
	}
	for k, v := range bases {
		r.Bases[strings.ToLower(k)] = strings.TrimRight(v, "/")
	}
	return r
}

// URL returns "{base}/{year}/{type}.json" with type lowercased.
func (r Resolver) URL(typ string, year int) (string, error) {
	t := strings.ToLower(strings.TrimSpace(typ))
	if t == "" {
		return "", ErrEmptyType
	}

	base, ok := r.Bases[t]
	if !ok || base == "" {
		base = r.DefaultBase
	}
	return base + "/" + strconv.Itoa(year) + "/" + t + ".json", nil
}
