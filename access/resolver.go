// Package access maps API keys to the school they may query.
package access

import (
	"fmt"
	"slices"

	"nbme-dashboard-go/models"
)

// Grant is the outcome of resolving an API key.
type Grant struct {
	Master bool   // master key: the school is chosen by the user
	School string // school bound to a school-specific key
}

// Resolver holds the master key, the school enumeration and the static
// key-to-school mapping.
type Resolver struct {
	masterKey string
	schools   []string
	keys      map[string]string
}

// NewResolver creates a Resolver. The inputs are copied.
func NewResolver(masterKey string, schools []string, keys map[string]string) *Resolver {
	r := &Resolver{
		masterKey: masterKey,
		schools:   slices.Clone(schools),
		keys:      make(map[string]string, len(keys)),
	}
	for k, v := range keys {
		r.keys[k] = v
	}
	return r
}

// Schools returns the fixed school enumeration in configured order.
func (r *Resolver) Schools() []string {
	return slices.Clone(r.schools)
}

// Resolve checks an API key. An empty key is models.ErrKeyRequired and an
// unmapped non-master key is models.ErrUnauthorized.
func (r *Resolver) Resolve(apiKey string) (Grant, error) {
	switch {
	case apiKey == "":
		return Grant{}, models.ErrKeyRequired
	case r.masterKey != "" && apiKey == r.masterKey:
		return Grant{Master: true}, nil
	}
	if school, ok := r.keys[apiKey]; ok {
		return Grant{School: school}, nil
	}
	return Grant{}, models.ErrUnauthorized
}

// SchoolFor returns the school a request runs against. A school key always
// yields its own school. The master key needs a selection from the
// enumeration; an empty selection is still pending and returns "".
func (r *Resolver) SchoolFor(g Grant, selected string) (string, error) {
	if !g.Master {
		return g.School, nil
	}
	if selected == "" {
		return "", nil
	}
	if !slices.Contains(r.schools, selected) {
		return "", fmt.Errorf("%w: %q", models.ErrUnknownSchool, selected)
	}
	return selected, nil
}
