package host

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"

	foundationerrors "git.home.luguber.info/inful/snapbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/snapbridge/internal/snap"
)

// Factory builds a fresh snap handler bound to its host capabilities.
type Factory func(h snap.Host) snap.Handler

// Package is an installable snap build.
type Package struct {
	ID          string
	Version     string
	Description string
	Factory     Factory
}

// Validate checks the package has an ID, a semantic version and a factory.
func (p Package) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("package id is required")
	}
	if _, err := semver.NewVersion(p.Version); err != nil {
		return fmt.Errorf("package %s: invalid version %q: %w", p.ID, p.Version, err)
	}
	if p.Factory == nil {
		return fmt.Errorf("package %s: factory is required", p.ID)
	}
	return nil
}

// Registry holds the snap packages the host can install.
type Registry struct {
	mu       sync.RWMutex
	packages map[string]map[string]Package // map[id]map[version]Package
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{packages: make(map[string]map[string]Package)}
}

// Register adds a package. Registering the same id@version twice is an error.
func (r *Registry) Register(p Package) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid package: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.packages[p.ID] == nil {
		r.packages[p.ID] = make(map[string]Package)
	}
	if _, exists := r.packages[p.ID][p.Version]; exists {
		return fmt.Errorf("package %s@%s already registered", p.ID, p.Version)
	}
	r.packages[p.ID][p.Version] = p
	return nil
}

// Get retrieves an exact id@version.
func (r *Registry) Get(id, version string) (Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, ok := r.packages[id]
	if !ok {
		return Package{}, notFound(id)
	}
	p, ok := versions[version]
	if !ok {
		return Package{}, foundationerrors.NotFoundError(fmt.Sprintf("Snap %q version %q not found.", id, version)).
			WithContext("snap_id", id).
			Build()
	}
	return p, nil
}

// GetLatest returns the highest registered version of id.
func (r *Registry) GetLatest(id string) (Package, error) {
	return r.Resolve(id, "*")
}

// Resolve returns the highest version of id satisfying the semver range
// (e.g. "^1.0.0"). An empty range means "*".
func (r *Registry) Resolve(id, versionRange string) (Package, error) {
	if versionRange == "" {
		versionRange = "*"
	}
	constraint, err := semver.NewConstraint(versionRange)
	if err != nil {
		return Package{}, foundationerrors.InvalidParamsError(fmt.Sprintf("invalid version range %q", versionRange)).
			WithCause(err).
			Build()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, ok := r.packages[id]
	if !ok {
		return Package{}, notFound(id)
	}

	var (
		best    Package
		bestVer *semver.Version
	)
	for raw, p := range versions {
		v, err := semver.NewVersion(raw)
		if err != nil || !constraint.Check(v) {
			continue
		}
		if bestVer == nil || v.GreaterThan(bestVer) {
			best, bestVer = p, v
		}
	}
	if bestVer == nil {
		return Package{}, foundationerrors.NotFoundError(fmt.Sprintf("Snap %q has no version matching %q.", id, versionRange)).
			WithContext("snap_id", id).
			Build()
	}
	return best, nil
}

// List returns every registered package ordered by id then version.
func (r *Registry) List() []Package {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Package
	for _, versions := range r.packages {
		for _, p := range versions {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ID != result[j].ID {
			return result[i].ID < result[j].ID
		}
		return result[i].Version < result[j].Version
	})
	return result
}

// Has reports whether any version of id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.packages[id]
	return ok
}

// Unregister removes id@version.
func (r *Registry) Unregister(id, version string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	versions, ok := r.packages[id]
	if !ok {
		return notFound(id)
	}
	if _, ok := versions[version]; !ok {
		return fmt.Errorf("package %s@%s not found", id, version)
	}
	delete(versions, version)
	if len(versions) == 0 {
		delete(r.packages, id)
	}
	return nil
}

// Count returns the number of registered packages across all versions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, versions := range r.packages {
		count += len(versions)
	}
	return count
}

func notFound(id string) error {
	return foundationerrors.NotFoundError(fmt.Sprintf("Snap %q not found.", id)).
		WithContext("snap_id", id).
		Build()
}
