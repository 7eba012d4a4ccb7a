// Package cache implements the on-disk artifact cache used by compute
// nodes (spec §4.4): a pluggable save/load pair for the payload, plus a
// sidecar recording the bindings, content checksum and transform fingerprint
// in force when the payload was written. A later probe reuses the payload
// only when bindings and checksum still match; a fingerprint mismatch alone
// is surfaced as a warning, not a miss, matching the reference
// implementation's leniency toward merely-reordered-but-equivalent code.
package cache

import (
	"encoding/gob"
	"reflect"

	"github.com/dagma-go/dagma/daglog"
	"github.com/dagma-go/dagma/dagerr"
	"github.com/dagma-go/dagma/fileio"
	"github.com/dagma-go/dagma/hashutil"
)

var logger = daglog.Component("cache")

// Fingerprint identifies the version of a transform function for cache
// invalidation purposes. Go cannot introspect a function's bytecode the way
// the reference implementation does, so FuncName and Arity are derived
// automatically while Version is set explicitly by the caller (spec
// REDESIGN: explicit versioning replaces bytecode fingerprinting). A
// fingerprint that differs from the one recorded in the sidecar is logged
// as a warning; the cached artifact is still reused.
type Fingerprint struct {
	FuncName string
	Arity    int
	Version  int
}

// sidecar is the gob-encoded metadata persisted next to a cached payload.
type sidecar struct {
	Bindings    map[string]any
	Checksum    string
	Fingerprint Fingerprint
}

// fileio.SaveGob encodes its value as an interface, which gob only accepts
// for registered concrete types.
func init() {
	gob.Register(sidecar{})
}

// Descriptor is a compute node's on-disk cache configuration. A zero
// Descriptor (nil Save/Load/Path) describes a node with no on-disk cache at
// all: CanSave and CanLoad both report false.
type Descriptor struct {
	Path    fileio.PathFunc
	Save    fileio.SaveFunc
	Load    fileio.LoadFunc
	NewHash hashutil.NewHash // nil disables checksum verification
}

// CanSave reports whether d has enough configured to persist a value.
func (d Descriptor) CanSave() bool {
	return d.Save != nil && d.Path != nil
}

// CanLoad reports whether d has enough configured to ever read a value back.
func (d Descriptor) CanLoad() bool {
	return d.Load != nil && d.Path != nil
}

// Store persists value under the path resolved from bindings, then writes a
// sidecar recording bindings, a checksum of the payload (if d.NewHash is
// set) and fp. Store is a no-op returning nil when d.CanSave() is false,
// mirroring the reference implementation's silent skip when no save
// function was configured.
func Store(d Descriptor, bindings map[string]any, value any, fp Fingerprint) error {
	if !d.CanSave() {
		return nil
	}
	path := d.Path(bindings)
	if err := d.Save(value, path); err != nil {
		return dagerr.Wrap(dagerr.SaveFailed, "save transform result", err)
	}

	checksum, err := checksumOf(d, path)
	if err != nil {
		return dagerr.Wrap(dagerr.SaveFailed, "checksum saved artifact", err)
	}

	side := sidecar{Bindings: bindings, Checksum: checksum, Fingerprint: fp}
	if err := fileio.SaveGob(side, fileio.SidecarPath(path)); err != nil {
		return dagerr.Wrap(dagerr.SaveFailed, "save cache sidecar", err)
	}
	return nil
}

// CanLoadFor reports whether a previously stored artifact can be reused for
// the given bindings and fingerprint, without actually reading the payload.
// It is the cheap probe the queue and thread runners use to decide whether a
// node's dependencies must be evaluated at all (spec §4.4 / §4.5).
func CanLoadFor(d Descriptor, bindings map[string]any, fp Fingerprint) bool {
	ok, _ := canLoad(d, bindings, fp)
	return ok
}

// canLoad is the shared implementation behind CanLoadFor and Lookup. It
// returns the resolved path alongside the boolean so Lookup need not
// re-resolve it.
func canLoad(d Descriptor, bindings map[string]any, fp Fingerprint) (bool, string) {
	if !d.CanLoad() {
		return false, ""
	}
	path := d.Path(bindings)
	if !fileio.Exists(path) {
		logger.Infof("no cache artifact at %s", path)
		return false, path
	}

	raw, err := fileio.LoadGob(fileio.SidecarPath(path))
	if err != nil {
		return false, path
	}
	side, ok := raw.(sidecar)
	if !ok {
		return false, path
	}

	if !bindingsEqual(bindings, side.Bindings) {
		return false, path
	}

	checksum, err := checksumOf(d, path)
	if err != nil || checksum != side.Checksum {
		if err == nil {
			logger.Warnf("checksum changed for cache artifact %s", path)
		}
		return false, path
	}

	if fp != side.Fingerprint {
		logger.Warnf("transform fingerprint changed for cache artifact %s", path)
	}

	return true, path
}

// Lookup loads the cached value for bindings if CanLoadFor would report
// true, wrapping any I/O failure as a dagerr.LoadFailed error. ok is false
// with a nil error when there is simply nothing usable cached.
func Lookup(d Descriptor, bindings map[string]any, fp Fingerprint) (value any, ok bool, err error) {
	can, path := canLoad(d, bindings, fp)
	if !can {
		return nil, false, nil
	}

	value, err = d.Load(path)
	if err != nil {
		return nil, false, dagerr.Wrap(dagerr.LoadFailed, "load cached artifact", err)
	}
	return value, true, nil
}

// SidecarBindings loads and returns just the bindings recorded in the
// sidecar accompanying the artifact at d.Path(bindings), without checking
// them against bindings. It supports manual load entry points that want to
// report a bindings mismatch distinctly from a plain miss.
func SidecarBindings(d Descriptor, bindings map[string]any) (map[string]any, error) {
	path := d.Path(bindings)
	raw, err := fileio.LoadGob(fileio.SidecarPath(path))
	if err != nil {
		return nil, err
	}
	side, ok := raw.(sidecar)
	if !ok {
		return nil, dagerr.New(dagerr.LoadFailed, "cache sidecar has unexpected shape")
	}
	return side.Bindings, nil
}

func checksumOf(d Descriptor, path string) (string, error) {
	if d.NewHash == nil {
		return "", nil
	}
	return hashutil.Checksum(path, d.NewHash)
}

func bindingsEqual(a, b map[string]any) bool {
	return reflect.DeepEqual(a, b)
}
