// Package scene defines the record types shared by every other package.
//
// An Instance is one generated 3D object. Its variant-specific shape lives in
// the sealed Appearance sum type (Box, Sphere, Planet); callers switch on the
// concrete type and the compiler-visible set is closed by the unexported
// marker method.
//
// Key constraints:
//   - Every stored Instance has a non-empty ID.
//   - Planet appearances always carry a non-empty Name.
//   - Scale is finite and positive; Position and Rotation are finite.
//   - JSON tags use camelCase to match the persisted blob.
//
// scene imports nothing internal.
package scene
