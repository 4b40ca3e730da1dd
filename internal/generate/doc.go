// Package generate produces new pseudo-random scene records.
//
// A Generator combines three injectable sources: a math/rand/v2 generator for
// appearance, scale, rotation and vertical jitter; a Clock for creation
// timestamps; and an IDSource for identifiers. Tests pin all three to get
// byte-identical records.
//
// Spawn placement follows a golden-angle spiral: the n-th record sits at
// radius Spacing*sqrt(n) and angle n*GoldenAngle, so the radius never
// decreases as records are added and neighbours do not overlap.
package generate
