// Package sanitize turns an untrusted persisted blob into well-typed records.
//
// Input is whatever encoding/json produced for the stored value, so every
// function here is total: nil, scalars, wrong field types, NaN and negative
// scales are all handled without panicking. Malformed records are dropped
// silently and only counted; repairable fields fall back to defaults.
//
// Repair rules:
//   - id: non-empty string after trimming, else the record is dropped
//   - kind: must be allowed by the variant; missing means the variant's first kind
//   - color: "#rgb" or "#rrggbb", normalized to lowercase "#rrggbb"
//   - scale: finite and positive, else 1
//   - position, rotation: three finite numbers, else the zero vector
//   - planet name: trimmed and NFC-normalized; empty drops the record
//   - duplicate ids: first occurrence wins
package sanitize
