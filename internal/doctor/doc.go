// Package doctor provides diagnostic and repair functionality for the
// savesync data directory.
//
// The doctor package detects and optionally repairs issues including:
//
//   - Cache issues: corrupt entries, entries past the stale limit, and
//     entries left behind by an identity that is no longer active.
//
//   - Local slot issues: slot files that cannot be read back.
//
//   - Identity issues: an identity file that cannot be parsed.
//
//   - Service issues: the save service is unreachable (reported, not fixed).
//
// # Usage
//
//	report := doctor.Check(ctx, env)
//	fixed, err := doctor.Fix(env, report.Issues)
//
// Run combines both and prints the result.
package doctor
