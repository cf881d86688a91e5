// Package preflight provides readiness checks run before an asset
// generation pass.
//
// These checks run in two contexts:
//   - "showreel assets generate" calls CheckCredentials for the stages it is
//     about to run and RunAll for filesystem access, refusing to start when
//     anything fails.
//   - "showreel config validate" prints every Result so operators can see
//     which credentials and directories are usable.
//
// Credential checks are gated by stage: skipped and dry-run stages need no
// credentials.
package preflight
