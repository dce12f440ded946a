// Package accounts implements the account lifecycle and credential core:
// registration with time boxed email activation, stateless bearer tokens and
// self-service password recovery.
//
// Account lifecycle:
//   - ActivationManager registers pending accounts, issues six digit
//     activation keys that expire after ten minutes and flips accounts to
//     activated. Reissue replaces the key in place.
//   - PasswordResetManager issues single use reset keys valid for 24 hours and
//     changes passwords for authenticated accounts.
//   - Reaper deletes pending accounts whose activation window closed more than
//     a grace period ago. Run it with Reaper.Run to sweep once per day.
//
// Credentials:
//   - JWTCodec issues and verifies HMAC signed tokens carrying the username
//     and roles. Verification never touches the store.
//   - Authenticator logs accounts in through the CredentialVerifier and
//     re-resolves the account on every Authenticate call so deleted or
//     deactivated accounts lose access before their token expires.
//
// Persistence is expressed through UserStore and ArtifactStore, grouped in a
// RepositoryManager that runs multi-step writes in a single transaction. The
// repository sub-package provides Bun backed implementations for SQLite and
// Postgres.
//
// Activity sinks:
//   - ActivitySink receives lifecycle, login and password events. Sinks run
//     best-effort (errors are logged) so a slow or failing sink never changes
//     the outcome of an operation.
package accounts
