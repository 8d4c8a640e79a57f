// Package auth is the identity and access core of the watch repair service:
// accounts, credentials, sessions and role based access to service records.
//
// Accounts:
//   - Accounts wires the lifecycle commands (signup, email verification,
//     login, logout everywhere, password reset) on top of a bun database.
//     Every write runs in one transaction and notifications go out only after
//     commit, through a Notifier.
//   - Roles are assigned once at signup. The configured admin email becomes
//     RoleAdmin, everyone else RoleCustomer.
//
// Sessions:
//   - Session tokens are HS256 JWTs carrying the user's session epoch.
//     LogoutEverywhere and password resets bump the epoch, so every token
//     issued before stops resolving.
//   - SessionResolver turns a raw token into a Principal. It never fails:
//     problems yield Anonymous with the reason attached.
//
// Authorization:
//   - Authorize is a pure function of the principal, the operation and the
//     resource owner. OwnerFilter narrows listings for customers.
//
// Activity sinks:
//   - ActivitySink receives signup, login, logout and password reset events.
//     Sinks run best-effort (errors are logged) so they never block
//     authentication.
package auth
