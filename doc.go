// Package hospital implements the account lifecycle of a hospital
// management backend: credential storage, one-time codes, session tokens
// and the REST handlers mounted under /api/users.
//
// Account lifecycle:
//   - Accounts carry an AccountStatus persisted via Bun. Patients move from
//     pending to verified through an emailed OTP. Staff accounts are invited
//     by an admin and become active once they redeem an activation token
//     or OTP and choose a password.
//   - The lifecycle machine owns the transition graph and timestamps. Every
//     command that changes status goes through it so the rules live in one
//     place.
//
// Sessions:
//   - SessionIssuer signs HS256 tokens through TokenService. Password logins
//     get the default TTL, Google sign in gets a shorter one.
//   - Protected routes read the bearer token with the jwtware middleware and
//     expose the decoded AuthClaims through the request context.
//
// Activity sinks:
//   - ActivitySink receives lifecycle, login and deletion events. Sinks run
//     best effort: failures are logged and never abort the command.
package hospital
