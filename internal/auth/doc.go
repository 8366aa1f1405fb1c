// Package auth provides authentication and authorization for the admin API.
//
// # Tokens
//
// Admins sign in with a username and password and receive an HS256 JWT
// signed with auth.jwt_secret (at least MinSecretLength bytes). Claims:
//
//   - sub: admin ID
//   - role: "admin" or "super-admin"
//   - username
//
// # Middleware
//
//	RequireAdmin(store, verifier, logger)  // any admin
//	RequireSuperAdmin()                    // stacked after RequireAdmin
//
// RequireAdmin re-reads the admin on every request; the stored role is what
// lands in the AuthContext. Handlers read it with FromContext.
//
// Agent endpoints are public and are not covered by this package.
package auth
