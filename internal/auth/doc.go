// Package auth issues and verifies API bearer tokens for Gray Logic Dispatch.
//
// Tokens are HS256 JWTs signed with security.jwt.secret. There is no user
// database: operators mint tokens with `graylogic-dispatch token` and hand
// them to panels, scripts or the voice gateway. Each token carries a role,
// and roles map statically to permissions.
package auth
