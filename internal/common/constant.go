// Package common contains shared constants, sentinel errors and small helpers
// used across sessionkeeper components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound calls.
const AccessTokenHeaderName = "access_token"

// RefreshTokenCookieName is the name of the HTTP-only cookie that carries
// the refresh token between the browser and the server.
const RefreshTokenCookieName = "refreshToken"
