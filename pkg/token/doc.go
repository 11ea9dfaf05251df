// Package token provides session id and secret generation.
//
// Session ID Format:
//
//   - Prefix: ssid- (5 characters)
//   - Body: 26 characters of lowercase Crockford base32 ULID
//   - Total: 31 characters
//
// ULIDs sort by creation time, which keeps storage listings and logs in mint order.
// Entropy comes from crypto/rand through a monotonic source, so ids minted in the same
// millisecond are still distinct.
//
// Secrets are Base64 RawURL encoded random bytes, suitable as the application secret
// passed to the crypt provider.
package token
