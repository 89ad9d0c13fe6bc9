package activitypub

import "errors"

// Taxonomy of federation failures. Storage-level not-found and
// conflict conditions surface as keyvalue.ErrNotFound and
// keyvalue.ErrExists respectively.
var (
	// ErrAuthentication covers missing, malformed, unverifiable or
	// stale request signatures, including unresolvable public keys.
	ErrAuthentication = errors.New("request signature verification failed")

	// ErrAuthorization means the request was validly signed but the
	// signer may not act on the target actor's inbox.
	ErrAuthorization = errors.New("not allowed")

	// ErrConsistency means the activity's claimed actor does not match
	// the cryptographically verified signer. A hard ingestion failure,
	// not an authentication failure: the request itself was validly
	// signed.
	ErrConsistency = errors.New("activity actor does not match signer")
)
