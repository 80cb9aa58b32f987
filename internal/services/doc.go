// Package services defines the external collaborators consumed by the batch
// engine and implements them against the local proxies.
//
// # Extractor
//
// [HTTPExtractor] reads playlist metadata through the zero-cost extractor
// proxy. Reads consume none of the remote API's daily budget, so they are
// paced only by a local [rate.Limiter] and served from a TTL cache when one
// is attached.
//
// # Write client
//
// [HTTPWriteClient] issues the four costed operations (create/update
// playlist, insert/delete items). Every call is attributed to an identity
// whose credentials come from the [CredentialStore]. Non-2xx responses are
// decoded into [*APIError] carrying the HTTP status and the remote service's
// machine-readable reason string; the retry policy classifies these into
// retryable and terminal classes.
//
// # Credentials
//
// [FileCredentialStore] loads per-identity OAuth token JSON files and hands
// out opaque [Credential] handles. Token acquisition and refresh flows live
// outside this tool; the store only consumes their output.
package services
