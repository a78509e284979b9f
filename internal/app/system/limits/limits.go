// internal/app/system/limits/limits.go
package limits

// Request body size limits.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxJSONBodySize caps every JSON request body.
	MaxJSONBodySize = 1 << 20 // 1 MB

	// MaxICPItemLen is the longest accepted Ideal Customer Profile entry.
	MaxICPItemLen = 500
)
