// internal/app/system/limits/limits.go
package limits

// Request body size limits for upload endpoints.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxVoucherUpload is the maximum size for payment voucher uploads.
	MaxVoucherUpload = 20 << 20 // 20 MB

	// MaxFileUpload is the maximum size for generic file uploads.
	MaxFileUpload = 20 << 20 // 20 MB

	// MaxIconUpload is the maximum size for area icon uploads.
	MaxIconUpload = 5 << 20 // 5 MB
)
