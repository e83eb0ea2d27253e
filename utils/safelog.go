// utils/safelog.go
// ============================================================================
// SAFE LOGGING - masks personal and financial data in production
// ============================================================================

package utils

import (
	"fmt"
	"log"
	"os"
	"regexp"
)

// IsProduction controls masking. In production, emails, UUIDs and amounts
// are redacted before hitting the logs.
var IsProduction = os.Getenv("GIN_MODE") == "release" ||
	os.Getenv("ENVIRONMENT") == "production"

var (
	emailRegex  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	uuidRegex   = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	amountRegex = regexp.MustCompile(`\b\d{2,}([.,]\d{1,2})?\s*(€|EUR|USD|\$)\b`)
)

func maskSensitive(msg string) string {
	if !IsProduction {
		return msg
	}
	msg = emailRegex.ReplaceAllStringFunc(msg, func(m string) string {
		if len(m) < 3 {
			return "***"
		}
		return m[:2] + "***"
	})
	msg = uuidRegex.ReplaceAllStringFunc(msg, func(m string) string {
		return m[:8] + "-****"
	})
	msg = amountRegex.ReplaceAllString(msg, "[amount]")
	return msg
}

// SafeLogf is Printf with sensitive-data masking applied in production.
func SafeLogf(format string, args ...interface{}) {
	log.Print(maskSensitive(fmt.Sprintf(format, args...)))
}
