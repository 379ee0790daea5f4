package utils

import (
	"fmt"
	"math"
)

// FormatFileSize renders a byte count as a rounded human-readable size,
// e.g. 5242880 -> "5 MB". Used in quota error messages shown to users.
func FormatFileSize(bytes int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}

	size := float64(bytes)
	unit := 0
	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}

	return fmt.Sprintf("%d %s", int64(math.Round(size)), units[unit])
}
