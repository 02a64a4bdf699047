package util

import "fmt"

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatSize renders a byte count with binary units and up to three decimals,
// dropping trailing zeros.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	exp := 0
	div := int64(1)
	for size/div >= unit && exp < len(sizeUnits)-1 {
		div *= unit
		exp++
	}

	value := size / div
	remainder := size % div
	if remainder == 0 {
		return fmt.Sprintf("%d %s", value, sizeUnits[exp])
	}

	// three decimals in integer arithmetic; remainder < 2^50 so this cannot overflow
	decimal := remainder * 1000 / div
	switch {
	case decimal%10 != 0:
		return fmt.Sprintf("%d.%03d %s", value, decimal, sizeUnits[exp])
	case decimal%100 != 0:
		return fmt.Sprintf("%d.%02d %s", value, decimal/10, sizeUnits[exp])
	default:
		return fmt.Sprintf("%d.%d %s", value, decimal/100, sizeUnits[exp])
	}
}
