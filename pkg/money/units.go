package money

import (
	"fmt"
	"strconv"
	"strings"
)

// ToUnits converts a human-readable amount string to minor units.
// The scale is the number of decimal places the deployment currency carries;
// "123.45" at scale 2 becomes 12345. String math only, no floats.
func ToUnits(amountStr string, scale int) (int64, error) {
	amountStr = strings.TrimSpace(amountStr)
	if amountStr == "" {
		return 0, fmt.Errorf("amount is required")
	}
	if strings.HasPrefix(amountStr, "-") {
		return 0, fmt.Errorf("amount cannot be negative")
	}

	parts := strings.Split(amountStr, ".")
	if len(parts) > 2 {
		return 0, fmt.Errorf("invalid amount format: %q", amountStr)
	}

	intPart := parts[0]
	if intPart == "" {
		intPart = "0"
	}

	decPart := ""
	if len(parts) > 1 {
		decPart = parts[1]
	}

	if len(decPart) > scale {
		return 0, fmt.Errorf("amount %q exceeds currency scale %d", amountStr, scale)
	}
	decPart = decPart + strings.Repeat("0", scale-len(decPart))

	combined := strings.TrimLeft(intPart+decPart, "0")
	if combined == "" {
		combined = "0"
	}

	units, err := strconv.ParseInt(combined, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount format: %q", amountStr)
	}

	return units, nil
}

// FromUnits converts minor units to a human-readable string.
// 12345 at scale 2 becomes "123.45"; trailing fraction zeros are kept so
// responses are stable ("120.00", not "120").
func FromUnits(units int64, scale int) string {
	neg := units < 0
	if neg {
		units = -units
	}

	str := strconv.FormatInt(units, 10)
	if scale > 0 {
		for len(str) <= scale {
			str = "0" + str
		}
		pos := len(str) - scale
		str = str[:pos] + "." + str[pos:]
	}

	if neg {
		str = "-" + str
	}
	return str
}
