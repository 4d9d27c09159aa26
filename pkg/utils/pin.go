package utils

// ValidatePIN checks that a lock PIN is exactly six ASCII digits.
func ValidatePIN(pin string) bool {
	if len(pin) != 6 {
		return false
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return false
		}
	}
	return true
}
