package uid

import "github.com/google/uuid"

// MaxRequestIDLength bounds caller supplied request ids.
const MaxRequestIDLength = 128

// New generates a new unique identifier.
func New() string {
	return uuid.New().String()
}

// IsValid checks if a string is a valid UUID.
func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// RequestID returns incoming if it is a usable request id and a fresh
// identifier otherwise. Usable ids are non-empty printable ASCII.
func RequestID(incoming string) string {
	if incoming == "" || len(incoming) > MaxRequestIDLength {
		return New()
	}
	for i := 0; i < len(incoming); i++ {
		if c := incoming[i]; c < 0x21 || c > 0x7e {
			return New()
		}
	}
	return incoming
}
