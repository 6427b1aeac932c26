package tool

import "github.com/google/uuid"

// GenerateUUIDV7 returns a time-ordered id, so ids sort roughly by creation.
func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// IsUUID reports whether id is in canonical 36 character uuid form.
func IsUUID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
