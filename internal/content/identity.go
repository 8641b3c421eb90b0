package content

import (
	"crypto/sha256"

	"github.com/google/uuid"
)

// SlugToUUID maps a slug to a stable UUID-shaped id: the first 16 bytes of its sha256.
// Seeding the same slug twice yields the same id.
func SlugToUUID(slug string) string {
	sum := sha256.Sum256([]byte(slug))
	id, err := uuid.FromBytes(sum[:16])
	if err != nil {
		// unreachable, FromBytes only fails on a length other than 16
		panic(err)
	}
	return id.String()
}

func NewPostID() string {
	return uuid.NewString()
}
