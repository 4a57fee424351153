package core

import (
	"errors"
	"fmt"

	"github.com/segmentio/ksuid"
)

// ID is a KSUID string. IDs sort by creation time.
type ID string

func (c ID) String() string {
	return string(c)
}

func (c ID) IsZero() bool {
	return c == ""
}

func NewID() (ID, error) {
	id, err := ksuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return ID(id.String()), nil
}

// ParseID validates s as a run id typed by a user.
func ParseID(s string) (ID, error) {
	if s == "" {
		return "", errors.New("empty ID")
	}
	id, err := ksuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid ID format: %w", err)
	}
	return ID(id.String()), nil
}
