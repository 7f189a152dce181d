package repositories

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrNotFound is returned (wrapped) by every backend when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

func isFirestoreNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
