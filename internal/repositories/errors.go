package repositories

import "errors"

// Repository errors
var (
	ErrCardNotFound     = errors.New("card not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrTransferNotFound = errors.New("transfer not found")
	ErrDuplicateCard    = errors.New("card already exists for this owner")
	ErrDuplicateUser    = errors.New("username or email already in use")
)
