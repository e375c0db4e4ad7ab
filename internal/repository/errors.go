package repository

import "errors"

var (
	ErrMailboxNotFound = errors.New("mailbox not found")
	ErrThreadNotFound  = errors.New("thread not found")
	ErrBounceNotFound  = errors.New("bounce aggregate not found")
	ErrInvalidInput    = errors.New("invalid input parameters")
)
