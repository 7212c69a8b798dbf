package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")

	// Session errors
	ErrSessionNotFound = errors.New("game session not found")
	ErrSessionInactive = errors.New("game session is not active")
	ErrWrongPassword   = errors.New("wrong session password")
	ErrNotInSession    = errors.New("player is not in this session")

	// Item errors
	ErrItemNotFound   = errors.New("bingo item not found")
	ErrEmptyBody      = errors.New("item body must not be empty")
	ErrItemChecked    = errors.New("bingo item is already checked off")
	ErrNotEnoughItems = errors.New("not enough bingo items to fill a board")

	// Board errors
	ErrBoardNotFound = errors.New("bingo board not found")

	// Name errors
	ErrEmptyName = errors.New("names must not be empty")

	// Account errors
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("account name already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Invite errors
	ErrInviteNotFound = errors.New("invite not found")
	ErrInviteUsed     = errors.New("invite has already been used")
)
