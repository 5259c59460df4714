package models

// Encryption parameters for optional at-rest encryption of contact and
// message data.
const (
	NonceSize  = 12
	KeySize    = 32
	Iterations = 100000
)
