package model

// Identity is a verified caller: the result of one successful token review.
// It is produced once per request session and never mutated afterward.
type Identity struct {
	Username string   `json:"username"`
	Groups   []string `json:"groups"`
}
