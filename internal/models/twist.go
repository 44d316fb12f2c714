package models

// Twist is a rule modifier chosen once per lobby.
type Twist struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
