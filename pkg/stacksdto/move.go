package stacksdto

// MoveEntry is one accepted move and the board it produced.
type MoveEntry struct {
	Move   string `json:"move"`
	State  string `json:"state"`
	Player string `json:"player"`
}
