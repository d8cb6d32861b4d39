package domain

// Connection is a directed edge between two components. Ports identify which
// logical output/input slot is used (a 2-input AND gate has toPort 0 and 1).
type Connection struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	To       string `json:"to"`
	FromPort int    `json:"fromPort"`
	ToPort   int    `json:"toPort"`
}
