package model

// Credits is a derived balance; it is never stored.
type Credits struct {
	Total int `json:"total_credits"`
	Used  int `json:"used_credits"`
	Left  int `json:"left_credits"`
}
