package core

// Summary contains aggregated test counts for a run.
type Summary struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Error   int `json:"error"`
	Unknown int `json:"unknown"`
	Pending int `json:"pending"` // Queued, running or suspended
}

// Add counts one test with the given status.
func (s *Summary) Add(status TestStatus) {
	s.Total++
	switch status {
	case StatusSuccess:
		s.Success++
	case StatusError:
		s.Error++
	case StatusUnknown:
		s.Unknown++
	default:
		s.Pending++
	}
}

// Passed reports whether every counted test succeeded.
func (s Summary) Passed() bool {
	return s.Total > 0 && s.Success == s.Total
}
