package records

// MatchCandidate is a proposed target for one source record.
type MatchCandidate struct {
	TargetID   string  `json:"target_id" yaml:"target_id"`
	TargetName string  `json:"target_name" yaml:"target_name"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Method     Method  `json:"method" yaml:"method"`
	Reason     string  `json:"reason" yaml:"reason"`
}

// SuggestedMatch is a MatchCandidate bound to a specific source record.
// It is the unit accepted or rejected by a user or by bulk apply.
type SuggestedMatch struct {
	SourceID   string         `json:"source_id" yaml:"source_id"`
	SourceName string         `json:"source_name" yaml:"source_name"`
	Candidate  MatchCandidate `json:"candidate" yaml:"candidate"`
}
