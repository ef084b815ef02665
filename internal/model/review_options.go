package model

// ReviewOptions is the set of named flags controlling what a principal may
// see when reviewing an attempt. Combined across attempts with per-field
// OR ("visible in some attempt") and AND ("visible in every attempt").
type ReviewOptions struct {
	Attempt          bool `json:"attempt"`
	Correctness      bool `json:"correctness"`
	Marks            bool `json:"marks"`
	SpecificFeedback bool `json:"specific_feedback"`
	GeneralFeedback  bool `json:"general_feedback"`
	RightAnswer      bool `json:"right_answer"`
	OverallFeedback  bool `json:"overall_feedback"`
}
