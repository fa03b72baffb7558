package common

import (
	"github.com/google/uuid"
)

// NewReportID generates a unique report ID with the "rpt_" prefix
// Format: rpt_<uuid>
func NewReportID() string {
	return "rpt_" + uuid.New().String()
}

// NewAnalysisID generates a unique analysis ID with the "ana_" prefix
func NewAnalysisID() string {
	return "ana_" + uuid.New().String()
}

// NewSessionID generates a bare uuid for chat sessions
func NewSessionID() string {
	return uuid.New().String()
}
