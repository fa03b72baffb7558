package models

import "time"

// Report is a cleaned report text as received for analysis
type Report struct {
	ID            string    `json:"id"`
	Source        string    `json:"source"` // upload filename or "text"
	RawText       string    `json:"raw_text"`
	IsBloodReport bool      `json:"is_blood_report"`
	CreatedAt     time.Time `json:"created_at"`
}

// Analysis is one persisted specialist result for a report
type Analysis struct {
	ID        string           `json:"id"`
	ReportID  string           `json:"report_id" badgerhold:"index"`
	Agent     string           `json:"agent"`
	Payload   SpecialistResult `json:"payload"`
	CreatedAt time.Time        `json:"created_at"`
}

// FinalReport is the persisted aggregate for a report
type FinalReport struct {
	ReportID  string           `json:"report_id"`
	Payload   AggregatedReport `json:"payload"`
	CreatedAt time.Time        `json:"created_at"`
}
