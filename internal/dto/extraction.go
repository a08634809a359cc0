package dto

// ExtractionResult is the parsed output of a transcript extraction run.
// TotalSKS and IPK are computed server side from the extracted rows so
// the client can preview the summary before attaching the courses.
type ExtractionResult struct {
	Courses        []ExtractedCourse `json:"courses"`
	TotalSKS       int               `json:"totalSks"`
	IPK            float64           `json:"ipk"`
	TranscriptPath string            `json:"transcriptPath"`
}
