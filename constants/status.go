package constants

// JobStatus is the canonical status for rows in extract_job.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusOCROK   JobStatus = "OCR_OK" // stage 1 completed (text recovered)
	JobStatusParsed  JobStatus = "PARSED" // stage 2 completed (fields extracted)
	JobStatusFailed  JobStatus = "FAILED" // terminal failure
)

// TextSource says where recovered text came from.
type TextSource string

const (
	TextSourceNative TextSource = "native"
	TextSourceOCR    TextSource = "ocr"
	TextSourceNone   TextSource = ""
)
