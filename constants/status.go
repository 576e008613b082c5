package constants

// ModelOutcome is the status carried by every model invocation result.
type ModelOutcome string

// Stable values, safe to persist or expose downstream.
const (
	OutcomeStructured ModelOutcome = "STRUCTURED" // parsed JSON value
	OutcomeRawText    ModelOutcome = "RAW_TEXT"   // output produced but not parseable
	OutcomeFailed     ModelOutcome = "FAILED"     // every attempt failed to produce output
)

// Provenance records how text was obtained from a document.
type Provenance string

const (
	ProvenanceNative Provenance = "native"
	ProvenanceOCR    Provenance = "ocr"
)

// Extraction methods reported alongside provenance.
const (
	MethodPDFText  = "pdf-text"
	MethodPDFOCR   = "pdf-ocr"
	MethodImageOCR = "image-ocr"
)
