package domain

// MaxSelectedFrames bounds how many frames the selection step may choose.
const MaxSelectedFrames = 5

// DefaultProductName labels the product when the model does not name it.
const DefaultProductName = "Product"

// Selection is the outcome of the frame selection call.
type Selection struct {
	ProductName string
	Indices     []int
}

// SegmentationOutcome holds the cut-out produced for one selected frame.
// Segmented is nil when the call for that frame failed.
type SegmentationOutcome struct {
	SourceIndex int
	Original    Image
	Segmented   *Image
}

// EnhancementOutcome holds the studio render for one segmented frame.
// Fallback is set when Enhanced is a copy of the segmented image.
type EnhancementOutcome struct {
	SourceIndex int
	Enhanced    Image
	Fallback    bool
}

// GeneratedView is the public before/after unit. Byte slices marshal to
// base64 strings.
type GeneratedView struct {
	OriginalFrame  []byte `json:"originalFrame"`
	SegmentedImage []byte `json:"segmentedImage"`
	EnhancedImage  []byte `json:"enhancedImage"`
}

// ProcessedData is the terminal pipeline output.
type ProcessedData struct {
	IdentifiedProduct string          `json:"identifiedProduct"`
	GeneratedViews    []GeneratedView `json:"generatedViews"`
}
