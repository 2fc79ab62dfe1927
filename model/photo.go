package model

// RawImage is an upload as received at the HTTP boundary.
type RawImage struct {
	Data     []byte
	MIMEType string
	Filename string
}

// ProcessingResult is the outcome of one passport photo request. Exactly one
// of Image or Error is set.
type ProcessingResult struct {
	Success bool   `json:"success"`
	Image   string `json:"image,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	// BackgroundRemoved reports whether the cutout path produced the image.
	BackgroundRemoved bool `json:"-"`
}

// SheetRequest asks for copies of a finished photo tiled onto a print sheet.
type SheetRequest struct {
	Image string `json:"image" validate:"required,datauri"`
	Count int    `json:"count" validate:"required,min=1"`
}

// SheetResponse carries the rendered sheet as a data URI.
type SheetResponse struct {
	Success bool   `json:"success"`
	Image   string `json:"image"`
	Count   int    `json:"count"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
