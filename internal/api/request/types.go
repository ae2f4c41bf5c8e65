package request

// UpdateCaptionsRequest is the request body for replacing a page's captions
type UpdateCaptionsRequest struct {
	Captions []string `json:"captions"`
}
