package api

// StatusResponse is the payload for GET /.
type StatusResponse struct {
	Status string `json:"status"`
}

// errorResponse is a generic JSON error body. Details lists schema
// violations for rejected query bodies.
type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}
