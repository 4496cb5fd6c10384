package handlers

import "net/http"

// Views rendered by the auth surface.
const (
	ViewLogin     = "login"
	ViewRegister  = "register"
	ViewDashboard = "dashboard"
)

// ViewData is everything a view needs to render.
type ViewData struct {
	Flashes  []Flash           `json:"flashes"`
	Username string            `json:"username,omitempty"`
	Form     map[string]string `json:"form,omitempty"`
}

// ViewRenderer renders the auth pages. HTML templates live outside this
// service and plug in here.
type ViewRenderer interface {
	Render(w http.ResponseWriter, status int, view string, data ViewData)
}

// JSONRenderer renders views as JSON documents.
type JSONRenderer struct{}

// Render writes {"view": ..., "flashes": [...], ...}.
func (JSONRenderer) Render(w http.ResponseWriter, status int, view string, data ViewData) {
	if data.Flashes == nil {
		data.Flashes = []Flash{}
	}
	writeJSON(w, status, struct {
		View string `json:"view"`
		ViewData
	}{View: view, ViewData: data})
}
