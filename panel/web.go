package panel

import (
	"embed"
	"html/template"
	"log"
	"net/http"

	"imagegen/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type pageData struct {
	Form        Form
	View        View
	Prompt      string
	Notice      string
	Alert       string
	AuthEnabled bool
}

// Web serves the panel pages.
type Web struct {
	Controller *Controller
	Auth       *middleware.SessionAuth
}

// Register mounts the panel routes on mux.
func (h *Web) Register(mux *http.ServeMux) {
	protect := func(fn http.HandlerFunc) http.Handler {
		if h.Auth == nil {
			return fn
		}
		return h.Auth.Middleware(fn)
	}
	mux.Handle("GET /{$}", protect(h.index))
	mux.Handle("POST /settings", protect(h.saveSettings))
	mux.Handle("POST /generate-image", protect(h.generate))
	mux.Handle("POST /models/refresh", protect(h.refreshModels))
	mux.HandleFunc("GET /login", h.loginPage)
	mux.HandleFunc("POST /login", h.login)
	mux.HandleFunc("POST /logout", h.logout)
}

func (h *Web) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("Error rendering %s: %v", name, err)
	}
}

func (h *Web) page(data pageData) pageData {
	data.Form = h.Controller.Load()
	data.AuthEnabled = h.Auth != nil && h.Auth.Enabled()
	return data
}

func (h *Web) index(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "panel.html", h.page(pageData{}))
}

func (h *Web) saveSettings(w http.ResponseWriter, r *http.Request) {
	notice, err := h.Controller.Save(r.FormValue("apiKey"), r.FormValue("model"))
	data, status := pageData{Notice: notice}, http.StatusOK
	if err != nil {
		data.Alert, status = err.Error(), http.StatusBadRequest
	}
	h.render(w, status, "panel.html", h.page(data))
}

func (h *Web) generate(w http.ResponseWriter, r *http.Request) {
	prompt := r.FormValue("prompt")
	view := h.Controller.Generate(r.Context(), prompt)
	h.render(w, http.StatusOK, "panel.html", h.page(pageData{View: view, Prompt: prompt, Alert: view.Alert}))
}

func (h *Web) refreshModels(w http.ResponseWriter, r *http.Request) {
	data := pageData{}
	if err := h.Controller.RefreshModels(r.Context()); err != nil {
		middleware.Logf(r.Context(), "Error refreshing models: %v", err)
		data.Alert = "Could not load models: " + err.Error()
	} else {
		data.Notice = "Models updated."
	}
	h.render(w, http.StatusOK, "panel.html", h.page(data))
}

func (h *Web) loginPage(w http.ResponseWriter, r *http.Request) {
	if h.Auth == nil || !h.Auth.Enabled() {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.render(w, http.StatusOK, "login.html", pageData{})
}

func (h *Web) login(w http.ResponseWriter, r *http.Request) {
	if h.Auth == nil || !h.Auth.Enabled() {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if !h.Auth.Login(w, r, r.FormValue("password")) {
		h.render(w, http.StatusUnauthorized, "login.html", pageData{Alert: "Invalid password"})
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Web) logout(w http.ResponseWriter, r *http.Request) {
	if h.Auth != nil {
		h.Auth.Logout(w, r)
	}
	http.Redirect(w, r, h.loginPath(), http.StatusFound)
}

func (h *Web) loginPath() string {
	if h.Auth == nil || !h.Auth.Enabled() {
		return "/"
	}
	return h.Auth.LoginPath
}
