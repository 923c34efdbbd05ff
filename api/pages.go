/*
pages.go - Server-rendered pages

PURPOSE:
  The public client page, the admin login form, and the two admin pages.
  Pages are deliberately plain; the admin panel's dynamic behavior talks to
  the JSON endpoints in handlers.go.

ROUTES:
  GET  /client/{code}     Public status page (404 text on unknown code)
  GET  /admin             Login form (redirects to dashboard when signed in)
  POST /admin             Login; sets session cookie, 303 to dashboard
  GET  /admin/logout      Clears session, redirects to /admin
  GET  /admin/dashboard   Clients and step catalog
  GET  /admin/manage      Enable-step form
  POST /admin/manage      Enables a step for a client, 303 back

SEE ALSO:
  - session.go: Session cookie and page gate
*/
package api

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Mgdadali/249-subsite/tracking"
)

// =============================================================================
// TEMPLATES
// =============================================================================

const pageLayout = `{{define "top"}}<!DOCTYPE html>
<html dir="auto">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 40px auto; padding: 20px;">
{{if .Admin}}<p><a href="/admin/dashboard">Dashboard</a> | <a href="/admin/manage">Manage</a> | <a href="/admin/logout">Sign out ({{.Admin}})</a></p>{{end}}
<h1>{{.Title}}</h1>
{{if .Error}}<p style="color:#c00">{{.Error}}</p>{{end}}
{{end}}
{{define "bottom"}}</body></html>{{end}}`

var pages = template.Must(template.New("layout").Parse(pageLayout + `
{{define "client"}}{{template "top" .}}
<p>{{.Status.Client.Name}} · {{.Status.Client.Service}}</p>
<p>Tracking code: <code>{{.Status.Client.Code}}</code></p>
{{if .Status.Checklist}}<ol>
{{range .Status.Checklist}}<li>{{if .Done}}&#10003;{{else}}&#9675;{{end}} {{.Name}}</li>
{{end}}</ol>{{else}}<p>No steps yet.</p>{{end}}
{{template "bottom" .}}{{end}}

{{define "login"}}{{template "top" .}}
<form method="post" action="/admin">
<p><input name="username" placeholder="Username" value="{{.Username}}" autocomplete="username"></p>
<p><input name="password" type="password" placeholder="Password" autocomplete="current-password"></p>
<p><button type="submit">Sign in</button></p>
</form>
{{template "bottom" .}}{{end}}

{{define "dashboard"}}{{template "top" .}}
<h2>Clients</h2>
{{if .Clients}}<table>
<tr><th>Code</th><th>Name</th><th>Service</th></tr>
{{range .Clients}}<tr><td><a href="/client/{{.Code}}"><code>{{.Code}}</code></a></td><td>{{.Name}}</td><td>{{.Service}}</td></tr>
{{end}}</table>{{else}}<p>No clients yet.</p>{{end}}
<h2>Steps</h2>
{{if .Steps}}<ol>{{range .Steps}}<li>{{.}}</li>{{end}}</ol>{{else}}<p>No steps yet.</p>{{end}}
{{template "bottom" .}}{{end}}

{{define "manage"}}{{template "top" .}}
<form method="post" action="/admin/manage">
<p><select name="code">{{range .Clients}}<option value="{{.Code}}">{{.Name}} ({{.Code}})</option>{{end}}</select></p>
<p><select name="step">{{range .Steps}}<option>{{.}}</option>{{end}}</select></p>
<p><button type="submit">Enable step</button></p>
</form>
{{template "bottom" .}}{{end}}
`))

type pageData struct {
	Title    string
	Admin    string
	Error    string
	Username string
	Status   tracking.ClientStatus
	Clients  []tracking.Client
	Steps    []string
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		h.Logger.Error("render page", zap.String("page", name), zap.String("path", r.URL.Path), zap.Error(err))
	}
}

// =============================================================================
// PUBLIC PAGES
// =============================================================================

// ClientPage renders a client's status.
// GET /client/{code}
func (h *Handler) ClientPage(w http.ResponseWriter, r *http.Request) {
	status, err := h.Service.Track(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "client", pageData{Title: "Order status", Status: status})
}

// =============================================================================
// LOGIN
// =============================================================================

// LoginPage renders the login form.
// GET /admin
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Sessions.Admin(r); ok {
		http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "login", pageData{Title: "Admin sign in"})
}

// Login checks credentials and starts a session.
// POST /admin
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "login", pageData{Title: "Admin sign in", Error: "invalid form"})
		return
	}
	username := r.PostForm.Get("username")
	admin, err := h.Service.Authenticate(r.Context(), username, r.PostForm.Get("password"))
	if err != nil {
		status := http.StatusUnauthorized
		message := "invalid username or password"
		switch tracking.KindOf(err) {
		case tracking.KindValidation:
			status, message = http.StatusBadRequest, err.Error()
		case tracking.KindStorageUnavailable, tracking.KindInternal:
			h.fail(w, r, err)
			return
		}
		h.render(w, r, status, "login", pageData{Title: "Admin sign in", Error: message, Username: username})
		return
	}

	if err := h.Sessions.Issue(w, r, admin.Username); err != nil {
		h.fail(w, r, err)
		return
	}
	h.Logger.Info("admin signed in", zap.String("username", admin.Username))
	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

// Logout ends the session.
// GET /admin/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Clear(w)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// =============================================================================
// ADMIN PAGES
// =============================================================================

// Dashboard lists clients and the step catalog.
// GET /admin/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data, err := h.adminData(r, "Dashboard")
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "dashboard", data)
}

// ManagePage renders the enable-step form.
// GET /admin/manage
func (h *Handler) ManagePage(w http.ResponseWriter, r *http.Request) {
	data, err := h.adminData(r, "Manage steps")
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "manage", data)
}

// Manage enables a step for a client from the form.
// POST /admin/manage
func (h *Handler) Manage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pageError(w, r, &tracking.ValidationError{Field: "form", Message: "invalid form"})
		return
	}
	err := h.Service.EnableStep(r.Context(), r.PostForm.Get("code"), r.PostForm.Get("step"))
	if err != nil {
		data, derr := h.adminData(r, "Manage steps")
		if derr != nil {
			h.pageError(w, r, derr)
			return
		}
		if statusOf(err) >= http.StatusInternalServerError {
			h.pageError(w, r, err)
			return
		}
		data.Error = err.Error()
		h.render(w, r, statusOf(err), "manage", data)
		return
	}
	http.Redirect(w, r, "/admin/manage", http.StatusSeeOther)
}

func (h *Handler) adminData(r *http.Request, title string) (pageData, error) {
	clients, err := h.Service.ListClients(r.Context())
	if err != nil {
		return pageData{}, err
	}
	steps, err := h.Service.ListSteps(r.Context())
	if err != nil {
		return pageData{}, err
	}
	return pageData{
		Title:   title,
		Admin:   AdminFromContext(r.Context()),
		Clients: clients,
		Steps:   steps,
	}, nil
}

// pageError answers page routes with plain text.
func (h *Handler) pageError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	switch {
	case status == http.StatusNotFound:
		http.Error(w, "Tracking code not found", status)
	case status >= http.StatusInternalServerError:
		h.Logger.Error("page failed", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "Service temporarily unavailable", status)
	default:
		http.Error(w, err.Error(), status)
	}
}
