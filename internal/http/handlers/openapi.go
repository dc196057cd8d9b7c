package handlers

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"

	"storefront/internal/domain"
)

//go:embed openapi.json
var openAPISpec []byte

var docsTmpl = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>Revive My Photo API</title>
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <style>
      body { margin: 0; padding: 0; font-family: sans-serif; }
      .status { padding: 8px 16px; background: #f4f1ea; font-size: 14px; }
      .status span { margin-right: 12px; }
      redoc { display: block; height: calc(100vh - 36px); }
    </style>
  </head>
  <body>
    <div class="status">
      <strong>{{.Env}}</strong>
      {{range .Capabilities}}<span>{{.Name}}: {{if .On}}live{{else}}demo{{end}}</span>{{end}}
      <a href="/api/config">client config</a> &middot; <a href="/v1/healthz">health</a>
    </div>
    <redoc spec-url="/v1/openapi.json"></redoc>
    <script src="https://cdn.jsdelivr.net/npm/redoc@2.2.0/bundles/redoc.standalone.js"></script>
  </body>
</html>`))

type docsCapability struct {
	Name string
	On   bool
}

func (a *App) OpenAPIJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPISpec)
}

// OpenAPIDocs renders Redoc with a banner showing which collaborators are
// live and which run in demo mode.
func (a *App) OpenAPIDocs(w http.ResponseWriter, r *http.Request) {
	caps := a.Config.Capabilities
	var buf bytes.Buffer
	err := docsTmpl.Execute(&buf, map[string]any{
		"Env": a.Config.AppEnv,
		"Capabilities": []docsCapability{
			{Name: "inference", On: caps.InferenceEnabled},
			{Name: "payments", On: caps.PaymentsEnabled},
			{Name: "email", On: caps.EmailEnabled},
			{Name: "blob", On: caps.BlobEnabled},
			{Name: "ledger", On: caps.LedgerEnabled},
		},
	})
	if err != nil {
		a.log(r).Error().Err(err).Msg("render docs page")
		a.error(w, http.StatusInternalServerError, domain.KindUnknown, "failed to render docs")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
