package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"promovid/internal/http/handlers"
	"promovid/internal/middleware"
)

// Options carries router wiring that is not part of the handler container.
type Options struct {
	AllowedOrigins []string
	UploadDir      string
	VideoDir       string
}

// NewRouter wires middleware, API routes and the static file servers for
// uploaded images and cached videos.
func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Get("/health", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", app.Upload)
		r.Post("/generate", app.Generate)
		r.Post("/generate/continue", app.Continue)
		r.Post("/auto-prompt", app.AutoPrompt)
		r.Get("/status/{id}", app.Status)
		r.Get("/jobs", app.ListJobs)
		r.Get("/jobs/archive", app.ArchiveJobs)
		r.Get("/styles", app.Styles)
	})

	r.Handle("/uploads/*", stdhttp.StripPrefix("/uploads/", stdhttp.FileServer(stdhttp.Dir(opts.UploadDir))))
	r.Handle("/videos/*", stdhttp.StripPrefix("/videos/", stdhttp.FileServer(stdhttp.Dir(opts.VideoDir))))

	return r
}
