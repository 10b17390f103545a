package routes

import (
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mbolis/quick-form/app"
	"github.com/mbolis/quick-form/httpx"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(
		httpx.RequestID,
		middleware.RealIP,
		httpx.RequestLogger(app.Log),
		httpx.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins: app.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}),
	)
	root.NotFound(routeNotFound)
	root.MethodNotAllowed(routeNotFound)

	root.Mount("/api", apiRouter(app))

	if app.StaticDir != "" {
		root.Handle("/*", servePublicFiles(app.StaticDir))
	}

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()
	api.NotFound(routeNotFound)
	api.MethodNotAllowed(routeNotFound)

	api.Get("/health", Health)

	api.Route("/forms", func(r chi.Router) {
		r.NotFound(routeNotFound)
		r.MethodNotAllowed(routeNotFound)

		// CRUD form
		r.Get("/", ListForms(app))
		r.Post("/", CreateForm(app))
		r.Get(`/{id:^\d+$}`, GetForm(app))
		r.Put(`/{id:^\d+$}`, UpdateForm(app))
		r.Delete(`/{id:^\d+$}`, DeleteForm(app))

		// responses
		r.Post(`/{id:^\d+$}/responses`, SubmitResponse(app))
		r.Get(`/{id:^\d+$}/responses`, ListResponses(app))
		r.Get(`/responses/{id:^\d+$}`, GetResponse(app))
	})

	return api
}

func Health(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, r, http.StatusOK, map[string]any{
		"status":  "ok",
		"message": "Server is running",
	})
}

func routeNotFound(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, r, http.StatusNotFound, httpx.ErrorBody{Error: "Route not found"})
}

// servePublicFiles serves the client UI. Paths with no file behind them get
// the JSON 404 like any other unknown route.
func servePublicFiles(dir string) http.Handler {
	root := http.Dir(dir)
	files := http.FileServer(root)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, err := root.Open(path.Clean("/" + r.URL.Path))
		if err != nil {
			routeNotFound(w, r)
			return
		}
		f.Close()
		files.ServeHTTP(w, r)
	})
}
