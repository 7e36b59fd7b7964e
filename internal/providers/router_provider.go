package providers

import (
	"crewboard/internal/structures"
	"net/http"
)

type RouterProviderInterface interface {
	Get(url string, handler http.Handler)
	Post(url string, handler http.Handler)
	Stream(url string, handler http.Handler)
	GetRoutes() []structures.Route
}

type RouterProvider struct {
	routes []structures.Route
}

func (rp *RouterProvider) Get(url string, handler http.Handler) {
	rp.add(url, http.MethodGet, handler, false)
}

func (rp *RouterProvider) Post(url string, handler http.Handler) {
	rp.add(url, http.MethodPost, handler, false)
}

// Stream registers a long-lived GET route, e.g. server-sent events.
func (rp *RouterProvider) Stream(url string, handler http.Handler) {
	rp.add(url, http.MethodGet, handler, true)
}

func (rp *RouterProvider) add(url, method string, handler http.Handler, streaming bool) {
	rp.routes = append(rp.routes, structures.Route{
		Url:       url,
		Handler:   methodHandler(method, handler),
		Streaming: streaming,
	})
}

func (rp *RouterProvider) GetRoutes() []structures.Route {
	return rp.routes
}

func NewRouterProvider() RouterProviderInterface {
	return &RouterProvider{}
}

func methodHandler(method string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
