// Package api exposes the order service over HTTP.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/otel/trace"

	"orderflow/pkg/logger"
	"orderflow/pkg/metrics"
	"orderflow/pkg/order"
	"orderflow/pkg/route"
)

// Config carries the collaborators of the HTTP layer. Only Service is
// required.
type Config struct {
	Service *order.Service
	Log     *logger.Logger
	Tracer  trace.Tracer
	Metrics *metrics.Metrics
}

// API serves the order endpoints.
type API struct {
	svc     *order.Service
	log     *logger.Logger
	tracer  trace.Tracer
	metrics *metrics.Metrics
}

// New returns an API; a nil Log discards log output and a nil Metrics
// disables /metrics.
func New(cfg Config) *API {
	a := &API{
		svc:     cfg.Service,
		log:     cfg.Log,
		tracer:  cfg.Tracer,
		metrics: cfg.Metrics,
	}
	if a.log == nil {
		a.log = logger.NewNop()
	}
	return a
}

// Handler builds the router wrapped in the middleware chain.
func (a *API) Handler() http.Handler {
	r := mux.NewRouter().SkipClean(true)
	// Everything mux does not serve itself is resolved by route.Match, so an
	// unknown path is a malformed request rather than a missing resource.
	r.NotFoundHandler = http.HandlerFunc(a.dispatch)
	r.MethodNotAllowedHandler = http.HandlerFunc(a.methodNotAllowed)
	r.Use(labelRoute)

	r.HandleFunc("/health", a.health).Methods(http.MethodGet)
	if a.metrics != nil {
		r.Handle("/metrics", a.metrics.Handler()).Methods(http.MethodGet)
	}
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	var h http.Handler = r
	h = CORS(h)
	h = a.observe(h)
	h = RequestID(h)
	h = a.traceMiddleware(h)
	h = a.recoverPanics(h)
	return h
}

func (a *API) dispatch(w http.ResponseWriter, r *http.Request) {
	rt, err := route.Match(r.Method, r.URL.Path)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	setRouteLabel(r.Context(), rt.Pattern)

	switch rt.Op {
	case route.ListOrders:
		a.listOrdersHandler(w, r)
	case route.CreateOrder:
		a.createOrderHandler(w, r)
	case route.FindOrder:
		a.getOrderHandler(w, r, rt.ID)
	case route.UpdateOrderStatus:
		a.updateOrderHandler(w, r, rt.ID)
	case route.DeleteOrder:
		a.deleteOrderHandler(w, r, rt.ID)
	case route.ListItems:
		a.listItemsHandler(w, r, rt.ID)
	case route.AddItem:
		a.addItemHandler(w, r, rt.ID)
	case route.ConfirmOrder:
		a.confirmOrderHandler(w, r, rt.ID)
	case route.CancelOrder:
		a.cancelOrderHandler(w, r, rt.ID)
	case route.DeleteItem:
		a.deleteItemHandler(w, r, rt.ID)
	}
}

func (a *API) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeProblem(w, ProblemDetail{
		Type:     typeMethodNotAllowed,
		Title:    "Method Not Allowed",
		Status:   http.StatusMethodNotAllowed,
		Detail:   r.Method + " is not supported on " + r.URL.Path,
		Instance: r.URL.Path,
	})
}

// health reports liveness.
// @Summary Health check
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (a *API) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "OK", Message: "API is running"})
}
