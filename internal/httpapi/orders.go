package httpapi

import (
	"net/http"

	"github.com/bookhaven/bookorders/internal/orders"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// OrdersAPI exposes the order endpoints, delegating each operation to its
// own handler.
type OrdersAPI struct {
	create *orders.CreateOrderHandler
	get    *orders.GetOrderHandler
	list   *orders.ListOrdersHandler
	update *orders.UpdateOrderHandler
	delete *orders.DeleteOrderHandler
	log    *zap.Logger
}

// NewOrdersAPI creates the order API from its operation handlers.
func NewOrdersAPI(create *orders.CreateOrderHandler, get *orders.GetOrderHandler, list *orders.ListOrdersHandler, update *orders.UpdateOrderHandler, del *orders.DeleteOrderHandler, log *zap.Logger) *OrdersAPI {
	return &OrdersAPI{create: create, get: get, list: list, update: update, delete: del, log: log}
}

// Register mounts the order routes on r.
func (api *OrdersAPI) Register(r *mux.Router) {
	r.HandleFunc("/api/orders", api.handleList).Methods(http.MethodGet)
	r.HandleFunc("/api/orders", api.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/api/orders/{id}", api.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/api/orders/{id}", api.handleUpdate).Methods(http.MethodPut)
	r.HandleFunc("/api/orders/{id}", api.handleDelete).Methods(http.MethodDelete)
}

func (api *OrdersAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req orders.CreateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, api.log, err)
		return
	}

	profile, err := api.create.Handle(r.Context(), CorrelationID(r), &req)
	if err != nil {
		writeError(w, r, api.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

func (api *OrdersAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	profile, err := api.get.Handle(r.Context(), CorrelationID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, api.log, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (api *OrdersAPI) handleList(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	query := orders.ListOrdersQuery{
		Category:   readString(qs, "category", ""),
		Author:     readString(qs, "author", ""),
		SortBy:     readString(qs, "sort", ""),
		Descending: readBool(qs, "desc", false),
		Page:       readInt(qs, "page", 1),
		PageSize:   readInt(qs, "page_size", 10),
	}
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize < 1 || query.PageSize > 100 {
		query.PageSize = 10
	}

	profiles, total, err := api.list.Handle(r.Context(), CorrelationID(r), query)
	if err != nil {
		writeError(w, r, api.log, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Items:      profiles,
		Page:       query.Page,
		PageSize:   query.PageSize,
		Total:      total,
		TotalPages: totalPages(total, query.PageSize),
	})
}

func (api *OrdersAPI) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req orders.UpdateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, api.log, err)
		return
	}

	profile, err := api.update.Handle(r.Context(), CorrelationID(r), mux.Vars(r)["id"], &req)
	if err != nil {
		writeError(w, r, api.log, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (api *OrdersAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := api.delete.Handle(r.Context(), CorrelationID(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, api.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
