package table

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "records-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/tables/{table}/records",
		Summary:     "List records in a collection",
		Tags:        []string{"records"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) createOp() huma.Operation {
	return huma.Operation{
		OperationID: "records-create",
		Method:      http.MethodPost,
		Path:        "/api/v1/tables/{table}/records",
		Summary:     "Create a record",
		Description: "Creates a record with an open field payload. Repeating an Idempotency-Key returns the record the first request created.",
		Tags:        []string{"records"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) getOp() huma.Operation {
	return huma.Operation{
		OperationID: "records-get",
		Method:      http.MethodGet,
		Path:        "/api/v1/tables/{table}/records/{id}",
		Summary:     "Get a record",
		Tags:        []string{"records"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) updateOp() huma.Operation {
	return huma.Operation{
		OperationID: "records-update",
		Method:      http.MethodPatch,
		Path:        "/api/v1/tables/{table}/records/{id}",
		Summary:     "Update a record",
		Description: "Merges the request payload into the stored record.",
		Tags:        []string{"records"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) deleteOp() huma.Operation {
	return huma.Operation{
		OperationID: "records-delete",
		Method:      http.MethodDelete,
		Path:        "/api/v1/tables/{table}/records/{id}",
		Summary:     "Delete a record",
		Tags:        []string{"records"},
		Middlewares: h.middleware,
	}
}
