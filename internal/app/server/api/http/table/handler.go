package table

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"roundkeeper/internal/domain/patient"
	"roundkeeper/internal/domain/row"
	"roundkeeper/internal/domain/todo"
)

type Handler struct {
	repo       row.Repository
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(repo row.Repository, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		repo:       repo,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.getOp(), h.get)
	huma.Register(api, h.updateOp(), h.update)
	huma.Register(api, h.deleteOp(), h.delete)
}

func (h *Handler) list(ctx context.Context, input *listInput) (*listOutput, error) {
	rows, err := h.repo.List(ctx, input.Table)
	if err != nil {
		return nil, mapError(err)
	}

	records := make([]Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, toRecord(&r))
	}

	return &listOutput{
		Body: listResponse{Records: records},
	}, nil
}

func (h *Handler) create(ctx context.Context, input *createInput) (*recordOutput, error) {
	if err := validatePayload(input.Table, input.Body); err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}

	created, err := h.repo.Create(ctx, input.Table, input.Body, input.IdempotencyKey)
	if err != nil {
		return nil, mapError(err)
	}

	return &recordOutput{Body: toRecord(created)}, nil
}

func (h *Handler) get(ctx context.Context, input *getInput) (*recordOutput, error) {
	found, err := h.repo.Get(ctx, input.Table, input.ID)
	if err != nil {
		return nil, mapError(err)
	}

	return &recordOutput{Body: toRecord(found)}, nil
}

func (h *Handler) update(ctx context.Context, input *updateInput) (*recordOutput, error) {
	updated, err := h.repo.Update(ctx, input.Table, input.ID, input.Body)
	if err != nil {
		return nil, mapError(err)
	}

	return &recordOutput{Body: toRecord(updated)}, nil
}

func (h *Handler) delete(ctx context.Context, input *deleteInput) (*deleteOutput, error) {
	if err := h.repo.Delete(ctx, input.Table, input.ID); err != nil {
		return nil, mapError(err)
	}

	return &deleteOutput{
		Body: deleteResponse{Status: "Ok"},
	}, nil
}

// validatePayload enforces the required fields of the known collections on
// create. Updates stay unchecked, they merge partial payloads.
func validatePayload(table string, payload map[string]interface{}) error {
	switch table {
	case patient.Table:
		return patient.ValidatePayload(payload)
	case todo.Table:
		return todo.ValidatePayload(payload)
	default:
		return nil
	}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, row.ErrNotFound):
		return huma.Error404NotFound("record not found")
	case errors.Is(err, row.ErrUnknownTable):
		return huma.Error400BadRequest("unknown table")
	default:
		return err
	}
}

func toRecord(r *row.Row) Record {
	return Record{
		ID:      r.ID,
		Table:   r.Table,
		Payload: r.Payload,
	}
}
