//GET    /api/v1/health                          # Liveness probe (also used by clients as a connectivity check)
//GET    /api/v1/tables/{table}/records          # List records in a collection
//POST   /api/v1/tables/{table}/records          # Create a record (Idempotency-Key aware)
//GET    /api/v1/tables/{table}/records/{id}     # Get a record
//PATCH  /api/v1/tables/{table}/records/{id}     # Merge fields into a record
//DELETE /api/v1/tables/{table}/records/{id}     # Delete a record

package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	healthAPI "roundkeeper/internal/app/server/api/http/health"
	"roundkeeper/internal/app/server/api/http/middleware"
	"roundkeeper/internal/app/server/api/http/middleware/logger"
	tableAPI "roundkeeper/internal/app/server/api/http/table"
	"roundkeeper/internal/infrastructure/storage/postgres"
)

type Handlers struct {
	Health *healthAPI.Handler
	Table  *tableAPI.Handler
}

// New creates a *chi.Mux with every operation registered through huma.
func New(storage *postgres.Storage, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("Roundkeeper API", "1.0.0")

	API := humachi.New(mux, config)

	h := handlers(storage, log)
	h.Health.SetupRoutes(API)
	h.Table.SetupRoutes(API)

	return mux
}

func handlers(storage *postgres.Storage, log *slog.Logger) *Handlers {
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(log, middlewares.GetAllAndClear())

	tableRepo := postgres.NewTableRepository(storage.Pool(), log)
	middlewares.Add(loggerMW.Middleware())
	tableHandler := tableAPI.NewHandler(tableRepo, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health: healthHandler,
		Table:  tableHandler,
	}
}
