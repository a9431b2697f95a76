package table

// Record is a stored row as returned by the API.
type Record struct {
	ID      string                 `json:"id" doc:"Server-assigned record id"`
	Table   string                 `json:"table" doc:"Collection the record belongs to"`
	Payload map[string]interface{} `json:"payload" doc:"Open record fields"`
}

type listInput struct {
	Table string `path:"table" example:"patients" doc:"Collection name"`
}

type listOutput struct {
	Body listResponse
}

type listResponse struct {
	Records []Record `json:"records"`
}

type createInput struct {
	Table          string `path:"table" example:"patients" doc:"Collection name"`
	IdempotencyKey string `header:"Idempotency-Key" required:"false" doc:"Dedupes retried creates"`
	Body           map[string]interface{}
}

type recordOutput struct {
	Body Record
}

type getInput struct {
	Table string `path:"table" example:"patients" doc:"Collection name"`
	ID    string `path:"id" doc:"Record id"`
}

type updateInput struct {
	Table string `path:"table" example:"patients" doc:"Collection name"`
	ID    string `path:"id" doc:"Record id"`
	Body  map[string]interface{}
}

type deleteInput struct {
	Table string `path:"table" example:"patients" doc:"Collection name"`
	ID    string `path:"id" doc:"Record id"`
}

type deleteOutput struct {
	Body deleteResponse
}

type deleteResponse struct {
	Status string `json:"status" example:"Ok"`
}
