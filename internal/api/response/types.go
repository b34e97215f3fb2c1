package response

// Health statuses
const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
)

// Health is the body of the health endpoint
type Health struct {
	Status string `json:"status"`
}
