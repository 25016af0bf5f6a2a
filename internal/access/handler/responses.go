package handler

// DecisionResponse answers POST /data-access: 200 with a message when allowed,
// 403 with a reason when denied.
type DecisionResponse struct {
	Allowed bool   `json:"allowed"`
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`
}
