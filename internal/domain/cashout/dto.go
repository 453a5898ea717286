package cashout

type CreateRequest struct {
	Points      int64  `json:"points" validate:"required,gt=0"`
	Method      string `json:"method" validate:"required,cashout_method"`
	Destination string `json:"destination" validate:"required,notblank,max=255"`
}

type MarkRequest struct {
	Status       Status `json:"status" validate:"required,oneof=SUCCEEDED FAILED NEEDS_INFO"`
	Reason       string `json:"reason,omitempty" validate:"max=1000"`
	GatewayTxnID string `json:"gateway_txn_id,omitempty" validate:"max=255"`
}

// ListFilter narrows the finance listing.
type ListFilter struct {
	Status *Status
	Page   int
	Limit  int
}
