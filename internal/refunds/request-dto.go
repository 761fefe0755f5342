package refunds

type CreateRefundRequest struct {
	Reason            string `json:"reason" binding:"required,max=1000"`
	BankName          string `json:"bank_name" binding:"required,max=100"`
	BankAccountNumber string `json:"bank_account_number" binding:"required,max=50"`
	BankAccountHolder string `json:"bank_account_holder" binding:"required,max=100"`
}

type ApproveRefundRequest struct {
	// ApprovedAmount defaults to the requested amount less the processing fee.
	ApprovedAmount *float64 `json:"approved_amount" binding:"omitempty,gte=0"`
	Note           string   `json:"note" binding:"max=1000"`
}

type RejectRefundRequest struct {
	Note string `json:"note" binding:"required,max=1000"`
}

type CompleteRefundRequest struct {
	TransactionReference string `json:"transaction_reference" binding:"required,max=100"`
}

type RefundListQuery struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Status Status `form:"status"`
}

func (q *RefundListQuery) normalize() {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
}

type RefundList struct {
	Refunds    []TourBookingRefund `json:"refunds"`
	TotalCount int64               `json:"total_count"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	TotalPages int                 `json:"total_pages"`
}
