package bookings

type Status string

const (
	StatusPending               Status = "Pending"
	StatusConfirmed             Status = "Confirmed"
	StatusCancellationRequested Status = "CancellationRequested"
	StatusCompleted             Status = "Completed"
	StatusCancelledByCustomer   Status = "CancelledByCustomer"
	StatusCancelledByCompany    Status = "CancelledByCompany"
	StatusNoShow                Status = "NoShow"
	StatusRefunded              Status = "Refunded"
)

// IsValid checks if the booking status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancellationRequested, StatusCompleted,
		StatusCancelledByCustomer, StatusCancelledByCompany, StatusNoShow, StatusRefunded:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// Cancelled and terminal states are absorbing.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		switch next {
		case StatusConfirmed, StatusCancelledByCustomer, StatusCancelledByCompany:
			return true
		}
		return false
	case StatusConfirmed:
		switch next {
		case StatusCompleted, StatusCancelledByCustomer, StatusCancelledByCompany,
			StatusNoShow, StatusRefunded, StatusCancellationRequested:
			return true
		}
		return false
	case StatusCancellationRequested:
		return next == StatusConfirmed || next == StatusRefunded
	case StatusCompleted, StatusCancelledByCustomer, StatusCancelledByCompany, StatusNoShow, StatusRefunded:
		return false
	default:
		return false
	}
}

// IsCancelled checks if the booking was cancelled by either side
func (s Status) IsCancelled() bool {
	return s == StatusCancelledByCustomer || s == StatusCancelledByCompany
}

// IsTerminal reports states no transition leaves.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelledByCustomer, StatusCancelledByCompany, StatusNoShow, StatusRefunded:
		return true
	}
	return false
}
