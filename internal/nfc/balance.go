package nfc

// ComputeBalance applies the carry-over rule: unused cards from every prior
// month roll forward, floored at zero, while the submitted counter covers
// the current month only.
func ComputeBalance(userID int64, period string, t Totals) Balance {
	carry := t.AllocatedPrior - t.SubmittedPrior
	if carry < 0 {
		carry = 0
	}
	available := nonNegative(t.AllocatedCurrent) + carry
	submitted := nonNegative(t.SubmittedCurrent)
	remaining := available - submitted
	if remaining < 0 {
		remaining = 0
	}
	return Balance{
		UserID:    userID,
		Period:    period,
		Available: available,
		Submitted: submitted,
		Remaining: remaining,
		CarryOver: carry,
	}
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
