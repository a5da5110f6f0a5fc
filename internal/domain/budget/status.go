package budget

// AggregateStatus maps the multiset of item statuses to one budget-level
// status. Pure and order-independent.
//
// An empty list or all-pending items yield pending; all paid yields
// completed; all approved yields approved; any mixture yields partial.
func AggregateStatus(statuses []ItemStatus) BudgetStatus {
	if len(statuses) == 0 {
		return StatusPending
	}

	var pending, approved, paid int
	for _, s := range statuses {
		switch s {
		case ItemPaid, ItemCompleted:
			paid++
		case ItemApproved:
			approved++
		default:
			pending++
		}
	}

	switch {
	case paid == len(statuses):
		return StatusCompleted
	case approved == len(statuses):
		return StatusApproved
	case pending == len(statuses):
		return StatusPending
	}
	return StatusPartial
}

// ToggleApproval flips an item between pending and approved, leaving every
// other field untouched. Paid items are immutable to toggling; the call is a
// no-op and returns false.
func ToggleApproval(item *TreatmentItem) bool {
	switch item.Status {
	case ItemPending:
		item.Status = ItemApproved
		return true
	case ItemApproved:
		item.Status = ItemPending
		return true
	}
	return false
}
