package orders

import "github.com/gatepass/gatepass-backend/pkg/enums"

// transitionSources lists the statuses an order may move FROM for each target
// status. The repository applies the transition as a conditional UPDATE over
// these sources, so a lost race shows up as zero affected rows rather than an
// overwrite.
var transitionSources = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusProcessing: {enums.OrderStatusPending},
	enums.OrderStatusCompleted:  {enums.OrderStatusPending, enums.OrderStatusProcessing},
	enums.OrderStatusFailed:     {enums.OrderStatusPending, enums.OrderStatusProcessing},
	enums.OrderStatusCancelled:  {enums.OrderStatusPending, enums.OrderStatusProcessing},
	enums.OrderStatusRefunded:   {enums.OrderStatusCompleted},
}

// legalSources returns the permitted source statuses for a target status.
func legalSources(target enums.OrderStatus) []enums.OrderStatus {
	return transitionSources[target]
}
