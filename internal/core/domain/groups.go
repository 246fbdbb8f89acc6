package domain

import (
	"strconv"
	"strings"
)

// AdminGroup is the fixed group that receives every placed order.
const AdminGroup = "adminRoom"

const orderGroupPrefix = "order_"

// OrderGroup returns the group name for an order's live subscribers.
func OrderGroup(orderID int64) string {
	return orderGroupPrefix + strconv.FormatInt(orderID, 10)
}

// ParseOrderGroup extracts the order ID from an order group name.
func ParseOrderGroup(group string) (int64, bool) {
	raw, ok := strings.CutPrefix(group, orderGroupPrefix)
	if !ok || raw == "" {
		return 0, false
	}
	// Reject forms like "order_+1" or "order_007" so each order has one name.
	if raw[0] < '1' || raw[0] > '9' {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// IsValidGroup reports whether name is the admin group or a well-formed
// order group.
func IsValidGroup(name string) bool {
	if name == AdminGroup {
		return true
	}
	_, ok := ParseOrderGroup(name)
	return ok
}
