// Package employees derives the staff roster from transaction history. The
// POS export has no employee file; staff only appear by name on transaction
// headers ("Staff Name") and line items ("Employee").
package employees

import (
	"sort"
	"strings"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/normalize"
)

// Employee is a distinct staff member seen in the history.
type Employee struct {
	Name      string
	FirstName string
	LastName  string

	// TransactionCount is the number of distinct transactions the employee
	// appears on.
	TransactionCount int

	firstSeen int
}

// NaturalKey is the store identity of an employee.
func (e Employee) NaturalKey() string {
	return strings.ToLower(e.Name)
}

// Extract returns every distinct staff name, case-insensitively deduplicated
// and spelled as first seen. Headers are read before items. Output is ordered
// by first appearance.
func Extract(headers []normalize.TransactionRow, items []normalize.ItemRow) []Employee {
	byKey := make(map[string]*Employee)
	seenTxn := make(map[string]map[string]bool)
	order := 0

	see := func(name, txn string) {
		name = strings.Join(strings.Fields(name), " ")
		if name == "" {
			return
		}
		key := strings.ToLower(name)

		e, ok := byKey[key]
		if !ok {
			first, last := splitName(name)
			e = &Employee{Name: name, FirstName: first, LastName: last, firstSeen: order}
			byKey[key] = e
			seenTxn[key] = make(map[string]bool)
			order++
		}
		if txn != "" && !seenTxn[key][txn] {
			seenTxn[key][txn] = true
			e.TransactionCount++
		}
	}

	for _, h := range headers {
		see(h.StaffName, h.TransactionID)
	}
	for _, it := range items {
		see(it.Employee, it.TransactionID)
	}

	out := make([]Employee, 0, len(byKey))
	for _, e := range byKey {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].firstSeen < out[j].firstSeen })
	return out
}

// splitName puts the last word in the last name and everything before it in
// the first name.
func splitName(name string) (first, last string) {
	i := strings.LastIndex(name, " ")
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}
