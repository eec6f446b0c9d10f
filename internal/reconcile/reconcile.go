// Package reconcile turns the raw Square customer directory into the set of
// listmonk subscribers: one per email address, classified as subscribed or
// blocked.
//
// When several customers share an email (compared case-insensitively) the
// record with a name beats an anonymous one, and among equally named records
// the one still subscribed beats the unsubscribed one. Records that tie keep
// their input order, so identical input always reconciles identically.
package reconcile

import (
	"sort"
	"strings"

	"github.com/ignite/square-listmonk-sync/internal/domain"
	"github.com/ignite/square-listmonk-sync/internal/square"
)

// DefaultGivenName stands in for a missing given name.
const DefaultGivenName = "Customer"

// Stats counts what reconciliation dropped.
type Stats struct {
	Input        int
	MissingEmail int
	Duplicates   int
	Output       int
}

// Reconcile filters, ranks, deduplicates and maps customers to subscribers.
func Reconcile(customers []square.Customer) []domain.Subscriber {
	subs, _ := ReconcileWithStats(customers)
	return subs
}

// ReconcileWithStats is Reconcile that also reports drop counts.
func ReconcileWithStats(customers []square.Customer) ([]domain.Subscriber, Stats) {
	stats := Stats{Input: len(customers)}

	withEmail := make([]square.Customer, 0, len(customers))
	for _, c := range customers {
		if !c.HasEmail() {
			stats.MissingEmail++
			continue
		}
		withEmail = append(withEmail, c)
	}

	sort.SliceStable(withEmail, func(i, j int) bool {
		return outranks(withEmail[i], withEmail[j])
	})

	seen := make(map[string]struct{}, len(withEmail))
	subs := make([]domain.Subscriber, 0, len(withEmail))
	for _, c := range withEmail {
		key := domain.EmailKey(*c.EmailAddress)
		if _, dup := seen[key]; dup {
			stats.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		subs = append(subs, toSubscriber(c))
	}

	stats.Output = len(subs)
	return subs, stats
}

// outranks reports whether a strictly precedes b.
func outranks(a, b square.Customer) bool {
	if a.HasName() != b.HasName() {
		return a.HasName()
	}
	return !a.Unsubscribed() && b.Unsubscribed()
}

func toSubscriber(c square.Customer) domain.Subscriber {
	return domain.Subscriber{
		Email:      *c.EmailAddress,
		Name:       DisplayName(c.GivenName, c.FamilyName),
		Attributes: "",
		Subscribed: !c.Unsubscribed(),
	}
}

// DisplayName joins the name parts, substituting DefaultGivenName for a
// missing given name, and trims the separator when a part is empty.
func DisplayName(given, family *string) string {
	first := DefaultGivenName
	if given != nil {
		first = *given
	}
	last := ""
	if family != nil {
		last = *family
	}
	return strings.TrimSpace(first + " " + last)
}

// Split partitions subscribers into the subscribed and blocked buckets,
// preserving order within each.
func Split(subs []domain.Subscriber) (subscribed, blocked []domain.Subscriber) {
	subscribed = make([]domain.Subscriber, 0, len(subs))
	blocked = make([]domain.Subscriber, 0)
	for _, s := range subs {
		switch s.Bucket() {
		case domain.ModeSubscribe:
			subscribed = append(subscribed, s)
		case domain.ModeBlocklist:
			blocked = append(blocked, s)
		}
	}
	return subscribed, blocked
}
