package wanted

import (
	"context"
	"fmt"

	"github.com/sublarr/subctl/internal/fsm"
)

// Event names the externally-triggered transitions a caller may request
// against a wanted item's Status. The scheduler's own retry/admission path
// already guards its claim at the SQL layer (MarkSearching's conditional
// "WHERE status IN (wanted, failed)"; MarkDone/MarkFailed/MarkBlacklisted
// update by id alone and run only after that claim succeeded);
// Event/LifecycleTransitions exist for callers that have no such SQL guard
// of their own, chiefly a manually triggered reprocess request.
type Event string

const (
	EventProcess   Event = "process"
	EventFound     Event = "found"
	EventNotFound  Event = "not_found"
	EventBlacklist Event = "blacklist"
)

// LifecycleTransitions is the declarative table of legal (status, event)
// edges for a wanted item (C5). Blacklisted is terminal: once an item is
// blacklisted it is never picked up again by any event here.
var LifecycleTransitions = []fsm.Transition[Status, Event]{
	{From: StatusWanted, Event: EventProcess, To: StatusSearching},
	{From: StatusFailed, Event: EventProcess, To: StatusSearching},
	{From: StatusDone, Event: EventProcess, To: StatusSearching},
	{From: StatusSearching, Event: EventFound, To: StatusDone},
	{From: StatusSearching, Event: EventNotFound, To: StatusFailed},
	{From: StatusSearching, Event: EventBlacklist, To: StatusBlacklisted},
}

// ValidateTransition reports whether event is legal from current, per
// LifecycleTransitions. Builds a short-lived fsm.Machine seeded at current
// purely to consult the declarative table — no state is retained across
// calls, since the durable state of record is the database row itself.
func ValidateTransition(ctx context.Context, current Status, event Event) error {
	m, err := fsm.New(current, LifecycleTransitions)
	if err != nil {
		return fmt.Errorf("wanted: build lifecycle machine: %w", err)
	}
	if _, err := m.Fire(ctx, event); err != nil {
		return fmt.Errorf("wanted: item in status %q cannot accept %q: %w", current, event, err)
	}
	return nil
}
