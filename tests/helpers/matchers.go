package helpers

import (
	"github.com/dailypy/mediaflow/internal/event"
	"github.com/hbomb79/go-chanassert"
)

// MatchEvent returns a matcher which will match any event of the type provided,
// regardless of its payload.
func MatchEvent(ev event.Event) chanassert.Matcher[event.HandlerEvent] {
	return chanassert.MatchStructPartial(event.HandlerEvent{Event: ev})
}

// MatchItemProgress returns a chanassert matcher which will match
// ITEM_* events for the item stem provided, where the outcome of the item
// is the one given. The outcome is ignored for ITEM_STARTED.
func MatchItemProgress(ev event.Event, stem string, succeeded bool) chanassert.Matcher[event.HandlerEvent] {
	return chanassert.MatchPredicate(func(message event.HandlerEvent) bool {
		if message.Event != ev {
			return false
		}

		progress, ok := message.Payload.(event.ItemProgress)
		if !ok || progress.Stem != stem {
			return false
		}

		return ev == event.ITEM_STARTED || progress.Succeeded == succeeded
	})
}

// MatchItemFailure returns a matcher for the ITEM_COMPLETE event of a failed item,
// which failed in the stage provided.
func MatchItemFailure(stem string, stage string) chanassert.Matcher[event.HandlerEvent] {
	return chanassert.MatchPredicate(func(message event.HandlerEvent) bool {
		progress, ok := message.Payload.(event.ItemProgress)
		return ok && message.Event == event.ITEM_COMPLETE &&
			progress.Stem == stem && !progress.Succeeded && progress.Stage == stage && progress.Err != nil
	})
}
