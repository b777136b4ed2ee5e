package service

import (
	"bonding-curve-indexer/internal/codec"
)

// eventSource decodes the self-CPI events an instruction emitted.
type eventSource struct {
	programID      string
	eventAuthority string
	registry       *codec.Registry
}

// events returns the decoded events found among ic.Raw.Inner, in order.
// An inner instruction counts as an event when it targets the program,
// its first account is the event authority and its payload decodes.
func (s *eventSource) events(ic *InstructionContext) []*codec.Event {
	if ic.Raw == nil {
		return nil
	}
	var out []*codec.Event
	for i := range ic.Raw.Inner {
		inner := &ic.Raw.Inner[i]
		if inner.ProgramID != s.programID {
			continue
		}
		if len(inner.Accounts) == 0 || inner.Accounts[0] != s.eventAuthority {
			continue
		}
		if !codec.IsEventPayload(inner.Data) {
			continue
		}
		ev, err := s.registry.DecodeEvent(inner.Data)
		if err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func findEvent[E any](events []*codec.Event, name string, match func(*E) bool) *E {
	for _, ev := range events {
		if ev.Name != name {
			continue
		}
		data, ok := ev.Data.(*E)
		if !ok {
			continue
		}
		if match == nil || match(data) {
			return data
		}
	}
	return nil
}
