package sla

// Direction selects which event of a rule is compared during matching.
type Direction int

const (
	// DirectionStart matches against a rule's start event.
	DirectionStart Direction = iota
	// DirectionStop matches against a rule's stop event.
	DirectionStop
)

// Score weights. Only their ordering is a contract:
// event match > service type match > workshop match.
const (
	scoreEvent            = 8
	scoreServiceTypeExact = 4
	scoreWorkshopExact    = 2
	scoreWildcard         = 1
)

// Match selects the best-fit rule for an event. Rules whose event does not
// match in the given direction are never scored, and rules failing
// ValidateRule are skipped. Ties resolve to the earliest rule in the list.
func Match(p *Policy, item *WorkItem, event string, dir Direction) (Rule, bool) {
	best := -1
	bestScore := 0
	for i := range p.Rules {
		r := &p.Rules[i]
		if !eventMatches(r, event, dir) {
			continue
		}
		if !ValidateRule(r).Allowed {
			continue
		}
		s := Score(p, r, item)
		if best < 0 || s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return Rule{}, false
	}
	return p.Rules[best], true
}

// Score computes the match score of a rule whose event already qualified.
// A rule naming a different service type or workshop scores nothing for that
// dimension.
func Score(p *Policy, r *Rule, item *WorkItem) int {
	score := scoreEvent

	switch {
	case r.ServiceType == "":
		score += scoreWildcard
	case r.ServiceType == item.ServiceType:
		score += scoreServiceTypeExact
	}

	if !p.ApplyPerWorkshop {
		return score + scoreWildcard
	}
	switch {
	case r.Workshop == "":
		score += scoreWildcard
	case r.Workshop == item.Workshop:
		score += scoreWorkshopExact
	}
	return score
}

func eventMatches(r *Rule, event string, dir Direction) bool {
	if dir == DirectionStop {
		return r.StopEvent == event
	}
	return r.StartEvent == event
}

// EventKind is the closed classification of a workflow event for one item.
type EventKind int

const (
	// EventOther is any event that neither starts nor stops an SLA.
	EventOther EventKind = iota
	// EventStart matches a configured start event.
	EventStart
	// EventStop matches a configured stop event.
	EventStop
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventStop:
		return "stop"
	}
	return "other"
}

// ClassifyEvent resolves a raw event string once at the boundary.
// A stop event only counts as such for an item whose clock is running; when
// an event is both a start and a stop event, an active item treats it as stop
// and an unset item treats it as start.
func ClassifyEvent(p *Policy, item *WorkItem, event string) EventKind {
	if item.Phase() == PhaseActive {
		if _, ok := Match(p, item, event, DirectionStop); ok {
			return EventStop
		}
	}
	if _, ok := Match(p, item, event, DirectionStart); ok {
		return EventStart
	}
	return EventOther
}
