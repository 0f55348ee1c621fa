package plume

const (
	AREA_ENTER EventType = iota
	COLLISION_ENTER
	AREA_STAY
	COLLISION_STAY
	AREA_EXIT
	COLLISION_EXIT
)

type pairKey struct {
	nodeA NodeID
	nodeB NodeID
	// area pairs come from Update, the others from MoveAndCollide
	area bool
}

// makePairKey creates a normalized pair key with consistent ordering
func makePairKey(nodeA, nodeB NodeID, area bool) pairKey {
	if nodeB < nodeA {
		nodeA, nodeB = nodeB, nodeA
	}

	return pairKey{nodeA: nodeA, nodeB: nodeB, area: area}
}

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// Area events, NodeA < NodeB
type AreaEnterEvent struct {
	NodeA NodeID
	NodeB NodeID
}

func (e AreaEnterEvent) Type() EventType { return AREA_ENTER }

type AreaStayEvent struct {
	NodeA NodeID
	NodeB NodeID
}

func (e AreaStayEvent) Type() EventType { return AREA_STAY }

type AreaExitEvent struct {
	NodeA NodeID
	NodeB NodeID
}

func (e AreaExitEvent) Type() EventType { return AREA_EXIT }

// Collision events, reported for the contacts resolved by MoveAndCollide since the previous Update
type CollisionEnterEvent struct {
	NodeA NodeID
	NodeB NodeID
}

func (e CollisionEnterEvent) Type() EventType { return COLLISION_ENTER }

type CollisionStayEvent struct {
	NodeA NodeID
	NodeB NodeID
}

func (e CollisionStayEvent) Type() EventType { return COLLISION_STAY }

type CollisionExitEvent struct {
	NodeA NodeID
	NodeB NodeID
}

func (e CollisionExitEvent) Type() EventType { return COLLISION_EXIT }

// EventListener - callback for events
type EventListener func(event Event)

// Events manager
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event

	// Pair tracking for Enter/Stay/Exit detection
	previousActivePairs map[pairKey]bool
	currentActivePairs  map[pairKey]bool
}

func NewEvents() Events {
	return Events{
		listeners:           make(map[EventType][]EventListener),
		buffer:              make([]Event, 0, 64),
		previousActivePairs: make(map[pairKey]bool),
		currentActivePairs:  make(map[pairKey]bool),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// record marks a pair active for the current tick
func (e *Events) record(pair pairKey) {
	e.currentActivePairs[pair] = true
}

// forget drops every pair of node, no exit event is sent for a removed node
func (e *Events) forget(node NodeID) {
	for _, pairs := range []map[pairKey]bool{e.previousActivePairs, e.currentActivePairs} {
		for pair := range pairs {
			if pair.nodeA == node || pair.nodeB == node {
				delete(pairs, pair)
			}
		}
	}
}

func (e *Events) reset() {
	clear(e.previousActivePairs)
	clear(e.currentActivePairs)
	e.buffer = e.buffer[:0]
}

// processPairEvents compares current and previous pairs to detect Enter/Stay/Exit
func (e *Events) processPairEvents() {
	for pair := range e.currentActivePairs {
		if e.previousActivePairs[pair] {
			if pair.area {
				e.buffer = append(e.buffer, AreaStayEvent{NodeA: pair.nodeA, NodeB: pair.nodeB})
			} else {
				e.buffer = append(e.buffer, CollisionStayEvent{NodeA: pair.nodeA, NodeB: pair.nodeB})
			}
		} else {
			if pair.area {
				e.buffer = append(e.buffer, AreaEnterEvent{NodeA: pair.nodeA, NodeB: pair.nodeB})
			} else {
				e.buffer = append(e.buffer, CollisionEnterEvent{NodeA: pair.nodeA, NodeB: pair.nodeB})
			}
		}
	}

	for pair := range e.previousActivePairs {
		if !e.currentActivePairs[pair] {
			if pair.area {
				e.buffer = append(e.buffer, AreaExitEvent{NodeA: pair.nodeA, NodeB: pair.nodeB})
			} else {
				e.buffer = append(e.buffer, CollisionExitEvent{NodeA: pair.nodeA, NodeB: pair.nodeB})
			}
		}
	}

	// Swap for next tick and clear current
	e.previousActivePairs, e.currentActivePairs = e.currentActivePairs, e.previousActivePairs
	clear(e.currentActivePairs)
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	e.processPairEvents()

	for _, event := range e.buffer {
		if listeners, ok := e.listeners[event.Type()]; ok {
			for _, listener := range listeners {
				listener(event)
			}
		}
	}
	e.buffer = e.buffer[:0]
}
