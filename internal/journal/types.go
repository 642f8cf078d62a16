package journal

// ============================================================================
// Journal Type Definitions
// Responsibility: Define core data structures for the action journal
// ============================================================================

// Action defines journal event types, one per agenda action
type Action string

const (
	ActionPassTurn       Action = "PASS_TURN"       // Today's person passed; rotation phase +1
	ActionSkipDay        Action = "SKIP_DAY"        // Nobody today; rotation phase -1
	ActionExchange       Action = "EXCHANGE"        // Today and next business day swapped
	ActionSetOverride    Action = "SET_OVERRIDE"    // Manual assignment for a date
	ActionClearOverride  Action = "CLEAR_OVERRIDE"  // Manual assignment removed
	ActionAddPerson      Action = "ADD_PERSON"      // Roster grew
	ActionRemovePerson   Action = "REMOVE_PERSON"   // Roster shrank
	ActionMovePerson     Action = "MOVE_PERSON"     // Roster reordered
	ActionSwapPeople     Action = "SWAP_PEOPLE"     // Two roster positions exchanged
	ActionSetPreferences Action = "SET_PREFERENCES" // Weekday avoidance changed
	ActionSetRestaurant  Action = "SET_RESTAURANT"  // Restaurant noted for a date
)

// Event represents a journal record
type Event struct {
	Seq       uint64            `json:"seq"`               // Event sequence number (monotonically increasing)
	ID        string            `json:"id"`                // Unique event ID (UUID)
	Action    Action            `json:"action"`            // Event type
	Date      string            `json:"date,omitempty"`    // Business day the action refers to (YYYY-MM-DD)
	Details   map[string]string `json:"details,omitempty"` // Action-specific fields (person, target, offset...)
	Timestamp int64             `json:"timestamp"`         // Unix millisecond timestamp
	Checksum  uint32            `json:"checksum"`          // CRC32 checksum
}

// EventHandler is the function type for processing journal events during Replay
type EventHandler func(event Event) error
