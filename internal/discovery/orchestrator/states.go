// internal/discovery/orchestrator/states.go
package orchestrator

type State string

const (
	StateReceived        State = "RECEIVED"
	StateRateChecked     State = "RATE_CHECKED"
	StateLocalLookup     State = "LOCAL_LOOKUP"
	StateReasoning       State = "REASONING"
	StateWebAugment      State = "WEB_AUGMENT"
	StateRanked          State = "RANKED"
	StateDegradedKeyword State = "DEGRADED_KEYWORD"
	StateDegradedStatic  State = "DEGRADED_STATIC"
	StateResponded       State = "RESPONDED"
)

// stateLog records visited states in order.
type stateLog []string

func (t *stateLog) enter(s State) {
	*t = append(*t, string(s))
}
