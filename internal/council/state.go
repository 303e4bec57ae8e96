package council

// Status is the presentation state of one stage of one assistant message.
type Status int

const (
	StatusPending Status = iota
	StatusLoading
	StatusComplete
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusComplete:
		return "complete"
	default:
		return "pending"
	}
}

// StageState is the single tagged variant derived from a message's loading
// flag and stage payload: Pending, Loading{Start} or Complete{Timing}.
type StageState struct {
	Stage  Stage
	Status Status
	// Start is the authoritative start time while Loading, when known.
	Start *float64
	// Timing is the full envelope once Complete.
	Timing Timing
}

// StageState derives the variant for s. A set loading flag wins over a present
// payload because the payload is stale while the stage is running.
func (m Message) StageState(s Stage) StageState {
	timing := m.Timings.Get(s)
	switch {
	case m.Loading.Get(s):
		return StageState{Stage: s, Status: StatusLoading, Start: timing.Start}
	case m.HasResult(s):
		return StageState{Stage: s, Status: StatusComplete, Timing: timing}
	default:
		return StageState{Stage: s, Status: StatusPending}
	}
}

// StageStates returns the variant of every stage in display order.
func (m Message) StageStates() []StageState {
	out := make([]StageState, 0, len(Stages))
	for _, s := range Stages {
		out = append(out, m.StageState(s))
	}
	return out
}

func (st StageState) IsLoading() bool  { return st.Status == StatusLoading }
func (st StageState) IsComplete() bool { return st.Status == StatusComplete }
func (st StageState) IsPending() bool  { return st.Status == StatusPending }
