package game

// GameState identifies one step of the session's progression. States that
// support collaborative writing use their GameState value as the phase id.
type GameState string

const (
	StateLobby              GameState = "LOBBY"
	StateDescribeWorld      GameState = "DESCRIBE_WORLD"
	StateDescribeEntity     GameState = "DESCRIBE_ENTITY"
	StateGenLocationAuthors GameState = "GENERATE_LOCATION_AUTHORS"
	StateWriteLocations     GameState = "WRITE_LOCATIONS"
	StateGenOccupationAuthors GameState = "GENERATE_OCCUPATION_AUTHORS"
	StateWriteOccupations   GameState = "WRITE_OCCUPATIONS"
	StatePreamble           GameState = "PREAMBLE"
	StateSetEncounters      GameState = "SET_ENCOUNTERS"
	StateGenPromptAuthors   GameState = "GENERATE_WRITE_PROMPT_AUTHORS"
	StateWritePrompts       GameState = "WRITE_PROMPTS"
	StateGenOptionAuthors   GameState = "GENERATE_WRITE_OPTION_AUTHORS"
	StateWriteOptions       GameState = "WRITE_OPTIONS"
	StateRound1             GameState = "ROUND1"
	StateNavigateWinner     GameState = "NAVIGATE_WINNER"
	StateGenPromptAuthorsAgain GameState = "GENERATE_WRITE_PROMPT_AUTHORS_AGAIN"
	StateWritePromptsAgain  GameState = "WRITE_PROMPTS_AGAIN"
	StateGenOptionAuthorsAgain GameState = "GENERATE_WRITE_OPTION_AUTHORS_AGAIN"
	StateWriteOptionsAgain  GameState = "WRITE_OPTIONS_AGAIN"
	StateRound2             GameState = "ROUND2"
	StateRitual             GameState = "RITUAL"
	StateHowDoesThisResolve GameState = "HOW_DOES_THIS_RESOLVE"
	StateGenEndings         GameState = "GENERATE_ENDINGS"
	StateEnding             GameState = "ENDING"
	StateEpilogue           GameState = "EPILOGUE"
	StateFinished           GameState = "FINISHED"
)

func (s GameState) String() string { return string(s) }

// WinnerPolicy selects how winners are computed for a phase.
type WinnerPolicy string

const (
	PolicySingle    WinnerPolicy = "single"     // lowest average ranking
	PolicyAllVoted  WinnerPolicy = "all-voted"  // every voted submission, best first
	PolicyTopK      WinnerPolicy = "top-k"      // all-voted, truncated to K
	PolicyPerBucket WinnerPolicy = "per-bucket" // best per success/neutral/failure bucket
	PolicyPerOption WinnerPolicy = "per-option" // best per distinct outcome tag
)

// OutcomeMode selects how a fresh submission in an outcome-typed phase gets
// its tag when the request carries no hint.
type OutcomeMode string

const (
	OutcomeNone      OutcomeMode = ""
	OutcomeBuckets   OutcomeMode = "buckets"    // round-robin success/neutral/failure
	OutcomePerStory  OutcomeMode = "per-story"  // the player's allocated story
	OutcomePerOption OutcomeMode = "per-option" // one option of the allocated story
)

// PhaseSpec is the static configuration of one GameState.
type PhaseSpec struct {
	Collab    bool
	Synthetic bool // entry side effect runs, then the machine advances again
	Turn      bool // resets done flags and elects the first-joined turn holder
	Policy    WinnerPolicy
	TopK      int
	ViewLimit int // submissions served per request; 0 means unbounded
	Outcome   OutcomeMode
	Offset    int // outcome-allocation offset, varies the slice per phase
	Multiple  bool // allowMultiple for outcome allocation
}

const defaultViewLimit = 5

var phaseSpecs = map[GameState]PhaseSpec{
	StateLobby:              {},
	StateDescribeWorld:      {Collab: true, Policy: PolicySingle, ViewLimit: defaultViewLimit},
	StateDescribeEntity:     {Collab: true, Policy: PolicySingle, ViewLimit: defaultViewLimit},
	StateGenLocationAuthors: {Synthetic: true},
	StateWriteLocations:     {Collab: true, Policy: PolicyTopK, TopK: 6, ViewLimit: 6},
	StateGenOccupationAuthors: {Synthetic: true},
	StateWriteOccupations:   {Collab: true, Policy: PolicyTopK, TopK: 2, ViewLimit: defaultViewLimit},
	StatePreamble:           {Collab: true, Policy: PolicySingle, ViewLimit: defaultViewLimit},
	StateSetEncounters:      {Collab: true, Policy: PolicyAllVoted, ViewLimit: 0},
	StateGenPromptAuthors:   {Synthetic: true},
	StateWritePrompts:       {Collab: true, Policy: PolicyTopK, TopK: 6, ViewLimit: defaultViewLimit, Outcome: OutcomePerStory, Offset: 0, Multiple: true},
	StateGenOptionAuthors:   {Synthetic: true},
	StateWriteOptions:       {Collab: true, Policy: PolicyTopK, TopK: 2, ViewLimit: defaultViewLimit, Outcome: OutcomePerOption, Offset: 1},
	StateRound1:             {Turn: true},
	StateNavigateWinner:     {Synthetic: true},
	StateGenPromptAuthorsAgain: {Synthetic: true},
	StateWritePromptsAgain:  {Collab: true, Policy: PolicyTopK, TopK: 6, ViewLimit: defaultViewLimit, Outcome: OutcomePerStory, Offset: 2, Multiple: true},
	StateGenOptionAuthorsAgain: {Synthetic: true},
	StateWriteOptionsAgain:  {Collab: true, Policy: PolicyTopK, TopK: 2, ViewLimit: defaultViewLimit, Outcome: OutcomePerOption, Offset: 3},
	StateRound2:             {Turn: true},
	StateRitual:             {Collab: true, Turn: true, Policy: PolicyPerBucket, ViewLimit: defaultViewLimit, Outcome: OutcomeBuckets},
	StateHowDoesThisResolve: {Collab: true, Policy: PolicyPerOption, ViewLimit: defaultViewLimit, Outcome: OutcomePerOption, Offset: 4},
	StateGenEndings:         {Synthetic: true},
	StateEnding:             {Turn: true},
	StateEpilogue:           {Collab: true, Policy: PolicySingle, ViewLimit: defaultViewLimit},
	StateFinished:           {},
}

// SpecFor returns the configuration for a state. Unknown states get the
// zero spec.
func SpecFor(state GameState) PhaseSpec {
	return phaseSpecs[state]
}

// FlagSource answers feature-flag lookups; absent flags read false.
type FlagSource interface {
	Flag(name string) bool
}

// StaticFlags is a FlagSource backed by a plain map.
type StaticFlags map[string]bool

func (f StaticFlags) Flag(name string) bool { return f[name] }

const (
	FlagSkipSecondWriteCycle = "skip_second_write_cycle"
	FlagConsolidateNarrative = "consolidate_narrative"
)

// nextStates is the linear portion of the progression. Branching states are
// handled in NextState.
var nextStates = map[GameState]GameState{
	StateLobby:              StateDescribeWorld,
	StateDescribeWorld:      StateDescribeEntity,
	StateDescribeEntity:     StateGenLocationAuthors,
	StateGenLocationAuthors: StateWriteLocations,
	StateWriteLocations:     StateGenOccupationAuthors,
	StateGenOccupationAuthors: StateWriteOccupations,
	StateWriteOccupations:   StatePreamble,
	StatePreamble:           StateSetEncounters,
	StateSetEncounters:      StateGenPromptAuthors,
	StateGenPromptAuthors:   StateWritePrompts,
	StateWritePrompts:       StateGenOptionAuthors,
	StateGenOptionAuthors:   StateWriteOptions,
	StateWriteOptions:       StateRound1,
	StateRound1:             StateNavigateWinner,
	StateGenPromptAuthorsAgain: StateWritePromptsAgain,
	StateWritePromptsAgain:  StateGenOptionAuthorsAgain,
	StateGenOptionAuthorsAgain: StateWriteOptionsAgain,
	StateWriteOptionsAgain:  StateRound2,
	StateRound2:             StateNavigateWinner,
	StateRitual:             StateHowDoesThisResolve,
	StateHowDoesThisResolve: StateGenEndings,
	StateGenEndings:         StateEnding,
	StateEnding:             StateEpilogue,
	StateEpilogue:           StateFinished,
	StateFinished:           StateFinished,
}

// NextState computes the successor of a state. NAVIGATE_WINNER branches on
// the round counter (as incremented by its own side effect) and on the
// skip_second_write_cycle flag; everything else is table lookup.
func NextState(state GameState, round int, flags FlagSource) GameState {
	if state == StateNavigateWinner {
		if round >= 2 {
			return StateRitual
		}
		if flags != nil && flags.Flag(FlagSkipSecondWriteCycle) {
			return StateRound2
		}
		return StateGenPromptAuthorsAgain
	}
	next, ok := nextStates[state]
	if !ok {
		return state
	}
	return next
}
