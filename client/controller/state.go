package controller

// State is the controller's position in the game flow.
type State int

const (
	StateNew State = iota
	StateConnected
	StateLoggedIn
	StateJoined
	StateStarted
	StateTurnMe
	StateTurnThem
	StateWaiting
	StateWin
	StateLose
	StateDone
)

var stateNames = [...]string{
	StateNew:       "NEW",
	StateConnected: "CONNECTED",
	StateLoggedIn:  "LOGGED_IN",
	StateJoined:    "JOINED",
	StateStarted:   "STARTED",
	StateTurnMe:    "TURN_ME",
	StateTurnThem:  "TURN_THEM",
	StateWaiting:   "WAITING",
	StateWin:       "WIN",
	StateLose:      "LOSE",
	StateDone:      "DONE",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}
