package session

// State is the phase the session is in
type State int

const (
	// StateLoading scans the catalog directory
	StateLoading State = iota
	// StateBrowsing shows the current entry and accepts navigation
	StateBrowsing
	// StateDownloading waits for the current entry's assets
	StateDownloading
	// StatePlaying hands control to the emulator
	StatePlaying
	// StateTerminated ends the session
	StateTerminated
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateLoading:
		return "Loading"
	case StateBrowsing:
		return "Browsing"
	case StateDownloading:
		return "Downloading"
	case StatePlaying:
		return "Playing"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}
