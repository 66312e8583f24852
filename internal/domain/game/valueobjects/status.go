package valueobjects

type GameStatus string

const (
	StatusWaiting    GameStatus = "waiting"
	StatusInProgress GameStatus = "in_progress"
	StatusEnded      GameStatus = "ended"
)

var validStatuses = map[GameStatus]bool{
	StatusWaiting:    true,
	StatusInProgress: true,
	StatusEnded:      true,
}

func (s GameStatus) String() string {
	return string(s)
}

func (s GameStatus) IsValid() bool {
	return validStatuses[s]
}

func (s GameStatus) IsTerminal() bool {
	return s == StatusEnded
}
