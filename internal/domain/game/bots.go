package game

import "fmt"

// BotIdentity names the engine opponent seated in a bot game.
type BotIdentity struct {
	ID         string
	Difficulty string
	Rating     int
}

var botRatings = map[string]int{
	"beginner": 400,
	"easy":     800,
	"medium":   1200,
	"hard":     1600,
	"expert":   2000,
	"master":   2400,
}

const defaultBotDifficulty = "medium"

// BotForDifficulty maps a difficulty to its bot; unknown values get the medium bot.
func BotForDifficulty(difficulty string) BotIdentity {
	rating, ok := botRatings[difficulty]
	if !ok {
		difficulty = defaultBotDifficulty
		rating = botRatings[difficulty]
	}
	return BotIdentity{
		ID:         fmt.Sprintf("bot-%s-%d", difficulty, rating),
		Difficulty: difficulty,
		Rating:     rating,
	}
}
