package config

// BotDifficulty represents how erratic a wandering bot is.
type BotDifficulty int

const (
	BotDifficultyEasy BotDifficulty = iota
	BotDifficultyNormal
	BotDifficultyHard
)

// BotDifficultyConfig holds the tuning for a single difficulty level.
type BotDifficultyConfig struct {
	ReactionDelay int     // Ticks between direction changes
	JumpChance    float64 // Chance per direction change to jump
	IdleChance    float64 // Chance per direction change to stand still
	TurnJitter    float64 // Max camera yaw change per direction change, radians
}

// BotConfigData holds all bot-related configuration
type BotConfigData struct {
	Difficulties map[BotDifficulty]BotDifficultyConfig
}

// Bot holds bot configuration
var Bot BotConfigData

func init() {
	Bot = BotConfigData{
		Difficulties: map[BotDifficulty]BotDifficultyConfig{
			BotDifficultyEasy: {
				ReactionDelay: 60,
				JumpChance:    0.05,
				IdleChance:    0.4,
				TurnJitter:    0.3,
			},
			BotDifficultyNormal: {
				ReactionDelay: 30,
				JumpChance:    0.2,
				IdleChance:    0.2,
				TurnJitter:    0.8,
			},
			BotDifficultyHard: {
				ReactionDelay: 10, // changes course every sixth of a second
				JumpChance:    0.4,
				IdleChance:    0.05,
				TurnJitter:    1.5,
			},
		},
	}
}

// ParseBotDifficulty maps a flag value to a difficulty, defaulting to normal.
func ParseBotDifficulty(s string) BotDifficulty {
	switch s {
	case "easy":
		return BotDifficultyEasy
	case "hard":
		return BotDifficultyHard
	}
	return BotDifficultyNormal
}
