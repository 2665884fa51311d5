package domain

import (
	"fmt"
	"regexp"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks if an email address is valid.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateQuizCompleted checks the required fields of a quiz completion.
func ValidateQuizCompleted(e QuizCompleted) error {
	if e.QuizSessionID == "" {
		return fmt.Errorf("quiz session id is required")
	}
	if e.TotalQuestions <= 0 {
		return fmt.Errorf("total questions must be positive, got %d", e.TotalQuestions)
	}
	if e.CorrectAnswers < 0 || e.CorrectAnswers > e.TotalQuestions {
		return fmt.Errorf("correct answers out of range: %d of %d", e.CorrectAnswers, e.TotalQuestions)
	}
	if e.ResponseTimeMs < 0 {
		return fmt.Errorf("response time must not be negative")
	}
	return nil
}

// ValidateGameCompleted checks the required fields of a game completion.
func ValidateGameCompleted(e GameCompleted) error {
	if e.GameSessionID == "" {
		return fmt.Errorf("game session id is required")
	}
	if e.GameType == "" {
		return fmt.Errorf("game type is required")
	}
	if e.Score < 0 || e.Score > 100 {
		return fmt.Errorf("score out of range: %d", e.Score)
	}
	switch e.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyAdaptive, "":
	default:
		return fmt.Errorf("unknown difficulty: %s", e.Difficulty)
	}
	return nil
}

// ValidateCoinAward checks the required fields of a direct coin award.
func ValidateCoinAward(e CoinAward) error {
	if e.AwardID == "" {
		return fmt.Errorf("award id is required")
	}
	if e.Reason == "" {
		return fmt.Errorf("award reason is required")
	}
	if e.Amount <= 0 {
		return fmt.Errorf("award amount must be positive, got %d", e.Amount)
	}
	return nil
}
