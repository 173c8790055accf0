package simulate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/varvaraparamon/final-eval-bot/internal/domain/scoring"
)

// Scenario lists the evaluators to drive. Accounts, cases and teams must
// already exist in the bot's database.
type Scenario struct {
	Evaluators []Evaluator `yaml:"evaluators"`
}

// Evaluator is one scripted conversation.
type Evaluator struct {
	ParticipantID int64              `yaml:"participant_id"`
	Login         string             `yaml:"login"`
	Password      string             `yaml:"password"`
	CaseID        int64              `yaml:"case_id"`
	TeamID        int64              `yaml:"team_id"`
	Scores        map[string]float64 `yaml:"scores"`
}

// LoadScenario reads and validates a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a YAML scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScenario, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks that every evaluator is complete and participant ids are unique.
func (s *Scenario) Validate() error {
	if len(s.Evaluators) == 0 {
		return fmt.Errorf("%w: no evaluators", ErrScenario)
	}
	seen := make(map[int64]bool, len(s.Evaluators))
	for i, e := range s.Evaluators {
		switch {
		case e.ParticipantID == 0:
			return fmt.Errorf("%w: evaluator %d: missing participant_id", ErrScenario, i)
		case seen[e.ParticipantID]:
			return fmt.Errorf("%w: evaluator %d: duplicate participant_id %d", ErrScenario, i, e.ParticipantID)
		case e.Login == "":
			return fmt.Errorf("%w: evaluator %d: missing login", ErrScenario, i)
		case e.Password == "":
			return fmt.Errorf("%w: evaluator %d: missing password", ErrScenario, i)
		case e.CaseID <= 0 || e.TeamID <= 0:
			return fmt.Errorf("%w: evaluator %d: case_id and team_id must be positive", ErrScenario, i)
		}
		seen[e.ParticipantID] = true
		if _, err := e.Card(); err != nil {
			return fmt.Errorf("%w: evaluator %d: %w", ErrScenario, i, err)
		}
	}
	return nil
}

// Card returns the evaluator's scores in criterion order.
func (e Evaluator) Card() (scoring.Card, error) {
	var card scoring.Card
	if len(e.Scores) != scoring.Count {
		return card, fmt.Errorf("want %d scores, got %d", scoring.Count, len(e.Scores))
	}
	for prefix, v := range e.Scores {
		c, ok := scoring.ByPrefix(prefix)
		if !ok {
			return card, fmt.Errorf("unknown criterion %q", prefix)
		}
		s := scoring.Score(v)
		if !s.Valid() {
			return card, fmt.Errorf("score %v for %s is not 0, 0.5 or 1", v, prefix)
		}
		card[c] = s
	}
	return card, nil
}
