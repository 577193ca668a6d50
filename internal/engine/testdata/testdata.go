package testdata

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed corpus.json
var corpusJSON []byte

// Scenario is a sequence of log chunks with the predictions the classifier
// must make for each. The first chunk is counted without predicting, so its
// expected string is empty.
type Scenario struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Chunks      [][]string `json:"chunks"`
	Expected    []string   `json:"expected"` // one S/F character per line
}

// LoadCorpus parses the embedded corpus.json and returns all scenarios.
func LoadCorpus() ([]Scenario, error) {
	var scenarios []Scenario
	if err := json.Unmarshal(corpusJSON, &scenarios); err != nil {
		return nil, fmt.Errorf("parse corpus.json: %w", err)
	}
	return scenarios, nil
}
