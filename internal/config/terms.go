package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TermDictionaries hold the category->terms maps the confidence
// evaluator matches against. Domain categories carry clinical and
// safety vocabulary; context categories carry conversational language
// that signals a query benefits from semantic search.
type TermDictionaries struct {
	Domain  map[string][]string `yaml:"domain"`
	Context map[string][]string `yaml:"context"`
}

// DefaultTermDictionaries are a starting vocabulary for a care
// assistant corpus. Deployments tune these through a YAML file.
func DefaultTermDictionaries() TermDictionaries {
	return TermDictionaries{
		Domain: map[string][]string{
			"clinical": {
				"symptom", "symptoms", "diagnosis", "treatment", "dosage",
				"dose", "prescription", "side effect", "side effects",
				"blood pressure", "blood sugar",
			},
			"medication": {
				"metformin", "insulin", "ibuprofen", "paracetamol",
				"aspirin", "antibiotic", "tablet", "medication", "pill",
			},
			"safety": {
				"fall", "fell", "emergency", "allergy", "allergic",
				"injury", "bleeding", "chest pain", "dizzy", "dizziness",
			},
		},
		Context: map[string][]string{
			"emotional": {
				"lonely", "sad", "anxious", "worried", "scared",
				"feeling", "upset", "stressed", "afraid", "down",
			},
			"social": {
				"friend", "friends", "family", "visit", "talk",
				"company", "alone", "neighbour", "neighbor",
			},
			"daily_living": {
				"sleep", "meal", "eating", "walk", "shower",
				"morning", "evening", "routine", "appointment",
			},
		},
	}
}

// LoadTermDictionaries reads a YAML override file. An empty path or a
// missing section falls back to the defaults.
func LoadTermDictionaries(path string) (TermDictionaries, error) {
	defaults := DefaultTermDictionaries()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return TermDictionaries{}, fmt.Errorf("read term dictionaries: %w", err)
	}

	var loaded TermDictionaries
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return TermDictionaries{}, fmt.Errorf("parse term dictionaries: %w", err)
	}

	if len(loaded.Domain) == 0 {
		loaded.Domain = defaults.Domain
	}
	if len(loaded.Context) == 0 {
		loaded.Context = defaults.Context
	}
	return loaded, nil
}
