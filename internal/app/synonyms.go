package app

import "strings"

// DefaultSynonyms expands abbreviations students commonly type into the
// search box.
var DefaultSynonyms = map[string]string{
	"cs":      "computer science",
	"cpsc":    "computer science",
	"ee":      "electrical engineering",
	"bme":     "biomedical engineering",
	"chem":    "chemistry",
	"bio":     "biology",
	"mcdb":    "molecular cellular developmental biology",
	"eeb":     "ecology evolutionary biology",
	"neuro":   "neuroscience",
	"psych":   "psychology",
	"econ":    "economics",
	"math":    "mathematics",
	"stats":   "statistics",
	"ml":      "machine learning",
	"ai":      "artificial intelligence",
	"nlp":     "natural language processing",
	"hci":     "human computer interaction",
	"polisci": "political science",
}

type Synonyms struct {
	table map[string]string
}

// NewSynonyms merges overrides on top of DefaultSynonyms. An override with an
// empty expansion removes the entry.
func NewSynonyms(overrides map[string]string) *Synonyms {
	table := make(map[string]string, len(DefaultSynonyms)+len(overrides))
	for k, v := range DefaultSynonyms {
		table[k] = v
	}
	for k, v := range overrides {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		if strings.TrimSpace(v) == "" {
			delete(table, key)
			continue
		}
		table[key] = strings.TrimSpace(v)
	}
	return &Synonyms{table: table}
}

// Rewrite replaces whole tokens found in the table, ignoring case and
// surrounding punctuation. Other tokens are kept as typed.
func (s *Synonyms) Rewrite(query string) string {
	if s == nil {
		return strings.TrimSpace(query)
	}
	tokens := strings.Fields(query)
	for i, token := range tokens {
		key := strings.ToLower(strings.Trim(token, ",.;:!?"))
		if expansion, ok := s.table[key]; ok {
			tokens[i] = expansion
		}
	}
	return strings.Join(tokens, " ")
}
