package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lectern-labs/lectern-cli/internal/core/domain"
)

// Prompt template names.
const (
	PromptRatingSystem  = "rating_system"
	PromptRating        = "rating"
	PromptSummarySystem = "summary_system"
	PromptSummary       = "summary"
)

// criteriaPlaceholder marks where the rendered criteria list goes in the
// rating template. The %s placeholder is reserved for article content.
const criteriaPlaceholder = "{{criteria}}"

// PromptStore loads LLM prompts from user-editable files on disk, falling
// back to embedded defaults.
//
// The store uses lazy initialisation - files are only created when first
// accessed, not in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default prompts.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	PromptRatingSystem: `You are an expert research reviewer. You judge articles strictly against the given criteria and respond only with JSON.`,

	PromptRating: `Rate the following article against each criterion on a scale of 0 to 10.

Criteria:
{{criteria}}

Respond with ONLY a JSON object of this shape, no prose before or after:
{"ratings": {"<criterion>": <score>, ...}, "justifications": {"<criterion>": "<one sentence>", ...}}

Article:
%s`,

	PromptSummarySystem: `You are a scientific writing assistant. You produce faithful, self-contained summaries of research articles for an expert reader.`,

	PromptSummary: `Summarise the following research article in three to five paragraphs.
Cover the problem, the approach, the key results and their limitations.
Do not invent content that is not in the article.

Article:
%s`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.lectern/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".lectern", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Falls back to the embedded default if the file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	prompt, err := s.loadFromFile(name)
	if err != nil {
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = prompt
	} else {
		prompt = s.cache[name]
	}
	s.mu.Unlock()

	return prompt, nil
}

// RatingTemplate loads the rating prompt and renders the criteria list
// into it, leaving the single %s content placeholder intact.
func (s *PromptStore) RatingTemplate(criteria map[string]domain.RatingCriterion) (string, error) {
	tmpl, err := s.Load(PromptRating)
	if err != nil {
		return "", err
	}

	names := make([]string, 0, len(criteria))
	for name := range criteria {
		names = append(names, name)
	}
	// Stable criteria order keeps the rendered prompt deterministic.
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		c := criteria[name]
		fmt.Fprintf(&b, "- %s (weight %.1f): %s\n", name, c.Weight, c.Description)
	}

	return strings.Replace(tmpl, criteriaPlaceholder, strings.TrimRight(b.String(), "\n"), 1), nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# Lectern Prompts

This directory contains customisable prompts used by Lectern's LLM stages.

## Files

- ` + "`rating_system.txt`" + ` - System prompt for the rating stage
- ` + "`rating.txt`" + ` - Rating instructions and response format
- ` + "`summary_system.txt`" + ` - System prompt for summarisation
- ` + "`summary.txt`" + ` - Summarisation instructions

## Customisation

Edit any file to customise LLM behaviour. Changes take effect on the next
run.

## Placeholders

- ` + "`%s`" + ` - The article content (required, exactly once)
- ` + "`{{criteria}}`" + ` - The rendered criteria list (rating prompt only)

Ensure customised prompts maintain placeholders in the correct positions.
`
	return os.WriteFile(path, []byte(content), 0600)
}
