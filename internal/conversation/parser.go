// Package conversation turns typed commands into intents and delivers
// notifications to the cook.
package conversation

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/hammamikhairi/mise/internal/domain"
	"github.com/hammamikhairi/mise/internal/logger"
)

// Compile-time interface check.
var _ domain.IntentParser = (*KeywordParser)(nil)

// KeywordParser matches cooking commands to intents using keywords and
// simple patterns. Step commands take a step number or id, optionally
// written as "step 3".
type KeywordParser struct {
	log      *logger.Logger
	patterns []patternRule
}

type patternRule struct {
	regex  *regexp.Regexp
	intent domain.IntentType
}

// stepArg captures an optional step reference as group 1.
const stepArg = `(?:\s+(?:step\s+)?(\S+))?`

// NewKeywordParser creates a keyword-based intent parser.
func NewKeywordParser(log *logger.Logger) *KeywordParser {
	p := &KeywordParser{log: log}
	p.patterns = []patternRule{
		{regexp.MustCompile(`(?i)^(?:done|complete|finish(?:ed)?|check|x)` + stepArg + `$`), domain.IntentComplete},
		{regexp.MustCompile(`(?i)^(?:undo|uncheck|reopen)` + stepArg + `$`), domain.IntentUndo},
		{regexp.MustCompile(`(?i)^(?:timer|start|set timer|t)` + stepArg + `(?:\s+(\d+(?:\.\d+)?)\s*(?:m|min|mins|minutes?)?)?$`), domain.IntentStartTimer},
		{regexp.MustCompile(`(?i)^(?:pause|hold|p)` + stepArg + `$`), domain.IntentPauseTimer},
		{regexp.MustCompile(`(?i)^(?:resume|unpause|continue)` + stepArg + `$`), domain.IntentResumeTimer},
		{regexp.MustCompile(`(?i)^(?:reset|restart)` + stepArg + `$`), domain.IntentResetTimer},
		{regexp.MustCompile(`(?i)^(?:steps|list|ls|show|graph)$`), domain.IntentSteps},
		{regexp.MustCompile(`(?i)^(?:status|where|progress|info|next|what now\??)$`), domain.IntentStatus},
		{regexp.MustCompile(`(?i)^(?:quit|exit|stop|q|bye)$`), domain.IntentQuit},
		{regexp.MustCompile(`(?i)^(?:help|h|\?)$`), domain.IntentHelp},
	}
	return p
}

// Parse converts user input into an intent. A bare number is read as
// "done N", the most common thing a cook types.
func (p *KeywordParser) Parse(ctx context.Context, input string) (*domain.Intent, error) {
	trimmed := strings.Join(strings.Fields(input), " ")
	if trimmed == "" {
		return &domain.Intent{Type: domain.IntentUnknown}, nil
	}

	p.log.Debug("parsing input: %q", trimmed)

	if isDigits(trimmed) {
		return &domain.Intent{Type: domain.IntentComplete, StepRef: trimmed, Raw: trimmed}, nil
	}

	for _, rule := range p.patterns {
		m := rule.regex.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		p.log.Debug("matched intent: %s", rule.intent)

		intent := &domain.Intent{Type: rule.intent, Raw: trimmed}
		if len(m) > 1 {
			intent.StepRef = m[1]
		}
		if len(m) > 2 && m[2] != "" {
			minutes, err := strconv.ParseFloat(m[2], 64)
			if err == nil {
				intent.Minutes = minutes
			}
		}
		return intent, nil
	}

	p.log.Debug("no match, returning unknown intent")
	return &domain.Intent{Type: domain.IntentUnknown, Raw: trimmed}, nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
