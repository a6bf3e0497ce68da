// Package command decides whether a cast asks for a coin and extracts the
// coin's name and ticker from its text.
package command

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"zoiner/internal/domain"
)

const (
	Trigger = "coin this"

	DefaultName = "Zoiner"

	MaxNameLen   = 30
	MaxSymbolLen = 5

	syntheticPrefix = "ZOI"
)

var (
	namePattern   = regexp.MustCompile(`(?i)name:\s*(\S+)`)
	tickerPattern = regexp.MustCompile(`(?i)ticker:\s*(\S+)`)
)

type Parser struct {
	now func() time.Time
}

func NewParser() *Parser {
	return &Parser{now: time.Now}
}

// WithClock replaces the clock used for synthetic symbols.
func (p *Parser) WithClock(now func() time.Time) *Parser {
	p.now = now
	return p
}

func IsRequest(text string) bool {
	return strings.Contains(strings.ToLower(text), Trigger)
}

// Parse never fails on a request: every field has a fallback. A text without
// the trigger phrase yields an invalid command.
func (p *Parser) Parse(text, username string) domain.ParsedCommand {
	if !IsRequest(text) {
		return domain.ParsedCommand{}
	}

	username = strings.TrimSpace(username)

	name := firstMatch(namePattern, text)
	if name == "" {
		name = username
	}
	if name == "" {
		name = DefaultName
	}

	symbol := firstMatch(tickerPattern, text)
	if symbol == "" && username != "" {
		symbol = truncate(username, MaxSymbolLen)
	}
	if symbol == "" {
		symbol = p.syntheticSymbol()
	}

	return domain.ParsedCommand{
		Valid:  true,
		Name:   truncate(name, MaxNameLen),
		Symbol: truncate(strings.ToUpper(symbol), MaxSymbolLen),
	}
}

// syntheticSymbol takes four digits from the millisecond clock. The result is
// cut to the symbol limit like any other ticker.
func (p *Parser) syntheticSymbol() string {
	return fmt.Sprintf("%s%04d", syntheticPrefix, (p.now().UnixMilli()/10)%10000)
}

func firstMatch(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
