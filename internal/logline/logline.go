// Package logline derives severity levels and readiness signals from raw
// server console output. Everything here is pure; the orchestrator owns all
// state around it.
package logline

import "strings"

// Level is the severity derived from a single console line.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Classifier recognizes severity markers and ready phrases in console lines.
// The phrase sets are configurable because server distributions vary; the
// defaults cover vanilla, Paper and Fabric output.
type Classifier struct {
	errorTokens   []string
	warnTokens    []string
	errorKeywords []string
	warnKeywords  []string
	readyPhrases  []string
}

// New returns a Classifier with the default phrase sets.
func New() *Classifier {
	return &Classifier{
		errorTokens:   []string{"error", "fatal", "severe"},
		warnTokens:    []string{"warn"},
		errorKeywords: []string{"exception", "error", "failed"},
		warnKeywords:  []string{"warn"},
		readyPhrases: []string{
			`! for help, type "help"`,
			`! for help, type 'help'`,
			"server started",
		},
	}
}

// WithReadyPhrases replaces the ready-phrase set (matched case-insensitively).
func (c *Classifier) WithReadyPhrases(phrases []string) *Classifier {
	cp := *c
	cp.readyPhrases = make([]string, len(phrases))
	for i, p := range phrases {
		cp.readyPhrases[i] = strings.ToLower(p)
	}
	return &cp
}

// Level attempts to classify a line. ok is false when the line carries no
// strong signal, in which case the caller applies its channel default
// (stdout -> info, stderr -> error).
func (c *Classifier) Level(line string) (Level, bool) {
	lower := strings.ToLower(line)

	// Bracketed markers like "[Server thread/WARN]" or "[ERROR]". Lines
	// usually lead with a timestamp bracket, so every tag is inspected.
	for _, tag := range bracketTags(lower) {
		for _, t := range c.errorTokens {
			if tag == t {
				return LevelError, true
			}
		}
		for _, t := range c.warnTokens {
			if tag == t {
				return LevelWarn, true
			}
		}
		if tag == "info" {
			return LevelInfo, true
		}
	}

	// Keyword heuristics on the whole line.
	for _, k := range c.errorKeywords {
		if strings.Contains(lower, k) {
			return LevelError, true
		}
	}
	for _, k := range c.warnKeywords {
		if strings.Contains(lower, k) {
			return LevelWarn, true
		}
	}
	return LevelInfo, false
}

// Ready reports whether a line matches one of the ready phrases. The classic
// vanilla signature is `Done (12.345s)! For help, type "help"`.
func (c *Classifier) Ready(line string) bool {
	lower := strings.ToLower(line)
	for _, p := range c.readyPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// bracketTags extracts the level tokens from every bracketed tag of an
// already-lowercased line, handling both "[warn]" and "[server thread/warn]".
func bracketTags(lower string) []string {
	var tags []string
	for {
		open := strings.IndexByte(lower, '[')
		if open < 0 {
			return tags
		}
		rel := strings.IndexByte(lower[open:], ']')
		if rel < 0 {
			return tags
		}
		tag := lower[open+1 : open+rel]
		lower = lower[open+rel+1:]
		if i := strings.LastIndexByte(tag, '/'); i >= 0 {
			tag = tag[i+1:]
		}
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
}

// SplitLines splits a raw stdio chunk into individual lines on \n or \r\n,
// discarding blank lines. Chunks are not guaranteed to be line-aligned but
// Minecraft servers flush per line in practice.
func SplitLines(chunk string) []string {
	if chunk == "" {
		return nil
	}
	raw := strings.Split(chunk, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}
