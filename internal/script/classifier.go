package script

import (
	"regexp"
	"strconv"
	"strings"
)

// LineKind classifies one non-empty script line.
type LineKind string

const (
	LineComment      LineKind = "comment"
	LineMessage      LineKind = "message"
	LineTyping       LineKind = "typing"
	LinePause        LineKind = "pause"
	LineDelay        LineKind = "delay"
	LineTypingRate   LineKind = "typing_rate"
	LineBackground   LineKind = "background"
	LineChoiceOpen   LineKind = "choice_open"
	LineChoiceOption LineKind = "choice_option"
	LineInput        LineKind = "input"
	LineUnknown      LineKind = "unknown"
)

// Line-kind prefixes are case-insensitive; tag and flag identifiers are not.
var (
	npcPattern        = regexp.MustCompile(`(?i)^NPC:\s*(.+)$`)
	mePattern         = regexp.MustCompile(`(?i)^ME:\s*(.+)$`)
	sysPattern        = regexp.MustCompile(`(?i)^SYS:\s*(.+)$`)
	typingPattern     = regexp.MustCompile(`^\.\.\.$`)
	pausePattern      = regexp.MustCompile(`(?i)^\[pause\s+(\d+)(s|ms)?\]$`)
	delayPattern      = regexp.MustCompile(`(?i)^\[delay\s+(\d+)(ms)?\]$`)
	typingRatePattern = regexp.MustCompile(`(?i)^\[typing\s+(\d+)(ms)?\]$`)
	backgroundPattern = regexp.MustCompile(`(?i)^\[bg\s+(\w+)\]$`)
	choicePattern     = regexp.MustCompile(`(?i)^CHOICE:$`)
	optionPattern     = regexp.MustCompile(`(?i)^-\s*(.+?)\s*->\s*goto\s+(\w+)(?:\s+\[set\s+(.+)\])?$`)
	inputPattern      = regexp.MustCompile(`(?i)^INPUT:\s*(.+?)\s*->\s*goto\s+(\w+)(?:\s+\[set\s+(.+)\])?$`)
	tagPattern        = regexp.MustCompile(`(?i)#tag:(\w+)\s*$`)
)

// Line is the classification of a single trimmed, non-empty script
// line with its captured groups. Fields are populated per kind; the
// rest stay zero.
type Line struct {
	Kind LineKind

	Speaker    Speaker // message lines
	Text       string  // message text or input prompt, tag suffix stripped
	Tag        string  // trailing #tag:NAME on message/input lines
	Label      string  // choice option label
	GotoTag    string  // choice option / input jump target
	FlagSpec   string  // raw [set ...] payload, unparsed
	DurationMS int     // pause/delay/typing-rate value, normalized to ms
	Style      string  // background style name
}

// Classify classifies one trimmed, non-empty line. Classification is
// purely lexical: an option line outside an open choice block still
// classifies as LineChoiceOption; rejecting it is the compiler's job.
func Classify(line string) Line {
	if strings.HasPrefix(line, "//") {
		return Line{Kind: LineComment}
	}
	// Bare # lines are author comments unless they carry a tag marker.
	if strings.HasPrefix(line, "#") && !strings.Contains(line, "#tag:") {
		return Line{Kind: LineComment}
	}

	if m := backgroundPattern.FindStringSubmatch(line); m != nil {
		return Line{Kind: LineBackground, Style: strings.ToLower(m[1])}
	}
	if m := delayPattern.FindStringSubmatch(line); m != nil {
		return Line{Kind: LineDelay, DurationMS: atoi(m[1])}
	}
	if m := typingRatePattern.FindStringSubmatch(line); m != nil {
		return Line{Kind: LineTypingRate, DurationMS: atoi(m[1])}
	}
	if typingPattern.MatchString(line) {
		return Line{Kind: LineTyping}
	}
	if m := pausePattern.FindStringSubmatch(line); m != nil {
		v := atoi(m[1])
		// Default unit is seconds when omitted.
		if strings.ToLower(m[2]) != "ms" {
			v *= 1000
		}
		return Line{Kind: LinePause, DurationMS: v}
	}
	if choicePattern.MatchString(line) {
		return Line{Kind: LineChoiceOpen}
	}
	if m := optionPattern.FindStringSubmatch(line); m != nil {
		return Line{
			Kind:     LineChoiceOption,
			Label:    strings.TrimSpace(m[1]),
			GotoTag:  strings.TrimSpace(m[2]),
			FlagSpec: m[3],
		}
	}
	if m := inputPattern.FindStringSubmatch(line); m != nil {
		prompt, tag := splitTag(m[1])
		return Line{
			Kind:     LineInput,
			Text:     prompt,
			Tag:      tag,
			GotoTag:  strings.TrimSpace(m[2]),
			FlagSpec: m[3],
		}
	}
	if m := npcPattern.FindStringSubmatch(line); m != nil {
		return messageLine(SpeakerNPC, m[1])
	}
	if m := mePattern.FindStringSubmatch(line); m != nil {
		return messageLine(SpeakerMe, m[1])
	}
	if m := sysPattern.FindStringSubmatch(line); m != nil {
		return messageLine(SpeakerSystem, m[1])
	}

	return Line{Kind: LineUnknown}
}

func messageLine(sp Speaker, raw string) Line {
	text, tag := splitTag(raw)
	return Line{Kind: LineMessage, Speaker: sp, Text: text, Tag: tag}
}

// splitTag strips a trailing #tag:NAME marker from message or prompt
// text and returns the trimmed remainder plus the tag name.
func splitTag(raw string) (text, tag string) {
	if m := tagPattern.FindStringSubmatch(raw); m != nil {
		tag = m[1]
		raw = tagPattern.ReplaceAllString(raw, "")
	}
	return strings.TrimSpace(raw), tag
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
