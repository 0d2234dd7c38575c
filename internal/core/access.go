package core

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// MaxChannelNameLen bounds names accepted by CanCreate, in runes.
	MaxChannelNameLen = 32

	directPrefix = "dm-"
)

// AccessPolicy decides who may create and join which channel. Public
// channels are open to every identified connection; direct channels named
// dm-<a>-<b> are open to a and b only.
type AccessPolicy struct{}

// NewAccessPolicy returns the default policy.
func NewAccessPolicy() *AccessPolicy {
	return &AccessPolicy{}
}

// IsDirect reports whether name uses the direct-channel prefix.
func IsDirect(name string) bool {
	return strings.HasPrefix(name, directPrefix)
}

// DirectParticipants splits dm-<a>-<b>. ok is false for any other shape.
func DirectParticipants(name string) (a, b string, ok bool) {
	if !IsDirect(name) {
		return "", "", false
	}
	parts := strings.Split(name, "-")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// CanJoin reports whether identity may join channel. Malformed direct names
// match nobody.
func (p *AccessPolicy) CanJoin(identity, channel string) bool {
	if identity == "" || channel == "" {
		return false
	}
	if !IsDirect(channel) {
		return true
	}
	a, b, ok := DirectParticipants(channel)
	if !ok {
		return false
	}
	return identity == a || identity == b
}

// CanCreate normalizes raw into a channel name: trimmed, lowercased, no
// whitespace, at most MaxChannelNameLen runes.
func (p *AccessPolicy) CanCreate(raw string) (string, error) {
	name := cases.Lower(language.Und).String(strings.TrimSpace(raw))
	if name == "" {
		return "", ErrInvalidName
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return "", ErrInvalidName
	}
	if utf8.RuneCountInString(name) > MaxChannelNameLen {
		return "", ErrInvalidName
	}
	return name, nil
}

// validDirectName is the looser check for implicitly created direct
// channels, whose two usernames may exceed MaxChannelNameLen together.
func validDirectName(name string) bool {
	_, _, ok := DirectParticipants(name)
	return ok && strings.IndexFunc(name, unicode.IsSpace) < 0
}
