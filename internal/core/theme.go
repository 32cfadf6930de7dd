package core

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownTheme = errors.New("unknown theme")

const (
	ThemeIndigo  Theme = "indigo"
	ThemeEmerald Theme = "emerald"
	ThemeRose    Theme = "rose"
	ThemeSlate   Theme = "slate"
)

// DefaultTheme is used on first run and whenever the stored value is unknown.
const DefaultTheme = ThemeIndigo

type Theme string

// ThemeInfo describes a theme for the settings view.
type ThemeInfo struct {
	ID     Theme  `json:"id"`
	Name   string `json:"name"`
	Accent string `json:"accent"`
}

var themes = []ThemeInfo{
	{ID: ThemeIndigo, Name: "Classic Indigo", Accent: "#4F46E5"},
	{ID: ThemeEmerald, Name: "Emerald Mint", Accent: "#059669"},
	{ID: ThemeRose, Name: "Rose Quartz", Accent: "#E11D48"},
	{ID: ThemeSlate, Name: "Midnight Slate", Accent: "#1E293B"},
}

// Themes returns every selectable theme in display order.
func Themes() []ThemeInfo {
	return append([]ThemeInfo(nil), themes...)
}

func (t Theme) Valid() bool {
	_, ok := t.Info()
	return ok
}

func (t Theme) Info() (ThemeInfo, bool) {
	for _, info := range themes {
		if info.ID == t {
			return info, true
		}
	}
	return ThemeInfo{}, false
}

// ParseTheme validates a user supplied theme id.
func ParseTheme(s string) (Theme, error) {
	t := Theme(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w %q", ErrUnknownTheme, s)
	}
	return t, nil
}
