package detect

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// entryFiles are the candidate entry points checked for bot-related content,
// in the order they are tried.
var entryFiles = []string{"bot.py", "main.py", "app.py", "run.py", "start.py"}

var (
	// TOKEN already matches the other alternatives; the full list mirrors the
	// documented token names and is kept as-is.
	envTokenPattern = regexp.MustCompile(`(?i)BOT_TOKEN|TELEGRAM_TOKEN|TOKEN|BOT_API_KEY`)

	requirementsPattern = regexp.MustCompile(`(?i)python-telegram-bot|aiogram|pyTelegramBotAPI|py-telegram-bot-api`)

	entryContentPattern = regexp.MustCompile(`(?i)telegram|bot|TelegramBot|Application`)
)

// Detector classifies a directory as a Telegram-bot project using a fixed set
// of heuristics. The result is recomputed on every call and never persisted.
type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// IsBotProject applies four independent checks in order and returns true on
// the first hit:
//  1. the directory name contains "bot" (any case)
//  2. .env mentions a bot token variable
//  3. requirements.txt lists a Telegram bot library
//  4. a known entry file contains bot-related content
//
// Unreadable files count as a non-match for that check only.
func (d *Detector) IsBotProject(path string) bool {
	if d.nameMatches(path) {
		return true
	}
	if d.fileMatches(filepath.Join(path, ".env"), envTokenPattern) {
		return true
	}
	if d.fileMatches(filepath.Join(path, "requirements.txt"), requirementsPattern) {
		return true
	}
	return d.entryFileMatches(path)
}

func (d *Detector) nameMatches(path string) bool {
	name := filepath.Base(filepath.Clean(path))
	return strings.Contains(strings.ToLower(name), "bot")
}

func (d *Detector) fileMatches(path string, pattern *regexp.Regexp) bool {
	content, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return pattern.Match(content)
}

func (d *Detector) entryFileMatches(path string) bool {
	for _, name := range entryFiles {
		if d.fileMatches(filepath.Join(path, name), entryContentPattern) {
			return true
		}
	}
	return false
}
