package service

import (
	"errors"
	"strings"
)

// Mode selects what happens with an uploaded conversation.
type Mode string

const (
	// ModeAnalysis returns a free-text reading of the conversation.
	ModeAnalysis Mode = "analysis"
	// ModeSticker replies with a sticker frame chosen from the corpus.
	ModeSticker Mode = "sticker"
)

// ErrUnknownMode is returned for a command that names no mode.
var ErrUnknownMode = errors.New("unknown mode")

// MenuMessage lists the modes for a command that selects none.
const MenuMessage = "你想做什麼呢？\n" +
	"1️⃣ 感情分析\n" +
	"2️⃣ 智慧表情包回覆\n\n" +
	"請回覆 1 或 2"

// User-facing replies for empty results.
const (
	NoTextMessage    = "⚠️ 無法辨識圖片中的文字，請確認是否為聊天截圖。"
	NoStickerMessage = "找不到適合的表情包 QQ"
)

var modeAliases = map[string]Mode{
	"感情分析":     ModeAnalysis,
	"1":        ModeAnalysis,
	"analysis": ModeAnalysis,
	"智慧表情包":    ModeSticker,
	"表情包":      ModeSticker,
	"2":        ModeSticker,
	"sticker":  ModeSticker,
}

// ParseMode maps a user command to a Mode. Surrounding whitespace is ignored.
func ParseMode(command string) (Mode, error) {
	if m, ok := modeAliases[strings.TrimSpace(command)]; ok {
		return m, nil
	}
	return "", ErrUnknownMode
}
