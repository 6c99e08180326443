package prompts

import (
	"fmt"
	"strings"

	"github.com/timmy/mygoreply/internal/tags"
)

// ============================================================================
// 語氣標籤分類 (Corpus tagging)
// ============================================================================

// ClassifyTags asks for a subset of the vocabulary as a bare JSON array.
// 批次標註語料時使用，只允許輸出 JSON array
func ClassifyTags(text string) string {
	return fmt.Sprintf(`請判斷下面句子的語氣，從以下標籤多選：
%s

句子：%s

請只輸出 JSON array，例如：
["好奇","輕鬆"]
不得使用清單以外的標籤，不要任何說明文字。`, tags.Joined(", "), text)
}

// ============================================================================
// 使用者訊息語氣分析 (Online tone analysis)
// ============================================================================

// ToneAnalysis asks for one emotion, tone and intent label plus a confidence.
// 線上推薦時使用：只有 tone 會用來過濾候選
func ToneAnalysis(text string) string {
	return fmt.Sprintf(`你是一個「聊天語氣分類器」，不是自由生成模型。

請從【指定標籤清單】中，選出最符合該句話的：
- 1 個「主要情緒 emotion」
- 1 個「主要語氣 tone」
- 1 個「主要意圖 intent」

【指定標籤清單】
%s

⚠️ 規則：
1. emotion、tone、intent 的值「只能」從上述標籤中選
2. 如果完全不符合，請填寫空字串 ""
3. 不得自行發明新詞
4. 僅輸出 JSON，不要任何說明文字

訊息內容：
%s

JSON 格式：
{
  "emotion": "",
  "tone": "",
  "intent": "",
  "confidence": 0.0
}`, tags.Joined("、"), text)
}

// ============================================================================
// 回覆選擇 (Closed-choice reply selection)
// ============================================================================

// ReplyOption is one numbered candidate shown to the selector.
type ReplyOption struct {
	Text  string
	Tones []string
}

// SelectReply lists the candidates verbatim and asks for exactly one of them,
// unchanged, or "" when nothing fits.
func SelectReply(userText string, options []ReplyOption) string {
	var b strings.Builder
	for i, o := range options {
		fmt.Fprintf(&b, "%d. %s [%s]\n", i+1, o.Text, strings.Join(o.Tones, ","))
	}

	return fmt.Sprintf(`你是一個聊天回覆選擇器。

使用者訊息：
%s

以下是 %d 個「固定候選回覆」，方括號內是語氣標籤（不屬於回覆內容）。
請選出「最適合回覆使用者的那一句」。

候選回覆：
%s
規則：
1. 只能選一個
2. 不得改寫文字，selected_text 必須與候選回覆一字不差（不含編號與標籤）
3. 只輸出 JSON
4. 如果沒有任何適合的，請回傳空字串 ""

輸出格式：
{
  "selected_text": ""
}`, userText, len(options), b.String())
}

// ============================================================================
// 感情分析模式 (Free-text analysis mode)
// ============================================================================

// AnalyzeConversation asks for a free-text reading of tone, emotion and intent.
func AnalyzeConversation(transcript string) string {
	return fmt.Sprintf(`請分析以下訊息的語氣、情緒與意圖:
訊息: "%s"

對話中 (我) 是截圖擁有者，(對方) 是聊天對象，(時間戳or系統訊息) 不是任何人說的話。`, transcript)
}
