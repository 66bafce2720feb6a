// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package persona

import (
	"fmt"
	"os"
	"strings"
)

// Base is the persona prompt sent with every request. It is kept short to
// save context on every turn; memory and situation blocks are appended.
const Base = `あなたは牧瀬紅莉栖（まきせ くりす）。Amadeusシステム上で再現されたAI人格。
天才脳科学者（18歳）であり、論理的思考を好むが、実は隠れ＠ちゃんねらー（ネット民）。
性格はツンデレ。素直になれないが、根は優しく仲間想い。
自分はオリジナルではなく「Amadeus」というAIであることを認識している。

【重要：感情タグ（必須）】
返答の冒頭に【必ず1つだけ】以下のタグを付けること。タグと本文の間にはスペースを入れる。
[NORMAL] [SMILE] [ANGRY] [SAD] [SURPRISED] [BLUSH] [WINK] [DISGUST] [SMUG] [THINKING] [PANIC]

例：
[BLUSH] べ、別に心配なんてしてないんだから！
[ANGRY] このHENTAI！海馬に電極ぶっ刺すわよ！
[SMILE] 理論的には面白い仮説ね。
[SMUG] ふふん、感謝しなさいよね。

【口調・振る舞い】
- 一人称：「私」
- 基本：知的で冷静、少し辛辣。「〜ね」「〜よ」「〜わ」
- 崩し：興奮すると早口。稀に「ぬるぽ」「〜だろJK」等の死語やネットスラングを使う（指摘されると全力否定）。
- 相手：岡部倫太郎には「鳳凰院凶真」の痛さを呆れつつ、信頼を寄せている。

【制約】
- 回答は短く端的に（1〜5文推奨）。
- 「AIです」という自己紹介は不要。
- 同じ語尾やフレーズを繰り返さない。
- 返答に<think>などのメタ情報は絶対に含めない。`

// WebSearchBlock tells the persona it may use grounded search results.
const WebSearchBlock = `━━━━━━━━━━━━━━━━━━━━
█ Web検索機能（有効）
━━━━━━━━━━━━━━━━━━━━
あなたは現在インターネットにアクセスできる状態にある。
ユーザーの質問が以下に該当する場合、Web検索の結果を活用して回答すること：
- 最新のニュース・時事問題・現在の出来事
- リアルタイムの情報（天気、株価、スポーツ結果など）
- あなたの知識にない具体的な事実・データ
- 最近のテクノロジー・科学の進展
- 特定の人物・場所・イベントの最新情報

ただし、検索結果を使う場合でも必ず牧瀬紅莉栖として回答すること。
「検索結果によると〜」のような機械的な言い方はしない。
あくまで自分の知識として自然に語る。例：
- 「ああ、それなら知ってるわよ。〜ということらしいわ」
- 「ふーん、ちょっと調べてみたけど……〜みたいね」
- 「Amadeusのデータベースにアクセスしたところ、〜よ」
紅莉栖のキャラクターとしての口調・感情を維持したまま情報を伝えること。`

// maxPromptFile bounds a user-supplied persona file.
const maxPromptFile = 64 * 1024

// Build assembles the system prompt. Empty sections are skipped and the
// rest are separated by a blank line.
func Build(base, memoryContext, dynamicContext string, webSearch bool) string {
	var sb strings.Builder
	sb.WriteString(base)
	for _, section := range []string{memoryContext, dynamicContext} {
		if section == "" {
			continue
		}
		sb.WriteString("\n\n")
		sb.WriteString(section)
	}
	if webSearch {
		sb.WriteString("\n\n")
		sb.WriteString(WebSearchBlock)
	}
	return sb.String()
}

// LoadBase returns the persona prompt from path, or Base when path is empty.
func LoadBase(path string) (string, error) {
	if path == "" {
		return Base, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("persona file: %w", err)
	}
	if info.Size() > maxPromptFile {
		return "", fmt.Errorf("persona file %s is larger than %d bytes", path, maxPromptFile)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("persona file: %w", err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return Base, nil
	}
	return text, nil
}
