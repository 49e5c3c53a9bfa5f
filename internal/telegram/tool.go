package telegram

import "strings"

// MarkdownV2 保留字符，见 https://core.telegram.org/bots/api#markdownv2-style
var markdownV2Replacer = func() *strings.Replacer {
	const reserved = "\\_*[]()~`>#+-=|{}.!"
	pairs := make([]string, 0, len(reserved)*2)
	for _, r := range reserved {
		pairs = append(pairs, string(r), "\\"+string(r))
	}
	return strings.NewReplacer(pairs...)
}()

// escapeMarkdownV2 转义 MarkdownV2 保留字符，单次扫描，已转义的反斜杠不会被重复处理
func escapeMarkdownV2(input string) string {
	return markdownV2Replacer.Replace(input)
}
