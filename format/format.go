// Package format renders a submission into its two delivery representations:
// a document entry and a chat notification message. All functions are pure;
// translated text is supplied by the caller.
package format

import (
	"fmt"
	"strings"

	"evidence-bot/submission"
)

// DocumentEntry is the formatted content appended to the compilation document.
type DocumentEntry struct {
	Title      string
	Tags       string
	Table      string
	Remark     string
	Attachment string
}

// DocumentEntrySections renders a DocumentEntry.
//
// A tag group renders only when it is non-empty and its first tag is
// non-empty. A field like ", b" therefore suppresses its whole group even
// though "b" is present; this matches the upstream form behavior and is kept
// as-is.
func DocumentEntrySections(entryNumber int, sub *submission.Submission, translatedQuote string) *DocumentEntry {
	var tags strings.Builder
	tags.WriteString("#" + sub.Submitter)

	if renderableTags(sub.AffTags) {
		tags.WriteString(" [AFF]")
		for _, tag := range sub.AffTags {
			tags.WriteString(" #" + tag)
		}
	}
	if renderableTags(sub.NegTags) {
		tags.WriteString(" [NEG]")
		for _, tag := range sub.NegTags {
			tags.WriteString(" #" + tag)
		}
	}

	table := fmt.Sprintf(
		"[資料番号:%d] %s: %s\n%s\n\n【Original (Japanese)】\n%s\n\n【English Translation】\n%s",
		entryNumber, sub.UpdateDate, sub.EngSource, sub.SourceURL, sub.Quote, translatedQuote,
	)

	return &DocumentEntry{
		Title:      titleLine(entryNumber, sub),
		Tags:       tags.String(),
		Table:      table,
		Remark:     sub.Remark,
		Attachment: sub.Attachment,
	}
}

// Notification renders the complete chat notification message.
//
// The remark line appears only when the remark is non-empty; the attachment
// block always renders, with なし as the explicit "none" sentinel.
func Notification(entryNumber int, sub *submission.Submission, translatedQuote string) string {
	var tags strings.Builder
	if renderableTags(sub.AffTags) {
		tags.WriteString("[AFF]")
		for _, tag := range sub.AffTags {
			tags.WriteString("#" + tag + " ")
		}
	}
	if renderableTags(sub.AffTags) && renderableTags(sub.NegTags) {
		tags.WriteString("\n")
	}
	if renderableTags(sub.NegTags) {
		tags.WriteString("[NEG]")
		for _, tag := range sub.NegTags {
			tags.WriteString("#" + tag + " ")
		}
	}

	attachment := "\n添付ファイル：\n"
	if sub.Attachment != "" {
		attachment += sub.Attachment
	} else {
		attachment += "なし"
	}

	remark := ""
	if sub.Remark != "" {
		remark = "\n※" + sub.Remark
	}

	body := fmt.Sprintf(
		"\n%s\n\n```%s```\n\n**English Translation:**\n```%s```%s%s\n\n【投稿者】%s\n【引用元】%s\n%s",
		tags.String(), sub.Quote, translatedQuote, remark, attachment,
		sub.Submitter, sub.UpdateDate, sub.SourceURL,
	)

	return titleLine(entryNumber, sub) + "\n" + body
}

func titleLine(entryNumber int, sub *submission.Submission) string {
	return fmt.Sprintf("%d. %s (%s)", entryNumber, sub.Title, sub.Submitter)
}

func renderableTags(tags []string) bool {
	return len(tags) > 0 && tags[0] != ""
}
