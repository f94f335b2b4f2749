package format

import (
	"strings"
	"testing"

	"evidence-bot/submission"
)

func sampleSubmission() *submission.Submission {
	return &submission.Submission{
		Timestamp:  "2024-01-01",
		Submitter:  "Alice",
		Title:      "Title1",
		AffTags:    []string{"t1", "t2"},
		NegTags:    []string{},
		SourceURL:  "http://x",
		UpdateDate: "2024-01-01",
		EngSource:  "Src",
		Quote:      "原文",
		Attachment: "",
		Remark:     "備考",
	}
}

func TestNotification(t *testing.T) {
	msg := Notification(1, sampleSubmission(), "Translated")

	if !strings.HasPrefix(msg, "1. Title1 (Alice)\n") {
		t.Errorf("message does not start with the title line: %q", msg[:40])
	}
	if !strings.Contains(msg, "[AFF]#t1 #t2") {
		t.Errorf("message missing AFF tag block:\n%s", msg)
	}
	if strings.Contains(msg, "[NEG]") {
		t.Errorf("message should omit NEG marker for empty negative tags:\n%s", msg)
	}
	if !strings.Contains(msg, "```原文```") {
		t.Errorf("message missing fenced original quote:\n%s", msg)
	}
	if !strings.Contains(msg, "**English Translation:**\n```Translated```") {
		t.Errorf("message missing fenced translated quote:\n%s", msg)
	}
	if !strings.Contains(msg, "\n※備考") {
		t.Errorf("message missing remark line:\n%s", msg)
	}
	if !strings.Contains(msg, "添付ファイル：\nなし") {
		t.Errorf("message missing attachment none sentinel:\n%s", msg)
	}
	if !strings.Contains(msg, "【投稿者】Alice") {
		t.Errorf("message missing submitter footer:\n%s", msg)
	}
	if !strings.Contains(msg, "【引用元】2024-01-01\nhttp://x") {
		t.Errorf("message missing source footer:\n%s", msg)
	}
}

func TestNotificationBothTagGroups(t *testing.T) {
	sub := sampleSubmission()
	sub.NegTags = []string{"n1"}

	msg := Notification(1, sub, "Translated")

	if !strings.Contains(msg, "[AFF]#t1 #t2 \n[NEG]#n1 ") {
		t.Errorf("tag groups not separated by a line break:\n%s", msg)
	}
}

func TestNotificationNoRemark(t *testing.T) {
	sub := sampleSubmission()
	sub.Remark = ""

	msg := Notification(1, sub, "Translated")

	if strings.Contains(msg, "※") {
		t.Errorf("remark marker should be absent for empty remark:\n%s", msg)
	}
	// Attachment renders regardless
	if !strings.Contains(msg, "添付ファイル：") {
		t.Errorf("attachment block must always render:\n%s", msg)
	}
}

func TestNotificationAttachmentPresent(t *testing.T) {
	sub := sampleSubmission()
	sub.Attachment = "file.png"

	msg := Notification(1, sub, "Translated")

	if !strings.Contains(msg, "添付ファイル：\nfile.png") {
		t.Errorf("attachment value not rendered:\n%s", msg)
	}
	if strings.Contains(msg, "なし") {
		t.Errorf("none sentinel should be absent when attachment is set:\n%s", msg)
	}
}

func TestLeadingEmptyTagSuppressesGroup(t *testing.T) {
	// A tag field of ", b" splits to ["", "b"]; the leading empty tag
	// suppresses the whole group.
	sub := sampleSubmission()
	sub.AffTags = []string{"", "b"}

	msg := Notification(1, sub, "Translated")
	if strings.Contains(msg, "[AFF]") {
		t.Errorf("AFF group should be suppressed for leading empty tag:\n%s", msg)
	}

	entry := DocumentEntrySections(1, sub, "Translated")
	if strings.Contains(entry.Tags, "[AFF]") {
		t.Errorf("document AFF group should be suppressed for leading empty tag: %q", entry.Tags)
	}
}

func TestDocumentEntrySections(t *testing.T) {
	entry := DocumentEntrySections(3, sampleSubmission(), "Translated")

	if entry.Title != "3. Title1 (Alice)" {
		t.Errorf("Title = %q", entry.Title)
	}
	if entry.Tags != "#Alice [AFF] #t1 #t2" {
		t.Errorf("Tags = %q", entry.Tags)
	}
	wantTable := "[資料番号:3] 2024-01-01: Src\nhttp://x\n\n【Original (Japanese)】\n原文\n\n【English Translation】\nTranslated"
	if entry.Table != wantTable {
		t.Errorf("Table = %q, want %q", entry.Table, wantTable)
	}
	if entry.Remark != "備考" {
		t.Errorf("Remark = %q", entry.Remark)
	}
	if entry.Attachment != "" {
		t.Errorf("Attachment = %q, want empty", entry.Attachment)
	}
}

func TestFormattingIsDeterministic(t *testing.T) {
	sub := sampleSubmission()

	first := Notification(7, sub, "Translated")
	second := Notification(7, sub, "Translated")
	if first != second {
		t.Error("Notification is not deterministic for identical inputs")
	}

	entryA := DocumentEntrySections(7, sub, "Translated")
	entryB := DocumentEntrySections(7, sub, "Translated")
	if *entryA != *entryB {
		t.Error("DocumentEntrySections is not deterministic for identical inputs")
	}
}
