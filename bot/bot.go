// Package bot implements the Discord chat commands over the collected
// evidence: latest submissions, AI question answering, search, and status.
// Command handling is split from the Discord transport so handlers can be
// tested with mocks.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"evidence-bot/format"
	"evidence-bot/pipeline"
	"evidence-bot/record"
	"evidence-bot/search"
)

const (
	commandPrefix   = "!"
	maxLatestCount  = 10
	contextQuoteLen = 200
)

// Asker answers a question with optional context.
type Asker interface {
	Ask(ctx context.Context, question, contextText string) (string, error)
}

// Searcher queries the record index.
type Searcher interface {
	Search(query string, limit int) ([]*search.Hit, error)
}

// Status reports which collaborators are configured, for the !status command.
type Status struct {
	OpenAI      bool
	GoogleAPI   bool
	Spreadsheet bool
	Document    bool
	Webhook     bool
}

// CommandHandler resolves chat messages into replies.
type CommandHandler struct {
	source   pipeline.RowSource
	store    *record.Store
	asker    Asker
	searcher Searcher
	status   Status
}

// NewCommandHandler creates a command handler. asker and searcher may be nil;
// the corresponding commands then report themselves unavailable.
func NewCommandHandler(source pipeline.RowSource, store *record.Store, asker Asker, searcher Searcher, status Status) *CommandHandler {
	return &CommandHandler{
		source:   source,
		store:    store,
		asker:    asker,
		searcher: searcher,
		status:   status,
	}
}

// HandleMessage resolves one incoming message into zero or more replies.
// Non-command messages containing a question mark are answered by the
// assistant, like the original channel behavior.
func (h *CommandHandler) HandleMessage(ctx context.Context, content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	if !strings.HasPrefix(content, commandPrefix) {
		if strings.ContainsAny(content, "?？") {
			return []string{h.answer(ctx, content, "")}
		}
		return nil
	}

	command, args, _ := strings.Cut(content[len(commandPrefix):], " ")
	args = strings.TrimSpace(args)

	switch strings.ToLower(command) {
	case "ping":
		return []string{"Pong!"}
	case "ask":
		if args == "" {
			return []string{"Usage: !ask <your question>"}
		}
		return []string{h.answer(ctx, args, "")}
	case "latest":
		return h.handleLatest(ctx, args)
	case "search":
		if args == "" {
			return []string{"Usage: !search <search query>"}
		}
		return []string{h.handleSearch(ctx, args)}
	case "analyze":
		if args == "" {
			return []string{"Usage: !analyze <analysis prompt>"}
		}
		return []string{h.handleAnalyze(ctx, args)}
	case "status":
		return []string{h.handleStatus()}
	case "help":
		return []string{helpText}
	default:
		return []string{"Command not found. Use `!help` to see available commands."}
	}
}

func (h *CommandHandler) answer(ctx context.Context, question, contextText string) string {
	if h.asker == nil {
		return "The assistant is not configured."
	}
	reply, err := h.asker.Ask(ctx, question, contextText)
	if err != nil {
		slog.Warn("assistant request failed", "error", err)
		return "Sorry, I encountered an error while processing your question."
	}
	return reply
}

func (h *CommandHandler) handleLatest(ctx context.Context, args string) []string {
	limit := 5
	if args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n < 1 {
			return []string{"Usage: !latest [number]"}
		}
		limit = n
	}
	if limit > maxLatestCount {
		limit = maxLatestCount
	}

	subs, err := pipeline.LatestSubmissions(ctx, h.source, limit)
	if err != nil {
		slog.Warn("failed to list latest submissions", "error", err)
		return []string{"Failed to read submissions from the response sheet."}
	}
	if len(subs) == 0 {
		return []string{"No submissions found."}
	}

	replies := make([]string, 0, len(subs))
	for _, ns := range subs {
		// Display uses the original quote; translation happens in the
		// ingestion pipeline, not on read.
		replies = append(replies, format.Notification(ns.RowNumber-1, ns.Submission, ns.Submission.Quote))
	}
	return replies
}

func (h *CommandHandler) handleSearch(ctx context.Context, query string) string {
	if h.searcher == nil {
		return "Search is not configured."
	}

	hits, err := h.searcher.Search(query, maxLatestCount)
	if err != nil {
		slog.Warn("search failed", "query", query, "error", err)
		return "Search failed."
	}
	if len(hits) == 0 {
		return "No matching evidence found."
	}

	contextText := h.buildSearchContext(hits)
	prompt := fmt.Sprintf("Based on the evidence data, please help with this search query: %s", query)
	return h.answer(ctx, prompt, contextText)
}

// buildSearchContext assembles assistant context from the records behind the
// search hits.
func (h *CommandHandler) buildSearchContext(hits []*search.Hit) string {
	byID := make(map[string]record.StructuredRecord)
	for _, rec := range h.store.Snapshot() {
		byID[rec.ID] = rec
	}

	var sb strings.Builder
	sb.WriteString("Matching evidence submissions:\n")
	for _, hit := range hits {
		rec, ok := byID[hit.ID]
		if !ok {
			sb.WriteString(fmt.Sprintf("- %s by %s\n", hit.TitleOriginal, hit.Submitter))
			continue
		}
		sb.WriteString(fmt.Sprintf("- %s by %s: %s\n",
			rec.Title.Original, rec.Submitter, truncate(rec.Quote.Original, contextQuoteLen)))
	}
	return sb.String()
}

func (h *CommandHandler) handleAnalyze(ctx context.Context, prompt string) string {
	subs, err := pipeline.LatestSubmissions(ctx, h.source, maxLatestCount)
	if err != nil {
		slog.Warn("failed to list submissions for analysis", "error", err)
		return "No data available for analysis."
	}
	if len(subs) == 0 {
		return "No data available for analysis."
	}

	var sb strings.Builder
	sb.WriteString("Evidence data for analysis:\n")
	for _, ns := range subs {
		sub := ns.Submission
		sb.WriteString(fmt.Sprintf("Title: %s\n", sub.Title))
		sb.WriteString(fmt.Sprintf("Submitter: %s\n", sub.Submitter))
		sb.WriteString(fmt.Sprintf("Quote: %s\n", truncate(sub.Quote, 300)))
		sb.WriteString(fmt.Sprintf("Tags: AFF=%v, NEG=%v\n\n", sub.AffTags, sub.NegTags))
	}

	question := fmt.Sprintf("Please analyze this evidence data: %s", prompt)
	return h.answer(ctx, question, sb.String())
}

func (h *CommandHandler) handleStatus() string {
	var sb strings.Builder
	sb.WriteString("Bot Status\n")
	sb.WriteString(statusLine("OpenAI API", h.status.OpenAI))
	sb.WriteString(statusLine("Google APIs", h.status.GoogleAPI))
	sb.WriteString(statusLine("Spreadsheet", h.status.Spreadsheet))
	sb.WriteString(statusLine("Document", h.status.Document))
	sb.WriteString(statusLine("Webhook", h.status.Webhook))
	sb.WriteString(fmt.Sprintf("Structured records: %d", h.store.Len()))
	return sb.String()
}

func statusLine(name string, configured bool) string {
	mark := "❌ Not configured"
	if configured {
		mark = "✅ Configured"
	}
	return fmt.Sprintf("%s: %s\n", name, mark)
}

// truncate shortens s to n characters. It cuts on rune boundaries; the
// quoted content is Japanese, so a byte cut would produce invalid UTF-8.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

const helpText = "Evidence Collection Bot - Commands\n\n" +
	"!ping - Test bot connectivity\n" +
	"!ask <question> - Ask the assistant a question\n" +
	"!latest [number] - Get latest evidence submissions (default: 5, max: 10)\n" +
	"!search <query> - Search through evidence data using AI\n" +
	"!analyze <prompt> - Analyze evidence data using AI\n" +
	"!status - Show bot status and configuration\n\n" +
	"Ask questions naturally in chat (with '?') and I'll respond using the assistant!"
