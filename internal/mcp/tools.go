package mcp

import "github.com/mark3labs/mcp-go/mcp"

var folderListToolDef = mcp.NewTool("folder_list",
	mcp.WithDescription("List meeting folders, newest first."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var folderCreateToolDef = mcp.NewTool("folder_create",
	mcp.WithDescription("Create a folder for grouping meetings."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Folder name (trimmed, non-empty)")),
)

var folderRenameToolDef = mcp.NewTool("folder_rename",
	mcp.WithDescription("Rename a folder."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Folder ID")),
	mcp.WithString("name", mcp.Required(), mcp.Description("New folder name (trimmed, non-empty)")),
)

var folderDeleteToolDef = mcp.NewTool("folder_delete",
	mcp.WithDescription("Delete a folder together with all of its meetings and their transcript history."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Folder ID")),
)

var meetingListToolDef = mcp.NewTool("meeting_list",
	mcp.WithDescription("List meetings newest first, optionally within one folder."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("folder_id", mcp.Description("Only meetings in this folder")),
)

var meetingCreateToolDef = mcp.NewTool("meeting_create",
	mcp.WithDescription("Create a meeting. A blank title becomes \"Untitled Meeting\"."),
	mcp.WithString("title", mcp.Description("Meeting title (max 100 characters)")),
	mcp.WithString("folder_id", mcp.Description("Folder to file the meeting under")),
	mcp.WithString("scheduled_at", mcp.Description("Start time, RFC 3339 or YYYY-MM-DDTHH:MM")),
)

var meetingGetToolDef = mcp.NewTool("meeting_get",
	mcp.WithDescription("Get a meeting with its transcript and summary."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Meeting ID")),
)

var meetingUpdateToolDef = mcp.NewTool("meeting_update",
	mcp.WithDescription("Update meeting fields. Omitted fields are unchanged; null clears folder_id, scheduled_at or summary. A transcript change is recorded in the transcript history."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Meeting ID")),
	mcp.WithString("title", mcp.Description("New title")),
	mcp.WithString("folder_id", mcp.Description("Folder ID, or null to unfile")),
	mcp.WithString("scheduled_at", mcp.Description("Start time, or null to unschedule")),
	mcp.WithString("summary", mcp.Description("Summary text, or null to remove")),
	mcp.WithString("transcript", mcp.Description("Replacement transcript")),
)

var meetingDeleteToolDef = mcp.NewTool("meeting_delete",
	mcp.WithDescription("Delete a meeting and its transcript history."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Meeting ID")),
)

var meetingClearToolDef = mcp.NewTool("meeting_clear",
	mcp.WithDescription("Remove a meeting's transcript and summary. Dropping a transcript is recorded in the history."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Meeting ID")),
)

var meetingICSToolDef = mcp.NewTool("meeting_ics",
	mcp.WithDescription("Export a meeting as a one-hour iCalendar event."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Meeting ID")),
)

var meetingSummarizeToolDef = mcp.NewTool("meeting_summarize",
	mcp.WithDescription("Summarize the meeting transcript in 5-8 bullet points and store the summary. Requires a transcript."),
	mcp.WithString("meeting_id", mcp.Required(), mcp.Description("Meeting ID")),
	mcp.WithString("style", mcp.Description("Persona for the summary, e.g. \"Meeting Notes\" or \"Pirate Captain – Growly and full of “Arrr!”\"")),
)

var transcriptUpdateToolDef = mcp.NewTool("transcript_update",
	mcp.WithDescription("Replace a meeting transcript. Identical text is a no-op; any change is recorded with the prior text."),
	mcp.WithString("meeting_id", mcp.Required(), mcp.Description("Meeting ID")),
	mcp.WithString("text", mcp.Required(), mcp.Description("New transcript text")),
)

var transcriptHistoryToolDef = mcp.NewTool("transcript_history",
	mcp.WithDescription("List a meeting's transcript edits, newest first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("meeting_id", mcp.Required(), mcp.Description("Meeting ID")),
)

var textTranslateToolDef = mcp.NewTool("text_translate",
	mcp.WithDescription("Translate text into a target language."),
	mcp.WithString("text", mcp.Required(), mcp.Description("Text to translate")),
	mcp.WithString("target", mcp.Required(), mcp.Description("Target language, e.g. Spanish")),
)
