package chat

import (
	"strings"
	"testing"

	"propchat/internal/model"
)

func TestBuildPromptNumbersAndDelimiters(t *testing.T) {
	fragments := []model.ContextFragment{
		{Content: "Uploaded page text.", Filename: "notes.txt", SourceType: model.SourceUploaded, PageNumber: 1},
		{Content: "Indexed chunk text.", Filename: "lease.pdf", SourceType: model.SourceIndexed, PageNumber: 4},
	}

	p := BuildPrompt("what is the rent?", fragments, 10000)

	if !strings.Contains(p.User, "[Document 1 - Page 1: notes.txt]\nUploaded page text.\n(End of Document 1 - Page 1)") {
		t.Errorf("missing delimited uploaded block in:\n%s", p.User)
	}
	if !strings.Contains(p.User, "[Document 2 - Page 4: lease.pdf]\nIndexed chunk text.\n(End of Document 2 - Page 4)") {
		t.Errorf("missing delimited indexed block in:\n%s", p.User)
	}
	if !strings.Contains(p.User, uploadedBanner) || !strings.Contains(p.User, indexedBanner) {
		t.Errorf("missing section banners in:\n%s", p.User)
	}
	if !strings.Contains(p.User, "User question: what is the rent?") {
		t.Errorf("missing user question in:\n%s", p.User)
	}

	if p.Mapping[1].Filename != "notes.txt" || p.Mapping[1].SourceType != model.SourceUploaded {
		t.Errorf("Mapping[1] = %+v", p.Mapping[1])
	}
	if p.Mapping[2].Filename != "lease.pdf" || p.Mapping[2].PageNumber != 4 {
		t.Errorf("Mapping[2] = %+v", p.Mapping[2])
	}
}

func TestBuildPromptTruncatesIndexedContent(t *testing.T) {
	long := strings.Repeat("x", 120)
	fragments := []model.ContextFragment{
		{Content: long, Filename: "lease.pdf", SourceType: model.SourceIndexed, PageNumber: 1},
	}

	p := BuildPrompt("q", fragments, 100)

	want := strings.Repeat("x", 100) + "\n... (content truncated, original length: 120 chars)"
	if !strings.Contains(p.User, want) {
		t.Errorf("expected truncated content with marker in:\n%s", p.User)
	}
	if strings.Contains(p.User, strings.Repeat("x", 101)) {
		t.Errorf("indexed content exceeded the cap")
	}
}

func TestBuildPromptUploadedContentNeverTruncated(t *testing.T) {
	long := strings.Repeat("y", 120)
	fragments := []model.ContextFragment{
		{Content: long, Filename: "notes.txt", SourceType: model.SourceUploaded, PageNumber: 2},
	}

	p := BuildPrompt("q", fragments, 100)

	if !strings.Contains(p.User, long) {
		t.Errorf("uploaded content must be included in full")
	}
	if strings.Contains(p.User, "content truncated") {
		t.Errorf("uploaded content must not carry a truncation marker")
	}
}

func TestBuildPromptSystemVariants(t *testing.T) {
	indexed := []model.ContextFragment{
		{Content: "c", Filename: "a.pdf", SourceType: model.SourceIndexed, PageNumber: 1},
	}
	uploaded := []model.ContextFragment{
		{Content: "c", Filename: "n.txt", SourceType: model.SourceUploaded, PageNumber: 1},
	}

	withoutUploads := BuildPrompt("q", indexed, 100)
	withUploads := BuildPrompt("q", uploaded, 100)

	if strings.Contains(withoutUploads.System, "UPLOADED documents") {
		t.Errorf("indexed-only prompt must not mention uploads")
	}
	if !strings.Contains(withUploads.System, "UPLOADED documents") {
		t.Errorf("upload-aware system prompt missing")
	}
}

func TestBuildPromptEmptyContext(t *testing.T) {
	p := BuildPrompt("hello question", nil, 100)
	if !strings.Contains(p.User, "User question: hello question") {
		t.Errorf("p.User = %q", p.User)
	}
	if strings.Contains(p.User, "[Document") {
		t.Errorf("empty context must not render document blocks")
	}
	if len(p.Mapping) != 0 {
		t.Errorf("mapping should be empty, got %v", p.Mapping)
	}
}

func TestBuildPromptUploadsNumberedFirst(t *testing.T) {
	fragments := []model.ContextFragment{
		{Content: "u1", Filename: "n.txt", SourceType: model.SourceUploaded, PageNumber: 1},
		{Content: "i1", Filename: "a.pdf", SourceType: model.SourceIndexed, PageNumber: 1},
		{Content: "u2", Filename: "n.txt", SourceType: model.SourceUploaded, PageNumber: 2},
	}

	p := BuildPrompt("q", fragments, 100)

	if p.Mapping[1].SourceType != model.SourceUploaded || p.Mapping[2].SourceType != model.SourceUploaded {
		t.Errorf("uploaded fragments must take the first document numbers: %+v", p.Mapping)
	}
	if p.Mapping[3].SourceType != model.SourceIndexed {
		t.Errorf("Mapping[3] = %+v, want indexed", p.Mapping[3])
	}
}
