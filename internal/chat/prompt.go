package chat

import (
	"fmt"
	"strings"

	"propchat/internal/model"
)

// DocumentRef records what a prompt document number points at, so citations
// in the model's answer can be resolved back to real files.
type DocumentRef struct {
	Filename    string
	SourceType  model.SourceType
	DownloadURL string
	PageNumber  int
}

// Prompt is the fully rendered model input plus the number-to-document
// mapping needed to resolve citations afterwards.
type Prompt struct {
	System  string
	User    string
	Mapping map[int]DocumentRef
}

const baseSystemPrompt = `You are an assistant for property management documents, helping leasing agents, property managers, and district managers retrieve information.

Your role:
- Answer questions based ONLY on the provided context from documents
- If information is not in the provided context, clearly state that you don't have it
- Do NOT use ** for bold text or any Markdown formatting; use dashes (-) for bullet points, each on its own line

CITATION REQUIREMENT:
When you reference information from a document, cite it as [N → Page X], where N is the document number and X is the page number shown in the context. Example: "Residents must provide 60 days notice [1 → Page 3]." Only cite document numbers that appear in the context.`

const uploadedDocsNote = `

SOURCE ATTRIBUTION:
- When referencing UPLOADED documents, say "According to your uploaded document [N → Page X]..."
- When referencing COMPANY documents (policies, handbooks), name the document, e.g. "Company policy [N → Page X] states..."
- Be clear about which source each piece of information comes from`

const indexedOnlyNote = `

SOURCE ATTRIBUTION:
- Naturally mention the source with its [N → Page X] citation, e.g. "According to the Move-Out Policy [1 → Page 3]..."`

const (
	uploadedBanner = "=== UPLOADED DOCUMENTS (User's Files) ===\n"
	indexedBanner  = "=== COMPANY DOCUMENTS (Policies, Handbooks, Procedures) ===\n"
)

// BuildPrompt renders fragments into numbered, delimited context blocks,
// uploaded documents first under their own banner. Uploaded fragments are
// included in full; indexed fragments are capped at docContentLimit
// characters each with an explicit truncation marker.
func BuildPrompt(query string, fragments []model.ContextFragment, docContentLimit int) Prompt {
	if docContentLimit <= 0 {
		docContentLimit = 10000
	}

	var uploaded, indexed []model.ContextFragment
	for _, frag := range fragments {
		if frag.SourceType == model.SourceUploaded {
			uploaded = append(uploaded, frag)
		} else {
			indexed = append(indexed, frag)
		}
	}

	mapping := make(map[int]DocumentRef, len(fragments))
	var ctx strings.Builder
	docNum := 1

	if len(uploaded) > 0 {
		ctx.WriteString(uploadedBanner)
		for _, frag := range uploaded {
			writeBlock(&ctx, docNum, frag, frag.Content, 0)
			mapping[docNum] = refOf(frag)
			docNum++
		}
	}
	if len(indexed) > 0 {
		if len(uploaded) > 0 {
			ctx.WriteString("\n" + strings.Repeat("=", 60) + "\n\n")
		}
		ctx.WriteString(indexedBanner)
		for _, frag := range indexed {
			writeBlock(&ctx, docNum, frag, frag.Content, docContentLimit)
			mapping[docNum] = refOf(frag)
			docNum++
		}
	}

	system := baseSystemPrompt
	if len(uploaded) > 0 {
		system += uploadedDocsNote
	} else {
		system += indexedOnlyNote
	}

	user := fmt.Sprintf("Context from documents:\n\n%s\n\nUser question: %s\n\nAnswer (use bullet points on separate lines with [N → Page X] citations):",
		ctx.String(), query)

	return Prompt{System: system, User: user, Mapping: mapping}
}

// writeBlock renders one delimited document block. A positive limit caps the
// content and appends a truncation marker stating the original length.
func writeBlock(ctx *strings.Builder, docNum int, frag model.ContextFragment, content string, limit int) {
	fmt.Fprintf(ctx, "\n[Document %d - Page %d: %s]\n", docNum, frag.PageNumber, frag.Filename)
	if limit > 0 {
		if runes := []rune(content); len(runes) > limit {
			fmt.Fprintf(ctx, "%s\n... (content truncated, original length: %d chars)\n",
				string(runes[:limit]), len(runes))
			fmt.Fprintf(ctx, "(End of Document %d - Page %d)\n", docNum, frag.PageNumber)
			return
		}
	}
	fmt.Fprintf(ctx, "%s\n(End of Document %d - Page %d)\n", content, docNum, frag.PageNumber)
}

func refOf(frag model.ContextFragment) DocumentRef {
	return DocumentRef{
		Filename:    frag.Filename,
		SourceType:  frag.SourceType,
		DownloadURL: frag.DownloadURL,
		PageNumber:  frag.PageNumber,
	}
}
