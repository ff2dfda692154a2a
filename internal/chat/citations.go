package chat

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"propchat/internal/model"
)

// citationPattern matches [N] and [N → Page X] citation markers.
var citationPattern = regexp.MustCompile(`\[(\d+)(?:\s*→\s*Page\s*(\d+))?\]`)

// ResolveCitations renumbers the citations in a model response so that each
// distinct cited file gets exactly one dense number starting at 1, ordered by
// the smallest prompt document number that cited it. Citations pointing at
// unknown document numbers are left untouched. The returned sources carry the
// same dense numbering.
func ResolveCitations(response string, mapping map[int]DocumentRef) (string, []model.Source) {
	cited := citedDocNumbers(response, mapping)
	if len(cited) == 0 {
		return response, nil
	}

	// First citation number per filename, smallest prompt number wins.
	renumber := make(map[int]int, len(cited))
	byFilename := make(map[string]int)
	var sources []model.Source

	for _, docNum := range cited {
		ref := mapping[docNum]
		if existing, ok := byFilename[ref.Filename]; ok {
			renumber[docNum] = existing
			continue
		}
		next := len(sources) + 1
		byFilename[ref.Filename] = next
		renumber[docNum] = next
		sources = append(sources, model.Source{
			Filename:       displayFilename(ref),
			SourceType:     ref.SourceType,
			DownloadURL:    ref.DownloadURL,
			CitationNumber: next,
		})
	}

	rewritten := citationPattern.ReplaceAllStringFunc(response, func(match string) string {
		groups := citationPattern.FindStringSubmatch(match)
		docNum, err := strconv.Atoi(groups[1])
		if err != nil {
			return match
		}
		newNum, ok := renumber[docNum]
		if !ok {
			return match
		}
		if groups[2] != "" {
			return fmt.Sprintf("[%d → Page %s]", newNum, groups[2])
		}
		return fmt.Sprintf("[%d]", newNum)
	})

	return rewritten, sources
}

// citedDocNumbers returns the distinct known document numbers cited in the
// response, ascending.
func citedDocNumbers(response string, mapping map[int]DocumentRef) []int {
	seen := make(map[int]bool)
	for _, groups := range citationPattern.FindAllStringSubmatch(response, -1) {
		docNum, err := strconv.Atoi(groups[1])
		if err != nil {
			continue
		}
		if _, known := mapping[docNum]; known {
			seen[docNum] = true
		}
	}

	nums := make([]int, 0, len(seen))
	for n := range seen {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// FallbackSources synthesizes one source per distinct context filename, in
// context order. Used when the model answered from a rich context but emitted
// no citations, so the user still sees where the answer likely came from.
func FallbackSources(fragments []model.ContextFragment, minContext int) []model.Source {
	if minContext <= 0 || len(fragments) < minContext {
		return nil
	}

	seen := make(map[string]bool)
	var sources []model.Source
	for _, frag := range fragments {
		if seen[frag.Filename] {
			continue
		}
		seen[frag.Filename] = true
		sources = append(sources, model.Source{
			Filename: displayFilename(DocumentRef{
				Filename:   frag.Filename,
				SourceType: frag.SourceType,
			}),
			SourceType:     frag.SourceType,
			DownloadURL:    frag.DownloadURL,
			CitationNumber: len(sources) + 1,
		})
	}
	return sources
}

// displayFilename prefixes the filename with the provenance marker shown in
// the sources panel.
func displayFilename(ref DocumentRef) string {
	if ref.SourceType == model.SourceUploaded {
		return "📤 " + ref.Filename
	}
	return "📁 " + ref.Filename
}

// CleanResponse strips markdown bold markers, which the frontend renders
// literally.
func CleanResponse(response string) string {
	return strings.ReplaceAll(response, "**", "")
}
